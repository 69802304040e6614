package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/HendryAvila/macbridge/internal/errs"
)

// rpcRequest is the envelope carried by every POST /rpc call: one logical
// operation per request, no session state.
type rpcRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result string    `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc", s.handleRPC)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// handleRPC authenticates, dispatches, and always answers with a
// well-formed JSON body — a failed call is a typed error payload, never
// a bare transport failure.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	log := s.log.With().Str("request_id", reqID).Logger()

	if !s.authorized(r) {
		log.Warn().Str("remote", r.RemoteAddr).Msg("rejected unauthenticated request")
		writeJSON(w, http.StatusUnauthorized, rpcResponse{
			Error: &rpcError{Code: "UNAUTHORIZED", Message: "missing or invalid bearer token"},
		})
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcResponse{
			Error: &rpcError{Code: "INVALID_ARGUMENT", Message: "request body is not a valid call envelope"},
		})
		return
	}

	result, err := s.reg.Dispatch(r.Context(), req.Action, req.Params)
	if err != nil {
		e := errs.From(err)
		log.Info().Str("action", req.Action).Str("code", e.Code).Msg(e.Message)
		writeJSON(w, e.Status, rpcResponse{Error: &rpcError{Code: e.Code, Message: e.Message}})
		return
	}

	log.Debug().Str("action", req.Action).Msg("dispatched")
	writeJSON(w, http.StatusOK, rpcResponse{Result: result})
}

// handleHealth is unauthenticated: supervisors and the update handover
// both poll it.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
		"mode":    s.cfg.AppleScript.Mode,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Auth.Token)) == 1
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
