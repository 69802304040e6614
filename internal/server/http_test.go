package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/HendryAvila/macbridge/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.Token = "secret"
	cfg.Server.Port = 0
	cfg.AppleScript.Mode = config.ModeMock
	cfg.WhatsApp.BridgeURL = "http://127.0.0.1:1"
	cfg.WhatsApp.StorePath = filepath.Join(t.TempDir(), "absent.db")
	cfg.Messages.DBPath = filepath.Join(t.TempDir(), "absent.db")
	cfg.Contacts.Dir = t.TempDir()
	cfg.Repo.Dir = t.TempDir()
	cfg.Log.Level = "error"
	return cfg
}

func testGateway(t *testing.T) *httptest.Server {
	t.Helper()
	s := New(testConfig(t), zerolog.Nop())
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, token, action string, params map[string]any) (*http.Response, rpcResponse) {
	t.Helper()
	body, _ := json.Marshal(rpcRequest{Action: action, Params: params})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/rpc", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestRPC_RequiresToken(t *testing.T) {
	srv := testGateway(t)

	resp, out := call(t, srv, "", "describe", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if out.Error == nil || out.Error.Code != "UNAUTHORIZED" {
		t.Errorf("error = %+v, want UNAUTHORIZED", out.Error)
	}

	resp, _ = call(t, srv, "wrong", "describe", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", resp.StatusCode)
	}
}

func TestHealth_Unauthenticated(t *testing.T) {
	srv := testGateway(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["mode"] != config.ModeMock {
		t.Errorf("health body = %v", body)
	}
}

func TestRPC_DescribeListsEveryOperationOnce(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg, zerolog.Nop())
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, out := call(t, srv, "secret", "describe", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %+v", resp.StatusCode, out.Error)
	}
	if out.Result == "" {
		t.Fatal("describe returned an empty catalog")
	}
	for _, name := range s.Registry().Names() {
		if got := strings.Count(out.Result, name+" "); got != 1 {
			t.Errorf("catalog mentions %q %d times, want exactly once", name, got)
		}
	}
}

func TestRPC_MockedReminders(t *testing.T) {
	srv := testGateway(t)

	resp, out := call(t, srv, "secret", "reminders_list", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %+v", resp.StatusCode, out.Error)
	}
	if !strings.Contains(out.Result, "Buy milk") {
		t.Errorf("result = %q, want the canned reminders list", out.Result)
	}
}

func TestRPC_UnknownOperation(t *testing.T) {
	srv := testGateway(t)

	resp, out := call(t, srv, "secret", "bogus_op", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if out.Error == nil || out.Error.Code != "UNKNOWN_OPERATION" {
		t.Fatalf("error = %+v, want UNKNOWN_OPERATION", out.Error)
	}
	if !strings.Contains(out.Error.Message, "reminders_list") {
		t.Errorf("message %q should list valid operations", out.Error.Message)
	}
}

func TestRPC_MissingRequiredParam(t *testing.T) {
	srv := testGateway(t)

	resp, out := call(t, srv, "secret", "notes_create", map[string]any{"title": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if out.Error == nil || out.Error.Code != "INVALID_ARGUMENT" {
		t.Fatalf("error = %+v, want INVALID_ARGUMENT", out.Error)
	}
	if !strings.Contains(out.Error.Message, "body") {
		t.Errorf("message %q should name the missing parameter", out.Error.Message)
	}
}

func TestRPC_DatabaseErrorNamesLogicalStore(t *testing.T) {
	srv := testGateway(t)

	// The WhatsApp store path points at a missing file.
	resp, out := call(t, srv, "secret", "whatsapp_chats", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if out.Error == nil || out.Error.Code != "DATABASE_ERROR" {
		t.Fatalf("error = %+v, want DATABASE_ERROR", out.Error)
	}
	if !strings.Contains(out.Error.Message, "WhatsApp") {
		t.Errorf("message %q should name the logical database", out.Error.Message)
	}
}

func TestRPC_RawSQLRejected(t *testing.T) {
	srv := testGateway(t)

	resp, out := call(t, srv, "secret", "whatsapp_raw_sql",
		map[string]any{"sql": "DROP TABLE messages"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if out.Error == nil || out.Error.Code != "INVALID_ARGUMENT" {
		t.Errorf("error = %+v, want INVALID_ARGUMENT", out.Error)
	}
}

func TestRPC_MalformedEnvelope(t *testing.T) {
	srv := testGateway(t)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/rpc", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMCPServer_Builds(t *testing.T) {
	s := New(testConfig(t), zerolog.Nop())
	if s.MCPServer() == nil {
		t.Fatal("MCPServer returned nil")
	}
}
