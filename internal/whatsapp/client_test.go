package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HendryAvila/macbridge/internal/errs"
)

func TestHealth_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s, want /health", r.URL.Path)
		}
		w.Write([]byte(`{"status":"connected","user":"15551234567"}`))
	}))
	defer srv.Close()

	status, err := NewClient(srv.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if status.Status != "connected" || status.User != "15551234567" {
		t.Errorf("status = %+v", status)
	}
}

func TestHealth_MissingStatusField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"user":"x"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Health(context.Background())
	if !errs.IsKind(err, errs.ServiceUnavailable) {
		t.Fatalf("err = %v, want ServiceUnavailable", err)
	}
}

func TestHealth_Unreachable(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").Health(context.Background())
	if !errs.IsKind(err, errs.ServiceUnavailable) {
		t.Fatalf("err = %v, want ServiceUnavailable", err)
	}
	if !strings.Contains(err.Error(), "WhatsApp bridge") {
		t.Errorf("error %q should name the service", err)
	}
}

func TestSend_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send" || r.Method != http.MethodPost {
			t.Errorf("got %s %s, want POST /send", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"id":"3EB0C431"}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL).Send(context.Background(), "15551234567", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "3EB0C431" {
		t.Errorf("id = %q", id)
	}
}

func TestSend_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{"daemon error", 200, `{"success":false,"error":"not logged in"}`, "not logged in"},
		{"missing id", 200, `{"success":true}`, "missing message id"},
		{"http error", 502, `bad gateway`, "HTTP 502"},
		{"garbage body", 200, `not json`, "unparseable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Send(context.Background(), "x", "y")
			if !errs.IsKind(err, errs.ServiceUnavailable) {
				t.Fatalf("err = %v, want ServiceUnavailable", err)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("error %q should mention %q", err, tt.reason)
			}
		})
	}
}
