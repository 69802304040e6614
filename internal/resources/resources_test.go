package resources

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/macbridge/internal/registry"
)

func newTestHandler() *Handler {
	r := registry.New()
	r.Register(registry.Operation{
		Name:        "notes_list",
		Family:      "notes",
		Description: "List notes",
		Handler: func(context.Context, registry.Args) (string, error) {
			return "a|b", nil
		},
	})
	return NewHandler(r, "1.2.3", "mock", time.Now().Add(-90*time.Second))
}

func readRequest(uri string) mcp.ReadResourceRequest {
	var req mcp.ReadResourceRequest
	req.Params.URI = uri
	return req
}

func TestHandleCatalog(t *testing.T) {
	h := newTestHandler()

	contents, err := h.HandleCatalog(context.Background(), readRequest("macbridge://catalog"))
	if err != nil {
		t.Fatalf("HandleCatalog: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] is %T, want TextResourceContents", contents[0])
	}
	if !strings.Contains(text.Text, "notes_list") {
		t.Errorf("catalog %q should list the registered operation", text.Text)
	}
}

func TestHandleStatus(t *testing.T) {
	h := newTestHandler()

	contents, err := h.HandleStatus(context.Background(), readRequest("macbridge://status"))
	if err != nil {
		t.Fatalf("HandleStatus: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents)
	if text.MIMEType != "application/json" {
		t.Errorf("mime = %q", text.MIMEType)
	}

	var status struct {
		Version    string `json:"version"`
		Mode       string `json:"mode"`
		Uptime     string `json:"uptime"`
		Operations int    `json:"operations"`
	}
	if err := json.Unmarshal([]byte(text.Text), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Version != "1.2.3" || status.Mode != "mock" || status.Operations != 1 {
		t.Errorf("status = %+v", status)
	}
	if status.Uptime == "" {
		t.Error("uptime should be populated")
	}
}
