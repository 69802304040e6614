// Package resources implements MCP resource handlers for the gateway.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (macbridge://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/macbridge/internal/registry"
)

// Handler manages the gateway's resource endpoints.
type Handler struct {
	reg     *registry.Registry
	version string
	mode    string
	started time.Time
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(reg *registry.Registry, version, mode string, started time.Time) *Handler {
	return &Handler{reg: reg, version: version, mode: mode, started: started}
}

// CatalogResource returns the MCP resource definition for the operation catalog.
func (h *Handler) CatalogResource() mcp.Resource {
	return mcp.NewResource(
		"macbridge://catalog",
		"Operation Catalog",
		mcp.WithResourceDescription("Every operation the gateway exposes, grouped by capability family"),
		mcp.WithMIMEType("text/plain"),
	)
}

// HandleCatalog renders the full operation catalog.
func (h *Handler) HandleCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	catalog, err := h.reg.Dispatch(ctx, "describe", nil)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     catalog,
		},
	}, nil
}

// StatusResource returns the MCP resource definition for gateway status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"macbridge://status",
		"Gateway Status",
		mcp.WithResourceDescription("Version, execution mode, and uptime"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the current gateway status as JSON.
func (h *Handler) HandleStatus(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	status := struct {
		Version    string `json:"version"`
		Mode       string `json:"mode"`
		Uptime     string `json:"uptime"`
		Operations int    `json:"operations"`
	}{
		Version:    h.version,
		Mode:       h.mode,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Operations: len(h.reg.Names()),
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
