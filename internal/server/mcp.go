package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/macbridge/internal/errs"
	"github.com/HendryAvila/macbridge/internal/resources"
)

// MCPServer exposes the same registry over the Model Context Protocol,
// one tool per operation. Taxonomy errors become tool error results so an
// MCP client sees the message instead of a protocol fault.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	m := mcpserver.NewMCPServer(
		"macbridge",
		Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithRecovery(),
	)

	for _, op := range s.reg.Operations() {
		opts := []mcp.ToolOption{mcp.WithDescription(op.Description)}
		for _, p := range op.Params {
			var popts []mcp.PropertyOption
			if p.Required {
				popts = append(popts, mcp.Required())
			}
			if p.Description != "" {
				popts = append(popts, mcp.Description(p.Description))
			}
			switch p.Type {
			case "number":
				opts = append(opts, mcp.WithNumber(p.Name, popts...))
			case "boolean":
				opts = append(opts, mcp.WithBoolean(p.Name, popts...))
			default:
				opts = append(opts, mcp.WithString(p.Name, popts...))
			}
		}

		name := op.Name
		m.AddTool(mcp.NewTool(name, opts...), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			result, err := s.reg.Dispatch(ctx, name, args)
			if err != nil {
				return mcp.NewToolResultError(errs.From(err).Message), nil
			}
			return mcp.NewToolResultText(result), nil
		})
	}

	// The describe action rides along so MCP clients get the same
	// progressive-disclosure catalog as HTTP callers.
	describe := mcp.NewTool("describe",
		mcp.WithDescription("Render the operation catalog, or one operation's full documentation"),
		mcp.WithString("operation", mcp.Description("operation name to document; the whole catalog when omitted")),
	)
	m.AddTool(describe, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		result, err := s.reg.Dispatch(ctx, "describe", args)
		if err != nil {
			return mcp.NewToolResultError(errs.From(err).Message), nil
		}
		return mcp.NewToolResultText(result), nil
	})

	res := resources.NewHandler(s.reg, Version, s.cfg.AppleScript.Mode, s.started)
	m.AddResource(res.CatalogResource(), res.HandleCatalog)
	m.AddResource(res.StatusResource(), res.HandleStatus)

	return m
}

// ServeMCP runs the MCP stdio transport until the client disconnects.
func (s *Server) ServeMCP() error {
	return mcpserver.ServeStdio(s.MCPServer())
}
