// macbridge: a gateway exposing macOS host capabilities (Messages, Notes,
// Reminders, Contacts, WhatsApp relay) to remote callers.
//
// Usage:
//
//	macbridge serve    # authenticated HTTP gateway (POST /rpc, GET /health)
//	macbridge mcp      # same operations over MCP stdio
//	macbridge version
//
// Configuration comes from MACBRIDGE_* environment variables or the YAML
// file named by MACBRIDGE_CONFIG. MACBRIDGE_AUTH_TOKEN is required for
// serve mode.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/HendryAvila/macbridge/internal/config"
	"github.com/HendryAvila/macbridge/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mcp":
		if err := runMCP(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "--version", "-v", "version":
		fmt.Printf("macbridge %s\n", server.Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := config.Load(os.Getenv("MACBRIDGE_CONFIG"))
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	log := newLogger(cfg.Log.Level)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, log).Run(ctx)
}

func runMCP() error {
	cfg, err := config.Load(os.Getenv("MACBRIDGE_CONFIG"))
	if err != nil {
		return err
	}

	// MCP rides stdio; logs must stay on stderr and the auth token is
	// not needed — the transport itself is the trust boundary.
	log := newLogger(cfg.Log.Level)
	return server.New(cfg, log).ServeMCP()
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func printUsage() {
	fmt.Println(`macbridge - macOS capability gateway

Usage:
  macbridge serve     Start the authenticated HTTP gateway
  macbridge mcp       Serve the same operations over MCP stdio
  macbridge version   Print the version

Configuration (env, or YAML file named by MACBRIDGE_CONFIG):
  MACBRIDGE_AUTH_TOKEN         shared secret for /rpc (required for serve)
  MACBRIDGE_SERVER_PORT        listen port (default 8787)
  MACBRIDGE_APPLESCRIPT_MODE   live or mock (default live)
  MACBRIDGE_WHATSAPP_BRIDGE_URL  companion daemon base URL
  MACBRIDGE_LOG_LEVEL          trace|debug|info|warn|error`)
}
