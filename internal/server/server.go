// Package server wires all gateway components and owns the two transports:
// the authenticated HTTP front-end and the MCP stdio transport.
//
// This is the composition root: it creates the concrete runner, caches,
// and clients, and injects them into the operation families. No business
// logic lives here — only wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/HendryAvila/macbridge/internal/applescript"
	"github.com/HendryAvila/macbridge/internal/config"
	"github.com/HendryAvila/macbridge/internal/contacts"
	"github.com/HendryAvila/macbridge/internal/ops"
	"github.com/HendryAvila/macbridge/internal/registry"
	"github.com/HendryAvila/macbridge/internal/updater"
	"github.com/HendryAvila/macbridge/internal/whatsapp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server holds the wired registry and the HTTP listener.
type Server struct {
	cfg     *config.Config
	log     zerolog.Logger
	reg     *registry.Registry
	http    *http.Server
	started time.Time
}

// New creates the gateway with every operation family registered. The
// runner implementation is chosen here, once, from configuration.
func New(cfg *config.Config, log zerolog.Logger) *Server {
	perms := applescript.NewPermissionCache()

	var run applescript.Runner
	if cfg.AppleScript.Mode == config.ModeMock {
		run = applescript.NewMock(applescript.DefaultPatterns())
	} else {
		run = applescript.NewLive(perms, log)
	}

	contactCache := contacts.New(cfg.Contacts.Dir, log)
	waClient := whatsapp.NewClient(cfg.WhatsApp.BridgeURL)

	s := &Server{
		cfg:     cfg,
		log:     log.With().Str("component", "server").Logger(),
		started: time.Now(),
	}

	healthURL := fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)
	up := updater.New(cfg.Repo.Dir, healthURL, s.drain, log)

	reg := registry.New()
	ops.NewMessages(run, contactCache, cfg.Messages.DBPath).Register(reg)
	ops.NewNotes(run).Register(reg)
	ops.NewReminders(run).Register(reg)
	ops.NewContacts(contactCache).Register(reg)
	ops.NewWhatsApp(waClient, cfg.WhatsApp.StorePath).Register(reg)
	ops.NewSystem(up, perms, Version, cfg.AppleScript.Mode).Register(reg)
	s.reg = reg

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Registry exposes the wired registry for the MCP transport and tests.
func (s *Server) Registry() *registry.Registry {
	return s.reg
}

// Run serves HTTP until ctx is canceled, then drains with a bounded grace
// period. A handover triggered by system_update stops the listener the
// same way, through drain.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Str("mode", s.cfg.AppleScript.Mode).Msg("gateway listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.drain(shutdownCtx)
	}
}

// drain stops accepting new connections and closes existing ones within
// ctx's deadline.
func (s *Server) drain(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
