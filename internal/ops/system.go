package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/HendryAvila/macbridge/internal/applescript"
	"github.com/HendryAvila/macbridge/internal/registry"
	"github.com/HendryAvila/macbridge/internal/updater"
)

// System implements the administrative family: self-update, status, and
// the explicit permission-cache reset (the cache never expires on its own).
type System struct {
	updater *updater.Updater
	perms   *applescript.PermissionCache
	version string
	mode    string
	started time.Time
}

// NewSystem creates the family. mode is the runner mode ("live" or "mock")
// reported by system_status.
func NewSystem(up *updater.Updater, perms *applescript.PermissionCache, version, mode string) *System {
	return &System{updater: up, perms: perms, version: version, mode: mode, started: time.Now()}
}

// Register adds the system operations to r.
func (s *System) Register(r *registry.Registry) {
	r.Register(registry.Operation{
		Name:        "system_update",
		Family:      "system",
		Description: "Pull the latest gateway code, rebuild, and restart with a graceful handover",
		Returns:     "a change summary, or 'already in progress' / 'already up to date'",
		Handler:     s.update,
	})
	r.Register(registry.Operation{
		Name:        "system_status",
		Family:      "system",
		Description: "Report gateway version, runner mode, and uptime",
		Returns:     "single status line",
		Handler:     s.status,
	})
	r.Register(registry.Operation{
		Name:        "system_reset_permissions",
		Family:      "system",
		Description: "Forget verified automation permissions so the next call re-probes",
		Returns:     "confirmation",
		Handler:     s.resetPermissions,
	})
}

func (s *System) update(ctx context.Context, _ registry.Args) (string, error) {
	return s.updater.Run(ctx)
}

func (s *System) status(_ context.Context, _ registry.Args) (string, error) {
	uptime := time.Since(s.started).Round(time.Second)
	return fmt.Sprintf("macbridge %s, %s mode, up %s", s.version, s.mode, uptime), nil
}

func (s *System) resetPermissions(_ context.Context, _ registry.Args) (string, error) {
	s.perms.Clear()
	return "Permission cache cleared", nil
}
