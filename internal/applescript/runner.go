// Package applescript runs automation scripts through the macOS osascript
// interpreter. It owns the session permission cache, the tiered timeouts,
// and the two escaping layers every handler must use when embedding user
// text into a generated script.
//
// Two Runner implementations exist: the live runner shells out to the real
// interpreter, and the mock runner answers from a pattern table so the
// whole dispatcher is testable off-macOS. The implementation is selected
// once at startup from configuration, never by runtime branching.
package applescript

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/HendryAvila/macbridge/internal/errs"
)

// Timeout tiers. Most scripts finish well under the default; Notes and
// Reminders writes can stall on iCloud sync and get the slow tier.
const (
	probeTimeout   = 3 * time.Second
	defaultTimeout = 10 * time.Second
	slowTimeout    = 45 * time.Second
)

// osascriptBin is a package-level var to allow test injection.
var osascriptBin = "osascript"

// Options control a single script execution.
type Options struct {
	// Capability is the application the script drives (e.g. "Messages").
	// When set, the live runner verifies automation permission on first
	// use and launches the application best-effort before the script runs.
	Capability string

	// Slow selects the 45s timeout tier for scripts known to incur
	// external sync latency.
	Slow bool
}

// Runner executes automation scripts and opens URLs with the host's
// default handler.
type Runner interface {
	Run(ctx context.Context, script string, opts Options) (string, error)
	OpenURL(ctx context.Context, url string) error
}

// Live shells out to the real osascript interpreter.
type Live struct {
	perms *PermissionCache
	log   zerolog.Logger
}

// NewLive creates a live runner sharing the given permission cache.
func NewLive(perms *PermissionCache, log zerolog.Logger) *Live {
	return &Live{perms: perms, log: log.With().Str("component", "applescript").Logger()}
}

// Run executes script, verifying the capability's automation permission
// first when one is named and not yet verified this session. The launch
// step runs on every call: the application may have quit since the last
// invocation.
func (l *Live) Run(ctx context.Context, script string, opts Options) (string, error) {
	if opts.Capability != "" {
		if !l.perms.Verified(opts.Capability) {
			if err := l.probe(ctx, opts.Capability); err != nil {
				return "", err
			}
			l.perms.MarkVerified(opts.Capability)
		}
		l.ensureRunning(ctx, opts.Capability)
	}

	timeout := defaultTimeout
	if opts.Slow {
		timeout = slowTimeout
	}

	out, err := l.exec(ctx, script, timeout)
	if err != nil {
		return "", classify(err, "script", opts.Capability, timeout)
	}
	return out, nil
}

// OpenURL hands url to the system `open` command through the shell.
// The URL crosses a shell quoting boundary, so it is single-quoted
// independently of any AppleScript escaping already applied.
func (l *Live) OpenURL(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "sh", "-c", "open "+ShellQuote(url))
	if out, err := cmd.CombinedOutput(); err != nil {
		return errs.Internalf(fmt.Errorf("open %s: %v: %s", url, err, strings.TrimSpace(string(out))))
	}
	return nil
}

// probe runs a minimal script against the capability to force the TCC
// permission prompt (or surface a denial) before the real script runs.
func (l *Live) probe(ctx context.Context, capability string) error {
	script := fmt.Sprintf("tell application \"%s\" to return name", EscapeString(capability))
	if _, err := l.exec(ctx, script, probeTimeout); err != nil {
		return classify(err, "permission check", capability, probeTimeout)
	}
	l.log.Debug().Str("capability", capability).Msg("automation permission verified")
	return nil
}

// ensureRunning launches the capability's application so the follow-up
// script doesn't race its startup. Fire and forget: if launch fails the
// script call surfaces the real error.
func (l *Live) ensureRunning(ctx context.Context, capability string) {
	script := fmt.Sprintf("tell application \"%s\" to launch", EscapeString(capability))
	if _, err := l.exec(ctx, script, probeTimeout); err != nil {
		l.log.Debug().Str("capability", capability).Err(err).Msg("launch failed, continuing")
	}
}

func (l *Live) exec(parent context.Context, script string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, osascriptBin, "-e", script)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", context.DeadlineExceeded
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// classify converts a raw execution failure into a taxonomy error. An
// authorization message names the capability; a deadline names the bound
// it blew; anything else is a generic adapter failure.
func classify(err error, what, capability string, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		name := what
		if capability != "" {
			name = what + " for " + capability
		}
		return errs.Timeoutf(name, int(timeout.Seconds()))
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not authorized") || strings.Contains(msg, "not allowed") {
		target := capability
		if target == "" {
			target = "the target application"
		}
		return errs.Permissionf(target)
	}
	return errs.Internalf(fmt.Errorf("running %s: %w", what, err))
}
