// Package updater implements the self-update flow: fast-forward the local
// working copy, rebuild, and hand the listener over to a fresh process.
//
// The handover is two-phase on purpose: stop accepting, drain with a grace
// timeout, spawn the replacement detached, and exit only once it reports
// healthy (or exit non-zero after a bound so a supervisor restarts us).
// An unstructured spawn-then-exit leaves a window where neither process
// is listening.
package updater

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/HendryAvila/macbridge/internal/errs"
)

const (
	commandTimeout = 60 * time.Second
	graceTimeout   = 10 * time.Second
	readyTimeout   = 30 * time.Second
	maxSummaryLen  = 20 // commits shown in the change summary
)

// Package-level vars to allow test injection.
var (
	gitCommand  = runGit
	rebuildFunc = runRebuild
	exitFunc    = os.Exit
	spawnFunc   = spawnReplacement
)

// revPattern validates the revisions used to build the change-summary
// range before they are passed back to git.
var revPattern = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// Updater runs the update flow. A single process-wide flag serializes it:
// a second concurrent attempt gets an "already in progress" result instead
// of a queued or interleaved update.
type Updater struct {
	repoDir   string
	healthURL string
	shutdown  func(context.Context) error
	log       zerolog.Logger
	inFlight  atomic.Bool
}

// New creates an Updater for the working copy at repoDir. shutdown is the
// server's stop-accepting-and-drain hook; healthURL is polled to confirm
// the replacement process is up.
func New(repoDir, healthURL string, shutdown func(context.Context) error, log zerolog.Logger) *Updater {
	return &Updater{
		repoDir:   repoDir,
		healthURL: healthURL,
		shutdown:  shutdown,
		log:       log.With().Str("component", "updater").Logger(),
	}
}

// Run performs the update. On success the returned summary reaches the
// caller before the handover goroutine tears the process down.
func (u *Updater) Run(ctx context.Context) (string, error) {
	if !u.inFlight.CompareAndSwap(false, true) {
		return "Update already in progress", nil
	}

	summary, restart, err := u.update(ctx)
	if !restart {
		u.inFlight.Store(false)
		return summary, err
	}

	// Give the front-end a moment to flush the response, then hand over.
	go func() {
		time.Sleep(500 * time.Millisecond)
		u.handover()
	}()
	return summary, nil
}

func (u *Updater) update(ctx context.Context) (summary string, restart bool, err error) {
	dirty, err := gitCommand(ctx, u.repoDir, "status", "--porcelain")
	if err != nil {
		return "", false, errs.Internalf(fmt.Errorf("checking working copy: %w", err))
	}
	if strings.TrimSpace(dirty) != "" {
		return "", false, errs.Validationf("working copy has uncommitted changes; commit or stash them before updating")
	}

	oldRev, err := gitCommand(ctx, u.repoDir, "rev-parse", "HEAD")
	if err != nil {
		return "", false, errs.Internalf(fmt.Errorf("reading current revision: %w", err))
	}
	oldRev = strings.TrimSpace(oldRev)

	if _, err := gitCommand(ctx, u.repoDir, "fetch", "--quiet"); err != nil {
		return "", false, errs.Unavailablef("update remote", err.Error())
	}

	behindOut, err := gitCommand(ctx, u.repoDir, "rev-list", "--count", "HEAD..@{u}")
	if err != nil {
		return "", false, errs.Internalf(fmt.Errorf("counting new commits: %w", err))
	}
	behind, _ := strconv.Atoi(strings.TrimSpace(behindOut))
	if behind == 0 {
		return fmt.Sprintf("Already up to date at %s", shortRev(oldRev)), false, nil
	}

	if _, err := gitCommand(ctx, u.repoDir, "merge", "--ff-only", "@{u}"); err != nil {
		return "", false, errs.Internalf(fmt.Errorf("merging update: %w", err))
	}

	newRev, err := gitCommand(ctx, u.repoDir, "rev-parse", "HEAD")
	if err != nil {
		return "", false, errs.Internalf(fmt.Errorf("reading updated revision: %w", err))
	}
	newRev = strings.TrimSpace(newRev)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Updated %s → %s (%d commits). Restarting...\n", shortRev(oldRev), shortRev(newRev), behind)

	// A failed rebuild is a warning, not an abort: the fetched source is
	// already in place and the spawned replacement runs the old binary
	// until the next successful build.
	if err := rebuildFunc(ctx, u.repoDir); err != nil {
		u.log.Warn().Err(err).Msg("dependency reinstall failed")
		fmt.Fprintf(&sb, "Warning: dependency reinstall failed: %v\n", err)
	}

	sb.WriteString(u.changeSummary(ctx, oldRev, newRev))
	return strings.TrimRight(sb.String(), "\n"), true, nil
}

// changeSummary renders a bounded one-line-per-commit summary of the
// updated range. Both endpoints are shape-checked before they are handed
// back to git; a malformed revision yields no summary rather than a
// second command built from unvalidated output.
func (u *Updater) changeSummary(ctx context.Context, oldRev, newRev string) string {
	if !revPattern.MatchString(oldRev) || !revPattern.MatchString(newRev) {
		return ""
	}
	out, err := gitCommand(ctx, u.repoDir, "log", "--oneline", oldRev+".."+newRev)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) > maxSummaryLen {
		lines = append(lines[:maxSummaryLen], fmt.Sprintf("... and %d more", len(lines)-maxSummaryLen))
	}
	return "Changes:\n" + strings.Join(lines, "\n")
}

// handover drains the listener, spawns the replacement, and exits once it
// answers on the health endpoint — or exits non-zero after the ready bound
// so an external supervisor restarts the service.
func (u *Updater) handover() {
	ctx, cancel := context.WithTimeout(context.Background(), graceTimeout)
	defer cancel()
	if err := u.shutdown(ctx); err != nil {
		u.log.Warn().Err(err).Msg("drain did not finish cleanly")
	}

	if err := spawnFunc(u.repoDir); err != nil {
		u.log.Error().Err(err).Msg("spawning replacement failed")
		exitFunc(1)
		return
	}

	deadline := time.Now().Add(readyTimeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(u.healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				u.log.Info().Msg("replacement is healthy, exiting")
				exitFunc(0)
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}

	u.log.Error().Msg("replacement never became healthy")
	exitFunc(1)
}

// spawnReplacement starts a detached copy of the current executable in its
// own session so it survives this process exiting.
func spawnReplacement(dir string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding current executable: %w", err)
	}
	cmd := exec.Command(exe, "serve")
	cmd.Dir = dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting replacement: %w", err)
	}
	// Reap the child if it exits; we never wait on success.
	go func() { _ = cmd.Wait() }()
	return nil
}

// runGit executes one git command in dir.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %v: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// runRebuild reinstalls dependencies and recompiles the module after a
// fast-forward, so the spawned replacement runs the updated code.
func runRebuild(ctx context.Context, dir string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "install", "./cmd/macbridge")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("go install: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func shortRev(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
