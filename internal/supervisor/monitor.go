package supervisor

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/javaward/javaward/internal/metrics"
	"github.com/javaward/javaward/internal/probe"
)

// monitorAttached owns cmd.Wait for one spawned server. It flips starting
// → running once the stability window passes without an exit (unless the
// readiness marker already did), classifies the exit, and always ends in
// the idempotent cleanup: a panic inside the loop degrades to status
// error instead of leaving a dead registry slot behind.
func (s *Supervisor) monitorAttached(ctx context.Context, rec *Record) {
	defer s.recoverMonitor(rec)

	exitCh := make(chan error, 1)
	go func() { exitCh <- rec.child.Wait() }()

	stability := time.NewTimer(s.opts.StabilityWindow)
	defer stability.Stop()

	var exitErr error
	select {
	case exitErr = <-exitCh:
		// died inside the stability window (or instantly)
		rec.markExited(exitErr)
	case <-stability.C:
		s.markRunning(rec, "stability window")
		select {
		case exitErr = <-exitCh:
			rec.markExited(exitErr)
		case <-ctx.Done():
			// keep-servers shutdown: leave the child alone. The Wait
			// goroutine stays parked; the supervisor process is exiting.
			return
		}
	case <-ctx.Done():
		return
	}

	s.finishExit(rec, exitErr)
}

// monitorDetached polls the liveness probe for a restored server. The
// moment the PID is gone the record is torn down.
func (s *Supervisor) monitorDetached(ctx context.Context, rec *Record) {
	defer s.recoverMonitor(rec)

	tick := time.NewTicker(s.opts.PollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		if !probe.Alive(rec.PID()) {
			rec.markExited(nil)
			s.finishExit(rec, nil)
			return
		}
	}
}

// finishExit classifies a death and runs cleanup. Exit code 0, or any exit
// while a stop was requested, is a clean stop; everything else is a crash.
func (s *Supervisor) finishExit(rec *Record, exitErr error) {
	final := StatusStopped
	reason := "exited"
	if exitErr != nil && !rec.StopRequested() {
		final = StatusError
		reason = exitErr.Error()
		var ee *exec.ExitError
		if errors.As(exitErr, &ee) {
			reason = ee.String()
		}
		metrics.IncCrash(rec.id)
		s.log.Warn("server exited unexpectedly", "server", rec.id, "pid", rec.PID(), "error", exitErr)
	} else {
		s.log.Info("server exited", "server", rec.id, "pid", rec.PID())
	}
	s.cleanupRecord(rec, final, reason, true)
}

// recoverMonitor converts a monitor panic into status error plus cleanup.
// The registry must never hold a slot whose task silently died.
func (s *Supervisor) recoverMonitor(rec *Record) {
	if r := recover(); r != nil {
		s.log.Error("monitor loop panicked", "server", rec.id, "panic", r)
		rec.markExited(nil)
		s.cleanupRecord(rec, StatusError, "monitor failure", true)
	}
}
