package supervisor

import (
	"context"
	"sync"
	"syscall"
	"time"

	"github.com/javaward/javaward/internal/metrics"
	"github.com/javaward/javaward/internal/pidfile"
	"github.com/javaward/javaward/internal/probe"
)

// Stop drives the graceful → SIGTERM → SIGKILL escalation for one server.
// force skips the graceful phase. Stopping an unknown id returns a
// StateError; every wait below is bounded, and the terminal cleanup is
// idempotent against the monitor detecting the same death concurrently.
func (s *Supervisor) Stop(ctx context.Context, id string, force bool) error {
	rec := s.reg.get(id)
	if rec == nil {
		return &StateError{Op: "stop", ServerID: id, Reason: "not running"}
	}
	if rec.Mode() == ModeAttached && rec.PID() == 0 {
		// a racing Start has reserved the id but not spawned yet; running
		// the escalation now would consume the cleanup before there is a
		// process to clean up
		return &StateError{Op: "stop", ServerID: id, Reason: "startup in progress"}
	}
	rec.SetStopRequested()
	before := rec.Status()
	if rec.transition(StatusStopping) {
		metrics.RecordStateTransition(id, before.String(), StatusStopping.String())
		s.notify(rec, StatusStopping)
	}

	// already dead: nothing to escalate
	if s.gone(rec) {
		s.cleanupRecord(rec, StatusStopped, "already exited", true)
		return nil
	}

	if !force {
		if s.tryGracefulStop(rec) && s.waitGone(ctx, rec, s.opts.GracefulTimeout) {
			s.cleanupRecord(rec, StatusStopped, "graceful stop", true)
			return nil
		}
	}

	s.log.Info("terminating server", "server", id, "pid", rec.PID(), "signal", "SIGTERM")
	s.signalRecord(rec, syscall.SIGTERM)
	if s.waitGone(ctx, rec, s.opts.ForceTimeout) {
		s.cleanupRecord(rec, StatusStopped, "terminated", true)
		return nil
	}

	s.log.Warn("server ignored SIGTERM, killing", "server", id, "pid", rec.PID())
	s.signalRecord(rec, syscall.SIGKILL)
	if !s.waitGone(ctx, rec, s.opts.ForceTimeout) {
		// should not happen after SIGKILL; report but still release the slot
		s.log.Error("server survived SIGKILL wait window", "server", id, "pid", rec.PID())
	}
	s.cleanupRecord(rec, StatusStopped, "killed", true)
	return nil
}

// tryGracefulStop issues the console stop command when a command channel
// exists. Detached servers have none, so the escalation proceeds straight
// to signals.
func (s *Supervisor) tryGracefulStop(rec *Record) bool {
	child := rec.stdinWriter()
	if child == nil {
		return false
	}
	if _, err := child.Stdin.Write([]byte(s.opts.StopCommand + "\n")); err != nil {
		s.log.Warn("graceful stop command failed", "server", rec.id, "error", err)
		return false
	}
	s.log.Info("graceful stop requested", "server", rec.id, "command", s.opts.StopCommand)
	return true
}

// gone reports whether the process is already dead: attached records know
// from the reaper, detached ones ask the probe.
func (s *Supervisor) gone(rec *Record) bool {
	if rec.Exited() {
		return true
	}
	if rec.Mode() == ModeDetached {
		return !probe.Alive(rec.PID())
	}
	return false
}

// waitGone waits up to d for the process to disappear.
func (s *Supervisor) waitGone(ctx context.Context, rec *Record, d time.Duration) bool {
	if rec.Mode() == ModeAttached {
		select {
		case <-rec.waitDone:
			return true
		case <-ctx.Done():
			return rec.Exited()
		case <-time.After(d):
			return rec.Exited()
		}
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if !probe.Alive(rec.PID()) {
			rec.markExited(nil)
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
	alive := probe.Alive(rec.PID())
	if !alive {
		rec.markExited(nil)
	}
	return !alive
}

// signalRecord signals the server's process group, falling back to the
// single PID when the group is unreachable.
func (s *Supervisor) signalRecord(rec *Record, sig syscall.Signal) {
	pid := rec.PID()
	if pid <= 0 {
		return
	}
	if err := syscall.Kill(-pid, sig); err != nil {
		_ = syscall.Kill(pid, sig)
	}
}

// cleanupRecord is the single terminal path for a record, converged on by
// Stop, the monitor loops and ShutdownAll. The sync.Once guarantees the
// pidfile is removed once, the registry slot freed once, and the terminal
// status notified at most once no matter how many paths race here.
func (s *Supervisor) cleanupRecord(rec *Record, final Status, reason string, removePidFile bool) {
	rec.cleanup.Do(func() {
		if rec.cancel != nil {
			rec.cancel()
		}
		if removePidFile {
			if err := pidfile.Remove(rec.dir); err != nil {
				s.log.Warn("pidfile removal failed", "server", rec.id, "error", err)
			}
		}
		s.reg.remove(rec.id)
		rec.queue.Close()
		if rec.child != nil {
			rec.child.Close()
		}
		from := rec.Status()
		rec.transition(final)
		s.log.Info("server cleaned up", "server", rec.id, "status", final.String(), "reason", reason)
		metrics.IncStop(rec.id)
		metrics.RecordStateTransition(rec.id, from.String(), final.String())
		metrics.SetRunningServers(s.reg.size())
		s.notify(rec, final)
	})
}

// ShutdownAll ends supervision of everything. With the keep policy the OS
// children and their pidfiles are left untouched (the next startup
// re-attaches them); otherwise every server is stopped concurrently with
// the full escalation and the call returns when all are down.
func (s *Supervisor) ShutdownAll(ctx context.Context) {
	recs := s.reg.list()
	if s.opts.KeepServersOnShutdown {
		for _, rec := range recs {
			s.log.Info("detaching from server, leaving it running", "server", rec.id, "pid", rec.PID())
			if rec.cancel != nil {
				rec.cancel()
			}
			rec.queue.Close()
			// the stdin pipe is deliberately left open: closing it would
			// deliver EOF to the child's console and a well behaved server
			// treats that as a stop request. The pipe dies with this
			// process; the child and its pidfile stay untouched.
			s.reg.remove(rec.id)
		}
		metrics.SetRunningServers(0)
		return
	}
	var wg sync.WaitGroup
	for _, rec := range recs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.Stop(ctx, id, false); err != nil {
				s.log.Warn("shutdown stop failed", "server", id, "error", err)
			}
		}(rec.id)
	}
	wg.Wait()
}
