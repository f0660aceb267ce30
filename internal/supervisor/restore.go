package supervisor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/javaward/javaward/internal/logger"
	"github.com/javaward/javaward/internal/metrics"
	"github.com/javaward/javaward/internal/pidfile"
	"github.com/javaward/javaward/internal/probe"
)

// DiscoverAndRestore walks the per-server subdirectories of baseDir and
// re-attaches supervision to every process whose pidfile still points at
// the originally launched server. Stale pidfiles (dead PID, recycled PID
// with a different command line, wrong start time) are deleted. The result
// maps each discovered server id to whether it was restored. Disabled
// entirely (empty map) unless AutoSyncOnStartup is set.
func (s *Supervisor) DiscoverAndRestore(ctx context.Context, baseDir string) map[string]bool {
	result := make(map[string]bool)
	if !s.opts.AutoSyncOnStartup {
		s.log.Debug("startup sync disabled; skipping pidfile scan")
		return result
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		s.log.Warn("cannot scan base directory", "dir", baseDir, "error", err)
		return result
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(baseDir, e.Name())
		pf := pidfile.Read(dir)
		if pf == nil {
			continue
		}
		result[pf.ServerID] = s.restoreOne(pf, dir)
	}
	return result
}

// restoreOne re-attaches a single pidfile, or discards it as stale.
func (s *Supervisor) restoreOne(pf *pidfile.File, dir string) bool {
	if !probe.Alive(pf.PID) ||
		!probe.Matches(pf.PID, pf.Command) ||
		!probe.MatchesStartTime(pf.PID, pf.StartUnix) {
		s.log.Info("discarding stale pidfile", "server", pf.ServerID, "pid", pf.PID, "dir", dir)
		if err := pidfile.Remove(dir); err != nil {
			s.log.Warn("stale pidfile removal failed", "server", pf.ServerID, "error", err)
		}
		return false
	}

	rec := newDetachedRecord(pf, dir, logger.ConsolePath(dir), s.opts.QueueCapacity)
	// console history belongs to the run before the supervisor restart
	rec.consoleOffset = consoleSize(rec.consolePath)
	if !s.reg.put(rec) {
		s.log.Warn("server already registered; skipping restore", "server", pf.ServerID)
		return false
	}
	s.startTasks(rec)
	s.log.Info("re-attached running server", "server", pf.ServerID, "pid", pf.PID, "dir", dir)
	metrics.IncRestore(pf.ServerID)
	metrics.SetRunningServers(s.reg.size())
	s.notify(rec, StatusRunning)
	return true
}
