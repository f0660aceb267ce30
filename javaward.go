// Package javaward supervises long-running Java server processes: it
// launches them detached from its own lifetime, verifies startup, buffers
// their console output, re-attaches to survivors after a restart and drives
// the graceful stop escalation.
package javaward

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/javaward/javaward/internal/config"
	"github.com/javaward/javaward/internal/journal"
	"github.com/javaward/javaward/internal/logbuf"
	"github.com/javaward/javaward/internal/logger"
	"github.com/javaward/javaward/internal/metrics"
	"github.com/javaward/javaward/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type StartSpec = supervisor.StartSpec

type Status = supervisor.Status

type Info = supervisor.Info

type Options = supervisor.Options

type Notifier = supervisor.Notifier

type PreflightFunc = supervisor.PreflightFunc

type LogLine = logbuf.Line

type JournalSink = journal.Sink

const (
	StatusStarting = supervisor.StatusStarting
	StatusRunning  = supervisor.StatusRunning
	StatusStopping = supervisor.StatusStopping
	StatusStopped  = supervisor.StatusStopped
	StatusError    = supervisor.StatusError
)

// ErrUnsupported is returned by SendCommand for servers without a command
// channel (restored after a supervisor restart).
var ErrUnsupported = supervisor.ErrUnsupported

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.

type Supervisor struct{ inner *supervisor.Supervisor }

func New(opts Options) *Supervisor {
	return &Supervisor{inner: supervisor.New(opts)}
}

func (s *Supervisor) Start(ctx context.Context, spec StartSpec, preflight PreflightFunc) error {
	return s.inner.Start(ctx, spec, preflight)
}

func (s *Supervisor) Stop(ctx context.Context, id string, force bool) error {
	return s.inner.Stop(ctx, id, force)
}

func (s *Supervisor) SendCommand(id, text string) error { return s.inner.SendCommand(id, text) }
func (s *Supervisor) Status(id string) Status           { return s.inner.Status(id) }
func (s *Supervisor) Info(id string) *Info              { return s.inner.Info(id) }
func (s *Supervisor) List() []*Info                     { return s.inner.List() }

func (s *Supervisor) TailLogs(id string, maxLines int) []string {
	return s.inner.TailLogs(id, maxLines)
}

func (s *Supervisor) StreamLogs(id string) (<-chan LogLine, func(), error) {
	return s.inner.StreamLogs(id)
}

func (s *Supervisor) DiscoverAndRestore(ctx context.Context, baseDir string) map[string]bool {
	return s.inner.DiscoverAndRestore(ctx, baseDir)
}

func (s *Supervisor) ShutdownAll(ctx context.Context) { s.inner.ShutdownAll(ctx) }

// Config facade

type Config = cfg.Config

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

func DefaultConfig() Config { return cfg.Default() }

// NewLogger builds the structured logger described by c, writing to the
// configured file (with rotation) or stderr.
func NewLogger(c logger.Config) *slog.Logger { return logger.New(c, nil) }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It blocks in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}

// NewJournalFanout adapts status sinks onto the supervisor's Notifier.
func NewJournalFanout(log *slog.Logger, sinks ...JournalSink) *journal.Fanout {
	return journal.NewFanout(log, sinks...)
}
