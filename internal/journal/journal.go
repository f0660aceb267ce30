// Package journal persists server status transitions. The supervisor only
// knows the narrow Notifier interface; Fanout adapts it onto any number of
// sinks (sqlite, postgres, clickhouse) and isolates their failures so a
// broken sink can never disturb supervision.
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/javaward/javaward/internal/supervisor"
)

// Entry is one status transition as persisted by sinks.
type Entry struct {
	ServerID   string    `json:"server_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink is a destination for status entries. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Entry) error
	Close() error
}

// Fanout implements supervisor.Notifier over a set of sinks. Send errors
// are logged and swallowed; timeouts bound every write.
type Fanout struct {
	sinks   []Sink
	log     *slog.Logger
	timeout time.Duration
}

func NewFanout(log *slog.Logger, sinks ...Sink) *Fanout {
	if log == nil {
		log = slog.Default()
	}
	return &Fanout{sinks: sinks, log: log, timeout: 5 * time.Second}
}

// OnStatusChange records the transition in every sink.
func (f *Fanout) OnStatusChange(serverID string, status supervisor.Status) {
	if len(f.sinks) == 0 {
		return
	}
	e := Entry{ServerID: serverID, Status: status.String(), OccurredAt: time.Now().UTC()}
	for _, s := range f.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		if err := s.Send(ctx, e); err != nil {
			f.log.Warn("journal sink write failed", "server", serverID, "status", e.Status, "error", err)
		}
		cancel()
	}
}

// Close closes all sinks, returning the first error.
func (f *Fanout) Close() error {
	var first error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
