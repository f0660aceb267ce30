package journal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/javaward/javaward/internal/supervisor"
)

type memSink struct {
	mu      sync.Mutex
	entries []Entry
	sendErr error
	closed  bool
}

func (m *memSink) Send(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestFanoutDeliversToAllSinks(t *testing.T) {
	a := &memSink{}
	b := &memSink{}
	f := NewFanout(nil, a, b)

	f.OnStatusChange("lobby", supervisor.StatusStarting)
	f.OnStatusChange("lobby", supervisor.StatusRunning)

	if a.count() != 2 || b.count() != 2 {
		t.Fatalf("expected 2 entries per sink, got %d and %d", a.count(), b.count())
	}
	a.mu.Lock()
	first := a.entries[0]
	a.mu.Unlock()
	if first.ServerID != "lobby" || first.Status != "starting" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.OccurredAt.IsZero() {
		t.Fatalf("entry missing timestamp")
	}
}

func TestFanoutFailingSinkDoesNotBlockOthers(t *testing.T) {
	bad := &memSink{sendErr: errors.New("db down")}
	good := &memSink{}
	f := NewFanout(nil, bad, good)

	f.OnStatusChange("survival", supervisor.StatusStopped)

	if good.count() != 1 {
		t.Fatalf("healthy sink should still receive entries, got %d", good.count())
	}
}

func TestFanoutCloseClosesAllSinks(t *testing.T) {
	a := &memSink{}
	b := &memSink{}
	f := NewFanout(nil, a, b)
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatalf("expected all sinks closed")
	}
}

func TestFanoutNoSinksIsNoop(t *testing.T) {
	f := NewFanout(nil)
	f.OnStatusChange("x", supervisor.StatusRunning)
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
