package javaward

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"
)

func requireUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func testOptions() Options {
	return Options{
		AttachStdio:     true,
		StabilityWindow: 200 * time.Millisecond,
		GracefulTimeout: 2 * time.Second,
		ForceTimeout:    2 * time.Second,
		LogPollInterval: 50 * time.Millisecond,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestFacadeStartStatusStop(t *testing.T) {
	requireUnix(t)
	s := New(testOptions())
	ctx := context.Background()

	spec := StartSpec{
		ServerID: "facade",
		Command:  []string{"/bin/sh", "-c", "read x; exit 0"},
		Dir:      t.TempDir(),
		Port:     25565,
	}
	if err := s.Start(ctx, spec, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := s.Status("facade"); got != StatusRunning {
		t.Fatalf("status = %v, want running", got)
	}
	info := s.Info("facade")
	if info == nil || info.PID <= 0 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if err := s.Stop(ctx, "facade", false); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := s.Status("facade"); got != StatusStopped {
		t.Fatalf("status after stop = %v, want stopped", got)
	}
}

func TestFacadeConsoleAndLogs(t *testing.T) {
	requireUnix(t)
	s := New(testOptions())
	ctx := context.Background()

	spec := StartSpec{
		ServerID: "console",
		Command:  []string{"/bin/cat"},
		Dir:      t.TempDir(),
		Port:     25565,
	}
	if err := s.Start(ctx, spec, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = s.Stop(ctx, "console", true) }()

	ch, cancel, err := s.StreamLogs("console")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer cancel()

	if err := s.SendCommand("console", "list"); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case line := <-ch:
		if line.Text != "list" {
			t.Fatalf("streamed %q, want list", line.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no console line observed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		tailed := s.TailLogs("console", 10)
		if len(tailed) > 0 && tailed[len(tailed)-1] == "list" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("tail never showed the echoed command: %v", tailed)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestFacadeErrors(t *testing.T) {
	requireUnix(t)
	s := New(testOptions())
	ctx := context.Background()

	if err := s.Start(ctx, StartSpec{}, nil); err == nil {
		t.Fatalf("empty spec should fail validation")
	}
	if err := s.Stop(ctx, "nobody", false); err == nil {
		t.Fatalf("stopping an unknown server should fail")
	}
	if got := s.Status("nobody"); got != StatusStopped {
		t.Fatalf("unknown status = %v, want stopped", got)
	}
	if !errors.Is(ErrUnsupported, ErrUnsupported) {
		t.Fatalf("sentinel identity broken")
	}
}

func TestConfigHelpers(t *testing.T) {
	c := DefaultConfig()
	if c.BaseDir == "" || c.StopCommand == "" {
		t.Fatalf("defaults incomplete: %+v", c)
	}
	loaded, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	opts := loaded.SupervisorOptions()
	if opts.GracefulTimeout != c.GracefulTimeout {
		t.Fatalf("options mapping lost the graceful timeout")
	}
	if log := NewLogger(loaded.Log); log == nil {
		t.Fatalf("logger construction failed")
	}
}

func TestMetricsFacade(t *testing.T) {
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("register metrics: %v", err)
	}
	// second registration is tolerated
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("re-register metrics: %v", err)
	}
}
