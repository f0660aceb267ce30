//go:build !windows

package probe

import (
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestAliveSelf(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Fatalf("own PID must be alive")
	}
}

func TestAliveInvalidPIDs(t *testing.T) {
	if Alive(0) || Alive(-1) {
		t.Fatalf("non-positive PIDs are never alive")
	}
}

func TestAliveExitedChild(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run true: %v", err)
	}
	// fully reaped, PID may be reused but almost certainly is not yet
	pid := cmd.Process.Pid
	// allow a few ticks in case the slot is racing
	deadline := time.Now().Add(time.Second)
	for Alive(pid) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if Alive(pid) {
		t.Skipf("PID %d reused immediately; cannot assert", pid)
	}
}

func TestMatchesLiveCommand(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}()

	if !Matches(cmd.Process.Pid, []string{"sleep", "30"}) {
		t.Fatalf("expected command line to match the sleep child")
	}
	if Matches(cmd.Process.Pid, []string{"definitely-not-running", "arg"}) {
		t.Fatalf("unrelated command must not match")
	}
	// no recorded command carries no information
	if !Matches(cmd.Process.Pid, nil) {
		t.Fatalf("empty expected command should pass")
	}
}

func TestStartTimeUnixPlausible(t *testing.T) {
	st := StartTimeUnix(os.Getpid())
	if st == 0 {
		t.Skip("start time unavailable on this platform")
	}
	now := time.Now().Unix()
	if st > now+2 || st < now-3600*24*365 {
		t.Fatalf("implausible start time %d (now %d)", st, now)
	}
	if !MatchesStartTime(os.Getpid(), st) {
		t.Fatalf("own start time must match itself")
	}
	if MatchesStartTime(os.Getpid(), st-3600) {
		t.Fatalf("an hour-off start time must not match")
	}
}
