//go:build !windows

// Package probe answers one question cheaply and repeatedly: does this PID
// still refer to the server process we launched? It combines signal-0
// existence checks, /proc zombie detection and command-line matching so a
// PID recycled by the OS is never mistaken for a live server.
package probe

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Alive reports whether pid exists and is not a zombie. EPERM counts as
// alive: the process exists, we just may not own it. No handles are held
// open, so it is safe to call on every poll tick.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if runtime.GOOS == "linux" && isZombieLinux(pid) {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Matches reports whether the live process at pid looks like the one that
// was launched with command. The check is deliberately loose: the kernel
// may report a resolved binary path while the pidfile recorded a bare
// executable name, so we require the recorded executable to appear in the
// live command line. An unreadable command line is treated as a mismatch;
// for restore this errs on the safe side.
func Matches(pid int, command []string) bool {
	if len(command) == 0 {
		return true
	}
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	args, err := p.CmdlineSlice()
	if err != nil || len(args) == 0 {
		return false
	}
	live := strings.Join(args, " ")
	return strings.Contains(live, filepath.Base(command[0]))
}

// MatchesStartTime compares the live process start time against the one
// recorded at launch. startUnix == 0 means no recorded time, which passes.
// A one second tolerance absorbs clock-tick rounding.
func MatchesStartTime(pid int, startUnix int64) bool {
	if startUnix <= 0 {
		return true
	}
	cur := StartTimeUnix(pid)
	if cur <= 0 {
		return true // cannot tell; fall back to the command-line check
	}
	d := cur - startUnix
	return d >= -1 && d <= 1
}

// isZombieLinux returns true if /proc/<pid>/status reports state Z.
func isZombieLinux(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}
