//go:build !windows

// Package launch spawns server processes detached from the supervisor: each
// child gets its own session (setsid) and writes its console straight to a
// file, so nothing about the child, including its output path, depends on
// the supervisor staying alive.
package launch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// Options describes one spawn.
type Options struct {
	ServerID string
	Command  []string // argv, Command[0] is the executable
	Dir      string   // working directory, set explicitly on the child
	Env      []string // full child environment; nil inherits the supervisor's

	// Interactive keeps a stdin pipe open as the console command channel.
	// When false, stdin comes from /dev/null. Output is never piped: both
	// modes append stdout and stderr directly to ConsolePath, so a child
	// write can never fail because the supervisor went away.
	Interactive bool
	ConsolePath string // output file, required
}

// Child is a successfully spawned server process. Stdin is nil for
// non-interactive spawns.
type Child struct {
	Cmd   *exec.Cmd
	Stdin io.WriteCloser
}

func (c *Child) Pid() int { return c.Cmd.Process.Pid }

// SignalGroup signals the child's whole process group. The child is its
// session and group leader, so -pid reaches it and anything it forked.
func (c *Child) SignalGroup(sig syscall.Signal) error {
	return syscall.Kill(-c.Pid(), sig)
}

// Wait reaps the child. Exactly one goroutine may call it.
func (c *Child) Wait() error { return c.Cmd.Wait() }

// Close releases the stdin pipe held by the supervisor. The child itself is
// not touched; it keeps running in its own session.
func (c *Child) Close() {
	if c.Stdin != nil {
		_ = c.Stdin.Close()
	}
}

// Spawn forks and execs the server without waiting for its lifetime. It
// returns once the child exists; any fork/exec failure (missing binary,
// permissions, resource exhaustion) is returned with the OS error wrapped
// and no process is left behind.
func Spawn(opts Options) (*Child, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("empty command")
	}
	if opts.ConsolePath == "" {
		return nil, errors.New("console path required")
	}
	// #nosec G204 -- the command line is supplied by the trusted caller
	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = opts.Env
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := os.MkdirAll(filepath.Dir(opts.ConsolePath), 0o750); err != nil {
		return nil, err
	}
	out, err := os.OpenFile(opts.ConsolePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open console log: %w", err)
	}
	defer func() { _ = out.Close() }()
	cmd.Stdout = out
	cmd.Stderr = out

	var stdin io.WriteCloser
	if opts.Interactive {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
	} else {
		null, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", os.DevNull, err)
		}
		defer func() { _ = null.Close() }()
		cmd.Stdin = null
	}

	if err := cmd.Start(); err != nil {
		if stdin != nil {
			_ = stdin.Close()
		}
		return nil, fmt.Errorf("spawn %s: %w", cmd.Path, err)
	}
	return &Child{Cmd: cmd, Stdin: stdin}, nil
}
