package supervisor

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned when a command is sent to a server whose
// record has no command channel (detached/restored processes). RCON
// delivery for those lives outside this core.
var ErrUnsupported = errors.New("no command channel for detached server")

// ValidationError means the preflight check (or basic argument validation)
// rejected the start request. No process was created.
type ValidationError struct {
	ServerID string
	Reason   string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("server %s: validation failed: %s", e.ServerID, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// LaunchError wraps an OS-level spawn failure. No record was registered.
type LaunchError struct {
	ServerID string
	Err      error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("server %s: launch failed: %v", e.ServerID, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// VerificationError means the process died inside its stability window.
// The record existed briefly and has already been cleaned up.
type VerificationError struct {
	ServerID string
	Err      error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server %s: exited during startup: %v", e.ServerID, e.Err)
	}
	return fmt.Sprintf("server %s: exited during startup", e.ServerID)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// StateError means the operation is invalid for the server's current state
// (double start, stop of an unknown server). Returned, never fatal.
type StateError struct {
	Op       string
	ServerID string
	Reason   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s server %s: %s", e.Op, e.ServerID, e.Reason)
}
