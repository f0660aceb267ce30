// Package pidfile persists the link between a logical server id and the OS
// process running it, so supervision can be re-attached after a supervisor
// restart. One JSON file per server, stored beside the server's working
// directory.
package pidfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// APIVersion tags the on-disk schema. Files written by a different version
// are discarded on read, same as malformed JSON.
const APIVersion = 1

// FileName is the pidfile name inside a server's working directory.
const FileName = "javaward.pid"

// File is the durable process descriptor. ServerID, PID, Port, StartedAt,
// Command and APIVersion are required; a file missing any of them is
// untrustworthy and treated as absent.
type File struct {
	ServerID   string    `json:"server_id"`
	PID        int       `json:"pid"`
	Port       int       `json:"port"`
	StartedAt  time.Time `json:"started_at"`
	Command    []string  `json:"command"`
	APIVersion int       `json:"api_version"`

	// Optional launch metadata, passed through untouched.
	RconPort     int    `json:"rcon_port,omitempty"`
	RconPassword string `json:"rcon_password,omitempty"`

	// Process start time in Unix seconds, used by the liveness probe to
	// reject reused PIDs. Optional for files written by older builds.
	StartUnix int64 `json:"start_unix,omitempty"`
}

func (f File) valid() bool {
	return f.ServerID != "" &&
		f.PID > 0 &&
		f.Port > 0 &&
		!f.StartedAt.IsZero() &&
		len(f.Command) > 0 &&
		f.APIVersion == APIVersion
}

// Path returns the pidfile location for a server working directory.
func Path(dir string) string { return filepath.Join(dir, FileName) }

// Write stores f in dir atomically: the document is written to a temp file
// in the same directory and renamed into place, so a concurrent reader
// (the restore scanner) never observes a torn file.
func Write(dir string, f File) error {
	f.APIVersion = APIVersion
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, Path(dir)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Read loads the pidfile from dir. A missing file, unreadable file, bad
// JSON, wrong api_version or any missing required field all yield nil:
// there is no trustworthy record, and none of those cases is an error.
func Read(dir string) *File {
	b, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	if !f.valid() {
		return nil
	}
	return &f
}

// Remove deletes the pidfile. Removing an already-absent file is not an
// error.
func Remove(dir string) error {
	err := os.Remove(Path(dir))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
