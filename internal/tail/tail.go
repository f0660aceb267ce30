// Package tail turns a server's console file into timestamped lines in a
// bounded queue. The child writes the file directly, so polling it is the
// one output path that works for freshly spawned and re-attached servers
// alike and never ties the child's writes to the supervisor's lifetime.
package tail

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/javaward/javaward/internal/logbuf"
)

// DefaultFileInterval is the console poll interval.
const DefaultFileInterval = time.Second

// Marker is the readiness pattern: a console line containing both
// substrings means the server finished initializing. An empty First
// disables marker scanning.
type Marker struct {
	First  string `json:"first" mapstructure:"first"`
	Second string `json:"second" mapstructure:"second"`
}

func (m Marker) hits(line string) bool {
	if m.First == "" {
		return false
	}
	if !strings.Contains(line, m.First) {
		return false
	}
	return m.Second == "" || strings.Contains(line, m.Second)
}

// Tailer feeds one queue from one console file.
type Tailer struct {
	Queue  *logbuf.Queue
	Marker Marker
	// OnReady fires at most once, on the first marker hit.
	OnReady func()
	Log     *slog.Logger

	readyOnce sync.Once
}

func (t *Tailer) logger() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

func (t *Tailer) emit(line string) {
	t.Queue.Push(line)
	if t.OnReady != nil && t.Marker.hits(line) {
		t.readyOnce.Do(t.OnReady)
	}
}

// RunFile polls path for bytes appended past offset every interval until ctx
// is done. Callers choose the starting point: a fresh launch passes the file
// size captured before the spawn so the whole run is seen, a re-attach
// passes the current size so history from earlier runs is skipped. A
// shrinking file (rotation, truncation) resets the offset. Read failures are
// logged and retried on the next tick rather than terminating supervision.
func (t *Tailer) RunFile(ctx context.Context, path string, interval time.Duration, offset int64) {
	if interval <= 0 {
		interval = DefaultFileInterval
	}
	if offset < 0 {
		offset = 0
	}
	var partial []byte
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		offset, partial = t.pollFileOnce(path, offset, partial)
	}
}

func (t *Tailer) pollFileOnce(path string, offset int64, partial []byte) (int64, []byte) {
	fi, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger().Warn("console file stat failed", "path", path, "error", err)
		}
		return offset, partial
	}
	if fi.Size() < offset {
		// truncated or rotated under us
		offset = 0
		partial = nil
	}
	if fi.Size() == offset {
		return offset, partial
	}
	f, err := os.Open(path)
	if err != nil {
		t.logger().Warn("console file open failed", "path", path, "error", err)
		return offset, partial
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		t.logger().Warn("console file seek failed", "path", path, "error", err)
		return offset, partial
	}
	buf, err := io.ReadAll(f)
	if err != nil {
		t.logger().Warn("console file read failed", "path", path, "error", err)
		return offset, partial
	}
	offset += int64(len(buf))

	data := append(partial, buf...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(data[:i]), "\r")
		t.emit(line)
		data = data[i+1:]
	}
	return offset, append([]byte(nil), data...)
}
