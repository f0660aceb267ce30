package pidfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func sample() File {
	return File{
		ServerID:   "srv-7",
		PID:        4242,
		Port:       25565,
		StartedAt:  time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Command:    []string{"java", "-Xmx2G", "-jar", "server.jar", "nogui"},
		APIVersion: APIVersion,
		RconPort:   25575,
		StartUnix:  1780000000,
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sample()
	if err := Write(dir, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := Read(dir)
	if got == nil {
		t.Fatalf("Read returned nil for a freshly written file")
	}
	if got.PID != want.PID || got.Port != want.Port || got.ServerID != want.ServerID {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !reflect.DeepEqual(got.Command, want.Command) {
		t.Fatalf("command mismatch: %v vs %v", got.Command, want.Command)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("started_at mismatch: %v vs %v", got.StartedAt, want.StartedAt)
	}
	if got.RconPort != want.RconPort || got.StartUnix != want.StartUnix {
		t.Fatalf("optional fields lost: %+v", got)
	}
}

func TestReadMissingFile(t *testing.T) {
	if f := Read(t.TempDir()); f != nil {
		t.Fatalf("expected nil for missing file, got %+v", f)
	}
}

func TestReadCorruptJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := Read(dir); f != nil {
		t.Fatalf("corrupt JSON must read as nil, got %+v", f)
	}
}

func TestReadMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	f := sample()
	f.Port = 0
	b, _ := json.Marshal(f)
	if err := os.WriteFile(Path(dir), b, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := Read(dir); got != nil {
		t.Fatalf("file without port must be discarded, got %+v", got)
	}
}

func TestReadWrongAPIVersion(t *testing.T) {
	dir := t.TempDir()
	f := sample()
	f.APIVersion = APIVersion + 1
	b, _ := json.Marshal(f)
	if err := os.WriteFile(Path(dir), b, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := Read(dir); got != nil {
		t.Fatalf("foreign api_version must be discarded, got %+v", got)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, sample()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Remove(dir); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	if err := Remove(dir); err != nil {
		t.Fatalf("second Remove must be a no-op, got %v", err)
	}
	if _, err := os.Stat(Path(dir)); !os.IsNotExist(err) {
		t.Fatalf("pidfile still present after Remove")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, sample()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(ents) != 1 || ents[0].Name() != FileName {
		names := make([]string, 0, len(ents))
		for _, e := range ents {
			names = append(names, filepath.Base(e.Name()))
		}
		t.Fatalf("unexpected directory contents: %v", names)
	}
}
