package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/javaward/javaward/internal/journal"
)

// Sink implements journal.Sink on SQLite (modernc.org/sqlite driver,
// CGO-free). Path is a filesystem location; use ":memory:" for tests.
type Sink struct {
	db *sql.DB
}

func New(path string) (*Sink, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	s := &Sink{db: d}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS server_status(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			server_id TEXT NOT NULL,
			status TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_server_status_server ON server_status(server_id);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) Send(ctx context.Context, e journal.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_status(server_id, status, occurred_at)
		VALUES(?, ?, ?);`,
		e.ServerID, e.Status, e.OccurredAt.UTC())
	return err
}

func (s *Sink) Close() error { return s.db.Close() }
