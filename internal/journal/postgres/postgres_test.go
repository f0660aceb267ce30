package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/javaward/javaward/internal/journal"
)

func TestNewRejectsEmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestPostgresSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	sink, err := New(connStr)
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	entries := []journal.Entry{
		{ServerID: "lobby", Status: "starting", OccurredAt: time.Now().UTC()},
		{ServerID: "lobby", Status: "running", OccurredAt: time.Now().UTC()},
		{ServerID: "lobby", Status: "stopped", OccurredAt: time.Now().UTC()},
	}
	for _, e := range entries {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Failed to send entry: %v", err)
		}
	}

	var count int
	row := sink.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM server_status WHERE server_id=$1`, "lobby")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if count != len(entries) {
		t.Fatalf("expected %d rows, got %d", len(entries), count)
	}
}
