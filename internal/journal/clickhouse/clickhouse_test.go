package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/javaward/javaward/internal/journal"
)

func TestNewRejectsEmptyAddr(t *testing.T) {
	if _, err := New("", "server_status"); err == nil {
		t.Error("Expected error with empty address, got nil")
	}
}

func TestClickHouseSink_ConnectionError(t *testing.T) {
	if _, err := New("invalid-host:9000", "server_status"); err == nil {
		t.Error("Expected error with invalid connection, got nil")
	}
}

// setupClickHouseContainer starts a ClickHouse container for testing
func setupClickHouseContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	chContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start ClickHouse container: %v", err)
	}

	host, err := chContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := chContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}

	return chContainer, host + ":" + port.Port()
}

func setupSinkWithTable(ctx context.Context, t *testing.T, addr, table string) *Sink {
	t.Helper()

	sink, err := New(addr, table)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}

	err = sink.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+table+` (
			occurred_at DateTime64(6),
			server_id String,
			status String
		) ENGINE = MergeTree()
		ORDER BY (occurred_at, server_id)
	`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return sink
}

func TestClickHouseSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	chContainer, addr := setupClickHouseContainer(ctx, t)
	defer func() {
		if err := chContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate ClickHouse container: %v", err)
		}
	}()

	sink := setupSinkWithTable(ctx, t, addr, "server_status")
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	entries := []journal.Entry{
		{ServerID: "survival", Status: "starting", OccurredAt: time.Now().UTC()},
		{ServerID: "survival", Status: "running", OccurredAt: time.Now().UTC()},
	}
	for _, e := range entries {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Failed to send entry: %v", err)
		}
	}

	time.Sleep(100 * time.Millisecond)

	row := sink.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM server_status WHERE server_id = ?", "survival")
	var count uint64
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to query count: %v", err)
	}
	if count != uint64(len(entries)) {
		t.Errorf("Expected %d entries, got %d", len(entries), count)
	}
}
