package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/javaward/javaward/internal/journal"
)

const DefaultTable = "server_status"

// Sink sends status transitions to ClickHouse using the official Go client.
type Sink struct {
	conn  driver.Conn
	table string
}

// New connects to ClickHouse at addr (host:port) and writes into table.
// The table must exist; ClickHouse deployments manage their own schemas.
func New(addr, table string) (*Sink, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("empty ClickHouse address")
	}
	if table == "" {
		table = DefaultTable
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Sink{conn: conn, table: table}, nil
}

func (s *Sink) Send(ctx context.Context, e journal.Entry) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (occurred_at, server_id, status) VALUES (?, ?, ?)`, s.table)
	if err := s.conn.Exec(ctx, query, e.OccurredAt, e.ServerID, e.Status); err != nil {
		return fmt.Errorf("failed to insert entry into ClickHouse: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
