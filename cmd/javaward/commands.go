package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/javaward/javaward"
	"github.com/javaward/javaward/internal/journal"
	"github.com/javaward/javaward/internal/journal/clickhouse"
	"github.com/javaward/javaward/internal/journal/postgres"
	"github.com/javaward/javaward/internal/journal/sqlite"
	"github.com/javaward/javaward/internal/pidfile"
	"github.com/javaward/javaward/internal/probe"
)

// createServeCommand runs the supervisor daemon: restore previously
// launched servers, expose metrics when enabled, and keep supervising
// until SIGINT/SIGTERM.
func createServeCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the supervisor daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := javaward.LoadConfig(flags.ConfigPath)
			if err != nil {
				return err
			}
			log := javaward.NewLogger(cfg.Log)

			sinks, err := buildJournalSinks(cfg)
			if err != nil {
				return err
			}
			fanout := javaward.NewJournalFanout(log, sinks...)
			defer func() {
				if err := fanout.Close(); err != nil {
					log.Warn("journal close failed", "error", err)
				}
			}()

			opts := cfg.SupervisorOptions()
			opts.Logger = log
			opts.Notifier = fanout
			sup := javaward.New(opts)

			if cfg.Metrics.Enabled {
				if err := javaward.RegisterMetricsDefault(); err != nil {
					return fmt.Errorf("register metrics: %w", err)
				}
				go func() {
					log.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
					if err := javaward.ServeMetrics(cfg.Metrics.Addr); err != nil {
						log.Error("metrics server failed", "error", err)
					}
				}()
			}

			ctx := cmd.Context()
			restored := sup.DiscoverAndRestore(ctx, cfg.BaseDir)
			for id, ok := range restored {
				if ok {
					log.Info("restored server", "server", id)
				}
			}

			log.Info("javaward serving", "base_dir", cfg.BaseDir,
				"keep_servers_on_shutdown", cfg.KeepServersOnShutdown)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			select {
			case s := <-sig:
				log.Info("shutting down", "signal", s.String())
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			sup.ShutdownAll(shutdownCtx)
			return nil
		},
	}
}

func buildJournalSinks(cfg *javaward.Config) ([]journal.Sink, error) {
	var sinks []journal.Sink
	if cfg.Journal.SQLitePath != "" {
		s, err := sqlite.New(cfg.Journal.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite journal: %w", err)
		}
		sinks = append(sinks, s)
	}
	if cfg.Journal.PostgresDSN != "" {
		s, err := postgres.New(cfg.Journal.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres journal: %w", err)
		}
		sinks = append(sinks, s)
	}
	if cfg.Journal.ClickHouse != "" {
		s, err := clickhouse.New(cfg.Journal.ClickHouse, cfg.Journal.ClickHouseTbl)
		if err != nil {
			return nil, fmt.Errorf("clickhouse journal: %w", err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// createStatusCommand scans the base directory's pidfiles without a running
// daemon and reports which servers are still alive.
func createStatusCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Inspect pidfiles under the base directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := javaward.LoadConfig(flags.ConfigPath)
			if err != nil {
				return err
			}
			entries, err := os.ReadDir(cfg.BaseDir)
			if err != nil {
				return fmt.Errorf("scan %s: %w", cfg.BaseDir, err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "SERVER\tPID\tPORT\tALIVE\tSTARTED")
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				pf := pidfile.Read(filepath.Join(cfg.BaseDir, e.Name()))
				if pf == nil {
					continue
				}
				alive := probe.Alive(pf.PID) && probe.Matches(pf.PID, pf.Command)
				_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%s\n",
					pf.ServerID, pf.PID, pf.Port, alive,
					pf.StartedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}
