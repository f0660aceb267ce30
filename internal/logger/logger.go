package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the supervisor log file.
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// ConsoleLogName is the file inside a server's log directory that receives
// the child's stdout/stderr. Detached re-attach polls this same file.
const ConsoleLogName = "javaward.log"

// Config controls the supervisor's own structured logging. When File is
// set the log goes to that path through a rotating writer instead of
// stderr.
type Config struct {
	Level      string `json:"level" mapstructure:"level"` // debug|info|warn|error
	Color      bool   `json:"color" mapstructure:"color"` // ANSI colored level tags
	File       string `json:"file" mapstructure:"file"`   // empty means stderr
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

func (c Config) slogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the supervisor logger writing to w. A nil w selects the
// configured file (rotated by lumberjack) or stderr when no file is set.
func New(c Config, w io.Writer) *slog.Logger {
	if w == nil {
		if c.File != "" {
			w = &lj.Logger{
				Filename:   c.File,
				MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
				MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
				MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
				Compress:   c.Compress,
			}
		} else {
			w = os.Stderr
		}
	}
	opts := &slog.HandlerOptions{Level: c.slogLevel()}
	if c.Color {
		return slog.New(NewColorTextHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ConsolePath returns the console log path for a server working directory.
func ConsolePath(serverDir string) string {
	return filepath.Join(serverDir, "logs", ConsoleLogName)
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
