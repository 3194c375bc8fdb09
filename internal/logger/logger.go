package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/klear-journal/internal/config"
)

// Setup configures the global zerolog logger.
// Outside production it writes human readable lines with RFC3339 timestamps;
// DEBUG=true forces debug level regardless of the configured level.
func Setup(cfg config.Logger, production bool) {
	zlog.Logger = New(os.Stdout, cfg, production)

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if os.Getenv("DEBUG") == "true" {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

// New builds a logger writing to out.
func New(out io.Writer, cfg config.Logger, production bool) zerolog.Logger {
	if !production && cfg.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
