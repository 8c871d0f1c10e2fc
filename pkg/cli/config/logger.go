package config

import (
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Logger holds logger configuration. Logs go to stderr: stdout would mix
// into the stream git relays to the pusher.
type Logger struct {
	Level  string
	Format string
}

// Flags returns CLI flags for logger configuration
func (c *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &c.Level,
			Sources:     cli.EnvVars("REFPOST_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (auto, console, json)",
			Value:       "auto",
			Destination: &c.Format,
			Sources:     cli.EnvVars("REFPOST_LOG_FORMAT"),
		},
	}
}

// Configure builds the logger: a colored console handler when stderr is a
// terminal, JSON otherwise. Fields tagged masq:"secret" are redacted.
func (c *Logger) Configure() (*slog.Logger, error) {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, goerr.New("unknown log level", goerr.V("level", c.Level))
	}

	var handler slog.Handler
	switch c.Format {
	case "console":
		handler = consoleHandler(os.Stderr, level)
	case "json":
		handler = jsonHandler(os.Stderr, level)
	case "auto":
		if isatty.IsTerminal(os.Stderr.Fd()) {
			handler = consoleHandler(os.Stderr, level)
		} else {
			handler = jsonHandler(os.Stderr, level)
		}
	default:
		return nil, goerr.New("unknown log format", goerr.V("format", c.Format))
	}

	return slog.New(handler), nil
}

func consoleHandler(w io.Writer, level slog.Level) slog.Handler {
	return clog.New(
		clog.WithWriter(w),
		clog.WithLevel(level),
		clog.WithColor(true),
	)
}

func jsonHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: masq.New(masq.WithTag("secret")),
	})
}
