package config

import (
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

// Logger holds CLI flags for log output configuration
type Logger struct {
	level  string
	format string
	output string
}

// Flags returns CLI flags for logger configuration
func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("TALARIA_LOG_LEVEL"),
			Destination: &x.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console or json)",
			Category:    "Logging",
			Value:       "console",
			Sources:     cli.EnvVars("TALARIA_LOG_FORMAT"),
			Destination: &x.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log output (stdout, stderr or a file path)",
			Category:    "Logging",
			Value:       "stdout",
			Sources:     cli.EnvVars("TALARIA_LOG_OUTPUT"),
			Destination: &x.output,
		},
	}
}

func (x Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", x.level),
		slog.String("format", x.format),
		slog.String("output", x.output),
	)
}

// Configure builds the process-wide logger from the flags and installs it
// via logging.SetDefault. The returned closer releases the output when it
// is a file.
func (x *Logger) Configure() (func(), error) {
	level, err := x.logLevel()
	if err != nil {
		return nil, err
	}

	format, err := x.logFormat()
	if err != nil {
		return nil, err
	}

	w, closer, err := x.logOutput()
	if err != nil {
		return nil, err
	}

	logging.SetDefault(logging.New(w, level, format))

	return closer, nil
}

func (x *Logger) logLevel() (slog.Level, error) {
	switch x.level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, goerr.Wrap(ErrInvalidLogLevel, "unsupported log level",
			goerr.V("level", x.level))
	}
}

func (x *Logger) logFormat() (logging.Format, error) {
	switch x.format {
	case "console", "":
		return logging.FormatConsole, nil
	case "json":
		return logging.FormatJSON, nil
	default:
		return "", goerr.Wrap(ErrInvalidLogFormat, "unsupported log format",
			goerr.V("format", x.format))
	}
}

func (x *Logger) logOutput() (io.Writer, func(), error) {
	switch x.output {
	case "stdout", "-", "":
		return os.Stdout, func() {}, nil
	case "stderr":
		return os.Stderr, func() {}, nil
	default:
		// #nosec G304 - path is expected to be provided by CLI argument
		f, err := os.OpenFile(x.output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to open log output file",
				goerr.V("path", x.output))
		}
		closer := func() {
			if err := f.Close(); err != nil {
				logging.Default().Error("failed to close log output file", "error", err.Error())
			}
		}
		return f, closer, nil
	}
}
