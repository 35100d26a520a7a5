package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrick/logrotate/rotator"
	"github.com/rs/zerolog"
)

// New returns a stderr logger; stdout is reserved for command output.
// level is one of trace, debug, info, warn or error.
func New(level string, pretty bool) zerolog.Logger {
	return build(level, consoleWriter(pretty))
}

// NewWithWriter logs JSON lines to w without caller information.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// NewWithRotation logs to the console and to a size-rotated file.
// The returned closer flushes and closes the rotator.
func NewWithRotation(level string, pretty bool, file string, maxSizeKB int64, maxRolls int) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("creating log directory: %w", err)
	}
	r, err := rotator.New(file, maxSizeKB, false, maxRolls)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("creating log rotator: %w", err)
	}

	w := zerolog.MultiLevelWriter(consoleWriter(pretty), r)
	return build(level, w), r, nil
}

func consoleWriter(pretty bool) io.Writer {
	if pretty {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}
	return os.Stderr
}

func build(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Caller().
		Logger()
}

// parseLevel falls back to info for unknown or disabled levels.
func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel || lvl == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return lvl
}
