// Package logging provides the zerolog-backed logger shared by the agent,
// its provider adapters and its tools.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LevelEnv selects the default log level when none is given explicitly.
const LevelEnv = "CURSOR_AGENT_LOG_LEVEL"

// Logger wraps zerolog to provide component-scoped child loggers.
type Logger struct {
	zl zerolog.Logger
}

// New creates a root logger writing to w at the given level.
// A nil writer means colored console output on stderr. An empty level falls
// back to $CURSOR_AGENT_LOG_LEVEL and then to "info".
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	if strings.TrimSpace(level) == "" {
		level = os.Getenv(LevelEnv)
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	zl = zl.Level(ParseLevel(level))
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Sub returns a child logger tagged with a component name.
func (l *Logger) Sub(component string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// With returns a child logger carrying an extra string field.
func (l *Logger) With(key, value string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// The event methods are safe on a nil *Logger; they return a nil event,
// which zerolog treats as disabled.

func (l *Logger) Debug() *zerolog.Event { return l.z().Debug() }

func (l *Logger) Info() *zerolog.Event { return l.z().Info() }

func (l *Logger) Warn() *zerolog.Event { return l.z().Warn() }

func (l *Logger) Error() *zerolog.Event { return l.z().Error() }

// Zerolog returns the underlying zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger { return *l.z() }

var nop = zerolog.Nop()

func (l *Logger) z() *zerolog.Logger {
	if l == nil {
		return &nop
	}
	return &l.zl
}

// ParseLevel maps a level name onto zerolog. Unknown names mean info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal", "critical":
		return zerolog.FatalLevel
	case "silent", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
