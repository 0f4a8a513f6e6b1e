// Package log provides the process-wide key/value logger.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	root zerolog.Logger
)

func init() {
	root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(zerolog.InfoLevel)
}

// Logger is the concrete logger type handed out by New.
type Logger = zerolog.Logger

// Root returns a copy of the root logger. SetOutput and SetLevel only
// affect loggers obtained afterwards.
func Root() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// New returns a new logger with the given context attached.
// Context is given as alternating key/value pairs.
func New(ctx ...interface{}) Logger {
	return Root().With().Fields(fields(ctx)).Logger()
}

// SetOutput redirects the root logger to the given writer. Safe to call
// while other goroutines are logging.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root = root.Output(w)
}

// SetLevel adjusts the root logger's verbosity. Accepted values are
// zerolog's level strings: trace, debug, info, warn, error.
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	mu.Lock()
	defer mu.Unlock()
	root = root.Level(parsed)
	return nil
}

// Output emits a message at a caller-chosen level, for call sites whose
// severity is only known at runtime. The level takes the same strings
// as SetLevel.
func Output(msg string, level string, ctx ...interface{}) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l := Root()
	l.WithLevel(parsed).Fields(fields(ctx)).Msg(msg)
	return nil
}

// Trace is a convenient alias for Root().Trace
func Trace(msg string, ctx ...interface{}) {
	l := Root()
	l.Trace().Fields(fields(ctx)).Msg(msg)
}

// Debug is a convenient alias for Root().Debug
func Debug(msg string, ctx ...interface{}) {
	l := Root()
	l.Debug().Fields(fields(ctx)).Msg(msg)
}

// Info is a convenient alias for Root().Info
func Info(msg string, ctx ...interface{}) {
	l := Root()
	l.Info().Fields(fields(ctx)).Msg(msg)
}

// Warn is a convenient alias for Root().Warn
func Warn(msg string, ctx ...interface{}) {
	l := Root()
	l.Warn().Fields(fields(ctx)).Msg(msg)
}

// Error is a convenient alias for Root().Error
func Error(msg string, ctx ...interface{}) {
	l := Root()
	l.Error().Fields(fields(ctx)).Msg(msg)
}

// Crit logs a critical message and exits the process.
func Crit(msg string, ctx ...interface{}) {
	l := Root()
	l.Fatal().Fields(fields(ctx)).Msg(msg)
}

// fields converts alternating key/value pairs into a field map. A
// trailing key without a value is recorded under itself.
func fields(ctx []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			key = fmt.Sprint(ctx[i])
		}
		out[key] = ctx[i+1]
	}
	if len(ctx)%2 != 0 {
		out[fmt.Sprint(ctx[len(ctx)-1])] = "<missing>"
	}
	return out
}
