package logger

import (
	"io"
	"os"
	"time"

	"codeberg.org/mutker/poolctl/errors"
	"github.com/rs/zerolog"
)

// Logger is the logging surface handed to library components.
// It is satisfied by zerolog.Logger.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

func (l LogLevel) String() string {
	return string(l)
}

func (l LogLevel) zerologLevel() zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelWarning:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

// New creates a console logger at the given level, writing to stdout.
func New(level LogLevel) (Logger, error) {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a console logger writing to the given writer.
func NewWithWriter(level LogLevel, w io.Writer) (Logger, error) {
	errFactory := errors.New()

	if !level.IsValid() {
		return nil, errFactory.WithData(errors.ErrInvalidLogLevel, level.String())
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	log := zerolog.New(output).Level(level.zerologLevel()).With().Timestamp().Logger()

	return &log, nil
}

// Nop returns a logger that discards all events. Components use it
// when no logger is injected.
func Nop() Logger {
	log := zerolog.Nop()
	return &log
}
