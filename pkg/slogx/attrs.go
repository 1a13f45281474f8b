package slogx

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const (
	// KeyLoggerName is the attribute key naming the component that logs.
	KeyLoggerName = "logger"
	// KeySession is the attribute key for a conversation session id.
	KeySession = "session"
)

// Error returns a slog.Attr with the key "error" and the error's message as value.
// A nil error yields an empty string rather than a panic.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Stringer creates a slog.Attr with the provided key and the string representation
// of the given fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName returns an attribute for the logger name.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Session returns an attribute carrying a session id.
func Session(id uuid.UUID) slog.Attr {
	return slog.String(KeySession, id.String())
}
