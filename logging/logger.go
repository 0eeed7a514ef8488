// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// HandlerType represents the type of logging handler.
type HandlerType string

const (
	// JSONHandler outputs structured JSON logs.
	JSONHandler HandlerType = "json"
	// TextHandler outputs key=value text logs.
	TextHandler HandlerType = "text"
	// ConsoleHandler outputs human-readable colored logs.
	ConsoleHandler HandlerType = "console"
)

// Level represents log level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var bgCtx = context.Background()

// Logger wraps a [slog.Logger] with service metadata and secret redaction.
//
// Thread-safety: all public methods are safe for concurrent use.
type Logger struct {
	handlerType HandlerType
	output      io.Writer
	level       slog.LevelVar

	serviceName    string
	serviceVersion string
	environment    string

	addSource   bool
	replaceAttr func(groups []string, a slog.Attr) slog.Attr

	customLogger *slog.Logger
	useCustom    bool

	registerGlobal bool

	slogger atomic.Pointer[slog.Logger]
}

// Option is a functional option for configuring the logger.
type Option func(*Logger)

// New creates a new Logger with the given options.
// It does not replace the global slog default unless [WithGlobalLogger] is given.
func New(opts ...Option) (*Logger, error) {
	l := &Logger{
		handlerType: JSONHandler,
		output:      os.Stdout,
	}
	l.level.Set(LevelInfo)

	for _, opt := range opts {
		opt(l)
	}

	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := l.initializeHandler(); err != nil {
		return nil, err
	}

	return l, nil
}

// MustNew creates a new Logger or panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}

	return l
}

// Validate checks if the configuration is valid.
func (l *Logger) Validate() error {
	if l.output == nil {
		return errors.New("output writer cannot be nil")
	}
	if l.useCustom && l.customLogger == nil {
		return ErrNilLogger
	}

	return nil
}

func (l *Logger) initializeHandler() error {
	if l.useCustom {
		l.slogger.Store(l.customLogger)
		if l.registerGlobal {
			slog.SetDefault(l.customLogger)
		}

		return nil
	}

	opts := &slog.HandlerOptions{
		Level:       &l.level,
		AddSource:   l.addSource,
		ReplaceAttr: l.buildReplaceAttr(),
	}

	var handler slog.Handler
	switch l.handlerType {
	case JSONHandler:
		handler = slog.NewJSONHandler(l.output, opts)
	case TextHandler:
		handler = slog.NewTextHandler(l.output, opts)
	case ConsoleHandler:
		handler = newConsoleHandler(l.output, opts)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, l.handlerType)
	}

	logger := slog.New(handler)

	var attrs []any
	if l.serviceName != "" {
		attrs = append(attrs, "service", l.serviceName)
	}
	if l.serviceVersion != "" {
		attrs = append(attrs, "version", l.serviceVersion)
	}
	if l.environment != "" {
		attrs = append(attrs, "env", l.environment)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}

	l.slogger.Store(logger)
	if l.registerGlobal {
		slog.SetDefault(logger)
	}

	return nil
}

func (l *Logger) buildReplaceAttr() func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		switch strings.ToLower(a.Key) {
		case "password", "token", "secret", "api_key", "authorization":
			return slog.String(a.Key, "***REDACTED***")
		}
		if l.replaceAttr != nil {
			return l.replaceAttr(groups, a)
		}

		return a
	}
}

// Logger returns the underlying [slog.Logger].
func (l *Logger) Logger() *slog.Logger {
	return l.slogger.Load()
}

// With returns a [slog.Logger] with additional attributes.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.Logger().With(args...)
}

// WithGroup returns a [slog.Logger] with a group name.
func (l *Logger) WithGroup(name string) *slog.Logger {
	return l.Logger().WithGroup(name)
}

// Debug logs a debug message with structured attributes.
func (l *Logger) Debug(msg string, args ...any) { l.Logger().Log(bgCtx, LevelDebug, msg, args...) }

// Info logs an informational message with structured attributes.
func (l *Logger) Info(msg string, args ...any) { l.Logger().Log(bgCtx, LevelInfo, msg, args...) }

// Warn logs a warning message with structured attributes.
func (l *Logger) Warn(msg string, args ...any) { l.Logger().Log(bgCtx, LevelWarn, msg, args...) }

// Error logs an error message with structured attributes.
func (l *Logger) Error(msg string, args ...any) { l.Logger().Log(bgCtx, LevelError, msg, args...) }

// LogDuration logs msg at info level with the elapsed time since start,
// both as a human readable string and in milliseconds.
func (l *Logger) LogDuration(msg string, start time.Time, args ...any) {
	elapsed := time.Since(start)
	attrs := append([]any{
		"duration", elapsed.String(),
		"duration_ms", elapsed.Milliseconds(),
	}, args...)
	l.Info(msg, attrs...)
}

// LogError logs err at error level under the "error" key. A nil error is ignored.
func (l *Logger) LogError(err error, msg string, args ...any) {
	if err == nil {
		return
	}
	l.Error(msg, append([]any{"error", err.Error()}, args...)...)
}

// ServiceName returns the configured service name.
func (l *Logger) ServiceName() string { return l.serviceName }

// ServiceVersion returns the configured service version.
func (l *Logger) ServiceVersion() string { return l.serviceVersion }

// Environment returns the configured environment.
func (l *Logger) Environment() string { return l.environment }

// ParseLevel parses a level name such as "debug" or "WARN".
func ParseLevel(s string) (Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}

	return level, nil
}

// Noop returns a [slog.Logger] that discards everything.
func Noop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
