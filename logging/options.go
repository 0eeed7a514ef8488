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
	"io"
	"log/slog"
)

// WithHandlerType sets the logging handler type.
func WithHandlerType(t HandlerType) Option {
	return func(l *Logger) {
		l.handlerType = t
	}
}

// WithJSONHandler uses JSON structured logging (default).
func WithJSONHandler() Option {
	return WithHandlerType(JSONHandler)
}

// WithTextHandler uses text key=value logging.
func WithTextHandler() Option {
	return WithHandlerType(TextHandler)
}

// WithConsoleHandler uses human-readable console logging.
func WithConsoleHandler() Option {
	return WithHandlerType(ConsoleHandler)
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.output = w
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) Option {
	return func(l *Logger) {
		l.level.Set(level)
	}
}

// WithDebugLevel enables debug logging.
func WithDebugLevel() Option {
	return WithLevel(LevelDebug)
}

// WithServiceName sets the service name added to every record.
func WithServiceName(name string) Option {
	return func(l *Logger) {
		l.serviceName = name
	}
}

// WithServiceVersion sets the service version added to every record.
func WithServiceVersion(version string) Option {
	return func(l *Logger) {
		l.serviceVersion = version
	}
}

// WithEnvironment sets the environment added to every record.
func WithEnvironment(env string) Option {
	return func(l *Logger) {
		l.environment = env
	}
}

// WithSource enables source code location in logs.
func WithSource(enabled bool) Option {
	return func(l *Logger) {
		l.addSource = enabled
	}
}

// WithReplaceAttr sets a custom attribute replacer. It runs after the
// built-in redaction of sensitive keys.
func WithReplaceAttr(fn func(groups []string, a slog.Attr) slog.Attr) Option {
	return func(l *Logger) {
		l.replaceAttr = fn
	}
}

// WithCustomLogger uses an existing [slog.Logger] as is.
func WithCustomLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.customLogger = logger
		l.useCustom = true
	}
}

// WithGlobalLogger registers the logger as the global slog default.
func WithGlobalLogger() Option {
	return func(l *Logger) {
		l.registerGlobal = true
	}
}
