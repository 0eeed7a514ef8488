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

// Package recovery turns handler panics into 500 responses instead of
// crashed connections.
package recovery

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"

	"golang.org/x/term"

	"rivaas.dev/restkit/router"
)

// PanicError is passed to [router.Context.Fail] for a recovered panic. Its
// message never includes the panic value.
type PanicError struct {
	Value any
}

// Error implements error.
func (e *PanicError) Error() string { return "internal server error" }

// HTTPStatus returns 500.
func (e *PanicError) HTTPStatus() int { return http.StatusInternalServerError }

// Code returns "internal_error".
func (e *PanicError) Code() string { return "internal_error" }

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	logging     bool
	handler     func(c *router.Context, err any)
	stackTrace  bool
	stackSize   int
	prettyStack *bool
	stackOut    io.Writer
}

// WithLogger logs panics to logger instead of the router logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithoutLogging disables panic logging.
func WithoutLogging() Option {
	return func(c *config) {
		c.logging = false
	}
}

// WithHandler replaces the default response, a problem document built by
// the router's error formatter.
func WithHandler(handler func(c *router.Context, err any)) Option {
	return func(c *config) {
		c.handler = handler
	}
}

// WithStackTrace enables or disables stack capture. Default: true.
func WithStackTrace(enabled bool) Option {
	return func(c *config) {
		c.stackTrace = enabled
	}
}

// WithStackSize caps the captured stack, in bytes. Default: 4 KiB.
func WithStackSize(size int) Option {
	return func(c *config) {
		c.stackSize = size
	}
}

// WithPrettyStack forces the stack to be printed as plain text to stderr
// (true) or logged as an attribute (false). By default it is printed when
// stderr is a terminal.
func WithPrettyStack(enabled bool) Option {
	return func(c *config) {
		c.prettyStack = &enabled
	}
}

// New returns middleware recovering panics of the handlers after it.
// http.ErrAbortHandler is re-raised so the server aborts the response.
func New(opts ...Option) router.HandlerFunc {
	cfg := &config{
		logging:    true,
		stackTrace: true,
		stackSize:  4 << 10,
		stackOut:   os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	pretty := term.IsTerminal(int(os.Stderr.Fd()))
	if cfg.prettyStack != nil {
		pretty = *cfg.prettyStack
	}

	return func(c *router.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			if cfg.logging {
				cfg.log(c, rec, pretty)
			}
			if cfg.handler != nil {
				cfg.handler(c, rec)
				c.Abort()

				return
			}
			c.Fail(&PanicError{Value: rec})
		}()

		c.Next()
	}
}

func (cfg *config) log(c *router.Context, rec any, pretty bool) {
	logger := cfg.logger
	if logger == nil {
		logger = c.Logger()
	}

	attrs := []any{
		"panic", fmt.Sprint(rec),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"route", c.RoutePattern(),
	}

	if cfg.stackTrace {
		stack := debug.Stack()
		if cfg.stackSize > 0 && len(stack) > cfg.stackSize {
			stack = stack[:cfg.stackSize]
		}
		if pretty {
			_, _ = fmt.Fprintf(cfg.stackOut, "panic: %v\n\n%s\n", rec, stack)
		} else {
			attrs = append(attrs, "stack", string(stack))
		}
	}

	logger.ErrorContext(c.RequestContext(), "panic recovered", attrs...)
}
