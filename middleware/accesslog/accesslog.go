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

package accesslog

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rivaas.dev/restkit/middleware/requestid"
	"rivaas.dev/restkit/router"
)

// Option configures the access log middleware.
type Option func(*config)

type config struct {
	logger        *slog.Logger
	excludePaths  map[string]bool
	excludePrefix []string
	slowThreshold time.Duration
	errorsOnly    bool
}

// WithLogger sets the logger. The router's logger is used by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithExcludePaths skips requests to exactly these paths.
func WithExcludePaths(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.excludePaths[p] = true
		}
	}
}

// WithExcludePrefixes skips requests whose path starts with any prefix.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(c *config) {
		c.excludePrefix = append(c.excludePrefix, prefixes...)
	}
}

// WithSlowThreshold logs requests slower than d at Warn with slow=true,
// even in errors-only mode. Zero disables the check.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *config) {
		c.slowThreshold = d
	}
}

// WithErrorsOnly logs only responses with status 400 and above, plus slow
// requests.
func WithErrorsOnly() Option {
	return func(c *config) {
		c.errorsOnly = true
	}
}

func (c *config) excluded(path string) bool {
	if c.excludePaths[path] {
		return true
	}
	for _, prefix := range c.excludePrefix {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// New returns the access log middleware.
//
// Example:
//
//	r.Use(accesslog.New(accesslog.WithSlowThreshold(500 * time.Millisecond)))
func New(opts ...Option) router.HandlerFunc {
	cfg := &config{excludePaths: make(map[string]bool)}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		if cfg.excluded(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.StatusCode()
		slow := cfg.slowThreshold > 0 && elapsed > cfg.slowThreshold
		if cfg.errorsOnly && status < http.StatusBadRequest && !slow {
			return
		}

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest || slow:
			level = slog.LevelWarn
		}

		route := c.RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", elapsed),
			slog.String("remote_addr", c.Request.RemoteAddr),
			slog.String("user_agent", c.Request.UserAgent()),
		}
		if id := requestid.Get(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if slow {
			attrs = append(attrs, slog.Bool("slow", true))
		}

		logger := cfg.logger
		if logger == nil {
			logger = c.Logger()
		}
		logger.LogAttrs(c.RequestContext(), level, "http request", attrs...)
	}
}
