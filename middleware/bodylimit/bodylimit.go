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

// Package bodylimit caps the size of request bodies.
package bodylimit

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	riverrors "rivaas.dev/restkit/errors"
	"rivaas.dev/restkit/router"
)

// DefaultLimit is the limit used when [WithLimit] is not given.
const DefaultLimit int64 = 2 << 20

// ErrBodyLimitExceeded is returned when the request body exceeds the
// configured limit, either up front from Content-Length or while reading.
var ErrBodyLimitExceeded = errors.New("request body size exceeds limit")

// Option configures the middleware.
type Option func(*config)

type config struct {
	limit        int64
	errorHandler func(c *router.Context, limit int64)
	skipPaths    map[string]bool
}

func defaultConfig() *config {
	return &config{
		limit:        DefaultLimit,
		errorHandler: defaultErrorHandler,
		skipPaths:    make(map[string]bool),
	}
}

// WithLimit sets the maximum body size in bytes. Non-positive values are
// ignored.
func WithLimit(limit int64) Option {
	return func(c *config) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithSkipPaths disables the limit for exact request paths.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.skipPaths[p] = true
		}
	}
}

// WithErrorHandler replaces the response written when a declared
// Content-Length is over the limit.
func WithErrorHandler(fn func(c *router.Context, limit int64)) Option {
	return func(c *config) {
		if fn != nil {
			c.errorHandler = fn
		}
	}
}

func defaultErrorHandler(c *router.Context, limit int64) {
	c.Fail(Error(limit))
}

// Error returns [ErrBodyLimitExceeded] for limit as a 413 error suitable
// for [router.Context.Fail].
func Error(limit int64) error {
	return riverrors.WithStatus(
		fmt.Errorf("%w: max %s", ErrBodyLimitExceeded, formatSize(limit)),
		http.StatusRequestEntityTooLarge,
	)
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)

	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1fGB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1fMB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1fKB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// limitedReader fails with ErrBodyLimitExceeded once more than limit bytes
// are available, instead of silently truncating like io.LimitReader.
type limitedReader struct {
	reader io.ReadCloser
	limit  int64
	read   int64
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.read > lr.limit {
		return 0, fmt.Errorf("%w: %d bytes", ErrBodyLimitExceeded, lr.limit)
	}

	// Allow one byte past the limit so an exact-size body still ends in EOF.
	if remaining := lr.limit + 1 - lr.read; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := lr.reader.Read(p)
	lr.read += int64(n)
	if lr.read > lr.limit {
		return n - int(lr.read-lr.limit), fmt.Errorf("%w: %d bytes", ErrBodyLimitExceeded, lr.limit)
	}

	return n, err
}

func (lr *limitedReader) Close() error {
	return lr.reader.Close()
}

// New returns middleware that rejects bodies larger than the limit
// (2MB by default).
//
// A declared Content-Length over the limit is answered with 413 before the
// handler runs. Otherwise the body is wrapped so reads past the limit fail
// with an error matching [ErrBodyLimitExceeded]; handlers report it with
// [Error] or their own 413.
//
//	r.Use(bodylimit.New(bodylimit.WithLimit(1 << 20)))
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		if cfg.skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		if c.Request.ContentLength > cfg.limit {
			cfg.errorHandler(c, cfg.limit)
			c.Abort()

			return
		}

		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			c.Request.Body = &limitedReader{reader: c.Request.Body, limit: cfg.limit}
		}
		c.Next()
	}
}
