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

package compression

import (
	"compress/gzip"
	"log/slog"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger              *slog.Logger
	gzipLevel           int
	brotliLevel         int
	minSize             int
	enableGzip          bool
	enableBrotli        bool
	excludePaths        map[string]bool
	excludeContentTypes []string
}

func defaultConfig() *config {
	return &config{
		gzipLevel:    gzip.DefaultCompression,
		brotliLevel:  4,
		minSize:      DefaultMinSize,
		enableGzip:   true,
		enableBrotli: true,
		excludePaths: make(map[string]bool),
	}
}

// WithGzipLevel sets the gzip level, from gzip.HuffmanOnly to
// gzip.BestCompression. Invalid levels are ignored.
func WithGzipLevel(level int) Option {
	return func(c *config) {
		if level >= gzip.HuffmanOnly && level <= gzip.BestCompression {
			c.gzipLevel = level
		}
	}
}

// WithBrotliLevel sets the Brotli level (0-11). Levels above 5 are slow for
// dynamic responses. Invalid levels are ignored.
func WithBrotliLevel(level int) Option {
	return func(c *config) {
		if level >= 0 && level <= 11 {
			c.brotliLevel = level
		}
	}
}

// WithBrotliDisabled negotiates gzip only.
func WithBrotliDisabled() Option {
	return func(c *config) {
		c.enableBrotli = false
	}
}

// WithGzipDisabled negotiates Brotli only.
func WithGzipDisabled() Option {
	return func(c *config) {
		c.enableGzip = false
	}
}

// WithMinSize sets the body size below which responses are sent as is.
// Zero compresses every eligible response.
func WithMinSize(size int) Option {
	return func(c *config) {
		if size >= 0 {
			c.minSize = size
		}
	}
}

// WithExcludePaths skips exact request paths.
func WithExcludePaths(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.excludePaths[p] = true
		}
	}
}

// WithExcludeContentTypes skips responses whose Content-Type contains one of
// the given values, such as "image/".
func WithExcludeContentTypes(types ...string) Option {
	return func(c *config) {
		c.excludeContentTypes = append(c.excludeContentTypes, types...)
	}
}

// WithLogger logs failures to finish a compressed stream.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
