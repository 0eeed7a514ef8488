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

// Package compression negotiates gzip or Brotli response compression from
// the Accept-Encoding header.
package compression

import (
	"compress/gzip"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"

	"rivaas.dev/restkit/router"
)

// DefaultMinSize is the threshold used when [WithMinSize] is not given.
const DefaultMinSize = 1024

const (
	encodingBrotli = "br"
	encodingGzip   = "gzip"
)

// Writer pools keyed by encoding and level.
var writerPools sync.Map

type poolKey struct {
	encoding string
	level    int
}

func writerPool(encoding string, level int) *sync.Pool {
	key := poolKey{encoding: encoding, level: level}
	if p, ok := writerPools.Load(key); ok {
		return p.(*sync.Pool)
	}

	p := &sync.Pool{New: func() any {
		if encoding == encodingBrotli {
			return brotli.NewWriterLevel(io.Discard, level)
		}
		w, _ := gzip.NewWriterLevel(io.Discard, level)

		return w
	}}
	actual, _ := writerPools.LoadOrStore(key, p)

	return actual.(*sync.Pool)
}

// chooseEncoding picks Brotli or gzip from an Accept-Encoding value,
// honouring q-values and preferring Brotli on a tie.
func chooseEncoding(acceptEncoding string, cfg *config) string {
	if acceptEncoding == "" {
		return ""
	}

	brQ, gzipQ := -1.0, -1.0
	wildcard := -1.0
	for part := range strings.SplitSeq(strings.ToLower(acceptEncoding), ",") {
		name, q := parseCoding(part)
		switch name {
		case encodingBrotli:
			brQ = q
		case encodingGzip, "x-gzip":
			gzipQ = max(gzipQ, q)
		case "*":
			wildcard = q
		}
	}
	if brQ < 0 {
		brQ = wildcard
	}
	if gzipQ < 0 {
		gzipQ = wildcard
	}

	if cfg.enableBrotli && brQ > 0 && (brQ >= gzipQ || !cfg.enableGzip) {
		return encodingBrotli
	}
	if cfg.enableGzip && gzipQ > 0 {
		return encodingGzip
	}

	return ""
}

// parseCoding splits "gzip;q=0.5" into its name and quality. A missing or
// malformed q-value counts as 1.
func parseCoding(part string) (string, float64) {
	name, params, _ := strings.Cut(part, ";")
	q := 1.0
	for p := range strings.SplitSeq(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || k != "q" {
			continue
		}
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			q = parsed
		}
	}

	return strings.TrimSpace(name), q
}

// New returns middleware that compresses responses with Brotli or gzip,
// whichever the client prefers.
//
// Responses smaller than the minimum size (1KB by default) are sent
// uncompressed. 204, 206 and 304 responses are never compressed, nor are
// event streams, gRPC, octet streams or responses that already carry a
// Content-Encoding. Compressed responses get "Vary: Accept-Encoding".
//
//	r.Use(compression.New())
//	r.Use(compression.New(
//	    compression.WithBrotliDisabled(),
//	    compression.WithExcludePaths("/metrics"),
//	))
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		if cfg.excludePaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		encoding := chooseEncoding(c.Request.Header.Get("Accept-Encoding"), cfg)
		if encoding == "" {
			c.Next()
			return
		}

		level := cfg.gzipLevel
		if encoding == encodingBrotli {
			level = cfg.brotliLevel
		}
		cw := newCompressWriter(c.Response, encoding, writerPool(encoding, level), cfg)

		original := c.Response
		c.Response = cw
		defer func() { c.Response = original }()

		c.Next()

		if err := cw.Close(); err != nil && cfg.logger != nil {
			cfg.logger.Error("compression finalization failed",
				"encoding", encoding,
				"path", c.Request.URL.Path,
				"error", err,
			)
		}
	}
}
