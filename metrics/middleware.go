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

package metrics

import (
	"strings"

	"rivaas.dev/restkit/router"
)

// MiddlewareOption configures [Recorder.Middleware].
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	paths    map[string]bool
	prefixes []string
}

// WithExcludePaths skips requests to exactly these paths, e.g. "/healthz".
func WithExcludePaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		for _, p := range paths {
			c.paths[p] = true
		}
	}
}

// WithExcludePrefixes skips requests whose path starts with any prefix.
func WithExcludePrefixes(prefixes ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.prefixes = append(c.prefixes, prefixes...)
	}
}

func (c *middlewareConfig) excluded(path string) bool {
	if c.paths[path] {
		return true
	}
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// Middleware returns router middleware recording request count, duration
// and in-flight requests. Requests that match no route are reported with
// the route "unmatched".
//
// Example:
//
//	r.Use(recorder.Middleware(metrics.WithExcludePaths("/healthz", "/metrics")))
func (r *Recorder) Middleware(opts ...MiddlewareOption) router.HandlerFunc {
	cfg := &middlewareConfig{paths: make(map[string]bool)}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		if cfg.excluded(c.Request.URL.Path) {
			c.Next()
			return
		}

		ctx := c.RequestContext()
		m := r.BeginRequest(ctx, c.Request.Method)
		c.Next()

		route := c.RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		r.Finish(ctx, m, c.StatusCode(), route)
	}
}
