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

package app

import (
	"errors"
	"fmt"
	"net/http"
	"path"

	"rivaas.dev/restkit/engine"
	riverrors "rivaas.dev/restkit/errors"
	"rivaas.dev/restkit/metrics"
	"rivaas.dev/restkit/router"
)

// ErrNotReady is reported by the readiness endpoint while the engine is
// not running.
var ErrNotReady = errors.New("service not ready")

// readyPath returns the readiness path next to the liveness path.
func readyPath(healthPath string) string {
	return path.Join(path.Dir(healthPath), "readyz")
}

// registerBuiltinRoutes mounts the liveness, readiness and, for the
// Prometheus provider, the scrape endpoint.
func (a *App) registerBuiltinRoutes() error {
	a.router.GET(a.config.healthPath, func(c *router.Context) {
		c.Header("Cache-Control", "no-store")
		if err := c.String(http.StatusOK, "ok"); err != nil {
			c.Logger().Error("failed to write healthz response", "error", err)
		}
	})

	a.router.GET(readyPath(a.config.healthPath), func(c *router.Context) {
		c.Header("Cache-Control", "no-store")
		if a.engine == nil || a.engine.State() != engine.StateRunning {
			c.Fail(riverrors.WithStatus(ErrNotReady, http.StatusServiceUnavailable))
			return
		}
		c.NoContent()
	})

	if a.metrics == nil || a.metrics.Provider() != metrics.PrometheusProvider {
		return nil
	}
	h, err := a.metrics.Handler()
	if err != nil {
		return fmt.Errorf("failed to mount metrics endpoint: %w", err)
	}
	a.router.GET(a.config.metricsPath, func(c *router.Context) {
		h.ServeHTTP(c.Response, c.Request)
	})

	return nil
}
