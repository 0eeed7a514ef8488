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

// Package metrics records HTTP, resource and engine metrics with
// OpenTelemetry.
//
// A [Recorder] exports through Prometheus by default (scraped through
// [Recorder.Handler]), or pushes to an OTLP collector or stdout. The same
// Recorder plugs into the router, the resource package and the engine:
//
//	rec := metrics.MustNew(metrics.WithServiceName("catalogue"))
//	r := router.MustNew(router.WithMetricsRecorder(rec))
//	r.Use(rec.Middleware(metrics.WithExcludePaths("/metrics")))
//	e, _ := engine.New(r, engine.WithMetrics(rec))
//
// Instruments:
//
//   - http.server.requests, http.server.duration, http.server.active_requests
//   - resource.decode.failures, by resource
//   - engine.tasks by group and outcome, engine.tasks.active by group
package metrics
