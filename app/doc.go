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

// Package app assembles a service from the restkit packages: logging,
// metrics and tracing, the selector router with its default middleware
// (request ID, access log, recovery, body limit, compression), and the
// engine that serves it.
//
// # Quick start
//
//	a := app.MustNew(app.WithServiceName("catalogue"), app.WithMetrics())
//	resource.MustHandle(a.Router().Root(), http.MethodGet, getArticle)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := a.Run(ctx, ":8080"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration
//
// [LoadConfig] reads [Settings] from a YAML, TOML or JSON file, environment
// variables and optional Consul KV keys; [Settings.Options] turns them into
// app options.
//
// # Built-in endpoints
//
//   - GET /healthz: liveness, always "ok"
//   - GET /readyz: 204 while the engine is running, 503 otherwise
//   - GET /metrics: Prometheus exposition, when metrics use that provider
//
// # Lifecycle
//
// [App.Run] runs OnStart hooks, starts the engine, prints the banner and
// runs OnReady hooks. When its context is done it runs OnShutdown hooks in
// reverse order, stops the engine with the configured grace period and
// timeout, shuts down metrics and tracing and finally runs OnStop hooks.
package app
