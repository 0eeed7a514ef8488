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

// Package accesslog provides router middleware that writes one structured
// log record per request.
//
// # Basic Usage
//
//	r := router.MustNew()
//	r.Use(requestid.New(), accesslog.New(
//	    accesslog.WithLogger(logger),
//	    accesslog.WithExcludePaths("/healthz", "/metrics"),
//	))
//
// # Log Fields
//
//   - method, path, route: request line and the matched route template
//   - status, duration: response status and handler time
//   - request_id: from the requestid middleware, when installed before
//   - remote_addr, user_agent
//
// Records are logged at Info, Warn for 4xx responses and slow requests,
// and Error for 5xx responses.
package accesslog
