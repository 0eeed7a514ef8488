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

// Package logging provides structured logging on top of [log/slog].
//
// A [Logger] adds service name, version and environment to every record,
// redacts well known sensitive keys (password, token, secret, api_key,
// authorization) and supports a runtime adjustable level.
//
// Three handlers are available: JSON (default), text and a colored console
// handler for local development.
//
//	logger := logging.MustNew(
//	    logging.WithServiceName("catalogue"),
//	    logging.WithConsoleHandler(),
//	)
//	logger.Info("server started", "addr", ":8080")
//
// Components in this module accept a plain *slog.Logger; pass [Logger.Logger].
// [NewTestHelper] captures JSON output for assertions in tests.
package logging
