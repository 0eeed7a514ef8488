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

// Package errors formats Go errors as HTTP error responses.
//
// Two formatters are provided:
//
//   - [RFC9457]: Problem Details (application/problem+json), the default used
//     by the router when a handler calls Context.Fail.
//   - [Simple]: a flat {"error": ..., "code": ...} JSON object.
//
// Domain errors opt into richer output by implementing [ErrorType]
// (HTTP status), [ErrorCode] (machine readable code) and [ErrorDetails]
// (structured field failures). The typed resource router's bad request error
// implements all three.
//
// # Example
//
//	formatter := errors.NewRFC9457("https://api.example.com/problems")
//	resp := formatter.Format(req, errors.WithStatus(err, http.StatusConflict))
//	_ = errors.Write(w, resp)
package errors
