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

package router

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrInvalidTemplate indicates a malformed path template.
	ErrInvalidTemplate = errors.New("invalid path template")

	// ErrRouterFrozen indicates a registration attempt after Freeze.
	ErrRouterFrozen = errors.New("router is frozen")

	// ErrDuplicateHandler indicates a node already has a handler chain.
	ErrDuplicateHandler = errors.New("route already has handlers")

	// ErrNoHandlers indicates Handle was called without handlers.
	ErrNoHandlers = errors.New("no handlers given")

	// ErrInvalidMethod indicates an empty HTTP method.
	ErrInvalidMethod = errors.New("invalid HTTP method")

	// ErrNilLogger indicates a nil logger option.
	ErrNilLogger = errors.New("logger cannot be nil")

	// ErrNilFormatter indicates a nil error formatter option.
	ErrNilFormatter = errors.New("error formatter cannot be nil")

	// ErrResponseWriterNotHijacker indicates that the ResponseWriter does not implement http.Hijacker.
	ErrResponseWriterNotHijacker = errors.New("responseWriter does not implement http.Hijacker")
)

// MissingQueryError is the default failure for a request whose path and
// method matched a route but which lacks required query parameters.
type MissingQueryError struct {
	Names []string
}

// Error implements error.
func (e *MissingQueryError) Error() string {
	return "missing required query parameters: " + strings.Join(e.Names, ", ")
}

// HTTPStatus implements rivaas.dev/restkit/errors.ErrorType.
func (e *MissingQueryError) HTTPStatus() int { return http.StatusBadRequest }

// Code implements rivaas.dev/restkit/errors.ErrorCode.
func (e *MissingQueryError) Code() string { return "missing_query_parameter" }
