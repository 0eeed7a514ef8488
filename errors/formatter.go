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

package errors

import (
	"encoding/json"
	"net/http"
)

// Formatter defines how errors are formatted in HTTP responses.
// Implementations are framework-agnostic and work with any HTTP handler.
//
// Example:
//
//	formatter := errors.NewRFC9457("https://api.example.com/problems")
//	response := formatter.Format(req, err)
//	errors.Write(w, response)
type Formatter interface {
	// Format converts an error into HTTP response components.
	Format(req *http.Request, err error) Response
}

// Response represents a formatted error response.
// It contains all components needed to write an HTTP error response.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is the response body, marshaled to JSON by [Write].
	Body any

	// Headers contains additional headers to set (optional).
	Headers http.Header
}

// ErrorType allows errors to declare their own HTTP status code.
//
// Example:
//
//	type NotFoundError struct{ ID string }
//
//	func (e NotFoundError) Error() string   { return "article " + e.ID + " not found" }
//	func (e NotFoundError) HTTPStatus() int { return http.StatusNotFound }
type ErrorType interface {
	error
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrorDetails allows errors to provide additional structured information,
// typically field-level failures.
type ErrorDetails interface {
	error
	// Details returns structured information about the error.
	Details() any
}

// ErrorCode allows errors to provide a machine-readable code.
type ErrorCode interface {
	error
	// Code returns a machine-readable error code.
	Code() string
}

// NewRFC9457 creates a new RFC9457 formatter.
// The baseURL parameter is prepended to problem type slugs to create full URIs.
func NewRFC9457(baseURL string) *RFC9457 {
	return &RFC9457{
		BaseURL: baseURL,
	}
}

// NewSimple creates a new Simple formatter.
func NewSimple() *Simple {
	return &Simple{}
}

// Write writes a formatted [Response] to w.
// Extra headers are added before the status line; the body is JSON encoded.
func Write(w http.ResponseWriter, resp Response) error {
	for k, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)

	if resp.Body == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(resp.Body)
}

// WithStatus wraps an error with an explicit HTTP status code.
// The wrapped error implements [ErrorType].
//
// If err is nil, the status text for the given status code is used as the error message.
//
// Example:
//
//	return errors.WithStatus(err, http.StatusNotFound)
func WithStatus(err error, status int) error {
	return &statusError{err: err, status: status}
}

// statusError wraps an error with an explicit status code.
type statusError struct {
	err    error
	status int
}

func (e *statusError) Error() string {
	if e.err == nil {
		return http.StatusText(e.status)
	}
	return e.err.Error()
}

func (e *statusError) Unwrap() error {
	return e.err
}

func (e *statusError) HTTPStatus() int {
	return e.status
}
