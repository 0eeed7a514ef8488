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
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// RFC9457 formats errors as RFC 9457 Problem Details.
// It produces responses with Content-Type "application/problem+json".
//
// Example:
//
//	formatter := errors.NewRFC9457("https://api.example.com/problems")
//	response := formatter.Format(req, err)
type RFC9457 struct {
	// BaseURL is prepended to problem type slugs to create full URIs.
	// Example: "https://api.example.com/problems" + "/bad_request"
	BaseURL string

	// TypeResolver maps errors to problem type URIs.
	// If nil, uses default mapping based on the ErrorCode interface.
	TypeResolver func(err error) string

	// StatusResolver determines HTTP status from error.
	// If nil, uses default logic (ErrorType interface, then 500).
	StatusResolver func(err error) int

	// ErrorIDGenerator generates unique IDs for error tracking.
	// If nil, a random UUID is used.
	ErrorIDGenerator func() string

	// DisableErrorID disables automatic error ID generation.
	DisableErrorID bool
}

// ProblemDetail represents an RFC 9457 problem detail.
type ProblemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"-"` // Marshaled inline
}

// MarshalJSON implements custom JSON marshaling to include extensions inline.
// Extension keys that collide with reserved member names are dropped.
func (p ProblemDetail) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"type":   p.Type,
		"title":  p.Title,
		"status": p.Status,
	}
	if p.Detail != "" {
		m["detail"] = p.Detail
	}
	if p.Instance != "" {
		m["instance"] = p.Instance
	}
	for k, v := range p.Extensions {
		if k != "type" && k != "title" && k != "status" && k != "detail" && k != "instance" {
			m[k] = v
		}
	}

	return json.Marshal(m)
}

// Format converts an error into an RFC 9457 Problem Details response.
// If the error implements ErrorDetails or ErrorCode, those are included as extensions.
func (f *RFC9457) Format(req *http.Request, err error) Response {
	status := f.determineStatus(err)

	p := ProblemDetail{
		Type:       f.determineType(err),
		Title:      http.StatusText(status),
		Status:     status,
		Detail:     err.Error(),
		Extensions: make(map[string]any),
	}
	if req != nil && req.URL != nil {
		p.Instance = req.URL.Path
	}

	if !f.DisableErrorID {
		if f.ErrorIDGenerator != nil {
			p.Extensions["error_id"] = f.ErrorIDGenerator()
		} else {
			p.Extensions["error_id"] = "err-" + uuid.NewString()
		}
	}

	var detailed ErrorDetails
	if errors.As(err, &detailed) {
		p.Extensions["errors"] = detailed.Details()
	}

	var coded ErrorCode
	if errors.As(err, &coded) {
		p.Extensions["code"] = coded.Code()
	}

	return Response{
		Status:      status,
		ContentType: "application/problem+json; charset=utf-8",
		Body:        p,
	}
}

// determineStatus checks StatusResolver first, then ErrorType, then defaults to 500.
func (f *RFC9457) determineStatus(err error) int {
	if f.StatusResolver != nil {
		return f.StatusResolver(err)
	}

	var typed ErrorType
	if errors.As(err, &typed) {
		return typed.HTTPStatus()
	}

	return http.StatusInternalServerError
}

// determineType checks TypeResolver first, then ErrorCode, then defaults to "about:blank".
func (f *RFC9457) determineType(err error) string {
	if f.TypeResolver != nil {
		return f.TypeResolver(err)
	}

	var coded ErrorCode
	if errors.As(err, &coded) {
		code := coded.Code()
		if f.BaseURL != "" {
			return f.BaseURL + "/" + code
		}

		return code
	}

	return "about:blank"
}
