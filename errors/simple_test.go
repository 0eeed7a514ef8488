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

//go:build !integration

package errors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimple_Format(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	resp := NewSimple().Format(req, &testError{message: "boom"})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "application/json; charset=utf-8", resp.ContentType)

	body, ok := resp.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boom", body["error"])
	assert.NotContains(t, body, "code")

	full := &testErrorFull{message: "bad", code: "bad_request", status: http.StatusBadRequest, details: "id"}
	resp = NewSimple().Format(req, full)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	body = resp.Body.(map[string]any)
	assert.Equal(t, "bad_request", body["code"])
	assert.Equal(t, "id", body["details"])
}

func TestSimple_StatusResolver(t *testing.T) {
	t.Parallel()

	f := &Simple{StatusResolver: func(error) int { return http.StatusServiceUnavailable }}
	resp := f.Format(httptest.NewRequest(http.MethodGet, "/", nil), &testError{message: "down"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
}

func TestWithStatus_NilError(t *testing.T) {
	t.Parallel()

	err := WithStatus(nil, http.StatusNoContent)
	assert.Equal(t, http.StatusText(http.StatusNoContent), err.Error())

	var typed ErrorType
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, http.StatusNoContent, typed.HTTPStatus())
}
