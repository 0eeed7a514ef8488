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

package recovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/restkit/router"
)

func serve(r *router.Router, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w
}

func TestRecovery_ProblemResponse(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := router.MustNew()
	r.Use(New(WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))), WithPrettyStack(false)))
	r.GET("/articles/{id}", func(*router.Context) { panic("secret detail") })

	w := serve(r, "/articles/1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")
	assert.NotContains(t, w.Body.String(), "secret detail")

	var problem map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "internal_error", problem["code"])
	assert.EqualValues(t, http.StatusInternalServerError, problem["status"])

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "panic recovered", entry["msg"])
	assert.Equal(t, "secret detail", entry["panic"])
	assert.Equal(t, "/articles/{id}", entry["route"])
	assert.Contains(t, entry["stack"], "runtime/debug.Stack")
}

func TestRecovery_NoPanic(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.Use(New())
	r.GET("/safe", func(c *router.Context) { _ = c.String(http.StatusOK, "ok") })

	w := serve(r, "/safe")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestRecovery_CustomHandler(t *testing.T) {
	t.Parallel()

	var after bool
	r := router.MustNew()
	r.Use(New(WithoutLogging(), WithHandler(func(c *router.Context, err any) {
		_ = c.JSON(http.StatusServiceUnavailable, map[string]any{"panic_value": err})
	})))
	r.GET("/panic", func(*router.Context) { panic(42) }, func(*router.Context) { after = true })

	w := serve(r, "/panic")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"panic_value": 42}`, w.Body.String())
	assert.False(t, after)
}

func TestRecovery_PanicTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
	}{
		{"string", "boom"},
		{"error", errors.New("boom")},
		{"int", 7},
		{"struct", struct{ A int }{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := router.MustNew()
			r.Use(New(WithoutLogging()))
			r.GET("/", func(*router.Context) { panic(tt.value) })

			assert.Equal(t, http.StatusInternalServerError, serve(r, "/").Code)
		})
	}
}

func TestRecovery_StackOptions(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := router.MustNew()
		r.Use(New(WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))), WithStackTrace(false)))
		r.GET("/", func(*router.Context) { panic("x") })
		serve(r, "/")

		assert.NotContains(t, buf.String(), `"stack"`)
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := router.MustNew()
		r.Use(New(
			WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
			WithPrettyStack(false),
			WithStackSize(64),
		))
		r.GET("/", func(*router.Context) { panic("x") })
		serve(r, "/")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		stack, ok := entry["stack"].(string)
		require.True(t, ok)
		assert.LessOrEqual(t, len(stack), 64)
	})

	t.Run("pretty", func(t *testing.T) {
		t.Parallel()

		var logs, out bytes.Buffer
		mw := New(WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))), WithPrettyStack(true), withStackOut(&out))
		r := router.MustNew()
		r.Use(mw)
		r.GET("/", func(*router.Context) { panic("pretty") })
		serve(r, "/")

		assert.Contains(t, out.String(), "panic: pretty")
		assert.Contains(t, logs.String(), "panic recovered")
		assert.NotContains(t, logs.String(), `"stack"`)
	})
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.Use(New(WithoutLogging()))
	r.GET("/", func(*router.Context) { panic(http.ErrAbortHandler) })

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() { serve(r, "/") })
}

// withStackOut redirects pretty stacks in tests.
func withStackOut(w *bytes.Buffer) Option {
	return func(c *config) {
		c.stackOut = w
	}
}
