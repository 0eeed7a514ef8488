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

package accesslog

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/restkit/middleware/requestid"
	"rivaas.dev/restkit/router"
)

// testHandler captures log records.
type testHandler struct {
	mu      sync.Mutex
	records []testRecord
}

type testRecord struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

func (h *testHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	h.records = append(h.records, testRecord{level: r.Level, msg: r.Message, attrs: attrs})

	return nil
}

func (h *testHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *testHandler) WithGroup(string) slog.Handler { return h }

func (h *testHandler) all() []testRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]testRecord(nil), h.records...)
}

func setup(t *testing.T, opts ...Option) (*router.Router, *testHandler) {
	t.Helper()

	h := &testHandler{}
	r := router.MustNew()
	r.Use(requestid.New(), New(append([]Option{WithLogger(slog.New(h))}, opts...)...))

	return r, h
}

func serve(r *router.Router, target string) {
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
}

func TestAccessLog_BasicLogging(t *testing.T) {
	t.Parallel()

	r, h := setup(t)
	r.GET("/articles/{id}", func(c *router.Context) {
		_ = c.JSON(http.StatusOK, map[string]string{"message": "ok"})
	})

	serve(r, "/articles/7")

	records := h.all()
	require.Len(t, records, 1)
	assert.Equal(t, "http request", records[0].msg)
	assert.Equal(t, slog.LevelInfo, records[0].level)

	fields := records[0].attrs
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/articles/7", fields["path"])
	assert.Equal(t, "/articles/{id}", fields["route"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
	assert.Contains(t, fields, "duration")
}

func TestAccessLog_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   slog.Level
	}{
		{"success", http.StatusNoContent, slog.LevelInfo},
		{"client error", http.StatusConflict, slog.LevelWarn},
		{"server error", http.StatusBadGateway, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, h := setup(t)
			r.GET("/x", func(c *router.Context) { c.Status(tt.status) })
			serve(r, "/x")

			records := h.all()
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0].level)
		})
	}
}

func TestAccessLog_Unmatched(t *testing.T) {
	t.Parallel()

	r, h := setup(t)
	r.GET("/x", func(c *router.Context) { c.NoContent() })
	serve(r, "/missing")

	records := h.all()
	require.Len(t, records, 1)
	assert.Equal(t, "unmatched", records[0].attrs["route"])
	assert.Equal(t, int64(http.StatusNotFound), records[0].attrs["status"])
}

func TestAccessLog_Exclusions(t *testing.T) {
	t.Parallel()

	r, h := setup(t, WithExcludePaths("/healthz"), WithExcludePrefixes("/debug/"))
	ok := func(c *router.Context) { c.NoContent() }
	r.GET("/healthz", ok)
	r.GET("/debug/vars", ok)
	r.GET("/api", ok)

	serve(r, "/healthz")
	serve(r, "/debug/vars")
	serve(r, "/api")

	records := h.all()
	require.Len(t, records, 1)
	assert.Equal(t, "/api", records[0].attrs["path"])
}

func TestAccessLog_ErrorsOnlyAndSlow(t *testing.T) {
	t.Parallel()

	r, h := setup(t, WithErrorsOnly(), WithSlowThreshold(20*time.Millisecond))
	r.GET("/fast", func(c *router.Context) { c.NoContent() })
	r.GET("/slow", func(c *router.Context) {
		time.Sleep(40 * time.Millisecond)
		c.NoContent()
	})
	r.GET("/bad", func(c *router.Context) { c.Status(http.StatusBadRequest) })

	serve(r, "/fast")
	serve(r, "/slow")
	serve(r, "/bad")

	records := h.all()
	require.Len(t, records, 2)
	assert.Equal(t, "/slow", records[0].attrs["path"])
	assert.Equal(t, true, records[0].attrs["slow"])
	assert.Equal(t, slog.LevelWarn, records[0].level)
	assert.Equal(t, "/bad", records[1].attrs["path"])
}

func TestAccessLog_DefaultsToRouterLogger(t *testing.T) {
	t.Parallel()

	h := &testHandler{}
	r := router.MustNew(router.WithLogger(slog.New(h)))
	r.Use(New())
	r.GET("/x", func(c *router.Context) { c.NoContent() })
	serve(r, "/x")

	var found bool
	for _, rec := range h.all() {
		if rec.msg == "http request" {
			found = true
		}
	}
	assert.True(t, found)
}
