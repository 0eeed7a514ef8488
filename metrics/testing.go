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

package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestingRecorder creates a Prometheus-backed [Recorder] for tests and shuts
// it down on cleanup.
func TestingRecorder(t testing.TB, serviceName string, opts ...Option) *Recorder {
	t.Helper()

	r, err := New(append([]Option{WithServiceName(serviceName)}, opts...)...)
	if err != nil {
		t.Fatalf("TestingRecorder: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Shutdown(ctx); err != nil {
			t.Logf("TestingRecorder: shutdown warning: %v", err)
		}
	})

	return r
}

// Scrape returns the Prometheus text exposition of r.
func Scrape(t testing.TB, r *Recorder) string {
	t.Helper()

	h, err := r.Handler()
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(w.Result().Body)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	return string(body)
}
