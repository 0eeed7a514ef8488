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

package catalogue_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/restkit/internal/catalogue"
	"rivaas.dev/restkit/metrics"
	"rivaas.dev/restkit/router"
)

func newRouter(t *testing.T) (*router.Router, *catalogue.Store) {
	t.Helper()

	r := router.MustNew()
	s := catalogue.NewStore()
	require.NoError(t, catalogue.Register(r.Root(), s))

	return r, s
}

func do(r *router.Router, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))

	return m
}

func TestCatalogue_ArticleLifecycle(t *testing.T) {
	t.Parallel()

	r, _ := newRouter(t)

	w := do(r, http.MethodPost, "/articles", `{"title":"Routing","body":"selectors","tags":["go"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/articles/1", w.Header().Get("Location"))
	created := decode(t, w)
	assert.Equal(t, "/articles/1/comments?limit=50", created["comments"])

	w = do(r, http.MethodGet, "/articles/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Routing", decode(t, w)["title"])

	w = do(r, http.MethodDelete, "/articles/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/articles/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "article not found")
}

func TestCatalogue_ListFiltersAndLimits(t *testing.T) {
	t.Parallel()

	r, s := newRouter(t)
	s.Create(catalogue.Article{Title: "a", Tags: []string{"go"}})
	s.Create(catalogue.Article{Title: "b", Tags: []string{"rust"}})
	s.Create(catalogue.Article{Title: "c", Tags: []string{"go"}})

	tests := []struct {
		target string
		want   []string
	}{
		{"/articles", []string{"a", "b", "c"}},
		{"/articles?tag=go", []string{"a", "c"}},
		{"/articles?limit=2", []string{"a", "b"}},
		{"/articles?tag=go&limit=1", []string{"a"}},
	}
	for _, tt := range tests {
		w := do(r, http.MethodGet, tt.target, "")
		require.Equal(t, http.StatusOK, w.Code, tt.target)

		var got struct {
			Articles []struct {
				Title string `json:"title"`
				Href  string `json:"href"`
			} `json:"articles"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		titles := make([]string, 0, len(got.Articles))
		for _, a := range got.Articles {
			titles = append(titles, a.Title)
			assert.True(t, strings.HasPrefix(a.Href, "/articles/"))
		}
		assert.Equal(t, tt.want, titles, tt.target)
	}
}

func TestCatalogue_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	r, s := newRouter(t)
	s.Create(catalogue.Article{Title: "a"})

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"limit out of range", http.MethodGet, "/articles?limit=500", "", http.StatusBadRequest},
		{"limit not a number", http.MethodGet, "/articles?limit=many", "", http.StatusBadRequest},
		{"id not a number", http.MethodGet, "/articles/abc", "", http.StatusBadRequest},
		{"id below one", http.MethodGet, "/articles/0", "", http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/articles", "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/articles", `{"title":"x","author":"y"}`, http.StatusBadRequest},
		{"missing title", http.MethodPost, "/articles", `{"body":"x"}`, http.StatusUnprocessableEntity},
		{"empty comment", http.MethodPost, "/articles/1/comments", `{"text":" "}`, http.StatusUnprocessableEntity},
		{"comment on missing article", http.MethodPost, "/articles/9/comments", `{"text":"hi"}`, http.StatusNotFound},
		{"method not allowed", http.MethodPut, "/articles/1", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := do(r, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestCatalogue_Comments(t *testing.T) {
	t.Parallel()

	r, s := newRouter(t)
	s.Create(catalogue.Article{Title: "a"})

	for _, text := range []string{"first", "second", "third"} {
		w := do(r, http.MethodPost, "/articles/1/comments", `{"author":"ann","text":"`+text+`"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := do(r, http.MethodGet, "/articles/1/comments/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	m := decode(t, w)
	assert.Equal(t, "second", m["text"])
	assert.Equal(t, "/articles/1/comments/2", m["href"])

	w = do(r, http.MethodGet, "/articles/1/comments?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 2, decode(t, w)["count"], 0)

	w = do(r, http.MethodGet, "/articles/1/comments/7", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "comment not found")
}

func TestCatalogue_BodyLimit(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	s := catalogue.NewStore()
	s.Create(catalogue.Article{Title: "a"})
	require.NoError(t, catalogue.Register(r.Root(), s, catalogue.WithMaxBodySize(64)))

	big := `{"title":"` + strings.Repeat("x", 100) + `"}`
	w := do(r, http.MethodPost, "/articles", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	// Without a Content-Length the limit applies while decoding.
	req := httptest.NewRequest(http.MethodPost, "/articles/1/comments", strings.NewReader(`{"text":"`+strings.Repeat("y", 100)+`"}`))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "request body size exceeds limit")

	w = do(r, http.MethodPost, "/articles", `{"title":"short"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCatalogue_CountsCreations(t *testing.T) {
	t.Parallel()

	rec := metrics.TestingRecorder(t, "catalogue")
	r := router.MustNew()
	require.NoError(t, catalogue.Register(r.Root(), catalogue.NewStore(), catalogue.WithMetrics(rec)))

	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/articles", `{"title":"a"}`).Code)
	for range 2 {
		require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/articles/1/comments", `{"text":"hi"}`).Code)
	}
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodPost, "/articles", `{"body":"x"}`).Code)

	body := metrics.Scrape(t, rec)
	assert.Regexp(t, `catalogue_articles_created_total\{[^}]*\} 1`, body)
	assert.Regexp(t, `catalogue_comments_created_total\{[^}]*\} 2`, body)
}

func TestRegister_Frozen(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.Freeze()
	require.ErrorIs(t, catalogue.Register(r.Root(), catalogue.NewStore()), router.ErrRouterFrozen)
}
