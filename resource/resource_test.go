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

package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"rivaas.dev/restkit/binding"
	"rivaas.dev/restkit/router"
)

type pair struct {
	A string `path:"a"`
	B int    `path:"b"`
	Q string `query:"q"`
	R *int   `query:"r"`
}

func (pair) ResourcePattern() string { return "/pairs/{a}/{b}" }

type articles struct{}

func (articles) ResourcePattern() string { return "/articles" }

type article struct {
	articles
	ID   int    `path:"id" validate:"min=1"`
	Lang string `query:"lang,optional"`
}

func (article) ResourcePattern() string { return "/{id}" }

type comments struct {
	article
	Limit int `query:"limit" default:"20"`
}

func (comments) ResourcePattern() string { return "/comments" }

type searchA struct {
	Page *int `query:"page"`
}

func (searchA) ResourcePattern() string { return "/a/search" }

type searchB struct {
	Page *int `query:"page"`
}

func (searchB) ResourcePattern() string { return "/b/search" }

type itemsRequired struct {
	Tag string `query:"tag"`
}

func (itemsRequired) ResourcePattern() string { return "/items" }

type itemsOptional struct {
	Tag *string `query:"tag"`
}

func (itemsOptional) ResourcePattern() string { return "/items" }

type files struct {
	Path string `path:"path"`
}

func (files) ResourcePattern() string { return "/files/{path...}" }

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) RecordDecodeFailure(_ context.Context, res string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, res)
}

func serve(t *testing.T, r *router.Router, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))

	return w
}

func problemErrors(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()

	var body struct {
		Code   string           `json:"code"`
		Errors []map[string]any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "bad_request", body.Code)

	return body.Errors
}

func TestRegister_TreeShape(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	leaf, err := Register[pair](r.Root())
	require.NoError(t, err)
	assert.Equal(t, "/pairs/{a}/{b}/[q]/[r?]", leaf.String())

	b := r.Root().Path("/pairs/{a}/{b}")
	require.Len(t, b.Children(), 1)
	q := b.Children()[0]
	assert.Equal(t, router.QueryParameterSelector{Name: "q"}, q.Selector())
	require.Len(t, q.Children(), 1)
	assert.Equal(t, router.OptionalQueryParameterSelector{Name: "r"}, q.Children()[0].Selector())

	again, err := Register[pair](r.Root())
	require.NoError(t, err)
	assert.Same(t, leaf, again)
	assert.Len(t, b.Children(), 1)
	assert.Len(t, q.Children(), 1)
}

func TestRegister_OptionalAndRequiredAreDistinct(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	req := MustRegister[itemsRequired](r.Root())
	opt := MustRegister[itemsOptional](r.Root())
	assert.NotSame(t, req, opt)
	assert.Len(t, r.Root().Path("/items").Children(), 2)

	a := MustRegister[searchA](r.Root())
	b := MustRegister[searchB](r.Root())
	assert.NotSame(t, a, b)
	assert.Equal(t, "/a/search/[page?]", a.String())
	assert.Equal(t, "/b/search/[page?]", b.String())
}

func TestRegister_Frozen(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.Freeze()
	_, err := Register[pair](r.Root())
	require.ErrorIs(t, err, router.ErrRouterFrozen)
}

func TestHandle_DecodesAndDispatches(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	var (
		got   []pair
		fromC pair
	)
	_, err := Get(r.Root(), func(c *router.Context, p pair) {
		got = append(got, p)
		fromC, _ = FromContext[pair](c.RequestContext())
		c.NoContent()
	})
	require.NoError(t, err)

	w := serve(t, r, http.MethodGet, "/pairs/x%20y/7?q=hello&r=3")
	require.Equal(t, http.StatusNoContent, w.Code)

	three := 3
	want := pair{A: "x y", B: 7, Q: "hello", R: &three}
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])
	assert.Equal(t, want, fromC)
}

func TestHandle_MissingRequiredQueryNeverCallsHandler(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	called := false
	MustHandle(r.Root(), http.MethodGet, func(*router.Context, pair) { called = true })

	w := serve(t, r, http.MethodGet, "/pairs/x/7?r=1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.False(t, called)

	errs := problemErrors(t, w)
	require.Len(t, errs, 1)
	assert.Equal(t, "q", errs[0]["field"])
	assert.Equal(t, "query", errs[0]["source"])
}

func TestHandle_MissingRequiredQueryKeepsOtherRoutes(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := router.MustNew(router.WithMetricsRecorder(rec))
	MustHandle(r.Root(), http.MethodGet, func(c *router.Context, _ itemsRequired) { _ = c.String(http.StatusOK, "required") })
	MustHandle(r.Root(), http.MethodPost, func(c *router.Context, _ pair) { _ = c.String(http.StatusOK, "pair") })

	assert.Equal(t, "required", serve(t, r, http.MethodGet, "/items?tag=go").Body.String())
	assert.Equal(t, http.StatusBadRequest, serve(t, r, http.MethodGet, "/items").Code)
	assert.Equal(t, []string{"itemsRequired"}, rec.calls)

	// the path matches but no handler exists for the method
	assert.Equal(t, http.StatusNotFound, serve(t, r, http.MethodGet, "/pairs/x/7").Code)
}

func TestDecode_MissingRequiredQuery(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	var decodeErr error
	r.GET("/pairs/{a}/{b}", func(c *router.Context) {
		_, decodeErr = Decode[pair](c)
		c.Fail(decodeErr)
	})

	w := serve(t, r, http.MethodGet, "/pairs/x/7")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var bad *BadRequestError
	require.ErrorAs(t, decodeErr, &bad)
	assert.Equal(t, "pair", bad.Resource)
	require.ErrorIs(t, decodeErr, ErrMissingField)

	errs := problemErrors(t, w)
	require.Len(t, errs, 1)
	assert.Equal(t, "q", errs[0]["field"])
	assert.Equal(t, "query", errs[0]["source"])
}

func TestHandle_BadValues(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := router.MustNew(router.WithMetricsRecorder(rec))
	called := false
	MustHandle(r.Root(), http.MethodGet, func(*router.Context, article) { called = true })

	w := serve(t, r, http.MethodGet, "/articles/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs := problemErrors(t, w)
	require.Len(t, errs, 1)
	assert.Equal(t, "id", errs[0]["field"])
	assert.Equal(t, "path", errs[0]["source"])

	w = serve(t, r, http.MethodGet, "/articles/0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs = problemErrors(t, w)
	require.Len(t, errs, 1)
	assert.Equal(t, "id", errs[0]["field"])
	assert.Equal(t, "validation", errs[0]["source"])

	assert.False(t, called)
	assert.Equal(t, []string{"article", "article"}, rec.calls)
}

func TestHandle_WithoutValidation(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	var got article
	MustHandle(r.Root(), http.MethodGet, func(_ *router.Context, a article) { got = a }, WithoutValidation())

	w := serve(t, r, http.MethodGet, "/articles/0?lang=de")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, article{ID: 0, Lang: "de"}, got)
}

func TestHandle_MethodGuard(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	called := 0
	MustHandle(r.Root(), http.MethodGet, func(*router.Context, article) { called++ })

	w := serve(t, r, http.MethodPost, "/articles/1")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET", w.Header().Get("Allow"))
	assert.Zero(t, called)

	serve(t, r, http.MethodGet, "/articles/1")
	assert.Equal(t, 1, called)
}

func TestHandle_AllMethodsShareOneNode(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	h := func(c *router.Context, _ article) { _ = c.String(http.StatusOK, c.Request.Method) }

	registrations := []func(*router.Route, Handler[article], ...Option) (*router.Route, error){
		Get[article], Post[article], Put[article], Delete[article], Patch[article], Head[article], Options[article],
	}
	for _, register := range registrations {
		_, err := register(r.Root(), h)
		require.NoError(t, err)
	}

	node := r.Root().Path("/articles/{id}").Child(router.OptionalQueryParameterSelector{Name: "lang"})
	assert.Len(t, node.Children(), len(registrations))

	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodOptions} {
		assert.Equal(t, m, serve(t, r, m, "/articles/3").Body.String())
	}
}

func TestHandle_Duplicate(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	_, err := Get(r.Root(), func(*router.Context, article) {})
	require.NoError(t, err)
	_, err = Get(r.Root(), func(*router.Context, article) {})
	require.ErrorIs(t, err, router.ErrDuplicateHandler)

	_, err = Get[article](r.Root(), nil)
	require.ErrorIs(t, err, ErrNilHandler)

	_, err = Handle(r.Root(), "", func(*router.Context, article) {})
	require.ErrorIs(t, err, router.ErrInvalidMethod)
}

func TestHandle_NestedResources(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	var got comments
	MustHandle(r.Root(), http.MethodGet, func(_ *router.Context, c comments) { got = c })

	w := serve(t, r, http.MethodGet, "/articles/5/comments?lang=fr")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, got.ID)
	assert.Equal(t, "fr", got.Lang)
	assert.Equal(t, 20, got.Limit)
}

func TestHandle_Tailcard(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	var got files
	MustHandle(r.Root(), http.MethodGet, func(_ *router.Context, f files) { got = f })

	serve(t, r, http.MethodGet, "/files/docs/a/b.txt")
	assert.Equal(t, "docs/a/b.txt", got.Path)
}

type tagSearch struct {
	Tags []string `query:"tags"`
}

func (tagSearch) ResourcePattern() string { return "/tags" }

func TestHandle_BindingOptions(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	var got []string
	MustHandle(r.Root(), http.MethodGet, func(_ *router.Context, s tagSearch) { got = s.Tags },
		WithBindingOptions(binding.WithSliceMode(binding.SliceCSV)))

	serve(t, r, http.MethodGet, "/tags?tags=a,b")
	assert.Equal(t, []string{"a", "b"}, got)
}

type promoted struct {
	searchA
	Sort string `query:"sort,optional"`
}

func TestDescribe_PromotedPatternAddsNoSegments(t *testing.T) {
	t.Parallel()

	d, err := Describe[promoted]()
	require.NoError(t, err)
	assert.Equal(t, "/a/search", d.Template.Raw)
	require.Len(t, d.QueryFields, 2)
	assert.Equal(t, "page", d.QueryFields[0].Name)
	assert.Equal(t, "sort", d.QueryFields[1].Name)
}

type promotedComments struct {
	comments
	Order string `query:"order,optional"`
}

func TestDescribe_PromotedPatternOfNestedParent(t *testing.T) {
	t.Parallel()

	d, err := Describe[promotedComments]()
	require.NoError(t, err)
	assert.Equal(t, "/articles/{id}/comments", d.Template.Raw)
	assert.Equal(t, []string{"id"}, d.Template.Params())
}

func TestHandle_Tracing(t *testing.T) {
	t.Parallel()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	r := router.MustNew(router.WithTracerProvider(tp))
	MustHandle(r.Root(), http.MethodGet, func(*router.Context, article) {})

	serve(t, r, http.MethodGet, "/articles/1")
	serve(t, r, http.MethodGet, "/articles/x")

	var decodes []sdktrace.ReadOnlySpan
	for _, s := range spans.Ended() {
		if s.Name() == "resource.decode" {
			decodes = append(decodes, s)
		}
	}
	require.Len(t, decodes, 2)
	assert.Equal(t, "Unset", decodes[0].Status().Code.String())
	assert.Equal(t, "Error", decodes[1].Status().Code.String())
	assert.True(t, decodes[0].Parent().IsValid())
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	d, err := Describe[comments]()
	require.NoError(t, err)
	assert.Equal(t, "/articles/{id}/comments", d.Template.String())
	assert.Equal(t, []string{"id"}, d.Template.Params())
	require.NotNil(t, d.Parent)
	assert.Equal(t, "article", d.Parent.Name())
	require.Len(t, d.PathFields, 1)
	assert.Equal(t, []int{0, 1}, d.PathFields[0].Index)

	require.Len(t, d.QueryFields, 2)
	assert.Equal(t, "lang", d.QueryFields[0].Name)
	assert.True(t, d.QueryFields[0].Optional)
	assert.Equal(t, "limit", d.QueryFields[1].Name)
	assert.True(t, d.QueryFields[1].Optional)

	again, err := Describe[comments]()
	require.NoError(t, err)
	assert.Same(t, d, again)
}

func TestDeriveOperations(t *testing.T) {
	t.Parallel()

	tmpl, err := DeriveTemplate(reflect.TypeFor[pair]())
	require.NoError(t, err)
	assert.Equal(t, "/pairs/{a}/{b}", tmpl.Raw)
	assert.Len(t, tmpl.Segments, 3)

	fields, err := DeriveQueryFields(reflect.TypeFor[pair]())
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "q", fields[0].Name)
	assert.False(t, fields[0].Optional)
	assert.Equal(t, "r", fields[1].Name)
	assert.True(t, fields[1].Optional)
}

type notDescribable struct {
	ID int `path:"id"`
}

type pointerReceiver struct{}

func (*pointerReceiver) ResourcePattern() string { return "/p" }

type stringResource string

func (stringResource) ResourcePattern() string { return "/s" }

type missingPathField struct{}

func (missingPathField) ResourcePattern() string { return "/m/{id}" }

type extraPathField struct {
	ID   int `path:"id"`
	Name int `path:"name"`
}

func (extraPathField) ResourcePattern() string { return "/e/{id}" }

type invalidTemplate struct{}

func (invalidTemplate) ResourcePattern() string { return "/x/{id" }

type duplicateQuery struct {
	A string `query:"a"`
	B string `query:"a"`
}

func (duplicateQuery) ResourcePattern() string { return "/d" }

type nestedQuery struct {
	Filter struct {
		Name string `query:"name"`
	} `query:"filter"`
}

func (nestedQuery) ResourcePattern() string { return "/n" }

type pointerParent struct {
	*articles
}

func (pointerParent) ResourcePattern() string { return "/pp" }

func TestDescribe_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"not describable", reflect.TypeFor[notDescribable]()},
		{"pointer receiver", reflect.TypeFor[pointerReceiver]()},
		{"not a struct", reflect.TypeFor[stringResource]()},
		{"template parameter without field", reflect.TypeFor[missingPathField]()},
		{"path field not in template", reflect.TypeFor[extraPathField]()},
		{"invalid template", reflect.TypeFor[invalidTemplate]()},
		{"duplicate query field", reflect.TypeFor[duplicateQuery]()},
		{"nested query struct", reflect.TypeFor[nestedQuery]()},
		{"parent embedded by pointer", reflect.TypeFor[pointerParent]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DescribeType(tt.typ)
			require.ErrorIs(t, err, ErrSchema)

			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.typ, schemaErr.Type)
		})
	}
}

func TestRegister_SchemaErrorFailsFast(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	_, err := Register[notDescribable](r.Root())
	require.ErrorIs(t, err, ErrSchema)
	assert.Empty(t, r.Root().Children())

	assert.Panics(t, func() { MustRegister[notDescribable](r.Root()) })
	assert.Panics(t, func() { MustHandle(r.Root(), http.MethodGet, func(*router.Context, notDescribable) {}) })
}

func TestHref(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		href func() (string, error)
		want string
	}{
		{
			name: "nested with optional query",
			href: func() (string, error) { return Href(article{ID: 42, Lang: "en"}) },
			want: "/articles/42?lang=en",
		},
		{
			name: "optional query omitted",
			href: func() (string, error) { return Href(article{ID: 42}) },
			want: "/articles/42",
		},
		{
			name: "escaped path values",
			href: func() (string, error) { return Href(pair{A: "a b/c", B: 1, Q: "x"}) },
			want: "/pairs/a%20b%2Fc/1?q=x",
		},
		{
			name: "tailcard keeps slashes",
			href: func() (string, error) { return Href(files{Path: "docs/a b.txt"}) },
			want: "/files/docs/a%20b.txt",
		},
		{
			name: "default query always present",
			href: func() (string, error) { return Href(comments{article: article{ID: 1}, Limit: 5}) },
			want: "/articles/1/comments?limit=5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.href()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Href(pair{B: 1, Q: "x"})
	require.ErrorIs(t, err, ErrMissingPathValue)

	_, err = Href(notDescribable{ID: 1})
	require.ErrorIs(t, err, ErrSchema)
}

func TestHref_RoundTrip(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	var got pair
	MustHandle(r.Root(), http.MethodGet, func(_ *router.Context, p pair) { got = p })

	five := 5
	want := pair{A: "ä/ö", B: -3, Q: "a&b=c", R: &five}
	href, err := Href(want)
	require.NoError(t, err)

	w := serve(t, r, http.MethodGet, href)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, want, got)
}
