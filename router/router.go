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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	riverrors "rivaas.dev/restkit/errors"
)

const tracerName = "rivaas.dev/restkit/router"

// MetricsRecorder receives router-level events that are not visible to
// plain HTTP middleware. The metrics package provides an implementation.
type MetricsRecorder interface {
	// RecordDecodeFailure counts a request rejected because its resource
	// could not be decoded.
	RecordDecodeFailure(ctx context.Context, resource string)
}

// RouteInfo describes one registered handler chain.
type RouteInfo struct {
	Method    string // Method guard, "" when any method is accepted
	Path      string // URL path template, e.g. "/articles/{id}"
	Selectors string // Full selector path, including query and method selectors
	Handlers  int    // Number of handlers attached to the node
}

// Option configures a Router.
type Option func(*Router)

// Router dispatches requests over a tree of selectors.
//
// Routes are registered during a single-threaded configuration phase. The
// tree is frozen by [Router.Freeze], or automatically on the first request;
// after that it is immutable and serving is lock-free.
type Router struct {
	root       *Route
	middleware []HandlerFunc
	noRoute    []HandlerFunc

	logger            *slog.Logger
	tracerProvider    trace.TracerProvider
	tracer            trace.Tracer
	formatter         riverrors.Formatter
	metrics           MetricsRecorder
	checkCancellation bool

	frozen     atomic.Bool
	freezeOnce sync.Once

	notFoundChain         []HandlerFunc
	methodNotAllowedChain []HandlerFunc

	pool sync.Pool
}

// WithLogger sets the logger used for request failures and diagnostics.
// A no-op logger is used by default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithTracerProvider enables OpenTelemetry tracing: every request gets a
// server span and [Router.Tracer] hands out tracers from this provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Router) {
		r.tracerProvider = tp
	}
}

// WithErrorFormatter sets the formatter used by [Context.Fail].
// RFC 9457 problem details are used by default.
func WithErrorFormatter(f riverrors.Formatter) Option {
	return func(r *Router) {
		r.formatter = f
	}
}

// WithMetricsRecorder installs a recorder for router-level events.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithoutCancellationCheck disables the context cancellation check between
// handlers of a chain.
func WithoutCancellationCheck() Option {
	return func(r *Router) {
		r.checkCancellation = false
	}
}

// New creates a Router.
//
// Example:
//
//	r, err := router.New(router.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	r.GET("/articles/{id}", getArticle)
func New(opts ...Option) (*Router, error) {
	r := &Router{
		logger:            slog.New(slog.DiscardHandler),
		tracerProvider:    noop.NewTracerProvider(),
		formatter:         riverrors.NewRFC9457(""),
		checkCancellation: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("router configuration validation failed: %w", err)
	}

	r.root = &Route{router: r}
	r.tracer = r.tracerProvider.Tracer(tracerName)
	r.pool.New = func() any {
		return &Context{router: r, index: -1, params: make([]Param, 0, 4)}
	}

	return r, nil
}

// MustNew creates a Router and panics on configuration errors.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("router.MustNew: %v", err))
	}

	return r
}

func (r *Router) validate() error {
	var errs []error
	if r.logger == nil {
		errs = append(errs, ErrNilLogger)
	}
	if r.formatter == nil {
		errs = append(errs, ErrNilFormatter)
	}
	if r.tracerProvider == nil {
		errs = append(errs, errors.New("tracer provider cannot be nil"))
	}

	return errors.Join(errs...)
}

// mustNotBeFrozen panics with an error wrapping ErrRouterFrozen.
func (r *Router) mustNotBeFrozen(action string) {
	if r.frozen.Load() {
		panic(fmt.Errorf("router: cannot %s: %w", action, ErrRouterFrozen))
	}
}

// Root returns the root node of the route tree.
func (r *Router) Root() *Route { return r.root }

// Logger returns the router logger.
func (r *Router) Logger() *slog.Logger { return r.logger }

// Tracer returns a tracer from the configured provider, a no-op tracer when
// tracing is disabled.
func (r *Router) Tracer() trace.Tracer { return r.tracer }

// Formatter returns the error formatter used by [Context.Fail].
func (r *Router) Formatter() riverrors.Formatter { return r.formatter }

// MetricsRecorder returns the configured recorder, or nil.
func (r *Router) MetricsRecorder() MetricsRecorder { return r.metrics }

// Route creates or reuses the node at path under the root and passes it to build.
func (r *Router) Route(path string, build func(*Route)) *Route {
	return r.root.Route(path, build)
}

// Use adds global middleware. It runs before route interceptors and handlers,
// and also for 404 and 405 responses.
func (r *Router) Use(middleware ...HandlerFunc) {
	r.mustNotBeFrozen("add global middleware")
	r.middleware = append(r.middleware, middleware...)
}

// NoRoute sets the handlers for requests that match no route. The default
// writes a plain 404 response.
func (r *Router) NoRoute(handlers ...HandlerFunc) {
	r.mustNotBeFrozen("set the no-route handler")
	r.noRoute = handlers
}

// Handle registers handlers for method at path.
func (r *Router) Handle(method, path string, handlers ...HandlerFunc) *Route {
	return r.root.On(method, path, handlers...)
}

// GET registers handlers for GET requests at path.
func (r *Router) GET(path string, handlers ...HandlerFunc) *Route {
	return r.Handle(http.MethodGet, path, handlers...)
}

// POST registers handlers for POST requests at path.
func (r *Router) POST(path string, handlers ...HandlerFunc) *Route {
	return r.Handle(http.MethodPost, path, handlers...)
}

// PUT registers handlers for PUT requests at path.
func (r *Router) PUT(path string, handlers ...HandlerFunc) *Route {
	return r.Handle(http.MethodPut, path, handlers...)
}

// DELETE registers handlers for DELETE requests at path.
func (r *Router) DELETE(path string, handlers ...HandlerFunc) *Route {
	return r.Handle(http.MethodDelete, path, handlers...)
}

// PATCH registers handlers for PATCH requests at path.
func (r *Router) PATCH(path string, handlers ...HandlerFunc) *Route {
	return r.Handle(http.MethodPatch, path, handlers...)
}

// HEAD registers handlers for HEAD requests at path.
func (r *Router) HEAD(path string, handlers ...HandlerFunc) *Route {
	return r.Handle(http.MethodHead, path, handlers...)
}

// OPTIONS registers handlers for OPTIONS requests at path.
func (r *Router) OPTIONS(path string, handlers ...HandlerFunc) *Route {
	return r.Handle(http.MethodOptions, path, handlers...)
}

// Freeze compiles the handler chains and makes the tree immutable. Further
// registration panics with an error wrapping [ErrRouterFrozen]. Freeze is
// idempotent and is called automatically by the first [Router.ServeHTTP].
func (r *Router) Freeze() {
	r.freezeOnce.Do(r.freeze)
}

// Frozen reports whether the router has been frozen.
func (r *Router) Frozen() bool {
	return r.frozen.Load()
}

func (r *Router) freeze() {
	_ = r.Walk(func(rt *Route) error {
		if !rt.HasHandlers() {
			return nil
		}
		chain := make([]HandlerFunc, 0, len(r.middleware)+len(rt.handlers)+4)
		chain = append(chain, r.middleware...)
		for _, n := range rt.lineage() {
			chain = append(chain, n.interceptors...)
		}
		onMissing := rt.onMissingQuery
		if onMissing == nil {
			onMissing = func(c *Context) { c.Fail(&MissingQueryError{Names: c.MissingQuery()}) }
		}
		rt.missingChain = append(chain[:len(chain):len(chain)], onMissing)
		rt.chain = append(chain, rt.handlers...)

		return nil
	})

	notFound := r.noRoute
	if len(notFound) == 0 {
		notFound = []HandlerFunc{func(c *Context) { c.NotFound() }}
	}
	r.notFoundChain = append(append([]HandlerFunc{}, r.middleware...), notFound...)
	r.methodNotAllowedChain = append(append([]HandlerFunc{}, r.middleware...), func(c *Context) {
		c.MethodNotAllowed(c.allowed)
	})

	r.frozen.Store(true)
	r.logger.Debug("router frozen", "routes", len(r.Routes()))
}

// Walk visits every node in pre-order, children in registration order.
// A non-nil error from fn stops the walk and is returned.
func (r *Router) Walk(fn func(*Route) error) error {
	return walk(r.root, fn)
}

func walk(rt *Route, fn func(*Route) error) error {
	if err := fn(rt); err != nil {
		return err
	}
	for _, c := range rt.children {
		if err := walk(c, fn); err != nil {
			return err
		}
	}

	return nil
}

// Routes lists the registered handler chains in tree order.
func (r *Router) Routes() []RouteInfo {
	var routes []RouteInfo
	_ = r.Walk(func(rt *Route) error {
		if rt.HasHandlers() {
			routes = append(routes, RouteInfo{
				Method:    rt.MethodGuard(),
				Path:      rt.Template(),
				Selectors: rt.String(),
				Handlers:  len(rt.handlers),
			})
		}

		return nil
	})

	return routes
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Freeze()

	ctx, span := r.tracer.Start(req.Context(), req.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
		),
	)
	defer span.End()
	if span.IsRecording() {
		req = req.WithContext(ctx)
	}

	c, ok := r.pool.Get().(*Context)
	if !ok {
		c = &Context{router: r}
	}
	c.reset()
	c.rw.reset(w)
	c.Request = req
	c.Response = &c.rw

	m := r.resolve(req)
	switch {
	case m.route != nil:
		c.route = m.route
		c.params = append(c.params, m.params...)
		c.handlers = m.route.chain
		span.SetName(req.Method + " " + m.route.Template())
		span.SetAttributes(attribute.String("http.route", m.route.Template()))
	case m.incomplete != nil:
		c.route = m.incomplete
		c.params = append(c.params, m.params...)
		c.missing = m.missing
		c.handlers = m.incomplete.missingChain
		span.SetName(req.Method + " " + m.incomplete.Template())
		span.SetAttributes(attribute.String("http.route", m.incomplete.Template()))
	case len(m.allowed) > 0:
		c.allowed = m.allowed
		c.handlers = r.methodNotAllowedChain
	default:
		c.handlers = r.notFoundChain
	}

	c.Next()

	status := c.rw.StatusCode()
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}

	c.reset()
	r.pool.Put(c)
}
