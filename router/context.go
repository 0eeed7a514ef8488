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
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"

	riverrors "rivaas.dev/restkit/errors"
)

// HandlerFunc handles a request, or intercepts it when used as middleware.
type HandlerFunc func(*Context)

// Param is one captured path parameter.
type Param struct {
	Key   string
	Value string
}

// Context carries the state of one request through its handler chain.
//
// Context is NOT thread-safe and is pooled: it must not be retained or used
// from other goroutines after the handler returns. Copy the values you need
// before starting background work.
type Context struct {
	Request  *http.Request
	Response http.ResponseWriter

	router   *Router
	route    *Route
	handlers []HandlerFunc
	index    int
	aborted  bool

	params  []Param
	query   url.Values
	errors  []error
	allowed []string
	missing []string

	rw responseWriter
}

// Next runs the remaining handlers of the chain. Middleware calls it to
// continue processing; the chain stops early when aborted or when the request
// context is done.
//
// Example:
//
//	func Timing() router.HandlerFunc {
//	    return func(c *router.Context) {
//	        start := time.Now()
//	        c.Next()
//	        c.Logger().Info("request", "duration", time.Since(start))
//	    }
//	}
func (c *Context) Next() {
	c.index++
	for c.index < len(c.handlers) {
		if c.aborted {
			return
		}
		if c.router.checkCancellation && c.Request.Context().Err() != nil {
			return
		}
		c.handlers[c.index](c)
		c.index++
	}
}

// Abort stops the handler chain. Handlers that already ran are not affected.
func (c *Context) Abort() {
	c.aborted = true
}

// IsAborted returns true if the handler chain has been aborted.
func (c *Context) IsAborted() bool {
	return c.aborted
}

// Param returns the captured path parameter, or "" when absent.
func (c *Context) Param(key string) string {
	for _, p := range c.params {
		if p.Key == key {
			return p.Value
		}
	}

	return ""
}

// Params returns a copy of the captured path parameters.
func (c *Context) Params() map[string]string {
	m := make(map[string]string, len(c.params))
	for _, p := range c.params {
		m[p.Key] = p.Value
	}

	return m
}

// Query returns the first value of the query parameter, or "".
func (c *Context) Query(key string) string {
	return c.QueryValues().Get(key)
}

// QueryValues returns the parsed query string. The map is shared with the
// router and must not be modified.
func (c *Context) QueryValues() url.Values {
	if c.query == nil {
		c.query = c.Request.URL.Query()
	}

	return c.query
}

// Route returns the matched route node, or nil for 404 and 405 responses.
func (c *Context) Route() *Route {
	return c.route
}

// Router returns the router serving the request.
func (c *Context) Router() *Router {
	return c.router
}

// RoutePattern returns the template of the matched route, e.g. "/articles/{id}".
// Returns "" when no route matched.
func (c *Context) RoutePattern() string {
	if c.route == nil {
		return ""
	}

	return c.route.Template()
}

// Logger returns the router logger. It is never nil.
func (c *Context) Logger() *slog.Logger {
	return c.router.logger
}

// RequestContext returns the request's context.Context.
func (c *Context) RequestContext() context.Context {
	if c.Request != nil {
		return c.Request.Context()
	}

	return context.Background()
}

// SetValue stores value in the request context under key. Later handlers
// read it back with [Context.Value] or from Request.Context().
func (c *Context) SetValue(key, value any) {
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), key, value))
}

// Value returns the value stored under key in the request context.
func (c *Context) Value(key any) any {
	return c.RequestContext().Value(key)
}

// Status sets the HTTP status code of the response.
func (c *Context) Status(code int) {
	c.Response.WriteHeader(code)
}

// Header sets a response header.
func (c *Context) Header(key, value string) {
	c.Response.Header().Set(key, value)
}

// StatusCode returns the status written so far, 200 when nothing was written.
func (c *Context) StatusCode() int {
	return c.rw.StatusCode()
}

// Written reports whether the response headers were sent.
func (c *Context) Written() bool {
	return c.rw.Written()
}

// JSON writes obj as JSON with the given status. Encoding happens before the
// headers are written, so an encoding error leaves the response untouched.
func (c *Context) JSON(code int, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Response.WriteHeader(code)
	_, err = c.Response.Write(append(data, '\n'))

	return err
}

// String writes a plain text response.
func (c *Context) String(code int, value string) error {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Response.WriteHeader(code)
	_, err := io.WriteString(c.Response, value)

	return err
}

// NoContent writes a 204 No Content response.
func (c *Context) NoContent() {
	c.Response.WriteHeader(http.StatusNoContent)
}

// Error records err for middleware further up the chain. It does not write
// a response; see [Context.Fail].
func (c *Context) Error(err error) {
	if err == nil {
		return
	}
	c.errors = append(c.errors, err)
}

// Errors returns the errors recorded during the request, or nil.
func (c *Context) Errors() []error {
	return c.errors
}

// HasErrors returns true if any errors were recorded.
func (c *Context) HasErrors() bool {
	return len(c.errors) > 0
}

// Fail records err, writes it with the router's error formatter (RFC 9457
// problem details unless configured otherwise) and aborts the chain.
// The status comes from the error's HTTPStatus method, 500 otherwise.
//
// Example:
//
//	article, err := store.Get(c.RequestContext(), id)
//	if err != nil {
//	    c.Fail(errors.WithStatus(err, http.StatusNotFound))
//	    return
//	}
func (c *Context) Fail(err error) {
	if err == nil {
		return
	}
	c.Error(err)
	c.Abort()

	resp := c.router.formatter.Format(c.Request, err)

	level := slog.LevelDebug
	if resp.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	c.Logger().Log(c.RequestContext(), level, "request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", resp.Status,
		"error", err.Error(),
	)

	if c.rw.Written() {
		c.Logger().Warn("response already written, dropping error response",
			"path", c.Request.URL.Path,
			"status", resp.Status,
		)

		return
	}
	if werr := riverrors.Write(c.Response, resp); werr != nil {
		c.Logger().Error("failed to write error response", "error", werr)
	}
}

// NotFound writes a 404 Not Found response.
func (c *Context) NotFound() {
	c.writePlain(http.StatusNotFound, "Not Found")
}

// MethodNotAllowed writes a 405 response with a sorted Allow header.
func (c *Context) MethodNotAllowed(allowed []string) {
	sorted := slices.Clone(allowed)
	slices.Sort(sorted)
	c.Header("Allow", strings.Join(slices.Compact(sorted), ", "))
	c.writePlain(http.StatusMethodNotAllowed, "Method Not Allowed")
}

// AllowedMethods returns the methods registered for the request path when
// the router answers 405, nil otherwise.
func (c *Context) AllowedMethods() []string {
	return c.allowed
}

// MissingQuery returns the required query parameters absent from the
// request when the router dispatched it to a missing-query handler, nil
// otherwise.
func (c *Context) MissingQuery() []string {
	return c.missing
}

func (c *Context) writePlain(status int, message string) {
	if c.rw.Written() {
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Response.WriteHeader(status)
	_, _ = io.WriteString(c.Response, message+"\n")
}

func (c *Context) reset() {
	c.Request = nil
	c.Response = nil
	c.route = nil
	c.handlers = nil
	c.index = -1
	c.aborted = false
	c.params = c.params[:0]
	c.query = nil
	c.errors = nil
	c.allowed = nil
	c.missing = nil
	c.rw.reset(nil)
}

// responseWriter wraps http.ResponseWriter to capture status code and size.
// It also prevents "superfluous response.WriteHeader call" errors.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

func (rw *responseWriter) reset(w http.ResponseWriter) {
	rw.ResponseWriter = w
	rw.statusCode = 0
	rw.size = 0
	rw.written = false
}

// WriteHeader captures the status code and ignores duplicate calls.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.written {
		return
	}
	rw.statusCode = code
	rw.written = true
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and marks the headers as written.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)

	return n, err
}

// StatusCode returns the HTTP status code, 200 if none was written.
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}

	return rw.statusCode
}

// Size returns the response size in bytes.
func (rw *responseWriter) Size() int64 { return rw.size }

// Written returns true if headers have been written.
func (rw *responseWriter) Written() bool { return rw.written }

// Unwrap supports http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Hijack implements http.Hijacker.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}

	return nil, nil, ErrResponseWriterNotHijacker
}

// Flush implements http.Flusher.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
