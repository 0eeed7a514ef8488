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

package resource

import (
	"errors"
	"fmt"
	"net/http"

	"rivaas.dev/restkit/router"
)

// ErrNilHandler indicates a nil resource handler.
var ErrNilHandler = errors.New("resource handler cannot be nil")

// Handler handles a request for a decoded resource.
type Handler[T any] func(c *router.Context, res T)

// contextKey stores the decoded T in the request context. Each T gets its
// own key type, so keys never collide across resources.
type contextKey[T any] struct{}

// Register inserts the route nodes of resource T below parent and returns
// the leaf: the template's path nodes followed by one query node per query
// field, in declaration order. Existing nodes are reused, so registering the
// same type twice yields the same leaf.
//
// Errors:
//   - [*SchemaError]: T is not a routable resource
//   - [router.ErrRouterFrozen]: the router no longer accepts routes
func Register[T any](parent *router.Route) (*router.Route, error) {
	d, err := Describe[T]()
	if err != nil {
		return nil, err
	}

	return register(parent, d)
}

func register(parent *router.Route, d *Descriptor) (*router.Route, error) {
	if parent == nil {
		return nil, fmt.Errorf("resource %s: nil parent route", d.Name())
	}
	if parent.Router().Frozen() {
		return nil, fmt.Errorf("resource %s: %w", d.Name(), router.ErrRouterFrozen)
	}

	return parent.Selectors(d.Selectors()...), nil
}

// MustRegister is like [Register] but panics on error. Use it in startup code.
func MustRegister[T any](parent *router.Route) *router.Route {
	rt, err := Register[T](parent)
	if err != nil {
		panic(fmt.Sprintf("resource.MustRegister: %v", err))
	}

	return rt
}

// Handle registers h for method on resource T below parent. Each matching
// request is decoded into a T, which is stored in the request context and
// passed to h. Requests that cannot be decoded or validated, including
// requests that match the path but lack a required query parameter, are
// rejected with a 400 problem response and h is not called.
//
// Example:
//
//	_, err := resource.Handle(r.Root(), http.MethodGet, func(c *router.Context, a Article) {
//	    _ = c.JSON(http.StatusOK, store.Get(a.ID))
//	})
func Handle[T any](parent *router.Route, method string, h Handler[T], opts ...Option) (*router.Route, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if method == "" {
		return nil, router.ErrInvalidMethod
	}

	d, err := Describe[T]()
	if err != nil {
		return nil, err
	}
	node, err := register(parent, d)
	if err != nil {
		return nil, err
	}

	leaf := node.Method(method)
	if leaf.HasHandlers() {
		return nil, fmt.Errorf("resource %s: %s: %w", d.Name(), leaf, router.ErrDuplicateHandler)
	}
	cfg := newConfig(d, opts)
	leaf.Handle(dispatch(d, cfg, h))
	leaf.OnMissingQuery(rejectIncomplete[T](d, cfg))

	return leaf, nil
}

// MustHandle is like [Handle] but panics on error.
func MustHandle[T any](parent *router.Route, method string, h Handler[T], opts ...Option) *router.Route {
	rt, err := Handle(parent, method, h, opts...)
	if err != nil {
		panic(fmt.Sprintf("resource.MustHandle: %v", err))
	}

	return rt
}

// Get registers a GET handler for resource T. See [Handle].
func Get[T any](parent *router.Route, h Handler[T], opts ...Option) (*router.Route, error) {
	return Handle(parent, http.MethodGet, h, opts...)
}

// Post registers a POST handler for resource T. See [Handle].
func Post[T any](parent *router.Route, h Handler[T], opts ...Option) (*router.Route, error) {
	return Handle(parent, http.MethodPost, h, opts...)
}

// Put registers a PUT handler for resource T. See [Handle].
func Put[T any](parent *router.Route, h Handler[T], opts ...Option) (*router.Route, error) {
	return Handle(parent, http.MethodPut, h, opts...)
}

// Delete registers a DELETE handler for resource T. See [Handle].
func Delete[T any](parent *router.Route, h Handler[T], opts ...Option) (*router.Route, error) {
	return Handle(parent, http.MethodDelete, h, opts...)
}

// Patch registers a PATCH handler for resource T. See [Handle].
func Patch[T any](parent *router.Route, h Handler[T], opts ...Option) (*router.Route, error) {
	return Handle(parent, http.MethodPatch, h, opts...)
}

// Head registers a HEAD handler for resource T. See [Handle].
func Head[T any](parent *router.Route, h Handler[T], opts ...Option) (*router.Route, error) {
	return Handle(parent, http.MethodHead, h, opts...)
}

// Options registers an OPTIONS handler for resource T. See [Handle].
func Options[T any](parent *router.Route, h Handler[T], opts ...Option) (*router.Route, error) {
	return Handle(parent, http.MethodOptions, h, opts...)
}

// rejectIncomplete answers requests routed to the resource without some of
// its required query parameters. The decode step reports them as missing
// fields; the handler is never called.
func rejectIncomplete[T any](d *Descriptor, cfg *config) router.HandlerFunc {
	return func(c *router.Context) {
		_, err := decode[T](c, d, cfg)
		if err == nil {
			err = &BadRequestError{Resource: d.Name(), Err: &router.MissingQueryError{Names: c.MissingQuery()}}
		}
		if m := c.Router().MetricsRecorder(); m != nil {
			m.RecordDecodeFailure(c.RequestContext(), d.Name())
		}
		c.Fail(err)
	}
}

// dispatch decodes T, stores it in the request context and calls h.
func dispatch[T any](d *Descriptor, cfg *config, h Handler[T]) router.HandlerFunc {
	return func(c *router.Context) {
		res, err := decode[T](c, d, cfg)
		if err != nil {
			if m := c.Router().MetricsRecorder(); m != nil {
				m.RecordDecodeFailure(c.RequestContext(), d.Name())
			}
			c.Fail(err)

			return
		}
		c.SetValue(contextKey[T]{}, res)
		h(c, res)
	}
}
