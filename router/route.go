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
	"fmt"
	"net/http"
	"strings"
)

// Route is a node of the route tree. The path from the root to a node is a
// sequence of selectors; a node may carry a handler chain and interceptors
// that run before the handlers of the node and every descendant.
//
// Routes are built during the single-threaded configuration phase. Every
// mutating method panics once the owning router is frozen.
type Route struct {
	router       *Router
	parent       *Route
	selector     Selector
	children     []*Route
	handlers     []HandlerFunc
	interceptors []HandlerFunc

	// onMissingQuery answers requests that reach this node without some of
	// its required query parameters.
	onMissingQuery HandlerFunc

	// chain is compiled by Router.Freeze: global middleware, interceptors
	// from the root down, then handlers. missingChain is the same with
	// the missing-query handler in place of the handlers.
	chain        []HandlerFunc
	missingChain []HandlerFunc
}

// Router returns the router owning this node.
func (rt *Route) Router() *Router { return rt.router }

// Parent returns the parent node, or nil for the root.
func (rt *Route) Parent() *Route { return rt.parent }

// Selector returns the selector of the edge leading to this node, nil for the root.
func (rt *Route) Selector() Selector { return rt.selector }

// Children returns the child nodes in registration order.
// The returned slice must not be modified.
func (rt *Route) Children() []*Route { return rt.children }

// HasHandlers reports whether a handler chain is attached to the node.
func (rt *Route) HasHandlers() bool { return len(rt.handlers) > 0 }

// Child returns the child reached through sel, creating it if needed.
// Existing children are matched by selector equality, never duplicated.
func (rt *Route) Child(sel Selector) *Route {
	if sel == nil {
		panic("router: nil selector")
	}
	for _, c := range rt.children {
		if c.selector == sel {
			return c
		}
	}

	rt.router.mustNotBeFrozen("add " + sel.String() + " under " + rt.String())
	child := &Route{router: rt.router, parent: rt, selector: sel}
	rt.children = append(rt.children, child)

	return child
}

// Path creates or reuses the chain of nodes for a template such as
// "/articles/{id}" and returns the last one. It panics on an invalid
// template; use [ParseTemplate] first to handle the error.
func (rt *Route) Path(template string) *Route {
	selectors, err := ParseTemplate(template)
	if err != nil {
		panic("router: " + err.Error())
	}

	return rt.Selectors(selectors...)
}

// Selectors walks or creates the nested chain of nodes for selectors in order.
func (rt *Route) Selectors(selectors ...Selector) *Route {
	node := rt
	for _, sel := range selectors {
		node = node.Child(sel)
	}

	return node
}

// Method returns the child guarded by the HTTP method.
func (rt *Route) Method(method string) *Route {
	if method == "" {
		panic("router: " + ErrInvalidMethod.Error())
	}

	return rt.Child(MethodSelector{Method: strings.ToUpper(method)})
}

// Handle attaches the handler chain to this node. A node has at most one
// chain; a second call panics with [ErrDuplicateHandler].
func (rt *Route) Handle(handlers ...HandlerFunc) *Route {
	rt.router.mustNotBeFrozen("attach handlers to " + rt.String())
	if len(handlers) == 0 {
		panic("router: " + ErrNoHandlers.Error() + " for " + rt.String())
	}
	if rt.HasHandlers() {
		panic(fmt.Sprintf("router: %v: %s", ErrDuplicateHandler, rt))
	}
	rt.handlers = handlers

	return rt
}

// OnMissingQuery sets the handler for requests that match this node except
// for one or more required query parameters, when no other node matches.
// By default such requests fail with a 400 [*MissingQueryError].
func (rt *Route) OnMissingQuery(h HandlerFunc) *Route {
	rt.router.mustNotBeFrozen("set missing query handler of " + rt.String())
	rt.onMissingQuery = h

	return rt
}

// Use adds interceptors that run before the handlers of this node and all
// of its descendants, after the interceptors of its ancestors.
func (rt *Route) Use(middleware ...HandlerFunc) *Route {
	rt.router.mustNotBeFrozen("add interceptors to " + rt.String())
	rt.interceptors = append(rt.interceptors, middleware...)

	return rt
}

// On registers handlers for method at path below this node.
func (rt *Route) On(method, path string, handlers ...HandlerFunc) *Route {
	return rt.Path(path).Method(method).Handle(handlers...)
}

// GET registers handlers for GET requests at path below this node.
func (rt *Route) GET(path string, handlers ...HandlerFunc) *Route {
	return rt.On(http.MethodGet, path, handlers...)
}

// POST registers handlers for POST requests at path below this node.
func (rt *Route) POST(path string, handlers ...HandlerFunc) *Route {
	return rt.On(http.MethodPost, path, handlers...)
}

// PUT registers handlers for PUT requests at path below this node.
func (rt *Route) PUT(path string, handlers ...HandlerFunc) *Route {
	return rt.On(http.MethodPut, path, handlers...)
}

// DELETE registers handlers for DELETE requests at path below this node.
func (rt *Route) DELETE(path string, handlers ...HandlerFunc) *Route {
	return rt.On(http.MethodDelete, path, handlers...)
}

// PATCH registers handlers for PATCH requests at path below this node.
func (rt *Route) PATCH(path string, handlers ...HandlerFunc) *Route {
	return rt.On(http.MethodPatch, path, handlers...)
}

// HEAD registers handlers for HEAD requests at path below this node.
func (rt *Route) HEAD(path string, handlers ...HandlerFunc) *Route {
	return rt.On(http.MethodHead, path, handlers...)
}

// OPTIONS registers handlers for OPTIONS requests at path below this node.
func (rt *Route) OPTIONS(path string, handlers ...HandlerFunc) *Route {
	return rt.On(http.MethodOptions, path, handlers...)
}

// Route creates or reuses the node at path and passes it to build.
//
// Example:
//
//	r.Route("/articles", func(articles *router.Route) {
//	    articles.GET("/", listArticles)
//	    articles.GET("/{id}", getArticle)
//	})
func (rt *Route) Route(path string, build func(*Route)) *Route {
	node := rt.Path(path)
	if build != nil {
		build(node)
	}

	return node
}

// lineage returns the nodes from the root down to rt.
func (rt *Route) lineage() []*Route {
	var nodes []*Route
	for n := rt; n != nil; n = n.parent {
		nodes = append(nodes, n)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	return nodes
}

// selectors returns the selectors from the root down to rt.
func (rt *Route) selectors() []Selector {
	var sels []Selector
	for _, n := range rt.lineage() {
		if n.selector != nil {
			sels = append(sels, n.selector)
		}
	}

	return sels
}

// Template returns the URL path template of the node, e.g. "/articles/{id}".
// Query and method selectors are not part of it.
func (rt *Route) Template() string {
	return FormatTemplate(rt.selectors())
}

// MethodGuard returns the method of the closest method selector on the path
// from the root, or "" when the node accepts any method.
func (rt *Route) MethodGuard() string {
	for n := rt; n != nil; n = n.parent {
		if m, ok := n.selector.(MethodSelector); ok {
			return m.Method
		}
	}

	return ""
}

// String renders every selector of the node's path, for example
// "/articles/{id}/[q]/[r?]/(method:GET)".
func (rt *Route) String() string {
	sels := rt.selectors()
	if len(sels) == 0 {
		return "/"
	}
	parts := make([]string, len(sels))
	for i, s := range sels {
		parts[i] = s.String()
	}

	return "/" + strings.Join(parts, "/")
}
