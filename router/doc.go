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

// Package router provides an HTTP router built on a tree of selectors.
//
// Every edge of the tree is a [Selector]: a literal segment, a path
// parameter, a tailcard capturing the rest of the path, a required or
// optional query parameter, or an HTTP method guard. Selectors are
// comparable values, so registering the same path twice reuses the nodes
// created the first time.
//
// # Resolution
//
// A request is resolved depth-first. Each selector on the way contributes a
// quality: 1.0 for a literal segment or a present query parameter, 0.8 for a
// path parameter, 0.2 for a missing optional query parameter and 0.1 for a
// tailcard. Method guards are transparent. Among the handler nodes that match
// the path, the query and the method, the one with the best quality vector
// wins; ties go to the node registered first. A path that only matched under
// other methods answers 405 with an Allow header, anything else 404.
//
// # Freezing
//
// Routes are registered during a single-threaded configuration phase.
// [Router.Freeze], or the first request, compiles each handler chain
// (global middleware, interceptors from the root down, handlers) and makes
// the tree immutable. Registering afterwards panics with an error wrapping
// [ErrRouterFrozen].
//
// # Quick Start
//
//	r := router.MustNew()
//
//	r.GET("/articles/{id}", func(c *router.Context) {
//	    _ = c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
//	})
//
//	r.Route("/files", func(files *router.Route) {
//	    files.Use(requireAuth)
//	    files.GET("/{path...}", serveFile)
//	})
//
//	http.ListenAndServe(":8080", r)
//
// Typed resources, whose URL template and query parameters are derived from
// a Go struct, are registered through the resource package.
package router
