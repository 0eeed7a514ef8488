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

// Package resource routes typed resources: Go structs whose URL template and
// query parameters are declared on the type itself.
//
// A resource implements [Describable] and tags its fields with `path` for
// template parameters and `query` for query parameters. Query parameters are
// required unless the field is a pointer or a slice, has a `default` tag, or
// its tag carries the optional modifier. A resource embedding another one is
// nested below it and inherits its fields.
//
//	type Articles struct{}
//
//	func (Articles) ResourcePattern() string { return "/articles" }
//
//	type Article struct {
//	    Articles
//	    ID   int     `path:"id" validate:"min=1"`
//	    Lang *string `query:"lang"`
//	}
//
//	func (Article) ResourcePattern() string { return "/{id}" }
//
// Registering a handler inserts the template's path nodes, then one query
// node per query field in declaration order, then a method node:
//
//	resource.MustHandle(r.Root(), http.MethodGet, func(c *router.Context, a Article) {
//	    _ = c.JSON(http.StatusOK, store.Get(a.ID))
//	})
//
// Each request is decoded into a fresh value and passed to the handler.
// Missing required parameters, malformed values and failed validation are
// answered with a 400 problem response without calling the handler.
// [Href] builds the URL of a resource value, the inverse of decoding.
package resource
