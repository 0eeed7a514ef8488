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
	"encoding"
	"maps"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"rivaas.dev/restkit/binding"
	"rivaas.dev/restkit/router"
)

// Describable marks a struct type as a resource. ResourcePattern returns the
// URL template of the type relative to its parent resource, if any, and must
// be declared on the value receiver.
//
// Example:
//
//	type Articles struct{}
//
//	func (Articles) ResourcePattern() string { return "/articles" }
//
//	type Article struct {
//	    Articles
//	    ID   int    `path:"id"`
//	    Lang string `query:"lang,optional"`
//	}
//
//	func (Article) ResourcePattern() string { return "/{id}" }
type Describable interface {
	ResourcePattern() string
}

var describableType = reflect.TypeFor[Describable]()

// PathTemplate is a parsed URL template.
type PathTemplate struct {
	Raw      string            // Normalized template, e.g. "/articles/{id}"
	Segments []router.Selector // Path selectors in order
}

// String returns the normalized template.
func (p PathTemplate) String() string { return p.Raw }

// Params returns the names of the parameter and tailcard segments in order.
func (p PathTemplate) Params() []string {
	var names []string
	for _, s := range p.Segments {
		switch sel := s.(type) {
		case router.ParameterSelector:
			names = append(names, sel.Name)
		case router.TailcardSelector:
			names = append(names, sel.Name)
		}
	}

	return names
}

// PathField is a struct field bound to a template parameter.
type PathField struct {
	Name  string // Template parameter name
	Field string // Go field name
	Index []int
	Type  reflect.Type
}

// QueryField is a struct field bound to a query parameter.
type QueryField struct {
	Name     string // Query parameter name
	Field    string // Go field name
	Index    []int
	Type     reflect.Type
	Optional bool
}

// Descriptor is the routing schema of a resource type.
type Descriptor struct {
	Type        reflect.Type
	Template    PathTemplate
	PathFields  []PathField  // In template order
	QueryFields []QueryField // In declaration order, inherited fields at the parent's position
	Parent      *Descriptor
}

// Name returns the resource type name.
func (d *Descriptor) Name() string { return d.Type.Name() }

// Selectors returns the path selectors followed by one query selector per
// query field, in the order they are inserted into the route tree.
func (d *Descriptor) Selectors() []router.Selector {
	sels := make([]router.Selector, 0, len(d.Template.Segments)+len(d.QueryFields))
	sels = append(sels, d.Template.Segments...)
	for _, q := range d.QueryFields {
		sels = append(sels, q.selector())
	}

	return sels
}

func (q QueryField) selector() router.Selector {
	if q.Optional {
		return router.OptionalQueryParameterSelector{Name: q.Name}
	}

	return router.QueryParameterSelector{Name: q.Name}
}

type describeResult struct {
	desc *Descriptor
	err  error
}

var (
	// RCU: readers load an immutable map, writers copy and swap under the lock.
	descriptorCachePtr atomic.Pointer[map[reflect.Type]describeResult]
	descriptorCacheMu  sync.Mutex
)

func init() {
	m := make(map[reflect.Type]describeResult)
	descriptorCachePtr.Store(&m)
}

// Describe returns the descriptor of T.
func Describe[T any]() (*Descriptor, error) {
	return DescribeType(reflect.TypeFor[T]())
}

// DescribeType returns the descriptor of t. Results, including schema
// errors, are cached per type.
func DescribeType(t reflect.Type) (*Descriptor, error) {
	if t == nil {
		return nil, schemaErrorf(nil, "nil type")
	}

	m := descriptorCachePtr.Load()
	if r, ok := (*m)[t]; ok {
		return r.desc, r.err
	}

	descriptorCacheMu.Lock()
	defer descriptorCacheMu.Unlock()

	m = descriptorCachePtr.Load()
	if r, ok := (*m)[t]; ok {
		return r.desc, r.err
	}

	desc, err := describe(t)
	r := describeResult{desc: desc}
	if err != nil {
		r = describeResult{err: err}
	}

	newMap := make(map[reflect.Type]describeResult, len(*m)+1)
	maps.Copy(newMap, *m)
	newMap[t] = r
	descriptorCachePtr.Store(&newMap)

	return r.desc, r.err
}

// DeriveTemplate returns the URL template of resource type t.
func DeriveTemplate(t reflect.Type) (PathTemplate, error) {
	d, err := DescribeType(t)
	if err != nil {
		return PathTemplate{}, err
	}

	return d.Template, nil
}

// DeriveQueryFields returns the query fields of resource type t in
// declaration order.
func DeriveQueryFields(t reflect.Type) ([]QueryField, error) {
	d, err := DescribeType(t)
	if err != nil {
		return nil, err
	}

	return d.QueryFields, nil
}

// describe builds the descriptor of t. It is called with the cache lock held
// and recurses into parents without going through the cache.
func describe(t reflect.Type) (*Descriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, schemaErrorf(t, "resource must be a struct, got %s", t.Kind())
	}
	if !t.Implements(describableType) {
		return nil, schemaErrorf(t, "does not implement resource.Describable (ResourcePattern on the value receiver)")
	}

	d := &Descriptor{Type: t}
	var paths []PathField
	if err := collectFields(t, t, nil, d, &paths); err != nil {
		return nil, err
	}

	own := reflect.Zero(t).Interface().(Describable).ResourcePattern()
	raw := own
	if d.Parent != nil {
		// A type without its own ResourcePattern sees the parent's promoted one.
		if own == reflect.Zero(d.Parent.Type).Interface().(Describable).ResourcePattern() {
			own = ""
		}
		raw = joinTemplate(d.Parent.Template.Raw, own)
	}

	segments, err := router.ParseTemplate(raw)
	if err != nil {
		return nil, schemaErrorf(t, "%v", err)
	}
	d.Template = PathTemplate{Raw: router.FormatTemplate(segments), Segments: segments}

	byName := make(map[string]PathField, len(paths))
	for _, p := range paths {
		if _, dup := byName[p.Name]; dup {
			return nil, schemaErrorf(t, "duplicate path field %q", p.Name)
		}
		byName[p.Name] = p
	}
	for _, name := range d.Template.Params() {
		p, ok := byName[name]
		if !ok {
			return nil, schemaErrorf(t, "template parameter {%s} has no field tagged path:%q", name, name)
		}
		d.PathFields = append(d.PathFields, p)
		delete(byName, name)
	}
	for _, p := range paths {
		if _, left := byName[p.Name]; left {
			return nil, schemaErrorf(t, "field %s tagged path:%q is not in template %q", p.Field, p.Name, d.Template.Raw)
		}
	}

	seen := make(map[string]bool, len(d.QueryFields))
	for _, q := range d.QueryFields {
		if seen[q.Name] {
			return nil, schemaErrorf(t, "duplicate query field %q", q.Name)
		}
		seen[q.Name] = true
	}

	return d, nil
}

// collectFields walks the fields of st in declaration order. Embedded
// resources become the parent of d; other embedded structs are flattened.
func collectFields(root, st reflect.Type, prefix []int, d *Descriptor, paths *[]PathField) error {
	for i := range st.NumField() {
		f := st.Field(i)
		index := append(append([]int(nil), prefix...), i)

		_, hasPath := f.Tag.Lookup(binding.TagPath)
		_, hasQuery := f.Tag.Lookup(binding.TagQuery)

		if f.Anonymous && !hasPath && !hasQuery {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				if ft.Elem().Kind() == reflect.Struct && ft.Implements(describableType) {
					return schemaErrorf(root, "parent resource %s must be embedded by value", ft.Elem())
				}
				continue
			}
			if ft.Kind() != reflect.Struct {
				continue
			}
			if ft.Implements(describableType) {
				if d.Parent != nil {
					return schemaErrorf(root, "more than one parent resource (%s, %s)", d.Parent.Type, ft)
				}
				parent, err := describe(ft)
				if err != nil {
					return err
				}
				d.Parent = parent
				for _, p := range parent.PathFields {
					p.Index = append(append([]int(nil), index...), p.Index...)
					*paths = append(*paths, p)
				}
				for _, q := range parent.QueryFields {
					q.Index = append(append([]int(nil), index...), q.Index...)
					d.QueryFields = append(d.QueryFields, q)
				}

				continue
			}
			if err := collectFields(root, ft, index, d, paths); err != nil {
				return err
			}

			continue
		}

		if !f.IsExported() {
			continue
		}
		if hasPath && hasQuery {
			return schemaErrorf(root, "field %s has both path and query tags", f.Name)
		}

		if hasPath {
			name, _ := tagName(f, binding.TagPath)
			if name == "" {
				continue
			}
			if k := derefKind(f.Type); k == reflect.Slice || k == reflect.Map {
				return schemaErrorf(root, "path field %s must be a scalar, got %s", f.Name, f.Type)
			}
			*paths = append(*paths, PathField{Name: name, Field: f.Name, Index: index, Type: f.Type})

			continue
		}

		if hasQuery {
			name, optional := tagName(f, binding.TagQuery)
			if name == "" {
				continue
			}
			if isNestedStruct(f.Type) {
				return schemaErrorf(root, "query field %s: nested structs are not supported", f.Name)
			}
			k := f.Type.Kind()
			optional = optional || k == reflect.Pointer || k == reflect.Slice || f.Tag.Get("default") != ""
			d.QueryFields = append(d.QueryFields, QueryField{
				Name:     name,
				Field:    f.Name,
				Index:    index,
				Type:     f.Type,
				Optional: optional,
			})
		}
	}

	return nil
}

// tagName returns the parameter name of a `path` or `query` tag and whether
// it carries the optional (or omitempty) modifier. "-" yields "".
func tagName(f reflect.StructField, tag string) (string, bool) {
	raw := f.Tag.Get(tag)
	if raw == "-" {
		return "", false
	}
	parts := strings.Split(raw, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		name = f.Name
	}
	optional := false
	for _, p := range parts[1:] {
		switch strings.TrimSpace(p) {
		case "optional", "omitempty":
			optional = true
		}
	}

	return name, optional
}

func derefKind(t reflect.Type) reflect.Kind {
	if t.Kind() == reflect.Pointer {
		return t.Elem().Kind()
	}

	return t.Kind()
}

var (
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	urlType             = reflect.TypeFor[url.URL]()
)

// isNestedStruct reports whether t is a struct bound field by field rather
// than converted from a single value.
func isNestedStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}

	return t != urlType && !reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func joinTemplate(parent, child string) string {
	if child == "" {
		return parent
	}

	return strings.TrimSuffix(parent, "/") + "/" + strings.TrimPrefix(child, "/")
}
