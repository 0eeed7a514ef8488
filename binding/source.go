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

package binding

import (
	"net/url"
	"strings"
)

// Tag name constants for struct tags used in binding.
const (
	TagQuery = "query" // Query parameter struct tag
	TagPath  = "path"  // URL path parameter struct tag
)

// ValueGetter abstracts different sources of input values for binding.
//
// Implementers must distinguish between "key present with empty value" and
// "key not present":
//   - "?name=" gives Has("name") = true, Get("name") = ""
//   - "?foo=bar" gives Has("name") = false
//
// Required-field checks and default values depend on this distinction.
type ValueGetter interface {
	// Get returns the first value for the given key, or an empty string if not present.
	Get(key string) string

	// GetAll returns all values for the given key, or nil if not present.
	GetAll(key string) []string

	// Has returns true if the key is present, even if its value is empty.
	Has(key string) bool
}

// GetterFunc is a function adapter that implements [ValueGetter].
//
// Example:
//
//	getter := binding.GetterFunc(func(key string) ([]string, bool) {
//	    v, ok := labels[key]
//	    return []string{v}, ok
//	})
//	err := binding.Raw(getter, "label", &result)
type GetterFunc func(key string) (values []string, has bool)

// Get returns the first value for the key.
func (f GetterFunc) Get(key string) string {
	values, has := f(key)
	if has && len(values) > 0 {
		return values[0]
	}

	return ""
}

// GetAll returns all values for the key.
func (f GetterFunc) GetAll(key string) []string {
	values, _ := f(key)
	return values
}

// Has returns whether the key exists.
func (f GetterFunc) Has(key string) bool {
	_, has := f(key)
	return has
}

// QueryGetter implements [ValueGetter] for URL query parameters.
type QueryGetter struct {
	values url.Values
}

// NewQueryGetter creates a [QueryGetter] from url.Values.
func NewQueryGetter(v url.Values) *QueryGetter {
	return &QueryGetter{values: v}
}

// Get returns the first value for the key.
func (q *QueryGetter) Get(key string) string {
	if v := q.values.Get(key); v != "" || q.values.Has(key) {
		return v
	}

	return q.values.Get(key + "[]")
}

// GetAll returns all values for the key. Repeated keys ("ids=1&ids=2") and
// bracket notation ("ids[]=1&ids[]=2") are both accepted.
func (q *QueryGetter) GetAll(key string) []string {
	if vals := q.values[key]; len(vals) > 0 {
		return vals
	}

	return q.values[key+"[]"]
}

// Has returns whether the key exists.
func (q *QueryGetter) Has(key string) bool {
	return q.values.Has(key) || q.values.Has(key+"[]")
}

// hasPrefix reports whether any key starts with prefix.
func (q *QueryGetter) hasPrefix(prefix string) bool {
	for k := range q.values {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}

	return false
}

// PathGetter implements [ValueGetter] for URL path parameters.
type PathGetter struct {
	params map[string]string
}

// NewPathGetter creates a [PathGetter] from a map of path parameters.
func NewPathGetter(p map[string]string) *PathGetter {
	return &PathGetter{params: p}
}

// Get returns the value for the key.
func (p *PathGetter) Get(key string) string {
	return p.params[key]
}

// GetAll returns the value as a single element slice, or nil if absent.
func (p *PathGetter) GetAll(key string) []string {
	if val, ok := p.params[key]; ok {
		return []string{val}
	}

	return nil
}

// Has returns whether the key exists.
func (p *PathGetter) Has(key string) bool {
	_, ok := p.params[key]
	return ok
}

// prefixGetter scopes lookups to "prefix.key" for nested struct binding:
// ?author.name=ann&author.email=a@b.c
type prefixGetter struct {
	inner  ValueGetter
	prefix string
}

func (pg *prefixGetter) Get(key string) string {
	return pg.inner.Get(pg.prefix + key)
}

func (pg *prefixGetter) GetAll(key string) []string {
	return pg.inner.GetAll(pg.prefix + key)
}

func (pg *prefixGetter) Has(key string) bool {
	full := pg.prefix + key
	if pg.inner.Has(full) {
		return true
	}

	return anyKeyWithPrefix(pg.inner, full+".")
}

// anyKeyWithPrefix reports whether the getter holds a key starting with prefix.
// Only getters that can enumerate keys are inspected.
func anyKeyWithPrefix(g ValueGetter, prefix string) bool {
	switch v := g.(type) {
	case *QueryGetter:
		return v.hasPrefix(prefix)
	case *prefixGetter:
		return anyKeyWithPrefix(v.inner, v.prefix+prefix)
	default:
		return false
	}
}
