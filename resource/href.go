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
	"fmt"
	"net/url"
	"strings"

	"rivaas.dev/restkit/binding"
	"rivaas.dev/restkit/router"
)

// Href returns the relative URL of res: its template expanded with the
// escaped path values, followed by the query fields. Absent optional query
// fields are omitted.
//
// Example:
//
//	href, _ := resource.Href(Article{ID: 42, Lang: "en"})
//	// href == "/articles/42?lang=en"
func Href[T any](res T) (string, error) {
	u, err := URL(res)
	if err != nil {
		return "", err
	}

	return u.String(), nil
}

// URL is like [Href] but returns a *url.URL.
func URL[T any](res T) (*url.URL, error) {
	d, err := Describe[T]()
	if err != nil {
		return nil, err
	}

	pathValues, err := binding.Encode(res, binding.TagPath)
	if err != nil {
		return nil, fmt.Errorf("resource %s: encode path: %w", d.Name(), err)
	}

	var path, rawPath strings.Builder
	write := func(decoded, escaped string) {
		path.WriteByte('/')
		path.WriteString(decoded)
		rawPath.WriteByte('/')
		rawPath.WriteString(escaped)
	}
	for _, seg := range d.Template.Segments {
		switch sel := seg.(type) {
		case router.ConstantSelector:
			write(sel.Value, url.PathEscape(sel.Value))
		case router.ParameterSelector:
			v := pathValues.Get(sel.Name)
			if v == "" {
				return nil, fmt.Errorf("resource %s: %w: {%s}", d.Name(), ErrMissingPathValue, sel.Name)
			}
			write(v, url.PathEscape(v))
		case router.TailcardSelector:
			v := pathValues.Get(sel.Name)
			if v == "" {
				continue
			}
			parts := strings.Split(v, "/")
			for i, p := range parts {
				parts[i] = url.PathEscape(p)
			}
			write(v, strings.Join(parts, "/"))
		}
	}

	u := &url.URL{Path: path.String(), RawPath: rawPath.String()}
	if u.Path == "" {
		u.Path, u.RawPath = "/", ""
	}
	if u.RawPath == u.Path {
		u.RawPath = ""
	}

	if len(d.QueryFields) > 0 {
		query, err := binding.Encode(res, binding.TagQuery)
		if err != nil {
			return nil, fmt.Errorf("resource %s: encode query: %w", d.Name(), err)
		}
		u.RawQuery = query.Encode()
	}

	return u, nil
}
