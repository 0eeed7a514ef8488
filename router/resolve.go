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
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// match is the outcome of resolving a request against the tree.
type match struct {
	route     *Route
	params    []Param
	qualities []float64

	// allowed collects the method guards of handler nodes whose path
	// matched; it is only used when no route matched.
	allowed []string

	// incomplete is the handler node that matched everything except
	// required query parameters, listed in missing. It is only used when
	// no route matched.
	incomplete *Route
	missing    []string
}

// resolver holds the per-request state of a depth-first resolution.
type resolver struct {
	segments []string
	query    url.Values
	method   string

	params    []Param
	qualities []float64
	missing   []string
	best      match
}

// resolve finds the handler node for req. Each selector on a path from the
// root contributes a quality; among matching handler nodes the best quality
// vector wins and ties go to the node registered first.
func (r *Router) resolve(req *http.Request) match {
	res := resolver{
		segments: splitPath(req.URL),
		query:    req.URL.Query(),
		method:   req.Method,
	}
	res.visit(r.root, 0)

	if res.best.route != nil {
		res.best.allowed = nil
		res.best.incomplete = nil
		res.best.missing = nil

		return res.best
	}
	slices.Sort(res.best.allowed)
	res.best.allowed = slices.Compact(res.best.allowed)

	return res.best
}

// splitPath returns the unescaped, non-empty segments of the request path.
// Escaped slashes stay inside their segment.
func splitPath(u *url.URL) []string {
	raw := strings.Split(u.EscapedPath(), "/")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(s); err == nil {
			s = unescaped
		}
		segments = append(segments, s)
	}

	return segments
}

func (res *resolver) visit(rt *Route, pos int) {
	if pos == len(res.segments) && rt.HasHandlers() {
		res.consider(rt)
	}

	for _, child := range rt.children {
		switch sel := child.selector.(type) {
		case ConstantSelector:
			if pos < len(res.segments) && res.segments[pos] == sel.Value {
				res.descend(child, pos+1, QualityConstant)
			}
		case ParameterSelector:
			if pos < len(res.segments) {
				res.params = append(res.params, Param{Key: sel.Name, Value: res.segments[pos]})
				res.descend(child, pos+1, QualityParameter)
				res.params = res.params[:len(res.params)-1]
			}
		case TailcardSelector:
			res.params = append(res.params, Param{Key: sel.Name, Value: strings.Join(res.segments[pos:], "/")})
			res.descend(child, len(res.segments), QualityTailcard)
			res.params = res.params[:len(res.params)-1]
		case QueryParameterSelector:
			if res.query.Has(sel.Name) {
				res.descend(child, pos, QualityConstant)
			} else {
				res.missing = append(res.missing, sel.Name)
				res.descend(child, pos, QualityMissing)
				res.missing = res.missing[:len(res.missing)-1]
			}
		case OptionalQueryParameterSelector:
			if res.query.Has(sel.Name) {
				res.descend(child, pos, QualityConstant)
			} else {
				res.descend(child, pos, QualityMissing)
			}
		case MethodSelector:
			res.visit(child, pos)
		}
	}
}

func (res *resolver) descend(rt *Route, pos int, quality float64) {
	res.qualities = append(res.qualities, quality)
	res.visit(rt, pos)
	res.qualities = res.qualities[:len(res.qualities)-1]
}

func (res *resolver) consider(rt *Route) {
	guard := rt.MethodGuard()
	if len(res.missing) > 0 {
		if guard != "" && guard != res.method {
			return
		}
		if res.best.incomplete == nil || len(res.missing) < len(res.best.missing) {
			res.best.incomplete = rt
			res.best.missing = slices.Clone(res.missing)
			if res.best.route == nil {
				res.best.params = slices.Clone(res.params)
			}
		}

		return
	}
	if guard != "" && guard != res.method {
		res.best.allowed = append(res.best.allowed, guard)

		return
	}
	if res.best.route != nil && compareQualities(res.qualities, res.best.qualities) <= 0 {
		return
	}
	res.best.route = rt
	res.best.params = slices.Clone(res.params)
	res.best.qualities = slices.Clone(res.qualities)
}

// compareQualities compares two quality vectors element-wise and returns
// 1 if a is better, -1 if b is better, 0 when equal. A missing element
// counts as a neutral quality.
func compareQualities(a, b []float64) int {
	for i := range max(len(a), len(b)) {
		x, y := qualityNeutral, qualityNeutral
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x > y:
			return 1
		case x < y:
			return -1
		}
	}

	return 0
}
