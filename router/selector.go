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
	"strings"
)

// Selector is the identity of one edge of the route tree. Selectors are
// comparable values: two children of a node are the same child iff their
// selectors are ==, so re-registering a path reuses existing nodes.
//
// The set of selectors is closed; see [ConstantSelector],
// [ParameterSelector], [TailcardSelector], [QueryParameterSelector],
// [OptionalQueryParameterSelector] and [MethodSelector].
type Selector interface {
	fmt.Stringer
	selector()
}

// Quality values reported by selectors during resolution. A higher quality
// marks a more specific match.
const (
	QualityConstant  = 1.0
	QualityParameter = 0.8
	QualityMissing   = 0.2
	QualityTailcard  = 0.1

	// qualityNeutral stands in for a selector a candidate does not have when
	// two quality vectors of different length are compared.
	qualityNeutral = 0.5
)

// ConstantSelector matches one literal path segment.
type ConstantSelector struct {
	Value string
}

// ParameterSelector matches one non-empty path segment and captures it as Name.
type ParameterSelector struct {
	Name string
}

// TailcardSelector matches zero or more remaining segments, captured as Name
// joined with "/".
type TailcardSelector struct {
	Name string
}

// QueryParameterSelector requires query parameter Name to be present.
// It consumes no path segment.
type QueryParameterSelector struct {
	Name string
}

// OptionalQueryParameterSelector matches whether or not query parameter Name
// is present; absence lowers the quality of the match. It is a different node
// identity from a [QueryParameterSelector] with the same name.
type OptionalQueryParameterSelector struct {
	Name string
}

// MethodSelector guards its subtree with an HTTP method. It consumes nothing
// and does not affect quality.
type MethodSelector struct {
	Method string
}

func (ConstantSelector) selector()               {}
func (ParameterSelector) selector()              {}
func (TailcardSelector) selector()               {}
func (QueryParameterSelector) selector()         {}
func (OptionalQueryParameterSelector) selector() {}
func (MethodSelector) selector()                 {}

func (s ConstantSelector) String() string               { return s.Value }
func (s ParameterSelector) String() string              { return "{" + s.Name + "}" }
func (s TailcardSelector) String() string               { return "{" + s.Name + "...}" }
func (s QueryParameterSelector) String() string         { return "[" + s.Name + "]" }
func (s OptionalQueryParameterSelector) String() string { return "[" + s.Name + "?]" }
func (s MethodSelector) String() string                 { return "(method:" + s.Method + ")" }

// consumesSegment reports whether sel is part of the URL path.
func consumesSegment(sel Selector) bool {
	switch sel.(type) {
	case ConstantSelector, ParameterSelector, TailcardSelector:
		return true
	default:
		return false
	}
}

// ParseTemplate parses a path template such as "/articles/{id}/files/{path...}"
// into path selectors. "{name...}" must be the last segment. Empty segments
// are ignored, so "/" and "" both yield no selectors.
func ParseTemplate(template string) ([]Selector, error) {
	var selectors []Selector
	seen := make(map[string]bool)

	parts := strings.Split(template, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}

		if !strings.HasPrefix(part, "{") {
			if strings.ContainsAny(part, "{}") {
				return nil, fmt.Errorf("%w %q: braces must wrap the whole segment %q", ErrInvalidTemplate, template, part)
			}
			selectors = append(selectors, ConstantSelector{Value: part})

			continue
		}

		if !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("%w %q: unterminated parameter %q", ErrInvalidTemplate, template, part)
		}
		name := part[1 : len(part)-1]
		tail := strings.HasSuffix(name, "...")
		name = strings.TrimSuffix(name, "...")
		if name == "" || strings.ContainsAny(name, "{}") {
			return nil, fmt.Errorf("%w %q: invalid parameter name %q", ErrInvalidTemplate, template, part)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w %q: duplicate parameter %q", ErrInvalidTemplate, template, name)
		}
		seen[name] = true

		if tail {
			if strings.Join(parts[i+1:], "") != "" {
				return nil, fmt.Errorf("%w %q: %q must be the last segment", ErrInvalidTemplate, template, part)
			}
			selectors = append(selectors, TailcardSelector{Name: name})

			continue
		}
		selectors = append(selectors, ParameterSelector{Name: name})
	}

	return selectors, nil
}

// FormatTemplate is the inverse of [ParseTemplate] for path selectors; other
// selectors are skipped. No selectors format as "/".
func FormatTemplate(selectors []Selector) string {
	var b strings.Builder
	for _, sel := range selectors {
		if consumesSegment(sel) {
			b.WriteByte('/')
			b.WriteString(sel.String())
		}
	}
	if b.Len() == 0 {
		return "/"
	}

	return b.String()
}
