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
	"reflect"
	"time"
)

// SliceParseMode defines how slice values are parsed from query data.
type SliceParseMode int

const (
	SliceRepeat SliceParseMode = iota // ?tags=a&tags=b&tags=c (default)
	SliceCSV                          // ?tags=a,b,c
)

const (
	// DefaultMaxDepth is the default maximum nesting depth for structs.
	DefaultMaxDepth = 32

	// DefaultMaxSliceLen is the default maximum number of slice elements per field.
	DefaultMaxSliceLen = 10_000
)

// TypeConverter converts a string value to a custom type.
// Registered converters are checked before built-in type handling.
type TypeConverter func(string) (any, error)

// sourceEntry is one named input registered through a From* option.
type sourceEntry struct {
	tag    string
	getter ValueGetter
}

// config holds the per-call binding configuration.
// A fresh instance is created by applyOptions for every call.
type config struct {
	timeLayouts    []string
	maxDepth       int
	maxSliceLen    int
	sliceMode      SliceParseMode
	intBaseAuto    bool
	allErrors      bool
	typeConverters map[reflect.Type]TypeConverter
	sources        []sourceEntry
}

// Option configures binding behavior.
type Option func(*config)

// WithTimeLayouts adds time layouts tried after the built-in ones.
//
// Example:
//
//	binding.Query[Filter](values, binding.WithTimeLayouts("02/01/2006"))
func WithTimeLayouts(layouts ...string) Option {
	return func(c *config) {
		c.timeLayouts = append(c.timeLayouts, layouts...)
	}
}

// WithMaxDepth sets the maximum nesting depth for structs.
// When exceeded, binding returns [ErrMaxDepthExceeded].
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// WithSliceMode sets how slice values are parsed.
// [SliceRepeat] expects repeated keys, [SliceCSV] splits a single value on commas.
// The mode applies to [Encode] as well.
func WithSliceMode(mode SliceParseMode) Option {
	return func(c *config) {
		c.sliceMode = mode
	}
}

// WithMaxSliceLen sets the maximum number of slice elements per field.
// Zero disables the limit.
func WithMaxSliceLen(n int) Option {
	return func(c *config) {
		c.maxSliceLen = n
	}
}

// WithIntBaseAuto enables 0x, 0o and 0b prefixes for integer fields.
func WithIntBaseAuto(enabled bool) Option {
	return func(c *config) {
		c.intBaseAuto = enabled
	}
}

// WithAllErrors collects every field failure into a [MultiError]
// instead of stopping at the first one.
func WithAllErrors() Option {
	return func(c *config) {
		c.allErrors = true
	}
}

// WithTypeConverter registers a custom converter for a type.
// It applies to both T and *T fields.
func WithTypeConverter(targetType reflect.Type, converter TypeConverter) Option {
	return func(c *config) {
		if c.typeConverters == nil {
			c.typeConverters = make(map[reflect.Type]TypeConverter)
		}
		c.typeConverters[targetType] = converter
	}
}

// WithTypedConverter is the type safe form of [WithTypeConverter].
//
// Example:
//
//	binding.WithTypedConverter(func(s string) (Slug, error) {
//	    return ParseSlug(s)
//	})
func WithTypedConverter[T any](fn func(string) (T, error)) Option {
	return WithTypeConverter(reflect.TypeFor[T](), func(s string) (any, error) {
		return fn(s)
	})
}

// FromQuery adds URL query values as a binding source for fields tagged "query".
func FromQuery(values url.Values) Option {
	return FromGetter(TagQuery, NewQueryGetter(values))
}

// FromPath adds path parameters as a binding source for fields tagged "path".
func FromPath(params map[string]string) Option {
	return FromGetter(TagPath, NewPathGetter(params))
}

// FromGetter adds a custom source bound to fields carrying tag.
func FromGetter(tag string, getter ValueGetter) Option {
	return func(c *config) {
		c.sources = append(c.sources, sourceEntry{tag: tag, getter: getter})
	}
}

var defaultTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

func defaultConfig() *config {
	return &config{
		maxDepth:    DefaultMaxDepth,
		maxSliceLen: DefaultMaxSliceLen,
		sliceMode:   SliceRepeat,
	}
}

func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}
