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
	"encoding"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Encode is the inverse of binding: it renders the fields of v that carry
// tag as url.Values. Nil pointers and empty slices are omitted, as are zero
// values of fields tagged `,omitempty` or `,optional`. Nested structs use
// "name.field" keys.
//
// Example:
//
//	values, err := binding.Encode(ListArticles{Tag: "go", Page: 2}, binding.TagQuery)
//	// values.Encode() == "page=2&tag=go"
func Encode(v any, tag string, opts ...Option) (url.Values, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, ErrValueMustBeStruct
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, ErrValueMustBeStruct
	}

	values := url.Values{}
	if err := encodeFields(values, "", rv, tag, applyOptions(opts), 0); err != nil {
		return nil, err
	}

	return values, nil
}

func encodeFields(values url.Values, prefix string, rv reflect.Value, tag string, cfg *config, depth int) error {
	if depth > cfg.maxDepth {
		return fmt.Errorf("%w of %d", ErrMaxDepthExceeded, cfg.maxDepth)
	}

	for _, field := range getStructInfo(rv.Type(), tag).fields {
		fv, err := rv.FieldByIndexErr(field.index)
		if err != nil {
			// Nil embedded pointer: nothing to encode beneath it.
			continue
		}
		key := prefix + field.tagName

		if field.isPtr {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		if field.omitEmpty && fv.IsZero() {
			continue
		}

		switch {
		case field.isStruct:
			if err := encodeFields(values, key+".", fv, tag, cfg, depth+1); err != nil {
				return err
			}

		case field.isSlice:
			if fv.Len() == 0 {
				continue
			}
			elems := make([]string, 0, fv.Len())
			for i := range fv.Len() {
				s, err := EncodeValue(fv.Index(i))
				if err != nil {
					return encodeError(field, tag, err)
				}
				elems = append(elems, s)
			}
			if cfg.sliceMode == SliceCSV {
				values.Set(key, strings.Join(elems, ","))
			} else {
				values[key] = elems
			}

		default:
			s, err := EncodeValue(fv)
			if err != nil {
				return encodeError(field, tag, err)
			}
			values.Set(key, s)
		}
	}

	return nil
}

func encodeError(field fieldInfo, tag string, err error) error {
	return &BindError{
		Field:  field.tagName,
		Source: SourceFromTag(tag),
		Type:   field.fieldType,
		Err:    err,
	}
}

// EncodeValue renders a single value in the textual form accepted back by
// the decoder: time.Time as RFC 3339, durations in Go notation,
// encoding.TextMarshaler, then primitive kinds.
func EncodeValue(v reflect.Value) (string, error) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", nil
		}
		v = v.Elem()
	}

	switch v.Type() {
	case timeType:
		return v.Interface().(time.Time).Format(time.RFC3339Nano), nil
	case durationType:
		return time.Duration(v.Int()).String(), nil
	case urlType:
		u := v.Interface().(url.URL)
		return u.String(), nil
	case ipType:
		return v.Interface().(net.IP).String(), nil
	}

	if v.Type().Implements(textMarshalerType) {
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), err
	}
	if v.CanAddr() && v.Addr().Type().Implements(textMarshalerType) {
		text, err := v.Addr().Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), err
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits()), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Interface:
		if v.IsNil() {
			return "", nil
		}
		return EncodeValue(v.Elem())
	default:
		return "", fmt.Errorf("%w: %v", ErrUnsupportedType, v.Type())
	}
}
