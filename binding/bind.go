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
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Query binds URL query parameters to type T.
//
// Example:
//
//	params, err := binding.Query[ListParams](r.URL.Query())
func Query[T any](values url.Values, opts ...Option) (T, error) {
	var result T
	err := bindFromSource(&result, NewQueryGetter(values), TagQuery, applyOptions(opts))

	return result, err
}

// Path binds URL path parameters to type T.
//
// Example:
//
//	params, err := binding.Path[GetArticle](map[string]string{"id": "42"})
func Path[T any](params map[string]string, opts ...Option) (T, error) {
	var result T
	err := bindFromSource(&result, NewPathGetter(params), TagPath, applyOptions(opts))

	return result, err
}

// Bind binds from one or more sources specified via From* options.
//
// Example:
//
//	req, err := binding.Bind[ArticleComments](
//	    binding.FromPath(params),
//	    binding.FromQuery(r.URL.Query()),
//	)
//
// Errors:
//   - [ErrNoSourcesProvided]: no From* option was given
//   - [ErrOutMustBePointer]: T is not a struct type
//   - [ErrMaxDepthExceeded]: struct nesting exceeds maximum depth
//   - [BindError]: field-level binding errors with detailed context
//   - [MultiError]: when [WithAllErrors] is used
func Bind[T any](opts ...Option) (T, error) {
	var result T
	err := bindMultiSource(&result, applyOptions(opts))

	return result, err
}

// BindTo binds from one or more sources specified via From* options into out,
// which must be a non-nil pointer to a struct.
func BindTo(out any, opts ...Option) error {
	return bindMultiSource(out, applyOptions(opts))
}

// Raw binds values from a custom [ValueGetter] to out using fields carrying tag.
//
// Example:
//
//	err := binding.Raw(labelGetter, "label", &result)
func Raw(getter ValueGetter, tag string, out any, opts ...Option) error {
	return bindFromSource(out, getter, tag, applyOptions(opts))
}

// structElem validates that out is a non-nil pointer to a struct and returns the struct.
func structElem(out any) (reflect.Value, error) {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer {
		return reflect.Value{}, ErrOutMustBePointer
	}
	if rv.IsNil() {
		return reflect.Value{}, ErrOutPointerNil
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return reflect.Value{}, ErrOutMustBePointer
	}

	return elem, nil
}

func bindFromSource(out any, getter ValueGetter, tag string, cfg *config) error {
	elem, err := structElem(out)
	if err != nil {
		return err
	}

	return bindFields(elem, getter, tag, getStructInfo(elem.Type(), tag), cfg, 0)
}

func bindMultiSource(out any, cfg *config) error {
	if len(cfg.sources) == 0 {
		return ErrNoSourcesProvided
	}

	elem, err := structElem(out)
	if err != nil {
		return err
	}

	var errs []error
	for _, src := range cfg.sources {
		if !HasStructTag(elem.Type(), src.tag) {
			continue
		}
		info := getStructInfo(elem.Type(), src.tag)
		if err := bindFields(elem, src.getter, src.tag, info, cfg, 0); err != nil {
			if !cfg.allErrors {
				return err
			}
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// bindFields binds every field of info from getter, applying defaults.
func bindFields(elem reflect.Value, getter ValueGetter, tag string, info *structInfo, cfg *config, depth int) error {
	if depth > cfg.maxDepth {
		return fmt.Errorf("%w of %d", ErrMaxDepthExceeded, cfg.maxDepth)
	}

	var multi *MultiError
	if cfg.allErrors {
		multi = &MultiError{}
	}

	fail := func(field fieldInfo, value string, err error) error {
		var (
			errs   []*BindError
			nested *MultiError
			single *BindError
		)
		switch {
		case field.isStruct && errors.As(err, &nested):
			errs = nested.Errors
		case field.isStruct && errors.As(err, &single):
			errs = []*BindError{single}
		default:
			errs = []*BindError{{
				Field:  field.tagName,
				Source: SourceFromTag(tag),
				Value:  value,
				Type:   field.fieldType,
				Err:    err,
			}}
		}
		if field.isStruct && (nested != nil || single != nil) {
			for _, e := range errs {
				e.Field = field.tagName + "." + e.Field
			}
		}
		if multi == nil {
			return errs[0]
		}
		for _, e := range errs {
			multi.Add(e)
		}

		return nil
	}

	for _, field := range info.fields {
		if field.isStruct {
			if !getter.Has(field.tagName) && !anyKeyWithPrefix(getter, field.tagName+".") {
				continue
			}
			fv := fieldByIndexAlloc(elem, field.index)
			if err := bindNested(fv, field, getter, tag, cfg, depth+1); err != nil {
				if errors.Is(err, ErrMaxDepthExceeded) {
					return err
				}
				if ferr := fail(field, "", err); ferr != nil {
					return ferr
				}
			}

			continue
		}

		name, hasValue := lookupName(getter, field)
		if !hasValue {
			if field.defaultValue == "" {
				continue
			}
			fv := fieldByIndexAlloc(elem, field.index)
			if field.typedDefault.IsValid() {
				setTypedDefault(fv, field)
				continue
			}
			if err := setField(fv, field.defaultValue, field.isPtr, cfg); err != nil {
				if ferr := fail(field, field.defaultValue, err); ferr != nil {
					return ferr
				}
			}

			continue
		}

		fv := fieldByIndexAlloc(elem, field.index)
		if field.isSlice {
			values := getter.GetAll(name)
			if err := setSliceField(fv, values, cfg); err != nil {
				if ferr := fail(field, strings.Join(values, ","), err); ferr != nil {
					return ferr
				}
			}

			continue
		}

		value := getter.Get(name)
		if err := setField(fv, value, field.isPtr, cfg); err != nil {
			if ferr := fail(field, value, err); ferr != nil {
				return ferr
			}
		}
	}

	if multi != nil && multi.HasErrors() {
		return multi
	}

	return nil
}

// setTypedDefault copies the pre-converted default into fv. Pointer fields get
// a fresh allocation so callers never share the cached value.
func setTypedDefault(fv reflect.Value, field fieldInfo) {
	if !field.isPtr {
		fv.Set(field.typedDefault)
		return
	}
	ptr := reflect.New(field.fieldType.Elem())
	ptr.Elem().Set(field.typedDefault.Elem())
	fv.Set(ptr)
}

// lookupName returns the first of the primary name and aliases present in getter.
func lookupName(getter ValueGetter, field fieldInfo) (string, bool) {
	if getter.Has(field.tagName) {
		return field.tagName, true
	}
	for _, alias := range field.aliases {
		if getter.Has(alias) {
			return alias, true
		}
	}

	return "", false
}

func bindNested(fv reflect.Value, field fieldInfo, getter ValueGetter, tag string, cfg *config, depth int) error {
	if field.isPtr {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		fv = fv.Elem()
	}
	nested := &prefixGetter{inner: getter, prefix: field.tagName + "."}

	return bindFields(fv, nested, tag, getStructInfo(fv.Type(), tag), cfg, depth)
}

// fieldByIndexAlloc is reflect.Value.FieldByIndex that allocates nil embedded
// struct pointers on the way down.
func fieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}

	return v
}

// parseStructType parses fields carrying tag. Embedded structs are flattened
// so their fields bind as if declared on the outer type.
func parseStructType(t reflect.Type, tag string, indexPrefix []int) *structInfo {
	info := &structInfo{fields: make([]fieldInfo, 0, t.NumField())}

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() && !field.Anonymous {
			continue
		}

		index := append(append([]int(nil), indexPrefix...), i)

		fieldType := field.Type
		isPtr := fieldType.Kind() == reflect.Pointer
		if isPtr {
			fieldType = fieldType.Elem()
		}

		raw, tagged := field.Tag.Lookup(tag)
		if field.Anonymous && fieldType.Kind() == reflect.Struct && !tagged {
			info.fields = append(info.fields, parseStructType(fieldType, tag, index).fields...)
			continue
		}
		if !tagged || raw == "-" || !field.IsExported() {
			continue
		}

		primary, aliases, omitEmpty := parseTag(raw, field.Name)

		isSlice := !isPtr && fieldType.Kind() == reflect.Slice && fieldType != ipType
		isStruct := fieldType.Kind() == reflect.Struct && !isLeafStruct(fieldType)

		fi := fieldInfo{
			index:        index,
			name:         field.Name,
			tagName:      primary,
			aliases:      aliases,
			omitEmpty:    omitEmpty,
			fieldType:    field.Type,
			isPtr:        isPtr,
			isSlice:      isSlice,
			isStruct:     isStruct,
			defaultValue: field.Tag.Get("default"),
		}

		// Invalid defaults surface as a BindError when first applied.
		if fi.defaultValue != "" && !isSlice && !isStruct {
			if v, err := convertToType(fi.defaultValue, field.Type, defaultConfig()); err == nil {
				fi.typedDefault = v
			}
		}

		info.fields = append(info.fields, fi)
	}

	return info
}

// isLeafStruct reports whether a struct type is converted from a single
// value rather than bound field by field.
func isLeafStruct(t reflect.Type) bool {
	return t == timeType || t == urlType ||
		reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// parseTag splits `name,alias,omitempty` into the primary name, aliases and
// the omit-empty flag. "optional" is accepted as a synonym of "omitempty".
func parseTag(tag, fieldName string) (string, []string, bool) {
	parts := strings.Split(tag, ",")
	primary := strings.TrimSpace(parts[0])
	if primary == "" {
		primary = fieldName
	}

	var aliases []string
	omitEmpty := false
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch part {
		case "":
		case "omitempty", "optional":
			omitEmpty = true
		default:
			aliases = append(aliases, part)
		}
	}

	return primary, aliases, omitEmpty
}

// HasStructTag reports whether any field of t, including fields of embedded
// structs, carries tag.
func HasStructTag(t reflect.Type, tag string) bool {
	return hasStructTag(t, tag, make(map[reflect.Type]bool))
}

func hasStructTag(t reflect.Type, tag string, visited map[reflect.Type]bool) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || visited[t] {
		return false
	}
	visited[t] = true

	for i := range t.NumField() {
		field := t.Field(i)
		if v, ok := field.Tag.Lookup(tag); ok && v != "-" {
			return true
		}
		if field.Anonymous && hasStructTag(field.Type, tag, visited) {
			return true
		}
	}

	return false
}
