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

package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// applyDefaults sets the `default:"..."` value of every zero field of v,
// descending into nested structs.
func applyDefaults(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		field := v.Field(i)
		sf := t.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct && sf.Type != reflect.TypeFor[time.Time]() {
			if err := applyDefaults(field); err != nil {
				return err
			}
			continue
		}

		def, ok := sf.Tag.Lookup("default")
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefault(field, def); err != nil {
			return fmt.Errorf("failed to set default for field %s: %w", sf.Name, err)
		}
	}

	return nil
}

func setDefault(field reflect.Value, def string) error {
	var (
		value any
		err   error
	)

	switch {
	case field.Type() == reflect.TypeFor[time.Duration]():
		value, err = cast.ToDurationE(def)
	case field.Kind() == reflect.String:
		value = def
	case field.Kind() == reflect.Bool:
		value, err = cast.ToBoolE(def)
	case field.CanInt():
		value, err = cast.ToInt64E(def)
	case field.CanUint():
		value, err = cast.ToUint64E(def)
	case field.CanFloat():
		value, err = cast.ToFloat64E(def)
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		parts := strings.Split(def, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		value = parts
	default:
		return fmt.Errorf("unsupported type for default tag: %s", field.Type())
	}
	if err != nil {
		return err
	}

	field.Set(reflect.ValueOf(value).Convert(field.Type()))

	return nil
}
