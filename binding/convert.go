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

// setField sets a single struct field value with type conversion.
// Pointer fields stay nil for empty values.
func setField(field reflect.Value, value string, isPtr bool, cfg *config) error {
	if isPtr {
		if value == "" {
			return nil
		}
		ptr := reflect.New(field.Type().Elem())
		if err := setFieldValue(ptr.Elem(), value, cfg); err != nil {
			return err
		}
		field.Set(ptr)

		return nil
	}

	return setFieldValue(field, value, cfg)
}

// setFieldValue converts value into field. Custom converters win, then the
// special types, then encoding.TextUnmarshaler, then primitive kinds.
func setFieldValue(field reflect.Value, value string, cfg *config) error {
	fieldType := field.Type()

	if converter := findConverter(fieldType, cfg); converter != nil {
		converted, err := converter(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(converted))

		return nil
	}

	switch fieldType {
	case timeType:
		t, err := parseTime(value, cfg)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))

		return nil

	case durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

		return nil

	case urlType:
		u, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}
		field.Set(reflect.ValueOf(*u))

		return nil

	case ipType:
		ip := net.ParseIP(value)
		if ip == nil {
			return fmt.Errorf("%w: %s", ErrInvalidIPAddress, value)
		}
		field.Set(reflect.ValueOf(ip))

		return nil
	}

	if field.CanAddr() && field.Addr().Type().Implements(textUnmarshalerType) {
		unmarshaler, ok := field.Addr().Interface().(encoding.TextUnmarshaler)
		if !ok {
			return fmt.Errorf("%w: failed to assert TextUnmarshaler", ErrUnsupportedType)
		}

		return unmarshaler.UnmarshalText([]byte(value))
	}

	switch fieldType.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, intBase(cfg), fieldType.Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, intBase(cfg), fieldType.Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %w", err)
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, fieldType.Bits())
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := parseBoolGenerous(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Interface:
		if fieldType.NumMethod() != 0 {
			return fmt.Errorf("%w: %v", ErrUnsupportedType, fieldType)
		}
		field.Set(reflect.ValueOf(value))

	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedType, fieldType)
	}

	return nil
}

func intBase(cfg *config) int {
	if cfg.intBaseAuto {
		return 0
	}

	return 10
}

// setSliceField sets a slice field from multiple string values.
func setSliceField(field reflect.Value, values []string, cfg *config) error {
	if len(values) == 0 {
		return nil
	}

	if cfg.sliceMode == SliceCSV && len(values) == 1 {
		split := strings.Split(values[0], ",")
		for i := range split {
			split[i] = strings.TrimSpace(split[i])
		}
		values = split
	}

	if cfg.maxSliceLen > 0 && len(values) > cfg.maxSliceLen {
		return fmt.Errorf("%w: %d > %d (use WithMaxSliceLen to increase)",
			ErrSliceExceedsMaxLength, len(values), cfg.maxSliceLen)
	}

	elemType := field.Type().Elem()
	slice := reflect.MakeSlice(field.Type(), len(values), len(values))
	for i, val := range values {
		elem := slice.Index(i)
		var err error
		if elemType.Kind() == reflect.Pointer {
			err = setField(elem, val, true, cfg)
		} else {
			err = setFieldValue(elem, val, cfg)
		}
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	field.Set(slice)

	return nil
}

// parseBoolGenerous accepts true/false, 1/0, yes/no, on/off, t/f and y/n.
// An empty value is false.
func parseBoolGenerous(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "t", "y":
		return true, nil
	case "false", "0", "no", "off", "f", "n", "":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidBooleanValue, s)
	}
}

// parseTime tries the built-in layouts, then the ones added with WithTimeLayouts.
func parseTime(value string, cfg *config) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyTimeValue
	}

	for _, layout := range defaultTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range cfg.timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w %q", ErrUnableToParseTime, value)
}

// convertToType converts value into a new value of targetType.
func convertToType(value string, targetType reflect.Type, cfg *config) (reflect.Value, error) {
	temp := reflect.New(targetType).Elem()
	isPtr := targetType.Kind() == reflect.Pointer
	if err := setField(temp, value, isPtr, cfg); err != nil {
		return reflect.Value{}, err
	}

	return temp, nil
}

// findConverter locates a converter registered for exactly fieldType.
// Pointer fields reach it with their element type through setField.
func findConverter(fieldType reflect.Type, cfg *config) TypeConverter {
	if cfg.typeConverters == nil {
		return nil
	}
	if conv, ok := cfg.typeConverters[fieldType]; ok {
		return conv
	}

	return nil
}
