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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// ErrKeyNotFound is returned by [GetE] for absent keys.
var ErrKeyNotFound = errors.New("key not found")

// GetE returns the value at key converted to T with spf13/cast.
//
// Example:
//
//	port, err := config.GetE[int](cfg, "server.port")
func GetE[T any](c *Config, key string) (T, error) {
	var zero T

	val := c.Get(key)
	if val == nil {
		return zero, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if v, ok := val.(T); ok {
		return v, nil
	}

	var (
		out any
		err error
	)
	switch any(zero).(type) {
	case string:
		out, err = cast.ToStringE(val)
	case int:
		out, err = cast.ToIntE(val)
	case int64:
		out, err = cast.ToInt64E(val)
	case uint:
		out, err = cast.ToUintE(val)
	case float64:
		out, err = cast.ToFloat64E(val)
	case bool:
		out, err = cast.ToBoolE(val)
	case time.Duration:
		out, err = cast.ToDurationE(val)
	case time.Time:
		out, err = cast.ToTimeE(val)
	case []string:
		out, err = cast.ToStringSliceE(val)
	case []int:
		out, err = cast.ToIntSliceE(val)
	case map[string]any:
		out, err = cast.ToStringMapE(val)
	case map[string]string:
		out, err = cast.ToStringMapStringE(val)
	default:
		return zero, fmt.Errorf("cannot convert %q to %T", key, zero)
	}
	if err != nil {
		return zero, fmt.Errorf("cannot convert %q to %T: %w", key, zero, err)
	}

	return out.(T), nil
}

// Get returns the value at key converted to T, or the zero value.
func Get[T any](c *Config, key string) T {
	v, _ := GetE[T](c, key)
	return v
}

// GetOr returns the value at key converted to T, or def when the key is
// absent or not convertible.
func GetOr[T any](c *Config, key string, def T) T {
	v, err := GetE[T](c, key)
	if err != nil {
		return def
	}

	return v
}

// String returns the value at key as a string.
func (c *Config) String(key string) string { return Get[string](c, key) }

// Int returns the value at key as an int.
func (c *Config) Int(key string) int { return Get[int](c, key) }

// Int64 returns the value at key as an int64.
func (c *Config) Int64(key string) int64 { return Get[int64](c, key) }

// Float64 returns the value at key as a float64.
func (c *Config) Float64(key string) float64 { return Get[float64](c, key) }

// Bool returns the value at key as a bool.
func (c *Config) Bool(key string) bool { return Get[bool](c, key) }

// Duration returns the value at key as a duration, e.g. from "1m30s".
func (c *Config) Duration(key string) time.Duration { return Get[time.Duration](c, key) }

// StringSlice returns the value at key as a string slice.
func (c *Config) StringSlice(key string) []string { return Get[[]string](c, key) }

// StringMap returns the value at key as a map.
func (c *Config) StringMap(key string) map[string]any { return Get[map[string]any](c, key) }

// StringOr returns the value at key as a string, or def.
func (c *Config) StringOr(key, def string) string { return GetOr(c, key, def) }

// IntOr returns the value at key as an int, or def.
func (c *Config) IntOr(key string, def int) int { return GetOr(c, key, def) }

// BoolOr returns the value at key as a bool, or def.
func (c *Config) BoolOr(key string, def bool) bool { return GetOr(c, key, def) }

// DurationOr returns the value at key as a duration, or def.
func (c *Config) DurationOr(key string, def time.Duration) time.Duration {
	return GetOr(c, key, def)
}

// StringSliceOr returns the value at key as a string slice, or def.
func (c *Config) StringSliceOr(key string, def []string) []string { return GetOr(c, key, def) }
