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
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Source loads a raw configuration map.
type Source interface {
	Load(ctx context.Context) (map[string]any, error)
}

// Validator is implemented by bound structs that check themselves.
type Validator interface {
	Validate() error
}

// Config merges configuration sources. Later sources override earlier ones
// and keys are case-insensitive. It is safe for concurrent use.
type Config struct {
	mu     sync.RWMutex
	values map[string]any

	sources    []Source
	binding    any
	tagName    string
	schemas    []*jsonschema.Schema
	validators []func(map[string]any) error
}

// New creates a Config. Errors of all options are joined; the Config is
// returned alongside them.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		values:  map[string]any{},
		tagName: "config",
	}

	var errs []error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}

	return c, errors.Join(errs...)
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Config {
	c, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("config.MustNew: %v", err))
	}

	return c
}

// Load reads every source in order, merges and validates the result, and
// binds it when [WithBinding] was given. The stored values and the binding
// only change when every step succeeds.
func (c *Config) Load(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	values, err := c.merge(ctx)
	if err != nil {
		return err
	}

	for i, s := range c.schemas {
		if err := s.Validate(values); err != nil {
			return newError(fmt.Sprintf("json-schema[%d]", i), "validate", err)
		}
	}
	for i, fn := range c.validators {
		if err := runValidator(fn, values); err != nil {
			return newError(fmt.Sprintf("validator[%d]", i), "validate", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.binding != nil {
		target := reflect.New(reflect.TypeOf(c.binding).Elem())
		if err := c.decode(values, target.Interface()); err != nil {
			return newError("binding", "bind", err)
		}
		if v, ok := target.Interface().(Validator); ok {
			if err := v.Validate(); err != nil {
				return newError("binding", "validate", err)
			}
		}
		reflect.ValueOf(c.binding).Elem().Set(target.Elem())
	}
	c.values = values

	return nil
}

// MustLoad is like [Config.Load] but panics on error.
func (c *Config) MustLoad(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		panic(err)
	}
}

func (c *Config) merge(ctx context.Context) (map[string]any, error) {
	merged := make(map[string]any)
	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conf, err := src.Load(ctx)
		if err != nil {
			return nil, newError(fmt.Sprintf("source[%d]", i), "load", err)
		}
		if err := mergo.Map(&merged, lowerKeys(conf), mergo.WithOverride); err != nil {
			return nil, newError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}

	return merged, nil
}

func runValidator(fn func(map[string]any) error, values map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()

	return fn(values)
}

func (c *Config) decode(values map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          c.tagName,
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToURLHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(values); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	return applyDefaults(reflect.ValueOf(target).Elem())
}

// Values returns a copy of the top level of the merged values.
func (c *Config) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.values)
}

// Get returns the value at a dot-separated, case-insensitive key, or nil.
func (c *Config) Get(key string) any {
	if c == nil || key == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	key = strings.ToLower(key)
	if v, ok := c.values[key]; ok {
		return v
	}

	var current any = c.values
	for part := range strings.SplitSeq(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		if current, ok = m[part]; !ok {
			return nil
		}
	}

	return current
}

// lowerKeys copies m with every key lower-cased, recursively.
func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = lowerKeys(nested)
		}
		out[strings.ToLower(k)] = v
	}

	return out
}
