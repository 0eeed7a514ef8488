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
)

// Static errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrInvalidBinding = errors.New("binding target must be a non-nil pointer to a struct")
)

// ConfigError describes a failure with the source or step that caused it.
//
//nolint:revive // ConfigError reads better than Error at call sites using errors.As.
type ConfigError struct {
	Source string // e.g. "source[0]", "json-schema", "binding"
	Field  string // optional
	Op     string // e.g. "load", "merge", "validate", "bind"
	Err    error
}

// Error implements error.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s.%s during %s: %v", e.Source, e.Field, e.Op, e.Err)
	}

	return fmt.Sprintf("config error in %s during %s: %v", e.Source, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

func newError(source, op string, err error) *ConfigError {
	return &ConfigError{Source: source, Op: op, Err: err}
}
