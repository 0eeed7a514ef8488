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

package resource

import (
	"github.com/go-playground/validator/v10"

	"rivaas.dev/restkit/binding"
)

// Option configures how a handler decodes its resource.
type Option func(*config)

type config struct {
	validator   *validator.Validate
	validate    bool
	bindingOpts []binding.Option
}

// WithValidator validates decoded resources with v instead of the shared
// default validator.
func WithValidator(v *validator.Validate) Option {
	return func(c *config) {
		c.validator = v
	}
}

// WithoutValidation skips `validate` tag checks after decoding.
func WithoutValidation() Option {
	return func(c *config) {
		c.validate = false
	}
}

// WithBindingOptions passes options to the binding decoder, e.g.
// binding.WithSliceMode(binding.SliceCSV) or binding.WithAllErrors().
func WithBindingOptions(opts ...binding.Option) Option {
	return func(c *config) {
		c.bindingOpts = append(c.bindingOpts, opts...)
	}
}

func newConfig(d *Descriptor, opts []Option) *config {
	c := &config{validate: true}
	for _, opt := range opts {
		opt(c)
	}
	// Types without validate tags never pay for validation.
	c.validate = c.validate && binding.HasStructTag(d.Type, "validate")
	if c.validate && c.validator == nil {
		c.validator = defaultValidator()
	}

	return c
}
