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
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"rivaas.dev/restkit/binding"
)

// defaultValidator is shared by every handler without WithValidator.
// validator.Validate is safe for concurrent use once configured.
var defaultValidator = sync.OnceValue(func() *validator.Validate {
	return NewValidator()
})

// NewValidator returns a validator that reports fields by their path or
// query parameter name, as clients know them.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{binding.TagPath, binding.TagQuery} {
			name, ok := fld.Tag.Lookup(tag)
			if !ok || name == "-" {
				continue
			}
			if idx := strings.Index(name, ","); idx != -1 {
				name = name[:idx]
			}
			if name != "" {
				return name
			}
		}

		return fld.Name
	})

	return v
}
