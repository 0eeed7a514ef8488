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

package source

import (
	"context"
	"os"
	"strings"
)

// Env loads environment variables starting with a prefix. The prefix is
// stripped, the rest is lower-cased and every underscore opens a nesting
// level: with prefix "APP_", APP_SERVER_ADDRESS becomes server.address.
type Env struct {
	prefix  string
	environ func() []string
}

// NewEnv returns a source reading the process environment.
func NewEnv(prefix string) *Env {
	return &Env{prefix: prefix, environ: os.Environ}
}

// NewEnvFrom returns a source reading the given KEY=VALUE pairs.
func NewEnvFrom(prefix string, environ []string) *Env {
	return &Env{prefix: prefix, environ: func() []string { return environ }}
}

// Load implements the source contract. Values stay strings; conversion
// happens when binding.
func (e *Env) Load(context.Context) (map[string]any, error) {
	conf := make(map[string]any)

	for _, kv := range e.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, e.prefix) {
			continue
		}

		var parts []string
		for part := range strings.SplitSeq(strings.ToLower(strings.TrimPrefix(key, e.prefix)), "_") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			continue
		}

		current := conf
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = strings.TrimSpace(value)
	}

	return conf, nil
}
