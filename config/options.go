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
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/hashicorp/consul/api"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"rivaas.dev/restkit/config/codec"
	"rivaas.dev/restkit/config/source"
)

// Option configures a [Config]. Options may fail; [New] joins the errors.
type Option func(c *Config) error

// WithSource appends a custom source.
func WithSource(s Source) Option {
	return func(c *Config) error {
		if s == nil {
			return errors.New("source cannot be nil")
		}
		c.sources = append(c.sources, s)

		return nil
	}
}

// WithFile appends a file source. The format follows the extension (.yaml,
// .yml, .toml, .json) and $VAR references in path are expanded.
func WithFile(path string) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		typ, err := codec.ForPath(path)
		if err != nil {
			return newError("file-source", "detect-format", err)
		}

		return WithFileAs(path, typ)(c)
	}
}

// WithFileAs appends a file source decoded with an explicit codec.
func WithFileAs(path string, typ codec.Type) Option {
	return func(c *Config) error {
		dec, err := codec.Get(typ)
		if err != nil {
			return newError("file-source", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewFile(os.ExpandEnv(path), dec))

		return nil
	}
}

// WithContent appends an in-memory document.
func WithContent(data []byte, typ codec.Type) Option {
	return func(c *Config) error {
		dec, err := codec.Get(typ)
		if err != nil {
			return newError("content-source", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewContent(data, dec))

		return nil
	}
}

// WithEnv appends the environment variables starting with prefix.
// APP_SERVER_ADDRESS becomes server.address for prefix "APP_".
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		c.sources = append(c.sources, source.NewEnv(prefix))
		return nil
	}
}

// WithConsul appends a Consul KV key, decoded by its extension. The option
// is skipped when CONSUL_HTTP_ADDR is unset, so development setups run
// without an agent.
func WithConsul(key string) Option {
	return func(c *Config) error {
		if os.Getenv("CONSUL_HTTP_ADDR") == "" {
			return nil
		}

		return WithConsulConfig(key, nil)(c)
	}
}

// WithConsulConfig appends a Consul KV key read with an explicit client
// configuration.
func WithConsulConfig(key string, cfg *api.Config) Option {
	return func(c *Config) error {
		key = os.ExpandEnv(key)
		typ, err := codec.ForPath(key)
		if err != nil {
			return newError("consul-source", "detect-format", err)
		}
		dec, err := codec.Get(typ)
		if err != nil {
			return newError("consul-source", "get-decoder", err)
		}
		src, err := source.NewConsul(key, dec, cfg)
		if err != nil {
			return newError("consul-source", "create-client", err)
		}
		c.sources = append(c.sources, src)

		return nil
	}
}

// WithBinding decodes the loaded values into v, a pointer to a struct, on
// every successful [Config.Load]. Fields are matched by the `config` tag,
// `default:"..."` tags fill zero fields, and a [Validator] is honoured.
func WithBinding(v any) Option {
	return func(c *Config) error {
		if v == nil {
			return ErrInvalidBinding
		}
		t := reflect.TypeOf(v)
		if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
			return ErrInvalidBinding
		}
		c.binding = v

		return nil
	}
}

// WithTag changes the struct tag used by binding (default "config").
func WithTag(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return errors.New("tag name cannot be empty")
		}
		c.tagName = name

		return nil
	}
}

// WithJSONSchema validates the merged values against a JSON Schema.
func WithJSONSchema(schema []byte) Option {
	return func(c *Config) error {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
		if err != nil {
			return newError("json-schema", "parse", err)
		}

		compiler := jsonschema.NewCompiler()
		name := fmt.Sprintf("inline-%d.json", len(c.schemas))
		if err := compiler.AddResource(name, doc); err != nil {
			return newError("json-schema", "add", err)
		}
		s, err := compiler.Compile(name)
		if err != nil {
			return newError("json-schema", "compile", err)
		}
		c.schemas = append(c.schemas, s)

		return nil
	}
}

// WithValidator adds a check of the merged values.
func WithValidator(fn func(map[string]any) error) Option {
	return func(c *Config) error {
		if fn == nil {
			return errors.New("validator cannot be nil")
		}
		c.validators = append(c.validators, fn)

		return nil
	}
}
