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

// Package codec decodes and encodes configuration documents.
//
// YAML, TOML and JSON codecs are registered at init; further codecs can be
// added with [Register].
package codec

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// Type names a codec.
type Type string

// Built-in codec types.
const (
	TypeYAML Type = "yaml"
	TypeTOML Type = "toml"
	TypeJSON Type = "json"
)

// Decoder parses a document into v.
type Decoder interface {
	Decode(data []byte, v any) error
}

// Encoder renders v as a document.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// Codec is both a [Decoder] and an [Encoder].
type Codec interface {
	Decoder
	Encoder
}

var (
	mu       sync.RWMutex
	registry = map[Type]Codec{}
)

var extensions = map[string]Type{
	".yaml": TypeYAML,
	".yml":  TypeYAML,
	".toml": TypeTOML,
	".json": TypeJSON,
}

func init() {
	Register(TypeYAML, YAMLCodec{})
	Register(TypeTOML, TOMLCodec{})
	Register(TypeJSON, JSONCodec{})
}

// Register adds or replaces the codec for name.
func Register(name Type, c Codec) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = c
}

// Get returns the codec registered for name.
func Get(name Type) (Codec, error) {
	mu.RLock()
	defer mu.RUnlock()

	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("codec %q not registered", name)
	}

	return c, nil
}

// ForPath returns the codec type matching the extension of path.
func ForPath(path string) (Type, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensions[ext]; ok {
		return t, nil
	}

	return "", fmt.Errorf("cannot detect format from extension %q", ext)
}

// YAMLCodec reads and writes YAML with goccy/go-yaml.
type YAMLCodec struct{}

// Encode implements [Encoder].
func (YAMLCodec) Encode(v any) ([]byte, error) { return yaml.Marshal(v) }

// Decode implements [Decoder].
func (YAMLCodec) Decode(data []byte, v any) error { return yaml.Unmarshal(data, v) }

// TOMLCodec reads and writes TOML.
type TOMLCodec struct{}

// Encode implements [Encoder].
func (TOMLCodec) Encode(v any) ([]byte, error) { return toml.Marshal(v) }

// Decode implements [Decoder].
func (TOMLCodec) Decode(data []byte, v any) error { return toml.Unmarshal(data, v) }

// JSONCodec reads and writes JSON.
type JSONCodec struct{}

// Encode implements [Encoder].
func (JSONCodec) Encode(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// Decode implements [Decoder].
func (JSONCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }
