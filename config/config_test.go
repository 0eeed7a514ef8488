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

//go:build !integration

package config

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/restkit/config/codec"
)

type mapSource map[string]any

func (m mapSource) Load(context.Context) (map[string]any, error) { return m, nil }

type failingSource struct{ err error }

func (f failingSource) Load(context.Context) (map[string]any, error) { return nil, f.err }

type serverSettings struct {
	Address string        `config:"address" default:":8080"`
	Grace   time.Duration `config:"grace" default:"5s"`
	Workers struct {
		Child int `config:"child" default:"4"`
	} `config:"workers"`
	Tags []string `config:"tags" default:"a, b"`
}

type appSettings struct {
	Name   string         `config:"name"`
	Debug  bool           `config:"debug"`
	Server serverSettings `config:"server"`
}

func (s appSettings) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}

	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_LaterSourcesOverride(t *testing.T) {
	t.Parallel()

	yamlPath := writeFile(t, "base.yaml", "name: catalogue\nserver:\n  address: \":8080\"\n  grace: 2s\n")
	tomlPath := writeFile(t, "override.toml", "[Server]\nAddress = \":9090\"\n")

	cfg, err := New(
		WithFile(yamlPath),
		WithFile(tomlPath),
		WithContent([]byte(`{"server": {"workers": {"child": 16}}}`), codec.TypeJSON),
		WithSource(mapSource{"DEBUG": "true"}),
	)
	require.NoError(t, err)
	require.NoError(t, cfg.Load(context.Background()))

	assert.Equal(t, "catalogue", cfg.String("name"))
	assert.Equal(t, ":9090", cfg.String("server.address"))
	assert.Equal(t, ":9090", cfg.String("SERVER.Address"))
	assert.Equal(t, 2*time.Second, cfg.Duration("server.grace"))
	assert.Equal(t, 16, cfg.Int("server.workers.child"))
	assert.True(t, cfg.Bool("debug"))
	assert.Nil(t, cfg.Get("server.missing"))
	assert.Nil(t, cfg.Get("name.nested"))
	assert.Contains(t, cfg.Values(), "server")
}

func TestLoad_Binding(t *testing.T) {
	t.Parallel()

	var settings appSettings
	cfg := MustNew(
		WithContent([]byte("name: catalogue\nserver:\n  grace: 1m\n"), codec.TypeYAML),
		WithBinding(&settings),
	)
	require.NoError(t, cfg.Load(context.Background()))

	assert.Equal(t, "catalogue", settings.Name)
	assert.Equal(t, ":8080", settings.Server.Address, "default applied")
	assert.Equal(t, time.Minute, settings.Server.Grace, "loaded value wins over default")
	assert.Equal(t, 4, settings.Server.Workers.Child)
	assert.Equal(t, []string{"a", "b"}, settings.Server.Tags)
}

func TestLoad_BindingValidationKeepsPreviousState(t *testing.T) {
	t.Parallel()

	var settings appSettings
	src := mapSource{"name": "first"}
	cfg := MustNew(WithSource(src), WithBinding(&settings))
	require.NoError(t, cfg.Load(context.Background()))
	require.Equal(t, "first", settings.Name)

	src["name"] = ""
	err := cfg.Load(context.Background())

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "binding", cerr.Source)
	assert.Equal(t, "validate", cerr.Op)
	assert.Equal(t, "first", settings.Name)
	assert.Equal(t, "first", cfg.String("name"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RESTKIT_TEST_SERVER_ADDRESS", ":7070")

	cfg := MustNew(
		WithContent([]byte("server:\n  address: \":8080\"\n"), codec.TypeYAML),
		WithEnv("RESTKIT_TEST_"),
	)
	require.NoError(t, cfg.Load(context.Background()))
	assert.Equal(t, ":7070", cfg.String("server.address"))
}

func TestLoad_Consul(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Consul-Index", "7")
		w.Header().Set("X-Consul-LastContact", "0")
		w.Header().Set("X-Consul-KnownLeader", "true")
		if r.URL.Path != "/v1/kv/prod/restkit.yaml" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		// "name: from-consul" base64-encoded.
		_, _ = w.Write([]byte(`[{"Key":"prod/restkit.yaml","Value":"bmFtZTogZnJvbS1jb25zdWw="}]`))
	}))
	defer srv.Close()

	cfg := MustNew(WithConsulConfig("prod/restkit.yaml", &api.Config{Address: srv.URL}))
	require.NoError(t, cfg.Load(context.Background()))
	assert.Equal(t, "from-consul", cfg.String("name"))
}

func TestWithConsul_SkippedWithoutAgent(t *testing.T) {
	t.Setenv("CONSUL_HTTP_ADDR", "")

	cfg, err := New(WithConsul("prod/restkit.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.sources)
}

func TestLoad_JSONSchema(t *testing.T) {
	t.Parallel()

	schema := []byte(`{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string", "minLength": 3}}
	}`)

	ok := MustNew(WithSource(mapSource{"name": "catalogue"}), WithJSONSchema(schema))
	require.NoError(t, ok.Load(context.Background()))

	bad := MustNew(WithSource(mapSource{"name": "x"}), WithJSONSchema(schema))
	err := bad.Load(context.Background())
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "json-schema[0]", cerr.Source)

	_, err = New(WithJSONSchema([]byte(`{not json`)))
	require.Error(t, err)
}

func TestLoad_Validators(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	cfg := MustNew(
		WithSource(mapSource{}),
		WithValidator(func(map[string]any) error { return boom }),
	)
	require.ErrorIs(t, cfg.Load(context.Background()), boom)

	panicking := MustNew(WithValidator(func(map[string]any) error { panic("bad") }))
	require.ErrorContains(t, panicking.Load(context.Background()), "validator panic: bad")
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("unreachable")
	cfg := MustNew(WithSource(mapSource{}), WithSource(failingSource{err: boom}))
	err := cfg.Load(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "source[1]")

	//nolint:staticcheck // nil context is the case under test
	require.ErrorIs(t, cfg.Load(nil), ErrNilContext)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, cfg.Load(ctx), context.Canceled)

	assert.Panics(t, func() { cfg.MustLoad(ctx) })
}

func TestNew_OptionErrors(t *testing.T) {
	t.Parallel()

	var notStruct int
	_, err := New(
		WithFile("config.ini"),
		WithFileAs("config", "ini"),
		WithBinding(&notStruct),
		WithBinding(nil),
		WithTag(""),
		WithSource(nil),
		WithValidator(nil),
	)
	require.ErrorIs(t, err, ErrInvalidBinding)
	assert.ErrorContains(t, err, "detect-format")
	assert.ErrorContains(t, err, "tag name cannot be empty")

	assert.Panics(t, func() { MustNew(WithTag("")) })
}

func TestWithTag(t *testing.T) {
	t.Parallel()

	var out struct {
		Port int `cfg:"port"`
	}
	cfg := MustNew(WithSource(mapSource{"port": "8081"}), WithTag("cfg"), WithBinding(&out))
	require.NoError(t, cfg.Load(context.Background()))
	assert.Equal(t, 8081, out.Port)
}
