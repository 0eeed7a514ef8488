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

package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/restkit/config/codec"
)

func TestFile_Load(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":9000\"\n"), 0o600))

	conf, err := NewFile(path, codec.YAMLCodec{}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"server": map[string]any{"address": ":9000"}}, conf)
}

func TestFile_LoadErrors(t *testing.T) {
	t.Parallel()

	_, err := NewFile(filepath.Join(t.TempDir(), "missing.yaml"), codec.YAMLCodec{}).Load(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewContent([]byte(`{"broken":`), codec.JSONCodec{}).Load(context.Background())
	require.ErrorContains(t, err, "failed to decode config content")
}

func TestContent_Empty(t *testing.T) {
	t.Parallel()

	conf, err := NewContent(nil, codec.TOMLCodec{}).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, conf)
}

func TestEnv_Load(t *testing.T) {
	t.Parallel()

	env := NewEnvFrom("APP_", []string{
		"APP_SERVER_ADDRESS= :8080 ",
		"APP_SERVER_WORKERS_CHILD=8",
		"APP_DEBUG=true",
		"APP__=ignored",
		"OTHER_SERVER_ADDRESS=:1",
		"APP_MALFORMED",
	})

	conf, err := env.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"server": map[string]any{
			"address": ":8080",
			"workers": map[string]any{"child": "8"},
		},
		"debug": "true",
	}, conf)
}

func TestEnv_ScalarReplacedByNesting(t *testing.T) {
	t.Parallel()

	conf, err := NewEnvFrom("", []string{"LOG=debug", "LOG_LEVEL=info"}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"log": map[string]any{"level": "info"}}, conf)
}

// fakeConsul serves the KV endpoint of a Consul agent from memory.
func fakeConsul(t *testing.T, kv map[string]string) *api.Config {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Consul-Index", "42")
		w.Header().Set("X-Consul-LastContact", "0")
		w.Header().Set("X-Consul-KnownLeader", "true")

		key := r.URL.Path[len("/v1/kv/"):]
		value, ok := kv[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]api.KVPair{{Key: key, Value: []byte(value), ModifyIndex: 42}})
	}))
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.Address = srv.URL

	return cfg
}

func TestConsul_Load(t *testing.T) {
	t.Parallel()

	cfg := fakeConsul(t, map[string]string{
		"restkit/config.json": `{"server": {"address": ":7000"}}`,
		"restkit/broken.json": `{"server":`,
	})

	src, err := NewConsul("restkit/config.json", codec.JSONCodec{}, cfg)
	require.NoError(t, err)
	conf, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"server": map[string]any{"address": ":7000"}}, conf)
	assert.Equal(t, uint64(42), src.LastIndex())

	missing, err := NewConsul("restkit/absent.json", codec.JSONCodec{}, cfg)
	require.NoError(t, err)
	conf, err = missing.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, conf)

	broken, err := NewConsul("restkit/broken.json", codec.JSONCodec{}, cfg)
	require.NoError(t, err)
	_, err = broken.Load(context.Background())
	require.ErrorContains(t, err, "failed to decode consul key")
}

type erroringKV struct{ err error }

func (e erroringKV) Get(string, *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error) {
	return nil, nil, e.err
}

func TestConsul_LoadError(t *testing.T) {
	t.Parallel()

	boom := assert.AnError
	_, err := NewConsulKV("k", codec.JSONCodec{}, erroringKV{err: boom}).Load(context.Background())
	require.ErrorIs(t, err, boom)
}
