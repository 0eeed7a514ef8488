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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loaded(t *testing.T, values map[string]any) *Config {
	t.Helper()

	cfg := MustNew(WithSource(mapSource(values)))
	require.NoError(t, cfg.Load(context.Background()))

	return cfg
}

func TestGetE(t *testing.T) {
	t.Parallel()

	cfg := loaded(t, map[string]any{
		"port":    "8080",
		"ratio":   0.5,
		"grace":   "1m30s",
		"hosts":   []any{"a", "b"},
		"enabled": "yes",
		"labels":  map[string]any{"team": "web"},
	})

	port, err := GetE[int](cfg, "port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	grace, err := GetE[time.Duration](cfg, "grace")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, grace)

	assert.InDelta(t, 0.5, Get[float64](cfg, "ratio"), 1e-9)
	assert.Equal(t, []string{"a", "b"}, Get[[]string](cfg, "hosts"))
	assert.Equal(t, map[string]string{"team": "web"}, Get[map[string]string](cfg, "labels"))

	_, err = GetE[int](cfg, "missing")
	require.ErrorIs(t, err, ErrKeyNotFound)

	_, err = GetE[int](cfg, "grace")
	require.Error(t, err)

	_, err = GetE[struct{}](cfg, "port")
	require.Error(t, err)
}

func TestGetters_WithDefaults(t *testing.T) {
	t.Parallel()

	cfg := loaded(t, map[string]any{"name": "catalogue", "workers": 4})

	assert.Equal(t, "catalogue", cfg.StringOr("name", "x"))
	assert.Equal(t, "x", cfg.StringOr("missing", "x"))
	assert.Equal(t, 4, cfg.IntOr("workers", 1))
	assert.Equal(t, 1, cfg.IntOr("name", 1), "not convertible")
	assert.True(t, cfg.BoolOr("missing", true))
	assert.Equal(t, time.Second, cfg.DurationOr("missing", time.Second))
	assert.Equal(t, []string{"z"}, cfg.StringSliceOr("missing", []string{"z"}))
	assert.Empty(t, cfg.String("missing"))
	assert.Zero(t, cfg.Int64("missing"))
	assert.Zero(t, cfg.Float64("missing"))
}

func TestGet_NilConfig(t *testing.T) {
	t.Parallel()

	var cfg *Config
	assert.Nil(t, cfg.Get("anything"))
	assert.Equal(t, "d", cfg.StringOr("anything", "d"))
}
