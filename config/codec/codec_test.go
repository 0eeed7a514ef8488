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

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		want    Type
		wantErr bool
	}{
		{"config.yaml", TypeYAML, false},
		{"/etc/app/CONFIG.YML", TypeYAML, false},
		{"app.toml", TypeTOML, false},
		{"app.json", TypeJSON, false},
		{"app.ini", "", true},
		{"app", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			got, err := ForPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_NestedDocuments(t *testing.T) {
	t.Parallel()

	docs := map[Type]string{
		TypeYAML: "server:\n  address: \":8080\"\n  workers: 4\n",
		TypeTOML: "[server]\naddress = \":8080\"\nworkers = 4\n",
		TypeJSON: `{"server": {"address": ":8080", "workers": 4}}`,
	}

	for typ, doc := range docs {
		t.Run(string(typ), func(t *testing.T) {
			t.Parallel()

			c, err := Get(typ)
			require.NoError(t, err)

			var out map[string]any
			require.NoError(t, c.Decode([]byte(doc), &out))

			server, ok := out["server"].(map[string]any)
			require.True(t, ok, "server is %T", out["server"])
			assert.Equal(t, ":8080", server["address"])
			assert.EqualValues(t, 4, server["workers"])
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()

	in := map[string]any{"service": map[string]any{"name": "catalogue"}}
	for _, typ := range []Type{TypeYAML, TypeTOML, TypeJSON} {
		c, err := Get(typ)
		require.NoError(t, err)

		data, err := c.Encode(in)
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, c.Decode(data, &out), string(typ))
		assert.Equal(t, in, out, string(typ))
	}
}

func TestGet_Unknown(t *testing.T) {
	t.Parallel()

	_, err := Get("ini")
	require.Error(t, err)
}
