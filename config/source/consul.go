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
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/consul/api"

	"rivaas.dev/restkit/config/codec"
)

// ConsulKV is the part of the Consul KV API used by [Consul].
type ConsulKV interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
}

// Consul loads a document stored under one key of the Consul KV store.
type Consul struct {
	kv        ConsulKV
	key       string
	decoder   codec.Decoder
	lastIndex atomic.Uint64
}

// NewConsul returns a source for key. A nil cfg means api.DefaultConfig,
// which reads CONSUL_HTTP_ADDR and CONSUL_HTTP_TOKEN.
func NewConsul(key string, decoder codec.Decoder, cfg *api.Config) (*Consul, error) {
	if cfg == nil {
		cfg = api.DefaultConfig()
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return NewConsulKV(key, decoder, client.KV()), nil
}

// NewConsulKV returns a source reading key through kv.
func NewConsulKV(key string, decoder codec.Decoder, kv ConsulKV) *Consul {
	return &Consul{kv: kv, key: key, decoder: decoder}
}

// Load fetches and decodes the key. A missing key yields an empty map.
func (c *Consul) Load(ctx context.Context) (map[string]any, error) {
	pair, meta, err := c.kv.Get(c.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get consul key %q: %w", c.key, err)
	}
	if meta != nil {
		c.lastIndex.Store(meta.LastIndex)
	}

	conf := make(map[string]any)
	if pair == nil || len(pair.Value) == 0 {
		return conf, nil
	}
	if err := c.decoder.Decode(pair.Value, &conf); err != nil {
		return nil, fmt.Errorf("failed to decode consul key %q: %w", c.key, err)
	}

	return conf, nil
}

// LastIndex returns the Consul modify index seen by the last Load.
func (c *Consul) LastIndex() uint64 { return c.lastIndex.Load() }
