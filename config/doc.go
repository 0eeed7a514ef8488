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

// Package config loads layered configuration.
//
// Sources are read in registration order and merged, later ones overriding
// earlier ones. Keys are case-insensitive and addressed with dots:
//
//	cfg := config.MustNew(
//	    config.WithFile("restkit.yaml"),
//	    config.WithConsul("${APP_ENV}/restkit.yaml"),
//	    config.WithEnv("RESTKIT_"),
//	)
//	if err := cfg.Load(ctx); err != nil {
//	    return err
//	}
//	addr := cfg.StringOr("server.address", ":8080")
//
// [WithBinding] decodes the merged values into a struct using `config` tags.
// Zero fields take their `default:"..."` tag, and structs implementing
// [Validator] are checked before the binding is updated.
//
// YAML is read with goccy/go-yaml, TOML with BurntSushi/toml. Consul keys
// are fetched with the official client, configured by CONSUL_HTTP_ADDR and
// CONSUL_HTTP_TOKEN.
package config
