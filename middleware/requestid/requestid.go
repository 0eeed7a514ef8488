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

// Package requestid assigns every request an identifier, echoed in a
// response header and available to handlers and loggers.
package requestid

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"rivaas.dev/restkit/router"
)

// DefaultHeader carries the request ID in both directions.
const DefaultHeader = "X-Request-ID"

// maxClientIDLength bounds IDs accepted from clients.
const maxClientIDLength = 128

type contextKey struct{}

// Option configures the middleware.
type Option func(*config)

type config struct {
	header        string
	generator     func() string
	allowClientID bool
}

// WithHeader changes the header name.
func WithHeader(name string) Option {
	return func(c *config) {
		c.header = name
	}
}

// WithULID generates 26-character ULIDs instead of UUIDv7.
func WithULID() Option {
	return WithGenerator(generateULID)
}

// WithGenerator sets a custom ID generator.
func WithGenerator(fn func() string) Option {
	return func(c *config) {
		c.generator = fn
	}
}

// WithAllowClientID controls whether an ID sent by the client is reused.
// Default: true.
func WithAllowClientID(allow bool) Option {
	return func(c *config) {
		c.allowClientID = allow
	}
}

func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

var (
	ulidEntropy   = ulid.Monotonic(rand.Reader, 0)
	ulidEntropyMu sync.Mutex
)

func generateULID() string {
	ulidEntropyMu.Lock()
	defer ulidEntropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// New returns middleware that reuses the client's request ID when allowed
// and present, or generates one (UUIDv7 by default). The ID is set on the
// response and stored in the request context.
//
//	r.Use(requestid.New())
//	r.Use(requestid.New(requestid.WithULID(), requestid.WithAllowClientID(false)))
func New(opts ...Option) router.HandlerFunc {
	cfg := &config{
		header:        DefaultHeader,
		generator:     generateUUIDv7,
		allowClientID: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		var id string
		if cfg.allowClientID {
			id = c.Request.Header.Get(cfg.header)
			if len(id) > maxClientIDLength {
				id = ""
			}
		}
		if id == "" {
			id = cfg.generator()
		}

		c.Header(cfg.header, id)
		c.SetValue(contextKey{}, id)
		c.Next()
	}
}

// Get returns the request ID of c, or "" outside the middleware.
func Get(c *router.Context) string {
	id, _ := c.Value(contextKey{}).(string)
	return id
}
