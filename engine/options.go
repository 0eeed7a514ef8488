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

package engine

import (
	"log/slog"
	"runtime"
	"time"
)

// GroupConfig is passed to the [WithGroups] callback. Groups left nil are
// created as WorkerGroups from the worker counts and queue size.
type GroupConfig struct {
	Parent LoopGroup
	Child  LoopGroup

	ParentWorkers int
	ChildWorkers  int
	QueueSize     int
}

// Option configures an Engine.
type Option func(*Engine)

type serverTimeouts struct {
	readHeader time.Duration
	read       time.Duration
	write      time.Duration
	idle       time.Duration
}

// defaultServerTimeouts returns default timeout configuration.
func defaultServerTimeouts() serverTimeouts {
	return serverTimeouts{
		readHeader: 5 * time.Second,
		read:       15 * time.Second,
		write:      30 * time.Second,
		idle:       60 * time.Second,
	}
}

func defaultGroupConfig() GroupConfig {
	return GroupConfig{
		ParentWorkers: 1,
		ChildWorkers:  runtime.GOMAXPROCS(0) * 2,
		QueueSize:     DefaultQueueSize,
	}
}

// WithGroups runs configure at construction time. It may install externally
// constructed groups or change the sizes of the default ones.
//
// Example:
//
//	e, err := engine.New(handler, engine.WithGroups(func(cfg *engine.GroupConfig) {
//	    cfg.Child = myGroup
//	    cfg.ParentWorkers = 2
//	}))
func WithGroups(configure func(cfg *GroupConfig)) Option {
	return func(e *Engine) {
		e.configureGroups = append(e.configureGroups, configure)
	}
}

// WithParentGroup installs the group running the accept loop.
func WithParentGroup(g LoopGroup) Option {
	return WithGroups(func(cfg *GroupConfig) { cfg.Parent = g })
}

// WithChildGroup installs the group running requests.
func WithChildGroup(g LoopGroup) Option {
	return WithGroups(func(cfg *GroupConfig) { cfg.Child = g })
}

// WithLogger sets the engine logger. A no-op logger is used by default.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics reports task outcomes of the default groups.
func WithMetrics(r TaskRecorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithServerTimeouts sets the HTTP server timeouts.
//
// Defaults (if not set):
//
//	ReadHeaderTimeout: 5s
//	ReadTimeout:       15s
//	WriteTimeout:      30s
//	IdleTimeout:       60s
func WithServerTimeouts(readHeader, read, write, idle time.Duration) Option {
	return func(e *Engine) {
		e.timeouts = serverTimeouts{
			readHeader: readHeader,
			read:       read,
			write:      write,
			idle:       idle,
		}
	}
}

// WithH2C enables HTTP/2 over cleartext. Use it only in development or
// behind a trusted load balancer.
func WithH2C(enabled bool) Option {
	return func(e *Engine) {
		e.h2c = enabled
	}
}
