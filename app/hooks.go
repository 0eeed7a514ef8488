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

package app

import (
	"context"
	"fmt"
	"sync"
)

// Hooks stores the lifecycle callbacks of an [App].
type Hooks struct {
	mu         sync.Mutex
	onStart    []func(context.Context) error // Sequential, stops on first error
	onReady    []func()                      // Async
	onShutdown []func(context.Context)       // LIFO
	onStop     []func()                      // Best effort
}

func (a *App) mustNotBeRunning() {
	if a.running.Load() {
		panic("app: cannot register hooks after Run")
	}
}

// OnStart registers a hook that runs before the engine starts listening.
// Hooks run sequentially; the first error aborts [App.Run].
//
// Example:
//
//	a.OnStart(func(ctx context.Context) error {
//	    return store.Ping(ctx)
//	})
func (a *App) OnStart(fn func(context.Context) error) {
	a.mustNotBeRunning()
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onStart = append(a.hooks.onStart, fn)
}

// OnReady registers a hook that runs once the engine is accepting
// connections. Each hook runs in its own goroutine; panics are logged.
func (a *App) OnReady(fn func()) {
	a.mustNotBeRunning()
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onReady = append(a.hooks.onReady, fn)
}

// OnShutdown registers a hook that runs when shutdown begins, before the
// engine stops. Hooks run in reverse registration order and receive a
// context bounded by the shutdown timeout.
//
// Example:
//
//	a.OnShutdown(func(ctx context.Context) {
//	    _ = registry.Deregister(ctx)
//	})
func (a *App) OnShutdown(fn func(context.Context)) {
	a.mustNotBeRunning()
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onShutdown = append(a.hooks.onShutdown, fn)
}

// OnStop registers a hook that runs after the engine has stopped.
// Panics are caught and logged.
func (a *App) OnStop(fn func()) {
	a.mustNotBeRunning()
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onStop = append(a.hooks.onStop, fn)
}

func (a *App) executeStartHooks(ctx context.Context) error {
	a.hooks.mu.Lock()
	hooks := append([]func(context.Context) error(nil), a.hooks.onStart...)
	a.hooks.mu.Unlock()

	for i, hook := range hooks {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("OnStart hook %d failed: %w", i, err)
		}
	}

	return nil
}

func (a *App) executeReadyHooks() {
	a.hooks.mu.Lock()
	hooks := append(([]func())(nil), a.hooks.onReady...)
	a.hooks.mu.Unlock()

	for _, hook := range hooks {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("OnReady hook panic", "error", r)
				}
			}()
			hook()
		}()
	}
}

func (a *App) executeShutdownHooks(ctx context.Context) {
	a.hooks.mu.Lock()
	hooks := append(([]func(context.Context))(nil), a.hooks.onShutdown...)
	a.hooks.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("OnShutdown hook panic", "error", r)
				}
			}()
			hooks[i](ctx)
		}()
	}
}

func (a *App) executeStopHooks() {
	a.hooks.mu.Lock()
	hooks := append(([]func())(nil), a.hooks.onStop...)
	a.hooks.mu.Unlock()

	for _, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Warn("OnStop hook panic", "error", r)
				}
			}()
			hook()
		}()
	}
}
