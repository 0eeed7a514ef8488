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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// failStopTimeout bounds the shutdown the engine starts on its own when the
// accept loop fails.
const failStopTimeout = 5 * time.Second

// Engine serves HTTP with two loop groups: the parent group runs the accept
// loop, the child group runs every request.
//
// The lifecycle is New -> Running -> Stopping -> Stopped. [Engine.Stop]
// moves to Stopping and forwards one shutdown request to each group;
// the engine is Stopped once both groups report termination.
type Engine struct {
	handler         http.Handler
	server          *http.Server
	parent          LoopGroup
	child           LoopGroup
	logger          *slog.Logger
	recorder        TaskRecorder
	timeouts        serverTimeouts
	h2c             bool
	configureGroups []func(*GroupConfig)

	state atomic.Int32
	addr  atomic.Pointer[net.Addr]

	mu   sync.Mutex
	errs []error

	done chan struct{}
}

// New creates an engine serving handler.
//
// Example:
//
//	e, err := engine.New(r, engine.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := e.Start(":8080"); err != nil {
//	    return err
//	}
//	<-ctx.Done()
//	_ = e.Stop(2000, 10000)
//	return e.Wait(context.Background())
func New(handler http.Handler, opts ...Option) (*Engine, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	e := &Engine{
		handler:  handler,
		logger:   slog.New(slog.DiscardHandler),
		timeouts: defaultServerTimeouts(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		return nil, errors.New("engine configuration validation failed: logger cannot be nil")
	}

	cfg := defaultGroupConfig()
	for _, configure := range e.configureGroups {
		configure(&cfg)
	}
	e.parent = cfg.Parent
	if e.parent == nil {
		e.parent = e.newGroup("parent", cfg.ParentWorkers, cfg.QueueSize)
	}
	e.child = cfg.Child
	if e.child == nil {
		e.child = e.newGroup("child", cfg.ChildWorkers, cfg.QueueSize)
	}

	h := e.dispatch(handler)
	if e.h2c {
		h = h2c.NewHandler(h, &http2.Server{})
	}
	e.server = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: e.timeouts.readHeader,
		ReadTimeout:       e.timeouts.read,
		WriteTimeout:      e.timeouts.write,
		IdleTimeout:       e.timeouts.idle,
		ErrorLog:          slog.NewLogLogger(e.logger.Handler(), slog.LevelWarn),
	}

	return e, nil
}

func (e *Engine) newGroup(name string, workers, queueSize int) *WorkerGroup {
	return NewWorkerGroup(name,
		WithWorkers(workers),
		WithQueueSize(queueSize),
		WithGroupLogger(e.logger),
		WithTaskRecorder(e.recorder),
	)
}

// dispatch runs every request as a task on the child group. The connection
// goroutine waits for the task; a rejected request gets 503.
func (e *Engine) dispatch(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done := make(chan struct{})
		err := e.child.Execute(func(taskCtx context.Context) {
			defer close(done)

			if taskCtx.Err() != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}

			ctx, cancel := context.WithCancel(r.Context())
			defer cancel()
			stop := context.AfterFunc(taskCtx, cancel)
			defer stop()

			h.ServeHTTP(w, r.WithContext(ctx))
		})
		if err != nil {
			e.logger.Debug("request rejected", "path", r.URL.Path, "error", err)
			w.Header().Set("Connection", "close")
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)

			return
		}
		<-done
	})
}

// Start listens on addr and serves. See [Engine.Serve].
func (e *Engine) Start(addr string) error {
	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if err := e.Serve(ln); err != nil {
		_ = ln.Close()
		return err
	}

	return nil
}

// Serve schedules the accept loop for ln on the parent group and returns.
// Use [Engine.Wait] to block until the engine has stopped.
func (e *Engine) Serve(ln net.Listener) error {
	if !e.state.CompareAndSwap(int32(StateNew), int32(StateRunning)) {
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, e.State())
	}

	addr := ln.Addr()
	e.addr.Store(&addr)

	err := e.parent.Execute(func(ctx context.Context) {
		// The accept loop ends with the parent group's grace period at the latest.
		stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
		defer stop()

		err := e.server.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) || e.State() != StateRunning {
			return
		}
		e.logger.Error("accept loop failed", "address", addr.String(), "error", err)
		e.addError(fmt.Errorf("accept loop: %w", err))
		_ = e.Stop(0, failStopTimeout.Milliseconds())
	})
	if err != nil {
		e.state.CompareAndSwap(int32(StateRunning), int32(StateNew))
		return fmt.Errorf("schedule accept loop: %w", err)
	}

	e.logger.Info("engine started", "address", addr.String(), "h2c", e.h2c)

	return nil
}

// Stop requests graceful shutdown. Both groups receive one
// ShutdownGracefully(gracePeriod, timeout) call, issued concurrently and
// regardless of their current state, and the HTTP server shutdown starts in
// the background. Stop returns once both requests are issued and does not
// wait for in-flight requests; use [Engine.Wait].
//
// Stop is idempotent: calls after the first return nil and do nothing.
func (e *Engine) Stop(gracePeriodMillis, timeoutMillis int64) error {
	if gracePeriodMillis < 0 || timeoutMillis < 0 {
		return ErrInvalidDuration
	}
	if !e.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) &&
		!e.state.CompareAndSwap(int32(StateNew), int32(StateStopping)) {
		return nil
	}

	grace := time.Duration(gracePeriodMillis) * time.Millisecond
	timeout := time.Duration(timeoutMillis) * time.Millisecond
	e.logger.Info("engine stopping", "grace_period", grace, "timeout", timeout)

	groups := []struct {
		name  string
		group LoopGroup
	}{
		{"parent", e.parent},
		{"child", e.child},
	}

	var wg sync.WaitGroup
	for _, g := range groups {
		wg.Go(func() {
			if err := g.group.ShutdownGracefully(grace, timeout); err != nil {
				e.logger.Warn("loop group shutdown request failed", "group", g.name, "error", err)
				e.addError(fmt.Errorf("%s group: %w", g.name, err))
			}
		})
	}
	wg.Wait()

	// Shutdown blocks until open connections go idle, which in turn waits
	// for their child group tasks.
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := e.server.Shutdown(ctx); err != nil {
			e.logger.Warn("http server forced to shutdown", "error", err)
			_ = e.server.Close()
		}
	}()

	go e.awaitTermination(groups[0].group, groups[1].group, serverDone)

	return nil
}

func (e *Engine) awaitTermination(parent, child LoopGroup, serverDone <-chan struct{}) {
	<-parent.Terminated()
	<-child.Terminated()
	<-serverDone

	if err := parent.Err(); err != nil {
		e.logger.Warn("parent group terminated with error", "group", "parent", "error", err)
		e.addError(err)
	}
	if err := child.Err(); err != nil {
		e.logger.Warn("child group terminated with error", "group", "child", "error", err)
		e.addError(err)
	}

	e.state.Store(int32(StateStopped))
	close(e.done)
	e.logger.Info("engine stopped")
}

func (e *Engine) addError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

// Wait blocks until the engine is stopped or ctx is done. It returns the
// per-group errors joined, or ctx.Err().
func (e *Engine) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		e.mu.Lock()
		defer e.mu.Unlock()

		return errors.Join(e.errs...)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the engine is stopped.
func (e *Engine) Done() <-chan struct{} { return e.done }

// State returns the current lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Addr returns the listener address, nil before Serve.
func (e *Engine) Addr() net.Addr {
	if a := e.addr.Load(); a != nil {
		return *a
	}

	return nil
}

// ParentGroup returns the group running the accept loop.
func (e *Engine) ParentGroup() LoopGroup { return e.parent }

// ChildGroup returns the group running requests.
func (e *Engine) ChildGroup() LoopGroup { return e.child }
