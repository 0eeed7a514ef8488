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
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of work executed by a [LoopGroup]. The context is cancelled
// when the group's grace period ends during shutdown.
type Task func(ctx context.Context)

// LoopGroup executes tasks on a pool of goroutines. The engine owns two: the
// parent group runs the accept loop and the child group runs requests.
type LoopGroup interface {
	// Execute schedules task. It fails with [ErrGroupShuttingDown] once
	// shutdown was requested.
	Execute(task Task) error

	// ShutdownGracefully requests shutdown and returns immediately. New tasks
	// are rejected at once; running and queued tasks get gracePeriod to finish
	// before their contexts are cancelled, and the group terminates no later
	// than timeout after the request. The error reports a problem with this
	// group only, such as a repeated request.
	ShutdownGracefully(gracePeriod, timeout time.Duration) error

	// Terminated is closed once the group has stopped.
	Terminated() <-chan struct{}

	// Err returns the termination error, nil before termination or after a
	// clean one.
	Err() error
}

// TaskRecorder receives task execution events.
type TaskRecorder interface {
	RecordTask(ctx context.Context, group, outcome string)
	AddActiveTasks(ctx context.Context, group string, delta int64)
}

// Task outcomes reported to a [TaskRecorder].
const (
	OutcomeCompleted = "completed"
	OutcomePanicked  = "panicked"
	OutcomeRejected  = "rejected"
)

// Default sizes of a [WorkerGroup].
const (
	DefaultWorkers   = 1
	DefaultQueueSize = 1024
)

// GroupOption configures a WorkerGroup.
type GroupOption func(*WorkerGroup)

// WithWorkers sets the number of goroutines. Values below 1 are ignored.
func WithWorkers(n int) GroupOption {
	return func(g *WorkerGroup) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithQueueSize sets the number of tasks that may wait for a worker.
func WithQueueSize(n int) GroupOption {
	return func(g *WorkerGroup) {
		if n >= 0 {
			g.queueSize = n
		}
	}
}

// WithGroupLogger sets the logger for panics and shutdown events.
func WithGroupLogger(logger *slog.Logger) GroupOption {
	return func(g *WorkerGroup) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTaskRecorder reports task outcomes and the number of running tasks.
func WithTaskRecorder(r TaskRecorder) GroupOption {
	return func(g *WorkerGroup) {
		g.recorder = r
	}
}

// WorkerGroup is the default [LoopGroup]: a named, fixed set of goroutines
// fed by a bounded queue.
type WorkerGroup struct {
	name      string
	workers   int
	queueSize int
	logger    *slog.Logger
	recorder  TaskRecorder

	queue  chan Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	active atomic.Int64

	// mu orders Execute against closing the queue.
	mu       sync.RWMutex
	shutdown bool

	terminated chan struct{}
	err        error
}

// NewWorkerGroup creates a group and starts its workers.
//
// Example:
//
//	g := engine.NewWorkerGroup("jobs", engine.WithWorkers(4))
//	_ = g.Execute(func(ctx context.Context) { process(ctx) })
//	_ = g.ShutdownGracefully(time.Second, 5*time.Second)
//	<-g.Terminated()
func NewWorkerGroup(name string, opts ...GroupOption) *WorkerGroup {
	g := &WorkerGroup{
		name:       name,
		workers:    DefaultWorkers,
		queueSize:  DefaultQueueSize,
		logger:     slog.New(slog.DiscardHandler),
		terminated: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.queue = make(chan Task, g.queueSize)
	g.ctx, g.cancel = context.WithCancel(context.Background())

	g.wg.Add(g.workers)
	for range g.workers {
		go g.work()
	}

	return g
}

// Name returns the group name.
func (g *WorkerGroup) Name() string { return g.name }

// Workers returns the number of goroutines.
func (g *WorkerGroup) Workers() int { return g.workers }

// Active returns the number of tasks currently running.
func (g *WorkerGroup) Active() int64 { return g.active.Load() }

// Execute implements [LoopGroup]. It never blocks: a full queue fails with
// [ErrQueueFull].
func (g *WorkerGroup) Execute(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.shutdown {
		g.record(OutcomeRejected)
		return fmt.Errorf("%s: %w", g.name, ErrGroupShuttingDown)
	}

	select {
	case g.queue <- task:
		return nil
	default:
		g.record(OutcomeRejected)
		return fmt.Errorf("%s: %w", g.name, ErrQueueFull)
	}
}

// ShutdownGracefully implements [LoopGroup]. A timeout shorter than the
// grace period cuts the grace period short.
func (g *WorkerGroup) ShutdownGracefully(gracePeriod, timeout time.Duration) error {
	if gracePeriod < 0 || timeout < 0 {
		return ErrInvalidDuration
	}

	g.mu.Lock()
	if g.shutdown {
		g.mu.Unlock()
		return fmt.Errorf("%s: %w", g.name, ErrAlreadyShutdown)
	}
	g.shutdown = true
	close(g.queue)
	g.mu.Unlock()

	g.logger.Debug("loop group shutting down",
		"group", g.name,
		"grace_period", gracePeriod,
		"timeout", timeout,
		"active", g.active.Load(),
	)
	go g.drain(min(gracePeriod, timeout), timeout)

	return nil
}

// Terminated implements [LoopGroup].
func (g *WorkerGroup) Terminated() <-chan struct{} { return g.terminated }

// Err implements [LoopGroup].
func (g *WorkerGroup) Err() error {
	select {
	case <-g.terminated:
		return g.err
	default:
		return nil
	}
}

func (g *WorkerGroup) drain(grace, timeout time.Duration) {
	idle := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(idle)
	}()

	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()
	timeoutTimer := time.NewTimer(timeout)
	defer timeoutTimer.Stop()

	select {
	case <-idle:
		g.finish(nil)
		return
	case <-graceTimer.C:
	}

	g.cancel()

	select {
	case <-idle:
		g.finish(nil)
	case <-timeoutTimer.C:
		g.finish(fmt.Errorf("%s: %w with %d tasks running", g.name, ErrShutdownTimeout, g.active.Load()))
	}
}

func (g *WorkerGroup) finish(err error) {
	g.cancel()
	g.err = err
	close(g.terminated)

	if err != nil {
		g.logger.Warn("loop group terminated", "group", g.name, "error", err)
		return
	}
	g.logger.Debug("loop group terminated", "group", g.name)
}

func (g *WorkerGroup) work() {
	defer g.wg.Done()
	for task := range g.queue {
		g.run(task)
	}
}

func (g *WorkerGroup) run(task Task) {
	g.active.Add(1)
	if g.recorder != nil {
		g.recorder.AddActiveTasks(context.Background(), g.name, 1)
	}

	outcome := OutcomeCompleted
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomePanicked
			g.logger.Error("task panicked",
				"group", g.name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		g.active.Add(-1)
		if g.recorder != nil {
			g.recorder.AddActiveTasks(context.Background(), g.name, -1)
		}
		g.record(outcome)
	}()

	task(g.ctx)
}

func (g *WorkerGroup) record(outcome string) {
	if g.recorder != nil {
		g.recorder.RecordTask(context.Background(), g.name, outcome)
	}
}
