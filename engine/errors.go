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

import "errors"

var (
	// ErrGroupShuttingDown indicates a task submitted after shutdown was requested.
	ErrGroupShuttingDown = errors.New("loop group is shutting down")

	// ErrQueueFull indicates that the task queue of a group is full.
	ErrQueueFull = errors.New("loop group queue is full")

	// ErrAlreadyShutdown indicates a repeated shutdown request on a group.
	ErrAlreadyShutdown = errors.New("loop group shutdown already requested")

	// ErrShutdownTimeout indicates that tasks were still running when the
	// shutdown timeout expired.
	ErrShutdownTimeout = errors.New("loop group shutdown timed out")

	// ErrInvalidDuration indicates a negative grace period or timeout.
	ErrInvalidDuration = errors.New("duration must not be negative")

	// ErrAlreadyStarted indicates Serve or Start on an engine that is running or stopped.
	ErrAlreadyStarted = errors.New("engine already started")

	// ErrNilHandler indicates a nil HTTP handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrNilTask indicates a nil task.
	ErrNilTask = errors.New("task cannot be nil")
)
