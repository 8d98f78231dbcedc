// Copyright 2025 Poiesic Systems
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


package runner

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Task is a unit of background work.
type Task func(ctx context.Context) error

// Handle tracks one submitted task through completion.
type Handle struct {
	name string
	done chan struct{}

	mu  sync.Mutex
	err error
}

// Name returns the task's submission name.
func (h *Handle) Name() string {
	return h.name
}

// Done returns a channel closed when the task finishes.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task's final error. Only meaningful after Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the task finishes or ctx is canceled, returning the
// task's final error.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.Err()
	}
}

func (h *Handle) finish(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// Runner executes tasks on a shared worker pool with automatic retry of
// transient failures.
type Runner struct {
	pool     *ants.Pool
	policy   RetryPolicy
	logger   *slog.Logger
	released bool
	mu       sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner) error

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Runner) error {
		if size < 1 {
			size = 1
		}
		if r.pool != nil {
			r.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(r *Runner) error {
		r.policy = policy
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRunner creates a runner with the default pool size and retry policy.
func NewRunner(opts ...Option) (*Runner, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		pool:   pool,
		policy: DefaultRetryPolicy(),
		logger: slog.Default().With("component", "runner"),
	}

	for _, opt := range opts {
		if optErr := opt(r); optErr != nil {
			r.Release()
			return nil, optErr
		}
	}
	return r, nil
}

// Submit schedules a named task and returns its handle. The task runs
// with the runner's retry policy; transient failures back off and retry,
// permanent failures surface immediately on the handle.
func (r *Runner) Submit(ctx context.Context, name string, task Task) (*Handle, error) {
	if task == nil {
		return nil, ErrTaskRequired
	}

	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return nil, ErrReleased
	}
	r.mu.Unlock()

	handle := &Handle{name: name, done: make(chan struct{})}
	logger := r.logger.With("task", name)

	err := r.pool.Submit(func() {
		err := RetryWithBackoff(ctx, r.policy, logger, task)
		if err != nil {
			logger.Error("task failed", "err", err)
		} else {
			logger.Debug("task completed")
		}
		handle.finish(err)
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Release releases the worker pool. Submitted tasks already running are
// allowed to finish; new submissions fail with ErrReleased.
func (r *Runner) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	if r.pool != nil {
		r.pool.Release()
	}
}
