// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package bridge runs engine calls to completion on a long lived worker
// pool and hands the result back to a synchronous caller.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/panjf2000/ants/v2"
)

const releaseTimeout = 5 * time.Second

// Bridge executes tasks on an ants pool. Run blocks until the task
// finishes; tasks are never abandoned.
type Bridge struct {
	pool   *ants.Pool
	logger *slog.Logger
}

// New creates a Bridge with size workers; size <= 0 means twice
// GOMAXPROCS.
func New(size int, logger *slog.Logger) (*Bridge, error) {
	if size <= 0 {
		size = 2 * runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		// Run recovers task panics itself; this only fires for panics
		// in the pool's own bookkeeping.
		logger.Error("bridge worker panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("create bridge pool: %w", err)
	}
	return &Bridge{pool: pool, logger: logger}, nil
}

// Run submits task and waits for it. A panic inside task is reported as
// an ErrorInternal error instead of unwinding into the caller.
func (b *Bridge) Run(ctx context.Context, task func(context.Context) error) error {
	done := make(chan error, 1)
	err := b.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.ErrorContext(ctx, "engine task panicked",
					"panic", r, "stack", string(debug.Stack()))
				done <- dfc.Errorf(dfc.ErrorInternal, "engine task panicked: %v", r)
			}
		}()
		done <- task(ctx)
	})
	if err != nil {
		switch {
		case errors.Is(err, ants.ErrPoolOverload):
			return dfc.Errorf(dfc.ErrorResourcesExhausted, "bridge pool is overloaded")
		case errors.Is(err, ants.ErrPoolClosed):
			return dfc.Errorf(dfc.ErrorInternal, "bridge pool is closed")
		}
		return dfc.Errorf(dfc.ErrorInternal, "submit engine task: %s", err)
	}
	return <-done
}

// Do is Run for tasks that produce a value.
func Do[T any](ctx context.Context, b *Bridge, task func(context.Context) (T, error)) (T, error) {
	var out T
	err := b.Run(ctx, func(ctx context.Context) error {
		var err error
		out, err = task(ctx)
		return err
	})
	return out, err
}

// Running reports how many workers are busy.
func (b *Bridge) Running() int {
	return b.pool.Running()
}

func (b *Bridge) Cap() int {
	return b.pool.Cap()
}

// Close waits for running tasks to finish, up to a few seconds.
func (b *Bridge) Close() error {
	return b.pool.ReleaseTimeout(releaseTimeout)
}
