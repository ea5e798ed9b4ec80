// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"slices"
	"sync"
)

// Workers starts its members in registration order and stops them in
// reverse order.
type Workers struct {
	mu      sync.Mutex
	workers []Worker
	running bool
}

func New(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

// Add registers w. A worker added while the aggregate runs is started right
// away.
func (w *Workers) Add(ctx context.Context, worker Worker) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.workers = append(w.workers, worker)
	if w.running {
		worker.Start(ctx)
	}
}

func (w *Workers) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	for _, worker := range w.workers {
		worker.Start(ctx)
	}
}

func (w *Workers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	for _, worker := range slices.Backward(w.workers) {
		worker.Stop()
	}
}

// Func adapts a pair of functions to Worker. Either may be nil.
type Func struct {
	StartFn func(ctx context.Context)
	StopFn  func()
}

func (f Func) Start(ctx context.Context) {
	if f.StartFn != nil {
		f.StartFn(ctx)
	}
}

func (f Func) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}
