// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package ratelimit

import "sync"

// Hub is an in-process [Lifecycle]. The TUI emits SignalHidden when it loses
// focus and SignalUnload on exit; the CLI emits SignalUnload before
// returning.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Signal)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(Signal))}
}

func (h *Hub) Subscribe(fn func(Signal)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	h.subs[id] = fn

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Emit calls every listener synchronously, outside the hub lock.
func (h *Hub) Emit(sig Signal) {
	h.mu.Lock()
	fns := make([]func(Signal), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(sig)
	}
}

// Len returns the number of attached listeners.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
