// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package ratelimit implements the client-side fixed-window rate limiter
// that guards user mutations and sync passes.
//
// Counters are keyed by (operation, identifier, device fingerprint) and
// survive restarts through the secure local store. Any internal failure
// fails open: the limiter never blocks a call because of its own bug.
package ratelimit

import (
	"context"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/ratelimit_mock.go -package=mock

// StateStore persists limiter state. *store.SecureStore satisfies it.
type StateStore interface {
	Get(ctx context.Context, key string, target any) bool
	Put(ctx context.Context, key string, value any) error
}

// Checker is the narrow view services depend on.
type Checker interface {
	CheckLimit(operation, identifier string) models.RateLimitResult
	GetStatus(operation, identifier string) models.RateLimitResult
}

// Signal is a host lifecycle event.
type Signal int

const (
	// SignalHidden is sent when the UI goes to the background.
	SignalHidden Signal = iota
	// SignalUnload is sent right before the process exits.
	SignalUnload
)

func (s Signal) String() string {
	switch s {
	case SignalHidden:
		return "hidden"
	case SignalUnload:
		return "unload"
	default:
		return "unknown"
	}
}

// Lifecycle delivers host lifecycle signals. Subscribe returns a function
// that detaches the listener.
type Lifecycle interface {
	Subscribe(fn func(Signal)) (unsubscribe func())
}
