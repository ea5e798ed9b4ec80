// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the client's transport to the remote record
// store.
//
// The primary abstraction is [RemoteStore], which decouples the sync engine
// from the protocol. The package ships an HTTP/REST implementation
// ([NewHTTPRemoteStore]).
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrBadRequest] for 400, [ErrNotFound] for 404).
package adapter

import (
	"context"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_store_mock.go -package=mock

// RemoteStore is the remote record store as seen by the sync engine.
// Records and patches are JSON-serialisable values; ids are the store's
// authoritative identifiers.
type RemoteStore interface {
	// SetToken stores the bearer token attached to every request.
	SetToken(token string)

	// Token returns the current bearer token or "".
	Token() string

	// Create stores record in collection and returns the id the store
	// assigned. idempotencyKey makes retries of the same create return the
	// original id instead of a duplicate record.
	Create(ctx context.Context, collection string, record any, idempotencyKey string) (string, error)

	// Update merges patch into the record identified by id.
	Update(ctx context.Context, collection, id string, patch any) error

	// Delete removes the record identified by id.
	Delete(ctx context.Context, collection, id string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
