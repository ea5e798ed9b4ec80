// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import "errors"

// Sentinel errors returned by the stores to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrEncryptionUnavailable is returned by [SecureStore.Put] when
	// encryption is required but no user is signed in.
	ErrEncryptionUnavailable = errors.New("encryption unavailable: no user signed in")

	// ErrEntryUnreadable is returned by [SecureStore.Load] when a stored entry
	// exists but cannot be decrypted with the current user or decoded.
	ErrEntryUnreadable = errors.New("cache entry is unreadable")

	// ErrRecordNotFound is returned when an update or delete targets a record
	// that does not exist (or belongs to another owner).
	ErrRecordNotFound = errors.New("record was not found")

	// ErrRecordNotSaved is returned when an INSERT completes without error but
	// persists nothing.
	ErrRecordNotSaved = errors.New("record was not saved")

	// ErrTransient is wrapped around database failures that may succeed when
	// retried (connection loss, serialization failure, deadlock).
	ErrTransient = errors.New("transient database failure")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row fails.
	ErrScanningRow = errors.New("failed to scan record row")
)
