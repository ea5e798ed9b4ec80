// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorClassification tells the record repository whether a failed statement
// is worth replaying. Retryable failures are surfaced as [ErrTransient], which
// the HTTP layer answers with 503 so that the client keeps the operation
// queued instead of discarding it.
type ErrorClassification int

const (
	// NonRetryable failures are caused by the record itself, e.g. a
	// duplicate idempotency key or a client reference that does not exist.
	// Unknown errors fall here too.
	NonRetryable ErrorClassification = iota

	// Retryable failures come from the database, not the record: a dropped
	// connection, a serialization conflict between two syncing devices or a
	// server that is starting up.
	Retryable
)

func (c ErrorClassification) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "non-retryable"
}

// retryablePgCodes are the SQLSTATE codes after which a record write may
// succeed unchanged.
var retryablePgCodes = map[string]struct{}{
	pgerrcode.ConnectionException:    {},
	pgerrcode.ConnectionDoesNotExist: {},
	pgerrcode.ConnectionFailure:      {},
	pgerrcode.TransactionRollback:    {},
	pgerrcode.SerializationFailure:   {},
	pgerrcode.DeadlockDetected:       {},
	pgerrcode.CannotConnectNow:       {},
}

// PostgresErrorClassifier implements [ErrorClassificator] for the pgx driver.
type PostgresErrorClassifier struct{}

func NewPostgresErrorClassifier() *PostgresErrorClassifier {
	return &PostgresErrorClassifier{}
}

// Classify unwraps err to a *pgconn.PgError. Anything else, nil included, is
// [NonRetryable].
func (c *PostgresErrorClassifier) Classify(err error) ErrorClassification {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return ClassifyPgError(pgErr)
	}
	return NonRetryable
}

// ClassifyPgError maps the SQLSTATE of pgErr. Only connection loss (class
// 08), transaction rollbacks (class 40) and 57P03 are retryable; data
// exceptions, constraint violations and syntax errors repeat on every replay.
func ClassifyPgError(pgErr *pgconn.PgError) ErrorClassification {
	if _, ok := retryablePgCodes[pgErr.Code]; ok {
		return Retryable
	}
	return NonRetryable
}
