// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"

	"github.com/MKhiriev/go-receipt-keeper/internal/adapter"
	"github.com/MKhiriev/go-receipt-keeper/models"
)

// remoteOutcome is what the drain loop does with an operation after the
// remote store answered.
type remoteOutcome int

const (
	// outcomeDone dequeues the operation as synced.
	outcomeDone remoteOutcome = iota
	// outcomeRetry keeps the operation queued and counts the attempt.
	outcomeRetry
	// outcomeHold keeps the operation queued without counting the attempt.
	outcomeHold
	// outcomeDiscard drops the operation right away.
	outcomeDiscard
)

// mapAdapterError translates the adapter's transport error into what the
// drain loop should do with op.
func mapAdapterError(op models.PendingOperation, err error) remoteOutcome {
	switch {
	case err == nil:
		return outcomeDone

	// Already gone on the server: the delete achieved its goal.
	case errors.Is(err, adapter.ErrNotFound) && op.Type == models.OpDeleteClient:
		return outcomeDone

	// Updating a record the server does not know will never succeed.
	case errors.Is(err, adapter.ErrNotFound) && op.Type == models.OpUpdateClient:
		return outcomeDiscard

	case adapter.IsPermanent(err):
		return outcomeDiscard

	// An expired session is not the operation's fault.
	case errors.Is(err, adapter.ErrUnauthorized):
		return outcomeHold

	default:
		return outcomeRetry
	}
}
