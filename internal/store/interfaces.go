// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// RecordRepository persists records of the reference record server.
type RecordRepository interface {
	// CreateRecord inserts rec. When rec.IdempotencyKey was already used by
	// the same owner the earlier record id is returned with duplicate=true
	// and nothing is written.
	CreateRecord(ctx context.Context, rec models.Record) (id string, duplicate bool, err error)

	// GetRecord returns a live record or [ErrRecordNotFound].
	GetRecord(ctx context.Context, collection, id, ownerID string) (models.Record, error)

	// UpdateRecord shallow-merges patch into the record body.
	UpdateRecord(ctx context.Context, collection, id, ownerID string, patch json.RawMessage) error

	// DeleteRecord soft-deletes the record.
	DeleteRecord(ctx context.Context, collection, id, ownerID string) error
}

// ErrorClassificator decides whether a failed database call may be retried.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
