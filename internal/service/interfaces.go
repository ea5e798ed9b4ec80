// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock -exclude_interfaces=RecordServiceWrapper

// RecordService is the record server's business layer over the record
// repository.
type RecordService interface {
	// CreateRecord stores rec under a freshly minted id. A replayed
	// idempotency key returns the id of the first record with Duplicate set.
	CreateRecord(ctx context.Context, rec models.Record) (models.CreateRecordResponse, error)
	GetRecord(ctx context.Context, collection, id, ownerID string) (models.Record, error)
	UpdateRecord(ctx context.Context, collection, id, ownerID string, patch json.RawMessage) error
	DeleteRecord(ctx context.Context, collection, id, ownerID string) error
}

// AuthService issues and verifies the bearer tokens the record server
// accepts. Account management lives elsewhere; the server only needs to know
// which owner a request belongs to.
type AuthService interface {
	CreateToken(ctx context.Context, ownerID string) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}

// RecordServiceWrapper defines middleware composition for RecordService.
// Implementations wrap an existing RecordService to add behavior such as
// validation.
type RecordServiceWrapper interface {
	Wrap(RecordService) RecordService
}
