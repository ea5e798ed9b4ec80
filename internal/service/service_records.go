// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/MKhiriev/go-receipt-keeper/internal/utils"
	"github.com/MKhiriev/go-receipt-keeper/models"
)

type recordService struct {
	recordRepository store.RecordRepository
	ids              idGenerator

	logger *logger.Logger
}

func NewRecordService(recordRepository store.RecordRepository, logger *logger.Logger) RecordService {
	return &recordService{
		recordRepository: recordRepository,
		ids:              utils.NewUUIDGenerator(),
		logger:           logger,
	}
}

// CreateRecord mints the authoritative id. Ids sent by the client are
// ignored: they are placeholders at best.
func (r *recordService) CreateRecord(ctx context.Context, rec models.Record) (models.CreateRecordResponse, error) {
	log := logger.FromContext(ctx)

	rec.ID = r.ids.Generate()
	id, duplicate, err := r.recordRepository.CreateRecord(ctx, rec)
	if err != nil {
		log.Err(err).Str("collection", rec.Collection).Msg("record creation ended with error")
		return models.CreateRecordResponse{}, fmt.Errorf("record creation ended with error: %w", err)
	}

	if duplicate {
		log.Info().
			Str("collection", rec.Collection).
			Str("id", id).
			Str("idempotency_key", rec.IdempotencyKey).
			Msg("replayed create answered with the original id")
	}

	return models.CreateRecordResponse{ID: id, Duplicate: duplicate}, nil
}

func (r *recordService) GetRecord(ctx context.Context, collection, id, ownerID string) (models.Record, error) {
	return r.recordRepository.GetRecord(ctx, collection, id, ownerID)
}

func (r *recordService) UpdateRecord(ctx context.Context, collection, id, ownerID string, patch json.RawMessage) error {
	return r.recordRepository.UpdateRecord(ctx, collection, id, ownerID, patch)
}

func (r *recordService) DeleteRecord(ctx context.Context, collection, id, ownerID string) error {
	return r.recordRepository.DeleteRecord(ctx, collection, id, ownerID)
}
