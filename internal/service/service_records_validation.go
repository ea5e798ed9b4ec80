// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-receipt-keeper/internal/validators"
	"github.com/MKhiriev/go-receipt-keeper/models"
)

type RecordValidationService struct {
	inner     RecordService
	validator validators.Validator
}

func NewRecordValidationService() RecordServiceWrapper {
	return &RecordValidationService{
		validator: validators.NewRecordValidator(),
	}
}

func (v *RecordValidationService) CreateRecord(ctx context.Context, rec models.Record) (models.CreateRecordResponse, error) {
	if err := v.validate(ctx, rec); err != nil {
		return models.CreateRecordResponse{}, err
	}
	return v.inner.CreateRecord(ctx, rec)
}

func (v *RecordValidationService) GetRecord(ctx context.Context, collection, id, ownerID string) (models.Record, error) {
	if err := v.validateTarget(ctx, collection, id, ownerID); err != nil {
		return models.Record{}, err
	}
	return v.inner.GetRecord(ctx, collection, id, ownerID)
}

func (v *RecordValidationService) UpdateRecord(ctx context.Context, collection, id, ownerID string, patch json.RawMessage) error {
	if err := v.validateTarget(ctx, collection, id, ownerID); err != nil {
		return err
	}
	if err := v.validate(ctx, models.Record{Collection: collection, OwnerID: ownerID, Body: patch}, validators.FieldBody); err != nil {
		return err
	}
	return v.inner.UpdateRecord(ctx, collection, id, ownerID, patch)
}

func (v *RecordValidationService) DeleteRecord(ctx context.Context, collection, id, ownerID string) error {
	if err := v.validateTarget(ctx, collection, id, ownerID); err != nil {
		return err
	}
	return v.inner.DeleteRecord(ctx, collection, id, ownerID)
}

func (v *RecordValidationService) Wrap(inner RecordService) RecordService {
	v.inner = inner
	return v
}

func (v *RecordValidationService) validateTarget(ctx context.Context, collection, id, ownerID string) error {
	if id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDataProvided, validators.ErrInvalidID)
	}
	rec := models.Record{Collection: collection, ID: id, OwnerID: ownerID}
	return v.validate(ctx, rec, validators.FieldCollection, validators.FieldOwnerID, validators.FieldID)
}

func (v *RecordValidationService) validate(ctx context.Context, rec models.Record, fields ...string) error {
	err := v.validator.Validate(ctx, rec, fields...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, validators.ErrInvalidCollection):
		return fmt.Errorf("%w: %q", ErrUnknownCollection, rec.Collection)
	case errors.Is(err, validators.ErrInvalidOwnerID):
		return fmt.Errorf("%w: %w", ErrNoOwner, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}
}
