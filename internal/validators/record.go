// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/mail"
	"slices"
	"strings"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

// Field names accepted by [RecordValidator.Validate] to scope validation.
const (
	FieldID         = "id"
	FieldName       = "name"
	FieldEmail      = "email"
	FieldClientID   = "client_id"
	FieldDate       = "date"
	FieldItems      = "items"
	FieldTotal      = "total"
	FieldPrice      = "price"
	FieldCollection = "collection"
	FieldOwnerID    = "owner_id"
	FieldBody       = "body"
)

// totalTolerance absorbs float rounding when comparing a receipt total with
// the sum of its lines.
const totalTolerance = 0.005

// Collections accepted by the record server.
var allowedCollections = []string{
	models.CollectionClients,
	models.CollectionReceipts,
	models.CollectionProducts,
	models.CollectionCategories,
}

// RecordValidator checks client, receipt and catalog payloads before they
// are cached or queued, and raw records before the server stores them.
type RecordValidator struct{}

func NewRecordValidator() Validator {
	return &RecordValidator{}
}

func (v *RecordValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.Client:
		return v.validateClient(value, fields...)
	case *models.Client:
		return v.validateClient(*value, fields...)

	case models.ClientPatch:
		return v.validateClientPatch(value)
	case *models.ClientPatch:
		return v.validateClientPatch(*value)

	case models.Receipt:
		return v.validateReceipt(value, fields...)
	case *models.Receipt:
		return v.validateReceipt(*value, fields...)

	case models.Product:
		return v.validateProduct(value)
	case models.Category:
		if strings.TrimSpace(value.Name) == "" {
			return ErrEmptyName
		}
		return nil

	case models.Record:
		return v.validateRecord(value, fields...)
	case *models.Record:
		return v.validateRecord(*value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *RecordValidator) validateClient(c models.Client, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldID, FieldName, FieldEmail}
	}

	for _, f := range fields {
		switch f {
		case FieldID:
			if c.ID.IsZero() {
				return ErrInvalidID
			}
		case FieldName:
			if strings.TrimSpace(c.Name) == "" {
				return ErrEmptyName
			}
		case FieldEmail:
			if err := validateEmail(c.Email); err != nil {
				return err
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func (v *RecordValidator) validateClientPatch(p models.ClientPatch) error {
	if p.IsEmpty() {
		return ErrNoFieldsToUpdate
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrEmptyName
	}
	if p.Email != nil {
		return validateEmail(*p.Email)
	}
	return nil
}

func (v *RecordValidator) validateReceipt(r models.Receipt, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldID, FieldClientID, FieldDate, FieldItems, FieldTotal}
	}

	for _, f := range fields {
		switch f {
		case FieldID:
			if r.ID.IsZero() {
				return ErrInvalidID
			}
		case FieldClientID:
			if r.ClientID.IsZero() {
				return ErrMissingClient
			}
		case FieldDate:
			if r.Date.IsZero() {
				return ErrMissingDate
			}
		case FieldItems:
			if len(r.Items) == 0 {
				return ErrEmptyItems
			}
			for i, it := range r.Items {
				if it.Quantity <= 0 || it.UnitPrice < 0 || strings.TrimSpace(it.Description) == "" {
					return fmt.Errorf("%w at index %d", ErrInvalidItem, i)
				}
			}
		case FieldTotal:
			if math.Abs(r.Total-r.ComputeTotal()) > totalTolerance {
				return ErrTotalMismatch
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func (v *RecordValidator) validateProduct(p models.Product) error {
	if p.ID.IsZero() {
		return ErrInvalidID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (v *RecordValidator) validateRecord(rec models.Record, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldCollection, FieldOwnerID, FieldBody}
	}

	for _, f := range fields {
		switch f {
		case FieldCollection:
			if !slices.Contains(allowedCollections, rec.Collection) {
				return ErrInvalidCollection
			}
		case FieldOwnerID:
			if rec.OwnerID == "" {
				return ErrInvalidOwnerID
			}
		case FieldBody:
			if !bytes.HasPrefix(bytes.TrimSpace(rec.Body), []byte("{")) {
				return ErrInvalidRecordBody
			}
		case FieldID:
			if strings.HasPrefix(rec.ID, "temp_") {
				return ErrInvalidRecordRefID
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEmail, err)
	}
	return nil
}
