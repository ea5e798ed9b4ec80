// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// recordRepository is the PostgreSQL-backed [RecordRepository] over the
// "records" table.
type recordRepository struct {
	*DB
	logger *logger.Logger
}

// NewRecordRepository constructs a [RecordRepository] backed by db.
func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	return &recordRepository{DB: db, logger: logger}
}

func (r *recordRepository) CreateRecord(ctx context.Context, rec models.Record) (string, bool, error) {
	log := logger.FromContext(ctx)

	var key any
	if rec.IdempotencyKey != "" {
		key = rec.IdempotencyKey
	}

	query, args, err := psql.Insert("records").
		Columns("collection", "id", "owner_id", "body", "idempotency_key").
		Values(rec.Collection, rec.ID, rec.OwnerID, string(rec.Body), key).
		Suffix("ON CONFLICT (owner_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var id string
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || rec.IdempotencyKey == "" {
		log.Err(err).
			Str("func", "recordRepository.CreateRecord").
			Str("collection", rec.Collection).
			Msg("failed to insert record")
		return "", false, r.wrap(err, ErrExecutingStatement)
	}

	// the idempotency key was used before: hand back the original id
	query, args, err = psql.Select("id").
		From("records").
		Where(sq.Eq{"owner_id": rec.OwnerID, "idempotency_key": rec.IdempotencyKey}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if err = r.DB.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		log.Err(err).
			Str("func", "recordRepository.CreateRecord").
			Str("idempotency_key", rec.IdempotencyKey).
			Msg("failed to read record of a replayed create")
		return "", false, r.wrap(err, ErrExecutingQuery)
	}
	return id, true, nil
}

func (r *recordRepository) GetRecord(ctx context.Context, collection, id, ownerID string) (models.Record, error) {
	query, args, err := psql.Select("collection", "id", "owner_id", "body", "created_at", "updated_at").
		From("records").
		Where(sq.Eq{"collection": collection, "id": id, "owner_id": ownerID, "deleted": false}).
		ToSql()
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var (
		rec  models.Record
		body []byte
	)
	err = r.DB.QueryRowContext(ctx, query, args...).
		Scan(&rec.Collection, &rec.ID, &rec.OwnerID, &body, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, ErrRecordNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "recordRepository.GetRecord").Msg("failed to read record")
		return models.Record{}, r.wrap(err, ErrScanningRow)
	}
	rec.Body = body
	return rec, nil
}

func (r *recordRepository) UpdateRecord(ctx context.Context, collection, id, ownerID string, patch json.RawMessage) error {
	query, args, err := psql.Update("records").
		Set("body", sq.Expr("body || ?::jsonb", string(patch))).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"collection": collection, "id": id, "owner_id": ownerID, "deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.execAffectingOne(ctx, "recordRepository.UpdateRecord", query, args)
}

func (r *recordRepository) DeleteRecord(ctx context.Context, collection, id, ownerID string) error {
	query, args, err := psql.Update("records").
		Set("deleted", true).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"collection": collection, "id": id, "owner_id": ownerID, "deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.execAffectingOne(ctx, "recordRepository.DeleteRecord", query, args)
}

func (r *recordRepository) execAffectingOne(ctx context.Context, fn, query string, args []any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", fn).Msg("failed to execute statement")
		return r.wrap(err, ErrExecutingStatement)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return r.wrap(err, ErrExecutingStatement)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// wrap tags err with sentinel and, for retryable driver errors, with
// [ErrTransient].
func (r *recordRepository) wrap(err, sentinel error) error {
	if r.errorClassificator != nil && r.errorClassificator.Classify(err) == Retryable {
		return fmt.Errorf("%w: %w: %w", ErrTransient, sentinel, err)
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
