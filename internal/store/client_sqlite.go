// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
)

// sqliteBackend stores cache blobs in the kv_store table of the local SQLite
// database.
type sqliteBackend struct {
	*DB
	logger *logger.Logger
}

// NewSQLiteBackend constructs a [KVBackend] on an already migrated database.
func NewSQLiteBackend(db *DB, logger *logger.Logger) KVBackend {
	return &sqliteBackend{DB: db, logger: logger}
}

func (s *sqliteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.DB.QueryRowContext(ctx, getKV, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.Err(err).Str("func", "sqliteBackend.Get").Str("key", key).Msg("failed to read value")
		return nil, false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return value, true, nil
}

func (s *sqliteBackend) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.DB.ExecContext(ctx, putKV, key, value, time.Now().UTC()); err != nil {
		s.logger.Err(err).Str("func", "sqliteBackend.Put").Str("key", key).Msg("failed to write value")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (s *sqliteBackend) Delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, deleteKV, key); err != nil {
		s.logger.Err(err).Str("func", "sqliteBackend.Delete").Str("key", key).Msg("failed to delete value")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (s *sqliteBackend) Clear(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, clearKV); err != nil {
		s.logger.Err(err).Str("func", "sqliteBackend.Clear").Msg("failed to clear store")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (s *sqliteBackend) Close() error {
	return s.DB.Close()
}
