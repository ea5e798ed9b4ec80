// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/crypto"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
)

// MemoryDSN selects the in-process backend instead of SQLite.
const MemoryDSN = ":memory:"

// ClientStorages groups the client-side storage layer.
type ClientStorages struct {
	// SecureStore is the encrypted key-value store. The rate limiter keeps
	// its state here too.
	SecureStore *SecureStore

	// Cache is the typed collection view used by the services.
	Cache LocalCache

	backend KVBackend
}

// NewClientStorages initialises the client storage layer:
//  1. Opens the SQLite database at cfg.DB.DSN (or an in-memory backend for
//     [MemoryDSN]), creating the file if it does not exist.
//  2. Runs pending schema migrations.
//  3. Wraps the backend in a [SecureStore] and a [LocalCache].
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, keys crypto.KeyChain, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("creating new storages...")

	var backend KVBackend
	if cfg.DB.DSN == MemoryDSN {
		backend = NewMemoryBackend()
	} else {
		db, err := NewConnectSQLite(ctx, cfg.DB, logger)
		if err != nil {
			return nil, fmt.Errorf("sqlite connection error: %w", err)
		}

		if err = db.MigrateClient(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		backend = NewSQLiteBackend(db, logger)
	}

	secure := NewSecureStore(backend, keys, cfg, logger)
	return &ClientStorages{
		SecureStore: secure,
		Cache:       NewLocalCache(secure, cfg.MaxReceipts),
		backend:     backend,
	}, nil
}

// Close releases the underlying database.
func (c *ClientStorages) Close() error {
	return c.backend.Close()
}
