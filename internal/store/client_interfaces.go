// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

// KVBackend is the raw byte store under the secure local store. Values are
// opaque; encryption happens above this layer.
type KVBackend interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key.
	Clear(ctx context.Context) error
	Close() error
}

// LocalCache is the typed view over the secure local store used by the
// services. Reads never fail: a missing or unreadable collection yields an
// empty slice. The Update* methods run fn under the collection lock so that a
// read-modify-write cycle cannot interleave with another writer; they fail
// with [ErrEntryUnreadable] rather than overwrite a collection they cannot
// read.
type LocalCache interface {
	Clients(ctx context.Context) []models.Client
	SaveClients(ctx context.Context, clients []models.Client) error
	UpdateClients(ctx context.Context, fn func([]models.Client) []models.Client) error

	// Receipts are kept ordered by date, newest first, and capped.
	Receipts(ctx context.Context) []models.Receipt
	SaveReceipts(ctx context.Context, receipts []models.Receipt) error
	UpdateReceipts(ctx context.Context, fn func([]models.Receipt) []models.Receipt) error

	Products(ctx context.Context) []models.Product
	SaveProducts(ctx context.Context, products []models.Product) error

	Categories(ctx context.Context) []models.Category
	SaveCategories(ctx context.Context, categories []models.Category) error

	PendingOperations(ctx context.Context) []models.PendingOperation
	SavePendingOperations(ctx context.Context, ops []models.PendingOperation) error
	UpdatePendingOperations(ctx context.Context, fn func([]models.PendingOperation) []models.PendingOperation) error

	LastSyncedAt(ctx context.Context) (time.Time, bool)
	IsStale(ctx context.Context) bool

	// Clear wipes every collection, e.g. on sign-out.
	Clear(ctx context.Context) error

	// Exclusive runs fn under a lock shared by all callers of Exclusive. It
	// is held across multi-step sequences that touch several collections,
	// such as writing a record and queueing its operation. fn must not call
	// Exclusive again.
	Exclusive(fn func() error) error
}
