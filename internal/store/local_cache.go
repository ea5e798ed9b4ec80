// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

// DefaultMaxReceipts is the receipts cap used when none is configured.
const DefaultMaxReceipts = 100

var dataCollections = []string{
	models.CollectionClients,
	models.CollectionReceipts,
	models.CollectionProducts,
	models.CollectionCategories,
	models.CollectionPendingOperations,
}

type localCache struct {
	store       *SecureStore
	maxReceipts int

	// mu serialises whole-collection writes.
	mu sync.Mutex
	// batch serialises Exclusive sequences.
	batch sync.Mutex
}

// NewLocalCache constructs a [LocalCache] on top of store.
func NewLocalCache(store *SecureStore, maxReceipts int) LocalCache {
	if maxReceipts < 1 {
		maxReceipts = DefaultMaxReceipts
	}
	return &localCache{store: store, maxReceipts: maxReceipts}
}

func readCollection[T any](ctx context.Context, s *SecureStore, key string) []T {
	var items []T
	if !s.Get(ctx, key, &items) || items == nil {
		return []T{}
	}
	return items
}

// loadCollection is readCollection for read-modify-write cycles: an entry that
// exists but cannot be read is an error, so it is never replaced by the
// result of fn applied to an empty slice.
func loadCollection[T any](ctx context.Context, s *SecureStore, key string) ([]T, error) {
	var items []T
	if _, err := s.Load(ctx, key, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *localCache) Clients(ctx context.Context) []models.Client {
	return readCollection[models.Client](ctx, c.store, models.CollectionClients)
}

func (c *localCache) SaveClients(ctx context.Context, clients []models.Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Put(ctx, models.CollectionClients, clients)
}

func (c *localCache) UpdateClients(ctx context.Context, fn func([]models.Client) []models.Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clients, err := loadCollection[models.Client](ctx, c.store, models.CollectionClients)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, models.CollectionClients, fn(clients))
}

func (c *localCache) Receipts(ctx context.Context) []models.Receipt {
	return readCollection[models.Receipt](ctx, c.store, models.CollectionReceipts)
}

func (c *localCache) SaveReceipts(ctx context.Context, receipts []models.Receipt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Put(ctx, models.CollectionReceipts, c.capReceipts(receipts))
}

func (c *localCache) UpdateReceipts(ctx context.Context, fn func([]models.Receipt) []models.Receipt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	receipts, err := loadCollection[models.Receipt](ctx, c.store, models.CollectionReceipts)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, models.CollectionReceipts, c.capReceipts(fn(receipts)))
}

// capReceipts orders receipts newest first and keeps at most maxReceipts.
func (c *localCache) capReceipts(receipts []models.Receipt) []models.Receipt {
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].Date.After(receipts[j].Date)
	})
	if len(receipts) > c.maxReceipts {
		receipts = receipts[:c.maxReceipts]
	}
	return receipts
}

func (c *localCache) Products(ctx context.Context) []models.Product {
	return readCollection[models.Product](ctx, c.store, models.CollectionProducts)
}

func (c *localCache) SaveProducts(ctx context.Context, products []models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Put(ctx, models.CollectionProducts, products)
}

func (c *localCache) Categories(ctx context.Context) []models.Category {
	return readCollection[models.Category](ctx, c.store, models.CollectionCategories)
}

func (c *localCache) SaveCategories(ctx context.Context, categories []models.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Put(ctx, models.CollectionCategories, categories)
}

func (c *localCache) PendingOperations(ctx context.Context) []models.PendingOperation {
	return readCollection[models.PendingOperation](ctx, c.store, models.CollectionPendingOperations)
}

func (c *localCache) SavePendingOperations(ctx context.Context, ops []models.PendingOperation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Put(ctx, models.CollectionPendingOperations, ops)
}

func (c *localCache) UpdatePendingOperations(ctx context.Context, fn func([]models.PendingOperation) []models.PendingOperation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops, err := loadCollection[models.PendingOperation](ctx, c.store, models.CollectionPendingOperations)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, models.CollectionPendingOperations, fn(ops))
}

func (c *localCache) LastSyncedAt(ctx context.Context) (time.Time, bool) {
	return c.store.LastSyncedAt(ctx)
}

func (c *localCache) IsStale(ctx context.Context) bool {
	return c.store.IsStale(ctx)
}

// Clear removes every data collection and the freshness stamp. Rate limiter
// state and the device fingerprint survive a sign-out.
func (c *localCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range append(dataCollections, KeyLastSyncedAt) {
		if err := c.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (c *localCache) Exclusive(fn func() error) error {
	c.batch.Lock()
	defer c.batch.Unlock()
	return fn()
}
