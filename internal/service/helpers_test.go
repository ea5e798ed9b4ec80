// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/crypto"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/stretchr/testify/require"
)

// newTestCache returns a real encrypted cache over the memory backend.
func newTestCache(t *testing.T) (*writeCountingCache, *store.SecureStore) {
	t.Helper()
	secure := store.NewSecureStore(store.NewMemoryBackend(), crypto.NewKeyChainWithIterations(1), config.ClientStorage{}, logger.Nop())
	secure.SetUser("owner-1")
	return &writeCountingCache{LocalCache: store.NewLocalCache(secure, 0), writes: map[string]int{}}, secure
}

// writeCountingCache counts collection writes.
type writeCountingCache struct {
	store.LocalCache

	mu     sync.Mutex
	writes map[string]int
}

func (c *writeCountingCache) count(collection string) {
	c.mu.Lock()
	c.writes[collection]++
	c.mu.Unlock()
}

func (c *writeCountingCache) Writes(collection string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[collection]
}

func (c *writeCountingCache) TotalWrites() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.writes {
		n += v
	}
	return n
}

func (c *writeCountingCache) ResetWrites() {
	c.mu.Lock()
	c.writes = map[string]int{}
	c.mu.Unlock()
}

func (c *writeCountingCache) SaveClients(ctx context.Context, v []models.Client) error {
	c.count(models.CollectionClients)
	return c.LocalCache.SaveClients(ctx, v)
}

func (c *writeCountingCache) UpdateClients(ctx context.Context, fn func([]models.Client) []models.Client) error {
	c.count(models.CollectionClients)
	return c.LocalCache.UpdateClients(ctx, fn)
}

func (c *writeCountingCache) SaveReceipts(ctx context.Context, v []models.Receipt) error {
	c.count(models.CollectionReceipts)
	return c.LocalCache.SaveReceipts(ctx, v)
}

func (c *writeCountingCache) UpdateReceipts(ctx context.Context, fn func([]models.Receipt) []models.Receipt) error {
	c.count(models.CollectionReceipts)
	return c.LocalCache.UpdateReceipts(ctx, fn)
}

func (c *writeCountingCache) SaveProducts(ctx context.Context, v []models.Product) error {
	c.count(models.CollectionProducts)
	return c.LocalCache.SaveProducts(ctx, v)
}

func (c *writeCountingCache) SaveCategories(ctx context.Context, v []models.Category) error {
	c.count(models.CollectionCategories)
	return c.LocalCache.SaveCategories(ctx, v)
}

func (c *writeCountingCache) SavePendingOperations(ctx context.Context, v []models.PendingOperation) error {
	c.count(models.CollectionPendingOperations)
	return c.LocalCache.SavePendingOperations(ctx, v)
}

func (c *writeCountingCache) UpdatePendingOperations(ctx context.Context, fn func([]models.PendingOperation) []models.PendingOperation) error {
	c.count(models.CollectionPendingOperations)
	return c.LocalCache.UpdatePendingOperations(ctx, fn)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func seedClients(t *testing.T, cache store.LocalCache, clients ...models.Client) {
	t.Helper()
	require.NoError(t, cache.SaveClients(context.Background(), clients))
}

func seedReceipts(t *testing.T, cache store.LocalCache, receipts ...models.Receipt) {
	t.Helper()
	require.NoError(t, cache.SaveReceipts(context.Background(), receipts))
}

func seedOps(t *testing.T, cache store.LocalCache, ops ...models.PendingOperation) {
	t.Helper()
	require.NoError(t, cache.SavePendingOperations(context.Background(), ops))
}

func createClientOp(opID string, c models.Client, at time.Time) models.PendingOperation {
	return models.PendingOperation{
		ID:         opID,
		Type:       models.OpCreateClient,
		Payload:    models.OperationPayload{Client: &c},
		EnqueuedAt: at,
	}
}

func createReceiptOp(opID string, r models.Receipt, at time.Time) models.PendingOperation {
	return models.PendingOperation{
		ID:         opID,
		Type:       models.OpCreateReceipt,
		Payload:    models.OperationPayload{Receipt: &r},
		EnqueuedAt: at,
	}
}
