// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, maxReceipts int) (LocalCache, *SecureStore) {
	t.Helper()
	s, _ := newTestSecureStore(t, config.ClientStorage{})
	s.SetUser("owner")
	return NewLocalCache(s, maxReceipts), s
}

func TestLocalCache_EmptyDefaults(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 0)

	assert.NotNil(t, c.Clients(ctx))
	assert.Empty(t, c.Clients(ctx))
	assert.Empty(t, c.Receipts(ctx))
	assert.Empty(t, c.Products(ctx))
	assert.Empty(t, c.Categories(ctx))
	assert.Empty(t, c.PendingOperations(ctx))
}

func TestLocalCache_ReceiptsCappedNewestFirst(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, DefaultMaxReceipts)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	receipts := make([]models.Receipt, 0, 120)
	for i := range 120 {
		receipts = append(receipts, models.Receipt{
			ID:   models.AuthoritativeID(fmt.Sprintf("r%03d", i)),
			Date: base.Add(time.Duration(i) * time.Hour),
		})
	}

	require.NoError(t, c.SaveReceipts(ctx, receipts))

	got := c.Receipts(ctx)
	require.Len(t, got, DefaultMaxReceipts)
	assert.Equal(t, "r119", got[0].ID.String())
	assert.Equal(t, "r020", got[len(got)-1].ID.String())
}

func TestLocalCache_UpdatePendingOperationsIsAtomic(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 0)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.UpdatePendingOperations(ctx, func(ops []models.PendingOperation) []models.PendingOperation {
				return append(ops, models.PendingOperation{ID: fmt.Sprintf("op-%d", i)})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, c.PendingOperations(ctx), 20)
}

func TestLocalCache_ClearKeepsLimiterState(t *testing.T) {
	ctx := context.Background()
	c, s := newTestCache(t, 0)

	require.NoError(t, c.SaveClients(ctx, []models.Client{{Name: "A"}}))
	require.NoError(t, s.Put(ctx, KeyRateLimits, []models.RateLimitEntry{{Operation: "x"}}))

	require.NoError(t, c.Clear(ctx))

	assert.Empty(t, c.Clients(ctx))
	_, ok := c.LastSyncedAt(ctx)
	assert.False(t, ok)

	var entries []models.RateLimitEntry
	assert.True(t, s.Get(ctx, KeyRateLimits, &entries))
}

func TestLocalCache_UpdateClients(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 0)
	require.NoError(t, c.SaveClients(ctx, []models.Client{{ID: models.AuthoritativeID("1"), Name: "A"}}))

	require.NoError(t, c.UpdateClients(ctx, func(clients []models.Client) []models.Client {
		clients[0].Name = "B"
		return clients
	}))

	assert.Equal(t, "B", c.Clients(ctx)[0].Name)
	assert.False(t, c.IsStale(ctx))
}

func TestLocalCache_UpdateRefusesUnreadableCollection(t *testing.T) {
	ctx := context.Background()
	c, s := newTestCache(t, 0)

	enqueue := func(id string) error {
		return c.UpdatePendingOperations(ctx, func(ops []models.PendingOperation) []models.PendingOperation {
			return append(ops, models.PendingOperation{ID: id})
		})
	}

	require.NoError(t, enqueue("op-1"))
	require.NoError(t, c.SaveClients(ctx, []models.Client{{ID: models.AuthoritativeID("1"), Name: "A"}}))
	require.NoError(t, c.SaveReceipts(ctx, []models.Receipt{{ID: models.AuthoritativeID("r1")}}))

	s.SetUser("")
	assert.ErrorIs(t, enqueue("op-2"), ErrEntryUnreadable)
	assert.ErrorIs(t, c.UpdateClients(ctx, func(clients []models.Client) []models.Client {
		return append(clients, models.Client{Name: "B"})
	}), ErrEntryUnreadable)
	assert.ErrorIs(t, c.UpdateReceipts(ctx, func(receipts []models.Receipt) []models.Receipt {
		return nil
	}), ErrEntryUnreadable)
	assert.Empty(t, c.PendingOperations(ctx), "unreadable entries still read as empty")

	s.SetUser("owner")
	ops := c.PendingOperations(ctx)
	require.Len(t, ops, 1)
	assert.Equal(t, "op-1", ops[0].ID)
	require.Len(t, c.Clients(ctx), 1)
	assert.Equal(t, "A", c.Clients(ctx)[0].Name)
	assert.Len(t, c.Receipts(ctx), 1)
}

func TestLocalCache_UpdateStartsMissingCollectionEmpty(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 0)

	var seen []models.Client
	require.NoError(t, c.UpdateClients(ctx, func(clients []models.Client) []models.Client {
		seen = clients
		return append(clients, models.Client{Name: "A"})
	}))

	assert.NotNil(t, seen)
	assert.Empty(t, seen)
	assert.Len(t, c.Clients(ctx), 1)
}

func TestLocalCache_ExclusiveSerialisesSequences(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 0)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Exclusive(func() error {
				n := len(c.Clients(ctx))
				if err := c.UpdateClients(ctx, func(clients []models.Client) []models.Client {
					return append(clients, models.Client{Name: fmt.Sprintf("c-%d", i)})
				}); err != nil {
					return err
				}
				return c.UpdatePendingOperations(ctx, func(ops []models.PendingOperation) []models.PendingOperation {
					return append(ops, models.PendingOperation{ID: fmt.Sprintf("op-%d", n)})
				})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ids := map[string]bool{}
	for _, op := range c.PendingOperations(ctx) {
		ids[op.ID] = true
	}
	assert.Len(t, ids, 10, "each sequence saw the writes of the previous one")
}
