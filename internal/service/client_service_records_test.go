// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/mock"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/MKhiriev/go-receipt-keeper/internal/validators"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type seqIDs struct{ n int }

func (g *seqIDs) Generate() string {
	g.n++
	return fmt.Sprintf("op-%d", g.n)
}

func newTestRecordService(t *testing.T) (*clientRecordService, *writeCountingCache) {
	t.Helper()
	cache, _ := newTestCache(t)
	s := newClientRecordService(cache, nil, logger.Nop())
	s.opIDs = &seqIDs{}
	s.now = newTestClock().now
	return s, cache
}

func strPtr(s string) *string { return &s }

func TestClientRecordService_CreateClient(t *testing.T) {
	s, cache := newTestRecordService(t)
	ctx := context.Background()

	id, err := s.CreateClient(ctx, "owner-1", models.Client{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.True(t, id.IsPlaceholder())
	assert.Equal(t, models.KindClient, id.Kind())

	clients := cache.Clients(ctx)
	require.Len(t, clients, 1)
	assert.Equal(t, id, clients[0].ID)
	assert.Equal(t, models.AuthoritativeID("owner-1"), clients[0].UserID)
	assert.False(t, clients[0].CreatedAt.IsZero())

	queue := cache.PendingOperations(ctx)
	require.Len(t, queue, 1)
	assert.Equal(t, "op-1", queue[0].ID)
	assert.Equal(t, models.OpCreateClient, queue[0].Type)
	assert.Equal(t, id, queue[0].SubjectID())
	assert.Equal(t, 1, s.PendingCount(ctx))
}

func TestClientRecordService_CreateClientInvalid(t *testing.T) {
	s, cache := newTestRecordService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		client models.Client
		want   error
	}{
		{name: "empty name", client: models.Client{Name: "  "}, want: validators.ErrEmptyName},
		{name: "bad email", client: models.Client{Name: "Ann", Email: "not-an-email"}, want: validators.ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateClient(ctx, "owner-1", tt.client)
			assert.ErrorIs(t, err, ErrInvalidDataProvided)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, cache.TotalWrites())
}

func TestClientRecordService_RateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	s, cache := newTestRecordService(t)
	limiter := mock.NewMockChecker(ctrl)
	s.limiter = limiter
	ctx := context.Background()

	limiter.EXPECT().CheckLimit(config.OpClientCreate, "owner-1").Return(models.RateLimitResult{
		Allowed:    false,
		RetryAfter: time.Minute,
		Message:    "Too many new clients. Try again in 1m.",
	})

	_, err := s.CreateClient(ctx, "owner-1", models.Client{Name: "Ann"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, time.Minute, rle.RetryAfter)
	assert.Equal(t, "Too many new clients. Try again in 1m.", rle.Error())

	assert.Zero(t, cache.TotalWrites(), "denied mutation leaves no trace")
}

func TestClientRecordService_InvalidInputDoesNotConsumeQuota(t *testing.T) {
	ctrl := gomock.NewController(t)
	s, _ := newTestRecordService(t)
	s.limiter = mock.NewMockChecker(ctrl) // no calls expected

	_, err := s.CreateClient(context.Background(), "owner-1", models.Client{})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestClientRecordService_CreateReceipt(t *testing.T) {
	s, cache := newTestRecordService(t)
	ctx := context.Background()

	clientID, err := s.CreateClient(ctx, "owner-1", models.Client{Name: "Ann"})
	require.NoError(t, err)

	id, err := s.CreateReceipt(ctx, "owner-1", models.Receipt{
		ClientID: clientID,
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Items: []models.ReceiptItem{
			{Description: "cake", Quantity: 2, UnitPrice: 5},
			{Description: "tea", Quantity: 1, UnitPrice: 2.5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindReceipt, id.Kind())

	receipts := cache.Receipts(ctx)
	require.Len(t, receipts, 1)
	assert.Equal(t, 12.5, receipts[0].Total)
	for _, it := range receipts[0].Items {
		assert.Equal(t, id, it.ReceiptID)
	}

	queue := cache.PendingOperations(ctx)
	require.Len(t, queue, 2)
	assert.Equal(t, models.OpCreateReceipt, queue[1].Type)
	assert.Equal(t, []models.ID{clientID}, queue[1].ParentIDs())
}

func TestClientRecordService_CreateReceiptUnknownClient(t *testing.T) {
	s, _ := newTestRecordService(t)

	_, err := s.CreateReceipt(context.Background(), "owner-1", models.Receipt{
		ClientID: models.AuthoritativeID("c-404"),
		Date:     time.Now(),
		Items:    []models.ReceiptItem{{Description: "x", Quantity: 1, UnitPrice: 1}},
	})
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestClientRecordService_UpdateMergesIntoQueuedCreate(t *testing.T) {
	s, cache := newTestRecordService(t)
	ctx := context.Background()

	id, err := s.CreateClient(ctx, "owner-1", models.Client{Name: "Ann"})
	require.NoError(t, err)

	got, err := s.UpdateClient(ctx, "owner-1", id, models.ClientPatch{Name: strPtr("Ann B"), Phone: strPtr("555")})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	queue := cache.PendingOperations(ctx)
	require.Len(t, queue, 1, "update collapses into the create")
	assert.Equal(t, "Ann B", queue[0].Payload.Client.Name)
	assert.Equal(t, "555", queue[0].Payload.Client.Phone)

	assert.Equal(t, "Ann B", cache.Clients(ctx)[0].Name)
}

func TestClientRecordService_UpdateSyncedClientQueuesPatch(t *testing.T) {
	s, cache := newTestRecordService(t)
	ctx := context.Background()

	seedClients(t, cache, models.Client{ID: models.AuthoritativeID("c-1"), Name: "Ann"})

	_, err := s.UpdateClient(ctx, "owner-1", models.AuthoritativeID("c-1"), models.ClientPatch{Email: strPtr("ann@example.com")})
	require.NoError(t, err)

	queue := cache.PendingOperations(ctx)
	require.Len(t, queue, 1)
	assert.Equal(t, models.OpUpdateClient, queue[0].Type)
	assert.Equal(t, models.AuthoritativeID("c-1"), queue[0].Payload.TargetID)
	assert.Equal(t, "ann@example.com", *queue[0].Payload.Patch.Email)
	assert.Equal(t, "ann@example.com", cache.Clients(ctx)[0].Email)
}

func TestClientRecordService_UpdateValidation(t *testing.T) {
	s, cache := newTestRecordService(t)
	ctx := context.Background()
	seedClients(t, cache, models.Client{ID: models.AuthoritativeID("c-1"), Name: "Ann"})

	_, err := s.UpdateClient(ctx, "owner-1", models.AuthoritativeID("c-1"), models.ClientPatch{})
	assert.ErrorIs(t, err, validators.ErrNoFieldsToUpdate)

	_, err = s.UpdateClient(ctx, "owner-1", models.AuthoritativeID("c-2"), models.ClientPatch{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = s.UpdateClient(ctx, "owner-1", models.ID{}, models.ClientPatch{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestClientRecordService_DeleteUnsyncedClientQueuesNothing(t *testing.T) {
	s, cache := newTestRecordService(t)
	ctx := context.Background()

	id, err := s.CreateClient(ctx, "owner-1", models.Client{Name: "Ann"})
	require.NoError(t, err)
	_, err = s.UpdateClient(ctx, "owner-1", id, models.ClientPatch{Name: strPtr("Ann B")})
	require.NoError(t, err)
	receiptID, err := s.CreateReceipt(ctx, "owner-1", models.Receipt{
		ClientID: id,
		Date:     time.Now(),
		Items:    []models.ReceiptItem{{Description: "x", Quantity: 1, UnitPrice: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteClient(ctx, "owner-1", id))

	assert.Empty(t, cache.Clients(ctx))

	queue := cache.PendingOperations(ctx)
	require.Len(t, queue, 1, "only the receipt create is left")
	assert.Equal(t, receiptID, queue[0].SubjectID())
	assert.True(t, queue[0].Payload.Receipt.ClientID.IsZero())
	assert.Empty(t, queue[0].ParentIDs())

	receipts := cache.Receipts(ctx)
	require.Len(t, receipts, 1)
	assert.True(t, receipts[0].ClientID.IsZero())
}

func TestClientRecordService_DeleteSyncedClientQueuesDelete(t *testing.T) {
	s, cache := newTestRecordService(t)
	ctx := context.Background()
	seedClients(t, cache, models.Client{ID: models.AuthoritativeID("c-1"), Name: "Ann"})

	require.NoError(t, s.DeleteClient(ctx, "owner-1", models.AuthoritativeID("c-1")))

	queue := cache.PendingOperations(ctx)
	require.Len(t, queue, 1)
	assert.Equal(t, models.OpDeleteClient, queue[0].Type)
	assert.Equal(t, models.AuthoritativeID("c-1"), queue[0].Payload.TargetID)

	assert.ErrorIs(t, s.DeleteClient(ctx, "owner-1", models.AuthoritativeID("c-1")), ErrEntityNotFound)
}

func TestClientRecordService_CreateRollsBackWhenQueueUnreadable(t *testing.T) {
	cache, secure := newTestCache(t)
	s := newClientRecordService(cache, nil, logger.Nop())
	s.opIDs = &seqIDs{}
	ctx := context.Background()

	seedOps(t, cache, models.PendingOperation{
		ID:         "op-0",
		Type:       models.OpDeleteClient,
		Payload:    models.OperationPayload{TargetID: models.AuthoritativeID("c-9")},
		EnqueuedAt: t1,
	})

	// Signed out, the encrypted queue cannot be read and must not be replaced.
	secure.SetUser("")
	_, err := s.CreateClient(ctx, "", models.Client{Name: "Ann"})
	require.ErrorIs(t, err, store.ErrEntryUnreadable)
	assert.Empty(t, cache.Clients(ctx), "cached client is dropped with its create")

	secure.SetUser("owner-1")
	queue := cache.PendingOperations(ctx)
	require.Len(t, queue, 1)
	assert.Equal(t, "op-0", queue[0].ID)
}

func TestClientRecordService_ImportCatalog(t *testing.T) {
	s, cache := newTestRecordService(t)
	ctx := context.Background()

	products := []models.Product{{ID: models.AuthoritativeID("p-1"), CategoryID: models.AuthoritativeID("cat-1"), Name: "Cake", Price: 5}}
	categories := []models.Category{{ID: models.AuthoritativeID("cat-1"), Name: "Bakery"}}

	require.NoError(t, s.ImportCatalog(ctx, products, categories))
	assert.Equal(t, products, cache.Products(ctx))
	assert.Equal(t, categories, cache.Categories(ctx))

	err := s.ImportCatalog(ctx, []models.Product{{ID: models.AuthoritativeID("p-2"), Name: "x", Price: -1}}, nil)
	assert.ErrorIs(t, err, validators.ErrInvalidPrice)
	assert.Len(t, cache.Products(ctx), 1, "rejected import leaves the catalog alone")
}

func TestClientRecordService_ListsFromCache(t *testing.T) {
	s, cache := newTestRecordService(t)
	ctx := context.Background()

	seedClients(t, cache, models.Client{ID: models.AuthoritativeID("c-1"), Name: "Ann"})
	seedReceipts(t, cache, models.Receipt{ID: models.AuthoritativeID("r-1"), ClientID: models.AuthoritativeID("c-1")})

	assert.Len(t, s.ListClients(ctx), 1)
	assert.Len(t, s.ListReceipts(ctx), 1)
	assert.Zero(t, s.PendingCount(ctx))
}
