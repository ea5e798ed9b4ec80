// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/mock"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRecordService_CreateRecordMintsID(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRecordRepository(ctrl)
	svc := NewRecordService(repo, logger.Nop())

	repo.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec models.Record) (string, bool, error) {
			_, err := uuid.Parse(rec.ID)
			assert.NoError(t, err, "server id is a uuid")
			assert.NotEqual(t, "temp_client_1", rec.ID)
			assert.Equal(t, "op-1", rec.IdempotencyKey)
			return rec.ID, false, nil
		})

	resp, err := svc.CreateRecord(context.Background(), models.Record{
		Collection:     models.CollectionClients,
		ID:             "temp_client_1",
		OwnerID:        "owner-1",
		Body:           json.RawMessage(`{"name":"Ann"}`),
		IdempotencyKey: "op-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.False(t, resp.Duplicate)
}

func TestRecordService_CreateRecordReplay(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRecordRepository(ctrl)
	svc := NewRecordService(repo, logger.Nop())

	repo.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return("first-id", true, nil)

	resp, err := svc.CreateRecord(context.Background(), models.Record{IdempotencyKey: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, models.CreateRecordResponse{ID: "first-id", Duplicate: true}, resp)
}

func TestRecordService_PassesRepositoryErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRecordRepository(ctrl)
	svc := NewRecordService(repo, logger.Nop())
	ctx := context.Background()

	repo.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return("", false, store.ErrTransient)
	repo.EXPECT().UpdateRecord(ctx, "clients", "c-1", "owner-1", gomock.Any()).Return(store.ErrRecordNotFound)
	repo.EXPECT().DeleteRecord(ctx, "clients", "c-1", "owner-1").Return(store.ErrRecordNotFound)
	repo.EXPECT().GetRecord(ctx, "clients", "c-1", "owner-1").Return(models.Record{}, store.ErrRecordNotFound)

	_, err := svc.CreateRecord(ctx, models.Record{})
	assert.ErrorIs(t, err, store.ErrTransient)

	assert.ErrorIs(t, svc.UpdateRecord(ctx, "clients", "c-1", "owner-1", json.RawMessage(`{}`)), store.ErrRecordNotFound)
	assert.ErrorIs(t, svc.DeleteRecord(ctx, "clients", "c-1", "owner-1"), store.ErrRecordNotFound)

	_, err = svc.GetRecord(ctx, "clients", "c-1", "owner-1")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}
