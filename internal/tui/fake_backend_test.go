// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"context"
	"sync"

	"github.com/MKhiriev/go-receipt-keeper/internal/client"
	"github.com/MKhiriev/go-receipt-keeper/internal/ratelimit"
	"github.com/MKhiriev/go-receipt-keeper/internal/service"
	"github.com/MKhiriev/go-receipt-keeper/models"
)

type fakeRecords struct {
	mu       sync.Mutex
	clients  []models.Client
	receipts []models.Receipt
	patches  []models.ClientPatch
	deleted  []models.ID
	err      error
}

func (f *fakeRecords) CreateClient(_ context.Context, _ string, c models.Client) (models.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.ID{}, f.err
	}
	c.ID = models.NewPlaceholderID(models.KindClient)
	f.clients = append(f.clients, c)
	return c.ID, nil
}

func (f *fakeRecords) CreateReceipt(_ context.Context, _ string, r models.Receipt) (models.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.ID{}, f.err
	}
	r.ID = models.NewPlaceholderID(models.KindReceipt)
	f.receipts = append(f.receipts, r)
	return r.ID, nil
}

func (f *fakeRecords) UpdateClient(_ context.Context, _ string, id models.ID, p models.ClientPatch) (models.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, p)
	return id, f.err
}

func (f *fakeRecords) DeleteClient(_ context.Context, _ string, id models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeRecords) ListClients(context.Context) []models.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Client(nil), f.clients...)
}

func (f *fakeRecords) ListReceipts(context.Context) []models.Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Receipt(nil), f.receipts...)
}

func (f *fakeRecords) ImportCatalog(context.Context, []models.Product, []models.Category) error {
	return nil
}

func (f *fakeRecords) PendingCount(context.Context) int { return 0 }

type fakeBackend struct {
	records  *fakeRecords
	hub      *ratelimit.Hub
	notes    chan string
	status   client.Status
	syncRes  models.SyncResult
	syncErr  error
	syncRuns int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		records: &fakeRecords{},
		hub:     ratelimit.NewHub(),
		notes:   make(chan string, 4),
		status:  client.Status{Owner: "owner-1", Online: true},
	}
}

func (b *fakeBackend) Records() service.ClientRecordService { return b.records }
func (b *fakeBackend) OwnerID() string                      { return "owner-1" }
func (b *fakeBackend) BuildInfo() models.AppBuildInfo {
	return models.NewAppBuildInfo("v1.2.3", "2026-10-01", "abc123")
}
func (b *fakeBackend) Lifecycle() *ratelimit.Hub                  { return b.hub }
func (b *fakeBackend) Notifications() <-chan string               { return b.notes }
func (b *fakeBackend) Status(context.Context, bool) client.Status { return b.status }

func (b *fakeBackend) TriggerSync(context.Context) (models.SyncResult, error) {
	b.syncRuns++
	return b.syncRes, b.syncErr
}
