// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/service"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/MKhiriev/go-receipt-keeper/internal/utils"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordServer mints sequential ids per collection and keeps every
// created body.
type fakeRecordServer struct {
	mu      sync.Mutex
	seq     map[string]int
	created map[string][]json.RawMessage
}

func newFakeRecordServer(t *testing.T) (*fakeRecordServer, *httptest.Server) {
	t.Helper()
	f := &fakeRecordServer{seq: map[string]int{}, created: map[string][]json.RawMessage{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})
	mux.HandleFunc("POST /api/records/{collection}", func(w http.ResponseWriter, r *http.Request) {
		coll := r.PathValue("collection")
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.seq[coll]++
		id := fmt.Sprintf("%s-%d", coll, f.seq[coll])
		f.created[coll] = append(f.created[coll], body)
		f.mu.Unlock()

		utils.WriteJSON(w, models.CreateRecordResponse{ID: id}, http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRecordServer) bodies(coll string) []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]json.RawMessage(nil), f.created[coll]...)
}

func testConfig(serverURL, token string) *config.ClientConfig {
	return &config.ClientConfig{
		App:     config.ClientApp{SessionToken: token, Version: "test"},
		Adapter: config.ClientAdapter{HTTPAddress: serverURL, RequestTimeout: 2 * time.Second},
		Storage: config.ClientStorage{DB: config.ClientDB{DSN: store.MemoryDSN}, MaxReceipts: 100},
		Workers: config.ClientWorkers{
			SyncInterval:         time.Hour,
			ConnectivityInterval: time.Hour,
			SettleDelay:          time.Millisecond,
		},
		RateLimits: config.ClientRateLimits{Policies: config.DefaultPolicies()},
	}
}

func ownerToken(t *testing.T, owner string) string {
	t.Helper()
	tok, err := utils.GenerateJWTToken("test", owner, time.Hour, "secret")
	require.NoError(t, err)
	return tok.SignedString
}

func openApp(t *testing.T, cfg *config.ClientConfig) *App {
	t.Helper()
	a, err := NewApp(context.Background(), cfg, models.NewAppBuildInfo("1.0.0", "today", "abc"), logger.Nop())
	require.NoError(t, err)
	a.Open(context.Background())
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewApp_RejectsUnreadableToken(t *testing.T) {
	_, err := NewApp(context.Background(), testConfig("http://localhost:1", "not-a-jwt"), models.AppBuildInfo{}, logger.Nop())

	assert.ErrorIs(t, err, ErrInvalidSessionToken)
}

func TestNewApp_RejectsBadAddress(t *testing.T) {
	_, err := NewApp(context.Background(), testConfig("", ""), models.AppBuildInfo{}, logger.Nop())

	assert.Error(t, err)
}

func TestApp_OfflineEntryThenSync(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeRecordServer(t)
	a := openApp(t, testConfig(srv.URL, ownerToken(t, "owner-1")))
	assert.Equal(t, "owner-1", a.OwnerID())

	records := a.Services().RecordService
	clientID, err := records.CreateClient(ctx, a.OwnerID(), models.Client{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	require.True(t, clientID.IsPlaceholder())

	_, err = records.CreateReceipt(ctx, a.OwnerID(), models.Receipt{
		ClientID: clientID,
		Date:     time.Now(),
		Items:    []models.ReceiptItem{{Description: "coffee", Quantity: 2, UnitPrice: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, records.PendingCount(ctx))

	result, err := a.TriggerSync(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.SyncedCount)
	assert.Zero(t, records.PendingCount(ctx))

	receipts := fake.bodies(models.CollectionReceipts)
	require.Len(t, receipts, 1)
	var sent models.Receipt
	require.NoError(t, json.Unmarshal(receipts[0], &sent))
	assert.Equal(t, "clients-1", sent.ClientID.String())

	cached := records.ListReceipts(ctx)
	require.Len(t, cached, 1)
	assert.Equal(t, "receipts-1", cached[0].ID.String())
	assert.Equal(t, "clients-1", cached[0].ClientID.String())

	select {
	case msg := <-a.Notifications():
		assert.Contains(t, msg, "2")
	default:
		t.Fatal("expected a sync notification")
	}
}

func TestApp_StatusAndLimits(t *testing.T) {
	ctx := context.Background()
	_, srv := newFakeRecordServer(t)
	a := openApp(t, testConfig(srv.URL, ""))

	_, err := a.Services().RecordService.CreateClient(ctx, "", models.Client{Name: "Bob"})
	require.NoError(t, err)

	st := a.Status(ctx, true)
	assert.True(t, st.Online)
	assert.Equal(t, 1, st.Clients)
	assert.Equal(t, 1, st.Sync.PendingCount)
	assert.Equal(t, "1.0.0", st.Version)
	assert.Empty(t, st.Owner)

	limits := a.Limits()
	require.NotEmpty(t, limits)
	for _, l := range limits {
		if l.Operation == config.OpClientCreate {
			assert.Equal(t, 29, l.Remaining)
		}
	}
}

func TestApp_StatusOfflineProbe(t *testing.T) {
	_, srv := newFakeRecordServer(t)
	a := openApp(t, testConfig(srv.URL, ""))
	srv.Close()

	assert.False(t, a.Status(context.Background(), true).Online)
}

func TestApp_Repair(t *testing.T) {
	ctx := context.Background()
	_, srv := newFakeRecordServer(t)
	a := openApp(t, testConfig(srv.URL, ""))

	require.NoError(t, a.storages.Cache.SaveClients(ctx, []models.Client{
		{ID: models.PlaceholderID(models.KindClient, "orphan"), Name: "left behind"},
	}))

	report := a.Repair(ctx)

	assert.Equal(t, 1, report.Cleaned)
	assert.True(t, report.Consistency.IsConsistent)
	assert.Empty(t, a.Services().RecordService.ListClients(ctx))
}

func TestApp_BackgroundSyncOnReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake, srv := newFakeRecordServer(t)
	a := openApp(t, testConfig(srv.URL, ownerToken(t, "owner-2")))

	_, err := a.Services().RecordService.CreateClient(ctx, a.OwnerID(), models.Client{Name: "Cid"})
	require.NoError(t, err)

	a.StartBackground(ctx)

	require.Eventually(t, func() bool {
		return len(fake.bodies(models.CollectionClients)) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return a.Services().RecordService.PendingCount(ctx) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestApp_RateLimitedMutation(t *testing.T) {
	ctx := context.Background()
	_, srv := newFakeRecordServer(t)
	cfg := testConfig(srv.URL, "")
	cfg.RateLimits.Policies = map[string]models.RateLimitPolicy{
		config.OpClientDelete: {MaxAttempts: 1, Window: time.Minute, UserMessage: "slow down, %s"},
	}
	a := openApp(t, cfg)
	records := a.Services().RecordService

	id1, err := records.CreateClient(ctx, "", models.Client{Name: "A"})
	require.NoError(t, err)
	id2, err := records.CreateClient(ctx, "", models.Client{Name: "B"})
	require.NoError(t, err)

	require.NoError(t, records.DeleteClient(ctx, "", id1))
	err = records.DeleteClient(ctx, "", id2)

	require.ErrorIs(t, err, service.ErrRateLimited)
	assert.Contains(t, err.Error(), "slow down")
}

// lockedBuffer is a log sink shared with background goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestApp_OpenFlagsSessionChurnAcrossRestarts(t *testing.T) {
	const churn = "unusually many sessions started recently"

	_, srv := newFakeRecordServer(t)
	cfg := testConfig(srv.URL, ownerToken(t, "owner-1"))
	cfg.Storage.DB.DSN = filepath.Join(t.TempDir(), "cache.db")

	open := func() string {
		var logs lockedBuffer
		a, err := NewApp(context.Background(), cfg, models.AppBuildInfo{}, &logger.Logger{Logger: zerolog.New(&logs)})
		require.NoError(t, err)
		a.Open(context.Background())
		require.NoError(t, a.Close())
		return logs.String()
	}

	// The default threshold is five sessions inside the window.
	for i := range 5 {
		assert.NotContains(t, open(), churn, "session %d", i+1)
	}
	out := open()
	assert.Contains(t, out, churn)
	assert.Equal(t, 1, strings.Count(out, churn))
}

func TestNotifier_NilLogger(t *testing.T) {
	n := NewNotifier(1, nil)

	assert.NotPanics(t, func() {
		n.Notify("a")
		n.Notify("b")
	})
	assert.Equal(t, "b", <-n.C())
}

func TestNotifier_DropsOldest(t *testing.T) {
	n := NewNotifier(2, logger.Nop())

	n.Notify("a")
	n.Notify("b")
	n.Notify("c")

	assert.Equal(t, "b", <-n.C())
	assert.Equal(t, "c", <-n.C())
}
