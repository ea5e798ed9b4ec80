// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyOrchestrator counts passes and reports a configurable queue depth.
type spyOrchestrator struct {
	calls   atomic.Int64
	pending atomic.Int64
	err     error

	mu     sync.Mutex
	owners []string
}

func (s *spyOrchestrator) SyncPendingOperations(_ context.Context, ownerID string) (models.SyncResult, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.owners = append(s.owners, ownerID)
	s.mu.Unlock()
	return models.SyncResult{}, s.err
}

func (s *spyOrchestrator) Status(context.Context) models.SyncStatus {
	return models.SyncStatus{PendingCount: int(s.pending.Load())}
}

func (s *spyOrchestrator) OnComplete(SyncListener) func() { return func() {} }

func (s *spyOrchestrator) Owners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.owners...)
}

func newBusySpy() *spyOrchestrator {
	s := &spyOrchestrator{}
	s.pending.Store(1)
	return s
}

// ── NewClientSyncJob ─────────────────────────────────────────────────────────

func TestNewClientSyncJob_ReturnsInterface(t *testing.T) {
	job := NewClientSyncJob(newBusySpy(), nil)
	require.NotNil(t, job)

	var _ ClientSyncJob = job
}

// ── Start / Stop ─────────────────────────────────────────────────────────────

func TestClientSyncJob_Start_RunsPasses(t *testing.T) {
	spy := newBusySpy()
	job := NewClientSyncJob(spy, nil)

	job.Start(context.Background(), "owner-1", 10*time.Millisecond)
	time.Sleep(55 * time.Millisecond)
	job.Stop()

	got := spy.calls.Load()
	assert.GreaterOrEqual(t, got, int64(3), "expected several passes, got %d", got)
}

func TestClientSyncJob_SkipsEmptyQueue(t *testing.T) {
	spy := &spyOrchestrator{}
	job := NewClientSyncJob(spy, nil)

	job.Start(context.Background(), "owner-1", 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	assert.Zero(t, spy.calls.Load())
}

func TestClientSyncJob_Stop_StopsGoroutine(t *testing.T) {
	spy := newBusySpy()
	job := NewClientSyncJob(spy, nil)

	job.Start(context.Background(), "owner-1", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	callsAfterStop := spy.calls.Load()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, callsAfterStop, spy.calls.Load(), "no passes after Stop")
}

func TestClientSyncJob_Stop_BeforeStart_NoPanic(t *testing.T) {
	job := NewClientSyncJob(newBusySpy(), nil)
	assert.NotPanics(t, func() { job.Stop() })
}

func TestClientSyncJob_DoubleStop_NoPanic(t *testing.T) {
	job := NewClientSyncJob(newBusySpy(), nil)

	job.Start(context.Background(), "owner-1", 10*time.Millisecond)
	job.Stop()

	assert.NotPanics(t, func() { job.Stop() })
}

func TestClientSyncJob_Start_DefaultInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		spy := newBusySpy()
		job := NewClientSyncJob(spy, nil)

		job.Start(context.Background(), "owner-1", interval)
		time.Sleep(20 * time.Millisecond)
		job.Stop()

		assert.Zero(t, spy.calls.Load(), "interval %s falls back to %s", interval, DefaultSyncInterval)
	}
}

func TestClientSyncJob_Restart_UsesNewOwner(t *testing.T) {
	spy := newBusySpy()
	job := NewClientSyncJob(spy, nil)
	ctx := context.Background()

	job.Start(ctx, "owner-1", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	job.Start(ctx, "owner-2", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	owners := spy.Owners()
	require.NotEmpty(t, owners)
	assert.Equal(t, "owner-2", owners[len(owners)-1])
}

func TestClientSyncJob_ContextCancel_StopsJob(t *testing.T) {
	job := NewClientSyncJob(newBusySpy(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	job.Start(ctx, "owner-1", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		job.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop hung after context cancellation")
	}
}

func TestClientSyncJob_PassErrorDoesNotStopJob(t *testing.T) {
	spy := newBusySpy()
	spy.err = assert.AnError
	job := NewClientSyncJob(spy, nil)

	job.Start(context.Background(), "owner-1", 10*time.Millisecond)
	time.Sleep(55 * time.Millisecond)
	job.Stop()

	assert.GreaterOrEqual(t, spy.calls.Load(), int64(3))
}
