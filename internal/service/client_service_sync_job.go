// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
)

// DefaultSyncInterval is used when the job is started without an interval.
const DefaultSyncInterval = 5 * time.Minute

type clientSyncJob struct {
	orchestrator SyncOrchestrator
	logger       *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClientSyncJob creates a clientSyncJob that drains the queue on a ticker.
// The job is idle until Start is called.
func NewClientSyncJob(orchestrator SyncOrchestrator, log *logger.Logger) ClientSyncJob {
	if log == nil {
		log = logger.Nop()
	}
	return &clientSyncJob{orchestrator: orchestrator, logger: log}
}

// Start implements ClientSyncJob. It stops any previously running job, then
// launches a background goroutine that runs a pass every interval while the
// queue is non-empty. The goroutine exits when ctx is cancelled or Stop is
// called.
func (j *clientSyncJob) Start(ctx context.Context, ownerID string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.tick(jobCtx, ownerID)
			}
		}
	}()
}

func (j *clientSyncJob) tick(ctx context.Context, ownerID string) {
	if j.orchestrator.Status(ctx).PendingCount == 0 {
		return
	}
	_, err := j.orchestrator.SyncPendingOperations(ctx, ownerID)
	switch {
	case err == nil, errors.Is(err, ErrSyncInProgress):
	case errors.Is(err, ErrSyncRateLimited):
		j.logger.Debug().Err(err).Msg("periodic sync skipped")
	default:
		j.logger.Err(err).Str("func", "clientSyncJob.tick").Msg("periodic sync failed")
	}
}

// Stop implements ClientSyncJob. It cancels the background goroutine's context and
// blocks until the goroutine has fully exited. Safe to call when the job is not
// running (no-op in that case).
func (j *clientSyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
