// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/adapter"
	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
)

// Defaults for ClientWorkers fields left at zero.
const (
	DefaultConnectivityInterval = 15 * time.Second
	DefaultSettleDelay          = 2 * time.Second
)

type connectivityWatcher struct {
	remote       adapter.RemoteStore
	orchestrator SyncOrchestrator
	interval     time.Duration
	settle       time.Duration
	logger       *logger.Logger

	online atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConnectivityWatcher returns a watcher that probes remote every
// cfg.ConnectivityInterval. It starts out offline, so the first successful
// probe with work queued triggers a pass.
func NewConnectivityWatcher(remote adapter.RemoteStore, orchestrator SyncOrchestrator, cfg config.ClientWorkers, log *logger.Logger) ConnectivityWatcher {
	if log == nil {
		log = logger.Nop()
	}
	w := &connectivityWatcher{
		remote:       remote,
		orchestrator: orchestrator,
		interval:     cfg.ConnectivityInterval,
		settle:       cfg.SettleDelay,
		logger:       log,
	}
	if w.interval <= 0 {
		w.interval = DefaultConnectivityInterval
	}
	if w.settle < 0 {
		w.settle = DefaultSettleDelay
	}
	return w
}

func (w *connectivityWatcher) Start(ctx context.Context, ownerID string) {
	w.Stop()

	w.mu.Lock()
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		t := time.NewTicker(w.interval)
		defer t.Stop()

		for {
			w.check(watchCtx, ownerID)
			select {
			case <-watchCtx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

func (w *connectivityWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *connectivityWatcher) Online() bool {
	return w.online.Load()
}

func (w *connectivityWatcher) probe(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()
	return w.remote.Ping(pctx) == nil
}

// check runs one probe and triggers a pass on an offline to online edge when
// the queue is non-empty and the store is still up after the settle delay.
func (w *connectivityWatcher) check(ctx context.Context, ownerID string) {
	up := w.probe(ctx)
	wasUp := w.online.Swap(up)

	switch {
	case up == wasUp:
		return
	case !up:
		w.logger.Info().Msg("remote store went offline")
		return
	}

	w.logger.Info().Msg("remote store is reachable again")
	if w.orchestrator.Status(ctx).PendingCount == 0 {
		return
	}

	timer := time.NewTimer(w.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if !w.probe(ctx) {
		w.online.Store(false)
		w.logger.Debug().Msg("connection dropped during settle delay")
		return
	}

	if _, err := w.orchestrator.SyncPendingOperations(ctx, ownerID); err != nil && !errors.Is(err, ErrSyncInProgress) {
		w.logger.Warn().Err(err).Msg("reconnect sync failed")
	}
}
