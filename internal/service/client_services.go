// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"github.com/MKhiriev/go-receipt-keeper/internal/adapter"
	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/metrics"
	"github.com/MKhiriev/go-receipt-keeper/internal/ratelimit"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
)

type ClientServices struct {
	RecordService ClientRecordService
	Orchestrator  SyncOrchestrator
	Reconciler    CacheReconciler
	SyncJob       ClientSyncJob
	Connectivity  ConnectivityWatcher
}

func NewClientServices(
	cache store.LocalCache,
	remote adapter.RemoteStore,
	limiter ratelimit.Checker,
	notifier Notifier,
	m *metrics.SyncMetrics,
	workers config.ClientWorkers,
	log *logger.Logger,
) *ClientServices {
	orchestrator := NewSyncOrchestrator(cache, remote, limiter, notifier, m, log)

	return &ClientServices{
		RecordService: NewClientRecordService(cache, limiter, log),
		Orchestrator:  orchestrator,
		Reconciler:    NewCacheReconciler(cache, log),
		SyncJob:       NewClientSyncJob(orchestrator, log),
		Connectivity:  NewConnectivityWatcher(remote, orchestrator, workers, log),
	}
}
