// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/adapter"
	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/crypto"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/metrics"
	"github.com/MKhiriev/go-receipt-keeper/internal/ratelimit"
	"github.com/MKhiriev/go-receipt-keeper/internal/service"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/MKhiriev/go-receipt-keeper/internal/utils"
	"github.com/MKhiriev/go-receipt-keeper/internal/workers"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App is one running client. Open it, optionally start the background
// workers, and Close it on exit.
type App struct {
	cfg       *config.ClientConfig
	ownerID   string
	buildInfo models.AppBuildInfo

	storages *store.ClientStorages
	remote   adapter.RemoteStore
	limiter  *ratelimit.Limiter
	hub      *ratelimit.Hub
	notifier *Notifier
	services *service.ClientServices
	registry *prometheus.Registry

	core       *workers.Workers
	background *workers.Workers

	logger *logger.Logger
}

// NewApp builds the client from cfg. Nothing runs until [App.Open].
func NewApp(ctx context.Context, cfg *config.ClientConfig, buildInfo models.AppBuildInfo, log *logger.Logger) (*App, error) {
	ownerID, err := ownerFromToken(cfg.App.SessionToken)
	if err != nil {
		return nil, err
	}

	storages, err := store.NewClientStorages(ctx, cfg.Storage, crypto.NewKeyChain(), log)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	storages.SecureStore.SetUser(ownerID)

	remote, err := adapter.NewHTTPRemoteStore(cfg.Adapter, cfg.App, log)
	if err != nil {
		storages.Close()
		return nil, fmt.Errorf("create remote store adapter: %w", err)
	}

	reg := prometheus.NewRegistry()
	syncMetrics, err := metrics.NewSyncMetrics(reg)
	if err != nil {
		storages.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	hub := ratelimit.NewHub()
	limiter := ratelimit.New(storages.SecureStore, hub, ratelimit.Options{
		FlushInterval: cfg.RateLimits.FlushInterval,
		SweepInterval: cfg.RateLimits.SweepInterval,
	}, syncMetrics, log)
	if err = limiter.RegisterAll(cfg.RateLimits.Policies); err != nil {
		storages.Close()
		return nil, fmt.Errorf("register rate limits: %w", err)
	}

	notifier := NewNotifier(defaultNotificationBuffer, log)
	services := service.NewClientServices(storages.Cache, remote, limiter, notifier, syncMetrics, cfg.Workers, log)

	a := &App{
		cfg:       cfg,
		ownerID:   ownerID,
		buildInfo: buildInfo,
		storages:  storages,
		remote:    remote,
		limiter:   limiter,
		hub:       hub,
		notifier:  notifier,
		services:  services,
		registry:  reg,
		logger:    log,
	}

	a.core = workers.New(workers.Func{
		StartFn: limiter.Start,
		StopFn: func() {
			if err := limiter.Destroy(context.Background()); err != nil {
				log.Err(err).Str("func", "App.core").Msg("failed to persist rate limits")
			}
		},
	})
	a.background = workers.New(
		workers.Func{
			StartFn: func(ctx context.Context) { services.SyncJob.Start(ctx, ownerID, cfg.Workers.SyncInterval) },
			StopFn:  services.SyncJob.Stop,
		},
		workers.Func{
			StartFn: func(ctx context.Context) { services.Connectivity.Start(ctx, ownerID) },
			StopFn:  services.Connectivity.Stop,
		},
	)
	if cfg.MetricsAddress != "" {
		a.background.Add(ctx, newMetricsWorker(cfg.MetricsAddress, reg, log))
	}

	return a, nil
}

// ownerFromToken reads the owner id from the session token. No token means
// a signed-out, local-only session.
func ownerFromToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	owner, err := utils.ParseUserIDFromJWT(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSessionToken, err)
	}
	return owner, nil
}

// Open restores the rate limiter state and records the session.
func (a *App) Open(ctx context.Context) {
	a.core.Start(ctx)
	a.logger.Info().Stringer("build", a.buildInfo).Str("owner", a.ownerID).Msg("client session opened")
	if a.ownerID != "" && a.limiter.RecordSession(a.ownerID) {
		a.logger.Warn().Str("owner", a.ownerID).Msg("unusually many sessions started recently")
	}
}

// StartBackground launches the sync job, the connectivity watcher and the
// optional metrics listener.
func (a *App) StartBackground(ctx context.Context) {
	a.background.Start(ctx)
}

// Close stops everything, persists limiter state and closes the cache.
func (a *App) Close() error {
	a.hub.Emit(ratelimit.SignalUnload)
	a.background.Stop()
	a.core.Stop()
	return a.storages.Close()
}

func (a *App) Services() *service.ClientServices    { return a.services }
func (a *App) Records() service.ClientRecordService { return a.services.RecordService }
func (a *App) OwnerID() string                      { return a.ownerID }
func (a *App) BuildInfo() models.AppBuildInfo       { return a.buildInfo }
func (a *App) Lifecycle() *ratelimit.Hub            { return a.hub }
func (a *App) Notifications() <-chan string         { return a.notifier.C() }
func (a *App) Registry() prometheus.Gatherer        { return a.registry }

// TriggerSync runs one pass right away.
func (a *App) TriggerSync(ctx context.Context) (models.SyncResult, error) {
	return a.services.Orchestrator.SyncPendingOperations(ctx, a.ownerID)
}

// Status is what the status command and the TUI header show.
type Status struct {
	Owner        string            `json:"owner,omitempty"`
	Version      string            `json:"version,omitempty"`
	Online       bool              `json:"online"`
	Sync         models.SyncStatus `json:"sync"`
	LastSyncedAt time.Time         `json:"lastSyncedAt,omitzero"`
	Stale        bool              `json:"stale"`
	Clients      int               `json:"clients"`
	Receipts     int               `json:"receipts"`
}

// Status snapshots the client. Online reflects the watcher's last probe,
// or a fresh probe when probe is set.
func (a *App) Status(ctx context.Context, probe bool) Status {
	cache := a.storages.Cache

	online := a.services.Connectivity.Online()
	if probe {
		online = a.remote.Ping(ctx) == nil
	}
	last, _ := cache.LastSyncedAt(ctx)

	return Status{
		Owner:        a.ownerID,
		Version:      a.buildInfo.BuildVersion(),
		Online:       online,
		Sync:         a.services.Orchestrator.Status(ctx),
		LastSyncedAt: last,
		Stale:        cache.IsStale(ctx),
		Clients:      len(cache.Clients(ctx)),
		Receipts:     len(cache.Receipts(ctx)),
	}
}

// RepairReport is the outcome of [App.Repair].
type RepairReport struct {
	Cleaned     int                      `json:"cleaned"`
	Consistency models.ConsistencyReport `json:"consistency"`
}

// Repair drops orphaned placeholder records and fixes dangling references.
func (a *App) Repair(ctx context.Context) RepairReport {
	rec := a.services.Reconciler
	var report RepairReport
	_ = a.storages.Cache.Exclusive(func() error {
		report.Cleaned = rec.CleanupTempEntries(ctx)
		report.Consistency = rec.VerifyCacheConsistency(ctx)
		return nil
	})
	return report
}

// LimitStatus is the current state of one rate-limited operation.
type LimitStatus struct {
	Operation string `json:"operation"`
	models.RateLimitResult
}

// Limits reports every registered operation without counting an attempt.
func (a *App) Limits() []LimitStatus {
	ops := a.limiter.Operations()
	out := make([]LimitStatus, 0, len(ops))
	for _, op := range ops {
		out = append(out, LimitStatus{Operation: op, RateLimitResult: a.limiter.GetStatus(op, service.LimitIdentifier(a.ownerID))})
	}
	return out
}

type metricsWorker struct {
	srv    *http.Server
	addr   string
	logger *logger.Logger
	done   chan struct{}
}

func newMetricsWorker(addr string, gatherer prometheus.Gatherer, log *logger.Logger) *metricsWorker {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &metricsWorker{
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr:   addr,
		logger: log,
	}
}

func (m *metricsWorker) Start(ctx context.Context) {
	lis, err := net.Listen("tcp", m.addr)
	if err != nil {
		m.logger.Err(err).Str("address", m.addr).Msg("metrics listener disabled")
		return
	}
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		if err := m.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Err(err).Msg("metrics listener stopped")
		}
	}()
}

func (m *metricsWorker) Stop() {
	if m.done == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.srv.Shutdown(ctx)
	<-m.done
}
