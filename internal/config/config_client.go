// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// HashKey is the HMAC key used by the client for payload integrity checks.
	HashKey string
	// SessionToken is the bearer token presented to the remote store.
	SessionToken string
	// Version is reported by the status command.
	Version string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the HTTP endpoint address of the remote record store.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite file path of the local cache.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
	// RequireEncryption refuses plaintext writes when no user is set.
	RequireEncryption bool
	// StaleAfter is the cache freshness horizon.
	StaleAfter time.Duration
	// MaxReceipts caps the cached receipts collection.
	MaxReceipts int
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often the sync job runs.
	SyncInterval time.Duration
	// ConnectivityInterval defines how often the remote store is probed.
	ConnectivityInterval time.Duration
	// SettleDelay is waited after an offline to online transition.
	SettleDelay time.Duration
}

// ClientRateLimits contains the limiter timers and policy table.
type ClientRateLimits struct {
	FlushInterval time.Duration
	SweepInterval time.Duration
	Policies      map[string]models.RateLimitPolicy
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Adapter contains the remote store address and timeout.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Workers contains background job settings.
	Workers ClientWorkers
	// RateLimits contains limiter settings.
	RateLimits ClientRateLimits
	// LogPath is the client log file.
	LogPath string
	// MetricsAddress enables a /metrics listener when set.
	MetricsAddress string
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
func GetClientConfig(flags *Flags) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(flags)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := NewClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

// NewClientConfig projects the client view out of cfg without validating it.
func NewClientConfig(cfg *StructuredConfig) *ClientConfig {
	return &ClientConfig{
		App: ClientApp{
			HashKey:      cfg.App.HashKey,
			SessionToken: cfg.App.SessionToken,
			Version:      cfg.App.Version,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			DB:                ClientDB{DSN: cfg.Storage.DB.DSN},
			RequireEncryption: cfg.Storage.RequireEncryption,
			StaleAfter:        cfg.Storage.StaleAfter,
			MaxReceipts:       cfg.Storage.MaxReceipts,
		},
		Workers: ClientWorkers{
			SyncInterval:         cfg.Workers.SyncInterval,
			ConnectivityInterval: cfg.Workers.ConnectivityInterval,
			SettleDelay:          cfg.Workers.SettleDelay,
		},
		RateLimits: ClientRateLimits{
			FlushInterval: cfg.RateLimits.FlushInterval,
			SweepInterval: cfg.RateLimits.SweepInterval,
			Policies:      cfg.RateLimits.Policies,
		},
		LogPath:        cfg.Log.Path,
		MetricsAddress: cfg.Metrics.Address,
	}
}
