// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"maps"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

// Operation names guarded by the client rate limiter.
const (
	OpReceiptCreate = "receipt:create"
	OpClientCreate  = "client:create"
	OpClientUpdate  = "client:update"
	OpClientDelete  = "client:delete"
	OpSync          = "sync:operation"
	OpAuthLogin     = "auth:login"
)

var defaultPolicies = map[string]models.RateLimitPolicy{
	OpReceiptCreate: {
		MaxAttempts:   30,
		Window:        time.Minute,
		BlockDuration: 2 * time.Minute,
		UserMessage:   "Too many receipts created. Try again in %s.",
	},
	OpClientCreate: {
		MaxAttempts:   30,
		Window:        time.Minute,
		BlockDuration: 2 * time.Minute,
		UserMessage:   "Too many clients created. Try again in %s.",
	},
	OpClientUpdate: {
		MaxAttempts: 60,
		Window:      time.Minute,
		UserMessage: "Too many client updates. Try again in %s.",
	},
	OpClientDelete: {
		MaxAttempts:   20,
		Window:        time.Minute,
		BlockDuration: 5 * time.Minute,
		UserMessage:   "Too many deletions. Try again in %s.",
	},
	OpSync: {
		MaxAttempts: 10,
		Window:      time.Minute,
		UserMessage: "Sync is temporarily limited. Try again in %s.",
	},
	OpAuthLogin: {
		MaxAttempts:   10,
		Window:        15 * time.Minute,
		BlockDuration: 15 * time.Minute,
		UserMessage:   "Too many sign-in attempts. Try again in %s.",
	},
}

// DefaultPolicies returns a copy of the built-in rate limit table.
func DefaultPolicies() map[string]models.RateLimitPolicy {
	return maps.Clone(defaultPolicies)
}

func defaultConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenIssuer:   "receipt-keeper",
			TokenDuration: 24 * time.Hour,
		},
		Storage: Storage{
			DB:          DB{DSN: "receipt-keeper.db"},
			StaleAfter:  24 * time.Hour,
			MaxReceipts: 100,
		},
		Server: Server{
			HTTPAddress:    "localhost:8080",
			GRPCAddress:    "localhost:9090",
			RequestTimeout: 30 * time.Second,
		},
		Adapter: Adapter{
			HTTPAddress:    "localhost:8080",
			RequestTimeout: 15 * time.Second,
		},
		Workers: Workers{
			SyncInterval:         time.Minute,
			ConnectivityInterval: 15 * time.Second,
			SettleDelay:          2 * time.Second,
		},
		RateLimits: RateLimits{
			FlushInterval: 30 * time.Second,
			SweepInterval: 5 * time.Minute,
			Policies:      DefaultPolicies(),
		},
	}
}
