// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

// StructuredConfig is the top-level configuration container. It aggregates
// all sub-configurations and is populated by merging defaults, an optional
// JSON file, environment variables and command-line flags.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env      : direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings such as signing keys and the
	// session token handed to the client.
	App App `envPrefix:"APP_"`

	// Storage holds configuration for the persistence backends.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds network address and timeout settings for the HTTP and
	// gRPC servers.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the address of the remote record store the client talks
	// to.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds configuration for background sync workers.
	Workers Workers `envPrefix:"WORKERS_"`

	// RateLimits holds limiter timers and the per-operation policy table.
	RateLimits RateLimits `envPrefix:"RATE_LIMITS_"`

	// Log holds log output settings.
	Log Log `envPrefix:"LOG_"`

	// Metrics holds the optional client metrics listener.
	Metrics Metrics `envPrefix:"METRICS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / --config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// TokenSignKey is the secret key used to sign and verify JWT tokens.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim embedded in every issued JWT token.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration specifies how long an issued JWT token remains valid.
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// HashKey is the HMAC key used for request integrity checking
	// (the HashSHA256 header).
	// Env: APP_HASH_KEY
	HashKey string `env:"HASH_KEY"`

	// SessionToken is the bearer token the client presents to the remote
	// store. Its subject is the owner id used to key local encryption.
	// Env: APP_SESSION_TOKEN
	SessionToken string `env:"SESSION_TOKEN"`

	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage groups the configuration for all storage backends.
type Storage struct {
	// DB holds the database connection settings. The client expects a
	// SQLite file path, the server a PostgreSQL DSN.
	DB DB `envPrefix:"DB_"`

	// RequireEncryption makes local cache writes fail instead of falling
	// back to plaintext when no user is signed in.
	// Env: STORAGE_REQUIRE_ENCRYPTION
	RequireEncryption bool `env:"REQUIRE_ENCRYPTION"`

	// StaleAfter is the age after which the local cache is reported stale.
	// Env: STORAGE_STALE_AFTER
	StaleAfter time.Duration `env:"STALE_AFTER"`

	// MaxReceipts caps the number of cached receipts.
	// Env: STORAGE_MAX_RECEIPTS
	MaxReceipts int `env:"MAX_RECEIPTS"`
}

// DB holds connection settings for a database backend.
type DB struct {
	// DSN is the data source name.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Server holds network and timeout settings for the inbound transport layer.
type Server struct {
	// HTTPAddress is the TCP address of the HTTP server ("host:port").
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// GRPCAddress is the TCP address of the gRPC health server.
	// Env: SERVER_GRPC_ADDRESS
	GRPCAddress string `env:"GRPC_ADDRESS"`

	// RequestTimeout is the maximum duration of a single inbound request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Adapter holds the outbound connection settings of the client.
type Adapter struct {
	// HTTPAddress is the base address of the remote record store.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds every outbound request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds configuration for background sync workers.
type Workers struct {
	// SyncInterval is the period of the background sync job.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// ConnectivityInterval is how often the remote store is probed.
	// Env: WORKERS_CONNECTIVITY_INTERVAL
	ConnectivityInterval time.Duration `env:"CONNECTIVITY_INTERVAL"`

	// SettleDelay is the pause after regaining connectivity before a sync
	// pass starts.
	// Env: WORKERS_SETTLE_DELAY
	SettleDelay time.Duration `env:"SETTLE_DELAY"`
}

// RateLimits holds the client rate limiter settings.
type RateLimits struct {
	// FlushInterval is the period of limiter state persistence.
	// Env: RATE_LIMITS_FLUSH_INTERVAL
	FlushInterval time.Duration `env:"FLUSH_INTERVAL"`

	// SweepInterval is the period of expired entry purging.
	// Env: RATE_LIMITS_SWEEP_INTERVAL
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`

	// Policies maps operation names to their limits. Only settable from the
	// JSON file.
	Policies map[string]models.RateLimitPolicy
}

// Log holds log output settings.
type Log struct {
	// Path is the client log file. Empty means a "logs" file next to the
	// executable.
	// Env: LOG_PATH
	Path string `env:"PATH"`
}

// Metrics holds the optional metrics listener of the client.
type Metrics struct {
	// Address enables a /metrics listener when non-empty.
	// Env: METRICS_ADDRESS
	Address string `env:"ADDRESS"`
}

// GetStructuredConfig loads and merges the configuration from all sources.
// flags may be nil when no command-line layer exists.
func GetStructuredConfig(flags *Flags) (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withEnv().
		withFlags(flags).
		withJSON().
		build()
}
