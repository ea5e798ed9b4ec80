// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

// StructuredJSONConfig is the on-disk layout of the JSON config file.
type StructuredJSONConfig struct {
	App struct {
		TokenSignKey  string   `json:"token_sign_key"`
		TokenIssuer   string   `json:"token_issuer"`
		TokenDuration Duration `json:"token_duration"`
		HashKey       string   `json:"hash_key"`
		SessionToken  string   `json:"session_token"`
		Version       string   `json:"version"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
		RequireEncryption bool     `json:"require_encryption"`
		StaleAfter        Duration `json:"stale_after"`
		MaxReceipts       int      `json:"max_receipts"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		GRPCAddress    string   `json:"grpc_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Workers struct {
		SyncInterval         Duration `json:"sync_interval"`
		ConnectivityInterval Duration `json:"connectivity_interval"`
		SettleDelay          Duration `json:"settle_delay"`
	} `json:"workers,omitempty"`

	RateLimits struct {
		FlushInterval Duration                     `json:"flush_interval"`
		SweepInterval Duration                     `json:"sweep_interval"`
		Policies      map[string]jsonRateLimitRule `json:"policies"`
	} `json:"rate_limits,omitempty"`

	Log struct {
		Path string `json:"path"`
	} `json:"log,omitempty"`

	Metrics struct {
		Address string `json:"address"`
	} `json:"metrics,omitempty"`
}

type jsonRateLimitRule struct {
	MaxAttempts   int      `json:"max_attempts"`
	Window        Duration `json:"window"`
	BlockDuration Duration `json:"block_duration"`
	UserMessage   string   `json:"user_message"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	var policies map[string]models.RateLimitPolicy
	if len(jsonCfg.RateLimits.Policies) > 0 {
		policies = make(map[string]models.RateLimitPolicy, len(jsonCfg.RateLimits.Policies))
		for op, rule := range jsonCfg.RateLimits.Policies {
			policies[op] = models.RateLimitPolicy{
				MaxAttempts:   rule.MaxAttempts,
				Window:        time.Duration(rule.Window),
				BlockDuration: time.Duration(rule.BlockDuration),
				UserMessage:   rule.UserMessage,
			}
		}
	}

	cfg := &StructuredConfig{
		App: App{
			TokenSignKey:  jsonCfg.App.TokenSignKey,
			TokenIssuer:   jsonCfg.App.TokenIssuer,
			TokenDuration: time.Duration(jsonCfg.App.TokenDuration),
			HashKey:       jsonCfg.App.HashKey,
			SessionToken:  jsonCfg.App.SessionToken,
			Version:       jsonCfg.App.Version,
		},
		Storage: Storage{
			DB:                DB{DSN: jsonCfg.Storage.DB.DSN},
			RequireEncryption: jsonCfg.Storage.RequireEncryption,
			StaleAfter:        time.Duration(jsonCfg.Storage.StaleAfter),
			MaxReceipts:       jsonCfg.Storage.MaxReceipts,
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			GRPCAddress:    jsonCfg.Server.GRPCAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Workers: Workers{
			SyncInterval:         time.Duration(jsonCfg.Workers.SyncInterval),
			ConnectivityInterval: time.Duration(jsonCfg.Workers.ConnectivityInterval),
			SettleDelay:          time.Duration(jsonCfg.Workers.SettleDelay),
		},
		RateLimits: RateLimits{
			FlushInterval: time.Duration(jsonCfg.RateLimits.FlushInterval),
			SweepInterval: time.Duration(jsonCfg.RateLimits.SweepInterval),
			Policies:      policies,
		},
		Log:     Log{Path: jsonCfg.Log.Path},
		Metrics: Metrics{Address: jsonCfg.Metrics.Address},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
