// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNetAddress_String tests the String method of NetAddress
func TestNetAddress_String(t *testing.T) {
	tests := []struct {
		name     string
		addr     NetAddress
		expected string
	}{
		{name: "empty address", addr: NetAddress{}, expected: ""},
		{name: "localhost with port", addr: NetAddress{Host: "localhost", Port: 8080}, expected: "localhost:8080"},
		{name: "IP address with port", addr: NetAddress{Host: "127.0.0.1", Port: 9090}, expected: "127.0.0.1:9090"},
		{name: "only port no host", addr: NetAddress{Port: 8080}, expected: ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.addr.String())
		})
	}
}

func TestNetAddress_Set(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "localhost", in: "localhost:8080"},
		{name: "ip", in: "127.0.0.1:80"},
		{name: "any interface", in: ":8080"},
		{name: "no port", in: "localhost", wantErr: true},
		{name: "bad port", in: "localhost:abc", wantErr: true},
		{name: "zero port", in: "localhost:0", wantErr: true},
		{name: "bad host", in: "example:80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a NetAddress
			err := a.Set(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, a.String())
		})
	}
}

func TestRegisterFlags_Config(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := RegisterFlags(fs)

	err := fs.Parse([]string{
		"-a", "localhost:9000",
		"--server", "http://records:8080",
		"-d", "local.db",
		"--token", "bearer",
		"--hash-key", "k",
		"--sync-interval", "45s",
		"--require-encryption",
		"-c", "/etc/rk.json",
	})
	require.NoError(t, err)

	cfg := flags.Config()
	assert.Equal(t, "localhost:9000", cfg.Server.HTTPAddress)
	assert.Equal(t, "http://records:8080", cfg.Adapter.HTTPAddress)
	assert.Equal(t, "local.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "bearer", cfg.App.SessionToken)
	assert.Equal(t, "k", cfg.App.HashKey)
	assert.Equal(t, 45*time.Second, cfg.Workers.SyncInterval)
	assert.True(t, cfg.Storage.RequireEncryption)
	assert.Equal(t, "/etc/rk.json", cfg.JSONFilePath)
}

func TestRegisterFlags_UnsetStayZero(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	assert.Equal(t, &StructuredConfig{}, flags.Config())
}
