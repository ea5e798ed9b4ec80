// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
)

// DeviceTraits are the stable host characteristics hashed into the device
// fingerprint.
type DeviceTraits struct {
	Hostname string
	Platform string
	Locale   string
	TZOffset int
	CPUs     int
}

// CurrentTraits reads the traits of the running host.
func CurrentTraits() DeviceTraits {
	host, _ := os.Hostname()

	locale := os.Getenv("LC_ALL")
	if locale == "" {
		locale = os.Getenv("LANG")
	}

	_, offset := time.Now().Zone()

	return DeviceTraits{
		Hostname: host,
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Locale:   locale,
		TZOffset: offset,
		CPUs:     runtime.NumCPU(),
	}
}

// Hash returns the hex SHA-256 of the traits.
func (t DeviceTraits) Hash() string {
	raw := strings.Join([]string{
		t.Hostname,
		t.Platform,
		t.Locale,
		fmt.Sprint(t.TZOffset),
		fmt.Sprint(t.CPUs),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// LoadFingerprint returns the persisted device fingerprint, deriving and
// storing it from traits on first use. A failed write is logged and the
// derived value is still returned.
func LoadFingerprint(ctx context.Context, st StateStore, traits DeviceTraits) string {
	var fp string
	if st.Get(ctx, store.KeyDeviceFingerprint, &fp) && fp != "" {
		return fp
	}

	fp = traits.Hash()
	if err := st.Put(ctx, store.KeyDeviceFingerprint, fp); err != nil {
		logger.FromContext(ctx).Warn().Err(err).
			Str("func", "ratelimit.LoadFingerprint").
			Msg("failed to persist device fingerprint")
	}
	return fp
}
