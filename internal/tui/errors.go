// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"errors"
	"strings"

	"github.com/MKhiriev/go-receipt-keeper/internal/service"
)

// humanizeError turns service and transport errors into one status line.
func humanizeError(err error) string {
	if err == nil {
		return ""
	}

	var rle *service.RateLimitError
	switch {
	case errors.As(err, &rle):
		return rle.Error()
	case errors.Is(err, service.ErrSyncInProgress):
		return "A sync is already running"
	case errors.Is(err, service.ErrSyncRateLimited):
		return "Sync is temporarily limited, try again later"
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "connection refused") ||
		strings.Contains(s, "dial tcp") ||
		strings.Contains(s, "no such host") ||
		strings.Contains(s, "network is unreachable") ||
		strings.Contains(s, "i/o timeout") ||
		strings.Contains(s, "context deadline exceeded") {
		return "No network or the server is unreachable"
	}

	return err.Error()
}
