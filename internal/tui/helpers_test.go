// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/service"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{
			name: "rate limit message",
			err:  fmt.Errorf("create: %w", &service.RateLimitError{Operation: "client:create", Message: "Too many clients, wait 1m"}),
			want: "Too many clients, wait 1m",
		},
		{name: "sync running", err: service.ErrSyncInProgress, want: "A sync is already running"},
		{name: "sync limited", err: fmt.Errorf("sync: %w", service.ErrSyncRateLimited), want: "Sync is temporarily limited, try again later"},
		{name: "refused", err: errors.New("Post \"http://x\": dial tcp: connection refused"), want: "No network or the server is unreachable"},
		{name: "other", err: errors.New("boom"), want: "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, humanizeError(tt.err))
		})
	}
}

func TestFitText(t *testing.T) {
	assert.Equal(t, "short", fitText("short", 10))
	assert.Equal(t, "abcdefg...", fitText("abcdefghijklmnop", 10))
	assert.Equal(t, "ка", fitText("касса", 2))
	assert.Equal(t, "касс...", fitText("кассовый чек", 7))
	assert.Equal(t, "unbounded", fitText("unbounded", 0))
}

func TestFormModel_ReceiptParsing(t *testing.T) {
	c := models.Client{ID: models.AuthoritativeID("c-1"), Name: "Ann"}
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	f := newReceiptForm(c)
	f.setValue(0, "Cleaning")
	f.setValue(2, "abc")
	_, err := f.receipt(now)
	assert.ErrorContains(t, err, "unit price")

	f.setValue(1, "x")
	_, err = f.receipt(now)
	assert.ErrorContains(t, err, "quantity")

	f.setValue(1, " 3 ")
	f.setValue(2, "4.5")
	r, err := f.receipt(now)
	require.NoError(t, err)
	assert.Equal(t, c.ID, r.ClientID)
	assert.Equal(t, now, r.Date)
	assert.Equal(t, []models.ReceiptItem{{Description: "Cleaning", Quantity: 3, UnitPrice: 4.5}}, r.Items)
}

func TestFormModel_FocusWraps(t *testing.T) {
	f := newClientForm()
	f = f.moveFocus(-1)
	assert.Equal(t, 3, f.focus)
	f = f.moveFocus(1)
	assert.Equal(t, 0, f.focus)
	assert.Contains(t, f.View(), "Address:")
}

func TestRenderStatusLine(t *testing.T) {
	assert.Contains(t, renderStatusLine("", false, 0, nil), "local only")
	assert.Contains(t, renderStatusLine("", false, 0, nil), "all synced")

	line := renderStatusLine("owner-1", true, 2, &models.SyncResult{FinishedAt: time.Now()})
	assert.Contains(t, line, "2 pending")
	assert.Contains(t, line, "last sync")
}
