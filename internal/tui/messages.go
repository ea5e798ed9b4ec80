// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"github.com/MKhiriev/go-receipt-keeper/internal/client"
	"github.com/MKhiriev/go-receipt-keeper/models"
)

type dataLoadedMsg struct {
	clients  []models.Client
	receipts []models.Receipt
	status   client.Status
}

type syncDoneMsg struct {
	result models.SyncResult
	err    error
}

type mutationDoneMsg struct {
	status string
	err    error
}

type notificationMsg string

type tickMsg struct{}

type copiedMsg struct {
	id  string
	err error
}
