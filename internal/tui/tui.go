// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package tui is the terminal front end of the receipt keeper client: a
// status header, client and receipt lists, and quick entry forms.
package tui

import (
	"context"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/client"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/ratelimit"
	"github.com/MKhiriev/go-receipt-keeper/internal/service"
	"github.com/MKhiriev/go-receipt-keeper/models"
	tea "github.com/charmbracelet/bubbletea"
)

// Backend is what the TUI needs from the running client. *client.App
// satisfies it.
type Backend interface {
	Records() service.ClientRecordService
	OwnerID() string
	BuildInfo() models.AppBuildInfo
	Lifecycle() *ratelimit.Hub
	Notifications() <-chan string
	TriggerSync(ctx context.Context) (models.SyncResult, error)
	Status(ctx context.Context, probe bool) client.Status
}

const refreshInterval = 2 * time.Second

type TUI struct {
	backend Backend
	logger  *logger.Logger
}

func New(backend Backend, log *logger.Logger) *TUI {
	return &TUI{backend: backend, logger: log}
}

// Run blocks until the user quits.
func (t *TUI) Run(ctx context.Context) error {
	model := newMainModel(ctx, t.backend)
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx)).Run()
	if err != nil {
		t.logger.Err(err).Str("func", "TUI.Run").Msg("tui stopped with error")
	}
	return err
}
