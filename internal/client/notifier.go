// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
)

const defaultNotificationBuffer = 16

// Notifier buffers sync summaries for the UI. When nobody drains the
// channel the oldest summary is dropped.
type Notifier struct {
	ch     chan string
	logger *logger.Logger
}

// NewNotifier returns a notifier holding up to buffer summaries. log may be
// nil.
func NewNotifier(buffer int, log *logger.Logger) *Notifier {
	if buffer <= 0 {
		buffer = defaultNotificationBuffer
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{ch: make(chan string, buffer), logger: log}
}

func (n *Notifier) Notify(summary string) {
	n.logger.Info().Str("summary", summary).Msg("sync notification")
	for {
		select {
		case n.ch <- summary:
			return
		default:
		}
		select {
		case <-n.ch:
		default:
		}
	}
}

// C delivers the summaries in order.
func (n *Notifier) C() <-chan string {
	return n.ch
}
