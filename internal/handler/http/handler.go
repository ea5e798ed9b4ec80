// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/metrics"
	"github.com/MKhiriev/go-receipt-keeper/internal/service"
	"github.com/MKhiriev/go-receipt-keeper/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
)

type Handler struct {
	services *service.Services
	hasher   *utils.Hasher

	metrics  *metrics.HTTPMetrics
	gatherer prometheus.Gatherer

	logger *logger.Logger
}

// Option customises a Handler.
type Option func(*Handler)

// WithHashKey enables the HashSHA256 body check on writes and signs
// responses.
func WithHashKey(hashKey string) Option {
	return func(h *Handler) { h.hasher = utils.NewHasher(hashKey) }
}

// WithMetrics instruments every request and serves /metrics from gatherer.
func WithMetrics(m *metrics.HTTPMetrics, gatherer prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.metrics = m
		h.gatherer = gatherer
	}
}

func NewHandler(services *service.Services, logger *logger.Logger, opts ...Option) *Handler {
	logger.Info().Msg("http handler created")
	h := &Handler{
		services: services,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
