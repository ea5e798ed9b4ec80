// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package metrics defines the Prometheus collectors of the client sync
// engine and of the record server. Every recording method is a no-op on a
// nil receiver, so components take metrics as an optional dependency.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "receipt_keeper"

// register adds c to reg, or returns the collector already registered under
// the same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return c, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return c, nil
}

// SyncMetrics instruments the offline sync engine.
type SyncMetrics struct {
	RateLimitDecisions *prometheus.CounterVec
	Passes             *prometheus.CounterVec
	Operations         *prometheus.CounterVec
	PassDuration       prometheus.Histogram
	QueueDepth         prometheus.Gauge
}

// NewSyncMetrics registers the client collectors with reg, or with the
// default registerer when reg is nil.
func NewSyncMetrics(reg prometheus.Registerer) (*SyncMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	decisions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_decisions_total",
		Help:      "Rate limiter decisions partitioned by operation and decision.",
	}, []string{"operation", "decision"}))
	if err != nil {
		return nil, err
	}

	passes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "passes_total",
		Help:      "Sync passes partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	ops, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "operations_total",
		Help:      "Replayed pending operations partitioned by type and result.",
	}, []string{"type", "result"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "pass_duration_seconds",
		Help:      "Duration of completed sync passes.",
		Buckets:   prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}

	depth, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "queue_depth",
		Help:      "Pending operations left in the queue after the last pass.",
	}))
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		RateLimitDecisions: decisions,
		Passes:             passes,
		Operations:         ops,
		PassDuration:       duration,
		QueueDepth:         depth,
	}, nil
}

// RateLimitDecision counts one limiter decision.
func (m *SyncMetrics) RateLimitDecision(operation string, allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.RateLimitDecisions.WithLabelValues(operation, decision).Inc()
}

// Pass records a finished sync pass.
func (m *SyncMetrics) Pass(outcome string, elapsed time.Duration, queueDepth int) {
	if m == nil {
		return
	}
	m.Passes.WithLabelValues(outcome).Inc()
	m.PassDuration.Observe(elapsed.Seconds())
	m.QueueDepth.Set(float64(queueDepth))
}

// Operation records the result of one replayed operation.
func (m *SyncMetrics) Operation(opType, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(opType, result).Inc()
}
