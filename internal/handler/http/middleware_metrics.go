// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// withMetrics records request count, latency and in-flight gauge. The route
// label is the chi pattern so ids do not explode label cardinality.
func (h *Handler) withMetrics(next http.Handler) http.Handler {
	if h.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.metrics.InFlight.Inc()
		defer h.metrics.InFlight.Dec()

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := rw.status
		if status == 0 {
			status = http.StatusOK
		}

		h.metrics.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		h.metrics.Duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
