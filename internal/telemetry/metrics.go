/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics for the HTTP surface and
// the playback pipeline.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, route and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bragi_api_requests_total",
		Help: "Total HTTP requests handled.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bragi_api_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bragi_api_active_connections",
		Help: "In-flight HTTP requests.",
	})

	// APIWebSocketConnections gauges open event-stream connections.
	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bragi_api_websocket_connections",
		Help: "Open websocket event-stream connections.",
	})

	// ImportedItemsTotal counts media items written by import runs.
	ImportedItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bragi_imported_items_total",
		Help: "Media items added or replaced by imports.",
	})

	// PlaybackStartsTotal counts tracks that started playing.
	PlaybackStartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bragi_playback_starts_total",
		Help: "Tracks that started playback.",
	})

	// PlaybackErrorsTotal counts fatal engine errors.
	PlaybackErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bragi_playback_errors_total",
		Help: "Fatal playback engine errors.",
	})

	// DurationProbesTotal counts duration backfill probes by outcome.
	DurationProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bragi_duration_probes_total",
		Help: "Duration backfill probes.",
	}, []string{"outcome"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
