// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

// Package metrics provides Prometheus instrumentation for the export
// pipeline, the geo server client, and the HTTP boundary.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Export pipeline metrics
	ExportRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocollab_export_requests_total",
			Help: "Total number of datalayer export requests",
		},
		[]string{"format", "status"}, // status: HTTP status code served
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocollab_export_duration_seconds",
			Help:    "Duration of datalayer export requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	LayerProvisioning = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocollab_layer_provisioning_total",
			Help: "Total number of layer materialization attempts",
		},
		[]string{"outcome"}, // "existing", "provisioned", "failed", "probe_failed"
	)

	// Geo server client metrics
	GeoServerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocollab_geoserver_request_duration_seconds",
			Help:    "Duration of geo server REST/OGC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	GeoServerRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocollab_geoserver_request_errors_total",
			Help: "Total number of geo server request errors",
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geocollab_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocollab_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breakers",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocollab_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Event bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocollab_events_published_total",
			Help: "Total number of export events published to the bus",
		},
		[]string{"result"}, // "success", "failure"
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocollab_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geocollab_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)
