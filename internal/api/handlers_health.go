// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package api

import (
	"net/http"
	"time"
)

// healthResponse is the health endpoint payload.
type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database,omitempty"`
}

// HealthLive reports process liveness. Always 200 while the process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthReady reports readiness: 200 when the database answers a ping, 503
// otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "not ready",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Database:  "unreachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Database:  "ok",
	})
}

// Health reports overall service health with version metadata.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := healthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Database:  "ok",
	}

	if err := h.pinger.Ping(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}

	writeJSON(w, status, resp)
}
