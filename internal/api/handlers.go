// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package api

import (
	"context"

	"github.com/tomtom215/geocollab/internal/database"
	"github.com/tomtom215/geocollab/internal/export"
)

// Pinger reports backing store health for readiness probes. Satisfied by
// *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler bundles the dependencies of the HTTP endpoints.
type Handler struct {
	exports *export.Service
	repo    database.Repository
	pinger  Pinger
	version string
}

// NewHandler creates the endpoint handler.
func NewHandler(exports *export.Service, repo database.Repository, pinger Pinger, version string) *Handler {
	return &Handler{
		exports: exports,
		repo:    repo,
		pinger:  pinger,
		version: version,
	}
}
