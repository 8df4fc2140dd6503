// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

// Package geoserver implements the client for the external geo server that
// hosts collabroom layers. It exposes the layer registry probe, feature
// type provisioning from SQL views, layer configuration calls, and OGC
// export/capabilities fetches, plus a circuit-breaker wrapper for
// resilience against geo server outages.
package geoserver
