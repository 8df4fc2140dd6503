// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

// Package export implements the datalayer export pipeline.
//
// A request flows through five collaborators: the access gate (identity and
// room permission), the layer name resolver, the layer materializer (lazy
// provisioning of SQL-view-backed layers on the geo server), the metadata
// collector (best-effort incident/room naming), and the formatter (KML/KMZ,
// zipped shapefile, GeoJSON, or OGC capabilities).
//
// The pipeline never fails the response: every error path produces a small
// diagnostic text artifact served as the download body, with the HTTP
// status carrying the error class. Callers always receive a complete file.
package export
