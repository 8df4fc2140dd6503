// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package api

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geocollab/internal/export"
	"github.com/tomtom215/geocollab/internal/logging"
)

// writeJSON serializes payload as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warn().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeArtifact serves an export result as a file download. The body is
// always a complete file: diagnostic artifacts ride the same path as
// successful exports, only the status differs.
func writeArtifact(w http.ResponseWriter, result export.Result) {
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Artifact.Filename))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(result.Status)
	if _, err := w.Write(result.Artifact.Content); err != nil {
		logging.Warn().Err(err).Str("filename", result.Artifact.Filename).Msg("Failed to write artifact body")
	}
}

// artifactFailure builds a Result for failures detected at the HTTP
// boundary, before the export service runs. Keeps the boundary on the same
// never-fail contract as the pipeline.
func artifactFailure(status int, rawFormat string) export.Result {
	return export.Result{
		Artifact: export.NewErrorArtifact(export.FailureMessage(export.Format(rawFormat))),
		Status:   status,
	}
}
