// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/geocollab/internal/auth"
	"github.com/tomtom215/geocollab/internal/export"
	"github.com/tomtom215/geocollab/internal/logging"
	"github.com/tomtom215/geocollab/internal/validation"
)

// coordinateParams carries the optional KML recentering coordinate.
type coordinateParams struct {
	Latitude  *float64 `validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `validate:"omitempty,gte=-180,lte=180"`
}

// DatalayerExport handles
// GET /api/v1/datalayer/export/{format}/{geometryType}/{userId}/{incidentId}/{collabRoomId}.
//
// The response body is always a file attachment. Failures detected here
// (bad path parameters, unresolvable session) produce the same diagnostic
// artifact the pipeline produces, with the mapped status.
func (h *Handler) DatalayerExport(w http.ResponseWriter, r *http.Request) {
	rawFormat := chi.URLParam(r, "format")

	claimedUserID, ok := pathInt(r, "userId")
	if !ok {
		writeArtifact(w, artifactFailure(http.StatusBadRequest, rawFormat))
		return
	}
	incidentID, ok := pathInt(r, "incidentId")
	if !ok {
		writeArtifact(w, artifactFailure(http.StatusBadRequest, rawFormat))
		return
	}
	collabRoomID, ok := pathInt(r, "collabRoomId")
	if !ok {
		writeArtifact(w, artifactFailure(http.StatusBadRequest, rawFormat))
		return
	}

	coords, err := parseCoordinates(r)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Rejected export coordinate parameters")
		writeArtifact(w, artifactFailure(http.StatusBadRequest, rawFormat))
		return
	}

	requestingUserID, ok := h.sessionUserID(w, r, rawFormat)
	if !ok {
		return
	}

	result := h.exports.Export(r.Context(), export.Request{
		RequestingUserID: requestingUserID,
		ClaimedUserID:    claimedUserID,
		IncidentID:       incidentID,
		CollabRoomID:     collabRoomID,
		Format:           rawFormat,
		GeometryType:     chi.URLParam(r, "geometryType"),
		Latitude:         coords.Latitude,
		Longitude:        coords.Longitude,
	})

	writeArtifact(w, result)
}

// DatalayerCapabilities handles
// GET /api/v1/datalayer/capabilities/{format}/{userId}/{incidentId}.
func (h *Handler) DatalayerCapabilities(w http.ResponseWriter, r *http.Request) {
	rawFormat := chi.URLParam(r, "format")

	claimedUserID, ok := pathInt(r, "userId")
	if !ok {
		writeArtifact(w, artifactFailure(http.StatusBadRequest, rawFormat))
		return
	}
	if _, ok := pathInt(r, "incidentId"); !ok {
		writeArtifact(w, artifactFailure(http.StatusBadRequest, rawFormat))
		return
	}

	requestingUserID, ok := h.sessionUserID(w, r, rawFormat)
	if !ok {
		return
	}

	result := h.exports.Capabilities(r.Context(), requestingUserID, claimedUserID, rawFormat)
	writeArtifact(w, result)
}

// sessionUserID resolves the authenticated session username to its user ID.
// Writes the failure artifact itself and returns ok=false when the session
// cannot be resolved.
func (h *Handler) sessionUserID(w http.ResponseWriter, r *http.Request, rawFormat string) (int, bool) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		writeArtifact(w, artifactFailure(http.StatusUnauthorized, rawFormat))
		return 0, false
	}

	userID, found, err := h.repo.GetUserID(r.Context(), username)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("username", username).Msg("Session user lookup failed")
		writeArtifact(w, artifactFailure(http.StatusInternalServerError, rawFormat))
		return 0, false
	}
	if !found {
		logging.Ctx(r.Context()).Warn().Str("username", username).Msg("Session username has no user record")
		writeArtifact(w, artifactFailure(http.StatusUnauthorized, rawFormat))
		return 0, false
	}
	return userID, true
}

// pathInt parses an integer chi path parameter.
func pathInt(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		logging.Ctx(r.Context()).Warn().Str("param", name).Str("value", chi.URLParam(r, name)).Msg("Rejected non-integer path parameter")
		return 0, false
	}
	return v, true
}

// parseCoordinates reads the optional latitude/longitude query parameters
// and validates their ranges. Both absent is valid; a single one present is
// rejected since recentering needs a full coordinate.
func parseCoordinates(r *http.Request) (coordinateParams, error) {
	var coords coordinateParams

	if raw := r.URL.Query().Get("latitude"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return coords, &validation.FieldError{Field: "latitude", Message: "must be a number"}
		}
		coords.Latitude = &v
	}
	if raw := r.URL.Query().Get("longitude"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return coords, &validation.FieldError{Field: "longitude", Message: "must be a number"}
		}
		coords.Longitude = &v
	}

	if (coords.Latitude == nil) != (coords.Longitude == nil) {
		return coords, &validation.FieldError{Field: "latitude", Message: "latitude and longitude must be supplied together"}
	}

	if err := validation.ValidateStruct(coords); err != nil {
		return coords, err
	}
	return coords, nil
}
