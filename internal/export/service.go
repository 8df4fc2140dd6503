// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/geocollab/internal/logging"
	"github.com/tomtom215/geocollab/internal/metrics"
)

// EventPublisher announces completed exports to interested subscribers.
// Publishing is strictly best-effort: a publish failure never alters the
// response already assembled for the caller.
type EventPublisher interface {
	PublishExportCompleted(ctx context.Context, event ExportCompletedEvent) error
}

// ExportCompletedEvent describes a successful export for downstream
// consumers.
type ExportCompletedEvent struct {
	UserID        int       `json:"user_id"`
	IncidentID    int       `json:"incident_id"`
	CollabRoomID  int       `json:"collab_room_id"`
	Format        string    `json:"format"`
	GeometryType  string    `json:"geometry_type"`
	LayerName     string    `json:"layer_name"`
	IncidentName  string    `json:"incident_name"`
	IncidentTypes string    `json:"incident_types"`
	RoomName      string    `json:"room_name"`
	Filename      string    `json:"filename"`
	SizeBytes     int       `json:"size_bytes"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Request carries the raw, boundary-parsed parameters of one export call.
// Format and GeometryType arrive unparsed; the service validates them before
// anything talks to the geo server.
type Request struct {
	RequestingUserID int
	ClaimedUserID    int
	IncidentID       int
	CollabRoomID     int
	Format           string
	GeometryType     string

	// Latitude and Longitude, when both set, recenter KML output.
	Latitude  *float64
	Longitude *float64
}

// Result is what the HTTP boundary serves: always a complete artifact, plus
// the status code the error taxonomy maps to. The artifact is never absent,
// even at status 500.
type Result struct {
	Artifact Artifact
	Status   int
}

// Service orchestrates the export pipeline: access gate, layer name
// resolution, layer materialization, metadata collection, and document
// assembly. Every path out of the pipeline ends in a servable artifact.
type Service struct {
	gate         *AccessGate
	materializer *Materializer
	collector    *Collector
	formatter    *Formatter
	publisher    EventPublisher
}

// NewService wires the export pipeline. publisher may be nil when event
// publishing is disabled.
func NewService(gate *AccessGate, materializer *Materializer, collector *Collector, formatter *Formatter, publisher EventPublisher) *Service {
	return &Service{
		gate:         gate,
		materializer: materializer,
		collector:    collector,
		formatter:    formatter,
		publisher:    publisher,
	}
}

// Export runs the full pipeline for a room-scoped datalayer export.
func (s *Service) Export(ctx context.Context, req Request) Result {
	start := time.Now()

	result := s.export(ctx, req)

	metrics.ExportRequests.WithLabelValues(req.Format, strconv.Itoa(result.Status)).Inc()
	metrics.ExportDuration.WithLabelValues(req.Format).Observe(time.Since(start).Seconds())
	return result
}

func (s *Service) export(ctx context.Context, req Request) Result {
	format, err := ParseFormat(req.Format)
	if err != nil {
		return s.fail(ctx, req.Format, err)
	}

	geometryType, err := ParseGeometryType(req.GeometryType)
	if err != nil {
		return s.fail(ctx, req.Format, err)
	}

	if err := s.gate.Authorize(ctx, req.RequestingUserID, req.ClaimedUserID, req.CollabRoomID, req.IncidentID); err != nil {
		return s.fail(ctx, req.Format, err)
	}

	layerName := ResolveLayerName(req.CollabRoomID, geometryType)

	if _, err := s.materializer.EnsureLayer(ctx, layerName, geometryType, req.CollabRoomID); err != nil {
		return s.fail(ctx, req.Format, err)
	}

	info := s.collector.Collect(ctx, req.IncidentID, req.CollabRoomID)
	stem, ok := s.collector.FilenameStem(info)
	if !ok {
		stem = layerName
	}

	artifact, err := s.formatter.Render(ctx, RenderRequest{
		Format:       format,
		LayerName:    layerName,
		FilenameStem: stem,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	})
	if err != nil {
		// Render already produced the diagnostic artifact; only the status
		// remains to be mapped.
		return Result{Artifact: artifact, Status: statusFor(err)}
	}

	s.publishCompleted(ctx, req, format, geometryType, layerName, info, artifact)

	return Result{Artifact: artifact, Status: http.StatusOK}
}

// Capabilities runs the workspace-scoped capabilities path. Only the
// identity self-match is enforced here: the capabilities document is
// server-wide metadata, not room data, so the room permission oracle is
// never consulted.
func (s *Service) Capabilities(ctx context.Context, requestingUserID, claimedUserID int, rawFormat string) Result {
	start := time.Now()
	defer func() {
		metrics.ExportDuration.WithLabelValues(rawFormat).Observe(time.Since(start).Seconds())
	}()

	format, err := ParseFormat(rawFormat)
	if err == nil && !format.IsCapabilities() {
		err = ErrUnsupportedFormat
	}
	if err != nil {
		result := s.fail(ctx, rawFormat, err)
		metrics.ExportRequests.WithLabelValues(rawFormat, strconv.Itoa(result.Status)).Inc()
		return result
	}

	if err := s.gate.AuthorizeIdentity(requestingUserID, claimedUserID); err != nil {
		result := s.fail(ctx, rawFormat, err)
		metrics.ExportRequests.WithLabelValues(rawFormat, strconv.Itoa(result.Status)).Inc()
		return result
	}

	artifact, err := s.formatter.Render(ctx, RenderRequest{
		Format:       format,
		FilenameStem: "capabilities-" + string(format),
	})
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}

	metrics.ExportRequests.WithLabelValues(rawFormat, strconv.Itoa(status)).Inc()
	return Result{Artifact: artifact, Status: status}
}

// fail converts a pipeline error into the never-fail result: the canonical
// diagnostic artifact plus the mapped status.
func (s *Service) fail(ctx context.Context, rawFormat string, err error) Result {
	status := statusFor(err)

	level := zerolog.WarnLevel
	if status == http.StatusInternalServerError {
		level = zerolog.ErrorLevel
	}
	logging.Ctx(ctx).WithLevel(level).Err(err).Str("format", rawFormat).Int("status", status).Msg("Export request failed")

	return Result{
		Artifact: NewErrorArtifact(failureBody(rawFormat, err)),
		Status:   status,
	}
}

// failureBody builds the diagnostic artifact text. Access refusals append
// the denial reason so the caller can tell a permission problem apart from
// a retrieval failure.
func failureBody(rawFormat string, err error) string {
	message := FailureMessage(Format(rawFormat))
	if errors.Is(err, ErrIdentityMismatch) || errors.Is(err, ErrPermissionDenied) {
		message += ": " + ErrPermissionDenied.Error()
	}
	return message
}

// statusFor maps the pipeline error taxonomy to an HTTP status. Identity
// and geometry errors are client mistakes (400), permission refusals are
// 401, everything else is a server-side failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrIdentityMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidGeometryType):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// publishCompleted announces a successful export. Failures are logged and
// swallowed; the artifact has already been assembled and must be served.
func (s *Service) publishCompleted(ctx context.Context, req Request, format Format, geometryType GeometryType, layerName string, info DatalayerInfo, artifact Artifact) {
	if s.publisher == nil {
		return
	}

	event := ExportCompletedEvent{
		UserID:        req.RequestingUserID,
		IncidentID:    req.IncidentID,
		CollabRoomID:  req.CollabRoomID,
		Format:        string(format),
		GeometryType:  string(geometryType),
		LayerName:     layerName,
		IncidentName:  info.IncidentName,
		IncidentTypes: info.IncidentTypeNames(),
		RoomName:      info.RoomName,
		Filename:      artifact.Filename,
		SizeBytes:     len(artifact.Content),
		CompletedAt:   time.Now().UTC(),
	}

	if err := s.publisher.PublishExportCompleted(ctx, event); err != nil {
		metrics.EventsPublished.WithLabelValues("failure").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("layer", layerName).Msg("Export completed event publish failed")
		return
	}
	metrics.EventsPublished.WithLabelValues("success").Inc()
}
