// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package events

import (
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geocollab/internal/export"
)

func TestBuildMessage(t *testing.T) {
	event := export.ExportCompletedEvent{
		UserID:        5,
		IncidentID:    7,
		CollabRoomID:  42,
		Format:        "geojson",
		GeometryType:  "point",
		LayerName:     "R42_point",
		IncidentName:  "Oakfire",
		IncidentTypes: "Wildfire,Evacuation",
		RoomName:      "Planning",
		Filename:      "NICS-Oakfire-Planning-2026-03-14T150926.json",
		SizeBytes:     128,
		CompletedAt:   time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}

	msg, err := buildMessage(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.UUID == "" {
		t.Fatal("message UUID must be set")
	}
	if got := msg.Metadata.Get("event_type"); got != "export.completed" {
		t.Fatalf("event_type = %q, want export.completed", got)
	}
	if got := msg.Metadata.Get("layer"); got != "R42_point" {
		t.Fatalf("layer = %q, want R42_point", got)
	}
	if got := msg.Metadata.Get("user_id"); got != "5" {
		t.Fatalf("user_id = %q, want 5", got)
	}

	var decoded export.ExportCompletedEvent
	if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
		t.Fatalf("payload did not round-trip: %v", err)
	}
	if decoded.LayerName != event.LayerName || decoded.SizeBytes != event.SizeBytes {
		t.Fatalf("decoded event %+v does not match original %+v", decoded, event)
	}
}

func TestWatermillLoggerWithReturnsNewAdapter(t *testing.T) {
	base := newWatermillLogger()
	derived := base.With(map[string]interface{}{"topic": "geocollab.export.completed"})

	if derived == nil {
		t.Fatal("With must return a logger adapter")
	}
	// Logging through both must not panic.
	base.Info("base logger", nil)
	derived.Debug("derived logger", map[string]interface{}{"k": "v"})
}
