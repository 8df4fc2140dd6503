// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/tomtom215/geocollab/internal/database"
	"github.com/tomtom215/geocollab/internal/logging"
)

// filenameTimeLayout renders the stem timestamp, always in UTC.
const filenameTimeLayout = "2006-01-02T150405"

// unsafeFilenameChars matches everything stripped from name components
// before they enter a filename.
var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// DatalayerInfo carries the descriptive metadata attached to an export.
// Every field may be empty; metadata lookups degrade rather than fail.
type DatalayerInfo struct {
	IncidentName  string
	IncidentTypes []string
	RoomName      string
}

// IncidentTypeNames joins the incident type names, in their stored order,
// into the comma-separated form carried by export events.
func (i DatalayerInfo) IncidentTypeNames() string {
	return strings.Join(i.IncidentTypes, ",")
}

// Collector gathers descriptive metadata for an export without ever
// failing the export itself. Lookup errors and absent rows degrade to
// empty fields and a log line.
type Collector struct {
	repo   database.Repository
	prefix string
	now    func() time.Time
}

// NewCollector creates a metadata collector reading from repo. prefix leads
// every generated filename stem.
func NewCollector(repo database.Repository, prefix string) *Collector {
	return &Collector{repo: repo, prefix: prefix, now: time.Now}
}

// Collect looks up incident and room metadata. Both lookups are
// independent: a failure in one never blanks the other.
func (c *Collector) Collect(ctx context.Context, incidentID, collabRoomID int) DatalayerInfo {
	var info DatalayerInfo

	incident, found, err := c.repo.GetIncident(ctx, incidentID)
	switch {
	case err != nil:
		logging.Ctx(ctx).Warn().Err(err).Int("incident_id", incidentID).Msg("Incident metadata lookup failed; continuing without it")
	case !found:
		logging.Ctx(ctx).Debug().Int("incident_id", incidentID).Msg("Incident not found for metadata")
	default:
		info.IncidentName = incident.Name
		info.IncidentTypes = incident.TypeNames
	}

	roomName, found, err := c.repo.GetCollabRoomName(ctx, collabRoomID)
	switch {
	case err != nil:
		logging.Ctx(ctx).Warn().Err(err).Int("collab_room_id", collabRoomID).Msg("Room metadata lookup failed; using placeholder name")
		info.RoomName = "UnknownRoom"
	case !found:
		logging.Ctx(ctx).Debug().Int("collab_room_id", collabRoomID).Msg("Collab room not found for metadata")
	default:
		info.RoomName = roomName
	}

	return info
}

// FilenameStem builds the "<prefix>-<incident>-<room>-<timestamp>" stem for
// an export artifact. Returns ok=false when both names are empty, in which
// case the caller should fall back to the layer name.
func (c *Collector) FilenameStem(info DatalayerInfo) (string, bool) {
	incident := sanitizeFilenameComponent(info.IncidentName)
	room := sanitizeFilenameComponent(info.RoomName)
	if incident == "" && room == "" {
		return "", false
	}

	ts := c.now().UTC().Format(filenameTimeLayout)
	return c.prefix + "-" + incident + "-" + room + "-" + ts, true
}

// sanitizeFilenameComponent collapses whitespace and strips characters that
// are unsafe in Content-Disposition filenames.
func sanitizeFilenameComponent(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "_")
	return unsafeFilenameChars.ReplaceAllString(name, "")
}
