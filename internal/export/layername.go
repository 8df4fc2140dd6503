// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"strconv"
	"strings"
)

// ResolveLayerName derives the deterministic layer identifier for a room and
// geometry class: "R" + collabRoomID, with "_" + geometry appended unless the
// geometry is "all".
//
// The name doubles as the SQL view identifier and the geo server feature
// type identifier, so it is safe to use as a lookup key and MUST NOT change
// for a given (room, geometry) pair: any change invalidates every layer
// already materialized on the geo server.
func ResolveLayerName(collabRoomID int, geometryType GeometryType) string {
	name := "R" + strconv.Itoa(collabRoomID)
	if geometryType != GeometryAll {
		name += "_" + strings.ToLower(string(geometryType))
	}
	return name
}
