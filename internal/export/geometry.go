// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"fmt"
	"strings"
)

// GeometryType is the closed set of feature geometry classes a datalayer
// export can select. Parsing is case-insensitive; everything else is
// rejected before any geo server call is made.
type GeometryType string

const (
	GeometryPoint   GeometryType = "point"
	GeometryLine    GeometryType = "line"
	GeometryPolygon GeometryType = "polygon"
	GeometryAll     GeometryType = "all"
)

// ParseGeometryType parses a raw geometry type string.
// Returns ErrInvalidGeometryType for anything outside the recognized set.
func ParseGeometryType(raw string) (GeometryType, error) {
	switch GeometryType(strings.ToLower(raw)) {
	case GeometryPoint:
		return GeometryPoint, nil
	case GeometryLine:
		return GeometryLine, nil
	case GeometryPolygon:
		return GeometryPolygon, nil
	case GeometryAll:
		return GeometryAll, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGeometryType, raw)
	}
}

// featurePredicate returns the SQL predicate restricting the feature view to
// this geometry class, or "" for GeometryAll.
//
// The shape codes are the drawing-tool taxonomy stored in Feature.type and
// must be preserved exactly: lines are stored as "sketch", and the
// polygon class covers every closed shape the sketch tools produce.
func (g GeometryType) featurePredicate() string {
	switch g {
	case GeometryPoint:
		return "f.type='point'"
	case GeometryLine:
		return "f.type='sketch'"
	case GeometryPolygon:
		return "f.type IN ('polygon','hexagon','circle','box','triangle')"
	case GeometryAll:
		return ""
	default:
		return ""
	}
}
