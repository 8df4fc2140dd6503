// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"fmt"
	"strings"
)

// Format is the closed set of export formats. Adding or removing a format is
// a compiler-checked change: every switch over Format in this package lists
// all members explicitly.
//
// KML dynamic export (network-linked KML refreshing from the live layer) is
// deliberately not a member; only the static snapshot is supported.
type Format string

const (
	FormatKMLStatic       Format = "kml-static"
	FormatShapefile       Format = "shapefile"
	FormatGeoJSON         Format = "geojson"
	FormatWMSCapabilities Format = "wms-capabilities"
	FormatWFSCapabilities Format = "wfs-capabilities"
)

// ParseFormat parses a raw format string.
// Returns ErrUnsupportedFormat for anything outside the recognized set.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(raw)) {
	case FormatKMLStatic:
		return FormatKMLStatic, nil
	case FormatShapefile:
		return FormatShapefile, nil
	case FormatGeoJSON:
		return FormatGeoJSON, nil
	case FormatWMSCapabilities:
		return FormatWMSCapabilities, nil
	case FormatWFSCapabilities:
		return FormatWFSCapabilities, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// IsCapabilities reports whether this format exports server-level metadata
// rather than a room's layer. Capabilities exports take the workspace-scoped
// path and skip layer materialization.
func (f Format) IsCapabilities() bool {
	switch f {
	case FormatWMSCapabilities, FormatWFSCapabilities:
		return true
	case FormatKMLStatic, FormatShapefile, FormatGeoJSON:
		return false
	default:
		return false
	}
}
