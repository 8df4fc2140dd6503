// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import "errors"

// Error taxonomy for the export pipeline. Identity, permission, and type
// errors short-circuit before any geo server call; provisioning and assembly
// errors are caught at the service level and converted to a diagnostic
// artifact. No error escapes the boundary as anything other than a
// well-formed file response.
var (
	// ErrIdentityMismatch indicates the claimed user ID does not match the
	// authenticated session identity.
	ErrIdentityMismatch = errors.New("permission error")

	// ErrInvalidGeometryType indicates an unrecognized geometry type string.
	ErrInvalidGeometryType = errors.New("invalid geometry type")

	// ErrPermissionDenied indicates the permission oracle refused the room.
	ErrPermissionDenied = errors.New("permission error")

	// ErrUnsupportedFormat indicates a format outside the closed set.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrLayerProbe indicates the layer registry probe failed (transport or
	// server error, distinct from the "no such layer" sentinel).
	ErrLayerProbe = errors.New("layer probe failed")

	// ErrLayerProvision indicates layer provisioning failed; the layer may
	// be partially provisioned if compensation also failed.
	ErrLayerProvision = errors.New("layer provisioning failed")

	// ErrArtifactAssembly indicates export document assembly failed.
	ErrArtifactAssembly = errors.New("artifact assembly failed")
)
