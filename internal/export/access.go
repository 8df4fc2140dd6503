// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"context"
	"fmt"
)

// PermissionOracle answers room access questions from externally owned
// permission data. Satisfied by *database.DB.
type PermissionOracle interface {
	HasPermission(ctx context.Context, userID, collabRoomID int, incidentMapName string) (bool, error)
}

// AccessGate validates caller identity and room permission before any geo
// server work happens. It is a pure decision function over the injected
// oracle: no side effects, and nothing is provisioned for a denied request.
type AccessGate struct {
	oracle          PermissionOracle
	incidentMapName string
}

// NewAccessGate creates an access gate over the given permission oracle.
func NewAccessGate(oracle PermissionOracle, incidentMapName string) *AccessGate {
	return &AccessGate{
		oracle:          oracle,
		incidentMapName: incidentMapName,
	}
}

// Authorize validates the request identity and room permission.
//
// The identity self-match (claimed == requesting) is checked before anything
// else: a mismatch means the caller is claiming someone else's identity and
// is denied regardless of room permissions.
//
// Returns nil when authorized, ErrIdentityMismatch or ErrPermissionDenied
// otherwise. Oracle lookup failures are conservatively treated as denials.
func (g *AccessGate) Authorize(ctx context.Context, requestingUserID, claimedUserID, collabRoomID, incidentID int) error {
	if claimedUserID != requestingUserID {
		return fmt.Errorf("%w: user %d claimed identity %d", ErrIdentityMismatch, requestingUserID, claimedUserID)
	}

	allowed, err := g.oracle.HasPermission(ctx, requestingUserID, collabRoomID, g.incidentMapName)
	if err != nil {
		return fmt.Errorf("%w: oracle lookup failed: %v", ErrPermissionDenied, err)
	}
	if !allowed {
		return fmt.Errorf("%w: user %d lacks access to room %d in incident %d", ErrPermissionDenied, requestingUserID, collabRoomID, incidentID)
	}

	return nil
}

// AuthorizeIdentity validates only the identity self-match. The capabilities
// export path uses this: GetCapabilities documents are server-wide metadata
// not scoped to a room, so the room permission check is skipped there.
func (g *AccessGate) AuthorizeIdentity(requestingUserID, claimedUserID int) error {
	if claimedUserID != requestingUserID {
		return fmt.Errorf("%w: user %d claimed identity %d", ErrIdentityMismatch, requestingUserID, claimedUserID)
	}
	return nil
}
