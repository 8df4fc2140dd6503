// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Incident holds the naming metadata the export pipeline reads.
type Incident struct {
	ID   int
	Name string

	// TypeNames are the incident type names in display order.
	TypeNames []string
}

// Repository defines the lookups the export pipeline performs against the
// relational store. The "found" booleans distinguish an absent record from
// a lookup error so callers never interpret a zero value as missing data.
type Repository interface {
	// GetIncident returns the incident with naming metadata.
	GetIncident(ctx context.Context, incidentID int) (Incident, bool, error)

	// GetCollabRoomName returns the display name of a collaboration room.
	GetCollabRoomName(ctx context.Context, collabRoomID int) (string, bool, error)

	// GetUserID resolves a session username to its user ID.
	GetUserID(ctx context.Context, username string) (int, bool, error)

	// HasPermission reports whether the user may read features in the room.
	// Rooms named incidentMapName are readable by every incident member;
	// unsecured rooms are open; secured rooms require explicit membership.
	HasPermission(ctx context.Context, userID, collabRoomID int, incidentMapName string) (bool, error)
}

// Ensure DB implements Repository.
var _ Repository = (*DB)(nil)

// GetIncident fetches the incident name and its ordered incident type names.
func (db *DB) GetIncident(ctx context.Context, incidentID int) (Incident, bool, error) {
	incident := Incident{ID: incidentID}

	row := db.pool.QueryRow(ctx,
		`SELECT incidentname FROM incident WHERE incidentid = $1`,
		incidentID,
	)
	if err := row.Scan(&incident.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Incident{}, false, nil
		}
		return Incident{}, false, fmt.Errorf("failed to query incident %d: %w", incidentID, err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT it.incidenttypename
		   FROM incidenttype it
		   JOIN incident_incidenttype iit ON iit.incidenttypeid = it.incidenttypeid
		  WHERE iit.incidentid = $1
		  ORDER BY it.incidenttypename`,
		incidentID,
	)
	if err != nil {
		return Incident{}, false, fmt.Errorf("failed to query incident types for %d: %w", incidentID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var typeName string
		if err := rows.Scan(&typeName); err != nil {
			return Incident{}, false, fmt.Errorf("failed to scan incident type: %w", err)
		}
		incident.TypeNames = append(incident.TypeNames, typeName)
	}
	if err := rows.Err(); err != nil {
		return Incident{}, false, fmt.Errorf("failed to read incident types: %w", err)
	}

	return incident, true, nil
}

// GetCollabRoomName fetches a room's display name.
func (db *DB) GetCollabRoomName(ctx context.Context, collabRoomID int) (string, bool, error) {
	var name string
	row := db.pool.QueryRow(ctx,
		`SELECT name FROM collabroom WHERE collabroomid = $1`,
		collabRoomID,
	)
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query collabroom %d: %w", collabRoomID, err)
	}
	return name, true, nil
}

// GetUserID resolves a username to its user ID.
func (db *DB) GetUserID(ctx context.Context, username string) (int, bool, error) {
	var userID int
	row := db.pool.QueryRow(ctx,
		`SELECT userid FROM "user" WHERE username = $1`,
		username,
	)
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query user %q: %w", username, err)
	}
	return userID, true, nil
}

// HasPermission implements the room permission oracle.
//
// A user may read a room when any of the following holds:
//   - the room carries the incident map name (open to every incident member)
//   - the room has no permission rows (unsecured)
//   - the user has an explicit permission row for the room
func (db *DB) HasPermission(ctx context.Context, userID, collabRoomID int, incidentMapName string) (bool, error) {
	var allowed bool
	row := db.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1
		     FROM collabroom c
		    WHERE c.collabroomid = $1
		      AND (
		        c.name = $3
		        OR NOT EXISTS (
		          SELECT 1 FROM collabroompermission p
		           WHERE p.collabroomid = c.collabroomid
		        )
		        OR EXISTS (
		          SELECT 1 FROM collabroompermission p
		           WHERE p.collabroomid = c.collabroomid
		             AND p.userid = $2
		        )
		      )
		 )`,
		collabRoomID, userID, incidentMapName,
	)
	if err := row.Scan(&allowed); err != nil {
		return false, fmt.Errorf("failed to query permission for user %d in room %d: %w", userID, collabRoomID, err)
	}
	return allowed, nil
}
