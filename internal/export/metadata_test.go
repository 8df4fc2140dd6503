// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/geocollab/internal/database"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
}

func TestCollectDegradesFieldByField(t *testing.T) {
	tests := []struct {
		name             string
		repo             *fakeRepo
		wantIncidentName string
		wantRoomName     string
	}{
		{
			name: "both lookups succeed",
			repo: &fakeRepo{
				incident:   database.Incident{ID: 7, Name: "Oakfire", TypeNames: []string{"Wildfire"}},
				incidentOK: true,
				roomName:   "Planning",
				roomOK:     true,
			},
			wantIncidentName: "Oakfire",
			wantRoomName:     "Planning",
		},
		{
			name: "incident lookup error leaves room intact",
			repo: &fakeRepo{
				incidentErr: errors.New("db down"),
				roomName:    "Planning",
				roomOK:      true,
			},
			wantIncidentName: "",
			wantRoomName:     "Planning",
		},
		{
			name: "incident absent",
			repo: &fakeRepo{
				roomName: "Planning",
				roomOK:   true,
			},
			wantIncidentName: "",
			wantRoomName:     "Planning",
		},
		{
			name: "room lookup error uses placeholder",
			repo: &fakeRepo{
				incident:    database.Incident{ID: 7, Name: "Oakfire"},
				incidentOK:  true,
				roomNameErr: errors.New("db down"),
			},
			wantIncidentName: "Oakfire",
			wantRoomName:     "UnknownRoom",
		},
		{
			name: "room absent leaves empty name",
			repo: &fakeRepo{
				incident:   database.Incident{ID: 7, Name: "Oakfire"},
				incidentOK: true,
			},
			wantIncidentName: "Oakfire",
			wantRoomName:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(tt.repo, "NICS")

			info := c.Collect(context.Background(), 7, 42)
			checkStringEqual(t, info.IncidentName, tt.wantIncidentName)
			checkStringEqual(t, info.RoomName, tt.wantRoomName)
		})
	}
}

func TestFilenameStem(t *testing.T) {
	c := NewCollector(&fakeRepo{}, "NICS")
	c.now = fixedClock

	tests := []struct {
		name   string
		info   DatalayerInfo
		want   string
		wantOK bool
	}{
		{
			name:   "both names present",
			info:   DatalayerInfo{IncidentName: "Oakfire", RoomName: "Planning"},
			want:   "NICS-Oakfire-Planning-2026-03-14T150926",
			wantOK: true,
		},
		{
			name:   "spaces become underscores",
			info:   DatalayerInfo{IncidentName: "Oak Fire 2026", RoomName: "Ops Room"},
			want:   "NICS-Oak_Fire_2026-Ops_Room-2026-03-14T150926",
			wantOK: true,
		},
		{
			name:   "unsafe characters stripped",
			info:   DatalayerInfo{IncidentName: `Oak/fire:"v2"`, RoomName: "Planning"},
			want:   "NICS-Oakfirev2-Planning-2026-03-14T150926",
			wantOK: true,
		},
		{
			name:   "room only",
			info:   DatalayerInfo{RoomName: "Planning"},
			want:   "NICS--Planning-2026-03-14T150926",
			wantOK: true,
		},
		{
			name:   "both names empty signals no stem",
			info:   DatalayerInfo{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.FilenameStem(tt.info)
			if !tt.wantOK {
				checkTrue(t, !ok, "expected no-stem signal")
				return
			}
			checkTrue(t, ok, "expected a stem")
			checkStringEqual(t, got, tt.want)
		})
	}
}

func TestIncidentTypeNames(t *testing.T) {
	tests := []struct {
		name string
		info DatalayerInfo
		want string
	}{
		{
			name: "multiple types keep stored order",
			info: DatalayerInfo{IncidentTypes: []string{"Wildfire", "Evacuation", "Flood"}},
			want: "Wildfire,Evacuation,Flood",
		},
		{
			name: "single type",
			info: DatalayerInfo{IncidentTypes: []string{"Wildfire"}},
			want: "Wildfire",
		},
		{
			name: "no types",
			info: DatalayerInfo{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkStringEqual(t, tt.info.IncidentTypeNames(), tt.want)
		})
	}
}
