// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/tomtom215/geocollab/internal/config"
	"github.com/tomtom215/geocollab/internal/database"
	"github.com/tomtom215/geocollab/internal/geoserver"
)

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func checkErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

func checkStringEqual(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func checkIntEqual(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func checkTrue(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Fatal(msg)
	}
}

// fakeGeo implements geoserver.ClientInterface recording every call in
// order, for asserting call sequences and payloads.
type fakeGeo struct {
	calls []string

	existingLayers map[string]geoserver.Layer
	probeErr       error

	// failOn names the first operation that should return an error.
	failOn  string
	failErr error

	lastSQL         string
	lastSRS         string
	lastGeomColumn  string
	lastSRID        int
	lastStyle       string
	lastNative      geoserver.Bounds
	lastLatLon      geoserver.Bounds
	lastService     string
	lastExportQuery url.Values

	exportBody        []byte
	exportContentType string
	capabilitiesBody  []byte

	deleted []string
}

var _ geoserver.ClientInterface = (*fakeGeo)(nil)

func (f *fakeGeo) record(op string) error {
	f.calls = append(f.calls, op)
	if op == f.failOn {
		if f.failErr != nil {
			return f.failErr
		}
		return errors.New(op + " failed")
	}
	return nil
}

func (f *fakeGeo) GetLayer(_ context.Context, name, _ string) (geoserver.Layer, bool, error) {
	if err := f.record("get_layer"); err != nil {
		return geoserver.Layer{}, false, err
	}
	if f.probeErr != nil {
		return geoserver.Layer{}, false, f.probeErr
	}
	layer, ok := f.existingLayers[name]
	return layer, ok, nil
}

func (f *fakeGeo) AddFeatureTypeFromSQL(_ context.Context, _, _, name, srs, sql, geomColumn, _ string, srid int) error {
	if err := f.record("add_feature_type"); err != nil {
		return err
	}
	f.lastSQL = sql
	f.lastSRS = srs
	f.lastGeomColumn = geomColumn
	f.lastSRID = srid
	if f.existingLayers == nil {
		f.existingLayers = make(map[string]geoserver.Layer)
	}
	f.existingLayers[name] = geoserver.Layer{Name: name}
	return nil
}

func (f *fakeGeo) SetLayerStyle(_ context.Context, _, style string) error {
	if err := f.record("set_layer_style"); err != nil {
		return err
	}
	f.lastStyle = style
	return nil
}

func (f *fakeGeo) SetFeatureTypeBounds(_ context.Context, _, _, _ string, native, latLon geoserver.Bounds) error {
	if err := f.record("set_feature_type_bounds"); err != nil {
		return err
	}
	f.lastNative = native
	f.lastLatLon = latLon
	return nil
}

func (f *fakeGeo) SetFeatureTypeEnabled(_ context.Context, _, _, _ string, _ bool) error {
	return f.record("set_feature_type_enabled")
}

func (f *fakeGeo) SetLayerEnabled(_ context.Context, _ string, _ bool) error {
	return f.record("set_layer_enabled")
}

func (f *fakeGeo) DeleteFeatureType(_ context.Context, _, _, name string) error {
	if err := f.record("delete_feature_type"); err != nil {
		return err
	}
	f.deleted = append(f.deleted, name)
	delete(f.existingLayers, name)
	return nil
}

func (f *fakeGeo) GetExport(_ context.Context, _, ogcService string, query url.Values) ([]byte, string, error) {
	if err := f.record("get_export"); err != nil {
		return nil, "", err
	}
	f.lastService = ogcService
	f.lastExportQuery = query
	contentType := f.exportContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f.exportBody, contentType, nil
}

func (f *fakeGeo) GetCapabilities(_ context.Context, _, ogcService string) ([]byte, error) {
	if err := f.record("get_capabilities"); err != nil {
		return nil, err
	}
	f.lastService = ogcService
	return f.capabilitiesBody, nil
}

// fakeRepo implements database.Repository with canned answers.
type fakeRepo struct {
	incident    database.Incident
	incidentOK  bool
	incidentErr error

	roomName    string
	roomOK      bool
	roomNameErr error

	userID  int
	userOK  bool
	userErr error

	allowed       bool
	permissionErr error

	permissionCalls int
}

var _ database.Repository = (*fakeRepo)(nil)

func (r *fakeRepo) GetIncident(_ context.Context, _ int) (database.Incident, bool, error) {
	return r.incident, r.incidentOK, r.incidentErr
}

func (r *fakeRepo) GetCollabRoomName(_ context.Context, _ int) (string, bool, error) {
	return r.roomName, r.roomOK, r.roomNameErr
}

func (r *fakeRepo) GetUserID(_ context.Context, _ string) (int, bool, error) {
	return r.userID, r.userOK, r.userErr
}

func (r *fakeRepo) HasPermission(_ context.Context, _, _ int, _ string) (bool, error) {
	r.permissionCalls++
	return r.allowed, r.permissionErr
}

func testGeoServerConfig() *config.GeoServerConfig {
	return &config.GeoServerConfig{
		Workspace: "nics",
		DataStore: "collabroom",
		Style:     "collabroom_features",
	}
}

// newTestService wires a pipeline over the given fakes with no publisher.
func newTestService(geo *fakeGeo, repo *fakeRepo) *Service {
	cfg := testGeoServerConfig()
	return NewService(
		NewAccessGate(repo, "Incident Map"),
		NewMaterializer(geo, cfg),
		NewCollector(repo, "NICS"),
		NewFormatter(geo, cfg.Workspace),
		nil,
	)
}
