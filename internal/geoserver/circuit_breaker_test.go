// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package geoserver

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

// fakeGeoClient is a scriptable ClientInterface for breaker tests.
type fakeGeoClient struct {
	layer     Layer
	found     bool
	err       error
	callCount int
}

func (f *fakeGeoClient) GetLayer(ctx context.Context, name, mimeType string) (Layer, bool, error) {
	f.callCount++
	return f.layer, f.found, f.err
}

func (f *fakeGeoClient) AddFeatureTypeFromSQL(ctx context.Context, workspace, store, name, srs, sql, geomColumn, geomType string, srid int) error {
	f.callCount++
	return f.err
}

func (f *fakeGeoClient) SetLayerStyle(ctx context.Context, layerName, style string) error {
	f.callCount++
	return f.err
}

func (f *fakeGeoClient) SetFeatureTypeBounds(ctx context.Context, workspace, store, name string, native, latLon Bounds) error {
	f.callCount++
	return f.err
}

func (f *fakeGeoClient) SetFeatureTypeEnabled(ctx context.Context, workspace, store, name string, enabled bool) error {
	f.callCount++
	return f.err
}

func (f *fakeGeoClient) SetLayerEnabled(ctx context.Context, layerName string, enabled bool) error {
	f.callCount++
	return f.err
}

func (f *fakeGeoClient) DeleteFeatureType(ctx context.Context, workspace, store, name string) error {
	f.callCount++
	return f.err
}

func (f *fakeGeoClient) GetExport(ctx context.Context, workspace, ogcService string, query url.Values) ([]byte, string, error) {
	f.callCount++
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("body"), "text/xml", nil
}

func (f *fakeGeoClient) GetCapabilities(ctx context.Context, workspace, ogcService string) ([]byte, error) {
	f.callCount++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("<caps/>"), nil
}

func TestCircuitBreakerPassesThroughSuccess(t *testing.T) {
	fake := &fakeGeoClient{layer: Layer{Name: "R5"}, found: true}
	cbc := NewCircuitBreakerClient(fake)

	layer, found, err := cbc.GetLayer(context.Background(), "R5", "application/json")

	checkNoError(t, err)
	checkTrue(t, "found", found)
	checkStringEqual(t, "layer.Name", layer.Name, "R5")
}

func TestCircuitBreakerPreservesAbsentSentinel(t *testing.T) {
	fake := &fakeGeoClient{found: false}
	cbc := NewCircuitBreakerClient(fake)

	_, found, err := cbc.GetLayer(context.Background(), "R5", "application/json")

	checkNoError(t, err)
	checkFalse(t, "found", found)
}

func TestCircuitBreakerPropagatesErrors(t *testing.T) {
	wantErr := errors.New("geoserver down")
	fake := &fakeGeoClient{err: wantErr}
	cbc := NewCircuitBreakerClient(fake)

	err := cbc.SetLayerEnabled(context.Background(), "R5", true)

	checkError(t, err)
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped client error, got %v", err)
	}
}

func TestCircuitBreakerExportResult(t *testing.T) {
	fake := &fakeGeoClient{}
	cbc := NewCircuitBreakerClient(fake)

	body, contentType, err := cbc.GetExport(context.Background(), "nics", "wms", url.Values{})

	checkNoError(t, err)
	checkStringEqual(t, "body", string(body), "body")
	checkStringEqual(t, "contentType", contentType, "text/xml")
}
