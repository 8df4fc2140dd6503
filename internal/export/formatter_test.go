// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestRenderKMLPlainDocument(t *testing.T) {
	kml := `<kml><Placemark><name>p1</name></Placemark></kml>`
	geo := &fakeGeo{exportBody: []byte(kml), exportContentType: "application/vnd.google-earth.kml+xml"}
	f := NewFormatter(geo, "nics")

	artifact, err := f.Render(context.Background(), RenderRequest{
		Format:       FormatKMLStatic,
		LayerName:    "R42_point",
		FilenameStem: "NICS-Oakfire-Planning-2026-03-14T150926",
	})
	checkNoError(t, err)
	checkStringEqual(t, artifact.Filename, "NICS-Oakfire-Planning-2026-03-14T150926.kml")
	checkStringEqual(t, artifact.MediaType, "application/vnd.google-earth.kml+xml")
	checkStringEqual(t, string(artifact.Content), kml)
	checkStringEqual(t, geo.lastService, "wms")

	q := geo.lastExportQuery
	checkStringEqual(t, q.Get("request"), "GetMap")
	checkStringEqual(t, q.Get("layers"), "nics:R42_point")
	checkStringEqual(t, q.Get("format"), "application/vnd.google-earth.kml+xml")
	checkStringEqual(t, q.Get("bbox"), "-126.523,14.169,-59.506,49.375")
}

func TestRenderKMLRecentersOnCoordinate(t *testing.T) {
	geo := &fakeGeo{exportBody: []byte("<kml/>")}
	f := NewFormatter(geo, "nics")

	lat, lon := 40.0, -105.0
	_, err := f.Render(context.Background(), RenderRequest{
		Format:       FormatKMLStatic,
		LayerName:    "R42",
		FilenameStem: "R42",
		Latitude:     &lat,
		Longitude:    &lon,
	})
	checkNoError(t, err)
	checkStringEqual(t, geo.lastExportQuery.Get("bbox"), "-105.5,39.5,-104.5,40.5")
}

func TestRenderKMLBundlesRelativeAssetsIntoKMZ(t *testing.T) {
	kml := `<kml><Style><IconStyle><Icon><href>images/marker.png</href></Icon></IconStyle></Style></kml>`
	geo := &fakeGeo{exportBody: []byte(kml), exportContentType: "application/vnd.google-earth.kml+xml"}
	f := NewFormatter(geo, "nics")

	artifact, err := f.Render(context.Background(), RenderRequest{
		Format:       FormatKMLStatic,
		LayerName:    "R42",
		FilenameStem: "R42",
	})
	checkNoError(t, err)
	checkStringEqual(t, artifact.Filename, "R42.kmz")
	checkStringEqual(t, artifact.MediaType, "application/vnd.google-earth.kmz")

	zr, zerr := zip.NewReader(bytes.NewReader(artifact.Content), int64(len(artifact.Content)))
	checkNoError(t, zerr)
	checkIntEqual(t, len(zr.File), 1)
	checkStringEqual(t, zr.File[0].Name, "doc.kml")

	rc, zerr := zr.File[0].Open()
	checkNoError(t, zerr)
	defer func() { _ = rc.Close() }()
	inner, zerr := io.ReadAll(rc)
	checkNoError(t, zerr)
	checkStringEqual(t, string(inner), kml)
}

func TestRenderKMLAbsoluteAssetsStayPlain(t *testing.T) {
	kml := `<kml><Icon><href>https://maps.example.org/marker.png</href></Icon></kml>`
	geo := &fakeGeo{exportBody: []byte(kml)}
	f := NewFormatter(geo, "nics")

	artifact, err := f.Render(context.Background(), RenderRequest{
		Format:       FormatKMLStatic,
		LayerName:    "R42",
		FilenameStem: "R42",
	})
	checkNoError(t, err)
	checkTrue(t, strings.HasSuffix(artifact.Filename, ".kml"), "absolute asset references need no bundling")
}

func TestRenderKMLPassesThroughServerKMZ(t *testing.T) {
	geo := &fakeGeo{exportBody: []byte("PK\x03\x04fake"), exportContentType: "application/vnd.google-earth.kmz"}
	f := NewFormatter(geo, "nics")

	artifact, err := f.Render(context.Background(), RenderRequest{
		Format:       FormatKMLStatic,
		LayerName:    "R42",
		FilenameStem: "R42",
	})
	checkNoError(t, err)
	checkStringEqual(t, artifact.Filename, "R42.kmz")
	checkStringEqual(t, string(artifact.Content), "PK\x03\x04fake")
}

func TestRenderShapefile(t *testing.T) {
	geo := &fakeGeo{exportBody: []byte("PK\x03\x04shp")}
	f := NewFormatter(geo, "nics")

	artifact, err := f.Render(context.Background(), RenderRequest{
		Format:       FormatShapefile,
		LayerName:    "R42_polygon",
		FilenameStem: "R42_polygon",
	})
	checkNoError(t, err)
	checkStringEqual(t, artifact.Filename, "R42_polygon.zip")
	checkStringEqual(t, artifact.MediaType, "application/zip")
	checkStringEqual(t, geo.lastService, "wfs")

	q := geo.lastExportQuery
	checkStringEqual(t, q.Get("request"), "GetFeature")
	checkStringEqual(t, q.Get("typeName"), "nics:R42_polygon")
	checkStringEqual(t, q.Get("outputFormat"), "SHAPE-ZIP")
}

func TestRenderGeoJSON(t *testing.T) {
	geo := &fakeGeo{exportBody: []byte(`{"type":"FeatureCollection","features":[]}`)}
	f := NewFormatter(geo, "nics")

	artifact, err := f.Render(context.Background(), RenderRequest{
		Format:       FormatGeoJSON,
		LayerName:    "R42",
		FilenameStem: "R42",
	})
	checkNoError(t, err)
	checkStringEqual(t, artifact.Filename, "R42.json")
	checkStringEqual(t, artifact.MediaType, "application/json")
	checkStringEqual(t, geo.lastExportQuery.Get("outputFormat"), "application/json")
}

func TestRenderCapabilities(t *testing.T) {
	tests := []struct {
		format  Format
		service string
	}{
		{FormatWMSCapabilities, "wms"},
		{FormatWFSCapabilities, "wfs"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			geo := &fakeGeo{capabilitiesBody: []byte(`<WMS_Capabilities/>`)}
			f := NewFormatter(geo, "nics")

			artifact, err := f.Render(context.Background(), RenderRequest{
				Format:       tt.format,
				FilenameStem: "capabilities-" + string(tt.format),
			})
			checkNoError(t, err)
			checkStringEqual(t, geo.lastService, tt.service)
			checkStringEqual(t, artifact.MediaType, "application/xml")
			checkTrue(t, strings.HasSuffix(artifact.Filename, ".xml"), "capabilities artifact is XML")
		})
	}
}

func TestRenderFailureYieldsDiagnosticArtifact(t *testing.T) {
	geo := &fakeGeo{failOn: "get_export"}
	f := NewFormatter(geo, "nics")

	artifact, err := f.Render(context.Background(), RenderRequest{
		Format:       FormatGeoJSON,
		LayerName:    "R42",
		FilenameStem: "R42",
	})
	checkErrorIs(t, err, ErrArtifactAssembly)
	checkTrue(t, artifact.Diagnostic, "failure must yield the diagnostic artifact")
	checkStringEqual(t, string(artifact.Content), "There was an error retrieving an export file for format geojson")
}
