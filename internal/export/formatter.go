// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomtom215/geocollab/internal/geoserver"
	"github.com/tomtom215/geocollab/internal/logging"
)

// kmlCenterHalfSpan is the half-width in degrees of the bounding box used
// when a KML export is recentered on a caller-supplied coordinate.
const kmlCenterHalfSpan = 0.5

// RenderRequest carries everything the formatter needs to assemble one
// export document.
type RenderRequest struct {
	Format    Format
	LayerName string

	// FilenameStem names the artifact without its extension.
	FilenameStem string

	// Latitude and Longitude, when both set, recenter a KML document on the
	// given point. Ignored by every other format.
	Latitude  *float64
	Longitude *float64
}

// Formatter assembles export documents by format. Each format maps to one
// OGC fetch; assembly failures surface as ErrArtifactAssembly alongside a
// diagnostic artifact, so callers always hold a servable file.
type Formatter struct {
	geo       geoserver.ClientInterface
	workspace string
}

// NewFormatter creates a formatter fetching from the given geo server
// workspace.
func NewFormatter(geo geoserver.ClientInterface, workspace string) *Formatter {
	return &Formatter{geo: geo, workspace: workspace}
}

// FailureMessage is the human-readable body of the diagnostic artifact for
// a failed export of the given format.
func FailureMessage(format Format) string {
	return "There was an error retrieving an export file for format " + string(format)
}

// Render assembles the export artifact for req. The switch over Format is
// exhaustive; an unhandled member is unreachable once ParseFormat accepted
// the input, and still yields a diagnostic artifact rather than a panic.
//
// On any failure the returned Artifact is the diagnostic artifact and the
// error is non-nil; on success the error is nil.
func (f *Formatter) Render(ctx context.Context, req RenderRequest) (Artifact, error) {
	var (
		artifact Artifact
		err      error
	)

	switch req.Format {
	case FormatKMLStatic:
		artifact, err = f.renderKML(ctx, req)
	case FormatShapefile:
		artifact, err = f.renderShapefile(ctx, req)
	case FormatGeoJSON:
		artifact, err = f.renderGeoJSON(ctx, req)
	case FormatWMSCapabilities:
		artifact, err = f.renderCapabilities(ctx, req, "wms")
	case FormatWFSCapabilities:
		artifact, err = f.renderCapabilities(ctx, req, "wfs")
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("format", string(req.Format)).Str("layer", req.LayerName).Msg("Export assembly failed")
		return NewErrorArtifact(FailureMessage(req.Format)), fmt.Errorf("%w: %v", ErrArtifactAssembly, err)
	}
	return artifact, nil
}

// renderKML fetches a WMS GetMap KML snapshot of the layer. When the
// document embeds marker assets by relative reference, it is bundled into a
// KMZ archive so the download is self-contained.
func (f *Formatter) renderKML(ctx context.Context, req RenderRequest) (Artifact, error) {
	query := url.Values{}
	query.Set("service", "WMS")
	query.Set("version", "1.1.1")
	query.Set("request", "GetMap")
	query.Set("layers", f.workspace+":"+req.LayerName)
	query.Set("styles", "")
	query.Set("srs", "EPSG:4326")
	query.Set("format", "application/vnd.google-earth.kml+xml")
	query.Set("format_options", "mode:download")
	query.Set("width", "1024")
	query.Set("height", "1024")
	query.Set("bbox", kmlBBox(req.Latitude, req.Longitude))

	body, contentType, err := f.geo.GetExport(ctx, f.workspace, "wms", query)
	if err != nil {
		return Artifact{}, fmt.Errorf("kml fetch: %w", err)
	}

	// Some server configurations answer GetMap KML requests with a ready
	// KMZ archive; pass those through unchanged.
	if isZipPayload(body, contentType) {
		return Artifact{
			Filename:  req.FilenameStem + ".kmz",
			Content:   body,
			MediaType: "application/vnd.google-earth.kmz",
		}, nil
	}

	if hasEmbeddedAssets(body) {
		kmz, err := bundleKMZ(body)
		if err != nil {
			return Artifact{}, fmt.Errorf("kmz bundle: %w", err)
		}
		return Artifact{
			Filename:  req.FilenameStem + ".kmz",
			Content:   kmz,
			MediaType: "application/vnd.google-earth.kmz",
		}, nil
	}

	return Artifact{
		Filename:  req.FilenameStem + ".kml",
		Content:   body,
		MediaType: "application/vnd.google-earth.kml+xml",
	}, nil
}

// renderShapefile fetches the layer as a zipped shapefile via WFS.
func (f *Formatter) renderShapefile(ctx context.Context, req RenderRequest) (Artifact, error) {
	query := wfsGetFeatureQuery(f.workspace, req.LayerName, "SHAPE-ZIP")

	body, _, err := f.geo.GetExport(ctx, f.workspace, "wfs", query)
	if err != nil {
		return Artifact{}, fmt.Errorf("shapefile fetch: %w", err)
	}

	return Artifact{
		Filename:  req.FilenameStem + ".zip",
		Content:   body,
		MediaType: "application/zip",
	}, nil
}

// renderGeoJSON fetches the layer as GeoJSON via WFS.
func (f *Formatter) renderGeoJSON(ctx context.Context, req RenderRequest) (Artifact, error) {
	query := wfsGetFeatureQuery(f.workspace, req.LayerName, "application/json")

	body, _, err := f.geo.GetExport(ctx, f.workspace, "wfs", query)
	if err != nil {
		return Artifact{}, fmt.Errorf("geojson fetch: %w", err)
	}

	return Artifact{
		Filename:  req.FilenameStem + ".json",
		Content:   body,
		MediaType: "application/json",
	}, nil
}

// renderCapabilities fetches the workspace-scoped GetCapabilities XML. The
// document is passed through byte-for-byte: rewriting the server's XML would
// only risk corrupting endpoint URLs the client needs verbatim.
func (f *Formatter) renderCapabilities(ctx context.Context, req RenderRequest, ogcService string) (Artifact, error) {
	body, err := f.geo.GetCapabilities(ctx, f.workspace, ogcService)
	if err != nil {
		return Artifact{}, fmt.Errorf("%s capabilities fetch: %w", ogcService, err)
	}

	return Artifact{
		Filename:  req.FilenameStem + ".xml",
		Content:   body,
		MediaType: "application/xml",
	}, nil
}

// wfsGetFeatureQuery builds the shared WFS GetFeature parameter set.
func wfsGetFeatureQuery(workspace, layerName, outputFormat string) url.Values {
	query := url.Values{}
	query.Set("service", "WFS")
	query.Set("version", "1.0.0")
	query.Set("request", "GetFeature")
	query.Set("typeName", workspace+":"+layerName)
	query.Set("outputFormat", outputFormat)
	return query
}

// kmlBBox returns the GetMap bounding box: the continental-US default, or a
// fixed-span box recentered on the caller's coordinate when both are given.
func kmlBBox(latitude, longitude *float64) string {
	minX, minY := defaultLatLonBounds.MinX, defaultLatLonBounds.MinY
	maxX, maxY := defaultLatLonBounds.MaxX, defaultLatLonBounds.MaxY

	if latitude != nil && longitude != nil {
		minX = *longitude - kmlCenterHalfSpan
		maxX = *longitude + kmlCenterHalfSpan
		minY = *latitude - kmlCenterHalfSpan
		maxY = *latitude + kmlCenterHalfSpan
	}

	return strings.Join([]string{
		formatCoord(minX),
		formatCoord(minY),
		formatCoord(maxX),
		formatCoord(maxY),
	}, ",")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// isZipPayload reports whether the export body is already a zip archive,
// either by declared content type or by the PK magic bytes.
func isZipPayload(body []byte, contentType string) bool {
	if strings.Contains(contentType, "kmz") || strings.Contains(contentType, "application/zip") {
		return true
	}
	return len(body) >= 2 && body[0] == 'P' && body[1] == 'K'
}

// hasEmbeddedAssets reports whether a KML document references marker assets
// by relative path. Absolute http(s) references stay resolvable from a bare
// .kml file; relative ones only resolve inside a KMZ archive.
func hasEmbeddedAssets(kml []byte) bool {
	doc := string(kml)
	for {
		start := strings.Index(doc, "<href>")
		if start < 0 {
			return false
		}
		doc = doc[start+len("<href>"):]
		end := strings.Index(doc, "</href>")
		if end < 0 {
			return false
		}
		href := strings.TrimSpace(doc[:end])
		if href != "" && !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return true
		}
		doc = doc[end:]
	}
}

// bundleKMZ wraps a KML document into a KMZ archive with the canonical
// doc.kml entry name.
func bundleKMZ(kml []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entry, err := zw.Create("doc.kml")
	if err != nil {
		return nil, fmt.Errorf("create doc.kml entry: %w", err)
	}
	if _, err := entry.Write(kml); err != nil {
		return nil, fmt.Errorf("write doc.kml entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
