// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

/*
client.go - Geo server REST API client

This file implements a REST client for the external geo server (map server)
that hosts collabroom layers. It covers the layer registry (probe), feature
type provisioning from SQL views, layer configuration, and OGC export
fetches (WMS GetMap, WFS GetFeature, GetCapabilities).
*/

package geoserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geocollab/internal/config"
	"github.com/tomtom215/geocollab/internal/metrics"
)

// Bounds is a bounding box in (minx, maxx, miny, maxy) order, matching the
// geo server's native envelope encoding.
type Bounds struct {
	MinX float64 `json:"minx"`
	MaxX float64 `json:"maxx"`
	MinY float64 `json:"miny"`
	MaxY float64 `json:"maxy"`
}

// Layer describes a registered layer as reported by the registry probe.
type Layer struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	DefaultStyle string `json:"defaultStyle"`
	Enabled      bool   `json:"enabled"`
}

// ClientInterface defines the geo server operations the export pipeline
// uses. Both Client and CircuitBreakerClient implement this interface.
type ClientInterface interface {
	// GetLayer probes the layer registry by name. The second return value
	// is false when the registry reports no such layer; transport and
	// server errors are returned as errors, never as "absent".
	GetLayer(ctx context.Context, name, mimeType string) (Layer, bool, error)

	// AddFeatureTypeFromSQL registers a feature type backed by a SQL view.
	AddFeatureTypeFromSQL(ctx context.Context, workspace, store, name, srs, sql, geomColumn, geomType string, srid int) error

	// SetLayerStyle assigns the default style of a layer.
	SetLayerStyle(ctx context.Context, layerName, style string) error

	// SetFeatureTypeBounds sets the native and lat/lon bounding boxes.
	SetFeatureTypeBounds(ctx context.Context, workspace, store, name string, native, latLon Bounds) error

	// SetFeatureTypeEnabled toggles the feature type.
	SetFeatureTypeEnabled(ctx context.Context, workspace, store, name string, enabled bool) error

	// SetLayerEnabled toggles the layer.
	SetLayerEnabled(ctx context.Context, layerName string, enabled bool) error

	// DeleteFeatureType removes a feature type and its backing resources.
	// Used as best-effort compensation for partial provisioning.
	DeleteFeatureType(ctx context.Context, workspace, store, name string) error

	// GetExport fetches an OGC export document (WMS GetMap or WFS
	// GetFeature output) for the given query parameters. Returns the body
	// and the response content type.
	GetExport(ctx context.Context, workspace, ogcService string, query url.Values) ([]byte, string, error)

	// GetCapabilities fetches the WMS or WFS GetCapabilities document
	// scoped to the workspace.
	GetCapabilities(ctx context.Context, workspace, ogcService string) ([]byte, error)
}

// Ensure Client implements ClientInterface.
var _ ClientInterface = (*Client)(nil)

// Client provides access to the geo server REST and OGC endpoints.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a geo server client from configuration.
// The base URL is normalized (trailing slash removed) and the per-request
// timeout is applied to the underlying HTTP client; cancellation beyond
// that is the caller's responsibility via context.
func NewClient(cfg *config.GeoServerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimSuffix(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetLayer probes the layer registry by name.
func (c *Client) GetLayer(ctx context.Context, name, mimeType string) (Layer, bool, error) {
	endpoint := fmt.Sprintf("/rest/layers/%s.json", url.PathEscape(name))

	start := time.Now()
	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, mimeType, nil)
	if err != nil {
		metrics.GeoServerRequestErrors.WithLabelValues("get_layer").Inc()
		return Layer{}, false, fmt.Errorf("layer probe request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.GeoServerRequestDuration.WithLabelValues("get_layer").Observe(time.Since(start).Seconds())

	// The registry answers 404 for an unknown layer; this is the "no such
	// layer" sentinel, not an error.
	if resp.StatusCode == http.StatusNotFound {
		return Layer{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Layer{}, false, statusError("layer probe", resp)
	}

	var payload struct {
		Layer struct {
			Name         string `json:"name"`
			Type         string `json:"type"`
			DefaultStyle struct {
				Name string `json:"name"`
			} `json:"defaultStyle"`
			Enabled bool `json:"enabled"`
		} `json:"layer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Layer{}, false, fmt.Errorf("failed to decode layer %q: %w", name, err)
	}

	return Layer{
		Name:         payload.Layer.Name,
		Type:         payload.Layer.Type,
		DefaultStyle: payload.Layer.DefaultStyle.Name,
		Enabled:      payload.Layer.Enabled,
	}, true, nil
}

// AddFeatureTypeFromSQL registers a feature type backed by a SQL view.
func (c *Client) AddFeatureTypeFromSQL(ctx context.Context, workspace, store, name, srs, sql, geomColumn, geomType string, srid int) error {
	endpoint := fmt.Sprintf("/rest/workspaces/%s/datastores/%s/featuretypes",
		url.PathEscape(workspace), url.PathEscape(store))

	payload := map[string]interface{}{
		"featureType": map[string]interface{}{
			"name":       name,
			"nativeName": name,
			"title":      name,
			"srs":        srs,
			"enabled":    false, // Enabled separately after bounds and style are set
			"metadata": map[string]interface{}{
				"entry": []map[string]interface{}{
					{
						"@key": "JDBC_VIRTUAL_TABLE",
						"virtualTable": map[string]interface{}{
							"name":      name,
							"sql":       sql,
							"escapeSql": false,
							"geometry": map[string]interface{}{
								"name": geomColumn,
								"type": geomType,
								"srid": srid,
							},
						},
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal feature type %q: %w", name, err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, endpoint, "", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("feature type create request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return statusError("feature type create", resp)
	}
	return nil
}

// SetLayerStyle assigns the default style of a layer.
func (c *Client) SetLayerStyle(ctx context.Context, layerName, style string) error {
	endpoint := fmt.Sprintf("/rest/layers/%s.json", url.PathEscape(layerName))

	payload := map[string]interface{}{
		"layer": map[string]interface{}{
			"defaultStyle": map[string]interface{}{"name": style},
		},
	}
	return c.putJSON(ctx, "set_layer_style", endpoint, payload)
}

// SetFeatureTypeBounds sets the native and lat/lon bounding boxes.
func (c *Client) SetFeatureTypeBounds(ctx context.Context, workspace, store, name string, native, latLon Bounds) error {
	endpoint := c.featureTypeEndpoint(workspace, store, name)

	payload := map[string]interface{}{
		"featureType": map[string]interface{}{
			"name": name,
			"nativeBoundingBox": map[string]interface{}{
				"minx": native.MinX,
				"maxx": native.MaxX,
				"miny": native.MinY,
				"maxy": native.MaxY,
			},
			"latLonBoundingBox": map[string]interface{}{
				"minx": latLon.MinX,
				"maxx": latLon.MaxX,
				"miny": latLon.MinY,
				"maxy": latLon.MaxY,
			},
		},
	}
	return c.putJSON(ctx, "set_feature_type_bounds", endpoint, payload)
}

// SetFeatureTypeEnabled toggles the feature type.
func (c *Client) SetFeatureTypeEnabled(ctx context.Context, workspace, store, name string, enabled bool) error {
	endpoint := c.featureTypeEndpoint(workspace, store, name)

	payload := map[string]interface{}{
		"featureType": map[string]interface{}{
			"name":    name,
			"enabled": enabled,
		},
	}
	return c.putJSON(ctx, "set_feature_type_enabled", endpoint, payload)
}

// SetLayerEnabled toggles the layer.
func (c *Client) SetLayerEnabled(ctx context.Context, layerName string, enabled bool) error {
	endpoint := fmt.Sprintf("/rest/layers/%s.json", url.PathEscape(layerName))

	payload := map[string]interface{}{
		"layer": map[string]interface{}{
			"enabled": enabled,
		},
	}
	return c.putJSON(ctx, "set_layer_enabled", endpoint, payload)
}

// DeleteFeatureType removes a feature type and its dependent layer.
func (c *Client) DeleteFeatureType(ctx context.Context, workspace, store, name string) error {
	endpoint := c.featureTypeEndpoint(workspace, store, name) + "?recurse=true"

	resp, err := c.doRequest(ctx, http.MethodDelete, endpoint, "", nil)
	if err != nil {
		return fmt.Errorf("feature type delete request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return statusError("feature type delete", resp)
	}
	return nil
}

// GetExport fetches an OGC export document for the given query parameters.
func (c *Client) GetExport(ctx context.Context, workspace, ogcService string, query url.Values) ([]byte, string, error) {
	endpoint := fmt.Sprintf("/%s/%s?%s", url.PathEscape(workspace), ogcService, query.Encode())

	start := time.Now()
	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		metrics.GeoServerRequestErrors.WithLabelValues("export").Inc()
		return nil, "", fmt.Errorf("export request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.GeoServerRequestDuration.WithLabelValues("export").Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.GeoServerRequestErrors.WithLabelValues("export").Inc()
		return nil, "", statusError("export", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read export body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// GetCapabilities fetches a GetCapabilities document scoped to the workspace.
func (c *Client) GetCapabilities(ctx context.Context, workspace, ogcService string) ([]byte, error) {
	query := url.Values{}
	query.Set("service", strings.ToUpper(ogcService))
	query.Set("request", "GetCapabilities")

	body, _, err := c.GetExport(ctx, workspace, ogcService, query)
	if err != nil {
		return nil, fmt.Errorf("capabilities request failed: %w", err)
	}
	return body, nil
}

// featureTypeEndpoint builds the REST path for a feature type resource.
func (c *Client) featureTypeEndpoint(workspace, store, name string) string {
	return fmt.Sprintf("/rest/workspaces/%s/datastores/%s/featuretypes/%s.json",
		url.PathEscape(workspace), url.PathEscape(store), url.PathEscape(name))
}

// putJSON marshals payload and PUTs it to endpoint, recording metrics under
// the given operation label.
func (c *Client) putJSON(ctx context.Context, operation, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", operation, err)
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, http.MethodPut, endpoint, "", bytes.NewReader(body))
	if err != nil {
		metrics.GeoServerRequestErrors.WithLabelValues(operation).Inc()
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.GeoServerRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.GeoServerRequestErrors.WithLabelValues(operation).Inc()
		return statusError(operation, resp)
	}
	return nil
}

// doRequest builds and executes a request against the geo server with
// basic auth and JSON content negotiation.
func (c *Client) doRequest(ctx context.Context, method, endpoint, accept string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)

	return c.httpClient.Do(req)
}

// statusError reads the response body into an error message for a
// non-success status.
func statusError(operation string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body)", operation, resp.StatusCode)
	}
	return fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(body)))
}
