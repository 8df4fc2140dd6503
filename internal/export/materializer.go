// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package export

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/tomtom215/geocollab/internal/config"
	"github.com/tomtom215/geocollab/internal/geoserver"
	"github.com/tomtom215/geocollab/internal/logging"
	"github.com/tomtom215/geocollab/internal/metrics"
)

// Fixed spatial reference for every collabroom layer: Web Mercator.
const (
	layerSRID = 3857
	layerSRS  = "EPSG:3857"

	// geometryColumn is the geometry column of the generated SQL view.
	geometryColumn = "the_geom"
)

// Continental-US default bounding boxes applied to every provisioned layer,
// in (minx, maxx, miny, maxy) order.
var (
	defaultNativeBounds = geoserver.Bounds{
		MinX: -14084454.868,
		MaxX: -6624200.909,
		MinY: 1593579.354,
		MaxY: 6338790.069,
	}

	defaultLatLonBounds = geoserver.Bounds{
		MinX: -126.523,
		MaxX: -59.506,
		MinY: 14.169,
		MaxY: 49.375,
	}
)

// Materializer lazily provisions collabroom layers on the geo server.
//
// State machine per call: Unknown -> Probed -> {Existing | Provisioning ->
// Provisioned | ProvisionFailed}. The probe distinguishes the registry's
// "no such layer" sentinel from transport errors, so an unreachable geo
// server never triggers a spurious provisioning attempt.
//
// A per-layer-name mutex is held across probe and provisioning, so two
// concurrent requests for the same layer cannot both observe "absent" and
// both provision. Requests for different layers proceed independently.
type Materializer struct {
	geo       geoserver.ClientInterface
	workspace string
	dataStore string
	style     string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMaterializer creates a layer materializer using the injected geo server
// client and provisioning configuration.
func NewMaterializer(geo geoserver.ClientInterface, cfg *config.GeoServerConfig) *Materializer {
	return &Materializer{
		geo:       geo,
		workspace: cfg.Workspace,
		dataStore: cfg.DataStore,
		style:     cfg.Style,
		locks:     make(map[string]*sync.Mutex),
	}
}

// EnsureLayer guarantees the named layer exists on the geo server,
// provisioning it from a generated SQL view if the registry reports it
// absent. Returns true when this call performed the provisioning.
//
// The five provisioning calls are not transactional. On a failure after the
// feature type was created, a best-effort compensating delete runs so a
// retry starts from a clean probe; if the compensation itself fails the
// half-provisioned layer is logged and left for the next probe to find.
func (m *Materializer) EnsureLayer(ctx context.Context, layerName string, geometryType GeometryType, collabRoomID int) (bool, error) {
	lock := m.layerLock(layerName)
	lock.Lock()
	defer lock.Unlock()

	_, found, err := m.geo.GetLayer(ctx, layerName, "application/json")
	if err != nil {
		metrics.LayerProvisioning.WithLabelValues("probe_failed").Inc()
		return false, fmt.Errorf("%w: %v", ErrLayerProbe, err)
	}
	if found {
		metrics.LayerProvisioning.WithLabelValues("existing").Inc()
		logging.Ctx(ctx).Debug().Str("layer", layerName).Msg("Layer already materialized")
		return false, nil
	}

	if err := m.provision(ctx, layerName, geometryType, collabRoomID); err != nil {
		metrics.LayerProvisioning.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("%w: %v", ErrLayerProvision, err)
	}

	metrics.LayerProvisioning.WithLabelValues("provisioned").Inc()
	logging.Ctx(ctx).Info().Str("layer", layerName).Int("collab_room", collabRoomID).Msg("Layer materialized")
	return true, nil
}

// provision runs the five ordered provisioning calls: register the feature
// type from the SQL view, set the shared style, set the bounding boxes,
// enable the feature type, enable the layer.
func (m *Materializer) provision(ctx context.Context, layerName string, geometryType GeometryType, collabRoomID int) error {
	sql := buildFeatureSQL(collabRoomID, geometryType)

	if err := m.geo.AddFeatureTypeFromSQL(ctx, m.workspace, m.dataStore, layerName, layerSRS, sql, geometryColumn, "Geometry", layerSRID); err != nil {
		return fmt.Errorf("add feature type: %w", err)
	}

	// The feature type now exists; later failures compensate by deleting it.
	if err := m.geo.SetLayerStyle(ctx, layerName, m.style); err != nil {
		m.compensate(ctx, layerName)
		return fmt.Errorf("set layer style: %w", err)
	}

	if err := m.geo.SetFeatureTypeBounds(ctx, m.workspace, m.dataStore, layerName, defaultNativeBounds, defaultLatLonBounds); err != nil {
		m.compensate(ctx, layerName)
		return fmt.Errorf("set feature type bounds: %w", err)
	}

	if err := m.geo.SetFeatureTypeEnabled(ctx, m.workspace, m.dataStore, layerName, true); err != nil {
		m.compensate(ctx, layerName)
		return fmt.Errorf("enable feature type: %w", err)
	}

	if err := m.geo.SetLayerEnabled(ctx, layerName, true); err != nil {
		m.compensate(ctx, layerName)
		return fmt.Errorf("enable layer: %w", err)
	}

	return nil
}

// compensate removes a partially provisioned feature type so the next probe
// observes a clean "absent". Best-effort: a compensation failure leaves the
// half-provisioned layer in place, which the next probe reports as existing.
func (m *Materializer) compensate(ctx context.Context, layerName string) {
	if err := m.geo.DeleteFeatureType(ctx, m.workspace, m.dataStore, layerName); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("layer", layerName).Msg("Compensating delete failed; layer left partially provisioned")
	}
}

// layerLock returns the mutex owned by layerName, creating it on first use.
// Locks are never removed: the universe of layer names is bounded by the
// set of collabrooms and the four geometry classes.
func (m *Materializer) layerLock(layerName string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[layerName]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[layerName] = lock
	}
	return lock
}

// buildFeatureSQL generates the SQL view backing a collabroom layer: the
// room's features joined through CollabroomFeature, optionally restricted
// to one geometry class.
func buildFeatureSQL(collabRoomID int, geometryType GeometryType) string {
	sql := "SELECT f.* FROM Feature f, CollabroomFeature cf" +
		" WHERE cf.featureId = f.featureId" +
		" AND cf.collabRoomId = " + strconv.Itoa(collabRoomID)

	if predicate := geometryType.featurePredicate(); predicate != "" {
		sql += " AND " + predicate
	}
	return sql
}
