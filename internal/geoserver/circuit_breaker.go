// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package geoserver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/geocollab/internal/logging"
	"github.com/tomtom215/geocollab/internal/metrics"
)

// CircuitBreakerClient wraps Client with the circuit breaker pattern to
// prevent cascading failures when the geo server is unavailable or slow.
//
// DETERMINISM NOTE: The circuit breaker uses real time (via sony/gobreaker)
// for its interval and timeout calculations. Tests should mock the wrapped
// client rather than the breaker.
type CircuitBreakerClient struct {
	client ClientInterface
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// Ensure CircuitBreakerClient implements ClientInterface.
var _ ClientInterface = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient wraps a geo server client with a circuit breaker.
// Configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerClient(client ClientInterface) *CircuitBreakerClient {
	cbName := "geoserver"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false // Need statistical significance before tripping
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening geoserver circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] Geoserver state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps a geo server call with circuit breaker protection.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Geoserver request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// layerResult pairs the probe descriptor with the found flag so both pass
// through the breaker's single result value.
type layerResult struct {
	layer Layer
	found bool
}

// GetLayer probes the registry through the breaker.
func (cbc *CircuitBreakerClient) GetLayer(ctx context.Context, name, mimeType string) (Layer, bool, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		layer, found, err := cbc.client.GetLayer(ctx, name, mimeType)
		if err != nil {
			return nil, err
		}
		return layerResult{layer: layer, found: found}, nil
	})
	if err != nil {
		return Layer{}, false, err
	}

	typed, ok := result.(layerResult)
	if !ok {
		return Layer{}, false, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed.layer, typed.found, nil
}

// AddFeatureTypeFromSQL registers a feature type through the breaker.
func (cbc *CircuitBreakerClient) AddFeatureTypeFromSQL(ctx context.Context, workspace, store, name, srs, sql, geomColumn, geomType string, srid int) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.AddFeatureTypeFromSQL(ctx, workspace, store, name, srs, sql, geomColumn, geomType, srid)
	})
	return err
}

// SetLayerStyle assigns the layer style through the breaker.
func (cbc *CircuitBreakerClient) SetLayerStyle(ctx context.Context, layerName, style string) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.SetLayerStyle(ctx, layerName, style)
	})
	return err
}

// SetFeatureTypeBounds sets bounding boxes through the breaker.
func (cbc *CircuitBreakerClient) SetFeatureTypeBounds(ctx context.Context, workspace, store, name string, native, latLon Bounds) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.SetFeatureTypeBounds(ctx, workspace, store, name, native, latLon)
	})
	return err
}

// SetFeatureTypeEnabled toggles the feature type through the breaker.
func (cbc *CircuitBreakerClient) SetFeatureTypeEnabled(ctx context.Context, workspace, store, name string, enabled bool) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.SetFeatureTypeEnabled(ctx, workspace, store, name, enabled)
	})
	return err
}

// SetLayerEnabled toggles the layer through the breaker.
func (cbc *CircuitBreakerClient) SetLayerEnabled(ctx context.Context, layerName string, enabled bool) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.SetLayerEnabled(ctx, layerName, enabled)
	})
	return err
}

// DeleteFeatureType removes a feature type through the breaker.
func (cbc *CircuitBreakerClient) DeleteFeatureType(ctx context.Context, workspace, store, name string) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.DeleteFeatureType(ctx, workspace, store, name)
	})
	return err
}

// exportResult pairs the export body with its content type.
type exportResult struct {
	body        []byte
	contentType string
}

// GetExport fetches an OGC export document through the breaker.
func (cbc *CircuitBreakerClient) GetExport(ctx context.Context, workspace, ogcService string, query url.Values) ([]byte, string, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		body, contentType, err := cbc.client.GetExport(ctx, workspace, ogcService, query)
		if err != nil {
			return nil, err
		}
		return exportResult{body: body, contentType: contentType}, nil
	})
	if err != nil {
		return nil, "", err
	}

	typed, ok := result.(exportResult)
	if !ok {
		return nil, "", fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed.body, typed.contentType, nil
}

// GetCapabilities fetches a capabilities document through the breaker.
func (cbc *CircuitBreakerClient) GetCapabilities(ctx context.Context, workspace, ogcService string) ([]byte, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.GetCapabilities(ctx, workspace, ogcService)
	})
	if err != nil {
		return nil, err
	}

	typed, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// stateToString converts a gobreaker state to a metric label.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// stateToFloat converts a gobreaker state to a gauge value.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
