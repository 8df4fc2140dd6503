// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/geocollab/internal/auth"
	"github.com/tomtom215/geocollab/internal/middleware"
)

// Router assembles the HTTP surface.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	jwt           *auth.JWTManager
}

// NewRouter creates a router over the given handler and middleware
// configuration.
func NewRouter(handler *Handler, mwConfig *ChiMiddlewareConfig, jwt *auth.JWTManager) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
		jwt:           jwt,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // Global so OPTIONS preflight always resolves

	// Health endpoints: permissive rate limit for monitoring probes.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Datalayer endpoints require an authenticated session.
	r.Route("/api/v1/datalayer", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.Prometheus)
		r.Use(auth.Authenticate(router.jwt))

		r.Get("/export/{format}/{geometryType}/{userId}/{incidentId}/{collabRoomId}", router.handler.DatalayerExport)
		r.Get("/capabilities/{format}/{userId}/{incidentId}", router.handler.DatalayerCapabilities)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
