// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

// Package main is the entry point for the Geocollab export server.
//
// Geocollab serves datalayer exports for incident response collaboration
// rooms: room features held in PostgreSQL are lazily materialized as layers
// on an external geo server and exported as KML/KMZ, zipped shapefiles,
// GeoJSON, or OGC capabilities documents.
//
// Startup order:
//
//  1. Configuration (koanf: env > yaml > defaults)
//  2. Logging (zerolog)
//  3. PostgreSQL pool (pgx)
//  4. Geo server client behind a circuit breaker
//  5. Export event publisher over NATS (optional)
//  6. HTTP router (chi) and the export pipeline
//  7. Supervisor tree (suture) with signal-driven shutdown
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/geocollab/internal/api"
	"github.com/tomtom215/geocollab/internal/auth"
	"github.com/tomtom215/geocollab/internal/config"
	"github.com/tomtom215/geocollab/internal/database"
	"github.com/tomtom215/geocollab/internal/events"
	"github.com/tomtom215/geocollab/internal/export"
	"github.com/tomtom215/geocollab/internal/geoserver"
	"github.com/tomtom215/geocollab/internal/logging"
	"github.com/tomtom215/geocollab/internal/supervisor"
	"github.com/tomtom215/geocollab/internal/supervisor/services"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().Str("version", version).Msg("Starting geocollab")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	geo := geoserver.NewCircuitBreakerClient(geoserver.NewClient(&cfg.GeoServer))

	tree := supervisor.NewTree(
		slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout},
	)

	var publisher export.EventPublisher
	if cfg.NATS.Enabled {
		natsPub, err := events.NewPublisher(&cfg.NATS)
		if err != nil {
			return fmt.Errorf("connect event publisher: %w", err)
		}
		publisher = natsPub
		tree.AddMessagingService(services.NewPublisherService(natsPub))
		logging.Info().Str("topic", cfg.NATS.Topic).Msg("Export event publishing enabled")
	}

	exportService := export.NewService(
		export.NewAccessGate(db, cfg.Export.IncidentMapName),
		export.NewMaterializer(geo, &cfg.GeoServer),
		export.NewCollector(db, cfg.Export.FilenamePrefix),
		export.NewFormatter(geo, cfg.GeoServer.Workspace),
		publisher,
	)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("configure session tokens: %w", err)
	}

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Security.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Security.RateLimitWindow

	handler := api.NewHandler(exportService, db, db, version)
	router := api.NewRouter(handler, mwConfig, jwtManager)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("HTTP server starting")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}
