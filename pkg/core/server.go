/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package core assembles the sensorlink server: durable store, telemetry
// ingestor, command queue, session collaborator, reclamation reaper, and the
// HTTP gateway.
package core

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/sensorlink/pkg/commands"
	"github.com/carverauto/sensorlink/pkg/config"
	"github.com/carverauto/sensorlink/pkg/core/api"
	"github.com/carverauto/sensorlink/pkg/core/auth"
	"github.com/carverauto/sensorlink/pkg/db"
	"github.com/carverauto/sensorlink/pkg/logger"
	"github.com/carverauto/sensorlink/pkg/models"
	"github.com/carverauto/sensorlink/pkg/telemetry"
)

// Server is the assembled core service.
type Server struct {
	config    *models.CoreConfig
	db        db.Service
	telemetry *telemetry.Ingestor
	commands  *commands.Manager
	auth      *auth.Auth
	reaper    *commands.Reaper
	api       *api.APIServer
	logger    logger.Logger
}

// NewServer wires all components against one store connection.
func NewServer(ctx context.Context, cfg *models.CoreConfig, log logger.Logger) (*Server, error) {
	database, err := db.New(ctx, &cfg.Database, log)
	if err != nil {
		return nil, err
	}

	ingestor := telemetry.NewIngestor(database, cfg.OfflineThreshold(), log)
	manager := commands.NewManager(database, cfg.Reclaim.AckGrace(), cfg.Reclaim.PendingTimeout(), log)
	sessions := auth.New(database, &cfg.Auth, log)
	reaper := commands.NewReaper(manager, cfg.Reclaim.Interval(), log)

	apiServer := api.NewAPIServer(cfg.CORS,
		api.WithTelemetryService(ingestor),
		api.WithCommandService(manager),
		api.WithSessionService(sessions),
		api.WithLogger(log),
	)

	return &Server{
		config:    cfg,
		db:        database,
		telemetry: ingestor,
		commands:  manager,
		auth:      sessions,
		reaper:    reaper,
		api:       apiServer,
		logger:    log,
	}, nil
}

// Run serves until the context is canceled, then releases the store.
func (s *Server) Run(ctx context.Context) error {
	defer s.db.Close()

	go s.reaper.Start(ctx)
	go s.sweepSessions(ctx)

	s.logger.Info().
		Str("listen_addr", s.config.ListenAddr).
		Int("offline_threshold_seconds", s.config.OfflineThresholdSeconds).
		Msg("sensorlink core starting")

	return s.api.Start(ctx, s.config.ListenAddr)
}

// sweepSessions deletes expired sessions on the reclamation cadence so the
// sessions table does not grow unbounded.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(s.config.Reclaim.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.auth.SweepExpired(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Failed to sweep expired sessions")
			}
		}
	}
}

// Run loads configuration, builds the server, and serves until SIGINT or
// SIGTERM.
func Run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadCoreConfig(ctx, configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := NewServer(ctx, cfg, log)
	if err != nil {
		return err
	}

	return server.Run(ctx)
}
