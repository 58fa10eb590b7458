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

// Package api provides the HTTP gateway for sensorlink. It mediates two
// trust domains: the device-facing surface, authenticated implicitly by
// possession of the device identifier, and the issuer-facing surface, which
// requires a session bound to a specific device.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/sensorlink/pkg/httpx"
	"github.com/carverauto/sensorlink/pkg/logger"
	"github.com/carverauto/sensorlink/pkg/models"
)

// APIServer is the HTTP boundary of the core.
type APIServer struct {
	router     *mux.Router
	httpServer *http.Server
	corsConfig models.CORSConfig
	telemetry  TelemetryService
	commands   CommandService
	auth       SessionService
	logger     logger.Logger
}

// NewAPIServer creates a new API server instance with the given configuration.
func NewAPIServer(corsConfig models.CORSConfig, options ...func(*APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: corsConfig,
		logger:     logger.NewTestLogger(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithTelemetryService sets the telemetry ingestor for the API server.
func WithTelemetryService(t TelemetryService) func(*APIServer) {
	return func(server *APIServer) {
		server.telemetry = t
	}
}

// WithCommandService sets the command queue manager for the API server.
func WithCommandService(c CommandService) func(*APIServer) {
	return func(server *APIServer) {
		server.commands = c
	}
}

// WithSessionService sets the session collaborator for the API server.
func WithSessionService(a SessionService) func(*APIServer) {
	return func(server *APIServer) {
		server.auth = a
	}
}

// WithLogger sets the logger for the API server.
func WithLogger(log logger.Logger) func(*APIServer) {
	return func(server *APIServer) {
		server.logger = log
	}
}

// Router exposes the handler tree, used by tests and by Start.
func (s *APIServer) Router() http.Handler {
	return s.router
}

func (s *APIServer) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return httpx.CommonMiddleware(next, s.corsConfig, s.logger)
	})

	// Device-facing surface: no session, authenticated implicitly by
	// possession of the device identifier. The device cannot be made to
	// authenticate before its first report.
	device := s.router.PathPrefix("/api/esp32").Subrouter()
	device.HandleFunc("/report", s.handleTelemetryReport).Methods(http.MethodPost)
	device.HandleFunc("/commands/{deviceId}", s.handleFetchCommands).Methods(http.MethodGet)
	device.HandleFunc("/commands/ack", s.handleAckCommand).Methods(http.MethodPost)

	// Issuer-facing auth surface.
	s.router.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	s.router.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	s.router.HandleFunc("/api/auth/logout", s.handleLogout).Methods(http.MethodPost)

	// Issuer-facing protected surface, scoped to the session's device.
	protected := s.router.PathPrefix("/api").Subrouter()
	protected.Use(s.sessionMiddleware)
	protected.HandleFunc("/device/state", s.handleDeviceState).Methods(http.MethodGet)
	protected.HandleFunc("/commands/power-on", s.handlePowerOn).Methods(http.MethodPost)
	protected.HandleFunc("/commands/power-off", s.handlePowerOff).Methods(http.MethodPost)
	protected.HandleFunc("/commands/servo", s.handleServo).Methods(http.MethodPost)
	protected.HandleFunc("/commands/status/{id}", s.handleCommandStatus).Methods(http.MethodGet)
}

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Start serves the API until the context is canceled, then shuts down
// gracefully.
func (s *APIServer) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *APIServer) encodeJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
