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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/carverauto/sensorlink/pkg/commands"
	"github.com/carverauto/sensorlink/pkg/core/auth"
	"github.com/carverauto/sensorlink/pkg/models"
	"github.com/carverauto/sensorlink/pkg/telemetry"
)

type contextKey int

const identityKey contextKey = iota

func identityFromContext(ctx context.Context) *models.AuthIdentity {
	identity, _ := ctx.Value(identityKey).(*models.AuthIdentity)
	return identity
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}

// sessionMiddleware resolves the bearer token to an identity and rejects the
// request when the session is missing, invalid, or expired.
func (s *APIServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.auth.Verify(r.Context(), bearerToken(r))
		if errors.Is(err, auth.ErrSessionInvalid) {
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if err != nil {
			s.logger.Error().Err(err).Msg("session verification failed")
			writeError(w, "Internal server error", http.StatusInternalServerError)

			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

// RegisterRequest creates an account bound to one device.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

// LoginRequest carries issuer credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ServoRequest carries the servo position for a set-servo command. Value is
// a pointer so an absent field reads as nil and fails validation instead of
// silently becoming position zero.
type ServoRequest struct {
	Value *float64 `json:"value"`
}

// CommandResponse wraps a newly enqueued command.
type CommandResponse struct {
	Success bool            `json:"success"`
	Command *models.Command `json:"command"`
}

func (s *APIServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.auth.Register(r.Context(), req.Username, req.Password, req.DeviceID)

	switch {
	case errors.Is(err, auth.ErrUsernameRequired), errors.Is(err, auth.ErrDeviceIDRequired):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrUserExists):
		writeError(w, err.Error(), http.StatusConflict)
	case err != nil:
		s.logger.Error().Err(err).Msg("registration failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	default:
		s.encodeJSONResponse(w, http.StatusCreated, user)
	}
}

func (s *APIServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := s.auth.Login(r.Context(), req.Username, req.Password)

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, err.Error(), http.StatusUnauthorized)
	case err != nil:
		s.logger.Error().Err(err).Msg("login failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	default:
		s.encodeJSONResponse(w, http.StatusOK, resp)
	}
}

func (s *APIServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := s.auth.Logout(r.Context(), bearerToken(r))

	switch {
	case errors.Is(err, auth.ErrSessionInvalid):
		writeError(w, "Unauthorized", http.StatusUnauthorized)
	case err != nil:
		s.logger.Error().Err(err).Msg("logout failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	default:
		s.encodeJSONResponse(w, http.StatusOK, successResponse{Success: true})
	}
}

func (s *APIServer) handleDeviceState(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	state, err := s.telemetry.State(r.Context(), identity.DeviceID)

	switch {
	case errors.Is(err, telemetry.ErrDeviceNotFound):
		writeError(w, "Device has never reported", http.StatusNotFound)
	case err != nil:
		s.logger.Error().Err(err).Str("device_id", identity.DeviceID).Msg("device state read failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	default:
		s.encodeJSONResponse(w, http.StatusOK, state)
	}
}

func (s *APIServer) handlePowerOn(w http.ResponseWriter, r *http.Request) {
	s.issueCommand(w, r, models.CommandPowerOn, nil)
}

func (s *APIServer) handlePowerOff(w http.ResponseWriter, r *http.Request) {
	s.issueCommand(w, r, models.CommandPowerOff, nil)
}

func (s *APIServer) handleServo(w http.ResponseWriter, r *http.Request) {
	var req ServoRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.issueCommand(w, r, models.CommandServo, req.Value)
}

// issueCommand is the gateway's issuer-side enqueue path: the target device
// must classify online at the moment of issue, otherwise the command is
// rejected before any row is inserted. The caller re-checks and retries
// manually; the server never queues for an unreachable device.
func (s *APIServer) issueCommand(w http.ResponseWriter, r *http.Request, kind models.CommandType, value *float64) {
	identity := identityFromContext(r.Context())

	online, err := s.telemetry.Online(r.Context(), identity.DeviceID)
	if err != nil {
		s.logger.Error().Err(err).Str("device_id", identity.DeviceID).Msg("liveness check failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	if !online {
		writeError(w, "Device is offline", http.StatusConflict)
		return
	}

	cmd, err := s.commands.Enqueue(r.Context(), identity.DeviceID, kind, value)

	switch {
	case errors.Is(err, models.ErrInvalidCommandType),
		errors.Is(err, models.ErrServoValueRequired),
		errors.Is(err, models.ErrServoValueRange),
		errors.Is(err, models.ErrValueNotAllowed):
		writeError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		s.logger.Error().Err(err).Str("device_id", identity.DeviceID).Msg("enqueue failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	default:
		s.encodeJSONResponse(w, http.StatusCreated, CommandResponse{Success: true, Command: cmd})
	}
}

func (s *APIServer) handleCommandStatus(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	commandID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, "Invalid command id", http.StatusBadRequest)
		return
	}

	cmd, err := s.commands.Status(r.Context(), identity.DeviceID, commandID)

	switch {
	case errors.Is(err, commands.ErrCommandNotFound):
		writeError(w, "Command not found", http.StatusNotFound)
	case err != nil:
		s.logger.Error().Err(err).Int64("command_id", commandID).Msg("command status read failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	default:
		s.encodeJSONResponse(w, http.StatusOK, cmd)
	}
}
