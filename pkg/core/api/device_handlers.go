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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carverauto/sensorlink/pkg/commands"
	"github.com/carverauto/sensorlink/pkg/models"
	"github.com/carverauto/sensorlink/pkg/telemetry"
)

// TelemetryReportRequest is what the device firmware posts on each cycle.
// Absent readings and the -999.0 sentinel both mean "sensor fault".
type TelemetryReportRequest struct {
	DeviceID     string   `json:"deviceId"`
	Temperature1 *float64 `json:"temperature1"`
	Temperature2 *float64 `json:"temperature2"`
	Temperature3 *float64 `json:"temperature3"`
}

// AckRequest confirms pickup/execution of one command. Status is an opaque
// device-reported outcome string, recorded for diagnostics only.
type AckRequest struct {
	DeviceID  string `json:"deviceId"`
	CommandID int64  `json:"commandId"`
	Status    string `json:"status"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *APIServer) handleTelemetryReport(w http.ResponseWriter, r *http.Request) {
	var req TelemetryReportRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := s.telemetry.Report(r.Context(), req.DeviceID, req.Temperature1, req.Temperature2, req.Temperature3)

	switch {
	case errors.Is(err, telemetry.ErrDeviceIDRequired), errors.Is(err, telemetry.ErrDeviceIDTooLong):
		writeError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		s.logger.Error().Err(err).Str("device_id", req.DeviceID).Msg("telemetry report failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	default:
		s.encodeJSONResponse(w, http.StatusOK, successResponse{Success: true})
	}
}

func (s *APIServer) handleFetchCommands(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	if deviceID == "" {
		writeError(w, "Device id is required", http.StatusBadRequest)
		return
	}

	pending, err := s.commands.FetchPending(r.Context(), deviceID)
	if err != nil {
		s.logger.Error().Err(err).Str("device_id", deviceID).Msg("fetch pending commands failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	if pending == nil {
		pending = []models.PendingCommand{}
	}

	s.encodeJSONResponse(w, http.StatusOK, pending)
}

func (s *APIServer) handleAckCommand(w http.ResponseWriter, r *http.Request) {
	var req AckRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DeviceID == "" || req.CommandID == 0 {
		writeError(w, "deviceId and commandId are required", http.StatusBadRequest)
		return
	}

	err := s.commands.Acknowledge(r.Context(), req.DeviceID, req.CommandID, req.Status)

	switch {
	case errors.Is(err, commands.ErrCommandNotFound):
		writeError(w, "Command not found", http.StatusNotFound)
	case err != nil:
		s.logger.Error().Err(err).Int64("command_id", req.CommandID).Msg("acknowledge failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	default:
		s.encodeJSONResponse(w, http.StatusOK, successResponse{Success: true})
	}
}
