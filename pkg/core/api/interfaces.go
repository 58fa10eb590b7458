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

//go:generate mockgen -destination=mock_server.go -package=api github.com/carverauto/sensorlink/pkg/core/api TelemetryService,CommandService,SessionService

import (
	"context"

	"github.com/carverauto/sensorlink/pkg/models"
)

// TelemetryService ingests device reports and serves snapshots with a
// recomputed reachability status.
type TelemetryService interface {
	Report(ctx context.Context, deviceID string, t1, t2, t3 *float64) error
	State(ctx context.Context, deviceID string) (*models.DeviceState, error)
	Online(ctx context.Context, deviceID string) (bool, error)
}

// CommandService is the command queue surface the gateway mediates.
type CommandService interface {
	Enqueue(ctx context.Context, deviceID string, kind models.CommandType, value *float64) (*models.Command, error)
	FetchPending(ctx context.Context, deviceID string) ([]models.PendingCommand, error)
	Acknowledge(ctx context.Context, deviceID string, commandID int64, status string) error
	Status(ctx context.Context, deviceID string, commandID int64) (*models.Command, error)
}

// SessionService is the session collaborator: it resolves bearer credentials
// to an authenticated identity bound to one device.
type SessionService interface {
	Register(ctx context.Context, username, password, deviceID string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
	Verify(ctx context.Context, token string) (*models.AuthIdentity, error)
	Logout(ctx context.Context, token string) error
}
