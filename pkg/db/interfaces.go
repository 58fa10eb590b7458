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

//go:generate mockgen -destination=mock_db.go -package=db github.com/carverauto/sensorlink/pkg/db Service

package db

import (
	"context"
	"time"

	"github.com/carverauto/sensorlink/pkg/models"
)

// Service is the durable store behind the telemetry ingestor, the command
// queue, and the session collaborator. All state lives here; no in-memory
// mutable shared state exists elsewhere.
type Service interface {
	// Devices.

	EnsureDevice(ctx context.Context, deviceID, name string) error
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)

	// Telemetry snapshots. UpsertDeviceState must be a single atomic
	// insert-or-update so concurrent reads never observe a partial row.

	UpsertDeviceState(ctx context.Context, state *models.DeviceState) error
	GetDeviceState(ctx context.Context, deviceID string) (*models.DeviceState, error)

	// Command queue. Ordering comes from the store-assigned serial id.

	InsertCommand(ctx context.Context, deviceID string, kind models.CommandType, value *float64) (*models.Command, error)
	GetPendingCommands(ctx context.Context, deviceID string) ([]models.PendingCommand, error)
	GetCommand(ctx context.Context, deviceID string, commandID int64) (*models.Command, error)
	AcknowledgeCommand(ctx context.Context, deviceID string, commandID int64, ackedAt time.Time) (bool, error)
	DeleteAcknowledgedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Users and sessions.

	CreateUser(ctx context.Context, username, passwordHash, deviceID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	TouchSession(ctx context.Context, token string, usedAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	Close()
}
