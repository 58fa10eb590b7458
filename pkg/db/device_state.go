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

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/sensorlink/pkg/models"
)

// UpsertDeviceState atomically replaces the telemetry snapshot for a device.
// All three readings and the timestamp are overwritten in one statement, so a
// concurrent reader never sees a partially updated row.
func (db *DB) UpsertDeviceState(ctx context.Context, state *models.DeviceState) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO device_state (device_id, temperature1, temperature2, temperature3, status, last_update, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (device_id) DO UPDATE SET
			temperature1 = EXCLUDED.temperature1,
			temperature2 = EXCLUDED.temperature2,
			temperature3 = EXCLUDED.temperature3,
			status       = EXCLUDED.status,
			last_update  = EXCLUDED.last_update,
			updated_at   = EXCLUDED.updated_at`,
		state.DeviceID, state.Temperature1, state.Temperature2, state.Temperature3,
		state.Status, state.LastUpdate)
	if err != nil {
		return fmt.Errorf("%w: upsert device state: %w", ErrFailedToInsert, err)
	}

	return nil
}

// GetDeviceState returns the latest snapshot, or ErrNotFound if the device
// has never reported.
func (db *DB) GetDeviceState(ctx context.Context, deviceID string) (*models.DeviceState, error) {
	var state models.DeviceState

	err := db.pool.QueryRow(ctx,
		`SELECT device_id, temperature1, temperature2, temperature3, status, last_update, updated_at
		 FROM device_state
		 WHERE device_id = $1`,
		deviceID).Scan(&state.DeviceID, &state.Temperature1, &state.Temperature2,
		&state.Temperature3, &state.Status, &state.LastUpdate, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: get device state: %w", ErrFailedToQuery, err)
	}

	return &state, nil
}
