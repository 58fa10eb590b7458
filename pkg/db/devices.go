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

// EnsureDevice creates the identity row if it does not exist. Identity fields
// of an existing row are never touched.
func (db *DB) EnsureDevice(ctx context.Context, deviceID, name string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO devices (device_id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (device_id) DO NOTHING`,
		deviceID, name)
	if err != nil {
		return fmt.Errorf("%w: ensure device: %w", ErrFailedToInsert, err)
	}

	return nil
}

// GetDevice looks up a device by its external identifier.
func (db *DB) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	var device models.Device

	err := db.pool.QueryRow(ctx,
		`SELECT id, device_id, name, created_at, updated_at
		 FROM devices
		 WHERE device_id = $1`,
		deviceID).Scan(&device.ID, &device.DeviceID, &device.Name, &device.CreatedAt, &device.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: get device: %w", ErrFailedToQuery, err)
	}

	return &device, nil
}
