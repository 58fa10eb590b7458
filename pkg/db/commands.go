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
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/sensorlink/pkg/models"
)

const commandSelection = `
SELECT id, device_id, command_type, command_value, created_at, acknowledged, acknowledged_at
FROM pending_commands`

func scanCommand(row pgx.Row) (*models.Command, error) {
	var cmd models.Command

	err := row.Scan(&cmd.ID, &cmd.DeviceID, &cmd.Type, &cmd.Value,
		&cmd.CreatedAt, &cmd.Acknowledged, &cmd.AcknowledgedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: command: %w", ErrFailedToScan, err)
	}

	return &cmd, nil
}

// InsertCommand appends a command to the queue and returns the stored row.
// The store-assigned serial id is the FIFO ordering key.
func (db *DB) InsertCommand(ctx context.Context, deviceID string, kind models.CommandType, value *float64) (*models.Command, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO pending_commands (device_id, command_type, command_value)
		 VALUES ($1, $2, $3)
		 RETURNING id, device_id, command_type, command_value, created_at, acknowledged, acknowledged_at`,
		deviceID, kind, value)

	cmd, err := scanCommand(row)
	if err != nil {
		return nil, fmt.Errorf("%w: insert command: %w", ErrFailedToInsert, err)
	}

	return cmd, nil
}

// GetPendingCommands returns all unacknowledged commands for a device,
// oldest first.
func (db *DB) GetPendingCommands(ctx context.Context, deviceID string) ([]models.PendingCommand, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, command_type, command_value
		 FROM pending_commands
		 WHERE device_id = $1 AND acknowledged = false
		 ORDER BY created_at ASC, id ASC`,
		deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: pending commands: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var pending []models.PendingCommand

	for rows.Next() {
		var cmd models.PendingCommand

		if err := rows.Scan(&cmd.ID, &cmd.Type, &cmd.Value); err != nil {
			return nil, fmt.Errorf("%w: pending command: %w", ErrFailedToScan, err)
		}

		pending = append(pending, cmd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: pending commands: %w", ErrFailedToQuery, err)
	}

	return pending, nil
}

// GetCommand looks up a command scoped to both id and device id, so one
// device can never observe another device's queue.
func (db *DB) GetCommand(ctx context.Context, deviceID string, commandID int64) (*models.Command, error) {
	row := db.pool.QueryRow(ctx,
		commandSelection+` WHERE id = $1 AND device_id = $2`,
		commandID, deviceID)

	return scanCommand(row)
}

// AcknowledgeCommand performs the single allowed mutation of a command. The
// conditional update makes concurrent acks for the same id safe: only one
// caller flips the flag, the rest see zero rows affected.
func (db *DB) AcknowledgeCommand(ctx context.Context, deviceID string, commandID int64, ackedAt time.Time) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE pending_commands
		 SET acknowledged = true, acknowledged_at = $3
		 WHERE id = $1 AND device_id = $2 AND acknowledged = false`,
		commandID, deviceID, ackedAt)
	if err != nil {
		return false, fmt.Errorf("%w: acknowledge command: %w", ErrDatabaseError, err)
	}

	return tag.RowsAffected() > 0, nil
}

// DeleteAcknowledgedBefore removes commands acknowledged before the cutoff.
func (db *DB) DeleteAcknowledgedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM pending_commands
		 WHERE acknowledged = true AND acknowledged_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: delete acknowledged commands: %w", ErrDatabaseError, err)
	}

	return tag.RowsAffected(), nil
}

// DeletePendingBefore removes commands still unacknowledged past the cutoff.
// These are treated as undeliverable; no retry is issued.
func (db *DB) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM pending_commands
		 WHERE acknowledged = false AND created_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: delete timed out commands: %w", ErrDatabaseError, err)
	}

	return tag.RowsAffected(), nil
}
