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

// Package commands owns the command lifecycle: creation, FIFO retrieval,
// acknowledgment, and time-based reclamation. Ordering and idempotency are
// enforced by the store, not by any in-memory queue, so they hold under
// concurrent callers.
package commands

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/sensorlink/pkg/db"
	"github.com/carverauto/sensorlink/pkg/logger"
	"github.com/carverauto/sensorlink/pkg/models"
)

var (
	ErrCommandNotFound = errors.New("command not found")
)

// Manager is the command queue manager.
type Manager struct {
	db             db.Service
	ackGrace       time.Duration
	pendingTimeout time.Duration
	logger         logger.Logger
}

func NewManager(database db.Service, ackGrace, pendingTimeout time.Duration, log logger.Logger) *Manager {
	return &Manager{
		db:             database,
		ackGrace:       ackGrace,
		pendingTimeout: pendingTimeout,
		logger:         log,
	}
}

// Enqueue validates the command against the closed kind enumeration and
// appends it to the device's queue. Identical pending commands may coexist;
// no coalescing is done.
func (m *Manager) Enqueue(ctx context.Context, deviceID string, kind models.CommandType, value *float64) (*models.Command, error) {
	if err := kind.Validate(value); err != nil {
		return nil, err
	}

	cmd, err := m.db.InsertCommand(ctx, deviceID, kind, value)
	if err != nil {
		return nil, err
	}

	m.logger.Info().
		Str("device_id", deviceID).
		Str("command_type", string(kind)).
		Int64("command_id", cmd.ID).
		Msg("command enqueued")

	return cmd, nil
}

// FetchPending returns all unacknowledged commands for the device, oldest
// first. A repeatable, pure read: polling twice without an ack in between
// returns the same sequence.
func (m *Manager) FetchPending(ctx context.Context, deviceID string) ([]models.PendingCommand, error) {
	return m.db.GetPendingCommands(ctx, deviceID)
}

// Acknowledge marks a command delivered. The lookup is scoped to both the
// command id and the device id, so a device can never acknowledge another
// device's command. Re-acknowledging is a successful no-op that leaves the
// original acknowledgment timestamp intact, which makes device-side ack
// retries safe. The device-reported status is recorded for diagnostics only.
func (m *Manager) Acknowledge(ctx context.Context, deviceID string, commandID int64, status string) error {
	cmd, err := m.db.GetCommand(ctx, deviceID, commandID)
	if errors.Is(err, db.ErrNotFound) {
		return ErrCommandNotFound
	}

	if err != nil {
		return err
	}

	if cmd.Acknowledged {
		m.logger.Debug().
			Str("device_id", deviceID).
			Int64("command_id", commandID).
			Msg("command already acknowledged")

		return nil
	}

	acked, err := m.db.AcknowledgeCommand(ctx, deviceID, commandID, time.Now().UTC())
	if err != nil {
		return err
	}

	// A concurrent ack may have won the conditional update; that is still
	// success for this caller.
	m.logger.Info().
		Str("device_id", deviceID).
		Int64("command_id", commandID).
		Str("status", status).
		Bool("first_ack", acked).
		Msg("command acknowledged")

	return nil
}

// Status returns a command scoped to the device, for the issuer's bounded
// client-side ack polling.
func (m *Manager) Status(ctx context.Context, deviceID string, commandID int64) (*models.Command, error) {
	cmd, err := m.db.GetCommand(ctx, deviceID, commandID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrCommandNotFound
	}

	return cmd, err
}

// ReclaimAcknowledged deletes commands acknowledged longer ago than the
// grace period, keeping the queue small after confirmed delivery.
func (m *Manager) ReclaimAcknowledged(ctx context.Context) (int64, error) {
	count, err := m.db.DeleteAcknowledgedBefore(ctx, time.Now().UTC().Add(-m.ackGrace))
	if err != nil {
		return 0, err
	}

	if count > 0 {
		m.logger.Info().Int64("count", count).Msg("reclaimed acknowledged commands")
	}

	return count, nil
}

// ReclaimTimedOut deletes commands still pending past the timeout window.
// They are treated as undeliverable; no retry is issued.
func (m *Manager) ReclaimTimedOut(ctx context.Context) (int64, error) {
	count, err := m.db.DeletePendingBefore(ctx, time.Now().UTC().Add(-m.pendingTimeout))
	if err != nil {
		return 0, err
	}

	if count > 0 {
		m.logger.Info().Int64("count", count).Msg("reclaimed timed out commands")
	}

	return count, nil
}
