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

// Package telemetry ingests device-reported readings and serves the latest
// snapshot with a freshly derived reachability status.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/sensorlink/pkg/db"
	"github.com/carverauto/sensorlink/pkg/liveness"
	"github.com/carverauto/sensorlink/pkg/logger"
	"github.com/carverauto/sensorlink/pkg/models"
)

// FaultSentinel is the reading value devices report when a sensor could not
// be read. It is stored as NULL: a sensor fault is not the same thing as the
// device being offline.
const FaultSentinel = -999.0

// MaxDeviceIDLength bounds the external device identifier.
const MaxDeviceIDLength = 64

var (
	ErrDeviceIDRequired = errors.New("device id is required")
	ErrDeviceIDTooLong  = errors.New("device id exceeds maximum length")
	ErrDeviceNotFound   = errors.New("device has never reported")
)

// Ingestor accepts telemetry reports and reads back snapshots. It holds no
// state of its own; the store is the single source of truth.
type Ingestor struct {
	db        db.Service
	threshold time.Duration
	logger    logger.Logger
}

func NewIngestor(database db.Service, offlineThreshold time.Duration, log logger.Logger) *Ingestor {
	return &Ingestor{
		db:        database,
		threshold: offlineThreshold,
		logger:    log,
	}
}

// Report stores a telemetry reading for a device, creating the device row on
// first contact. All three readings and the timestamp are overwritten
// atomically; an absent field means "sensor fault", never "leave unchanged".
// Sensor faults are not errors, only a missing or oversized identifier is.
func (i *Ingestor) Report(ctx context.Context, deviceID string, t1, t2, t3 *float64) error {
	if deviceID == "" {
		return ErrDeviceIDRequired
	}

	if len(deviceID) > MaxDeviceIDLength {
		return ErrDeviceIDTooLong
	}

	if err := i.db.EnsureDevice(ctx, deviceID, fmt.Sprintf("Device %s", deviceID)); err != nil {
		return err
	}

	now := time.Now().UTC()
	state := &models.DeviceState{
		DeviceID:     deviceID,
		Temperature1: normalizeReading(t1),
		Temperature2: normalizeReading(t2),
		Temperature3: normalizeReading(t3),
		// Advisory only; reads always reclassify from last_update.
		Status:     string(liveness.StatusOnline),
		LastUpdate: &now,
	}

	if err := i.db.UpsertDeviceState(ctx, state); err != nil {
		return err
	}

	i.logger.Debug().
		Str("device_id", deviceID).
		Interface("temperature1", state.Temperature1).
		Interface("temperature2", state.Temperature2).
		Interface("temperature3", state.Temperature3).
		Msg("telemetry snapshot updated")

	return nil
}

// State returns the latest snapshot with the status recomputed from
// telemetry recency. The read path never writes the recomputed status back.
func (i *Ingestor) State(ctx context.Context, deviceID string) (*models.DeviceState, error) {
	state, err := i.db.GetDeviceState(ctx, deviceID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}

	if err != nil {
		return nil, err
	}

	state.Status = string(liveness.Classify(state.LastUpdate, time.Now().UTC(), i.threshold))

	return state, nil
}

// Online reports whether the device currently classifies as online.
func (i *Ingestor) Online(ctx context.Context, deviceID string) (bool, error) {
	state, err := i.State(ctx, deviceID)
	if errors.Is(err, ErrDeviceNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return state.Status == string(liveness.StatusOnline), nil
}

func normalizeReading(value *float64) *float64 {
	if value == nil || *value == FaultSentinel {
		return nil
	}

	return value
}
