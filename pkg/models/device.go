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

package models

import "time"

// Device is the identity record for a remote telemetry/actuation unit.
// Rows are created implicitly on first telemetry report or first user
// registration; identity fields are never mutated afterwards.
type Device struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"deviceId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeviceState is the latest telemetry snapshot for a device, one row per
// device. A nil reading means "no data / sensor fault", which is distinct
// from the device being offline. The persisted Status is advisory only; the
// authoritative online/offline decision is always recomputed from LastUpdate.
type DeviceState struct {
	DeviceID     string     `json:"deviceId"`
	Temperature1 *float64   `json:"temperature1"`
	Temperature2 *float64   `json:"temperature2"`
	Temperature3 *float64   `json:"temperature3"`
	Status       string     `json:"status"`
	LastUpdate   *time.Time `json:"lastUpdate"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
