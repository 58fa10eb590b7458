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

// Package liveness derives a device's online/offline classification from
// telemetry recency. The classification is computed on every read; the status
// column persisted alongside the snapshot is advisory only and must never be
// used for command-eligibility decisions, because a device that silently
// stops reporting would otherwise stay "online" in storage forever.
package liveness

import "time"

// Status is the derived reachability classification.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Classify maps a snapshot timestamp to online/offline. A device with no
// recorded telemetry is offline. Otherwise it is offline once the elapsed
// time since the last report exceeds the threshold. Pure: no clock access,
// no store access.
func Classify(lastUpdate *time.Time, now time.Time, threshold time.Duration) Status {
	if lastUpdate == nil || lastUpdate.IsZero() {
		return StatusOffline
	}

	if now.Sub(*lastUpdate) > threshold {
		return StatusOffline
	}

	return StatusOnline
}
