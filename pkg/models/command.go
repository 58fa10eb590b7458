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

import (
	"errors"
	"time"
)

// CommandType is the closed set of instructions a device understands.
type CommandType string

const (
	CommandPowerOn  CommandType = "power_on"
	CommandPowerOff CommandType = "power_off"
	CommandServo    CommandType = "servo"
)

const (
	ServoValueMin = 0
	ServoValueMax = 100
)

var (
	ErrInvalidCommandType = errors.New("invalid command type")
	ErrServoValueRequired = errors.New("servo command requires a value")
	ErrServoValueRange    = errors.New("servo value must be between 0 and 100")
	ErrValueNotAllowed    = errors.New("power commands must not carry a value")
)

// ParseCommandType validates a wire-level command type string.
func ParseCommandType(s string) (CommandType, error) {
	switch CommandType(s) {
	case CommandPowerOn, CommandPowerOff, CommandServo:
		return CommandType(s), nil
	default:
		return "", ErrInvalidCommandType
	}
}

// Validate enforces the per-kind value rule: servo commands carry a value in
// [0, 100], power commands carry none.
func (c CommandType) Validate(value *float64) error {
	switch c {
	case CommandServo:
		if value == nil {
			return ErrServoValueRequired
		}

		if *value < ServoValueMin || *value > ServoValueMax {
			return ErrServoValueRange
		}

		return nil
	case CommandPowerOn, CommandPowerOff:
		if value != nil {
			return ErrValueNotAllowed
		}

		return nil
	default:
		return ErrInvalidCommandType
	}
}

// Command is a queued instruction awaiting device pickup and acknowledgment.
// Once acknowledged it is immutable except for eventual reclamation.
type Command struct {
	ID             int64       `json:"id"`
	DeviceID       string      `json:"deviceId"`
	Type           CommandType `json:"commandType"`
	Value          *float64    `json:"commandValue"`
	CreatedAt      time.Time   `json:"createdAt"`
	Acknowledged   bool        `json:"acknowledged"`
	AcknowledgedAt *time.Time  `json:"acknowledgedAt,omitempty"`
}

// PendingCommand is the trimmed view a device receives when polling.
type PendingCommand struct {
	ID    int64       `json:"id"`
	Type  CommandType `json:"type"`
	Value *float64    `json:"value"`
}
