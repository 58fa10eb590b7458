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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestParseCommandType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected CommandType
		wantErr  error
	}{
		{name: "power_on", input: "power_on", expected: CommandPowerOn},
		{name: "power_off", input: "power_off", expected: CommandPowerOff},
		{name: "servo", input: "servo", expected: CommandServo},
		{name: "unknown", input: "reboot", wantErr: ErrInvalidCommandType},
		{name: "empty", input: "", wantErr: ErrInvalidCommandType},
		{name: "case_sensitive", input: "Power_On", wantErr: ErrInvalidCommandType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommandType(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// The whole HTTP surface speaks camelCase; command responses must too.
func TestCommandJSONUsesCamelCase(t *testing.T) {
	ackedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cmd := Command{
		ID:             7,
		DeviceID:       "esp32-1",
		Type:           CommandServo,
		Value:          floatPtr(45),
		CreatedAt:      ackedAt.Add(-time.Minute),
		Acknowledged:   true,
		AcknowledgedAt: &ackedAt,
	}

	data, err := json.Marshal(cmd)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))

	for _, key := range []string{"id", "deviceId", "commandType", "commandValue", "createdAt", "acknowledged", "acknowledgedAt"} {
		assert.Contains(t, fields, key)
	}

	assert.NotContains(t, fields, "device_id")
	assert.NotContains(t, fields, "command_type")
	assert.NotContains(t, fields, "command_value")
}

func TestCommandTypeValidate(t *testing.T) {
	tests := []struct {
		name    string
		kind    CommandType
		value   *float64
		wantErr error
	}{
		{name: "power_on_no_value", kind: CommandPowerOn, value: nil},
		{name: "power_off_no_value", kind: CommandPowerOff, value: nil},
		{name: "power_on_with_value", kind: CommandPowerOn, value: floatPtr(1), wantErr: ErrValueNotAllowed},
		{name: "power_off_with_value", kind: CommandPowerOff, value: floatPtr(0), wantErr: ErrValueNotAllowed},
		{name: "servo_missing_value", kind: CommandServo, value: nil, wantErr: ErrServoValueRequired},
		{name: "servo_min", kind: CommandServo, value: floatPtr(0)},
		{name: "servo_max", kind: CommandServo, value: floatPtr(100)},
		{name: "servo_mid", kind: CommandServo, value: floatPtr(42.5)},
		{name: "servo_below_range", kind: CommandServo, value: floatPtr(-0.1), wantErr: ErrServoValueRange},
		{name: "servo_above_range", kind: CommandServo, value: floatPtr(100.1), wantErr: ErrServoValueRange},
		{name: "unknown_kind", kind: CommandType("reboot"), value: nil, wantErr: ErrInvalidCommandType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.kind.Validate(tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}
