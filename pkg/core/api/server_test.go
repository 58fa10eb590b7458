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

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/sensorlink/pkg/commands"
	"github.com/carverauto/sensorlink/pkg/core/auth"
	"github.com/carverauto/sensorlink/pkg/models"
	"github.com/carverauto/sensorlink/pkg/telemetry"
)

type testServer struct {
	server    *APIServer
	telemetry *MockTelemetryService
	commands  *MockCommandService
	auth      *MockSessionService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctrl := gomock.NewController(t)

	ts := &testServer{
		telemetry: NewMockTelemetryService(ctrl),
		commands:  NewMockCommandService(ctrl),
		auth:      NewMockSessionService(ctrl),
	}

	ts.server = NewAPIServer(models.CORSConfig{AllowedOrigins: []string{"*"}},
		WithTelemetryService(ts.telemetry),
		WithCommandService(ts.commands),
		WithSessionService(ts.auth),
	)

	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)

	return rec
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// expectSession wires one successful Verify for the given device.
func (ts *testServer) expectSession(token, deviceID string) {
	ts.auth.EXPECT().Verify(gomock.Any(), token).Return(&models.AuthIdentity{
		User:     &models.User{ID: 1, Username: "alice", DeviceID: deviceID},
		DeviceID: deviceID,
	}, nil)
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestHandleTelemetryReport(t *testing.T) {
	t.Run("accepts report", func(t *testing.T) {
		ts := newTestServer(t)

		ts.telemetry.EXPECT().
			Report(gomock.Any(), "esp32-1", floatPtr(21.5), floatPtr(-999.0), nil).
			Return(nil)

		rec := ts.do(t, http.MethodPost, "/api/esp32/report", TelemetryReportRequest{
			DeviceID:     "esp32-1",
			Temperature1: floatPtr(21.5),
			Temperature2: floatPtr(-999.0),
		}, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	})

	t.Run("missing device id", func(t *testing.T) {
		ts := newTestServer(t)

		ts.telemetry.EXPECT().
			Report(gomock.Any(), "", nil, nil, nil).
			Return(telemetry.ErrDeviceIDRequired)

		rec := ts.do(t, http.MethodPost, "/api/esp32/report", TelemetryReportRequest{}, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		ts := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/esp32/report", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		ts.server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleFetchCommands(t *testing.T) {
	t.Run("returns pending commands in order", func(t *testing.T) {
		ts := newTestServer(t)

		pending := []models.PendingCommand{
			{ID: 1, Type: models.CommandPowerOn},
			{ID: 2, Type: models.CommandServo, Value: floatPtr(30)},
		}
		ts.commands.EXPECT().FetchPending(gomock.Any(), "esp32-1").Return(pending, nil)

		rec := ts.do(t, http.MethodGet, "/api/esp32/commands/esp32-1", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got []models.PendingCommand
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, pending, got)
	})

	t.Run("empty queue is an empty array, not null", func(t *testing.T) {
		ts := newTestServer(t)

		ts.commands.EXPECT().FetchPending(gomock.Any(), "esp32-1").Return(nil, nil)

		rec := ts.do(t, http.MethodGet, "/api/esp32/commands/esp32-1", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestHandleAckCommand(t *testing.T) {
	t.Run("acknowledges", func(t *testing.T) {
		ts := newTestServer(t)

		ts.commands.EXPECT().
			Acknowledge(gomock.Any(), "esp32-1", int64(9), "completed").
			Return(nil)

		rec := ts.do(t, http.MethodPost, "/api/esp32/commands/ack", AckRequest{
			DeviceID:  "esp32-1",
			CommandID: 9,
			Status:    "completed",
		}, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown command", func(t *testing.T) {
		ts := newTestServer(t)

		ts.commands.EXPECT().
			Acknowledge(gomock.Any(), "esp32-1", int64(404), "completed").
			Return(commands.ErrCommandNotFound)

		rec := ts.do(t, http.MethodPost, "/api/esp32/commands/ack", AckRequest{
			DeviceID:  "esp32-1",
			CommandID: 404,
			Status:    "completed",
		}, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/esp32/commands/ack", AckRequest{DeviceID: "esp32-1"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/esp32/commands/ack", AckRequest{CommandID: 9}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleRegister(t *testing.T) {
	t.Run("creates account", func(t *testing.T) {
		ts := newTestServer(t)

		ts.auth.EXPECT().
			Register(gomock.Any(), "alice", "s3cret", "esp32-1").
			Return(&models.User{ID: 1, Username: "alice", DeviceID: "esp32-1"}, nil)

		rec := ts.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
			Username: "alice",
			Password: "s3cret",
			DeviceID: "esp32-1",
		}, nil)

		require.Equal(t, http.StatusCreated, rec.Code)

		var user models.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, "alice", user.Username)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("duplicate username", func(t *testing.T) {
		ts := newTestServer(t)

		ts.auth.EXPECT().
			Register(gomock.Any(), "alice", "s3cret", "esp32-1").
			Return(nil, auth.ErrUserExists)

		rec := ts.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
			Username: "alice",
			Password: "s3cret",
			DeviceID: "esp32-1",
		}, nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		ts := newTestServer(t)

		ts.auth.EXPECT().
			Register(gomock.Any(), "", "", "").
			Return(nil, auth.ErrUsernameRequired)

		rec := ts.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleLogin(t *testing.T) {
	t.Run("issues token", func(t *testing.T) {
		ts := newTestServer(t)

		ts.auth.EXPECT().
			Login(gomock.Any(), "alice", "s3cret").
			Return(&models.LoginResponse{
				Token:     "tok-1",
				ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
				User:      &models.User{ID: 1, Username: "alice", DeviceID: "esp32-1"},
			}, nil)

		rec := ts.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Username: "alice", Password: "s3cret"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "tok-1", resp.Token)
	})

	t.Run("bad credentials", func(t *testing.T) {
		ts := newTestServer(t)

		ts.auth.EXPECT().
			Login(gomock.Any(), "alice", "wrong").
			Return(nil, auth.ErrInvalidCredentials)

		rec := ts.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Username: "alice", Password: "wrong"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleLogout(t *testing.T) {
	t.Run("revokes session", func(t *testing.T) {
		ts := newTestServer(t)

		ts.auth.EXPECT().Logout(gomock.Any(), "tok-1").Return(nil)

		rec := ts.do(t, http.MethodPost, "/api/auth/logout", nil, authHeader("tok-1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		ts := newTestServer(t)

		ts.auth.EXPECT().Logout(gomock.Any(), "").Return(auth.ErrSessionInvalid)

		rec := ts.do(t, http.MethodPost, "/api/auth/logout", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSessionMiddleware(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		ts := newTestServer(t)

		ts.auth.EXPECT().Verify(gomock.Any(), "").Return(nil, auth.ErrSessionInvalid)

		rec := ts.do(t, http.MethodGet, "/api/device/state", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		ts := newTestServer(t)

		ts.auth.EXPECT().Verify(gomock.Any(), "tok-old").Return(nil, auth.ErrSessionInvalid)

		rec := ts.do(t, http.MethodGet, "/api/device/state", nil, authHeader("tok-old"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleDeviceState(t *testing.T) {
	t.Run("returns snapshot with derived status", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectSession("tok-1", "esp32-1")

		lastUpdate := time.Now().UTC().Add(-5 * time.Second)
		ts.telemetry.EXPECT().State(gomock.Any(), "esp32-1").Return(&models.DeviceState{
			DeviceID:     "esp32-1",
			Temperature1: floatPtr(21.5),
			Status:       "online",
			LastUpdate:   &lastUpdate,
		}, nil)

		rec := ts.do(t, http.MethodGet, "/api/device/state", nil, authHeader("tok-1"))
		require.Equal(t, http.StatusOK, rec.Code)

		var state models.DeviceState
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
		assert.Equal(t, "online", state.Status)
		assert.Equal(t, floatPtr(21.5), state.Temperature1)
	})

	t.Run("device never reported", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectSession("tok-1", "esp32-1")

		ts.telemetry.EXPECT().State(gomock.Any(), "esp32-1").Return(nil, telemetry.ErrDeviceNotFound)

		rec := ts.do(t, http.MethodGet, "/api/device/state", nil, authHeader("tok-1"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestIssueCommand(t *testing.T) {
	t.Run("power on enqueues for online device", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectSession("tok-1", "esp32-1")

		ts.telemetry.EXPECT().Online(gomock.Any(), "esp32-1").Return(true, nil)
		ts.commands.EXPECT().
			Enqueue(gomock.Any(), "esp32-1", models.CommandPowerOn, nil).
			Return(&models.Command{ID: 7, DeviceID: "esp32-1", Type: models.CommandPowerOn}, nil)

		rec := ts.do(t, http.MethodPost, "/api/commands/power-on", nil, authHeader("tok-1"))
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp CommandResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, int64(7), resp.Command.ID)
	})

	t.Run("offline device rejected before enqueue", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectSession("tok-1", "esp32-1")

		// No Enqueue expectation: nothing may be queued for an offline device.
		ts.telemetry.EXPECT().Online(gomock.Any(), "esp32-1").Return(false, nil)

		rec := ts.do(t, http.MethodPost, "/api/commands/power-off", nil, authHeader("tok-1"))
		assert.Equal(t, http.StatusConflict, rec.Code)

		var resp models.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Device is offline", resp.Message)
	})

	t.Run("servo passes value through", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectSession("tok-1", "esp32-1")

		ts.telemetry.EXPECT().Online(gomock.Any(), "esp32-1").Return(true, nil)
		ts.commands.EXPECT().
			Enqueue(gomock.Any(), "esp32-1", models.CommandServo, floatPtr(45)).
			Return(&models.Command{ID: 8, DeviceID: "esp32-1", Type: models.CommandServo, Value: floatPtr(45)}, nil)

		rec := ts.do(t, http.MethodPost, "/api/commands/servo", ServoRequest{Value: floatPtr(45)}, authHeader("tok-1"))
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("servo range violation", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectSession("tok-1", "esp32-1")

		ts.telemetry.EXPECT().Online(gomock.Any(), "esp32-1").Return(true, nil)
		ts.commands.EXPECT().
			Enqueue(gomock.Any(), "esp32-1", models.CommandServo, floatPtr(150)).
			Return(nil, models.ErrServoValueRange)

		rec := ts.do(t, http.MethodPost, "/api/commands/servo", ServoRequest{Value: floatPtr(150)}, authHeader("tok-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("servo without value rejected", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectSession("tok-1", "esp32-1")

		// An absent value must surface as nil, not as position zero.
		ts.telemetry.EXPECT().Online(gomock.Any(), "esp32-1").Return(true, nil)
		ts.commands.EXPECT().
			Enqueue(gomock.Any(), "esp32-1", models.CommandServo, nil).
			Return(nil, models.ErrServoValueRequired)

		rec := ts.do(t, http.MethodPost, "/api/commands/servo", struct{}{}, authHeader("tok-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleCommandStatus(t *testing.T) {
	t.Run("returns command", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectSession("tok-1", "esp32-1")

		ackedAt := time.Now().UTC()
		ts.commands.EXPECT().
			Status(gomock.Any(), "esp32-1", int64(7)).
			Return(&models.Command{
				ID:             7,
				DeviceID:       "esp32-1",
				Type:           models.CommandPowerOn,
				Acknowledged:   true,
				AcknowledgedAt: &ackedAt,
			}, nil)

		rec := ts.do(t, http.MethodGet, "/api/commands/status/7", nil, authHeader("tok-1"))
		require.Equal(t, http.StatusOK, rec.Code)

		var cmd models.Command
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmd))
		assert.True(t, cmd.Acknowledged)
	})

	t.Run("reclaimed or foreign command", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectSession("tok-1", "esp32-1")

		ts.commands.EXPECT().
			Status(gomock.Any(), "esp32-1", int64(99)).
			Return(nil, commands.ErrCommandNotFound)

		rec := ts.do(t, http.MethodGet, "/api/commands/status/99", nil, authHeader("tok-1"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectSession("tok-1", "esp32-1")

		rec := ts.do(t, http.MethodGet, "/api/commands/status/abc", nil, authHeader("tok-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
