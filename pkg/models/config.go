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

	"github.com/carverauto/sensorlink/pkg/logger"
)

var (
	ErrListenAddrRequired = errors.New("listen_addr is required")
	ErrDatabaseRequired   = errors.New("database host and name are required")
)

// DatabaseConfig describes the PostgreSQL connection for the durable store.
type DatabaseConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Database        string `json:"database"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	SSLMode         string `json:"ssl_mode"`
	MaxConnections  int32  `json:"max_connections"`
	MinConnections  int32  `json:"min_connections"`
	ApplicationName string `json:"application_name"`
}

// ReclaimConfig controls the background command reclamation sweep.
type ReclaimConfig struct {
	IntervalSeconds       int `json:"interval_seconds"`
	AckGraceSeconds       int `json:"ack_grace_seconds"`
	PendingTimeoutSeconds int `json:"pending_timeout_seconds"`
}

func (r *ReclaimConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

func (r *ReclaimConfig) AckGrace() time.Duration {
	return time.Duration(r.AckGraceSeconds) * time.Second
}

func (r *ReclaimConfig) PendingTimeout() time.Duration {
	return time.Duration(r.PendingTimeoutSeconds) * time.Second
}

// AuthConfig controls sessions and password hashing.
type AuthConfig struct {
	SessionDurationHours int `json:"session_duration_hours"`
	BcryptCost           int `json:"bcrypt_cost"`
}

func (a *AuthConfig) SessionDuration() time.Duration {
	return time.Duration(a.SessionDurationHours) * time.Hour
}

// CORSConfig controls cross-origin access for the browser frontend.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// CoreConfig is the top-level server configuration.
type CoreConfig struct {
	ListenAddr              string         `json:"listen_addr"`
	Database                DatabaseConfig `json:"database"`
	OfflineThresholdSeconds int            `json:"offline_threshold_seconds"`
	Reclaim                 ReclaimConfig  `json:"reclaim"`
	Auth                    AuthConfig     `json:"auth"`
	CORS                    CORSConfig     `json:"cors"`
	Logging                 *logger.Config `json:"logging,omitempty"`
}

// OfflineThreshold is the telemetry-recency window past which a device is
// classified offline. It must exceed the device's normal report interval by a
// safety margin so network jitter does not flap the status.
func (c *CoreConfig) OfflineThreshold() time.Duration {
	return time.Duration(c.OfflineThresholdSeconds) * time.Second
}

const (
	defaultOfflineThresholdSeconds = 20
	defaultReclaimIntervalSeconds  = 60
	defaultAckGraceSeconds         = 60
	defaultPendingTimeoutSeconds   = 300
	defaultSessionDurationHours    = 24
)

// SetDefaults fills unset fields with the documented defaults.
func (c *CoreConfig) SetDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}

	if c.Database.ApplicationName == "" {
		c.Database.ApplicationName = "sensorlink-core"
	}

	if c.OfflineThresholdSeconds <= 0 {
		c.OfflineThresholdSeconds = defaultOfflineThresholdSeconds
	}

	if c.Reclaim.IntervalSeconds <= 0 {
		c.Reclaim.IntervalSeconds = defaultReclaimIntervalSeconds
	}

	if c.Reclaim.AckGraceSeconds <= 0 {
		c.Reclaim.AckGraceSeconds = defaultAckGraceSeconds
	}

	if c.Reclaim.PendingTimeoutSeconds <= 0 {
		c.Reclaim.PendingTimeoutSeconds = defaultPendingTimeoutSeconds
	}

	if c.Auth.SessionDurationHours <= 0 {
		c.Auth.SessionDurationHours = defaultSessionDurationHours
	}
}

// Validate reports configuration the server cannot start with.
func (c *CoreConfig) Validate() error {
	if c.ListenAddr == "" {
		return ErrListenAddrRequired
	}

	if c.Database.Host == "" || c.Database.Database == "" {
		return ErrDatabaseRequired
	}

	return nil
}

// ErrorResponse is the JSON body written for any API error.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}
