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

// Package config loads server configuration from a JSON file with
// environment-variable overrides for deployment secrets.
package config

import (
	"context"
	"os"
	"strconv"

	"github.com/carverauto/sensorlink/pkg/models"
)

// LoadCoreConfig reads the config file, applies env overrides, fills
// defaults, and validates.
func LoadCoreConfig(ctx context.Context, path string) (*models.CoreConfig, error) {
	var cfg models.CoreConfig

	loader := &FileConfigLoader{}
	if err := loader.Load(ctx, path, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides lets deployments inject secrets and per-host settings
// without editing the config file.
func applyEnvOverrides(cfg *models.CoreConfig) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	if v := os.Getenv("DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}

	if v := os.Getenv("DATABASE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}

	if v := os.Getenv("DATABASE_NAME"); v != "" {
		cfg.Database.Database = v
	}

	if v := os.Getenv("DATABASE_USER"); v != "" {
		cfg.Database.Username = v
	}

	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}

	if v := os.Getenv("OFFLINE_TIMEOUT_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			cfg.OfflineThresholdSeconds = seconds
		}
	}

	if v := os.Getenv("SESSION_DURATION_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			cfg.Auth.SessionDurationHours = hours
		}
	}
}
