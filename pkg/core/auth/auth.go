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

// Package auth is the session collaborator: account registration, login,
// and verification of the bearer tokens that bind an issuer to exactly one
// device. Tokens are opaque, stored server-side, and revocable by logout.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/carverauto/sensorlink/pkg/db"
	"github.com/carverauto/sensorlink/pkg/logger"
	"github.com/carverauto/sensorlink/pkg/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("username already taken")
	ErrSessionInvalid     = errors.New("session invalid or expired")
	ErrUsernameRequired   = errors.New("username and password are required")
	ErrDeviceIDRequired   = errors.New("device id is required")
)

// Auth implements the session collaborator against the durable store.
type Auth struct {
	db     db.Service
	config *models.AuthConfig
	logger logger.Logger
}

func New(database db.Service, config *models.AuthConfig, log logger.Logger) *Auth {
	return &Auth{
		db:     database,
		config: config,
		logger: log,
	}
}

// Register creates an account bound to a device, creating the device row if
// this is the first reference to it.
func (a *Auth) Register(ctx context.Context, username, password, deviceID string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrUsernameRequired
	}

	if deviceID == "" {
		return nil, ErrDeviceIDRequired
	}

	if err := a.db.EnsureDevice(ctx, deviceID, "Device "+deviceID); err != nil {
		return nil, err
	}

	cost := a.config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}

	user, err := a.db.CreateUser(ctx, username, string(hash), deviceID)
	if errors.Is(err, db.ErrDuplicateUsername) {
		return nil, ErrUserExists
	}

	if err != nil {
		return nil, err
	}

	a.logger.Info().Str("username", username).Str("device_id", deviceID).Msg("user registered")

	return user, nil
}

// Login verifies credentials and issues a stored bearer token. The error is
// the same whether the username or the password was wrong.
func (a *Auth) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	user, err := a.db.GetUserByUsername(ctx, username)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := &models.Session{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(a.config.SessionDuration()),
	}

	if err := a.db.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	a.logger.Info().Str("username", username).Msg("user logged in")

	return &models.LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

// Verify resolves a bearer token to the authenticated identity and the
// device identifier all issuer-facing calls are scoped to.
func (a *Auth) Verify(ctx context.Context, token string) (*models.AuthIdentity, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	session, err := a.db.GetSessionByToken(ctx, token)
	if errors.Is(err, db.ErrSessionNotFound) {
		return nil, ErrSessionInvalid
	}

	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if session.ExpiresAt.Before(now) {
		return nil, ErrSessionInvalid
	}

	user, err := a.db.GetUserByID(ctx, session.UserID)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, ErrSessionInvalid
	}

	if err != nil {
		return nil, err
	}

	if err := a.db.TouchSession(ctx, token, now); err != nil {
		a.logger.Warn().Err(err).Msg("failed to touch session")
	}

	return &models.AuthIdentity{User: user, DeviceID: user.DeviceID}, nil
}

// Logout revokes a session token.
func (a *Auth) Logout(ctx context.Context, token string) error {
	err := a.db.DeleteSession(ctx, token)
	if errors.Is(err, db.ErrSessionNotFound) {
		return ErrSessionInvalid
	}

	return err
}

// SweepExpired deletes sessions past their expiry; called from the reaper
// cadence so the sessions table does not grow unbounded.
func (a *Auth) SweepExpired(ctx context.Context) (int64, error) {
	return a.db.DeleteExpiredSessions(ctx, time.Now().UTC())
}
