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

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/sensorlink/pkg/models"
)

const pgUniqueViolation = "23505"

// CreateUser inserts an account row bound to a device identifier.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash, deviceID string) (*models.User, error) {
	var user models.User

	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, device_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, username, password_hash, device_id, created_at`,
		username, passwordHash, deviceID).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.DeviceID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateUsername
		}

		return nil, fmt.Errorf("%w: create user: %w", ErrFailedToInsert, err)
	}

	return &user, nil
}

func (db *DB) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User

	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.DeviceID, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: user: %w", ErrFailedToScan, err)
	}

	return &user, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.scanUser(db.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, device_id, created_at
		 FROM users WHERE username = $1`,
		username))
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.scanUser(db.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, device_id, created_at
		 FROM users WHERE id = $1`,
		id))
}

// CreateSession stores a bearer token with its expiry.
func (db *DB) CreateSession(ctx context.Context, session *models.Session) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO sessions (user_id, token, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, last_used_at`,
		session.UserID, session.Token, session.ExpiresAt).
		Scan(&session.ID, &session.CreatedAt, &session.LastUsedAt)
	if err != nil {
		return fmt.Errorf("%w: create session: %w", ErrFailedToInsert, err)
	}

	return nil
}

func (db *DB) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session

	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, token, expires_at, created_at, last_used_at
		 FROM sessions WHERE token = $1`,
		token).Scan(&session.ID, &session.UserID, &session.Token,
		&session.ExpiresAt, &session.CreatedAt, &session.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: get session: %w", ErrFailedToQuery, err)
	}

	return &session, nil
}

func (db *DB) TouchSession(ctx context.Context, token string, usedAt time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE sessions SET last_used_at = $2 WHERE token = $1`,
		token, usedAt)
	if err != nil {
		return fmt.Errorf("%w: touch session: %w", ErrDatabaseError, err)
	}

	return nil
}

func (db *DB) DeleteSession(ctx context.Context, token string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("%w: delete session: %w", ErrDatabaseError, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteExpiredSessions sweeps sessions past their expiry.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired sessions: %w", ErrDatabaseError, err)
	}

	return tag.RowsAffected(), nil
}
