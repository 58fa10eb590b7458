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

package commands

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/sensorlink/pkg/logger"
)

// Reaper is the reclamation scheduler: a recurring background sweep that
// deletes acknowledged commands past their grace period and pending commands
// past their timeout. It is the only continuously running background process
// in the server; everything else is request-driven.
type Reaper struct {
	manager  *Manager
	interval time.Duration
	logger   logger.Logger
}

func NewReaper(manager *Manager, interval time.Duration, log logger.Logger) *Reaper {
	return &Reaper{
		manager:  manager,
		interval: interval,
		logger:   log,
	}
}

// Start runs the reaper loop until the context is canceled. A failed tick is
// logged and the next tick proceeds; reclamation errors are never escalated.
func (r *Reaper) Start(ctx context.Context) {
	r.logger.Info().
		Str("interval", r.interval.String()).
		Msg("Starting command reaper")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Command reaper stopping")
			return
		case <-ticker.C:
			if err := r.reap(ctx); err != nil {
				r.logger.Error().Err(err).Msg("Failed to reclaim commands")
			}
		}
	}
}

// reap executes a single cleanup cycle. Both sweeps run every tick; a
// failure in one never starves the other.
func (r *Reaper) reap(ctx context.Context) error {
	_, ackErr := r.manager.ReclaimAcknowledged(ctx)
	_, pendingErr := r.manager.ReclaimTimedOut(ctx)

	return errors.Join(ackErr, pendingErr)
}
