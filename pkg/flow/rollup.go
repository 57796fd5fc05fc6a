/*
 * Copyright 2026 Carver Automation Corporation.
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

package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
)

const (
	bucketSize = 5 * time.Minute

	// Re-aggregating the trailing window lets late flows revise a
	// bucket for up to 15 minutes after it closes.
	rollupWindow = 15 * time.Minute

	backfillChunk = time.Hour
)

// RollupStore is the persistence surface of the rollup service.
type RollupStore interface {
	RollupFlowRange(ctx context.Context, start, end time.Time) (int64, error)
	OldestFlowTimestamp(ctx context.Context) (time.Time, bool, error)
	GetSettingBool(ctx context.Context, key string, fallback bool) bool
	SetSetting(ctx context.Context, key, value string, isSecret bool, updatedBy string) error
}

// Rollup maintains flow_summary_5m from raw flow records.
type Rollup struct {
	store        RollupStore
	logger       logger.Logger
	backfillDays int
}

// NewRollup builds the service. backfillDays bounds the one-time
// historical pass.
func NewRollup(store RollupStore, backfillDays int, log logger.Logger) *Rollup {
	return &Rollup{
		store:        store,
		logger:       log.WithComponent("flow_rollup"),
		backfillDays: backfillDays,
	}
}

// BucketStart floors t to its 5-minute bucket.
func BucketStart(t time.Time) time.Time {
	return t.Truncate(bucketSize)
}

// Run aggregates the trailing window, excluding the in-progress bucket
// so no partial rows are written. Running it twice on unchanged data
// is a no-op thanks to the keyed upsert.
func (r *Rollup) Run(ctx context.Context) error {
	now := nowUTC()
	end := BucketStart(now)
	start := now.Add(-rollupWindow)

	rows, err := r.store.RollupFlowRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("flow: rollup window [%s, %s): %w", start, end, err)
	}

	r.logger.Debug().
		Int64("rows", rows).
		Time("window_start", start).
		Time("window_end", end).
		Msg("rollup tick complete")

	return nil
}

// Backfill aggregates history in one-hour chunks, oldest first. It
// runs once per database; completion is recorded as a setting so a
// restart never repeats it.
func (r *Rollup) Backfill(ctx context.Context) error {
	if r.store.GetSettingBool(ctx, models.SettingFlowRollupBackfilled, false) {
		return nil
	}

	oldest, found, err := r.store.OldestFlowTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("flow: backfill oldest lookup: %w", err)
	}

	now := nowUTC()

	if found {
		horizon := now.AddDate(0, 0, -r.backfillDays)
		if oldest.Before(horizon) {
			oldest = horizon
		}

		var total int64

		for start := oldest.Truncate(backfillChunk); start.Before(now); start = start.Add(backfillChunk) {
			end := start.Add(backfillChunk)
			if end.After(now) {
				end = BucketStart(now)
			}

			rows, err := r.store.RollupFlowRange(ctx, start, end)
			if err != nil {
				return fmt.Errorf("flow: backfill chunk [%s, %s): %w", start, end, err)
			}

			total += rows

			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		r.logger.Info().
			Int64("rows", total).
			Time("from", oldest).
			Msg("flow rollup backfill complete")
	}

	if err := r.store.SetSetting(ctx, models.SettingFlowRollupBackfilled, "true", false, "system"); err != nil {
		return fmt.Errorf("flow: mark backfill complete: %w", err)
	}

	return nil
}
