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

package db

import (
	"context"

	"github.com/carverauto/netpulse/pkg/models"
)

// AppendSystemEvent writes an operational log row. It never fails the
// caller: background jobs log instead of aborting, so a write error is
// itself only logged.
func (s *Store) AppendSystemEvent(ctx context.Context, event *models.SystemEvent) {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = nowUTC()
	}

	_, err := s.pool.Exec(ctx, `INSERT INTO system_events
		(timestamp, level, source, event_type, resource_type, resource_id, message, details)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		ts, event.Level, event.Source, event.EventType,
		event.ResourceType, event.ResourceID, event.Message, event.Details)
	if err != nil {
		s.logger.Error().Err(err).
			Str("source", event.Source).
			Str("event_type", event.EventType).
			Msg("failed to append system event")
	}
}
