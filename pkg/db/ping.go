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
	"fmt"

	"github.com/carverauto/netpulse/pkg/models"
)

// InsertPingMetric appends one ICMP probe sample.
func (s *Store) InsertPingMetric(ctx context.Context, m *models.PingMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = nowUTC()
	}

	_, err := s.pool.Exec(ctx, `INSERT INTO ping_metrics
		(device_id, timestamp, rtt_ms, packet_loss_pct, reachable)
		VALUES ($1,$2,$3,$4,$5)`,
		m.DeviceID, ts, m.RTTMs, m.PacketLossPct, m.Reachable)
	if err != nil {
		return fmt.Errorf("insert ping metric: %w", err)
	}

	return nil
}
