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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/netpulse/pkg/models"
)

const insertInterfaceMetricSQL = `
INSERT INTO interface_metrics (
	interface_id, timestamp,
	in_octets, out_octets, in_packets, out_packets,
	in_errors, out_errors, in_discards, out_discards,
	in_broadcast, in_multicast,
	in_bps, out_bps, utilization_in, utilization_out, pps_in, pps_out
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)`

// LatestInterfaceMetric returns the most recent sample for an
// interface, or ErrNotFound when none exists yet.
func (s *Store) LatestInterfaceMetric(ctx context.Context, interfaceID int64) (*models.InterfaceMetric, error) {
	row := s.pool.QueryRow(ctx, `SELECT
		id, interface_id, timestamp,
		in_octets, out_octets, in_packets, out_packets,
		in_errors, out_errors, in_discards, out_discards,
		in_broadcast, in_multicast,
		in_bps, out_bps, utilization_in, utilization_out, pps_in, pps_out
		FROM interface_metrics
		WHERE interface_id = $1
		ORDER BY timestamp DESC LIMIT 1`, interfaceID)

	var m models.InterfaceMetric

	err := row.Scan(
		&m.ID, &m.InterfaceID, &m.Timestamp,
		&m.InOctets, &m.OutOctets, &m.InPackets, &m.OutPackets,
		&m.InErrors, &m.OutErrors, &m.InDiscards, &m.OutDiscards,
		&m.InBroadcast, &m.InMulticast,
		&m.InBps, &m.OutBps, &m.UtilizationIn, &m.UtilizationOut, &m.PpsIn, &m.PpsOut,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("latest interface metric: %w", err)
	}

	return &m, nil
}

// SaveDevicePollResult commits everything one poll produced in a
// single transaction: the device snapshot, interface samples, and any
// oper_status transitions.
func (s *Store) SaveDevicePollResult(ctx context.Context, result *models.PollResult) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		now := result.Timestamp
		if now.IsZero() {
			now = nowUTC()
		}

		_, err := tx.Exec(ctx, `UPDATE devices SET
			status = $2, uptime_seconds = COALESCE($3, uptime_seconds),
			cpu_usage = COALESCE($4, cpu_usage), memory_usage = COALESCE($5, memory_usage),
			hostname = CASE WHEN $6 <> '' THEN $6 ELSE hostname END,
			last_seen = $7, updated_at = $7
			WHERE id = $1`,
			result.DeviceID, result.Status, result.UptimeSeconds,
			result.CPUUsage, result.MemoryUsage, result.SysName, now)
		if err != nil {
			return fmt.Errorf("update device snapshot: %w", err)
		}

		if result.CPUUsage != nil || result.MemoryUsage != nil || result.Temperature != nil || result.UptimeSeconds != nil {
			_, err = tx.Exec(ctx, `INSERT INTO device_metric_history
				(device_id, timestamp, cpu_usage, memory_usage, temperature, uptime_seconds)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				result.DeviceID, now, result.CPUUsage, result.MemoryUsage,
				result.Temperature, result.UptimeSeconds)
			if err != nil {
				return fmt.Errorf("insert device metric history: %w", err)
			}
		}

		batch := &pgx.Batch{}

		for _, m := range result.Metrics {
			batch.Queue(insertInterfaceMetricSQL,
				m.InterfaceID, now,
				m.InOctets, m.OutOctets, m.InPackets, m.OutPackets,
				m.InErrors, m.OutErrors, m.InDiscards, m.OutDiscards,
				m.InBroadcast, m.InMulticast,
				m.InBps, m.OutBps, m.UtilizationIn, m.UtilizationOut, m.PpsIn, m.PpsOut)
		}

		for _, change := range result.OperStatusChanges {
			batch.Queue(`INSERT INTO port_state_changes (interface_id, old_status, new_status, changed_at)
				VALUES ($1,$2,$3,$4)`,
				change.InterfaceID, change.OldStatus, change.NewStatus, now)
			batch.Queue(`UPDATE interfaces SET oper_status = $2, last_change = $3, updated_at = $3
				WHERE id = $1`,
				change.InterfaceID, change.NewStatus, now)
		}

		if batch.Len() == 0 {
			return nil
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("poll result batch statement %d: %w", i+1, err)
			}
		}

		return nil
	})
}

// MinuteBucket is one minute of summed WAN throughput.
type MinuteBucket struct {
	Minute time.Time
	InBps  float64
	OutBps float64
}

// WANMinuteBuckets sums in_bps/out_bps across all WAN interfaces per
// minute inside the lookback window, oldest first.
func (s *Store) WANMinuteBuckets(ctx context.Context, since time.Time) ([]MinuteBucket, error) {
	rows, err := s.pool.Query(ctx, `SELECT
		date_trunc('minute', m.timestamp) AS minute,
		SUM(m.in_bps), SUM(m.out_bps)
		FROM interface_metrics m
		JOIN interfaces i ON i.id = m.interface_id
		WHERE i.is_wan AND m.timestamp >= $1
		GROUP BY minute ORDER BY minute`, since)
	if err != nil {
		return nil, fmt.Errorf("wan minute buckets: %w", err)
	}
	defer rows.Close()

	var buckets []MinuteBucket

	for rows.Next() {
		var b MinuteBucket
		if err := rows.Scan(&b.Minute, &b.InBps, &b.OutBps); err != nil {
			return nil, fmt.Errorf("scan wan bucket: %w", err)
		}

		buckets = append(buckets, b)
	}

	return buckets, rows.Err()
}

// PruneOldMetrics deletes time-series rows older than the retention
// horizon across all metric tables.
func (s *Store) PruneOldMetrics(ctx context.Context, retention time.Duration) error {
	cutoff := nowUTC().Add(-retention)

	tables := []struct {
		name, column string
	}{
		{"interface_metrics", "timestamp"},
		{"device_metric_history", "timestamp"},
		{"pdu_metrics", "timestamp"},
		{"pdu_bank_metrics", "timestamp"},
		{"ping_metrics", "timestamp"},
		{"port_state_changes", "changed_at"},
	}

	for _, table := range tables {
		tag, err := s.pool.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`, table.name, table.column), cutoff)
		if err != nil {
			return fmt.Errorf("prune %s: %w", table.name, err)
		}

		if tag.RowsAffected() > 0 {
			s.logger.Info().
				Str("table", table.name).
				Int64("rows", tag.RowsAffected()).
				Msg("pruned old metrics")
		}
	}

	return nil
}
