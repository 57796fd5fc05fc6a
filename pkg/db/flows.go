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
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/netpulse/pkg/models"
)

const insertFlowRecordSQL = `
INSERT INTO flow_records (
	device_id, timestamp, src_ip, dst_ip, src_port, dst_port,
	protocol, protocol_name, bytes, packets, duration_ms, tcp_flags,
	application, flow_type, src_country, dst_country, exporter_ip
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)`

// InsertFlowRecords persists a parsed datagram's flows in one batch.
func (s *Store) InsertFlowRecords(ctx context.Context, records []*models.FlowRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	for _, r := range records {
		ts := r.Timestamp
		if ts.IsZero() {
			ts = nowUTC()
		}

		batch.Queue(insertFlowRecordSQL,
			r.DeviceID, ts, r.SrcIP, r.DstIP, int32(r.SrcPort), int32(r.DstPort),
			int32(r.Protocol), r.ProtocolName, int64(r.Bytes), int64(r.Packets),
			r.DurationMs, int32(r.TCPFlags), r.Application, r.FlowType,
			r.SrcCountry, r.DstCountry, r.ExporterIP)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert flow record %d: %w", i+1, err)
		}
	}

	return nil
}

// rollupSQL aggregates raw flows into 5-minute summary rows. The upsert
// overwrites totals so re-running over an unchanged window is
// idempotent, and late flows revise their bucket until the window
// slides past it.
const rollupSQL = `
INSERT INTO flow_summary_5m (
	bucket, device_id, src_ip, dst_ip, src_port, dst_port,
	protocol_name, application, bytes, packets, flow_count
)
SELECT
	to_timestamp(floor(extract(epoch FROM timestamp) / 300) * 300) AS bucket,
	device_id, src_ip, dst_ip, src_port, dst_port,
	protocol_name, application,
	SUM(bytes), SUM(packets), COUNT(*)
FROM flow_records
WHERE timestamp >= $1 AND timestamp < $2
GROUP BY bucket, device_id, src_ip, dst_ip, src_port, dst_port, protocol_name, application
ON CONFLICT (bucket, (COALESCE(device_id, 0)), src_ip, dst_ip, src_port, dst_port, protocol_name, application)
DO UPDATE SET
	bytes = EXCLUDED.bytes,
	packets = EXCLUDED.packets,
	flow_count = EXCLUDED.flow_count`

// RollupFlowRange aggregates flow_records in [start, end) into
// flow_summary_5m. Callers pass a range aligned so the in-progress
// bucket stays excluded.
func (s *Store) RollupFlowRange(ctx context.Context, start, end time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, rollupSQL, start, end)
	if err != nil {
		return 0, fmt.Errorf("rollup flows: %w", err)
	}

	return tag.RowsAffected(), nil
}

// OldestFlowTimestamp supports the one-time backfill chunking.
func (s *Store) OldestFlowTimestamp(ctx context.Context) (time.Time, bool, error) {
	var oldest *time.Time

	err := s.pool.QueryRow(ctx, `SELECT MIN(timestamp) FROM flow_records`).Scan(&oldest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest flow timestamp: %w", err)
	}

	if oldest == nil {
		return time.Time{}, false, nil
	}

	return *oldest, true, nil
}

// PruneOldFlows deletes raw flow rows past their retention. Summary
// rows are kept; they are the long-horizon view.
func (s *Store) PruneOldFlows(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM flow_records WHERE timestamp < $1`,
		nowUTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune flow records: %w", err)
	}

	return tag.RowsAffected(), nil
}
