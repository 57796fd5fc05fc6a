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

// PduPollResult is one PDU sub-poller run; persisted transactionally
// like interface polls.
type PduPollResult struct {
	DeviceID  int64
	Timestamp time.Time
	Metric    *models.PduMetric
	Banks     []*models.PduBank
	Outlets   []*models.PduOutlet
}

// SavePduPollResult upserts bank and outlet state on their unique keys
// and appends the time-series rows, all in one transaction.
func (s *Store) SavePduPollResult(ctx context.Context, result *PduPollResult) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		now := result.Timestamp
		if now.IsZero() {
			now = nowUTC()
		}

		m := result.Metric
		if m != nil {
			_, err := tx.Exec(ctx, `INSERT INTO pdu_metrics (
				device_id, timestamp, power_watts, energy_kwh, apparent_power_va,
				power_factor, load_pct,
				phase1_amps, phase2_amps, phase3_amps,
				phase1_volts, phase2_volts, phase3_volts,
				temperature_c, humidity_pct
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
				result.DeviceID, now, m.PowerWatts, m.EnergyKwh, m.ApparentPowerVA,
				m.PowerFactor, m.LoadPct,
				m.Phase1Amps, m.Phase2Amps, m.Phase3Amps,
				m.Phase1Volts, m.Phase2Volts, m.Phase3Volts,
				m.TemperatureC, m.HumidityPct)
			if err != nil {
				return fmt.Errorf("insert pdu metric: %w", err)
			}
		}

		for _, bank := range result.Banks {
			_, err := tx.Exec(ctx, `INSERT INTO pdu_banks (
				device_id, bank_number, current_amps, power_watts, overload_amps, near_overload, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (device_id, bank_number) DO UPDATE SET
				current_amps = EXCLUDED.current_amps,
				power_watts = EXCLUDED.power_watts,
				overload_amps = EXCLUDED.overload_amps,
				near_overload = EXCLUDED.near_overload,
				updated_at = EXCLUDED.updated_at`,
				result.DeviceID, bank.BankNumber, bank.CurrentAmps, bank.PowerWatts,
				bank.OverloadAmps, bank.NearOverload, now)
			if err != nil {
				return fmt.Errorf("upsert pdu bank %d: %w", bank.BankNumber, err)
			}

			_, err = tx.Exec(ctx, `INSERT INTO pdu_bank_metrics
				(device_id, bank_number, timestamp, current_amps, power_watts)
				VALUES ($1,$2,$3,$4,$5)`,
				result.DeviceID, bank.BankNumber, now, bank.CurrentAmps, bank.PowerWatts)
			if err != nil {
				return fmt.Errorf("insert pdu bank metric %d: %w", bank.BankNumber, err)
			}
		}

		for _, outlet := range result.Outlets {
			_, err := tx.Exec(ctx, `INSERT INTO pdu_outlets (
				device_id, outlet_number, name, state, power_watts, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (device_id, outlet_number) DO UPDATE SET
				name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE pdu_outlets.name END,
				state = EXCLUDED.state,
				power_watts = EXCLUDED.power_watts,
				updated_at = EXCLUDED.updated_at`,
				result.DeviceID, outlet.OutletNumber, outlet.Name, outlet.State,
				outlet.PowerWatts, now)
			if err != nil {
				return fmt.Errorf("upsert pdu outlet %d: %w", outlet.OutletNumber, err)
			}
		}

		return nil
	})
}

// PowerWindowStats are the aggregates the power alert engine consumes.
type PowerWindowStats struct {
	TotalPowerWatts float64
	AvgLoadPct      float64
	MaxLoadPct      float64
	AvgTempC        float64
	MaxTempC        float64
	SampleCount     int
}

// PowerWindow aggregates pdu_metrics across all active PDUs in the
// lookback window. TotalPowerWatts is the per-device latest sum, not a
// window average, so budget alerts track the current draw.
func (s *Store) PowerWindow(ctx context.Context, since time.Time) (*PowerWindowStats, error) {
	stats := &PowerWindowStats{}

	err := s.pool.QueryRow(ctx, `SELECT
		COALESCE(SUM(latest.power_watts), 0)
		FROM (
			SELECT DISTINCT ON (m.device_id) m.power_watts
			FROM pdu_metrics m
			JOIN devices d ON d.id = m.device_id
			WHERE d.is_active AND d.device_type = 'pdu' AND m.timestamp >= $1
			ORDER BY m.device_id, m.timestamp DESC
		) latest`, since).Scan(&stats.TotalPowerWatts)
	if err != nil {
		return nil, fmt.Errorf("power window latest sum: %w", err)
	}

	err = s.pool.QueryRow(ctx, `SELECT
		COALESCE(AVG(m.load_pct), 0), COALESCE(MAX(m.load_pct), 0),
		COALESCE(AVG(m.temperature_c), 0), COALESCE(MAX(m.temperature_c), 0),
		COUNT(*)
		FROM pdu_metrics m
		JOIN devices d ON d.id = m.device_id
		WHERE d.is_active AND d.device_type = 'pdu' AND m.timestamp >= $1`, since).
		Scan(&stats.AvgLoadPct, &stats.MaxLoadPct, &stats.AvgTempC, &stats.MaxTempC, &stats.SampleCount)
	if err != nil {
		return nil, fmt.Errorf("power window aggregates: %w", err)
	}

	return stats, nil
}
