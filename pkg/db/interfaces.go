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

const selectInterfaceColumns = `
	id, device_id, if_index, name, alias, speed_bps,
	admin_status, oper_status, last_change,
	is_monitored, is_wan, is_uplink, created_at, updated_at`

// ListMonitoredInterfaces returns the monitored interfaces of a device
// keyed for matching against an SNMP walk.
func (s *Store) ListMonitoredInterfaces(ctx context.Context, deviceID int64) ([]*models.Interface, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectInterfaceColumns+`
		FROM interfaces WHERE device_id = $1 AND is_monitored ORDER BY id`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list monitored interfaces: %w", err)
	}
	defer rows.Close()

	return scanInterfaces(rows)
}

// GetInterface returns one interface row or ErrNotFound.
func (s *Store) GetInterface(ctx context.Context, interfaceID int64) (*models.Interface, error) {
	var i models.Interface

	err := s.pool.QueryRow(ctx, `SELECT `+selectInterfaceColumns+`
		FROM interfaces WHERE id = $1`, interfaceID).Scan(
		&i.ID, &i.DeviceID, &i.IfIndex, &i.Name, &i.Alias, &i.SpeedBps,
		&i.AdminStatus, &i.OperStatus, &i.LastChange,
		&i.IsMonitored, &i.IsWAN, &i.IsUplink, &i.CreatedAt, &i.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get interface: %w", err)
	}

	return &i, nil
}

// DiscoveredInterface is one ifTable row seen on an SNMP walk.
type DiscoveredInterface struct {
	IfIndex     int32
	Name        string
	Alias       string
	SpeedBps    int64
	AdminStatus string
}

// UpsertDiscoveredInterfaces mirrors walked ifTable rows into the
// interfaces table keyed on (device_id, if_index). Rediscovery
// refreshes name, alias, speed and admin status; operator flags
// (is_monitored, is_wan, is_uplink) and oper_status are never touched.
func (s *Store) UpsertDiscoveredInterfaces(ctx context.Context, deviceID int64, rows []*DiscoveredInterface) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := nowUTC()

	for _, r := range rows {
		batch.Queue(`INSERT INTO interfaces
			(device_id, if_index, name, alias, speed_bps, admin_status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
			ON CONFLICT (device_id, if_index) WHERE if_index IS NOT NULL DO UPDATE SET
				name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE interfaces.name END,
				alias = CASE WHEN EXCLUDED.alias <> '' THEN EXCLUDED.alias ELSE interfaces.alias END,
				speed_bps = CASE WHEN EXCLUDED.speed_bps > 0 THEN EXCLUDED.speed_bps ELSE interfaces.speed_bps END,
				admin_status = EXCLUDED.admin_status,
				updated_at = EXCLUDED.updated_at`,
			deviceID, r.IfIndex, r.Name, r.Alias, r.SpeedBps, r.AdminStatus, now)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert interface %d: %w", i+1, err)
		}
	}

	return nil
}

// ListWANInterfaceIDs returns the ids of every interface flagged is_wan.
func (s *Store) ListWANInterfaceIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM interfaces WHERE is_wan`)
	if err != nil {
		return nil, fmt.Errorf("list wan interfaces: %w", err)
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan wan interface id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CountRecentPortStateChanges supports flap detection: more than five
// transitions inside ten minutes marks an interface as flapping.
func (s *Store) CountRecentPortStateChanges(ctx context.Context, interfaceID int64, window time.Duration) (int, error) {
	var count int

	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM port_state_changes
		WHERE interface_id = $1 AND changed_at >= $2`,
		interfaceID, nowUTC().Add(-window)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count port state changes: %w", err)
	}

	return count, nil
}

func scanInterfaces(rows pgx.Rows) ([]*models.Interface, error) {
	var ifaces []*models.Interface

	for rows.Next() {
		var i models.Interface

		err := rows.Scan(
			&i.ID, &i.DeviceID, &i.IfIndex, &i.Name, &i.Alias, &i.SpeedBps,
			&i.AdminStatus, &i.OperStatus, &i.LastChange,
			&i.IsMonitored, &i.IsWAN, &i.IsUplink, &i.CreatedAt, &i.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan interface: %w", err)
		}

		ifaces = append(ifaces, &i)
	}

	return ifaces, rows.Err()
}
