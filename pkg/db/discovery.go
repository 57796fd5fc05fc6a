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

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/netpulse/pkg/models"
)

// UpsertMacEntries records MAC discovery results, keyed on
// (device_id, mac_address), bumping last_seen on rediscovery.
func (s *Store) UpsertMacEntries(ctx context.Context, entries []*models.MacTableEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := nowUTC()

	for _, e := range entries {
		batch.Queue(`INSERT INTO mac_table_entries
			(device_id, mac_address, if_index, vlan_id, ip_address, vendor, first_seen, last_seen)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
			ON CONFLICT (device_id, mac_address) DO UPDATE SET
				if_index = COALESCE(EXCLUDED.if_index, mac_table_entries.if_index),
				vlan_id = COALESCE(EXCLUDED.vlan_id, mac_table_entries.vlan_id),
				ip_address = CASE WHEN EXCLUDED.ip_address <> '' THEN EXCLUDED.ip_address ELSE mac_table_entries.ip_address END,
				vendor = CASE WHEN EXCLUDED.vendor <> '' THEN EXCLUDED.vendor ELSE mac_table_entries.vendor END,
				last_seen = EXCLUDED.last_seen`,
			e.DeviceID, e.MacAddress, e.IfIndex, e.VlanID, e.IPAddress, e.Vendor, now)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert mac entry %d: %w", i+1, err)
		}
	}

	return nil
}

// ReplaceMlagDomain upserts the MLAG domain for a device and replaces
// its interface children wholesale.
func (s *Store) ReplaceMlagDomain(ctx context.Context, domain *models.MlagDomain, ifaces []*models.MlagInterface) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var mlagID int64

		err := tx.QueryRow(ctx, `INSERT INTO mlag_domains
			(device_id, domain_id, state, neg_status, peer_address, peer_link, ports_active, ports_errored, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (device_id) DO UPDATE SET
				domain_id = EXCLUDED.domain_id,
				state = EXCLUDED.state,
				neg_status = EXCLUDED.neg_status,
				peer_address = EXCLUDED.peer_address,
				peer_link = EXCLUDED.peer_link,
				ports_active = EXCLUDED.ports_active,
				ports_errored = EXCLUDED.ports_errored,
				updated_at = EXCLUDED.updated_at
			RETURNING id`,
			domain.DeviceID, domain.DomainID, domain.State, domain.NegStatus,
			domain.PeerAddress, domain.PeerLink, domain.PortsActive, domain.PortsErrored,
			nowUTC()).Scan(&mlagID)
		if err != nil {
			return fmt.Errorf("upsert mlag domain: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM mlag_interfaces WHERE mlag_id = $1`, mlagID); err != nil {
			return fmt.Errorf("clear mlag interfaces: %w", err)
		}

		for _, iface := range ifaces {
			_, err := tx.Exec(ctx, `INSERT INTO mlag_interfaces
				(mlag_id, local_port, peer_port, status, local_state, remote_state)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				mlagID, iface.LocalPort, iface.PeerPort, iface.Status,
				iface.LocalState, iface.RemoteState)
			if err != nil {
				return fmt.Errorf("insert mlag interface: %w", err)
			}
		}

		return nil
	})
}

// DeleteMlagDomain removes the domain (and cascaded children) when a
// discovery run observes no MLAG on the device.
func (s *Store) DeleteMlagDomain(ctx context.Context, deviceID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM mlag_domains WHERE device_id = $1`, deviceID)
	if err != nil {
		return fmt.Errorf("delete mlag domain: %w", err)
	}

	return nil
}

// ReplaceLldpNeighbors swaps the LLDP neighbor set for a device.
func (s *Store) ReplaceLldpNeighbors(ctx context.Context, deviceID int64, neighbors []*models.LldpNeighbor) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM lldp_neighbors WHERE device_id = $1`, deviceID); err != nil {
			return fmt.Errorf("clear lldp neighbors: %w", err)
		}

		now := nowUTC()

		for _, n := range neighbors {
			_, err := tx.Exec(ctx, `INSERT INTO lldp_neighbors
				(device_id, local_port_num, remote_sys_name, remote_port_id, remote_port_desc, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				deviceID, n.LocalPortNum, n.RemoteSysName, n.RemotePortID, n.RemotePortDesc, now)
			if err != nil {
				return fmt.Errorf("insert lldp neighbor: %w", err)
			}
		}

		return nil
	})
}

// UpsertLearnedSubnet records a route learned from a spine device. A
// pre-existing manual row for the same CIDR wins and is left untouched.
func (s *Store) UpsertLearnedSubnet(ctx context.Context, cidr string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO owned_subnets (cidr, source, is_active)
		VALUES ($1, 'learned', TRUE)
		ON CONFLICT (cidr) DO NOTHING`, cidr)
	if err != nil {
		return fmt.Errorf("upsert learned subnet: %w", err)
	}

	return nil
}

// ListOwnedSubnets returns active owned subnets for flow direction
// labelling.
func (s *Store) ListOwnedSubnets(ctx context.Context) ([]*models.OwnedSubnet, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, cidr, source, is_active, created_at
		FROM owned_subnets WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list owned subnets: %w", err)
	}
	defer rows.Close()

	var subnets []*models.OwnedSubnet

	for rows.Next() {
		var sub models.OwnedSubnet
		if err := rows.Scan(&sub.ID, &sub.CIDR, &sub.Source, &sub.IsActive, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan owned subnet: %w", err)
		}

		subnets = append(subnets, &sub)
	}

	return subnets, rows.Err()
}

// DueBackupSchedules returns the device ids whose backup should run at
// the given hour and minute. Devices with their own schedule row use
// it; the global row (device_id NULL) applies only to the rest.
func (s *Store) DueBackupSchedules(ctx context.Context, hour, minute int) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id FROM devices d
		JOIN backup_schedules bs ON bs.device_id = d.id
		WHERE d.is_active AND bs.enabled AND bs.hour = $1 AND bs.minute = $2
		UNION
		SELECT d.id FROM devices d
		WHERE d.is_active
		  AND NOT EXISTS (SELECT 1 FROM backup_schedules o WHERE o.device_id = d.id)
		  AND EXISTS (
			SELECT 1 FROM backup_schedules g
			WHERE g.device_id IS NULL AND g.enabled AND g.hour = $1 AND g.minute = $2
		  )`, hour, minute)
	if err != nil {
		return nil, fmt.Errorf("due backup schedules: %w", err)
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan due backup device: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}
