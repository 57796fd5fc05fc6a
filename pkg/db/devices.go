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

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/netpulse/pkg/models"
)

const selectDeviceColumns = `
	id, hostname, ip_address, device_type,
	snmp_version, snmp_community, snmp_port,
	snmp_v3_user, snmp_v3_auth_proto, snmp_v3_auth_pass,
	snmp_v3_priv_proto, snmp_v3_priv_pass,
	api_username, api_password,
	status, uptime_seconds, cpu_usage, memory_usage,
	rtt_ms, packet_loss_pct, last_seen,
	is_active, polling_enabled, flow_enabled,
	created_at, updated_at`

// ListPollableDevices returns active devices with polling enabled.
// Soft-deleted devices never reach any scheduler.
func (s *Store) ListPollableDevices(ctx context.Context) ([]*models.Device, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectDeviceColumns+`
		FROM devices WHERE is_active AND polling_enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list pollable devices: %w", err)
	}
	defer rows.Close()

	return scanDevices(rows)
}

// ListActiveDevices returns every active device, including ones with
// polling disabled. The ping monitor probes all of them.
func (s *Store) ListActiveDevices(ctx context.Context) ([]*models.Device, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectDeviceColumns+`
		FROM devices WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active devices: %w", err)
	}
	defer rows.Close()

	return scanDevices(rows)
}

// ListActiveDevicesByType returns active devices of one type.
func (s *Store) ListActiveDevicesByType(ctx context.Context, deviceType string) ([]*models.Device, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectDeviceColumns+`
		FROM devices WHERE is_active AND device_type = $1 ORDER BY id`, deviceType)
	if err != nil {
		return nil, fmt.Errorf("list devices by type: %w", err)
	}
	defer rows.Close()

	return scanDevices(rows)
}

// GetDeviceByIP resolves a device from an exporter or probe address.
func (s *Store) GetDeviceByIP(ctx context.Context, ip string) (*models.Device, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectDeviceColumns+`
		FROM devices WHERE ip_address = $1`, ip)

	device, err := scanDevice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get device by ip: %w", err)
	}

	return device, nil
}

// MarkDeviceDown records a failed poll: status down, last_seen now.
func (s *Store) MarkDeviceDown(ctx context.Context, deviceID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE devices
		SET status = 'down', last_seen = $2, updated_at = $2
		WHERE id = $1`, deviceID, nowUTC())
	if err != nil {
		return fmt.Errorf("mark device down: %w", err)
	}

	return nil
}

// UpdateDevicePing stores the latest ICMP probe outcome on the device row.
func (s *Store) UpdateDevicePing(ctx context.Context, deviceID int64, rttMs, lossPct float64, reachable bool) error {
	status := models.DeviceStatusUp
	if !reachable {
		status = models.DeviceStatusDown
	}

	_, err := s.pool.Exec(ctx, `UPDATE devices
		SET rtt_ms = $2, packet_loss_pct = $3, status = $4, last_seen = $5, updated_at = $5
		WHERE id = $1`, deviceID, rttMs, lossPct, status, nowUTC())
	if err != nil {
		return fmt.Errorf("update device ping: %w", err)
	}

	return nil
}

func scanDevices(rows pgx.Rows) ([]*models.Device, error) {
	var devices []*models.Device

	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}

		devices = append(devices, device)
	}

	return devices, rows.Err()
}

func scanDevice(row pgx.Row) (*models.Device, error) {
	var d models.Device

	err := row.Scan(
		&d.ID, &d.Hostname, &d.IPAddress, &d.DeviceType,
		&d.SNMPVersion, &d.SNMPCommunity, &d.SNMPPort,
		&d.SNMPV3User, &d.SNMPV3AuthProto, &d.SNMPV3AuthPass,
		&d.SNMPV3PrivProto, &d.SNMPV3PrivPass,
		&d.APIUsername, &d.APIPassword,
		&d.Status, &d.UptimeSeconds, &d.CPUUsage, &d.MemoryUsage,
		&d.RTTMs, &d.PacketLossPct, &d.LastSeen,
		&d.IsActive, &d.PollingEnabled, &d.FlowEnabled,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &d, nil
}
