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

// Package ping probes every active device with ICMP and records
// round-trip time and packet loss.
package ping

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
)

const (
	probeCount   = 3
	probeTimeout = 5 * time.Second
)

// Result is one probe outcome.
type Result struct {
	RTTMs   float64
	LossPct float64
}

// Prober sends ICMP echoes to target and summarizes the replies.
type Prober func(ctx context.Context, target string) (*Result, error)

// Store is the persistence surface of the monitor.
type Store interface {
	ListActiveDevices(ctx context.Context) ([]*models.Device, error)
	InsertPingMetric(ctx context.Context, m *models.PingMetric) error
	UpdateDevicePing(ctx context.Context, deviceID int64, rttMs, lossPct float64, reachable bool) error
}

// Monitor runs one probe per device per tick.
type Monitor struct {
	store  Store
	probe  Prober
	logger logger.Logger
}

// NewMonitor builds the monitor. A nil prober gets the ICMP default.
func NewMonitor(store Store, probe Prober, log logger.Logger) *Monitor {
	if probe == nil {
		probe = ICMPProbe
	}

	return &Monitor{
		store:  store,
		probe:  probe,
		logger: log.WithComponent("ping"),
	}
}

// Run probes all active devices. A probe failure is recorded as total
// loss; it never aborts the remaining devices.
func (m *Monitor) Run(ctx context.Context) error {
	devices, err := m.store.ListActiveDevices(ctx)
	if err != nil {
		return fmt.Errorf("ping: list devices: %w", err)
	}

	for _, device := range devices {
		m.probeDevice(ctx, device)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

func (m *Monitor) probeDevice(ctx context.Context, device *models.Device) {
	result, err := m.probe(ctx, device.IPAddress)
	if err != nil {
		m.logger.Debug().Err(err).
			Str("device", device.Hostname).
			Msg("probe failed")

		result = &Result{RTTMs: 0, LossPct: 100}
	}

	reachable := result.LossPct < 100

	metric := &models.PingMetric{
		DeviceID:      device.ID,
		RTTMs:         result.RTTMs,
		PacketLossPct: result.LossPct,
		Reachable:     reachable,
	}

	if err := m.store.InsertPingMetric(ctx, metric); err != nil {
		m.logger.Warn().Err(err).
			Str("device", device.Hostname).
			Msg("insert ping metric failed")

		return
	}

	if err := m.store.UpdateDevicePing(ctx, device.ID, result.RTTMs, result.LossPct, reachable); err != nil {
		m.logger.Warn().Err(err).
			Str("device", device.Hostname).
			Msg("update device ping failed")
	}
}

// ICMPProbe is the production prober. Privileged raw sockets match how
// the process runs in its container.
func ICMPProbe(ctx context.Context, target string) (*Result, error) {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return nil, fmt.Errorf("ping: resolve %s: %w", target, err)
	}

	pinger.Count = probeCount
	pinger.Timeout = probeTimeout
	pinger.SetPrivileged(true)

	if err := pinger.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("ping: probe %s: %w", target, err)
	}

	stats := pinger.Statistics()

	return &Result{
		RTTMs:   float64(stats.AvgRtt) / float64(time.Millisecond),
		LossPct: stats.PacketLoss,
	}, nil
}
