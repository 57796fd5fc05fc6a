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

package poller

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/netpulse/pkg/models"
)

// DiscoverTopology walks LLDP neighbor tables on all pollable devices
// and learns owned subnets from spine routing tables.
func (p *Poller) DiscoverTopology(ctx context.Context) error {
	devices, err := p.store.ListPollableDevices(ctx)
	if err != nil {
		return fmt.Errorf("poller: list devices: %w", err)
	}

	for _, device := range devices {
		if device.IsPDU() {
			continue
		}

		if err := p.discoverDeviceTopology(ctx, device); err != nil {
			p.logger.Debug().Err(err).
				Str("device", device.Hostname).
				Msg("topology discovery failed")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

func (p *Poller) discoverDeviceTopology(ctx context.Context, device *models.Device) error {
	sess, err := p.dial(device)
	if err != nil {
		return fmt.Errorf("poller: dial %s: %w", device.IPAddress, err)
	}
	defer sess.Close()

	neighbors := walkLldpNeighbors(sess, device.ID)
	if neighbors != nil {
		if err := p.store.ReplaceLldpNeighbors(ctx, device.ID, neighbors); err != nil {
			return fmt.Errorf("poller: store lldp neighbors for %s: %w", device.Hostname, err)
		}
	}

	if device.DeviceType == models.DeviceTypeSpine {
		p.learnSubnets(ctx, sess, device)
	}

	return nil
}

// walkLldpNeighbors reads the lldpRemTable. The instance suffix is
// timeMark.localPortNum.remIndex; rows are grouped by the latter two.
func walkLldpNeighbors(sess Session, deviceID int64) []*models.LldpNeighbor {
	sysNames, err := sess.WalkSuffix(oidLldpRemSysName)
	if err != nil || len(sysNames) == 0 {
		return nil
	}

	portIDs, _ := sess.WalkSuffix(oidLldpRemPortID)
	portDescs, _ := sess.WalkSuffix(oidLldpRemPortDesc)

	now := time.Now().UTC()
	neighbors := make([]*models.LldpNeighbor, 0, len(sysNames))

	for suffix, v := range sysNames {
		parts := strings.Split(suffix, ".")
		if len(parts) != 3 {
			continue
		}

		localPort, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}

		n := &models.LldpNeighbor{
			DeviceID:      deviceID,
			LocalPortNum:  localPort,
			RemoteSysName: v.Str,
			UpdatedAt:     now,
		}

		if pv, ok := portIDs[suffix]; ok {
			n.RemotePortID = pv.Str
		}

		if dv, ok := portDescs[suffix]; ok {
			n.RemotePortDesc = dv.Str
		}

		neighbors = append(neighbors, n)
	}

	return neighbors
}

// learnSubnets walks the CIDR route table and records connected
// networks as learned owned subnets. Default and host routes are
// skipped.
func (p *Poller) learnSubnets(ctx context.Context, sess Session, device *models.Device) {
	dests, err := sess.WalkSuffix(oidIPCidrRouteDest)
	if err != nil {
		return
	}

	masks, _ := sess.WalkSuffix(oidIPCidrRouteMask)

	for suffix, destVal := range dests {
		dest := destVal.Str
		if dest == "" || dest == "0.0.0.0" {
			continue
		}

		maskVal, ok := masks[suffix]
		if !ok {
			continue
		}

		mask := net.ParseIP(maskVal.Str)
		if mask == nil {
			continue
		}

		ones, bits := net.IPMask(mask.To4()).Size()
		if bits != 32 || ones == 0 || ones >= 32 {
			continue
		}

		cidr := fmt.Sprintf("%s/%d", dest, ones)

		if err := p.store.UpsertLearnedSubnet(ctx, cidr); err != nil {
			p.logger.Debug().Err(err).
				Str("device", device.Hostname).
				Str("cidr", cidr).
				Msg("subnet learn failed")
		}
	}
}
