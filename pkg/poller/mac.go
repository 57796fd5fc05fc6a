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
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/netpulse/pkg/models"
)

// ouiVendors maps the best-known OUI prefixes to vendor names. The
// table is intentionally small; unknown prefixes leave Vendor empty.
var ouiVendors = map[string]string{
	"00:1c:73": "Arista Networks",
	"28:99:3a": "Arista Networks",
	"44:4c:a8": "Arista Networks",
	"00:00:0c": "Cisco Systems",
	"00:1b:54": "Cisco Systems",
	"58:97:bd": "Cisco Systems",
	"00:09:0f": "Fortinet",
	"00:1b:17": "Palo Alto Networks",
	"00:c0:b7": "APC",
	"28:29:86": "APC",
	"00:50:56": "VMware",
	"00:1c:14": "VMware",
	"00:15:5d": "Microsoft Hyper-V",
	"52:54:00": "QEMU/KVM",
	"ac:1f:6b": "Super Micro",
	"3c:ec:ef": "Super Micro",
	"b8:59:9f": "Mellanox",
	"e4:1d:2d": "Mellanox",
	"d4:ae:52": "Dell",
	"f4:02:70": "Dell",
	"94:18:82": "Hewlett Packard Enterprise",
	"b4:96:91": "Intel",
	"a0:36:9f": "Intel",
}

// DiscoverMacs walks forwarding tables on all pollable switches and
// upserts the learned MAC entries.
func (p *Poller) DiscoverMacs(ctx context.Context) error {
	devices, err := p.store.ListPollableDevices(ctx)
	if err != nil {
		return fmt.Errorf("poller: list devices: %w", err)
	}

	for _, device := range devices {
		if device.IsPDU() {
			continue
		}

		if err := p.discoverDeviceMacs(ctx, device); err != nil {
			p.logger.Warn().Err(err).
				Str("device", device.Hostname).
				Msg("mac discovery failed")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

func (p *Poller) discoverDeviceMacs(ctx context.Context, device *models.Device) error {
	sess, err := p.dial(device)
	if err != nil {
		return fmt.Errorf("poller: dial %s: %w", device.IPAddress, err)
	}
	defer sess.Close()

	entries, err := p.walkForwardingTable(sess, device)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return nil
	}

	enrichFromARP(sess, entries)

	list := make([]*models.MacTableEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}

	if err := p.store.UpsertMacEntries(ctx, list); err != nil {
		return fmt.Errorf("poller: upsert mac entries for %s: %w", device.Hostname, err)
	}

	return nil
}

// walkForwardingTable prefers the vlan-aware Q-BRIDGE table and falls
// back to plain BRIDGE-MIB. Bridge ports are translated to ifIndex via
// dot1dBasePortIfIndex.
func (p *Poller) walkForwardingTable(sess Session, device *models.Device) (map[string]*models.MacTableEntry, error) {
	portToIfIndex, err := sess.WalkColumn(oidDot1dBasePortIfIndex)
	if err != nil {
		return nil, fmt.Errorf("poller: bridge port map on %s: %w", device.IPAddress, err)
	}

	now := time.Now().UTC()
	entries := make(map[string]*models.MacTableEntry)

	add := func(mac string, vlan *int32, bridgePort int64) {
		entry := &models.MacTableEntry{
			DeviceID:   device.ID,
			MacAddress: mac,
			VlanID:     vlan,
			Vendor:     vendorForMac(mac),
			FirstSeen:  now,
			LastSeen:   now,
		}

		if v, ok := portToIfIndex[int(bridgePort)]; ok {
			if idx, ok := v.Int64(); ok {
				ifIndex := int32(idx)
				entry.IfIndex = &ifIndex
			}
		}

		entries[mac] = entry
	}

	qbridge, err := sess.WalkSuffix(oidDot1qTpFdbPort)
	if err == nil && len(qbridge) > 0 {
		for suffix, v := range qbridge {
			vlan, mac, ok := parseQBridgeSuffix(suffix)
			if !ok {
				continue
			}

			port, _ := v.Int64()
			add(mac, &vlan, port)
		}

		return entries, nil
	}

	bridge, err := sess.WalkSuffix(oidDot1dTpFdbPort)
	if err != nil {
		return nil, fmt.Errorf("poller: fdb walk on %s: %w", device.IPAddress, err)
	}

	for suffix, v := range bridge {
		mac, ok := macFromDecimal(strings.Split(suffix, "."))
		if !ok {
			continue
		}

		port, _ := v.Int64()
		add(mac, nil, port)
	}

	return entries, nil
}

// enrichFromARP attaches IP addresses from ipNetToMediaPhysAddress.
func enrichFromARP(sess Session, entries map[string]*models.MacTableEntry) {
	arp, err := sess.WalkSuffix(oidIPNetToMediaPhys)
	if err != nil {
		return
	}

	for suffix, v := range arp {
		// Suffix is ifIndex.a.b.c.d; the value is the MAC.
		parts := strings.Split(suffix, ".")
		if len(parts) != 5 || len(v.Bytes) != 6 {
			continue
		}

		mac := formatMac(v.Bytes)

		entry, ok := entries[mac]
		if !ok {
			continue
		}

		entry.IPAddress = strings.Join(parts[1:], ".")
	}
}

// parseQBridgeSuffix splits "vlan.m1.m2.m3.m4.m5.m6".
func parseQBridgeSuffix(suffix string) (int32, string, bool) {
	parts := strings.Split(suffix, ".")
	if len(parts) != 7 {
		return 0, "", false
	}

	vlan, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", false
	}

	mac, ok := macFromDecimal(parts[1:])
	if !ok {
		return 0, "", false
	}

	return int32(vlan), mac, true
}

// macFromDecimal converts six decimal OID components to colon-hex form.
func macFromDecimal(parts []string) (string, bool) {
	if len(parts) != 6 {
		return "", false
	}

	octets := make([]byte, 6)

	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return "", false
		}

		octets[i] = byte(n)
	}

	return formatMac(octets), true
}

func formatMac(octets []byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		octets[0], octets[1], octets[2], octets[3], octets[4], octets[5])
}

func vendorForMac(mac string) string {
	if len(mac) < 8 {
		return ""
	}

	return ouiVendors[mac[:8]]
}
