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

// Package poller implements SNMP device polling: interface counters,
// device health, PDU power, MAC/ARP discovery and MLAG state.
package poller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/carverauto/netpulse/pkg/db"
	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
	"github.com/carverauto/netpulse/pkg/snmp"
)

const (
	flapWindow    = 10 * time.Minute
	flapThreshold = 5
)

// Session is the slice of the SNMP client the pollers consume.
type Session interface {
	Get(oids []string) (map[string]snmp.Value, error)
	WalkColumn(columnOID string) (map[int]snmp.Value, error)
	WalkSuffix(baseOID string) (map[string]snmp.Value, error)
	Close()
}

// Dialer opens a connected session for one device.
type Dialer func(device *models.Device) (Session, error)

// Store is the persistence surface the pollers write through.
type Store interface {
	ListPollableDevices(ctx context.Context) ([]*models.Device, error)
	ListActiveDevicesByType(ctx context.Context, deviceType string) ([]*models.Device, error)
	ListMonitoredInterfaces(ctx context.Context, deviceID int64) ([]*models.Interface, error)
	UpsertDiscoveredInterfaces(ctx context.Context, deviceID int64, rows []*db.DiscoveredInterface) error
	LatestInterfaceMetric(ctx context.Context, interfaceID int64) (*models.InterfaceMetric, error)
	SaveDevicePollResult(ctx context.Context, result *models.PollResult) error
	SavePduPollResult(ctx context.Context, result *db.PduPollResult) error
	CountRecentPortStateChanges(ctx context.Context, interfaceID int64, window time.Duration) (int, error)
	UpsertMacEntries(ctx context.Context, entries []*models.MacTableEntry) error
	ReplaceMlagDomain(ctx context.Context, domain *models.MlagDomain, ifaces []*models.MlagInterface) error
	DeleteMlagDomain(ctx context.Context, deviceID int64) error
	ReplaceLldpNeighbors(ctx context.Context, deviceID int64, neighbors []*models.LldpNeighbor) error
	UpsertLearnedSubnet(ctx context.Context, cidr string) error
	AppendSystemEvent(ctx context.Context, event *models.SystemEvent)
}

// Poller polls devices over SNMP and persists the samples.
type Poller struct {
	store  Store
	dial   Dialer
	eapi   EAPIClient
	logger logger.Logger

	defaultCommunity string
}

// New builds a Poller. eapi may be nil; MLAG discovery then uses the
// SNMP fallback only.
func New(store Store, dial Dialer, eapi EAPIClient, defaultCommunity string, log logger.Logger) *Poller {
	if dial == nil {
		dial = SNMPDialer(defaultCommunity)
	}

	return &Poller{
		store:            store,
		dial:             dial,
		eapi:             eapi,
		logger:           log.WithComponent("poller"),
		defaultCommunity: defaultCommunity,
	}
}

// SNMPDialer returns the production Dialer backed by gosnmp.
func SNMPDialer(defaultCommunity string) Dialer {
	return func(device *models.Device) (Session, error) {
		community := device.SNMPCommunity
		if community == "" {
			community = defaultCommunity
		}

		client, err := snmp.NewClient(snmp.ClientConfig{
			Target:        device.IPAddress,
			Port:          uint16(device.SNMPPort),
			Version:       device.SNMPVersion,
			Community:     community,
			SecurityName:  device.SNMPV3User,
			SecurityLevel: v3SecurityLevel(device),
			AuthProtocol:  device.SNMPV3AuthProto,
			AuthPassword:  device.SNMPV3AuthPass,
			PrivProtocol:  device.SNMPV3PrivProto,
			PrivPassword:  device.SNMPV3PrivPass,
		})
		if err != nil {
			return nil, err
		}

		if err := client.Connect(); err != nil {
			return nil, err
		}

		return client, nil
	}
}

func v3SecurityLevel(device *models.Device) string {
	switch {
	case device.SNMPV3PrivPass != "":
		return "authPriv"
	case device.SNMPV3AuthPass != "":
		return "authNoPriv"
	default:
		return "noAuthNoPriv"
	}
}

// PollAll polls every pollable non-PDU device in sequence. A failing
// device never aborts its siblings.
func (p *Poller) PollAll(ctx context.Context) error {
	devices, err := p.store.ListPollableDevices(ctx)
	if err != nil {
		return fmt.Errorf("poller: list devices: %w", err)
	}

	for _, device := range devices {
		if device.IsPDU() {
			continue
		}

		if err := p.PollDevice(ctx, device); err != nil {
			p.logger.Warn().Err(err).
				Str("device", device.Hostname).
				Str("ip", device.IPAddress).
				Msg("device poll failed")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

// PollDevice runs one full poll cycle for a device and commits the
// result in a single transaction.
func (p *Poller) PollDevice(ctx context.Context, device *models.Device) error {
	sess, err := p.dial(device)
	if err != nil {
		p.markUnreachable(ctx, device, err)

		return fmt.Errorf("poller: dial %s: %w", device.IPAddress, err)
	}
	defer sess.Close()

	scalars, err := sess.Get([]string{oidSysUpTime, oidSysName})
	if err != nil {
		p.markUnreachable(ctx, device, err)

		return fmt.Errorf("poller: sysUpTime %s: %w", device.IPAddress, err)
	}

	uptimeTicks, ok := scalars[oidSysUpTime].Uint64()
	if !ok {
		// Agent answered but exposes no uptime: treat as down.
		p.markUnreachable(ctx, device, errors.New("sysUpTime absent"))

		return nil
	}

	uptimeSecs := int64(uptimeTicks / 100)
	rebooted := device.UptimeSeconds != nil && uptimeSecs < *device.UptimeSeconds

	result := &models.PollResult{
		DeviceID:      device.ID,
		Timestamp:     time.Now().UTC(),
		Status:        models.DeviceStatusUp,
		SysName:       scalars[oidSysName].String(),
		UptimeSeconds: &uptimeSecs,
	}

	p.collectHealth(sess, result)

	samples, err := p.walkCounters(sess)
	if err != nil {
		p.logger.Warn().Err(err).Str("device", device.Hostname).Msg("counter walk failed")
	}

	// Upsert walked rows first so a newly seen port is pollable in the
	// same cycle.
	p.syncInterfaces(ctx, device, samples)

	ifaces, err := p.store.ListMonitoredInterfaces(ctx, device.ID)
	if err != nil {
		return fmt.Errorf("poller: list interfaces for %s: %w", device.Hostname, err)
	}

	for _, iface := range ifaces {
		if iface.IfIndex == nil {
			continue
		}

		sample, ok := samples[int(*iface.IfIndex)]
		if !ok {
			continue
		}

		metric := p.buildMetric(ctx, iface, sample, result.Timestamp, rebooted)
		result.Metrics = append(result.Metrics, metric)

		if sample.operStatus != "" && sample.operStatus != iface.OperStatus {
			result.OperStatusChanges = append(result.OperStatusChanges, &models.PortStateChange{
				InterfaceID: iface.ID,
				OldStatus:   iface.OperStatus,
				NewStatus:   sample.operStatus,
				ChangedAt:   result.Timestamp,
			})
		}
	}

	if err := p.store.SaveDevicePollResult(ctx, result); err != nil {
		p.store.AppendSystemEvent(ctx, &models.SystemEvent{
			Level:        models.EventLevelWarning,
			Source:       "snmp_poll",
			EventType:    "poll_save_failed",
			Message:      fmt.Sprintf("device %s: %v", device.Hostname, err),
			ResourceType: "device",
			ResourceID:   &device.ID,
		})

		return fmt.Errorf("poller: save result for %s: %w", device.Hostname, err)
	}

	p.checkFlaps(ctx, device, result.OperStatusChanges)

	return nil
}

// ifSample is one walked row across the counter columns.
type ifSample struct {
	inOctets    uint64
	outOctets   uint64
	inPackets   uint64
	outPackets  uint64
	inErrors    uint64
	outErrors   uint64
	inDiscards  uint64
	outDiscards uint64
	inBroadcast uint64
	inMulticast uint64
	operStatus  string
	speedBps    int64

	name        string
	alias       string
	adminStatus string
}

// walkCounters reads the HC counter table and falls back to the 32-bit
// table when the device exposes no HC rows.
func (p *Poller) walkCounters(sess Session) (map[int]*ifSample, error) {
	samples := make(map[int]*ifSample)

	row := func(idx int) *ifSample {
		s, ok := samples[idx]
		if !ok {
			s = &ifSample{}
			samples[idx] = s
		}

		return s
	}

	hcIn, err := sess.WalkColumn(oidIfHCInOctets)
	if err != nil {
		return nil, err
	}

	if len(hcIn) > 0 {
		for idx, v := range hcIn {
			row(idx).inOctets, _ = v.Uint64()
		}

		fill := func(oid string, set func(*ifSample, uint64)) {
			col, err := sess.WalkColumn(oid)
			if err != nil {
				return
			}

			for idx, v := range col {
				if u, ok := v.Uint64(); ok {
					set(row(idx), u)
				}
			}
		}

		fill(oidIfHCOutOctets, func(s *ifSample, u uint64) { s.outOctets = u })
		fill(oidIfHCInUcastPkts, func(s *ifSample, u uint64) { s.inPackets = u })
		fill(oidIfHCOutUcastPkts, func(s *ifSample, u uint64) { s.outPackets = u })
		fill(oidIfHCInBroadcast, func(s *ifSample, u uint64) { s.inBroadcast = u })
		fill(oidIfHCInMulticast, func(s *ifSample, u uint64) { s.inMulticast = u })
		fill(oidIfInErrors, func(s *ifSample, u uint64) { s.inErrors = u })
		fill(oidIfOutErrors, func(s *ifSample, u uint64) { s.outErrors = u })
		fill(oidIfInDiscards, func(s *ifSample, u uint64) { s.inDiscards = u })
		fill(oidIfOutDiscards, func(s *ifSample, u uint64) { s.outDiscards = u })

		if speeds, err := sess.WalkColumn(oidIfHighSpeed); err == nil {
			for idx, v := range speeds {
				if mbps, ok := v.Uint64(); ok {
					row(idx).speedBps = int64(mbps) * 1_000_000
				}
			}
		}
	} else {
		fill := func(oid string, set func(*ifSample, uint64)) {
			col, err := sess.WalkColumn(oid)
			if err != nil {
				return
			}

			for idx, v := range col {
				if u, ok := v.Uint64(); ok {
					set(row(idx), u)
				}
			}
		}

		fill(oidIfInOctets, func(s *ifSample, u uint64) { s.inOctets = u })
		fill(oidIfOutOctets, func(s *ifSample, u uint64) { s.outOctets = u })
		fill(oidIfInUcastPkts, func(s *ifSample, u uint64) { s.inPackets = u })
		fill(oidIfOutUcast, func(s *ifSample, u uint64) { s.outPackets = u })
		fill(oidIfInErrors, func(s *ifSample, u uint64) { s.inErrors = u })
		fill(oidIfOutErrors, func(s *ifSample, u uint64) { s.outErrors = u })
		fill(oidIfInDiscards, func(s *ifSample, u uint64) { s.inDiscards = u })
		fill(oidIfOutDiscards, func(s *ifSample, u uint64) { s.outDiscards = u })

		if speeds, err := sess.WalkColumn(oidIfSpeed); err == nil {
			for idx, v := range speeds {
				if bps, ok := v.Uint64(); ok {
					row(idx).speedBps = int64(bps)
				}
			}
		}
	}

	if oper, err := sess.WalkColumn(oidIfOperStatus); err == nil {
		for idx, v := range oper {
			if code, ok := v.Int64(); ok {
				row(idx).operStatus = operStatusName(int(code))
			}
		}
	}

	if admin, err := sess.WalkColumn(oidIfAdminStatus); err == nil {
		for idx, v := range admin {
			if code, ok := v.Int64(); ok {
				row(idx).adminStatus = operStatusName(int(code))
			}
		}
	}

	if names, err := sess.WalkColumn(oidIfName); err == nil {
		for idx, v := range names {
			row(idx).name = v.String()
		}
	}

	if aliases, err := sess.WalkColumn(oidIfAlias); err == nil {
		for idx, v := range aliases {
			row(idx).alias = v.String()
		}
	}

	return samples, nil
}

// syncInterfaces mirrors the walked rows into the interfaces table so a
// fresh device grows its rows without manual seeding. if_index is the
// sole rediscovery key; renames and renumbered ports update in place.
func (p *Poller) syncInterfaces(ctx context.Context, device *models.Device, samples map[int]*ifSample) {
	if len(samples) == 0 {
		return
	}

	rows := make([]*db.DiscoveredInterface, 0, len(samples))

	for idx, sample := range samples {
		admin := sample.adminStatus
		if admin == "" {
			admin = "unknown"
		}

		rows = append(rows, &db.DiscoveredInterface{
			IfIndex:     int32(idx),
			Name:        sample.name,
			Alias:       sample.alias,
			SpeedBps:    sample.speedBps,
			AdminStatus: admin,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].IfIndex < rows[j].IfIndex })

	if err := p.store.UpsertDiscoveredInterfaces(ctx, device.ID, rows); err != nil {
		p.logger.Warn().Err(err).Str("device", device.Hostname).Msg("interface sync failed")
	}
}

// buildMetric derives rates from the previous stored sample.
func (p *Poller) buildMetric(ctx context.Context, iface *models.Interface, sample *ifSample, now time.Time, rebooted bool) *models.InterfaceMetric {
	metric := &models.InterfaceMetric{
		InterfaceID: iface.ID,
		Timestamp:   now,
		InOctets:    sample.inOctets,
		OutOctets:   sample.outOctets,
		InPackets:   sample.inPackets,
		OutPackets:  sample.outPackets,
		InErrors:    sample.inErrors,
		OutErrors:   sample.outErrors,
		InDiscards:  sample.inDiscards,
		OutDiscards: sample.outDiscards,
		InBroadcast: sample.inBroadcast,
		InMulticast: sample.inMulticast,
	}

	prev, err := p.store.LatestInterfaceMetric(ctx, iface.ID)
	if errors.Is(err, db.ErrNotFound) {
		return metric
	}

	if err != nil {
		p.logger.Warn().Err(err).Int64("interface_id", iface.ID).Msg("previous sample lookup failed")

		return metric
	}

	speedBps := sample.speedBps
	if speedBps == 0 {
		speedBps = iface.SpeedBps
	}

	applyRates(metric, prev, now, speedBps, rebooted)

	return metric
}

// applyRates computes bps/pps/utilization from the delta against the
// previous sample. A wrapped HC counter is corrected once; on reboot
// the sample keeps zero rates rather than a spurious spike.
func applyRates(metric, prev *models.InterfaceMetric, now time.Time, speedBps int64, rebooted bool) {
	deltaSecs := now.Sub(prev.Timestamp).Seconds()
	if deltaSecs <= 0 {
		return
	}

	inDelta := counterDelta(prev.InOctets, metric.InOctets, rebooted)
	outDelta := counterDelta(prev.OutOctets, metric.OutOctets, rebooted)
	inPkts := counterDelta(prev.InPackets, metric.InPackets, rebooted)
	outPkts := counterDelta(prev.OutPackets, metric.OutPackets, rebooted)

	metric.InBps = float64(inDelta) * 8 / deltaSecs
	metric.OutBps = float64(outDelta) * 8 / deltaSecs
	metric.PpsIn = float64(inPkts) / deltaSecs
	metric.PpsOut = float64(outPkts) / deltaSecs

	if speedBps > 0 {
		metric.UtilizationIn = math.Min(100, metric.InBps/float64(speedBps)*100)
		metric.UtilizationOut = math.Min(100, metric.OutBps/float64(speedBps)*100)
	}
}

// counterDelta corrects a single 64-bit wrap. When the device rebooted
// the counter restarted from zero, so a negative delta means "unknown",
// not "wrapped" — the sample gets a zero delta.
func counterDelta(prev, cur uint64, rebooted bool) uint64 {
	if cur >= prev {
		return cur - prev
	}

	if rebooted {
		return 0
	}

	return cur + (math.MaxUint64 - prev) + 1
}

func operStatusName(code int) string {
	switch code {
	case 1:
		return "up"
	case 2:
		return "down"
	case 3:
		return "testing"
	case 4:
		return "unknown"
	case 5:
		return "dormant"
	case 6:
		return "notPresent"
	case 7:
		return "lowerLayerDown"
	default:
		return "unknown"
	}
}

// collectHealth reads CPU, memory and temperature best-effort; absent
// MIBs leave the fields nil.
func (p *Poller) collectHealth(sess Session, result *models.PollResult) {
	if loads, err := sess.WalkColumn(oidHrProcessorLoad); err == nil && len(loads) > 0 {
		var sum, n float64

		for _, v := range loads {
			if u, ok := v.Uint64(); ok {
				sum += float64(u)
				n++
			}
		}

		if n > 0 {
			cpu := sum / n
			result.CPUUsage = &cpu
		}
	}

	if result.CPUUsage == nil {
		if loads, err := sess.WalkColumn(oidCiscoCPU5Min); err == nil {
			for _, v := range loads {
				if u, ok := v.Uint64(); ok {
					cpu := float64(u)
					result.CPUUsage = &cpu

					break
				}
			}
		}
	}

	if mem, err := sess.Get([]string{oidUcdMemTotalReal, oidUcdMemAvailReal}); err == nil {
		total, okT := mem[oidUcdMemTotalReal].Uint64()
		avail, okA := mem[oidUcdMemAvailReal].Uint64()

		if okT && okA && total > 0 {
			used := float64(total-avail) / float64(total) * 100
			result.MemoryUsage = &used
		}
	}

	if temps, err := sess.WalkColumn(oidLmTempValue); err == nil && len(temps) > 0 {
		var max float64

		for _, v := range temps {
			if u, ok := v.Uint64(); ok {
				if c := float64(u) / 1000; c > max {
					max = c
				}
			}
		}

		if max > 0 {
			result.Temperature = &max
		}
	}
}

// markUnreachable records a down snapshot and a warning event.
func (p *Poller) markUnreachable(ctx context.Context, device *models.Device, cause error) {
	err := p.store.SaveDevicePollResult(ctx, &models.PollResult{
		DeviceID:  device.ID,
		Timestamp: time.Now().UTC(),
		Status:    models.DeviceStatusDown,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("device", device.Hostname).Msg("failed to mark device down")
	}

	p.store.AppendSystemEvent(ctx, &models.SystemEvent{
		Level:        models.EventLevelWarning,
		Source:       "snmp_poll",
		EventType:    "device_unreachable",
		Message:      fmt.Sprintf("device %s (%s): %v", device.Hostname, device.IPAddress, cause),
		ResourceType: "device",
		ResourceID:   &device.ID,
	})
}

// checkFlaps flags interfaces whose oper_status changed more than five
// times in the trailing ten minutes.
func (p *Poller) checkFlaps(ctx context.Context, device *models.Device, changes []*models.PortStateChange) {
	for _, change := range changes {
		count, err := p.store.CountRecentPortStateChanges(ctx, change.InterfaceID, flapWindow)
		if err != nil {
			continue
		}

		if count > flapThreshold {
			p.store.AppendSystemEvent(ctx, &models.SystemEvent{
				Level:        models.EventLevelWarning,
				Source:       "snmp_poll",
				EventType:    "interface_flapping",
				Message:      fmt.Sprintf("device %s interface %d: %d state changes in %s", device.Hostname, change.InterfaceID, count, flapWindow),
				ResourceType: "interface",
				ResourceID:   &change.InterfaceID,
			})
		}
	}
}
