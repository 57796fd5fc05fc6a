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
	"time"

	"github.com/carverauto/netpulse/pkg/db"
	"github.com/carverauto/netpulse/pkg/models"
)

const (
	// Gen1 PDUs expose no voltage OID; apparent power assumes a
	// standard branch circuit.
	gen1AssumedVolts = 120.0

	bankNearOverloadPct = 0.8
)

// PollPDUs polls every active PDU device.
func (p *Poller) PollPDUs(ctx context.Context) error {
	devices, err := p.store.ListActiveDevicesByType(ctx, models.DeviceTypePDU)
	if err != nil {
		return fmt.Errorf("poller: list PDUs: %w", err)
	}

	for _, device := range devices {
		if err := p.PollPDU(ctx, device); err != nil {
			p.logger.Warn().Err(err).
				Str("device", device.Hostname).
				Msg("pdu poll failed")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

// PollPDU polls one PDU, preferring the Gen2 (rPDU2) tree and falling
// back to Gen1 when it is absent.
func (p *Poller) PollPDU(ctx context.Context, device *models.Device) error {
	sess, err := p.dial(device)
	if err != nil {
		p.markUnreachable(ctx, device, err)

		return fmt.Errorf("poller: dial PDU %s: %w", device.IPAddress, err)
	}
	defer sess.Close()

	result, err := p.readPDU2(sess, device)
	if err != nil {
		return err
	}

	if result == nil {
		result, err = p.readPDU1(sess, device)
		if err != nil {
			return err
		}
	}

	if result == nil {
		p.markUnreachable(ctx, device, fmt.Errorf("no rPDU2 or rPDU tree"))

		return nil
	}

	if err := p.store.SavePduPollResult(ctx, result); err != nil {
		return fmt.Errorf("poller: save PDU result for %s: %w", device.Hostname, err)
	}

	err = p.store.SaveDevicePollResult(ctx, &models.PollResult{
		DeviceID:  device.ID,
		Timestamp: result.Timestamp,
		Status:    models.DeviceStatusUp,
	})
	if err != nil {
		return fmt.Errorf("poller: update PDU snapshot for %s: %w", device.Hostname, err)
	}

	return nil
}

// readPDU2 reads the Gen2 tree. A nil result with nil error means the
// device does not expose rPDU2.
func (p *Poller) readPDU2(sess Session, device *models.Device) (*db.PduPollResult, error) {
	powerCol, err := sess.WalkColumn(oidPDU2DevicePower)
	if err != nil {
		return nil, fmt.Errorf("poller: rPDU2 device power on %s: %w", device.IPAddress, err)
	}

	if len(powerCol) == 0 {
		return nil, nil
	}

	metric := &models.PduMetric{DeviceID: device.ID, Timestamp: time.Now().UTC()}

	// Device power is reported in decawatts; sum across modules.
	for _, v := range powerCol {
		if u, ok := v.Uint64(); ok {
			metric.PowerWatts += float64(u) * 10
		}
	}

	if col, err := sess.WalkColumn(oidPDU2DeviceEnergy); err == nil {
		var kwh float64

		for _, v := range col {
			if u, ok := v.Uint64(); ok {
				kwh += float64(u) / 10
			}
		}

		if kwh > 0 {
			metric.EnergyKwh = &kwh
		}
	}

	amps := walkScaled(sess, oidPDU2PhaseCurrent, 0.1)
	volts := walkScaled(sess, oidPDU2PhaseVoltage, 1)

	assignPhases(metric, amps, volts)

	avgVolts := averageVolts(volts)
	overloadAmps := maxBankOverload(sess)

	derivePower(metric, amps, volts, overloadAmps, avgVolts)
	p.readEnvironment2(sess, metric)

	result := &db.PduPollResult{
		DeviceID:  device.ID,
		Timestamp: metric.Timestamp,
		Metric:    metric,
		Banks:     p.banks2(sess, device, avgVolts),
		Outlets:   p.outlets2(sess, device),
	}

	return result, nil
}

// maxBankOverload returns the largest configured bank overload
// threshold, used for the rated-capacity derivation.
func maxBankOverload(sess Session) float64 {
	overloads := walkScaled(sess, oidPDU2BankOverload, 1)

	var max float64

	for _, a := range overloads {
		if a > max {
			max = a
		}
	}

	return max
}

func (p *Poller) banks2(sess Session, device *models.Device, avgVolts float64) []*models.PduBank {
	currents := walkScaled(sess, oidPDU2BankCurrent, 0.1)
	overloads := walkScaled(sess, oidPDU2BankOverload, 1)

	banks := make([]*models.PduBank, 0, len(currents))

	for bank, amps := range currents {
		overload := overloads[bank]

		banks = append(banks, &models.PduBank{
			DeviceID:     device.ID,
			BankNumber:   bank,
			CurrentAmps:  amps,
			PowerWatts:   amps * avgVolts,
			OverloadAmps: overload,
			NearOverload: overload > 0 && amps >= overload*bankNearOverloadPct,
		})
	}

	return banks
}

func (p *Poller) outlets2(sess Session, device *models.Device) []*models.PduOutlet {
	states, err := sess.WalkColumn(oidPDU2OutletState)
	if err != nil {
		return nil
	}

	names, _ := sess.WalkColumn(oidPDU2OutletName)
	powers := walkScaled(sess, oidPDU2OutletPower, 1)

	outlets := make([]*models.PduOutlet, 0, len(states))

	for outlet, v := range states {
		code, _ := v.Int64()

		o := &models.PduOutlet{
			DeviceID:     device.ID,
			OutletNumber: outlet,
			State:        outlet2State(code),
		}

		if name, ok := names[outlet]; ok {
			o.Name = name.Str
		}

		if w, ok := powers[outlet]; ok {
			watts := w
			o.PowerWatts = &watts
		}

		outlets = append(outlets, o)
	}

	return outlets
}

// outlet2State maps rPDU2 outlet state codes. Metered-only outlets
// report states >= 3, which all mean energized.
func outlet2State(code int64) string {
	switch {
	case code == 1:
		return "off"
	case code >= 2:
		return "on"
	default:
		return "unknown"
	}
}

func (p *Poller) readEnvironment2(sess Session, metric *models.PduMetric) {
	statuses, err := sess.WalkColumn(oidPDU2SensorStatus)
	if err != nil {
		return
	}

	temps := walkScaled(sess, oidPDU2SensorTempC, 0.1)
	humids := walkScaled(sess, oidPDU2SensorHumid, 1)

	for sensor, v := range statuses {
		if code, _ := v.Int64(); code != 1 {
			// Sensor not ok: its readings are garbage, skip it.
			continue
		}

		if t, ok := temps[sensor]; ok && metric.TemperatureC == nil {
			temp := t
			metric.TemperatureC = &temp
		}

		if h, ok := humids[sensor]; ok && metric.HumidityPct == nil {
			hum := h
			metric.HumidityPct = &hum
		}
	}
}

// readPDU1 reads the Gen1 tree. A nil result with nil error means the
// device exposes neither generation.
func (p *Poller) readPDU1(sess Session, device *models.Device) (*db.PduPollResult, error) {
	scalars, err := sess.Get([]string{oidPDU1DevicePower})
	if err != nil {
		return nil, fmt.Errorf("poller: rPDU device power on %s: %w", device.IPAddress, err)
	}

	watts, ok := scalars[oidPDU1DevicePower].Uint64()
	if !ok {
		return nil, nil
	}

	metric := &models.PduMetric{
		DeviceID:   device.ID,
		Timestamp:  time.Now().UTC(),
		PowerWatts: float64(watts),
	}

	amps := walkScaled(sess, oidPDU1PhaseLoad, 0.1)
	volts := map[int]float64{}

	for phase := range amps {
		volts[phase] = gen1AssumedVolts
	}

	assignPhases(metric, amps, volts)

	overloads := walkScaled(sess, oidPDU1LoadOverload, 1)

	var overload float64

	for _, a := range overloads {
		if a > overload {
			overload = a
		}
	}

	derivePower(metric, amps, volts, overload, gen1AssumedVolts)

	return &db.PduPollResult{
		DeviceID:  device.ID,
		Timestamp: metric.Timestamp,
		Metric:    metric,
		Outlets:   p.outlets1(sess, device),
	}, nil
}

func (p *Poller) outlets1(sess Session, device *models.Device) []*models.PduOutlet {
	states, err := sess.WalkColumn(oidPDU1OutletState)
	if err != nil {
		return nil
	}

	names, _ := sess.WalkColumn(oidPDU1OutletName)

	outlets := make([]*models.PduOutlet, 0, len(states))

	for outlet, v := range states {
		code, _ := v.Int64()

		state := "unknown"

		switch code {
		case 1:
			state = "on"
		case 2:
			state = "off"
		}

		o := &models.PduOutlet{
			DeviceID:     device.ID,
			OutletNumber: outlet,
			State:        state,
		}

		if name, ok := names[outlet]; ok {
			o.Name = name.Str
		}

		outlets = append(outlets, o)
	}

	return outlets
}

// assignPhases fills the up-to-three phase slots in index order.
func assignPhases(metric *models.PduMetric, amps, volts map[int]float64) {
	set := func(slotAmps, slotVolts **float64, phase int) {
		if a, ok := amps[phase]; ok {
			v := a
			*slotAmps = &v
		}

		if u, ok := volts[phase]; ok {
			v := u
			*slotVolts = &v
		}
	}

	set(&metric.Phase1Amps, &metric.Phase1Volts, 1)
	set(&metric.Phase2Amps, &metric.Phase2Volts, 2)
	set(&metric.Phase3Amps, &metric.Phase3Volts, 3)
}

// derivePower computes apparent power, power factor and load against
// the rated capacity (overload threshold x avg voltage x phase count).
func derivePower(metric *models.PduMetric, amps, volts map[int]float64, overloadAmps, avgVolts float64) {
	var va float64

	for phase, a := range amps {
		v, ok := volts[phase]
		if !ok {
			v = avgVolts
		}

		va += a * v
	}

	metric.ApparentPowerVA = va

	if va > 0 {
		metric.PowerFactor = metric.PowerWatts / va
	}

	rated := overloadAmps * avgVolts * float64(len(amps))
	if rated > 0 {
		metric.LoadPct = metric.PowerWatts / rated * 100
	}
}

func averageVolts(volts map[int]float64) float64 {
	if len(volts) == 0 {
		return 0
	}

	var sum float64

	for _, v := range volts {
		sum += v
	}

	return sum / float64(len(volts))
}

// walkScaled walks a numeric column applying a unit scale factor.
func walkScaled(sess Session, oid string, scale float64) map[int]float64 {
	col, err := sess.WalkColumn(oid)
	if err != nil {
		return nil
	}

	out := make(map[int]float64, len(col))

	for idx, v := range col {
		if u, ok := v.Uint64(); ok {
			out[idx] = float64(u) * scale
		}
	}

	return out
}
