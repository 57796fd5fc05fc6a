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

package models

import "time"

// PduMetric is a device-level power sample for a PDU.
type PduMetric struct {
	ID        int64     `json:"id"`
	DeviceID  int64     `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`

	PowerWatts      float64  `json:"power_watts"`
	EnergyKwh       *float64 `json:"energy_kwh,omitempty"`
	ApparentPowerVA float64  `json:"apparent_power_va"`
	PowerFactor     float64  `json:"power_factor"`
	LoadPct         float64  `json:"load_pct"`

	// Up to three phases; absent phases are nil.
	Phase1Amps  *float64 `json:"phase1_amps,omitempty"`
	Phase2Amps  *float64 `json:"phase2_amps,omitempty"`
	Phase3Amps  *float64 `json:"phase3_amps,omitempty"`
	Phase1Volts *float64 `json:"phase1_volts,omitempty"`
	Phase2Volts *float64 `json:"phase2_volts,omitempty"`
	Phase3Volts *float64 `json:"phase3_volts,omitempty"`

	// Environmental readings, present only while the sensor status OID
	// reports ok.
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	HumidityPct  *float64 `json:"humidity_pct,omitempty"`
}

// PduBank is the current state of one load bank, upserted on
// (device_id, bank_number).
type PduBank struct {
	ID           int64     `json:"id"`
	DeviceID     int64     `json:"device_id"`
	BankNumber   int       `json:"bank_number"`
	CurrentAmps  float64   `json:"current_amps"`
	PowerWatts   float64   `json:"power_watts"`
	OverloadAmps float64   `json:"overload_amps"`
	NearOverload bool      `json:"near_overload"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PduBankMetric is a time-series sample for one bank.
type PduBankMetric struct {
	ID          int64     `json:"id"`
	DeviceID    int64     `json:"device_id"`
	BankNumber  int       `json:"bank_number"`
	Timestamp   time.Time `json:"timestamp"`
	CurrentAmps float64   `json:"current_amps"`
	PowerWatts  float64   `json:"power_watts"`
}

// PduOutlet is the current state of one outlet, upserted on
// (device_id, outlet_number).
type PduOutlet struct {
	ID           int64     `json:"id"`
	DeviceID     int64     `json:"device_id"`
	OutletNumber int       `json:"outlet_number"`
	Name         string    `json:"name,omitempty"`
	State        string    `json:"state"` // on | off | unknown
	PowerWatts   *float64  `json:"power_watts,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
