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

// InterfaceMetric is one time-series sample for an interface. Raw HC
// counters are stored alongside the rates derived from the immediately
// prior sample; a row may carry zero rates when no prior sample exists.
type InterfaceMetric struct {
	ID          int64     `json:"id"`
	InterfaceID int64     `json:"interface_id"`
	Timestamp   time.Time `json:"timestamp"`

	InOctets    uint64 `json:"in_octets"`
	OutOctets   uint64 `json:"out_octets"`
	InPackets   uint64 `json:"in_packets"`
	OutPackets  uint64 `json:"out_packets"`
	InErrors    uint64 `json:"in_errors"`
	OutErrors   uint64 `json:"out_errors"`
	InDiscards  uint64 `json:"in_discards"`
	OutDiscards uint64 `json:"out_discards"`
	InBroadcast uint64 `json:"in_broadcast"`
	InMulticast uint64 `json:"in_multicast"`

	InBps          float64 `json:"in_bps"`
	OutBps         float64 `json:"out_bps"`
	UtilizationIn  float64 `json:"utilization_in"`
	UtilizationOut float64 `json:"utilization_out"`
	PpsIn          float64 `json:"pps_in"`
	PpsOut         float64 `json:"pps_out"`
}

// DeviceMetric is a device-level health sample (CPU, memory, temperature).
type DeviceMetric struct {
	ID          int64     `json:"id"`
	DeviceID    int64     `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	CPUUsage    *float64  `json:"cpu_usage,omitempty"`
	MemoryUsage *float64  `json:"memory_usage,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	UptimeSecs  *int64    `json:"uptime_seconds,omitempty"`
}

// PingMetric is one ICMP probe result for a device.
type PingMetric struct {
	ID            int64     `json:"id"`
	DeviceID      int64     `json:"device_id"`
	Timestamp     time.Time `json:"timestamp"`
	RTTMs         float64   `json:"rtt_ms"`
	PacketLossPct float64   `json:"packet_loss_pct"`
	Reachable     bool      `json:"reachable"`
}
