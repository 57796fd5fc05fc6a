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

// Flow record source pipelines.
const (
	FlowTypeNetflowV5 = "netflow_v5"
	FlowTypeSflow     = "sflow"
)

// FlowRecord is a single observed flow. DeviceID is nil when the
// exporter IP matched no known device; the flow is kept regardless.
type FlowRecord struct {
	ID        int64     `json:"id"`
	DeviceID  *int64    `json:"device_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	SrcIP   string `json:"src_ip"`
	DstIP   string `json:"dst_ip"`
	SrcPort uint16 `json:"src_port"`
	DstPort uint16 `json:"dst_port"`

	Protocol     uint8  `json:"protocol"`
	ProtocolName string `json:"protocol_name"`

	Bytes      uint64 `json:"bytes"`
	Packets    uint64 `json:"packets"`
	DurationMs int64  `json:"duration_ms"`
	TCPFlags   uint8  `json:"tcp_flags"`

	Application string `json:"application,omitempty"`
	FlowType    string `json:"flow_type"`

	SrcCountry string `json:"src_country,omitempty"`
	DstCountry string `json:"dst_country,omitempty"`

	ExporterIP string `json:"exporter_ip"`
}

// FlowSummary5m is a pre-aggregated flow row. Bucket is always
// floor(epoch/300)*300; the row is keyed uniquely by (bucket, device,
// 5-tuple, application).
type FlowSummary5m struct {
	ID       int64     `json:"id"`
	Bucket   time.Time `json:"bucket"`
	DeviceID *int64    `json:"device_id,omitempty"`

	SrcIP        string `json:"src_ip"`
	DstIP        string `json:"dst_ip"`
	SrcPort      uint16 `json:"src_port"`
	DstPort      uint16 `json:"dst_port"`
	ProtocolName string `json:"protocol_name"`
	Application  string `json:"application,omitempty"`

	Bytes     uint64 `json:"bytes"`
	Packets   uint64 `json:"packets"`
	FlowCount uint64 `json:"flow_count"`
}
