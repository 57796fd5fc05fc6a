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

// Device type classification.
const (
	DeviceTypeSpine        = "spine"
	DeviceTypeLeaf         = "leaf"
	DeviceTypeTor          = "tor"
	DeviceTypeSwitch       = "switch"
	DeviceTypeAccess       = "access"
	DeviceTypeDistribution = "distribution"
	DeviceTypeCore         = "core"
	DeviceTypeRouter       = "router"
	DeviceTypeFirewall     = "firewall"
	DeviceTypePDU          = "pdu"
)

// Device health snapshot states.
const (
	DeviceStatusUp       = "up"
	DeviceStatusDown     = "down"
	DeviceStatusDegraded = "degraded"
	DeviceStatusUnknown  = "unknown"
)

// Device is a monitored network element. Soft-deleted devices
// (IsActive=false) are excluded from all schedulers but retained for
// historical joins.
type Device struct {
	ID         int64  `json:"id"`
	Hostname   string `json:"hostname"`
	IPAddress  string `json:"ip_address"`
	DeviceType string `json:"device_type"`

	// SNMP credentials. Version is "2c" or "3"; v3 fields are unused
	// for v2c devices.
	SNMPVersion     string `json:"snmp_version"`
	SNMPCommunity   string `json:"snmp_community,omitempty"`
	SNMPPort        int    `json:"snmp_port"`
	SNMPV3User      string `json:"snmp_v3_user,omitempty"`
	SNMPV3AuthProto string `json:"snmp_v3_auth_proto,omitempty"`
	SNMPV3AuthPass  string `json:"-"`
	SNMPV3PrivProto string `json:"snmp_v3_priv_proto,omitempty"`
	SNMPV3PrivPass  string `json:"-"`

	// Optional device API credentials (eAPI/SSH); password is stored
	// encrypted at rest.
	APIUsername string `json:"api_username,omitempty"`
	APIPassword string `json:"-"`

	Status        string     `json:"status"`
	UptimeSeconds *int64     `json:"uptime_seconds,omitempty"`
	CPUUsage      *float64   `json:"cpu_usage,omitempty"`
	MemoryUsage   *float64   `json:"memory_usage,omitempty"`
	RTTMs         *float64   `json:"rtt_ms,omitempty"`
	PacketLossPct *float64   `json:"packet_loss_pct,omitempty"`
	LastSeen      *time.Time `json:"last_seen,omitempty"`

	IsActive       bool `json:"is_active"`
	PollingEnabled bool `json:"polling_enabled"`
	FlowEnabled    bool `json:"flow_enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPDU reports whether the device follows the PDU polling path.
func (d *Device) IsPDU() bool {
	return d.DeviceType == DeviceTypePDU
}

// Interface is a port on a Device. IfIndex may be nil for manually
// created interfaces; it is the sole key used to match SNMP rediscovery.
type Interface struct {
	ID       int64  `json:"id"`
	DeviceID int64  `json:"device_id"`
	IfIndex  *int32 `json:"if_index,omitempty"`

	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`

	// SpeedBps is the negotiated speed in bits per second.
	SpeedBps    int64      `json:"speed_bps"`
	AdminStatus string     `json:"admin_status"`
	OperStatus  string     `json:"oper_status"`
	LastChange  *time.Time `json:"last_change,omitempty"`

	IsMonitored bool `json:"is_monitored"`
	IsWAN       bool `json:"is_wan"`
	IsUplink    bool `json:"is_uplink"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PortStateChange is an append-only oper_status transition, used for
// flap detection.
type PortStateChange struct {
	ID          int64     `json:"id"`
	InterfaceID int64     `json:"interface_id"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	ChangedAt   time.Time `json:"changed_at"`
}

// OwnedSubnet is a CIDR considered "ours" for labelling flow direction.
type OwnedSubnet struct {
	ID        int64     `json:"id"`
	CIDR      string    `json:"cidr"`
	Source    string    `json:"source"` // learned | manual
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// MacTableEntry is a learned MAC address on a device port, enriched
// with ARP and OUI vendor data.
type MacTableEntry struct {
	ID         int64     `json:"id"`
	DeviceID   int64     `json:"device_id"`
	MacAddress string    `json:"mac_address"`
	IfIndex    *int32    `json:"if_index,omitempty"`
	VlanID     *int32    `json:"vlan_id,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	Vendor     string    `json:"vendor,omitempty"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

// LldpNeighbor is one remote system seen on a local port. Rows are
// replaced wholesale per device on each discovery run.
type LldpNeighbor struct {
	ID             int64     `json:"id"`
	DeviceID       int64     `json:"device_id"`
	LocalPortNum   int       `json:"local_port_num"`
	RemoteSysName  string    `json:"remote_sys_name"`
	RemotePortID   string    `json:"remote_port_id"`
	RemotePortDesc string    `json:"remote_port_desc,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MlagDomain is the MLAG pairing state of a switch.
type MlagDomain struct {
	ID           int64     `json:"id"`
	DeviceID     int64     `json:"device_id"`
	DomainID     string    `json:"domain_id"`
	State        string    `json:"state"`
	NegStatus    string    `json:"neg_status"`
	PeerAddress  string    `json:"peer_address,omitempty"`
	PeerLink     string    `json:"peer_link,omitempty"`
	PortsActive  int       `json:"ports_active"`
	PortsErrored int       `json:"ports_errored"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MlagInterface is one port-channel inside an MLAG domain. Children are
// replaced wholesale on each discovery run.
type MlagInterface struct {
	ID          int64  `json:"id"`
	MlagID      int64  `json:"mlag_id"`
	LocalPort   string `json:"local_port"`
	PeerPort    string `json:"peer_port,omitempty"`
	Status      string `json:"status"`
	LocalState  string `json:"local_state,omitempty"`
	RemoteState string `json:"remote_state,omitempty"`
}

// BackupSchedule drives the config_backup job. DeviceID nil means the
// global fallback schedule, applied to devices without a row of their
// own.
type BackupSchedule struct {
	ID       int64  `json:"id"`
	DeviceID *int64 `json:"device_id,omitempty"`
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Enabled  bool   `json:"enabled"`
}
