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

// SNMPv2-MIB scalars.
const (
	oidSysUpTime = "1.3.6.1.2.1.1.3.0"
	oidSysName   = "1.3.6.1.2.1.1.5.0"
)

// IF-MIB ifXTable (64-bit HC counters).
const (
	oidIfName           = "1.3.6.1.2.1.31.1.1.1.1"
	oidIfHCInOctets     = "1.3.6.1.2.1.31.1.1.1.6"
	oidIfHCInUcastPkts  = "1.3.6.1.2.1.31.1.1.1.7"
	oidIfHCInMulticast  = "1.3.6.1.2.1.31.1.1.1.8"
	oidIfHCInBroadcast  = "1.3.6.1.2.1.31.1.1.1.9"
	oidIfHCOutOctets    = "1.3.6.1.2.1.31.1.1.1.10"
	oidIfHCOutUcastPkts = "1.3.6.1.2.1.31.1.1.1.11"
	oidIfHighSpeed      = "1.3.6.1.2.1.31.1.1.1.15" // Mbps
	oidIfAlias          = "1.3.6.1.2.1.31.1.1.1.18"
)

// IF-MIB ifTable (32-bit fallback).
const (
	oidIfSpeed       = "1.3.6.1.2.1.2.2.1.5"
	oidIfAdminStatus = "1.3.6.1.2.1.2.2.1.7"
	oidIfOperStatus  = "1.3.6.1.2.1.2.2.1.8"
	oidIfInOctets    = "1.3.6.1.2.1.2.2.1.10"
	oidIfInUcastPkts = "1.3.6.1.2.1.2.2.1.11"
	oidIfInDiscards  = "1.3.6.1.2.1.2.2.1.13"
	oidIfInErrors    = "1.3.6.1.2.1.2.2.1.14"
	oidIfOutOctets   = "1.3.6.1.2.1.2.2.1.16"
	oidIfOutUcast    = "1.3.6.1.2.1.2.2.1.17"
	oidIfOutDiscards = "1.3.6.1.2.1.2.2.1.19"
	oidIfOutErrors   = "1.3.6.1.2.1.2.2.1.20"
)

// Device health. HOST-RESOURCES is tried first, then the vendor trees.
const (
	oidHrProcessorLoad = "1.3.6.1.2.1.25.3.3.1.2"
	oidUcdMemTotalReal = "1.3.6.1.4.1.2021.4.5.0"
	oidUcdMemAvailReal = "1.3.6.1.4.1.2021.4.6.0"
	oidCiscoCPU5Min    = "1.3.6.1.4.1.9.9.109.1.1.1.1.8"
	oidLmTempValue     = "1.3.6.1.4.1.2021.13.16.2.1.3" // milli-degrees C
)

// BRIDGE-MIB / Q-BRIDGE-MIB forwarding tables.
const (
	oidDot1dBasePortIfIndex = "1.3.6.1.2.1.17.1.4.1.2"
	oidDot1dTpFdbPort       = "1.3.6.1.2.1.17.4.3.1.2"     // suffix: 6-octet MAC
	oidDot1qTpFdbPort       = "1.3.6.1.2.1.17.7.1.2.2.1.2" // suffix: vlan.6-octet MAC
)

// IP-MIB ARP table and IP-FORWARD-MIB routes.
const (
	oidIPNetToMediaPhys = "1.3.6.1.2.1.4.22.1.2"   // suffix: ifIndex.a.b.c.d
	oidIPCidrRouteDest  = "1.3.6.1.2.1.4.24.4.1.1" // suffix: dest.mask.tos.nexthop
	oidIPCidrRouteMask  = "1.3.6.1.2.1.4.24.4.1.2"
)

// LLDP-MIB remote systems table.
const (
	oidLldpRemPortID   = "1.0.8802.1.1.2.1.4.1.1.7"
	oidLldpRemPortDesc = "1.0.8802.1.1.2.1.4.1.1.8"
	oidLldpRemSysName  = "1.0.8802.1.1.2.1.4.1.1.9"
)

// APC PowerNet-MIB, Gen2 metered PDUs (rPDU2 tree).
const (
	oidPDU2DevicePower  = "1.3.6.1.4.1.318.1.1.26.4.3.1.5"    // decawatts
	oidPDU2DeviceEnergy = "1.3.6.1.4.1.318.1.1.26.4.3.1.9"    // tenths of kWh
	oidPDU2PhaseCurrent = "1.3.6.1.4.1.318.1.1.26.6.3.1.5"    // tenths of A
	oidPDU2PhaseVoltage = "1.3.6.1.4.1.318.1.1.26.6.3.1.6"    // V
	oidPDU2BankCurrent  = "1.3.6.1.4.1.318.1.1.26.8.3.1.5"    // tenths of A
	oidPDU2BankOverload = "1.3.6.1.4.1.318.1.1.26.8.1.1.9"    // A
	oidPDU2OutletName   = "1.3.6.1.4.1.318.1.1.26.9.2.1.1.3"
	oidPDU2OutletState  = "1.3.6.1.4.1.318.1.1.26.9.2.3.1.5"  // 1=off 2=on, metered >=3 = on
	oidPDU2OutletPower  = "1.3.6.1.4.1.318.1.1.26.9.4.3.1.7"  // W
	oidPDU2SensorStatus = "1.3.6.1.4.1.318.1.1.26.10.2.2.1.7" // 1=ok
	oidPDU2SensorTempC  = "1.3.6.1.4.1.318.1.1.26.10.2.2.1.8" // tenths of C
	oidPDU2SensorHumid  = "1.3.6.1.4.1.318.1.1.26.10.2.2.1.10"
)

// APC PowerNet-MIB, Gen1 fallback (rPDU tree).
const (
	oidPDU1DevicePower  = "1.3.6.1.4.1.318.1.1.12.1.16.0"    // W
	oidPDU1PhaseLoad    = "1.3.6.1.4.1.318.1.1.12.2.3.1.1.2" // tenths of A
	oidPDU1OutletName   = "1.3.6.1.4.1.318.1.1.12.3.5.1.1.2"
	oidPDU1OutletState  = "1.3.6.1.4.1.318.1.1.12.3.5.1.1.4" // 1=on 2=off
	oidPDU1LoadOverload = "1.3.6.1.4.1.318.1.1.12.2.2.1.1.4" // A
)

// Arista MLAG MIB (SNMP fallback when eAPI is unavailable).
const (
	oidAristaMlagDomainID  = "1.3.6.1.4.1.30065.3.13.1.1.0"
	oidAristaMlagState     = "1.3.6.1.4.1.30065.3.13.1.5.0"
	oidAristaMlagNegStatus = "1.3.6.1.4.1.30065.3.13.1.6.0"
	oidAristaMlagPeerAddr  = "1.3.6.1.4.1.30065.3.13.1.2.0"
	oidAristaMlagPeerLink  = "1.3.6.1.4.1.30065.3.13.1.3.0"
)
