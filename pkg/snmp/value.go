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

package snmp

import (
	"fmt"
	"net"

	"github.com/gosnmp/gosnmp"
)

// Kind discriminates the typed value container. Parsing once into a
// variant keeps "not present" distinct from "timeout" and "malformed"
// for callers.
type Kind int

const (
	KindAbsent Kind = iota // noSuchObject / noSuchInstance / endOfMibView / null
	KindCounter
	KindGauge
	KindInteger
	KindTimeTicks
	KindOctetString
	KindObjectID
	KindIPAddress
)

// Value is one decoded varbind.
type Value struct {
	Kind  Kind
	Uint  uint64
	Int   int64
	Str   string
	Bytes []byte
}

// Present reports whether the agent returned an actual value.
func (v Value) Present() bool {
	return v.Kind != KindAbsent
}

// Uint64 returns the numeric value for counter/gauge/integer/timeticks
// kinds.
func (v Value) Uint64() (uint64, bool) {
	switch v.Kind {
	case KindCounter, KindGauge, KindTimeTicks:
		return v.Uint, true
	case KindInteger:
		if v.Int < 0 {
			return 0, false
		}

		return uint64(v.Int), true
	default:
		return 0, false
	}
}

// Int64 returns the signed numeric value where meaningful.
func (v Value) Int64() (int64, bool) {
	switch v.Kind {
	case KindInteger:
		return v.Int, true
	case KindCounter, KindGauge, KindTimeTicks:
		return int64(v.Uint), true
	default:
		return 0, false
	}
}

// String returns the textual form of string-like kinds.
func (v Value) String() string {
	switch v.Kind {
	case KindOctetString, KindObjectID, KindIPAddress:
		return v.Str
	default:
		return fmt.Sprintf("%d", v.Uint)
	}
}

// decodeValue maps a gosnmp PDU into the typed container.
func decodeValue(pdu gosnmp.SnmpPDU) Value {
	switch pdu.Type {
	case gosnmp.Counter32, gosnmp.Counter64:
		return Value{Kind: KindCounter, Uint: gosnmp.ToBigInt(pdu.Value).Uint64()}
	case gosnmp.Gauge32, gosnmp.Uinteger32:
		return Value{Kind: KindGauge, Uint: gosnmp.ToBigInt(pdu.Value).Uint64()}
	case gosnmp.Integer:
		return Value{Kind: KindInteger, Int: gosnmp.ToBigInt(pdu.Value).Int64()}
	case gosnmp.TimeTicks:
		return Value{Kind: KindTimeTicks, Uint: gosnmp.ToBigInt(pdu.Value).Uint64()}
	case gosnmp.OctetString:
		raw, _ := pdu.Value.([]byte)

		return Value{Kind: KindOctetString, Str: string(raw), Bytes: raw}
	case gosnmp.ObjectIdentifier:
		str, _ := pdu.Value.(string)

		return Value{Kind: KindObjectID, Str: str}
	case gosnmp.IPAddress:
		str, _ := pdu.Value.(string)
		if ip := net.ParseIP(str); ip != nil {
			str = ip.String()
		}

		return Value{Kind: KindIPAddress, Str: str}
	default:
		return Value{Kind: KindAbsent}
	}
}
