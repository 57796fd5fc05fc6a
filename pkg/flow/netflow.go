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

package flow

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"time"

	"github.com/carverauto/netpulse/pkg/models"
)

const (
	netflowV5HeaderLen = 24
	netflowV5RecordLen = 48
)

// ParseNetflowV5 decodes one NetFlow v5 datagram into flow records.
// The exporter IP is attached by the caller; record timestamps are
// assigned at insert time.
func ParseNetflowV5(data []byte) ([]*models.FlowRecord, error) {
	if len(data) < netflowV5HeaderLen {
		return nil, fmt.Errorf("flow: netflow datagram too short: %d bytes", len(data))
	}

	version := binary.BigEndian.Uint16(data[0:2])
	if version != 5 {
		return nil, fmt.Errorf("flow: unsupported netflow version %d", version)
	}

	count := int(binary.BigEndian.Uint16(data[2:4]))

	if len(data) < netflowV5HeaderLen+count*netflowV5RecordLen {
		return nil, fmt.Errorf("flow: truncated netflow datagram: %d records, %d bytes", count, len(data))
	}

	records := make([]*models.FlowRecord, 0, count)

	for i := 0; i < count; i++ {
		r := data[netflowV5HeaderLen+i*netflowV5RecordLen:]

		srcIP := netip.AddrFrom4([4]byte(r[0:4]))
		dstIP := netip.AddrFrom4([4]byte(r[4:8]))

		packets := uint64(binary.BigEndian.Uint32(r[16:20]))
		bytes := uint64(binary.BigEndian.Uint32(r[20:24]))
		first := binary.BigEndian.Uint32(r[24:28])
		last := binary.BigEndian.Uint32(r[28:32])
		srcPort := binary.BigEndian.Uint16(r[32:34])
		dstPort := binary.BigEndian.Uint16(r[34:36])
		tcpFlags := r[37]
		protocol := r[38]

		// SysUptime counters can jitter backwards across records.
		duration := int64(last) - int64(first)
		if duration < 0 {
			duration = 0
		}

		records = append(records, &models.FlowRecord{
			SrcIP:        srcIP.String(),
			DstIP:        dstIP.String(),
			SrcPort:      srcPort,
			DstPort:      dstPort,
			Protocol:     protocol,
			ProtocolName: ProtocolName(protocol),
			Bytes:        bytes,
			Packets:      packets,
			DurationMs:   duration,
			TCPFlags:     tcpFlags,
			Application:  ApplicationName(srcPort, dstPort),
			FlowType:     models.FlowTypeNetflowV5,
		})
	}

	return records, nil
}

// nowUTC is replaceable in tests.
var nowUTC = func() time.Time { return time.Now().UTC() }
