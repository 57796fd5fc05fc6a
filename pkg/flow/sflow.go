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

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/carverauto/netpulse/pkg/models"
)

const (
	sflowSampleFlow         = 1
	sflowSampleCounters     = 2
	sflowSampleFlowExpanded = 3

	sflowRecordRawPacket = 1
)

// sflowReader is a bounds-checked big-endian cursor.
type sflowReader struct {
	data []byte
	off  int
}

func (r *sflowReader) uint32() (uint32, error) {
	if r.off+4 > len(r.data) {
		return 0, fmt.Errorf("flow: sflow datagram truncated at offset %d", r.off)
	}

	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4

	return v, nil
}

func (r *sflowReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, fmt.Errorf("flow: sflow datagram truncated at offset %d", r.off)
	}

	b := r.data[r.off : r.off+n]
	r.off += n

	return b, nil
}

func (r *sflowReader) skip(n int) error {
	_, err := r.bytes(n)

	return err
}

// ParseSflowV5 decodes one sFlow v5 datagram. Only enterprise-0 flow
// samples carrying raw packet headers produce records; counter samples
// are expected traffic and skipped silently.
func ParseSflowV5(data []byte) ([]*models.FlowRecord, error) {
	r := &sflowReader{data: data}

	version, err := r.uint32()
	if err != nil {
		return nil, err
	}

	if version != 5 {
		return nil, fmt.Errorf("flow: unsupported sflow version %d", version)
	}

	agentType, err := r.uint32()
	if err != nil {
		return nil, err
	}

	switch agentType {
	case 1:
		err = r.skip(4)
	case 2:
		err = r.skip(16)
	default:
		return nil, fmt.Errorf("flow: unknown sflow agent address type %d", agentType)
	}

	if err != nil {
		return nil, err
	}

	// sub-agent id, sequence, uptime
	if err := r.skip(12); err != nil {
		return nil, err
	}

	numSamples, err := r.uint32()
	if err != nil {
		return nil, err
	}

	var records []*models.FlowRecord

	for i := uint32(0); i < numSamples; i++ {
		sampleType, err := r.uint32()
		if err != nil {
			return nil, err
		}

		sampleLen, err := r.uint32()
		if err != nil {
			return nil, err
		}

		sampleData, err := r.bytes(int(sampleLen))
		if err != nil {
			return nil, err
		}

		enterprise := sampleType >> 12
		format := sampleType & 0xfff

		if enterprise != 0 {
			continue
		}

		switch format {
		case sflowSampleFlow:
			records = append(records, parseFlowSample(sampleData, false)...)
		case sflowSampleFlowExpanded:
			records = append(records, parseFlowSample(sampleData, true)...)
		default:
			// Counter samples (2/4) and vendor formats.
		}
	}

	return records, nil
}

// parseFlowSample walks one flow sample's records. Expanded samples
// carry 8-byte source and interface identifiers instead of 4-byte.
func parseFlowSample(data []byte, expanded bool) []*models.FlowRecord {
	r := &sflowReader{data: data}

	// sequence number
	if err := r.skip(4); err != nil {
		return nil
	}

	sourceIDLen := 4
	ifaceLen := 4

	if expanded {
		sourceIDLen = 8
		ifaceLen = 8
	}

	if err := r.skip(sourceIDLen); err != nil {
		return nil
	}

	samplingRate, err := r.uint32()
	if err != nil {
		return nil
	}

	// sample pool, drops, input iface, output iface
	if err := r.skip(8 + 2*ifaceLen); err != nil {
		return nil
	}

	numRecords, err := r.uint32()
	if err != nil {
		return nil
	}

	var records []*models.FlowRecord

	for i := uint32(0); i < numRecords; i++ {
		recordType, err := r.uint32()
		if err != nil {
			return records
		}

		recordLen, err := r.uint32()
		if err != nil {
			return records
		}

		recordData, err := r.bytes(int(recordLen))
		if err != nil {
			return records
		}

		enterprise := recordType >> 12
		format := recordType & 0xfff

		if enterprise != 0 || format != sflowRecordRawPacket {
			continue
		}

		if rec := parseRawPacketRecord(recordData, samplingRate); rec != nil {
			records = append(records, rec)
		}
	}

	return records
}

// parseRawPacketRecord decodes the sampled frame and scales the flow
// by the sampling rate: one sampled packet represents rate packets and
// frame_length x rate bytes on the wire.
func parseRawPacketRecord(data []byte, samplingRate uint32) *models.FlowRecord {
	r := &sflowReader{data: data}

	headerProtocol, err := r.uint32()
	if err != nil || headerProtocol != 1 { // 1 = ethernet
		return nil
	}

	frameLength, err := r.uint32()
	if err != nil {
		return nil
	}

	// stripped bytes
	if err := r.skip(4); err != nil {
		return nil
	}

	headerLen, err := r.uint32()
	if err != nil {
		return nil
	}

	header, err := r.bytes(int(headerLen))
	if err != nil {
		return nil
	}

	if samplingRate == 0 {
		samplingRate = 1
	}

	record := &models.FlowRecord{
		Bytes:    uint64(frameLength) * uint64(samplingRate),
		Packets:  uint64(samplingRate),
		FlowType: models.FlowTypeSflow,
	}

	if !decodePacketHeader(header, record) {
		return nil
	}

	record.ProtocolName = ProtocolName(record.Protocol)
	record.Application = ApplicationName(record.SrcPort, record.DstPort)

	return record
}

// decodePacketHeader fills addresses, protocol, ports and TCP flags
// from the truncated frame.
func decodePacketHeader(header []byte, record *models.FlowRecord) bool {
	packet := gopacket.NewPacket(header, layers.LayerTypeEthernet, gopacket.NoCopy)

	switch {
	case packet.Layer(layers.LayerTypeIPv4) != nil:
		ip := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		record.SrcIP = ip.SrcIP.String()
		record.DstIP = ip.DstIP.String()
		record.Protocol = uint8(ip.Protocol)
	case packet.Layer(layers.LayerTypeIPv6) != nil:
		ip := packet.Layer(layers.LayerTypeIPv6).(*layers.IPv6)
		record.SrcIP = ip.SrcIP.String()
		record.DstIP = ip.DstIP.String()
		record.Protocol = uint8(ip.NextHeader)
	default:
		return false
	}

	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp := tcpLayer.(*layers.TCP)
		record.SrcPort = uint16(tcp.SrcPort)
		record.DstPort = uint16(tcp.DstPort)
		record.TCPFlags = tcpFlagBits(tcp)
	} else if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp := udpLayer.(*layers.UDP)
		record.SrcPort = uint16(udp.SrcPort)
		record.DstPort = uint16(udp.DstPort)
	}

	return true
}

func tcpFlagBits(tcp *layers.TCP) uint8 {
	var flags uint8

	if tcp.FIN {
		flags |= 0x01
	}

	if tcp.SYN {
		flags |= 0x02
	}

	if tcp.RST {
		flags |= 0x04
	}

	if tcp.PSH {
		flags |= 0x08
	}

	if tcp.ACK {
		flags |= 0x10
	}

	if tcp.URG {
		flags |= 0x20
	}

	return flags
}
