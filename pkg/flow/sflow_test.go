package flow

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netpulse/pkg/models"
)

func appendU32(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

// sampledTCPFrame serializes an Ethernet/IPv4/TCP frame like the one a
// sampling agent would capture.
func sampledTCPFrame(t *testing.T) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x1c, 0x73, 0x01, 0x02, 0x03},
		DstMAC:       net.HardwareAddr{0x00, 0x50, 0x56, 0x0a, 0x0b, 0x0c},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(172, 16, 0, 10).To4(),
		DstIP:    net.IPv4(172, 16, 0, 20).To4(),
	}
	tcp := &layers.TCP{
		SrcPort: 54321,
		DstPort: 443,
		SYN:     true,
		ACK:     true,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp))

	return buf.Bytes()
}

// rawPacketRecord wraps a frame in an sFlow raw-packet flow record.
func rawPacketRecord(frame []byte, frameLength uint32) []byte {
	var rec []byte
	rec = appendU32(rec, 1) // header protocol: ethernet
	rec = appendU32(rec, frameLength)
	rec = appendU32(rec, 4) // stripped
	rec = appendU32(rec, uint32(len(frame)))
	rec = append(rec, frame...)

	return rec
}

// flowSample wraps records in a flow sample body.
func flowSample(samplingRate uint32, records ...[]byte) []byte {
	var s []byte
	s = appendU32(s, 7) // sequence
	s = appendU32(s, 0) // source id
	s = appendU32(s, samplingRate)
	s = appendU32(s, 100000) // sample pool
	s = appendU32(s, 0)      // drops
	s = appendU32(s, 5)      // input iface
	s = appendU32(s, 6)      // output iface
	s = appendU32(s, uint32(len(records)))

	for _, rec := range records {
		s = appendU32(s, sflowRecordRawPacket)
		s = appendU32(s, uint32(len(rec)))
		s = append(s, rec...)
	}

	return s
}

// sflowDatagram assembles a v5 datagram with the given typed samples.
type typedSample struct {
	sampleType uint32
	data       []byte
}

func sflowDatagram(samples ...typedSample) []byte {
	var d []byte
	d = appendU32(d, 5)          // version
	d = appendU32(d, 1)          // agent address type: IPv4
	d = append(d, 192, 0, 2, 1)  // agent address
	d = appendU32(d, 0)          // sub-agent id
	d = appendU32(d, 42)         // sequence
	d = appendU32(d, 1000)       // uptime
	d = appendU32(d, uint32(len(samples)))

	for _, s := range samples {
		d = appendU32(d, s.sampleType)
		d = appendU32(d, uint32(len(s.data)))
		d = append(d, s.data...)
	}

	return d
}

func TestParseSflowV5ScalesBySamplingRate(t *testing.T) {
	frame := sampledTCPFrame(t)
	data := sflowDatagram(typedSample{
		sampleType: sflowSampleFlow,
		data:       flowSample(1000, rawPacketRecord(frame, 1500)),
	})

	records, err := ParseSflowV5(data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, uint64(1500*1000), rec.Bytes)
	assert.Equal(t, uint64(1000), rec.Packets)
	assert.Equal(t, "172.16.0.10", rec.SrcIP)
	assert.Equal(t, "172.16.0.20", rec.DstIP)
	assert.Equal(t, uint16(54321), rec.SrcPort)
	assert.Equal(t, uint16(443), rec.DstPort)
	assert.Equal(t, "TCP", rec.ProtocolName)
	assert.Equal(t, "HTTPS", rec.Application)
	assert.Equal(t, uint8(0x12), rec.TCPFlags) // SYN|ACK
	assert.Equal(t, models.FlowTypeSflow, rec.FlowType)
}

func TestParseSflowV5ZeroSamplingRate(t *testing.T) {
	frame := sampledTCPFrame(t)
	data := sflowDatagram(typedSample{
		sampleType: sflowSampleFlow,
		data:       flowSample(0, rawPacketRecord(frame, 900)),
	})

	records, err := ParseSflowV5(data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(900), records[0].Bytes)
	assert.Equal(t, uint64(1), records[0].Packets)
}

func TestParseSflowV5SkipsCounterSamples(t *testing.T) {
	data := sflowDatagram(typedSample{
		sampleType: sflowSampleCounters,
		data:       make([]byte, 32),
	})

	records, err := ParseSflowV5(data)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseSflowV5SkipsVendorSamples(t *testing.T) {
	data := sflowDatagram(typedSample{
		sampleType: (4300 << 12) | sflowSampleFlow,
		data:       make([]byte, 16),
	})

	records, err := ParseSflowV5(data)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseSflowV5SkipsNonEthernetHeader(t *testing.T) {
	var rec []byte
	rec = appendU32(rec, 11) // header protocol: PPP
	rec = appendU32(rec, 128)
	rec = appendU32(rec, 0)
	rec = appendU32(rec, 4)
	rec = append(rec, 0, 0, 0, 0)

	data := sflowDatagram(typedSample{
		sampleType: sflowSampleFlow,
		data:       flowSample(10, rec),
	})

	records, err := ParseSflowV5(data)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseSflowV5RejectsWrongVersion(t *testing.T) {
	var d []byte
	d = appendU32(d, 4)

	_, err := ParseSflowV5(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 4")
}

func TestParseSflowV5RejectsUnknownAgentType(t *testing.T) {
	var d []byte
	d = appendU32(d, 5)
	d = appendU32(d, 3)

	_, err := ParseSflowV5(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent address type")
}

func TestParseSflowV5RejectsTruncatedSample(t *testing.T) {
	var d []byte
	d = appendU32(d, 5)
	d = appendU32(d, 1)
	d = append(d, 192, 0, 2, 1)
	d = appendU32(d, 0)
	d = appendU32(d, 42)
	d = appendU32(d, 1000)
	d = appendU32(d, 1)
	d = appendU32(d, sflowSampleFlow)
	d = appendU32(d, 500) // claims more bytes than remain

	_, err := ParseSflowV5(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}
