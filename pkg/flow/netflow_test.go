package flow

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netpulse/pkg/models"
)

// buildNetflowV5 assembles a datagram from raw record slices.
func buildNetflowV5(version, count uint16, records ...[]byte) []byte {
	data := make([]byte, netflowV5HeaderLen)
	binary.BigEndian.PutUint16(data[0:2], version)
	binary.BigEndian.PutUint16(data[2:4], count)

	for _, r := range records {
		data = append(data, r...)
	}

	return data
}

func netflowRecord(src, dst [4]byte, packets, bytes, first, last uint32, srcPort, dstPort uint16, tcpFlags, protocol byte) []byte {
	r := make([]byte, netflowV5RecordLen)
	copy(r[0:4], src[:])
	copy(r[4:8], dst[:])
	binary.BigEndian.PutUint32(r[16:20], packets)
	binary.BigEndian.PutUint32(r[20:24], bytes)
	binary.BigEndian.PutUint32(r[24:28], first)
	binary.BigEndian.PutUint32(r[28:32], last)
	binary.BigEndian.PutUint16(r[32:34], srcPort)
	binary.BigEndian.PutUint16(r[34:36], dstPort)
	r[37] = tcpFlags
	r[38] = protocol

	return r
}

func TestParseNetflowV5SingleRecord(t *testing.T) {
	data := buildNetflowV5(5, 1, netflowRecord(
		[4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2},
		10, 1500, 500, 900, 443, 54321, 0x18, 6,
	))

	records, err := ParseNetflowV5(data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "10.0.0.1", rec.SrcIP)
	assert.Equal(t, "10.0.0.2", rec.DstIP)
	assert.Equal(t, uint16(443), rec.SrcPort)
	assert.Equal(t, uint16(54321), rec.DstPort)
	assert.Equal(t, uint8(6), rec.Protocol)
	assert.Equal(t, "TCP", rec.ProtocolName)
	assert.Equal(t, "HTTPS", rec.Application)
	assert.Equal(t, uint64(1500), rec.Bytes)
	assert.Equal(t, uint64(10), rec.Packets)
	assert.Equal(t, int64(400), rec.DurationMs)
	assert.Equal(t, uint8(0x18), rec.TCPFlags)
	assert.Equal(t, models.FlowTypeNetflowV5, rec.FlowType)
}

func TestParseNetflowV5MultipleRecords(t *testing.T) {
	data := buildNetflowV5(5, 2,
		netflowRecord([4]byte{192, 168, 1, 1}, [4]byte{8, 8, 8, 8}, 1, 64, 0, 0, 51000, 53, 0, 17),
		netflowRecord([4]byte{192, 168, 1, 2}, [4]byte{1, 1, 1, 1}, 4, 320, 100, 250, 52000, 80, 0x02, 6),
	)

	records, err := ParseNetflowV5(data)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "DNS", records[0].Application)
	assert.Equal(t, "UDP", records[0].ProtocolName)
	assert.Equal(t, "HTTP", records[1].Application)
	assert.Equal(t, int64(150), records[1].DurationMs)
}

func TestParseNetflowV5ClampsNegativeDuration(t *testing.T) {
	data := buildNetflowV5(5, 1, netflowRecord(
		[4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2},
		1, 100, 900, 500, 1, 2, 0, 6,
	))

	records, err := ParseNetflowV5(data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(0), records[0].DurationMs)
}

func TestParseNetflowV5RejectsWrongVersion(t *testing.T) {
	data := buildNetflowV5(9, 0)

	_, err := ParseNetflowV5(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 9")
}

func TestParseNetflowV5RejectsTruncated(t *testing.T) {
	_, err := ParseNetflowV5([]byte{0, 5})
	require.Error(t, err)

	// Header claims two records but carries none.
	_, err = ParseNetflowV5(buildNetflowV5(5, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestParseNetflowV5EmptyDatagram(t *testing.T) {
	records, err := ParseNetflowV5(buildNetflowV5(5, 0))
	require.NoError(t, err)
	assert.Empty(t, records)
}
