package poller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netpulse/pkg/models"
	"github.com/carverauto/netpulse/pkg/snmp"
)

func TestParseQBridgeSuffix(t *testing.T) {
	vlan, mac, ok := parseQBridgeSuffix("100.0.28.115.1.2.3")
	require.True(t, ok)
	assert.Equal(t, int32(100), vlan)
	assert.Equal(t, "00:1c:73:01:02:03", mac)

	_, _, ok = parseQBridgeSuffix("0.28.115.1.2.3")
	assert.False(t, ok)
}

func TestMacFromDecimal(t *testing.T) {
	mac, ok := macFromDecimal([]string{"222", "173", "190", "239", "0", "1"})
	require.True(t, ok)
	assert.Equal(t, "de:ad:be:ef:00:01", mac)

	_, ok = macFromDecimal([]string{"300", "0", "0", "0", "0", "0"})
	assert.False(t, ok)
}

func TestVendorForMac(t *testing.T) {
	assert.Equal(t, "Arista Networks", vendorForMac("00:1c:73:01:02:03"))
	assert.Empty(t, vendorForMac("ff:ff:ff:00:00:00"))
}

func TestDiscoverDeviceMacsQBridge(t *testing.T) {
	store := newFakeStore()
	sess := &fakeSession{
		columns: map[string]map[int]snmp.Value{
			oidDot1dBasePortIfIndex: {5: integer(49)},
		},
		trees: map[string]map[string]snmp.Value{
			oidDot1qTpFdbPort: {
				"100.0.28.115.1.2.3": integer(5),
			},
			oidIPNetToMediaPhys: {
				"49.10.0.0.42": {Kind: snmp.KindOctetString, Bytes: []byte{0x00, 0x1c, 0x73, 0x01, 0x02, 0x03}},
			},
		},
	}

	device := &models.Device{ID: 7, Hostname: "sw1", IPAddress: "10.0.0.1"}

	err := newTestPoller(store, sess).discoverDeviceMacs(context.Background(), device)
	require.NoError(t, err)

	require.Len(t, store.savedMacs, 1)
	entry := store.savedMacs[0]

	assert.Equal(t, "00:1c:73:01:02:03", entry.MacAddress)
	require.NotNil(t, entry.VlanID)
	assert.Equal(t, int32(100), *entry.VlanID)
	require.NotNil(t, entry.IfIndex)
	assert.Equal(t, int32(49), *entry.IfIndex)
	assert.Equal(t, "10.0.0.42", entry.IPAddress)
	assert.Equal(t, "Arista Networks", entry.Vendor)
}

func TestDiscoverDeviceMacsBridgeFallback(t *testing.T) {
	store := newFakeStore()
	sess := &fakeSession{
		columns: map[string]map[int]snmp.Value{
			oidDot1dBasePortIfIndex: {2: integer(10)},
		},
		trees: map[string]map[string]snmp.Value{
			oidDot1dTpFdbPort: {
				"222.173.190.239.0.1": integer(2),
			},
		},
	}

	device := &models.Device{ID: 8, Hostname: "sw2", IPAddress: "10.0.0.2"}

	err := newTestPoller(store, sess).discoverDeviceMacs(context.Background(), device)
	require.NoError(t, err)

	require.Len(t, store.savedMacs, 1)
	assert.Equal(t, "de:ad:be:ef:00:01", store.savedMacs[0].MacAddress)
	assert.Nil(t, store.savedMacs[0].VlanID)
}
