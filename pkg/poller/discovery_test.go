package poller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netpulse/pkg/models"
	"github.com/carverauto/netpulse/pkg/snmp"
)

func TestDiscoverDeviceTopology(t *testing.T) {
	store := newFakeStore()
	sess := &fakeSession{
		trees: map[string]map[string]snmp.Value{
			oidLldpRemSysName: {
				"0.49.1": octets("spine-01"),
				"0.50.1": octets("spine-02"),
			},
			oidLldpRemPortID: {
				"0.49.1": octets("Ethernet1"),
			},
			oidIPCidrRouteDest: {
				"10.20.0.0.255.255.255.0.0.10.0.0.1": {Kind: snmp.KindIPAddress, Str: "10.20.0.0"},
				"0.0.0.0.0.0.0.0.0.10.0.0.1":         {Kind: snmp.KindIPAddress, Str: "0.0.0.0"},
			},
			oidIPCidrRouteMask: {
				"10.20.0.0.255.255.255.0.0.10.0.0.1": {Kind: snmp.KindIPAddress, Str: "255.255.255.0"},
				"0.0.0.0.0.0.0.0.0.10.0.0.1":         {Kind: snmp.KindIPAddress, Str: "0.0.0.0"},
			},
		},
	}

	device := &models.Device{ID: 4, Hostname: "spine-01", IPAddress: "10.0.0.4", DeviceType: models.DeviceTypeSpine}

	err := newTestPoller(store, sess).discoverDeviceTopology(context.Background(), device)
	require.NoError(t, err)

	require.Len(t, store.savedLldp, 2)

	byPort := map[int]*models.LldpNeighbor{}
	for _, n := range store.savedLldp {
		byPort[n.LocalPortNum] = n
	}

	assert.Equal(t, "spine-01", byPort[49].RemoteSysName)
	assert.Equal(t, "Ethernet1", byPort[49].RemotePortID)
	assert.Equal(t, "spine-02", byPort[50].RemoteSysName)

	// The default route is not an owned subnet.
	assert.Equal(t, []string{"10.20.0.0/24"}, store.savedSubnets)
}

func TestLearnSubnetsSkipsNonSpines(t *testing.T) {
	store := newFakeStore()
	sess := &fakeSession{
		trees: map[string]map[string]snmp.Value{
			oidIPCidrRouteDest: {
				"10.30.0.0.255.255.0.0.0.10.0.0.1": {Kind: snmp.KindIPAddress, Str: "10.30.0.0"},
			},
			oidIPCidrRouteMask: {
				"10.30.0.0.255.255.0.0.0.10.0.0.1": {Kind: snmp.KindIPAddress, Str: "255.255.0.0"},
			},
		},
	}

	device := &models.Device{ID: 5, Hostname: "leaf-01", IPAddress: "10.0.0.5", DeviceType: models.DeviceTypeLeaf}

	err := newTestPoller(store, sess).discoverDeviceTopology(context.Background(), device)
	require.NoError(t, err)

	assert.Empty(t, store.savedSubnets)
}
