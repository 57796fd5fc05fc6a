package poller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netpulse/pkg/models"
	"github.com/carverauto/netpulse/pkg/snmp"
)

func TestPollPDUGen2(t *testing.T) {
	store := newFakeStore()
	sess := &fakeSession{
		columns: map[string]map[int]snmp.Value{
			oidPDU2DevicePower:  {1: gauge(288)}, // 2880 W
			oidPDU2DeviceEnergy: {1: gauge(1234)},
			oidPDU2PhaseCurrent: {1: gauge(120), 2: gauge(80)}, // 12.0 A, 8.0 A
			oidPDU2PhaseVoltage: {1: gauge(208), 2: gauge(208)},
			oidPDU2BankCurrent:  {1: gauge(100), 2: gauge(100)},
			oidPDU2BankOverload: {1: gauge(16), 2: gauge(16)},
			oidPDU2OutletState:  {1: integer(2), 2: integer(1), 3: integer(5)},
			oidPDU2OutletName:   {1: octets("web-01"), 2: octets("spare")},
			oidPDU2OutletPower:  {1: gauge(250)},
			oidPDU2SensorStatus: {1: integer(1), 2: integer(2)},
			oidPDU2SensorTempC:  {1: gauge(245), 2: gauge(990)}, // second sensor faulted
			oidPDU2SensorHumid:  {1: gauge(45)},
		},
	}

	device := &models.Device{ID: 11, Hostname: "pdu-a1", IPAddress: "10.1.0.5", DeviceType: models.DeviceTypePDU}

	err := newTestPoller(store, sess).PollPDU(context.Background(), device)
	require.NoError(t, err)

	require.Len(t, store.savedPdus, 1)
	result := store.savedPdus[0]
	metric := result.Metric

	assert.Equal(t, 2880.0, metric.PowerWatts)
	require.NotNil(t, metric.EnergyKwh)
	assert.InDelta(t, 123.4, *metric.EnergyKwh, 0.001)

	require.NotNil(t, metric.Phase1Amps)
	assert.Equal(t, 12.0, *metric.Phase1Amps)
	require.NotNil(t, metric.Phase2Volts)
	assert.Equal(t, 208.0, *metric.Phase2Volts)
	assert.Nil(t, metric.Phase3Amps)

	// VA = 12*208 + 8*208 = 4160; PF = 2880/4160.
	assert.InDelta(t, 4160.0, metric.ApparentPowerVA, 0.001)
	assert.InDelta(t, 2880.0/4160.0, metric.PowerFactor, 0.0001)

	// Rated = 16 A x 208 V x 2 phases = 6656 W.
	assert.InDelta(t, 2880.0/6656.0*100, metric.LoadPct, 0.001)

	// Faulted sensor 2 is ignored.
	require.NotNil(t, metric.TemperatureC)
	assert.InDelta(t, 24.5, *metric.TemperatureC, 0.001)
	require.NotNil(t, metric.HumidityPct)
	assert.Equal(t, 45.0, *metric.HumidityPct)

	require.Len(t, result.Banks, 2)

	for _, bank := range result.Banks {
		assert.Equal(t, 10.0, bank.CurrentAmps)
		assert.Equal(t, 16.0, bank.OverloadAmps)
		// 10 A is below the 12.8 A near-overload line.
		assert.False(t, bank.NearOverload)
	}

	require.Len(t, result.Outlets, 3)

	states := map[int]string{}
	for _, o := range result.Outlets {
		states[o.OutletNumber] = o.State
	}

	assert.Equal(t, "on", states[1])
	assert.Equal(t, "off", states[2])
	// Metered-only outlets report states >= 3, all energized.
	assert.Equal(t, "on", states[3])

	// The device snapshot is marked up alongside.
	require.Len(t, store.savedPolls, 1)
	assert.Equal(t, models.DeviceStatusUp, store.savedPolls[0].Status)
}

func TestPollPDUFallsBackToGen1(t *testing.T) {
	store := newFakeStore()
	sess := &fakeSession{
		scalars: map[string]snmp.Value{
			oidPDU1DevicePower: gauge(1200),
		},
		columns: map[string]map[int]snmp.Value{
			oidPDU1PhaseLoad:    {1: gauge(100)}, // 10.0 A
			oidPDU1LoadOverload: {1: gauge(16)},
			oidPDU1OutletState:  {1: integer(1), 2: integer(2)},
			oidPDU1OutletName:   {1: octets("db-01")},
		},
	}

	device := &models.Device{ID: 12, Hostname: "pdu-b1", IPAddress: "10.1.0.6", DeviceType: models.DeviceTypePDU}

	err := newTestPoller(store, sess).PollPDU(context.Background(), device)
	require.NoError(t, err)

	require.Len(t, store.savedPdus, 1)
	metric := store.savedPdus[0].Metric

	assert.Equal(t, 1200.0, metric.PowerWatts)
	require.NotNil(t, metric.Phase1Volts)
	assert.Equal(t, gen1AssumedVolts, *metric.Phase1Volts)
	assert.InDelta(t, 1200.0, metric.ApparentPowerVA, 0.001) // 10 A x 120 V
	assert.InDelta(t, 1.0, metric.PowerFactor, 0.0001)

	states := map[int]string{}
	for _, o := range store.savedPdus[0].Outlets {
		states[o.OutletNumber] = o.State
	}

	// Gen1 state codes are inverted relative to Gen2.
	assert.Equal(t, "on", states[1])
	assert.Equal(t, "off", states[2])
}

func TestPollPDUNeitherTree(t *testing.T) {
	store := newFakeStore()
	sess := &fakeSession{}

	device := &models.Device{ID: 13, Hostname: "pdu-c1", IPAddress: "10.1.0.7", DeviceType: models.DeviceTypePDU}

	err := newTestPoller(store, sess).PollPDU(context.Background(), device)
	require.NoError(t, err)

	assert.Empty(t, store.savedPdus)
	require.Len(t, store.savedPolls, 1)
	assert.Equal(t, models.DeviceStatusDown, store.savedPolls[0].Status)
}

func TestOutlet2State(t *testing.T) {
	assert.Equal(t, "off", outlet2State(1))
	assert.Equal(t, "on", outlet2State(2))
	assert.Equal(t, "on", outlet2State(5))
	assert.Equal(t, "unknown", outlet2State(0))
}

func TestDerivePowerZeroGuards(t *testing.T) {
	metric := &models.PduMetric{PowerWatts: 500}

	derivePower(metric, nil, nil, 0, 0)

	assert.Zero(t, metric.ApparentPowerVA)
	assert.Zero(t, metric.PowerFactor)
	assert.Zero(t, metric.LoadPct)
}
