package ping

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
)

type pingUpdate struct {
	deviceID  int64
	rttMs     float64
	lossPct   float64
	reachable bool
}

type fakePingStore struct {
	devices   []*models.Device
	listErr   error
	metrics   []*models.PingMetric
	insertErr error
	updates   []pingUpdate
}

func (f *fakePingStore) ListActiveDevices(context.Context) ([]*models.Device, error) {
	return f.devices, f.listErr
}

func (f *fakePingStore) InsertPingMetric(_ context.Context, m *models.PingMetric) error {
	if f.insertErr != nil {
		return f.insertErr
	}

	f.metrics = append(f.metrics, m)

	return nil
}

func (f *fakePingStore) UpdateDevicePing(_ context.Context, deviceID int64, rttMs, lossPct float64, reachable bool) error {
	f.updates = append(f.updates, pingUpdate{
		deviceID:  deviceID,
		rttMs:     rttMs,
		lossPct:   lossPct,
		reachable: reachable,
	})

	return nil
}

func staticProbe(result *Result, err error) Prober {
	return func(context.Context, string) (*Result, error) {
		return result, err
	}
}

func TestRunRecordsReachableDevice(t *testing.T) {
	store := &fakePingStore{
		devices: []*models.Device{{ID: 1, Hostname: "sw1", IPAddress: "10.0.0.1"}},
	}
	m := NewMonitor(store, staticProbe(&Result{RTTMs: 1.25, LossPct: 0}, nil), logger.NewTestLogger())

	require.NoError(t, m.Run(context.Background()))

	require.Len(t, store.metrics, 1)
	assert.Equal(t, int64(1), store.metrics[0].DeviceID)
	assert.InDelta(t, 1.25, store.metrics[0].RTTMs, 0.0001)
	assert.True(t, store.metrics[0].Reachable)

	require.Len(t, store.updates, 1)
	assert.True(t, store.updates[0].reachable)
}

func TestRunTotalLossMarksUnreachable(t *testing.T) {
	store := &fakePingStore{
		devices: []*models.Device{{ID: 2, Hostname: "sw2", IPAddress: "10.0.0.2"}},
	}
	m := NewMonitor(store, staticProbe(&Result{RTTMs: 0, LossPct: 100}, nil), logger.NewTestLogger())

	require.NoError(t, m.Run(context.Background()))

	require.Len(t, store.updates, 1)
	assert.False(t, store.updates[0].reachable)
	assert.Equal(t, 100.0, store.updates[0].lossPct)
}

func TestRunPartialLossStaysReachable(t *testing.T) {
	store := &fakePingStore{
		devices: []*models.Device{{ID: 3, Hostname: "sw3", IPAddress: "10.0.0.3"}},
	}
	m := NewMonitor(store, staticProbe(&Result{RTTMs: 8.4, LossPct: 33.3}, nil), logger.NewTestLogger())

	require.NoError(t, m.Run(context.Background()))

	require.Len(t, store.updates, 1)
	assert.True(t, store.updates[0].reachable)
}

func TestRunProbeErrorBecomesTotalLoss(t *testing.T) {
	store := &fakePingStore{
		devices: []*models.Device{{ID: 4, Hostname: "sw4", IPAddress: "10.0.0.4"}},
	}
	m := NewMonitor(store, staticProbe(nil, errors.New("sendto: operation not permitted")), logger.NewTestLogger())

	require.NoError(t, m.Run(context.Background()))

	require.Len(t, store.metrics, 1)
	assert.Equal(t, 100.0, store.metrics[0].PacketLossPct)
	assert.False(t, store.metrics[0].Reachable)
}

func TestRunInsertFailureSkipsDeviceUpdate(t *testing.T) {
	store := &fakePingStore{
		devices:   []*models.Device{{ID: 5, Hostname: "sw5", IPAddress: "10.0.0.5"}},
		insertErr: errors.New("pool closed"),
	}
	m := NewMonitor(store, staticProbe(&Result{RTTMs: 1, LossPct: 0}, nil), logger.NewTestLogger())

	require.NoError(t, m.Run(context.Background()))
	assert.Empty(t, store.updates)
}

func TestRunListFailure(t *testing.T) {
	store := &fakePingStore{listErr: errors.New("db down")}
	m := NewMonitor(store, nil, logger.NewTestLogger())

	require.Error(t, m.Run(context.Background()))
}
