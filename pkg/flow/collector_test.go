package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
)

type fakeFlowStore struct {
	devicesByIP map[string]*models.Device
	inserted    [][]*models.FlowRecord
	insertErr   error
}

func (f *fakeFlowStore) GetDeviceByIP(_ context.Context, ip string) (*models.Device, error) {
	if d, ok := f.devicesByIP[ip]; ok {
		return d, nil
	}

	return nil, errors.New("no such device")
}

func (f *fakeFlowStore) InsertFlowRecords(_ context.Context, records []*models.FlowRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}

	f.inserted = append(f.inserted, records)

	return nil
}

func newTestCollector(store *fakeFlowStore) *Collector {
	return NewCollector(store, nil, 2055, 6343, logger.NewTestLogger())
}

func TestHandleDatagramAttributesExporter(t *testing.T) {
	fixed := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	orig := nowUTC
	nowUTC = func() time.Time { return fixed }

	defer func() { nowUTC = orig }()

	store := &fakeFlowStore{
		devicesByIP: map[string]*models.Device{
			"192.0.2.1": {ID: 7, IPAddress: "192.0.2.1"},
		},
	}
	c := newTestCollector(store)

	data := buildNetflowV5(5, 1, netflowRecord(
		[4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2},
		10, 1500, 500, 900, 443, 54321, 0, 6,
	))

	c.handleDatagram(context.Background(), "192.0.2.1", data, ParseNetflowV5)

	require.Len(t, store.inserted, 1)
	require.Len(t, store.inserted[0], 1)

	rec := store.inserted[0][0]
	require.NotNil(t, rec.DeviceID)
	assert.Equal(t, int64(7), *rec.DeviceID)
	assert.Equal(t, "192.0.2.1", rec.ExporterIP)
	assert.Equal(t, fixed, rec.Timestamp)
	assert.Equal(t, uint64(1), c.received.Load())
}

func TestHandleDatagramUnknownExporter(t *testing.T) {
	store := &fakeFlowStore{}
	c := newTestCollector(store)

	data := buildNetflowV5(5, 1, netflowRecord(
		[4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2},
		1, 100, 0, 0, 1, 2, 0, 6,
	))

	c.handleDatagram(context.Background(), "203.0.113.9", data, ParseNetflowV5)

	require.Len(t, store.inserted, 1)
	assert.Nil(t, store.inserted[0][0].DeviceID)
	assert.Equal(t, "203.0.113.9", store.inserted[0][0].ExporterIP)
}

func TestHandleDatagramParseFailure(t *testing.T) {
	store := &fakeFlowStore{}
	c := newTestCollector(store)

	for i := 0; i < 5; i++ {
		c.handleDatagram(context.Background(), "192.0.2.1", []byte{0xde, 0xad}, ParseNetflowV5)
	}

	assert.Empty(t, store.inserted)
	assert.Equal(t, uint64(5), c.parseErrs.Load())
	assert.Equal(t, 5, c.errsBySource["192.0.2.1"])
}

func TestHandleDatagramEmptyParseResult(t *testing.T) {
	store := &fakeFlowStore{}
	c := newTestCollector(store)

	c.handleDatagram(context.Background(), "192.0.2.1", buildNetflowV5(5, 0), ParseNetflowV5)

	assert.Empty(t, store.inserted)
	assert.Equal(t, uint64(0), c.parseErrs.Load())
}

func TestHandleDatagramInsertFailureDoesNotPanic(t *testing.T) {
	store := &fakeFlowStore{insertErr: errors.New("db down")}
	c := newTestCollector(store)

	data := buildNetflowV5(5, 1, netflowRecord(
		[4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2},
		1, 100, 0, 0, 1, 2, 0, 6,
	))

	c.handleDatagram(context.Background(), "192.0.2.1", data, ParseNetflowV5)

	assert.Empty(t, store.inserted)
}

func TestCollectorStartStop(t *testing.T) {
	store := &fakeFlowStore{}
	c := NewCollector(store, nil, 0, 0, logger.NewTestLogger())

	require.NoError(t, c.Start(context.Background()))
	c.Stop()
}
