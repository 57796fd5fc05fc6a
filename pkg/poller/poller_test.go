package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netpulse/pkg/db"
	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
	"github.com/carverauto/netpulse/pkg/snmp"
)

// fakeSession serves canned scalar and walk results.
type fakeSession struct {
	scalars map[string]snmp.Value
	columns map[string]map[int]snmp.Value
	trees   map[string]map[string]snmp.Value
	getErr  error
}

func (f *fakeSession) Get(oids []string) (map[string]snmp.Value, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	out := make(map[string]snmp.Value, len(oids))

	for _, oid := range oids {
		if v, ok := f.scalars[oid]; ok {
			out[oid] = v
		} else {
			out[oid] = snmp.Value{Kind: snmp.KindAbsent}
		}
	}

	return out, nil
}

func (f *fakeSession) WalkColumn(oid string) (map[int]snmp.Value, error) {
	col, ok := f.columns[oid]
	if !ok {
		return map[int]snmp.Value{}, nil
	}

	return col, nil
}

func (f *fakeSession) WalkSuffix(oid string) (map[string]snmp.Value, error) {
	tree, ok := f.trees[oid]
	if !ok {
		return map[string]snmp.Value{}, nil
	}

	return tree, nil
}

func (f *fakeSession) Close() {}

// fakeStore records writes and serves canned reads.
type fakeStore struct {
	devices     []*models.Device
	interfaces  []*models.Interface
	prevMetrics map[int64]*models.InterfaceMetric

	savedPolls   []*models.PollResult
	discovered   map[int64][]*db.DiscoveredInterface
	discoverErr  error
	savedPdus    []*db.PduPollResult
	savedMacs    []*models.MacTableEntry
	savedLldp    []*models.LldpNeighbor
	savedSubnets []string
	savedEvents  []*models.SystemEvent
	mlagDomains  []*models.MlagDomain
	mlagDeleted  []int64
	changeCounts map[int64]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prevMetrics:  make(map[int64]*models.InterfaceMetric),
		changeCounts: make(map[int64]int),
		discovered:   make(map[int64][]*db.DiscoveredInterface),
	}
}

func (f *fakeStore) ListPollableDevices(context.Context) ([]*models.Device, error) {
	return f.devices, nil
}

func (f *fakeStore) ListActiveDevicesByType(_ context.Context, deviceType string) ([]*models.Device, error) {
	var out []*models.Device

	for _, d := range f.devices {
		if d.DeviceType == deviceType {
			out = append(out, d)
		}
	}

	return out, nil
}

func (f *fakeStore) ListMonitoredInterfaces(context.Context, int64) ([]*models.Interface, error) {
	return f.interfaces, nil
}

func (f *fakeStore) UpsertDiscoveredInterfaces(_ context.Context, deviceID int64, rows []*db.DiscoveredInterface) error {
	if f.discoverErr != nil {
		return f.discoverErr
	}

	f.discovered[deviceID] = append(f.discovered[deviceID], rows...)

	return nil
}

func (f *fakeStore) LatestInterfaceMetric(_ context.Context, interfaceID int64) (*models.InterfaceMetric, error) {
	if m, ok := f.prevMetrics[interfaceID]; ok {
		return m, nil
	}

	return nil, db.ErrNotFound
}

func (f *fakeStore) SaveDevicePollResult(_ context.Context, result *models.PollResult) error {
	f.savedPolls = append(f.savedPolls, result)

	return nil
}

func (f *fakeStore) SavePduPollResult(_ context.Context, result *db.PduPollResult) error {
	f.savedPdus = append(f.savedPdus, result)

	return nil
}

func (f *fakeStore) CountRecentPortStateChanges(_ context.Context, interfaceID int64, _ time.Duration) (int, error) {
	return f.changeCounts[interfaceID], nil
}

func (f *fakeStore) UpsertMacEntries(_ context.Context, entries []*models.MacTableEntry) error {
	f.savedMacs = append(f.savedMacs, entries...)

	return nil
}

func (f *fakeStore) ReplaceMlagDomain(_ context.Context, domain *models.MlagDomain, _ []*models.MlagInterface) error {
	f.mlagDomains = append(f.mlagDomains, domain)

	return nil
}

func (f *fakeStore) DeleteMlagDomain(_ context.Context, deviceID int64) error {
	f.mlagDeleted = append(f.mlagDeleted, deviceID)

	return nil
}

func (f *fakeStore) ReplaceLldpNeighbors(_ context.Context, _ int64, neighbors []*models.LldpNeighbor) error {
	f.savedLldp = append(f.savedLldp, neighbors...)

	return nil
}

func (f *fakeStore) UpsertLearnedSubnet(_ context.Context, cidr string) error {
	f.savedSubnets = append(f.savedSubnets, cidr)

	return nil
}

func (f *fakeStore) AppendSystemEvent(_ context.Context, event *models.SystemEvent) {
	f.savedEvents = append(f.savedEvents, event)
}

func newTestPoller(store *fakeStore, sess Session) *Poller {
	dial := func(*models.Device) (Session, error) { return sess, nil }

	return New(store, dial, nil, "public", logger.NewTestLogger())
}

func counter(v uint64) snmp.Value { return snmp.Value{Kind: snmp.KindCounter, Uint: v} }
func gauge(v uint64) snmp.Value   { return snmp.Value{Kind: snmp.KindGauge, Uint: v} }
func integer(v int64) snmp.Value  { return snmp.Value{Kind: snmp.KindInteger, Int: v} }
func ticks(v uint64) snmp.Value   { return snmp.Value{Kind: snmp.KindTimeTicks, Uint: v} }
func octets(s string) snmp.Value {
	return snmp.Value{Kind: snmp.KindOctetString, Str: s, Bytes: []byte(s)}
}

func TestCounterDeltaWrap(t *testing.T) {
	// A wrapped HC counter is corrected by exactly one modulus.
	delta := counterDelta(18446744073709551610, 5, false)
	assert.Equal(t, uint64(11), delta)
}

func TestCounterDeltaReboot(t *testing.T) {
	// After a reboot the counter restarted; the delta is unknowable.
	delta := counterDelta(18446744073709551610, 5, true)
	assert.Equal(t, uint64(0), delta)
}

func TestCounterDeltaMonotonic(t *testing.T) {
	assert.Equal(t, uint64(100), counterDelta(900, 1000, false))
	assert.Equal(t, uint64(0), counterDelta(1000, 1000, false))
}

func TestApplyRatesWrapped(t *testing.T) {
	now := time.Now().UTC()
	prev := &models.InterfaceMetric{
		Timestamp: now.Add(-60 * time.Second),
		InOctets:  18446744073709551610,
	}
	metric := &models.InterfaceMetric{InOctets: 5}

	applyRates(metric, prev, now, 1_000_000_000, false)

	assert.InDelta(t, 11.0*8/60, metric.InBps, 0.0001)
}

func TestApplyRatesUtilizationClamped(t *testing.T) {
	now := time.Now().UTC()
	prev := &models.InterfaceMetric{Timestamp: now.Add(-time.Second)}
	metric := &models.InterfaceMetric{InOctets: 100_000_000} // 800 Mbps over 1s

	applyRates(metric, prev, now, 100_000_000, false) // 100 Mbps link

	assert.Equal(t, 100.0, metric.UtilizationIn)
}

func TestApplyRatesZeroInterval(t *testing.T) {
	now := time.Now().UTC()
	prev := &models.InterfaceMetric{Timestamp: now, InOctets: 0}
	metric := &models.InterfaceMetric{InOctets: 1000}

	applyRates(metric, prev, now, 0, false)

	assert.Zero(t, metric.InBps)
}

func TestPollDeviceMarksDownWhenUptimeAbsent(t *testing.T) {
	store := newFakeStore()
	sess := &fakeSession{scalars: map[string]snmp.Value{}}

	device := &models.Device{ID: 7, Hostname: "sw1", IPAddress: "10.0.0.1", Status: models.DeviceStatusUp}

	err := newTestPoller(store, sess).PollDevice(context.Background(), device)
	require.NoError(t, err)

	require.Len(t, store.savedPolls, 1)
	assert.Equal(t, models.DeviceStatusDown, store.savedPolls[0].Status)
	require.Len(t, store.savedEvents, 1)
	assert.Equal(t, "device_unreachable", store.savedEvents[0].EventType)
}

func TestPollDeviceTransportError(t *testing.T) {
	store := newFakeStore()
	sess := &fakeSession{getErr: errors.New("timeout")}

	device := &models.Device{ID: 7, Hostname: "sw1", IPAddress: "10.0.0.1"}

	err := newTestPoller(store, sess).PollDevice(context.Background(), device)
	assert.Error(t, err)

	require.Len(t, store.savedPolls, 1)
	assert.Equal(t, models.DeviceStatusDown, store.savedPolls[0].Status)
}

func TestPollDeviceBuildsMetricsAndTransitions(t *testing.T) {
	ifIndex := int32(49)
	store := newFakeStore()
	store.interfaces = []*models.Interface{{
		ID:         3,
		DeviceID:   7,
		IfIndex:    &ifIndex,
		OperStatus: "up",
		SpeedBps:   10_000_000_000,
	}}
	store.prevMetrics[3] = &models.InterfaceMetric{
		Timestamp: time.Now().UTC().Add(-60 * time.Second),
		InOctets:  1000,
		OutOctets: 2000,
	}

	sess := &fakeSession{
		scalars: map[string]snmp.Value{
			oidSysUpTime: ticks(8_640_000),
			oidSysName:   octets("core-sw-01"),
		},
		columns: map[string]map[int]snmp.Value{
			oidIfHCInOctets:  {49: counter(61_000)},
			oidIfHCOutOctets: {49: counter(92_000)},
			oidIfHighSpeed:   {49: gauge(10_000)},
			oidIfOperStatus:  {49: integer(2)},
		},
	}

	device := &models.Device{ID: 7, Hostname: "sw1", IPAddress: "10.0.0.1"}

	err := newTestPoller(store, sess).PollDevice(context.Background(), device)
	require.NoError(t, err)

	require.Len(t, store.savedPolls, 1)
	result := store.savedPolls[0]

	assert.Equal(t, models.DeviceStatusUp, result.Status)
	assert.Equal(t, "core-sw-01", result.SysName)
	require.NotNil(t, result.UptimeSeconds)
	assert.Equal(t, int64(86_400), *result.UptimeSeconds)

	require.Len(t, result.Metrics, 1)
	metric := result.Metrics[0]
	assert.Equal(t, uint64(61_000), metric.InOctets)
	assert.InDelta(t, 8000.0, metric.InBps, 1.0) // 60k octets over ~60s
	assert.InDelta(t, 12000.0, metric.OutBps, 1.5)

	require.Len(t, result.OperStatusChanges, 1)
	assert.Equal(t, "up", result.OperStatusChanges[0].OldStatus)
	assert.Equal(t, "down", result.OperStatusChanges[0].NewStatus)
}

func TestPollDeviceFallsBackTo32BitCounters(t *testing.T) {
	ifIndex := int32(2)
	store := newFakeStore()
	store.interfaces = []*models.Interface{{ID: 9, DeviceID: 1, IfIndex: &ifIndex, OperStatus: "up"}}

	sess := &fakeSession{
		scalars: map[string]snmp.Value{oidSysUpTime: ticks(100)},
		columns: map[string]map[int]snmp.Value{
			oidIfInOctets:   {2: counter(4242)},
			oidIfOutOctets:  {2: counter(999)},
			oidIfOperStatus: {2: integer(1)},
		},
	}

	device := &models.Device{ID: 1, Hostname: "old-sw", IPAddress: "10.0.0.2"}

	err := newTestPoller(store, sess).PollDevice(context.Background(), device)
	require.NoError(t, err)

	require.Len(t, store.savedPolls, 1)
	require.Len(t, store.savedPolls[0].Metrics, 1)
	assert.Equal(t, uint64(4242), store.savedPolls[0].Metrics[0].InOctets)
	assert.Empty(t, store.savedPolls[0].OperStatusChanges)
}

func TestPollDeviceDiscoversInterfaces(t *testing.T) {
	store := newFakeStore()

	sess := &fakeSession{
		scalars: map[string]snmp.Value{oidSysUpTime: ticks(100)},
		columns: map[string]map[int]snmp.Value{
			oidIfHCInOctets:  {49: counter(1000), 50: counter(2000)},
			oidIfHighSpeed:   {49: gauge(10_000), 50: gauge(10_000)},
			oidIfName:        {49: octets("Ethernet49"), 50: octets("Ethernet50"), 51: octets("Management1")},
			oidIfAlias:       {49: octets("uplink to core")},
			oidIfAdminStatus: {49: integer(1), 50: integer(2)},
		},
	}

	device := &models.Device{ID: 7, Hostname: "sw1", IPAddress: "10.0.0.1"}

	err := newTestPoller(store, sess).PollDevice(context.Background(), device)
	require.NoError(t, err)

	rows := store.discovered[7]
	require.Len(t, rows, 3)

	assert.Equal(t, int32(49), rows[0].IfIndex)
	assert.Equal(t, "Ethernet49", rows[0].Name)
	assert.Equal(t, "uplink to core", rows[0].Alias)
	assert.Equal(t, int64(10_000_000_000), rows[0].SpeedBps)
	assert.Equal(t, "up", rows[0].AdminStatus)

	assert.Equal(t, int32(50), rows[1].IfIndex)
	assert.Empty(t, rows[1].Alias)
	assert.Equal(t, "down", rows[1].AdminStatus)

	// Seen only in the name column: still discovered, status unknown.
	assert.Equal(t, int32(51), rows[2].IfIndex)
	assert.Equal(t, "Management1", rows[2].Name)
	assert.Equal(t, "unknown", rows[2].AdminStatus)
	assert.Zero(t, rows[2].SpeedBps)
}

func TestPollDeviceInterfaceSyncFailureKeepsMetrics(t *testing.T) {
	ifIndex := int32(2)
	store := newFakeStore()
	store.discoverErr = errors.New("deadlock")
	store.interfaces = []*models.Interface{{ID: 9, DeviceID: 1, IfIndex: &ifIndex, OperStatus: "up"}}

	sess := &fakeSession{
		scalars: map[string]snmp.Value{oidSysUpTime: ticks(100)},
		columns: map[string]map[int]snmp.Value{
			oidIfInOctets:   {2: counter(4242)},
			oidIfOperStatus: {2: integer(1)},
		},
	}

	device := &models.Device{ID: 1, Hostname: "old-sw", IPAddress: "10.0.0.2"}

	err := newTestPoller(store, sess).PollDevice(context.Background(), device)
	require.NoError(t, err)

	require.Len(t, store.savedPolls, 1)
	require.Len(t, store.savedPolls[0].Metrics, 1)
}

func TestPollAllSkipsPDUs(t *testing.T) {
	store := newFakeStore()
	store.devices = []*models.Device{
		{ID: 1, Hostname: "pdu1", DeviceType: models.DeviceTypePDU},
	}

	sess := &fakeSession{scalars: map[string]snmp.Value{oidSysUpTime: ticks(1)}}

	err := newTestPoller(store, sess).PollAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.savedPolls)
}

func TestCheckFlapsEmitsEvent(t *testing.T) {
	store := newFakeStore()
	store.changeCounts[3] = 6

	p := newTestPoller(store, &fakeSession{})
	device := &models.Device{ID: 7, Hostname: "sw1"}
	changes := []*models.PortStateChange{{InterfaceID: 3, OldStatus: "up", NewStatus: "down"}}

	p.checkFlaps(context.Background(), device, changes)

	require.Len(t, store.savedEvents, 1)
	assert.Equal(t, "interface_flapping", store.savedEvents[0].EventType)
}

func TestOperStatusName(t *testing.T) {
	assert.Equal(t, "up", operStatusName(1))
	assert.Equal(t, "down", operStatusName(2))
	assert.Equal(t, "lowerLayerDown", operStatusName(7))
	assert.Equal(t, "unknown", operStatusName(42))
}
