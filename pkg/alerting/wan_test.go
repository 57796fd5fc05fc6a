package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netpulse/pkg/db"
	"github.com/carverauto/netpulse/pkg/models"
)

func minuteBuckets(in ...float64) []db.MinuteBucket {
	base := time.Date(2026, 8, 26, 11, 0, 0, 0, time.UTC)
	buckets := make([]db.MinuteBucket, len(in))

	for i, v := range in {
		buckets[i] = db.MinuteBucket{
			Minute: base.Add(time.Duration(i) * time.Minute),
			InBps:  v,
			OutBps: v / 2,
		}
	}

	return buckets
}

func TestPercentileInterpolation(t *testing.T) {
	// Sorted length-3 series reads at index 1.9.
	assert.InDelta(t, 920, percentile([]float64{100, 200, 1000}, 0.95), 0.0001)

	assert.Equal(t, 0.0, percentile(nil, 0.95))
	assert.Equal(t, 42.0, percentile([]float64{42}, 0.95))
	assert.InDelta(t, 1000, percentile([]float64{1000, 100, 200}, 1.0), 0.0001)
}

func TestWanAggregates(t *testing.T) {
	store := &fakeAlertStore{
		buckets:  minuteBuckets(100, 200, 1000),
		settings: map[string]float64{models.SettingWanCommitmentBps: 1000},
	}
	engine, _ := newTestEngine(store)

	agg, err := engine.wanAggregates(context.Background(), 60)
	require.NoError(t, err)

	assert.InDelta(t, 920, agg.P95In, 0.0001)
	assert.InDelta(t, 460, agg.P95Out, 0.0001)
	assert.InDelta(t, 920, agg.P95Max, 0.0001)
	assert.Equal(t, 1000.0, agg.MaxIn)
	assert.Equal(t, 500.0, agg.MaxOut)
	assert.InDelta(t, 1300.0/3, agg.AvgIn, 0.0001)
	assert.InDelta(t, 92, agg.CommitmentPct, 0.0001)
}

func TestWanAggregatesNoCommitmentSetting(t *testing.T) {
	store := &fakeAlertStore{buckets: minuteBuckets(100, 200, 1000)}
	engine, _ := newTestEngine(store)

	agg, err := engine.wanAggregates(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, 0.0, agg.CommitmentPct)
}

func TestWanEngineOpensEvent(t *testing.T) {
	store := &fakeAlertStore{
		wanRules: []*models.WanAlertRule{{
			ID:                1,
			Name:              "p95 ceiling",
			Metric:            "p95_in",
			LookbackMinutes:   60,
			WarningThreshold:  fptr(800),
			CriticalThreshold: fptr(950),
			Enabled:           true,
		}},
		buckets: minuteBuckets(100, 200, 1000),
	}
	engine, notifier := newTestEngine(store)

	require.NoError(t, engine.EvaluateWanRules(context.Background()))

	open := store.openEvents()
	require.Len(t, open, 1)
	assert.Equal(t, models.SeverityWarning, open[0].Severity)
	assert.Equal(t, int64(1), *open[0].WanRuleID)
	assert.Nil(t, open[0].RuleID)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "wan", notifier.sent[0].Type)
}

func TestWanEngineSharesWindowCache(t *testing.T) {
	store := &fakeAlertStore{
		wanRules: []*models.WanAlertRule{
			{ID: 1, Name: "a", Metric: "p95_in", LookbackMinutes: 60, CriticalThreshold: fptr(1e12), Enabled: true},
			{ID: 2, Name: "b", Metric: "max_out", LookbackMinutes: 60, CriticalThreshold: fptr(1e12), Enabled: true},
			{ID: 3, Name: "c", Metric: "avg_in", LookbackMinutes: 120, CriticalThreshold: fptr(1e12), Enabled: true},
		},
		buckets: minuteBuckets(100, 200),
	}
	engine, _ := newTestEngine(store)

	require.NoError(t, engine.EvaluateWanRules(context.Background()))

	// Two distinct lookback windows, three rules.
	assert.Equal(t, 2, store.bucketCalls)
}

func TestWanEngineClearResolves(t *testing.T) {
	store := &fakeAlertStore{
		wanRules: []*models.WanAlertRule{{
			ID:               1,
			Name:             "p95 ceiling",
			Metric:           "p95_in",
			LookbackMinutes:  60,
			WarningThreshold: fptr(800),
			Enabled:          true,
		}},
		buckets: minuteBuckets(100, 200, 1000),
	}
	engine, _ := newTestEngine(store)
	ctx := context.Background()

	require.NoError(t, engine.EvaluateWanRules(ctx))
	require.Len(t, store.openEvents(), 1)

	store.buckets = minuteBuckets(100, 200, 300)
	require.NoError(t, engine.EvaluateWanRules(ctx))
	assert.Empty(t, store.openEvents())
}

func TestAggregateSeverity(t *testing.T) {
	severity, threshold := aggregateSeverity(fptr(80), fptr(95), 97)
	assert.Equal(t, models.SeverityCritical, severity)
	assert.Equal(t, 95.0, threshold)

	severity, _ = aggregateSeverity(fptr(80), fptr(95), 85)
	assert.Equal(t, models.SeverityWarning, severity)

	severity, _ = aggregateSeverity(fptr(80), nil, 85)
	assert.Equal(t, models.SeverityWarning, severity)

	severity, _ = aggregateSeverity(nil, fptr(95), 85)
	assert.Equal(t, "", severity)

	severity, _ = aggregateSeverity(fptr(80), fptr(95), 10)
	assert.Equal(t, "", severity)
}
