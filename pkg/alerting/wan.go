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

package alerting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/carverauto/netpulse/pkg/db"
	"github.com/carverauto/netpulse/pkg/models"
)

// wanAggregates are the per-window WAN statistics every metric name
// resolves against.
type wanAggregates struct {
	P95In         float64
	P95Out        float64
	P95Max        float64
	MaxIn         float64
	MaxOut        float64
	AvgIn         float64
	AvgOut        float64
	CommitmentPct float64
}

func (a *wanAggregates) metric(name string) (float64, bool) {
	switch name {
	case "p95_in":
		return a.P95In, true
	case "p95_out":
		return a.P95Out, true
	case "p95_max":
		return a.P95Max, true
	case "max_in":
		return a.MaxIn, true
	case "max_out":
		return a.MaxOut, true
	case "avg_in":
		return a.AvgIn, true
	case "avg_out":
		return a.AvgOut, true
	case "commitment_pct":
		return a.CommitmentPct, true
	}

	return 0, false
}

// EvaluateWanRules runs the WAN aggregate engine. Rules sharing a
// lookback window compute their aggregates once per tick.
func (e *Engine) EvaluateWanRules(ctx context.Context) error {
	rules, err := e.store.ListEnabledWanRules(ctx)
	if err != nil {
		return fmt.Errorf("alerting: list wan rules: %w", err)
	}

	if len(rules) == 0 {
		return nil
	}

	cache := make(map[int]*wanAggregates)

	for _, rule := range rules {
		agg, ok := cache[rule.LookbackMinutes]
		if !ok {
			agg, err = e.wanAggregates(ctx, rule.LookbackMinutes)
			if err != nil {
				e.logger.Warn().Err(err).
					Str("rule", rule.Name).
					Msg("wan aggregate computation failed")

				continue
			}

			cache[rule.LookbackMinutes] = agg
		}

		value, known := agg.metric(rule.Metric)
		if !known {
			e.logger.Warn().
				Str("rule", rule.Name).
				Str("metric", rule.Metric).
				Msg("unknown wan metric")

			continue
		}

		severity, threshold := aggregateSeverity(rule.WarningThreshold, rule.CriticalThreshold, value)

		err := e.apply(ctx, outcome{
			key:       db.EventKey{WanRuleID: &rule.ID},
			ruleName:  rule.Name,
			email:     rule.NotifyEmail,
			webhook:   rule.NotifyWebhook,
			engine:    "wan",
			severity:  severity,
			value:     value,
			threshold: threshold,
			message:   aggregateMessage(rule.Name, rule.Metric, value, threshold, severity),
		})
		if err != nil {
			e.logger.Warn().Err(err).Str("rule", rule.Name).Msg("wan rule apply failed")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

func (e *Engine) wanAggregates(ctx context.Context, lookbackMinutes int) (*wanAggregates, error) {
	since := time.Now().UTC().Add(-time.Duration(lookbackMinutes) * time.Minute)

	buckets, err := e.store.WANMinuteBuckets(ctx, since)
	if err != nil {
		return nil, err
	}

	agg := &wanAggregates{}

	if len(buckets) == 0 {
		return agg, nil
	}

	in := make([]float64, len(buckets))
	out := make([]float64, len(buckets))

	var sumIn, sumOut float64

	for i, b := range buckets {
		in[i] = b.InBps
		out[i] = b.OutBps
		sumIn += b.InBps
		sumOut += b.OutBps

		if b.InBps > agg.MaxIn {
			agg.MaxIn = b.InBps
		}

		if b.OutBps > agg.MaxOut {
			agg.MaxOut = b.OutBps
		}
	}

	agg.AvgIn = sumIn / float64(len(buckets))
	agg.AvgOut = sumOut / float64(len(buckets))
	agg.P95In = percentile(in, 0.95)
	agg.P95Out = percentile(out, 0.95)
	agg.P95Max = agg.P95In

	if agg.P95Out > agg.P95Max {
		agg.P95Max = agg.P95Out
	}

	if commitment := e.store.GetSettingFloat(ctx, models.SettingWanCommitmentBps, 0); commitment > 0 {
		agg.CommitmentPct = agg.P95Max / commitment * 100
	}

	return agg, nil
}

// percentile is the linear-interpolated quantile of values at p, read
// from the sorted series at index (n-1)*p.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := float64(len(sorted)-1) * p
	lower := int(pos)
	frac := pos - float64(lower)

	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}

func aggregateMessage(ruleName, metric string, value, threshold float64, severity string) string {
	if severity == "" {
		return fmt.Sprintf("%s: %s cleared (%.2f)", ruleName, metric, value)
	}

	return fmt.Sprintf("%s: %s = %.2f (%s >= %.2f)", ruleName, metric, value, severity, threshold)
}
