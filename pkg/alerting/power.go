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
	"time"

	"github.com/carverauto/netpulse/pkg/db"
	"github.com/carverauto/netpulse/pkg/models"
)

// powerAggregates resolve the power rule metric names.
type powerAggregates struct {
	TotalPower float64
	AvgLoad    float64
	MaxLoad    float64
	AvgTemp    float64
	MaxTemp    float64
	BudgetPct  float64
}

func (a *powerAggregates) metric(name string) (float64, bool) {
	switch name {
	case "total_power":
		return a.TotalPower, true
	case "avg_load":
		return a.AvgLoad, true
	case "max_load":
		return a.MaxLoad, true
	case "avg_temp":
		return a.AvgTemp, true
	case "max_temp":
		return a.MaxTemp, true
	case "budget_pct":
		return a.BudgetPct, true
	}

	return 0, false
}

// EvaluatePowerRules runs the power aggregate engine over PduMetric
// windows, mirroring the WAN engine's lifecycle.
func (e *Engine) EvaluatePowerRules(ctx context.Context) error {
	rules, err := e.store.ListEnabledPowerRules(ctx)
	if err != nil {
		return fmt.Errorf("alerting: list power rules: %w", err)
	}

	if len(rules) == 0 {
		return nil
	}

	cache := make(map[int]*powerAggregates)

	for _, rule := range rules {
		agg, ok := cache[rule.LookbackMinutes]
		if !ok {
			agg, err = e.powerAggregates(ctx, rule.LookbackMinutes)
			if err != nil {
				e.logger.Warn().Err(err).
					Str("rule", rule.Name).
					Msg("power aggregate computation failed")

				continue
			}

			cache[rule.LookbackMinutes] = agg
		}

		value, known := agg.metric(rule.Metric)
		if !known {
			e.logger.Warn().
				Str("rule", rule.Name).
				Str("metric", rule.Metric).
				Msg("unknown power metric")

			continue
		}

		severity, threshold := aggregateSeverity(rule.WarningThreshold, rule.CriticalThreshold, value)

		err := e.apply(ctx, outcome{
			key:       db.EventKey{PowerRuleID: &rule.ID},
			ruleName:  rule.Name,
			email:     rule.NotifyEmail,
			webhook:   rule.NotifyWebhook,
			engine:    "power",
			severity:  severity,
			value:     value,
			threshold: threshold,
			message:   aggregateMessage(rule.Name, rule.Metric, value, threshold, severity),
		})
		if err != nil {
			e.logger.Warn().Err(err).Str("rule", rule.Name).Msg("power rule apply failed")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

func (e *Engine) powerAggregates(ctx context.Context, lookbackMinutes int) (*powerAggregates, error) {
	since := time.Now().UTC().Add(-time.Duration(lookbackMinutes) * time.Minute)

	stats, err := e.store.PowerWindow(ctx, since)
	if err != nil {
		return nil, err
	}

	agg := &powerAggregates{
		TotalPower: stats.TotalPowerWatts,
		AvgLoad:    stats.AvgLoadPct,
		MaxLoad:    stats.MaxLoadPct,
		AvgTemp:    stats.AvgTempC,
		MaxTemp:    stats.MaxTempC,
	}

	if budget := e.store.GetSettingFloat(ctx, models.SettingPowerBudgetWatts, 0); budget > 0 {
		agg.BudgetPct = agg.TotalPower / budget * 100
	}

	return agg, nil
}
