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

// Package alerting evaluates the three rule engines and drives the
// shared alert event lifecycle.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/netpulse/pkg/db"
	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
)

// Store is the persistence surface shared by all three engines.
type Store interface {
	ListEnabledAlertRules(ctx context.Context) ([]*models.AlertRule, error)
	ListEnabledWanRules(ctx context.Context) ([]*models.WanAlertRule, error)
	ListEnabledPowerRules(ctx context.Context) ([]*models.PowerAlertRule, error)

	ListActiveDevices(ctx context.Context) ([]*models.Device, error)
	GetInterface(ctx context.Context, interfaceID int64) (*models.Interface, error)
	LatestInterfaceMetric(ctx context.Context, interfaceID int64) (*models.InterfaceMetric, error)

	FindOpenEvent(ctx context.Context, key db.EventKey) (*models.AlertEvent, error)
	InsertAlertEvent(ctx context.Context, event *models.AlertEvent) (created bool, err error)
	UpdateAlertEventValues(ctx context.Context, eventID int64, metricValue, thresholdValue float64, message string) error
	ResolveOpenEvents(ctx context.Context, key db.EventKey) (int64, error)

	WANMinuteBuckets(ctx context.Context, since time.Time) ([]db.MinuteBucket, error)
	PowerWindow(ctx context.Context, since time.Time) (*db.PowerWindowStats, error)
	GetSettingFloat(ctx context.Context, key string, fallback float64) float64

	AppendSystemEvent(ctx context.Context, event *models.SystemEvent)
}

// Engine runs the instantaneous, WAN and power engines in series.
type Engine struct {
	store    Store
	notifier Notifier
	logger   logger.Logger
}

// New builds the engine. notifier may be nil to disable notifications.
func New(store Store, notifier Notifier, log logger.Logger) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		logger:   log.WithComponent("alerting"),
	}
}

// Run is the alert-eval tick. Each engine failure is logged and the
// remaining engines still run.
func (e *Engine) Run(ctx context.Context) error {
	var firstErr error

	for _, step := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"rules", e.EvaluateRules},
		{"wan", e.EvaluateWanRules},
		{"power", e.EvaluatePowerRules},
	} {
		if err := step.fn(ctx); err != nil {
			e.logger.Error().Err(err).Str("engine", step.name).Msg("engine evaluation failed")

			if firstErr == nil {
				firstErr = err
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return firstErr
}

// outcome is one evaluation result fed into the event lifecycle.
type outcome struct {
	key      db.EventKey // Severity unset; filled per lifecycle step
	ruleName string
	email    string
	webhook  string
	engine   string // "" for instantaneous, else wan|power

	severity  string // empty when nothing breached
	value     float64
	threshold float64
	message   string
}

// apply drives the upsert-don't-duplicate lifecycle: update the open
// event in place, otherwise insert and notify; the opposite severity
// rung is auto-resolved, and a clear resolves everything.
func (e *Engine) apply(ctx context.Context, o outcome) error {
	if o.severity == "" {
		key := o.key
		key.Severity = ""

		_, err := e.store.ResolveOpenEvents(ctx, key)

		return err
	}

	key := o.key
	key.Severity = o.severity

	existing, err := e.store.FindOpenEvent(ctx, key)

	switch {
	case err == nil:
		if err := e.store.UpdateAlertEventValues(ctx, existing.ID, o.value, o.threshold, o.message); err != nil {
			return err
		}
	case errors.Is(err, db.ErrNotFound):
		event := &models.AlertEvent{
			RuleID:         o.key.RuleID,
			WanRuleID:      o.key.WanRuleID,
			PowerRuleID:    o.key.PowerRuleID,
			DeviceID:       o.key.DeviceID,
			InterfaceID:    o.key.InterfaceID,
			Severity:       o.severity,
			Status:         models.EventStatusOpen,
			Message:        o.message,
			MetricValue:    o.value,
			ThresholdValue: o.threshold,
		}

		created, err := e.store.InsertAlertEvent(ctx, event)
		if err != nil {
			return err
		}

		if created && e.notifier != nil {
			e.notifier.Notify(ctx, Notification{
				AlertID:     event.ID,
				RuleName:    o.ruleName,
				Severity:    o.severity,
				Message:     o.message,
				MetricValue: o.value,
				Threshold:   o.threshold,
				Timestamp:   time.Now().UTC(),
				Type:        o.engine,
				Email:       o.email,
				Webhook:     o.webhook,
			})
		}
	default:
		return err
	}

	// Ladder semantics: only one severity rung stays open.
	other := models.SeverityCritical
	if o.severity == models.SeverityCritical {
		other = models.SeverityWarning
	}

	otherKey := o.key
	otherKey.Severity = other

	_, err = e.store.ResolveOpenEvents(ctx, otherKey)

	return err
}

// EvaluateRules runs the instantaneous engine over every enabled rule.
func (e *Engine) EvaluateRules(ctx context.Context) error {
	rules, err := e.store.ListEnabledAlertRules(ctx)
	if err != nil {
		return fmt.Errorf("alerting: list rules: %w", err)
	}

	if len(rules) == 0 {
		return nil
	}

	devices, err := e.store.ListActiveDevices(ctx)
	if err != nil {
		return fmt.Errorf("alerting: list devices: %w", err)
	}

	byID := make(map[int64]*models.Device, len(devices))
	for _, d := range devices {
		byID[d.ID] = d
	}

	for _, rule := range rules {
		if err := e.evaluateRule(ctx, rule, devices, byID); err != nil {
			e.logger.Warn().Err(err).
				Str("rule", rule.Name).
				Msg("rule evaluation failed")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

func (e *Engine) evaluateRule(ctx context.Context, rule *models.AlertRule, devices []*models.Device, byID map[int64]*models.Device) error {
	if isInterfaceMetric(rule.Metric) {
		return e.evaluateInterfaceRule(ctx, rule)
	}

	// Device-level metric. A nil device scope makes the rule global
	// over every device with a known status.
	var targets []*models.Device

	if rule.DeviceID != nil {
		if d, ok := byID[*rule.DeviceID]; ok {
			targets = append(targets, d)
		}
	} else {
		for _, d := range devices {
			if d.Status != models.DeviceStatusUnknown {
				targets = append(targets, d)
			}
		}
	}

	for _, device := range targets {
		value, ok := deviceMetricValue(rule.Metric, device)
		if !ok {
			continue
		}

		severity, threshold := breachedSeverity(rule, value)
		deviceID := device.ID

		err := e.apply(ctx, outcome{
			key:       db.EventKey{RuleID: &rule.ID, DeviceID: &deviceID},
			ruleName:  rule.Name,
			email:     rule.NotifyEmail,
			webhook:   rule.NotifyWebhook,
			severity:  severity,
			value:     value,
			threshold: threshold,
			message:   ruleMessage(rule, device.Hostname, value, threshold, severity),
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) evaluateInterfaceRule(ctx context.Context, rule *models.AlertRule) error {
	if rule.InterfaceID == nil {
		return fmt.Errorf("alerting: rule %s: interface metric without interface scope", rule.Name)
	}

	iface, err := e.store.GetInterface(ctx, *rule.InterfaceID)
	if err != nil {
		return fmt.Errorf("alerting: rule %s: %w", rule.Name, err)
	}

	value, ok, err := e.interfaceMetricValue(ctx, rule.Metric, iface)
	if err != nil {
		return fmt.Errorf("alerting: rule %s: %w", rule.Name, err)
	}

	if !ok {
		return nil
	}

	severity, threshold := breachedSeverity(rule, value)
	deviceID := iface.DeviceID

	return e.apply(ctx, outcome{
		key: db.EventKey{
			RuleID:      &rule.ID,
			DeviceID:    &deviceID,
			InterfaceID: rule.InterfaceID,
		},
		ruleName:  rule.Name,
		email:     rule.NotifyEmail,
		webhook:   rule.NotifyWebhook,
		severity:  severity,
		value:     value,
		threshold: threshold,
		message:   ruleMessage(rule, iface.Name, value, threshold, severity),
	})
}

func isInterfaceMetric(metric string) bool {
	switch metric {
	case models.MetricIfUtilizationIn, models.MetricIfUtilizationOut,
		models.MetricIfStatus, models.MetricIfErrors:
		return true
	}

	return false
}

// deviceMetricValue reads the live device row. Boolean status encodes
// as 1.0 when down so "gt 0.5" expresses "is down".
func deviceMetricValue(metric string, device *models.Device) (float64, bool) {
	switch metric {
	case models.MetricDeviceStatus:
		if device.Status == models.DeviceStatusDown {
			return 1, true
		}

		return 0, true
	case models.MetricCPUUsage:
		if device.CPUUsage == nil {
			return 0, false
		}

		return *device.CPUUsage, true
	case models.MetricMemoryUsage:
		if device.MemoryUsage == nil {
			return 0, false
		}

		return *device.MemoryUsage, true
	}

	return 0, false
}

func (e *Engine) interfaceMetricValue(ctx context.Context, metric string, iface *models.Interface) (float64, bool, error) {
	if metric == models.MetricIfStatus {
		if iface.OperStatus != "up" {
			return 1, true, nil
		}

		return 0, true, nil
	}

	sample, err := e.store.LatestInterfaceMetric(ctx, iface.ID)
	if errors.Is(err, db.ErrNotFound) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, err
	}

	switch metric {
	case models.MetricIfUtilizationIn:
		return sample.UtilizationIn, true, nil
	case models.MetricIfUtilizationOut:
		return sample.UtilizationOut, true, nil
	case models.MetricIfErrors:
		return float64(sample.InErrors + sample.OutErrors), true, nil
	}

	return 0, false, nil
}

// breachedSeverity returns the highest breached rung: critical, then
// warning, then the rule's default severity on the legacy threshold.
func breachedSeverity(rule *models.AlertRule, value float64) (string, float64) {
	if rule.CriticalThreshold != nil && compare(rule.Condition, value, *rule.CriticalThreshold) {
		return models.SeverityCritical, *rule.CriticalThreshold
	}

	if rule.WarningThreshold != nil && compare(rule.Condition, value, *rule.WarningThreshold) {
		return models.SeverityWarning, *rule.WarningThreshold
	}

	if rule.Threshold != nil && compare(rule.Condition, value, *rule.Threshold) {
		severity := rule.Severity
		if severity == "" {
			severity = models.SeverityWarning
		}

		return severity, *rule.Threshold
	}

	return "", 0
}

// aggregateSeverity is the two-threshold variant used by the WAN and
// power engines; condition is always gte.
func aggregateSeverity(warning, critical *float64, value float64) (string, float64) {
	if critical != nil && value >= *critical {
		return models.SeverityCritical, *critical
	}

	if warning != nil && value >= *warning {
		return models.SeverityWarning, *warning
	}

	return "", 0
}

func compare(condition string, value, threshold float64) bool {
	switch condition {
	case models.ConditionGT:
		return value > threshold
	case models.ConditionGTE:
		return value >= threshold
	case models.ConditionLT:
		return value < threshold
	case models.ConditionLTE:
		return value <= threshold
	case models.ConditionEQ:
		return value == threshold
	case models.ConditionNE:
		return value != threshold
	}

	return false
}

func ruleMessage(rule *models.AlertRule, target string, value, threshold float64, severity string) string {
	if severity == "" {
		return fmt.Sprintf("%s: %s %s cleared (%.2f)", rule.Name, target, rule.Metric, value)
	}

	return fmt.Sprintf("%s: %s %s = %.2f (%s %s %.2f)",
		rule.Name, target, rule.Metric, value, severity, rule.Condition, threshold)
}
