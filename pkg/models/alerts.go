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

package models

import "time"

// Rule metrics for device-scoped instantaneous rules.
const (
	MetricDeviceStatus     = "device_status"
	MetricCPUUsage         = "cpu_usage"
	MetricMemoryUsage      = "memory_usage"
	MetricIfUtilizationIn  = "if_utilization_in"
	MetricIfUtilizationOut = "if_utilization_out"
	MetricIfStatus         = "if_status"
	MetricIfErrors         = "if_errors"
)

// Condition operators.
const (
	ConditionGT  = "gt"
	ConditionGTE = "gte"
	ConditionLT  = "lt"
	ConditionLTE = "lte"
	ConditionEQ  = "eq"
	ConditionNE  = "ne"
)

// Severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert event lifecycle states.
const (
	EventStatusOpen         = "open"
	EventStatusAcknowledged = "acknowledged"
	EventStatusResolved     = "resolved"
)

// AlertRule is a device-scoped instantaneous rule. A nil DeviceID on a
// device-level metric makes the rule global (all devices with a known
// status). Either the legacy Threshold or the warning/critical pair is
// set.
type AlertRule struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Metric    string `json:"metric"`
	Condition string `json:"condition"`

	Threshold         *float64 `json:"threshold,omitempty"`
	WarningThreshold  *float64 `json:"warning_threshold,omitempty"`
	CriticalThreshold *float64 `json:"critical_threshold,omitempty"`

	Severity        string `json:"severity"`
	CooldownMinutes int    `json:"cooldown_minutes"`

	DeviceID    *int64 `json:"device_id,omitempty"`
	InterfaceID *int64 `json:"interface_id,omitempty"`

	NotifyEmail   string `json:"notify_email,omitempty"`
	NotifyWebhook string `json:"notify_webhook,omitempty"`

	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// WanAlertRule is an aggregate rule over all WAN interfaces. At least
// one of the two thresholds is non-nil.
type WanAlertRule struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Metric          string `json:"metric"` // p95_in, p95_out, p95_max, max_in, max_out, avg_in, avg_out, commitment_pct
	LookbackMinutes int    `json:"lookback_minutes"`

	WarningThreshold  *float64 `json:"warning_threshold,omitempty"`
	CriticalThreshold *float64 `json:"critical_threshold,omitempty"`

	NotifyEmail   string `json:"notify_email,omitempty"`
	NotifyWebhook string `json:"notify_webhook,omitempty"`

	Enabled bool `json:"enabled"`
}

// PowerAlertRule is an aggregate rule over all active PDUs. At least
// one of the two thresholds is non-nil.
type PowerAlertRule struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Metric          string `json:"metric"` // total_power, avg_load, max_load, max_temp, avg_temp, budget_pct
	LookbackMinutes int    `json:"lookback_minutes"`

	WarningThreshold  *float64 `json:"warning_threshold,omitempty"`
	CriticalThreshold *float64 `json:"critical_threshold,omitempty"`

	NotifyEmail   string `json:"notify_email,omitempty"`
	NotifyWebhook string `json:"notify_webhook,omitempty"`

	Enabled bool `json:"enabled"`
}

// AlertEvent is a lifecycle record. Exactly one of RuleID, WanRuleID,
// PowerRuleID is non-nil. At any time there is at most one event with
// status open or acknowledged per (rule, severity, optional device).
type AlertEvent struct {
	ID          int64  `json:"id"`
	RuleID      *int64 `json:"rule_id,omitempty"`
	WanRuleID   *int64 `json:"wan_rule_id,omitempty"`
	PowerRuleID *int64 `json:"power_rule_id,omitempty"`

	DeviceID    *int64 `json:"device_id,omitempty"`
	InterfaceID *int64 `json:"interface_id,omitempty"`

	Severity       string  `json:"severity"`
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	MetricValue    float64 `json:"metric_value"`
	ThresholdValue float64 `json:"threshold_value"`

	TriggeredAt    time.Time  `json:"triggered_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}
