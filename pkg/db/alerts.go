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

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/netpulse/pkg/models"
)

const uniqueViolationCode = "23505"

// EventKey identifies the open-event slot for one rule evaluation.
// Exactly one of RuleID, WanRuleID, PowerRuleID is non-nil.
type EventKey struct {
	RuleID      *int64
	WanRuleID   *int64
	PowerRuleID *int64
	DeviceID    *int64
	InterfaceID *int64
	Severity    string
}

// ListEnabledAlertRules returns every enabled instantaneous rule.
func (s *Store) ListEnabledAlertRules(ctx context.Context) ([]*models.AlertRule, error) {
	rows, err := s.pool.Query(ctx, `SELECT
		id, name, metric, condition, threshold, warning_threshold, critical_threshold,
		severity, cooldown_minutes, device_id, interface_id,
		notify_email, notify_webhook, enabled, created_at
		FROM alert_rules WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.AlertRule

	for rows.Next() {
		var r models.AlertRule

		err := rows.Scan(
			&r.ID, &r.Name, &r.Metric, &r.Condition,
			&r.Threshold, &r.WarningThreshold, &r.CriticalThreshold,
			&r.Severity, &r.CooldownMinutes, &r.DeviceID, &r.InterfaceID,
			&r.NotifyEmail, &r.NotifyWebhook, &r.Enabled, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}

		rules = append(rules, &r)
	}

	return rules, rows.Err()
}

// ListEnabledWanRules returns every enabled WAN aggregate rule.
func (s *Store) ListEnabledWanRules(ctx context.Context) ([]*models.WanAlertRule, error) {
	rows, err := s.pool.Query(ctx, `SELECT
		id, name, metric, lookback_minutes, warning_threshold, critical_threshold,
		notify_email, notify_webhook, enabled
		FROM wan_alert_rules WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list wan rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.WanAlertRule

	for rows.Next() {
		var r models.WanAlertRule

		err := rows.Scan(
			&r.ID, &r.Name, &r.Metric, &r.LookbackMinutes,
			&r.WarningThreshold, &r.CriticalThreshold,
			&r.NotifyEmail, &r.NotifyWebhook, &r.Enabled,
		)
		if err != nil {
			return nil, fmt.Errorf("scan wan rule: %w", err)
		}

		rules = append(rules, &r)
	}

	return rules, rows.Err()
}

// ListEnabledPowerRules returns every enabled power aggregate rule.
func (s *Store) ListEnabledPowerRules(ctx context.Context) ([]*models.PowerAlertRule, error) {
	rows, err := s.pool.Query(ctx, `SELECT
		id, name, metric, lookback_minutes, warning_threshold, critical_threshold,
		notify_email, notify_webhook, enabled
		FROM power_alert_rules WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list power rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.PowerAlertRule

	for rows.Next() {
		var r models.PowerAlertRule

		err := rows.Scan(
			&r.ID, &r.Name, &r.Metric, &r.LookbackMinutes,
			&r.WarningThreshold, &r.CriticalThreshold,
			&r.NotifyEmail, &r.NotifyWebhook, &r.Enabled,
		)
		if err != nil {
			return nil, fmt.Errorf("scan power rule: %w", err)
		}

		rules = append(rules, &r)
	}

	return rules, rows.Err()
}

// FindOpenEvent returns the open or acknowledged event for a key, or
// ErrNotFound.
func (s *Store) FindOpenEvent(ctx context.Context, key EventKey) (*models.AlertEvent, error) {
	row := s.pool.QueryRow(ctx, `SELECT
		id, rule_id, wan_rule_id, power_rule_id, device_id, interface_id,
		severity, status, message, metric_value, threshold_value,
		triggered_at, acknowledged_at, acknowledged_by, resolved_at, notes
		FROM alert_events
		WHERE rule_id IS NOT DISTINCT FROM $1
		  AND wan_rule_id IS NOT DISTINCT FROM $2
		  AND power_rule_id IS NOT DISTINCT FROM $3
		  AND device_id IS NOT DISTINCT FROM $4
		  AND severity = $5
		  AND status IN ('open', 'acknowledged')
		LIMIT 1`,
		key.RuleID, key.WanRuleID, key.PowerRuleID, key.DeviceID, key.Severity)

	event, err := scanAlertEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("find open event: %w", err)
	}

	return event, nil
}

// InsertAlertEvent opens a new event. A unique violation means another
// evaluation beat us to it (scheduler lock failed open); the existing
// row is updated instead and created=false is returned.
func (s *Store) InsertAlertEvent(ctx context.Context, event *models.AlertEvent) (created bool, err error) {
	err = s.pool.QueryRow(ctx, `INSERT INTO alert_events (
		rule_id, wan_rule_id, power_rule_id, device_id, interface_id,
		severity, status, message, metric_value, threshold_value, triggered_at
	) VALUES ($1,$2,$3,$4,$5,$6,'open',$7,$8,$9,$10)
	RETURNING id`,
		event.RuleID, event.WanRuleID, event.PowerRuleID, event.DeviceID, event.InterfaceID,
		event.Severity, event.Message, event.MetricValue, event.ThresholdValue, nowUTC()).
		Scan(&event.ID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		key := EventKey{
			RuleID:      event.RuleID,
			WanRuleID:   event.WanRuleID,
			PowerRuleID: event.PowerRuleID,
			DeviceID:    event.DeviceID,
			Severity:    event.Severity,
		}

		existing, findErr := s.FindOpenEvent(ctx, key)
		if findErr != nil {
			return false, fmt.Errorf("insert alert event: recover duplicate: %w", findErr)
		}

		event.ID = existing.ID

		return false, s.UpdateAlertEventValues(ctx, event.ID, event.MetricValue, event.ThresholdValue, event.Message)
	}

	if err != nil {
		return false, fmt.Errorf("insert alert event: %w", err)
	}

	return true, nil
}

// UpdateAlertEventValues refreshes an open event in place. In-place
// updates do not re-notify.
func (s *Store) UpdateAlertEventValues(ctx context.Context, eventID int64, metricValue, thresholdValue float64, message string) error {
	_, err := s.pool.Exec(ctx, `UPDATE alert_events
		SET metric_value = $2, threshold_value = $3, message = $4
		WHERE id = $1`, eventID, metricValue, thresholdValue, message)
	if err != nil {
		return fmt.Errorf("update alert event: %w", err)
	}

	return nil
}

// ResolveOpenEvents auto-resolves open/acknowledged events for a rule
// and optional device scope. An empty severity resolves all severities.
func (s *Store) ResolveOpenEvents(ctx context.Context, key EventKey) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE alert_events
		SET status = 'resolved', resolved_at = $6
		WHERE rule_id IS NOT DISTINCT FROM $1
		  AND wan_rule_id IS NOT DISTINCT FROM $2
		  AND power_rule_id IS NOT DISTINCT FROM $3
		  AND device_id IS NOT DISTINCT FROM $4
		  AND ($5 = '' OR severity = $5)
		  AND status IN ('open', 'acknowledged')`,
		key.RuleID, key.WanRuleID, key.PowerRuleID, key.DeviceID, key.Severity, nowUTC())
	if err != nil {
		return 0, fmt.Errorf("resolve open events: %w", err)
	}

	return tag.RowsAffected(), nil
}

// AcknowledgeEvent marks an open event acknowledged by an operator.
func (s *Store) AcknowledgeEvent(ctx context.Context, eventID int64, user string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE alert_events
		SET status = 'acknowledged', acknowledged_at = $2, acknowledged_by = $3
		WHERE id = $1 AND status = 'open'`, eventID, nowUTC(), user)
	if err != nil {
		return fmt.Errorf("acknowledge event: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanAlertEvent(row pgx.Row) (*models.AlertEvent, error) {
	var e models.AlertEvent

	err := row.Scan(
		&e.ID, &e.RuleID, &e.WanRuleID, &e.PowerRuleID, &e.DeviceID, &e.InterfaceID,
		&e.Severity, &e.Status, &e.Message, &e.MetricValue, &e.ThresholdValue,
		&e.TriggeredAt, &e.AcknowledgedAt, &e.AcknowledgedBy, &e.ResolvedAt, &e.Notes,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}
