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

// System event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// SystemEvent is an append-only operational log row, separate from the
// per-user audit trail. Background jobs write one instead of failing.
type SystemEvent struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Level        string    `json:"level"`
	Source       string    `json:"source"`
	EventType    string    `json:"event_type"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   *int64    `json:"resource_id,omitempty"`
	Message      string    `json:"message"`
	Details      string    `json:"details,omitempty"`
}

// SystemSetting is a key/value configuration row. Secret values are
// encrypted at rest and masked in API responses.
type SystemSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	IsSecret  bool      `json:"is_secret"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known setting keys consumed by the core.
const (
	SettingWanCommitmentBps     = "wan_commitment_bps"
	SettingPowerBudgetWatts     = "power_budget_watts"
	SettingFlowRollupBackfilled = "flow_rollup_backfilled"

	SettingSMTPEnabled     = "smtp_enabled"
	SettingSMTPHost        = "smtp_host"
	SettingSMTPPort        = "smtp_port"
	SettingSMTPUsername    = "smtp_username"
	SettingSMTPPassword    = "smtp_password"
	SettingSMTPUseTLS      = "smtp_use_tls"
	SettingSMTPFromAddress = "smtp_from_address"
	SettingSMTPFromName    = "smtp_from_name"
)
