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

// PollResult is everything one poll_device run wants persisted. All of
// it commits in a single transaction so a cancelled poll leaves no
// partial sample behind.
type PollResult struct {
	DeviceID  int64
	Timestamp time.Time

	Status        string
	SysName       string
	UptimeSeconds *int64
	CPUUsage      *float64
	MemoryUsage   *float64
	Temperature   *float64

	Metrics           []*InterfaceMetric
	OperStatusChanges []*PortStateChange
}
