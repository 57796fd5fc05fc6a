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

package flow

import "time"

// QuerySource names which table a flow query should read.
type QuerySource string

const (
	SourceRaw     QuerySource = "flow_records"
	SourceSummary QuerySource = "flow_summary_5m"

	// summaryThreshold is the span at which scanning raw rows stops
	// paying for its extra detail.
	summaryThreshold = 6 * time.Hour
)

// SourceForRange picks the table for a [start, end) query. Long spans
// route to the 5-minute summary; short spans keep per-flow detail.
// Summary rows drop country codes, so a query that aggregates by geo
// must set needsGeo and read raw rows whatever the span. Inverted
// ranges are treated as zero-width.
func SourceForRange(start, end time.Time, needsGeo bool) QuerySource {
	if needsGeo {
		return SourceRaw
	}

	if end.Sub(start) >= summaryThreshold {
		return SourceSummary
	}

	return SourceRaw
}
