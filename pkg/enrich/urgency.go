/*
 * Copyright 2025 Carver Automation Corporation.
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

package enrich

import (
	"strings"

	"github.com/carverauto/threatradar/pkg/models"
)

// ClassifyUrgency returns the (activity, severity) pair for rec.
//
// Activity sums +1 for every active indicator and -1 for every other one; a
// strictly positive sum is Hot, anything else (including no indicators) is
// Cold. Severity starts at Low and is overwritten by every severity keyword
// found in the record text, so the last match in table order wins.
func ClassifyUrgency(rec *models.Record) models.UrgencyPair {
	return models.UrgencyPair{
		Activity: activityTier(rec.Indicators),
		Severity: severityTier(AggregateText(rec, FieldsRecordOnly)),
	}
}

func activityTier(indicators []models.Indicator) models.Urgency {
	score := 0

	for i := range indicators {
		if indicators[i].Active() {
			score++
		} else {
			score--
		}
	}

	if score > 0 {
		return models.UrgencyHot
	}

	return models.UrgencyCold
}

func severityTier(text string) models.Urgency {
	severity := models.UrgencyLow

	for _, rule := range urgencyTable {
		if !rule.Category.IsSeverity() {
			continue
		}

		if strings.Contains(text, rule.Keyword) {
			severity = rule.Category
		}
	}

	return severity
}
