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

// classify walks table in order and collects each category whose keyword is a
// substring of text. An empty result becomes []T{unknown}.
func classify[T comparable](text string, table Table[T], unknown T) []T {
	matched := newOrderedSet[T]()

	for _, rule := range table {
		if strings.Contains(text, rule.Keyword) {
			matched.Add(rule.Category)
		}
	}

	if matched.Len() == 0 {
		return []T{unknown}
	}

	return matched.Items()
}

// ClassifyAttackTypes matches the attack-type taxonomy against the record's
// name, description, tags and indicator title/description/role.
func ClassifyAttackTypes(rec *models.Record) []models.AttackType {
	return classify(AggregateText(rec, FieldsWithRole), attackTypeTable, models.AttackTypeUnknown)
}

// ClassifyAttackVectors matches the attack-vector taxonomy; indicator roles are
// not searched.
func ClassifyAttackVectors(rec *models.Record) []models.AttackVector {
	return classify(AggregateText(rec, FieldsWithoutRole), attackVectorTable, models.AttackVectorUnknown)
}

// ClassifyTargets matches the target taxonomy using the same text as
// ClassifyAttackTypes.
func ClassifyTargets(rec *models.Record) []models.Target {
	return classify(AggregateText(rec, FieldsWithRole), targetTable, models.TargetUnknown)
}
