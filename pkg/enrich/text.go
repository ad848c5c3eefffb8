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

// FieldSet selects which record fields feed a classifier's search text.
type FieldSet int

const (
	// FieldsWithRole is name, description, tags, then title, description and
	// role of every indicator. Used for attack types and targets.
	FieldsWithRole FieldSet = iota
	// FieldsWithoutRole is FieldsWithRole minus the indicator role. Used for
	// attack vectors.
	FieldsWithoutRole
	// FieldsRecordOnly is name, description and tags. Used for severity.
	FieldsRecordOnly
)

// AggregateText joins the selected fields with single spaces and lower-cases
// the result. A missing indicator role contributes an empty string.
func AggregateText(rec *models.Record, fs FieldSet) string {
	parts := make([]string, 0, 2+len(rec.Tags)+3*len(rec.Indicators))
	parts = append(parts, rec.Name, rec.Description)
	parts = append(parts, rec.Tags...)

	if fs != FieldsRecordOnly {
		for i := range rec.Indicators {
			ind := &rec.Indicators[i]
			parts = append(parts, ind.Title, ind.Description)

			if fs == FieldsWithRole {
				role := ""
				if ind.Role != nil {
					role = *ind.Role
				}

				parts = append(parts, role)
			}
		}
	}

	return strings.ToLower(strings.Join(parts, " "))
}
