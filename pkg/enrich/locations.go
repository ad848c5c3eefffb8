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
	"slices"

	"github.com/carverauto/threatradar/pkg/models"
)

// UnknownLocation is reported when a record names no targeted countries.
const UnknownLocation = "Unknown"

// ResolveLocations returns the record's targeted countries in feed order, or
// a single UnknownLocation entry when there are none.
func ResolveLocations(rec *models.Record) []string {
	if len(rec.TargetedCountries) == 0 {
		return []string{UnknownLocation}
	}

	return slices.Clone(rec.TargetedCountries)
}
