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

import "github.com/carverauto/threatradar/pkg/models"

// ResolveExpiration returns the latest indicator expiration, reformatted, or
// "" when no indicator carries a parseable expiration. Unparseable values are
// skipped and reported through skipped, which may be nil.
func ResolveExpiration(rec *models.Record, skipped func(value string, err error)) string {
	var (
		latest FixedInstant
		found  bool
	)

	for i := range rec.Indicators {
		exp := rec.Indicators[i].Expiration
		if exp == nil {
			continue
		}

		instant, err := ParseFixedTime(*exp)
		if err != nil {
			if skipped != nil {
				skipped(*exp, err)
			}

			continue
		}

		if !found || instant > latest {
			latest = instant
			found = true
		}
	}

	if !found {
		return ""
	}

	return latest.Format()
}
