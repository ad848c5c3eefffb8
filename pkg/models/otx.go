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

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrMissingResults is returned when a pulse payload has no results array.
	ErrMissingResults = errors.New("pulse payload is missing results")
	// ErrInvalidIndicatorID is returned when an indicator id is not an unsigned integer.
	ErrInvalidIndicatorID = errors.New("indicator id must be an unsigned integer")
)

// Pulse is one page of the OTX subscribed pulses feed.
//
// Only Results is read by the enrichment core; the pagination fields are
// carried through untouched for the host.
type Pulse struct {
	Results          []Record `json:"results"`
	Count            uint64   `json:"count"`
	PrefetchPulseIDs bool     `json:"prefetch_pulse_ids"`
	T                uint32   `json:"t"`
	T2               float64  `json:"t2"`
	T3               float64  `json:"t3"`
	Previous         *string  `json:"previous"`
	Next             *string  `json:"next"`
}

// UnmarshalJSON rejects payloads without a results array.
func (p *Pulse) UnmarshalJSON(data []byte) error {
	type Alias Pulse

	var probe struct {
		Results json.RawMessage `json:"results"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if len(probe.Results) == 0 || bytes.Equal(probe.Results, []byte("null")) {
		return ErrMissingResults
	}

	var alias Alias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	*p = Pulse(alias)

	return nil
}

// Record is a single threat pulse inside a Pulse page.
type Record struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	AuthorName        string      `json:"author_name"`
	Modified          string      `json:"modified"`
	Created           string      `json:"created"`
	Revision          uint64      `json:"revision"`
	TLP               string      `json:"tlp"`
	Public            uint64      `json:"public"`
	Adversary         string      `json:"adversary"`
	Indicators        []Indicator `json:"indicators"`
	Tags              []string    `json:"tags"`
	TargetedCountries []string    `json:"targeted_countries"`
	MalwareFamilies   []string    `json:"malware_families"`
	AttackIDs         []string    `json:"attack_ids"`
	References        []string    `json:"references"`
	Industries        []string    `json:"industries"`
	ExtractSource     []string    `json:"extract_source"`
	MoreIndicators    bool        `json:"more_indicators"`
}

// Indicator is one observable (hash, domain, IP...) attached to a Record.
type Indicator struct {
	ID          IndicatorID `json:"id"`
	Indicator   string      `json:"indicator"`
	Type        string      `json:"type"`
	Created     string      `json:"created"`
	Content     string      `json:"content"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Expiration  *string     `json:"expiration"`
	IsActive    uint8       `json:"is_active"`
	Role        *string     `json:"role"`
}

// Active reports whether the feed marked the indicator as active.
func (i *Indicator) Active() bool {
	return i.IsActive == 1
}

// IndicatorID is an unsigned indicator identifier that may exceed 64 bits.
type IndicatorID struct {
	v big.Int
}

// NewIndicatorID returns an IndicatorID holding v.
func NewIndicatorID(v uint64) IndicatorID {
	var id IndicatorID

	id.v.SetUint64(v)

	return id
}

// ParseIndicatorID parses a base-10 unsigned integer.
func ParseIndicatorID(s string) (IndicatorID, error) {
	var id IndicatorID

	if _, ok := id.v.SetString(s, 10); !ok || id.v.Sign() < 0 {
		return IndicatorID{}, fmt.Errorf("%w: %q", ErrInvalidIndicatorID, s)
	}

	return id, nil
}

// Big returns a copy of the underlying value.
func (id IndicatorID) Big() *big.Int {
	return new(big.Int).Set(&id.v)
}

func (id IndicatorID) String() string {
	return id.v.String()
}

// MarshalJSON encodes the id as a bare JSON number.
func (id IndicatorID) MarshalJSON() ([]byte, error) {
	return []byte(id.v.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string. null
// leaves the id unchanged.
func (id *IndicatorID) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		return nil
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	parsed, err := ParseIndicatorID(s)
	if err != nil {
		return err
	}

	id.v.Set(&parsed.v)

	return nil
}
