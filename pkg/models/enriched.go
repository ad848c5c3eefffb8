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
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidUrgency is returned when an urgency pair cannot be decoded.
var ErrInvalidUrgency = errors.New("urgency must be a two element array")

// AttackType is the kind of attack a pulse describes.
type AttackType string

const (
	AttackTypeRansomware   AttackType = "Ransomware"
	AttackTypeMalware      AttackType = "Malware"
	AttackTypeDdos         AttackType = "Ddos"
	AttackTypeBotnet       AttackType = "Botnet"
	AttackTypePhishing     AttackType = "Phishing"
	AttackTypeTrojan       AttackType = "Trojan"
	AttackTypeSpyware      AttackType = "Spyware"
	AttackTypeBruteForce   AttackType = "BruteForce"
	AttackTypeSQLInjection AttackType = "SQLInjection"
	AttackTypeUnknown      AttackType = "Unknown"
)

// AttackVector is the delivery channel of an attack.
type AttackVector string

const (
	AttackVectorEmail          AttackVector = "Email"
	AttackVectorWebApplication AttackVector = "WebApplication"
	AttackVectorNetwork        AttackVector = "Network"
	AttackVectorCloudService   AttackVector = "CloudService"
	AttackVectorSupplyChain    AttackVector = "SupplyChain"
	AttackVectorUnknown        AttackVector = "Unknown"
)

// Target is the category of asset an attack is aimed at.
type Target string

const (
	TargetWebApp         Target = "WebApp"
	TargetInfrastructure Target = "Infrastructure"
	TargetAPIAbuse       Target = "ApiAbuse"
	TargetIotDevices     Target = "IotDevices"
	TargetUserFocused    Target = "UserFocused"
	TargetEmailAttack    Target = "EmailAttack"
	TargetUnknown        Target = "Unknown"
)

// Urgency covers both halves of an urgency pair: Hot/Cold describe activity,
// Critical/Medium/Low describe severity.
type Urgency string

const (
	UrgencyHot      Urgency = "Hot"
	UrgencyCold     Urgency = "Cold"
	UrgencyCritical Urgency = "Critical"
	UrgencyMedium   Urgency = "Medium"
	UrgencyLow      Urgency = "Low"
)

// IsActivity reports whether u is an activity tier.
func (u Urgency) IsActivity() bool {
	return u == UrgencyHot || u == UrgencyCold
}

// IsSeverity reports whether u is a severity tier.
func (u Urgency) IsSeverity() bool {
	return u == UrgencyCritical || u == UrgencyMedium || u == UrgencyLow
}

// UrgencyPair is encoded on the wire as [activity, severity].
type UrgencyPair struct {
	Activity Urgency
	Severity Urgency
}

func (p UrgencyPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]Urgency{p.Activity, p.Severity})
}

func (p *UrgencyPair) UnmarshalJSON(data []byte) error {
	var pair []Urgency
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUrgency, err)
	}

	if len(pair) != 2 {
		return ErrInvalidUrgency
	}

	p.Activity, p.Severity = pair[0], pair[1]

	return nil
}

// EnrichedThreatRecord is the classification emitted for one pulse record.
type EnrichedThreatRecord struct {
	AttackTypes    []AttackType   `json:"attack_types"`
	AttackVectors  []AttackVector `json:"attack_vectors"`
	Urgency        UrgencyPair    `json:"urgency"`
	Targets        []Target       `json:"targets"`
	Locations      []string       `json:"locations"`
	ExpirationDate string         `json:"expiration_date"`
}
