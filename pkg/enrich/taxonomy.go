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

// KeywordRule maps a lower-case keyword to the category it signals.
type KeywordRule[T comparable] struct {
	Keyword  string
	Category T
}

// Table is an ordered keyword taxonomy. Iteration order is part of the
// result: classification output order and severity selection both follow it.
type Table[T comparable] []KeywordRule[T]

// AttackTypeTable returns a copy of the attack-type taxonomy in declaration order.
func AttackTypeTable() Table[models.AttackType] {
	return slices.Clone(attackTypeTable)
}

// AttackVectorTable returns the attack-vector taxonomy in declaration order.
func AttackVectorTable() Table[models.AttackVector] {
	return slices.Clone(attackVectorTable)
}

// UrgencyTable returns the urgency taxonomy in declaration order.
func UrgencyTable() Table[models.Urgency] {
	return slices.Clone(urgencyTable)
}

// TargetTable returns the target taxonomy in declaration order.
func TargetTable() Table[models.Target] {
	return slices.Clone(targetTable)
}

//nolint:gochecknoglobals // immutable lookup tables
var attackTypeTable = Table[models.AttackType]{
	{"ransom", models.AttackTypeRansomware},
	{"ransomware", models.AttackTypeRansomware},
	{"locker", models.AttackTypeRansomware},
	{"cryptolocker", models.AttackTypeRansomware},
	{"encryptor", models.AttackTypeRansomware},
	{"crypto-malware", models.AttackTypeRansomware},

	{"malware", models.AttackTypeMalware},
	{"virus", models.AttackTypeMalware},
	{"worm", models.AttackTypeMalware},
	{"adware", models.AttackTypeMalware},
	{"rootkit", models.AttackTypeMalware},
	{"keylogger", models.AttackTypeMalware},

	{"ddos", models.AttackTypeDdos},
	{"dos", models.AttackTypeDdos},
	{"denial of service", models.AttackTypeDdos},
	{"distributed denial of service", models.AttackTypeDdos},
	{"flood attack", models.AttackTypeDdos},
	{"syn flood", models.AttackTypeDdos},
	{"amplification attack", models.AttackTypeDdos},

	{"botnet", models.AttackTypeBotnet},
	{"bot network", models.AttackTypeBotnet},
	{"zombie network", models.AttackTypeBotnet},
	{"c&c", models.AttackTypeBotnet},
	{"command and control", models.AttackTypeBotnet},

	{"phish", models.AttackTypePhishing},
	{"phishing", models.AttackTypePhishing},
	{"spearphish", models.AttackTypePhishing},
	{"spear-phishing", models.AttackTypePhishing},
	{"whaling", models.AttackTypePhishing},
	{"credential harvesting", models.AttackTypePhishing},
	{"email scam", models.AttackTypePhishing},
	{"smishing", models.AttackTypePhishing},
	{"vishing", models.AttackTypePhishing},

	{"trojan", models.AttackTypeTrojan},
	{"trojan horse", models.AttackTypeTrojan},
	{"dropper", models.AttackTypeTrojan},
	{"backdoor", models.AttackTypeTrojan},
	{"infostealer", models.AttackTypeTrojan},

	{"spyware", models.AttackTypeSpyware},
	{"snoopware", models.AttackTypeSpyware},
	{"tracking software", models.AttackTypeSpyware},
	{"monitoring tool", models.AttackTypeSpyware},

	{"brute force", models.AttackTypeBruteForce},
	{"bruteforce", models.AttackTypeBruteForce},
	{"credential stuffing", models.AttackTypeBruteForce},
	{"password cracking", models.AttackTypeBruteForce},
	{"dictionary attack", models.AttackTypeBruteForce},

	{"sql injection", models.AttackTypeSQLInjection},
	{"sqli", models.AttackTypeSQLInjection},
	{"injection attack", models.AttackTypeSQLInjection},
	{"database injection", models.AttackTypeSQLInjection},
	{"blind sql", models.AttackTypeSQLInjection},
	{"error-based injection", models.AttackTypeSQLInjection},
	{"union-based injection", models.AttackTypeSQLInjection},
}

//nolint:gochecknoglobals // immutable lookup tables
var attackVectorTable = Table[models.AttackVector]{
	{"email", models.AttackVectorEmail},
	{"phishing", models.AttackVectorEmail},
	{"spearphish", models.AttackVectorEmail},
	{"spoofing", models.AttackVectorEmail},

	{"web", models.AttackVectorWebApplication},
	{"xss", models.AttackVectorWebApplication},
	{"cross-site scripting", models.AttackVectorWebApplication},
	{"sql injection", models.AttackVectorWebApplication},
	{"sqli", models.AttackVectorWebApplication},
	{"csrf", models.AttackVectorWebApplication},
	{"directory traversal", models.AttackVectorWebApplication},

	{"network", models.AttackVectorNetwork},
	{"ddos", models.AttackVectorNetwork},
	{"denial of service", models.AttackVectorNetwork},
	{"port scan", models.AttackVectorNetwork},
	{"mitm", models.AttackVectorNetwork},
	{"man in the middle", models.AttackVectorNetwork},

	{"cloud", models.AttackVectorCloudService},
	{"aws", models.AttackVectorCloudService},
	{"gcp", models.AttackVectorCloudService},
	{"azure", models.AttackVectorCloudService},
	{"bucket", models.AttackVectorCloudService},
	{"s3", models.AttackVectorCloudService},
	{"misconfig", models.AttackVectorCloudService},
	{"storage exposure", models.AttackVectorCloudService},

	{"supply chain", models.AttackVectorSupplyChain},
	{"dependency confusion", models.AttackVectorSupplyChain},
	{"software supply chain", models.AttackVectorSupplyChain},
	{"package hijack", models.AttackVectorSupplyChain},
	{"vendor compromise", models.AttackVectorSupplyChain},
}

// Activity keywords (hot/cold) are listed for completeness; only the severity
// keywords influence classification.
//
//nolint:gochecknoglobals // immutable lookup tables
var urgencyTable = Table[models.Urgency]{
	{"hot", models.UrgencyHot},
	{"immediate", models.UrgencyHot},
	{"active", models.UrgencyHot},
	{"ongoing", models.UrgencyHot},
	{"breaking", models.UrgencyHot},

	{"cold", models.UrgencyCold},
	{"stale", models.UrgencyCold},
	{"archived", models.UrgencyCold},
	{"historical", models.UrgencyCold},
	{"retired", models.UrgencyCold},
	{"inactive", models.UrgencyCold},

	{"critical", models.UrgencyCritical},
	{"high", models.UrgencyCritical},
	{"severe", models.UrgencyCritical},
	{"urgent", models.UrgencyCritical},
	{"emergency", models.UrgencyCritical},

	{"medium", models.UrgencyMedium},
	{"moderate", models.UrgencyMedium},
	{"average", models.UrgencyMedium},
	{"balanced", models.UrgencyMedium},

	{"low", models.UrgencyLow},
	{"minor", models.UrgencyLow},
	{"negligible", models.UrgencyLow},
	{"low priority", models.UrgencyLow},
	{"minimal", models.UrgencyLow},
}

//nolint:gochecknoglobals // immutable lookup tables
var targetTable = Table[models.Target]{
	{"webapp", models.TargetWebApp},
	{"web app", models.TargetWebApp},
	{"website", models.TargetWebApp},
	{"web application", models.TargetWebApp},
	{"web portal", models.TargetWebApp},
	{"online service", models.TargetWebApp},
	{"web service", models.TargetWebApp},

	{"infrastructure", models.TargetInfrastructure},
	{"server", models.TargetInfrastructure},
	{"servers", models.TargetInfrastructure},
	{"datacenter", models.TargetInfrastructure},
	{"data center", models.TargetInfrastructure},
	{"network infra", models.TargetInfrastructure},
	{"cloud infrastructure", models.TargetInfrastructure},
	{"system", models.TargetInfrastructure},
	{"backend", models.TargetInfrastructure},

	{"api abuse", models.TargetAPIAbuse},
	{"api exploitation", models.TargetAPIAbuse},
	{"api attack", models.TargetAPIAbuse},
	{"api misuse", models.TargetAPIAbuse},
	{"rest api", models.TargetAPIAbuse},
	{"graphql api", models.TargetAPIAbuse},
	{"api endpoint", models.TargetAPIAbuse},

	{"iot", models.TargetIotDevices},
	{"device", models.TargetIotDevices},
	{"smart devices", models.TargetIotDevices},
	{"smart home", models.TargetIotDevices},
	{"embedded systems", models.TargetIotDevices},
	{"industrial control systems", models.TargetIotDevices},
	{"ics", models.TargetIotDevices},
	{"plc", models.TargetIotDevices},
	{"smart tv", models.TargetIotDevices},
	{"iot network", models.TargetIotDevices},

	{"user", models.TargetUserFocused},
	{"users", models.TargetUserFocused},
	{"human", models.TargetUserFocused},
	{"human target", models.TargetUserFocused},
	{"social engineering", models.TargetUserFocused},
	{"account takeover", models.TargetUserFocused},
	{"identity theft", models.TargetUserFocused},
	{"credential theft", models.TargetUserFocused},
	{"login brute force", models.TargetUserFocused},
	{"phishing scam", models.TargetUserFocused},

	{"email", models.TargetEmailAttack},
	{"email attack", models.TargetEmailAttack},
	{"email phishing", models.TargetEmailAttack},
	{"email spoofing", models.TargetEmailAttack},
	{"spam email", models.TargetEmailAttack},
	{"malicious email", models.TargetEmailAttack},
	{"email fraud", models.TargetEmailAttack},
	{"spearphishing", models.TargetEmailAttack},
	{"mail scam", models.TargetEmailAttack},
	{"mail fraud", models.TargetEmailAttack},
}
