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
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/threatradar/pkg/models"
)

const scenarioPulse = `{
  "results": [
    {
      "id": "p-1",
      "name": "",
      "description": "Ransomware attack via phishing email targeting users",
      "tags": [],
      "indicators": [],
      "targeted_countries": []
    },
    {
      "id": "p-2",
      "name": "Botnet infrastructure",
      "description": "Critical command and control servers",
      "tags": ["c2"],
      "targeted_countries": ["Germany"],
      "indicators": [
        {"id": 1, "title": "C2 node", "is_active": 1, "expiration": "2023-01-01T00:00:00"},
        {"id": 2, "title": "C2 node", "is_active": 1, "expiration": "2023-06-01T00:00:00"},
        {"id": 3, "title": "old node", "is_active": 0, "expiration": null}
      ]
    }
  ],
  "count": 2,
  "prefetch_pulse_ids": false,
  "t": 0,
  "t2": 0.5,
  "t3": 1.5,
  "previous": null,
  "next": "https://otx.alienvault.com/api/v1/pulses/subscribed?page=2"
}`

func TestEnrichRecordPhishingScenario(t *testing.T) {
	t.Parallel()

	rec := &models.Record{
		Description: "Ransomware attack via phishing email targeting users",
	}

	got := New().EnrichRecord(context.Background(), rec)

	// "phishing" contains the "phish" keyword, so Phishing is reported too.
	assert.Equal(t, []models.AttackType{models.AttackTypeRansomware, models.AttackTypePhishing}, got.AttackTypes)
	assert.Equal(t, []models.AttackVector{models.AttackVectorEmail}, got.AttackVectors)
	assert.Contains(t, got.Targets, models.TargetUserFocused)
	assert.Contains(t, got.Targets, models.TargetEmailAttack)
	assert.Equal(t, models.UrgencyPair{Activity: models.UrgencyCold, Severity: models.UrgencyLow}, got.Urgency)
	assert.Equal(t, []string{UnknownLocation}, got.Locations)
	assert.Empty(t, got.ExpirationDate)
}

func TestTransformPreservesOrder(t *testing.T) {
	t.Parallel()

	out, err := New().Transform(context.Background(), []byte(scenarioPulse))
	require.NoError(t, err)
	require.Len(t, out, 2)

	var first, second models.EnrichedThreatRecord

	require.NoError(t, json.Unmarshal(out[0], &first))
	require.NoError(t, json.Unmarshal(out[1], &second))

	assert.Equal(t, []models.AttackType{models.AttackTypeRansomware, models.AttackTypePhishing}, first.AttackTypes)

	assert.Equal(t, []models.AttackType{models.AttackTypeBotnet}, second.AttackTypes)
	assert.Equal(t, []models.Target{models.TargetInfrastructure}, second.Targets)
	assert.Equal(t, models.UrgencyPair{Activity: models.UrgencyHot, Severity: models.UrgencyCritical}, second.Urgency)
	assert.Equal(t, []string{"Germany"}, second.Locations)
	assert.Equal(t, "2023-06-01T00:00:00", second.ExpirationDate)
}

func TestTransformWireShape(t *testing.T) {
	t.Parallel()

	out, err := New().Transform(context.Background(), []byte(`{"results":[{"name":"quiet"}]}`))
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.JSONEq(t, `{
		"attack_types": ["Unknown"],
		"attack_vectors": ["Unknown"],
		"urgency": ["Cold", "Low"],
		"targets": ["Unknown"],
		"locations": ["Unknown"],
		"expiration_date": ""
	}`, string(out[0]))

	// Field order is stable on the wire.
	assert.Regexp(t, `^\{"attack_types":.*"attack_vectors":.*"urgency":\["Cold","Low"\],"targets":.*"locations":.*"expiration_date":""\}$`, string(out[0]))
}

func TestTransformEmptyResults(t *testing.T) {
	t.Parallel()

	out, err := New().Transform(context.Background(), []byte(`{"results":[],"count":0}`))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTransformDecodeFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"not json", `not json`, nil},
		{"missing results", `{"count":3}`, models.ErrMissingResults},
		{"null results", `{"results":null}`, models.ErrMissingResults},
		{"negative indicator id", `{"results":[{"indicators":[{"id":-4}]}]}`, models.ErrInvalidIndicatorID},
		{"results wrong type", `{"results":"nope"}`, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out, err := New().Transform(context.Background(), []byte(tc.payload))
			require.Error(t, err)
			require.ErrorIs(t, err, ErrDecodePulse)
			assert.Nil(t, out)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestDecodePulseLargeIndicatorID(t *testing.T) {
	t.Parallel()

	payload := `{"results":[{"indicators":[
		{"id": 123456789012345678901234567890, "is_active": 1},
		{"id": "18446744073709551616"}
	]}]}`

	pulse, err := DecodePulse(context.Background(), []byte(payload))
	require.NoError(t, err)
	require.Len(t, pulse.Results, 1)
	require.Len(t, pulse.Results[0].Indicators, 2)

	assert.Equal(t, "123456789012345678901234567890", pulse.Results[0].Indicators[0].ID.String())
	assert.Equal(t, "18446744073709551616", pulse.Results[0].Indicators[1].ID.String())
}

func TestEnrichPulseConcurrentMatchesSequential(t *testing.T) {
	t.Parallel()

	pulse := &models.Pulse{}

	descriptions := []string{
		"ransomware via email",
		"sql injection against web portal",
		"botnet of iot devices",
		"spyware on user phones",
		"nothing to see",
		"ddos against datacenter, severe",
	}

	for i := range 64 {
		pulse.Results = append(pulse.Results, models.Record{
			ID:          fmt.Sprintf("r-%d", i),
			Description: descriptions[i%len(descriptions)],
			Indicators: []models.Indicator{
				{IsActive: uint8(i % 2)},
				{IsActive: 1},
			},
		})
	}

	enricher := New(WithWorkers(8))
	require.Equal(t, 8, enricher.Workers())

	want := enricher.EnrichPulse(context.Background(), pulse)

	got, err := enricher.EnrichPulseConcurrent(context.Background(), pulse)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEnrichPulseConcurrentCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pulse := &models.Pulse{Results: make([]models.Record, 4)}

	_, err := New(WithWorkers(2)).EnrichPulseConcurrent(ctx, pulse)
	require.ErrorIs(t, err, context.Canceled)

	_, err = New().EnrichPulseConcurrent(ctx, pulse)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithWorkersIgnoresNonPositive(t *testing.T) {
	t.Parallel()

	assert.Equal(t, defaultWorkers, New(WithWorkers(0)).Workers())
	assert.Equal(t, defaultWorkers, New(WithWorkers(-3)).Workers())
}

func TestEnrichmentIsDeterministic(t *testing.T) {
	t.Parallel()

	e := New()

	a, err := e.Transform(context.Background(), []byte(scenarioPulse))
	require.NoError(t, err)

	b, err := e.Transform(context.Background(), []byte(scenarioPulse))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
