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

// Package enrich classifies OTX pulse records into attack types, attack
// vectors, targets, urgency, locations and an expiration date.
//
// Everything in this package is a pure function of its input: there is no
// state between records or between pulses, so records may be enriched in
// parallel as long as output order is restored.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/threatradar/pkg/models"
)

var (
	// ErrDecodePulse wraps any failure to decode an input payload.
	ErrDecodePulse = errors.New("failed to decode pulse")
	// ErrEncodeRecord wraps any failure to encode an enriched record.
	ErrEncodeRecord = errors.New("failed to encode enriched record")
)

const defaultWorkers = 1

// Enricher turns pulses into enriched threat records. The zero value is not
// usable; call New.
type Enricher struct {
	workers int
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithWorkers sets how many records of one pulse are enriched concurrently.
// Values below one are ignored.
func WithWorkers(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New returns an Enricher.
func New(opts ...Option) *Enricher {
	e := &Enricher{workers: defaultWorkers}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Workers returns the configured concurrency.
func (e *Enricher) Workers() int {
	return e.workers
}

// EnrichRecord classifies a single record.
func (*Enricher) EnrichRecord(ctx context.Context, rec *models.Record) models.EnrichedThreatRecord {
	withRole := AggregateText(rec, FieldsWithRole)

	enriched := models.EnrichedThreatRecord{
		AttackTypes:   classify(withRole, attackTypeTable, models.AttackTypeUnknown),
		AttackVectors: ClassifyAttackVectors(rec),
		Urgency:       ClassifyUrgency(rec),
		Targets:       classify(withRole, targetTable, models.TargetUnknown),
		Locations:     ResolveLocations(rec),
		ExpirationDate: ResolveExpiration(rec, func(string, error) {
			recordExpirationSkipped(ctx)
		}),
	}

	recordEnriched(ctx, string(enriched.Urgency.Activity))

	return enriched
}

// EnrichPulse classifies every record of pulse sequentially, in input order.
func (e *Enricher) EnrichPulse(ctx context.Context, pulse *models.Pulse) []models.EnrichedThreatRecord {
	out := make([]models.EnrichedThreatRecord, len(pulse.Results))

	for i := range pulse.Results {
		out[i] = e.EnrichRecord(ctx, &pulse.Results[i])
	}

	return out
}

// EnrichPulseConcurrent classifies the records of pulse on up to Workers
// goroutines. Output order matches input order. The only error is ctx's.
func (e *Enricher) EnrichPulseConcurrent(ctx context.Context, pulse *models.Pulse) ([]models.EnrichedThreatRecord, error) {
	if e.workers <= 1 || len(pulse.Results) <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return e.EnrichPulse(ctx, pulse), nil
	}

	out := make([]models.EnrichedThreatRecord, len(pulse.Results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range pulse.Results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			out[i] = e.EnrichRecord(gctx, &pulse.Results[i])

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// DecodePulse decodes one JSON pulse payload.
func DecodePulse(ctx context.Context, payload []byte) (*models.Pulse, error) {
	var pulse models.Pulse

	if err := json.Unmarshal(payload, &pulse); err != nil {
		recordDecodeFailure(ctx)

		return nil, fmt.Errorf("%w: %w", ErrDecodePulse, err)
	}

	return &pulse, nil
}

// Transform is the byte-level entry point: one encoded pulse in, one encoded
// EnrichedThreatRecord per pulse record out, in record order. A payload that
// cannot be decoded fails the whole call and produces no output.
func (e *Enricher) Transform(ctx context.Context, payload []byte) ([][]byte, error) {
	pulse, err := DecodePulse(ctx, payload)
	if err != nil {
		return nil, err
	}

	records, err := e.EnrichPulseConcurrent(ctx, pulse)
	if err != nil {
		return nil, err
	}

	return EncodeRecords(records)
}

// EncodeRecords JSON-encodes each record independently.
func EncodeRecords(records []models.EnrichedThreatRecord) ([][]byte, error) {
	out := make([][]byte, 0, len(records))

	for i := range records {
		b, err := json.Marshal(&records[i])
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrEncodeRecord, i, err)
		}

		out = append(out, b)
	}

	return out, nil
}
