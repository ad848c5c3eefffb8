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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName                = "threatradar.enrich"
	metricRecordsEnriched    = "enrich_records_total"
	metricExpirationsSkipped = "enrich_expiration_skipped_total"
	metricDecodeFailures     = "enrich_decode_failures_total"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	recordsCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	skippedCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	decodeFailureCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	records, err := meter.Int64Counter(
		metricRecordsEnriched,
		metric.WithDescription("Pulse records turned into enriched threat records"),
	)
	if err != nil {
		otel.Handle(err)
	}
	recordsCounter = records

	skipped, err := meter.Int64Counter(
		metricExpirationsSkipped,
		metric.WithDescription("Indicator expirations ignored because they could not be parsed"),
	)
	if err != nil {
		otel.Handle(err)
	}
	skippedCounter = skipped

	decode, err := meter.Int64Counter(
		metricDecodeFailures,
		metric.WithDescription("Pulse payloads rejected because they could not be decoded"),
	)
	if err != nil {
		otel.Handle(err)
	}
	decodeFailureCounter = decode
}

func recordEnriched(ctx context.Context, activity string) {
	meterOnce.Do(initMeter)
	if recordsCounter == nil {
		return
	}

	recordsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("activity", activity)))
}

func recordExpirationSkipped(ctx context.Context) {
	meterOnce.Do(initMeter)
	if skippedCounter == nil {
		return
	}

	skippedCounter.Add(ctx, 1)
}

func recordDecodeFailure(ctx context.Context) {
	meterOnce.Do(initMeter)
	if decodeFailureCounter == nil {
		return
	}

	decodeFailureCounter.Add(ctx, 1)
}
