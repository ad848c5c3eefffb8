package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/models"
)

// expirationLayout matches the canonical expiration_date string.
const expirationLayout = "2006-01-02T15:04:05"

const insertEnrichedRecordSQL = `INSERT INTO enriched_records (
	attack_types,
	attack_vectors,
	urgency,
	targets,
	locations,
	expiration_date
) VALUES ($1::jsonb, $2::jsonb, $3::jsonb, $4::jsonb, $5::jsonb, $6)`

// EnrichedRecordStore writes enriched threat records to the enriched_records table.
type EnrichedRecordStore struct {
	executor pgxExecutor
	logger   logger.Logger
}

// NewEnrichedRecordStore wraps a pool (or any compatible executor).
func NewEnrichedRecordStore(executor pgxExecutor, log logger.Logger) *EnrichedRecordStore {
	return &EnrichedRecordStore{executor: executor, logger: log}
}

// StoreEnrichedRecords inserts records in a single batch. An empty or
// unparseable expiration_date is stored as NULL. That includes dates the
// fixed-unit calendar produces but the real one lacks, such as month 13 or
// February 30.
func (s *EnrichedRecordStore) StoreEnrichedRecords(ctx context.Context, records []models.EnrichedThreatRecord) error {
	if len(records) == 0 || s == nil || s.executor == nil {
		return nil
	}

	batch := &pgx.Batch{}

	for i := range records {
		args, err := s.insertArgs(&records[i])
		if err != nil {
			return fmt.Errorf("%w: enriched record %d: %w", ErrFailedToInsert, i, err)
		}

		batch.Queue(insertEnrichedRecordSQL, args...)
	}

	if err := sendBatchExecAll(ctx, s.executor, batch, "enriched_records"); err != nil {
		return fmt.Errorf("failed to store enriched records: %w", err)
	}

	return nil
}

func (s *EnrichedRecordStore) insertArgs(rec *models.EnrichedThreatRecord) ([]any, error) {
	columns := []any{
		rec.AttackTypes,
		rec.AttackVectors,
		rec.Urgency,
		rec.Targets,
		rec.Locations,
	}

	args := make([]any, 0, len(columns)+1)

	for _, col := range columns {
		b, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}

		args = append(args, b)
	}

	return append(args, s.expirationValue(rec.ExpirationDate)), nil
}

func (s *EnrichedRecordStore) expirationValue(raw string) *time.Time {
	if raw == "" {
		return nil
	}

	ts, err := time.Parse(expirationLayout, raw)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug().
				Err(err).
				Str("expiration_date", raw).
				Msg("storing NULL expiration for unparseable date")
		}

		return nil
	}

	return &ts
}
