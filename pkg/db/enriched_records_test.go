package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/models"
)

func sampleEnrichedRecord(expiration string) models.EnrichedThreatRecord {
	return models.EnrichedThreatRecord{
		AttackTypes:    []models.AttackType{models.AttackTypeRansomware, models.AttackTypePhishing},
		AttackVectors:  []models.AttackVector{models.AttackVectorEmail},
		Urgency:        models.UrgencyPair{Activity: models.UrgencyHot, Severity: models.UrgencyCritical},
		Targets:        []models.Target{models.TargetUserFocused},
		Locations:      []string{"Germany"},
		ExpirationDate: expiration,
	}
}

func TestStoreEnrichedRecords_QueuesOneInsertPerRecord(t *testing.T) {
	exec := &fakePgxExecutor{}
	store := NewEnrichedRecordStore(exec, logger.NewTestLogger())

	err := store.StoreEnrichedRecords(context.Background(), []models.EnrichedThreatRecord{
		sampleEnrichedRecord("2023-06-01T00:00:00"),
		sampleEnrichedRecord(""),
	})
	require.NoError(t, err)

	require.Len(t, exec.batches, 1)
	queued := exec.batches[0].QueuedQueries
	require.Len(t, queued, 2)
	assert.Contains(t, queued[0].SQL, "INSERT INTO enriched_records")

	args := queued[0].Arguments
	require.Len(t, args, 6)
	assert.JSONEq(t, `["Ransomware","Phishing"]`, string(args[0].([]byte)))
	assert.JSONEq(t, `["Email"]`, string(args[1].([]byte)))
	assert.JSONEq(t, `["Hot","Critical"]`, string(args[2].([]byte)))
	assert.JSONEq(t, `["UserFocused"]`, string(args[3].([]byte)))
	assert.JSONEq(t, `["Germany"]`, string(args[4].([]byte)))

	expires, ok := args[5].(*time.Time)
	require.True(t, ok)
	require.NotNil(t, expires)
	assert.Equal(t, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), *expires)

	assert.Nil(t, queued[1].Arguments[5].(*time.Time))
	assert.Equal(t, 1, exec.br.closeCalls)
}

func TestStoreEnrichedRecords_UnparseableExpirationStoresNull(t *testing.T) {
	// The fixed 365/30 day calendar reaches dates the real calendar lacks.
	tests := []struct {
		name       string
		expiration string
	}{
		{name: "thirteenth month", expiration: "2024-13-03T00:00:00"},
		{name: "february 30", expiration: "2023-02-30T00:00:00"},
		{name: "february 29 outside a leap year", expiration: "2023-02-29T12:00:00"},
		{name: "garbage", expiration: "soon"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exec := &fakePgxExecutor{}
			store := NewEnrichedRecordStore(exec, logger.NewTestLogger())

			err := store.StoreEnrichedRecords(context.Background(), []models.EnrichedThreatRecord{
				sampleEnrichedRecord(tc.expiration),
			})
			require.NoError(t, err)

			assert.Nil(t, exec.batches[0].QueuedQueries[0].Arguments[5].(*time.Time))
		})
	}
}

func TestStoreEnrichedRecords_SurfacesBatchInsertErrors(t *testing.T) {
	br := &fakeBatchResults{
		execErrAt: 1,
		execErr:   errInsertFailed,
	}
	store := NewEnrichedRecordStore(&fakePgxExecutor{br: br}, logger.NewTestLogger())

	err := store.StoreEnrichedRecords(context.Background(), []models.EnrichedThreatRecord{
		sampleEnrichedRecord(""),
		sampleEnrichedRecord(""),
		sampleEnrichedRecord(""),
	})
	require.ErrorIs(t, err, errInsertFailed)
	require.Contains(t, err.Error(), "failed to store enriched records")
	require.Contains(t, err.Error(), "enriched_records batch exec (command 1)")
	require.Equal(t, 1, br.closeCalls)
}

func TestStoreEnrichedRecords_EmptyIsNoop(t *testing.T) {
	exec := &fakePgxExecutor{}
	store := NewEnrichedRecordStore(exec, nil)

	require.NoError(t, store.StoreEnrichedRecords(context.Background(), nil))
	assert.Empty(t, exec.batches)
}
