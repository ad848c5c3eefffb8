package otxenricher

import "errors"

var (
	ErrEmptyMessage  = errors.New("empty message received")
	ErrPublishRecord = errors.New("failed to publish enriched record")
	ErrStoreRecords  = errors.New("failed to store enriched records")
)
