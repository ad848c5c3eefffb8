package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Static test errors for err113 compliance.
var (
	errFakeBatchResultsQuery = errors.New("Query not implemented in fakeBatchResults")
	errFakeBatchRowScan      = errors.New("Scan not implemented in fakeBatchRow")
	errBoom                  = errors.New("boom")
	errCloseFailed           = errors.New("close failed")
	errInsertFailed          = errors.New("insert failed")
)

type fakeBatchResults struct {
	execCalls int
	execErrAt int
	execErr   error

	closeCalls int
	closeErr   error
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	defer func() { f.execCalls++ }()
	if f.execErr != nil && f.execCalls == f.execErrAt {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeBatchResults) Query() (pgx.Rows, error) {
	return nil, errFakeBatchResultsQuery
}

type fakeBatchRow struct{}

func (fakeBatchRow) Scan(...any) error { return errFakeBatchRowScan }

func (f *fakeBatchResults) QueryRow() pgx.Row {
	return fakeBatchRow{}
}

func (f *fakeBatchResults) Close() error {
	f.closeCalls++
	return f.closeErr
}

type execCall struct {
	sql  string
	args []any
}

// fakePgxExecutor records Exec calls, serves Query from versions and hands
// SendBatch the configured results.
type fakePgxExecutor struct {
	br       *fakeBatchResults
	batches  []*pgx.Batch
	execs    []execCall
	execErr  error
	versions []string
}

func (f *fakePgxExecutor) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakePgxExecutor) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return &fakeRows{values: f.versions, idx: -1}, nil
}

func (f *fakePgxExecutor) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches = append(f.batches, b)
	if f.br == nil {
		f.br = &fakeBatchResults{}
	}
	return f.br
}

// fakeRows yields a single text column per row.
type fakeRows struct {
	values []string
	idx    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.values)
}

func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.values[r.idx]
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	return []any{r.values[r.idx]}, nil
}
