package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipscope/internal/domain"
)

var (
	errFakeBatchResultsQuery = errors.New("Query not implemented in fakeBatchResults")
	errFakeBatchRowScan      = errors.New("Scan not implemented in fakeBatchRow")
	errBoom                  = errors.New("boom")
	errCloseFailed           = errors.New("close failed")
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

func TestSendBatchExecAll_EmptyBatchDoesNotSend(t *testing.T) {
	err := sendBatchExecAll(context.Background(), &pgx.Batch{}, func(context.Context, *pgx.Batch) pgx.BatchResults {
		t.Fatalf("SendBatch should not be called for empty batch")
		return nil
	}, "reconcile")
	require.NoError(t, err)
}

func TestSendBatchExecAll_ExecErrorIncludesCommandIndexAndCloses(t *testing.T) {
	batch := &pgx.Batch{}
	batch.Queue("SELECT 1")
	batch.Queue("SELECT 2")

	br := &fakeBatchResults{execErrAt: 1, execErr: errBoom}
	err := sendBatchExecAll(context.Background(), batch, func(context.Context, *pgx.Batch) pgx.BatchResults {
		return br
	}, "reconcile")

	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "command 1")
	assert.Equal(t, 1, br.closeCalls)
}

func TestSendBatchExecAll_CloseErrorReturnedWhenExecSucceeds(t *testing.T) {
	batch := &pgx.Batch{}
	batch.Queue("SELECT 1")

	br := &fakeBatchResults{closeErr: errCloseFailed}
	err := sendBatchExecAll(context.Background(), batch, func(context.Context, *pgx.Batch) pgx.BatchResults {
		return br
	}, "reconcile")

	require.ErrorIs(t, err, errCloseFailed)
	assert.Equal(t, 2, br.execCalls+br.closeCalls)
}

func TestReconcileBatch(t *testing.T) {
	scanTime := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	upObs := domain.NewObservation("10.0.0.2", scanTime)
	upObs.Status = domain.StatusUp
	upObs.SetMAC("AA:BB:CC:00:00:02")

	obs := map[string]domain.Observation{
		"10.0.0.10": domain.NewObservation("10.0.0.10", scanTime),
		"10.0.0.2":  upObs,
	}

	batch := reconcileBatch("run-1", scanTime, obs)
	require.Equal(t, 4, batch.Len())

	// Address order, upsert then history for each address
	first := batch.QueuedQueries[0]
	assert.Equal(t, upsertLive, first.SQL)
	assert.Equal(t, "10.0.0.2", first.Arguments[0])
	assert.Equal(t, "AA:BB:CC:00:00:02", first.Arguments[2])
	lastUp, ok := first.Arguments[6].(*time.Time)
	require.True(t, ok)
	require.NotNil(t, lastUp)
	assert.True(t, lastUp.Equal(scanTime))

	assert.Equal(t, insertHistory, batch.QueuedQueries[1].SQL)

	third := batch.QueuedQueries[2]
	assert.Equal(t, "10.0.0.10", third.Arguments[0])
	assert.Equal(t, domain.NoMAC, third.Arguments[2])
	assert.Nil(t, third.Arguments[6].(*time.Time))
}

func TestHistoryQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    domain.HistoryFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:     "no filter uses default limit",
			filter:   domain.HistoryFilter{},
			wantArgs: []any{100, 0},
		},
		{
			name:      "address",
			filter:    domain.HistoryFilter{Address: "10.0.0.1", Limit: 5, Offset: 10},
			wantWhere: "WHERE ip = $1 ORDER BY",
			wantArgs:  []any{"10.0.0.1", 5, 10},
		},
		{
			name:      "address and run",
			filter:    domain.HistoryFilter{Address: "10.0.0.1", RunID: "r", Limit: 5000, Offset: -3},
			wantWhere: "WHERE ip = $1 AND run_id = $2 ORDER BY",
			wantArgs:  []any{"10.0.0.1", "r", 1000, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := historyQuery(tt.filter)
			assert.Equal(t, tt.wantArgs, args)
			if tt.wantWhere != "" {
				assert.Contains(t, query, tt.wantWhere)
			} else {
				assert.NotContains(t, query, "WHERE")
			}
			n := len(args)
			assert.Contains(t, query, fmt.Sprintf("LIMIT $%d OFFSET $%d", n-1, n))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errBoom))
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(pgx.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, notFound(errBoom), errBoom)
}
