package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestSendBatchExecAll_EmptyBatchDoesNotSend(t *testing.T) {
	exec := &fakePgxExecutor{}

	err := sendBatchExecAll(context.Background(), exec, &pgx.Batch{}, "test")
	require.NoError(t, err)
	require.Empty(t, exec.batches)
}

func TestSendBatchExecAll_ExecErrorIncludesCommandIndexAndCloses(t *testing.T) {
	batch := &pgx.Batch{}
	batch.Queue("SELECT 1")
	batch.Queue("SELECT 2")
	batch.Queue("SELECT 3")

	br := &fakeBatchResults{
		execErrAt: 1,
		execErr:   errBoom,
	}

	err := sendBatchExecAll(context.Background(), &fakePgxExecutor{br: br}, batch, "op-name")
	require.ErrorIs(t, err, errBoom)
	require.Contains(t, err.Error(), "op-name batch exec (command 1)")
	require.Equal(t, 1, br.closeCalls)
	require.Equal(t, 2, br.execCalls)
}

func TestSendBatchExecAll_CloseErrorReturnedWhenExecSucceeds(t *testing.T) {
	batch := &pgx.Batch{}
	batch.Queue("SELECT 1")

	br := &fakeBatchResults{closeErr: errCloseFailed}

	err := sendBatchExecAll(context.Background(), &fakePgxExecutor{br: br}, batch, "op-name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "op-name batch close: close failed")
	require.Equal(t, 1, br.closeCalls)
}
