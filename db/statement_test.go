package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementCacheReusesPreparedStatement(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	conn := WrapDB(sqlDB, DialectSQLite)

	// One prepare, two executions.
	prep := mock.ExpectPrepare(`UPDATE media SET play_count = 0`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))

	cache := conn.NewStatementCache()
	defer cache.Close()

	_, err = cache.Exec(context.Background(), `UPDATE media SET play_count = 0`)
	require.NoError(t, err)
	_, err = cache.Exec(context.Background(), `UPDATE media SET play_count = 0`)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementCacheCloseEvictsAll(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	conn := WrapDB(sqlDB, DialectSQLite)

	prep := mock.ExpectPrepare(`SELECT COUNT\(\*\) FROM media`)
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))

	cache := conn.NewStatementCache()
	rows, err := cache.Query(context.Background(), `SELECT COUNT(*) FROM media`)
	require.NoError(t, err)
	rows.Close()

	require.NoError(t, cache.Close())
	// A second Close is a no-op over the emptied cache.
	require.NoError(t, cache.Close())
}

func TestTransactionNestingIsMisuse(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	conn := WrapDB(sqlDB, DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, txCtx, release, err := conn.Begin(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, TransactionInProgress(txCtx))
	assert.False(t, TransactionInProgress(context.Background()))

	// A nested Begin on the transaction's context fails fast.
	_, _, _, err = conn.Begin(txCtx, nil)
	require.Error(t, err)

	tx.Rollback()
	release()
	assert.NoError(t, mock.ExpectationsWereMet())
}
