package query

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type row struct {
	ID   int64
	Name string
}

func scanRows(rows *sql.Rows) ([]row, error) {
	var out []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func TestQueryCount(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT COUNT\(DISTINCT id\) FROM items WHERE 1=1`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(7))

	q := New[row](sqlDB, "items WHERE 1=1", "id", "ORDER BY name ASC", nil, scanRows, zap.NewNop())
	n, err := q.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryItemsZeroZeroIsAll(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	// No LIMIT/OFFSET clause expected for (0, 0).
	mock.ExpectQuery(`SELECT \* FROM items WHERE 1=1 ORDER BY name ASC$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a").AddRow(2, "b"))

	q := New[row](sqlDB, "items WHERE 1=1", "id", "ORDER BY name ASC", nil, scanRows, zap.NewNop())
	items, err := q.Items(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryItemsPaginated(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT \* FROM items WHERE 1=1 ORDER BY name ASC LIMIT \? OFFSET \?`).
		WithArgs(2, 4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(5, "e"))

	q := New[row](sqlDB, "items WHERE 1=1", "id", "ORDER BY name ASC", nil, scanRows, zap.NewNop())
	items, err := q.Items(context.Background(), 2, 4)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryExplicitCountAndArgsRebind(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM items WHERE owner = \?`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(`SELECT id, name FROM items WHERE owner = \?`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(9, "z"))

	q := NewExplicit[row](sqlDB,
		`SELECT id, name FROM items WHERE owner = ?`,
		`SELECT COUNT(*) FROM items WHERE owner = ?`,
		[]interface{}{int64(3)}, scanRows, zap.NewNop())

	// Parameters are rebound on every execution: count then list.
	n, err := q.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	items, err := q.All(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEffectiveDescending(t *testing.T) {
	// Alpha keeps the caller's flag.
	assert.False(t, EffectiveDescending(SortAlpha, false))
	assert.True(t, EffectiveDescending(SortAlpha, true))
	// NbVideo sorts most-to-least by default, the flag inverts that.
	assert.True(t, EffectiveDescending(SortNbVideo, false))
	assert.False(t, EffectiveDescending(SortNbVideo, true))
	assert.True(t, EffectiveDescending(SortPlayCount, false))
}

func TestOrderByClauseFallback(t *testing.T) {
	mapper := func(sort SortCriterion) (string, SortCriterion) {
		if sort == SortDuration {
			return "duration", sort
		}
		return "title", SortAlpha
	}
	assert.Equal(t, "ORDER BY duration ASC", OrderByClause(SortDuration, false, mapper, zap.NewNop()))
	assert.Equal(t, "ORDER BY title DESC", OrderByClause(SortNbVideo, true, mapper, zap.NewNop()))
	assert.Equal(t, "ORDER BY title ASC", OrderByClause(SortDefault, false, mapper, zap.NewNop()))
}
