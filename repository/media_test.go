package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockMediaRepo(t *testing.T) (*MediaRepository, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	conn := db.WrapDB(sqlDB, db.DialectSQLite)
	return NewMediaRepository(conn, nil, zap.NewNop()), mock
}

var mediaRowColumns = []string{
	"id_media", "type", "subtype", "duration", "last_position", "last_time", "play_count",
	"last_played_date", "insertion_date", "release_date", "title", "filename", "is_favorite", "is_present",
	"device_id", "nb_playlists", "folder_id", "import_type", "group_id", "forced_title",
	"artist_id", "genre_id", "track_number", "album_id", "disc_number",
}

func sampleMediaRow(id int64, title string) []driver.Value {
	return []driver.Value{
		id, int64(models.MediaTypeAudio), int64(models.MediaSubTypeUnknown), int64(1000), -1.0, int64(-1), int64(0),
		nil, time.Now().Unix(), nil, title, title, false, true,
		int64(1), int64(0), int64(1), int64(models.ImportTypeInternal), nil, false,
		nil, nil, nil, nil, nil,
	}
}

func TestMediaGetByID(t *testing.T) {
	repo, mock := newMockMediaRepo(t)

	mock.ExpectQuery(`FROM media WHERE id_media = \?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(mediaRowColumns).AddRow(sampleMediaRow(1, "track.mp3")...))

	m, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ID)
	assert.Equal(t, "track.mp3", m.Title)
	assert.Equal(t, models.MediaTypeAudio, m.Type)
	assert.True(t, m.IsPresent)
	require.NotNil(t, m.FolderID)
	assert.Equal(t, int64(1), *m.FolderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaCreateRequiresFolderAndDevice(t *testing.T) {
	repo, _ := newMockMediaRepo(t)

	_, err := repo.Create(context.Background(), "t", "f", models.MediaTypeAudio, 0, 1)
	assert.Error(t, err)
	_, err = repo.Create(context.Background(), "t", "f", models.MediaTypeAudio, 1, 0)
	assert.Error(t, err)
}

func TestSetLastPositionClassification(t *testing.T) {
	tests := []struct {
		name     string
		position float64
		want     models.ProgressResult
		setup    func(mock sqlmock.Sqlmock)
	}{
		{
			// Near-zero stores -1 and does not count a playback.
			name: "begin", position: 0.01, want: models.ProgressBegin,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE media SET last_position = \? WHERE id_media = \?`).
					WithArgs(models.PositionUnset, int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			// Near-one stores -1, bumps play_count, stamps last_played_date.
			name: "end", position: 0.99, want: models.ProgressEnd,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE media SET last_position = \?, play_count = play_count \+ 1, last_played_date = \? WHERE id_media = \?`).
					WithArgs(models.PositionUnset, sqlmock.AnyArg(), int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "middle", position: 0.5, want: models.ProgressAsIs,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE media SET last_position = \? WHERE id_media = \?`).
					WithArgs(0.5, int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "exactly zero", position: 0, want: models.ProgressBegin,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE media SET last_position = \? WHERE id_media = \?`).
					WithArgs(models.PositionUnset, int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "exactly one", position: 1, want: models.ProgressEnd,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE media SET last_position = \?, play_count = play_count \+ 1, last_played_date = \? WHERE id_media = \?`).
					WithArgs(models.PositionUnset, sqlmock.AnyArg(), int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockMediaRepo(t)
			tt.setup(mock)

			got, err := repo.SetLastPosition(context.Background(), 1, tt.position)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConvertToExternalDetachesEverything(t *testing.T) {
	repo, mock := newMockMediaRepo(t)

	mock.ExpectExec(`UPDATE media SET import_type = \?, folder_id = NULL, device_id = 0, group_id = NULL,\s+subtype = 0, album_id = NULL`).
		WithArgs(int64(models.ImportTypeExternal), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ConvertToExternal(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearHistoryScopesByType(t *testing.T) {
	repo, mock := newMockMediaRepo(t)

	mock.ExpectExec(`UPDATE media SET play_count = 0, last_played_date = NULL, last_time = -1 WHERE type = \?`).
		WithArgs(int64(models.MediaTypeVideo)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	v := models.MediaTypeVideo
	require.NoError(t, repo.ClearHistory(context.Background(), &v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchShortPatternReturnsEmptyQuery(t *testing.T) {
	repo, mock := newMockMediaRepo(t)

	// Sub-3-character patterns degrade to a constant-empty query.
	mock.ExpectQuery(`SELECT 0`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))

	q := repo.Search("ab", query.Parameters{})
	n, err := q.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
