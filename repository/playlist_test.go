package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockPlaylistRepo(t *testing.T) (*PlaylistRepository, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewPlaylistRepository(db.WrapDB(sqlDB, db.DialectSQLite), nil, zap.NewNop()), mock
}

func TestPlaylistAddClampsAppendPosition(t *testing.T) {
	repo, mock := newMockPlaylistRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM playlist_media_relation WHERE playlist_id = \?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectQuery(`SELECT mrl FROM file WHERE media_id = \? AND type = \?`).
		WithArgs(int64(7), int64(models.FileTypeMain)).
		WillReturnRows(sqlmock.NewRows([]string{"mrl"}).AddRow("file:///m.mp3"))
	// PositionAppend clamps to the current count (2).
	mock.ExpectExec(`INSERT INTO playlist_media_relation\(playlist_id, media_id, position, mrl\)`).
		WithArgs(int64(1), int64(7), int64(2), "file:///m.mp3").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	media := &models.Media{ID: 7, Filename: "m.mp3"}
	require.NoError(t, repo.Add(context.Background(), 1, media, PositionAppend))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaylistMoveDeletesThenReAdds(t *testing.T) {
	repo, mock := newMockPlaylistRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT media_id, mrl FROM playlist_media_relation WHERE playlist_id = \? AND position = \?`).
		WithArgs(int64(1), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"media_id", "mrl"}).AddRow(int64(7), "file:///m.mp3"))
	mock.ExpectExec(`DELETE FROM playlist_media_relation WHERE playlist_id = \? AND position = \?`).
		WithArgs(int64(1), int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM playlist_media_relation WHERE playlist_id = \?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO playlist_media_relation\(playlist_id, media_id, position, mrl\)`).
		WithArgs(int64(1), int64(7), int64(2), "file:///m.mp3").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Move(context.Background(), 1, 0, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurateNullMediaIDReLinksAndDrops(t *testing.T) {
	repo, mock := newMockPlaylistRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT position, mrl FROM playlist_media_relation\s+WHERE playlist_id = \? AND media_id IS NULL ORDER BY position DESC`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"position", "mrl"}).
			AddRow(int64(3), "file:///gone.mp3").
			AddRow(int64(1), "file:///back.mp3"))
	// Highest position first: the unresolvable row at 3 is dropped...
	mock.ExpectQuery(`SELECT media_id FROM file WHERE mrl = \? AND media_id IS NOT NULL`).
		WithArgs("file:///gone.mp3").
		WillReturnRows(sqlmock.NewRows([]string{"media_id"}))
	mock.ExpectExec(`DELETE FROM playlist_media_relation\s+WHERE playlist_id = \? AND position = \?`).
		WithArgs(int64(1), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// ...and the row at 1 is re-linked to the re-published media.
	mock.ExpectQuery(`SELECT media_id FROM file WHERE mrl = \? AND media_id IS NOT NULL`).
		WithArgs("file:///back.mp3").
		WillReturnRows(sqlmock.NewRows([]string{"media_id"}).AddRow(int64(42)))
	mock.ExpectExec(`UPDATE playlist_media_relation SET media_id = \?\s+WHERE playlist_id = \? AND position = \?`).
		WithArgs(int64(42), int64(1), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CurateNullMediaID(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurateNullMediaIDIsIdempotentWhenClean(t *testing.T) {
	repo, mock := newMockPlaylistRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT position, mrl FROM playlist_media_relation`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"position", "mrl"}))
	mock.ExpectCommit()

	require.NoError(t, repo.CurateNullMediaID(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}
