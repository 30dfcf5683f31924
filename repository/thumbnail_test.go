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

func newMockThumbnailRepo(t *testing.T) (*ThumbnailRepository, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewThumbnailRepository(db.WrapDB(sqlDB, db.DialectSQLite), nil, zap.NewNop()), mock
}

func TestUpdateOrReplaceInsertsWhenAbsent(t *testing.T) {
	repo, mock := newMockThumbnailRepo(t)

	mock.ExpectExec(`INSERT INTO thumbnail\(mrl, origin, size_type, is_owned, shared_counter, status\)`).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(`INSERT INTO thumbnail_linking\(entity_type, entity_id, size_type, thumbnail_id\)`).
		WithArgs(int64(models.EntityTypeAlbum), int64(3), int64(models.ThumbnailSizeThumbnail), int64(11)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	newThumb := &models.Thumbnail{MRL: "file:///t.jpg", Origin: models.ThumbnailOriginCoverFile, IsOwned: true}
	err := repo.UpdateOrReplace(context.Background(), nil, newThumb, ShouldUpdateThumbnail,
		models.EntityTypeAlbum, 3, models.ThumbnailSizeThumbnail)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrReplaceMutatesInPlaceWhenPredicateAllows(t *testing.T) {
	repo, mock := newMockThumbnailRepo(t)

	mock.ExpectExec(`UPDATE thumbnail SET mrl = \?, origin = \?, is_owned = \?, status = \? WHERE id_thumbnail = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	current := &models.Thumbnail{ID: 5, Origin: models.ThumbnailOriginCoverFile}
	newThumb := &models.Thumbnail{MRL: "file:///new.jpg", Origin: models.ThumbnailOriginCoverFile}
	err := repo.UpdateOrReplace(context.Background(), current, newThumb, ShouldUpdateThumbnail,
		models.EntityTypeAlbum, 3, models.ThumbnailSizeThumbnail)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrReplaceSwitchesLinkWhenPredicateForbids(t *testing.T) {
	repo, mock := newMockThumbnailRepo(t)

	mock.ExpectExec(`INSERT INTO thumbnail\(mrl, origin, size_type, is_owned, shared_counter, status\)`).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec(`UPDATE thumbnail_linking SET thumbnail_id = \? WHERE entity_type = \? AND entity_id = \? AND size_type = \?`).
		WithArgs(int64(12), int64(models.EntityTypeArtist), int64(9), int64(models.ThumbnailSizeThumbnail)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Artists never update a shared thumbnail in place.
	current := &models.Thumbnail{ID: 5, Origin: models.ThumbnailOriginMedia}
	newThumb := &models.Thumbnail{MRL: "file:///artist.jpg", Origin: models.ThumbnailOriginUserProvided}
	err := repo.UpdateOrReplace(context.Background(), current, newThumb, ArtistShouldUpdateThumbnail,
		models.EntityTypeArtist, 9, models.ThumbnailSizeThumbnail)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailureEscalatesToPersistent(t *testing.T) {
	repo, mock := newMockThumbnailRepo(t)

	mock.ExpectExec(`UPDATE thumbnail SET status = \? WHERE id_thumbnail = \?`).
		WithArgs(int64(models.ThumbnailStatusFailure), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE thumbnail SET status = \? WHERE id_thumbnail = \?`).
		WithArgs(int64(models.ThumbnailStatusPersistentFailure), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailure(context.Background(), 1, 1, 3))
	require.NoError(t, repo.MarkFailure(context.Background(), 1, 3, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
