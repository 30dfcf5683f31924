package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/notifier"
	"github.com/catalogizer/medialibrary/query"
	"go.uber.org/zap"
)

// AlbumRepository implements the Album contracts of spec §4.6.
type AlbumRepository struct {
	conn     *db.DB
	media    *MediaRepository
	genre    *GenreRepository
	thumbs   *ThumbnailRepository
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewAlbumRepository(conn *db.DB, media *MediaRepository, genre *GenreRepository, thumbs *ThumbnailRepository, n *notifier.Notifier, logger *zap.Logger) *AlbumRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlbumRepository{conn: conn, media: media, genre: genre, thumbs: thumbs, notifier: n, logger: logger}
}

const albumColumns = `id_album, title, artist_id, release_year, short_summary, nb_tracks, nb_present_tracks, duration, nb_discs, is_favorite`

func scanAlbum(row interface{ Scan(...interface{}) error }) (*models.Album, error) {
	var a models.Album
	var title, summary sql.NullString
	var artistID sql.NullInt64
	if err := row.Scan(&a.ID, &title, &artistID, &a.ReleaseYear, &summary, &a.NbTracks, &a.NbPresentTracks, &a.Duration, &a.NbDiscs, &a.IsFavorite); err != nil {
		return nil, err
	}
	a.Title = scanNullString(title)
	a.ArtistID = scanNullInt64(artistID)
	a.ShortSummary = scanNullString(summary)
	return &a, nil
}

func scanAlbumRows(rows *sql.Rows) ([]*models.Album, error) {
	var out []*models.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts an Album. A nil title is the "unknown album"
// container of spec §3.
func (r *AlbumRepository) Create(ctx context.Context, title *string, artistID *int64) (*models.Album, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO album(title, artist_id, release_year, short_summary, nb_tracks, nb_present_tracks, duration, nb_discs, is_favorite)
		VALUES (?, ?, ?, NULL, 0, 0, 0, 1, 0)`,
		ptrString(title), ptrInt64(artistID), models.ReleaseYearUnknown)
	if err != nil {
		return nil, wrapErr(err, "create album")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindAlbum, id)
	}
	return r.GetByID(ctx, id)
}

func (r *AlbumRepository) GetByID(ctx context.Context, id int64) (*models.Album, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM album WHERE id_album = ?`, albumColumns), id)
	return scanAlbum(row)
}

// AddTrack implements spec §4.6's Album::addTrack: marks media as an
// album track (delegated to Media::markAsAlbumTrack) and notifies the
// album as modified. The album, artist and genre counter increments are
// done by the track_update_counters trigger (spec §4.5) once the UPDATE
// lands album_id on the media row; this method changes no counter.
func (r *AlbumRepository) AddTrack(ctx context.Context, albumID int64, media *models.Media, trackNumber, discNumber int32, artistID *int64, genreID *int64) error {
	if err := r.media.MarkAsAlbumTrack(ctx, media.ID, albumID, trackNumber, discNumber, artistID, genreID); err != nil {
		return err
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindAlbum, albumID)
	}
	return nil
}

// RemoveTrack detaches media from its album. The
// track_update_counters trigger (spec §4.5) decrements album/artist/
// genre counters, and album_delete_empty removes the album once its
// last track leaves.
func (r *AlbumRepository) RemoveTrack(ctx context.Context, media *models.Media) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE media SET subtype = ?, album_id = NULL, track_number = NULL, disc_number = NULL WHERE id_media = ?`,
		models.MediaSubTypeUnknown, media.ID)
	return wrapErr(err, "remove track")
}

// ShouldUpdateThumbnail implements spec §4.6's
// Album::shouldUpdateThumbnail predicate: overwrite in place only when
// the current thumbnail's origin is CoverFile; any other origin forces
// Thumbnail::updateOrReplace to insert a new row instead of clobbering
// the source.
func ShouldUpdateThumbnail(current *models.Thumbnail) bool {
	return current != nil && current.Origin == models.ThumbnailOriginCoverFile
}

// SetThumbnail delegates to Thumbnail::updateOrReplace with the
// Album-specific predicate (spec §4.6).
func (r *AlbumRepository) SetThumbnail(ctx context.Context, albumID int64, newThumb *models.Thumbnail, sizeType models.ThumbnailSizeType) error {
	current, err := r.thumbs.ForEntity(ctx, models.EntityTypeAlbum, albumID, sizeType)
	if err != nil && !notFound(err) {
		return err
	}
	if notFound(err) {
		current = nil
	}
	if err := r.thumbs.UpdateOrReplace(ctx, current, newThumb, ShouldUpdateThumbnail, models.EntityTypeAlbum, albumID, sizeType); err != nil {
		return err
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindAlbum, albumID)
	}
	return nil
}

func albumSortColumn(sort query.SortCriterion) (string, query.SortCriterion) {
	switch sort {
	case query.SortDuration:
		return "duration", sort
	case query.SortReleaseDate:
		return "release_year", sort
	case query.SortTrackNumber:
		return "nb_tracks", query.SortTrackNumber
	default:
		return "title", query.SortAlpha
	}
}

// ListAll is spec §6's per-entity listAll.
func (r *AlbumRepository) ListAll(params query.Parameters) *query.Query[*models.Album] {
	where := "WHERE 1=1"
	if params.FavoriteOnly {
		where += " AND is_favorite = 1"
	}
	orderBy := query.OrderByClause(params.Sort, params.Desc, albumSortColumn, r.logger)
	return query.New[*models.Album](r.conn, "album "+where, "id_album", orderBy, nil, scanAlbumRows, r.logger)
}

// FromArtist is spec §6's Album::fromArtist.
func (r *AlbumRepository) FromArtist(artistID int64, params query.Parameters) *query.Query[*models.Album] {
	orderBy := query.OrderByClause(params.Sort, params.Desc, albumSortColumn, r.logger)
	return query.New[*models.Album](r.conn, "album WHERE artist_id = ?", "id_album", orderBy, []interface{}{artistID}, scanAlbumRows, r.logger)
}

// Search is spec §6's per-entity search over album titles.
func (r *AlbumRepository) Search(pattern string, params query.Parameters) *query.Query[*models.Album] {
	sanitized, ok := query.SanitizeFTSPattern(pattern)
	if !ok {
		return query.NewExplicit[*models.Album](r.conn, fmt.Sprintf(`SELECT %s FROM album WHERE 0`, albumColumns), `SELECT 0`, nil, scanAlbumRows, r.logger)
	}
	listSQL := fmt.Sprintf(`SELECT %s FROM album JOIN album_fts ON album_fts.rowid = album.id_album WHERE album_fts MATCH ?`, qualifyColumns(albumColumns, "album"))
	countSQL := `SELECT COUNT(*) FROM album JOIN album_fts ON album_fts.rowid = album.id_album WHERE album_fts MATCH ?`
	return query.NewExplicit[*models.Album](r.conn, listSQL, countSQL, []interface{}{sanitized}, scanAlbumRows, r.logger)
}
