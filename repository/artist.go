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

// ArtistRepository implements the Artist contracts of spec §4.6,
// including the two never-deleted sentinel rows (UnknownArtist,
// VariousArtists) seeded by schema.Registry.CreateSchema.
type ArtistRepository struct {
	conn     *db.DB
	thumbs   *ThumbnailRepository
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewArtistRepository(conn *db.DB, thumbs *ThumbnailRepository, n *notifier.Notifier, logger *zap.Logger) *ArtistRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtistRepository{conn: conn, thumbs: thumbs, notifier: n, logger: logger}
}

const artistColumns = `id_artist, name, shortbio, nb_albums, nb_tracks, nb_present_tracks, mb_id, is_favorite`

func scanArtist(row interface{ Scan(...interface{}) error }) (*models.Artist, error) {
	var a models.Artist
	var bio, mbID sql.NullString
	if err := row.Scan(&a.ID, &a.Name, &bio, &a.NbAlbums, &a.NbTracks, &a.NbPresentTracks, &mbID, &a.IsFavorite); err != nil {
		return nil, err
	}
	a.ShortBio = scanNullString(bio)
	a.MBID = scanNullString(mbID)
	return &a, nil
}

func scanArtistRows(rows *sql.Rows) ([]*models.Artist, error) {
	var out []*models.Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts an Artist. Name is UNIQUE; a collision is returned to
// the caller unless getOrCreate semantics are wanted, see GetOrCreate.
func (r *ArtistRepository) Create(ctx context.Context, name string) (*models.Artist, error) {
	id, err := r.conn.InsertReturningID(ctx, `INSERT INTO artist(name, nb_albums, nb_tracks, nb_present_tracks, is_favorite) VALUES (?, 0, 0, 0, 0)`, name)
	if err != nil {
		return nil, wrapErr(err, "create artist")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindArtist, id)
	}
	return r.GetByID(ctx, id)
}

// GetOrCreate finds an artist by (case-insensitive) name, creating one
// if absent; the UNIQUE constraint on name makes a racing insert
// idempotent (spec §4.6/§7).
func (r *ArtistRepository) GetOrCreate(ctx context.Context, name string) (*models.Artist, error) {
	existing, err := r.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !notFound(err) {
		return nil, err
	}
	created, err := r.Create(ctx, name)
	if isIdempotentConstraintError(err) {
		return r.GetByName(ctx, name)
	}
	return created, err
}

func (r *ArtistRepository) GetByID(ctx context.Context, id int64) (*models.Artist, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM artist WHERE id_artist = ?`, artistColumns), id)
	return scanArtist(row)
}

func (r *ArtistRepository) GetByName(ctx context.Context, name string) (*models.Artist, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM artist WHERE name = ? COLLATE NOCASE`, artistColumns), name)
	return scanArtist(row)
}

// ArtistShouldUpdateThumbnail implements spec §4.6: Artist forbids updating
// a shared thumbnail in place; a new row is always inserted.
func ArtistShouldUpdateThumbnail(*models.Thumbnail) bool { return false }

func (r *ArtistRepository) SetThumbnail(ctx context.Context, artistID int64, newThumb *models.Thumbnail, sizeType models.ThumbnailSizeType) error {
	current, err := r.thumbs.ForEntity(ctx, models.EntityTypeArtist, artistID, sizeType)
	if err != nil && !notFound(err) {
		return err
	}
	if notFound(err) {
		current = nil
	}
	if err := r.thumbs.UpdateOrReplace(ctx, current, newThumb, ArtistShouldUpdateThumbnail, models.EntityTypeArtist, artistID, sizeType); err != nil {
		return err
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindArtist, artistID)
	}
	return nil
}

func artistSortColumn(sort query.SortCriterion) (string, query.SortCriterion) {
	switch sort {
	case query.SortNbAlbum:
		return "nb_albums", sort
	default:
		return "name", query.SortAlpha
	}
}

// ListAll excludes the sentinel artists from listings by default, per
// spec §3's "never auto-deleted" but not user-facing either.
func (r *ArtistRepository) ListAll(params query.Parameters) *query.Query[*models.Artist] {
	where := fmt.Sprintf("WHERE id_artist NOT IN (%d, %d)", models.UnknownArtistID, models.VariousArtistsID)
	if params.FavoriteOnly {
		where += " AND is_favorite = 1"
	}
	orderBy := query.OrderByClause(params.Sort, params.Desc, artistSortColumn, r.logger)
	return query.New[*models.Artist](r.conn, "artist "+where, "id_artist", orderBy, nil, scanArtistRows, r.logger)
}

func (r *ArtistRepository) Search(pattern string, params query.Parameters) *query.Query[*models.Artist] {
	sanitized, ok := query.SanitizeFTSPattern(pattern)
	if !ok {
		return query.NewExplicit[*models.Artist](r.conn, fmt.Sprintf(`SELECT %s FROM artist WHERE 0`, artistColumns), `SELECT 0`, nil, scanArtistRows, r.logger)
	}
	listSQL := fmt.Sprintf(`SELECT %s FROM artist JOIN artist_fts ON artist_fts.rowid = artist.id_artist WHERE artist_fts MATCH ?`, qualifyColumns(artistColumns, "artist"))
	countSQL := `SELECT COUNT(*) FROM artist JOIN artist_fts ON artist_fts.rowid = artist.id_artist WHERE artist_fts MATCH ?`
	return query.NewExplicit[*models.Artist](r.conn, listSQL, countSQL, []interface{}{sanitized}, scanArtistRows, r.logger)
}
