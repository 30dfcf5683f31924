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

// GenreRepository implements the Genre contracts of spec §4.6.
type GenreRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewGenreRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *GenreRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenreRepository{conn: conn, notifier: n, logger: logger}
}

const genreColumns = `id_genre, name, nb_tracks, nb_present_tracks`

func scanGenre(row interface{ Scan(...interface{}) error }) (*models.Genre, error) {
	var g models.Genre
	if err := row.Scan(&g.ID, &g.Name, &g.NbTracks, &g.NbPresentTracks); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanGenreRows(rows *sql.Rows) ([]*models.Genre, error) {
	var out []*models.Genre
	for rows.Next() {
		g, err := scanGenre(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *GenreRepository) GetByID(ctx context.Context, id int64) (*models.Genre, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM genre WHERE id_genre = ?`, genreColumns), id)
	return scanGenre(row)
}

func (r *GenreRepository) GetByName(ctx context.Context, name string) (*models.Genre, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM genre WHERE name = ? COLLATE NOCASE`, genreColumns), name)
	return scanGenre(row)
}

// GetOrCreate finds a genre by case-insensitive name, creating one if
// absent. The UNIQUE NOCASE constraint absorbs a racing insert, per
// spec §4.6/§7's idempotent-constraint policy.
func (r *GenreRepository) GetOrCreate(ctx context.Context, name string) (*models.Genre, error) {
	existing, err := r.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !notFound(err) {
		return nil, err
	}
	id, err := r.conn.InsertReturningID(ctx, `INSERT INTO genre(name, nb_tracks, nb_present_tracks) VALUES (?, 0, 0)`, name)
	if isIdempotentConstraintError(err) {
		return r.GetByName(ctx, name)
	}
	if err != nil {
		return nil, wrapErr(err, "create genre")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindGenre, id)
	}
	return r.GetByID(ctx, id)
}

// UpdateNbTracks implements spec §4.6's Genre::updateNbTracks: bumps
// both counters by delta; genre_delete_empty (spec §4.5) removes the
// genre once nb_tracks reaches 0.
func (r *GenreRepository) UpdateNbTracks(ctx context.Context, genreID int64, delta int64) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE genre SET nb_tracks = nb_tracks + ?, nb_present_tracks = nb_present_tracks + ? WHERE id_genre = ?`,
		delta, delta, genreID)
	if err != nil {
		return wrapErr(err, "update genre track count")
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindGenre, genreID)
	}
	return nil
}

func genreSortColumn(sort query.SortCriterion) (string, query.SortCriterion) {
	return "name", query.SortAlpha
}

func (r *GenreRepository) ListAll(params query.Parameters) *query.Query[*models.Genre] {
	orderBy := query.OrderByClause(params.Sort, params.Desc, genreSortColumn, r.logger)
	return query.New[*models.Genre](r.conn, "genre WHERE 1=1", "id_genre", orderBy, nil, scanGenreRows, r.logger)
}

func (r *GenreRepository) Search(pattern string, params query.Parameters) *query.Query[*models.Genre] {
	sanitized, ok := query.SanitizeFTSPattern(pattern)
	if !ok {
		return query.NewExplicit[*models.Genre](r.conn, fmt.Sprintf(`SELECT %s FROM genre WHERE 0`, genreColumns), `SELECT 0`, nil, scanGenreRows, r.logger)
	}
	listSQL := fmt.Sprintf(`SELECT %s FROM genre JOIN genre_fts ON genre_fts.rowid = genre.id_genre WHERE genre_fts MATCH ?`, qualifyColumns(genreColumns, "genre"))
	countSQL := `SELECT COUNT(*) FROM genre JOIN genre_fts ON genre_fts.rowid = genre.id_genre WHERE genre_fts MATCH ?`
	return query.NewExplicit[*models.Genre](r.conn, listSQL, countSQL, []interface{}{sanitized}, scanGenreRows, r.logger)
}
