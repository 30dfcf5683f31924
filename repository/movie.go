package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/notifier"
	"go.uber.org/zap"
)

// MovieRepository implements the Movie contracts of spec §4.6.
type MovieRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewMovieRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *MovieRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MovieRepository{conn: conn, notifier: n, logger: logger}
}

const movieColumns = `id_movie, media_id, summary, imdb_id`

func scanMovie(row interface{ Scan(...interface{}) error }) (*models.Movie, error) {
	var m models.Movie
	var summary, imdb sql.NullString
	if err := row.Scan(&m.ID, &m.MediaID, &summary, &imdb); err != nil {
		return nil, err
	}
	m.Summary = scanNullString(summary)
	m.IMDBID = scanNullString(imdb)
	return &m, nil
}

// Create attaches a Movie row to mediaID and flips the media's subtype.
func (r *MovieRepository) Create(ctx context.Context, mediaID int64) (*models.Movie, error) {
	tx, txCtx, release, err := r.conn.Begin(ctx, r.logger)
	if err != nil {
		return nil, err
	}
	defer release()
	defer tx.Rollback()

	id, err := r.conn.TxInsertReturningID(txCtx, tx.Tx, `INSERT INTO movie(media_id) VALUES (?)`, mediaID)
	if err != nil {
		return nil, wrapErr(err, "create movie")
	}
	if _, err := tx.ExecContext(txCtx, `UPDATE media SET subtype = ? WHERE id_media = ?`,
		models.MediaSubTypeMovie, mediaID); err != nil {
		return nil, wrapErr(err, "mark media as movie")
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindMovie, id)
		r.notifier.NotifyModified(notifier.KindMedia, mediaID)
	}
	return r.GetByID(ctx, id)
}

func (r *MovieRepository) GetByID(ctx context.Context, id int64) (*models.Movie, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM movie WHERE id_movie = ?`, movieColumns), id)
	return scanMovie(row)
}

func (r *MovieRepository) GetByMedia(ctx context.Context, mediaID int64) (*models.Movie, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM movie WHERE media_id = ?`, movieColumns), mediaID)
	return scanMovie(row)
}

func (r *MovieRepository) SetSummary(ctx context.Context, id int64, summary string) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE movie SET summary = ? WHERE id_movie = ?`, nullString(summary), id)
	return wrapErr(err, "set movie summary")
}

func (r *MovieRepository) SetIMDBID(ctx context.Context, id int64, imdbID string) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE movie SET imdb_id = ? WHERE id_movie = ?`, nullString(imdbID), id)
	return wrapErr(err, "set movie imdb id")
}
