package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/notifier"
	"github.com/catalogizer/medialibrary/query"
	"go.uber.org/zap"
)

// ShowRepository implements the Show and ShowEpisode contracts of spec
// §4.6. Episodes default-sort by (season, episode) so listings come
// back in broadcast order (spec §8 scenario 3).
type ShowRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewShowRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *ShowRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShowRepository{conn: conn, notifier: n, logger: logger}
}

const showColumns = `id_show, title, release_date, short_summary, artwork_mrl, tvdb_id`

func scanShow(row interface{ Scan(...interface{}) error }) (*models.Show, error) {
	var s models.Show
	var release sql.NullInt64
	var summary, artwork, tvdb sql.NullString
	if err := row.Scan(&s.ID, &s.Title, &release, &summary, &artwork, &tvdb); err != nil {
		return nil, err
	}
	if release.Valid {
		t := time.Unix(release.Int64, 0)
		s.ReleaseDate = &t
	}
	s.ShortSummary = scanNullString(summary)
	s.ArtworkMRL = scanNullString(artwork)
	s.TVDBID = scanNullString(tvdb)
	return &s, nil
}

func scanShowRows(rows *sql.Rows) ([]*models.Show, error) {
	var out []*models.Show
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ShowRepository) Create(ctx context.Context, title string) (*models.Show, error) {
	id, err := r.conn.InsertReturningID(ctx, `INSERT INTO show(title) VALUES (?)`, title)
	if err != nil {
		return nil, wrapErr(err, "create show")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindShow, id)
	}
	return r.GetByID(ctx, id)
}

func (r *ShowRepository) GetByID(ctx context.Context, id int64) (*models.Show, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM show WHERE id_show = ?`, showColumns), id)
	return scanShow(row)
}

// Delete removes the show; episodes cascade, and the show_fts_delete
// trigger clears the FTS mirror (spec §8 scenario 3).
func (r *ShowRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM show WHERE id_show = ?`, id)
	if err != nil {
		return wrapErr(err, "delete show")
	}
	if r.notifier != nil {
		r.notifier.NotifyRemoved(notifier.KindShow, id)
	}
	return nil
}

const episodeColumns = `id_episode, media_id, episode_number, season_number, episode_title, episode_summary, tvdb_id, show_id`

func scanEpisode(row interface{ Scan(...interface{}) error }) (*models.ShowEpisode, error) {
	var e models.ShowEpisode
	var title, summary, tvdb sql.NullString
	if err := row.Scan(&e.ID, &e.MediaID, &e.EpisodeNumber, &e.SeasonNumber, &title, &summary, &tvdb, &e.ShowID); err != nil {
		return nil, err
	}
	e.EpisodeTitle = scanNullString(title)
	e.EpisodeSummary = scanNullString(summary)
	e.TVDBID = scanNullString(tvdb)
	return &e, nil
}

func scanEpisodeRows(rows *sql.Rows) ([]*models.ShowEpisode, error) {
	var out []*models.ShowEpisode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddEpisode attaches a Media as episode (season, episode) of showID,
// flipping the media's subtype.
func (r *ShowRepository) AddEpisode(ctx context.Context, showID, mediaID int64, seasonNumber, episodeNumber int32) (*models.ShowEpisode, error) {
	tx, txCtx, release, err := r.conn.Begin(ctx, r.logger)
	if err != nil {
		return nil, err
	}
	defer release()
	defer tx.Rollback()

	id, err := r.conn.TxInsertReturningID(txCtx, tx.Tx, `
		INSERT INTO show_episode(media_id, episode_number, season_number, show_id) VALUES (?, ?, ?, ?)`,
		mediaID, episodeNumber, seasonNumber, showID)
	if err != nil {
		return nil, wrapErr(err, "create show episode")
	}
	if _, err := tx.ExecContext(txCtx, `UPDATE media SET subtype = ? WHERE id_media = ?`,
		models.MediaSubTypeShowEpisode, mediaID); err != nil {
		return nil, wrapErr(err, "mark media as episode")
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindShowEpisode, id)
		r.notifier.NotifyModified(notifier.KindMedia, mediaID)
	}
	return r.GetEpisode(ctx, id)
}

func (r *ShowRepository) GetEpisode(ctx context.Context, id int64) (*models.ShowEpisode, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM show_episode WHERE id_episode = ?`, episodeColumns), id)
	return scanEpisode(row)
}

// Episodes lists showID's episodes; Default sorts by
// (season_number, episode_number) ascending, with the descending flag
// reversing both keys (spec §8 scenario 3).
func (r *ShowRepository) Episodes(showID int64, params query.Parameters) *query.Query[*models.ShowEpisode] {
	direction := "ASC"
	if params.Desc {
		direction = "DESC"
	}
	orderBy := fmt.Sprintf("ORDER BY season_number %s, episode_number %s", direction, direction)
	return query.New[*models.ShowEpisode](r.conn,
		fmt.Sprintf("show_episode WHERE show_id = %d", showID), "id_episode", orderBy, nil, scanEpisodeRows, r.logger)
}

func showSortColumn(sort query.SortCriterion) (string, query.SortCriterion) {
	switch sort {
	case query.SortReleaseDate:
		return "release_date", sort
	default:
		return "title", query.SortAlpha
	}
}

func (r *ShowRepository) ListAll(params query.Parameters) *query.Query[*models.Show] {
	orderBy := query.OrderByClause(params.Sort, params.Desc, showSortColumn, r.logger)
	return query.New[*models.Show](r.conn, "show WHERE 1=1", "id_show", orderBy, nil, scanShowRows, r.logger)
}

func (r *ShowRepository) Search(pattern string, params query.Parameters) *query.Query[*models.Show] {
	sanitized, ok := query.SanitizeFTSPattern(pattern)
	if !ok {
		return query.NewExplicit[*models.Show](r.conn, fmt.Sprintf(`SELECT %s FROM show WHERE 0`, showColumns), `SELECT 0`, nil, scanShowRows, r.logger)
	}
	listSQL := fmt.Sprintf(`SELECT %s FROM show JOIN show_fts ON show_fts.rowid = show.id_show WHERE show_fts MATCH ?`, qualifyColumns(showColumns, "show"))
	countSQL := `SELECT COUNT(*) FROM show JOIN show_fts ON show_fts.rowid = show.id_show WHERE show_fts MATCH ?`
	return query.NewExplicit[*models.Show](r.conn, listSQL, countSQL, []interface{}{sanitized}, scanShowRows, r.logger)
}
