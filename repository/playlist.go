package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/notifier"
	"github.com/catalogizer/medialibrary/query"
	"go.uber.org/zap"
)

// PositionAppend requests an append in Playlist.Add, mirroring the
// UINT_MAX convention of spec §4.6.
const PositionAppend = int64(math.MaxInt64)

// PlaylistRepository implements the Playlist contracts of spec §4.6:
// positional add/move/remove with trigger-maintained shifting, and the
// lazy CurateNullMediaID re-link pass.
type PlaylistRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewPlaylistRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *PlaylistRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaylistRepository{conn: conn, notifier: n, logger: logger}
}

const playlistColumns = `id_playlist, name, file_id, creation_date, artwork_mrl`

func scanPlaylist(row interface{ Scan(...interface{}) error }) (*models.Playlist, error) {
	var p models.Playlist
	var fileID sql.NullInt64
	var created int64
	var artwork sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &fileID, &created, &artwork); err != nil {
		return nil, err
	}
	p.FileID = scanNullInt64(fileID)
	p.CreationDate = time.Unix(created, 0)
	p.ArtworkMRL = scanNullString(artwork)
	return &p, nil
}

func scanPlaylistRows(rows *sql.Rows) ([]*models.Playlist, error) {
	var out []*models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a Playlist. fileID is non-nil only for playlists
// imported from a playlist file (spec §3).
func (r *PlaylistRepository) Create(ctx context.Context, name string, fileID *int64) (*models.Playlist, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO playlist(name, file_id, creation_date, artwork_mrl) VALUES (?, ?, ?, NULL)`,
		name, ptrInt64(fileID), time.Now().Unix())
	if err != nil {
		return nil, wrapErr(err, "create playlist")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindPlaylist, id)
	}
	return r.GetByID(ctx, id)
}

func (r *PlaylistRepository) GetByID(ctx context.Context, id int64) (*models.Playlist, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM playlist WHERE id_playlist = ?`, playlistColumns), id)
	return scanPlaylist(row)
}

func (r *PlaylistRepository) count(ctx context.Context, q execer, playlistID int64) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlist_media_relation WHERE playlist_id = ?`, playlistID).Scan(&n)
	return n, err
}

// Add inserts media at position. PositionAppend appends using the
// current count; any other position is clamped to min(position, count)
// and the playlist_position_insert_shift trigger moves later rows by
// +1 (spec §4.5, §4.6). The row also records the media's mrl so a
// later appearance of the same location can be re-linked after the
// media is deleted.
func (r *PlaylistRepository) Add(ctx context.Context, playlistID int64, media *models.Media, position int64) error {
	tx, txCtx, release, err := r.conn.Begin(ctx, r.logger)
	if err != nil {
		return err
	}
	defer release()
	defer tx.Rollback()

	count, err := r.count(txCtx, tx, playlistID)
	if err != nil {
		return wrapErr(err, "count playlist members")
	}
	if position > count {
		position = count
	}
	mrl, err := r.mainMRL(txCtx, tx, media.ID)
	if err != nil && !notFound(err) {
		return err
	}
	if mrl == "" {
		mrl = media.Filename
	}
	if _, err := tx.ExecContext(txCtx, `
		INSERT INTO playlist_media_relation(playlist_id, media_id, position, mrl) VALUES (?, ?, ?, ?)`,
		playlistID, media.ID, position, mrl); err != nil {
		return wrapErr(err, "add playlist member")
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindPlaylist, playlistID)
	}
	return nil
}

func (r *PlaylistRepository) mainMRL(ctx context.Context, q execer, mediaID int64) (string, error) {
	var mrl sql.NullString
	err := q.QueryRowContext(ctx, `SELECT mrl FROM file WHERE media_id = ? AND type = ? LIMIT 1`,
		mediaID, models.FileTypeMain).Scan(&mrl)
	if err != nil {
		return "", err
	}
	return mrl.String, nil
}

// Remove deletes the row at position; the
// playlist_position_delete_shift trigger closes the gap.
func (r *PlaylistRepository) Remove(ctx context.Context, playlistID, position int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM playlist_media_relation WHERE playlist_id = ? AND position = ?`,
		playlistID, position)
	if err != nil {
		return wrapErr(err, "remove playlist member")
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindPlaylist, playlistID)
	}
	return nil
}

// Move deletes the row at from and re-adds it at to, atomically, per
// spec §4.6 ("move(from, to) deletes then re-adds atomically").
func (r *PlaylistRepository) Move(ctx context.Context, playlistID, from, to int64) error {
	tx, txCtx, release, err := r.conn.Begin(ctx, r.logger)
	if err != nil {
		return err
	}
	defer release()
	defer tx.Rollback()

	var mediaID sql.NullInt64
	var mrl string
	err = tx.QueryRowContext(txCtx, `SELECT media_id, mrl FROM playlist_media_relation WHERE playlist_id = ? AND position = ?`,
		playlistID, from).Scan(&mediaID, &mrl)
	if err != nil {
		return wrapErr(err, "read playlist member to move")
	}
	if _, err := tx.ExecContext(txCtx, `DELETE FROM playlist_media_relation WHERE playlist_id = ? AND position = ?`,
		playlistID, from); err != nil {
		return wrapErr(err, "delete playlist member to move")
	}
	count, err := r.count(txCtx, tx, playlistID)
	if err != nil {
		return wrapErr(err, "count playlist members")
	}
	if to > count {
		to = count
	}
	if _, err := tx.ExecContext(txCtx, `
		INSERT INTO playlist_media_relation(playlist_id, media_id, position, mrl) VALUES (?, ?, ?, ?)`,
		playlistID, scanNullInt64AsArg(mediaID), to, mrl); err != nil {
		return wrapErr(err, "re-add playlist member")
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindPlaylist, playlistID)
	}
	return nil
}

func scanNullInt64AsArg(v sql.NullInt64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

// CurateNullMediaID re-links rows whose media was deleted: each row
// with a NULL media_id is pointed at any media currently published at
// the stored mrl, and unresolvable rows are dropped. Invoked lazily at
// read time; idempotent (spec §4.6, §8).
func (r *PlaylistRepository) CurateNullMediaID(ctx context.Context, playlistID int64) error {
	tx, txCtx, release, err := r.conn.Begin(ctx, r.logger)
	if err != nil {
		return err
	}
	defer release()
	defer tx.Rollback()

	rows, err := tx.QueryContext(txCtx, `SELECT position, mrl FROM playlist_media_relation
		WHERE playlist_id = ? AND media_id IS NULL ORDER BY position DESC`, playlistID)
	if err != nil {
		return wrapErr(err, "list orphan playlist members")
	}
	type orphan struct {
		position int64
		mrl      string
	}
	var orphans []orphan
	for rows.Next() {
		var o orphan
		if err := rows.Scan(&o.position, &o.mrl); err != nil {
			rows.Close()
			return err
		}
		orphans = append(orphans, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, o := range orphans {
		var mediaID int64
		err := tx.QueryRowContext(txCtx, `SELECT media_id FROM file WHERE mrl = ? AND media_id IS NOT NULL LIMIT 1`, o.mrl).Scan(&mediaID)
		switch {
		case err == nil:
			if _, err := tx.ExecContext(txCtx, `UPDATE playlist_media_relation SET media_id = ?
				WHERE playlist_id = ? AND position = ?`, mediaID, playlistID, o.position); err != nil {
				return wrapErr(err, "re-link playlist member")
			}
		case notFound(err):
			// Orphans are walked highest position first so earlier
			// deletions don't shift the positions still to visit.
			if _, err := tx.ExecContext(txCtx, `DELETE FROM playlist_media_relation
				WHERE playlist_id = ? AND position = ?`, playlistID, o.position); err != nil {
				return wrapErr(err, "drop orphan playlist member")
			}
		default:
			return wrapErr(err, "resolve orphan playlist member")
		}
	}
	return tx.Commit()
}

// Media returns the playlist's members in position order, curating
// orphan rows first (spec §4.6: "curateNullMediaID() is invoked lazily
// at read time").
func (r *PlaylistRepository) Media(ctx context.Context, playlistID int64) ([]*models.Media, error) {
	if err := r.CurateNullMediaID(ctx, playlistID); err != nil {
		return nil, err
	}
	rows, err := r.conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM media JOIN playlist_media_relation rel ON rel.media_id = media.id_media
		WHERE rel.playlist_id = ? ORDER BY rel.position`, qualifyColumns(mediaColumns, "media")), playlistID)
	if err != nil {
		return nil, wrapErr(err, "list playlist media")
	}
	defer rows.Close()
	return scanMediaRows(rows)
}

// Delete removes the playlist; membership rows cascade.
func (r *PlaylistRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM playlist WHERE id_playlist = ?`, id)
	if err != nil {
		return wrapErr(err, "delete playlist")
	}
	if r.notifier != nil {
		r.notifier.NotifyRemoved(notifier.KindPlaylist, id)
	}
	return nil
}

// deleteByFolder destroys every playlist whose backing file lives in
// folderID, used by Folder.Remove's Banned path (spec §4.6).
func (r *PlaylistRepository) deleteByFolder(ctx context.Context, folderID int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM playlist WHERE file_id IN (SELECT id_file FROM file WHERE folder_id = ?)`, folderID)
	return wrapErr(err, "delete folder playlists")
}

func playlistSortColumn(sort query.SortCriterion) (string, query.SortCriterion) {
	switch sort {
	case query.SortInsertionDate:
		return "creation_date", sort
	default:
		return "name", query.SortAlpha
	}
}

func (r *PlaylistRepository) ListAll(params query.Parameters) *query.Query[*models.Playlist] {
	orderBy := query.OrderByClause(params.Sort, params.Desc, playlistSortColumn, r.logger)
	return query.New[*models.Playlist](r.conn, "playlist WHERE 1=1", "id_playlist", orderBy, nil, scanPlaylistRows, r.logger)
}

func (r *PlaylistRepository) Search(pattern string, params query.Parameters) *query.Query[*models.Playlist] {
	sanitized, ok := query.SanitizeFTSPattern(pattern)
	if !ok {
		return query.NewExplicit[*models.Playlist](r.conn, fmt.Sprintf(`SELECT %s FROM playlist WHERE 0`, playlistColumns), `SELECT 0`, nil, scanPlaylistRows, r.logger)
	}
	listSQL := fmt.Sprintf(`SELECT %s FROM playlist JOIN playlist_fts ON playlist_fts.rowid = playlist.id_playlist WHERE playlist_fts MATCH ?`, qualifyColumns(playlistColumns, "playlist"))
	countSQL := `SELECT COUNT(*) FROM playlist JOIN playlist_fts ON playlist_fts.rowid = playlist.id_playlist WHERE playlist_fts MATCH ?`
	return query.NewExplicit[*models.Playlist](r.conn, listSQL, countSQL, []interface{}{sanitized}, scanPlaylistRows, r.logger)
}
