package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/notifier"
	"go.uber.org/zap"
)

// FileRepository implements the File contracts of spec §3/§4.6. Files
// belong to a Media or a Playlist; deleting a media's Main file deletes
// the media through the file_main_delete_media trigger (spec §8
// scenario 1), and Cache file churn feeds Subscription.cached_size via
// the subscription_cache_* triggers.
type FileRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewFileRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *FileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRepository{conn: conn, notifier: n, logger: logger}
}

const fileColumns = `id_file, media_id, playlist_id, type, mrl, last_modification_date, size, folder_id,
	is_removable, is_external, is_network`

func scanFile(row interface{ Scan(...interface{}) error }) (*models.File, error) {
	var f models.File
	var mediaID, playlistID, folderID, mtime sql.NullInt64
	var mrl sql.NullString
	if err := row.Scan(&f.ID, &mediaID, &playlistID, &f.Type, &mrl, &mtime, &f.Size, &folderID,
		&f.IsRemovable, &f.IsExternal, &f.IsNetwork); err != nil {
		return nil, err
	}
	f.MediaID = scanNullInt64(mediaID)
	f.PlaylistID = scanNullInt64(playlistID)
	f.FolderID = scanNullInt64(folderID)
	f.MRL = mrl.String
	if mtime.Valid {
		f.LastModificationDate = mtime.Int64
	}
	return &f, nil
}

// Create inserts a File for a Media discovered inside a folder. The
// mrl is relative to the device mountpoint when the device is
// removable, absolute otherwise (spec §3).
func (r *FileRepository) Create(ctx context.Context, mediaID int64, fileType models.FileType, mrl string, mtime, size int64, folderID int64, isRemovable, isNetwork bool) (*models.File, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO file(media_id, playlist_id, type, mrl, last_modification_date, size, folder_id, is_removable, is_external, is_network)
		VALUES (?, NULL, ?, ?, ?, ?, ?, ?, 0, ?)`,
		mediaID, fileType, mrl, mtime, size, nullInt64(folderID), isRemovable, isNetwork)
	if err != nil {
		return nil, wrapErr(err, "create file")
	}
	return r.GetByID(ctx, id)
}

// CreateForPlaylist inserts the backing file of an imported playlist.
func (r *FileRepository) CreateForPlaylist(ctx context.Context, playlistID int64, mrl string, mtime, size int64, folderID int64) (*models.File, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO file(media_id, playlist_id, type, mrl, last_modification_date, size, folder_id, is_removable, is_external, is_network)
		VALUES (NULL, ?, ?, ?, ?, ?, ?, 0, 0, 0)`,
		playlistID, models.FileTypePlaylist, mrl, mtime, size, nullInt64(folderID))
	if err != nil {
		return nil, wrapErr(err, "create playlist file")
	}
	return r.GetByID(ctx, id)
}

// CreateCache inserts a subscription cache copy for mediaID; the
// subscription_cache_insert trigger adds its size to every owning
// subscription's cached_size (spec §4.5).
func (r *FileRepository) CreateCache(ctx context.Context, mediaID int64, mrl string, size int64) (*models.File, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO file(media_id, playlist_id, type, mrl, last_modification_date, size, folder_id, is_removable, is_external, is_network)
		VALUES (?, NULL, ?, ?, ?, ?, NULL, 0, 0, 0)`,
		mediaID, models.FileTypeCache, mrl, time.Now().Unix(), size)
	if err != nil {
		return nil, wrapErr(err, "create cache file")
	}
	return r.GetByID(ctx, id)
}

func (r *FileRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM file WHERE id_file = ?`, fileColumns), id)
	return scanFile(row)
}

// GetByMRL finds a file by location, within folderID when non-zero
// (removable-device files store folder-relative mrls, so the pair is
// what the unique constraint covers).
func (r *FileRepository) GetByMRL(ctx context.Context, mrl string, folderID int64) (*models.File, error) {
	if folderID != 0 {
		row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM file WHERE mrl = ? AND folder_id = ?`, fileColumns), mrl, folderID)
		return scanFile(row)
	}
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM file WHERE mrl = ? AND folder_id IS NULL`, fileColumns), mrl)
	return scanFile(row)
}

// MainFileOf returns the Main file of mediaID.
func (r *FileRepository) MainFileOf(ctx context.Context, mediaID int64) (*models.File, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM file WHERE media_id = ? AND type = ?`, fileColumns), mediaID, models.FileTypeMain)
	return scanFile(row)
}

// FilesOf returns every file row attached to mediaID.
func (r *FileRepository) FilesOf(ctx context.Context, mediaID int64) ([]*models.File, error) {
	rows, err := r.conn.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM file WHERE media_id = ? ORDER BY type, id_file`, fileColumns), mediaID)
	if err != nil {
		return nil, wrapErr(err, "list media files")
	}
	defer rows.Close()
	var out []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateFsInfo refreshes mtime/size after an on-disk change, the
// storage half of spec §6's onUpdatedFile (the reparse enqueue belongs
// to the parser collaborator).
func (r *FileRepository) UpdateFsInfo(ctx context.Context, id int64, mtime, size int64) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE file SET last_modification_date = ?, size = ? WHERE id_file = ?`, mtime, size, id)
	return wrapErr(err, "update file fs info")
}

// Delete removes the file row. When it was a media's Main file the
// file_main_delete_media trigger deletes the media too, and this method
// notifies that media as removed.
func (r *FileRepository) Delete(ctx context.Context, file *models.File) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM file WHERE id_file = ?`, file.ID)
	if err != nil {
		return wrapErr(err, "delete file")
	}
	if file.Type == models.FileTypeMain && file.MediaID != nil && r.notifier != nil {
		r.notifier.NotifyRemoved(notifier.KindMedia, *file.MediaID)
	}
	return nil
}
