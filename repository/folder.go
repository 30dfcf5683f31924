package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/notifier"
	"github.com/catalogizer/medialibrary/query"
	"go.uber.org/zap"
)

// FolderRepository implements the Folder contracts of spec §4.6:
// creation, the RemovedFromDisk/Banned removal behaviors, the
// idempotent Ban/Unban entry points, and the withMedia listing.
type FolderRepository struct {
	conn      *db.DB
	media     *MediaRepository
	playlists *PlaylistRepository
	devices   *DeviceRepository
	notifier  *notifier.Notifier
	logger    *zap.Logger
}

func NewFolderRepository(conn *db.DB, media *MediaRepository, playlists *PlaylistRepository, devices *DeviceRepository, n *notifier.Notifier, logger *zap.Logger) *FolderRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FolderRepository{conn: conn, media: media, playlists: playlists, devices: devices, notifier: n, logger: logger}
}

const folderColumns = `id_folder, path, name, parent_id, is_banned, device_id, is_removable, nb_audio, nb_video`

func scanFolder(row interface{ Scan(...interface{}) error }) (*models.Folder, error) {
	var f models.Folder
	var p, name sql.NullString
	var parentID sql.NullInt64
	if err := row.Scan(&f.ID, &p, &name, &parentID, &f.IsBanned, &f.DeviceID, &f.IsRemovable, &f.NbAudio, &f.NbVideo); err != nil {
		return nil, err
	}
	f.Path = p.String
	f.Name = name.String
	f.ParentID = scanNullInt64(parentID)
	return &f, nil
}

func scanFolderRows(rows *sql.Rows) ([]*models.Folder, error) {
	var out []*models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Create inserts a Folder. Root folders pass parentID == nil. The path
// is relative to the device mountpoint when the device is removable,
// absolute otherwise (spec §3).
func (r *FolderRepository) Create(ctx context.Context, folderPath string, parentID *int64, deviceID int64, isRemovable bool) (*models.Folder, error) {
	name := path.Base(strings.TrimRight(folderPath, "/"))
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO folder(path, name, parent_id, is_banned, device_id, is_removable, nb_audio, nb_video)
		VALUES (?, ?, ?, 0, ?, ?, 0, 0)`,
		folderPath, name, ptrInt64(parentID), deviceID, isRemovable)
	if err != nil {
		return nil, wrapErr(err, "create folder")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindFolder, id)
	}
	return r.GetByID(ctx, id)
}

func (r *FolderRepository) GetByID(ctx context.Context, id int64) (*models.Folder, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM folder WHERE id_folder = ?`, folderColumns), id)
	return scanFolder(row)
}

// GetByPath finds the folder at folderPath on deviceID.
func (r *FolderRepository) GetByPath(ctx context.Context, folderPath string, deviceID int64) (*models.Folder, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM folder WHERE path = ? AND device_id = ?`, folderColumns), folderPath, deviceID)
	return scanFolder(row)
}

// subtreeIDs walks the folder tree under rootID breadth-first and
// returns every contained folder id, root included. Banned folders
// have no children in the tree (spec §3), so the walk never descends
// into one.
func (r *FolderRepository) subtreeIDs(ctx context.Context, rootID int64) ([]int64, error) {
	all := []int64{rootID}
	frontier := []int64{rootID}
	for len(frontier) > 0 {
		var next []int64
		for _, id := range frontier {
			rows, err := r.conn.QueryContext(ctx, `SELECT id_folder FROM folder WHERE parent_id = ? AND is_banned = 0`, id)
			if err != nil {
				return nil, wrapErr(err, "walk folder subtree")
			}
			for rows.Next() {
				var child int64
				if err := rows.Scan(&child); err != nil {
					rows.Close()
					return nil, err
				}
				next = append(next, child)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return nil, err
			}
			rows.Close()
		}
		all = append(all, next...)
		frontier = next
	}
	return all, nil
}

// Remove implements spec §4.6's Folder::remove. RemovedFromDisk lets
// the foreign keys cascade; Banned walks the subtree, converts every
// contained media to external, destroys contained playlists, then
// deletes a root folder or marks a non-root one banned.
func (r *FolderRepository) Remove(ctx context.Context, folder *models.Folder, behavior models.FolderRemovalBehavior) error {
	if behavior == models.FolderRemovedFromDisk {
		_, err := r.conn.ExecContext(ctx, `DELETE FROM folder WHERE id_folder = ?`, folder.ID)
		if err != nil {
			return wrapErr(err, "remove folder")
		}
		if r.notifier != nil {
			r.notifier.NotifyRemoved(notifier.KindFolder, folder.ID)
		}
		return nil
	}

	ids, err := r.subtreeIDs(ctx, folder.ID)
	if err != nil {
		return err
	}
	for _, folderID := range ids {
		rows, err := r.conn.QueryContext(ctx, `SELECT id_media FROM media WHERE folder_id = ?`, folderID)
		if err != nil {
			return wrapErr(err, "list folder media")
		}
		var mediaIDs []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			mediaIDs = append(mediaIDs, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		for _, mediaID := range mediaIDs {
			if err := r.media.ConvertToExternal(ctx, mediaID); err != nil {
				return err
			}
		}
		if err := r.playlists.deleteByFolder(ctx, folderID); err != nil {
			return err
		}
	}

	if folder.ParentID == nil {
		_, err = r.conn.ExecContext(ctx, `DELETE FROM folder WHERE id_folder = ?`, folder.ID)
	} else {
		_, err = r.conn.ExecContext(ctx, `UPDATE folder SET is_banned = 1 WHERE id_folder = ?`, folder.ID)
	}
	if err != nil {
		return wrapErr(err, "ban folder")
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindFolder, folder.ID)
	}
	return nil
}

// Ban implements spec §4.6's Folder::ban(mrl): idempotent. An existing
// unbanned folder at that path is first removed with
// behavior=RemovedFromDisk, then a banned row is inserted; an unknown
// device is created on the fly.
func (r *FolderRepository) Ban(ctx context.Context, folderPath string, deviceUUID, scheme string) error {
	device, err := r.devices.GetOrCreate(ctx, deviceUUID, scheme, false, false, "")
	if err != nil {
		return err
	}
	existing, err := r.GetByPath(ctx, folderPath, device.ID)
	if err != nil && !notFound(err) {
		return err
	}
	if err == nil {
		if existing.IsBanned {
			return nil
		}
		if err := r.Remove(ctx, existing, models.FolderRemovedFromDisk); err != nil {
			return err
		}
	}
	_, err = r.conn.ExecContext(ctx, `
		INSERT INTO folder(path, name, parent_id, is_banned, device_id, is_removable, nb_audio, nb_video)
		VALUES (?, ?, NULL, 1, ?, ?, 0, 0)`,
		folderPath, path.Base(strings.TrimRight(folderPath, "/")), device.ID, device.IsRemovable)
	return wrapErr(err, "insert banned folder")
}

// Unban drops the banned row for folderPath, letting a later discovery
// pass re-index it.
func (r *FolderRepository) Unban(ctx context.Context, folderPath string, deviceID int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM folder WHERE path = ? AND device_id = ? AND is_banned = 1`, folderPath, deviceID)
	return wrapErr(err, "unban folder")
}

// BannedFolders lists every banned folder.
func (r *FolderRepository) BannedFolders(ctx context.Context) ([]*models.Folder, error) {
	rows, err := r.conn.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM folder WHERE is_banned = 1 ORDER BY path`, folderColumns))
	if err != nil {
		return nil, wrapErr(err, "list banned folders")
	}
	defer rows.Close()
	return scanFolderRows(rows)
}

func folderSortColumn(sort query.SortCriterion) (string, query.SortCriterion) {
	switch sort {
	case query.SortNbAudio:
		return "nb_audio", sort
	case query.SortNbVideo:
		return "nb_video", sort
	case query.SortNbMedia:
		return "nb_audio + nb_video", sort
	default:
		return "name", query.SortAlpha
	}
}

// WithMedia lists folders holding at least one media of mediaType
// (nil = any), per spec §6's Folder::withMedia.
func (r *FolderRepository) WithMedia(mediaType *models.MediaType, params query.Parameters) *query.Query[*models.Folder] {
	counter := "nb_audio + nb_video"
	if mediaType != nil {
		if *mediaType == models.MediaTypeAudio {
			counter = "nb_audio"
		} else {
			counter = "nb_video"
		}
	}
	where := fmt.Sprintf("WHERE is_banned = 0 AND %s > 0", counter)
	orderBy := query.OrderByClause(params.Sort, params.Desc, folderSortColumn, r.logger)
	return query.New[*models.Folder](r.conn, "folder "+where, "id_folder", orderBy, nil, scanFolderRows, r.logger)
}
