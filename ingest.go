package medialibrary

import (
	"context"
	"path"
	"strings"

	"github.com/catalogizer/medialibrary/models"
)

// Ingestion surface (spec §6): the entry points discovery and parsing
// collaborators use to feed the catalog.

// classifyByExtension derives a coarse MediaType from the file name so
// a just-discovered media is queryable before the parser refines it.
func classifyByExtension(name string) models.MediaType {
	switch strings.ToLower(path.Ext(name)) {
	case ".mp3", ".flac", ".ogg", ".oga", ".wav", ".aac", ".m4a", ".wma", ".opus":
		return models.MediaTypeAudio
	case ".mkv", ".mp4", ".avi", ".mov", ".webm", ".wmv", ".m2ts", ".ts", ".mpg", ".mpeg":
		return models.MediaTypeVideo
	default:
		return models.MediaTypeUnknown
	}
}

// OnDiscoveredFile inserts a Media and its Main File for a file the
// walker found under parentFolder, creating the folder's device row
// first if this is the first sighting (spec §6).
func (l *Library) OnDiscoveredFile(ctx context.Context, fsFile FsFile, parentFolder FsDir, fileType models.FileType) (*models.Media, error) {
	device, err := l.devices.GetOrCreate(ctx, parentFolder.DeviceUUID, parentFolder.Scheme, false, fsFile.IsNetwork, parentFolder.MRL)
	if err != nil {
		return nil, l.handleError("discover file: device", err)
	}
	folder, err := l.folders.GetByPath(ctx, parentFolder.MRL, device.ID)
	if err != nil {
		folder, err = l.folders.Create(ctx, parentFolder.MRL, nil, device.ID, device.IsRemovable)
		if err != nil {
			return nil, l.handleError("discover file: folder", err)
		}
	}
	if folder.IsBanned {
		return nil, nil
	}

	media, err := l.media.Create(ctx, fsFile.Name, fsFile.Name, classifyByExtension(fsFile.Name), folder.ID, device.ID)
	if err != nil {
		return nil, l.handleError("discover file: media", err)
	}
	if _, err := l.files.Create(ctx, media.ID, fileType, fsFile.MRL, fsFile.LastModification, fsFile.Size,
		folder.ID, device.IsRemovable, fsFile.IsNetwork); err != nil {
		return nil, l.handleError("discover file: file", err)
	}
	return media, nil
}

// OnDiscoveredLinkedFile attaches a subtitles/soundtrack file to the
// media already published at the same location, derived by stripping
// the linked file's extension (spec §6).
func (l *Library) OnDiscoveredLinkedFile(ctx context.Context, fsFile FsFile, fileType models.FileType) error {
	base := strings.TrimSuffix(fsFile.MRL, path.Ext(fsFile.MRL))
	var mediaID int64
	err := l.conn.QueryRowContext(ctx, `
		SELECT media_id FROM file
		WHERE media_id IS NOT NULL AND type = ? AND mrl LIKE ? || '%'
		ORDER BY id_file LIMIT 1`, models.FileTypeMain, base).Scan(&mediaID)
	if err != nil {
		return l.handleError("discover linked file: resolve media", err)
	}
	_, err = l.media.AddFile(ctx, mediaID, fsFile.MRL, fileType)
	return l.handleError("discover linked file: add", err)
}

// OnUpdatedFile refreshes a file's mtime/size after an on-disk change;
// the reparse enqueue is the parser collaborator's half (spec §6).
func (l *Library) OnUpdatedFile(ctx context.Context, file *models.File, fsFile FsFile) error {
	return l.handleError("update file", l.files.UpdateFsInfo(ctx, file.ID, fsFile.LastModification, fsFile.Size))
}

// AddExternalMedia publishes a media at mrl with no folder or device
// (spec §4.6 createExternal).
func (l *Library) AddExternalMedia(ctx context.Context, mrl string, duration int64) (*models.Media, error) {
	media, err := l.media.CreateExternal(ctx, mrl, duration)
	if err != nil {
		return nil, l.handleError("add external media", err)
	}
	if _, err := l.media.AddFile(ctx, media.ID, mrl, models.FileTypeMain); err != nil {
		return nil, l.handleError("add external media: file", err)
	}
	return media, nil
}

// AddStream publishes a stream media: external with the stream
// type-marker (spec §4.6).
func (l *Library) AddStream(ctx context.Context, mrl string) (*models.Media, error) {
	media, err := l.media.AddStream(ctx, mrl)
	if err != nil {
		return nil, l.handleError("add stream", err)
	}
	if _, err := l.media.AddFile(ctx, media.ID, mrl, models.FileTypeMain); err != nil {
		return nil, l.handleError("add stream: file", err)
	}
	return media, nil
}

// BanFolder marks the folder at mrl banned, creating the device row if
// it is unknown; idempotent (spec §4.6).
func (l *Library) BanFolder(ctx context.Context, mrl string, deviceUUID, scheme string) error {
	return l.handleError("ban folder", l.folders.Ban(ctx, mrl, deviceUUID, scheme))
}

// UnbanFolder removes the ban on mrl for deviceID.
func (l *Library) UnbanFolder(ctx context.Context, mrl string, deviceID int64) error {
	return l.handleError("unban folder", l.folders.Unban(ctx, mrl, deviceID))
}

// Discover forwards an indexing request to the discovery collaborator.
func (l *Library) Discover(mrl string) {
	if l.setup.Discoverer != nil {
		l.setup.Discoverer.Discover(mrl)
	}
}

// Reload re-walks every known entry point, or just mrl when non-empty.
func (l *Library) Reload(mrl string) {
	if l.setup.Discoverer == nil {
		return
	}
	if mrl == "" {
		l.setup.Discoverer.ReloadAll()
		return
	}
	l.setup.Discoverer.Reload(mrl)
}

// ClearDatabase drops every discovered entity, optionally preserving
// user-created playlists by mrl so a later discovery pass can re-link
// them (spec §6; the playlist-file-moved interaction is resolved in
// DESIGN.md: stored mrls are kept verbatim and re-resolved lazily by
// CurateNullMediaID, so a moved file simply fails to re-link).
func (l *Library) ClearDatabase(ctx context.Context, restorePlaylists bool) error {
	tx, txCtx, release, err := l.conn.Begin(ctx, l.logger)
	if err != nil {
		return l.handleError("clear database", err)
	}
	defer release()
	defer tx.Rollback()

	tables := []string{
		"bookmark", "chapter", "metadata", "audio_track", "video_track", "subtitle_track",
		"thumbnail_linking", "thumbnail", "thumbnail_cleanup_request",
		"subscription_media_relation", "subscription",
		"label_file_relation", "label",
		"show_episode", "show", "movie",
		"media_group", "file", "media", "folder", "device",
		"album", "genre",
	}
	if !restorePlaylists {
		tables = append(tables, "playlist_media_relation", "playlist")
	}
	for _, t := range tables {
		if _, err := tx.ExecContext(txCtx, "DELETE FROM "+t); err != nil {
			return l.handleError("clear database: "+t, err)
		}
	}
	if restorePlaylists {
		// Membership rows keep their stored mrl; media_id goes NULL
		// via the FK and CurateNullMediaID re-links after rediscovery.
		if _, err := tx.ExecContext(txCtx, `UPDATE playlist_media_relation SET media_id = NULL`); err != nil {
			return l.handleError("clear database: unlink playlists", err)
		}
	}
	if _, err := tx.ExecContext(txCtx, `
		DELETE FROM artist WHERE id_artist NOT IN (?, ?)`,
		models.UnknownArtistID, models.VariousArtistsID); err != nil {
		return l.handleError("clear database: artists", err)
	}
	if _, err := tx.ExecContext(txCtx, `
		UPDATE artist SET nb_albums = 0, nb_tracks = 0, nb_present_tracks = 0`); err != nil {
		return l.handleError("clear database: sentinel counters", err)
	}
	return l.handleError("clear database: commit", tx.Commit())
}
