package medialibrary

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/catalogizer/medialibrary/config"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/query"
	"github.com/catalogizer/medialibrary/repository"
	"github.com/catalogizer/medialibrary/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.MLFolderPath = filepath.Join(dir, "ml")
	cfg.Database.Path = filepath.Join(dir, "catalog.db")
	cfg.Logging.Level = "error"

	lib, result, err := Open(cfg, SetupConfig{})
	require.NoError(t, err)
	require.Equal(t, InitSuccess, result)
	t.Cleanup(func() { lib.Close() })
	return lib
}

func seedDeviceAndFolder(t *testing.T, lib *Library) (deviceID, folderID int64) {
	t.Helper()
	ctx := context.Background()
	device, err := lib.Devices().Create(ctx, "uuid-1", "file://", false, false, "/mnt/media")
	require.NoError(t, err)
	folder, err := lib.Folders().Create(ctx, "/mnt/media/music", nil, device.ID, false)
	require.NoError(t, err)
	return device.ID, folder.ID
}

func TestOpenFreshDatabase(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()

	settings, err := lib.Settings().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(schema.CurrentModelVersion), settings.DBModelVersion)

	// Sentinel artists exist from table creation.
	unknown, err := lib.Artists().GetByID(ctx, models.UnknownArtistID)
	require.NoError(t, err)
	assert.Equal(t, "[Unknown Artist]", unknown.Name)
	various, err := lib.Artists().GetByID(ctx, models.VariousArtistsID)
	require.NoError(t, err)
	assert.Equal(t, "[Various Artists]", various.Name)
}

func TestMainFileRemovalDeletesMedia(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()
	deviceID, folderID := seedDeviceAndFolder(t, lib)

	media, err := lib.Media().Create(ctx, "media.mkv", "media.mkv", models.MediaTypeAudio, folderID, deviceID)
	require.NoError(t, err)
	_, err = lib.Files().Create(ctx, media.ID, models.FileTypeMain, "file:///mnt/media/music/media.mkv", 100, 4096, folderID, false, false)
	require.NoError(t, err)

	files, err := lib.Files().FilesOf(ctx, media.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, models.FileTypeMain, files[0].Type)
	assert.NotZero(t, files[0].Size)

	require.NoError(t, lib.Files().Delete(ctx, files[0]))
	_, err = lib.Media().GetByID(ctx, media.ID)
	assert.Error(t, err)
}

func TestAlbumTrackCounters(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()
	deviceID, folderID := seedDeviceAndFolder(t, lib)

	artist, err := lib.Artists().Create(ctx, "X")
	require.NoError(t, err)
	album, err := lib.Albums().Create(ctx, strPtr("A"), &artist.ID)
	require.NoError(t, err)
	genre, err := lib.Genres().GetOrCreate(ctx, "Jazz")
	require.NoError(t, err)

	durations := []int64{1000, 2000, 3000}
	var trackIDs []int64
	for i, d := range durations {
		m, err := lib.Media().Create(ctx, filePath(i), filePath(i), models.MediaTypeAudio, folderID, deviceID)
		require.NoError(t, err)
		require.NoError(t, lib.Media().SetDuration(ctx, m.ID, d))
		m.Duration = d
		require.NoError(t, lib.Albums().AddTrack(ctx, album.ID, m, int32(i+1), 1, &artist.ID, &genre.ID))
		trackIDs = append(trackIDs, m.ID)
	}

	album, err = lib.Albums().GetByID(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), album.NbTracks)
	assert.Equal(t, int64(3), album.NbPresentTracks)
	assert.Equal(t, int64(6000), album.Duration)

	artist, err = lib.Artists().GetByID(ctx, artist.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), artist.NbTracks)
	assert.Equal(t, int64(1), artist.NbAlbums)

	genre, err = lib.Genres().GetByID(ctx, genre.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), genre.NbTracks)

	// Deleting track 2 drops the counters and the summed duration.
	require.NoError(t, lib.Media().Delete(ctx, trackIDs[1]))
	album, err = lib.Albums().GetByID(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), album.NbTracks)
	assert.Equal(t, int64(4000), album.Duration)
}

func TestDevicePresencePropagation(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()
	deviceID, folderID := seedDeviceAndFolder(t, lib)

	artist, err := lib.Artists().Create(ctx, "Y")
	require.NoError(t, err)
	album, err := lib.Albums().Create(ctx, strPtr("B"), &artist.ID)
	require.NoError(t, err)

	m, err := lib.Media().Create(ctx, "b.mp3", "b.mp3", models.MediaTypeAudio, folderID, deviceID)
	require.NoError(t, err)
	require.NoError(t, lib.Albums().AddTrack(ctx, album.ID, m, 1, 1, &artist.ID, nil))

	folder, err := lib.Folders().GetByID(ctx, folderID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), folder.NbAudio)

	require.NoError(t, lib.Devices().SetPresent(ctx, deviceID, false))

	m, err = lib.Media().GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, m.IsPresent)

	album, err = lib.Albums().GetByID(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), album.NbTracks)
	assert.Equal(t, int64(0), album.NbPresentTracks)

	folder, err = lib.Folders().GetByID(ctx, folderID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), folder.NbAudio)

	// Coming back restores the counters.
	require.NoError(t, lib.Devices().SetPresent(ctx, deviceID, true))
	album, err = lib.Albums().GetByID(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), album.NbPresentTracks)
}

func TestPlaylistOrderingAndCuration(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()
	deviceID, folderID := seedDeviceAndFolder(t, lib)

	playlist, err := lib.Playlists().Create(ctx, "P", nil)
	require.NoError(t, err)

	var media []*models.Media
	for i := 0; i < 3; i++ {
		m, err := lib.Media().Create(ctx, filePath(i), filePath(i), models.MediaTypeAudio, folderID, deviceID)
		require.NoError(t, err)
		_, err = lib.Files().Create(ctx, m.ID, models.FileTypeMain, "file://"+filePath(i), 1, 10, folderID, false, false)
		require.NoError(t, err)
		require.NoError(t, lib.Playlists().Add(ctx, playlist.ID, m, repository.PositionAppend))
		media = append(media, m)
	}

	require.NoError(t, lib.Playlists().Move(ctx, playlist.ID, 0, 2))

	got, err := lib.Playlists().Media(ctx, playlist.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{media[1].ID, media[2].ID, media[0].ID},
		[]int64{got[0].ID, got[1].ID, got[2].ID})

	// Deleting a member's media leaves an orphan row that curation
	// drops, closing the position gap.
	require.NoError(t, lib.Media().Delete(ctx, media[1].ID))
	got, err = lib.Playlists().Media(ctx, playlist.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{media[2].ID, media[0].ID}, []int64{got[0].ID, got[1].ID})
}

func TestMediaGroupCounters(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()
	deviceID, folderID := seedDeviceAndFolder(t, lib)

	group, err := lib.MediaGroups().Create(ctx, "G", true, false)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		m, err := lib.Media().Create(ctx, filePath(i), filePath(i), models.MediaTypeAudio, folderID, deviceID)
		require.NoError(t, err)
		// A full playback marks the media seen.
		res, err := lib.Media().SetLastPosition(ctx, m.ID, 1.0)
		require.NoError(t, err)
		require.Equal(t, models.ProgressEnd, res)
		require.NoError(t, lib.MediaGroups().Add(ctx, group.ID, m.ID, false))
	}

	group, err = lib.MediaGroups().GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), group.NbAudio)
	assert.Equal(t, int64(2), group.NbPresentAudio)
	assert.Equal(t, int64(2), group.NbSeen)
	assert.Equal(t, int64(2), group.NbPresentSeen)

	require.NoError(t, lib.Devices().SetPresent(ctx, deviceID, false))
	group, err = lib.MediaGroups().GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), group.NbAudio)
	assert.Equal(t, int64(0), group.NbPresentAudio)
	assert.Equal(t, int64(0), group.NbPresentSeen)
}

func TestShowEpisodesOrderAndFTS(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()
	deviceID, folderID := seedDeviceAndFolder(t, lib)

	show, err := lib.Shows().Create(ctx, "Space Documentary")
	require.NoError(t, err)

	for _, se := range [][2]int32{{1, 2}, {2, 1}, {1, 1}} {
		m, err := lib.Media().Create(ctx, "ep", "ep", models.MediaTypeVideo, folderID, deviceID)
		require.NoError(t, err)
		_, err = lib.Shows().AddEpisode(ctx, show.ID, m.ID, se[0], se[1])
		require.NoError(t, err)
	}

	episodes, err := lib.Shows().Episodes(show.ID, query.Parameters{}).All(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, [2]int32{1, 1}, [2]int32{episodes[0].SeasonNumber, episodes[0].EpisodeNumber})
	assert.Equal(t, [2]int32{1, 2}, [2]int32{episodes[1].SeasonNumber, episodes[1].EpisodeNumber})
	assert.Equal(t, [2]int32{2, 1}, [2]int32{episodes[2].SeasonNumber, episodes[2].EpisodeNumber})

	desc, err := lib.Shows().Episodes(show.ID, query.Parameters{Desc: true}).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, episodes[0].ID, desc[2].ID)

	found, err := lib.Shows().Search("Space", query.Parameters{}).All(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, lib.Shows().Delete(ctx, show.ID))
	found, err = lib.Shows().Search("Space", query.Parameters{}).All(ctx)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestThumbnailRefcountCleanup(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()

	artist, err := lib.Artists().Create(ctx, "Z")
	require.NoError(t, err)
	thumb := &models.Thumbnail{MRL: "file:///thumbs/z.jpg", Origin: models.ThumbnailOriginMedia, IsOwned: true}
	require.NoError(t, lib.Artists().SetThumbnail(ctx, artist.ID, thumb, models.ThumbnailSizeThumbnail))

	require.NoError(t, lib.Thumbnails().Unlink(ctx, models.EntityTypeArtist, artist.ID, models.ThumbnailSizeThumbnail))

	mrls, err := lib.Thumbnails().DrainCleanupRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"file:///thumbs/z.jpg"}, mrls)
}

func TestMigrationFromModel22(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()

	// Rebuild the database as a v22 fixture: wipe the fresh schema and
	// recreate the legacy form with a banned folder in it.
	wipeSchema(t, lib)
	registry := schema.NewRegistry()
	require.NoError(t, registry.CreateSchema(ctx, lib.Conn(), 22))
	_, err := lib.Settings().Init(ctx, 22)
	require.NoError(t, err)
	_, err = lib.Conn().ExecContext(ctx, `
		INSERT INTO device(uuid, scheme, is_removable, is_network, is_present, last_seen) VALUES ('u', 'file://', 0, 0, 1, 0)`)
	require.NoError(t, err)
	_, err = lib.Conn().ExecContext(ctx, `
		INSERT INTO folder(path, name, parent_id, is_banned, device_id, is_removable) VALUES ('/banned', 'banned', NULL, 1, 1, 0)`)
	require.NoError(t, err)

	migrator := schema.NewMigrator(registry, nil)
	require.NoError(t, migrator.Migrate(ctx, lib.Conn(), 22))

	settings, err := lib.Settings().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(schema.CurrentModelVersion), settings.DBModelVersion)

	banned, err := lib.Folders().BannedFolders(ctx)
	require.NoError(t, err)
	require.Len(t, banned, 1)
	assert.Equal(t, "/banned", banned[0].Path)

	// Every trigger name exists exactly once.
	rows, err := lib.Conn().QueryContext(ctx, `
		SELECT name, COUNT(*) FROM sqlite_master WHERE type = 'trigger' GROUP BY name HAVING COUNT(*) > 1`)
	require.NoError(t, err)
	defer rows.Close()
	assert.False(t, rows.Next(), "duplicate trigger names after migration")
	require.NoError(t, rows.Err())
}

func wipeSchema(t *testing.T, lib *Library) {
	t.Helper()
	ctx := context.Background()
	rows, err := lib.Conn().QueryContext(ctx, `SELECT type, name FROM sqlite_master WHERE name NOT LIKE 'sqlite_%'`)
	require.NoError(t, err)
	type obj struct{ kind, name string }
	var objs []obj
	for rows.Next() {
		var o obj
		require.NoError(t, rows.Scan(&o.kind, &o.name))
		objs = append(objs, o)
	}
	require.NoError(t, rows.Err())
	rows.Close()
	for _, pass := range []string{"trigger", "index", "view", "table"} {
		for _, o := range objs {
			if o.kind != pass {
				continue
			}
			_, _ = lib.Conn().ExecContext(ctx, "DROP "+pass+" IF EXISTS "+o.name)
		}
	}
}

func strPtr(s string) *string { return &s }

func filePath(i int) string {
	return "track-" + string(rune('a'+i)) + ".mp3"
}
