package schema

import "fmt"

// indexes returns the supporting indexes, including the legacy
// album_track index name, emitted only for model versions before 34
// (spec §9 Open Question b: "the source mixes
// stale AlbumTrack references in index creation versus runtime
// dispatch over current model >=34 that no longer uses the table").
func indexes(schemaVersion int) []object {
	objs := []object{
		{"index", "media_device_idx", `CREATE INDEX media_device_idx ON media(device_id)`},
		{"index", "media_folder_idx", `CREATE INDEX media_folder_idx ON media(folder_id)`},
		{"index", "media_group_idx", `CREATE INDEX media_group_idx ON media(group_id)`},
		{"index", "file_media_idx", `CREATE INDEX file_media_idx ON file(media_id)`},
		{"index", "file_playlist_idx", `CREATE INDEX file_playlist_idx ON file(playlist_id)`},
		{"index", "folder_parent_idx", `CREATE INDEX folder_parent_idx ON folder(parent_id)`},
		{"index", "show_episode_show_idx", `CREATE INDEX show_episode_show_idx ON show_episode(show_id)`},
		{"index", "playlist_media_relation_media_idx", `CREATE INDEX playlist_media_relation_media_idx ON playlist_media_relation(media_id)`},
		{"index", "playlist_media_relation_position_idx", `CREATE INDEX playlist_media_relation_position_idx ON playlist_media_relation(playlist_id, position)`},
		{"index", "thumbnail_linking_thumbnail_idx", `CREATE INDEX thumbnail_linking_thumbnail_idx ON thumbnail_linking(thumbnail_id)`},
		{"index", "subscription_media_relation_media_idx", `CREATE INDEX subscription_media_relation_media_idx ON subscription_media_relation(media_id)`},
	}
	if schemaVersion >= 34 {
		objs = append(objs, object{"index", "media_album_idx", `CREATE INDEX media_album_idx ON media(album_id)`})
		objs = append(objs, object{"index", "media_artist_idx", `CREATE INDEX media_artist_idx ON media(artist_id)`})
	} else {
		// Legacy name, retained only so a migration dropping it finds
		// exactly this text in sqlite_master; current (>=34) runtime
		// code never queries album_track directly.
		objs = append(objs, object{"index", "album_track_album_idx", `CREATE INDEX album_track_album_idx ON album_track(album_id)`})
	}
	return objs
}

// triggers returns the trigger families of spec §4.5. Text is
// version-sensitive: before the v34 denormalization, counter
// maintenance reads old.*/new.* off album_track; from v34 on, it reads
// them directly off media.
func triggers(schemaVersion int) []object {
	denormalized := schemaVersion >= 34

	var objs []object

	// --- Presence propagation (spec §4.5 "Presence propagation").
	// Before the v34 denormalization the track columns live on
	// album_track, so the legacy text resolves the holders through it.
	presenceTrackPart := `
	UPDATE album SET nb_present_tracks = nb_present_tracks + (new.is_present - old.is_present)
		WHERE id_album = new.album_id AND new.subtype = 1;
	UPDATE artist SET nb_present_tracks = nb_present_tracks + (new.is_present - old.is_present)
		WHERE id_artist = new.artist_id AND new.subtype = 1;
	UPDATE genre SET nb_present_tracks = nb_present_tracks + (new.is_present - old.is_present)
		WHERE id_genre = new.genre_id AND new.subtype = 1;`
	if !denormalized {
		presenceTrackPart = `
	UPDATE album SET nb_present_tracks = nb_present_tracks + (new.is_present - old.is_present)
		WHERE id_album IN (SELECT album_id FROM album_track WHERE media_id = new.id_media);
	UPDATE artist SET nb_present_tracks = nb_present_tracks + (new.is_present - old.is_present)
		WHERE id_artist IN (SELECT artist_id FROM album_track WHERE media_id = new.id_media);
	UPDATE genre SET nb_present_tracks = nb_present_tracks + (new.is_present - old.is_present)
		WHERE id_genre IN (SELECT genre_id FROM album_track WHERE media_id = new.id_media);`
	}
	objs = append(objs, object{"trigger", "media_presence_update", `
CREATE TRIGGER media_presence_update AFTER UPDATE OF is_present ON media
WHEN old.is_present != new.is_present
BEGIN` + presenceTrackPart + `
	UPDATE media_group SET
		nb_present_video = nb_present_video + (CASE WHEN new.type = 2 THEN new.is_present - old.is_present ELSE 0 END),
		nb_present_audio = nb_present_audio + (CASE WHEN new.type = 1 THEN new.is_present - old.is_present ELSE 0 END),
		nb_present_unknown = nb_present_unknown + (CASE WHEN new.type = 0 THEN new.is_present - old.is_present ELSE 0 END),
		nb_present_seen = nb_present_seen + (CASE WHEN new.play_count > 0 THEN new.is_present - old.is_present ELSE 0 END),
		nb_present_external = nb_present_external + (CASE WHEN new.import_type = 1 THEN new.is_present - old.is_present ELSE 0 END)
		WHERE id_group = new.group_id AND new.group_id IS NOT NULL;
END`})

	// --- Counter maintenance on track insert/update/delete ---
	if denormalized {
		objs = append(objs, object{"trigger", "track_insert_counters", `
CREATE TRIGGER track_insert_counters AFTER INSERT ON media
WHEN new.subtype = 1
BEGIN
	UPDATE album SET nb_tracks = nb_tracks + 1, nb_present_tracks = nb_present_tracks + new.is_present,
		duration = duration + (CASE WHEN new.duration > 0 THEN new.duration ELSE 0 END) WHERE id_album = new.album_id;
	UPDATE artist SET nb_tracks = nb_tracks + 1, nb_present_tracks = nb_present_tracks + new.is_present
		WHERE id_artist = new.artist_id;
	UPDATE genre SET nb_tracks = nb_tracks + 1, nb_present_tracks = nb_present_tracks + new.is_present
		WHERE id_genre = new.genre_id;
END`})
		objs = append(objs, object{"trigger", "track_delete_counters", `
CREATE TRIGGER track_delete_counters AFTER DELETE ON media
WHEN old.subtype = 1
BEGIN
	UPDATE album SET nb_tracks = nb_tracks - 1, nb_present_tracks = nb_present_tracks - old.is_present,
		duration = duration - (CASE WHEN old.duration > 0 THEN old.duration ELSE 0 END) WHERE id_album = old.album_id;
	UPDATE artist SET nb_tracks = nb_tracks - 1, nb_present_tracks = nb_present_tracks - old.is_present
		WHERE id_artist = old.artist_id;
	UPDATE genre SET nb_tracks = nb_tracks - 1, nb_present_tracks = nb_present_tracks - old.is_present
		WHERE id_genre = old.genre_id;
END`})
		// Marking an existing media as a track (or detaching one) is an
		// UPDATE; the case expressions check old./new. values so a
		// same-holder update never double counts.
		objs = append(objs, object{"trigger", "track_update_counters", `
CREATE TRIGGER track_update_counters AFTER UPDATE OF subtype, album_id, artist_id, genre_id ON media
BEGIN
	UPDATE album SET nb_tracks = nb_tracks - 1, nb_present_tracks = nb_present_tracks - old.is_present,
		duration = duration - (CASE WHEN old.duration > 0 THEN old.duration ELSE 0 END)
		WHERE id_album = old.album_id AND old.subtype = 1
		AND (new.subtype != 1 OR IFNULL(new.album_id, 0) != IFNULL(old.album_id, 0));
	UPDATE album SET nb_tracks = nb_tracks + 1, nb_present_tracks = nb_present_tracks + new.is_present,
		duration = duration + (CASE WHEN new.duration > 0 THEN new.duration ELSE 0 END)
		WHERE id_album = new.album_id AND new.subtype = 1
		AND (old.subtype != 1 OR IFNULL(new.album_id, 0) != IFNULL(old.album_id, 0));
	UPDATE artist SET nb_tracks = nb_tracks - 1, nb_present_tracks = nb_present_tracks - old.is_present
		WHERE id_artist = old.artist_id AND old.subtype = 1
		AND (new.subtype != 1 OR IFNULL(new.artist_id, 0) != IFNULL(old.artist_id, 0));
	UPDATE artist SET nb_tracks = nb_tracks + 1, nb_present_tracks = nb_present_tracks + new.is_present
		WHERE id_artist = new.artist_id AND new.subtype = 1
		AND (old.subtype != 1 OR IFNULL(new.artist_id, 0) != IFNULL(old.artist_id, 0));
	UPDATE genre SET nb_tracks = nb_tracks - 1, nb_present_tracks = nb_present_tracks - old.is_present
		WHERE id_genre = old.genre_id AND old.subtype = 1
		AND (new.subtype != 1 OR IFNULL(new.genre_id, 0) != IFNULL(old.genre_id, 0));
	UPDATE genre SET nb_tracks = nb_tracks + 1, nb_present_tracks = nb_present_tracks + new.is_present
		WHERE id_genre = new.genre_id AND new.subtype = 1
		AND (old.subtype != 1 OR IFNULL(new.genre_id, 0) != IFNULL(old.genre_id, 0));
END`})
	} else {
		objs = append(objs, object{"trigger", "track_insert_counters", `
CREATE TRIGGER track_insert_counters AFTER INSERT ON album_track
BEGIN
	UPDATE album SET nb_tracks = nb_tracks + 1, nb_present_tracks = nb_present_tracks + 1,
		duration = duration + new.duration WHERE id_album = new.album_id;
	UPDATE artist SET nb_tracks = nb_tracks + 1, nb_present_tracks = nb_present_tracks + 1
		WHERE id_artist = new.artist_id;
	UPDATE genre SET nb_tracks = nb_tracks + 1, nb_present_tracks = nb_present_tracks + 1
		WHERE id_genre = new.genre_id;
END`})
		objs = append(objs, object{"trigger", "track_delete_counters", `
CREATE TRIGGER track_delete_counters AFTER DELETE ON album_track
BEGIN
	UPDATE album SET nb_tracks = nb_tracks - 1, nb_present_tracks = nb_present_tracks - 1,
		duration = duration - old.duration WHERE id_album = old.album_id;
	UPDATE artist SET nb_tracks = nb_tracks - 1, nb_present_tracks = nb_present_tracks - 1
		WHERE id_artist = old.artist_id;
	UPDATE genre SET nb_tracks = nb_tracks - 1, nb_present_tracks = nb_present_tracks - 1
		WHERE id_genre = old.genre_id;
END`})
	}

	// --- Derived emptiness (spec §4.5 "Derived emptiness") ---
	objs = append(objs, object{"trigger", "album_delete_empty", `
CREATE TRIGGER album_delete_empty AFTER UPDATE OF nb_tracks ON album
WHEN new.nb_tracks = 0
BEGIN
	DELETE FROM album WHERE id_album = new.id_album;
END`})
	objs = append(objs, object{"trigger", "genre_delete_empty", `
CREATE TRIGGER genre_delete_empty AFTER UPDATE OF nb_tracks ON genre
WHEN new.nb_tracks = 0
BEGIN
	DELETE FROM genre WHERE id_genre = new.id_genre;
END`})
	objs = append(objs, object{"trigger", "artist_delete_empty", `
CREATE TRIGGER artist_delete_empty AFTER UPDATE OF nb_albums, nb_tracks ON artist
WHEN new.nb_albums = 0 AND new.nb_tracks = 0 AND new.id_artist NOT IN (1, 2)
BEGIN
	DELETE FROM artist WHERE id_artist = new.id_artist;
END`})
	objs = append(objs, object{"trigger", "media_group_delete_empty", `
CREATE TRIGGER media_group_delete_empty AFTER UPDATE ON media_group
WHEN new.nb_video + new.nb_audio + new.nb_unknown + new.nb_external = 0
BEGIN
	DELETE FROM media_group WHERE id_group = new.id_group;
END`})

	// --- FTS mirror maintenance (spec §4.5) ---
	objs = append(objs, ftsMirrorTriggers("media", "media_fts", "id_media", "title")...)
	objs = append(objs, ftsMirrorTriggers("album", "album_fts", "id_album", "title")...)
	objs = append(objs, ftsMirrorTriggers("artist", "artist_fts", "id_artist", "name")...)
	objs = append(objs, ftsMirrorTriggers("genre", "genre_fts", "id_genre", "name")...)
	objs = append(objs, ftsMirrorTriggers("show", "show_fts", "id_show", "title")...)
	objs = append(objs, ftsMirrorTriggers("playlist", "playlist_fts", "id_playlist", "name")...)
	objs = append(objs, ftsMirrorTriggers("label", "label_fts", "id_label", "name")...)

	// --- Playlist position maintenance (spec §4.5) ---
	objs = append(objs, object{"trigger", "playlist_position_insert_shift", `
CREATE TRIGGER playlist_position_insert_shift AFTER INSERT ON playlist_media_relation
BEGIN
	UPDATE playlist_media_relation SET position = position + 1
		WHERE playlist_id = new.playlist_id AND position >= new.position AND rowid != new.rowid;
END`})
	objs = append(objs, object{"trigger", "playlist_position_delete_shift", `
CREATE TRIGGER playlist_position_delete_shift AFTER DELETE ON playlist_media_relation
BEGIN
	UPDATE playlist_media_relation SET position = position - 1
		WHERE playlist_id = old.playlist_id AND position > old.position;
END`})

	// --- Thumbnail refcount (spec §4.5) ---
	objs = append(objs, object{"trigger", "thumbnail_link_insert_refcount", `
CREATE TRIGGER thumbnail_link_insert_refcount AFTER INSERT ON thumbnail_linking
BEGIN
	UPDATE thumbnail SET shared_counter = shared_counter + 1 WHERE id_thumbnail = new.thumbnail_id;
END`})
	objs = append(objs, object{"trigger", "thumbnail_link_delete_refcount", `
CREATE TRIGGER thumbnail_link_delete_refcount AFTER DELETE ON thumbnail_linking
BEGIN
	UPDATE thumbnail SET shared_counter = shared_counter - 1 WHERE id_thumbnail = old.thumbnail_id;
END`})
	objs = append(objs, object{"trigger", "thumbnail_cleanup_on_zero_refcount", `
CREATE TRIGGER thumbnail_cleanup_on_zero_refcount AFTER UPDATE OF shared_counter ON thumbnail
WHEN new.shared_counter = 0
BEGIN
	INSERT INTO thumbnail_cleanup_request(mrl, is_owned) VALUES (new.mrl, new.is_owned);
	DELETE FROM thumbnail WHERE id_thumbnail = new.id_thumbnail;
END`})

	// --- Subscription cache size (spec §4.5) ---
	objs = append(objs, object{"trigger", "subscription_cache_insert", `
CREATE TRIGGER subscription_cache_insert AFTER INSERT ON file
WHEN new.type = 6 AND new.media_id IS NOT NULL
BEGIN
	UPDATE subscription SET cached_size = cached_size + new.size
		WHERE id_subscription IN (SELECT subscription_id FROM subscription_media_relation WHERE media_id = new.media_id);
END`})
	objs = append(objs, object{"trigger", "subscription_cache_delete", `
CREATE TRIGGER subscription_cache_delete AFTER DELETE ON file
WHEN old.type = 6 AND old.media_id IS NOT NULL
BEGIN
	UPDATE subscription SET cached_size = cached_size - old.size
		WHERE id_subscription IN (SELECT subscription_id FROM subscription_media_relation WHERE media_id = old.media_id);
END`})
	objs = append(objs, object{"trigger", "subscription_relation_cache_delete", `
CREATE TRIGGER subscription_relation_cache_delete AFTER DELETE ON subscription_media_relation
BEGIN
	UPDATE subscription SET cached_size = cached_size -
		(SELECT IFNULL(SUM(size), 0) FROM file WHERE media_id = old.media_id AND type = 6)
		WHERE id_subscription = old.subscription_id;
END`})

	// --- Folder media counters (spec §8: nb_audio/nb_video count the
	// folder's present media of that type) ---
	objs = append(objs, object{"trigger", "media_folder_counter_insert", `
CREATE TRIGGER media_folder_counter_insert AFTER INSERT ON media
WHEN new.folder_id IS NOT NULL
BEGIN
	UPDATE folder SET
		nb_audio = nb_audio + (CASE WHEN new.type = 1 AND new.is_present != 0 THEN 1 ELSE 0 END),
		nb_video = nb_video + (CASE WHEN new.type = 2 AND new.is_present != 0 THEN 1 ELSE 0 END)
		WHERE id_folder = new.folder_id;
END`})
	objs = append(objs, object{"trigger", "media_folder_counter_delete", `
CREATE TRIGGER media_folder_counter_delete AFTER DELETE ON media
WHEN old.folder_id IS NOT NULL
BEGIN
	UPDATE folder SET
		nb_audio = nb_audio - (CASE WHEN old.type = 1 AND old.is_present != 0 THEN 1 ELSE 0 END),
		nb_video = nb_video - (CASE WHEN old.type = 2 AND old.is_present != 0 THEN 1 ELSE 0 END)
		WHERE id_folder = old.folder_id;
END`})
	objs = append(objs, object{"trigger", "media_folder_counter_update", `
CREATE TRIGGER media_folder_counter_update AFTER UPDATE OF folder_id, type, is_present ON media
BEGIN
	UPDATE folder SET
		nb_audio = nb_audio - (CASE WHEN old.type = 1 AND old.is_present != 0 THEN 1 ELSE 0 END),
		nb_video = nb_video - (CASE WHEN old.type = 2 AND old.is_present != 0 THEN 1 ELSE 0 END)
		WHERE id_folder = old.folder_id;
	UPDATE folder SET
		nb_audio = nb_audio + (CASE WHEN new.type = 1 AND new.is_present != 0 THEN 1 ELSE 0 END),
		nb_video = nb_video + (CASE WHEN new.type = 2 AND new.is_present != 0 THEN 1 ELSE 0 END)
		WHERE id_folder = new.folder_id;
END`})

	// --- Device presence propagation (spec §3: media.is_present
	// mirrors the owning device's presence) ---
	objs = append(objs, object{"trigger", "device_presence_update", `
CREATE TRIGGER device_presence_update AFTER UPDATE OF is_present ON device
WHEN old.is_present != new.is_present
BEGIN
	UPDATE media SET is_present = new.is_present WHERE device_id = new.id_device;
END`})

	// --- Main-file removal cascades to the owning media (spec §8
	// scenario 1) ---
	objs = append(objs, object{"trigger", "file_main_delete_media", `
CREATE TRIGGER file_main_delete_media AFTER DELETE ON file
WHEN old.type = 0 AND old.media_id IS NOT NULL
BEGIN
	DELETE FROM media WHERE id_media = old.media_id;
END`})

	// --- Artist album counters ---
	objs = append(objs, object{"trigger", "album_insert_artist_counter", `
CREATE TRIGGER album_insert_artist_counter AFTER INSERT ON album
WHEN new.artist_id IS NOT NULL
BEGIN
	UPDATE artist SET nb_albums = nb_albums + 1 WHERE id_artist = new.artist_id;
END`})
	objs = append(objs, object{"trigger", "album_delete_artist_counter", `
CREATE TRIGGER album_delete_artist_counter AFTER DELETE ON album
WHEN old.artist_id IS NOT NULL
BEGIN
	UPDATE artist SET nb_albums = nb_albums - 1 WHERE id_artist = old.artist_id;
END`})

	// --- Media playlist membership counter ---
	objs = append(objs, object{"trigger", "media_playlist_counter_insert", `
CREATE TRIGGER media_playlist_counter_insert AFTER INSERT ON playlist_media_relation
WHEN new.media_id IS NOT NULL
BEGIN
	UPDATE media SET nb_playlists = nb_playlists + 1 WHERE id_media = new.media_id;
END`})
	objs = append(objs, object{"trigger", "media_playlist_counter_delete", `
CREATE TRIGGER media_playlist_counter_delete AFTER DELETE ON playlist_media_relation
WHEN old.media_id IS NOT NULL
BEGIN
	UPDATE media SET nb_playlists = nb_playlists - 1 WHERE id_media = old.media_id;
END`})

	// --- Media group counter maintenance: group membership changes via
	// UPDATE OF group_id, media deletion, and play_count transitions.
	// Case expressions check old./new. values to avoid double counting
	// across transitions (spec §4.5). ---
	objs = append(objs, object{"trigger", "media_group_membership_update", `
CREATE TRIGGER media_group_membership_update AFTER UPDATE OF group_id ON media
WHEN IFNULL(old.group_id, 0) != IFNULL(new.group_id, 0)
BEGIN
	UPDATE media_group SET
		nb_video = nb_video - (CASE WHEN old.type = 2 THEN 1 ELSE 0 END),
		nb_audio = nb_audio - (CASE WHEN old.type = 1 THEN 1 ELSE 0 END),
		nb_unknown = nb_unknown - (CASE WHEN old.type = 0 THEN 1 ELSE 0 END),
		nb_seen = nb_seen - (CASE WHEN old.play_count > 0 THEN 1 ELSE 0 END),
		nb_external = nb_external - (CASE WHEN old.import_type != 0 THEN 1 ELSE 0 END),
		nb_present_video = nb_present_video - (CASE WHEN old.type = 2 AND old.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_audio = nb_present_audio - (CASE WHEN old.type = 1 AND old.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_unknown = nb_present_unknown - (CASE WHEN old.type = 0 AND old.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_seen = nb_present_seen - (CASE WHEN old.play_count > 0 AND old.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_external = nb_present_external - (CASE WHEN old.import_type != 0 AND old.is_present != 0 THEN 1 ELSE 0 END),
		duration = duration - (CASE WHEN old.duration > 0 THEN old.duration ELSE 0 END),
		last_modification_date = strftime('%s', 'now')
		WHERE id_group = old.group_id;
	UPDATE media_group SET
		nb_video = nb_video + (CASE WHEN new.type = 2 THEN 1 ELSE 0 END),
		nb_audio = nb_audio + (CASE WHEN new.type = 1 THEN 1 ELSE 0 END),
		nb_unknown = nb_unknown + (CASE WHEN new.type = 0 THEN 1 ELSE 0 END),
		nb_seen = nb_seen + (CASE WHEN new.play_count > 0 THEN 1 ELSE 0 END),
		nb_external = nb_external + (CASE WHEN new.import_type != 0 THEN 1 ELSE 0 END),
		nb_present_video = nb_present_video + (CASE WHEN new.type = 2 AND new.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_audio = nb_present_audio + (CASE WHEN new.type = 1 AND new.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_unknown = nb_present_unknown + (CASE WHEN new.type = 0 AND new.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_seen = nb_present_seen + (CASE WHEN new.play_count > 0 AND new.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_external = nb_present_external + (CASE WHEN new.import_type != 0 AND new.is_present != 0 THEN 1 ELSE 0 END),
		duration = duration + (CASE WHEN new.duration > 0 THEN new.duration ELSE 0 END),
		last_modification_date = strftime('%s', 'now')
		WHERE id_group = new.group_id;
END`})
	objs = append(objs, object{"trigger", "media_group_media_delete", `
CREATE TRIGGER media_group_media_delete AFTER DELETE ON media
WHEN old.group_id IS NOT NULL
BEGIN
	UPDATE media_group SET
		nb_video = nb_video - (CASE WHEN old.type = 2 THEN 1 ELSE 0 END),
		nb_audio = nb_audio - (CASE WHEN old.type = 1 THEN 1 ELSE 0 END),
		nb_unknown = nb_unknown - (CASE WHEN old.type = 0 THEN 1 ELSE 0 END),
		nb_seen = nb_seen - (CASE WHEN old.play_count > 0 THEN 1 ELSE 0 END),
		nb_external = nb_external - (CASE WHEN old.import_type != 0 THEN 1 ELSE 0 END),
		nb_present_video = nb_present_video - (CASE WHEN old.type = 2 AND old.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_audio = nb_present_audio - (CASE WHEN old.type = 1 AND old.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_unknown = nb_present_unknown - (CASE WHEN old.type = 0 AND old.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_seen = nb_present_seen - (CASE WHEN old.play_count > 0 AND old.is_present != 0 THEN 1 ELSE 0 END),
		nb_present_external = nb_present_external - (CASE WHEN old.import_type != 0 AND old.is_present != 0 THEN 1 ELSE 0 END),
		duration = duration - (CASE WHEN old.duration > 0 THEN old.duration ELSE 0 END),
		last_modification_date = strftime('%s', 'now')
		WHERE id_group = old.group_id;
END`})
	objs = append(objs, object{"trigger", "media_group_seen_counter", `
CREATE TRIGGER media_group_seen_counter AFTER UPDATE OF play_count ON media
WHEN new.group_id IS NOT NULL AND (old.play_count > 0) != (new.play_count > 0)
BEGIN
	UPDATE media_group SET
		nb_seen = nb_seen + (CASE WHEN new.play_count > 0 THEN 1 ELSE -1 END),
		nb_present_seen = nb_present_seen + (CASE WHEN new.is_present != 0 THEN (CASE WHEN new.play_count > 0 THEN 1 ELSE -1 END) ELSE 0 END)
		WHERE id_group = new.group_id;
END`})

	// --- Forced-singleton rename tracks its media's title (spec §4.6) ---
	objs = append(objs, object{"trigger", "media_group_rename_forced_singleton", `
CREATE TRIGGER media_group_rename_forced_singleton AFTER UPDATE OF title ON media
WHEN new.group_id IS NOT NULL
BEGIN
	UPDATE media_group SET name = new.title
		WHERE id_group = new.group_id AND forced_singleton != 0 AND user_interacted = 0;
END`})

	return objs
}

// ftsMirrorTriggers wires insert/update/delete on (table, pk, textCol)
// into its FTS mirror so the mirror's rowid tracks the source's
// primary key, per spec §4.5/§8 ("rowids in Tfts equal the primary
// keys of T with non-null searchable text").
func ftsMirrorTriggers(table, ftsTable, pk, textCol string) []object {
	insertName := table + "_fts_insert"
	updateName := table + "_fts_update"
	deleteName := table + "_fts_delete"
	return []object{
		{"trigger", insertName, fmt.Sprintf(`
CREATE TRIGGER %s AFTER INSERT ON %s
WHEN new.%s IS NOT NULL
BEGIN
	INSERT INTO %s(rowid, %s) VALUES (new.%s, new.%s);
END`, insertName, table, textCol, ftsTable, textCol, pk, textCol)},
		{"trigger", updateName, fmt.Sprintf(`
CREATE TRIGGER %s AFTER UPDATE OF %s ON %s
BEGIN
	INSERT OR REPLACE INTO %s(rowid, %s) VALUES (new.%s, new.%s);
END`, updateName, textCol, table, ftsTable, textCol, pk, textCol)},
		{"trigger", deleteName, fmt.Sprintf(`
CREATE TRIGGER %s AFTER DELETE ON %s
BEGIN
	DELETE FROM %s WHERE rowid = old.%s;
END`, deleteName, table, ftsTable, pk)},
	}
}
