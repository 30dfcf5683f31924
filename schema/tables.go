package schema

import "fmt"

// coreTables returns the primary entity tables of spec §3. schemaVersion
// selects between the current (>=34) denormalized Media layout (with
// artist_id/genre_id/track_number/album_id/disc_number columns living
// directly on media) and the legacy (<34) layout where that
// information lived only on album_track, per spec §4.5 ("earlier
// models reference the AlbumTrack table for the same invariant that
// later models enforce directly against Media").
func coreTables(schemaVersion int) []object {
	denormalized := schemaVersion >= 34

	mediaExtraCols := ""
	if denormalized {
		mediaExtraCols = `
	artist_id INTEGER,
	genre_id INTEGER,
	track_number INTEGER,
	album_id INTEGER,
	disc_number INTEGER,`
	}

	objs := []object{
		{"table", "device", `CREATE TABLE device(
	id_device INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT UNIQUE NOT NULL,
	scheme TEXT NOT NULL,
	is_removable BOOLEAN NOT NULL,
	is_network BOOLEAN NOT NULL,
	is_present BOOLEAN NOT NULL DEFAULT 1,
	last_seen UNSIGNED INTEGER NOT NULL,
	cached_mountpoint TEXT
)`},
		{"table", "folder", `CREATE TABLE folder(
	id_folder INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT,
	name TEXT COLLATE NOCASE,
	parent_id INTEGER,
	is_banned BOOLEAN NOT NULL DEFAULT 0,
	device_id UNSIGNED INTEGER NOT NULL,
	is_removable BOOLEAN NOT NULL,
	nb_audio INTEGER NOT NULL DEFAULT 0,
	nb_video INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY(parent_id) REFERENCES folder(id_folder) ON DELETE CASCADE,
	FOREIGN KEY(device_id) REFERENCES device(id_device) ON DELETE CASCADE
)`},
		{"table", "artist", `CREATE TABLE artist(
	id_artist INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT COLLATE NOCASE UNIQUE,
	shortbio TEXT,
	nb_albums UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_tracks UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_present_tracks UNSIGNED INTEGER NOT NULL DEFAULT 0,
	mb_id TEXT,
	is_favorite BOOLEAN NOT NULL DEFAULT 0
)`},
		{"table", "genre", `CREATE TABLE genre(
	id_genre INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT COLLATE NOCASE UNIQUE NOT NULL,
	nb_tracks UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_present_tracks UNSIGNED INTEGER NOT NULL DEFAULT 0
)`},
		{"table", "album", `CREATE TABLE album(
	id_album INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT COLLATE NOCASE,
	artist_id UNSIGNED INTEGER,
	release_year UNSIGNED INTEGER,
	short_summary TEXT,
	nb_tracks UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_present_tracks UNSIGNED INTEGER NOT NULL DEFAULT 0,
	duration UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_discs UNSIGNED INTEGER NOT NULL DEFAULT 1,
	is_favorite BOOLEAN NOT NULL DEFAULT 0,
	FOREIGN KEY(artist_id) REFERENCES artist(id_artist) ON DELETE SET NULL
)`},
		{"table", "media", `CREATE TABLE media(
	id_media INTEGER PRIMARY KEY AUTOINCREMENT,
	type INTEGER NOT NULL,
	subtype INTEGER NOT NULL DEFAULT 0,
	duration INTEGER NOT NULL DEFAULT -1,
	last_position REAL NOT NULL DEFAULT -1,
	last_time INTEGER NOT NULL DEFAULT -1,
	play_count UNSIGNED INTEGER NOT NULL DEFAULT 0,
	last_played_date UNSIGNED INTEGER,
	insertion_date UNSIGNED INTEGER NOT NULL,
	release_date UNSIGNED INTEGER,
	title TEXT COLLATE NOCASE NOT NULL,
	filename TEXT COLLATE NOCASE NOT NULL,
	is_favorite BOOLEAN NOT NULL DEFAULT 0,
	is_present BOOLEAN NOT NULL DEFAULT 1,
	device_id UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_playlists UNSIGNED INTEGER NOT NULL DEFAULT 0,
	folder_id UNSIGNED INTEGER,
	import_type UNSIGNED INTEGER NOT NULL DEFAULT 0,
	group_id UNSIGNED INTEGER,
	forced_title BOOLEAN NOT NULL DEFAULT 0,` + mediaExtraCols + `
	FOREIGN KEY(folder_id) REFERENCES folder(id_folder) ON DELETE CASCADE,
	FOREIGN KEY(group_id) REFERENCES media_group(id_group) ON DELETE SET NULL
)`},
		{"table", "file", `CREATE TABLE file(
	id_file INTEGER PRIMARY KEY AUTOINCREMENT,
	media_id UNSIGNED INTEGER,
	playlist_id UNSIGNED INTEGER,
	type UNSIGNED INTEGER NOT NULL,
	mrl TEXT,
	last_modification_date UNSIGNED INTEGER,
	size UNSIGNED INTEGER NOT NULL DEFAULT 0,
	folder_id UNSIGNED INTEGER,
	is_removable BOOLEAN NOT NULL DEFAULT 0,
	is_external BOOLEAN NOT NULL DEFAULT 0,
	is_network BOOLEAN NOT NULL DEFAULT 0,
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE,
	FOREIGN KEY(playlist_id) REFERENCES playlist(id_playlist) ON DELETE CASCADE,
	FOREIGN KEY(folder_id) REFERENCES folder(id_folder) ON DELETE CASCADE,
	UNIQUE(mrl, folder_id)
)`},
	}

	if !denormalized {
		objs = append(objs, object{"table", "album_track", `CREATE TABLE album_track(
	id_track INTEGER PRIMARY KEY AUTOINCREMENT,
	media_id UNSIGNED INTEGER UNIQUE NOT NULL,
	duration INTEGER NOT NULL,
	artist_id UNSIGNED INTEGER,
	genre_id UNSIGNED INTEGER,
	track_number UNSIGNED INTEGER,
	album_id UNSIGNED INTEGER NOT NULL,
	disc_number UNSIGNED INTEGER,
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE,
	FOREIGN KEY(artist_id) REFERENCES artist(id_artist) ON DELETE SET NULL,
	FOREIGN KEY(genre_id) REFERENCES genre(id_genre) ON DELETE SET NULL,
	FOREIGN KEY(album_id) REFERENCES album(id_album) ON DELETE CASCADE
)`})
	}

	objs = append(objs,
		object{"table", "show", `CREATE TABLE show(
	id_show INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT COLLATE NOCASE NOT NULL,
	release_date UNSIGNED INTEGER,
	short_summary TEXT,
	artwork_mrl TEXT,
	tvdb_id TEXT
)`},
		object{"table", "show_episode", `CREATE TABLE show_episode(
	id_episode INTEGER PRIMARY KEY AUTOINCREMENT,
	media_id UNSIGNED INTEGER UNIQUE NOT NULL,
	episode_number UNSIGNED INTEGER,
	season_number UNSIGNED INTEGER,
	episode_title TEXT,
	episode_summary TEXT,
	tvdb_id TEXT,
	show_id UNSIGNED INTEGER NOT NULL,
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE,
	FOREIGN KEY(show_id) REFERENCES show(id_show) ON DELETE CASCADE
)`},
		object{"table", "movie", `CREATE TABLE movie(
	id_movie INTEGER PRIMARY KEY AUTOINCREMENT,
	media_id UNSIGNED INTEGER UNIQUE NOT NULL,
	summary TEXT,
	imdb_id TEXT,
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE
)`},
		object{"table", "playlist", `CREATE TABLE playlist(
	id_playlist INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT COLLATE NOCASE NOT NULL,
	file_id UNSIGNED INTEGER,
	creation_date UNSIGNED INTEGER NOT NULL,
	artwork_mrl TEXT,
	FOREIGN KEY(file_id) REFERENCES file(id_file) ON DELETE SET NULL
)`},
		object{"table", "playlist_media_relation", `CREATE TABLE playlist_media_relation(
	playlist_id UNSIGNED INTEGER NOT NULL,
	media_id UNSIGNED INTEGER,
	position UNSIGNED INTEGER NOT NULL,
	mrl TEXT NOT NULL,
	FOREIGN KEY(playlist_id) REFERENCES playlist(id_playlist) ON DELETE CASCADE,
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE SET NULL
)`},
		object{"table", "label", `CREATE TABLE label(
	id_label INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT COLLATE NOCASE UNIQUE NOT NULL
)`},
		object{"table", "label_file_relation", `CREATE TABLE label_file_relation(
	label_id UNSIGNED INTEGER NOT NULL,
	media_id UNSIGNED INTEGER NOT NULL,
	PRIMARY KEY(label_id, media_id),
	FOREIGN KEY(label_id) REFERENCES label(id_label) ON DELETE CASCADE,
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE
)`},
		object{"table", "bookmark", `CREATE TABLE bookmark(
	id_bookmark INTEGER PRIMARY KEY AUTOINCREMENT,
	time INTEGER NOT NULL,
	name TEXT,
	description TEXT,
	media_id UNSIGNED INTEGER NOT NULL,
	creation_date UNSIGNED INTEGER NOT NULL,
	type UNSIGNED INTEGER NOT NULL DEFAULT 0,
	UNIQUE(media_id, time),
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE
)`},
		object{"table", "chapter", `CREATE TABLE chapter(
	id_chapter INTEGER PRIMARY KEY AUTOINCREMENT,
	offset INTEGER NOT NULL,
	duration INTEGER NOT NULL,
	name TEXT,
	media_id UNSIGNED INTEGER NOT NULL,
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE
)`},
		object{"table", "thumbnail", `CREATE TABLE thumbnail(
	id_thumbnail INTEGER PRIMARY KEY AUTOINCREMENT,
	mrl TEXT NOT NULL,
	origin UNSIGNED INTEGER NOT NULL,
	size_type UNSIGNED INTEGER NOT NULL,
	is_owned BOOLEAN NOT NULL DEFAULT 1,
	shared_counter UNSIGNED INTEGER NOT NULL DEFAULT 0,
	status UNSIGNED INTEGER NOT NULL DEFAULT 0
)`},
		object{"table", "thumbnail_linking", `CREATE TABLE thumbnail_linking(
	entity_type UNSIGNED INTEGER NOT NULL,
	entity_id UNSIGNED INTEGER NOT NULL,
	size_type UNSIGNED INTEGER NOT NULL,
	thumbnail_id UNSIGNED INTEGER NOT NULL,
	PRIMARY KEY(entity_type, entity_id, size_type),
	FOREIGN KEY(thumbnail_id) REFERENCES thumbnail(id_thumbnail) ON DELETE CASCADE
)`},
		object{"table", "thumbnail_cleanup_request", `CREATE TABLE thumbnail_cleanup_request(
	id_request INTEGER PRIMARY KEY AUTOINCREMENT,
	mrl TEXT NOT NULL,
	is_owned BOOLEAN NOT NULL
)`},
		object{"table", "metadata", `CREATE TABLE metadata(
	media_id UNSIGNED INTEGER NOT NULL,
	type UNSIGNED INTEGER NOT NULL,
	value TEXT,
	PRIMARY KEY(media_id, type),
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE
)`},
		object{"table", "audio_track", `CREATE TABLE audio_track(
	id_track INTEGER PRIMARY KEY AUTOINCREMENT,
	codec TEXT,
	bitrate UNSIGNED INTEGER,
	sample_rate UNSIGNED INTEGER,
	nb_channels UNSIGNED INTEGER,
	language TEXT,
	media_id UNSIGNED INTEGER NOT NULL,
	attached_file_id UNSIGNED INTEGER,
	UNIQUE(media_id, attached_file_id),
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE
)`},
		object{"table", "video_track", `CREATE TABLE video_track(
	id_track INTEGER PRIMARY KEY AUTOINCREMENT,
	codec TEXT,
	width UNSIGNED INTEGER,
	height UNSIGNED INTEGER,
	fps_num UNSIGNED INTEGER,
	fps_den UNSIGNED INTEGER,
	media_id UNSIGNED INTEGER NOT NULL,
	attached_file_id UNSIGNED INTEGER,
	UNIQUE(media_id, attached_file_id),
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE
)`},
		object{"table", "subtitle_track", `CREATE TABLE subtitle_track(
	id_track INTEGER PRIMARY KEY AUTOINCREMENT,
	codec TEXT,
	language TEXT,
	encoding TEXT,
	media_id UNSIGNED INTEGER NOT NULL,
	attached_file_id UNSIGNED INTEGER,
	UNIQUE(media_id, attached_file_id),
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE
)`},
		object{"table", "subscription", `CREATE TABLE subscription(
	id_subscription INTEGER PRIMARY KEY AUTOINCREMENT,
	service_id UNSIGNED INTEGER NOT NULL,
	name TEXT NOT NULL,
	parent_id UNSIGNED INTEGER,
	cached_size UNSIGNED INTEGER NOT NULL DEFAULT 0,
	max_cached_media INTEGER NOT NULL DEFAULT -1,
	max_cached_size INTEGER NOT NULL DEFAULT -1,
	FOREIGN KEY(parent_id) REFERENCES subscription(id_subscription) ON DELETE CASCADE
)`},
		object{"table", "subscription_media_relation", `CREATE TABLE subscription_media_relation(
	subscription_id UNSIGNED INTEGER NOT NULL,
	media_id UNSIGNED INTEGER NOT NULL,
	auto_cache_handled BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY(subscription_id, media_id),
	FOREIGN KEY(subscription_id) REFERENCES subscription(id_subscription) ON DELETE CASCADE,
	FOREIGN KEY(media_id) REFERENCES media(id_media) ON DELETE CASCADE
)`},
		object{"table", "settings", `CREATE TABLE settings(
	db_model_version UNSIGNED INTEGER NOT NULL,
	max_task_attempts UNSIGNED INTEGER NOT NULL DEFAULT 3,
	max_link_task_attempts UNSIGNED INTEGER NOT NULL DEFAULT 3,
	nb_cached_media_per_subscription UNSIGNED INTEGER NOT NULL DEFAULT 10,
	max_subscription_cache_size UNSIGNED INTEGER NOT NULL DEFAULT 0,
	max_cache_size UNSIGNED INTEGER NOT NULL DEFAULT 0
)`},
	)
	return objs
}

// derivedTables returns the media_group table (VideoGroup is a runtime
// view composed in the query layer via VIDEO_GROUP_AGGREGATE, not a
// persisted object, per spec §3).
func derivedTables(schemaVersion int) []object {
	return []object{
		{"table", "media_group", `CREATE TABLE media_group(
	id_group INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT COLLATE NOCASE NOT NULL,
	nb_video UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_audio UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_unknown UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_seen UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_external UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_present_video UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_present_audio UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_present_unknown UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_present_seen UNSIGNED INTEGER NOT NULL DEFAULT 0,
	nb_present_external UNSIGNED INTEGER NOT NULL DEFAULT 0,
	duration UNSIGNED INTEGER NOT NULL DEFAULT 0,
	creation_date UNSIGNED INTEGER NOT NULL,
	last_modification_date UNSIGNED INTEGER NOT NULL,
	user_interacted BOOLEAN NOT NULL DEFAULT 0,
	forced_singleton BOOLEAN NOT NULL DEFAULT 0
)`},
	}
}

// ftsTables returns the FTS3 mirror for every searchable entity, per
// spec §4.5's "FTS mirror maintenance" family.
func ftsTables(schemaVersion int) []object {
	mk := func(name, cols string) object {
		return object{"table", name, fmt.Sprintf("CREATE VIRTUAL TABLE %s USING FTS3(%s, tokenize=unicode61)", name, cols)}
	}
	return []object{
		mk("media_fts", "title"),
		mk("album_fts", "title"),
		mk("artist_fts", "name"),
		mk("genre_fts", "name"),
		mk("show_fts", "title"),
		mk("playlist_fts", "name"),
		mk("label_fts", "name"),
	}
}
