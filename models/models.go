// Package models holds the entity structs of spec §3: the catalog's
// persisted media, its derived groupings (album, artist, genre, show,
// playlist, media/video groups), and its supporting rows (folders,
// devices, files, labels, bookmarks, chapters, thumbnails, metadata,
// tracks, subscriptions, settings). Grounded on the teacher's
// models/media.go + internal/models/file.go split: one flat struct per
// row, db/json tags, nullable columns as pointers, never a driver-level
// sentinel value.
package models

import "time"

// MediaType enumerates the coarse kind of a Media row.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeAudio
	MediaTypeVideo
)

func (t MediaType) String() string {
	switch t {
	case MediaTypeAudio:
		return "Audio"
	case MediaTypeVideo:
		return "Video"
	default:
		return "Unknown"
	}
}

// MediaSubType narrows a Media row to the derived entity it backs.
type MediaSubType int

const (
	MediaSubTypeUnknown MediaSubType = iota
	MediaSubTypeAlbumTrack
	MediaSubTypeMovie
	MediaSubTypeShowEpisode
)

// ImportType distinguishes how a Media entered the catalog.
type ImportType int

const (
	ImportTypeInternal ImportType = iota
	ImportTypeExternal
	ImportTypeStream
)

// ProgressResult is returned by Media.SetLastPosition (spec §4.6).
type ProgressResult int

const (
	ProgressAsIs ProgressResult = iota
	ProgressBegin
	ProgressEnd
	ProgressError
)

// Sentinel durations/positions per spec §3.
const (
	DurationUnknown int64 = -1
	LastTimeUnknown int64 = -1
	PositionUnset   float64 = -1
)

// ReleaseYearUnknown is the all-ones sentinel for Album.ReleaseYear.
const ReleaseYearUnknown int32 = -1

// Media is the central entity of spec §3.
type Media struct {
	ID              int64      `db:"id" json:"id"`
	Type            MediaType  `db:"type" json:"type"`
	SubType         MediaSubType `db:"subtype" json:"subtype"`
	Duration        int64      `db:"duration" json:"duration"`
	LastPosition    float64    `db:"last_position" json:"last_position"`
	LastTime        int64      `db:"last_time" json:"last_time"`
	PlayCount       int64      `db:"play_count" json:"play_count"`
	LastPlayedDate  *time.Time `db:"last_played_date" json:"last_played_date,omitempty"`
	InsertionDate   time.Time  `db:"insertion_date" json:"insertion_date"`
	ReleaseDate     *time.Time `db:"release_date" json:"release_date,omitempty"`
	Title           string     `db:"title" json:"title"`
	Filename        string     `db:"filename" json:"filename"`
	IsFavorite      bool       `db:"is_favorite" json:"is_favorite"`
	IsPresent       bool       `db:"is_present" json:"is_present"`
	DeviceID        int64      `db:"device_id" json:"device_id"`
	NbPlaylists     int64      `db:"nb_playlists" json:"nb_playlists"`
	FolderID        *int64     `db:"folder_id" json:"folder_id,omitempty"`
	ImportType      ImportType `db:"import_type" json:"import_type"`
	GroupID         *int64     `db:"group_id" json:"group_id,omitempty"`
	ForcedTitle     bool       `db:"forced_title" json:"forced_title"`
	ArtistID        *int64     `db:"artist_id" json:"artist_id,omitempty"`
	GenreID         *int64     `db:"genre_id" json:"genre_id,omitempty"`
	TrackNumber     *int32     `db:"track_number" json:"track_number,omitempty"`
	AlbumID         *int64     `db:"album_id" json:"album_id,omitempty"`
	DiscNumber      *int32     `db:"disc_number" json:"disc_number,omitempty"`
}

// FileType enumerates the role a File row plays for its owning Media
// or Playlist.
type FileType int

const (
	FileTypeMain FileType = iota
	FileTypePart
	FileTypeSoundtrack
	FileTypeSubtitles
	FileTypePlaylist
	FileTypeDisc
	FileTypeCache
)

// File is a filesystem location backing a Media or Playlist.
type File struct {
	ID                 int64     `db:"id" json:"id"`
	MediaID            *int64    `db:"media_id" json:"media_id,omitempty"`
	PlaylistID         *int64    `db:"playlist_id" json:"playlist_id,omitempty"`
	Type               FileType  `db:"type" json:"type"`
	MRL                string    `db:"mrl" json:"mrl"`
	LastModificationDate int64   `db:"last_modification_date" json:"last_modification_date"`
	Size               int64     `db:"size" json:"size"`
	FolderID           *int64    `db:"folder_id" json:"folder_id,omitempty"`
	IsRemovable        bool      `db:"is_removable" json:"is_removable"`
	IsExternal         bool      `db:"is_external" json:"is_external"`
	IsNetwork          bool      `db:"is_network" json:"is_network"`
}

// Folder is a directory, real or virtual-root, in the discovery tree.
type Folder struct {
	ID          int64  `db:"id" json:"id"`
	Path        string `db:"path" json:"path"`
	Name        string `db:"name" json:"name"`
	ParentID    *int64 `db:"parent_id" json:"parent_id,omitempty"`
	IsBanned    bool   `db:"is_banned" json:"is_banned"`
	DeviceID    int64  `db:"device_id" json:"device_id"`
	IsRemovable bool   `db:"is_removable" json:"is_removable"`
	NbAudio     int64  `db:"nb_audio" json:"nb_audio"`
	NbVideo     int64  `db:"nb_video" json:"nb_video"`
}

// FolderRemovalBehavior selects how Folder.Remove treats contained
// media (spec §4.6).
type FolderRemovalBehavior int

const (
	FolderRemovedFromDisk FolderRemovalBehavior = iota
	FolderBanned
)

// Device is a mount point the catalog discovers media on.
type Device struct {
	ID              int64      `db:"id" json:"id"`
	UUID            string     `db:"uuid" json:"uuid"`
	Scheme          string     `db:"scheme" json:"scheme"`
	IsRemovable     bool       `db:"is_removable" json:"is_removable"`
	IsNetwork       bool       `db:"is_network" json:"is_network"`
	IsPresent       bool       `db:"is_present" json:"is_present"`
	LastSeen        time.Time  `db:"last_seen" json:"last_seen"`
	CachedMountpoint string    `db:"cached_mountpoint" json:"cached_mountpoint"`
}

// Album groups AlbumTrack media under a shared title/artist.
type Album struct {
	ID               int64   `db:"id" json:"id"`
	Title            *string `db:"title" json:"title,omitempty"`
	ArtistID         *int64  `db:"artist_id" json:"artist_id,omitempty"`
	ReleaseYear      int32   `db:"release_year" json:"release_year"`
	ShortSummary     *string `db:"short_summary" json:"short_summary,omitempty"`
	NbTracks         int64   `db:"nb_tracks" json:"nb_tracks"`
	NbPresentTracks  int64   `db:"nb_present_tracks" json:"nb_present_tracks"`
	Duration         int64   `db:"duration" json:"duration"`
	NbDiscs          int32   `db:"nb_discs" json:"nb_discs"`
	IsFavorite       bool    `db:"is_favorite" json:"is_favorite"`
}

// Sentinel artist ids, inserted at table-creation time and never
// deleted (spec §3, §4.6).
const (
	UnknownArtistID  int64 = 1
	VariousArtistsID int64 = 2
)

// Artist is a performer/composer credit.
type Artist struct {
	ID              int64   `db:"id" json:"id"`
	Name            string  `db:"name" json:"name"`
	ShortBio        *string `db:"shortbio" json:"shortbio,omitempty"`
	NbAlbums        int64   `db:"nb_albums" json:"nb_albums"`
	NbTracks        int64   `db:"nb_tracks" json:"nb_tracks"`
	NbPresentTracks int64   `db:"nb_present_tracks" json:"nb_present_tracks"`
	MBID            *string `db:"mb_id" json:"mb_id,omitempty"`
	IsFavorite      bool    `db:"is_favorite" json:"is_favorite"`
}

// Genre is a case-insensitive-unique label applied to AlbumTrack media.
type Genre struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	NbTracks        int64  `db:"nb_tracks" json:"nb_tracks"`
	NbPresentTracks int64  `db:"nb_present_tracks" json:"nb_present_tracks"`
}

// AlbumTrack is the deprecated denormalized-into-Media track
// descriptor, retained for legacy model versions (spec §3).
type AlbumTrack struct {
	ID          int64  `db:"id" json:"id"`
	MediaID     int64  `db:"media_id" json:"media_id"`
	Duration    int64  `db:"duration" json:"duration"`
	ArtistID    *int64 `db:"artist_id" json:"artist_id,omitempty"`
	GenreID     *int64 `db:"genre_id" json:"genre_id,omitempty"`
	TrackNumber int32  `db:"track_number" json:"track_number"`
	AlbumID     int64  `db:"album_id" json:"album_id"`
	DiscNumber  int32  `db:"disc_number" json:"disc_number"`
}

// Show is a TV series.
type Show struct {
	ID           int64      `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	ReleaseDate  *time.Time `db:"release_date" json:"release_date,omitempty"`
	ShortSummary *string    `db:"short_summary" json:"short_summary,omitempty"`
	ArtworkMRL   *string    `db:"artwork_mrl" json:"artwork_mrl,omitempty"`
	TVDBID       *string    `db:"tvdb_id" json:"tvdb_id,omitempty"`
}

// ShowEpisode is a single episode of a Show, backed by a Media row.
type ShowEpisode struct {
	ID             int64   `db:"id" json:"id"`
	MediaID        int64   `db:"media_id" json:"media_id"`
	EpisodeNumber  int32   `db:"episode_number" json:"episode_number"`
	SeasonNumber   int32   `db:"season_number" json:"season_number"`
	EpisodeTitle   *string `db:"episode_title" json:"episode_title,omitempty"`
	EpisodeSummary *string `db:"episode_summary" json:"episode_summary,omitempty"`
	TVDBID         *string `db:"tvdb_id" json:"tvdb_id,omitempty"`
	ShowID         int64   `db:"show_id" json:"show_id"`
}

// Movie is a feature-length Media.
type Movie struct {
	ID      int64   `db:"id" json:"id"`
	MediaID int64   `db:"media_id" json:"media_id"`
	Summary *string `db:"summary" json:"summary,omitempty"`
	IMDBID  *string `db:"imdb_id" json:"imdb_id,omitempty"`
}

// Playlist is a user-ordered collection of media.
type Playlist struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	FileID       *int64    `db:"file_id" json:"file_id,omitempty"`
	CreationDate time.Time `db:"creation_date" json:"creation_date"`
	ArtworkMRL   *string   `db:"artwork_mrl" json:"artwork_mrl,omitempty"`
}

// PlaylistMediaRelation is a membership row with an explicit 0-based
// position, plus the originating mrl for Playlist.CurateNullMediaID
// re-linking (spec §4.6).
type PlaylistMediaRelation struct {
	PlaylistID int64  `db:"playlist_id" json:"playlist_id"`
	MediaID    *int64 `db:"media_id" json:"media_id,omitempty"`
	Position   int64  `db:"position" json:"position"`
	MRL        string `db:"mrl" json:"mrl"`
}

// MediaGroup clusters media under a user- or auto-assigned name (spec
// §3, §4.6).
type MediaGroup struct {
	ID                   int64     `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	NbVideo              int64     `db:"nb_video" json:"nb_video"`
	NbAudio              int64     `db:"nb_audio" json:"nb_audio"`
	NbUnknown            int64     `db:"nb_unknown" json:"nb_unknown"`
	NbSeen               int64     `db:"nb_seen" json:"nb_seen"`
	NbExternal           int64     `db:"nb_external" json:"nb_external"`
	NbPresentVideo       int64     `db:"nb_present_video" json:"nb_present_video"`
	NbPresentAudio       int64     `db:"nb_present_audio" json:"nb_present_audio"`
	NbPresentUnknown     int64     `db:"nb_present_unknown" json:"nb_present_unknown"`
	NbPresentSeen        int64     `db:"nb_present_seen" json:"nb_present_seen"`
	NbPresentExternal    int64     `db:"nb_present_external" json:"nb_present_external"`
	Duration             int64     `db:"duration" json:"duration"`
	CreationDate         time.Time `db:"creation_date" json:"creation_date"`
	LastModificationDate time.Time `db:"last_modification_date" json:"last_modification_date"`
	UserInteracted       bool      `db:"user_interacted" json:"user_interacted"`
	ForcedSingleton      bool      `db:"forced_singleton" json:"forced_singleton"`
}

// VideoGroup is the derived (view, not table) grouping over present
// Video media by case-insensitive leading prefix (spec §3).
type VideoGroup struct {
	Prefix  string `db:"prefix" json:"prefix"`
	NbMedia int64  `db:"nb_media" json:"nb_media"`
}

// Label is a freeform user tag, M:N with Media.
type Label struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// BookmarkType distinguishes bookmark kinds; only Simple is defined by
// the current model.
type BookmarkType int

const (
	BookmarkTypeSimple BookmarkType = iota
)

// Bookmark is a named timestamp within a Media.
type Bookmark struct {
	ID           int64        `db:"id" json:"id"`
	Time         int64        `db:"time" json:"time"`
	Name         string       `db:"name" json:"name"`
	Description  *string      `db:"description" json:"description,omitempty"`
	MediaID      int64        `db:"media_id" json:"media_id"`
	CreationDate time.Time    `db:"creation_date" json:"creation_date"`
	Type         BookmarkType `db:"type" json:"type"`
}

// Chapter is a named offset range within a Media.
type Chapter struct {
	ID       int64  `db:"id" json:"id"`
	Offset   int64  `db:"offset" json:"offset"`
	Duration int64  `db:"duration" json:"duration"`
	Name     string `db:"name" json:"name"`
	MediaID  int64  `db:"media_id" json:"media_id"`
}

// ThumbnailOrigin records who produced a Thumbnail row.
type ThumbnailOrigin int

const (
	ThumbnailOriginUserProvided ThumbnailOrigin = iota
	ThumbnailOriginMedia
	ThumbnailOriginCoverFile
)

// ThumbnailSizeType selects which rendition a linking row targets.
type ThumbnailSizeType int

const (
	ThumbnailSizeThumbnail ThumbnailSizeType = iota
	ThumbnailSizeBanner
)

// ThumbnailStatus is the state machine of spec §4.6.
type ThumbnailStatus int

const (
	ThumbnailStatusMissing ThumbnailStatus = iota
	ThumbnailStatusAvailable
	ThumbnailStatusFailure
	ThumbnailStatusPersistentFailure
	ThumbnailStatusCrash
)

// Thumbnail is a generated or user-provided cover image.
type Thumbnail struct {
	ID             int64           `db:"id" json:"id"`
	MRL            string          `db:"mrl" json:"mrl"`
	Origin         ThumbnailOrigin `db:"origin" json:"origin"`
	SizeType       ThumbnailSizeType `db:"size_type" json:"size_type"`
	IsOwned        bool            `db:"is_owned" json:"is_owned"`
	RefCount       int64           `db:"shared_counter" json:"shared_counter"`
	Status         ThumbnailStatus `db:"status" json:"status"`
}

// EntityType identifies the owning entity kind of a thumbnail link or a
// label attachment.
type EntityType int

const (
	EntityTypeMedia EntityType = iota
	EntityTypeAlbum
	EntityTypeArtist
	EntityTypeShow
	EntityTypeShowEpisode
	EntityTypeGenre
	EntityTypePlaylist
)

// ThumbnailLink maps (entity_type, entity_id, size_type) to a
// Thumbnail, spec §3.
type ThumbnailLink struct {
	EntityType EntityType        `db:"entity_type" json:"entity_type"`
	EntityID   int64             `db:"entity_id" json:"entity_id"`
	SizeType   ThumbnailSizeType `db:"size_type" json:"size_type"`
	ThumbnailID int64            `db:"thumbnail_id" json:"thumbnail_id"`
}

// MetadataType enumerates the kind of lazily-loaded key in Metadata.
type MetadataType int

// Metadata is a (media_id, type) -> value row, loaded lazily per media
// (spec §3).
type Metadata struct {
	MediaID int64        `db:"media_id" json:"media_id"`
	Type    MetadataType `db:"type" json:"type"`
	Value   string        `db:"value" json:"value"`
}

// AudioTrack is a per-media (or per-attached-file) audio descriptor.
type AudioTrack struct {
	ID             int64   `db:"id" json:"id"`
	Codec          string  `db:"codec" json:"codec"`
	Bitrate        int64   `db:"bitrate" json:"bitrate"`
	SampleRate     int64   `db:"sample_rate" json:"sample_rate"`
	NbChannels     int32   `db:"nb_channels" json:"nb_channels"`
	Language       *string `db:"language" json:"language,omitempty"`
	MediaID        int64   `db:"media_id" json:"media_id"`
	AttachedFileID *int64  `db:"attached_file_id" json:"attached_file_id,omitempty"`
}

// VideoTrack is a per-media (or per-attached-file) video descriptor.
type VideoTrack struct {
	ID             int64   `db:"id" json:"id"`
	Codec          string  `db:"codec" json:"codec"`
	Width          int32   `db:"width" json:"width"`
	Height         int32   `db:"height" json:"height"`
	FPSNum         int32   `db:"fps_num" json:"fps_num"`
	FPSDen         int32   `db:"fps_den" json:"fps_den"`
	MediaID        int64   `db:"media_id" json:"media_id"`
	AttachedFileID *int64  `db:"attached_file_id" json:"attached_file_id,omitempty"`
}

// SubtitleTrack is a per-media (or per-attached-file) subtitle
// descriptor.
type SubtitleTrack struct {
	ID             int64   `db:"id" json:"id"`
	Codec          string  `db:"codec" json:"codec"`
	Language       *string `db:"language" json:"language,omitempty"`
	Encoding       *string `db:"encoding" json:"encoding,omitempty"`
	MediaID        int64   `db:"media_id" json:"media_id"`
	AttachedFileID *int64  `db:"attached_file_id" json:"attached_file_id,omitempty"`
}

// Subscription is a tree of feed subscriptions with an auto-cache
// budget (spec §3, §4.6).
type Subscription struct {
	ID              int64  `db:"id" json:"id"`
	ServiceID       int32  `db:"service_id" json:"service_id"`
	Name            string `db:"name" json:"name"`
	ParentID        *int64 `db:"parent_id" json:"parent_id,omitempty"`
	CachedSize      int64  `db:"cached_size" json:"cached_size"`
	MaxCachedMedia  int64  `db:"max_cached_media" json:"max_cached_media"`
	MaxCachedSize   int64  `db:"max_cached_size" json:"max_cached_size"`
}

// SubscriptionMediaRelation is the M:N join with a per-row auto-cache
// flag.
type SubscriptionMediaRelation struct {
	SubscriptionID   int64 `db:"subscription_id" json:"subscription_id"`
	MediaID          int64 `db:"media_id" json:"media_id"`
	AutoCacheHandled bool  `db:"auto_cache_handled" json:"auto_cache_handled"`
}

// Settings is the library's single configuration/state row.
type Settings struct {
	DBModelVersion               int32 `db:"db_model_version" json:"db_model_version"`
	MaxTaskAttempts              int32 `db:"max_task_attempts" json:"max_task_attempts"`
	MaxLinkTaskAttempts          int32 `db:"max_link_task_attempts" json:"max_link_task_attempts"`
	NbCachedMediaPerSubscription int32 `db:"nb_cached_media_per_subscription" json:"nb_cached_media_per_subscription"`
	MaxSubscriptionCacheSize     int64 `db:"max_subscription_cache_size" json:"max_subscription_cache_size"`
	MaxCacheSize                 int64 `db:"max_cache_size" json:"max_cache_size"`
}
