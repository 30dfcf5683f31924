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

// MediaRepository implements the Media contracts of spec §4.6.
type MediaRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewMediaRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *MediaRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaRepository{conn: conn, notifier: n, logger: logger}
}

const mediaColumns = `id_media, type, subtype, duration, last_position, last_time, play_count,
	last_played_date, insertion_date, release_date, title, filename, is_favorite, is_present,
	device_id, nb_playlists, folder_id, import_type, group_id, forced_title,
	artist_id, genre_id, track_number, album_id, disc_number`

// mediaInsertColumns is mediaColumns minus the autogenerated key.
const mediaInsertColumns = `type, subtype, duration, last_position, last_time, play_count,
	last_played_date, insertion_date, release_date, title, filename, is_favorite, is_present,
	device_id, nb_playlists, folder_id, import_type, group_id, forced_title,
	artist_id, genre_id, track_number, album_id, disc_number`

func scanMedia(row interface{ Scan(...interface{}) error }) (*models.Media, error) {
	var m models.Media
	var lastPlayed, release sql.NullInt64
	var insertion int64
	var folderID, groupID, artistID, genreID, albumID sql.NullInt64
	var trackNumber, discNumber sql.NullInt64
	if err := row.Scan(&m.ID, &m.Type, &m.SubType, &m.Duration, &m.LastPosition, &m.LastTime, &m.PlayCount,
		&lastPlayed, &insertion, &release, &m.Title, &m.Filename, &m.IsFavorite, &m.IsPresent,
		&m.DeviceID, &m.NbPlaylists, &folderID, &m.ImportType, &groupID, &m.ForcedTitle,
		&artistID, &genreID, &trackNumber, &albumID, &discNumber); err != nil {
		return nil, err
	}
	m.InsertionDate = time.Unix(insertion, 0)
	if lastPlayed.Valid {
		t := time.Unix(lastPlayed.Int64, 0)
		m.LastPlayedDate = &t
	}
	if release.Valid {
		t := time.Unix(release.Int64, 0)
		m.ReleaseDate = &t
	}
	m.FolderID = scanNullInt64(folderID)
	m.GroupID = scanNullInt64(groupID)
	m.ArtistID = scanNullInt64(artistID)
	m.GenreID = scanNullInt64(genreID)
	m.AlbumID = scanNullInt64(albumID)
	if trackNumber.Valid {
		v := int32(trackNumber.Int64)
		m.TrackNumber = &v
	}
	if discNumber.Valid {
		v := int32(discNumber.Int64)
		m.DiscNumber = &v
	}
	return &m, nil
}

func scanMediaRows(rows *sql.Rows) ([]*models.Media, error) {
	var out []*models.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create inserts an internal Media row (folder_id/device_id required,
// per spec §3's invariant "Internal <=> folder_id!=NULL <=> device_id!=0").
func (r *MediaRepository) Create(ctx context.Context, title, filename string, mediaType models.MediaType, folderID, deviceID int64) (*models.Media, error) {
	if folderID == 0 || deviceID == 0 {
		return nil, fmt.Errorf("internal media requires folder_id and device_id")
	}
	id, err := r.conn.InsertReturningID(ctx, `INSERT INTO media(`+mediaInsertColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		mediaType, models.MediaSubTypeUnknown, models.DurationUnknown, models.PositionUnset, models.LastTimeUnknown, 0,
		nil, time.Now().Unix(), nil, title, filename, false, true,
		deviceID, 0, folderID, models.ImportTypeInternal, nil, false,
		nil, nil, nil, nil, nil)
	if err != nil {
		return nil, wrapErr(err, "create media")
	}
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindMedia, id)
	}
	return m, nil
}

// CreateExternal constructs an external Media (neither device nor
// folder id), per spec §4.6.
func (r *MediaRepository) CreateExternal(ctx context.Context, mrl string, duration int64) (*models.Media, error) {
	return r.createExternalLike(ctx, mrl, duration, models.ImportTypeExternal)
}

// AddStream constructs a stream Media: external with the stream type
// marker, per spec §4.6 ("a stream is external with a type-marker flag").
func (r *MediaRepository) AddStream(ctx context.Context, mrl string) (*models.Media, error) {
	return r.createExternalLike(ctx, mrl, models.DurationUnknown, models.ImportTypeStream)
}

func (r *MediaRepository) createExternalLike(ctx context.Context, mrl string, duration int64, importType models.ImportType) (*models.Media, error) {
	id, err := r.conn.InsertReturningID(ctx, `INSERT INTO media(`+mediaInsertColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		models.MediaTypeUnknown, models.MediaSubTypeUnknown, duration, models.PositionUnset, models.LastTimeUnknown, 0,
		nil, time.Now().Unix(), nil, mrl, mrl, false, true,
		0, 0, nil, importType, nil, false,
		nil, nil, nil, nil, nil)
	if err != nil {
		return nil, wrapErr(err, "create external media")
	}
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindMedia, id)
	}
	return m, nil
}

// GetByID fetches a single Media, or sql.ErrNoRows.
func (r *MediaRepository) GetByID(ctx context.Context, id int64) (*models.Media, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM media WHERE id_media = ?`, mediaColumns), id)
	return scanMedia(row)
}

// SetLastPosition implements spec §4.6's classification: near-zero
// positions store -1 without counting playback (Begin); near-one
// positions store -1, increment play_count, and set last_played_date
// (End); everything else stores the raw value (Any, returned as
// AsIs).
func (r *MediaRepository) SetLastPosition(ctx context.Context, id int64, position float64) (models.ProgressResult, error) {
	const beginThreshold = 0.02
	const endThreshold = 0.98

	switch {
	case position <= beginThreshold:
		_, err := r.conn.ExecContext(ctx, `UPDATE media SET last_position = ? WHERE id_media = ?`, models.PositionUnset, id)
		if err != nil {
			return models.ProgressError, wrapErr(err, "set last position (begin)")
		}
		r.notifyModified(id)
		return models.ProgressBegin, nil
	case position >= endThreshold:
		_, err := r.conn.ExecContext(ctx, `UPDATE media SET last_position = ?, play_count = play_count + 1, last_played_date = ? WHERE id_media = ?`,
			models.PositionUnset, time.Now().Unix(), id)
		if err != nil {
			return models.ProgressError, wrapErr(err, "set last position (end)")
		}
		r.notifyModified(id)
		return models.ProgressEnd, nil
	default:
		_, err := r.conn.ExecContext(ctx, `UPDATE media SET last_position = ? WHERE id_media = ?`, position, id)
		if err != nil {
			return models.ProgressError, wrapErr(err, "set last position")
		}
		r.notifyModified(id)
		return models.ProgressAsIs, nil
	}
}

// SetDuration stores the parser-probed duration in milliseconds.
func (r *MediaRepository) SetDuration(ctx context.Context, id int64, duration int64) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE media SET duration = ? WHERE id_media = ?`, duration, id)
	if err != nil {
		return wrapErr(err, "set media duration")
	}
	r.notifyModified(id)
	return nil
}

// SetTitle renames the media; the forced-singleton rename trigger
// follows it when the media anchors one (spec §4.6).
func (r *MediaRepository) SetTitle(ctx context.Context, id int64, title string, forced bool) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE media SET title = ?, forced_title = ? WHERE id_media = ?`, title, forced, id)
	if err != nil {
		return wrapErr(err, "set media title")
	}
	r.notifyModified(id)
	return nil
}

// SetFavorite flips the favorite flag.
func (r *MediaRepository) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE media SET is_favorite = ? WHERE id_media = ?`, favorite, id)
	if err != nil {
		return wrapErr(err, "set media favorite")
	}
	r.notifyModified(id)
	return nil
}

// ConvertToExternal detaches a Media from folder/device, nullifies
// derived attributes, and flips import_type to External, triggering
// counter decrements in every holder via the presence/counter triggers
// reacting to folder_id/device_id/group_id changes (spec §4.6).
func (r *MediaRepository) ConvertToExternal(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `
		UPDATE media SET import_type = ?, folder_id = NULL, device_id = 0, group_id = NULL,
			subtype = 0, album_id = NULL, artist_id = NULL, genre_id = NULL, track_number = NULL, disc_number = NULL
		WHERE id_media = ?`, models.ImportTypeExternal, id)
	if err != nil {
		return wrapErr(err, "convert to external")
	}
	r.notifyModified(id)
	return nil
}

// AddFile adds an external file row for id. A Unique violation (same
// mrl+folder already linked) is returned to the caller rather than
// absorbed, since spec §4.6 says this case "returns the error".
func (r *MediaRepository) AddFile(ctx context.Context, mediaID int64, mrl string, fileType models.FileType) (*models.File, error) {
	fileID, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO file(media_id, playlist_id, type, mrl, last_modification_date, size, folder_id, is_removable, is_external, is_network)
		VALUES (?, NULL, ?, ?, ?, 0, NULL, 0, 1, 0)`,
		mediaID, fileType, mrl, time.Now().Unix())
	if err != nil {
		return nil, wrapErr(err, "add file")
	}
	return &models.File{ID: fileID, MediaID: &mediaID, Type: fileType, MRL: mrl, IsExternal: true}, nil
}

// MarkAsAlbumTrack sets the track-specific columns and flips subtype,
// called by Album.AddTrack (spec §4.6).
func (r *MediaRepository) MarkAsAlbumTrack(ctx context.Context, mediaID int64, albumID int64, trackNumber, discNumber int32, artistID *int64, genreID *int64) error {
	_, err := r.conn.ExecContext(ctx, `
		UPDATE media SET subtype = ?, album_id = ?, track_number = ?, disc_number = ?, artist_id = ?, genre_id = ?
		WHERE id_media = ?`,
		models.MediaSubTypeAlbumTrack, albumID, trackNumber, discNumber, ptrInt64(artistID), ptrInt64(genreID), mediaID)
	if err != nil {
		return wrapErr(err, "mark as album track")
	}
	r.notifyModified(mediaID)
	return nil
}

// Delete removes a Media row; owning File rows cascade via foreign
// keys (spec §8 scenario 1).
func (r *MediaRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM media WHERE id_media = ?`, id)
	if err != nil {
		return wrapErr(err, "delete media")
	}
	if r.notifier != nil {
		r.notifier.NotifyRemoved(notifier.KindMedia, id)
	}
	return nil
}

func (r *MediaRepository) notifyModified(id int64) {
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindMedia, id)
	}
}

// mediaSortColumn maps SortCriterion to a media column, per spec §4.4:
// unsupported criteria fall back to the entity's own default (Alpha,
// over title).
func mediaSortColumn(sort query.SortCriterion) (string, query.SortCriterion) {
	switch sort {
	case query.SortDuration:
		return "duration", sort
	case query.SortInsertionDate:
		return "insertion_date", sort
	case query.SortReleaseDate:
		return "release_date", sort
	case query.SortTrackNumber:
		return "track_number", sort
	case query.SortPlayCount:
		return "play_count", sort
	case query.SortFilename:
		return "filename", sort
	case query.SortLastPlaybackDate:
		return "last_played_date", sort
	default:
		return "title", query.SortAlpha
	}
}

// ListAll returns a paginated, sortable Query over every present
// Media, per spec §6.
func (r *MediaRepository) ListAll(params query.Parameters) *query.Query[*models.Media] {
	where := "WHERE 1=1"
	if !params.IncludeMissing {
		where += " AND is_present = 1"
	}
	if params.FavoriteOnly {
		where += " AND is_favorite = 1"
	}
	orderBy := query.OrderByClause(params.Sort, params.Desc, mediaSortColumn, r.logger)
	return query.New[*models.Media](r.conn, "media "+where, "id_media", orderBy, nil, scanMediaRows, r.logger)
}

// FromAlbum lists the tracks of album albumID, optionally narrowed to
// genreID, per spec §6's Media::fromAlbum.
func (r *MediaRepository) FromAlbum(albumID int64, genreID *int64, params query.Parameters) *query.Query[*models.Media] {
	where := fmt.Sprintf("WHERE album_id = %d", albumID)
	args := []interface{}{}
	if genreID != nil {
		where += " AND genre_id = ?"
		args = append(args, *genreID)
	}
	orderBy := query.OrderByClause(params.Sort, params.Desc, mediaSortColumn, r.logger)
	return query.New[*models.Media](r.conn, "media "+where, "id_media", orderBy, args, scanMediaRows, r.logger)
}

// Search runs an FTS prefix search over media titles, per spec §6.
func (r *MediaRepository) Search(pattern string, params query.Parameters) *query.Query[*models.Media] {
	sanitized, ok := query.SanitizeFTSPattern(pattern)
	if !ok {
		return query.NewExplicit[*models.Media](r.conn,
			fmt.Sprintf(`SELECT %s FROM media WHERE 0`, mediaColumns),
			`SELECT 0`, nil, scanMediaRows, r.logger)
	}
	orderBy := query.OrderByClause(params.Sort, params.Desc, mediaSortColumn, r.logger)
	listSQL := fmt.Sprintf(`SELECT %s FROM media JOIN media_fts ON media_fts.rowid = media.id_media
		WHERE media_fts MATCH ? %s`, qualifyColumns(mediaColumns, "media"), orderBy)
	countSQL := `SELECT COUNT(*) FROM media JOIN media_fts ON media_fts.rowid = media.id_media WHERE media_fts MATCH ?`
	return query.NewExplicit[*models.Media](r.conn, listSQL, countSQL, []interface{}{sanitized}, scanMediaRows, r.logger)
}

// History returns media ordered by last playback, most recent first,
// of the requested type (nil = all), per spec §6.
func (r *MediaRepository) History(mediaType *models.MediaType) *query.Query[*models.Media] {
	where := "WHERE play_count > 0"
	args := []interface{}{}
	if mediaType != nil {
		where += " AND type = ?"
		args = append(args, *mediaType)
	}
	return query.New[*models.Media](r.conn, "media "+where, "id_media", "ORDER BY last_played_date DESC", args, scanMediaRows, r.logger)
}

// ClearHistory resets play_count/last_played_date/last_time for every
// media of the requested type (nil = all), per spec §6.
func (r *MediaRepository) ClearHistory(ctx context.Context, mediaType *models.MediaType) error {
	if mediaType == nil {
		_, err := r.conn.ExecContext(ctx, `UPDATE media SET play_count = 0, last_played_date = NULL, last_time = -1`)
		return wrapErr(err, "clear history")
	}
	_, err := r.conn.ExecContext(ctx, `UPDATE media SET play_count = 0, last_played_date = NULL, last_time = -1 WHERE type = ?`, *mediaType)
	return wrapErr(err, "clear history")
}

// qualifyColumns prefixes each comma-separated column name with
// table+"." so a join's column list is unambiguous.
func qualifyColumns(columns, table string) string {
	out := ""
	for i, c := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += table + "." + c
	}
	return out
}

func splitColumns(columns string) []string {
	var out []string
	cur := ""
	for _, r := range columns {
		switch r {
		case ',':
			out = append(out, trimSpace(cur))
			cur = ""
		default:
			cur += string(r)
		}
	}
	if trimSpace(cur) != "" {
		out = append(out, trimSpace(cur))
	}
	return out
}

func trimSpace(s string) string {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\n' || s[start] == '\t') {
		start++
	}
	end := len(s)
	for end > start && (s[end-1] == ' ' || s[end-1] == '\n' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
