package repository

import (
	"context"
	"database/sql"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"go.uber.org/zap"
)

// TrackRepository stores the per-media technical descriptors of spec
// §3: AudioTrack, VideoTrack, and SubtitleTrack, each unique per
// (media_id, attached_file_id). Re-linking an already-described
// subtitle file is absorbed as idempotent (spec §7).
type TrackRepository struct {
	conn   *db.DB
	logger *zap.Logger
}

func NewTrackRepository(conn *db.DB, logger *zap.Logger) *TrackRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackRepository{conn: conn, logger: logger}
}

// AddAudioTrack describes mediaID's audio stream. attachedFileID is
// non-nil for tracks probed out of a linked soundtrack file.
func (r *TrackRepository) AddAudioTrack(ctx context.Context, t *models.AudioTrack) (int64, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO audio_track(codec, bitrate, sample_rate, nb_channels, language, media_id, attached_file_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Codec, t.Bitrate, t.SampleRate, t.NbChannels, ptrString(t.Language), t.MediaID, ptrInt64(t.AttachedFileID))
	if isIdempotentConstraintError(err) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapErr(err, "add audio track")
	}
	return id, nil
}

func (r *TrackRepository) AddVideoTrack(ctx context.Context, t *models.VideoTrack) (int64, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO video_track(codec, width, height, fps_num, fps_den, media_id, attached_file_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Codec, t.Width, t.Height, t.FPSNum, t.FPSDen, t.MediaID, ptrInt64(t.AttachedFileID))
	if isIdempotentConstraintError(err) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapErr(err, "add video track")
	}
	return id, nil
}

func (r *TrackRepository) AddSubtitleTrack(ctx context.Context, t *models.SubtitleTrack) (int64, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO subtitle_track(codec, language, encoding, media_id, attached_file_id)
		VALUES (?, ?, ?, ?, ?)`,
		t.Codec, ptrString(t.Language), ptrString(t.Encoding), t.MediaID, ptrInt64(t.AttachedFileID))
	if isIdempotentConstraintError(err) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapErr(err, "add subtitle track")
	}
	return id, nil
}

// AudioTracksOf lists mediaID's audio descriptors.
func (r *TrackRepository) AudioTracksOf(ctx context.Context, mediaID int64) ([]*models.AudioTrack, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT id_track, codec, bitrate, sample_rate, nb_channels, language, media_id, attached_file_id
		FROM audio_track WHERE media_id = ? ORDER BY id_track`, mediaID)
	if err != nil {
		return nil, wrapErr(err, "list audio tracks")
	}
	defer rows.Close()
	var out []*models.AudioTrack
	for rows.Next() {
		var t models.AudioTrack
		var lang sql.NullString
		var attached sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Codec, &t.Bitrate, &t.SampleRate, &t.NbChannels, &lang, &t.MediaID, &attached); err != nil {
			return nil, err
		}
		t.Language = scanNullString(lang)
		t.AttachedFileID = scanNullInt64(attached)
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *TrackRepository) VideoTracksOf(ctx context.Context, mediaID int64) ([]*models.VideoTrack, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT id_track, codec, width, height, fps_num, fps_den, media_id, attached_file_id
		FROM video_track WHERE media_id = ? ORDER BY id_track`, mediaID)
	if err != nil {
		return nil, wrapErr(err, "list video tracks")
	}
	defer rows.Close()
	var out []*models.VideoTrack
	for rows.Next() {
		var t models.VideoTrack
		var attached sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Codec, &t.Width, &t.Height, &t.FPSNum, &t.FPSDen, &t.MediaID, &attached); err != nil {
			return nil, err
		}
		t.AttachedFileID = scanNullInt64(attached)
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *TrackRepository) SubtitleTracksOf(ctx context.Context, mediaID int64) ([]*models.SubtitleTrack, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT id_track, codec, language, encoding, media_id, attached_file_id
		FROM subtitle_track WHERE media_id = ? ORDER BY id_track`, mediaID)
	if err != nil {
		return nil, wrapErr(err, "list subtitle tracks")
	}
	defer rows.Close()
	var out []*models.SubtitleTrack
	for rows.Next() {
		var t models.SubtitleTrack
		var lang, enc sql.NullString
		var attached sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Codec, &lang, &enc, &t.MediaID, &attached); err != nil {
			return nil, err
		}
		t.Language = scanNullString(lang)
		t.Encoding = scanNullString(enc)
		t.AttachedFileID = scanNullInt64(attached)
		out = append(out, &t)
	}
	return out, rows.Err()
}

// RemoveTracksOf clears every descriptor of mediaID ahead of a
// reparse.
func (r *TrackRepository) RemoveTracksOf(ctx context.Context, mediaID int64) error {
	for _, table := range []string{"audio_track", "video_track", "subtitle_track"} {
		if _, err := r.conn.ExecContext(ctx, `DELETE FROM `+table+` WHERE media_id = ?`, mediaID); err != nil {
			return wrapErr(err, "remove tracks")
		}
	}
	return nil
}
