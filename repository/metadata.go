package repository

import (
	"context"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"go.uber.org/zap"
)

// MetadataRepository stores the (media_id, type) -> value rows of spec
// §3. Values for one media load lazily and in full on first access,
// per the spec's "lazy full-load per media".
type MetadataRepository struct {
	conn   *db.DB
	logger *zap.Logger
}

func NewMetadataRepository(conn *db.DB, logger *zap.Logger) *MetadataRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataRepository{conn: conn, logger: logger}
}

// AllOf loads every metadata row of mediaID at once.
func (r *MetadataRepository) AllOf(ctx context.Context, mediaID int64) (map[models.MetadataType]string, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT type, value FROM metadata WHERE media_id = ?`, mediaID)
	if err != nil {
		return nil, wrapErr(err, "load metadata")
	}
	defer rows.Close()
	out := make(map[models.MetadataType]string)
	for rows.Next() {
		var t models.MetadataType
		var v string
		if err := rows.Scan(&t, &v); err != nil {
			return nil, err
		}
		out[t] = v
	}
	return out, rows.Err()
}

// Set upserts one metadata value.
func (r *MetadataRepository) Set(ctx context.Context, mediaID int64, metaType models.MetadataType, value string) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO metadata(media_id, type, value) VALUES (?, ?, ?)
		ON CONFLICT(media_id, type) DO UPDATE SET value = excluded.value`,
		mediaID, metaType, value)
	return wrapErr(err, "set metadata")
}

// Unset removes one metadata value; absent rows are a no-op.
func (r *MetadataRepository) Unset(ctx context.Context, mediaID int64, metaType models.MetadataType) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM metadata WHERE media_id = ? AND type = ?`, mediaID, metaType)
	return wrapErr(err, "unset metadata")
}
