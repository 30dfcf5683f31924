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

// BookmarkRepository implements the Bookmark contracts of spec §3:
// named timestamps unique per (media, time). Re-adding a bookmark at
// an occupied timestamp is absorbed as idempotent (spec §7).
type BookmarkRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewBookmarkRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *BookmarkRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookmarkRepository{conn: conn, notifier: n, logger: logger}
}

const bookmarkColumns = `id_bookmark, time, name, description, media_id, creation_date, type`

func scanBookmark(row interface{ Scan(...interface{}) error }) (*models.Bookmark, error) {
	var b models.Bookmark
	var name, description sql.NullString
	var created int64
	if err := row.Scan(&b.ID, &b.Time, &name, &description, &b.MediaID, &created, &b.Type); err != nil {
		return nil, err
	}
	b.Name = name.String
	b.Description = scanNullString(description)
	b.CreationDate = time.Unix(created, 0)
	return &b, nil
}

// Create adds a bookmark at mediaTime. An existing bookmark at the
// same timestamp is returned instead of an error.
func (r *BookmarkRepository) Create(ctx context.Context, mediaID, mediaTime int64, name string) (*models.Bookmark, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO bookmark(time, name, description, media_id, creation_date, type)
		VALUES (?, ?, NULL, ?, ?, ?)`,
		mediaTime, nullString(name), mediaID, time.Now().Unix(), models.BookmarkTypeSimple)
	if isIdempotentConstraintError(err) {
		return r.GetAt(ctx, mediaID, mediaTime)
	}
	if err != nil {
		return nil, wrapErr(err, "create bookmark")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindBookmark, id)
	}
	return r.GetByID(ctx, id)
}

func (r *BookmarkRepository) GetByID(ctx context.Context, id int64) (*models.Bookmark, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM bookmark WHERE id_bookmark = ?`, bookmarkColumns), id)
	return scanBookmark(row)
}

func (r *BookmarkRepository) GetAt(ctx context.Context, mediaID, mediaTime int64) (*models.Bookmark, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM bookmark WHERE media_id = ? AND time = ?`, bookmarkColumns), mediaID, mediaTime)
	return scanBookmark(row)
}

// Of lists mediaID's bookmarks in timestamp order.
func (r *BookmarkRepository) Of(ctx context.Context, mediaID int64) ([]*models.Bookmark, error) {
	rows, err := r.conn.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM bookmark WHERE media_id = ? ORDER BY time`, bookmarkColumns), mediaID)
	if err != nil {
		return nil, wrapErr(err, "list bookmarks")
	}
	defer rows.Close()
	var out []*models.Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookmarkRepository) SetName(ctx context.Context, id int64, name string) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE bookmark SET name = ? WHERE id_bookmark = ?`, nullString(name), id)
	return wrapErr(err, "rename bookmark")
}

func (r *BookmarkRepository) SetDescription(ctx context.Context, id int64, description string) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE bookmark SET description = ? WHERE id_bookmark = ?`, nullString(description), id)
	return wrapErr(err, "set bookmark description")
}

func (r *BookmarkRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM bookmark WHERE id_bookmark = ?`, id)
	if err != nil {
		return wrapErr(err, "delete bookmark")
	}
	if r.notifier != nil {
		r.notifier.NotifyRemoved(notifier.KindBookmark, id)
	}
	return nil
}
