package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/notifier"
	"go.uber.org/zap"
)

// ThumbnailRepository implements Thumbnail's state machine and the
// shared UpdateOrReplace contract of spec §4.6.
type ThumbnailRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewThumbnailRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *ThumbnailRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThumbnailRepository{conn: conn, notifier: n, logger: logger}
}

const thumbnailColumns = `id_thumbnail, mrl, origin, size_type, is_owned, shared_counter, status`

func scanThumbnail(row interface{ Scan(...interface{}) error }) (*models.Thumbnail, error) {
	var t models.Thumbnail
	if err := row.Scan(&t.ID, &t.MRL, &t.Origin, &t.SizeType, &t.IsOwned, &t.RefCount, &t.Status); err != nil {
		return nil, err
	}
	return &t, nil
}

// ForEntity fetches the Thumbnail currently linked to (entityType,
// entityID, sizeType), or sql.ErrNoRows.
func (r *ThumbnailRepository) ForEntity(ctx context.Context, entityType models.EntityType, entityID int64, sizeType models.ThumbnailSizeType) (*models.Thumbnail, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM thumbnail JOIN thumbnail_linking ON thumbnail_linking.thumbnail_id = thumbnail.id_thumbnail
		WHERE thumbnail_linking.entity_type = ? AND thumbnail_linking.entity_id = ? AND thumbnail_linking.size_type = ?`,
		qualifyColumns(thumbnailColumns, "thumbnail")), entityType, entityID, sizeType)
	return scanThumbnail(row)
}

// ShouldUpdatePredicate decides, given the current linked thumbnail,
// whether UpdateOrReplace may mutate it in place.
type ShouldUpdatePredicate func(current *models.Thumbnail) bool

// UpdateOrReplace implements spec §4.6's
// Thumbnail::updateOrReplace(current, new, predicate, entityId,
// entityType): if current is absent, insert new and link it; else if
// predicate(current) is true, mutate current in place; otherwise
// insert new as a separate row and switch the linking row. The
// thumbnail_link_insert_refcount/delete_refcount triggers (spec §4.5)
// keep shared_counter consistent across the switch.
func (r *ThumbnailRepository) UpdateOrReplace(ctx context.Context, current, newThumb *models.Thumbnail, predicate ShouldUpdatePredicate, entityType models.EntityType, entityID int64, sizeType models.ThumbnailSizeType) error {
	if current == nil {
		id, err := r.insert(ctx, newThumb)
		if err != nil {
			return err
		}
		return r.link(ctx, entityType, entityID, sizeType, id)
	}
	if predicate(current) {
		_, err := r.conn.ExecContext(ctx, `UPDATE thumbnail SET mrl = ?, origin = ?, is_owned = ?, status = ? WHERE id_thumbnail = ?`,
			newThumb.MRL, newThumb.Origin, newThumb.IsOwned, models.ThumbnailStatusAvailable, current.ID)
		if err != nil {
			return wrapErr(err, "update thumbnail in place")
		}
		return nil
	}
	newID, err := r.insert(ctx, newThumb)
	if err != nil {
		return err
	}
	if _, err := r.conn.ExecContext(ctx, `
		UPDATE thumbnail_linking SET thumbnail_id = ? WHERE entity_type = ? AND entity_id = ? AND size_type = ?`,
		newID, entityType, entityID, sizeType); err != nil {
		return wrapErr(err, "switch thumbnail link")
	}
	return nil
}

func (r *ThumbnailRepository) insert(ctx context.Context, t *models.Thumbnail) (int64, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO thumbnail(mrl, origin, size_type, is_owned, shared_counter, status)
		VALUES (?, ?, ?, ?, 0, ?)`,
		t.MRL, t.Origin, t.SizeType, t.IsOwned, models.ThumbnailStatusAvailable)
	if err != nil {
		return 0, wrapErr(err, "insert thumbnail")
	}
	return id, nil
}

func (r *ThumbnailRepository) link(ctx context.Context, entityType models.EntityType, entityID int64, sizeType models.ThumbnailSizeType, thumbnailID int64) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO thumbnail_linking(entity_type, entity_id, size_type, thumbnail_id) VALUES (?, ?, ?, ?)`,
		entityType, entityID, sizeType, thumbnailID)
	return wrapErr(err, "link thumbnail")
}

// Unlink removes the (entityType, entityID, sizeType) link; the
// thumbnail_link_delete_refcount trigger decrements shared_counter and,
// at zero, thumbnail_cleanup_on_zero_refcount enqueues a deferred file
// cleanup request the notifier delivers (spec §4.5, §5).
func (r *ThumbnailRepository) Unlink(ctx context.Context, entityType models.EntityType, entityID int64, sizeType models.ThumbnailSizeType) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM thumbnail_linking WHERE entity_type = ? AND entity_id = ? AND size_type = ?`,
		entityType, entityID, sizeType)
	return wrapErr(err, "unlink thumbnail")
}

// MarkFailure transitions Missing->Failure, or Failure->PersistentFailure
// once attempts reaches the configured ceiling, per spec §4.6's state
// machine.
func (r *ThumbnailRepository) MarkFailure(ctx context.Context, id int64, attempts, ceiling int) error {
	status := models.ThumbnailStatusFailure
	if attempts >= ceiling {
		status = models.ThumbnailStatusPersistentFailure
	}
	_, err := r.conn.ExecContext(ctx, `UPDATE thumbnail SET status = ? WHERE id_thumbnail = ?`, status, id)
	return wrapErr(err, "mark thumbnail failure")
}

// MarkCrash transitions any state to Crash, per spec §4.6 ("any->Crash
// if the worker aborted mid-generation").
func (r *ThumbnailRepository) MarkCrash(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE thumbnail SET status = ? WHERE id_thumbnail = ?`, models.ThumbnailStatusCrash, id)
	return wrapErr(err, "mark thumbnail crash")
}

// DrainCleanupRequests returns and clears pending thumbnail file
// cleanup requests, for the notifier's deferred-deletion consumer.
func (r *ThumbnailRepository) DrainCleanupRequests(ctx context.Context) ([]string, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT id_request, mrl FROM thumbnail_cleanup_request`)
	if err != nil {
		return nil, wrapErr(err, "read thumbnail cleanup requests")
	}
	defer rows.Close()
	var ids []int64
	var mrls []string
	for rows.Next() {
		var id int64
		var mrl string
		if err := rows.Scan(&id, &mrl); err != nil {
			return nil, err
		}
		ids = append(ids, id)
		mrls = append(mrls, mrl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := r.conn.ExecContext(ctx, `DELETE FROM thumbnail_cleanup_request WHERE id_request = ?`, id); err != nil {
			return nil, wrapErr(err, "clear thumbnail cleanup request")
		}
	}
	return mrls, nil
}

var _ = sql.ErrNoRows
