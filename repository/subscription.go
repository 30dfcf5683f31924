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

// RefreshTask is the work unit Subscription.Refresh hands to the
// parser collaborator (spec §3 treats Task as external; only the
// enqueue-from-a-subscription shape lives here).
type RefreshTask struct {
	SubscriptionID int64
	FileID         int64
	MRL            string
}

// TaskEnqueuer is the parser worker's intake, implemented by the
// discovery/parsing collaborator.
type TaskEnqueuer interface {
	Enqueue(task RefreshTask)
}

// SubscriptionRepository implements the Subscription contracts of spec
// §4.6: the subscription tree, the M:N media relation with its
// auto_cache_handled flag, the trigger-maintained cached_size, and the
// UncachedMedia cache-budget query.
type SubscriptionRepository struct {
	conn     *db.DB
	settings *SettingsRepository
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewSubscriptionRepository(conn *db.DB, settings *SettingsRepository, n *notifier.Notifier, logger *zap.Logger) *SubscriptionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionRepository{conn: conn, settings: settings, notifier: n, logger: logger}
}

const subscriptionColumns = `id_subscription, service_id, name, parent_id, cached_size, max_cached_media, max_cached_size`

func scanSubscription(row interface{ Scan(...interface{}) error }) (*models.Subscription, error) {
	var s models.Subscription
	var parentID sql.NullInt64
	if err := row.Scan(&s.ID, &s.ServiceID, &s.Name, &parentID, &s.CachedSize, &s.MaxCachedMedia, &s.MaxCachedSize); err != nil {
		return nil, err
	}
	s.ParentID = scanNullInt64(parentID)
	return &s, nil
}

// Create inserts a Subscription. MaxCachedMedia/MaxCachedSize start at
// -1, meaning "inherit from Settings" (spec §3).
func (r *SubscriptionRepository) Create(ctx context.Context, serviceID int32, name string, parentID *int64) (*models.Subscription, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO subscription(service_id, name, parent_id, cached_size, max_cached_media, max_cached_size)
		VALUES (?, ?, ?, 0, -1, -1)`,
		serviceID, name, ptrInt64(parentID))
	if err != nil {
		return nil, wrapErr(err, "create subscription")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindSubscription, id)
	}
	return r.GetByID(ctx, id)
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM subscription WHERE id_subscription = ?`, subscriptionColumns), id)
	return scanSubscription(row)
}

// Children lists the direct children of parentID (nil = roots).
func (r *SubscriptionRepository) Children(ctx context.Context, parentID *int64) ([]*models.Subscription, error) {
	var rows *sql.Rows
	var err error
	if parentID == nil {
		rows, err = r.conn.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM subscription WHERE parent_id IS NULL ORDER BY name`, subscriptionColumns))
	} else {
		rows, err = r.conn.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM subscription WHERE parent_id = ? ORDER BY name`, subscriptionColumns), *parentID)
	}
	if err != nil {
		return nil, wrapErr(err, "list subscriptions")
	}
	defer rows.Close()
	var out []*models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AddMedia links mediaID into the subscription; a duplicate link is
// idempotent.
func (r *SubscriptionRepository) AddMedia(ctx context.Context, subscriptionID, mediaID int64) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO subscription_media_relation(subscription_id, media_id, auto_cache_handled) VALUES (?, ?, 0)`,
		subscriptionID, mediaID)
	if isIdempotentConstraintError(err) {
		return nil
	}
	return wrapErr(err, "add subscription media")
}

// RemoveMedia drops the relation row; the
// subscription_relation_cache_delete trigger decrements cached_size
// without touching the File (spec §4.5).
func (r *SubscriptionRepository) RemoveMedia(ctx context.Context, subscriptionID, mediaID int64) error {
	_, err := r.conn.ExecContext(ctx, `
		DELETE FROM subscription_media_relation WHERE subscription_id = ? AND media_id = ?`,
		subscriptionID, mediaID)
	return wrapErr(err, "remove subscription media")
}

// MarkCacheHandled flips the per-row auto_cache_handled flag once the
// auto-cacher has decided about mediaID.
func (r *SubscriptionRepository) MarkCacheHandled(ctx context.Context, subscriptionID, mediaID int64, handled bool) error {
	_, err := r.conn.ExecContext(ctx, `
		UPDATE subscription_media_relation SET auto_cache_handled = ? WHERE subscription_id = ? AND media_id = ?`,
		handled, subscriptionID, mediaID)
	return wrapErr(err, "mark subscription cache handled")
}

// cacheBudget resolves the effective cached-media cap: the smaller of
// the subscription's own limit and the Settings default, with -1
// meaning "inherit" on the subscription side (spec §4.6).
func (r *SubscriptionRepository) cacheBudget(ctx context.Context, sub *models.Subscription) (int64, error) {
	settings, err := r.settings.Load(ctx)
	if err != nil {
		return 0, wrapErr(err, "load settings for cache budget")
	}
	global := int64(settings.NbCachedMediaPerSubscription)
	if sub.MaxCachedMedia < 0 {
		return global, nil
	}
	if global < 0 || sub.MaxCachedMedia < global {
		return sub.MaxCachedMedia, nil
	}
	return global, nil
}

// UncachedMedia returns media referenced by the subscription that have
// no Cache file yet, ordered by release date, capped by the effective
// cache budget. autoOnly restricts to rows the auto-cacher has not
// handled yet (spec §4.6).
func (r *SubscriptionRepository) UncachedMedia(ctx context.Context, subscriptionID int64, autoOnly bool) ([]*models.Media, error) {
	sub, err := r.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, wrapErr(err, "load subscription")
	}
	budget, err := r.cacheBudget(ctx, sub)
	if err != nil {
		return nil, err
	}
	if budget == 0 {
		return nil, nil
	}

	where := ""
	if autoOnly {
		where = "AND rel.auto_cache_handled = 0"
	}
	sqlText := fmt.Sprintf(`
		SELECT %s FROM media
		JOIN subscription_media_relation rel ON rel.media_id = media.id_media
		WHERE rel.subscription_id = ? %s
		AND NOT EXISTS (SELECT 1 FROM file WHERE file.media_id = media.id_media AND file.type = %d)
		ORDER BY media.release_date DESC LIMIT ?`,
		qualifyColumns(mediaColumns, "media"), where, models.FileTypeCache)

	rows, err := r.conn.QueryContext(ctx, sqlText, subscriptionID, budget)
	if err != nil {
		return nil, wrapErr(err, "list uncached media")
	}
	defer rows.Close()
	return scanMediaRows(rows)
}

// Refresh creates a Refresh task from the subscription's primary file
// and hands it to the parser worker (spec §4.6).
func (r *SubscriptionRepository) Refresh(ctx context.Context, subscriptionID int64, enqueuer TaskEnqueuer) error {
	var fileID int64
	var mrl string
	err := r.conn.QueryRowContext(ctx, `
		SELECT f.id_file, f.mrl FROM file f
		JOIN subscription s ON s.id_subscription = ?
		WHERE f.playlist_id IS NULL AND f.media_id IN
			(SELECT media_id FROM subscription_media_relation WHERE subscription_id = s.id_subscription)
		ORDER BY f.id_file LIMIT 1`, subscriptionID).Scan(&fileID, &mrl)
	if err != nil {
		return wrapErr(err, "resolve subscription primary file")
	}
	enqueuer.Enqueue(RefreshTask{SubscriptionID: subscriptionID, FileID: fileID, MRL: mrl})
	return nil
}

// Delete removes the subscription; children and relation rows cascade.
func (r *SubscriptionRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM subscription WHERE id_subscription = ?`, id)
	if err != nil {
		return wrapErr(err, "delete subscription")
	}
	if r.notifier != nil {
		r.notifier.NotifyRemoved(notifier.KindSubscription, id)
	}
	return nil
}
