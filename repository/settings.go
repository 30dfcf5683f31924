package repository

import (
	"context"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"go.uber.org/zap"
)

// SettingsRepository manages the singleton Settings row (spec §3,
// §4.7): the stored model version consulted at startup, and the
// library-wide task/cache budgets.
type SettingsRepository struct {
	conn   *db.DB
	logger *zap.Logger
}

func NewSettingsRepository(conn *db.DB, logger *zap.Logger) *SettingsRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsRepository{conn: conn, logger: logger}
}

const settingsColumns = `db_model_version, max_task_attempts, max_link_task_attempts,
	nb_cached_media_per_subscription, max_subscription_cache_size, max_cache_size`

// Load returns the Settings row, or sql.ErrNoRows on a fresh database
// that has not been initialized yet.
func (r *SettingsRepository) Load(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	err := r.conn.QueryRowContext(ctx, `SELECT `+settingsColumns+` FROM settings`).Scan(
		&s.DBModelVersion, &s.MaxTaskAttempts, &s.MaxLinkTaskAttempts,
		&s.NbCachedMediaPerSubscription, &s.MaxSubscriptionCacheSize, &s.MaxCacheSize)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Init inserts the singleton row at modelVersion with default budgets,
// the last step of creating a fresh database.
func (r *SettingsRepository) Init(ctx context.Context, modelVersion int32) (*models.Settings, error) {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO settings(db_model_version, max_task_attempts, max_link_task_attempts,
			nb_cached_media_per_subscription, max_subscription_cache_size, max_cache_size)
		VALUES (?, 3, 3, 10, 0, 0)`, modelVersion)
	if err != nil {
		return nil, wrapErr(err, "init settings")
	}
	return r.Load(ctx)
}

// SetCacheBudgets updates the subscription cache limits.
func (r *SettingsRepository) SetCacheBudgets(ctx context.Context, nbCachedMediaPerSubscription int32, maxSubscriptionCacheSize, maxCacheSize int64) error {
	_, err := r.conn.ExecContext(ctx, `
		UPDATE settings SET nb_cached_media_per_subscription = ?, max_subscription_cache_size = ?, max_cache_size = ?`,
		nbCachedMediaPerSubscription, maxSubscriptionCacheSize, maxCacheSize)
	return wrapErr(err, "set cache budgets")
}

// SetTaskAttempts updates the parser retry ceilings.
func (r *SettingsRepository) SetTaskAttempts(ctx context.Context, maxTaskAttempts, maxLinkTaskAttempts int32) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE settings SET max_task_attempts = ?, max_link_task_attempts = ?`,
		maxTaskAttempts, maxLinkTaskAttempts)
	return wrapErr(err, "set task attempts")
}
