package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/notifier"
	"github.com/catalogizer/medialibrary/query"
	"go.uber.org/zap"
)

// AutoGroupPrefixLength is the configurable prefix length used by
// AssignToGroup when clustering titles (spec §3 "VideoGroup ...
// configurable length").
const AutoGroupPrefixLength = 6

// MediaGroupRepository implements the MediaGroup contracts of spec
// §4.6: Add/Remove with typed counter maintenance, the
// forced-singleton lifecycle, and the prefix-matching AssignToGroup.
// Counter adjustments ride on the media_group_membership_update /
// media_group_media_delete triggers (spec §4.5); this type only moves
// group_id around and manages the group rows themselves.
type MediaGroupRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewMediaGroupRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *MediaGroupRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaGroupRepository{conn: conn, notifier: n, logger: logger}
}

const mediaGroupColumns = `id_group, name, nb_video, nb_audio, nb_unknown, nb_seen, nb_external,
	nb_present_video, nb_present_audio, nb_present_unknown, nb_present_seen, nb_present_external,
	duration, creation_date, last_modification_date, user_interacted, forced_singleton`

func scanMediaGroup(row interface{ Scan(...interface{}) error }) (*models.MediaGroup, error) {
	var g models.MediaGroup
	var created, modified int64
	if err := row.Scan(&g.ID, &g.Name, &g.NbVideo, &g.NbAudio, &g.NbUnknown, &g.NbSeen, &g.NbExternal,
		&g.NbPresentVideo, &g.NbPresentAudio, &g.NbPresentUnknown, &g.NbPresentSeen, &g.NbPresentExternal,
		&g.Duration, &created, &modified, &g.UserInteracted, &g.ForcedSingleton); err != nil {
		return nil, err
	}
	g.CreationDate = time.Unix(created, 0)
	g.LastModificationDate = time.Unix(modified, 0)
	return &g, nil
}

func scanMediaGroupRows(rows *sql.Rows) ([]*models.MediaGroup, error) {
	var out []*models.MediaGroup
	for rows.Next() {
		g, err := scanMediaGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Create inserts a MediaGroup with zeroed counters.
func (r *MediaGroupRepository) Create(ctx context.Context, name string, userInteracted, forcedSingleton bool) (*models.MediaGroup, error) {
	now := time.Now().Unix()
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO media_group(name, creation_date, last_modification_date, user_interacted, forced_singleton)
		VALUES (?, ?, ?, ?, ?)`,
		name, now, now, userInteracted, forcedSingleton)
	if err != nil {
		return nil, wrapErr(err, "create media group")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindMediaGroup, id)
	}
	return r.GetByID(ctx, id)
}

func (r *MediaGroupRepository) GetByID(ctx context.Context, id int64) (*models.MediaGroup, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM media_group WHERE id_group = ?`, mediaGroupColumns), id)
	return scanMediaGroup(row)
}

// Add moves media into the group. When the group is a forced singleton
// and this add comes from the user (not the auto-grouping pass), the
// singleton flag is cleared in the same transaction, per spec §4.6.
func (r *MediaGroupRepository) Add(ctx context.Context, groupID, mediaID int64, userInitiated bool) error {
	tx, txCtx, release, err := r.conn.Begin(ctx, r.logger)
	if err != nil {
		return err
	}
	defer release()
	defer tx.Rollback()

	if _, err := tx.ExecContext(txCtx, `UPDATE media SET group_id = ? WHERE id_media = ?`, groupID, mediaID); err != nil {
		return wrapErr(err, "assign media to group")
	}
	if userInitiated {
		if _, err := tx.ExecContext(txCtx, `
			UPDATE media_group SET forced_singleton = 0, user_interacted = 1 WHERE id_group = ? AND forced_singleton = 1`,
			groupID); err != nil {
			return wrapErr(err, "clear forced singleton")
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindMediaGroup, groupID)
		r.notifier.NotifyModified(notifier.KindMedia, mediaID)
	}
	return nil
}

// Remove takes media out of its group by creating a new
// forced-singleton group named after the media's title and reassigning
// the media there; the membership trigger decrements the previous
// group's counters (spec §4.6).
func (r *MediaGroupRepository) Remove(ctx context.Context, media *models.Media) (*models.MediaGroup, error) {
	singleton, err := r.Create(ctx, media.Title, false, true)
	if err != nil {
		return nil, err
	}
	if _, err := r.conn.ExecContext(ctx, `UPDATE media SET group_id = ? WHERE id_media = ?`, singleton.ID, media.ID); err != nil {
		return nil, wrapErr(err, "reassign media to singleton group")
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindMedia, media.ID)
		if media.GroupID != nil {
			r.notifier.NotifyModified(notifier.KindMediaGroup, *media.GroupID)
		}
	}
	return r.GetByID(ctx, singleton.ID)
}

// Rename sets the group's name and marks it user-interacted.
func (r *MediaGroupRepository) Rename(ctx context.Context, id int64, name string) error {
	_, err := r.conn.ExecContext(ctx, `
		UPDATE media_group SET name = ?, user_interacted = 1, last_modification_date = ? WHERE id_group = ?`,
		name, time.Now().Unix(), id)
	if err != nil {
		return wrapErr(err, "rename media group")
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindMediaGroup, id)
	}
	return nil
}

// groupingPrefix returns the first AutoGroupPrefixLength characters of
// title, lower-cased, with a leading "the " skipped.
func groupingPrefix(title string) string {
	stripped, _ := stripLeadingArticle(title)
	lower := strings.ToLower(stripped)
	if len(lower) > AutoGroupPrefixLength {
		return lower[:AutoGroupPrefixLength]
	}
	return lower
}

func stripLeadingArticle(s string) (string, bool) {
	if len(s) >= 4 && strings.EqualFold(s[:4], "the ") {
		return s[4:], true
	}
	return s, false
}

func commonPatternLength(a, b string) int {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	n := len(la)
	if len(lb) < n {
		n = len(lb)
	}
	i := 0
	for i < n && la[i] == lb[i] {
		i++
	}
	return i
}

// AssignToGroup implements spec §4.6's automatic grouping: compute the
// media title's prefix (ignoring a leading "The "), fetch candidate
// groups whose name matches that prefix case-insensitively, and pick
// the one yielding the longest common pattern with the title. With no
// candidate, a new group is created from the title minus its article.
// A winning group that was never user-interacted is renamed down to
// the common pattern when that pattern is shorter than its name.
func (r *MediaGroupRepository) AssignToGroup(ctx context.Context, media *models.Media) (*models.MediaGroup, error) {
	title, _ := stripLeadingArticle(media.Title)
	prefix := groupingPrefix(media.Title)
	if prefix == "" {
		return nil, fmt.Errorf("cannot derive grouping prefix from empty title")
	}

	rows, err := r.conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM media_group WHERE name LIKE ? || '%%' COLLATE NOCASE`, mediaGroupColumns), prefix)
	if err != nil {
		return nil, wrapErr(err, "list candidate groups")
	}
	candidates, err := scanMediaGroupRows(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	var best *models.MediaGroup
	bestLen := 0
	for _, g := range candidates {
		if l := commonPatternLength(g.Name, title); l > bestLen {
			best, bestLen = g, l
		}
	}

	if best == nil {
		created, err := r.Create(ctx, title, false, false)
		if err != nil {
			return nil, err
		}
		if err := r.Add(ctx, created.ID, media.ID, false); err != nil {
			return nil, err
		}
		return r.GetByID(ctx, created.ID)
	}

	if err := r.Add(ctx, best.ID, media.ID, false); err != nil {
		return nil, err
	}
	if !best.UserInteracted && bestLen < len(best.Name) {
		pattern := best.Name[:bestLen]
		if _, err := r.conn.ExecContext(ctx, `
			UPDATE media_group SET name = ?, last_modification_date = ? WHERE id_group = ?`,
			pattern, time.Now().Unix(), best.ID); err != nil {
			return nil, wrapErr(err, "shorten group name to common pattern")
		}
	}
	return r.GetByID(ctx, best.ID)
}

func mediaGroupSortColumn(sort query.SortCriterion) (string, query.SortCriterion) {
	switch sort {
	case query.SortDuration:
		return "duration", sort
	case query.SortInsertionDate:
		return "creation_date", sort
	case query.SortLastModificationDate:
		return "last_modification_date", sort
	case query.SortNbVideo:
		return "nb_video", sort
	case query.SortNbAudio:
		return "nb_audio", sort
	case query.SortNbMedia:
		return "nb_video + nb_audio + nb_unknown + nb_external", sort
	default:
		return "name", query.SortAlpha
	}
}

// ListAll lists groups holding at least one media of mediaType
// (nil = any), per spec §6's MediaGroup::listAll(type, params).
func (r *MediaGroupRepository) ListAll(mediaType *models.MediaType, params query.Parameters) *query.Query[*models.MediaGroup] {
	where := "WHERE 1=1"
	if mediaType != nil {
		switch *mediaType {
		case models.MediaTypeAudio:
			where += " AND nb_audio > 0"
		case models.MediaTypeVideo:
			where += " AND nb_video > 0"
		default:
			where += " AND nb_unknown > 0"
		}
	}
	orderBy := query.OrderByClause(params.Sort, params.Desc, mediaGroupSortColumn, r.logger)
	return query.New[*models.MediaGroup](r.conn, "media_group "+where, "id_group", orderBy, nil, scanMediaGroupRows, r.logger)
}

// Media lists the group's members.
func (r *MediaGroupRepository) Media(groupID int64, params query.Parameters) *query.Query[*models.Media] {
	orderBy := query.OrderByClause(params.Sort, params.Desc, mediaSortColumn, r.logger)
	return query.New[*models.Media](r.conn, fmt.Sprintf("media WHERE group_id = %d", groupID), "id_media", orderBy, nil, scanMediaRows, r.logger)
}
