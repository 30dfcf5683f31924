package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/notifier"
	"github.com/catalogizer/medialibrary/query"
	"go.uber.org/zap"
)

// LabelRepository implements the Label contracts of spec §3/§4.6: a
// UNIQUE-named tag with an M:N relation to Media. Re-attaching an
// existing label is the canonical idempotent-constraint case of spec
// §7, absorbed here rather than propagated.
type LabelRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewLabelRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *LabelRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelRepository{conn: conn, notifier: n, logger: logger}
}

const labelColumns = `id_label, name`

func scanLabel(row interface{ Scan(...interface{}) error }) (*models.Label, error) {
	var l models.Label
	if err := row.Scan(&l.ID, &l.Name); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanLabelRows(rows *sql.Rows) ([]*models.Label, error) {
	var out []*models.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetOrCreate finds a label by name, creating one if absent.
func (r *LabelRepository) GetOrCreate(ctx context.Context, name string) (*models.Label, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM label WHERE name = ?`, labelColumns), name)
	existing, err := scanLabel(row)
	if err == nil {
		return existing, nil
	}
	if !notFound(err) {
		return nil, err
	}
	id, err := r.conn.InsertReturningID(ctx, `INSERT INTO label(name) VALUES (?)`, name)
	if isIdempotentConstraintError(err) {
		row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM label WHERE name = ?`, labelColumns), name)
		return scanLabel(row)
	}
	if err != nil {
		return nil, wrapErr(err, "create label")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindLabel, id)
	}
	return &models.Label{ID: id, Name: name}, nil
}

// Attach links the label to mediaID. A duplicate attach succeeds
// silently.
func (r *LabelRepository) Attach(ctx context.Context, labelID, mediaID int64) error {
	_, err := r.conn.ExecContext(ctx, `INSERT INTO label_file_relation(label_id, media_id) VALUES (?, ?)`, labelID, mediaID)
	if isIdempotentConstraintError(err) {
		return nil
	}
	return wrapErr(err, "attach label")
}

// Detach unlinks the label from mediaID.
func (r *LabelRepository) Detach(ctx context.Context, labelID, mediaID int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM label_file_relation WHERE label_id = ? AND media_id = ?`, labelID, mediaID)
	return wrapErr(err, "detach label")
}

// MediaOf lists the media tagged with labelID.
func (r *LabelRepository) MediaOf(labelID int64, params query.Parameters) *query.Query[*models.Media] {
	orderBy := query.OrderByClause(params.Sort, params.Desc, mediaSortColumn, r.logger)
	listSQL := fmt.Sprintf(`SELECT %s FROM media JOIN label_file_relation rel ON rel.media_id = media.id_media
		WHERE rel.label_id = ? %s`, qualifyColumns(mediaColumns, "media"), orderBy)
	countSQL := `SELECT COUNT(*) FROM label_file_relation WHERE label_id = ?`
	return query.NewExplicit[*models.Media](r.conn, listSQL, countSQL, []interface{}{labelID}, scanMediaRows, r.logger)
}

// LabelsOf lists the labels attached to mediaID.
func (r *LabelRepository) LabelsOf(ctx context.Context, mediaID int64) ([]*models.Label, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT label.id_label, label.name FROM label
		JOIN label_file_relation rel ON rel.label_id = label.id_label
		WHERE rel.media_id = ? ORDER BY label.name`, mediaID)
	if err != nil {
		return nil, wrapErr(err, "list media labels")
	}
	defer rows.Close()
	return scanLabelRows(rows)
}

// Delete removes the label everywhere; relation rows cascade.
func (r *LabelRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM label WHERE id_label = ?`, id)
	if err != nil {
		return wrapErr(err, "delete label")
	}
	if r.notifier != nil {
		r.notifier.NotifyRemoved(notifier.KindLabel, id)
	}
	return nil
}
