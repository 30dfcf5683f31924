package repository

import (
	"database/sql"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/query"
	"go.uber.org/zap"
)

// VideoGroupRepository exposes the derived VideoGroup view of spec §3:
// a grouping over present Video media by case-insensitive leading
// prefix, computed at query time with the VIDEO_GROUP_AGGREGATE window
// function every connection installs at open (db/videogroup.go). There
// is no backing table; the view is recomputed per query.
type VideoGroupRepository struct {
	conn   *db.DB
	logger *zap.Logger
}

func NewVideoGroupRepository(conn *db.DB, logger *zap.Logger) *VideoGroupRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoGroupRepository{conn: conn, logger: logger}
}

func scanVideoGroupRows(rows *sql.Rows) ([]*models.VideoGroup, error) {
	var out []*models.VideoGroup
	for rows.Next() {
		var g models.VideoGroup
		if err := rows.Scan(&g.Prefix, &g.NbMedia); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

func videoGroupSortColumn(sort query.SortCriterion) (string, query.SortCriterion) {
	switch sort {
	case query.SortNbVideo, query.SortNbMedia:
		return "nb_media", query.SortNbVideo
	default:
		return "prefix", query.SortAlpha
	}
}

// ListAll groups present Video media by their grouping prefix and
// folds each bucket's titles through VIDEO_GROUP_AGGREGATE.
func (r *VideoGroupRepository) ListAll(prefixLength int, params query.Parameters) *query.Query[*models.VideoGroup] {
	if prefixLength <= 0 {
		prefixLength = AutoGroupPrefixLength
	}
	orderBy := query.OrderByClause(params.Sort, params.Desc, videoGroupSortColumn, r.logger)
	listSQL := `SELECT VIDEO_GROUP_AGGREGATE(title) AS prefix, COUNT(*) AS nb_media
		FROM media WHERE type = 2 AND is_present = 1
		GROUP BY LOWER(SUBSTR(CASE WHEN LOWER(title) LIKE 'the %' THEN SUBSTR(title, 5) ELSE title END, 1, ?)) ` + orderBy
	countSQL := `SELECT COUNT(DISTINCT LOWER(SUBSTR(CASE WHEN LOWER(title) LIKE 'the %' THEN SUBSTR(title, 5) ELSE title END, 1, ?)))
		FROM media WHERE type = 2 AND is_present = 1`
	return query.NewExplicit[*models.VideoGroup](r.conn, listSQL, countSQL, []interface{}{prefixLength}, scanVideoGroupRows, r.logger)
}
