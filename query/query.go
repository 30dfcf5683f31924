// Package query implements the lazy, countable, paginated query
// handle of spec §4.4, and the SortCriterion enumeration that
// parameterizes every per-entity listing. Grounded on the teacher's
// GetByType/Search pagination pattern
// (repository/media_item_repository.go: a countQuery plus a listing
// query, both rebuilt per call) generalized into a reusable type
// instead of one hand-copied pair per repository method.
package query

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// SortCriterion is the closed enumeration of spec §4.4.
type SortCriterion int

const (
	SortDefault SortCriterion = iota
	SortAlpha
	SortDuration
	SortInsertionDate
	SortLastModificationDate
	SortReleaseDate
	SortTrackNumber
	SortPlayCount
	SortFilename
	SortLastPlaybackDate
	SortNbAlbum
	SortNbMedia
	SortNbAudio
	SortNbVideo
)

// descByDefault lists the criteria that sort most-to-least by default
// (spec §4.4: "some criteria swap the effective direction").
var descByDefault = map[SortCriterion]bool{
	SortNbVideo:           true,
	SortNbAudio:           true,
	SortNbMedia:           true,
	SortNbAlbum:           true,
	SortPlayCount:         true,
	SortLastPlaybackDate:  true,
	SortInsertionDate:     true,
	SortLastModificationDate: true,
	SortReleaseDate:       true,
}

// EffectiveDescending applies the descending flag on top of the
// criterion's natural default direction.
func EffectiveDescending(sort SortCriterion, desc bool) bool {
	if descByDefault[sort] {
		return !desc
	}
	return desc
}

// ColumnMapper maps a SortCriterion to a column expression for one
// entity, falling back to the entity's own Default (usually Alpha) for
// criteria it doesn't support. OrderByClause logs the "unsupported sort,
// falling back" warning when the resolved criterion differs.
type ColumnMapper func(sort SortCriterion) (column string, resolved SortCriterion)

// Parameters mirrors spec §6's QueryParameters.
type Parameters struct {
	Sort           SortCriterion
	Desc           bool
	IncludeMissing bool
	PublicOnly     bool
	FavoriteOnly   bool
}

// Scanner converts a *sql.Rows cursor into a slice of T.
type Scanner[T any] func(rows *sql.Rows) ([]T, error)

// Query is the lazy, countable, paginated handle of spec §4.4.
// Template-composed queries build countSQL automatically from base;
// explicit-counted queries (NewExplicit) supply an independent count
// query for listings whose joins would make a derived count expensive
// or wrong.
type Query[T any] struct {
	db       Queryer
	listSQL  string
	countSQL string
	args     []interface{}
	scan     Scanner[T]
	logger   *zap.Logger
}

// Queryer is the subset of *sql.DB / *sql.Tx / *db.DB a Query needs.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// New builds a template-composed query: countSQL is derived as
// "SELECT COUNT(DISTINCT <primaryKey>) FROM <base>" per spec §4.4.
func New[T any](db Queryer, base, primaryKeyExpr, groupAndOrderBy string, args []interface{}, scan Scanner[T], logger *zap.Logger) *Query[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Query[T]{
		db:       db,
		listSQL:  fmt.Sprintf("SELECT * FROM %s %s", base, groupAndOrderBy),
		countSQL: fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s", primaryKeyExpr, base),
		args:     args,
		scan:     scan,
		logger:   logger,
	}
}

// NewExplicit builds an explicit-counted query from independent
// listing and counting SQL, per spec §4.4's "Explicit-counted" flavor.
func NewExplicit[T any](db Queryer, listSQL, countSQL string, args []interface{}, scan Scanner[T], logger *zap.Logger) *Query[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Query[T]{db: db, listSQL: listSQL, countSQL: countSQL, args: args, scan: scan, logger: logger}
}

// Count runs the count query. Parameters are rebound fresh each call,
// per spec §4.4 ("rebound on every execution").
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, q.countSQL, q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return n, nil
}

// Items returns a page of results. limit==0 && offset==0 is treated as
// "all" per spec §4.4.
func (q *Query[T]) Items(ctx context.Context, limit, offset int) ([]T, error) {
	if limit == 0 && offset == 0 {
		return q.All(ctx)
	}
	sqlText := fmt.Sprintf("%s LIMIT ? OFFSET ?", q.listSQL)
	args := append(append([]interface{}{}, q.args...), limit, offset)
	rows, err := q.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("items query: %w", err)
	}
	defer rows.Close()
	return q.scan(rows)
}

// All returns every matching row, unpaginated.
func (q *Query[T]) All(ctx context.Context) ([]T, error) {
	rows, err := q.db.QueryContext(ctx, q.listSQL, q.args...)
	if err != nil {
		return nil, fmt.Errorf("all query: %w", err)
	}
	defer rows.Close()
	return q.scan(rows)
}

// OrderByClause renders "ORDER BY <col> ASC|DESC" for a mapped
// criterion, logging a warning (per spec §4.4) when the entity's
// mapper had to fall back to its own default.
func OrderByClause(requested SortCriterion, desc bool, mapper ColumnMapper, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	column, resolved := mapper(requested)
	if resolved != requested && requested != SortDefault {
		logger.Warn("unsupported sort criterion, falling back to entity default",
			zap.Int("requested", int(requested)), zap.Int("resolved", int(resolved)))
	}
	direction := "ASC"
	if EffectiveDescending(resolved, desc) {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", column, direction)
}

// PublicOnlyColumn appends a TRUE literal column so the entity
// constructor knows to expose only public surface, per spec §4.4's
// "public only" marker.
const PublicOnlyColumn = "1 AS is_public_view"
