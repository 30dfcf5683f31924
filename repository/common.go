// Package repository is the entity layer of spec §4.6: one type per
// entity (or tight entity family) wrapping the transactional SQL that
// implements its behavioral contracts, notifying the notifier package
// from most of its create/modify/delete methods. Grounded on the teacher's
// models/media.go + repository/media_item_repository.go split — a
// plain struct package (models) plus a repository package holding the
// *db.DB and every query — generalized to cover every entity in spec
// §3 and the mutating contracts of spec §4.6 (Album.AddTrack,
// Playlist.Add/Move/CurateNullMediaID, MediaGroup.AssignToGroup,
// Folder.Ban, Thumbnail.UpdateOrReplace, Subscription.UncachedMedia/
// Refresh, Media.SetLastPosition classification, etc).
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/dberr"
)

// nullInt64 binds NULL on zero via the db.ForeignKey trait.
func nullInt64(v int64) interface{} {
	return db.ForeignKey(v)
}

// nullString binds NULL on empty via the db.NullableString trait.
func nullString(s string) interface{} {
	return db.NullableString(s)
}

func ptrInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func ptrInt32(v *int32) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func ptrString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func ptrTime(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return v.Unix()
}

func scanNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func scanNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

// isIdempotentConstraintError reports a Unique violation that the
// caller should absorb instead of propagating (spec §4.6/§7: "label
// attach, subtitle link, bookmark re-add").
func isIdempotentConstraintError(err error) bool {
	return err != nil && dberr.IsIdempotentConstraint(dberr.Classify(err))
}

// wrapErr classifies a raw driver error into the dberr taxonomy and
// attaches a short operation label for diagnostics.
func wrapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	classified := dberr.Classify(err)
	if e, ok := classified.(*dberr.Error); ok && e.Message == "" {
		e.Message = op
		return e
	}
	return classified
}

// notFound reports whether err is sql.ErrNoRows, the repository
// layer's "entity absent" signal.
func notFound(err error) bool {
	return err == sql.ErrNoRows
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
