package dberr

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	sqlite3 "github.com/mutecomm/go-sqlcipher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySQLite(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, KindBusy},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, KindLocked},
		{"readonly", sqlite3.Error{Code: sqlite3.ErrReadonly}, KindReadOnly},
		{"ioerr", sqlite3.Error{Code: sqlite3.ErrIoErr}, KindIO},
		{"corrupt", sqlite3.Error{Code: sqlite3.ErrCorrupt}, KindCorrupt},
		{"full", sqlite3.Error{Code: sqlite3.ErrFull}, KindFull},
		{"schema changed", sqlite3.Error{Code: sqlite3.ErrSchema}, KindSchemaChanged},
		{"misuse", sqlite3.Error{Code: sqlite3.ErrMisuse}, KindLibMisuse},
		{"unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, KindConstraintUnique},
		{"foreign key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, KindConstraintForeignKey},
		{"not null", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, KindConstraintNotNull},
		{"check", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}, KindConstraintCheck},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify(tt.err)
			var e *Error
			require.True(t, errors.As(classified, &e))
			assert.Equal(t, tt.wantKind, e.Kind)
		})
	}
}

func TestClassifyPostgres(t *testing.T) {
	classified := Classify(&pq.Error{Code: "23505", Message: "duplicate key"})
	assert.True(t, Is(classified, KindConstraintUnique))

	classified = Classify(&pq.Error{Code: "40001"})
	assert.True(t, Is(classified, KindBusy))
}

func TestClassifyPassthroughAndUnknown(t *testing.T) {
	orig := &Error{Kind: KindCorrupt, Message: "already typed"}
	assert.Same(t, orig, Classify(orig).(*Error))

	classified := Classify(errors.New("mystery"))
	assert.True(t, Is(classified, KindGeneric))
	assert.Nil(t, Classify(nil))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(Classify(sqlite3.Error{Code: sqlite3.ErrBusy})))
	assert.True(t, IsTransient(Classify(sqlite3.Error{Code: sqlite3.ErrFull})))
	assert.False(t, IsTransient(Classify(sqlite3.Error{Code: sqlite3.ErrCorrupt})))
	assert.False(t, IsTransient(errors.New("raw")))
}

func TestRequiresDBReset(t *testing.T) {
	assert.True(t, RequiresDBReset(Classify(sqlite3.Error{Code: sqlite3.ErrCorrupt})))
	assert.False(t, RequiresDBReset(Classify(sqlite3.Error{Code: sqlite3.ErrBusy})))
}

func TestIsIdempotentConstraint(t *testing.T) {
	unique := Classify(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})
	fk := Classify(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey})
	assert.True(t, IsIdempotentConstraint(unique))
	assert.False(t, IsIdempotentConstraint(fk))
}
