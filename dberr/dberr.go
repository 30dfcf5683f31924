// Package dberr maps backend SQL error codes onto a typed taxonomy and
// classifies each as innocuous-for-retry, transient, or fatal.
package dberr

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Kind identifies a class of database error, independent of backend.
type Kind int

const (
	KindGeneric Kind = iota
	KindConstraintCheck
	KindConstraintForeignKey
	KindConstraintNotNull
	KindConstraintPrimaryKey
	KindConstraintRowID
	KindConstraintUnique
	KindBusy
	KindLocked
	KindReadOnly
	KindIO
	KindCorrupt
	KindFull
	KindProtocol
	KindSchemaChanged
	KindTypeMismatch
	KindLibMisuse
	KindColumnOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindConstraintCheck:
		return "ConstraintCheck"
	case KindConstraintForeignKey:
		return "ConstraintForeignKey"
	case KindConstraintNotNull:
		return "ConstraintNotNull"
	case KindConstraintPrimaryKey:
		return "ConstraintPrimaryKey"
	case KindConstraintRowID:
		return "ConstraintRowID"
	case KindConstraintUnique:
		return "ConstraintUnique"
	case KindBusy:
		return "Busy"
	case KindLocked:
		return "Locked"
	case KindReadOnly:
		return "ReadOnly"
	case KindIO:
		return "IO"
	case KindCorrupt:
		return "Corrupt"
	case KindFull:
		return "Full"
	case KindProtocol:
		return "Protocol"
	case KindSchemaChanged:
		return "SchemaChanged"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindLibMisuse:
		return "LibMisuse"
	case KindColumnOutOfRange:
		return "ColumnOutOfRange"
	default:
		return "Generic"
	}
}

// Error is the typed error raised by the db/query/schema/repository
// layers in place of a raw driver error.
type Error struct {
	Kind    Kind
	Code    string // backend-native code, for diagnostics
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Message, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps a plain message as a fatal Generic error.
func New(msg string) error {
	return &Error{Kind: KindGeneric, Message: msg}
}

// ErrColumnOutOfRange is the typed error for a column index past the
// last column; no accessor in this module returns it.
var ErrColumnOutOfRange = &Error{Kind: KindColumnOutOfRange, Message: "column index out of range"}

// ErrLibMisuse is returned for programmer errors such as nested transactions.
var ErrLibMisuse = &Error{Kind: KindLibMisuse, Message: "library misuse"}

// Is reports whether err classifies as the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// sqliteExtendedCodeKind maps the extended result codes emitted by
// SQLite (surfaced identically by mattn/go-sqlite3 and the sqlcipher
// driver, since the latter embeds the former's C shim) onto Kind.
// Codes follow sqlite3.h's SQLITE_* numbering: primary code = low byte,
// extended code = primary | (detail << 8).
func sqliteExtendedCodeKind(primary, extended int) Kind {
	switch primary {
	case 5: // SQLITE_BUSY
		return KindBusy
	case 6: // SQLITE_LOCKED
		return KindLocked
	case 8: // SQLITE_READONLY
		return KindReadOnly
	case 10: // SQLITE_IOERR
		return KindIO
	case 11: // SQLITE_CORRUPT
		return KindCorrupt
	case 13: // SQLITE_FULL
		return KindFull
	case 17: // SQLITE_SCHEMA
		return KindSchemaChanged
	case 20: // SQLITE_MISMATCH
		return KindTypeMismatch
	case 21: // SQLITE_MISUSE
		return KindLibMisuse
	case 19: // SQLITE_CONSTRAINT
		switch extended {
		case 19 | (1 << 8): // SQLITE_CONSTRAINT_CHECK
			return KindConstraintCheck
		case 19 | (3 << 8): // SQLITE_CONSTRAINT_FOREIGNKEY
			return KindConstraintForeignKey
		case 19 | (5 << 8): // SQLITE_CONSTRAINT_NOTNULL
			return KindConstraintNotNull
		case 19 | (6 << 8): // SQLITE_CONSTRAINT_PRIMARYKEY
			return KindConstraintPrimaryKey
		case 19 | (10 << 8): // SQLITE_CONSTRAINT_ROWID
			return KindConstraintRowID
		case 19 | (8 << 8): // SQLITE_CONSTRAINT_UNIQUE
			return KindConstraintUnique
		default:
			return KindConstraintUnique
		}
	default:
		return KindGeneric
	}
}

// Classify converts a raw driver error into *Error. Unrecognized errors
// are wrapped as KindGeneric (fatal).
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}

	if pqErr, ok := err.(*pq.Error); ok {
		return classifyPostgres(pqErr)
	}

	if code, extCode, msg, ok := sqliteCodes(err); ok {
		return &Error{
			Kind:    sqliteExtendedCodeKind(code, extCode),
			Code:    fmt.Sprintf("%d/%d", code, extCode),
			Message: msg,
			Cause:   err,
		}
	}

	return &Error{Kind: KindGeneric, Message: "unclassified database error", Cause: err}
}

func classifyPostgres(e *pq.Error) error {
	kind := KindGeneric
	switch e.Code.Class() {
	case "23": // integrity constraint violation
		switch e.Code {
		case "23502":
			kind = KindConstraintNotNull
		case "23503":
			kind = KindConstraintForeignKey
		case "23505":
			kind = KindConstraintUnique
		case "23514":
			kind = KindConstraintCheck
		default:
			kind = KindConstraintUnique
		}
	case "40": // transaction rollback (serialization failures etc.)
		kind = KindBusy
	case "53": // insufficient resources
		kind = KindFull
	case "58": // system error (I/O)
		kind = KindIO
	}
	return &Error{Kind: kind, Code: string(e.Code), Message: e.Message, Cause: e}
}

// IsTransient reports whether the statement layer should retry the
// operation (up to ten times per §4.1) rather than propagate.
func IsTransient(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindBusy, KindLocked, KindReadOnly, KindIO, KindFull:
		return true
	default:
		return false
	}
}

// RequiresDBReset reports fatal corruption that the caller should
// surface as InitializeResult.DbCorrupted.
func RequiresDBReset(err error) bool {
	return Is(err, KindCorrupt)
}

// IsIdempotentConstraint reports a Unique violation, which entity-layer
// callers are expected to absorb for idempotent inserts (label attach,
// subtitle link, bookmark re-add).
func IsIdempotentConstraint(err error) bool {
	return Is(err, KindConstraintUnique)
}
