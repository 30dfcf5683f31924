package db

import (
	"database/sql/driver"
	"fmt"
)

// Bind traits (spec §4.2): small driver.Valuer wrappers expressing the
// binding conventions the entity layer relies on, instead of ad-hoc
// nil checks at every call site. database/sql accepts a driver.Valuer
// anywhere a plain value is accepted, so these compose with the
// statement cache and with plain *sql.DB/*sql.Tx calls alike.

// ForeignKey binds NULL when the id is zero, the convention for
// optional references whose host-side sentinel is 0.
type ForeignKey int64

func (fk ForeignKey) Value() (driver.Value, error) {
	if fk == 0 {
		return nil, nil
	}
	return int64(fk), nil
}

// NullableString binds NULL when empty.
type NullableString string

func (s NullableString) Value() (driver.Value, error) {
	if s == "" {
		return nil, nil
	}
	return string(s), nil
}

// NullableInt binds NULL when the pointer is nil.
type NullableInt struct{ V *int64 }

func (n NullableInt) Value() (driver.Value, error) {
	if n.V == nil {
		return nil, nil
	}
	return *n.V, nil
}

// Enum binds a host enumeration as its underlying integer.
func Enum[T ~int | ~int32 | ~int64](v T) int64 { return int64(v) }

// ExpandTuple flattens nested argument slices recursively, the
// recursive-tuple bind of spec §4.2: a caller composing a fixed prefix
// with a variable set of ids passes them as one nested slice.
func ExpandTuple(args ...interface{}) []interface{} {
	out := make([]interface{}, 0, len(args))
	for _, a := range args {
		if inner, ok := a.([]interface{}); ok {
			out = append(out, ExpandTuple(inner...)...)
			continue
		}
		out = append(out, a)
	}
	return out
}

// Placeholders renders "?, ?, ..." for n bound values.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

// InClause renders "col IN (?, ?, ...)" plus the expanded args.
func InClause(col string, ids []int64) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf("%s IN (%s)", col, Placeholders(len(ids))), args
}
