package dberr

import (
	"errors"

	sqlite3 "github.com/mutecomm/go-sqlcipher"
)

// sqliteCodes extracts the primary and extended SQLite result codes
// from a driver error produced by the sqlcipher driver (a drop-in fork
// of mattn/go-sqlite3 that reuses its sqlite3.Error type).
func sqliteCodes(err error) (code int, extCode int, msg string, ok bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return 0, 0, "", false
	}
	return int(sqliteErr.Code), int(sqliteErr.ExtendedCode), sqliteErr.Error(), true
}
