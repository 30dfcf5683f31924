package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewritePlaceholders(t *testing.T) {
	pg := &Dialect{Type: DialectPostgres}
	lite := &Dialect{Type: DialectSQLite}

	assert.Equal(t, "SELECT * FROM media WHERE id_media = $1 AND type = $2",
		pg.RewritePlaceholders("SELECT * FROM media WHERE id_media = ? AND type = ?"))
	assert.Equal(t, "SELECT * FROM media WHERE id_media = ?",
		lite.RewritePlaceholders("SELECT * FROM media WHERE id_media = ?"))
	// Question marks inside string literals stay untouched.
	assert.Equal(t, "SELECT '?' , $1", pg.RewritePlaceholders("SELECT '?' , ?"))
}

func TestRewriteInsertOrIgnore(t *testing.T) {
	pg := &Dialect{Type: DialectPostgres}
	got := pg.RewriteInsertOrIgnore("INSERT OR IGNORE INTO label(name) VALUES (?)")
	assert.Equal(t, "INSERT INTO label(name) VALUES (?) ON CONFLICT DO NOTHING", got)

	lite := &Dialect{Type: DialectSQLite}
	assert.Equal(t, "INSERT OR IGNORE INTO label(name) VALUES (?)",
		lite.RewriteInsertOrIgnore("INSERT OR IGNORE INTO label(name) VALUES (?)"))
}

func TestRewriteBooleanLiterals(t *testing.T) {
	pg := &Dialect{Type: DialectPostgres}
	assert.Equal(t, "SELECT * FROM media WHERE is_favorite = TRUE",
		pg.RewriteBooleanLiterals("SELECT * FROM media WHERE is_favorite = 1"))
	assert.Equal(t, "SELECT * FROM media WHERE is_favorite = FALSE",
		pg.RewriteBooleanLiterals("SELECT * FROM media WHERE is_favorite = 0"))
	// Non-boolean columns are left alone.
	assert.Equal(t, "SELECT * FROM media WHERE type = 1",
		pg.RewriteBooleanLiterals("SELECT * FROM media WHERE type = 1"))
}

func TestAutoIncrement(t *testing.T) {
	assert.Equal(t, "SERIAL PRIMARY KEY", (&Dialect{Type: DialectPostgres}).AutoIncrement())
	assert.Equal(t, "INTEGER PRIMARY KEY AUTOINCREMENT", (&Dialect{Type: DialectSQLite}).AutoIncrement())
}
