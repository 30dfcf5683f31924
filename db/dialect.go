package db

import (
	"fmt"
	"regexp"
	"strings"
)

// DialectType identifies the SQL dialect in use.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// Dialect rewrites the catalog's SQLite-shaped SQL for the Postgres
// backend. The sqlite path returns every query unchanged, so the
// rewrite cost is only paid by deployments that externalize the
// database.
type Dialect struct {
	Type DialectType
}

// RewritePlaceholders converts ? placeholders to $1, $2, ... for
// PostgreSQL, leaving question marks inside string literals alone.
func (d *Dialect) RewritePlaceholders(query string) string {
	if d.Type != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 32)
	n := 0
	inSingleQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			inSingleQuote = !inSingleQuote
			b.WriteByte(ch)
			continue
		}
		if ch == '?' && !inSingleQuote {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// RewriteInsertOrIgnore converts "INSERT OR IGNORE INTO ..." to
// "INSERT INTO ... ON CONFLICT DO NOTHING" for PostgreSQL.
func (d *Dialect) RewriteInsertOrIgnore(query string) string {
	if d.Type != DialectPostgres {
		return query
	}
	upper := strings.ToUpper(query)
	if idx := strings.Index(upper, "INSERT OR IGNORE INTO"); idx != -1 {
		prefix := query[:idx]
		rest := query[idx+len("INSERT OR IGNORE INTO"):]
		return prefix + "INSERT INTO" + rest + " ON CONFLICT DO NOTHING"
	}
	return query
}

// RewriteInsertOrReplace strips the OR REPLACE qualifier for
// PostgreSQL; callers that need upsert semantics there carry an
// explicit ON CONFLICT clause.
func (d *Dialect) RewriteInsertOrReplace(query string) string {
	if d.Type != DialectPostgres {
		return query
	}
	upper := strings.ToUpper(query)
	if idx := strings.Index(upper, "INSERT OR REPLACE INTO"); idx != -1 {
		prefix := query[:idx]
		rest := query[idx+len("INSERT OR REPLACE INTO"):]
		return prefix + "INSERT INTO" + rest
	}
	return query
}

// AutoIncrement returns the auto-increment primary key clause.
func (d *Dialect) AutoIncrement() string {
	if d.Type == DialectPostgres {
		return "SERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// boolColumnPattern matches the catalog's boolean columns compared
// against an integer literal, so 0/1 comparisons can be rewritten to
// TRUE/FALSE for PostgreSQL BOOLEAN columns.
var boolColumnPattern = regexp.MustCompile(
	`(?i)\b(is_favorite|is_present|is_removable|is_network|is_banned|is_external|is_owned|` +
		`forced_title|forced_singleton|user_interacted|auto_cache_handled)\s*=\s*([01])\b`)

// RewriteBooleanLiterals converts "column = 0" to "column = FALSE" and
// "column = 1" to "column = TRUE" for the known boolean columns.
// SQLite queries are returned unchanged.
func (d *Dialect) RewriteBooleanLiterals(query string) string {
	if d.Type != DialectPostgres {
		return query
	}
	return boolColumnPattern.ReplaceAllStringFunc(query, func(match string) string {
		if strings.HasSuffix(strings.TrimSpace(match), "1") {
			return boolColumnPattern.ReplaceAllString(match, "${1} = TRUE")
		}
		return boolColumnPattern.ReplaceAllString(match, "${1} = FALSE")
	})
}

// IsSQLite returns true if the dialect is SQLite.
func (d *Dialect) IsSQLite() bool {
	return d.Type == DialectSQLite
}

// IsPostgres returns true if the dialect is PostgreSQL.
func (d *Dialect) IsPostgres() bool {
	return d.Type == DialectPostgres
}
