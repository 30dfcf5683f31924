package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// StatementCache is a per-session prepared-statement cache keyed by SQL
// text (spec §4.2). The teacher issues ad-hoc db.ExecContext/
// QueryRowContext calls everywhere (repository/media_item_repository.go);
// this generalizes that into an explicit cache so repeated queries
// (every repository Create/GetByID call) reuse one prepared statement
// instead of re-preparing per call.
type StatementCache struct {
	db    *DB
	mu    sync.Mutex
	stmts map[string]*sql.Stmt
}

// NewStatementCache creates a cache bound to db. Callers should treat
// one cache per logical worker ("thread" in spec terms — a goroutine
// that owns a unit of work) and Close it when that worker exits, which
// evicts every cached statement per spec §4.2's thread-exit contract.
func (db *DB) NewStatementCache() *StatementCache {
	return &StatementCache{db: db, stmts: make(map[string]*sql.Stmt)}
}

func (c *StatementCache) get(ctx context.Context, query string) (*sql.Stmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stmt, ok := c.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare %q: %w", query, err)
	}
	c.stmts[query] = stmt
	return stmt, nil
}

// Exec runs query (cached) with retry-on-transient-error per §4.1.
func (c *StatementCache) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	query = c.db.dialect.rewrite(query)
	return withRetry(ctx, func() (sql.Result, error) {
		stmt, err := c.get(ctx, query)
		if err != nil {
			return nil, err
		}
		return stmt.ExecContext(ctx, args...)
	})
}

// QueryRow runs query (cached) and returns a single row.
func (c *StatementCache) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	query = c.db.dialect.rewrite(query)
	stmt, err := c.get(ctx, query)
	if err != nil {
		// sql.Row has no public constructor for an error; fall back to
		// the unprepared path so the error still surfaces on Scan.
		return c.db.QueryRowContext(ctx, query, args...)
	}
	return stmt.QueryRowContext(ctx, args...)
}

// Query runs query (cached) and returns the row set.
func (c *StatementCache) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	query = c.db.dialect.rewrite(query)
	stmt, err := c.get(ctx, query)
	if err != nil {
		return nil, err
	}
	var rows *sql.Rows
	_, err = withRetry(ctx, func() (struct{}, error) {
		var e error
		rows, e = stmt.QueryContext(ctx, args...)
		return struct{}{}, e
	})
	return rows, err
}

// Close evicts and closes every cached statement, per spec §4.2's
// thread-exit eviction contract.
func (c *StatementCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for q, stmt := range c.stmts {
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.stmts, q)
	}
	return firstErr
}

// rewrite applies dialect-specific rewriting (placeholder style,
// INSERT OR IGNORE/REPLACE, boolean literals).
func (d *Dialect) rewrite(query string) string {
	query = d.RewriteInsertOrIgnore(query)
	query = d.RewriteInsertOrReplace(query)
	query = d.RewriteBooleanLiterals(query)
	return d.RewritePlaceholders(query)
}

// InsertReturningID executes an INSERT and returns the new row's ID,
// using RETURNING for Postgres and LastInsertId for SQLite. Grounded on
// the teacher's TxInsertReturningID (database/tx_helpers.go).
func (db *DB) InsertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	query = db.dialect.rewrite(query)
	if db.dialect.IsPostgres() {
		query += " RETURNING id"
		var id int64
		_, err := withRetry(ctx, func() (struct{}, error) {
			return struct{}{}, db.QueryRowContext(ctx, query, args...).Scan(&id)
		})
		return id, err
	}
	result, err := withRetry(ctx, func() (sql.Result, error) {
		return db.ExecContext(ctx, query, args...)
	})
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// TxInsertReturningID mirrors InsertReturningID but operates on an
// already-open *sql.Tx (no retry: the caller owns the surrounding
// transaction's retry/rollback policy).
func (db *DB) TxInsertReturningID(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) (int64, error) {
	query = db.dialect.rewrite(query)
	if db.dialect.IsPostgres() {
		query += " RETURNING id"
		var id int64
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}
