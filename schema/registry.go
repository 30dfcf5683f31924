// Package schema is the schema/trigger/index registry and migration
// machinery of spec §4.5 and §4.7: for every entity, the exact
// CREATE TABLE/VIEW/INDEX/TRIGGER text for the current model version
// (plus the handful of historical versions exercised by migration
// tests), used both to create fresh databases and to verify, at
// startup, that every live schema object matches its registry form.
// Grounded on the teacher's createInitialTables/createAuthTables/
// createSubtitleTables per-migration-function pattern
// (database/migrations.go, database/migrations_sqlite.go), but kept as
// per-object-kind Go functions (tables, indexes, triggers) taking the
// model version, instead of a generic versioned query builder, per
// spec §9's "Model-version dispatch" design note.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/catalogizer/medialibrary/db"
)

// CurrentModelVersion is the schema version this build of the registry
// targets. Spec §2 describes "37+ schema versions with in-place
// migrations"; this build carries the chain through 37.
const CurrentModelVersion = 37

// object is one named schema item (table, view, index, or trigger).
type object struct {
	kind string // "table", "view", "index", "trigger"
	name string
	sql  string
}

// Registry exposes the per-version schema text for every entity.
type Registry struct{}

// NewRegistry returns the registry. It carries no state: every method
// is a pure function of (entity, version).
func NewRegistry() *Registry { return &Registry{} }

// Objects returns every schema object defined at schemaVersion, in
// creation order (tables before the triggers/indexes that reference
// them).
func (r *Registry) Objects(schemaVersion int) []object {
	var objs []object
	objs = append(objs, coreTables(schemaVersion)...)
	objs = append(objs, derivedTables(schemaVersion)...)
	objs = append(objs, ftsTables(schemaVersion)...)
	objs = append(objs, indexes(schemaVersion)...)
	objs = append(objs, triggers(schemaVersion)...)
	return objs
}

// CreateSchema issues every CREATE statement for schemaVersion against
// a fresh database, in dependency order.
func (r *Registry) CreateSchema(ctx context.Context, conn *db.DB, schemaVersion int) error {
	for _, obj := range r.Objects(schemaVersion) {
		if _, err := conn.ExecContext(ctx, obj.sql); err != nil {
			return fmt.Errorf("create %s %s: %w", obj.kind, obj.name, err)
		}
	}
	return seedSentinelArtists(ctx, conn)
}

// seedSentinelArtists inserts the UnknownArtist/VariousArtists rows at
// table-creation time, per spec §3/§4.6 ("Two sentinel rows exist...,
// never auto-deleted").
func seedSentinelArtists(ctx context.Context, conn *db.DB) error {
	_, err := conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO artist(id_artist, name, nb_albums, nb_tracks, nb_present_tracks, is_favorite)
		VALUES (1, '[Unknown Artist]', 0, 0, 0, 0), (2, '[Various Artists]', 0, 0, 0, 0)`)
	return err
}

// VerifyAgainstRegistry checks that every live schema object's SQL, as
// recorded by sqlite_master, matches the registry's text for the
// Settings-recorded model version (spec §4.5's startup integrity
// check). A mismatch is reported as an error naming the offending
// object; callers treat this as fatal and ask for recovery.
func (r *Registry) VerifyAgainstRegistry(ctx context.Context, conn *db.DB, schemaVersion int) error {
	live := make(map[string]string)
	rows, err := conn.QueryContext(ctx, `SELECT type, name, sql FROM sqlite_master WHERE sql IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("read sqlite_master: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, name, text string
		if err := rows.Scan(&kind, &name, &text); err != nil {
			return err
		}
		live[kind+":"+name] = normalizeSQL(text)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var mismatches []string
	for _, obj := range r.Objects(schemaVersion) {
		key := obj.kind + ":" + obj.name
		liveSQL, ok := live[key]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s missing from live schema", key))
			continue
		}
		if liveSQL != normalizeSQL(obj.sql) {
			mismatches = append(mismatches, fmt.Sprintf("%s does not match registry form", key))
		}
	}
	if len(mismatches) > 0 {
		sort.Strings(mismatches)
		return fmt.Errorf("schema verification failed, recovery required: %s", strings.Join(mismatches, "; "))
	}
	return nil
}

func normalizeSQL(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// TableExists is a small helper used by the migrator to decide whether
// a CREATE-new/transform/DROP-old/RENAME step has already run.
func TableExists(ctx context.Context, conn *db.DB, name string) (bool, error) {
	var n int
	err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ColumnExists reports whether table has the named column, used by
// migrations that add columns in place.
func ColumnExists(ctx context.Context, conn *db.DB, table, column string) (bool, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
