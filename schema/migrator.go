package schema

import (
	"context"
	"fmt"

	"github.com/catalogizer/medialibrary/db"
	"go.uber.org/zap"
)

// Migration is one N->N+1 step, per spec §4.7. Grounded on the
// teacher's Migration{Version,Name,Up}/runMigration ledger
// (database/migrations.go), generalized to run under a WeakTx and to
// land the Settings version bump as the step's last write.
type Migration struct {
	FromVersion int
	Name        string
	Up          func(ctx context.Context, conn *db.DB) error
}

// Migrator runs the ordered chain of migrations up to the registry's
// CurrentModelVersion.
type Migrator struct {
	registry   *Registry
	logger     *zap.Logger
	migrations map[int]Migration
}

func NewMigrator(registry *Registry, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Migrator{registry: registry, logger: logger, migrations: make(map[int]Migration)}
	m.register(migrate17to18())
	m.register(migrate18to19Repair())
	m.register(migrate21to22FolderCounters())
	m.register(m.migrate33to34DenormalizeTracks())
	return m
}

func (m *Migrator) register(mig Migration) {
	m.migrations[mig.FromVersion] = mig
}

// Migrate runs every step from storedVersion to CurrentModelVersion.
// Each step executes under a WeakDbContext (foreign keys and recursive
// triggers disabled, spec §4.7) and, where the step has no named
// semantics in spec §9, falls back to recreateSchemaObjects, which
// brings trigger/index text up to the next version's registry form —
// the "boring" steps spec §9 groups under "Model-version dispatch".
func (m *Migrator) Migrate(ctx context.Context, conn *db.DB, storedVersion int) error {
	if storedVersion >= CurrentModelVersion {
		return nil
	}
	restore, err := conn.WeakTx(ctx)
	if err != nil {
		return fmt.Errorf("entering weak db context: %w", err)
	}
	defer func() {
		if rerr := restore(ctx); rerr != nil {
			m.logger.Warn("failed to restore foreign_keys/recursive_triggers after migration", zap.Error(rerr))
		}
	}()

	for v := storedVersion; v < CurrentModelVersion; v++ {
		step, ok := m.migrations[v]
		if !ok {
			step = Migration{FromVersion: v, Name: fmt.Sprintf("recreate_schema_objects_%d_to_%d", v, v+1),
				Up: m.recreateSchemaObjects(v + 1)}
		}
		m.logger.Info("running migration", zap.Int("from", v), zap.String("name", step.Name))
		if err := step.Up(ctx, conn); err != nil {
			return fmt.Errorf("migration %s (v%d->v%d): %w", step.Name, v, v+1, err)
		}
		if err := bumpModelVersion(ctx, conn, v+1); err != nil {
			return fmt.Errorf("recording model version %d: %w", v+1, err)
		}
	}

	if err := m.migrationEpilogue(ctx, conn); err != nil {
		return fmt.Errorf("migration epilogue: %w", err)
	}
	return m.IntegrityCheck(ctx, conn)
}

// recreateSchemaObjects drops and recreates every trigger/index of the
// registry form at version, changed or not. Tables are never dropped by
// this path; only the teacher-style CREATE-new/INSERT-SELECT/DROP-old/
// RENAME pattern (used by the named structural migrations below)
// touches table shape.
func (m *Migrator) recreateSchemaObjects(version int) func(context.Context, *db.DB) error {
	return func(ctx context.Context, conn *db.DB) error {
		for _, obj := range m.registry.Objects(version) {
			if obj.kind != "trigger" && obj.kind != "index" {
				continue
			}
			if _, err := conn.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS %s", dropKeyword(obj.kind), obj.name)); err != nil {
				return err
			}
			if _, err := conn.ExecContext(ctx, obj.sql); err != nil {
				return err
			}
		}
		return nil
	}
}

func dropKeyword(kind string) string {
	if kind == "trigger" {
		return "TRIGGER"
	}
	return "INDEX"
}

func bumpModelVersion(ctx context.Context, conn *db.DB, version int) error {
	_, err := conn.ExecContext(ctx, `UPDATE settings SET db_model_version = ?`, version)
	return err
}

// migrationEpilogue runs the application-side touch-ups spec §4.7
// mentions (forced rescans, thumbnail purges). The storage engine owns
// only the touch-ups that are pure SQL; a forced rescan is left to the
// discovery collaborator, which observes Media.forced_title/insertion
// metadata this epilogue does not need to change.
func (m *Migrator) migrationEpilogue(ctx context.Context, conn *db.DB) error {
	_, err := conn.ExecContext(ctx, `DELETE FROM thumbnail WHERE status = 4`) // Crash
	return err
}

// IntegrityCheck runs the post-migration checks of spec §4.7: registry
// comparison plus PRAGMA integrity_check/foreign_key_check.
func (m *Migrator) IntegrityCheck(ctx context.Context, conn *db.DB) error {
	if err := m.registry.VerifyAgainstRegistry(ctx, conn, CurrentModelVersion); err != nil {
		return err
	}
	return conn.IntegrityCheck(ctx)
}

// migrate21to22FolderCounters backfills folder.nb_audio/nb_video from
// the media table, per spec §4.7 ("the 21->22 migration repopulates
// folder nb_audio/nb_video").
func migrate21to22FolderCounters() Migration {
	return Migration{
		FromVersion: 21,
		Name:        "backfill_folder_media_counters",
		Up: func(ctx context.Context, conn *db.DB) error {
			if ok, err := schemaColumnReady(ctx, conn); err != nil || !ok {
				return err
			}
			if _, err := conn.ExecContext(ctx, `
				UPDATE folder SET nb_audio = (
					SELECT COUNT(*) FROM media WHERE media.folder_id = folder.id_folder AND media.type = 1 AND media.is_present != 0
				), nb_video = (
					SELECT COUNT(*) FROM media WHERE media.folder_id = folder.id_folder AND media.type = 2 AND media.is_present != 0
				)`); err != nil {
				return err
			}
			return nil
		},
	}
}

func schemaColumnReady(ctx context.Context, conn *db.DB) (bool, error) {
	return ColumnExists(ctx, conn, "folder", "nb_audio")
}

// migrate17to18 is historically where the source's equivalent step was
// buggy (spec §4.7). This port implements it correctly: earlier model
// versions stored is_present denormalized per-file rather than derived
// from the owning device, so this step recomputes it from device
// presence once, the invariant every later version relies on.
func migrate17to18() Migration {
	return Migration{
		FromVersion: 17,
		Name:        "recompute_media_presence_from_device",
		Up: func(ctx context.Context, conn *db.DB) error {
			_, err := conn.ExecContext(ctx, `
				UPDATE media SET is_present = (
					SELECT device.is_present FROM device WHERE device.id_device = media.device_id
				) WHERE device_id != 0`)
			return err
		},
	}
}

// migrate18to19Repair re-asserts the same invariant migrate17to18
// establishes. Against a database that migrated correctly through 18
// this is a no-op (the UPDATE touches zero rows); it exists because the
// source's 17->18 step could leave a database inconsistent and this
// repair step is unconditionally safe to re-run, per spec §4.7.
func migrate18to19Repair() Migration {
	return Migration{
		FromVersion: 18,
		Name:        "repair_media_presence_invariant",
		Up: func(ctx context.Context, conn *db.DB) error {
			_, err := conn.ExecContext(ctx, `
				UPDATE media SET is_present = (
					SELECT device.is_present FROM device WHERE device.id_device = media.device_id
				) WHERE device_id != 0 AND is_present != (
					SELECT device.is_present FROM device WHERE device.id_device = media.device_id
				)`)
			return err
		},
	}
}

// migrate33to34DenormalizeTracks implements the v34 denormalization
// spec §3/§4.5 describe: album_track's columns move onto media
// directly, via the CREATE-new/INSERT-SELECT/DROP-old pattern (spec
// §4.7, ALTER is limited). The old table is renamed aside and the
// replacement is created from the registry's own v34 text so the
// post-migration verification sees exactly the registry form; the
// triggers and indexes around media are dropped first, and the step
// creates the registry's v34 triggers and indexes at its end.
func (m *Migrator) migrate33to34DenormalizeTracks() Migration {
	return Migration{
		FromVersion: 33,
		Name:        "denormalize_album_track_into_media",
		Up: func(ctx context.Context, conn *db.DB) error {
			exists, err := TableExists(ctx, conn, "album_track")
			if err != nil || !exists {
				return err
			}
			for _, obj := range m.registry.Objects(33) {
				if obj.kind != "trigger" && obj.kind != "index" {
					continue
				}
				if _, err := conn.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS %s", dropKeyword(obj.kind), obj.name)); err != nil {
					return err
				}
			}

			var mediaSQL string
			for _, obj := range m.registry.Objects(34) {
				if obj.kind == "table" && obj.name == "media" {
					mediaSQL = obj.sql
					break
				}
			}

			stmts := []string{
				// legacy_alter_table keeps the rename from rewriting
				// the media references inside other tables' stored
				// CREATE text, which must keep matching the registry.
				`PRAGMA legacy_alter_table = ON`,
				`ALTER TABLE media RENAME TO media_old`,
				`PRAGMA legacy_alter_table = OFF`,
				mediaSQL,
				`INSERT INTO media SELECT
					m.id_media, m.type, m.subtype, COALESCE(t.duration, m.duration), m.last_position, m.last_time, m.play_count,
					m.last_played_date, m.insertion_date, m.release_date, m.title, m.filename, m.is_favorite, m.is_present,
					m.device_id, m.nb_playlists, m.folder_id, m.import_type, m.group_id, m.forced_title,
					t.artist_id, t.genre_id, t.track_number, t.album_id, t.disc_number
				FROM media_old m LEFT JOIN album_track t ON t.media_id = m.id_media`,
				`DROP TABLE media_old`,
				`DROP TABLE album_track`,
			}
			for _, s := range stmts {
				if _, err := conn.ExecContext(ctx, s); err != nil {
					return fmt.Errorf("denormalize step %q: %w", s, err)
				}
			}

			for _, obj := range m.registry.Objects(34) {
				if obj.kind != "trigger" && obj.kind != "index" {
					continue
				}
				if _, err := conn.ExecContext(ctx, obj.sql); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
