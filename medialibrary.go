// Package medialibrary is the persistent media catalog's entry point:
// an opaque Library handle owning the embedded database session, the
// schema registry and migrator, the notifier, and every entity
// repository. External collaborators (discovery walkers, parsers,
// thumbnailers, subscription fetchers) feed it through the ingestion
// surface and consume it through the query surface (spec §1, §6).
package medialibrary

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"

	"github.com/catalogizer/medialibrary/config"
	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/dberr"
	"github.com/catalogizer/medialibrary/notifier"
	"github.com/catalogizer/medialibrary/repository"
	"github.com/catalogizer/medialibrary/schema"
	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// InitializeResult is the outcome of Open, per spec §6.
type InitializeResult int

const (
	InitSuccess InitializeResult = iota
	InitAlreadyInitialized
	InitFailed
	InitDbReset
	InitDbCorrupted
)

func (r InitializeResult) String() string {
	switch r {
	case InitSuccess:
		return "Success"
	case InitAlreadyInitialized:
		return "AlreadyInitialized"
	case InitDbReset:
		return "DbReset"
	case InitDbCorrupted:
		return "DbCorrupted"
	default:
		return "Failed"
	}
}

// DeviceLister enumerates the mounted devices of one scheme; provided
// by the host per spec §6's SetupConfig.deviceListers.
type DeviceLister interface {
	Devices() []DeviceInfo
}

// DeviceInfo describes one mounted device as a lister sees it.
type DeviceInfo struct {
	UUID        string
	Scheme      string
	Mountpoint  string
	IsRemovable bool
	IsNetwork   bool
}

// FsFile is the minimal view of a discovered file the ingestion
// surface needs from a filesystem abstraction.
type FsFile struct {
	MRL              string
	Name             string
	Size             int64
	LastModification int64
	IsNetwork        bool
}

// FsDir is the discovered file's parent directory.
type FsDir struct {
	MRL        string
	DeviceUUID string
	Scheme     string
}

// DiscoveryService is the walker collaborator driving discover/reload;
// the library forwards indexing-control calls to it (spec §6).
type DiscoveryService interface {
	Discover(mrl string)
	Reload(mrl string)
	ReloadAll()
}

// SetupConfig carries the external-collaborator registries of spec §6.
type SetupConfig struct {
	DeviceListers map[string]DeviceLister
	Discoverer    DiscoveryService
	TaskEnqueuer  repository.TaskEnqueuer

	// OnUnhandledError mirrors spec §7's onUnhandledException
	// callback: invoked with the classified error at the outermost
	// boundary; returning true consumes the error.
	OnUnhandledError func(ctx string, err error, requiresDbReset bool) bool

	// MetricsRegisterer receives the library's prometheus collectors;
	// nil disables registration.
	MetricsRegisterer prometheus.Registerer
}

// Library is the opaque handle of spec §3 "Ownership": it keeps the
// single database session alive for the duration of every derived
// repository and query handle.
type Library struct {
	cfg    *config.Config
	setup  SetupConfig
	logger *zap.Logger

	conn     *db.DB
	registry *schema.Registry
	migrator *schema.Migrator
	events   *notifier.Notifier

	lock    *flock.Flock
	watcher *fsnotify.Watcher

	settings      *repository.SettingsRepository
	media         *repository.MediaRepository
	files         *repository.FileRepository
	folders       *repository.FolderRepository
	devices       *repository.DeviceRepository
	albums        *repository.AlbumRepository
	artists       *repository.ArtistRepository
	genres        *repository.GenreRepository
	shows         *repository.ShowRepository
	movies        *repository.MovieRepository
	playlists     *repository.PlaylistRepository
	groups        *repository.MediaGroupRepository
	videoGroups   *repository.VideoGroupRepository
	labels        *repository.LabelRepository
	bookmarks     *repository.BookmarkRepository
	chapters      *repository.ChapterRepository
	metadata      *repository.MetadataRepository
	tracks        *repository.TrackRepository
	thumbnails    *repository.ThumbnailRepository
	subscriptions *repository.SubscriptionRepository
}

// Open initializes (or migrates) the catalog database and returns the
// library handle. The InitializeResult is Success for a fresh, migrated
// or up-to-date open, AlreadyInitialized when another instance holds the
// lock file, Failed for other errors, and DbCorrupted when an error
// requires a database reset or the schema does not match the registry.
// Open never resets the database and never returns InitDbReset.
func Open(cfg *config.Config, setup SetupConfig) (*Library, InitializeResult, error) {
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return nil, InitFailed, err
	}

	lib := &Library{cfg: cfg, setup: setup, logger: logger}

	if err := os.MkdirAll(cfg.MLFolderPath, 0o755); err != nil {
		return nil, InitFailed, fmt.Errorf("create ml folder: %w", err)
	}
	for _, dir := range []string{cfg.ThumbnailsDir(), cfg.PlaylistsDir(), cfg.CacheDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, InitFailed, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if cfg.LockFile {
		lib.lock = flock.New(cfg.LockFilePath())
		locked, err := lib.lock.TryLock()
		if err != nil {
			return nil, InitFailed, fmt.Errorf("acquire lock file: %w", err)
		}
		if !locked {
			return nil, InitAlreadyInitialized, fmt.Errorf("another library instance holds %s", cfg.LockFilePath())
		}
	}

	conn, err := db.Open(&cfg.Database, logger)
	if err != nil {
		lib.releaseLock()
		return nil, InitFailed, err
	}
	lib.conn = conn
	lib.registry = schema.NewRegistry()
	lib.migrator = schema.NewMigrator(lib.registry, logger)
	lib.events = notifier.New(setup.MetricsRegisterer)
	lib.buildRepositories()

	result, err := lib.initSchema(context.Background())
	if err != nil {
		lib.events.Close()
		conn.Close()
		lib.releaseLock()
		return nil, result, err
	}

	if err := lib.watchFiles(); err != nil {
		logger.Warn("file watcher unavailable, degraded-state detection disabled", zap.Error(err))
	}

	return lib, result, nil
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if !cfg.JSON {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = level
	}
	return zapCfg.Build()
}

func (l *Library) buildRepositories() {
	l.settings = repository.NewSettingsRepository(l.conn, l.logger)
	l.media = repository.NewMediaRepository(l.conn, l.events, l.logger)
	l.files = repository.NewFileRepository(l.conn, l.events, l.logger)
	l.devices = repository.NewDeviceRepository(l.conn, l.events, l.logger)
	l.genres = repository.NewGenreRepository(l.conn, l.events, l.logger)
	l.thumbnails = repository.NewThumbnailRepository(l.conn, l.events, l.logger)
	l.albums = repository.NewAlbumRepository(l.conn, l.media, l.genres, l.thumbnails, l.events, l.logger)
	l.artists = repository.NewArtistRepository(l.conn, l.thumbnails, l.events, l.logger)
	l.shows = repository.NewShowRepository(l.conn, l.events, l.logger)
	l.movies = repository.NewMovieRepository(l.conn, l.events, l.logger)
	l.playlists = repository.NewPlaylistRepository(l.conn, l.events, l.logger)
	l.folders = repository.NewFolderRepository(l.conn, l.media, l.playlists, l.devices, l.events, l.logger)
	l.groups = repository.NewMediaGroupRepository(l.conn, l.events, l.logger)
	l.videoGroups = repository.NewVideoGroupRepository(l.conn, l.logger)
	l.labels = repository.NewLabelRepository(l.conn, l.events, l.logger)
	l.bookmarks = repository.NewBookmarkRepository(l.conn, l.events, l.logger)
	l.chapters = repository.NewChapterRepository(l.conn, l.logger)
	l.metadata = repository.NewMetadataRepository(l.conn, l.logger)
	l.tracks = repository.NewTrackRepository(l.conn, l.logger)
	l.subscriptions = repository.NewSubscriptionRepository(l.conn, l.settings, l.events, l.logger)
}

// initSchema creates a fresh schema, or migrates a stored one to
// CurrentModelVersion, then verifies every live object against the
// registry (spec §4.5, §4.7).
func (l *Library) initSchema(ctx context.Context) (InitializeResult, error) {
	settings, err := l.settings.Load(ctx)
	switch {
	case err == sql.ErrNoRows || isMissingSchema(err):
		if err := l.registry.CreateSchema(ctx, l.conn, schema.CurrentModelVersion); err != nil {
			return l.classifyInitError(err), err
		}
		if _, err := l.settings.Init(ctx, schema.CurrentModelVersion); err != nil {
			return l.classifyInitError(err), err
		}
	case err != nil:
		return l.classifyInitError(err), err
	case int(settings.DBModelVersion) < schema.CurrentModelVersion:
		l.logger.Info("migrating catalog database",
			zap.Int32("from", settings.DBModelVersion), zap.Int("to", schema.CurrentModelVersion))
		if err := l.migrator.Migrate(ctx, l.conn, int(settings.DBModelVersion)); err != nil {
			return l.classifyInitError(err), err
		}
	}

	if err := l.registry.VerifyAgainstRegistry(ctx, l.conn, schema.CurrentModelVersion); err != nil {
		return InitDbCorrupted, err
	}
	return InitSuccess, nil
}

// isMissingSchema detects the "no such table: settings" shape of a
// fresh database file.
func isMissingSchema(err error) bool {
	return err != nil && dberr.Is(dberr.Classify(err), dberr.KindGeneric)
}

func (l *Library) classifyInitError(err error) InitializeResult {
	if dberr.RequiresDBReset(dberr.Classify(err)) {
		return InitDbCorrupted
	}
	return InitFailed
}

// watchFiles installs a fsnotify watcher over the sqlite database
// file's directory and logs an error when another process removes or
// renames the database file. The lock file is not watched, truncation
// is not detected, and no health state is changed.
func (l *Library) watchFiles() error {
	if !l.conn.Dialect().IsSQLite() {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path.Dir(l.cfg.Database.Path)); err != nil {
		watcher.Close()
		return err
	}
	l.watcher = watcher
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name == l.cfg.Database.Path && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					l.logger.Error("database file removed out of band, library degraded",
						zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("file watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (l *Library) releaseLock() {
	if l.lock != nil {
		_ = l.lock.Unlock()
	}
}

// Close flushes and stops the notifier, closes the watcher, the
// database session, and the lock file. Derived repository handles must
// not be used afterward.
func (l *Library) Close() error {
	if l.watcher != nil {
		_ = l.watcher.Close()
	}
	l.events.Flush()
	l.events.Close()
	err := l.conn.Close()
	l.releaseLock()
	_ = l.logger.Sync()
	return err
}

// handleError routes an error through the OnUnhandledError callback
// (spec §7): if the host consumes it the operation silently fails,
// otherwise the classified error is returned.
func (l *Library) handleError(opCtx string, err error) error {
	if err == nil {
		return nil
	}
	classified := dberr.Classify(err)
	if l.setup.OnUnhandledError != nil &&
		l.setup.OnUnhandledError(opCtx, classified, dberr.RequiresDBReset(classified)) {
		return nil
	}
	return classified
}

// Notifier exposes the event dispatcher for callback registration.
func (l *Library) Notifier() *notifier.Notifier { return l.events }

// Conn exposes the underlying pool for the metrics package and tests.
func (l *Library) Conn() *db.DB { return l.conn }

// Repository accessors. Every returned handle shares the library's
// session and stays valid until Close.
func (l *Library) Media() *repository.MediaRepository                 { return l.media }
func (l *Library) Files() *repository.FileRepository                  { return l.files }
func (l *Library) Folders() *repository.FolderRepository              { return l.folders }
func (l *Library) Devices() *repository.DeviceRepository              { return l.devices }
func (l *Library) Albums() *repository.AlbumRepository                { return l.albums }
func (l *Library) Artists() *repository.ArtistRepository              { return l.artists }
func (l *Library) Genres() *repository.GenreRepository                { return l.genres }
func (l *Library) Shows() *repository.ShowRepository                  { return l.shows }
func (l *Library) Movies() *repository.MovieRepository                { return l.movies }
func (l *Library) Playlists() *repository.PlaylistRepository          { return l.playlists }
func (l *Library) MediaGroups() *repository.MediaGroupRepository      { return l.groups }
func (l *Library) VideoGroups() *repository.VideoGroupRepository      { return l.videoGroups }
func (l *Library) Labels() *repository.LabelRepository                { return l.labels }
func (l *Library) Bookmarks() *repository.BookmarkRepository          { return l.bookmarks }
func (l *Library) Chapters() *repository.ChapterRepository            { return l.chapters }
func (l *Library) Metadata() *repository.MetadataRepository           { return l.metadata }
func (l *Library) Tracks() *repository.TrackRepository                { return l.tracks }
func (l *Library) Thumbnails() *repository.ThumbnailRepository        { return l.thumbnails }
func (l *Library) Subscriptions() *repository.SubscriptionRepository  { return l.subscriptions }
func (l *Library) Settings() *repository.SettingsRepository           { return l.settings }
