package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 500, cfg.Database.BusyTimeoutMS)
	assert.True(t, cfg.LockFile)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEDIALIB_DATABASE_TYPE", "postgres")
	t.Setenv("MEDIALIB_DATABASE_HOST", "db.internal")
	t.Setenv("MEDIALIB_DATABASE_NAME", "catalog")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "catalog", cfg.Database.Name)
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.MLFolderPath = "/var/lib/medialib"
	assert.Equal(t, filepath.Join("/var/lib/medialib", "thumbnails"), cfg.ThumbnailsDir())
	assert.Equal(t, filepath.Join("/var/lib/medialib", "playlists"), cfg.PlaylistsDir())
	assert.Equal(t, filepath.Join("/var/lib/medialib", "cache"), cfg.CacheDir())
	assert.Equal(t, filepath.Join("/var/lib/medialib", ".ml.lock"), cfg.LockFilePath())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"db_path":"/tmp/x.db","ml_folder_path":"/tmp/ml"}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, "/tmp/ml", cfg.MLFolderPath)
}
