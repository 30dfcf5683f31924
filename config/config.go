// Package config implements the library's configuration surface (spec
// §6): the database path, the library's working folder, the lock-file
// switch, and the setup-time external-collaborator registries. It is
// grounded on the teacher's config.Config/LoadConfig JSON layering but
// generalized with viper so values can also come from the environment,
// and validated with go-playground/validator instead of the teacher's
// hand-rolled validateConfig checks.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DatabaseConfig selects the storage backend. Type is "sqlite"
// (embedded, SQLCipher-encrypted) or "postgres" (externalized).
type DatabaseConfig struct {
	Type     string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	Path     string `mapstructure:"path" validate:"required_if=Type sqlite"`
	Password string `mapstructure:"password"`

	Host     string `mapstructure:"host" validate:"required_if=Type postgres"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name" validate:"required_if=Type postgres"`
	User     string `mapstructure:"user"`
	SSLMode  string `mapstructure:"ssl_mode"`

	MaxOpenConnections int `mapstructure:"max_open_connections" validate:"min=1"`
	MaxIdleConnections int `mapstructure:"max_idle_connections" validate:"min=0"`
	ConnMaxLifetimeSec int `mapstructure:"conn_max_lifetime_seconds" validate:"min=0"`
	ConnMaxIdleSec     int `mapstructure:"conn_max_idle_seconds" validate:"min=0"`
	BusyTimeoutMS      int `mapstructure:"busy_timeout_ms" validate:"min=0"`
	CacheSize          int `mapstructure:"cache_size"`
}

// LoggingConfig controls the zap logger built for the library.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// Config is the top-level configuration surface described in spec §6.
type Config struct {
	// DBPath holds the top-level db_path setting. The library opens the
	// database at Database.Path; nothing in this module reads DBPath.
	DBPath string `mapstructure:"db_path"`

	// MLFolderPath is the root for thumbnails/playlists/cache
	// subdirectories and the lock file.
	MLFolderPath string `mapstructure:"ml_folder_path" validate:"required"`

	// LockFile, if true, acquires an exclusive lock file in
	// MLFolderPath preventing concurrent library instances.
	LockFile bool `mapstructure:"lock_file"`

	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Paths derived from MLFolderPath (spec §6 "Persisted state layout").
func (c *Config) ThumbnailsDir() string { return filepath.Join(c.MLFolderPath, "thumbnails") }
func (c *Config) PlaylistsDir() string  { return filepath.Join(c.MLFolderPath, "playlists") }
func (c *Config) CacheDir() string      { return filepath.Join(c.MLFolderPath, "cache") }
func (c *Config) LockFilePath() string  { return filepath.Join(c.MLFolderPath, ".ml.lock") }

var validate = validator.New()

// Load reads configuration from configPath (if non-empty) layered under
// defaults, then applies MEDIALIB_-prefixed environment overrides (e.g.
// MEDIALIB_DATABASE_TYPE=postgres), matching the viper-over-struct
// pattern used across the example pack's CLIs.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix("MEDIALIB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "./medialibrary.db")
	v.SetDefault("ml_folder_path", "./medialibrary")
	v.SetDefault("lock_file", true)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./medialibrary.db")
	v.SetDefault("database.password", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.max_open_connections", 1)
	v.SetDefault("database.max_idle_connections", 1)
	v.SetDefault("database.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.conn_max_idle_seconds", 0)
	v.SetDefault("database.busy_timeout_ms", 500)
	v.SetDefault("database.cache_size", -2000)
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", true)
}

// Default returns a Config populated entirely with defaults, useful for
// tests.
func Default() *Config {
	v := viper.New()
	applyDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}
