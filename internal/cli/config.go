package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/modata-dev/modata/pkg/persist"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "modata"

	// Supported persistence backends.
	backendFile   = "file"
	backendRedis  = "redis"
	backendMongo  = "mongo"
	backendMemory = "memory"
)

// =============================================================================
// Config
// =============================================================================

// Config holds user-level settings loaded from the TOML config file.
// Zero values fall back to sensible defaults in applyDefaults.
type Config struct {
	// Backend selects the persistence backend: file (default), redis,
	// mongo, or memory.
	Backend string `toml:"backend"`

	// Direction is the default layout direction: TB (default) or LR.
	Direction string `toml:"direction"`

	File  FileConfig  `toml:"file"`
	Redis RedisConfig `toml:"redis"`
	Mongo MongoConfig `toml:"mongo"`
	Serve ServeConfig `toml:"serve"`
}

// FileConfig configures the file backend.
type FileConfig struct {
	// Dir is the diagram storage directory (default: ~/.local/share/modata).
	Dir string `toml:"dir"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MongoConfig configures the mongo backend.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// configPath returns the path of the user config file
// (~/.config/modata/config.toml).
func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// defaultDataDir returns the default directory for file-backed diagrams.
func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appName)
	}
	return "." + appName
}

// loadConfig reads the user config file. A missing file is not an error;
// defaults apply.
func loadConfig() (Config, error) {
	var cfg Config
	path, err := configPath()
	if err != nil {
		cfg.applyDefaults()
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = backendFile
	}
	if c.Direction == "" {
		c.Direction = "TB"
	}
	if c.File.Dir == "" {
		c.File.Dir = defaultDataDir()
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = "mongodb://localhost:27017"
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8080"
	}
}

// openStore constructs the persistence backend selected by the config.
// The caller owns the returned store and must Close it.
func openStore(ctx context.Context, cfg Config) (persist.Store, error) {
	switch cfg.Backend {
	case backendFile:
		return persist.NewFileStore(cfg.File.Dir)
	case backendRedis:
		return persist.NewRedisStore(ctx, persist.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case backendMongo:
		return persist.NewMongoStore(ctx, persist.MongoConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
	case backendMemory:
		return persist.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (must be 'file', 'redis', 'mongo', or 'memory')", cfg.Backend)
	}
}
