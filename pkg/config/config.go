// Package config loads formulascope settings from a TOML file.
//
// Values are resolved in three layers: [Default], then the file passed to
// [Load], then the environment ([Config.ApplyEnv]). Command-line flags are
// applied by the CLI on top of the result.
//
//	[server]
//	addr = ":8080"
//
//	[store]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/formulascope/pkg/derivative"
	"github.com/matzehuels/formulascope/pkg/deptree"
	apperrors "github.com/matzehuels/formulascope/pkg/errors"
)

// Store backends.
const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// Environment variables that override file settings.
const (
	EnvMongoURI     = "MONGODB_URI"
	EnvRedisAddr    = "REDIS_ADDR"
	EnvAddr         = "FORMULASCOPE_ADDR"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Config is the full configuration.
type Config struct {
	Server    Server    `toml:"server"`
	Store     Store     `toml:"store"`
	Cache     Cache     `toml:"cache"`
	Engine    Engine    `toml:"engine"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Server configures the HTTP API.
type Server struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Store selects and configures the solution store.
type Store struct {
	Backend  string   `toml:"backend"`
	MongoURI string   `toml:"mongo_uri"`
	Database string   `toml:"database"`
	Timeout  Duration `toml:"timeout"`
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `toml:"sqlite_path"`
	// FixturePath is the YAML fixture for the file backend.
	FixturePath string `toml:"fixture_path"`
}

// Cache selects and configures the result cache.
type Cache struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
	Prefix    string `toml:"prefix"`
}

// Engine holds analysis defaults.
type Engine struct {
	MaxDepth int    `toml:"max_depth"`
	Method   string `toml:"method"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	Enabled      bool   `toml:"enabled"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
	Insecure     bool   `toml:"insecure"`
}

// Duration is a time.Duration that decodes from TOML strings like "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration: a local MongoDB, a file
// cache in the user cache directory and no telemetry.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{60 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Store: Store{
			Backend:  StoreMongo,
			MongoURI: "mongodb://localhost:27017",
			Database: "platform_db",
			Timeout:  Duration{10 * time.Second},
		},
		Cache: Cache{
			Backend: CacheFile,
			Prefix:  "formulascope:",
		},
		Engine: Engine{
			MaxDepth: deptree.DefaultMaxDepth,
			Method:   derivative.Structural.String(),
		},
		Telemetry: Telemetry{
			ServiceName: "formulascope",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "read config %s", path)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse config %s", path)
			}
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults without consulting the
// environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse config")
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides settings from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvMongoURI); v != "" {
		c.Store.MongoURI = v
	}
	if v := getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Backend = CacheRedis
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvOTLPEndpoint); v != "" {
		c.Telemetry.OTLPEndpoint = v
		c.Telemetry.Enabled = true
	}
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMongo:
		if err := apperrors.ValidateMongoURI(c.Store.MongoURI); err != nil {
			return err
		}
		if c.Store.Database == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "store.database is required for the mongo backend")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "store.sqlite_path is required for the sqlite backend")
		}
	case StoreFile:
		if c.Store.FixturePath == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "store.fixture_path is required for the file backend")
		}
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
	}

	switch c.Cache.Backend {
	case CacheFile, CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}

	if c.Engine.MaxDepth < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "engine.max_depth must not be negative")
	}
	if _, err := derivative.ParseMethod(c.Engine.Method); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "engine.method")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "telemetry.otlp_endpoint is required when telemetry is enabled")
	}
	return nil
}
