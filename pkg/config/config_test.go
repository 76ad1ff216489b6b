package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/matzehuels/formulascope/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Store.Database != "platform_db" {
		t.Errorf("Store.Database = %q, want platform_db", cfg.Store.Database)
	}
	if cfg.Engine.MaxDepth != 10 {
		t.Errorf("Engine.MaxDepth = %d, want 10", cfg.Engine.MaxDepth)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
[server]
addr = ":9090"
read_timeout = "5s"

[store]
backend = "sqlite"
sqlite_path = "/tmp/solutions.db"

[cache]
backend = "redis"
redis_addr = "cache:6379"

[engine]
method = "textual"
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout.Duration != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	// Unset keys keep their defaults.
	if cfg.Server.WriteTimeout.Duration != 60*time.Second {
		t.Errorf("WriteTimeout = %v, want 1m0s", cfg.Server.WriteTimeout)
	}
	if cfg.Store.Backend != StoreSQLite || cfg.Store.SQLitePath != "/tmp/solutions.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Cache.RedisAddr != "cache:6379" {
		t.Errorf("Cache.RedisAddr = %q", cfg.Cache.RedisAddr)
	}
	if cfg.Engine.Method != "textual" {
		t.Errorf("Engine.Method = %q, want textual", cfg.Engine.Method)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", `[server`},
		{"bad duration", "[server]\nread_timeout = \"soon\""},
		{"unknown store", "[store]\nbackend = \"postgres\""},
		{"sqlite without path", "[store]\nbackend = \"sqlite\""},
		{"file without fixture", "[store]\nbackend = \"file\""},
		{"bad mongo uri", "[store]\nmongo_uri = \"http://db\""},
		{"redis without addr", "[cache]\nbackend = \"redis\""},
		{"unknown cache", "[cache]\nbackend = \"memcached\""},
		{"negative depth", "[engine]\nmax_depth = -1"},
		{"unknown method", "[engine]\nmethod = \"numeric\""},
		{"telemetry without endpoint", "[telemetry]\nenabled = true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() = nil error, want error")
			}
			if got := apperrors.GetCode(err); got != apperrors.ErrCodeInvalidConfig {
				t.Errorf("GetCode() = %q, want %q", got, apperrors.ErrCodeInvalidConfig)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvMongoURI:     "mongodb://db:27017",
		EnvRedisAddr:    "redis:6379",
		EnvAddr:         ":7000",
		EnvOTLPEndpoint: "collector:4318",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Store.MongoURI != "mongodb://db:27017" {
		t.Errorf("MongoURI = %q", cfg.Store.MongoURI)
	}
	if cfg.Cache.Backend != CacheRedis || cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("Cache = %+v, want redis at redis:6379", cfg.Cache)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Addr = %q, want :7000", cfg.Server.Addr)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.OTLPEndpoint != "collector:4318" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestApplyEnvEmpty(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(string) string { return "" })
	if cfg != Default() {
		t.Errorf("ApplyEnv with empty env changed config: %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvMongoURI, "")
	t.Setenv(EnvRedisAddr, "")
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvOTLPEndpoint, "")

	t.Run("missing file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg != Default() {
			t.Errorf("Load(missing) = %+v, want defaults", cfg)
		}
	})

	t.Run("file and env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "formulascope.toml")
		if err := os.WriteFile(path, []byte("[server]\naddr = \":9000\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv(EnvAddr, ":9100")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Server.Addr != ":9100" {
			t.Errorf("Server.Addr = %q, want env value :9100", cfg.Server.Addr)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte("addr = "), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); !apperrors.Is(err, apperrors.ErrCodeInvalidConfig) {
			t.Errorf("Load(bad) = %v, want INVALID_CONFIG", err)
		}
	})
}
