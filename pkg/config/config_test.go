package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nodemedic/nodemedic/pkg/cache"
	errs "github.com/nodemedic/nodemedic/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestDecodeFile(t *testing.T) {
	path := writeFile(t, "config.toml", `
[api]
url = "https://nodemedic.example.com"
timeout = "15s"

[resolve]
depth = 3

[cache]
backend = "none"
ttl = "1h"

[typosquat]
limit = 5
`)
	cfg := Default()
	if err := cfg.decodeFile(path); err != nil {
		t.Fatalf("decodeFile: %v", err)
	}

	want := Default()
	want.API = API{URL: "https://nodemedic.example.com", Timeout: 15 * time.Second}
	want.Resolve.Depth = 3
	want.Cache.Backend = cache.BackendNone
	want.Cache.TTL = time.Hour
	want.Typosquat.Limit = 5
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestDecodeFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errs.Code
	}{
		{"syntax", "[api\nurl=", errs.ErrCodeInvalidFormat},
		{"unknown key", "[api]\nurl = \"http://x\"\nproxy = true\n", errs.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.decodeFile(writeFile(t, "config.toml", tt.content))
			if !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}

	cfg := Default()
	if err := cfg.decodeFile(filepath.Join(t.TempDir(), "missing.toml")); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("missing file err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIURL:      "http://backend:9000",
		EnvGitHubToken: "ghp_test",
		EnvRedisAddr:   "redis://cache:6379/0",
		EnvServerAddr:  "  ",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	if cfg.API.URL != "http://backend:9000" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.GitHub.Token != "ghp_test" {
		t.Errorf("GitHub.Token = %q", cfg.GitHub.Token)
	}
	if cfg.Cache.Backend != cache.BackendRedis || cfg.Cache.RedisURL != "redis://cache:6379/0" {
		t.Errorf("Cache = %+v, want redis selected", cfg.Cache)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("blank env value overrode Server.Addr: %q", cfg.Server.Addr)
	}
}

func TestApplyEnv_ExplicitBackendWins(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		switch k {
		case EnvMongoURI:
			return "mongodb://db:27017", true
		case EnvCacheBackend:
			return "none", true
		}
		return "", false
	})
	if cfg.Cache.Backend != cache.BackendNone {
		t.Errorf("Backend = %q, want none", cfg.Cache.Backend)
	}
	if cfg.Cache.MongoURI != "mongodb://db:27017" {
		t.Errorf("MongoURI = %q", cfg.Cache.MongoURI)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad url", func(c *Config) { c.API.URL = "localhost:8000" }, false},
		{"zero depth", func(c *Config) { c.Resolve.Depth = 0 }, false},
		{"depth over max", func(c *Config) { c.Resolve.Depth = 10 }, false},
		{"redis without url", func(c *Config) { c.Cache.Backend = cache.BackendRedis }, false},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "NODEMEDIC_TEST_FROM_DOTENV=yes\nNODEMEDIC_TEST_PRESET=dotenv\n")
	t.Setenv("NODEMEDIC_TEST_PRESET", "shell")
	t.Setenv("NODEMEDIC_TEST_FROM_DOTENV", "")
	os.Unsetenv("NODEMEDIC_TEST_FROM_DOTENV")

	if err := LoadEnvFile(path, filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("NODEMEDIC_TEST_FROM_DOTENV"); got != "yes" {
		t.Errorf("NODEMEDIC_TEST_FROM_DOTENV = %q, want yes", got)
	}
	if got := os.Getenv("NODEMEDIC_TEST_PRESET"); got != "shell" {
		t.Errorf("NODEMEDIC_TEST_PRESET = %q, want shell (not overridden)", got)
	}
}

func TestCacheOptions(t *testing.T) {
	cfg := Default()
	cfg.Cache = Cache{Backend: cache.BackendMongo, MongoURI: "mongodb://db", MongoDB: "nm"}
	want := cache.Options{Backend: cache.BackendMongo, MongoURI: "mongodb://db", MongoDB: "nm"}
	if diff := cmp.Diff(want, cfg.CacheOptions()); diff != "" {
		t.Errorf("CacheOptions (-want +got):\n%s", diff)
	}
}

func TestKeyer(t *testing.T) {
	cfg := Default()
	if got := cfg.Keyer().GraphKey("react", 2); got != "graph:react@2" {
		t.Errorf("unscoped GraphKey = %s", got)
	}

	cfg.ApplyEnv(func(k string) (string, bool) {
		if k == EnvCachePrefix {
			return "staging:", true
		}
		return "", false
	})
	if got := cfg.Keyer().GraphKey("react", 2); got != "staging:graph:react@2" {
		t.Errorf("scoped GraphKey = %s", got)
	}
}
