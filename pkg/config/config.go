// Package config loads nodemedic settings.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults ([Default])
//  2. the TOML file (default ~/.config/nodemedic/config.toml)
//  3. a .env file in the working directory, which only fills variables
//     not already set in the environment
//  4. environment variables (NODEMEDIC_API_URL, GITHUB_TOKEN,
//     NODEMEDIC_REDIS_ADDR, NODEMEDIC_MONGO_URI, ...)
//
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/nodemedic/nodemedic/pkg/cache"
	errs "github.com/nodemedic/nodemedic/pkg/errors"
)

// Environment variables read by [Config.ApplyEnv].
const (
	EnvAPIURL       = "NODEMEDIC_API_URL"
	EnvGitHubToken  = "GITHUB_TOKEN"
	EnvRedisAddr    = "NODEMEDIC_REDIS_ADDR"
	EnvMongoURI     = "NODEMEDIC_MONGO_URI"
	EnvCacheBackend = "NODEMEDIC_CACHE"
	EnvServerAddr   = "NODEMEDIC_ADDR"
	EnvIndexPath    = "NODEMEDIC_TYPOSQUAT_DB"
	EnvCachePrefix  = "NODEMEDIC_CACHE_PREFIX"
)

// Config holds every setting the CLI and the backend read.
type Config struct {
	API       API       `toml:"api"`
	Server    Server    `toml:"server"`
	Resolve   Resolve   `toml:"resolve"`
	Cache     Cache     `toml:"cache"`
	GitHub    GitHub    `toml:"github"`
	Typosquat Typosquat `toml:"typosquat"`
}

// API is the backend the explorer talks to.
type API struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

type Server struct {
	Addr     string `toml:"addr"`
	MaxDepth int    `toml:"max_depth"` // deepest resolution a request may ask for
}

type Resolve struct {
	Depth    int  `toml:"depth"`
	MaxNodes int  `toml:"max_nodes"`
	Enrich   bool `toml:"enrich"`
}

type Cache struct {
	Backend  string        `toml:"backend"`
	Dir      string        `toml:"dir"`
	RedisURL string        `toml:"redis_url"`
	MongoURI string        `toml:"mongo_uri"`
	MongoDB  string        `toml:"mongo_db"`
	TTL      time.Duration `toml:"ttl"`
	Prefix   string        `toml:"prefix"` // namespaces graph keys in a shared store
}

type GitHub struct {
	Token string `toml:"token"`
}

type Typosquat struct {
	Index string `toml:"index"` // SQLite name index path
	Limit int    `toml:"limit"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		API:       API{URL: "http://localhost:8000", Timeout: 60 * time.Second},
		Server:    Server{Addr: ":8000", MaxDepth: 6},
		Resolve:   Resolve{Depth: 2, MaxNodes: 500, Enrich: true},
		Cache:     Cache{Backend: cache.BackendFile, TTL: 24 * time.Hour},
		Typosquat: Typosquat{Index: filepath.Join(cache.DefaultDir(), "names.db"), Limit: 20},
	}
}

// DefaultPath returns ~/.config/nodemedic/config.toml, or "" when the user
// config directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nodemedic", "config.toml")
}

// Load reads path over the defaults, then .env and the environment. An
// empty path reads [DefaultPath] and tolerates its absence; an explicit
// path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	if err := LoadEnvFile(".env"); err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, cfg.Validate()
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(errs.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return errs.Wrap(errs.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return errs.New(errs.ErrCodeInvalidFormat, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadEnvFile loads variables from the given .env files without overriding
// ones already set. Missing files are skipped.
func LoadEnvFile(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidFormat, err, "load %s", p)
		}
	}
	return nil
}

// ApplyEnv overrides settings from environment variables. A Redis address
// or Mongo URI also selects that cache backend unless NODEMEDIC_CACHE names
// one explicitly.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvAPIURL); ok {
		c.API.URL = v
	}
	if v, ok := get(EnvGitHubToken); ok {
		c.GitHub.Token = v
	}
	if v, ok := get(EnvServerAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := get(EnvIndexPath); ok {
		c.Typosquat.Index = v
	}
	if v, ok := get(EnvMongoURI); ok {
		c.Cache.MongoURI = v
		c.Cache.Backend = cache.BackendMongo
	}
	if v, ok := get(EnvRedisAddr); ok {
		c.Cache.RedisURL = v
		c.Cache.Backend = cache.BackendRedis
	}
	if v, ok := get(EnvCacheBackend); ok {
		c.Cache.Backend = v
	}
	if v, ok := get(EnvCachePrefix); ok {
		c.Cache.Prefix = v
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if err := errs.ValidateURL(c.API.URL); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "api.url")
	}
	if c.Resolve.Depth < 1 {
		return errs.New(errs.ErrCodeInvalidInput, "resolve.depth must be at least 1, got %d", c.Resolve.Depth)
	}
	if c.Server.MaxDepth > 0 && c.Resolve.Depth > c.Server.MaxDepth {
		return errs.New(errs.ErrCodeInvalidInput, "resolve.depth %d exceeds server.max_depth %d", c.Resolve.Depth, c.Server.MaxDepth)
	}
	switch c.Cache.Backend {
	case "", cache.BackendFile, cache.BackendNone:
	case cache.BackendRedis:
		if c.Cache.RedisURL == "" {
			return errs.New(errs.ErrCodeInvalidInput, "cache.backend redis needs cache.redis_url or %s", EnvRedisAddr)
		}
	case cache.BackendMongo:
		if c.Cache.MongoURI == "" {
			return errs.New(errs.ErrCodeInvalidInput, "cache.backend mongo needs cache.mongo_uri or %s", EnvMongoURI)
		}
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// CacheOptions converts the cache section for [cache.Open].
func (c Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:  c.Cache.Backend,
		Dir:      c.Cache.Dir,
		RedisURL: c.Cache.RedisURL,
		MongoURI: c.Cache.MongoURI,
		MongoDB:  c.Cache.MongoDB,
	}
}

// Keyer returns the graph cache key layout, scoped by cache.prefix when set.
func (c Config) Keyer() cache.Keyer {
	if c.Cache.Prefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, c.Cache.Prefix)
}
