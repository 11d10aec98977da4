package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string // defaults to file
	Dir      string // file backend; defaults to DefaultDir()
	RedisURL string
	MongoURI string
	MongoDB  string
}

// Open returns the configured backend wrapped with [NewInstrumented].
func Open(ctx context.Context, opts Options) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch opts.Backend {
	case "", BackendFile:
		dir := opts.Dir
		if dir == "" {
			dir = DefaultDir()
		}
		c, err = NewFileCache(dir)
	case BackendRedis:
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("redis cache: no address configured")
		}
		c, err = NewRedisCache(ctx, opts.RedisURL)
	case BackendMongo:
		if opts.MongoURI == "" {
			return nil, fmt.Errorf("mongo cache: no URI configured")
		}
		c, err = NewMongoCache(ctx, opts.MongoURI, opts.MongoDB, "")
	case BackendNone:
		c = NewNullCache()
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewInstrumented(c), nil
}
