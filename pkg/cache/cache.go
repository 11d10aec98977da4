// Package cache stores opaque byte payloads under string keys with a TTL.
//
// Backends:
//   - [FileCache]: one JSON file per key under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for `nodemedic serve`
//   - [MongoCache]: a MongoDB collection with a TTL index
//   - [NullCache]: stores nothing
//
// Keys are built by a [Keyer] so that the CLI and the server agree on the
// layout: HTTP responses from upstream registries live under "http:" and
// resolved dependency graphs under "graph:".
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nodemedic/nodemedic/pkg/observability"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the stored data. A miss or an expired entry is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data. A ttl of zero or less never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey is the key for an upstream HTTP response.
	HTTPKey(namespace, key string) string

	// GraphKey is the key for the resolved graph of pkg to depth.
	GraphKey(pkg string, depth int) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key layout.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// GraphKey returns "graph:<pkg>@<depth>".
func (DefaultKeyer) GraphKey(pkg string, depth int) string {
	return fmt.Sprintf("graph:%s@%d", pkg, depth)
}

// keyType is the part of key before the first colon, used as a metrics label.
func keyType(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}

// Instrumented reports hits, misses and writes to the observability hooks.
type Instrumented struct {
	Cache
}

// NewInstrumented wraps c.
func NewInstrumented(c Cache) Cache {
	return &Instrumented{Cache: c}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, ok, err
}

func (c *Instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	}
	return err
}
