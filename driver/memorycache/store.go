// Package memorycache provides an in-process cachecore.Store on
// github.com/patrickmn/go-cache.
package memorycache

import (
	"context"
	"strings"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultTTL             = 5 * time.Minute
	defaultCleanupInterval = 10 * time.Minute
)

// Config configures an in-memory store.
type Config struct {
	cachecore.BaseConfig

	// CleanupInterval controls how often expired items are purged.
	CleanupInterval time.Duration

	// Cache lets several stores share one go-cache instance. A fresh cache is
	// created when nil.
	Cache *gocache.Cache
}

type store struct {
	cache      *gocache.Cache
	defaultTTL time.Duration
	namespace  string
}

// New builds an in-memory cachecore.Store.
//
// Defaults:
// - DefaultTTL: 5*time.Minute when zero
// - CleanupInterval: 10*time.Minute when zero
func New(cfg Config) cachecore.Store {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = defaultCleanupInterval
	}
	c := cfg.Cache
	if c == nil {
		c = gocache.New(ttl, cleanup)
	}
	return &store{
		cache:      c,
		defaultTTL: ttl,
		namespace:  cfg.Prefix,
	}
}

func (s *store) Driver() cachecore.Driver {
	return cachecore.DriverMemory
}

func (s *store) SetNamespace(namespace string) { s.namespace = namespace }

func (s *store) Namespace() string { return s.namespace }

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := s.cache.Get(s.cacheKey(key))
	if !ok {
		return nil, false, nil
	}
	body, ok := item.([]byte)
	if !ok {
		return nil, false, nil
	}
	return cachecore.CloneBytes(body), true, nil
}

func (s *store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	s.cache.Set(s.cacheKey(key), cachecore.CloneBytes(value), ttl)
	return nil
}

func (s *store) Has(_ context.Context, key string) (bool, error) {
	_, ok := s.cache.Get(s.cacheKey(key))
	return ok, nil
}

func (s *store) Delete(_ context.Context, key string) error {
	s.cache.Delete(s.cacheKey(key))
	return nil
}

// Flush removes the entries of this namespace, or everything when the store
// has no namespace.
func (s *store) Flush(_ context.Context) error {
	if s.namespace == "" {
		s.cache.Flush()
		return nil
	}
	prefix := s.namespace + ":"
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
	return nil
}

func (s *store) cacheKey(key string) string {
	return cachecore.NamespacedKey(s.namespace, key)
}
