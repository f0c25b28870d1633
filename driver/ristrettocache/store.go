// Package ristrettocache provides a bounded in-process cachecore.Store on
// github.com/dgraph-io/ristretto.
//
// Entries cost their byte length against MaxCost. Writes are applied
// synchronously (the store waits for ristretto's buffers) so a Set is visible
// to the next Get. Flush clears the whole cache, including other namespaces.
package ristrettocache

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"
	"github.com/goforj/cacheprovider/cachecore"
)

const (
	defaultTTL         = 5 * time.Minute
	defaultNumCounters = 1_000_000
	defaultMaxCost     = 1 << 26
	defaultBufferItems = 64
)

// Config configures a ristretto-backed store.
type Config struct {
	cachecore.BaseConfig

	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

type store struct {
	c          *rc.Cache
	defaultTTL time.Duration
	prefix     string
}

// New builds a ristretto-backed cachecore.Store.
//
// Defaults:
// - NumCounters: 1e6 when zero
// - MaxCost: 64 MiB when zero
// - BufferItems: 64 when zero
// - DefaultTTL: 5*time.Minute when zero
func New(cfg Config) (cachecore.Store, error) {
	if cfg.NumCounters < 0 || cfg.MaxCost < 0 || cfg.BufferItems < 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	if cfg.NumCounters == 0 {
		cfg.NumCounters = defaultNumCounters
	}
	if cfg.MaxCost == 0 {
		cfg.MaxCost = defaultMaxCost
	}
	if cfg.BufferItems == 0 {
		cfg.BufferItems = defaultBufferItems
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &store{c: c, defaultTTL: ttl, prefix: cfg.Prefix}, nil
}

func (s *store) Driver() cachecore.Driver { return cachecore.DriverRistretto }

func (s *store) SetNamespace(namespace string) { s.prefix = namespace }

func (s *store) Namespace() string { return s.prefix }

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	k := s.cacheKey(key)
	v, ok := s.c.Get(k)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		s.c.Del(k)
		return nil, false, nil
	}
	return cachecore.CloneBytes(b), true, nil
}

func (s *store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	body := cachecore.CloneBytes(value)
	if body == nil {
		body = []byte{}
	}
	if !s.c.SetWithTTL(s.cacheKey(key), body, int64(len(body))+1, ttl) {
		return errors.New("ristretto: set rejected")
	}
	s.c.Wait()
	return nil
}

func (s *store) Has(_ context.Context, key string) (bool, error) {
	_, ok := s.c.Get(s.cacheKey(key))
	return ok, nil
}

func (s *store) Delete(_ context.Context, key string) error {
	s.c.Del(s.cacheKey(key))
	return nil
}

func (s *store) Flush(_ context.Context) error {
	s.c.Clear()
	return nil
}

// Metrics exposes ristretto's counters; nil unless Config.Metrics was set.
func (s *store) Metrics() *rc.Metrics { return s.c.Metrics }

func (s *store) Close() error {
	s.c.Close()
	return nil
}

func (s *store) cacheKey(key string) string {
	return cachecore.NamespacedKey(s.prefix, key)
}
