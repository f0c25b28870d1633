// Package bigcache provides a sharded in-process cachecore.Store on
// github.com/allegro/bigcache/v3.
//
// BigCache has no per-entry TTL: every entry lives for LifeWindow and the ttl
// passed to Set is ignored. It does not implement cachecore.Namespacer.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"
	"github.com/goforj/cacheprovider/cachecore"
	"go.uber.org/zap"
)

const (
	defaultLifeWindow         = 10 * time.Minute
	defaultMaxEntriesInWindow = 10_000
)

// Config configures a bigcache-backed store.
type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited

	// Logger receives bigcache's own messages. Nil discards them.
	Logger *zap.Logger
}

type store struct {
	c *bc.BigCache
}

// New builds a bigcache-backed cachecore.Store.
//
// The cleanup goroutine outlives ctx; only Close stops it, since entries
// expire solely through that goroutine.
//
// Defaults:
// - LifeWindow: 10*time.Minute when zero
// - MaxEntriesInWindow: 10000 when zero (sizes the initial shard allocation)
// - Logger: discard when nil
// - other fields: bigcache.DefaultConfig values when zero
func New(ctx context.Context, cfg Config) (cachecore.Store, error) {
	c, err := bc.New(context.WithoutCancel(ctx), buildConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &store{c: c}, nil
}

func buildConfig(cfg Config) bc.Config {
	life := cfg.LifeWindow
	if life <= 0 {
		life = defaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	conf.MaxEntriesInWindow = defaultMaxEntriesInWindow
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	conf.Logger = zap.NewStdLog(logger.Named("bigcache"))
	return conf
}

func (s *store) Driver() cachecore.Driver { return cachecore.DriverBigcache }

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *store) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	return s.c.Set(key, value)
}

func (s *store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *store) Delete(_ context.Context, key string) error {
	err := s.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (s *store) Flush(_ context.Context) error {
	return s.c.Reset()
}

func (s *store) Close() error {
	return s.c.Close()
}
