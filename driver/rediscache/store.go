package rediscache

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL    = 5 * time.Minute
	defaultPrefix = "app"
	scanBatch     = 200
)

var errNoClient = errors.New("redis cache client unavailable")

// Client captures the subset of redis.Client used by the store.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Config configures a Redis-backed cache store.
type Config struct {
	cachecore.BaseConfig

	// Client is used as-is when set. Otherwise a client is dialed from Addr.
	Client Client

	Addr     string
	Username string
	Password string
	DB       int
}

type store struct {
	client     Client
	owned      io.Closer
	defaultTTL time.Duration
	prefix     string
}

// New builds a Redis-backed cachecore.Store.
//
// Defaults:
// - DefaultTTL: 5*time.Minute when zero
// - Prefix: "app" when empty
// - Client: created from Addr when nil and Addr is set; otherwise operations
// return errors until a client is provided
//
// Example: explicit Redis driver config
//
//	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	store := rediscache.New(rediscache.Config{
//		BaseConfig: cachecore.BaseConfig{
//			DefaultTTL: 5 * time.Minute,
//			Prefix:     "app",
//		},
//		Client: rdb,
//	})
//	fmt.Println(store.Driver()) // redis
func New(cfg Config) cachecore.Store {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	s := &store{
		client:     cfg.Client,
		defaultTTL: ttl,
		prefix:     prefix,
	}
	if s.client == nil && cfg.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		s.client = rdb
		s.owned = rdb
	}
	return s
}

func (s *store) Driver() cachecore.Driver {
	return cachecore.DriverRedis
}

func (s *store) SetNamespace(namespace string) { s.prefix = namespace }

func (s *store) Namespace() string { return s.prefix }

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, errNoClient
	}
	value, err := s.client.Get(ctx, s.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.client == nil {
		return errNoClient
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.client.Set(ctx, s.cacheKey(key), value, ttl).Err()
}

func (s *store) Has(ctx context.Context, key string) (bool, error) {
	if s.client == nil {
		return false, errNoClient
	}
	n, err := s.client.Exists(ctx, s.cacheKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return errNoClient
	}
	return s.client.Del(ctx, s.cacheKey(key)).Err()
}

// Flush deletes every key under the store's prefix using SCAN, so keys of
// other prefixes on the same server survive.
func (s *store) Flush(ctx context.Context) error {
	if s.client == nil {
		return errNoClient
	}
	pattern := s.cacheKey("*")
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close releases the client when the store dialed it itself.
func (s *store) Close() error {
	if s.owned == nil {
		return nil
	}
	return s.owned.Close()
}

func (s *store) cacheKey(key string) string {
	return cachecore.NamespacedKey(s.prefix, key)
}
