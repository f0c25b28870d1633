package cacheprovider

import (
	"context"
	"strings"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
	"github.com/goforj/cacheprovider/driver/bigcache"
	"github.com/goforj/cacheprovider/driver/dynamocache"
	"github.com/goforj/cacheprovider/driver/filecache"
	"github.com/goforj/cacheprovider/driver/memcachedcache"
	"github.com/goforj/cacheprovider/driver/memorycache"
	"github.com/goforj/cacheprovider/driver/mysqlcache"
	"github.com/goforj/cacheprovider/driver/natscache"
	"github.com/goforj/cacheprovider/driver/nullcache"
	"github.com/goforj/cacheprovider/driver/postgrescache"
	"github.com/goforj/cacheprovider/driver/rediscache"
	"github.com/goforj/cacheprovider/driver/ristrettocache"
	"github.com/goforj/cacheprovider/driver/sqlcore"
	"github.com/goforj/cacheprovider/driver/sqlitecache"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TypeSuffix is appended to a symbolic driver name to form its type name.
const TypeSuffix = "Cache"

// TypeName derives the backend type name for a symbolic driver name: words
// separated by "_" or spaces are title-cased, joined and suffixed with
// TypeSuffix. A name starting with "@" is an explicit type and is returned
// without the sentinel.
// @group Resolver
//
// Example:
//
//	fmt.Println(cacheprovider.TypeName("array"))            // ArrayCache
//	fmt.Println(cacheprovider.TypeName("file_system"))      // FileSystemCache
//	fmt.Println(cacheprovider.TypeName("@FilesystemCache")) // FilesystemCache
func TypeName(driver string) string {
	if explicit, ok := strings.CutPrefix(driver, "@"); ok {
		return explicit
	}
	words := strings.FieldsFunc(driver, func(r rune) bool { return r == '_' || r == ' ' })
	caser := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range words {
		b.WriteString(caser.String(w))
	}
	b.WriteString(TypeSuffix)
	return b.String()
}

const defaultTTL = 5 * time.Minute

type baseParams struct {
	DefaultTTL time.Duration `option:"default_ttl"`
	Prefix     string        `option:"prefix"`
}

func newBaseParams() baseParams { return baseParams{DefaultTTL: defaultTTL} }

func (b baseParams) config() cachecore.BaseConfig {
	return cachecore.BaseConfig{DefaultTTL: b.DefaultTTL, Prefix: b.Prefix}
}

func builtinTypes(logger *zap.Logger) map[string]Constructor {
	return map[string]Constructor{
		"ArrayCache":      newMemoryCache,
		"MemoryCache":     newMemoryCache,
		"FilesystemCache": newFileCache,
		"FileCache":       newFileCache,
		"NullCache":       newNullCache,
		"VoidCache":       newNullCache,
		"RedisCache":      newRedisCache,
		"MemcachedCache":  newMemcachedCache,
		"NatsCache":       newNatsCache,
		"DynamodbCache":   newDynamoCache,
		"SqlCache":        newSQLCache,
		"SqliteCache":     newSQLiteCache,
		"MysqlCache":      newMySQLCache,
		"PostgresCache":   newPostgresCache,
		"RistrettoCache":  newRistrettoCache,
		"BigcacheCache":   bigcacheConstructor(logger),
	}
}

func newMemoryCache(_ context.Context, params Params) (any, error) {
	p := struct {
		baseParams      `option:",squash"`
		CleanupInterval time.Duration `option:"cleanup_interval"`
	}{baseParams: newBaseParams(), CleanupInterval: 10 * time.Minute}
	if err := params.Bind(&p); err != nil {
		return nil, err
	}
	return memorycache.New(memorycache.Config{
		BaseConfig:      p.config(),
		CleanupInterval: p.CleanupInterval,
	}), nil
}

func newFileCache(_ context.Context, params Params) (any, error) {
	p := struct {
		baseParams `option:",squash"`
		Directory  string `option:"directory"`
	}{baseParams: newBaseParams()}
	if err := params.Bind(&p, "directory"); err != nil {
		return nil, err
	}
	return filecache.New(filecache.Config{
		BaseConfig: p.config(),
		Directory:  p.Directory,
	}), nil
}

func newNullCache(context.Context, Params) (any, error) {
	return nullcache.New(), nil
}

func newRedisCache(_ context.Context, params Params) (any, error) {
	p := struct {
		baseParams `option:",squash"`
		Addr       string `option:"addr"`
		Username   string `option:"username"`
		Password   string `option:"password"`
		DB         int    `option:"db"`
	}{baseParams: newBaseParams(), Addr: "127.0.0.1:6379"}
	if err := params.Bind(&p); err != nil {
		return nil, err
	}
	return rediscache.New(rediscache.Config{
		BaseConfig: p.config(),
		Addr:       p.Addr,
		Username:   p.Username,
		Password:   p.Password,
		DB:         p.DB,
	}), nil
}

func newMemcachedCache(_ context.Context, params Params) (any, error) {
	p := struct {
		baseParams `option:",squash"`
		Servers    []string `option:"servers"`
	}{baseParams: newBaseParams(), Servers: []string{"127.0.0.1:11211"}}
	if err := params.Bind(&p); err != nil {
		return nil, err
	}
	servers := make([]string, 0, len(p.Servers))
	for _, s := range p.Servers {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return memcachedcache.New(memcachedcache.Config{
		BaseConfig: p.config(),
		Addresses:  servers,
	}), nil
}

func newNatsCache(ctx context.Context, params Params) (any, error) {
	p := struct {
		baseParams `option:",squash"`
		URL        string `option:"url"`
		Bucket     string `option:"bucket"`
		BucketTTL  bool   `option:"bucket_ttl"`
	}{baseParams: newBaseParams(), URL: "nats://127.0.0.1:4222", Bucket: "cache"}
	if err := params.Bind(&p); err != nil {
		return nil, err
	}
	return natscache.Dial(ctx, natscache.DialConfig{
		Config: natscache.Config{
			BaseConfig: p.config(),
			BucketTTL:  p.BucketTTL,
		},
		URL:    p.URL,
		Bucket: p.Bucket,
	})
}

func newDynamoCache(ctx context.Context, params Params) (any, error) {
	p := struct {
		baseParams `option:",squash"`
		Region     string `option:"region"`
		Table      string `option:"table"`
		Endpoint   string `option:"endpoint"`
	}{baseParams: newBaseParams(), Region: "us-east-1", Table: "cache_entries"}
	if err := params.Bind(&p); err != nil {
		return nil, err
	}
	return dynamocache.New(ctx, dynamocache.Config{
		BaseConfig: p.config(),
		Region:     p.Region,
		Table:      p.Table,
		Endpoint:   p.Endpoint,
	})
}

type sqlParams struct {
	baseParams `option:",squash"`
	DSN        string `option:"dsn"`
	Table      string `option:"table"`
}

func bindSQL(params Params) (sqlParams, error) {
	p := sqlParams{baseParams: newBaseParams(), Table: "cache_entries"}
	if err := params.Bind(&p, "dsn"); err != nil {
		return sqlParams{}, err
	}
	return p, nil
}

func newSQLCache(ctx context.Context, params Params) (any, error) {
	p := struct {
		sqlParams  `option:",squash"`
		DriverName string `option:"driver_name"`
	}{sqlParams: sqlParams{baseParams: newBaseParams(), Table: "cache_entries"}}
	if err := params.Bind(&p, "driver_name", "dsn"); err != nil {
		return nil, err
	}
	return sqlcore.New(ctx, sqlcore.Config{
		BaseConfig: p.config(),
		DriverName: p.DriverName,
		DSN:        p.DSN,
		Table:      p.Table,
	})
}

func newSQLiteCache(ctx context.Context, params Params) (any, error) {
	p, err := bindSQL(params)
	if err != nil {
		return nil, err
	}
	return sqlitecache.New(ctx, sqlitecache.Config{BaseConfig: p.config(), DSN: p.DSN, Table: p.Table})
}

func newMySQLCache(ctx context.Context, params Params) (any, error) {
	p, err := bindSQL(params)
	if err != nil {
		return nil, err
	}
	return mysqlcache.New(ctx, mysqlcache.Config{BaseConfig: p.config(), DSN: p.DSN, Table: p.Table})
}

func newPostgresCache(ctx context.Context, params Params) (any, error) {
	p, err := bindSQL(params)
	if err != nil {
		return nil, err
	}
	return postgrescache.New(ctx, postgrescache.Config{BaseConfig: p.config(), DSN: p.DSN, Table: p.Table})
}

func newRistrettoCache(_ context.Context, params Params) (any, error) {
	p := struct {
		baseParams  `option:",squash"`
		NumCounters int64 `option:"num_counters"`
		MaxCost     int64 `option:"max_cost"`
		BufferItems int64 `option:"buffer_items"`
		Metrics     bool  `option:"metrics"`
	}{baseParams: newBaseParams(), NumCounters: 1e6, MaxCost: 1 << 26, BufferItems: 64}
	if err := params.Bind(&p); err != nil {
		return nil, err
	}
	return ristrettocache.New(ristrettocache.Config{
		BaseConfig:  p.config(),
		NumCounters: p.NumCounters,
		MaxCost:     p.MaxCost,
		BufferItems: p.BufferItems,
		Metrics:     p.Metrics,
	})
}

func bigcacheConstructor(logger *zap.Logger) Constructor {
	return func(ctx context.Context, params Params) (any, error) {
		return newBigcache(ctx, params, logger)
	}
}

func newBigcache(ctx context.Context, params Params, logger *zap.Logger) (any, error) {
	p := struct {
		LifeWindow       time.Duration `option:"life_window"`
		CleanWindow      time.Duration `option:"clean_window"`
		MaxEntrySize     int           `option:"max_entry_size"`
		HardMaxCacheSize int           `option:"hard_max_cache_size"`
	}{LifeWindow: 10 * time.Minute, CleanWindow: time.Minute, MaxEntrySize: 500}
	if err := params.Bind(&p); err != nil {
		return nil, err
	}
	return bigcache.New(ctx, bigcache.Config{
		LifeWindow:         p.LifeWindow,
		CleanWindow:        p.CleanWindow,
		MaxEntrySize:       p.MaxEntrySize,
		HardMaxCacheSizeMB: p.HardMaxCacheSize,
		Logger:             logger,
	})
}
