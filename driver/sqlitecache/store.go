// Package sqlitecache provides a SQLite-backed cachecore.Store using the
// pure-Go modernc.org/sqlite driver.
package sqlitecache

import (
	"context"

	"github.com/goforj/cacheprovider/cachecore"
	"github.com/goforj/cacheprovider/driver/sqlcore"
	_ "modernc.org/sqlite"
)

// Config configures a sqlite-backed cache store.
type Config struct {
	cachecore.BaseConfig
	DSN   string
	Table string
}

// New builds a sqlite-backed cachecore.Store.
func New(ctx context.Context, cfg Config) (cachecore.Store, error) {
	return sqlcore.New(ctx, sqlcore.Config{
		BaseConfig: cfg.BaseConfig,
		DriverName: "sqlite",
		DSN:        cfg.DSN,
		Table:      cfg.Table,
	})
}
