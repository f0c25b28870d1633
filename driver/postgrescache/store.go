// Package postgrescache provides a PostgreSQL-backed cachecore.Store using the
// jackc/pgx stdlib driver.
package postgrescache

import (
	"context"

	"github.com/goforj/cacheprovider/cachecore"
	"github.com/goforj/cacheprovider/driver/sqlcore"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Config configures a postgres-backed cache store.
type Config struct {
	cachecore.BaseConfig
	DSN   string
	Table string
}

// New builds a postgres-backed cachecore.Store using the pgx stdlib driver.
func New(ctx context.Context, cfg Config) (cachecore.Store, error) {
	return sqlcore.New(ctx, sqlcore.Config{
		BaseConfig: cfg.BaseConfig,
		DriverName: "pgx",
		DSN:        cfg.DSN,
		Table:      cfg.Table,
	})
}
