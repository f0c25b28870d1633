// Package mysqlcache provides a MySQL-backed cachecore.Store using
// github.com/go-sql-driver/mysql.
package mysqlcache

import (
	"context"

	_ "github.com/go-sql-driver/mysql"
	"github.com/goforj/cacheprovider/cachecore"
	"github.com/goforj/cacheprovider/driver/sqlcore"
)

// Config configures a mysql-backed cache store.
type Config struct {
	cachecore.BaseConfig
	DSN   string
	Table string
}

// New builds a mysql-backed cachecore.Store.
func New(ctx context.Context, cfg Config) (cachecore.Store, error) {
	return sqlcore.New(ctx, sqlcore.Config{
		BaseConfig: cfg.BaseConfig,
		DriverName: "mysql",
		DSN:        cfg.DSN,
		Table:      cfg.Table,
	})
}
