// Package nullcache provides a cachecore.Store that stores nothing.
//
// It does not implement cachecore.Namespacer.
package nullcache

import (
	"context"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
)

type store struct{}

// New builds a no-op store. Every lookup misses.
func New() cachecore.Store { return store{} }

func (store) Driver() cachecore.Driver { return cachecore.DriverNull }

func (store) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (store) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (store) Has(context.Context, string) (bool, error) { return false, nil }

func (store) Delete(context.Context, string) error { return nil }

func (store) Flush(context.Context) error { return nil }
