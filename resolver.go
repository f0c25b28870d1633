package cacheprovider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goforj/cacheprovider/cachecore"
	"go.uber.org/zap"
)

// Constructor builds a backend from a cache's options. The result is checked
// for the cachecore.Store capability by the Resolver.
type Constructor func(ctx context.Context, params Params) (any, error)

// Resolver turns a Config into a new cache store. It keeps no instances;
// every Resolve call constructs a fresh backend.
type Resolver struct {
	logger *zap.Logger

	mu    sync.RWMutex
	types map[string]Constructor
}

// NewResolver returns a Resolver knowing the built-in backend types.
// A nil logger disables logging.
// @group Resolver
//
// Example:
//
//	r := cacheprovider.NewResolver(nil)
//	store, err := r.Resolve(context.Background(), cacheprovider.Config{Driver: "array"})
//	if err != nil {
//		panic(err)
//	}
//	fmt.Println(store.Driver()) // memory
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger, types: builtinTypes(logger)}
}

// Register adds or replaces the constructor for a backend type name.
// @group Resolver
//
// Example:
//
//	r := cacheprovider.NewResolver(nil)
//	r.Register("TieredCache", func(ctx context.Context, p cacheprovider.Params) (any, error) {
//		return memorycache.New(memorycache.Config{}), nil
//	})
//	_, _ = r.Resolve(context.Background(), cacheprovider.Config{Driver: "tiered"})
func (r *Resolver) Register(typeName string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typeName] = ctor
}

// Types returns the registered backend type names in sorted order.
// @group Resolver
func (r *Resolver) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve constructs the store described by cfg.
//
// A Factory takes precedence and its result is returned as-is. Otherwise the
// driver is mapped to a type name (see TypeName), constructed from
// cfg.Options and, when the "namespace" option is set and the store
// implements cachecore.Namespacer, namespaced.
// @group Resolver
func (r *Resolver) Resolve(ctx context.Context, cfg Config) (cachecore.Store, error) {
	if cfg.Factory != nil {
		v, err := cfg.Factory()
		if err != nil {
			return nil, fmt.Errorf("cache factory: %w", err)
		}
		store, ok := v.(cachecore.Store)
		if !ok {
			return nil, &InvalidBackendError{Type: fmt.Sprintf("%T", v)}
		}
		return store, nil
	}
	if cfg.Driver == "" {
		return nil, missingOption("driver")
	}

	typeName := TypeName(cfg.Driver)
	r.mu.RLock()
	ctor, ok := r.types[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownDriverError{Driver: cfg.Driver, Type: typeName}
	}
	ns, err := cfg.Options.Namespace()
	if err != nil {
		return nil, err
	}

	v, err := ctor(ctx, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", typeName, err)
	}
	store, ok := v.(cachecore.Store)
	if !ok {
		return nil, &InvalidBackendError{Type: typeName}
	}

	if ns != "" {
		if n, ok := store.(cachecore.Namespacer); ok {
			n.SetNamespace(ns)
		} else {
			r.logger.Debug("cache backend does not support namespaces",
				zap.String("type", typeName),
				zap.String("namespace", ns),
			)
		}
	}
	r.logger.Debug("cache resolved", zap.String("type", typeName), zap.String("driver", string(store.Driver())))
	return store, nil
}
