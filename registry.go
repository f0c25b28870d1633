package cacheprovider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrRegistryClosed is returned by Registry.Get after Close.
var ErrRegistryClosed = errors.New("cacheprovider: registry closed")

// Registry hands out one lazily constructed store per configured name.
// It is safe for concurrent use; concurrent first lookups of a name share a
// single construction.
type Registry struct {
	resolver *Resolver
	logger   *zap.Logger
	observer Observer

	group singleflight.Group

	mu       sync.RWMutex
	configs  map[string]Config
	stores   map[string]cachecore.Store
	building map[string]struct{}
	closed   bool
}

// NewRegistry builds a Registry over options. Empty options fall back to
// DefaultOptions. Nothing is constructed until the first Get.
// @group Registry
//
// Example:
//
//	reg := cacheprovider.NewRegistry(cacheprovider.Options{
//		"default": {Driver: "array"},
//		"files":   {Driver: "filesystem", Options: cacheprovider.Params{"directory": "/tmp/cache"}},
//	})
//	files, err := reg.Get(context.Background(), "files")
//	if err != nil {
//		panic(err)
//	}
//	fmt.Println(files.Driver()) // file
func NewRegistry(options Options, opts ...Option) *Registry {
	s := newSettings(opts)
	return newRegistry(options, s)
}

func newRegistry(options Options, s settings) *Registry {
	if len(options) == 0 {
		options = DefaultOptions()
	}
	return &Registry{
		resolver: s.resolver,
		logger:   s.logger,
		observer: s.observer,
		configs:  options.Clone(),
		stores:   make(map[string]cachecore.Store),
		building: make(map[string]struct{}),
	}
}

// Get returns the store for name, constructing it on first use. Later calls
// return the identical store. A failed construction is not remembered; the
// next Get tries again.
// @group Registry
func (r *Registry) Get(ctx context.Context, name string) (cachecore.Store, error) {
	r.mu.RLock()
	store, ok := r.stores[name]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrRegistryClosed
	}
	if ok {
		return store, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		r.mu.Lock()
		store, ok := r.stores[name]
		cfg, configured := r.configs[name]
		if !ok && configured {
			r.building[name] = struct{}{}
		}
		r.mu.Unlock()
		if ok {
			return store, nil
		}
		if !configured {
			return nil, &UnknownCacheError{Name: name}
		}
		defer func() {
			r.mu.Lock()
			delete(r.building, name)
			r.mu.Unlock()
		}()
		return r.resolve(ctx, name, cfg)
	})
	if err != nil {
		return nil, err
	}
	return v.(cachecore.Store), nil
}

func (r *Registry) resolve(ctx context.Context, name string, cfg Config) (cachecore.Store, error) {
	start := time.Now()
	store, err := r.resolver.Resolve(ctx, cfg)
	dur := time.Since(start)
	if r.observer != nil {
		r.observer.OnResolve(ctx, name, driverLabel(cfg), err, dur)
	}
	if err != nil {
		r.logger.Warn("cache resolution failed",
			zap.String("cache", name),
			zap.String("driver", driverLabel(cfg)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("resolve cache %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		_ = closeStore(store)
		return nil, ErrRegistryClosed
	}
	r.stores[name] = store
	r.logger.Debug("cache ready",
		zap.String("cache", name),
		zap.String("driver", string(store.Driver())),
		zap.Duration("took", dur),
	)
	return store, nil
}

// Default returns the store named "default".
// @group Registry
func (r *Registry) Default(ctx context.Context) (cachecore.Store, error) {
	return r.Get(ctx, DefaultCacheName)
}

// Register adds or replaces the configuration for name. It fails with
// ErrCacheResolved once construction of name has started; a failed
// construction frees the name again.
// @group Registry
//
// Example:
//
//	reg := cacheprovider.NewRegistry(nil)
//	if err := reg.Register("sessions", cacheprovider.Config{Driver: "array"}); err != nil {
//		panic(err)
//	}
//	sessions, _ := reg.Get(context.Background(), "sessions")
//	_ = sessions
func (r *Registry) Register(name string, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[name]; ok {
		return fmt.Errorf("register cache %q: %w", name, ErrCacheResolved)
	}
	if _, ok := r.building[name]; ok {
		return fmt.Errorf("register cache %q: %w", name, ErrCacheResolved)
	}
	r.configs[name] = cfg
	return nil
}

// Names returns the configured cache names in sorted order.
// @group Registry
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Configured reports whether name has a configuration.
func (r *Registry) Configured(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.configs[name]
	return ok
}

// Resolved reports whether name has been constructed.
func (r *Registry) Resolved(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stores[name]
	return ok
}

// Options returns a copy of the current configuration.
func (r *Registry) Options() Options {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Options(r.configs).Clone()
}

// Close releases every constructed store implementing io.Closer. Get fails
// with ErrRegistryClosed afterwards.
// @group Registry
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	stores := r.stores
	r.stores = make(map[string]cachecore.Store)
	r.mu.Unlock()

	var errs []error
	for name, store := range stores {
		if err := closeStore(store); err != nil {
			errs = append(errs, fmt.Errorf("close cache %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func closeStore(store cachecore.Store) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
