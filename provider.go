package cacheprovider

import (
	"context"

	"github.com/goforj/cacheprovider/cachecore"
)

// Provider wires the Resolver and the Registry for an application. Build it
// once at startup and hand its accessors to consumers.
type Provider struct {
	resolver *Resolver
	registry *Registry
}

// New builds a Provider. Empty options fall back to DefaultOptions; non-empty
// options replace the defaults entirely. No cache is constructed until it is
// first requested.
// @group Provider
//
// Example:
//
//	p := cacheprovider.New(cacheprovider.Options{
//		"default": {Driver: "array"},
//		"foo": {
//			Driver:  "@FilesystemCache",
//			Options: cacheprovider.Params{"directory": "/tmp/foo", "namespace": "foo"},
//		},
//	})
//	defer p.Close()
//
//	ctx := context.Background()
//	c, err := p.Cache(ctx)
//	if err != nil {
//		panic(err)
//	}
//	_ = c.Set(ctx, "greeting", []byte("hello"), time.Minute)
func New(options Options, opts ...Option) *Provider {
	s := newSettings(opts)
	return &Provider{
		resolver: s.resolver,
		registry: newRegistry(options, s),
	}
}

// Load builds a Provider from a YAML configuration file (see LoadConfig).
// @group Provider
//
// Example:
//
//	p, err := cacheprovider.Load("config/cache.yaml", cacheprovider.WithLogger(logger))
//	if err != nil {
//		panic(err)
//	}
//	defer p.Close()
func Load(path string, opts ...Option) (*Provider, error) {
	options, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(options, opts...), nil
}

// Cache returns the default cache.
// @group Provider
func (p *Provider) Cache(ctx context.Context) (cachecore.Store, error) {
	return p.registry.Default(ctx)
}

// Caches returns the named-cache registry.
// @group Provider
func (p *Provider) Caches() *Registry { return p.registry }

// Factory returns the Resolver for building caches outside the registry.
// Stores it returns are owned by the caller.
// @group Provider
func (p *Provider) Factory() *Resolver { return p.resolver }

// Options returns a copy of the effective cache configuration.
// @group Provider
func (p *Provider) Options() Options { return p.registry.Options() }

// Close releases the registry's stores.
// @group Provider
func (p *Provider) Close() error { return p.registry.Close() }
