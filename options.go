package cacheprovider

import "go.uber.org/zap"

// Option configures a Provider or Registry.
type Option func(*settings)

type settings struct {
	logger   *zap.Logger
	resolver *Resolver
	observer Observer
	types    map[string]Constructor
}

func newSettings(opts []Option) settings {
	s := settings{types: make(map[string]Constructor)}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.resolver == nil {
		s.resolver = NewResolver(s.logger)
	}
	for name, ctor := range s.types {
		s.resolver.Register(name, ctor)
	}
	return s
}

// WithLogger sets the logger used for resolution events.
// @group Options
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithResolver replaces the built-in Resolver. Types added with WithType are
// registered on it.
// @group Options
func WithResolver(resolver *Resolver) Option {
	return func(s *settings) { s.resolver = resolver }
}

// WithType registers an extra backend type on the Resolver.
// @group Options
//
// Example:
//
//	p := cacheprovider.New(cacheprovider.Options{
//		"default": {Driver: "tiered"},
//	}, cacheprovider.WithType("TieredCache", newTieredCache))
//	_ = p
func WithType(typeName string, ctor Constructor) Option {
	return func(s *settings) { s.types[typeName] = ctor }
}

// WithObserver sets an observer notified after each resolution attempt.
// @group Options
func WithObserver(observer Observer) Option {
	return func(s *settings) { s.observer = observer }
}
