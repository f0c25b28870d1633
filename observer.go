package cacheprovider

import (
	"context"
	"time"
)

// Observer receives an event after every cache resolution attempt.
// driver is the configured driver string, or "factory" for factory configs.
type Observer interface {
	OnResolve(ctx context.Context, name string, driver string, err error, dur time.Duration)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, name string, driver string, err error, dur time.Duration)

// OnResolve implements Observer.
func (f ObserverFunc) OnResolve(ctx context.Context, name string, driver string, err error, dur time.Duration) {
	if f == nil {
		return
	}
	f(ctx, name, driver, err, dur)
}

func driverLabel(cfg Config) string {
	if cfg.Factory != nil {
		return "factory"
	}
	return cfg.Driver
}
