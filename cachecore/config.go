package cachecore

import "time"

// BaseConfig contains shared, backend-agnostic driver configuration.
type BaseConfig struct {
	// DefaultTTL is used when a call provides ttl <= 0.
	DefaultTTL time.Duration

	// Prefix is the initial key namespace. Backends implementing Namespacer
	// let callers replace it after construction.
	Prefix string
}
