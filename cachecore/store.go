package cachecore

import (
	"context"
	"time"
)

// Store is the cache capability every backend provides.
//
// Get returns (value, true, nil) on a hit and (nil, false, nil) on a miss.
// A ttl <= 0 passed to Set falls back to the backend's default TTL.
type Store interface {
	Driver() Driver
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
}

// Namespacer is implemented by stores that can scope their keys under a
// namespace. SetNamespace must be called before the store is shared between
// goroutines.
type Namespacer interface {
	SetNamespace(namespace string)
	Namespace() string
}

// NamespacedKey joins namespace and key the way shared backends store them.
func NamespacedKey(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

// CloneBytes returns a copy of value, preserving nil.
func CloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out
}
