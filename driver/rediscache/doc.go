// Package rediscache provides a Redis-backed cachecore.Store implementation.
//
// Keys are stored as "<namespace>:<key>". The namespace defaults to "app" and
// can be replaced through cachecore.Namespacer before the store is shared.
//
// Example:
//
//	store := rediscache.New(rediscache.Config{
//		Addr: "127.0.0.1:6379",
//	})
//	defer store.(io.Closer).Close()
package rediscache
