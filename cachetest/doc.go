// Package cachetest provides reusable contract tests for cachecore.Store
// implementations.
//
// Example pattern (driver package test):
//
//	func TestRedisStoreContract(t *testing.T) {
//		store := rediscache.New(rediscache.Config{Client: newTestRedisClient(t)})
//		cachetest.RunStoreContract(t, store, cachetest.Options{
//			CaseName: t.Name(),
//			TTL:      time.Second,
//			TTLWait:  1500 * time.Millisecond,
//		})
//	}
//
// Backends that implement cachecore.Namespacer can also run
// RunNamespaceContract with a constructor that shares the underlying storage.
package cachetest
