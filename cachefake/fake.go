// Package cachefake provides a counting in-memory cachecore.Store and a
// ready-made factory for tests of code that consumes a cache provider.
package cachefake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
	"github.com/goforj/cacheprovider/driver/memorycache"
)

// Op identifies a cache operation for assertions.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpHas    Op = "has"
	OpDelete Op = "delete"
	OpFlush  Op = "flush"
)

// Fake exposes a deterministic in-memory store plus assertion helpers for tests.
// It wraps the memory store so no external services are needed.
type Fake struct {
	store  *countingStore
	counts map[Op]map[string]int
	builds int
	mu     sync.Mutex
}

// New creates a Fake using an in-memory store.
func New() *Fake {
	f := &Fake{counts: make(map[Op]map[string]int)}
	f.store = &countingStore{inner: memorycache.New(memorycache.Config{}), onCount: f.record}
	return f
}

// Store returns the store to inject into code under test.
func (f *Fake) Store() cachecore.Store { return f.store }

// Factory returns a cache factory that yields the fake's store and counts how
// often it was invoked. Plug it into a cache config to observe construction.
func (f *Fake) Factory() func() (any, error) {
	return func() (any, error) {
		f.mu.Lock()
		f.builds++
		f.mu.Unlock()
		return f.store, nil
	}
}

// Builds reports how many times the factory ran.
func (f *Fake) Builds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds
}

// Reset clears recorded counts.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[Op]map[string]int)
	f.builds = 0
}

// AssertCalled verifies key was touched by op the expected number of times.
func (f *Fake) AssertCalled(t *testing.T, op Op, key string, times int) {
	t.Helper()
	if got := f.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures key was never touched by op.
func (f *Fake) AssertNotCalled(t *testing.T, op Op, key string) {
	t.Helper()
	if got := f.Count(op, key); got != 0 {
		t.Fatalf("expected %s %q not called, got %d", op, key, got)
	}
}

// AssertTotal ensures the total call count for an op matches times.
func (f *Fake) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := f.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

// Count returns calls for op+key.
func (f *Fake) Count(op Op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[op][key]
}

// Total returns total calls for an op across keys.
func (f *Fake) Total(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int
	for _, v := range f.counts[op] {
		sum += v
	}
	return sum
}

func (f *Fake) record(op Op, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		f.counts[op] = make(map[string]int)
	}
	f.counts[op][key]++
}

// countingStore wraps a Store to record calls.
type countingStore struct {
	inner   cachecore.Store
	onCount func(Op, string)
}

func (s *countingStore) Driver() cachecore.Driver { return s.inner.Driver() }

func (s *countingStore) SetNamespace(namespace string) {
	if ns, ok := s.inner.(cachecore.Namespacer); ok {
		ns.SetNamespace(namespace)
	}
}

func (s *countingStore) Namespace() string {
	if ns, ok := s.inner.(cachecore.Namespacer); ok {
		return ns.Namespace()
	}
	return ""
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.onCount(OpGet, key)
	return s.inner.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	s.onCount(OpSet, key)
	return s.inner.Set(ctx, key, val, ttl)
}

func (s *countingStore) Has(ctx context.Context, key string) (bool, error) {
	s.onCount(OpHas, key)
	return s.inner.Has(ctx, key)
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.onCount(OpDelete, key)
	return s.inner.Delete(ctx, key)
}

func (s *countingStore) Flush(ctx context.Context) error {
	s.onCount(OpFlush, "")
	return s.inner.Flush(ctx)
}
