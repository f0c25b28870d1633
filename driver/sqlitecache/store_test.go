package sqlitecache

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
	"github.com/goforj/cacheprovider/cachetest"
)

func newFileStore(t *testing.T, dsn string) cachecore.Store {
	t.Helper()
	store, err := New(context.Background(), Config{
		BaseConfig: cachecore.BaseConfig{DefaultTTL: time.Second},
		DSN:        dsn,
	})
	if err != nil {
		t.Fatalf("sqlite store create failed: %v", err)
	}
	t.Cleanup(func() { _ = store.(io.Closer).Close() })
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	store := newFileStore(t, filepath.Join(t.TempDir(), "cache.db"))
	cachetest.RunStoreContract(t, store, cachetest.Options{
		TTL:     50 * time.Millisecond,
		TTLWait: 120 * time.Millisecond,
	})
}

func TestSQLiteNamespaceContract(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "cache.db")
	cachetest.RunNamespaceContract(t, func(t *testing.T, namespace string) cachetest.Store {
		s := newFileStore(t, dsn)
		s.(cachecore.Namespacer).SetNamespace(namespace)
		return s
	})
}

func TestSQLiteFlushOnlyNamespace(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "cache.db")
	a := newFileStore(t, dsn)
	b := newFileStore(t, dsn)
	a.(cachecore.Namespacer).SetNamespace("a_1")
	b.(cachecore.Namespacer).SetNamespace("ab1")

	if err := a.Set(ctx, "k", []byte("1"), time.Minute); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := b.Set(ctx, "k", []byte("2"), time.Minute); err != nil {
		t.Fatalf("set b: %v", err)
	}
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("flush a: %v", err)
	}
	if ok, err := b.Has(ctx, "k"); err != nil || !ok {
		t.Fatalf("expected b intact; ok=%v err=%v", ok, err)
	}
	if ok, err := a.Has(ctx, "k"); err != nil || ok {
		t.Fatalf("expected a flushed; ok=%v err=%v", ok, err)
	}
}
