package bigcache

import (
	"context"
	"testing"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
	"github.com/goforj/cacheprovider/cachetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBigcacheStoreContract(t *testing.T) {
	s, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("new bigcache store: %v", err)
	}
	t.Cleanup(func() { _ = s.(*store).Close() })

	cachetest.RunStoreContract(t, s, cachetest.Options{SkipTTL: true})
}

func TestBigcacheHasNoNamespace(t *testing.T) {
	s, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("new bigcache store: %v", err)
	}
	t.Cleanup(func() { _ = s.(*store).Close() })
	if _, ok := s.(cachecore.Namespacer); ok {
		t.Fatalf("bigcache store should not support namespaces")
	}
}

func TestBigcacheExpiresAfterConstructorContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(ctx, Config{LifeWindow: time.Second, CleanWindow: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("new bigcache store: %v", err)
	}
	t.Cleanup(func() { _ = s.(*store).Close() })

	if err := s.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ok, err := s.Has(context.Background(), "k")
		if err != nil {
			t.Fatalf("has failed: %v", err)
		}
		if !ok {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("expected entry to expire after life window once the constructor context ended")
}

func TestBigcacheLogsThroughZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	conf := buildConfig(Config{Logger: zap.New(core)})

	conf.Logger.Printf("collision on %s", "k")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Message != "collision on k" || entries[0].LoggerName != "bigcache" {
		t.Fatalf("unexpected log entry: %+v", entries[0])
	}
}

func TestBigcacheDefaultConfig(t *testing.T) {
	conf := buildConfig(Config{})
	if conf.LifeWindow != defaultLifeWindow {
		t.Fatalf("expected default life window, got %v", conf.LifeWindow)
	}
	if conf.MaxEntriesInWindow != defaultMaxEntriesInWindow {
		t.Fatalf("expected default max entries, got %d", conf.MaxEntriesInWindow)
	}
	if conf.Logger == nil {
		t.Fatalf("expected a logger")
	}
}
