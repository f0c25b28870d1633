package memcachedcache

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
	"github.com/goforj/cacheprovider/cachetest"
)

func TestDialErrors(t *testing.T) {
	orig := dialMemcached
	dialMemcached = func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("refused")
	}
	t.Cleanup(func() { dialMemcached = orig })

	store := New(Config{})
	if _, _, err := store.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected dial error")
	}
	if err := store.Flush(context.Background()); err == nil {
		t.Fatalf("expected flush dial error")
	}
}

func TestStoreContractAgainstFakeServer(t *testing.T) {
	startFakeMemcached(t)
	s := New(Config{Addresses: []string{"fake:11211"}})
	t.Cleanup(func() { _ = s.(*store).Close() })

	cachetest.RunStoreContract(t, s, cachetest.Options{
		TTL:     time.Second,
		TTLWait: 2500 * time.Millisecond,
	})
}

func TestNamespaceContractAgainstFakeServer(t *testing.T) {
	startFakeMemcached(t)
	cachetest.RunNamespaceContract(t, func(t *testing.T, namespace string) cachetest.Store {
		s := New(Config{Addresses: []string{"fake:11211"}})
		s.(cachecore.Namespacer).SetNamespace(namespace)
		return s
	})
}

func TestConnectionsAreReused(t *testing.T) {
	srv := startFakeMemcached(t)
	store := New(Config{Addresses: []string{"fake:11211"}})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.dials != 1 {
		t.Fatalf("expected one pooled connection, dialed %d", srv.dials)
	}
}

func TestServerSelectionIsStable(t *testing.T) {
	s := New(Config{Addresses: []string{"a:1", "b:1", "c:1"}}).(*store)
	first := s.server("app:user:42")
	for i := 0; i < 10; i++ {
		if got := s.server("app:user:42"); got != first {
			t.Fatalf("server changed from %s to %s", first, got)
		}
	}
}

func TestClosedStoreErrors(t *testing.T) {
	startFakeMemcached(t)
	s := New(Config{Addresses: []string{"fake:11211"}}).(*store)
	if err := s.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if _, _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error after close")
	}
}

func TestUnexpectedResponse(t *testing.T) {
	startFakeMemcached(t)
	s := New(Config{Addresses: []string{"fake:11211"}}).(*store)
	err := s.do(context.Background(), "fake:11211", func(mc *memcachedConn) error {
		if _, err := mc.conn.Write([]byte("bogus\r\n")); err != nil {
			return err
		}
		line, err := mc.reader.ReadString('\n')
		if err != nil {
			return err
		}
		if line != "ERROR\r\n" {
			t.Fatalf("unexpected line %q", line)
		}
		return errors.New("discard")
	})
	if err == nil {
		t.Fatalf("expected error to propagate")
	}
	if len(s.pools["fake:11211"]) != 0 {
		t.Fatalf("expected failed connection to be discarded")
	}
}
