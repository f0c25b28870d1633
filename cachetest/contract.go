package cachetest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
)

// Options configures shared store contract checks.
type Options struct {
	// CaseName is used to namespace keys. Defaults to t.Name().
	CaseName string
	// NullSemantics enables relaxed expectations for the null store.
	NullSemantics bool
	// SkipCloneCheck disables the "get returns a cloned value" assertion.
	SkipCloneCheck bool
	// SkipTTL disables the expiry assertion for backends without per-entry TTL.
	SkipTTL bool
	// TTL controls the expiry duration used in TTL tests.
	TTL time.Duration
	// TTLWait is how long the harness waits for expiry to occur.
	TTLWait time.Duration
	// SkipFlush disables the flush assertion for drivers where it is expensive or unavailable.
	SkipFlush bool
}

// Store is the minimal contract required by RunStoreContract.
type Store = cachecore.Store

// RunStoreContract runs a backend-agnostic store contract suite.
func RunStoreContract(t *testing.T, store Store, opts Options) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 50 * time.Millisecond
	}
	wait := opts.TTLWait
	if wait <= 0 {
		wait = 120 * time.Millisecond
	}

	ctx := context.Background()
	key := func(s string) string {
		return sanitize(caseName) + ":" + s
	}

	if store.Driver() == "" {
		t.Fatalf("expected store to report a driver")
	}

	// Set/Get round-trip.
	if err := store.Set(ctx, key("alpha"), []byte("value"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	body, ok, err := store.Get(ctx, key("alpha"))
	if err != nil {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if opts.NullSemantics {
		if ok {
			t.Fatalf("expected miss for null semantics")
		}
	} else {
		if !ok || string(body) != "value" {
			t.Fatalf("unexpected get result: ok=%v body=%q err=%v", ok, string(body), err)
		}
		if !opts.SkipCloneCheck {
			body[0] = 'X'
			body2, ok2, err2 := store.Get(ctx, key("alpha"))
			if err2 != nil || !ok2 || string(body2) != "value" {
				t.Fatalf("expected stored value unchanged, got ok=%v body=%q err=%v", ok2, string(body2), err2)
			}
		}
	}

	// Has.
	has, err := store.Has(ctx, key("alpha"))
	if err != nil {
		t.Fatalf("has failed: %v", err)
	}
	if has == opts.NullSemantics {
		t.Fatalf("unexpected has result: %v", has)
	}
	has, err = store.Has(ctx, key("missing"))
	if err != nil || has {
		t.Fatalf("expected has=false for missing key; has=%v err=%v", has, err)
	}
	if _, ok, err := store.Get(ctx, key("missing")); err != nil || ok {
		t.Fatalf("expected miss for missing key; ok=%v err=%v", ok, err)
	}

	// Overwrite.
	if err := store.Set(ctx, key("alpha"), []byte("other"), time.Second); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if !opts.NullSemantics {
		if body, ok, err := store.Get(ctx, key("alpha")); err != nil || !ok || string(body) != "other" {
			t.Fatalf("expected overwritten value; ok=%v body=%q err=%v", ok, string(body), err)
		}
	}

	// TTL expiry.
	if !opts.SkipTTL {
		if err := store.Set(ctx, key("ttl"), []byte("v"), ttl); err != nil {
			t.Fatalf("set ttl failed: %v", err)
		}
		if err := waitForMiss(ctx, store, key("ttl"), wait); err != nil {
			t.Fatalf("expected ttl expiry: %v", err)
		}
	}

	// Delete.
	if err := store.Set(ctx, key("a"), []byte("1"), time.Second); err != nil {
		t.Fatalf("set a failed: %v", err)
	}
	if err := store.Delete(ctx, key("a")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, err := store.Get(ctx, key("a")); err != nil || ok {
		t.Fatalf("expected key a deleted; ok=%v err=%v", ok, err)
	}
	if err := store.Delete(ctx, key("never-set")); err != nil {
		t.Fatalf("delete of missing key failed: %v", err)
	}

	// Flush.
	if !opts.SkipFlush {
		if err := store.Set(ctx, key("flush"), []byte("x"), time.Second); err != nil {
			t.Fatalf("set flush failed: %v", err)
		}
		if err := store.Flush(ctx); err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if _, ok, err := store.Get(ctx, key("flush")); err != nil || ok {
			t.Fatalf("expected flush to clear key; ok=%v err=%v", ok, err)
		}
	}
}

// RunNamespaceContract checks that two stores sharing one backend but built
// with different namespaces do not see each other's keys.
//
// newStore must return stores backed by the same storage.
func RunNamespaceContract(t *testing.T, newStore func(t *testing.T, namespace string) Store) {
	t.Helper()

	ctx := context.Background()
	left := newStore(t, "left")
	right := newStore(t, "right")

	ns, ok := left.(cachecore.Namespacer)
	if !ok {
		t.Fatalf("store %T does not implement cachecore.Namespacer", left)
	}
	if got := ns.Namespace(); got != "left" {
		t.Fatalf("expected namespace left, got %q", got)
	}

	key := sanitize(t.Name()) + ":shared"
	if err := left.Set(ctx, key, []byte("from-left"), time.Second); err != nil {
		t.Fatalf("set left failed: %v", err)
	}
	if _, ok, err := right.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected right namespace miss; ok=%v err=%v", ok, err)
	}
	if err := right.Set(ctx, key, []byte("from-right"), time.Second); err != nil {
		t.Fatalf("set right failed: %v", err)
	}
	body, ok, err := left.Get(ctx, key)
	if err != nil || !ok || string(body) != "from-left" {
		t.Fatalf("expected left value intact; ok=%v body=%q err=%v", ok, string(body), err)
	}
}

func waitForMiss(ctx context.Context, store Store, key string, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		_, ok, err := store.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	_, ok, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("key %q still present after %s", key, wait)
	}
	return nil
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
