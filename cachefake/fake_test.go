package cachefake

import (
	"context"
	"testing"
	"time"

	"github.com/goforj/cacheprovider/cachetest"
)

func TestFakeStoreContract(t *testing.T) {
	cachetest.RunStoreContract(t, New().Store(), cachetest.Options{})
}

func TestFakeCountsOperations(t *testing.T) {
	f := New()
	ctx := context.Background()
	s := f.Store()

	_ = s.Set(ctx, "a", []byte("1"), time.Minute)
	_, _, _ = s.Get(ctx, "a")
	_, _, _ = s.Get(ctx, "a")
	_, _ = s.Has(ctx, "b")
	_ = s.Delete(ctx, "a")
	_ = s.Flush(ctx)

	f.AssertCalled(t, OpSet, "a", 1)
	f.AssertCalled(t, OpGet, "a", 2)
	f.AssertCalled(t, OpHas, "b", 1)
	f.AssertTotal(t, OpDelete, 1)
	f.AssertTotal(t, OpFlush, 1)
	f.AssertNotCalled(t, OpGet, "b")

	f.Reset()
	f.AssertTotal(t, OpGet, 0)
}

func TestFakeFactoryCountsBuilds(t *testing.T) {
	f := New()
	build := f.Factory()
	v1, err := build()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	v2, _ := build()
	if v1 != v2 {
		t.Fatalf("expected factory to return the same store")
	}
	if f.Builds() != 2 {
		t.Fatalf("expected 2 builds, got %d", f.Builds())
	}
}
