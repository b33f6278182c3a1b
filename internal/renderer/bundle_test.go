package renderer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"render-orchestrator/internal/platform/logger"
)

func TestBundleManager_memoizes_handle(t *testing.T) {
	engine := &fakeEngine{}
	m := NewBundleManager(engine, logger.Nop())

	first, err := m.Bundle(context.Background())
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	second, err := m.Bundle(context.Background())
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if first != second {
		t.Errorf("expected same handle, got %q and %q", first, second)
	}
	if n := engine.builds.Load(); n != 1 {
		t.Errorf("expected exactly 1 build, got %d", n)
	}
}

func TestBundleManager_concurrent_first_access_single_build(t *testing.T) {
	engine := &fakeEngine{}
	m := NewBundleManager(engine, logger.Nop())

	const callers = 16
	handles := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = m.Bundle(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if handles[i] != handles[0] {
			t.Errorf("caller %d got %q, want %q", i, handles[i], handles[0])
		}
	}
	if n := engine.builds.Load(); n != 1 {
		t.Errorf("expected exactly 1 build for %d concurrent callers, got %d", callers, n)
	}
}

func TestBundleManager_failed_build_is_retried(t *testing.T) {
	engine := &fakeEngine{}
	engine.setBuildErr(errEngineBroken)
	m := NewBundleManager(engine, logger.Nop())

	_, err := m.Bundle(context.Background())
	if !errors.Is(err, ErrBundleBuildFailed) {
		t.Fatalf("expected ErrBundleBuildFailed, got %v", err)
	}

	// The failure must not poison the slot: the next caller rebuilds.
	engine.setBuildErr(nil)
	handle, err := m.Bundle(context.Background())
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if handle == "" {
		t.Error("expected handle after retry")
	}
	if n := engine.builds.Load(); n != 2 {
		t.Errorf("expected 2 build attempts, got %d", n)
	}
}
