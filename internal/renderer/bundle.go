package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// BundleManager lazily builds the compiled composition bundle and memoizes
// its location for the process lifetime. Concurrent first callers share a
// single in-flight build; a failed build is not memoized, so the next caller
// retries.
type BundleManager struct {
	engine Engine
	log    *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	handle string
}

// NewBundleManager returns a manager that builds through the given engine.
func NewBundleManager(engine Engine, log *slog.Logger) *BundleManager {
	return &BundleManager{engine: engine, log: log}
}

// Bundle returns the bundle location, building it on first use.
func (m *BundleManager) Bundle(ctx context.Context) (string, error) {
	m.mu.RLock()
	handle := m.handle
	m.mu.RUnlock()
	if handle != "" {
		return handle, nil
	}

	v, err, _ := m.group.Do("bundle", func() (any, error) {
		// Another caller may have completed the build between the fast-path
		// check and entering the flight.
		m.mu.RLock()
		handle := m.handle
		m.mu.RUnlock()
		if handle != "" {
			return handle, nil
		}

		m.log.Info("building composition bundle")
		loc, err := m.engine.BuildBundle(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBundleBuildFailed, err)
		}

		m.mu.Lock()
		m.handle = loc
		m.mu.Unlock()
		return loc, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
