package renderer

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// fakeEngine stands in for the external renderer in tests. It writes a small
// placeholder file to the job's output path on success.
type fakeEngine struct {
	builds  atomic.Int32
	renders atomic.Int32

	mu        sync.Mutex
	buildErr  error
	renderErr error
	delay     time.Duration
}

func (f *fakeEngine) setBuildErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buildErr = err
}

func (f *fakeEngine) setRenderErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renderErr = err
}

func (f *fakeEngine) BuildBundle(ctx context.Context) (string, error) {
	f.builds.Add(1)
	f.mu.Lock()
	err := f.buildErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return "/tmp/test-bundle", nil
}

func (f *fakeEngine) RenderMedia(ctx context.Context, job RenderJob) error {
	return f.renderTo(ctx, job)
}

func (f *fakeEngine) RenderStill(ctx context.Context, job RenderJob) error {
	return f.renderTo(ctx, job)
}

func (f *fakeEngine) renderTo(ctx context.Context, job RenderJob) error {
	f.renders.Add(1)
	f.mu.Lock()
	err := f.renderErr
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	return os.WriteFile(job.OutputPath, []byte("rendered "+string(job.CompositionID)), 0o644)
}

var errEngineBroken = errors.New("engine broken")
