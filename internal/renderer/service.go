package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultRenderTimeout bounds a single render call. The external renderer
	// is the slowest part of the system by far.
	DefaultRenderTimeout = 10 * time.Minute

	// DefaultMaxConcurrentRenders caps renders running at once. The renderer
	// is the bottleneck resource; requests beyond the cap wait for a slot.
	DefaultMaxConcurrentRenders = 2
)

// Options tunes the render orchestrator. Zero values select the defaults.
type Options struct {
	RenderTimeout        time.Duration
	MaxConcurrentRenders int
	Retention            int
}

// Service orchestrates the render-request lifecycle: resolve the composition,
// check the artifact cache, build/reuse the bundle, drive the engine, record
// the output, prune old artifacts.
type Service struct {
	registry *Registry
	store    *Store
	bundles  *BundleManager
	engine   Engine
	log      *slog.Logger

	timeout   time.Duration
	retention int
	slots     chan struct{}
}

// NewService wires the orchestrator from its collaborators.
func NewService(registry *Registry, store *Store, bundles *BundleManager, engine Engine, log *slog.Logger, opts Options) *Service {
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = DefaultRenderTimeout
	}
	if opts.MaxConcurrentRenders <= 0 {
		opts.MaxConcurrentRenders = DefaultMaxConcurrentRenders
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	return &Service{
		registry:  registry,
		store:     store,
		bundles:   bundles,
		engine:    engine,
		log:       log,
		timeout:   opts.RenderTimeout,
		retention: opts.Retention,
		slots:     make(chan struct{}, opts.MaxConcurrentRenders),
	}
}

// RenderVideo renders (or reuses) an MP4 artifact for the request.
func (s *Service) RenderVideo(ctx context.Context, req RenderRequest) (RenderOutcome, error) {
	if req.Codec == "" {
		req.Codec = CodecH264
	}
	if !req.Codec.Valid() {
		return RenderOutcome{}, fmt.Errorf("%w: unsupported codec %q", ErrValidation, req.Codec)
	}
	return s.render(ctx, req, KindComposition)
}

// RenderStill renders (or reuses) a PNG artifact for the request.
func (s *Service) RenderStill(ctx context.Context, req RenderRequest) (RenderOutcome, error) {
	req.Codec = ""
	return s.render(ctx, req, KindStill)
}

func (s *Service) render(ctx context.Context, req RenderRequest, artifact Kind) (RenderOutcome, error) {
	entry, props, err := s.registry.Resolve(req.CompositionID, req.InputProps)
	if err != nil {
		return RenderOutcome{}, err
	}

	if req.UseCache {
		if rec, ok := s.store.FindCached(entry.ID, artifact); ok {
			s.log.Debug("cache hit",
				slog.String("composition_id", string(entry.ID)),
				slog.String("filename", rec.Filename))
			return RenderOutcome{Filename: rec.Filename, Cached: true}, nil
		}
	}

	// Admission: wait for a render slot, or give up with the caller.
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return RenderOutcome{}, ctx.Err()
	}

	bundleLoc, err := s.bundles.Bundle(ctx)
	if err != nil {
		return RenderOutcome{}, err
	}

	filename, outputPath, err := s.store.Allocate(entry.ID, artifact)
	if err != nil {
		return RenderOutcome{}, err
	}

	job := RenderJob{
		BundleLocation:   bundleLoc,
		CompositionID:    entry.ID,
		Kind:             entry.Kind,
		Width:            entry.Width,
		Height:           entry.Height,
		FPS:              entry.FPS,
		DurationInFrames: entry.DurationInFrames,
		Props:            props,
		Codec:            req.Codec,
		OutputPath:       outputPath,
	}

	renderID := uuid.NewString()
	s.log.Info("rendering",
		slog.String("render_id", renderID),
		slog.String("composition_id", string(entry.ID)),
		slog.String("kind", artifact.ArtifactType()),
		slog.String("filename", filename))

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if artifact == KindStill {
		err = s.engine.RenderStill(rctx, job)
	} else {
		err = s.engine.RenderMedia(rctx, job)
	}
	if err != nil {
		// A partial output file may remain on disk; it is never committed to
		// the index, so it is invisible to cache lookups and listings.
		if errors.Is(err, context.DeadlineExceeded) || rctx.Err() == context.DeadlineExceeded {
			s.log.Error("render timed out",
				slog.String("render_id", renderID),
				slog.String("composition_id", string(entry.ID)))
			return RenderOutcome{}, fmt.Errorf("%w after %s", ErrRenderTimeout, s.timeout)
		}
		s.log.Error("render failed",
			slog.String("render_id", renderID),
			slog.String("composition_id", string(entry.ID)),
			slog.String("error", err.Error()))
		return RenderOutcome{}, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	rec, err := s.store.Commit(filename)
	if err != nil {
		return RenderOutcome{}, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	s.store.Prune(entry.ID, artifact, s.retention)

	s.log.Info("render complete",
		slog.String("render_id", renderID),
		slog.String("filename", rec.Filename),
		slog.Int64("size_bytes", rec.SizeBytes),
		slog.Int("duration_ms", int(time.Since(start).Milliseconds())))

	return RenderOutcome{Filename: filename, Cached: false}, nil
}

// Compositions lists the registered compositions with their default props.
func (s *Service) Compositions() []CompositionInfo {
	return s.registry.List()
}

// ListRenders returns all stored artifacts, newest first.
func (s *Service) ListRenders() []ArtifactRecord {
	return s.store.List()
}

// DeleteRender removes a stored artifact by filename.
func (s *Service) DeleteRender(filename string) error {
	return s.store.Delete(filename)
}

// ActiveRenders reports how many renders currently hold a slot. Used for the
// metrics gauge.
func (s *Service) ActiveRenders() int {
	return len(s.slots)
}
