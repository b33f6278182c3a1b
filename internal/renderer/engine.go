package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// RenderJob is the full specification handed to the external renderer for a
// single render.
type RenderJob struct {
	BundleLocation   string        `json:"bundleLocation"`
	CompositionID    CompositionID `json:"compositionId"`
	Kind             Kind          `json:"kind"`
	Width            int           `json:"width"`
	Height           int           `json:"height"`
	FPS              int           `json:"fps,omitempty"`
	DurationInFrames int           `json:"durationInFrames,omitempty"`
	Props            Props         `json:"inputProps"`
	Codec            Codec         `json:"codec,omitempty"`
	OutputPath       string        `json:"outputPath"`
}

// Engine is the contract with the external rendering toolchain. Bundling,
// frame composition, and encoding all happen behind it; this service only
// sees the call boundary.
type Engine interface {
	// BuildBundle compiles the composition sources into a renderer-consumable
	// bundle and returns its location.
	BuildBundle(ctx context.Context) (string, error)

	// RenderMedia renders a video to job.OutputPath. Writing the output file
	// is the engine's side effect.
	RenderMedia(ctx context.Context, job RenderJob) error

	// RenderStill renders a single frame to job.OutputPath.
	RenderStill(ctx context.Context, job RenderJob) error
}

// ExecEngine drives a renderer CLI as a subprocess. Each call passes a JSON
// job spec on stdin; the bundle subcommand prints the bundle location on
// stdout.
type ExecEngine struct {
	bin   string
	entry string
	log   *slog.Logger
}

// NewExecEngine returns an engine that invokes the renderer binary at bin
// with the given composition entry point.
func NewExecEngine(bin, entry string, log *slog.Logger) *ExecEngine {
	return &ExecEngine{bin: bin, entry: entry, log: log}
}

// BuildBundle implements Engine.BuildBundle.
func (e *ExecEngine) BuildBundle(ctx context.Context) (string, error) {
	out, err := e.run(ctx, "bundle", map[string]any{"entryPoint": e.entry})
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("renderer bundle: empty bundle location")
	}
	e.log.Info("bundle created", slog.String("location", out))
	return out, nil
}

// RenderMedia implements Engine.RenderMedia.
func (e *ExecEngine) RenderMedia(ctx context.Context, job RenderJob) error {
	_, err := e.run(ctx, "render", job)
	return err
}

// RenderStill implements Engine.RenderStill.
func (e *ExecEngine) RenderStill(ctx context.Context, job RenderJob) error {
	_, err := e.run(ctx, "still", job)
	return err
}

func (e *ExecEngine) run(ctx context.Context, subcommand string, spec any) (string, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("renderer %s: encode spec: %v", subcommand, err)
	}

	cmd := exec.CommandContext(ctx, e.bin, subcommand)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Context errors take precedence so timeouts are reported as such
		// instead of as a killed subprocess.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("renderer %s: %s", subcommand, msg)
	}

	return strings.TrimSpace(stdout.String()), nil
}
