package renderer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"render-orchestrator/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the render service HTTP endpoints using go-chi.
// Success responses carry {"success":true,...}; failures
// {"success":false,"error":<message>}.
type Handler struct {
	svc      *Service
	uploader *Uploader
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Uploader, Logger,
// and optional Metrics. Metrics may be nil to disable metric recording
// (e.g. in tests).
func NewHandler(svc *Service, uploader *Uploader, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, uploader: uploader, log: log, metrics: m}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy to HTTP statuses: validation
// failures are the caller's fault (400/404), timeouts are 504, anything else
// is a 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrUnknownComposition),
		errors.Is(err, ErrInvalidImageEncoding):
		status = http.StatusBadRequest
	case errors.Is(err, ErrArtifactNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrRenderTimeout):
		status = http.StatusGatewayTimeout
	}
	h.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

// RenderVideo handles POST /render/video.
// Body: { "compositionId": "...", "inputProps": {...}, "compositionCache": false, "codec": "h264" }.
func (h *Handler) RenderVideo(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid render body", slog.String("error", err.Error()))
		h.writeError(w, fmt.Errorf("%w: %v", ErrValidation, err))
		return
	}

	start := time.Now()
	out, err := h.svc.RenderVideo(r.Context(), req)
	if err != nil {
		h.log.Error("render video failed",
			slog.String("composition_id", req.CompositionID),
			slog.String("error", err.Error()))
		h.writeError(w, err)
		return
	}

	h.recordRender(out, time.Since(start))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  renderMessage("Video", out.Cached),
		"filename": out.Filename,
		"url":      "/renders/" + out.Filename,
		"cached":   out.Cached,
	})
}

// RenderStill handles POST /render/still.
func (h *Handler) RenderStill(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid render body", slog.String("error", err.Error()))
		h.writeError(w, fmt.Errorf("%w: %v", ErrValidation, err))
		return
	}

	start := time.Now()
	out, err := h.svc.RenderStill(r.Context(), req)
	if err != nil {
		h.log.Error("render still failed",
			slog.String("composition_id", req.CompositionID),
			slog.String("error", err.Error()))
		h.writeError(w, err)
		return
	}

	h.recordRender(out, time.Since(start))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  renderMessage("Still", out.Cached),
		"filename": out.Filename,
		"url":      "/renders/" + out.Filename,
		"cached":   out.Cached,
	})
}

func renderMessage(what string, cached bool) string {
	if cached {
		return "Using cached " + strings.ToLower(what)
	}
	return what + " rendered successfully"
}

func (h *Handler) recordRender(out RenderOutcome, dur time.Duration) {
	if h.metrics == nil {
		return
	}
	if out.Cached {
		h.metrics.IncCacheHits()
		return
	}
	h.metrics.IncRenders()
	h.metrics.ObserveRenderDuration(dur.Seconds())
}

// ListCompositions handles GET /compositions.
func (h *Handler) ListCompositions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"compositions": h.svc.Compositions(),
	})
}

// ListRenders handles GET /renders. Files are sorted newest-first.
func (h *Handler) ListRenders(w http.ResponseWriter, r *http.Request) {
	files := h.svc.ListRenders()
	if files == nil {
		files = []ArtifactRecord{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"files":   files,
	})
}

// DeleteRender handles DELETE /renders/{filename}.
func (h *Handler) DeleteRender(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := h.svc.DeleteRender(filename); err != nil {
		h.log.Error("delete render failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("File %s deleted successfully", filename),
	})
}

type uploadRequest struct {
	Base64Data string `json:"base64Data"`
}

// UploadImage handles POST /upload/image.
// Body: { "base64Data": "data:image/png;base64,..." }.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", ErrValidation, err))
		return
	}
	if req.Base64Data == "" {
		h.writeError(w, fmt.Errorf("%w: base64Data is required", ErrValidation))
		return
	}

	filename, err := h.uploader.IngestEmbeddedImage(req.Base64Data)
	if err != nil {
		h.log.Error("upload image failed", slog.String("error", err.Error()))
		h.writeError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.IncUploads()
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Image uploaded successfully",
		"filename": filename,
		"url":      "/public/" + filename,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
