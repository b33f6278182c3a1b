package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"render-orchestrator/internal/platform/config"
	"render-orchestrator/internal/platform/logger"
	"render-orchestrator/internal/platform/metrics"
	"render-orchestrator/internal/renderer"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "3000")
	rendersDir := config.GetEnv("RENDERS_DIR", "./renders")
	publicDir := config.GetEnv("PUBLIC_DIR", "./public")
	rendererBin := config.GetEnv("RENDERER_BIN", "renderer")
	bundleEntry := config.GetEnv("BUNDLE_ENTRY", "./src/index.ts")
	renderTimeout := config.GetEnvDuration("RENDER_TIMEOUT", renderer.DefaultRenderTimeout)
	maxRenders := config.GetEnvInt("MAX_CONCURRENT_RENDERS", renderer.DefaultMaxConcurrentRenders)
	retention := config.GetEnvInt("ARTIFACT_RETENTION", renderer.DefaultRetention)
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	store, err := renderer.NewStore(rendersDir, log)
	if err != nil {
		log.Error("artifact store init failed", "error", err)
		os.Exit(1)
	}
	uploader, err := renderer.NewUploader(publicDir, log)
	if err != nil {
		log.Error("uploader init failed", "error", err)
		os.Exit(1)
	}

	engine := renderer.NewExecEngine(rendererBin, bundleEntry, log)
	bundles := renderer.NewBundleManager(engine, log)
	registry := renderer.DefaultRegistry()
	svc := renderer.NewService(registry, store, bundles, engine, log, renderer.Options{
		RenderTimeout:        renderTimeout,
		MaxConcurrentRenders: maxRenders,
		Retention:            retention,
	})
	met := metrics.New()
	h := renderer.NewHandler(svc, uploader, log, met)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
	}))

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveRenders(svc.ActiveRenders()) }).ServeHTTP(w, r)
	})
	r.Post("/render/video", h.RenderVideo)
	r.Post("/render/still", h.RenderStill)
	r.Get("/compositions", h.ListCompositions)
	r.Get("/renders", h.ListRenders)
	r.Delete("/renders/{filename}", h.DeleteRender)
	r.Post("/upload/image", h.UploadImage)
	r.Get("/health", h.Health)

	// Static mounts for rendered artifacts and uploaded images.
	r.Get("/renders/*", staticHandler("/renders/", store.Dir()))
	r.Get("/public/*", staticHandler("/public/", uploader.Dir()))

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"renders_dir", rendersDir,
		"public_dir", publicDir,
		"render_timeout", renderTimeout.String(),
		"max_concurrent_renders", maxRenders,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// staticHandler serves files from dir under the given URL prefix.
func staticHandler(prefix, dir string) http.HandlerFunc {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	}
}
