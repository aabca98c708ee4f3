//	@title			Box Gallery API
//	@version		1.0
//	@description	Image upload gateway: stores photos with the media provider grouped by date or box id.
//
//	@host		localhost:10000
//	@BasePath	/

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/boxgallery/service/internal/config"
	"github.com/boxgallery/service/internal/gallery"
	"github.com/boxgallery/service/internal/logging"
	"github.com/boxgallery/service/internal/metrics"
	appMiddleware "github.com/boxgallery/service/internal/middleware"
	"github.com/boxgallery/service/internal/storage"
	"github.com/boxgallery/service/internal/upload"

	_ "github.com/boxgallery/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.IsProduction(), cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("metrics init failed")
	}

	provider, err := newProvider(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("media provider init failed")
	}

	receiver, err := upload.NewReceiver(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		log.Fatal().Err(err).Msg("upload dir init failed")
	}

	// Wire dependencies: provider → service → handler
	svc := gallery.NewService(
		storage.WithObserver(provider, m),
		gallery.WithAdmissionLimit(cfg.MaxConcurrentUploads),
		gallery.WithUploadTracker(m),
	)
	galleryHandler := gallery.NewHandler(svc, receiver)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(m))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Swagger UI — available at http://localhost:10000/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	var uploadMW []func(http.Handler) http.Handler
	if cfg.UploadJWTSecret != "" {
		uploadMW = append(uploadMW, appMiddleware.RequireAuth(cfg.UploadJWTSecret))
	}
	galleryHandler.Mount(r, uploadMW...)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.AppEnv).
			Str("driver", cfg.StorageDriver).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

// newProvider builds the media provider selected by cfg.StorageDriver.
func newProvider(ctx context.Context, cfg *config.Config) (storage.Provider, error) {
	switch cfg.StorageDriver {
	case config.DriverMinio:
		return storage.NewMinioStorage(ctx,
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StoragePublicBase,
			cfg.StorageUseSSL,
		)
	case config.DriverMemory:
		return storage.NewMemoryStorage("http://localhost:" + cfg.Port + "/media"), nil
	default:
		return storage.NewCloudinaryStorage(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	}
}
