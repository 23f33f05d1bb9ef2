package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/izba-pamieci/izbabackend/config"
	"github.com/izba-pamieci/izbabackend/database"
	"github.com/izba-pamieci/izbabackend/handlers"
	"github.com/izba-pamieci/izbabackend/ingest"
	"github.com/izba-pamieci/izbabackend/media"
	"github.com/izba-pamieci/izbabackend/repository"
	"github.com/izba-pamieci/izbabackend/workers"
)

func makeLogger() {
	var logger *zap.Logger
	var err error
	if os.Getenv("DEV_MODE") == "true" {
		cfg := zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
		logger, err = cfg.Build()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	zap.ReplaceGlobals(logger)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("no .env file loaded: %v\n", err)
	}
	makeLogger()
	defer zap.L().Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		zap.L().Fatal("failed to load configuration", zap.Error(err))
	}

	storagePaths := []string{cfg.MediaStoragePath, cfg.ThumbnailsPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		if err := os.MkdirAll(p, 0755); err != nil {
			zap.L().Fatal("failed to create storage directory", zap.String("path", p), zap.Error(err))
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		zap.L().Fatal("failed to initialize database", zap.Error(err))
	}
	if err := database.AutoMigrateModels(db); err != nil {
		zap.L().Fatal("failed to migrate database schema", zap.Error(err))
	}

	assetRepo := repository.NewAssetRepository(db)
	tagRepo := repository.NewTagRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)
	userRepo := repository.NewUserRepository(db)

	if err := userRepo.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		zap.L().Fatal("failed to ensure admin account", zap.Error(err))
	}

	sandbox, err := media.NewSandbox(cfg.MediaStoragePath)
	if err != nil {
		zap.L().Fatal("failed to initialize storage sandbox", zap.Error(err))
	}
	blobStore := media.NewBlobStore(sandbox)
	generator, err := media.NewGenerator(sandbox, media.GeneratorConfig{
		ThumbsSubDir: cfg.ThumbnailsSubDir,
		MaxSize:      cfg.ThumbnailMaxSize,
		PDFRenderDPI: cfg.PDFRenderDPI,
		FFmpegPath:   cfg.FFmpegPath,
		FFprobePath:  cfg.FFprobePath,
		PdftoppmPath: cfg.PdftoppmPath,
	})
	if err != nil {
		zap.L().Fatal("failed to initialize thumbnail generator", zap.Error(err))
	}

	thumbnailPool := workers.NewThumbnailPool(generator, assetRepo,
		cfg.ThumbnailQueueSize, cfg.NumThumbnailWorkers, cfg.ThumbnailJobTimeout)

	reconciler := workers.NewReconciler(assetRepo, blobStore, cfg.ThumbnailsSubDir,
		cfg.PendingGracePeriod, cfg.ReconcileInterval)
	reconciler.Start()

	ingestSvc := ingest.NewService(assetRepo, blobStore, thumbnailPool, cfg.ThumbnailsSubDir)

	assetHandler := handlers.NewAssetHandler(assetRepo, tagRepo, ingestSvc, cfg)
	tagHandler := handlers.NewTagHandler(tagRepo)
	timelineHandler := handlers.NewTimelineHandler(timelineRepo)
	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	requireAuth := handlers.AuthMiddleware(userRepo, cfg.JWTSecret)

	zap.L().Info("storage configured",
		zap.String("database", cfg.DatabasePath),
		zap.String("media_root", cfg.MediaStoragePath),
		zap.String("thumbnails", cfg.ThumbnailsPath))

	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{getEnvOrDefault("CORS_ORIGIN", "http://localhost:5173")},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		// public kiosk surface: published assets only
		r.Route("/public", func(r chi.Router) {
			r.Get("/assets", assetHandler.ListPublishedAssets)
			r.Get("/assets/random", assetHandler.GetRandomAssets)
			r.Get("/timeline", timelineHandler.ListRanges)
		})

		// dashboard surface
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/assets", func(r chi.Router) {
				r.Get("/", assetHandler.ListAssets)
				r.Post("/", assetHandler.UploadAsset)
				r.Get("/stats", assetHandler.GetStats)
				r.Put("/bulk", assetHandler.UpdateAssets)
				r.Delete("/bulk", assetHandler.DeleteAssets)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", assetHandler.GetAsset)
					r.Put("/", assetHandler.UpdateAsset)
					r.Delete("/", assetHandler.DeleteAsset)
				})
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", tagHandler.ListTags)
				r.Post("/", tagHandler.CreateTag)
				r.Delete("/{id}", tagHandler.DeleteTag)
			})

			r.Route("/timeline", func(r chi.Router) {
				r.Get("/", timelineHandler.ListRanges)
				r.Post("/", timelineHandler.CreateRange)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", timelineHandler.GetRange)
					r.Put("/", timelineHandler.UpdateRange)
					r.Delete("/", timelineHandler.DeleteRange)
				})
			})
		})

		r.Get("/media/originals/*", handlers.AssetServer(sandbox, "", "/api/media/originals/"))
		r.Get(fmt.Sprintf("/media/%s/*", cfg.ThumbnailsSubDir),
			handlers.AssetServer(sandbox, cfg.ThumbnailsSubDir, fmt.Sprintf("/api/media/%s/", cfg.ThumbnailsSubDir)))
	})

	port := getEnvOrDefault("PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  5 * time.Minute, // uploads can be large
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zap.L().Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown failed", zap.Error(err))
	}

	reconciler.Stop()
	thumbnailPool.Stop()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
