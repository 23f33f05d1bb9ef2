package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const DefaultThumbnailsSubDir = "thumbnails"

const (
	defaultThumbnailQueueSize  = 200
	defaultNumThumbnailWorkers = 4
	defaultThumbnailMaxSize    = 1024
	defaultPDFRenderDPI        = 150
	defaultThumbnailJobSecs    = 120
	defaultPendingGraceSecs    = 3600
	defaultReconcileSecs       = 600
	defaultMaxUploadMB         = 512
	defaultMaxDescriptionLen   = 2000
)

type Config struct {
	// database path
	DatabasePath string

	// media storage configuration
	MediaStoragePath  string // root for original blobs; thumbnails live in a subdirectory
	ThumbnailsSubDir  string // subdirectory name, also the public URL prefix for thumbnails
	ThumbnailsPath    string // full calculated path for thumbnails
	ThumbnailMaxSize  int    // longest side of generated previews, px
	PDFRenderDPI      int
	MaxUploadSize     int64 // bytes
	MaxDescriptionLen int

	// external tool paths
	FFmpegPath   string
	FFprobePath  string
	PdftoppmPath string

	// worker settings
	ThumbnailQueueSize  int
	NumThumbnailWorkers int
	ThumbnailJobTimeout time.Duration

	// pending-record reconciliation
	PendingGracePeriod time.Duration
	ReconcileInterval  time.Duration

	// dashboard auth
	JWTSecret     string
	AdminUsername string
	AdminPassword string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		zap.L().Warn("invalid integer environment variable, using default",
			zap.String("var", envVar), zap.String("value", valStr), zap.Int("default", defaultVal))
		return defaultVal
	}
	return val
}

func getEnvDurationOrDefault(envVar string, defaultSecs int) time.Duration {
	return time.Duration(getEnvIntOrDefault(envVar, defaultSecs)) * time.Second
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "izba.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	thumbSubDir := getEnvOrDefault("THUMBNAILS_SUBDIR", DefaultThumbnailsSubDir)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	cfg := Config{
		DatabasePath:        dbPath,
		MediaStoragePath:    absMediaStorage,
		ThumbnailsSubDir:    thumbSubDir,
		ThumbnailsPath:      filepath.Join(absMediaStorage, thumbSubDir),
		ThumbnailMaxSize:    getEnvIntOrDefault("THUMBNAIL_MAX_SIZE", defaultThumbnailMaxSize),
		PDFRenderDPI:        getEnvIntOrDefault("PDF_RENDER_DPI", defaultPDFRenderDPI),
		MaxUploadSize:       int64(getEnvIntOrDefault("MAX_UPLOAD_MB", defaultMaxUploadMB)) << 20,
		MaxDescriptionLen:   getEnvIntOrDefault("MAX_DESCRIPTION_LENGTH", defaultMaxDescriptionLen),
		FFmpegPath:          getEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:         getEnvOrDefault("FFPROBE_PATH", "ffprobe"),
		PdftoppmPath:        getEnvOrDefault("PDFTOPPM_PATH", "pdftoppm"),
		ThumbnailQueueSize:  getEnvIntOrDefault("THUMBNAIL_QUEUE_SIZE", defaultThumbnailQueueSize),
		NumThumbnailWorkers: getEnvIntOrDefault("NUM_THUMBNAIL_WORKERS", defaultNumThumbnailWorkers),
		ThumbnailJobTimeout: getEnvDurationOrDefault("THUMBNAIL_JOB_TIMEOUT_SECS", defaultThumbnailJobSecs),
		PendingGracePeriod:  getEnvDurationOrDefault("PENDING_GRACE_SECS", defaultPendingGraceSecs),
		ReconcileInterval:   getEnvDurationOrDefault("RECONCILE_INTERVAL_SECS", defaultReconcileSecs),
		JWTSecret:           jwtSecret,
		AdminUsername:       getEnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPassword:       os.Getenv("ADMIN_PASSWORD"),
	}

	return cfg, nil
}
