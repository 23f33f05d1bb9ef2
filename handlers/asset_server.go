package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/izba-pamieci/izbabackend/media"
)

// AssetServer serves stored media files from a subdirectory of the storage
// sandbox. The route prefix must match subDir, e.g.:
//
//	r.Get("/media/originals/*", AssetServer(sandbox, "", "/media/originals/"))
//	r.Get("/media/thumbnails/*", AssetServer(sandbox, cfg.ThumbnailsSubDir, "/media/thumbnails/"))
//
// Every request path is resolved through the sandbox, so traversal attempts
// never escape the storage root.
func AssetServer(sandbox *media.Sandbox, subDir, routePrefix string) http.HandlerFunc {
	baseDir := sandbox.Root()
	if subDir != "" {
		baseDir = filepath.Join(baseDir, subDir)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := strings.TrimPrefix(r.URL.Path, routePrefix)
		if relativePath == "" {
			http.Error(w, "Invalid asset path", http.StatusBadRequest)
			return
		}

		segments := []string{}
		if subDir != "" {
			segments = append(segments, subDir)
		}
		segments = append(segments, relativePath)

		assetPath, err := sandbox.Resolve(segments...)
		if err == nil && !strings.HasPrefix(assetPath, baseDir+string(os.PathSeparator)) {
			err = media.ErrUnsafePath
		}
		if err != nil {
			if errors.Is(err, media.ErrUnsafePath) {
				zap.L().Warn("blocked asset access outside served directory",
					zap.String("request_path", r.URL.Path))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			http.Error(w, "Invalid asset path", http.StatusBadRequest)
			return
		}

		if _, err := os.Stat(assetPath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			zap.L().Error("failed to stat asset file", zap.String("path", assetPath), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		cacheDuration := 24 * time.Hour
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

		http.ServeFile(w, r, assetPath)
	}
}
