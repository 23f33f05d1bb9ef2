package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/izba-pamieci/izbabackend/models"
)

const thumbnailJPEGQuality = 85

// GeneratorConfig carries tool paths and output bounds for the generator.
type GeneratorConfig struct {
	ThumbsSubDir string // subdirectory name under the storage root
	MaxSize      int    // longest side of the generated preview, px
	PDFRenderDPI int
	FFmpegPath   string
	FFprobePath  string
	PdftoppmPath string
}

// Generator produces one bounded-size preview image per asset, named
// deterministically from the stored file name. Generation is best-effort:
// callers log failures and never fail the originating upload.
type Generator struct {
	sandbox *Sandbox
	cfg     GeneratorConfig
}

// NewGenerator creates a generator and ensures the thumbnails directory exists.
func NewGenerator(sandbox *Sandbox, cfg GeneratorConfig) (*Generator, error) {
	if cfg.ThumbsSubDir == "" || strings.ContainsRune(cfg.ThumbsSubDir, os.PathSeparator) {
		return nil, fmt.Errorf("invalid thumbnails subdirectory name '%s'", cfg.ThumbsSubDir)
	}
	thumbsDir := filepath.Join(sandbox.Root(), cfg.ThumbsSubDir)
	if err := os.MkdirAll(thumbsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnails directory '%s': %w", thumbsDir, err)
	}
	return &Generator{sandbox: sandbox, cfg: cfg}, nil
}

// ThumbnailName returns the derived file name for an original: <stem>.jpeg.
func ThumbnailName(fileName string) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return stem + ".jpeg"
}

// ThumbnailRelPath returns the store-relative path of an asset's thumbnail.
func (g *Generator) ThumbnailRelPath(fileName string) string {
	return filepath.ToSlash(filepath.Join(g.cfg.ThumbsSubDir, ThumbnailName(fileName)))
}

// GenerateThumbnail derives a preview for the stored original and returns the
// store-relative path of the result.
func (g *Generator) GenerateThumbnail(ctx context.Context, fileName string, assetType models.AssetType) (string, error) {
	origPath, err := g.sandbox.Resolve(fileName)
	if err != nil {
		return "", err
	}
	thumbPath, err := g.sandbox.Resolve(g.cfg.ThumbsSubDir, ThumbnailName(fileName))
	if err != nil {
		return "", err
	}

	switch assetType {
	case models.AssetTypeImage:
		err = g.generateFromImage(origPath, thumbPath)
	case models.AssetTypeVideo:
		err = g.generateFromVideo(ctx, origPath, thumbPath)
	case models.AssetTypeDocument:
		err = g.generateFromPDF(ctx, origPath, thumbPath)
	default:
		return "", fmt.Errorf("no thumbnail strategy for asset type %q", assetType)
	}
	if err != nil {
		return "", err
	}

	zap.L().Info("generated thumbnail",
		zap.String("original", fileName),
		zap.String("thumbnail", g.ThumbnailRelPath(fileName)))
	return g.ThumbnailRelPath(fileName), nil
}

// generateFromImage scales the original so its longest side is at most MaxSize.
func (g *Generator) generateFromImage(origPath, thumbPath string) error {
	img, err := imaging.Open(origPath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image %s: %w", origPath, err)
	}

	thumb := imaging.Fit(img, g.cfg.MaxSize, g.cfg.MaxSize, imaging.Lanczos)

	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(thumbnailJPEGQuality)); err != nil {
		return fmt.Errorf("failed to save thumbnail to %s: %w", thumbPath, err)
	}
	return nil
}

// generateFromVideo extracts one frame at 5% of the video's duration, scaled
// to the maximum width with preserved aspect ratio.
func (g *Generator) generateFromVideo(ctx context.Context, origPath, thumbPath string) error {
	duration, err := g.probeDuration(ctx, origPath)
	if err != nil {
		return err
	}
	seek := duration * 0.05

	args := []string{
		"-y", "-loglevel", "error",
		"-ss", strconv.FormatFloat(seek, 'f', 3, 64),
		"-i", origPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale='min(%d,iw)':-2", g.cfg.MaxSize),
		"-q:v", "3",
		thumbPath,
	}

	cmd := exec.CommandContext(ctx, g.cfg.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg frame extraction failed for %s: %w (%s)", origPath, err, stderr.String())
	}
	return nil
}

// probeDuration asks ffprobe for the container duration in seconds.
func (g *Generator) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, g.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"-i", path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w (%s)", path, err, stderr.String())
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed ffprobe duration for %s: %w", path, err)
	}
	return duration, nil
}

// generateFromPDF rasterizes the first page at a fixed DPI and scales the
// result like an ordinary image.
func (g *Generator) generateFromPDF(ctx context.Context, origPath, thumbPath string) error {
	tmpDir, err := os.MkdirTemp("", "izba-pdf-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir for PDF render: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pagePrefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, g.cfg.PdftoppmPath,
		"-f", "1", "-l", "1",
		"-r", strconv.Itoa(g.cfg.PDFRenderDPI),
		"-jpeg", "-singlefile",
		origPath, pagePrefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pdftoppm rasterization failed for %s: %w (%s)", origPath, err, stderr.String())
	}

	return g.generateFromImage(pagePrefix+".jpg", thumbPath)
}
