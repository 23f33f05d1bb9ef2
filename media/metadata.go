package media

import (
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
)

// ImageMetadata holds the best-effort metadata extracted from an uploaded
// image: pixel dimensions plus the EXIF capture time if the file carries one.
type ImageMetadata struct {
	Width   *int   `json:"width,omitempty"`
	Height  *int   `json:"height,omitempty"`
	TakenAt *int64 `json:"taken_at,omitempty"` // Unix timestamp
}

// ExtractImageMetadata reads dimensions via the standard decoders and capture
// time via EXIF. EXIF absence is not an error; many scans have none.
func (g *Generator) ExtractImageMetadata(fileName string) (*ImageMetadata, error) {
	path, err := g.sandbox.Resolve(fileName)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s for metadata: %w", fileName, err)
	}
	defer file.Close()

	meta := &ImageMetadata{}

	cfg, _, err := image.DecodeConfig(file)
	if err == nil {
		w, h := cfg.Width, cfg.Height
		meta.Width = &w
		meta.Height = &h
	}

	if _, err := file.Seek(0, 0); err != nil {
		return meta, nil
	}

	exifData, err := exif.Decode(file)
	if err != nil {
		// no EXIF block, or one we cannot parse
		return meta, nil
	}

	if takenAt, err := exifData.DateTime(); err == nil {
		ts := takenAt.Unix()
		meta.TakenAt = &ts
	}

	return meta, nil
}
