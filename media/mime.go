package media

import (
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/izba-pamieci/izbabackend/models"
)

var (
	// ErrUnrecognizedMimeType means no file extension could be derived from
	// the declared mime type.
	ErrUnrecognizedMimeType = errors.New("unrecognized mime type")
	// ErrUnsupportedMimeType means the mime type is outside the supported
	// image/video/document set.
	ErrUnsupportedMimeType = errors.New("unsupported mime type")
)

// fixed mapping tables; asset types are derived, never user-chosen
var mimeExtensions = map[string]string{
	"image/jpeg":      ".jpeg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
	"application/pdf": ".pdf",
}

var mimeAssetTypes = map[string]models.AssetType{
	"image/jpeg":      models.AssetTypeImage,
	"image/png":       models.AssetTypeImage,
	"image/gif":       models.AssetTypeImage,
	"image/webp":      models.AssetTypeImage,
	"video/mp4":       models.AssetTypeVideo,
	"video/webm":      models.AssetTypeVideo,
	"video/quicktime": models.AssetTypeVideo,
	"application/pdf": models.AssetTypeDocument,
}

// NormalizeMimeType trims and lower-cases a declared mime type, dropping any
// parameters ("image/jpeg; charset=binary" -> "image/jpeg"). Idempotent.
func NormalizeMimeType(mimeType string) string {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.IndexByte(m, ';'); idx >= 0 {
		m = strings.TrimSpace(m[:idx])
	}
	return m
}

// ExtensionForMimeType returns the canonical file extension (with leading dot)
// for a normalized mime type. Types outside the fixed table fall back to the
// general detection database, so a recognized-but-unsupported type (say
// audio/mpeg) still gets an extension here and fails the asset-type check
// with the precise error instead.
func ExtensionForMimeType(mimeType string) (string, error) {
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext, nil
	}
	if mt := mimetype.Lookup(mimeType); mt != nil && mt.Extension() != "" {
		return mt.Extension(), nil
	}
	return "", ErrUnrecognizedMimeType
}

// DeriveAssetType maps a normalized mime type onto an asset type.
func DeriveAssetType(mimeType string) (models.AssetType, error) {
	at, ok := mimeAssetTypes[mimeType]
	if !ok {
		return "", ErrUnsupportedMimeType
	}
	return at, nil
}

// IsGenericMimeType reports whether a declared content type carries no real
// format information and content sniffing should be attempted instead.
func IsGenericMimeType(mimeType string) bool {
	switch mimeType {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	default:
		return false
	}
}

// SniffMimeType detects the mime type from content. The reader must be
// rewindable; the caller is expected to seek back to the start afterwards.
func SniffMimeType(r io.Reader) (string, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	return NormalizeMimeType(mt.String()), nil
}
