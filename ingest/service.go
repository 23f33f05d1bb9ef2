// Package ingest implements the asset ingestion pipeline: it composes the
// metadata store, the blob store, and the thumbnail workers into the upload,
// update, and delete workflows, and compensates for partial failures.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/izba-pamieci/izbabackend/media"
	"github.com/izba-pamieci/izbabackend/models"
	"github.com/izba-pamieci/izbabackend/repository"
)

// ErrMetadataCreateFailed means the store insert did not produce a record.
var ErrMetadataCreateFailed = errors.New("asset metadata record was not created")

// BlobStore is the byte persistence the service composes. Delete must be
// idempotent; cleanup paths call it defensively.
type BlobStore interface {
	SaveFromStream(data io.Reader, fileName string) error
	Delete(fileName string) error
}

// ThumbnailQueue accepts derived-media jobs. Enqueue reports false when the
// queue is full; generation is best-effort either way.
type ThumbnailQueue interface {
	Enqueue(assetID uint, fileName string, assetType models.AssetType) bool
}

// NewAsset is the shape-validated upload payload. The service trusts it is
// already structurally valid and only performs mime/asset-type checks itself.
type NewAsset struct {
	MimeType    string
	Description *string
	Date        *models.AssetDate
}

// AssetChanges is the shape-validated update payload; MimeType is raw and
// re-derivation of the asset type happens only when it is supplied.
type AssetChanges struct {
	Description *string
	IsPublished *bool
	MimeType    *string
	Date        *repository.DateUpdate
	TagIDs      *[]uint
}

// Service owns the cross-component invariant that every committed asset
// record has a corresponding blob, and repairs violations it causes.
type Service struct {
	assets       repository.AssetRepositoryInterface
	blobs        BlobStore
	thumbs       ThumbnailQueue
	thumbsSubDir string
}

// NewService wires the ingestion service.
func NewService(assets repository.AssetRepositoryInterface, blobs BlobStore, thumbs ThumbnailQueue, thumbsSubDir string) *Service {
	return &Service{
		assets:       assets,
		blobs:        blobs,
		thumbs:       thumbs,
		thumbsSubDir: thumbsSubDir,
	}
}

// UploadAsset runs the upload state machine: validate mime type, derive asset
// type, generate a unique file name, create the metadata record, save the
// blob, then queue best-effort thumbnail generation. A blob save failure
// triggers a compensating metadata delete; a commit-step failure rolls back
// both the metadata row and the blob. When cleanup itself fails too, the
// errors surface together so an operator can reconcile the leftovers.
func (s *Service) UploadAsset(ctx context.Context, data io.Reader, payload NewAsset) (*models.Asset, error) {
	mimeType := media.NormalizeMimeType(payload.MimeType)

	ext, err := media.ExtensionForMimeType(mimeType)
	if err != nil {
		return nil, err
	}
	assetType, err := media.DeriveAssetType(mimeType)
	if err != nil {
		return nil, err
	}

	// random identifier plus derived extension: no collision with existing
	// blobs without a uniqueness check against the store
	fileName := uuid.NewString() + ext

	asset := &models.Asset{
		FileName:    fileName,
		MimeType:    mimeType,
		AssetType:   assetType,
		Description: payload.Description,
		Date:        payload.Date,
		Status:      models.AssetStatusPending,
	}
	if err := s.assets.Create(asset); err != nil {
		return nil, fmt.Errorf("failed to create asset metadata: %w", err)
	}
	if asset.ID == 0 {
		return nil, ErrMetadataCreateFailed
	}

	if err := s.blobs.SaveFromStream(data, fileName); err != nil {
		if delErr := s.assets.Delete(asset.ID); delErr != nil {
			zap.L().Error("blob save failed and compensating metadata delete failed; asset row orphaned",
				zap.Uint("asset_id", asset.ID),
				zap.String("file", fileName),
				zap.NamedError("save_error", err),
				zap.NamedError("cleanup_error", delErr))
			return nil, fmt.Errorf("saving blob for asset %d: %w", asset.ID, errors.Join(err, delErr))
		}
		zap.L().Warn("blob save failed, asset metadata rolled back",
			zap.Uint("asset_id", asset.ID), zap.Error(err))
		return nil, fmt.Errorf("saving blob for asset %d: %w", asset.ID, err)
	}

	// the record is durable once the bytes are durable; a commit that cannot
	// be recorded is a failed upload, otherwise the reconciler would sweep a
	// row the client was told about
	if err := s.assets.MarkCommitted(asset.ID); err != nil {
		delErr := s.assets.Delete(asset.ID)
		blobErr := s.blobs.Delete(fileName)
		if delErr != nil || blobErr != nil {
			zap.L().Error("commit failed and compensating cleanup failed; reconciler will finish it",
				zap.Uint("asset_id", asset.ID),
				zap.String("file", fileName),
				zap.NamedError("commit_error", err),
				zap.NamedError("metadata_cleanup_error", delErr),
				zap.NamedError("blob_cleanup_error", blobErr))
		} else {
			zap.L().Warn("commit failed, upload rolled back",
				zap.Uint("asset_id", asset.ID), zap.Error(err))
		}
		return nil, fmt.Errorf("committing asset %d: %w", asset.ID, errors.Join(err, delErr, blobErr))
	}

	if !s.thumbs.Enqueue(asset.ID, fileName, assetType) {
		zap.L().Warn("thumbnail queue full, asset stored without preview",
			zap.Uint("asset_id", asset.ID), zap.String("file", fileName))
	}

	return asset, nil
}

// UpdateAsset applies changes to one asset, re-deriving the asset type only
// when the caller supplied a new mime type.
func (s *Service) UpdateAsset(ctx context.Context, id uint, changes AssetChanges) error {
	upd, err := s.toRepositoryUpdate(changes)
	if err != nil {
		return err
	}
	return s.assets.Update(id, upd)
}

// UpdateAssets applies the same changes to every id; the batch is atomic.
func (s *Service) UpdateAssets(ctx context.Context, ids []uint, changes AssetChanges) error {
	upd, err := s.toRepositoryUpdate(changes)
	if err != nil {
		return err
	}
	return s.assets.UpdateMany(ids, upd)
}

func (s *Service) toRepositoryUpdate(changes AssetChanges) (repository.AssetUpdate, error) {
	upd := repository.AssetUpdate{
		Description: changes.Description,
		IsPublished: changes.IsPublished,
		Date:        changes.Date,
		TagIDs:      changes.TagIDs,
	}

	if changes.MimeType != nil {
		mimeType := media.NormalizeMimeType(*changes.MimeType)
		assetType, err := media.DeriveAssetType(mimeType)
		if err != nil {
			return repository.AssetUpdate{}, err
		}
		upd.MimeType = &mimeType
		upd.AssetType = &assetType
	}

	return upd, nil
}

// DeleteAssets removes assets one by one: a missing id is logged and skipped,
// partial success is allowed. After a successful metadata delete both the
// original blob and its derived thumbnail are removed (both idempotent).
func (s *Service) DeleteAssets(ctx context.Context, ids ...uint) error {
	for _, id := range ids {
		asset, err := s.assets.GetByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				zap.L().Warn("skipping delete of unknown asset", zap.Uint("asset_id", id))
				continue
			}
			return fmt.Errorf("failed to load asset %d for deletion: %w", id, err)
		}

		if err := s.assets.Delete(id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				zap.L().Warn("asset disappeared before deletion", zap.Uint("asset_id", id))
				continue
			}
			return fmt.Errorf("failed to delete asset %d: %w", id, err)
		}

		if err := s.blobs.Delete(asset.FileName); err != nil {
			zap.L().Error("failed to delete blob for removed asset",
				zap.Uint("asset_id", id), zap.String("file", asset.FileName), zap.Error(err))
		}
		thumbRel := filepath.ToSlash(filepath.Join(s.thumbsSubDir, media.ThumbnailName(asset.FileName)))
		if err := s.blobs.Delete(thumbRel); err != nil {
			zap.L().Error("failed to delete thumbnail for removed asset",
				zap.Uint("asset_id", id), zap.String("file", thumbRel), zap.Error(err))
		}
	}
	return nil
}
