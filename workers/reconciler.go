package workers

import (
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/izba-pamieci/izbabackend/media"
	"github.com/izba-pamieci/izbabackend/repository"
)

// BlobDeleter is the slice of the blob store the reconciler needs.
type BlobDeleter interface {
	Delete(fileName string) error
}

// Reconciler periodically sweeps asset records stuck in pending status past
// the grace period. Such rows mean the process died between metadata creation
// and blob save, so the compensating delete never ran; the sweep finishes the
// cleanup, blobs included.
type Reconciler struct {
	Assets       repository.AssetRepositoryInterface
	Blobs        BlobDeleter
	ThumbsSubDir string
	Grace        time.Duration
	Interval     time.Duration
	StopChan     chan struct{}
	Wg           sync.WaitGroup
}

func NewReconciler(assets repository.AssetRepositoryInterface, blobs BlobDeleter, thumbsSubDir string, grace, interval time.Duration) *Reconciler {
	return &Reconciler{
		Assets:       assets,
		Blobs:        blobs,
		ThumbsSubDir: thumbsSubDir,
		Grace:        grace,
		Interval:     interval,
		StopChan:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (rc *Reconciler) Start() {
	rc.Wg.Add(1)
	go func() {
		defer rc.Wg.Done()
		ticker := time.NewTicker(rc.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rc.sweep()
			case <-rc.StopChan:
				return
			}
		}
	}()
	zap.L().Info("started pending-asset reconciler",
		zap.Duration("grace", rc.Grace), zap.Duration("interval", rc.Interval))
}

func (rc *Reconciler) sweep() {
	stale, err := rc.Assets.DeleteStalePending(rc.Grace)
	if err != nil {
		zap.L().Error("pending-asset sweep failed", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		return
	}

	for _, asset := range stale {
		if err := rc.Blobs.Delete(asset.FileName); err != nil {
			zap.L().Warn("failed to remove blob of stale pending asset",
				zap.Uint("asset_id", asset.ID), zap.Error(err))
		}
		thumbRel := filepath.ToSlash(filepath.Join(rc.ThumbsSubDir, media.ThumbnailName(asset.FileName)))
		if err := rc.Blobs.Delete(thumbRel); err != nil {
			zap.L().Warn("failed to remove thumbnail of stale pending asset",
				zap.Uint("asset_id", asset.ID), zap.Error(err))
		}
	}

	zap.L().Warn("swept stale pending assets", zap.Int("count", len(stale)))
}

// Stop halts the sweep loop and waits for a running sweep to finish.
func (rc *Reconciler) Stop() {
	close(rc.StopChan)
	rc.Wg.Wait()
}
