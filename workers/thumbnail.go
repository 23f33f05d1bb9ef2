package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/izba-pamieci/izbabackend/media"
	"github.com/izba-pamieci/izbabackend/models"
	"github.com/izba-pamieci/izbabackend/repository"
)

type ThumbnailJob struct {
	AssetID   uint
	FileName  string
	AssetType models.AssetType
}

// ThumbnailPool is a bounded worker pool for derived-media generation. Each
// job runs under its own timeout so a hung external tool cannot pin a worker
// forever. Failures are recorded on the asset and logged, never propagated:
// an asset without a preview stays fully usable.
type ThumbnailPool struct {
	JobQueue   chan ThumbnailJob
	Generator  *media.Generator
	Assets     repository.AssetRepositoryInterface
	JobTimeout time.Duration
	Wg         sync.WaitGroup
	StopChan   chan struct{}
	Pending    map[uint]bool
	Mutex      sync.Mutex
}

func NewThumbnailPool(gen *media.Generator, assets repository.AssetRepositoryInterface, queueSize, numWorkers int, jobTimeout time.Duration) *ThumbnailPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}

	pool := &ThumbnailPool{
		JobQueue:   make(chan ThumbnailJob, queueSize),
		Generator:  gen,
		Assets:     assets,
		JobTimeout: jobTimeout,
		StopChan:   make(chan struct{}),
		Pending:    make(map[uint]bool),
	}

	pool.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go pool.worker(i)
	}
	zap.L().Info("started thumbnail workers",
		zap.Int("workers", numWorkers), zap.Int("queue_size", queueSize))

	return pool
}

func (tp *ThumbnailPool) worker(id int) {
	defer tp.Wg.Done()
	for {
		select {
		case job, ok := <-tp.JobQueue:
			if !ok {
				zap.L().Debug("thumbnail worker stopping, queue closed", zap.Int("worker", id))
				return
			}
			tp.processJob(job)
			tp.Mutex.Lock()
			delete(tp.Pending, job.AssetID)
			tp.Mutex.Unlock()

		case <-tp.StopChan:
			zap.L().Debug("thumbnail worker stopping, stop signal received", zap.Int("worker", id))
			return
		}
	}
}

func (tp *ThumbnailPool) processJob(job ThumbnailJob) {
	ctx, cancel := context.WithTimeout(context.Background(), tp.JobTimeout)
	defer cancel()

	thumbRel, genErr := tp.Generator.GenerateThumbnail(ctx, job.FileName, job.AssetType)

	var thumbPath *string
	if genErr == nil {
		thumbPath = &thumbRel
	} else {
		zap.L().Warn("thumbnail generation failed",
			zap.Uint("asset_id", job.AssetID),
			zap.String("file", job.FileName),
			zap.Error(genErr))
	}

	var meta *media.ImageMetadata
	if job.AssetType == models.AssetTypeImage {
		var metaErr error
		meta, metaErr = tp.Generator.ExtractImageMetadata(job.FileName)
		if metaErr != nil {
			zap.L().Debug("image metadata extraction failed",
				zap.Uint("asset_id", job.AssetID), zap.Error(metaErr))
		}
	}

	if err := tp.Assets.SetThumbnailResult(job.AssetID, thumbPath, meta, genErr); err != nil {
		zap.L().Error("failed to record thumbnail result",
			zap.Uint("asset_id", job.AssetID), zap.Error(err))
	}
}

// Enqueue queues a job unless one is already pending for the asset or the
// queue is full. Returns whether the job was accepted.
func (tp *ThumbnailPool) Enqueue(assetID uint, fileName string, assetType models.AssetType) bool {
	tp.Mutex.Lock()
	if tp.Pending[assetID] {
		tp.Mutex.Unlock()
		zap.L().Debug("thumbnail job already pending", zap.Uint("asset_id", assetID))
		return false
	}
	tp.Pending[assetID] = true
	tp.Mutex.Unlock()

	job := ThumbnailJob{AssetID: assetID, FileName: fileName, AssetType: assetType}
	select {
	case tp.JobQueue <- job:
		return true
	default:
		zap.L().Warn("thumbnail job queue full", zap.Uint("asset_id", assetID))
		tp.Mutex.Lock()
		delete(tp.Pending, assetID)
		tp.Mutex.Unlock()
		return false
	}
}

// Stop signals all workers and waits for in-flight jobs to finish.
func (tp *ThumbnailPool) Stop() {
	zap.L().Info("stopping thumbnail workers")
	close(tp.StopChan)
	tp.Wg.Wait()
}
