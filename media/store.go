package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// BlobStore streams incoming bytes to uniquely named files under a sandboxed
// root and deletes them by name. It is deliberately dumb: no size or type
// validation happens here, format concerns live in the ingestion service.
type BlobStore struct {
	sandbox *Sandbox
}

// NewBlobStore creates a store rooted at the sandbox.
func NewBlobStore(sandbox *Sandbox) *BlobStore {
	return &BlobStore{sandbox: sandbox}
}

// Path returns the absolute on-disk path for a stored file name.
func (bs *BlobStore) Path(fileName string) (string, error) {
	return bs.sandbox.Resolve(fileName)
}

// SaveFromStream consumes the reader to completion and writes it to the
// resolved path. A partial file never survives a failed write.
func (bs *BlobStore) SaveFromStream(data io.Reader, fileName string) error {
	fullPath, err := bs.sandbox.Resolve(fileName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to ensure directory for '%s': %w", fileName, err)
	}

	outFile, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file '%s': %w", fullPath, err)
	}

	if _, err := io.Copy(outFile, data); err != nil {
		outFile.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to write data to '%s': %w", fullPath, err)
	}

	if err := outFile.Close(); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to finish writing '%s': %w", fullPath, err)
	}

	zap.L().Debug("saved blob", zap.String("file", fileName))
	return nil
}

// Delete removes the file if present. Already-absent files count as success;
// cleanup paths call this defensively.
func (bs *BlobStore) Delete(fileName string) error {
	fullPath, err := bs.sandbox.Resolve(fileName)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob '%s': %w", fileName, err)
	}
	if err == nil {
		zap.L().Debug("deleted blob", zap.String("file", fileName))
	}
	return nil
}
