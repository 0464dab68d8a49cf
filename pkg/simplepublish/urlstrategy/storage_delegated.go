package urlstrategy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// BlobStore interface for URL generation (to avoid circular imports)
type BlobStore interface {
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)
	GetPreviewURL(ctx context.Context, objectKey string) (string, error)
}

// StorageDelegatedStrategy delegates URL generation to the storage backends,
// e.g. presigned S3 URLs or a filesystem backend's URL prefix.
type StorageDelegatedStrategy struct {
	BlobStores map[string]BlobStore
}

// NewStorageDelegatedStrategy creates a new storage-delegated URL strategy
func NewStorageDelegatedStrategy(blobStores map[string]BlobStore) *StorageDelegatedStrategy {
	return &StorageDelegatedStrategy{
		BlobStores: blobStores,
	}
}

// PublicURL delegates to the storage backend's GetPreviewURL method
func (s *StorageDelegatedStrategy) PublicURL(ctx context.Context, mediaID uuid.UUID, objectKey string, storageBackend string) (string, error) {
	backend, exists := s.BlobStores[storageBackend]
	if !exists {
		return "", fmt.Errorf("storage backend %s not found", storageBackend)
	}
	return backend.GetPreviewURL(ctx, objectKey)
}

// DownloadURL delegates to the storage backend's GetDownloadURL method
func (s *StorageDelegatedStrategy) DownloadURL(ctx context.Context, mediaID uuid.UUID, objectKey string, storageBackend string, fileName string) (string, error) {
	backend, exists := s.BlobStores[storageBackend]
	if !exists {
		return "", fmt.Errorf("storage backend %s not found", storageBackend)
	}
	return backend.GetDownloadURL(ctx, objectKey, fileName)
}
