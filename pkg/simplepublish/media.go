package simplepublish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-publish/pkg/simplepublish/objectkey"
)

func (s *service) UploadMedia(ctx context.Context, req UploadMediaRequest) (*Media, error) {
	fileName := strings.TrimSpace(path.Base(strings.ReplaceAll(req.FileName, "\\", "/")))
	if req.Reader == nil {
		return nil, &ValidationError{Field: "file", Message: "cannot be blank"}
	}
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, &ValidationError{Field: "file_name", Message: "cannot be blank"}
	}

	data, err := io.ReadAll(io.LimitReader(req.Reader, s.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxUploadBytes)
	}
	if len(data) == 0 {
		return nil, &ValidationError{Field: "file", Message: "is empty"}
	}

	contentType := req.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	backend := s.mediaBackend
	store, ok := s.blobStores[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStorageBackendNotFound, backend)
	}

	now := time.Now().UTC()
	id := uuid.New()
	objectKey := s.keyGenerator.GenerateKey(id, &objectkey.KeyMetadata{
		FileName:    fileName,
		ContentType: contentType,
		UploadedAt:  now,
	})

	err = store.UploadWithParams(ctx, bytes.NewReader(data), UploadParams{
		ObjectKey: objectKey,
		MimeType:  contentType,
	})
	if err != nil {
		return nil, &StorageError{Backend: backend, Key: objectKey, Op: "upload", Err: err}
	}

	publicURL, err := s.urlStrategy.PublicURL(ctx, id, objectKey, backend)
	if err != nil {
		s.removeBlob(ctx, store, backend, objectKey)
		return nil, &StorageError{Backend: backend, Key: objectKey, Op: "url", Err: err}
	}

	media := &Media{
		ID:             id,
		FileName:       fileName,
		ContentType:    contentType,
		Size:           int64(len(data)),
		ObjectKey:      objectKey,
		StorageBackend: backend,
		URL:            publicURL,
		CreatedAt:      now,
	}
	if err := s.repository.CreateMedia(ctx, media); err != nil {
		s.removeBlob(ctx, store, backend, objectKey)
		return nil, persistenceError("media", id.String(), "create", err)
	}
	s.logger.Info("media uploaded", "id", id, "key", objectKey, "size", media.Size, "content_type", contentType)

	s.fire("media_uploaded", id.String(), func() error {
		return s.eventSink.MediaUploaded(ctx, media)
	})

	return media, nil
}

func (s *service) GetMedia(ctx context.Context, id uuid.UUID) (*Media, error) {
	media, err := s.repository.GetMedia(ctx, id)
	if err != nil {
		return nil, persistenceError("media", id.String(), "get", err)
	}
	return media, nil
}

func (s *service) ListMedia(ctx context.Context) ([]*Media, error) {
	media, err := s.repository.ListMedia(ctx)
	if err != nil {
		return nil, persistenceError("media", "*", "list", err)
	}
	return media, nil
}

// OpenMedia streams the stored object. The caller closes the reader.
func (s *service) OpenMedia(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Media, error) {
	media, err := s.GetMedia(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	store, ok := s.blobStores[media.StorageBackend]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrStorageBackendNotFound, media.StorageBackend)
	}

	rc, err := store.Download(ctx, media.ObjectKey)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, nil, NewNotFoundError("media object", media.ObjectKey)
		}
		return nil, nil, &StorageError{Backend: media.StorageBackend, Key: media.ObjectKey, Op: "download", Err: err}
	}
	return rc, media, nil
}

// DeleteMedia removes the blob first, then the row. A blob that is already
// gone does not block removing the row.
func (s *service) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	media, err := s.GetMedia(ctx, id)
	if err != nil {
		return err
	}

	if store, ok := s.blobStores[media.StorageBackend]; ok {
		if err := store.Delete(ctx, media.ObjectKey); err != nil && !errors.Is(err, ErrObjectNotFound) {
			return &StorageError{Backend: media.StorageBackend, Key: media.ObjectKey, Op: "delete", Err: err}
		}
	} else {
		s.logger.Warn("media backend not registered, removing row only", "id", id, "backend", media.StorageBackend)
	}

	if err := s.repository.DeleteMedia(ctx, id); err != nil {
		return persistenceError("media", id.String(), "delete", err)
	}
	s.logger.Info("media deleted", "id", id, "key", media.ObjectKey)
	return nil
}

func (s *service) removeBlob(ctx context.Context, store BlobStore, backend, objectKey string) {
	if err := store.Delete(ctx, objectKey); err != nil {
		s.logger.Warn("failed to clean up orphaned blob", "backend", backend, "key", objectKey, "error", err)
	}
}
