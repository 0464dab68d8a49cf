package urlstrategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AppRoutedStrategy serves media through the application's own
// /media/{id}/file endpoint, which works with every storage backend.
type AppRoutedStrategy struct {
	APIBaseURL string // e.g., "https://example.com/api/v1" or "/api/v1"
}

// NewAppRoutedStrategy creates a new app-routed URL strategy
func NewAppRoutedStrategy(apiBaseURL string) *AppRoutedStrategy {
	return &AppRoutedStrategy{
		APIBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
	}
}

// PublicURL creates an application URL for the media item
func (s *AppRoutedStrategy) PublicURL(ctx context.Context, mediaID uuid.UUID, objectKey string, storageBackend string) (string, error) {
	if s.APIBaseURL == "" {
		return "", fmt.Errorf("API base URL not configured")
	}
	return fmt.Sprintf("%s/media/%s/file", s.APIBaseURL, mediaID), nil
}

// DownloadURL creates an application URL that forces an attachment
func (s *AppRoutedStrategy) DownloadURL(ctx context.Context, mediaID uuid.UUID, objectKey string, storageBackend string, fileName string) (string, error) {
	base, err := s.PublicURL(ctx, mediaID, objectKey, storageBackend)
	if err != nil {
		return "", err
	}
	return base + "?download=1", nil
}
