package urlstrategy

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// CDNStrategy generates URLs that point directly at a CDN or public bucket
// in front of the media store.
type CDNStrategy struct {
	CDNBaseURL string // e.g., "https://cdn.example.com"
}

// NewCDNStrategy creates a new CDN URL strategy
func NewCDNStrategy(cdnBaseURL string) *CDNStrategy {
	return &CDNStrategy{
		CDNBaseURL: strings.TrimSuffix(cdnBaseURL, "/"),
	}
}

// PublicURL creates a direct CDN URL for the object key
func (s *CDNStrategy) PublicURL(ctx context.Context, mediaID uuid.UUID, objectKey string, storageBackend string) (string, error) {
	if s.CDNBaseURL == "" {
		return "", fmt.Errorf("CDN base URL not configured")
	}
	return fmt.Sprintf("%s/%s", s.CDNBaseURL, strings.TrimPrefix(objectKey, "/")), nil
}

// DownloadURL appends the filename hint to the CDN URL
func (s *CDNStrategy) DownloadURL(ctx context.Context, mediaID uuid.UUID, objectKey string, storageBackend string, fileName string) (string, error) {
	base, err := s.PublicURL(ctx, mediaID, objectKey, storageBackend)
	if err != nil {
		return "", err
	}
	if fileName == "" {
		return base, nil
	}
	return fmt.Sprintf("%s?filename=%s", base, url.QueryEscape(fileName)), nil
}
