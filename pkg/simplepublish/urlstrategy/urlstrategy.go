package urlstrategy

import (
	"context"

	"github.com/google/uuid"
)

// URLStrategy defines how public media URLs are produced
type URLStrategy interface {
	// PublicURL returns the URL readers use to fetch a media object
	PublicURL(ctx context.Context, mediaID uuid.UUID, objectKey string, storageBackend string) (string, error)

	// DownloadURL returns a URL that asks the browser to save the file
	DownloadURL(ctx context.Context, mediaID uuid.UUID, objectKey string, storageBackend string, fileName string) (string, error)
}
