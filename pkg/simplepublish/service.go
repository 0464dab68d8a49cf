package simplepublish

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service is the publishing interface. It owns the record pipeline:
// conversion, slug derivation, the authoritative write and the mirror write.
type Service interface {
	// Record operations
	Publish(ctx context.Context, req PublishRequest) (*Result, error)
	GetRecord(ctx context.Context, slug string) (*Record, error)
	UpdateRecord(ctx context.Context, req UpdateRecordRequest) (*Result, error)
	DeleteRecord(ctx context.Context, slug string) (*Result, error)
	ListRecords(ctx context.Context, req ListRecordsRequest) ([]*Record, error)

	// Mirror maintenance
	SyncMirror(ctx context.Context, slug string) (*Result, error)
	RebuildMirrors(ctx context.Context) (*RebuildReport, error)
	ReadMirror(ctx context.Context, slug string) (*MirrorDocument, error)

	// Category operations
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error)
	GetCategory(ctx context.Context, slug string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	DeleteCategory(ctx context.Context, slug string) error
}

// MediaService stores uploaded images and attachments.
type MediaService interface {
	UploadMedia(ctx context.Context, req UploadMediaRequest) (*Media, error)
	GetMedia(ctx context.Context, id uuid.UUID) (*Media, error)
	ListMedia(ctx context.Context) ([]*Media, error)
	OpenMedia(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Media, error)
	DeleteMedia(ctx context.Context, id uuid.UUID) error
}

// FeedbackService accepts contact form messages.
type FeedbackService interface {
	SubmitFeedback(ctx context.Context, req SubmitFeedbackRequest) (*Feedback, error)
	ListFeedback(ctx context.Context) ([]*Feedback, error)
}

// UploadMediaRequest contains parameters for uploading a media object
type UploadMediaRequest struct {
	FileName    string
	ContentType string
	Reader      io.Reader
}
