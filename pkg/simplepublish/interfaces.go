package simplepublish

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// GetDownloadURL returns a URL for downloading content
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetPreviewURL returns a URL for displaying content inline
	GetPreviewURL(ctx context.Context, objectKey string) (string, error)

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository is the authoritative structured store. Implementations enforce
// slug uniqueness themselves and assign CreatedAt/UpdatedAt; callers never
// supply timestamps.
//
// Missing rows are reported with *NotFoundError and duplicate unique keys
// with *ConflictError.
type Repository interface {
	// Record operations
	CreateRecord(ctx context.Context, record *Record) error
	GetRecord(ctx context.Context, slug string) (*Record, error)
	UpdateRecord(ctx context.Context, record *Record) error
	DeleteRecord(ctx context.Context, slug string) error
	ListRecords(ctx context.Context, filter RecordFilter) ([]*Record, error)

	// Category operations
	CreateCategory(ctx context.Context, category *Category) error
	GetCategory(ctx context.Context, slug string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	DeleteCategory(ctx context.Context, slug string) error

	// Media operations
	CreateMedia(ctx context.Context, media *Media) error
	GetMedia(ctx context.Context, id uuid.UUID) (*Media, error)
	ListMedia(ctx context.Context) ([]*Media, error)
	DeleteMedia(ctx context.Context, id uuid.UUID) error

	// Feedback operations
	CreateFeedback(ctx context.Context, feedback *Feedback) error
	ListFeedback(ctx context.Context) ([]*Feedback, error)
}

// Mirror keeps the flat-file copy of records.
type Mirror interface {
	// Write renders and stores the record's document, replacing any previous one
	Write(ctx context.Context, record *Record) error

	// Delete removes the document; a missing document is not an error
	Delete(ctx context.Context, slug string) error

	// Read parses the stored document back
	Read(ctx context.Context, slug string) (*MirrorDocument, error)
}

// Converter turns ingested HTML into the canonical Markdown body.
type Converter interface {
	HTMLToMarkdown(html string) string
}

// Mailer delivers notification mail.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) (*MailDelivery, error)
}

// EventSink defines the interface for event handling. Sink errors are
// logged and never fail the operation that fired them.
type EventSink interface {
	// RecordPublished is fired after a record is created
	RecordPublished(ctx context.Context, record *Record) error

	// RecordUpdated is fired after a record is updated
	RecordUpdated(ctx context.Context, record *Record) error

	// RecordDeleted is fired after a record is deleted
	RecordDeleted(ctx context.Context, slug string) error

	// MirrorFailed is fired when a mirror write fails after the record was saved
	MirrorFailed(ctx context.Context, slug string, err error) error

	// MediaUploaded is fired after a media object is stored
	MediaUploaded(ctx context.Context, media *Media) error

	// FeedbackReceived is fired after feedback is stored
	FeedbackReceived(ctx context.Context, feedback *Feedback) error
}
