package simplepublish

import (
	"time"

	"github.com/google/uuid"
)

// RecordKind distinguishes the publishable content types.
type RecordKind string

const (
	RecordKindPost     RecordKind = "post"
	RecordKindTutorial RecordKind = "tutorial"
)

// IsValid reports whether k is a known record kind.
func (k RecordKind) IsValid() bool {
	switch k {
	case RecordKindPost, RecordKindTutorial:
		return true
	}
	return false
}

// BodyFormat is the markup a request body arrives in.
type BodyFormat string

const (
	// BodyFormatMarkdown is the canonical stored format.
	BodyFormatMarkdown BodyFormat = "markdown"
	// BodyFormatHTML bodies are converted to Markdown before storage.
	BodyFormatHTML BodyFormat = "html"
)

// Well-known metadata keys. Metadata is otherwise opaque.
const (
	MetaExternalLink   = "external_link"
	MetaSEOTitle       = "seo_title"
	MetaSEODescription = "seo_description"
)

// Record is a published post or tutorial. The slug is its public identity
// and never changes after creation; the body is always Markdown.
type Record struct {
	ID           uuid.UUID              `json:"id"`
	Slug         string                 `json:"slug"`
	Kind         RecordKind             `json:"kind"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Body         string                 `json:"body"`
	Tags         []string               `json:"tags"`
	CategorySlug string                 `json:"category_slug,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	if r.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// HasTag reports whether the record carries tag.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Category groups records.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Media is an uploaded binary object with a public URL.
type Media struct {
	ID             uuid.UUID `json:"id"`
	FileName       string    `json:"file_name"`
	ContentType    string    `json:"content_type"`
	Size           int64     `json:"size"`
	ObjectKey      string    `json:"object_key"`
	StorageBackend string    `json:"storage_backend"`
	URL            string    `json:"url"`
	CreatedAt      time.Time `json:"created_at"`
}

// Feedback is a message left through the public contact form.
type Feedback struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`

	// Notified is set when the admin notification was accepted by the
	// mailer. It is not persisted.
	Notified bool `json:"notified"`
}

// MirrorDocument is the flat-file form of a Record.
type MirrorDocument struct {
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Kind        RecordKind `json:"kind"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Body        string     `json:"body"`
}

// NewMirrorDocument projects the mirrored fields of a record.
func NewMirrorDocument(r *Record) *MirrorDocument {
	return &MirrorDocument{
		Slug:        r.Slug,
		Title:       r.Title,
		Description: r.Description,
		Kind:        r.Kind,
		Category:    r.CategorySlug,
		Tags:        append([]string(nil), r.Tags...),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
		Body:        r.Body,
	}
}

// Result is returned by operations that write the record and then its
// mirror. A nil error with a non-nil MirrorErr means the record was saved
// but the flat file is stale or missing.
type Result struct {
	Record    *Record `json:"record,omitempty"`
	Mirrored  bool    `json:"mirrored"`
	MirrorErr error   `json:"-"`
}

// Partial reports whether the primary write succeeded and the mirror did not.
func (r *Result) Partial() bool {
	return r != nil && r.MirrorErr != nil
}

// RebuildReport summarises a full mirror rebuild.
type RebuildReport struct {
	Total    int               `json:"total"`
	Mirrored int               `json:"mirrored"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// RecordFilter narrows a record listing. Zero values match everything and
// a zero Limit means no limit.
type RecordFilter struct {
	Kind         RecordKind
	Tag          string
	CategorySlug string
	Limit        int
	Offset       int
}

// Matches applies the filter to a single record, ignoring paging.
func (f RecordFilter) Matches(r *Record) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.CategorySlug != "" && r.CategorySlug != f.CategorySlug {
		return false
	}
	if f.Tag != "" && !r.HasTag(f.Tag) {
		return false
	}
	return true
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// MailMessage is an outgoing notification.
type MailMessage struct {
	To       string
	Subject  string
	HTMLBody string
}

// MailDelivery acknowledges a message accepted by a Mailer.
type MailDelivery struct {
	ID         string
	AcceptedAt time.Time
}
