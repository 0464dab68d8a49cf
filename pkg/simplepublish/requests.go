package simplepublish

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// PublishRequest contains parameters for publishing a new record
type PublishRequest struct {
	Kind         RecordKind             `json:"kind"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Body         string                 `json:"body"`
	Format       BodyFormat             `json:"format"`
	Tags         []string               `json:"tags"`
	CategorySlug string                 `json:"category_slug"`
	Metadata     map[string]interface{} `json:"metadata"`
}

func (r *PublishRequest) normalize() {
	if r.Kind == "" {
		r.Kind = RecordKindPost
	}
	if r.Format == "" {
		r.Format = BodyFormatMarkdown
	}
	r.Title = strings.TrimSpace(r.Title)
	r.CategorySlug = strings.TrimSpace(r.CategorySlug)
	r.Tags = normalizeTags(r.Tags)
}

// Validate checks the request after defaults are applied.
func (r PublishRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Kind, validation.In(RecordKindPost, RecordKindTutorial)),
		validation.Field(&r.Format, validation.In(BodyFormatMarkdown, BodyFormatHTML)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
	)
}

// UpdateRecordRequest changes an existing record. Nil fields are left
// unchanged. The slug identifies the record and is never rewritten, even
// when the title changes.
type UpdateRecordRequest struct {
	Slug         string                 `json:"-"`
	Title        *string                `json:"title"`
	Description  *string                `json:"description"`
	Body         *string                `json:"body"`
	Format       BodyFormat             `json:"format"`
	Tags         []string               `json:"tags"`
	CategorySlug *string                `json:"category_slug"`
	Metadata     map[string]interface{} `json:"metadata"`
}

func (r UpdateRecordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Slug, validation.Required),
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Format, validation.In(BodyFormatMarkdown, BodyFormatHTML)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
	)
}

// ListRecordsRequest narrows a record listing
type ListRecordsRequest struct {
	Kind         RecordKind
	Tag          string
	CategorySlug string
	Limit        int
	Offset       int
}

func (r ListRecordsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.In(RecordKindPost, RecordKindTutorial)),
		validation.Field(&r.Limit, validation.Min(0), validation.Max(500)),
		validation.Field(&r.Offset, validation.Min(0)),
	)
}

// CreateCategoryRequest contains parameters for creating a category
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r CreateCategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
	)
}

// SubmitFeedbackRequest is a message from the public contact form
type SubmitFeedbackRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (r SubmitFeedbackRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Message, validation.Required, validation.Length(1, 5000)),
	)
}

// normalizeTags trims tags and drops empties and duplicates, keeping order.
func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
