package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// CloudEvent types emitted by CloudEventSink.
const (
	TypeRecordPublished  = "com.simplepublish.record.published"
	TypeRecordUpdated    = "com.simplepublish.record.updated"
	TypeRecordDeleted    = "com.simplepublish.record.deleted"
	TypeMirrorFailed     = "com.simplepublish.mirror.failed"
	TypeMediaUploaded    = "com.simplepublish.media.uploaded"
	TypeFeedbackReceived = "com.simplepublish.feedback.received"
)

// DefaultSource is the CloudEvents source attribute unless overridden.
const DefaultSource = "simple-publish"

// CloudEventSink posts events to an HTTP endpoint in CloudEvents binary mode.
type CloudEventSink struct {
	client cloudevents.Client
	target string
	source string
}

// CloudEventOption configures a CloudEventSink.
type CloudEventOption func(*CloudEventSink)

// WithSource sets the source attribute of emitted events.
func WithSource(source string) CloudEventOption {
	return func(s *CloudEventSink) {
		s.source = source
	}
}

// NewCloudEventSink creates a sink delivering to target.
func NewCloudEventSink(target string, options ...CloudEventOption) (*CloudEventSink, error) {
	if target == "" {
		return nil, errors.New("event target URL is required")
	}

	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}

	s := &CloudEventSink{client: client, target: target, source: DefaultSource}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

type recordPayload struct {
	Slug         string                   `json:"slug"`
	Kind         simplepublish.RecordKind `json:"kind,omitempty"`
	Title        string                   `json:"title,omitempty"`
	Tags         []string                 `json:"tags,omitempty"`
	CategorySlug string                   `json:"category_slug,omitempty"`
	UpdatedAt    time.Time                `json:"updated_at,omitempty"`
}

func recordData(r *simplepublish.Record) recordPayload {
	return recordPayload{
		Slug:         r.Slug,
		Kind:         r.Kind,
		Title:        r.Title,
		Tags:         r.Tags,
		CategorySlug: r.CategorySlug,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (s *CloudEventSink) send(ctx context.Context, eventType, subject string, data interface{}) error {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(s.source)
	event.SetType(eventType)
	event.SetSubject(subject)
	event.SetTime(time.Now().UTC())
	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	result := s.client.Send(cloudevents.ContextWithTarget(ctx, s.target), event)
	if cloudevents.IsUndelivered(result) {
		return fmt.Errorf("failed to deliver %s event: %w", eventType, result)
	}
	if !cloudevents.IsACK(result) {
		return fmt.Errorf("%s event not acknowledged: %w", eventType, result)
	}
	return nil
}

func (s *CloudEventSink) RecordPublished(ctx context.Context, record *simplepublish.Record) error {
	return s.send(ctx, TypeRecordPublished, record.Slug, recordData(record))
}

func (s *CloudEventSink) RecordUpdated(ctx context.Context, record *simplepublish.Record) error {
	return s.send(ctx, TypeRecordUpdated, record.Slug, recordData(record))
}

func (s *CloudEventSink) RecordDeleted(ctx context.Context, slug string) error {
	return s.send(ctx, TypeRecordDeleted, slug, recordPayload{Slug: slug})
}

func (s *CloudEventSink) MirrorFailed(ctx context.Context, slug string, err error) error {
	return s.send(ctx, TypeMirrorFailed, slug, map[string]string{"slug": slug, "error": err.Error()})
}

func (s *CloudEventSink) MediaUploaded(ctx context.Context, media *simplepublish.Media) error {
	return s.send(ctx, TypeMediaUploaded, media.ID.String(), media)
}

// FeedbackReceived carries no personal data, only the entry ID.
func (s *CloudEventSink) FeedbackReceived(ctx context.Context, feedback *simplepublish.Feedback) error {
	return s.send(ctx, TypeFeedbackReceived, feedback.ID.String(), map[string]string{"id": feedback.ID.String()})
}
