package simplepublish

import "context"

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) RecordPublished(ctx context.Context, record *Record) error { return nil }

func (n *NoopEventSink) RecordUpdated(ctx context.Context, record *Record) error { return nil }

func (n *NoopEventSink) RecordDeleted(ctx context.Context, slug string) error { return nil }

func (n *NoopEventSink) MirrorFailed(ctx context.Context, slug string, err error) error { return nil }

func (n *NoopEventSink) MediaUploaded(ctx context.Context, media *Media) error { return nil }

func (n *NoopEventSink) FeedbackReceived(ctx context.Context, feedback *Feedback) error { return nil }
