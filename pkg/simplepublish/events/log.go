// Package events provides EventSink implementations: structured logging,
// CloudEvents over HTTP, and a fan-out over several sinks.
package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// LogSink writes every event to a slog.Logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging through logger, or slog.Default() when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) RecordPublished(ctx context.Context, record *simplepublish.Record) error {
	s.logger.InfoContext(ctx, "event", "type", TypeRecordPublished, "slug", record.Slug, "kind", record.Kind)
	return nil
}

func (s *LogSink) RecordUpdated(ctx context.Context, record *simplepublish.Record) error {
	s.logger.InfoContext(ctx, "event", "type", TypeRecordUpdated, "slug", record.Slug)
	return nil
}

func (s *LogSink) RecordDeleted(ctx context.Context, slug string) error {
	s.logger.InfoContext(ctx, "event", "type", TypeRecordDeleted, "slug", slug)
	return nil
}

func (s *LogSink) MirrorFailed(ctx context.Context, slug string, err error) error {
	s.logger.WarnContext(ctx, "event", "type", TypeMirrorFailed, "slug", slug, "error", err)
	return nil
}

func (s *LogSink) MediaUploaded(ctx context.Context, media *simplepublish.Media) error {
	s.logger.InfoContext(ctx, "event", "type", TypeMediaUploaded, "id", media.ID, "key", media.ObjectKey)
	return nil
}

func (s *LogSink) FeedbackReceived(ctx context.Context, feedback *simplepublish.Feedback) error {
	s.logger.InfoContext(ctx, "event", "type", TypeFeedbackReceived, "id", feedback.ID)
	return nil
}

// Multi delivers each event to every sink and joins their errors.
type Multi []simplepublish.EventSink

func (m Multi) each(fn func(simplepublish.EventSink) error) error {
	var errs []error
	for _, sink := range m {
		if err := fn(sink); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) RecordPublished(ctx context.Context, record *simplepublish.Record) error {
	return m.each(func(s simplepublish.EventSink) error { return s.RecordPublished(ctx, record) })
}

func (m Multi) RecordUpdated(ctx context.Context, record *simplepublish.Record) error {
	return m.each(func(s simplepublish.EventSink) error { return s.RecordUpdated(ctx, record) })
}

func (m Multi) RecordDeleted(ctx context.Context, slug string) error {
	return m.each(func(s simplepublish.EventSink) error { return s.RecordDeleted(ctx, slug) })
}

func (m Multi) MirrorFailed(ctx context.Context, slug string, err error) error {
	return m.each(func(s simplepublish.EventSink) error { return s.MirrorFailed(ctx, slug, err) })
}

func (m Multi) MediaUploaded(ctx context.Context, media *simplepublish.Media) error {
	return m.each(func(s simplepublish.EventSink) error { return s.MediaUploaded(ctx, media) })
}

func (m Multi) FeedbackReceived(ctx context.Context, feedback *simplepublish.Feedback) error {
	return m.each(func(s simplepublish.EventSink) error { return s.FeedbackReceived(ctx, feedback) })
}
