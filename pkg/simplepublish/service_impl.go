package simplepublish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/simple-publish/pkg/simplepublish/convert"
	"github.com/tendant/simple-publish/pkg/simplepublish/objectkey"
	"github.com/tendant/simple-publish/pkg/simplepublish/slug"
	"github.com/tendant/simple-publish/pkg/simplepublish/urlstrategy"
)

const defaultMaxUploadBytes = 10 << 20

// service implements Service, MediaService and FeedbackService. The
// constructors differ only in which dependencies they insist on.
type service struct {
	logger     *slog.Logger
	repository Repository
	mirror     Mirror
	converter  Converter
	eventSink  EventSink

	blobStores     map[string]BlobStore
	mediaBackend   string
	keyGenerator   objectkey.Generator
	urlStrategy    urlstrategy.URLStrategy
	maxUploadBytes int64

	mailer     Mailer
	adminEmail string
}

// Option represents a functional option for configuring the services
type Option func(*service)

// WithRepository sets the authoritative repository
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithMirror sets the flat-file mirror written after every record change
func WithMirror(mirror Mirror) Option {
	return func(s *service) {
		s.mirror = mirror
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithConverter replaces the HTML to Markdown converter used for HTML bodies
func WithConverter(c Converter) Option {
	return func(s *service) {
		s.converter = c
	}
}

// WithBlobStore adds a blob storage backend for media
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
	}
}

// WithMediaBackend selects which registered blob store receives uploads
func WithMediaBackend(name string) Option {
	return func(s *service) {
		s.mediaBackend = name
	}
}

// WithKeyGenerator sets the object key layout for uploads
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(s *service) {
		s.keyGenerator = g
	}
}

// WithURLStrategy sets how public media URLs are built
func WithURLStrategy(strategy urlstrategy.URLStrategy) Option {
	return func(s *service) {
		s.urlStrategy = strategy
	}
}

// WithMaxUploadBytes limits the size of a single upload
func WithMaxUploadBytes(n int64) Option {
	return func(s *service) {
		s.maxUploadBytes = n
	}
}

// WithMailer sets the transport for admin notifications
func WithMailer(m Mailer) Option {
	return func(s *service) {
		s.mailer = m
	}
}

// WithAdminEmail sets the address feedback notifications go to
func WithAdminEmail(addr string) Option {
	return func(s *service) {
		s.adminEmail = addr
	}
}

func newService(options []Option) *service {
	s := &service{
		blobStores: make(map[string]BlobStore),
	}
	for _, option := range options {
		option(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.converter == nil {
		s.converter = convert.New(convert.WithLogger(s.logger))
	}
	if s.keyGenerator == nil {
		s.keyGenerator = objectkey.NewGitLikeGenerator()
	}
	if s.urlStrategy == nil {
		s.urlStrategy = urlstrategy.NewDefaultStrategy("")
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	if s.mediaBackend == "" && len(s.blobStores) == 1 {
		for name := range s.blobStores {
			s.mediaBackend = name
		}
	}
	return s
}

// New creates the publishing service. A repository and a mirror are required.
func New(options ...Option) (Service, error) {
	s := newService(options)

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.mirror == nil {
		return nil, fmt.Errorf("mirror is required")
	}

	return s, nil
}

// NewMediaService creates the media service. A repository and the blob
// store named by WithMediaBackend are required.
func NewMediaService(options ...Option) (MediaService, error) {
	s := newService(options)

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if _, ok := s.blobStores[s.mediaBackend]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrStorageBackendNotFound, s.mediaBackend)
	}

	return s, nil
}

// NewFeedbackService creates the feedback service. Without a mailer and an
// admin address feedback is stored but nobody is notified.
func NewFeedbackService(options ...Option) (FeedbackService, error) {
	s := newService(options)

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// Record operations

func (s *service) Publish(ctx context.Context, req PublishRequest) (*Result, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	body := req.Body
	if req.Format == BodyFormatHTML {
		body = s.converter.HTMLToMarkdown(body)
	}

	recordSlug := slug.Generate(req.Title)
	if recordSlug == "" {
		return nil, &ValidationError{Field: "title", Message: "must contain at least one letter or digit"}
	}

	if err := s.checkCategory(ctx, req.CategorySlug); err != nil {
		return nil, err
	}

	record := &Record{
		ID:           uuid.New(),
		Slug:         recordSlug,
		Kind:         req.Kind,
		Title:        req.Title,
		Description:  req.Description,
		Body:         body,
		Tags:         req.Tags,
		CategorySlug: req.CategorySlug,
		Metadata:     req.Metadata,
	}

	if err := s.repository.CreateRecord(ctx, record); err != nil {
		return nil, persistenceError("record", recordSlug, "create", err)
	}
	s.logger.Info("record published", "slug", record.Slug, "kind", record.Kind)

	s.fire("record_published", record.Slug, func() error {
		return s.eventSink.RecordPublished(ctx, record)
	})

	return s.writeMirror(ctx, record, "write"), nil
}

func (s *service) GetRecord(ctx context.Context, slug string) (*Record, error) {
	record, err := s.repository.GetRecord(ctx, slug)
	if err != nil {
		return nil, persistenceError("record", slug, "get", err)
	}
	return record, nil
}

func (s *service) UpdateRecord(ctx context.Context, req UpdateRecordRequest) (*Result, error) {
	if req.Format == "" {
		req.Format = BodyFormatMarkdown
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := req.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	record, err := s.GetRecord(ctx, req.Slug)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		record.Title = *req.Title
	}
	if req.Description != nil {
		record.Description = *req.Description
	}
	if req.Body != nil {
		record.Body = *req.Body
		if req.Format == BodyFormatHTML {
			record.Body = s.converter.HTMLToMarkdown(record.Body)
		}
	}
	if req.Tags != nil {
		record.Tags = normalizeTags(req.Tags)
	}
	if req.CategorySlug != nil {
		category := strings.TrimSpace(*req.CategorySlug)
		if err := s.checkCategory(ctx, category); err != nil {
			return nil, err
		}
		record.CategorySlug = category
	}
	if req.Metadata != nil {
		record.Metadata = req.Metadata
	}

	if err := s.repository.UpdateRecord(ctx, record); err != nil {
		return nil, persistenceError("record", record.Slug, "update", err)
	}
	s.logger.Info("record updated", "slug", record.Slug)

	s.fire("record_updated", record.Slug, func() error {
		return s.eventSink.RecordUpdated(ctx, record)
	})

	return s.writeMirror(ctx, record, "write"), nil
}

func (s *service) DeleteRecord(ctx context.Context, slug string) (*Result, error) {
	record, err := s.GetRecord(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := s.repository.DeleteRecord(ctx, slug); err != nil {
		return nil, persistenceError("record", slug, "delete", err)
	}
	s.logger.Info("record deleted", "slug", slug)

	s.fire("record_deleted", slug, func() error {
		return s.eventSink.RecordDeleted(ctx, slug)
	})

	result := &Result{Record: record, Mirrored: true}
	if err := s.mirror.Delete(ctx, slug); err != nil {
		result.Mirrored = false
		result.MirrorErr = s.mirrorFailed(ctx, slug, "delete", err)
	}
	return result, nil
}

func (s *service) ListRecords(ctx context.Context, req ListRecordsRequest) ([]*Record, error) {
	if err := req.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	records, err := s.repository.ListRecords(ctx, RecordFilter{
		Kind:         req.Kind,
		Tag:          strings.TrimSpace(req.Tag),
		CategorySlug: req.CategorySlug,
		Limit:        req.Limit,
		Offset:       req.Offset,
	})
	if err != nil {
		return nil, persistenceError("record", "*", "list", err)
	}
	return records, nil
}

// Mirror maintenance

func (s *service) SyncMirror(ctx context.Context, slug string) (*Result, error) {
	record, err := s.GetRecord(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.writeMirror(ctx, record, "sync"), nil
}

func (s *service) RebuildMirrors(ctx context.Context) (*RebuildReport, error) {
	records, err := s.repository.ListRecords(ctx, RecordFilter{})
	if err != nil {
		return nil, persistenceError("record", "*", "list", err)
	}

	report := &RebuildReport{Total: len(records)}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := s.writeMirror(ctx, record, "rebuild")
		if result.Mirrored {
			report.Mirrored++
			continue
		}
		if report.Failed == nil {
			report.Failed = make(map[string]string)
		}
		report.Failed[record.Slug] = result.MirrorErr.Error()
	}

	s.logger.Info("mirrors rebuilt", "total", report.Total, "mirrored", report.Mirrored, "failed", len(report.Failed))
	return report, nil
}

func (s *service) ReadMirror(ctx context.Context, slug string) (*MirrorDocument, error) {
	doc, err := s.mirror.Read(ctx, slug)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, &MirrorError{Slug: slug, Op: "read", Err: err}
	}
	return doc, nil
}

// Category operations

func (s *service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	categorySlug := slug.Generate(req.Name)
	if categorySlug == "" {
		return nil, &ValidationError{Field: "name", Message: "must contain at least one letter or digit"}
	}

	category := &Category{
		ID:          uuid.New(),
		Slug:        categorySlug,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repository.CreateCategory(ctx, category); err != nil {
		return nil, persistenceError("category", categorySlug, "create", err)
	}
	s.logger.Info("category created", "slug", categorySlug)
	return category, nil
}

func (s *service) GetCategory(ctx context.Context, slug string) (*Category, error) {
	category, err := s.repository.GetCategory(ctx, slug)
	if err != nil {
		return nil, persistenceError("category", slug, "get", err)
	}
	return category, nil
}

func (s *service) ListCategories(ctx context.Context) ([]*Category, error) {
	categories, err := s.repository.ListCategories(ctx)
	if err != nil {
		return nil, persistenceError("category", "*", "list", err)
	}
	return categories, nil
}

// DeleteCategory refuses to remove a category that records still point at.
func (s *service) DeleteCategory(ctx context.Context, slug string) error {
	if _, err := s.GetCategory(ctx, slug); err != nil {
		return err
	}

	inUse, err := s.repository.ListRecords(ctx, RecordFilter{CategorySlug: slug, Limit: 1})
	if err != nil {
		return persistenceError("record", "*", "list", err)
	}
	if len(inUse) > 0 {
		return &ConflictError{Resource: "category", Key: slug, Reason: "is still used by records"}
	}

	if err := s.repository.DeleteCategory(ctx, slug); err != nil {
		return persistenceError("category", slug, "delete", err)
	}
	s.logger.Info("category deleted", "slug", slug)
	return nil
}

// helpers

func (s *service) checkCategory(ctx context.Context, categorySlug string) error {
	if categorySlug == "" {
		return nil
	}
	if _, err := s.repository.GetCategory(ctx, categorySlug); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewNotFoundError("category", categorySlug)
		}
		return persistenceError("category", categorySlug, "get", err)
	}
	return nil
}

// writeMirror writes the flat file for a record that is already stored.
// Failures are reported on the Result, never as an error.
func (s *service) writeMirror(ctx context.Context, record *Record, op string) *Result {
	if err := s.mirror.Write(ctx, record); err != nil {
		return &Result{
			Record:    record,
			Mirrored:  false,
			MirrorErr: s.mirrorFailed(ctx, record.Slug, op, err),
		}
	}
	return &Result{Record: record, Mirrored: true}
}

func (s *service) mirrorFailed(ctx context.Context, slug, op string, err error) *MirrorError {
	mirrorErr := &MirrorError{Slug: slug, Op: op, Err: err}
	s.logger.Warn("mirror out of date", "slug", slug, "op", op, "error", err)
	s.fire("mirror_failed", slug, func() error {
		return s.eventSink.MirrorFailed(ctx, slug, mirrorErr)
	})
	return mirrorErr
}

// fire delivers an event. Sink errors are logged only.
func (s *service) fire(event, key string, deliver func() error) {
	if err := deliver(); err != nil {
		s.logger.Warn("event delivery failed", "event", event, "key", key, "error", err)
	}
}

// persistenceError passes typed repository errors through and wraps the rest.
func persistenceError(resource, key, op string, err error) error {
	if isDomainError(err) {
		return err
	}
	return &PersistenceError{Resource: resource, Key: key, Op: op, Err: err}
}
