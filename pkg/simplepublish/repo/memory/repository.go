package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

type recordEntry struct {
	record *simplepublish.Record
	seq    uint64
}

// Repository implements simplepublish.Repository using in-memory storage.
// Values are copied on the way in and out.
type Repository struct {
	mu         sync.RWMutex
	seq        uint64
	records    map[string]*recordEntry // slug -> record
	categories map[string]*simplepublish.Category
	media      map[uuid.UUID]*simplepublish.Media
	feedback   []*simplepublish.Feedback
	now        func() time.Time
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		records:    make(map[string]*recordEntry),
		categories: make(map[string]*simplepublish.Category),
		media:      make(map[uuid.UUID]*simplepublish.Media),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Record operations

// CreateRecord checks and claims the slug under one lock, so concurrent
// publishes of the same title cannot both succeed.
func (r *Repository) CreateRecord(ctx context.Context, record *simplepublish.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.Slug]; exists {
		return simplepublish.NewConflictError("record", record.Slug)
	}

	now := r.now()
	record.CreatedAt = now
	record.UpdatedAt = now

	r.seq++
	r.records[record.Slug] = &recordEntry{record: record.Clone(), seq: r.seq}
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, slug string) (*simplepublish.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.records[slug]
	if !exists {
		return nil, simplepublish.NewNotFoundError("record", slug)
	}
	return entry.record.Clone(), nil
}

// UpdateRecord replaces the mutable fields. ID, slug and CreatedAt keep
// their stored values.
func (r *Repository) UpdateRecord(ctx context.Context, record *simplepublish.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.records[record.Slug]
	if !exists {
		return simplepublish.NewNotFoundError("record", record.Slug)
	}

	record.ID = entry.record.ID
	record.CreatedAt = entry.record.CreatedAt
	record.UpdatedAt = r.now()
	entry.record = record.Clone()
	return nil
}

func (r *Repository) DeleteRecord(ctx context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[slug]; !exists {
		return simplepublish.NewNotFoundError("record", slug)
	}
	delete(r.records, slug)
	return nil
}

// ListRecords returns matching records newest first.
func (r *Repository) ListRecords(ctx context.Context, filter simplepublish.RecordFilter) ([]*simplepublish.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*recordEntry
	for _, entry := range r.records {
		if filter.Matches(entry.record) {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].record, entries[j].record
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	entries = page(entries, filter.Offset, filter.Limit)

	result := make([]*simplepublish.Record, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entry.record.Clone())
	}
	return result, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Category operations

func (r *Repository) CreateCategory(ctx context.Context, category *simplepublish.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.categories[category.Slug]; exists {
		return simplepublish.NewConflictError("category", category.Slug)
	}

	category.CreatedAt = r.now()
	categoryCopy := *category
	r.categories[category.Slug] = &categoryCopy
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, slug string) (*simplepublish.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	category, exists := r.categories[slug]
	if !exists {
		return nil, simplepublish.NewNotFoundError("category", slug)
	}
	categoryCopy := *category
	return &categoryCopy, nil
}

// ListCategories returns categories ordered by name
func (r *Repository) ListCategories(ctx context.Context) ([]*simplepublish.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplepublish.Category, 0, len(r.categories))
	for _, category := range r.categories {
		categoryCopy := *category
		result = append(result, &categoryCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].Slug < result[j].Slug
	})
	return result, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.categories[slug]; !exists {
		return simplepublish.NewNotFoundError("category", slug)
	}
	delete(r.categories, slug)
	return nil
}

// Media operations

func (r *Repository) CreateMedia(ctx context.Context, media *simplepublish.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.media[media.ID]; exists {
		return simplepublish.NewConflictError("media", media.ID.String())
	}
	if media.CreatedAt.IsZero() {
		media.CreatedAt = r.now()
	}
	mediaCopy := *media
	r.media[media.ID] = &mediaCopy
	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id uuid.UUID) (*simplepublish.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	media, exists := r.media[id]
	if !exists {
		return nil, simplepublish.NewNotFoundError("media", id.String())
	}
	mediaCopy := *media
	return &mediaCopy, nil
}

// ListMedia returns media newest first
func (r *Repository) ListMedia(ctx context.Context) ([]*simplepublish.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplepublish.Media, 0, len(r.media))
	for _, media := range r.media {
		mediaCopy := *media
		result = append(result, &mediaCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (r *Repository) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.media[id]; !exists {
		return simplepublish.NewNotFoundError("media", id.String())
	}
	delete(r.media, id)
	return nil
}

// Feedback operations

func (r *Repository) CreateFeedback(ctx context.Context, feedback *simplepublish.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	feedback.CreatedAt = r.now()
	feedbackCopy := *feedback
	feedbackCopy.Notified = false
	r.feedback = append(r.feedback, &feedbackCopy)
	return nil
}

// ListFeedback returns feedback newest first
func (r *Repository) ListFeedback(ctx context.Context) ([]*simplepublish.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplepublish.Feedback, 0, len(r.feedback))
	for i := len(r.feedback) - 1; i >= 0; i-- {
		feedbackCopy := *r.feedback[i]
		result = append(result, &feedbackCopy)
	}
	return result, nil
}
