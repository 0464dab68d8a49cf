// Package repotest holds the behaviour every simplepublish.Repository must
// share. Backend packages call Run from their own tests.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Run exercises repo. newRepo must return an empty repository each call.
func Run(t *testing.T, newRepo func(t *testing.T) simplepublish.Repository) {
	t.Run("Records", func(t *testing.T) { testRecords(t, newRepo(t)) })
	t.Run("RecordConflict", func(t *testing.T) { testRecordConflict(t, newRepo(t)) })
	t.Run("ConcurrentCreate", func(t *testing.T) { testConcurrentCreate(t, newRepo(t)) })
	t.Run("ListRecords", func(t *testing.T) { testListRecords(t, newRepo(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newRepo(t)) })
	t.Run("Media", func(t *testing.T) { testMedia(t, newRepo(t)) })
	t.Run("Feedback", func(t *testing.T) { testFeedback(t, newRepo(t)) })
}

func newRecord(slug string) *simplepublish.Record {
	return &simplepublish.Record{
		ID:          uuid.New(),
		Slug:        slug,
		Kind:        simplepublish.RecordKindPost,
		Title:       "Title " + slug,
		Description: "About " + slug,
		Body:        "# " + slug,
		Tags:        []string{"go"},
		Metadata:    map[string]interface{}{simplepublish.MetaSEOTitle: "SEO " + slug},
	}
}

func testRecords(t *testing.T, repo simplepublish.Repository) {
	ctx := context.Background()

	record := newRecord("hello-world")
	require.NoError(t, repo.CreateRecord(ctx, record))
	assert.False(t, record.CreatedAt.IsZero(), "repository assigns CreatedAt")
	assert.Equal(t, record.CreatedAt, record.UpdatedAt)

	got, err := repo.GetRecord(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, "Title hello-world", got.Title)
	assert.Equal(t, []string{"go"}, got.Tags)
	assert.Equal(t, "SEO hello-world", got.Metadata[simplepublish.MetaSEOTitle])
	assert.WithinDuration(t, record.CreatedAt, got.CreatedAt, time.Millisecond)

	// returned values are copies
	got.Tags[0] = "mutated"
	again, err := repo.GetRecord(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, again.Tags)

	got.Title = "Updated"
	got.Tags = []string{"go", "intro"}
	got.ID = uuid.New()
	require.NoError(t, repo.UpdateRecord(ctx, got))
	assert.Equal(t, record.ID, got.ID, "ID is not rewritten by update")
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	updated, err := repo.GetRecord(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Title)
	assert.Equal(t, []string{"go", "intro"}, updated.Tags)
	assert.Equal(t, record.ID, updated.ID)

	require.NoError(t, repo.DeleteRecord(ctx, "hello-world"))
	_, err = repo.GetRecord(ctx, "hello-world")
	assert.ErrorIs(t, err, simplepublish.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteRecord(ctx, "hello-world"), simplepublish.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateRecord(ctx, newRecord("missing")), simplepublish.ErrNotFound)
}

func testRecordConflict(t *testing.T, repo simplepublish.Repository) {
	ctx := context.Background()

	require.NoError(t, repo.CreateRecord(ctx, newRecord("dup")))
	err := repo.CreateRecord(ctx, newRecord("dup"))
	require.Error(t, err)
	assert.ErrorIs(t, err, simplepublish.ErrConflict)

	var conflict *simplepublish.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "dup", conflict.Key)
}

func testConcurrentCreate(t *testing.T, repo simplepublish.Repository) {
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CreateRecord(ctx, newRecord("race"))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, simplepublish.ErrConflict)
	}
	assert.Equal(t, 1, created)
}

func testListRecords(t *testing.T, repo simplepublish.Repository) {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := newRecord(fmt.Sprintf("post-%d", i))
		if i%2 == 1 {
			r.Kind = simplepublish.RecordKindTutorial
			r.Tags = []string{"howto"}
			r.CategorySlug = "guides"
		}
		require.NoError(t, repo.CreateRecord(ctx, r))
		time.Sleep(2 * time.Millisecond)
	}

	all, err := repo.ListRecords(ctx, simplepublish.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "post-4", all[0].Slug, "newest first")
	assert.Equal(t, "post-0", all[4].Slug)

	tutorials, err := repo.ListRecords(ctx, simplepublish.RecordFilter{Kind: simplepublish.RecordKindTutorial})
	require.NoError(t, err)
	assert.Len(t, tutorials, 2)

	tagged, err := repo.ListRecords(ctx, simplepublish.RecordFilter{Tag: "howto"})
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	inCategory, err := repo.ListRecords(ctx, simplepublish.RecordFilter{CategorySlug: "guides"})
	require.NoError(t, err)
	assert.Len(t, inCategory, 2)

	paged, err := repo.ListRecords(ctx, simplepublish.RecordFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, "post-3", paged[0].Slug)
	assert.Equal(t, "post-2", paged[1].Slug)

	beyond, err := repo.ListRecords(ctx, simplepublish.RecordFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func testCategories(t *testing.T, repo simplepublish.Repository) {
	ctx := context.Background()

	for _, c := range []*simplepublish.Category{
		{ID: uuid.New(), Slug: "tutorials", Name: "Tutorials"},
		{ID: uuid.New(), Slug: "go", Name: "Go", Description: "The language"},
	} {
		require.NoError(t, repo.CreateCategory(ctx, c))
		assert.False(t, c.CreatedAt.IsZero())
	}

	err := repo.CreateCategory(ctx, &simplepublish.Category{ID: uuid.New(), Slug: "go", Name: "Go again"})
	assert.ErrorIs(t, err, simplepublish.ErrConflict)

	got, err := repo.GetCategory(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, "Go", got.Name)
	assert.Equal(t, "The language", got.Description)

	list, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Go", list[0].Name)

	require.NoError(t, repo.DeleteCategory(ctx, "go"))
	_, err = repo.GetCategory(ctx, "go")
	assert.ErrorIs(t, err, simplepublish.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteCategory(ctx, "go"), simplepublish.ErrNotFound)
}

func testMedia(t *testing.T, repo simplepublish.Repository) {
	ctx := context.Background()

	m := &simplepublish.Media{
		ID:             uuid.New(),
		FileName:       "photo.png",
		ContentType:    "image/png",
		Size:           42,
		ObjectKey:      "media/objects/ab/cd_photo.png",
		StorageBackend: "default",
		URL:            "/api/v1/media/x/file",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.CreateMedia(ctx, m))

	got, err := repo.GetMedia(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ObjectKey, got.ObjectKey)
	assert.Equal(t, int64(42), got.Size)
	assert.Equal(t, "image/png", got.ContentType)

	list, err := repo.ListMedia(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.DeleteMedia(ctx, m.ID))
	_, err = repo.GetMedia(ctx, m.ID)
	assert.ErrorIs(t, err, simplepublish.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteMedia(ctx, m.ID), simplepublish.ErrNotFound)
}

func testFeedback(t *testing.T, repo simplepublish.Repository) {
	ctx := context.Background()

	for _, name := range []string{"Ada", "Grace"} {
		f := &simplepublish.Feedback{ID: uuid.New(), Name: name, Email: name + "@example.com", Message: "hi", Notified: true}
		require.NoError(t, repo.CreateFeedback(ctx, f))
		assert.False(t, f.CreatedAt.IsZero())
		time.Sleep(2 * time.Millisecond)
	}

	list, err := repo.ListFeedback(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Grace", list[0].Name, "newest first")
	assert.False(t, list[0].Notified, "notification state is not persisted")
}
