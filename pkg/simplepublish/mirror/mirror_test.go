package mirror

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/storage/memory"
)

var _ simplepublish.Mirror = (*Store)(nil)

func sampleRecord() *simplepublish.Record {
	return &simplepublish.Record{
		Slug:         "hello-world",
		Kind:         simplepublish.RecordKindPost,
		Title:        "Hello: World",
		Description:  "First post",
		Body:         "# Hello\n\nSome **bold** text.",
		Tags:         []string{"go", "intro"},
		CategorySlug: "notes",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	out, err := Render(simplepublish.NewMirrorDocument(sampleRecord()))
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "---\nslug: hello-world\n"), text)
	assert.Contains(t, text, "Hello: World")
	assert.Contains(t, text, "tags: [go, intro]")
	assert.Contains(t, text, "category: notes")
	assert.Contains(t, text, "created_at: 2026-01-02T03:04:05Z")
	assert.True(t, strings.HasSuffix(text, "---\n\n# Hello\n\nSome **bold** text.\n"), text)
}

func TestRender_OmitsEmptyOptionalFields(t *testing.T) {
	r := sampleRecord()
	r.Description = ""
	r.CategorySlug = ""
	r.Tags = nil

	out, err := Render(simplepublish.NewMirrorDocument(r))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "description:")
	assert.NotContains(t, string(out), "category:")
	assert.NotContains(t, string(out), "tags:")
}

func TestParse_RoundTrip(t *testing.T) {
	want := simplepublish.NewMirrorDocument(sampleRecord())
	out, err := Render(want)
	require.NoError(t, err)

	got, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: [unterminated\n---\nbody"))
	assert.Error(t, err)
}

func TestStore_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	store, err := New(blobs, WithPrefix("site/"))
	require.NoError(t, err)

	r := sampleRecord()
	require.NoError(t, store.Write(ctx, r))

	meta, err := blobs.GetObjectMeta(ctx, "site/hello-world.md")
	require.NoError(t, err)
	assert.Equal(t, "text/markdown; charset=utf-8", meta.ContentType)

	doc, err := store.Read(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, r.Title, doc.Title)
	assert.Equal(t, r.Body, doc.Body)
	assert.Equal(t, "notes", doc.Category)

	r.Title = "Renamed"
	require.NoError(t, store.Write(ctx, r))
	doc, err = store.Read(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", doc.Title)
	assert.Equal(t, 1, blobs.Len())

	require.NoError(t, store.Delete(ctx, "hello-world"))
	assert.Equal(t, 0, blobs.Len())

	// deleting again is not an error
	require.NoError(t, store.Delete(ctx, "hello-world"))

	_, err = store.Read(ctx, "hello-world")
	assert.ErrorIs(t, err, simplepublish.ErrNotFound)
}

func TestStore_DefaultPrefix(t *testing.T) {
	store, err := New(memory.New())
	require.NoError(t, err)
	assert.Equal(t, "content/a-b.md", store.Key("a-b"))
}

func TestNew_RequiresBlobStore(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

type failingBlobs struct {
	*memory.Backend
}

func (failingBlobs) UploadWithParams(context.Context, io.Reader, simplepublish.UploadParams) error {
	return errors.New("disk full")
}

func (failingBlobs) Delete(context.Context, string) error {
	return errors.New("permission denied")
}

func TestStore_PropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	store, err := New(failingBlobs{memory.New()})
	require.NoError(t, err)

	assert.EqualError(t, store.Write(ctx, sampleRecord()), "disk full")
	assert.EqualError(t, store.Delete(ctx, "x"), "permission denied")
}
