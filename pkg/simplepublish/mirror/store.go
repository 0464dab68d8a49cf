// Package mirror keeps a flat-file copy of every record in a BlobStore, one
// front-matter Markdown document per slug, for static hosting and backups.
package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// DefaultPrefix is where documents live unless WithPrefix says otherwise.
const DefaultPrefix = "content/"

// Store is a simplepublish.Mirror backed by a BlobStore.
type Store struct {
	blobs  simplepublish.BlobStore
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix documents are stored under.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a mirror over blobs.
func New(blobs simplepublish.BlobStore, options ...Option) (*Store, error) {
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	s := &Store{blobs: blobs, prefix: DefaultPrefix}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Key returns the object key of the document for slug.
func (s *Store) Key(slug string) string {
	return s.prefix + slug + ".md"
}

func (s *Store) Write(ctx context.Context, record *simplepublish.Record) error {
	content, err := Render(simplepublish.NewMirrorDocument(record))
	if err != nil {
		return err
	}
	return s.blobs.UploadWithParams(ctx, bytes.NewReader(content), simplepublish.UploadParams{
		ObjectKey: s.Key(record.Slug),
		MimeType:  "text/markdown; charset=utf-8",
	})
}

func (s *Store) Delete(ctx context.Context, slug string) error {
	err := s.blobs.Delete(ctx, s.Key(slug))
	if err != nil && !errors.Is(err, simplepublish.ErrObjectNotFound) {
		return err
	}
	return nil
}

func (s *Store) Read(ctx context.Context, slug string) (*simplepublish.MirrorDocument, error) {
	rc, err := s.blobs.Download(ctx, s.Key(slug))
	if err != nil {
		if errors.Is(err, simplepublish.ErrObjectNotFound) {
			return nil, simplepublish.NewNotFoundError("mirror document", slug)
		}
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read mirror document: %w", err)
	}
	return Parse(content)
}
