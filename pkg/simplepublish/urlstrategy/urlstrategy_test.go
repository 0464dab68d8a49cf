package urlstrategy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	preview  string
	download string
	err      error
}

func (s *stubStore) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	return s.download + "/" + objectKey + "?name=" + downloadFilename, s.err
}

func (s *stubStore) GetPreviewURL(ctx context.Context, objectKey string) (string, error) {
	return s.preview + "/" + objectKey, s.err
}

func TestCDNStrategy(t *testing.T) {
	ctx := context.Background()
	s := NewCDNStrategy("https://cdn.example.com/")

	got, err := s.PublicURL(ctx, uuid.New(), "media/a.png", "s3")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/a.png", got)

	got, err = s.DownloadURL(ctx, uuid.New(), "media/a.png", "s3", "my file.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/a.png?filename=my+file.png", got)

	_, err = (&CDNStrategy{}).PublicURL(ctx, uuid.New(), "k", "s3")
	assert.Error(t, err)
}

func TestAppRoutedStrategy(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	s := NewAppRoutedStrategy("/api/v1/")

	got, err := s.PublicURL(ctx, id, "ignored", "memory")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/media/"+id.String()+"/file", got)

	got, err = s.DownloadURL(ctx, id, "ignored", "memory", "a.png")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/media/"+id.String()+"/file?download=1", got)
}

func TestStorageDelegatedStrategy(t *testing.T) {
	ctx := context.Background()
	s := NewStorageDelegatedStrategy(map[string]BlobStore{
		"fs": &stubStore{preview: "http://files/preview", download: "http://files/download"},
	})

	got, err := s.PublicURL(ctx, uuid.New(), "media/a.png", "fs")
	require.NoError(t, err)
	assert.Equal(t, "http://files/preview/media/a.png", got)

	got, err = s.DownloadURL(ctx, uuid.New(), "media/a.png", "fs", "a.png")
	require.NoError(t, err)
	assert.Equal(t, "http://files/download/media/a.png?name=a.png", got)

	_, err = s.PublicURL(ctx, uuid.New(), "k", "missing")
	assert.Error(t, err)

	failing := NewStorageDelegatedStrategy(map[string]BlobStore{"fs": &stubStore{err: errors.New("no urls")}})
	_, err = failing.PublicURL(ctx, uuid.New(), "k", "fs")
	assert.Error(t, err)
}

func TestNewURLStrategy(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    interface{}
		wantErr bool
	}{
		{"cdn", Config{Type: StrategyTypeCDN, CDNBaseURL: "https://cdn"}, &CDNStrategy{}, false},
		{"cdn without url", Config{Type: StrategyTypeCDN}, nil, true},
		{"app", Config{Type: StrategyTypeAppRouted, APIBaseURL: "/api"}, &AppRoutedStrategy{}, false},
		{"default", Config{}, &AppRoutedStrategy{}, false},
		{"delegated", Config{Type: StrategyTypeStorageDelegated, BlobStores: map[string]BlobStore{"m": &stubStore{}}}, &StorageDelegatedStrategy{}, false},
		{"delegated without stores", Config{Type: StrategyTypeStorageDelegated}, nil, true},
		{"unknown", Config{Type: "nope"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewURLStrategy(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}
