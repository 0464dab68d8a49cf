package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/config"
)

func newComponents(t *testing.T) *config.Components {
	t.Helper()
	cfg, err := config.Load(config.WithEventLogging(false))
	require.NoError(t, err)
	comps, err := cfg.Build(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(comps.Close)

	ctx := context.Background()
	_, err = comps.Service.CreateCategory(ctx, simplepublish.CreateCategoryRequest{Name: "Guides"})
	require.NoError(t, err)
	for _, req := range []simplepublish.PublishRequest{
		{Title: "First Post", Body: "one", Tags: []string{"go"}},
		{Title: "Second Post", Body: "two", Tags: []string{"go", "http"}, CategorySlug: "guides"},
		{Kind: simplepublish.RecordKindTutorial, Title: "A Tutorial", Body: "three", CategorySlug: "guides"},
	} {
		_, err := comps.Service.Publish(ctx, req)
		require.NoError(t, err)
	}
	return comps
}

func runCmd(t *testing.T, comps *config.Components, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, comps)
	return out.String(), err
}

func TestList(t *testing.T) {
	comps := newComponents(t)

	out, err := runCmd(t, comps, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "first-post")
	assert.Contains(t, out, "a-tutorial")
	assert.Contains(t, out, "Total: 3")

	out, err = runCmd(t, comps, "list", "--kind=tutorial", "--json")
	require.NoError(t, err)
	var records []simplepublish.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "a-tutorial", records[0].Slug)

	out, err = runCmd(t, comps, "list", "--limit=1")
	require.NoError(t, err)
	assert.Contains(t, out, "--offset=1")
}

func TestStats(t *testing.T) {
	comps := newComponents(t)

	out, err := runCmd(t, comps, "stats", "--json")
	require.NoError(t, err)
	var stats Statistics
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 2, stats.ByKind["post"])
	assert.Equal(t, 2, stats.ByCategory["guides"])
	assert.Equal(t, 2, stats.ByTag["go"])
	require.NotNil(t, stats.Oldest)

	out, err = runCmd(t, comps, "stats", "--tag=http")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Count: 1")
}

func TestCategoriesAndFeedback(t *testing.T) {
	comps := newComponents(t)

	out, err := runCmd(t, comps, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "guides")

	_, err = comps.Feedback.SubmitFeedback(context.Background(), simplepublish.SubmitFeedbackRequest{
		Name: "Ada", Email: "ada@example.com", Message: "Nice\nsite",
	})
	require.NoError(t, err)

	out, err = runCmd(t, comps, "feedback")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "Nice site")
}

func TestSyncAndRebuild(t *testing.T) {
	comps := newComponents(t)

	out, err := runCmd(t, comps, "sync", "first-post")
	require.NoError(t, err)
	assert.Equal(t, "mirrored first-post\n", out)

	_, err = runCmd(t, comps, "sync", "missing")
	assert.ErrorIs(t, err, simplepublish.ErrNotFound)

	out, err = runCmd(t, comps, "rebuild")
	require.NoError(t, err)
	assert.Equal(t, "mirrored 3 of 3 records\n", out)
}

func TestUsageErrors(t *testing.T) {
	comps := newComponents(t)

	_, err := runCmd(t, comps)
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, comps, "purge")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, comps, "sync")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, comps, "list", "--limit=ten")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, comps, "list", "--owner=me")
	assert.ErrorIs(t, err, errUsage)
}
