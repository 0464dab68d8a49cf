package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/api"
	"github.com/tendant/simple-publish/pkg/simplepublish/auth"
	"github.com/tendant/simple-publish/pkg/simplepublish/mirror"
	"github.com/tendant/simple-publish/pkg/simplepublish/repo/memory"
	memorystorage "github.com/tendant/simple-publish/pkg/simplepublish/storage/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// brokenMirror fails every write so handlers report partial results.
type brokenMirror struct {
	simplepublish.Mirror
}

func (brokenMirror) Write(context.Context, *simplepublish.Record) error {
	return errors.New("mirror volume is read-only")
}

type setup struct {
	mirror     simplepublish.Mirror
	guard      api.Guard
	maxUpload  int64
	withLimits bool
}

func newServer(t *testing.T, s setup) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	blobs := memorystorage.New()

	if s.mirror == nil {
		store, err := mirror.New(blobs)
		require.NoError(t, err)
		s.mirror = store
	}
	if s.maxUpload == 0 {
		s.maxUpload = 1 << 20
	}

	svc, err := simplepublish.New(
		simplepublish.WithRepository(repo),
		simplepublish.WithMirror(s.mirror),
		simplepublish.WithLogger(logger),
	)
	require.NoError(t, err)

	media, err := simplepublish.NewMediaService(
		simplepublish.WithRepository(repo),
		simplepublish.WithBlobStore("memory", blobs),
		simplepublish.WithMaxUploadBytes(s.maxUpload),
		simplepublish.WithLogger(logger),
	)
	require.NoError(t, err)

	feedback, err := simplepublish.NewFeedbackService(
		simplepublish.WithRepository(repo),
		simplepublish.WithLogger(logger),
	)
	require.NoError(t, err)

	cfg := api.Config{
		Service:  svc,
		Media:    media,
		Feedback: feedback,
		Guard:    s.guard,
		Logger:   logger,
	}
	if s.withLimits {
		cfg.FeedbackLimiter = api.NewRateLimiter(1)
	}
	return api.NewRouter(cfg)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	decode(t, rr, &resp)
	return resp.Error.Code
}

func TestHealth(t *testing.T) {
	h := newServer(t, setup{})
	rr := doJSON(t, h, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRecordLifecycle(t *testing.T) {
	h := newServer(t, setup{})

	rr := doJSON(t, h, http.MethodPost, "/api/v1/records", map[string]interface{}{
		"kind":  "tutorial",
		"title": "Getting Started with Go",
		"body":  "Hello **world**",
		"tags":  []string{"go", "intro"},
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created api.WriteResponse
	decode(t, rr, &created)
	assert.True(t, created.Mirror.Written)
	assert.Empty(t, created.Mirror.Error)
	assert.Equal(t, "getting-started-with-go", created.Record.Slug)

	base := "/api/v1/records/getting-started-with-go"

	t.Run("get", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, base, nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		var record simplepublish.Record
		decode(t, rr, &record)
		assert.Equal(t, simplepublish.RecordKindTutorial, record.Kind)
		assert.Equal(t, []string{"go", "intro"}, record.Tags)
	})

	t.Run("html", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, base+"/html", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		var resp api.RenderedResponse
		decode(t, rr, &resp)
		assert.Contains(t, resp.HTML, "<strong>world</strong>")
	})

	t.Run("tree", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, base+"/tree", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		var resp api.TreeResponse
		decode(t, rr, &resp)
		require.NotNil(t, resp.Tree)
		assert.Equal(t, "document", resp.Tree.Type)
	})

	t.Run("mirror", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, base+"/mirror", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		var doc simplepublish.MirrorDocument
		decode(t, rr, &doc)
		assert.Equal(t, "Getting Started with Go", doc.Title)
		assert.Equal(t, "Hello **world**", doc.Body)
	})

	t.Run("update keeps slug", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPut, base, map[string]interface{}{"title": "Go, Revisited"}, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var resp api.WriteResponse
		decode(t, rr, &resp)
		assert.Equal(t, "getting-started-with-go", resp.Record.Slug)
		assert.Equal(t, "Go, Revisited", resp.Record.Title)
		assert.Equal(t, "Hello **world**", resp.Record.Body)
	})

	t.Run("list", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/api/v1/records?kind=tutorial&tag=go", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		var records []simplepublish.Record
		decode(t, rr, &records)
		assert.Len(t, records, 1)

		rr = doJSON(t, h, http.MethodGet, "/api/v1/records?kind=post", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("delete", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodDelete, base, nil, "")
		require.Equal(t, http.StatusOK, rr.Code)

		rr = doJSON(t, h, http.MethodGet, base, nil, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", errorCode(t, rr))

		rr = doJSON(t, h, http.MethodGet, base+"/mirror", nil, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPublishErrors(t *testing.T) {
	h := newServer(t, setup{})

	t.Run("validation", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/v1/records", map[string]interface{}{"body": "no title"}, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var resp api.ErrorResponse
		decode(t, rr, &resp)
		assert.Equal(t, "validation_error", resp.Error.Code)
		assert.Equal(t, "title", resp.Error.Field)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader("{"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid_request", errorCode(t, rr))
	})

	t.Run("duplicate slug", func(t *testing.T) {
		body := map[string]interface{}{"title": "Same Title", "body": "x"}
		require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/v1/records", body, "").Code)

		rr := doJSON(t, h, http.MethodPost, "/api/v1/records", body, "")
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "conflict", errorCode(t, rr))
	})

	t.Run("unknown category", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/v1/records", map[string]interface{}{
			"title": "Lost", "body": "x", "category_slug": "nowhere",
		}, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("bad paging", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/api/v1/records?limit=ten", nil, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = doJSON(t, h, http.MethodGet, "/api/v1/records?limit=1000", nil, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", errorCode(t, rr))
	})
}

func TestPublishWithBrokenMirror(t *testing.T) {
	blobs := memorystorage.New()
	store, err := mirror.New(blobs)
	require.NoError(t, err)
	h := newServer(t, setup{mirror: brokenMirror{Mirror: store}})

	rr := doJSON(t, h, http.MethodPost, "/api/v1/records", map[string]interface{}{
		"title": "Saved Anyway", "body": "text",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp api.WriteResponse
	decode(t, rr, &resp)
	assert.False(t, resp.Mirror.Written)
	assert.Contains(t, resp.Mirror.Error, "read-only")
	require.NotNil(t, resp.Record)

	rr = doJSON(t, h, http.MethodGet, "/api/v1/records/saved-anyway", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code, "record is authoritative even without a mirror")

	rr = doJSON(t, h, http.MethodPost, "/api/v1/mirror/rebuild", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var report simplepublish.RebuildReport
	decode(t, rr, &report)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 0, report.Mirrored)
	assert.Contains(t, report.Failed, "saved-anyway")
}

func TestMirrorSyncAndRebuild(t *testing.T) {
	h := newServer(t, setup{})

	require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/v1/records",
		map[string]interface{}{"title": "One", "body": "1"}, "").Code)
	require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/v1/records",
		map[string]interface{}{"title": "Two", "body": "2"}, "").Code)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/records/one/mirror", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var synced api.WriteResponse
	decode(t, rr, &synced)
	assert.True(t, synced.Mirror.Written)

	rr = doJSON(t, h, http.MethodPost, "/api/v1/records/missing/mirror", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/v1/mirror/rebuild", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var report simplepublish.RebuildReport
	decode(t, rr, &report)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Mirrored)
	assert.Empty(t, report.Failed)
}

func TestCategories(t *testing.T) {
	h := newServer(t, setup{})

	rr := doJSON(t, h, http.MethodPost, "/api/v1/categories", map[string]string{"name": "Web Development"}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var category simplepublish.Category
	decode(t, rr, &category)
	assert.Equal(t, "web-development", category.Slug)

	rr = doJSON(t, h, http.MethodPost, "/api/v1/categories", map[string]string{"name": "Web Development"}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/v1/categories/web-development", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/v1/categories", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var categories []simplepublish.Category
	decode(t, rr, &categories)
	assert.Len(t, categories, 1)

	require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/v1/records", map[string]interface{}{
		"title": "Filed", "body": "x", "category_slug": "web-development",
	}, "").Code)

	rr = doJSON(t, h, http.MethodDelete, "/api/v1/categories/web-development", nil, "")
	assert.Equal(t, http.StatusConflict, rr.Code, "category still in use")

	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodDelete, "/api/v1/records/filed", nil, "").Code)

	rr = doJSON(t, h, http.MethodDelete, "/api/v1/categories/web-development", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func uploadRequest(t *testing.T, fileName, contentType string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + fileName + `"`}
	if contentType != "" {
		header["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMediaUploadAndDownload(t *testing.T) {
	h := newServer(t, setup{maxUpload: 64})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "notes.txt", "text/plain", []byte("hello media")))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var media simplepublish.Media
	decode(t, rr, &media)
	assert.Equal(t, "notes.txt", media.FileName)
	assert.Equal(t, int64(11), media.Size)
	assert.Equal(t, "/api/v1/media/"+media.ID.String()+"/file", media.URL)

	rr = doJSON(t, h, http.MethodGet, "/api/v1/media/"+media.ID.String(), nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodGet, media.URL+"?download=true", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello media", rr.Body.String())
	assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "notes.txt")

	rr = doJSON(t, h, http.MethodGet, "/api/v1/media", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var items []simplepublish.Media
	decode(t, rr, &items)
	assert.Len(t, items, 1)

	rr = doJSON(t, h, http.MethodDelete, "/api/v1/media/"+media.ID.String(), nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, h, http.MethodGet, media.URL, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMediaUploadErrors(t *testing.T) {
	h := newServer(t, setup{maxUpload: 8})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "big.bin", "application/octet-stream", bytes.Repeat([]byte("x"), 32)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "file_too_large", errorCode(t, rr))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "empty.txt", "text/plain", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation_error", errorCode(t, rr))

	rr = doJSON(t, h, http.MethodPost, "/api/v1/media", map[string]string{"not": "multipart"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/v1/media/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFeedback(t *testing.T) {
	h := newServer(t, setup{withLimits: true})

	rr := doJSON(t, h, http.MethodPost, "/api/v1/feedback", map[string]string{
		"name": "Ada", "email": "ada@example.com", "message": "Lovely tutorial",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var feedback simplepublish.Feedback
	decode(t, rr, &feedback)
	assert.False(t, feedback.Notified, "no mailer configured")

	rr = doJSON(t, h, http.MethodPost, "/api/v1/feedback", map[string]string{
		"name": "Ada", "email": "ada@example.com", "message": "Again",
	}, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/v1/feedback", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var items []simplepublish.Feedback
	decode(t, rr, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Lovely tutorial", items[0].Message)
}

func TestFeedbackValidation(t *testing.T) {
	h := newServer(t, setup{})

	rr := doJSON(t, h, http.MethodPost, "/api/v1/feedback", map[string]string{
		"name": "Ada", "email": "not-an-email", "message": "hi",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp api.ErrorResponse
	decode(t, rr, &resp)
	assert.Equal(t, "email", resp.Error.Field)
}

func TestConvert(t *testing.T) {
	h := newServer(t, setup{})

	rr := doJSON(t, h, http.MethodPost, "/api/v1/convert/html-to-markdown",
		map[string]string{"html": "<p><strong>bold</strong></p>"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var md struct {
		Markdown string `json:"markdown"`
	}
	decode(t, rr, &md)
	assert.Contains(t, md.Markdown, "**bold**")

	rr = doJSON(t, h, http.MethodPost, "/api/v1/convert/markdown-to-html",
		map[string]string{"markdown": "# Title"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var html struct {
		HTML string `json:"html"`
	}
	decode(t, rr, &html)
	assert.Contains(t, html.HTML, "<h1>Title</h1>")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	authorizer, err := auth.New(testSecret)
	require.NoError(t, err)
	h := newServer(t, setup{guard: authorizer})

	admin, err := authorizer.IssueToken("editor-1", auth.RoleAdmin)
	require.NoError(t, err)
	reader, err := authorizer.IssueToken("reader-1", "reader")
	require.NoError(t, err)

	body := map[string]interface{}{"title": "Guarded", "body": "x"}

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, h, http.MethodPost, "/api/v1/records", body, "").Code)
	assert.Equal(t, http.StatusForbidden, doJSON(t, h, http.MethodPost, "/api/v1/records", body, reader).Code)
	assert.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/v1/records", body, admin).Code)

	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/api/v1/records/guarded", nil, "").Code,
		"reads stay public")
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, h, http.MethodPost, "/api/v1/mirror/rebuild", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, h, http.MethodGet, "/api/v1/feedback", nil, "").Code)
	assert.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/v1/feedback", map[string]string{
		"name": "Ada", "email": "ada@example.com", "message": "public form",
	}, "").Code)
}
