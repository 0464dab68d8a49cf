package config

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/api"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.Mirror.Type)
	assert.Equal(t, "memory", cfg.Media.Type)
	assert.Equal(t, "content/", cfg.MirrorPrefix)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.False(t, cfg.TrustProxy)
}

func TestLoad_Options(t *testing.T) {
	cfg, err := Load(
		WithPort("9090"),
		WithDatabase("sqlite", "./data/publish.db"),
		WithMediaStorage(StorageConfig{Type: "fs", BaseDir: "/srv/media"}),
		WithURLStrategy("cdn", "https://cdn.example.com"),
		WithKeyLayout("dated"),
		WithJWTSecret(testSecret, time.Hour),
		WithAdminEmail("admin@example.com"),
	)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "./data/publish.db", cfg.SQLitePath)
	assert.Equal(t, "/srv/media", cfg.Media.BaseDir)
	assert.Equal(t, "https://cdn.example.com", cfg.CDNBaseURL)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.AuthEnabled())
}

func TestLoad_OptionErrors(t *testing.T) {
	_, err := Load(WithPort(""))
	assert.Error(t, err)

	_, err = Load(WithDatabase("mysql", "x"))
	assert.Error(t, err)

	_, err = Load(WithDatabase("postgres", ""))
	assert.Error(t, err)

	_, err = Load(WithURLStrategy("cdn", ""))
	assert.Error(t, err)

	_, err = Load(WithMaxUploadBytes(0))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		field  string
	}{
		{"unknown environment", func(c *ServerConfig) { c.Environment = "staging" }, "Environment"},
		{"fs without dir", func(c *ServerConfig) { c.Media = StorageConfig{Type: "fs"} }, "Media"},
		{"s3 without bucket", func(c *ServerConfig) { c.Mirror = StorageConfig{Type: "s3"} }, "Mirror"},
		{"bad sse", func(c *ServerConfig) { c.Media = StorageConfig{Type: "s3", Bucket: "b", SSEAlgorithm: "rot13"} }, "Media"},
		{"short secret", func(c *ServerConfig) { c.JWTSecret = "short" }, "JWTSecret"},
		{"production without secret", func(c *ServerConfig) { c.Environment = "production" }, "JWTSecret"},
		{"bad admin email", func(c *ServerConfig) { c.AdminEmail = "nobody" }, "AdminEmail"},
		{"unknown key layout", func(c *ServerConfig) { c.KeyLayout = "random" }, "KeyLayout"},
		{"sqlite without path", func(c *ServerConfig) { c.DatabaseType = "sqlite" }, "SQLitePath"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "sqlite://./var/publish.db")
	t.Setenv("MIRROR_URL", "file:///var/lib/publish/mirror")
	t.Setenv("MEDIA_STORAGE_URL", "s3://media-bucket?endpoint=http://localhost:9000&path_style=true&sse=AES256")
	t.Setenv("AWS_ACCESS_KEY_ID", "minioadmin")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "miniosecret")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_TOKEN_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("FEEDBACK_RATE_LIMIT", "0")
	t.Setenv("EVENT_LOGGING", "false")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load(WithEnv())
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "./var/publish.db", cfg.SQLitePath)
	assert.Equal(t, StorageConfig{Type: "fs", BaseDir: "/var/lib/publish/mirror"}, cfg.Mirror)

	assert.Equal(t, "s3", cfg.Media.Type)
	assert.Equal(t, "media-bucket", cfg.Media.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Media.Region)
	assert.Equal(t, "http://localhost:9000", cfg.Media.Endpoint)
	assert.True(t, cfg.Media.UsePathStyle)
	assert.Equal(t, "AES256", cfg.Media.SSEAlgorithm)
	assert.Equal(t, "minioadmin", cfg.Media.AccessKeyID)

	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 0, cfg.FeedbackRateLimit)
	assert.False(t, cfg.EnableEventLogging)
	assert.True(t, cfg.TrustProxy)
}

func TestWithEnv_UnsetKeepsOptions(t *testing.T) {
	cfg, err := Load(WithPort("9999"), WithEnv())
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
}

func TestWithEnv_Errors(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DATABASE_URL", "mysql://localhost/db"},
		{"DATABASE_URL", "sqlite://"},
		{"MIRROR_URL", "ftp://host/dir"},
		{"MEDIA_STORAGE_URL", "s3://"},
		{"MEDIA_STORAGE_URL", "s3://bucket?path_style=maybe"},
		{"AUTO_MIGRATE", "sometimes"},
		{"FEEDBACK_RATE_LIMIT", "lots"},
		{"TRUST_PROXY", "perhaps"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(WithEnv())
			assert.Error(t, err)
		})
	}
}

func TestEnvUsage(t *testing.T) {
	usage, err := EnvUsage()
	require.NoError(t, err)
	assert.Contains(t, usage, "DATABASE_URL")
	assert.Contains(t, usage, "MEDIA_STORAGE_URL")
}

func TestBuild_MemoryStack(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg, err := Load(WithJWTSecret(testSecret, 0), WithAdminEmail("admin@example.com"))
	require.NoError(t, err)

	comps, err := cfg.Build(context.Background(), logger)
	require.NoError(t, err)
	defer comps.Close()

	require.NotNil(t, comps.Authorizer)
	assert.Same(t, comps.Authorizer, comps.Guard)

	ctx := context.Background()
	result, err := comps.Service.Publish(ctx, simplepublish.PublishRequest{Title: "Built From Config", Body: "ok"})
	require.NoError(t, err)
	assert.True(t, result.Mirrored)

	fb, err := comps.Feedback.SubmitFeedback(ctx, simplepublish.SubmitFeedbackRequest{
		Name: "Ada", Email: "ada@example.com", Message: "hello",
	})
	require.NoError(t, err)
	assert.True(t, fb.Notified)

	media, err := comps.Media.UploadMedia(ctx, simplepublish.UploadMediaRequest{
		FileName: "a.txt", ContentType: "text/plain", Reader: strings.NewReader("abc"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(media.URL, "/api/v1/media/"))

	router := api.NewRouter(cfg.APIConfig(comps, logger))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/mirror/rebuild", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := comps.Authorizer.IssueToken("ops", "admin")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mirror/rebuild", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBuild_SQLiteAndFilesystem(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(
		WithDatabase("sqlite", filepath.Join(dir, "publish.db")),
		WithMirrorStorage(StorageConfig{Type: "fs", BaseDir: filepath.Join(dir, "mirror")}),
		WithMediaStorage(StorageConfig{Type: "fs", BaseDir: filepath.Join(dir, "media")}),
		WithEventLogging(false),
	)
	require.NoError(t, err)

	comps, err := cfg.Build(context.Background(), nil)
	require.NoError(t, err)
	defer comps.Close()

	_, isOpen := comps.Guard.(api.OpenGuard)
	assert.True(t, isOpen)

	ctx := context.Background()
	_, err = comps.Service.Publish(ctx, simplepublish.PublishRequest{Title: "On Disk", Body: "persisted"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "mirror", "content", "on-disk.md"))

	doc, err := comps.Service.ReadMirror(ctx, "on-disk")
	require.NoError(t, err)
	assert.Equal(t, "persisted", doc.Body)
}

func TestBuild_EventAuditURL(t *testing.T) {
	received := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("Ce-Type")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg, err := Load(WithEventAuditURL(srv.URL), WithEventLogging(false))
	require.NoError(t, err)
	comps, err := cfg.Build(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer comps.Close()

	_, err = comps.Service.Publish(context.Background(), simplepublish.PublishRequest{Title: "Audited", Body: "x"})
	require.NoError(t, err)

	select {
	case typ := <-received:
		assert.Contains(t, typ, "record.published")
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}
