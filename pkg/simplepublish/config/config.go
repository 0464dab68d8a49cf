package config

import (
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		LogLevel:           "info",
		DatabaseType:       "memory",
		DBSchema:           "publish",
		AutoMigrate:        true,
		Mirror:             StorageConfig{Type: "memory"},
		MirrorPrefix:       "content/",
		Media:              StorageConfig{Type: "memory"},
		URLStrategy:        "app",
		APIBaseURL:         "/api/v1",
		KeyLayout:          "git-like",
		MaxUploadBytes:     10 << 20,
		TokenTTL:           24 * time.Hour,
		EnableEventLogging: true,
		FeedbackRateLimit:  10,
		ShutdownTimeout:    10 * time.Second,
	}
}

// ServerConfig represents server configuration for the publishing service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing
	LogLevel    string // debug, info, warn, error

	// Database configuration
	DatabaseType string // "memory", "postgres", "sqlite"
	DatabaseURL  string // postgres connection string
	DBSchema     string // Postgres schema to use (default: publish)
	SQLitePath   string // database file, or ":memory:"
	AutoMigrate  bool

	// Flat-file mirror of records
	Mirror       StorageConfig
	MirrorPrefix string

	// Media storage and public URLs
	Media          StorageConfig
	URLStrategy    string // "app", "cdn", "storage-delegated"
	CDNBaseURL     string
	APIBaseURL     string
	KeyLayout      string // "git-like", "flat", "dated"
	MaxUploadBytes int64

	// Admin authentication. An empty secret disables auth in development.
	JWTSecret string
	TokenTTL  time.Duration

	// Notifications and events
	AdminEmail         string
	EnableEventLogging bool
	EventAuditURL      string

	// HTTP options
	CORSOrigins       []string
	FeedbackRateLimit int // submissions per minute per client; 0 disables
	ShutdownTimeout   time.Duration

	// TrustProxy takes the client IP from X-Forwarded-For/X-Real-IP. Only
	// set it behind a proxy that overwrites those headers.
	TrustProxy bool
}

// StorageConfig selects and configures one blob store.
type StorageConfig struct {
	Type string // "memory", "fs", "s3"

	// Filesystem
	BaseDir   string
	URLPrefix string

	// S3 and S3-compatible services
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PresignDuration int
	PublicBaseURL   string
	SSEAlgorithm    string
	SSEKMSKeyID     string
	CreateBucket    bool
}

// Validate validates a storage configuration
func (s StorageConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Type, validation.Required, validation.In("memory", "fs", "s3")),
		validation.Field(&s.BaseDir, validation.When(s.Type == "fs", validation.Required)),
		validation.Field(&s.Bucket, validation.When(s.Type == "s3", validation.Required)),
		validation.Field(&s.Endpoint, is.URL),
		validation.Field(&s.PublicBaseURL, is.URL),
		validation.Field(&s.SSEAlgorithm, validation.In("AES256", "aws:kms")),
		validation.Field(&s.PresignDuration, validation.Min(0)),
	)
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.Environment, validation.Required, validation.In("development", "production", "testing")),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.DatabaseType, validation.Required, validation.In("memory", "postgres", "sqlite")),
		validation.Field(&c.DatabaseURL, validation.When(c.DatabaseType == "postgres", validation.Required)),
		validation.Field(&c.SQLitePath, validation.When(c.DatabaseType == "sqlite", validation.Required)),
		validation.Field(&c.Mirror),
		validation.Field(&c.Media),
		validation.Field(&c.URLStrategy, validation.In("app", "cdn", "storage-delegated")),
		validation.Field(&c.CDNBaseURL, validation.When(c.URLStrategy == "cdn", validation.Required), is.URL),
		validation.Field(&c.KeyLayout, validation.In("git-like", "flat", "dated")),
		validation.Field(&c.MaxUploadBytes, validation.Min(int64(1))),
		validation.Field(&c.JWTSecret,
			validation.When(c.Environment != "development", validation.Required.Error("is required outside development")),
			validation.Length(16, 0)),
		validation.Field(&c.AdminEmail, is.EmailFormat),
		validation.Field(&c.EventAuditURL, is.URL),
		validation.Field(&c.FeedbackRateLimit, validation.Min(0)),
	)
}

// SlogLevel returns the configured log level, defaulting to info.
func (c *ServerConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// AuthEnabled reports whether admin routes require a token.
func (c *ServerConfig) AuthEnabled() bool {
	return c.JWTSecret != ""
}
