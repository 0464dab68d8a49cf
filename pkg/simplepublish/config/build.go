package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/api"
	"github.com/tendant/simple-publish/pkg/simplepublish/auth"
	"github.com/tendant/simple-publish/pkg/simplepublish/convert"
	"github.com/tendant/simple-publish/pkg/simplepublish/events"
	"github.com/tendant/simple-publish/pkg/simplepublish/mail"
	"github.com/tendant/simple-publish/pkg/simplepublish/mirror"
	"github.com/tendant/simple-publish/pkg/simplepublish/objectkey"
	"github.com/tendant/simple-publish/pkg/simplepublish/render"
	"github.com/tendant/simple-publish/pkg/simplepublish/repo/memory"
	repopg "github.com/tendant/simple-publish/pkg/simplepublish/repo/postgres"
	reposqlite "github.com/tendant/simple-publish/pkg/simplepublish/repo/sqlite"
	fsstorage "github.com/tendant/simple-publish/pkg/simplepublish/storage/fs"
	memorystorage "github.com/tendant/simple-publish/pkg/simplepublish/storage/memory"
	s3storage "github.com/tendant/simple-publish/pkg/simplepublish/storage/s3"
	"github.com/tendant/simple-publish/pkg/simplepublish/urlstrategy"
)

// Components is everything Build wires together. Close releases the
// database connections.
type Components struct {
	Service   simplepublish.Service
	Media     simplepublish.MediaService
	Feedback  simplepublish.FeedbackService
	Converter *convert.Converter
	Renderer  *render.Renderer

	// Authorizer is nil when auth is disabled
	Authorizer *auth.Authorizer
	Guard      api.Guard

	closers []func()
}

// Close releases resources held by the components
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build creates the services described by the configuration.
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	comps := &Components{}

	repo, err := c.buildRepository(ctx, comps)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	mirrorBlobs, err := buildStore(c.Mirror)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build mirror storage: %w", err)
	}
	mirrorStore, err := mirror.New(mirrorBlobs, mirror.WithPrefix(c.MirrorPrefix))
	if err != nil {
		comps.Close()
		return nil, err
	}

	mediaBlobs, err := buildStore(c.Media)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build media storage: %w", err)
	}
	strategy, err := urlstrategy.NewURLStrategy(urlstrategy.Config{
		Type:       urlstrategy.URLStrategyType(c.URLStrategy),
		CDNBaseURL: c.CDNBaseURL,
		APIBaseURL: c.APIBaseURL,
		BlobStores: map[string]urlstrategy.BlobStore{c.Media.Type: mediaBlobs},
	})
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build URL strategy: %w", err)
	}

	sink, err := c.buildEventSink(logger)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build event sink: %w", err)
	}

	comps.Converter = convert.New(convert.WithLogger(logger))
	comps.Renderer = render.New()

	options := []simplepublish.Option{
		simplepublish.WithRepository(repo),
		simplepublish.WithMirror(mirrorStore),
		simplepublish.WithLogger(logger),
		simplepublish.WithEventSink(sink),
		simplepublish.WithConverter(comps.Converter),
		simplepublish.WithBlobStore(c.Media.Type, mediaBlobs),
		simplepublish.WithMediaBackend(c.Media.Type),
		simplepublish.WithKeyGenerator(objectkey.NewGenerator(c.KeyLayout)),
		simplepublish.WithURLStrategy(strategy),
		simplepublish.WithMaxUploadBytes(c.MaxUploadBytes),
		simplepublish.WithMailer(mail.NewLogMailer(logger)),
		simplepublish.WithAdminEmail(c.AdminEmail),
	}

	if comps.Service, err = simplepublish.New(options...); err != nil {
		comps.Close()
		return nil, err
	}
	if comps.Media, err = simplepublish.NewMediaService(options...); err != nil {
		comps.Close()
		return nil, err
	}
	if comps.Feedback, err = simplepublish.NewFeedbackService(options...); err != nil {
		comps.Close()
		return nil, err
	}

	if c.AuthEnabled() {
		comps.Authorizer, err = auth.New(c.JWTSecret, auth.WithTokenTTL(c.TokenTTL))
		if err != nil {
			comps.Close()
			return nil, err
		}
		comps.Guard = comps.Authorizer
	} else {
		logger.Warn("admin routes are unauthenticated; set JWT_SECRET to enable auth", "environment", c.Environment)
		comps.Guard = api.OpenGuard{}
	}

	return comps, nil
}

// APIConfig returns the router configuration for the built components.
func (c *ServerConfig) APIConfig(comps *Components, logger *slog.Logger) api.Config {
	cfg := api.Config{
		Service:   comps.Service,
		Media:     comps.Media,
		Feedback:  comps.Feedback,
		Renderer:  comps.Renderer,
		Converter: comps.Converter,
		Guard:     comps.Guard,
		Logger:    logger,
		// multipart framing needs some room on top of the file itself
		MaxBodyBytes: c.MaxUploadBytes + 1<<20,
	}
	if c.FeedbackRateLimit > 0 {
		cfg.FeedbackLimiter = api.NewRateLimiter(c.FeedbackRateLimit)
	}
	return cfg
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, comps *Components) (simplepublish.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil

	case "postgres":
		pool, err := c.connectPostgres(ctx)
		if err != nil {
			return nil, err
		}
		comps.closers = append(comps.closers, pool.Close)
		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				return nil, err
			}
		}
		return repopg.NewWithPool(pool), nil

	case "sqlite":
		db, err := reposqlite.Open(c.SQLitePath)
		if err != nil {
			return nil, err
		}
		comps.closers = append(comps.closers, func() { _ = db.Close() })
		return reposqlite.New(db), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// connectPostgres opens a pool whose sessions use DBSchema. With AutoMigrate
// the schema is created first.
func (c *ServerConfig) connectPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}

	schema := c.DBSchema
	if schema != "" {
		ident := pgx.Identifier{schema}.Sanitize()
		autoMigrate := c.AutoMigrate
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if autoMigrate {
				if _, err := conn.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident); err != nil {
					return err
				}
			}
			_, err := conn.Exec(ctx, "SET search_path TO "+ident)
			return err
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// buildStore creates a BlobStore based on the storage configuration
func buildStore(sc StorageConfig) (simplepublish.BlobStore, error) {
	switch sc.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   sc.BaseDir,
			URLPrefix: sc.URLPrefix,
		})

	case "s3":
		region := sc.Region
		if region == "" {
			region = "us-east-1"
		}
		return s3storage.New(s3storage.Config{
			Region:                 region,
			Bucket:                 sc.Bucket,
			AccessKeyID:            sc.AccessKeyID,
			SecretAccessKey:        sc.SecretAccessKey,
			Endpoint:               sc.Endpoint,
			UsePathStyle:           sc.UsePathStyle,
			PresignDuration:        sc.PresignDuration,
			PublicBaseURL:          sc.PublicBaseURL,
			EnableSSE:              sc.SSEAlgorithm != "",
			SSEAlgorithm:           sc.SSEAlgorithm,
			SSEKMSKeyID:            sc.SSEKMSKeyID,
			CreateBucketIfNotExist: sc.CreateBucket,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", sc.Type)
	}
}

// buildEventSink fans events out to the log and the audit endpoint.
func (c *ServerConfig) buildEventSink(logger *slog.Logger) (simplepublish.EventSink, error) {
	var sinks events.Multi
	if c.EnableEventLogging {
		sinks = append(sinks, events.NewLogSink(logger))
	}
	if c.EventAuditURL != "" {
		ce, err := events.NewCloudEventSink(c.EventAuditURL)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ce)
	}
	if len(sinks) == 0 {
		return simplepublish.NewNoopEventSink(), nil
	}
	return sinks, nil
}
