package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend. For sqlite, url is the
// database path.
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case "memory":
			c.DatabaseURL, c.SQLitePath = "", ""
		case "postgres":
			if url == "" {
				return fmt.Errorf("database URL is required for postgres")
			}
			c.DatabaseURL = url
		case "sqlite":
			if url == "" {
				return fmt.Errorf("database path is required for sqlite")
			}
			c.SQLitePath = url
		default:
			return fmt.Errorf("database type must be 'memory', 'postgres' or 'sqlite', got: %s", dbType)
		}
		c.DatabaseType = dbType
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithMirrorStorage sets where mirror documents are written
func WithMirrorStorage(sc StorageConfig) Option {
	return func(c *ServerConfig) error {
		c.Mirror = sc
		return nil
	}
}

// WithMediaStorage sets where uploaded media is stored
func WithMediaStorage(sc StorageConfig) Option {
	return func(c *ServerConfig) error {
		c.Media = sc
		return nil
	}
}

// WithURLStrategy selects how public media URLs are built
func WithURLStrategy(strategy, baseURL string) Option {
	return func(c *ServerConfig) error {
		switch strategy {
		case "cdn":
			if baseURL == "" {
				return fmt.Errorf("CDN base URL is required for the cdn strategy")
			}
			c.CDNBaseURL = baseURL
		case "app":
			if baseURL != "" {
				c.APIBaseURL = baseURL
			}
		case "storage-delegated":
		default:
			return fmt.Errorf("unknown URL strategy: %s", strategy)
		}
		c.URLStrategy = strategy
		return nil
	}
}

// WithKeyLayout selects the media object key layout
func WithKeyLayout(layout string) Option {
	return func(c *ServerConfig) error {
		c.KeyLayout = layout
		return nil
	}
}

// WithMaxUploadBytes caps media upload size
func WithMaxUploadBytes(n int64) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("max upload bytes must be positive, got: %d", n)
		}
		c.MaxUploadBytes = n
		return nil
	}
}

// WithJWTSecret enables admin authentication
func WithJWTSecret(secret string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		if ttl > 0 {
			c.TokenTTL = ttl
		}
		return nil
	}
}

// WithAdminEmail sets the feedback notification address
func WithAdminEmail(addr string) Option {
	return func(c *ServerConfig) error {
		c.AdminEmail = addr
		return nil
	}
}

// WithEventAuditURL forwards domain events as CloudEvents to url
func WithEventAuditURL(url string) Option {
	return func(c *ServerConfig) error {
		c.EventAuditURL = url
		return nil
	}
}

// WithEventLogging enables or disables logging of domain events
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithCORSOrigins sets the allowed browser origins
func WithCORSOrigins(origins ...string) Option {
	return func(c *ServerConfig) error {
		c.CORSOrigins = origins
		return nil
	}
}

// WithTrustProxy takes client IPs from forwarded headers
func WithTrustProxy(trust bool) Option {
	return func(c *ServerConfig) error {
		c.TrustProxy = trust
		return nil
	}
}

// WithFeedbackRateLimit sets submissions per minute per client; 0 disables
func WithFeedbackRateLimit(perMinute int) Option {
	return func(c *ServerConfig) error {
		c.FeedbackRateLimit = perMinute
		return nil
	}
}
