package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/convert"
)

// Prefix is where the API is mounted.
const Prefix = "/api/v1"

// Config wires services into the router. Media and Feedback are optional;
// their routes are only mounted when set.
type Config struct {
	Service   simplepublish.Service
	Media     simplepublish.MediaService
	Feedback  simplepublish.FeedbackService
	Renderer  BodyRenderer
	Converter BodyConverter
	Guard     Guard
	Logger    *slog.Logger

	// FeedbackLimiter rate limits POST /feedback when set
	FeedbackLimiter *RateLimiter

	// MaxBodyBytes caps request bodies; zero means no cap
	MaxBodyBytes int64
}

// NewRouter builds the HTTP handler tree: /health plus every API route
// under Prefix.
func NewRouter(cfg Config) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	converter := cfg.Converter
	if converter == nil {
		converter = convert.New(convert.WithLogger(logger))
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(RecoveryMiddleware(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Route(Prefix, func(r chi.Router) {
		if cfg.MaxBodyBytes > 0 {
			r.Use(RequestSizeLimitMiddleware(cfg.MaxBodyBytes))
		}

		r.Mount("/records", NewRecordHandler(cfg.Service, cfg.Renderer, cfg.Guard, logger).Routes())
		r.Mount("/mirror", NewMirrorHandler(cfg.Service, cfg.Guard, logger).Routes())
		r.Mount("/categories", NewCategoryHandler(cfg.Service, cfg.Guard, logger).Routes())
		r.Mount("/convert", NewConvertHandler(converter).Routes())

		if cfg.Media != nil {
			r.Mount("/media", NewMediaHandler(cfg.Media, cfg.Guard, logger).Routes())
		}
		if cfg.Feedback != nil {
			r.Mount("/feedback", NewFeedbackHandler(cfg.Feedback, cfg.Guard, cfg.FeedbackLimiter, logger).Routes())
		}
	})

	return r
}
