package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// FeedbackHandler serves the public contact form
type FeedbackHandler struct {
	feedback simplepublish.FeedbackService
	guard    Guard
	limiter  *RateLimiter
	logger   *slog.Logger
}

// NewFeedbackHandler creates a new feedback handler. A nil limiter disables
// rate limiting of submissions.
func NewFeedbackHandler(feedback simplepublish.FeedbackService, guard Guard, limiter *RateLimiter, logger *slog.Logger) *FeedbackHandler {
	if guard == nil {
		guard = OpenGuard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackHandler{feedback: feedback, guard: guard, limiter: limiter, logger: logger}
}

// Routes returns the routes for feedback
func (h *FeedbackHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}
		r.Post("/", h.SubmitFeedback)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin())
		r.Get("/", h.ListFeedback)
	})

	return r
}

func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req simplepublish.SubmitFeedbackRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}

	feedback, err := h.feedback.SubmitFeedback(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, feedback)
}

func (h *FeedbackHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.feedback.ListFeedback(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []*simplepublish.Feedback{}
	}
	render.JSON(w, r, items)
}
