package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// CategoryHandler handles HTTP requests for categories
type CategoryHandler struct {
	service simplepublish.Service
	guard   Guard
	logger  *slog.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(service simplepublish.Service, guard Guard, logger *slog.Logger) *CategoryHandler {
	if guard == nil {
		guard = OpenGuard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryHandler{service: service, guard: guard, logger: logger}
}

// Routes returns the routes for categories
func (h *CategoryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListCategories)
	r.Get("/{slug}", h.GetCategory)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin())
		r.Post("/", h.CreateCategory)
		r.Delete("/{slug}", h.DeleteCategory)
	})

	return r
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req simplepublish.CreateCategoryRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, category)
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, category)
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if categories == nil {
		categories = []*simplepublish.Category{}
	}
	render.JSON(w, r, categories)
}

// DeleteCategory refuses categories that records still reference
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.NoContent(w, r)
}
