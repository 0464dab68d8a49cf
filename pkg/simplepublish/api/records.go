package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	bodyrender "github.com/tendant/simple-publish/pkg/simplepublish/render"
)

// BodyRenderer turns a stored Markdown body into display forms.
type BodyRenderer interface {
	HTML(markdown string) (string, error)
	Tree(markdown string) (*bodyrender.Node, error)
}

// MirrorStatus reports the flat-file half of a record write.
type MirrorStatus struct {
	Written bool   `json:"written"`
	Error   string `json:"error,omitempty"`
}

// WriteResponse is returned by record writes. The record is authoritative
// even when Mirror.Written is false.
type WriteResponse struct {
	Record *simplepublish.Record `json:"record,omitempty"`
	Mirror MirrorStatus          `json:"mirror"`
}

// RenderedResponse carries a record body rendered to HTML
type RenderedResponse struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// TreeResponse carries the styled node tree of a record body
type TreeResponse struct {
	Slug string           `json:"slug"`
	Tree *bodyrender.Node `json:"tree"`
}

func newWriteResponse(result *simplepublish.Result) WriteResponse {
	resp := WriteResponse{Record: result.Record, Mirror: MirrorStatus{Written: result.Mirrored}}
	if result.MirrorErr != nil {
		resp.Mirror.Error = result.MirrorErr.Error()
	}
	return resp
}

// RecordHandler serves posts and tutorials.
type RecordHandler struct {
	service  simplepublish.Service
	renderer BodyRenderer
	guard    Guard
	logger   *slog.Logger
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(service simplepublish.Service, renderer BodyRenderer, guard Guard, logger *slog.Logger) *RecordHandler {
	if renderer == nil {
		renderer = bodyrender.New()
	}
	if guard == nil {
		guard = OpenGuard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordHandler{service: service, renderer: renderer, guard: guard, logger: logger}
}

// Routes returns the routes for records
func (h *RecordHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListRecords)
	r.Get("/{slug}", h.GetRecord)
	r.Get("/{slug}/html", h.GetRecordHTML)
	r.Get("/{slug}/tree", h.GetRecordTree)
	r.Get("/{slug}/mirror", h.GetRecordMirror)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin())
		r.Post("/", h.Publish)
		r.Put("/{slug}", h.UpdateRecord)
		r.Delete("/{slug}", h.DeleteRecord)
		r.Post("/{slug}/mirror", h.SyncMirror)
	})

	return r
}

// Publish creates a record from a JSON PublishRequest
func (h *RecordHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req simplepublish.PublishRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}

	result, err := h.service.Publish(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newWriteResponse(result))
}

// GetRecord returns a record by slug
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetRecord(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, record)
}

// GetRecordHTML renders the record body as sanitised HTML
func (h *RecordHandler) GetRecordHTML(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetRecord(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	html, err := h.renderer.HTML(record.Body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, RenderedResponse{Slug: record.Slug, Title: record.Title, HTML: html})
}

// GetRecordTree returns the record body as a styled node tree
func (h *RecordHandler) GetRecordTree(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetRecord(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tree, err := h.renderer.Tree(record.Body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, TreeResponse{Slug: record.Slug, Tree: tree})
}

// GetRecordMirror returns the parsed flat-file copy of a record
func (h *RecordHandler) GetRecordMirror(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ReadMirror(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, doc)
}

// UpdateRecord applies a partial update. Absent fields are left unchanged.
func (h *RecordHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req simplepublish.UpdateRecordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	req.Slug = chi.URLParam(r, "slug")

	result, err := h.service.UpdateRecord(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, newWriteResponse(result))
}

// DeleteRecord removes a record and its mirror document
func (h *RecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.DeleteRecord(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, newWriteResponse(result))
}

// SyncMirror rewrites the mirror document of one record
func (h *RecordHandler) SyncMirror(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncMirror(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, newWriteResponse(result))
}

// ListRecords lists records newest first. Query parameters: kind, tag,
// category, limit, offset.
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := simplepublish.ListRecordsRequest{
		Kind:         simplepublish.RecordKind(q.Get("kind")),
		Tag:          q.Get("tag"),
		CategorySlug: q.Get("category"),
	}

	var err error
	if req.Limit, err = intParam(q.Get("limit")); err != nil {
		badRequest(w, r, "limit must be an integer")
		return
	}
	if req.Offset, err = intParam(q.Get("offset")); err != nil {
		badRequest(w, r, "offset must be an integer")
		return
	}

	records, err := h.service.ListRecords(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if records == nil {
		records = []*simplepublish.Record{}
	}
	render.JSON(w, r, records)
}

// MirrorHandler exposes whole-mirror maintenance.
type MirrorHandler struct {
	service simplepublish.Service
	guard   Guard
	logger  *slog.Logger
}

// NewMirrorHandler creates a new mirror handler
func NewMirrorHandler(service simplepublish.Service, guard Guard, logger *slog.Logger) *MirrorHandler {
	if guard == nil {
		guard = OpenGuard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorHandler{service: service, guard: guard, logger: logger}
}

// Routes returns the routes for mirror maintenance
func (h *MirrorHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.guard.RequireAdmin())
	r.Post("/rebuild", h.Rebuild)
	return r
}

// Rebuild rewrites every mirror document from the structured store
func (h *MirrorHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RebuildMirrors(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, report)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
