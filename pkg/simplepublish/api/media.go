package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// multipartMemory is how much of a multipart upload is buffered in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// MediaHandler handles uploads and downloads of media objects
type MediaHandler struct {
	media  simplepublish.MediaService
	guard  Guard
	logger *slog.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(media simplepublish.MediaService, guard Guard, logger *slog.Logger) *MediaHandler {
	if guard == nil {
		guard = OpenGuard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaHandler{media: media, guard: guard, logger: logger}
}

// Routes returns the routes for media
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{id}", h.GetMedia)
	r.Get("/{id}/file", h.DownloadMedia)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin())
		r.Get("/", h.ListMedia)
		r.Post("/", h.UploadMedia)
		r.Delete("/{id}", h.DeleteMedia)
	})

	return r
}

// UploadMedia accepts a multipart form with the file in the "file" field
func (h *MediaHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, h.logger, err)
			return
		}
		badRequest(w, r, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "missing file field")
		return
	}
	defer file.Close()

	media, err := h.media.UploadMedia(r.Context(), simplepublish.UploadMediaRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, media)
}

func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mediaID(w, r)
	if !ok {
		return
	}

	media, err := h.media.GetMedia(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, media)
}

func (h *MediaHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := h.media.ListMedia(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []*simplepublish.Media{}
	}
	render.JSON(w, r, items)
}

// DownloadMedia streams the stored bytes. ?download=true asks the browser
// to save instead of display.
func (h *MediaHandler) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mediaID(w, r)
	if !ok {
		return
	}

	reader, media, err := h.media.OpenMedia(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer reader.Close()

	disposition := "inline"
	if download, _ := strconv.ParseBool(r.URL.Query().Get("download")); download {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", media.ContentType)
	if media.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(media.Size, 10))
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": media.FileName}))
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("media download interrupted", "media_id", id, "error", err)
	}
}

func (h *MediaHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mediaID(w, r)
	if !ok {
		return
	}

	if err := h.media.DeleteMedia(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.NoContent(w, r)
}

func (h *MediaHandler) mediaID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		badRequest(w, r, fmt.Sprintf("invalid media ID %q", idStr))
		return uuid.Nil, false
	}
	return id, true
}
