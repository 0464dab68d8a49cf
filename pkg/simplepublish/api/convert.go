package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// BodyConverter converts between the ingest and canonical formats.
// *convert.Converter satisfies it.
type BodyConverter interface {
	HTMLToMarkdown(html string) string
	MarkdownToHTML(markdown string) string
}

type htmlPayload struct {
	HTML string `json:"html"`
}

type markdownPayload struct {
	Markdown string `json:"markdown"`
}

// ConvertHandler exposes the body converters for editors
type ConvertHandler struct {
	converter BodyConverter
}

func NewConvertHandler(converter BodyConverter) *ConvertHandler {
	return &ConvertHandler{converter: converter}
}

// Routes returns the routes for conversion
func (h *ConvertHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/html-to-markdown", h.HTMLToMarkdown)
	r.Post("/markdown-to-html", h.MarkdownToHTML)
	return r
}

func (h *ConvertHandler) HTMLToMarkdown(w http.ResponseWriter, r *http.Request) {
	var in htmlPayload
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	render.JSON(w, r, markdownPayload{Markdown: h.converter.HTMLToMarkdown(in.HTML)})
}

func (h *ConvertHandler) MarkdownToHTML(w http.ResponseWriter, r *http.Request) {
	var in markdownPayload
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	render.JSON(w, r, htmlPayload{HTML: h.converter.MarkdownToHTML(in.Markdown)})
}
