// Package convert translates article bodies between HTML and Markdown.
//
// The two directions are independent one-way transforms, not a matched pair:
// converting HTML to Markdown and back is only expected to render
// equivalently, never to reproduce the input byte for byte.
//
// Both directions are fail-soft. A conversion that cannot complete logs a
// ConversionError and hands back the input unchanged; callers never see an
// error.
package convert

import (
	"fmt"
	"log/slog"
	"regexp"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
)

// ConversionError describes a conversion that fell back to its input.
type ConversionError struct {
	Direction string
	Err       error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s conversion failed: %v", e.Direction, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

const (
	DirectionHTMLToMarkdown = "html_to_markdown"
	DirectionMarkdownToHTML = "markdown_to_html"
)

// Converter holds the HTML rule table and the optional sanitiser.
// It is safe for concurrent use.
type Converter struct {
	logger    *slog.Logger
	html      *md.Converter
	sanitizer *bluemonday.Policy
	passes    []pass
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used to report fail-soft fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSanitizer replaces the policy applied to HTML before it is converted.
// A nil policy disables sanitising.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(c *Converter) {
		c.sanitizer = policy
	}
}

// New builds a Converter with the strikethrough and highlight rules
// registered on top of the CommonMark defaults.
func New(options ...Option) *Converter {
	c := &Converter{
		logger:    slog.Default(),
		sanitizer: DefaultSanitizer(),
		passes:    markdownPasses(),
	}
	for _, option := range options {
		option(c)
	}

	c.html = md.NewConverter("", true, nil)
	c.html.AddRules(htmlRules()...)

	return c
}

var codeLanguage = regexp.MustCompile(`^language-[\w+#-]+$`)

// DefaultSanitizer is the UGC policy extended with the inline markup the
// highlight rule understands. Code blocks keep their language-* class so the
// fence language survives conversion.
func DefaultSanitizer() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("mark", "del", "s", "strike")
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("span")
	policy.AllowAttrs("class").Matching(codeLanguage).OnElements("code")
	return policy
}

var defaultConverter = New()

// HTMLToMarkdown converts with a package-level Converter using the default logger.
func HTMLToMarkdown(html string) string {
	return defaultConverter.HTMLToMarkdown(html)
}

// MarkdownToHTML converts with a package-level Converter using the default logger.
func MarkdownToHTML(markdown string) string {
	return defaultConverter.MarkdownToHTML(markdown)
}

func (c *Converter) fallback(direction string, err error, input string) string {
	convErr := &ConversionError{Direction: direction, Err: err}
	c.logger.Warn("conversion fell back to input",
		"direction", direction,
		"input_bytes", len(input),
		"error", convErr)
	return input
}
