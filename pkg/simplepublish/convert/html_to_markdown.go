package convert

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var errInvalidUTF8 = errors.New("input is not valid UTF-8")

// htmlRules returns the extra element rules in priority order. The
// converter tries the most recently added rule for a tag first, and a nil
// replacement falls through to the default rule for that tag.
func htmlRules() []md.Rule {
	return []md.Rule{
		{
			Filter: []string{"del", "s", "strike"},
			Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
				return wrapInline(content, "~~")
			},
		},
		{
			Filter: []string{"mark"},
			Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
				return wrapInline(content, "==")
			},
		},
		{
			Filter: []string{"span"},
			Replacement: func(content string, selec *goquery.Selection, _ *md.Options) *string {
				if !selec.HasClass("highlight") {
					return nil
				}
				return wrapInline(content, "==")
			},
		},
	}
}

// wrapInline keeps surrounding whitespace outside the delimiters so the
// result still parses as inline markup.
func wrapInline(content, delim string) *string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return md.String(content)
	}
	lead := content[:strings.Index(content, trimmed)]
	trail := content[len(lead)+len(trimmed):]
	return md.String(lead + delim + trimmed + delim + trail)
}

// HTMLToMarkdown converts an HTML fragment to Markdown. On any failure the
// original HTML is returned unchanged.
func (c *Converter) HTMLToMarkdown(html string) (out string) {
	if strings.TrimSpace(html) == "" {
		return html
	}
	if !utf8.ValidString(html) {
		return c.fallback(DirectionHTMLToMarkdown, errInvalidUTF8, html)
	}

	defer func() {
		if r := recover(); r != nil {
			out = c.fallback(DirectionHTMLToMarkdown, fmt.Errorf("panic: %v", r), html)
		}
	}()

	input := html
	if c.sanitizer != nil {
		input = c.sanitizer.Sanitize(html)
	}

	markdown, err := c.html.ConvertString(input)
	if err != nil {
		return c.fallback(DirectionHTMLToMarkdown, err, html)
	}
	return markdown
}
