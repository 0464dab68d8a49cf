package convert

import (
	"fmt"
	"regexp"
	"strings"
)

// pass is one substitution in the Markdown to HTML pipeline.
type pass struct {
	name    string
	pattern *regexp.Regexp
	apply   func(re *regexp.Regexp, s string) string
}

func replaceWith(template string) func(*regexp.Regexp, string) string {
	return func(re *regexp.Regexp, s string) string {
		return re.ReplaceAllString(s, template)
	}
}

// markdownPasses is the substitution order. Later passes run over text that
// already contains tags emitted by earlier ones, so the order is part of the
// output contract.
//
// This is not a CommonMark implementation: nested lists and tables are not
// supported, and markup inside code blocks is transformed like any other text.
func markdownPasses() []pass {
	return []pass{
		{"h3", regexp.MustCompile(`(?m)^### (.*)$`), replaceWith("<h3>$1</h3>")},
		{"h2", regexp.MustCompile(`(?m)^## (.*)$`), replaceWith("<h2>$1</h2>")},
		{"h1", regexp.MustCompile(`(?m)^# (.*)$`), replaceWith("<h1>$1</h1>")},
		{"bold", regexp.MustCompile(`\*\*(.+?)\*\*`), replaceWith("<strong>$1</strong>")},
		{"italic", regexp.MustCompile(`\*(.+?)\*`), replaceWith("<em>$1</em>")},
		{"strikethrough", regexp.MustCompile(`~~(.+?)~~`), replaceWith("<del>$1</del>")},
		{"highlight", regexp.MustCompile(`==(.+?)==`), replaceWith("<mark>$1</mark>")},
		{"link", regexp.MustCompile(`!?\[([^\]]+)\]\(([^)\s]+)(?:\s+"([^"]*)")?\)`), replaceLinks},
		{"image", regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)(?:\s+"([^"]*)")?\)`), replaceImages},
		{"fenced_code", regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```"), replaceFencedCode},
		{"inline_code", regexp.MustCompile("`([^`\n]+)`"), replaceWith("<code>$1</code>")},
		{"blockquote", regexp.MustCompile(`(?m)^> (.*)$`), replaceWith("<blockquote>$1</blockquote>")},
		{"unordered_list", regexp.MustCompile(`(?m)(?:^- .*(?:\n|$))+`), wrapList("ul", regexp.MustCompile(`^- `))},
		{"ordered_list", regexp.MustCompile(`(?m)(?:^\d+\. .*(?:\n|$))+`), wrapList("ol", regexp.MustCompile(`^\d+\. `))},
		{"line_break", regexp.MustCompile(`\r?\n`), replaceWith("<br>")},
	}
}

// replaceLinks converts [text](url) but leaves ![alt](url) for the image pass.
func replaceLinks(re *regexp.Regexp, s string) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "!") {
			return match
		}
		sub := re.FindStringSubmatch(match)
		return fmt.Sprintf(`<a href="%s"%s>%s</a>`, sub[2], titleAttr(sub[3]), sub[1])
	})
}

func replaceImages(re *regexp.Regexp, s string) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		sub := re.FindStringSubmatch(match)
		return fmt.Sprintf(`<img src="%s" alt="%s"%s>`, sub[2], sub[1], titleAttr(sub[3]))
	})
}

// titleAttr renders the optional "title" of a link or image.
func titleAttr(title string) string {
	if title == "" {
		return ""
	}
	return fmt.Sprintf(` title="%s"`, title)
}

func replaceFencedCode(re *regexp.Regexp, s string) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		sub := re.FindStringSubmatch(match)
		body := strings.TrimSuffix(sub[2], "\n")
		if sub[1] == "" {
			return "<pre><code>" + body + "</code></pre>"
		}
		return fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, sub[1], body)
	})
}

// wrapList turns a run of consecutive list lines into one list element. The
// trailing newline of the run is kept so the following text stays on its own
// line.
func wrapList(tag string, marker *regexp.Regexp) func(*regexp.Regexp, string) string {
	return func(re *regexp.Regexp, s string) string {
		return re.ReplaceAllStringFunc(s, func(block string) string {
			trailing := ""
			if strings.HasSuffix(block, "\n") {
				trailing = "\n"
			}
			var b strings.Builder
			b.WriteString("<" + tag + ">")
			for _, line := range strings.Split(strings.TrimSuffix(block, "\n"), "\n") {
				b.WriteString("<li>")
				b.WriteString(marker.ReplaceAllString(line, ""))
				b.WriteString("</li>")
			}
			b.WriteString("</" + tag + ">")
			b.WriteString(trailing)
			return b.String()
		})
	}
}

// MarkdownToHTML runs the substitution pipeline. On a panic the original
// Markdown is returned unchanged.
func (c *Converter) MarkdownToHTML(markdown string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = c.fallback(DirectionMarkdownToHTML, fmt.Errorf("panic: %v", r), markdown)
		}
	}()

	out = markdown
	for _, p := range c.passes {
		out = p.apply(p.pattern, out)
	}
	return out
}
