// Package render turns stored Markdown into display output: a styled node
// tree for clients that lay out content themselves, and sanitised HTML.
//
// Input is trusted to already be Markdown. Nothing here converts formats;
// goldmark owns the syntax and this package only decides presentation.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultImageAlt is used for images whose Markdown supplies no alt text.
const DefaultImageAlt = "image"

// Style is the presentation attached to a node type.
type Style struct {
	Tag   string `json:"tag"`
	Class string `json:"class,omitempty"`
}

// Node is one element of the display tree.
type Node struct {
	Type     string            `json:"type"`
	Style    Style             `json:"style"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// Node types emitted by Tree.
const (
	TypeDocument      = "document"
	TypeHeading       = "heading"
	TypeParagraph     = "paragraph"
	TypeText          = "text"
	TypeEmphasis      = "emphasis"
	TypeStrong        = "strong"
	TypeStrikethrough = "strikethrough"
	TypeLink          = "link"
	TypeImage         = "image"
	TypeBlockquote    = "blockquote"
	TypeList          = "list"
	TypeOrderedList   = "ordered_list"
	TypeListItem      = "list_item"
	TypeCode          = "code"
	TypeCodeBlock     = "code_block"
	TypeThematicBreak = "thematic_break"
	TypeLineBreak     = "line_break"
	TypeTable         = "table"
	TypeTableRow      = "table_row"
	TypeTableCell     = "table_cell"
	TypeHTML          = "html"
)

// DefaultStyles maps node types to their presentation.
var DefaultStyles = map[string]Style{
	TypeDocument:      {Tag: "article", Class: "prose"},
	TypeParagraph:     {Tag: "p", Class: "leading-relaxed mb-4"},
	TypeText:          {Tag: ""},
	TypeEmphasis:      {Tag: "em", Class: "italic"},
	TypeStrong:        {Tag: "strong", Class: "font-semibold"},
	TypeStrikethrough: {Tag: "del", Class: "line-through"},
	TypeLink:          {Tag: "a", Class: "text-blue-600 underline"},
	TypeImage:         {Tag: "img", Class: "rounded-lg my-4 max-w-full"},
	TypeBlockquote:    {Tag: "blockquote", Class: "border-l-4 pl-4 italic"},
	TypeList:          {Tag: "ul", Class: "list-disc pl-6 mb-4"},
	TypeOrderedList:   {Tag: "ol", Class: "list-decimal pl-6 mb-4"},
	TypeListItem:      {Tag: "li", Class: "mb-1"},
	TypeCode:          {Tag: "code", Class: "font-mono text-sm"},
	TypeCodeBlock:     {Tag: "pre", Class: "font-mono text-sm p-4 overflow-x-auto"},
	TypeThematicBreak: {Tag: "hr", Class: "my-8"},
	TypeLineBreak:     {Tag: "br"},
	TypeTable:         {Tag: "table", Class: "table-auto"},
	TypeTableRow:      {Tag: "tr"},
	TypeTableCell:     {Tag: "td", Class: "border px-2 py-1"},
	TypeHTML:          {Tag: ""},
}

var headingStyles = map[int]Style{
	1: {Tag: "h1", Class: "text-3xl font-bold mb-4"},
	2: {Tag: "h2", Class: "text-2xl font-bold mb-3"},
	3: {Tag: "h3", Class: "text-xl font-semibold mb-2"},
	4: {Tag: "h4", Class: "text-lg font-semibold mb-2"},
	5: {Tag: "h5", Class: "font-semibold mb-1"},
	6: {Tag: "h6", Class: "font-semibold mb-1"},
}

// Renderer parses Markdown with goldmark and maps the AST onto Nodes.
type Renderer struct {
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	styles   map[string]Style
	imageAlt string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyles overrides entries of DefaultStyles.
func WithStyles(styles map[string]Style) Option {
	return func(r *Renderer) {
		for k, v := range styles {
			r.styles[k] = v
		}
	}
}

// WithImageAlt changes the alt text given to images that have none.
func WithImageAlt(alt string) Option {
	return func(r *Renderer) {
		r.imageAlt = alt
	}
}

// WithPolicy replaces the sanitising policy used by HTML.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(r *Renderer) {
		r.policy = policy
	}
}

// New creates a Renderer with GFM enabled.
func New(options ...Option) *Renderer {
	r := &Renderer{
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   bluemonday.UGCPolicy(),
		styles:   make(map[string]Style, len(DefaultStyles)),
		imageAlt: DefaultImageAlt,
	}
	for k, v := range DefaultStyles {
		r.styles[k] = v
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Tree returns the styled display tree for markdown.
func (r *Renderer) Tree(markdown string) (*Node, error) {
	source := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(source))
	if doc == nil {
		return nil, fmt.Errorf("markdown parser returned no document")
	}
	return r.convert(doc, source), nil
}

// HTML renders markdown to HTML and sanitises the result for display.
// Images without alt text get the default alt.
func (r *Renderer) HTML(markdown string) (string, error) {
	source := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(source))
	r.fillImageAlt(doc, source)

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	if r.policy == nil {
		return buf.String(), nil
	}
	return r.policy.Sanitize(buf.String()), nil
}

func (r *Renderer) fillImageAlt(doc ast.Node, source []byte) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok && strings.TrimSpace(plainText(img, source)) == "" {
			for c := img.FirstChild(); c != nil; {
				next := c.NextSibling()
				img.RemoveChild(img, c)
				c = next
			}
			img.AppendChild(img, ast.NewString([]byte(r.imageAlt)))
		}
		return ast.WalkContinue, nil
	})
}

func (r *Renderer) node(typ string) *Node {
	return &Node{Type: typ, Style: r.styles[typ]}
}

func (r *Renderer) convert(n ast.Node, source []byte) *Node {
	var out *Node

	switch v := n.(type) {
	case *ast.Document:
		out = r.node(TypeDocument)
	case *ast.Heading:
		out = r.node(TypeHeading)
		out.Style = headingStyles[v.Level]
		out.Attrs = map[string]string{"level": fmt.Sprint(v.Level)}
	case *ast.Paragraph, *ast.TextBlock:
		out = r.node(TypeParagraph)
	case *ast.Text:
		out = r.node(TypeText)
		out.Text = string(v.Segment.Value(source))
		if v.HardLineBreak() || v.SoftLineBreak() {
			out.Children = append(out.Children, r.node(TypeLineBreak))
		}
		return out
	case *ast.String:
		out = r.node(TypeText)
		out.Text = string(v.Value)
		return out
	case *ast.Emphasis:
		if v.Level >= 2 {
			out = r.node(TypeStrong)
		} else {
			out = r.node(TypeEmphasis)
		}
	case *extast.Strikethrough:
		out = r.node(TypeStrikethrough)
	case *ast.Link:
		out = r.node(TypeLink)
		out.Attrs = map[string]string{"href": string(v.Destination)}
		if len(v.Title) > 0 {
			out.Attrs["title"] = string(v.Title)
		}
	case *ast.AutoLink:
		out = r.node(TypeLink)
		url := string(v.URL(source))
		out.Attrs = map[string]string{"href": url}
		out.Text = url
		return out
	case *ast.Image:
		out = r.node(TypeImage)
		alt := strings.TrimSpace(plainText(v, source))
		if alt == "" {
			alt = r.imageAlt
		}
		out.Attrs = map[string]string{"src": string(v.Destination), "alt": alt}
		if len(v.Title) > 0 {
			out.Attrs["title"] = string(v.Title)
		}
		return out
	case *ast.Blockquote:
		out = r.node(TypeBlockquote)
	case *ast.List:
		if v.IsOrdered() {
			out = r.node(TypeOrderedList)
			out.Attrs = map[string]string{"start": fmt.Sprint(v.Start)}
		} else {
			out = r.node(TypeList)
		}
	case *ast.ListItem:
		out = r.node(TypeListItem)
	case *ast.CodeSpan:
		out = r.node(TypeCode)
		out.Text = plainText(v, source)
		return out
	case *ast.FencedCodeBlock:
		out = r.node(TypeCodeBlock)
		out.Text = lines(v, source)
		if lang := v.Language(source); len(lang) > 0 {
			out.Attrs = map[string]string{"language": string(lang)}
		}
		return out
	case *ast.CodeBlock:
		out = r.node(TypeCodeBlock)
		out.Text = lines(v, source)
		return out
	case *ast.ThematicBreak:
		return r.node(TypeThematicBreak)
	case *extast.Table:
		out = r.node(TypeTable)
	case *extast.TableHeader, *extast.TableRow:
		out = r.node(TypeTableRow)
	case *extast.TableCell:
		out = r.node(TypeTableCell)
	case *ast.HTMLBlock:
		out = r.node(TypeHTML)
		out.Text = lines(v, source)
		return out
	case *ast.RawHTML:
		out = r.node(TypeHTML)
		var b strings.Builder
		for i := 0; i < v.Segments.Len(); i++ {
			seg := v.Segments.At(i)
			b.Write(seg.Value(source))
		}
		out.Text = b.String()
		return out
	default:
		out = &Node{Type: strings.ToLower(n.Kind().String())}
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out.Children = append(out.Children, r.convert(c, source))
	}
	return out
}

// plainText concatenates the text content below n.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func lines(n ast.Node, source []byte) string {
	var b strings.Builder
	l := n.Lines()
	for i := 0; i < l.Len(); i++ {
		seg := l.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
