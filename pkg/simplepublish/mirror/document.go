package mirror

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

const delimiter = "---"

type frontMatter struct {
	Slug        string    `yaml:"slug"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Kind        string    `yaml:"kind"`
	Category    string    `yaml:"category,omitempty"`
	Tags        []string  `yaml:"tags,omitempty,flow"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

// Render produces the flat-file form of doc: a YAML front-matter block
// followed by the Markdown body.
func Render(doc *simplepublish.MirrorDocument) ([]byte, error) {
	meta := frontMatter{
		Slug:        doc.Slug,
		Title:       doc.Title,
		Description: doc.Description,
		Kind:        string(doc.Kind),
		Category:    doc.Category,
		Tags:        doc.Tags,
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}

	head, err := yaml.Marshal(&meta)
	if err != nil {
		return nil, fmt.Errorf("render front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(head)
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(doc.Body)
	if !strings.HasSuffix(doc.Body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Parse reads a document produced by Render. Leading blank lines and the
// final newline of the body are not significant.
func Parse(source []byte) (*simplepublish.MirrorDocument, error) {
	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}

	text := strings.TrimLeft(string(body), "\r\n")
	text = strings.TrimSuffix(text, "\n")

	return &simplepublish.MirrorDocument{
		Slug:        meta.Slug,
		Title:       meta.Title,
		Description: meta.Description,
		Kind:        simplepublish.RecordKind(meta.Kind),
		Category:    meta.Category,
		Tags:        meta.Tags,
		CreatedAt:   meta.CreatedAt.UTC(),
		UpdatedAt:   meta.UpdatedAt.UTC(),
		Body:        text,
	}, nil
}
