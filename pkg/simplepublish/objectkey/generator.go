package objectkey

import (
	"crypto/sha256"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for media key generation strategies
type Generator interface {
	// GenerateKey creates an object key for storage backends
	GenerateKey(mediaID uuid.UUID, metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	FileName    string
	ContentType string
	UploadedAt  time.Time
}

// FlatGenerator keeps every upload under one prefix:
// media/{id}/{filename}
type FlatGenerator struct {
	Prefix string
}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{Prefix: "media"}
}

func (g *FlatGenerator) GenerateKey(mediaID uuid.UUID, metadata *KeyMetadata) string {
	if metadata != nil && metadata.FileName != "" {
		return fmt.Sprintf("%s/%s/%s", g.Prefix, mediaID, sanitizeFilename(metadata.FileName))
	}
	return fmt.Sprintf("%s/%s", g.Prefix, mediaID)
}

// GitLikeGenerator provides Git-style sharded storage:
// media/objects/ab/cd1234ef5678_filename
type GitLikeGenerator struct {
	Prefix string
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewGitLikeGenerator() *GitLikeGenerator {
	return &GitLikeGenerator{
		Prefix:      "media",
		ShardLength: 2,
	}
}

func (g *GitLikeGenerator) GenerateKey(mediaID uuid.UUID, metadata *KeyMetadata) string {
	idStr := strings.ReplaceAll(mediaID.String(), "-", "")

	shardLength := g.ShardLength
	if shardLength <= 0 || shardLength > len(idStr) {
		shardLength = 2
	}

	shardDir := idStr[:shardLength]
	filename := idStr[shardLength:]
	if metadata != nil && metadata.FileName != "" {
		filename = fmt.Sprintf("%s_%s", filename, sanitizeFilename(metadata.FileName))
	}

	return fmt.Sprintf("%s/objects/%s/%s", g.Prefix, shardDir, filename)
}

// DatedGenerator groups uploads by month, the layout blog media folders
// usually have: media/2026/01/3f2a9c1e_photo.png
type DatedGenerator struct {
	Prefix string
	Now    func() time.Time
}

func NewDatedGenerator() *DatedGenerator {
	return &DatedGenerator{Prefix: "media", Now: time.Now}
}

func (g *DatedGenerator) GenerateKey(mediaID uuid.UUID, metadata *KeyMetadata) string {
	at := g.Now().UTC()
	if metadata != nil && !metadata.UploadedAt.IsZero() {
		at = metadata.UploadedAt.UTC()
	}

	hash := sha256.Sum256([]byte(mediaID.String()))
	name := fmt.Sprintf("%x", hash[:4])
	if metadata != nil && metadata.FileName != "" {
		name = fmt.Sprintf("%s_%s", name, sanitizeFilename(metadata.FileName))
	}

	return fmt.Sprintf("%s/%04d/%02d/%s", g.Prefix, at.Year(), int(at.Month()), name)
}

// CustomFuncGenerator allows users to provide their own key generation function
type CustomFuncGenerator struct {
	GenerateFunc func(mediaID uuid.UUID, metadata *KeyMetadata) string
}

func NewCustomFuncGenerator(fn func(mediaID uuid.UUID, metadata *KeyMetadata) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{
		GenerateFunc: fn,
	}
}

func (g *CustomFuncGenerator) GenerateKey(mediaID uuid.UUID, metadata *KeyMetadata) string {
	return g.GenerateFunc(mediaID, metadata)
}

// NewGenerator returns the generator registered under name. Unknown names
// fall back to the git-like layout.
func NewGenerator(name string) Generator {
	switch name {
	case "flat":
		return NewFlatGenerator()
	case "dated":
		return NewDatedGenerator()
	default:
		return NewGitLikeGenerator()
	}
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

// sanitizeFilename keeps only the base name and replaces characters that
// are awkward in object keys and URLs.
func sanitizeFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return "file"
	}
	return filenameReplacer.Replace(base)
}
