package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, strings.NewReader(stdin), &out, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return out.String(), err
}

func TestToMarkdown(t *testing.T) {
	out, err := runCmd(t, `<h2>Intro</h2><p><span class="highlight">key</span> point</p>`, "to-markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "## Intro")
	assert.Contains(t, out, "==key==")
}

func TestToHTMLFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	require.NoError(t, os.WriteFile(path, []byte("**bold**"), 0644))

	out, err := runCmd(t, "", "to-html", path)
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
}

func TestRenderAndTree(t *testing.T) {
	out, err := runCmd(t, "# Hello\n\ntext", "render")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")

	out, err = runCmd(t, "# Hello", "tree", "-")
	require.NoError(t, err)
	var tree map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	assert.Equal(t, "document", tree["type"])
}

func TestSlug(t *testing.T) {
	out, err := runCmd(t, "", "slug", "Getting", "Started", "with", "Go")
	require.NoError(t, err)
	assert.Equal(t, "getting-started-with-go\n", out)
}

func TestUsageErrors(t *testing.T) {
	_, err := runCmd(t, "")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "", "transmogrify")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "", "slug")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "", "to-html", "a.md", "b.md")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "", "to-html", filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}
