package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tendant/simple-publish/pkg/simplepublish/convert"
	"github.com/tendant/simple-publish/pkg/simplepublish/render"
	"github.com/tendant/simple-publish/pkg/simplepublish/slug"
)

const usage = `Simple Publish converter

Converts post bodies between the HTML editors produce and the Markdown that is stored.

USAGE:
  convert <command> [file]

Reads the file, or standard input when no file (or "-") is given, and writes to
standard output.

COMMANDS:
  to-markdown   HTML to Markdown (sanitised, with highlight/underline spans)
  to-html       Markdown to HTML, the lightweight editor preview form
  render        Markdown to sanitised display HTML
  tree          Markdown to the styled display tree as JSON
  slug          Print the slug a title would get

EXAMPLES:
  convert to-markdown draft.html > draft.md
  echo "# Hello" | convert tree
  convert slug "Getting Started with Go"
`

var errUsage = errors.New("usage")

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := run(os.Args[1:], os.Stdin, os.Stdout, logger); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage+"\n")
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	if len(args) == 0 {
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "help", "-h", "--help":
		_, err := fmt.Fprint(stdout, usage+"\n")
		return err
	case "slug":
		if len(rest) == 0 {
			return errUsage
		}
		_, err := fmt.Fprintln(stdout, slug.Generate(strings.Join(rest, " ")))
		return err
	}

	input, err := readInput(rest, stdin)
	if err != nil {
		return err
	}
	converter := convert.New(convert.WithLogger(logger))

	switch command {
	case "to-markdown":
		_, err = fmt.Fprintln(stdout, converter.HTMLToMarkdown(input))
	case "to-html":
		_, err = fmt.Fprintln(stdout, converter.MarkdownToHTML(input))
	case "render":
		var html string
		if html, err = render.New().HTML(input); err == nil {
			_, err = fmt.Fprintln(stdout, html)
		}
	case "tree":
		var tree *render.Node
		if tree, err = render.New().Tree(input); err == nil {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			err = enc.Encode(tree)
		}
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	return err
}

func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 1 {
		return "", errUsage
	}
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}
