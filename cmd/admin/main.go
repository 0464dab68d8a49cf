package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/config"
)

const usage = `Simple Publish Admin CLI

Inspects and repairs a publishing store using the same configuration as the server.

USAGE:
  admin <command> [options]

COMMANDS:
  list         List records with optional filtering
  stats        Record counts by kind, category and tag
  categories   List categories
  feedback     List contact form messages
  sync <slug>  Rewrite the mirror document of one record
  rebuild      Rewrite every mirror document

ENVIRONMENT VARIABLES:
  DATABASE_URL      memory, postgres://... or sqlite://path (default: memory)
  MIRROR_URL        memory, file:///dir or s3://bucket (default: memory)

  Run "server -env-help" for the full list. Configuration can be loaded from
  a .env file in the current directory.

EXAMPLES:
  admin list --kind=tutorial --limit=20
  admin list --tag=go --json
  admin stats
  admin sync getting-started
  admin rebuild

OPTIONS (for list/stats):
  --kind=<kind>          Filter by kind (post, tutorial)
  --tag=<tag>            Filter by tag
  --category=<slug>      Filter by category
  --limit=<n>            Maximum results (list only, default: 100)
  --offset=<n>           Pagination offset (list only, default: 0)
  --json                 Output as JSON
`

var errUsage = errors.New("usage")

type options struct {
	filter simplepublish.ListRecordsRequest
	json   bool
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
	if cmd := os.Args[1]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		fmt.Print(usage + "\n")
		return
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx := context.Background()
	comps, err := cfg.Build(ctx, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build services:", err)
		os.Exit(1)
	}
	defer comps.Close()

	if err := run(ctx, os.Args[1:], os.Stdout, comps); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n%s\n", err, usage)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		comps.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, comps *config.Components) error {
	if len(args) == 0 {
		return errUsage
	}
	command, rest := args[0], args[1:]

	switch command {
	case "list":
		opts, err := parseOptions(rest, 100)
		if err != nil {
			return err
		}
		return handleList(ctx, out, comps.Service, opts)
	case "stats":
		opts, err := parseOptions(rest, 0)
		if err != nil {
			return err
		}
		return handleStats(ctx, out, comps.Service, opts)
	case "categories":
		return handleCategories(ctx, out, comps.Service, hasFlag(rest, "--json"))
	case "feedback":
		return handleFeedback(ctx, out, comps.Feedback, hasFlag(rest, "--json"))
	case "sync":
		if len(rest) != 1 {
			return fmt.Errorf("%w: sync takes exactly one slug", errUsage)
		}
		return handleSync(ctx, out, comps.Service, rest[0])
	case "rebuild":
		return handleRebuild(ctx, out, comps.Service, hasFlag(rest, "--json"))
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func parseOptions(args []string, defaultLimit int) (options, error) {
	opts := options{filter: simplepublish.ListRecordsRequest{Limit: defaultLimit}}

	for _, arg := range args {
		key, value := parseFlag(arg)
		switch key {
		case "json":
			opts.json = true
		case "kind":
			opts.filter.Kind = simplepublish.RecordKind(value)
		case "tag":
			opts.filter.Tag = value
		case "category":
			opts.filter.CategorySlug = value
		case "limit", "offset":
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, fmt.Errorf("%w: --%s must be a number", errUsage, key)
			}
			if key == "limit" {
				opts.filter.Limit = n
			} else {
				opts.filter.Offset = n
			}
		default:
			return opts, fmt.Errorf("%w: unknown option %q", errUsage, arg)
		}
	}
	return opts, nil
}

func parseFlag(arg string) (string, string) {
	if !strings.HasPrefix(arg, "--") {
		return "", ""
	}
	key, value, found := strings.Cut(arg[2:], "=")
	if !found {
		return key, "true"
	}
	return key, value
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func handleList(ctx context.Context, out io.Writer, svc simplepublish.Service, opts options) error {
	records, err := svc.ListRecords(ctx, opts.filter)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	if opts.json {
		return writeJSON(out, records)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tKIND\tTITLE\tCATEGORY\tTAGS\tUPDATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Slug,
			r.Kind,
			truncate(r.Title, 40),
			orDash(r.CategorySlug),
			orDash(strings.Join(r.Tags, ",")),
			r.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal: %d", len(records))
	if opts.filter.Limit > 0 && len(records) == opts.filter.Limit {
		fmt.Fprintf(out, " (may have more, use --offset=%d to continue)", opts.filter.Offset+opts.filter.Limit)
	}
	fmt.Fprintln(out)
	return nil
}

// Statistics aggregates a record listing.
type Statistics struct {
	TotalCount int            `json:"total_count"`
	ByKind     map[string]int `json:"by_kind"`
	ByCategory map[string]int `json:"by_category"`
	ByTag      map[string]int `json:"by_tag"`
	Oldest     *time.Time     `json:"oldest,omitempty"`
	Newest     *time.Time     `json:"newest,omitempty"`
}

func computeStatistics(records []*simplepublish.Record) Statistics {
	stats := Statistics{
		ByKind:     map[string]int{},
		ByCategory: map[string]int{},
		ByTag:      map[string]int{},
	}
	for _, r := range records {
		stats.TotalCount++
		stats.ByKind[string(r.Kind)]++
		if r.CategorySlug != "" {
			stats.ByCategory[r.CategorySlug]++
		}
		for _, tag := range r.Tags {
			stats.ByTag[tag]++
		}
		created := r.CreatedAt
		if stats.Oldest == nil || created.Before(*stats.Oldest) {
			stats.Oldest = &created
		}
		if stats.Newest == nil || created.After(*stats.Newest) {
			stats.Newest = &created
		}
	}
	return stats
}

func handleStats(ctx context.Context, out io.Writer, svc simplepublish.Service, opts options) error {
	opts.filter.Limit, opts.filter.Offset = 0, 0
	records, err := svc.ListRecords(ctx, opts.filter)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	stats := computeStatistics(records)
	if opts.json {
		return writeJSON(out, stats)
	}

	fmt.Fprintln(out, "=== Record Statistics ===")
	fmt.Fprintf(out, "\nTotal Count: %d\n", stats.TotalCount)
	printCounts(out, "By Kind", stats.ByKind)
	printCounts(out, "By Category", stats.ByCategory)
	printCounts(out, "By Tag", stats.ByTag)

	if stats.Oldest != nil && stats.Newest != nil {
		fmt.Fprintln(out, "\nTime Range:")
		fmt.Fprintf(out, "  Oldest: %s\n", stats.Oldest.Format(time.RFC3339))
		fmt.Fprintf(out, "  Newest: %s\n", stats.Newest.Format(time.RFC3339))
	}
	return nil
}

func printCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(out, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-20s: %d\n", truncate(k, 20), counts[k])
	}
}

func handleCategories(ctx context.Context, out io.Writer, svc simplepublish.Service, asJSON bool) error {
	categories, err := svc.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	if asJSON {
		return writeJSON(out, categories)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tDESCRIPTION")
	for _, c := range categories {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Slug, c.Name, orDash(truncate(c.Description, 50)))
	}
	return w.Flush()
}

func handleFeedback(ctx context.Context, out io.Writer, svc simplepublish.FeedbackService, asJSON bool) error {
	items, err := svc.ListFeedback(ctx)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	if asJSON {
		return writeJSON(out, items)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tNAME\tEMAIL\tMESSAGE")
	for _, f := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			f.CreatedAt.Format("2006-01-02 15:04:05"),
			truncate(f.Name, 20),
			f.Email,
			truncate(strings.Join(strings.Fields(f.Message), " "), 50),
		)
	}
	return w.Flush()
}

func handleSync(ctx context.Context, out io.Writer, svc simplepublish.Service, slug string) error {
	result, err := svc.SyncMirror(ctx, slug)
	if err != nil {
		return fmt.Errorf("failed to sync %s: %w", slug, err)
	}
	if result.Partial() {
		return fmt.Errorf("mirror write failed for %s: %w", slug, result.MirrorErr)
	}
	fmt.Fprintf(out, "mirrored %s\n", slug)
	return nil
}

func handleRebuild(ctx context.Context, out io.Writer, svc simplepublish.Service, asJSON bool) error {
	report, err := svc.RebuildMirrors(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild mirrors: %w", err)
	}
	if asJSON {
		return writeJSON(out, report)
	}

	fmt.Fprintf(out, "mirrored %d of %d records\n", report.Mirrored, report.Total)
	if len(report.Failed) == 0 {
		return nil
	}
	slugs := make([]string, 0, len(report.Failed))
	for s := range report.Failed {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	for _, s := range slugs {
		fmt.Fprintf(out, "  failed %s: %s\n", s, report.Failed[s])
	}
	return fmt.Errorf("%d mirror writes failed", len(report.Failed))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
