package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Repository implements simplepublish.Repository using SQLite
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a repository over an opened database. Use Open to get one
// with the schema applied.
func New(db *sql.DB) *Repository {
	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) handleSQLiteError(resource, key, operation string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return simplepublish.NewNotFoundError(resource, key)
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return simplepublish.NewConflictError(resource, key)
		}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return simplepublish.NewConflictError(resource, key)
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

func encodeMetadata(metadata map[string]interface{}) (sql.NullString, error) {
	if metadata == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Record operations

const recordColumns = `id, slug, kind, title, description, body, tags, category_slug, metadata, created_at, updated_at`

func scanRecord(row rowScanner) (*simplepublish.Record, error) {
	var (
		record             simplepublish.Record
		id, tags           string
		metadata           sql.NullString
		createdAt, updated int64
	)
	err := row.Scan(&id, &record.Slug, &record.Kind, &record.Title, &record.Description,
		&record.Body, &tags, &record.CategorySlug, &metadata, &createdAt, &updated)
	if err != nil {
		return nil, err
	}

	if record.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(tags), &record.Tags); err != nil {
		return nil, fmt.Errorf("invalid tags for %s: %w", record.Slug, err)
	}
	if len(record.Tags) == 0 {
		record.Tags = nil
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &record.Metadata); err != nil {
			return nil, fmt.Errorf("invalid metadata for %s: %w", record.Slug, err)
		}
	}
	record.CreatedAt = fromNanos(createdAt)
	record.UpdatedAt = fromNanos(updated)
	return &record, nil
}

func (r *Repository) CreateRecord(ctx context.Context, record *simplepublish.Record) error {
	tags, err := encodeTags(record.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	metadata, err := encodeMetadata(record.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	now := r.now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID.String(), record.Slug, string(record.Kind), record.Title, record.Description,
		record.Body, tags, record.CategorySlug, metadata, toNanos(now), toNanos(now))
	if err != nil {
		return r.handleSQLiteError("record", record.Slug, "create record", err)
	}

	record.CreatedAt = now
	record.UpdatedAt = now
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, slug string) (*simplepublish.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE slug = ?`, slug)
	record, err := scanRecord(row)
	if err != nil {
		return nil, r.handleSQLiteError("record", slug, "get record", err)
	}
	return record, nil
}

func (r *Repository) UpdateRecord(ctx context.Context, record *simplepublish.Record) error {
	tags, err := encodeTags(record.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	metadata, err := encodeMetadata(record.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	now := r.now()
	var (
		id        string
		createdAt int64
	)
	err = r.db.QueryRowContext(ctx, `
		UPDATE records SET
			title = ?, description = ?, body = ?, tags = ?,
			category_slug = ?, metadata = ?, updated_at = ?
		WHERE slug = ?
		RETURNING id, created_at`,
		record.Title, record.Description, record.Body, tags,
		record.CategorySlug, metadata, toNanos(now), record.Slug,
	).Scan(&id, &createdAt)
	if err != nil {
		return r.handleSQLiteError("record", record.Slug, "update record", err)
	}

	if record.ID, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid record id %q: %w", id, err)
	}
	record.CreatedAt = fromNanos(createdAt)
	record.UpdatedAt = now
	return nil
}

func (r *Repository) DeleteRecord(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE slug = ?`, slug)
	if err != nil {
		return r.handleSQLiteError("record", slug, "delete record", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return simplepublish.NewNotFoundError("record", slug)
	}
	return nil
}

func (r *Repository) ListRecords(ctx context.Context, filter simplepublish.RecordFilter) ([]*simplepublish.Record, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.CategorySlug != "" {
		conditions = append(conditions, "category_slug = ?")
		args = append(args, filter.CategorySlug)
	}
	if filter.Tag != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(records.tags) WHERE json_each.value = ?)")
		args = append(args, filter.Tag)
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.handleSQLiteError("record", "*", "list records", err)
	}
	defer rows.Close()

	var records []*simplepublish.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, r.handleSQLiteError("record", "*", "scan record", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Category operations

func scanCategory(row rowScanner) (*simplepublish.Category, error) {
	var (
		category  simplepublish.Category
		id        string
		createdAt int64
	)
	if err := row.Scan(&id, &category.Slug, &category.Name, &category.Description, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if category.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid category id %q: %w", id, err)
	}
	category.CreatedAt = fromNanos(createdAt)
	return &category, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category *simplepublish.Category) error {
	now := r.now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, slug, name, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		category.ID.String(), category.Slug, category.Name, category.Description, toNanos(now))
	if err != nil {
		return r.handleSQLiteError("category", category.Slug, "create category", err)
	}
	category.CreatedAt = now
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, slug string) (*simplepublish.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, slug, name, description, created_at FROM categories WHERE slug = ?`, slug)
	category, err := scanCategory(row)
	if err != nil {
		return nil, r.handleSQLiteError("category", slug, "get category", err)
	}
	return category, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]*simplepublish.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slug, name, description, created_at FROM categories ORDER BY name, slug`)
	if err != nil {
		return nil, r.handleSQLiteError("category", "*", "list categories", err)
	}
	defer rows.Close()

	var categories []*simplepublish.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, r.handleSQLiteError("category", "*", "scan category", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *Repository) DeleteCategory(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE slug = ?`, slug)
	if err != nil {
		return r.handleSQLiteError("category", slug, "delete category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return simplepublish.NewNotFoundError("category", slug)
	}
	return nil
}

// Media operations

const mediaColumns = `id, file_name, content_type, size, object_key, storage_backend, url, created_at`

func scanMedia(row rowScanner) (*simplepublish.Media, error) {
	var (
		media     simplepublish.Media
		id        string
		createdAt int64
	)
	err := row.Scan(&id, &media.FileName, &media.ContentType, &media.Size,
		&media.ObjectKey, &media.StorageBackend, &media.URL, &createdAt)
	if err != nil {
		return nil, err
	}
	if media.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid media id %q: %w", id, err)
	}
	media.CreatedAt = fromNanos(createdAt)
	return &media, nil
}

func (r *Repository) CreateMedia(ctx context.Context, media *simplepublish.Media) error {
	if media.CreatedAt.IsZero() {
		media.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media (`+mediaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		media.ID.String(), media.FileName, media.ContentType, media.Size,
		media.ObjectKey, media.StorageBackend, media.URL, toNanos(media.CreatedAt))
	if err != nil {
		return r.handleSQLiteError("media", media.ID.String(), "create media", err)
	}
	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id uuid.UUID) (*simplepublish.Media, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id.String())
	media, err := scanMedia(row)
	if err != nil {
		return nil, r.handleSQLiteError("media", id.String(), "get media", err)
	}
	return media, nil
}

func (r *Repository) ListMedia(ctx context.Context) ([]*simplepublish.Media, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, r.handleSQLiteError("media", "*", "list media", err)
	}
	defer rows.Close()

	var result []*simplepublish.Media
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, r.handleSQLiteError("media", "*", "scan media", err)
		}
		result = append(result, media)
	}
	return result, rows.Err()
}

func (r *Repository) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id.String())
	if err != nil {
		return r.handleSQLiteError("media", id.String(), "delete media", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return simplepublish.NewNotFoundError("media", id.String())
	}
	return nil
}

// Feedback operations

func (r *Repository) CreateFeedback(ctx context.Context, feedback *simplepublish.Feedback) error {
	now := r.now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feedback (id, name, email, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		feedback.ID.String(), feedback.Name, feedback.Email, feedback.Message, toNanos(now))
	if err != nil {
		return r.handleSQLiteError("feedback", feedback.ID.String(), "create feedback", err)
	}
	feedback.CreatedAt = now
	return nil
}

func (r *Repository) ListFeedback(ctx context.Context) ([]*simplepublish.Feedback, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, message, created_at FROM feedback ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, r.handleSQLiteError("feedback", "*", "list feedback", err)
	}
	defer rows.Close()

	var result []*simplepublish.Feedback
	for rows.Next() {
		var (
			f         simplepublish.Feedback
			id        string
			createdAt int64
		)
		if err := rows.Scan(&id, &f.Name, &f.Email, &f.Message, &createdAt); err != nil {
			return nil, r.handleSQLiteError("feedback", "*", "scan feedback", err)
		}
		if f.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid feedback id %q: %w", id, err)
		}
		f.CreatedAt = fromNanos(createdAt)
		result = append(result, &f)
	}
	return result, rows.Err()
}
