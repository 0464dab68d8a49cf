package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplepublish.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// handlePostgresError maps driver errors onto the simplepublish error types.
// Slug uniqueness is left to the unique constraints, so a duplicate insert
// surfaces here as 23505.
func (r *Repository) handlePostgresError(resource, key, operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return simplepublish.NewNotFoundError(resource, key)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return simplepublish.NewConflictError(resource, key)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// Record operations

const recordColumns = `id, slug, kind, title, description, body, tags, category_slug, metadata, created_at, updated_at`

func scanRecord(row pgx.Row) (*simplepublish.Record, error) {
	var record simplepublish.Record
	err := row.Scan(
		&record.ID, &record.Slug, &record.Kind, &record.Title, &record.Description,
		&record.Body, &record.Tags, &record.CategorySlug, &record.Metadata,
		&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) CreateRecord(ctx context.Context, record *simplepublish.Record) error {
	query := `
		INSERT INTO records (
			id, slug, kind, title, description, body, tags, category_slug, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		record.ID, record.Slug, record.Kind, record.Title, record.Description,
		record.Body, nonNil(record.Tags), record.CategorySlug, record.Metadata,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("record", record.Slug, "create record", err)
	}

	return nil
}

func (r *Repository) GetRecord(ctx context.Context, slug string) (*simplepublish.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE slug = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, r.handlePostgresError("record", slug, "get record", err)
	}
	return record, nil
}

func (r *Repository) UpdateRecord(ctx context.Context, record *simplepublish.Record) error {
	query := `
		UPDATE records SET
			title = $2, description = $3, body = $4, tags = $5,
			category_slug = $6, metadata = $7, updated_at = now()
		WHERE slug = $1
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		record.Slug, record.Title, record.Description, record.Body,
		nonNil(record.Tags), record.CategorySlug, record.Metadata,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("record", record.Slug, "update record", err)
	}
	return nil
}

func (r *Repository) DeleteRecord(ctx context.Context, slug string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM records WHERE slug = $1`, slug)
	if err != nil {
		return r.handlePostgresError("record", slug, "delete record", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepublish.NewNotFoundError("record", slug)
	}
	return nil
}

func (r *Repository) ListRecords(ctx context.Context, filter simplepublish.RecordFilter) ([]*simplepublish.Record, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.CategorySlug != "" {
		args = append(args, filter.CategorySlug)
		conditions = append(conditions, fmt.Sprintf("category_slug = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, slug`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("record", "*", "list records", err)
	}
	defer rows.Close()

	var records []*simplepublish.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, r.handlePostgresError("record", "*", "scan record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("record", "*", "list records", err)
	}
	return records, nil
}

// Category operations

func (r *Repository) CreateCategory(ctx context.Context, category *simplepublish.Category) error {
	query := `
		INSERT INTO categories (id, slug, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		category.ID, category.Slug, category.Name, category.Description,
	).Scan(&category.CreatedAt)
	if err != nil {
		return r.handlePostgresError("category", category.Slug, "create category", err)
	}
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, slug string) (*simplepublish.Category, error) {
	query := `SELECT id, slug, name, description, created_at FROM categories WHERE slug = $1`

	var category simplepublish.Category
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&category.ID, &category.Slug, &category.Name, &category.Description, &category.CreatedAt)
	if err != nil {
		return nil, r.handlePostgresError("category", slug, "get category", err)
	}
	return &category, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]*simplepublish.Category, error) {
	query := `SELECT id, slug, name, description, created_at FROM categories ORDER BY name, slug`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("category", "*", "list categories", err)
	}
	defer rows.Close()

	var categories []*simplepublish.Category
	for rows.Next() {
		var category simplepublish.Category
		if err := rows.Scan(&category.ID, &category.Slug, &category.Name, &category.Description, &category.CreatedAt); err != nil {
			return nil, r.handlePostgresError("category", "*", "scan category", err)
		}
		categories = append(categories, &category)
	}
	return categories, rows.Err()
}

func (r *Repository) DeleteCategory(ctx context.Context, slug string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE slug = $1`, slug)
	if err != nil {
		return r.handlePostgresError("category", slug, "delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepublish.NewNotFoundError("category", slug)
	}
	return nil
}

// Media operations

const mediaColumns = `id, file_name, content_type, size, object_key, storage_backend, url, created_at`

func scanMedia(row pgx.Row) (*simplepublish.Media, error) {
	var media simplepublish.Media
	err := row.Scan(&media.ID, &media.FileName, &media.ContentType, &media.Size,
		&media.ObjectKey, &media.StorageBackend, &media.URL, &media.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &media, nil
}

func (r *Repository) CreateMedia(ctx context.Context, media *simplepublish.Media) error {
	query := `
		INSERT INTO media (id, file_name, content_type, size, object_key, storage_backend, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		media.ID, media.FileName, media.ContentType, media.Size,
		media.ObjectKey, media.StorageBackend, media.URL,
	).Scan(&media.CreatedAt)
	if err != nil {
		return r.handlePostgresError("media", media.ID.String(), "create media", err)
	}
	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id uuid.UUID) (*simplepublish.Media, error) {
	media, err := scanMedia(r.db.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
	if err != nil {
		return nil, r.handlePostgresError("media", id.String(), "get media", err)
	}
	return media, nil
}

func (r *Repository) ListMedia(ctx context.Context) ([]*simplepublish.Media, error) {
	rows, err := r.db.Query(ctx, `SELECT `+mediaColumns+` FROM media ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, r.handlePostgresError("media", "*", "list media", err)
	}
	defer rows.Close()

	var result []*simplepublish.Media
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, r.handlePostgresError("media", "*", "scan media", err)
		}
		result = append(result, media)
	}
	return result, rows.Err()
}

func (r *Repository) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("media", id.String(), "delete media", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepublish.NewNotFoundError("media", id.String())
	}
	return nil
}

// Feedback operations

func (r *Repository) CreateFeedback(ctx context.Context, feedback *simplepublish.Feedback) error {
	query := `
		INSERT INTO feedback (id, name, email, message)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		feedback.ID, feedback.Name, feedback.Email, feedback.Message,
	).Scan(&feedback.CreatedAt)
	if err != nil {
		return r.handlePostgresError("feedback", feedback.ID.String(), "create feedback", err)
	}
	return nil
}

func (r *Repository) ListFeedback(ctx context.Context) ([]*simplepublish.Feedback, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, email, message, created_at FROM feedback ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, r.handlePostgresError("feedback", "*", "list feedback", err)
	}
	defer rows.Close()

	var result []*simplepublish.Feedback
	for rows.Next() {
		var f simplepublish.Feedback
		if err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.Message, &f.CreatedAt); err != nil {
			return nil, r.handlePostgresError("feedback", "*", "scan feedback", err)
		}
		result = append(result, &f)
	}
	return result, rows.Err()
}
