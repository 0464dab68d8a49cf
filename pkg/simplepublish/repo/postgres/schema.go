package postgres

import (
	"context"
	"fmt"
)

// Schema creates the tables used by Repository. Every statement is
// idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS categories (
	id          UUID PRIMARY KEY,
	slug        VARCHAR(255) NOT NULL,
	name        VARCHAR(255) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT categories_slug_key UNIQUE (slug)
);

CREATE TABLE IF NOT EXISTS records (
	id            UUID PRIMARY KEY,
	slug          VARCHAR(255) NOT NULL,
	kind          VARCHAR(32) NOT NULL,
	title         VARCHAR(255) NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	body          TEXT NOT NULL DEFAULT '',
	tags          TEXT[] NOT NULL DEFAULT '{}',
	category_slug VARCHAR(255) NOT NULL DEFAULT '',
	metadata      JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT records_slug_key UNIQUE (slug)
);

CREATE INDEX IF NOT EXISTS records_created_at_idx ON records (created_at DESC);
CREATE INDEX IF NOT EXISTS records_tags_idx ON records USING GIN (tags);

CREATE TABLE IF NOT EXISTS media (
	id              UUID PRIMARY KEY,
	file_name       VARCHAR(255) NOT NULL,
	content_type    VARCHAR(255) NOT NULL,
	size            BIGINT NOT NULL,
	object_key      VARCHAR(1024) NOT NULL,
	storage_backend VARCHAR(64) NOT NULL,
	url             TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS feedback (
	id         UUID PRIMARY KEY,
	name       VARCHAR(255) NOT NULL,
	email      VARCHAR(255) NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
