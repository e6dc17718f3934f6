// Package postgres implements the relational store adapters. The database
// is the single writer-of-record; every cached view is derived from it.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the connection pool shared by the store adapters.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, url string) (*DB, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// schema is applied on startup. Statements are idempotent so repeated
// startups are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		module_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		type TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		task_id BIGINT PRIMARY KEY REFERENCES tasks(id) ON DELETE CASCADE,
		question TEXT NOT NULL,
		possible_answers TEXT NOT NULL,
		is_multiple BOOLEAN NOT NULL DEFAULT FALSE,
		answers TEXT NOT NULL,
		picture_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		task_id BIGINT PRIMARY KEY REFERENCES tasks(id) ON DELETE CASCADE,
		question TEXT NOT NULL,
		left_items TEXT NOT NULL,
		right_items TEXT NOT NULL,
		answers TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lectures (
		task_id BIGINT PRIMARY KEY REFERENCES tasks(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		picture_url TEXT NOT NULL DEFAULT '',
		video_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS prompts (
		task_id BIGINT PRIMARY KEY REFERENCES tasks(id) ON DELETE CASCADE,
		question TEXT NOT NULL,
		additional_prompt TEXT,
		max_attempts INT NOT NULL DEFAULT 3
	)`,
	`CREATE TABLE IF NOT EXISTS task_progress (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		task_id BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		submission JSONB NOT NULL DEFAULT '{}'::jsonb,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		attempts INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, task_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_module ON tasks(module_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_progress_user ON task_progress(user_id)`,
}

// Ensure creates the schema if it does not exist yet.
func (db *DB) Ensure(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
