package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const testDatabaseEnv = "TEST_DATABASE_URL"

// Schema is the minimal set of tables the dropout job touches.
var Schema = []string{
	`CREATE TABLE enrollments (
    id          BIGSERIAL PRIMARY KEY,
    course_id   BIGINT NOT NULL,
    student_id  BIGINT NOT NULL,
    deadline_at TIMESTAMPTZ,
    status      TEXT NOT NULL DEFAULT 'ACTIVE',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE exams (
    id         BIGSERIAL PRIMARY KEY,
    course_id  BIGINT NOT NULL,
    student_id BIGINT NOT NULL,
    status     TEXT NOT NULL
)`,
	`CREATE TABLE submissions (
    id         BIGSERIAL PRIMARY KEY,
    course_id  BIGINT NOT NULL,
    student_id BIGINT NOT NULL,
    status     TEXT NOT NULL
)`,
	`CREATE TABLE activity_logs (
    id          BIGSERIAL PRIMARY KEY,
    resource_id BIGINT NOT NULL,
    user_id     BIGINT NOT NULL,
    description TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
)`,
}

// NewPostgresTestPool returns a pool whose search_path points at a fresh
// schema holding the dropout tables. The test is skipped when
// TEST_DATABASE_URL is not set.
func NewPostgresTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := strings.TrimSpace(os.Getenv(testDatabaseEnv))
	if dbURL == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adminPool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("create postgres pool: %v", err)
	}
	if err := adminPool.Ping(ctx); err != nil {
		adminPool.Close()
		t.Fatalf("ping postgres: %v", err)
	}

	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	if _, err := adminPool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		adminPool.Close()
		t.Fatalf("create schema: %v", err)
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		adminPool.Close()
		t.Fatalf("parse postgres config: %v", err)
	}
	if config.ConnConfig.RuntimeParams == nil {
		config.ConnConfig.RuntimeParams = make(map[string]string)
	}
	config.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		adminPool.Close()
		t.Fatalf("create test postgres pool: %v", err)
	}
	for _, stmt := range Schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			adminPool.Close()
			t.Fatalf("create tables: %v", err)
		}
	}

	t.Cleanup(func() {
		pool.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = adminPool.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		adminPool.Close()
	})

	return pool
}
