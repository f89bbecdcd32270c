package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const (
	suffixUp   = ".up.sql"
	suffixDown = ".down.sql"
)

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version TEXT PRIMARY KEY,
    batch INTEGER NOT NULL,
    applied_at TIMESTAMP NOT NULL
)`

// Migrate applies every embedded migration not yet recorded, as one batch.
// It returns the versions applied by this call.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	if _, err := s.db.ExecContext(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	files, err := fs.Glob(schemaFS, "schema/*"+suffixUp)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var batch int
	if err := s.db.GetContext(ctx, &batch, `SELECT COALESCE(MAX(batch), 0) FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("latest batch: %w", err)
	}
	batch++

	var done []string
	for _, file := range files {
		version := strings.TrimSuffix(strings.TrimPrefix(file, "schema/"), suffixUp)
		if applied[version] {
			continue
		}
		if err := s.runMigration(ctx, file, func(tx execer) error {
			_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO schema_migrations (version, batch, applied_at) VALUES (?, ?, ?)`),
				version, batch, time.Now().UTC())
			return err
		}); err != nil {
			return done, fmt.Errorf("migration %s: %w", version, err)
		}
		done = append(done, version)
	}
	return done, nil
}

// Rollback reverts the most recent batch of migrations, newest first.
func (s *Store) Rollback(ctx context.Context) ([]string, error) {
	if _, err := s.db.ExecContext(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	var versions []string
	err := s.db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations
		WHERE batch = (SELECT MAX(batch) FROM schema_migrations)
		ORDER BY version DESC`)
	if err != nil {
		return nil, fmt.Errorf("latest batch: %w", err)
	}

	var done []string
	for _, version := range versions {
		file := "schema/" + version + suffixDown
		if err := s.runMigration(ctx, file, func(tx execer) error {
			_, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM schema_migrations WHERE version = ?`), version)
			return err
		}); err != nil {
			return done, fmt.Errorf("rollback %s: %w", version, err)
		}
		done = append(done, version)
	}
	return done, nil
}

func (s *Store) appliedVersions(ctx context.Context) (map[string]bool, error) {
	var versions []string
	if err := s.db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("applied migrations: %w", err)
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// runMigration executes one file and its bookkeeping inside a transaction.
func (s *Store) runMigration(ctx context.Context, file string, record func(execer) error) error {
	content, err := schemaFS.ReadFile(file)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(string(content)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if err := record(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func splitStatements(sql string) []string {
	var out []string
	for _, stmt := range strings.Split(sql, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
