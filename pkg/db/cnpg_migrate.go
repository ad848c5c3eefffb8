/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/carverauto/threatradar/pkg/logger"
)

const cnpgMigrationsTable = "threatradar_schema_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies any embedded .up.sql migration that has not been recorded in
// the tracking table yet. Each migration runs statement by statement.
func Migrate(ctx context.Context, conn pgxExecutor, log logger.Logger) error {
	if conn == nil {
		return nil
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, cnpgMigrationsTable)); err != nil {
		return fmt.Errorf("%w: create tracking table: %w", ErrMigration, err)
	}

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return err
	}

	names, err := pendingMigrationFiles(migrationsFS, applied)
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := applyMigration(ctx, conn, name); err != nil {
			return err
		}

		if log != nil {
			log.Info().Str("migration", name).Msg("CNPG migration complete")
		}
	}

	return nil
}

func appliedMigrations(ctx context.Context, conn pgxExecutor) (map[string]struct{}, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT version FROM %s`, cnpgMigrationsTable))
	if err != nil {
		return nil, fmt.Errorf("%w: list applied versions: %w", ErrMigration, err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("%w: scan applied version: %w", ErrMigration, err)
		}

		applied[version] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate applied versions: %w", ErrMigration, err)
	}

	return applied, nil
}

func pendingMigrationFiles(fsys fs.FS, applied map[string]struct{}) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("%w: read embedded migrations: %w", ErrMigration, err)
	}

	var names []string

	for _, entry := range entries {
		// .down.sql files are for manual rollbacks only
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		if _, ok := applied[migrationVersion(entry.Name())]; ok {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}

func applyMigration(ctx context.Context, conn pgxExecutor, name string) error {
	content, err := migrationsFS.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrMigration, name, err)
	}

	for idx, stmt := range splitSQLStatements(string(content)) {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: statement %d in %s failed: %w", ErrMigration, idx+1, name, err)
		}
	}

	insert := fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, cnpgMigrationsTable)
	if _, err := conn.Exec(ctx, insert, migrationVersion(name)); err != nil {
		return fmt.Errorf("%w: record %s: %w", ErrMigration, name, err)
	}

	return nil
}

func migrationVersion(filename string) string {
	version, _, _ := strings.Cut(filename, "_")
	return version
}
