/*
 * Copyright 2026 Carver Automation Corporation.
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
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every embedded migration on every startup. Each
// statement is idempotent (CREATE ... IF NOT EXISTS, ADD COLUMN IF NOT
// EXISTS), so re-running the full set is safe and keeps replicas that
// race at boot convergent.
func (s *Store) Migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("migrations: acquire connection: %w", err)
	}
	defer conn.Release()

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations: read embedded migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)

	for _, name := range filenames {
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("migrations: read %s: %w", name, err)
		}

		for idx, statement := range SplitStatements(string(content)) {
			if statement == "" {
				continue
			}

			if _, err := conn.Exec(ctx, statement); err != nil {
				return fmt.Errorf("migrations: statement %d in %s failed: %w", idx+1, name, err)
			}
		}

		s.logger.Debug().Str("migration", name).Msg("migration applied")
	}

	return nil
}

// SplitStatements splits a migration file into individual statements.
// Semicolons inside dollar-quoted bodies are preserved.
func SplitStatements(sql string) []string {
	var (
		statements []string
		builder    strings.Builder
		inDollar   bool
	)

	lines := strings.Split(sql, "\n")

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}

		if strings.Contains(trimmed, "$$") {
			inDollar = !inDollar
		}

		builder.WriteString(line)
		builder.WriteString("\n")

		if !inDollar && strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(builder.String()))
			builder.Reset()
		}
	}

	if remainder := strings.TrimSpace(builder.String()); remainder != "" {
		statements = append(statements, remainder)
	}

	return statements
}
