package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	statements := SplitStatements(`
-- comment line
CREATE TABLE IF NOT EXISTS a (id INT);

CREATE INDEX IF NOT EXISTS idx_a ON a (id);
`)

	require.Len(t, statements, 2)
	assert.True(t, strings.HasPrefix(statements[0], "CREATE TABLE"))
	assert.True(t, strings.HasPrefix(statements[1], "CREATE INDEX"))
}

func TestSplitStatementsKeepsMultilineStatementTogether(t *testing.T) {
	statements := SplitStatements(`
CREATE TABLE IF NOT EXISTS b (
    id INT,
    name TEXT
);
UPDATE b SET name = 'x' WHERE name = '';
`)

	require.Len(t, statements, 2)
	assert.Contains(t, statements[0], "name TEXT")
	assert.True(t, strings.HasPrefix(statements[1], "UPDATE"))
}

// Applying the migration set twice must yield the same schema as
// applying it once, so every statement has to be self-guarding.
func TestEmbeddedMigrationsAreIdempotent(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	idempotentPrefixes := []string{
		"CREATE TABLE IF NOT EXISTS",
		"CREATE INDEX IF NOT EXISTS",
		"CREATE UNIQUE INDEX IF NOT EXISTS",
		"ALTER TABLE",
		"UPDATE",
	}

	for _, entry := range entries {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		require.NoError(t, err)

		for _, statement := range SplitStatements(string(content)) {
			matched := false

			for _, prefix := range idempotentPrefixes {
				if strings.HasPrefix(statement, prefix) {
					matched = true
					break
				}
			}

			assert.True(t, matched, "non-idempotent statement in %s: %.80s", entry.Name(), statement)

			if strings.HasPrefix(statement, "ALTER TABLE") {
				assert.Contains(t, statement, "IF NOT EXISTS",
					"ALTER TABLE without IF NOT EXISTS in %s", entry.Name())
			}
		}
	}
}

// The open-event invariant is backed by partial unique indexes; make
// sure they cover all three rule discriminators.
func TestOpenEventIndexesPresent(t *testing.T) {
	content, err := fs.ReadFile(migrationsFS, "migrations/0001_init.sql")
	require.NoError(t, err)

	schema := string(content)

	assert.Contains(t, schema, "uq_alert_events_open_rule")
	assert.Contains(t, schema, "uq_alert_events_open_wan")
	assert.Contains(t, schema, "uq_alert_events_open_power")
	assert.Contains(t, schema, "uq_flow_summary_5m_key")
}
