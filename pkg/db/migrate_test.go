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
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{filename: "0001_init.up.sql", expected: "0001"},
		{filename: "0002_add_sessions.up.sql", expected: "0002"},
		{filename: "0010.up.sql", expected: "0010"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractVersion(tt.filename))
		})
	}
}

func TestSplitSQLStatements(t *testing.T) {
	t.Run("splits on statement terminators", func(t *testing.T) {
		content := `
-- schema comment
CREATE TABLE devices (
    device_id TEXT PRIMARY KEY
);

CREATE INDEX idx_devices ON devices (device_id);
`

		statements := splitSQLStatements(content)
		require.Len(t, statements, 2)
		assert.Contains(t, statements[0], "CREATE TABLE devices")
		assert.Contains(t, statements[1], "CREATE INDEX idx_devices")
	})

	t.Run("drops comments and blank lines", func(t *testing.T) {
		content := "-- only a comment\n\n-- another\n"
		assert.Empty(t, splitSQLStatements(content))
	})

	t.Run("keeps trailing statement without semicolon", func(t *testing.T) {
		statements := splitSQLStatements("SELECT 1")
		require.Len(t, statements, 1)
		assert.Equal(t, "SELECT 1", statements[0])
	})
}

// The embedded migration set must contain matching up/down pairs with
// parseable versions, otherwise RunMigrations misbehaves at startup.
func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := make(map[string]bool)
	downs := make(map[string]bool)

	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[extractVersion(name)] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.SplitN(strings.TrimSuffix(name, ".down.sql"), "_", 2)[0]] = true
		default:
			t.Errorf("unexpected migration file %q", name)
		}
	}

	for version := range ups {
		assert.NotEmpty(t, version)
		assert.True(t, downs[version], "missing down migration for version %s", version)
	}

	// Each up migration must split into at least one executable statement.
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		require.NoError(t, err)
		assert.NotEmpty(t, splitSQLStatements(string(content)), "no statements in %s", entry.Name())
	}
}
