package testhelpers

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// NewSQLiteFixture creates a SQLite database file in a temp directory seeded
// with FixtureStatements and returns its path.
func NewSQLiteFixture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open sqlite fixture: %v", err)
	}
	defer db.Close()

	for _, stmt := range FixtureStatements() {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to seed sqlite fixture: %v", err)
		}
	}
	return path
}
