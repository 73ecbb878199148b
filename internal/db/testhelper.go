package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// OpenTestMetastore opens a write/read pool pair on a metastore in
// t.TempDir(), runs migrations, and registers cleanup. Tests that don't care
// about the split can use writeDB for everything.
func OpenTestMetastore(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metastore.sqlite")
	writeDB, readDB, err := OpenPair(path, 4)
	if err != nil {
		t.Fatalf("open test metastore: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := Migrate(writeDB); err != nil {
		t.Fatalf("migrate test metastore: %v", err)
	}
	return writeDB, readDB
}
