package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSQLiteBootstraps(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "overviewd.db")

	db, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	var name string
	err = db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name='command_log'`).Scan(&name)
	if err != nil {
		t.Fatalf("command_log table missing: %v", err)
	}

	// Bootstrap must be idempotent.
	if err := BootstrapSQLite(ctx, db); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
