// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sqlite

import (
	"path/filepath"
	"testing"
)

func TestMigrate_IsIdempotentAndVersioned(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "migrate.sqlite"), DefaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	schema := `CREATE TABLE IF NOT EXISTS things (id TEXT PRIMARY KEY);`
	if err := Migrate(db, 1, schema); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if err := Migrate(db, 1, "THIS IS NOT SQL"); err != nil {
		t.Fatalf("migrate at current version must be a no-op: %v", err)
	}

	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if v != 1 {
		t.Fatalf("user_version = %d, want 1", v)
	}
}

func TestVerifyIntegrity_HealthyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "healthy.sqlite")
	db, err := Open(dbPath, DefaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, data TEXT);"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for i := 0; i < 50; i++ {
		if _, err := db.Exec("INSERT INTO test (data) VALUES ('payload');"); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	_ = db.Close()

	for _, mode := range []string{"quick", "full"} {
		issues, err := VerifyIntegrity(dbPath, mode)
		if err != nil {
			t.Fatalf("%s verification: %v", mode, err)
		}
		if issues != nil {
			t.Fatalf("%s verification reported issues: %v", mode, issues)
		}
	}
}
