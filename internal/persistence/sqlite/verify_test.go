// SPDX-License-Identifier: MIT

package sqlite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVerifyIntegrityHealthy(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.sqlite")

	db, err := Open(dbPath, DefaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE runs (id TEXT PRIMARY KEY, manifest TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec("INSERT INTO runs (id, manifest) VALUES ('a', 'requirements.txt')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, mode := range []string{"quick", "full"} {
		issues, err := VerifyIntegrity(dbPath, mode)
		if err != nil {
			t.Fatalf("%s check: %v", mode, err)
		}
		if issues != nil {
			t.Errorf("%s check reported issues on a healthy database: %v", mode, issues)
		}
	}
}

func TestVerifyIntegrityNotADatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bogus.sqlite")
	if err := os.WriteFile(dbPath, []byte("this is not a database\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	issues, err := VerifyIntegrity(dbPath, "quick")
	if err == nil && issues == nil {
		t.Error("garbage file passed verification")
	}
}

func TestVerifyIntegrityCorruption(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "corruptible.sqlite")

	db, err := Open(dbPath, DefaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE runs (id INTEGER PRIMARY KEY, data TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	// Enough rows that the file spans several pages.
	payload := strings.Repeat("A", 100)
	for i := 0; i < 200; i++ {
		if _, err := db.Exec("INSERT INTO runs (data) VALUES (?)", payload); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Scribble over the second page, leaving the header intact.
	f, err := os.OpenFile(dbPath, os.O_RDWR, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt([]byte(strings.Repeat("\xde\xad", 50)), 4096); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	// Depending on which structure the damage hits, SQLite reports it
	// either as diagnostic rows or as a query error. Both count.
	issues, err := VerifyIntegrity(dbPath, "full")
	if err == nil && issues == nil {
		t.Error("corrupted database passed verification")
	}
}
