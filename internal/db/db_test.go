package db

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"features", "features_fts"} {
		var count int
		if err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "toc.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer d.Close()

	if d.Path() != path {
		t.Errorf("Path() = %q, want %q", d.Path(), path)
	}
}

func TestUniqueIndexTreatsEmptyHashAsEqual(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	insert := `INSERT INTO features (repo, program, path, hash) VALUES ('r', 'p', 'a.cs', '')`
	if _, err := d.Exec(insert); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := d.Exec(insert); err == nil {
		t.Error("expected unique violation on duplicate (repo, path, hash)")
	}
	if _, err := d.Exec(`INSERT INTO features (repo, program, path, hash) VALUES ('r', 'p', 'a.cs', 'h1')`); err != nil {
		t.Errorf("different hash should be accepted: %v", err)
	}
}

func TestRegexpFunction(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	tests := []struct {
		subject, pattern string
		want             bool
	}{
		{"Controllers/HomeController.cs", "controller\\.cs$", true},
		{"README.md", "controller", false},
		{"OrderService.cs", "^order", true},
	}
	for _, tt := range tests {
		var got bool
		if err := d.QueryRow(`SELECT ? REGEXP ?`, tt.subject, tt.pattern).Scan(&got); err != nil {
			t.Fatalf("REGEXP query: %v", err)
		}
		if got != tt.want {
			t.Errorf("%q REGEXP %q = %v, want %v", tt.subject, tt.pattern, got, tt.want)
		}
	}
}
