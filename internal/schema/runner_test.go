package schema

import (
	"testing"
)

func TestRunMigrations_AppliesInOrderAndIsIdempotent(t *testing.T) {
	db := openMem(t)

	files := []MigrationFile{
		{Version: 1, Name: "init", Content: []byte(`CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);`)},
		{Version: 2, Name: "add_email", Content: []byte(`ALTER TABLE t ADD COLUMN email TEXT;`)},
	}

	if err := RunMigrations(db, files, "_calljmp_migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM _calljmp_migrations`).Scan(&count); err != nil {
		t.Fatalf("query bookkeeping table: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", count)
	}

	// Re-running must be a no-op: no error, no duplicate rows, no duplicate
	// column errors.
	if err := RunMigrations(db, files, "_calljmp_migrations"); err != nil {
		t.Fatalf("re-run migrations: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM _calljmp_migrations`).Scan(&count); err != nil {
		t.Fatalf("query bookkeeping table: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected still 2 recorded migrations after re-run, got %d", count)
	}
}

func TestRunMigrations_DetectsTamperWithoutAbortingRun(t *testing.T) {
	db := openMem(t)

	files := []MigrationFile{
		{Version: 1, Name: "init", Content: []byte(`CREATE TABLE t (id INTEGER PRIMARY KEY);`)},
	}
	if err := RunMigrations(db, files, "_calljmp_migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	tampered := []MigrationFile{
		{Version: 1, Name: "init", Content: []byte(`CREATE TABLE t (id INTEGER PRIMARY KEY, extra TEXT);`)},
		{Version: 2, Name: "second", Content: []byte(`CREATE TABLE u (id INTEGER PRIMARY KEY);`)},
	}
	if err := RunMigrations(db, tampered, "_calljmp_migrations"); err != nil {
		t.Fatalf("expected tamper to be non-fatal, got %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM u`).Scan(&count); err != nil {
		t.Fatalf("expected second migration to still apply: %v", err)
	}
}

func TestApply_WrapsDeferredForeignKeys(t *testing.T) {
	db := openMem(t)
	exec(t, db, `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)

	p, err := PlanFromDB(db, `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !p.AnyDeferredFK {
		t.Fatalf("expected a recreate plan to require deferred FKs")
	}
	if err := Apply(db, p); err != nil {
		t.Fatalf("apply: %v", err)
	}
}
