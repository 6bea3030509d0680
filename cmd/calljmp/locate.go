package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/Calljmp/calljmp-cli/internal/config"
	"github.com/Calljmp/calljmp-cli/internal/project"
	"github.com/Calljmp/calljmp-cli/internal/schema"
)

// migrationFileRe matches the migration filename convention: a numeric
// version prefix (either zero-padded 4-digit or Unix-seconds), a separator,
// and a name, both accepted by the reader.
var migrationFileRe = regexp.MustCompile(`^(\d+)[-_]([a-zA-Z0-9_-]+)\.sql$`)

// migrationsDirFlag overrides migrationsDir's default, bound by db.go's
// persistent flag.
var migrationsDirFlag string

// manifestOrDefaults loads calljmp.toml from cwd if present, falling back to
// config defaults (schema-dir, etc.) for commands run outside a project.
func manifestOrDefaults() (schemaDir string) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.GetString("schema-dir")
	}
	m, err := project.LoadManifest(cwd)
	if err != nil {
		return config.GetString("schema-dir")
	}
	return m.SchemaDir
}

// readTargetSchema concatenates every *.sql file directly under dir, in
// filename order, into a single target schema document. The schema package
// never touches the filesystem itself; this is the thin collaborator that
// does.
func readTargetSchema(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading schema directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []byte
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", name, err)
		}
		out = append(out, b...)
		out = append(out, '\n')
	}
	return string(out), nil
}

// loadMigrationFiles reads every file under dir matching migrationFileRe,
// in ascending version order. Files that don't match are silently ignored.
func loadMigrationFiles(dir string) ([]schema.MigrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}
	var files []schema.MigrationFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := migrationFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		files = append(files, schema.MigrationFile{
			Version: version,
			Name:    m[2],
			Content: content,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// nextMigrationVersion returns a zero-padded 4-digit version one greater
// than the highest version present in dir, falling back to "0001" for an
// empty or absent directory.
func nextMigrationVersion(dir string) (string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "0001", nil
	}
	files, err := loadMigrationFiles(dir)
	if err != nil {
		return "", err
	}
	max := 0
	for _, f := range files {
		if f.Version > max {
			max = f.Version
		}
	}
	return fmt.Sprintf("%04d", max+1), nil
}

// writeMigrationFile writes content to dir under the naming convention
// "<version>-<slug>.sql", creating dir if needed.
func writeMigrationFile(dir, version, slug, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating migrations directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.sql", version, slug))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// migrationsDir resolves the directory holding versioned migration files,
// defaulting to a "migrations" subdirectory of the project's schema
// directory.
func migrationsDir() string {
	if migrationsDirFlag != "" {
		return migrationsDirFlag
	}
	return filepath.Join(manifestOrDefaults(), "migrations")
}

func openSandboxDB() (*sql.DB, error) {
	path := config.GetString("sandbox.db")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating sandbox directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sandbox database %s: %w", path, err)
	}
	return db, nil
}
