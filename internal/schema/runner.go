package schema

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/Calljmp/calljmp-cli/internal/ui"
)

// MigrationFile is one on-disk migration the caller has already located,
// ordered, and read. The core never touches the filesystem itself: locating
// and reading .sql files is the CLI layer's job, not this package's.
type MigrationFile struct {
	Version int
	Name    string
	Content []byte
}

// AppliedMigration mirrors one row of the bookkeeping table.
type AppliedMigration struct {
	ID      int64
	Name    string
	Version int
	Hash    string
}

// Apply executes plan.Steps in order against db. It does not open its own
// transaction: the worker sandbox this runs under drives each step's
// statement batch as a single implicit transaction, so Apply handles
// sequencing and the defer_foreign_keys bracket. Afterwards it runs PRAGMA
// foreign_key_check and returns ErrForeignKeyViolation if any row is
// reported.
func Apply(db *sql.DB, plan *MigrationPlan) error {
	if plan.AnyDeferredFK {
		if _, err := db.Exec("PRAGMA defer_foreign_keys = ON"); err != nil {
			return fmt.Errorf("enabling defer_foreign_keys: %w", err)
		}
	}

	for _, step := range plan.Steps {
		for _, stmt := range step.Statements {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("applying %s %s: %w", step.Kind, step.TargetName, err)
			}
		}
	}

	if plan.AnyDeferredFK {
		if _, err := db.Exec("PRAGMA defer_foreign_keys = OFF"); err != nil {
			return fmt.Errorf("disabling defer_foreign_keys: %w", err)
		}
	}

	rows, err := db.Query("PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("running foreign_key_check: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		return wrap(ErrForeignKeyViolation, "applied plan left dangling foreign key references")
	}
	return rows.Err()
}

// ensureMigrationsTable creates the bookkeeping table if it doesn't exist.
func ensureMigrationsTable(db *sql.DB, table string) error {
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			version INTEGER NOT NULL,
			hash TEXT NOT NULL
		)`, quoteIdent(table))
	_, err := db.Exec(stmt)
	if err != nil {
		return fmt.Errorf("creating migrations table %s: %w", table, err)
	}
	return nil
}

func appliedMigrations(db *sql.DB, table string) (map[string]AppliedMigration, error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT id, name, version, hash FROM %s`, quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("reading migrations table %s: %w", table, err)
	}
	defer rows.Close()

	result := make(map[string]AppliedMigration)
	for rows.Next() {
		var m AppliedMigration
		if err := rows.Scan(&m.ID, &m.Name, &m.Version, &m.Hash); err != nil {
			return nil, fmt.Errorf("scanning migrations table %s: %w", table, err)
		}
		result[m.Name] = m
	}
	return result, rows.Err()
}

// RunMigrations applies every file not yet recorded in the bookkeeping
// table, in ascending version order, skipping files whose content hash
// matches what's already recorded and reporting, without aborting the run,
// files whose recorded hash no longer matches their content — tamper
// detection is a per-file warning, not a fatal error for the whole batch.
func RunMigrations(db *sql.DB, files []MigrationFile, migrationTable string) error {
	if err := ensureMigrationsTable(db, migrationTable); err != nil {
		return err
	}

	applied, err := appliedMigrations(db, migrationTable)
	if err != nil {
		return err
	}

	sorted := append([]MigrationFile(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, f := range sorted {
		sum := sha256.Sum256(f.Content)
		hash := hex.EncodeToString(sum[:])

		if prev, ok := applied[f.Name]; ok {
			if prev.Hash == hash {
				ui.LogMuted(fmt.Sprintf("%s %d: %s", ui.Check(), f.Version, f.Name))
				continue
			}
			ui.LogWarn(fmt.Sprintf("Migration %d (%s) has been modified", f.Version, f.Name))
			continue
		}

		stmts, err := splitStatements(string(f.Content))
		if err != nil {
			ui.LogFail(fmt.Sprintf("%s %d: %s", ui.Cross(), f.Version, f.Name))
			return fmt.Errorf("splitting migration %s: %w", f.Name, err)
		}

		applyErr := func() error {
			for _, stmt := range stmts {
				if _, err := db.Exec(stmt); err != nil {
					return fmt.Errorf("executing statement in %s: %w", f.Name, err)
				}
			}
			_, err := db.Exec(
				fmt.Sprintf(`INSERT INTO %s(name, version, hash) VALUES (?, ?, ?)`, quoteIdent(migrationTable)),
				f.Name, f.Version, hash,
			)
			if err != nil {
				return fmt.Errorf("recording migration %s: %w", f.Name, err)
			}
			return nil
		}()

		if applyErr != nil {
			ui.LogFail(fmt.Sprintf("%s %d: %s", ui.Cross(), f.Version, f.Name))
			return applyErr
		}
		ui.LogPass(fmt.Sprintf("%s %d: %s", ui.Check(), f.Version, f.Name))
	}

	return nil
}
