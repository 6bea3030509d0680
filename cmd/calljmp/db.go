package main

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/config"
	"github.com/Calljmp/calljmp-cli/internal/schema"
	"github.com/Calljmp/calljmp-cli/internal/ui"
)

var (
	migrateDryRun bool
	migratePretty bool
	migrateRemote bool
)

var dbCmd = &cobra.Command{
	Use:     "db",
	GroupID: "schema",
	Short:   "Plan, apply, and track declarative SQLite schema migrations",
	Long: `db drives the core migration planner (internal/schema) against the
project's sandbox database: diff the schema directory against the live
database, write the result as a new versioned migration file, and apply
every not-yet-applied file exactly once, tracked by content hash in the
_calljmp_migrations table.`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Diff, generate, and apply a migration",
	RunE:  runDBMigrate,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migration files",
	RunE:  runDBStatus,
}

func runDBMigrate(cmd *cobra.Command, _ []string) error {
	db, err := openSandboxDB()
	if err != nil {
		return err
	}
	defer db.Close()

	dir := migrationsDir()
	target, err := readTargetSchema(manifestOrDefaults())
	if err != nil {
		return err
	}

	p, err := schema.PlanFromDB(db, target)
	if err != nil {
		return err
	}
	if len(p.Steps) == 0 {
		ui.LogMuted("schema already up to date")
		return nil
	}

	if migrateDryRun {
		if migratePretty {
			for _, line := range schema.RenderPlan(p, true) {
				fmt.Println(line)
			}
		} else {
			fmt.Print(schema.RenderSQL(p))
		}
		return nil
	}

	if !ui.ConfirmDestructive(fmt.Sprintf("%d step(s) will be written and applied", len(p.Steps))) {
		ui.LogWarn("aborted")
		return nil
	}

	version, err := nextMigrationVersion(dir)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("auto-%s", version)
	content := schema.RenderSQL(p)
	if err := writeMigrationFile(dir, version, name, content); err != nil {
		return err
	}

	files, err := loadMigrationFiles(dir)
	if err != nil {
		return err
	}
	if err := schema.RunMigrations(db, files, config.GetString("migrations-table")); err != nil {
		return err
	}

	if migrateRemote {
		if err := pushLatestMigration(cmd, []byte(content)); err != nil {
			return err
		}
	}

	ui.LogPass(fmt.Sprintf("migration %s applied (%d statement groups)", name, len(p.Steps)))
	return nil
}

func pushLatestMigration(cmd *cobra.Command, content []byte) error {
	projectID := config.GetString("project")
	if projectID == "" {
		return fmt.Errorf("no project configured; set CALLJMP_PROJECT or run `calljmp projects use <id>`")
	}

	// A client-side correlation id for this push attempt, logged so a user
	// can match CLI output to control-plane logs; distinct from the
	// server-issued bookmark MigrateRemote polls on.
	pushID := uuid.NewString()
	ui.LogMuted(fmt.Sprintf("pushing migration (push id %s)", pushID))

	client := transportClient()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = rootCtx
	}
	if err := client.MigrateRemote(ctx, projectID, content, nil); err != nil {
		return err
	}
	ui.LogPass("remote migration complete")
	return nil
}

func runDBStatus(_ *cobra.Command, _ []string) error {
	db, err := openSandboxDB()
	if err != nil {
		return err
	}
	defer db.Close()

	table := config.GetString("migrations-table")
	applied, err := appliedVersions(db, table)
	if err != nil {
		return err
	}

	files, err := loadMigrationFiles(migrationsDir())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		ui.LogMuted("no migration files found")
		return nil
	}

	for _, f := range files {
		status := "pending"
		if applied[f.Name] {
			status = "applied"
		}
		fmt.Printf("%04d  %-30s %s\n", f.Version, f.Name, status)
	}
	return nil
}

// appliedVersions returns the set of migration names recorded in table,
// creating it first if it doesn't exist yet (mirrors schema.RunMigrations'
// own lazy-create, so "db status" works before the first "db migrate").
func appliedVersions(db *sql.DB, table string) (map[string]bool, error) {
	if _, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS "%s" (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, version INTEGER NOT NULL, hash TEXT NOT NULL)`,
		table,
	)); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}
	rows, err := db.Query(fmt.Sprintf(`SELECT name FROM "%s"`, table))
	if err != nil {
		return nil, fmt.Errorf("reading migrations table: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning migrations table: %w", err)
		}
		result[name] = true
	}
	return result, rows.Err()
}

func init() {
	dbMigrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "print the plan without writing a migration file or applying it")
	dbMigrateCmd.Flags().BoolVar(&migratePretty, "pretty", false, "with --dry-run, interleave phase comments between statement groups")
	dbMigrateCmd.Flags().BoolVar(&migrateRemote, "remote", false, "after a successful local apply, push the migration to the control plane")

	dbCmd.PersistentFlags().StringVar(&migrationsDirFlag, "migrations-dir", "", "directory of versioned migration files (default: <schema-dir>/migrations)")
	dbCmd.AddCommand(dbMigrateCmd, dbStatusCmd)
}
