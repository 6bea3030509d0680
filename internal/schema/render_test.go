package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderPlan_PrettyInsertsPhaseComments(t *testing.T) {
	p := &MigrationPlan{
		Steps: []MigrationStep{
			{Kind: Table, TargetName: "a", Statements: []string{"CREATE TABLE a (id INTEGER)"}},
			{Kind: Table, TargetName: "b", Statements: []string{"CREATE TABLE b (id INTEGER)"}},
		},
	}

	pretty := RenderPlan(p, true)
	var comments int
	for _, s := range pretty {
		if strings.HasPrefix(s, "-- ") {
			comments++
		}
	}
	if comments != 2 {
		t.Fatalf("expected a phase comment per distinct target, got %d in %v", comments, pretty)
	}

	plain := RenderPlan(p, false)
	if len(plain) != 2 {
		t.Fatalf("non-pretty render should contain only statements, got %v", plain)
	}
	for _, s := range plain {
		if strings.HasPrefix(s, "-- ") {
			t.Fatalf("non-pretty render should not contain phase comments, got %v", plain)
		}
	}
}

func TestRenderSQL_Basic(t *testing.T) {
	p := &MigrationPlan{
		Steps: []MigrationStep{
			{Kind: Table, TargetName: "a", Statements: []string{"CREATE TABLE a (id INTEGER)"}},
		},
	}
	out := RenderSQL(p)
	if !strings.Contains(out, "CREATE TABLE a (id INTEGER);") {
		t.Fatalf("expected statement terminated with a semicolon, got %q", out)
	}
	if strings.Contains(out, "defer_foreign_keys") {
		t.Fatalf("no step requires deferred FKs, expected no PRAGMA toggle, got %q", out)
	}
}

// Property 6: when any step requires deferred foreign keys, the
// defer_foreign_keys PRAGMA bracket is the first and last statement in the
// rendered script.
func TestRenderSQL_DeferredForeignKeyBracketIsFirstAndLast(t *testing.T) {
	p := &MigrationPlan{
		AnyDeferredFK: true,
		Steps: []MigrationStep{
			{Kind: Table, TargetName: "child", Statements: []string{`ALTER TABLE "child" RENAME TO "child_old"`}, RequiresDeferredFK: true},
			{Kind: Table, TargetName: "child", Statements: []string{"CREATE TABLE child (id INTEGER)"}, RequiresDeferredFK: true},
			{Kind: Table, TargetName: "child", Statements: []string{`DROP TABLE "child_old"`}, RequiresDeferredFK: true},
		},
	}
	out := RenderSQL(p)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected at least the PRAGMA bracket plus statements, got %v", lines)
	}
	if lines[0] != "PRAGMA defer_foreign_keys = ON;" {
		t.Fatalf("expected first line to turn deferred FKs on, got %q", lines[0])
	}
	if lines[len(lines)-1] != "PRAGMA defer_foreign_keys = OFF;" {
		t.Fatalf("expected last line to turn deferred FKs off, got %q", lines[len(lines)-1])
	}
	for _, l := range lines[1 : len(lines)-1] {
		if strings.Contains(l, "defer_foreign_keys") {
			t.Fatalf("defer_foreign_keys PRAGMA must only bracket the script, found mid-script: %q", l)
		}
	}
}

func TestRenderSQL_NoDeferredFKOmitsBracket(t *testing.T) {
	p := &MigrationPlan{
		Steps: []MigrationStep{
			{Kind: Table, TargetName: "a", Statements: []string{"ALTER TABLE a ADD COLUMN email TEXT"}},
		},
	}
	out := RenderSQL(p)
	if strings.Contains(out, "defer_foreign_keys") {
		t.Fatalf("expected no PRAGMA toggle when AnyDeferredFK is false, got %q", out)
	}
}

// Property 5: a single rendered plan never contains both an ADD COLUMN for
// a table and a DROP TABLE for that same table — a table is either add-only
// modified, recreated, or dropped outright, never more than one of those.
func TestPlan_NeverMixesAddColumnAndDropForSameTable(t *testing.T) {
	db := openMem(t)
	exec(t, db,
		`CREATE TABLE keep (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE gone (id INTEGER PRIMARY KEY)`,
	)

	target := `
		CREATE TABLE keep (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT);
	`
	p, err := PlanFromDB(db, target)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	addColumnTables := map[string]bool{}
	dropTableTables := map[string]bool{}
	for _, step := range p.Steps {
		if step.Kind != Table {
			continue
		}
		for _, s := range step.Statements {
			switch {
			case strings.Contains(s, "ADD COLUMN"):
				addColumnTables[strings.ToLower(step.TargetName)] = true
			case strings.HasPrefix(s, "DROP TABLE"):
				dropTableTables[strings.ToLower(step.TargetName)] = true
			}
		}
	}
	if !addColumnTables["keep"] {
		t.Fatalf("expected keep to receive an ADD COLUMN, got %+v", p.Steps)
	}
	if !dropTableTables["gone"] {
		t.Fatalf("expected gone to be dropped, got %+v", p.Steps)
	}
	for name := range addColumnTables {
		if dropTableTables[name] {
			t.Fatalf("table %q has both an ADD COLUMN and a DROP TABLE statement in the same plan", name)
		}
	}
}

// ErrPlanInfeasible, add-only disqualification path: a new NOT NULL column
// with no default on a non-empty table cannot be added in place, and the
// table isn't otherwise structurally different, so classification itself
// must refuse rather than silently emitting an ADD COLUMN that would fail.
func TestPlan_InfeasibleAddOnlyNotNullWithoutDefault(t *testing.T) {
	db := openMem(t)
	exec(t, db,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`INSERT INTO users (id, name) VALUES (1, 'alice')`,
	)

	target := `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER NOT NULL)`
	_, err := PlanFromDB(db, target)
	if err == nil {
		t.Fatal("expected ErrPlanInfeasible, got nil")
	}
	if !errors.Is(err, ErrPlanInfeasible) {
		t.Fatalf("expected ErrPlanInfeasible, got %v", err)
	}
}

// ErrPlanInfeasible, recreate path: the same unmappable-column problem, but
// surfaced after a structural change (dropping users' "legacy" column) sends
// the table down the recreate path instead of the add-only path.
func TestPlan_InfeasibleRecreateNotNullWithoutDefault(t *testing.T) {
	db := openMem(t)
	exec(t, db,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, legacy TEXT)`,
		`INSERT INTO users (id, name, legacy) VALUES (1, 'alice', 'x')`,
	)

	// Dropping "legacy" and adding a NOT NULL "age" without a default both
	// force a recreate, and the existing row has no value to backfill age
	// with.
	target := `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER NOT NULL)`
	_, err := PlanFromDB(db, target)
	if err == nil {
		t.Fatal("expected ErrPlanInfeasible, got nil")
	}
	if !errors.Is(err, ErrPlanInfeasible) {
		t.Fatalf("expected ErrPlanInfeasible, got %v", err)
	}
}

func TestPlan_InfeasibleSkippedWhenTableEmpty(t *testing.T) {
	db := openMem(t)
	exec(t, db, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)

	target := `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER NOT NULL)`
	p, err := PlanFromDB(db, target)
	if err != nil {
		t.Fatalf("expected an empty table to allow the new NOT NULL column, got %v", err)
	}
	if len(p.Steps) == 0 {
		t.Fatal("expected a plan recreating or altering the table")
	}
}

// S4 — a table rename is indistinguishable from a drop-and-create: the
// planner diffs by name, so renaming users -> customers drops the old table
// and creates the new one rather than emitting ALTER TABLE RENAME TO.
func TestPlan_RenameIsDropAndCreate(t *testing.T) {
	db := openMem(t)
	exec(t, db, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`)

	target := `CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)`
	p, err := PlanFromDB(db, target)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	var sawDropUsers, sawCreateCustomers bool
	for _, step := range p.Steps {
		for _, s := range step.Statements {
			if strings.Contains(s, "DROP TABLE") && strings.Contains(strings.ToLower(s), "users") {
				sawDropUsers = true
			}
			if strings.HasPrefix(s, "CREATE TABLE customers") {
				sawCreateCustomers = true
			}
		}
	}
	if !sawDropUsers || !sawCreateCustomers {
		t.Fatalf("expected DROP TABLE users + CREATE TABLE customers, got %+v", p.Steps)
	}

	rendered := RenderSQL(p)
	if !strings.Contains(rendered, `DROP TABLE "users"`) && !strings.Contains(rendered, "DROP TABLE users") {
		t.Fatalf("expected rendered SQL to drop users, got %q", rendered)
	}
	if !strings.Contains(rendered, "CREATE TABLE customers") {
		t.Fatalf("expected rendered SQL to create customers, got %q", rendered)
	}
}
