package schema

import (
	"database/sql"
	"strings"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

func openMem(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func exec(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
}

func applyPlan(t *testing.T, db *sql.DB, p *MigrationPlan) {
	t.Helper()
	if err := Apply(db, p); err != nil {
		t.Fatalf("apply: %v", err)
	}
}

// S1 — add a nullable column in place.
func TestPlan_AddOnlyColumn(t *testing.T) {
	db := openMem(t)
	exec(t, db, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)

	target := `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT)`
	p, err := PlanFromDB(db, target)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(p.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d: %+v", len(p.Steps), p.Steps)
	}
	stmt := p.Steps[0].Statements[0]
	if !strings.Contains(stmt, "ALTER TABLE") || !strings.Contains(stmt, "ADD COLUMN") {
		t.Fatalf("expected ALTER TABLE ADD COLUMN, got %q", stmt)
	}

	applyPlan(t, db, p)

	exec(t, db, `INSERT INTO users (id, name, email) VALUES (1, 'a', 'a@x.com')`)

	p2, err := PlanFromDB(db, target)
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if len(p2.Steps) != 0 {
		t.Fatalf("expected no-op replan, got %+v", p2.Steps)
	}
}

// S2/S3 — a structural change (dropping a column) forces a recreate, and
// preservable rows in a common column survive.
func TestPlan_RecreatePreservesCommonColumns(t *testing.T) {
	db := openMem(t)
	exec(t, db,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, legacy_flag INTEGER)`,
		`INSERT INTO users (id, name, legacy_flag) VALUES (1, 'alice', 1), (2, 'bob', 0)`,
	)

	target := `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`
	p, err := PlanFromDB(db, target)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	var sawRename, sawCreate, sawCopy, sawDropOld bool
	for _, step := range p.Steps {
		for _, s := range step.Statements {
			switch {
			case strings.Contains(s, "RENAME TO"):
				sawRename = true
			case strings.HasPrefix(s, "CREATE TABLE") && strings.Contains(s, `"users"`) || strings.Contains(s, "CREATE TABLE users"):
				sawCreate = true
			case strings.Contains(s, "INSERT INTO"):
				sawCopy = true
			case strings.Contains(s, "DROP TABLE") && strings.Contains(s, "_old"):
				sawDropOld = true
			}
		}
	}
	if !sawRename || !sawCreate || !sawCopy || !sawDropOld {
		t.Fatalf("expected full recreate sequence, got %+v", p.Steps)
	}

	applyPlan(t, db, p)

	var name string
	if err := db.QueryRow(`SELECT name FROM users WHERE id = 1`).Scan(&name); err != nil {
		t.Fatalf("row not preserved: %v", err)
	}
	if name != "alice" {
		t.Fatalf("expected alice, got %s", name)
	}
}

// S3 — foreign-key-respecting cascade through a recreate.
func TestPlan_RecreateCascadesThroughForeignKeys(t *testing.T) {
	db := openMem(t)
	exec(t, db,
		`CREATE TABLE parent (id INTEGER PRIMARY KEY, extra TEXT)`,
		`CREATE TABLE child (id INTEGER PRIMARY KEY, parent_id INTEGER REFERENCES parent(id))`,
		`INSERT INTO parent (id, extra) VALUES (1, 'x')`,
		`INSERT INTO child (id, parent_id) VALUES (10, 1)`,
	)

	target := `
		CREATE TABLE parent (id INTEGER PRIMARY KEY);
		CREATE TABLE child (id INTEGER PRIMARY KEY, parent_id INTEGER REFERENCES parent(id));
	`
	p, err := PlanFromDB(db, target)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !p.AnyDeferredFK {
		t.Fatalf("expected AnyDeferredFK for a recreate that pulls in a dependent table")
	}

	var touchedChild bool
	for _, step := range p.Steps {
		if strings.EqualFold(step.TargetName, "child") {
			touchedChild = true
		}
	}
	if !touchedChild {
		t.Fatalf("expected child table to be pulled into the recreate closure, got %+v", p.Steps)
	}

	applyPlan(t, db, p)

	var parentID int
	if err := db.QueryRow(`SELECT parent_id FROM child WHERE id = 10`).Scan(&parentID); err != nil {
		t.Fatalf("child row not preserved: %v", err)
	}
	if parentID != 1 {
		t.Fatalf("expected parent_id 1, got %d", parentID)
	}
}

// View drop/create asymmetry: a view over a recreated table is always
// explicitly dropped and recreated, unlike an index or trigger.
func TestPlan_ViewAlwaysExplicitlyDropped(t *testing.T) {
	db := openMem(t)
	exec(t, db,
		`CREATE TABLE t (id INTEGER PRIMARY KEY, a TEXT, legacy INTEGER)`,
		`CREATE VIEW v AS SELECT id, a FROM t`,
		`CREATE INDEX idx_t_a ON t(a)`,
	)

	target := `
		CREATE TABLE t (id INTEGER PRIMARY KEY, a TEXT);
		CREATE VIEW v AS SELECT id, a FROM t;
		CREATE INDEX idx_t_a ON t(a);
	`
	p, err := PlanFromDB(db, target)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	var sawDropView bool
	for _, step := range p.Steps {
		if step.Kind == View {
			for _, s := range step.Statements {
				if strings.HasPrefix(s, "DROP VIEW") {
					sawDropView = true
				}
			}
		}
	}
	if !sawDropView {
		t.Fatalf("expected an explicit DROP VIEW even though owning table was recreated, got %+v", p.Steps)
	}

	applyPlan(t, db, p)
}

// Idempotence: planning against an unchanged schema yields an empty plan.
func TestPlan_NoOpWhenUnchanged(t *testing.T) {
	db := openMem(t)
	ddl := `CREATE TABLE t (id INTEGER PRIMARY KEY, a TEXT NOT NULL)`
	exec(t, db, ddl)

	p, err := PlanFromDB(db, ddl)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(p.Steps) != 0 {
		t.Fatalf("expected no-op plan, got %+v", p.Steps)
	}
}

// Cycles in the FK graph do not error. The lexicographic tie-break inside a
// cycle is checked in fkgraph_test.go.
func TestPlan_CyclicForeignKeysDoNotError(t *testing.T) {
	db := openMem(t)
	exec(t, db,
		`CREATE TABLE a (id INTEGER PRIMARY KEY, b_id INTEGER)`,
		`CREATE TABLE b (id INTEGER PRIMARY KEY, a_id INTEGER REFERENCES a(id))`,
	)

	target := `
		CREATE TABLE a (id INTEGER PRIMARY KEY, b_id INTEGER REFERENCES b(id), tag TEXT);
		CREATE TABLE b (id INTEGER PRIMARY KEY, a_id INTEGER REFERENCES a(id), tag TEXT);
	`
	_, err := PlanFromDB(db, target)
	if err != nil {
		t.Fatalf("expected cyclic FK graph to plan without error, got %v", err)
	}
}
