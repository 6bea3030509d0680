package schema

import (
	"reflect"
	"sort"
	"testing"
)

func TestForeignKeyGraph_ReverseDependents(t *testing.T) {
	db := openMem(t)
	exec(t, db,
		`CREATE TABLE grandparent (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE parent (id INTEGER PRIMARY KEY, gp_id INTEGER REFERENCES grandparent(id))`,
		`CREATE TABLE child (id INTEGER PRIMARY KEY, p_id INTEGER REFERENCES parent(id))`,
		`CREATE TABLE unrelated (id INTEGER PRIMARY KEY)`,
	)

	g, err := buildForeignKeyGraph(db, []string{"grandparent", "parent", "child", "unrelated"})
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}

	deps := g.ReverseDependents("grandparent")
	sort.Strings(deps)
	if !reflect.DeepEqual(deps, []string{"child", "parent"}) {
		t.Fatalf("expected [child parent], got %v", deps)
	}

	if got := g.ReverseDependents("unrelated"); len(got) != 0 {
		t.Fatalf("expected no dependents for unrelated, got %v", got)
	}
}

func TestForeignKeyGraph_TopoOrderRespectsDependencies(t *testing.T) {
	db := openMem(t)
	exec(t, db,
		`CREATE TABLE grandparent (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE parent (id INTEGER PRIMARY KEY, gp_id INTEGER REFERENCES grandparent(id))`,
		`CREATE TABLE child (id INTEGER PRIMARY KEY, p_id INTEGER REFERENCES parent(id))`,
	)
	g, err := buildForeignKeyGraph(db, []string{"grandparent", "parent", "child"})
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}

	order := g.TopoOrder([]string{"child", "parent", "grandparent"})
	pos := make(map[string]int, len(order))
	for i, t := range order {
		pos[t] = i
	}
	if pos["grandparent"] > pos["parent"] || pos["parent"] > pos["child"] {
		t.Fatalf("expected grandparent < parent < child, got order %v", order)
	}
}

func TestForeignKeyGraph_CyclesTieBreakLexicographically(t *testing.T) {
	db := openMem(t)
	exec(t, db,
		`CREATE TABLE b (id INTEGER PRIMARY KEY, a_id INTEGER REFERENCES a(id))`,
		`CREATE TABLE a (id INTEGER PRIMARY KEY, b_id INTEGER REFERENCES b(id))`,
	)
	_, err := db.Exec(`CREATE TABLE c (id INTEGER PRIMARY KEY)`)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	g, err := buildForeignKeyGraph(db, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	// a and b reference each other, forming a 2-cycle: the graph must not
	// error, must place every requested node exactly once, and must order
	// the cycle's members lexicographically.
	order := g.TopoOrder([]string{"a", "b", "c"})
	if len(order) != 3 {
		t.Fatalf("expected all 3 nodes in order, got %v", order)
	}
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	if pos["a"] > pos["b"] {
		t.Fatalf("expected a before b within the cycle, got order %v", order)
	}
}
