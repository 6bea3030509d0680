package schema

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// MigrationStep is an atomic unit of a plan: its Statements must run, in
// order, together.
type MigrationStep struct {
	Kind              Kind
	TargetName        string
	Statements        []string
	RequiresDeferredFK bool
}

// MigrationPlan is an ordered sequence of steps plus a derived flag.
type MigrationPlan struct {
	Steps         []MigrationStep
	AnyDeferredFK bool
}

// Plan computes the minimal, ordered sequence of statements that transforms
// a database matching currentSQL into one matching targetSQL. It is pure:
// both schemas are loaded into private in-memory SQLite databases that are
// closed before Plan returns.
func Plan(currentSQL, targetSQL string) (*MigrationPlan, error) {
	targetDB, err := openPristine(targetSQL)
	if err != nil {
		return nil, wrap(ErrSchemaInvalid, "loading target schema: %v", err)
	}
	defer targetDB.Close()

	currentDB, err := openPristine(currentSQL)
	if err != nil {
		return nil, wrap(ErrSchemaInvalid, "loading current schema: %v", err)
	}
	defer currentDB.Close()

	return plan(currentDB, targetDB)
}

// PlanFromDB is the live-database variant: current is a handle to a real
// (possibly on-disk) SQLite database, target is loaded from targetSQL into
// a private in-memory database.
func PlanFromDB(current *sql.DB, targetSQL string) (*MigrationPlan, error) {
	targetDB, err := openPristine(targetSQL)
	if err != nil {
		return nil, wrap(ErrSchemaInvalid, "loading target schema: %v", err)
	}
	defer targetDB.Close()

	return plan(current, targetDB)
}

func openPristine(sqlText string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	stmts, err := splitStatements(sqlText)
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %q: %w", s, err)
		}
	}
	return db, nil
}

// plan is the pure core: both current and target are live *sql.DB handles
// (current may be a real on-disk database or an in-memory simulation).
func plan(current, target *sql.DB) (*MigrationPlan, error) {
	currentTables, err := listObjects(current, Table)
	if err != nil {
		return nil, fmt.Errorf("listing current tables: %w", err)
	}
	targetTables, err := listObjects(target, Table)
	if err != nil {
		return nil, fmt.Errorf("listing target tables: %w", err)
	}

	dropped, added, modified := diffTableNames(currentTables, targetTables)

	recreated := make(map[string]bool)
	addOnly := make(map[string][]ColumnInfo) // table -> columns to ADD

	for _, t := range modified {
		cls, newCols, err := classifyTableChange(current, target, t)
		if err != nil {
			return nil, err
		}
		if cls == changeStructural {
			recreated[t] = true
		} else {
			addOnly[t] = newCols
		}
	}

	// Build the FK graph over every target table plus the dropped ones
	// (dropped tables become isolated nodes: target has no CREATE text for
	// them, so PRAGMA foreign_key_list(<dropped>) against target returns no
	// rows). The recreation closure and topo ordering below both walk this
	// graph, so it needs every table that will exist in either direction of
	// the migration, not just the target's.
	allNames := make([]string, 0, len(targetTables)+len(dropped))
	for _, obj := range targetTables {
		allNames = append(allNames, obj.Name)
	}
	allNames = append(allNames, dropped...)
	graph, err := buildForeignKeyGraph(target, allNames)
	if err != nil {
		return nil, fmt.Errorf("building foreign key graph: %w", err)
	}

	// Recreation closure: walk the reverse FK graph from each structurally
	// modified table, adding every transitive dependent.
	for t := range recreated {
		for _, dep := range graph.ReverseDependents(lower(t)) {
			// dep is lowercased; recover the original-case name from target.
			if obj, ok := targetTables[dep]; ok && !recreated[obj.Name] {
				recreated[obj.Name] = true
			}
		}
	}
	// A table already scheduled add-only that got pulled into the closure
	// must be recreated instead; its ADD COLUMN statements are folded into
	// the recreate path rather than emitted separately.
	for t := range recreated {
		delete(addOnly, t)
	}

	union := make([]string, 0, len(dropped)+len(added)+len(recreated))
	union = append(union, dropped...)
	union = append(union, added...)
	for t := range recreated {
		union = append(union, t)
	}
	lowerUnion := make([]string, len(union))
	for i, t := range union {
		lowerUnion[i] = lower(t)
	}
	order := graph.TopoOrder(lowerUnion)

	p := &MigrationPlan{}

	// Phase D: drop removed tables, dependents-before-dependencies (reverse
	// topo order).
	droppedSet := toSet(dropped)
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if !droppedSet[name] {
			continue
		}
		orig := findOriginalCase(currentTables, name)
		p.Steps = append(p.Steps, MigrationStep{
			Kind:       Table,
			TargetName: orig,
			Statements: []string{fmt.Sprintf("DROP TABLE %s", quoteIdent(orig))},
		})
	}

	// Phase A: create added tables, dependencies-before-dependents (topo
	// order).
	addedSet := toSet(added)
	for _, name := range order {
		if !addedSet[name] {
			continue
		}
		obj := targetTables[name]
		p.Steps = append(p.Steps, MigrationStep{
			Kind:       Table,
			TargetName: obj.Name,
			Statements: []string{obj.SQL},
		})
	}

	// Phase M-add: in-place ALTER TABLE ADD COLUMN, lexicographic order
	// within the phase so the rendered plan is stable across runs.
	addOnlyTables := make([]string, 0, len(addOnly))
	for t := range addOnly {
		addOnlyTables = append(addOnlyTables, t)
	}
	sort.Slice(addOnlyTables, func(i, j int) bool {
		return strings.ToLower(addOnlyTables[i]) < strings.ToLower(addOnlyTables[j])
	})
	for _, t := range addOnlyTables {
		cols := addOnly[t]
		var stmts []string
		for _, c := range cols {
			stmts = append(stmts, addColumnStatement(t, c))
		}
		p.Steps = append(p.Steps, MigrationStep{
			Kind:       Table,
			TargetName: t,
			Statements: stmts,
		})
	}

	// Phase R: recreate. R.1 rename-away, R.2 create-new, R.3 copy rows,
	// R.4 drop-old.
	recreatedSet := make(map[string]bool, len(recreated))
	for t := range recreated {
		recreatedSet[lower(t)] = true
	}
	var recreateOrder []string
	for _, name := range order {
		if recreatedSet[name] {
			recreateOrder = append(recreateOrder, name)
		}
	}

	if len(recreateOrder) > 0 {
		for _, name := range recreateOrder {
			orig := findOriginalCase(currentTables, name)
			if orig == "" {
				// Table is new-to-current (shouldn't normally happen for a
				// recreate, but guards against a table that only exists
				// because of FK closure over an added table).
				continue
			}
			p.Steps = append(p.Steps, MigrationStep{
				Kind:               Table,
				TargetName:         orig,
				Statements:         []string{fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(orig), quoteIdent(orig+"_old"))},
				RequiresDeferredFK: true,
			})
		}
		for _, name := range recreateOrder {
			obj, ok := targetTables[name]
			if !ok {
				continue
			}
			p.Steps = append(p.Steps, MigrationStep{
				Kind:               Table,
				TargetName:         obj.Name,
				Statements:         []string{obj.SQL},
				RequiresDeferredFK: true,
			})
		}
		for _, name := range recreateOrder {
			origTable := findOriginalCase(currentTables, name)
			targetObj, ok := targetTables[name]
			if !ok || origTable == "" {
				continue
			}
			curCols, err := columns(current, origTable)
			if err != nil {
				return nil, fmt.Errorf("reading columns for %s: %w", origTable, err)
			}
			tgtCols, err := columns(target, targetObj.Name)
			if err != nil {
				return nil, fmt.Errorf("reading columns for %s: %w", targetObj.Name, err)
			}
			common := commonColumns(curCols, tgtCols)
			if len(common) == 0 {
				continue
			}
			if err := checkRecreateFeasible(current, origTable, tgtCols, common); err != nil {
				return nil, err
			}
			colList := strings.Join(quoteIdents(common), ",")
			insert := fmt.Sprintf(
				"INSERT INTO %s (%s) SELECT %s FROM %s",
				quoteIdent(targetObj.Name), colList, colList, quoteIdent(origTable+"_old"),
			)
			p.Steps = append(p.Steps, MigrationStep{
				Kind:               Table,
				TargetName:         targetObj.Name,
				Statements:         []string{insert},
				RequiresDeferredFK: true,
			})
		}
		for i := len(recreateOrder) - 1; i >= 0; i-- {
			orig := findOriginalCase(currentTables, recreateOrder[i])
			if orig == "" {
				continue
			}
			p.Steps = append(p.Steps, MigrationStep{
				Kind:               Table,
				TargetName:         orig,
				Statements:         []string{fmt.Sprintf("DROP TABLE %s", quoteIdent(orig+"_old"))},
				RequiresDeferredFK: true,
			})
		}
	}

	// Index/Trigger/View diff, processed after tables so the recreated set
	// is already final (a recreated table implicitly drops and needs to
	// regain its indexes/triggers, which this diff accounts for).
	for _, k := range []Kind{Index, Trigger, View} {
		steps, err := diffAuxiliaryObjects(current, target, k, recreated)
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, steps...)
	}

	for _, s := range p.Steps {
		if s.RequiresDeferredFK {
			p.AnyDeferredFK = true
			break
		}
	}

	return p, nil
}

type changeClass int

const (
	changeAddOnly changeClass = iota
	changeStructural
)

// classifyTableChange determines whether a modified table's change is
// expressible entirely as ALTER TABLE ADD COLUMN statements.
func classifyTableChange(current, target *sql.DB, table string) (changeClass, []ColumnInfo, error) {
	curCols, err := columns(current, table)
	if err != nil {
		return 0, nil, fmt.Errorf("reading current columns for %s: %w", table, err)
	}
	tgtCols, err := columns(target, table)
	if err != nil {
		return 0, nil, fmt.Errorf("reading target columns for %s: %w", table, err)
	}

	curByName := make(map[string]ColumnInfo, len(curCols))
	for _, c := range curCols {
		curByName[strings.ToLower(c.Name)] = c
	}
	tgtByName := make(map[string]ColumnInfo, len(tgtCols))
	for _, c := range tgtCols {
		tgtByName[strings.ToLower(c.Name)] = c
	}

	// Any current column missing from target forces a recreate (no
	// in-place DROP COLUMN path attempted).
	for name := range curByName {
		if _, ok := tgtByName[name]; !ok {
			return changeStructural, nil, nil
		}
	}

	curFKs, err := foreignKeys(current, table)
	if err != nil {
		return 0, nil, fmt.Errorf("reading current foreign keys for %s: %w", table, err)
	}
	tgtFKs, err := foreignKeys(target, table)
	if err != nil {
		return 0, nil, fmt.Errorf("reading target foreign keys for %s: %w", table, err)
	}
	// ALTER TABLE ADD COLUMN cannot attach a new foreign key to an existing
	// column, and SQLite gives no ALTER path to change one in place either,
	// so any FK-list difference forces a recreate.
	if !sameForeignKeys(curFKs, tgtFKs) {
		return changeStructural, nil, nil
	}

	var newCols []ColumnInfo
	var unmappable []ColumnInfo
	for _, c := range tgtCols {
		if cur, ok := curByName[strings.ToLower(c.Name)]; ok {
			// An existing column whose definition changed cannot be altered
			// in place.
			if !strings.EqualFold(cur.DeclaredType, c.DeclaredType) ||
				cur.NotNull != c.NotNull ||
				cur.PrimaryKeyRank != c.PrimaryKeyRank ||
				(cur.DefaultValue == nil) != (c.DefaultValue == nil) ||
				(cur.DefaultValue != nil && *cur.DefaultValue != *c.DefaultValue) {
				return changeStructural, nil, nil
			}
			continue
		}
		if c.NotNull && c.DefaultValue == nil {
			unmappable = append(unmappable, c)
			continue
		}
		newCols = append(newCols, c)
	}

	if len(unmappable) > 0 {
		// A NOT NULL column with no default cannot be added in place, and
		// recreate can't populate it for existing rows either — only safe
		// when the table is currently empty.
		var rowCount int64
		if err := current.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))).Scan(&rowCount); err != nil {
			return 0, nil, fmt.Errorf("counting rows in %s: %w", table, err)
		}
		if rowCount > 0 {
			names := make([]string, len(unmappable))
			for i, c := range unmappable {
				names[i] = c.Name
			}
			return 0, nil, wrap(ErrPlanInfeasible, "table %s has %d row(s); new NOT NULL column(s) %s have no default", table, rowCount, strings.Join(names, ", "))
		}
		return changeStructural, nil, nil
	}

	if len(newCols) == 0 {
		// Text differs but no column-level difference detected (e.g. a
		// CHECK constraint or table-level option changed) — recreate is
		// the only way to apply it.
		return changeStructural, nil, nil
	}

	return changeAddOnly, newCols, nil
}

func sameForeignKeys(a, b []ForeignKey) bool {
	if len(a) != len(b) {
		return false
	}
	norm := func(fks []ForeignKey) []string {
		out := make([]string, len(fks))
		for i, fk := range fks {
			cols := make([]string, len(fk.Columns))
			for j, c := range fk.Columns {
				cols[j] = strings.ToLower(c.From) + "->" + strings.ToLower(c.To)
			}
			sort.Strings(cols)
			out[i] = fmt.Sprintf("%s|%s|%s|%s", strings.ToLower(fk.ReferencedTable), strings.Join(cols, ","), strings.ToUpper(fk.OnDelete), strings.ToUpper(fk.OnUpdate))
		}
		sort.Strings(out)
		return out
	}
	an, bn := norm(a), norm(b)
	for i := range an {
		if an[i] != bn[i] {
			return false
		}
	}
	return true
}

func addColumnStatement(table string, c ColumnInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(table), quoteIdent(c.Name), c.DeclaredType)
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.DefaultValue != nil {
		fmt.Fprintf(&b, " DEFAULT %s", *c.DefaultValue)
	}
	return b.String()
}

func diffTableNames(current, target map[string]SchemaObject) (dropped, added, modified []string) {
	for name, obj := range current {
		if _, ok := target[name]; !ok {
			dropped = append(dropped, obj.Name)
		}
	}
	for name, obj := range target {
		cur, ok := current[name]
		if !ok {
			added = append(added, obj.Name)
			continue
		}
		if !normalizedEqual(cur.SQL, obj.SQL) {
			modified = append(modified, obj.Name)
		}
	}
	sort.Strings(dropped)
	sort.Strings(added)
	sort.Strings(modified)
	return dropped, added, modified
}

func diffAuxiliaryObjects(current, target *sql.DB, kind Kind, recreated map[string]bool) ([]MigrationStep, error) {
	curObjs, err := listObjects(current, kind)
	if err != nil {
		return nil, fmt.Errorf("listing current %s: %w", kind, err)
	}
	tgtObjs, err := listObjects(target, kind)
	if err != nil {
		return nil, fmt.Errorf("listing target %s: %w", kind, err)
	}

	recreatedLower := make(map[string]bool, len(recreated))
	for t := range recreated {
		recreatedLower[strings.ToLower(t)] = true
	}

	var names []string
	seen := make(map[string]bool)
	for name := range tgtObjs {
		names = append(names, name)
		seen[name] = true
	}
	var droppedNames []string
	for name := range curObjs {
		if !seen[name] {
			droppedNames = append(droppedNames, name)
		}
	}
	sort.Strings(names)
	sort.Strings(droppedNames)

	var steps []MigrationStep

	for _, name := range droppedNames {
		obj := curObjs[name]
		owner := strings.ToLower(kind.OwningTable(obj.SQL))
		if recreatedLower[owner] && !kind.AlwaysExplicitDrop() {
			// Object was destroyed along with its owning table; no
			// explicit drop needed.
			continue
		}
		steps = append(steps, MigrationStep{
			Kind:       kind,
			TargetName: obj.Name,
			Statements: []string{fmt.Sprintf("DROP %s %s", kind.DropKeyword(), quoteIdent(obj.Name))},
		})
	}

	for _, name := range names {
		tgt := tgtObjs[name]
		cur, existed := curObjs[name]
		owner := strings.ToLower(kind.OwningTable(tgt.SQL))
		ownerRecreated := recreatedLower[owner]

		switch {
		case !existed:
			steps = append(steps, MigrationStep{Kind: kind, TargetName: tgt.Name, Statements: []string{tgt.SQL}})
		case ownerRecreated:
			// Owning table was rewritten: the object needs to be emitted
			// again regardless of whether its own SQL text changed, since
			// table recreation destroys it. Views are always explicitly
			// dropped first even in this case; indexes/triggers are not,
			// since CREATE INDEX/TRIGGER IF NOT EXISTS-style redefinition
			// isn't an option in SQLite but a plain re-create after the
			// owning table is gone works fine without the drop.
			if kind.AlwaysExplicitDrop() {
				steps = append(steps, MigrationStep{Kind: kind, TargetName: tgt.Name, Statements: []string{fmt.Sprintf("DROP %s %s", kind.DropKeyword(), quoteIdent(tgt.Name))}})
			}
			steps = append(steps, MigrationStep{Kind: kind, TargetName: tgt.Name, Statements: []string{tgt.SQL}})
		case !normalizedEqual(cur.SQL, tgt.SQL):
			steps = append(steps, MigrationStep{Kind: kind, TargetName: tgt.Name, Statements: []string{fmt.Sprintf("DROP %s %s", kind.DropKeyword(), quoteIdent(tgt.Name))}})
			steps = append(steps, MigrationStep{Kind: kind, TargetName: tgt.Name, Statements: []string{tgt.SQL}})
		}
	}

	return steps, nil
}

// checkRecreateFeasible raises ErrPlanInfeasible when the recreate's
// copy-common-columns step would leave a populated row with no value for a
// new NOT NULL column that has no default.
func checkRecreateFeasible(current *sql.DB, table string, tgtCols []ColumnInfo, common []string) error {
	inCommon := make(map[string]bool, len(common))
	for _, c := range common {
		inCommon[strings.ToLower(c)] = true
	}
	var unmappable []string
	for _, c := range tgtCols {
		if inCommon[strings.ToLower(c.Name)] {
			continue
		}
		if c.NotNull && c.DefaultValue == nil {
			unmappable = append(unmappable, c.Name)
		}
	}
	if len(unmappable) == 0 {
		return nil
	}
	var rowCount int64
	if err := current.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))).Scan(&rowCount); err != nil {
		return fmt.Errorf("counting rows in %s: %w", table, err)
	}
	if rowCount == 0 {
		return nil
	}
	return wrap(ErrPlanInfeasible, "table %s has %d row(s); recreated column(s) %s are NOT NULL with no default", table, rowCount, strings.Join(unmappable, ", "))
}

func commonColumns(current, target []ColumnInfo) []string {
	tgtSet := make(map[string]string, len(target)) // lower -> original case (target's)
	for _, c := range target {
		tgtSet[strings.ToLower(c.Name)] = c.Name
	}
	var common []string
	for _, c := range current {
		if name, ok := tgtSet[strings.ToLower(c.Name)]; ok {
			common = append(common, name)
		}
	}
	return common
}

func quoteIdents(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n)
	}
	return out
}

func toSet(names []string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[lower(n)] = true
	}
	return s
}

func findOriginalCase(objs map[string]SchemaObject, lowerName string) string {
	if obj, ok := objs[lowerName]; ok {
		return obj.Name
	}
	return ""
}
