package schema

import (
	"database/sql"
	"fmt"
	"strings"
)

// reservedPrefixes are engine-internal or tooling-internal object name
// prefixes filtered out of every introspection query.
var reservedPrefixes = []string{"sqlite_", "_cf_"}

func isReservedName(lowerName string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(lowerName, p) {
			return true
		}
	}
	return strings.Contains(lowerName, "_calljmp_")
}

// listObjects queries sqlite_master for every object of the given kind,
// keyed by lowercased name, excluding reserved/internal names.
func listObjects(db *sql.DB, kind Kind) (map[string]SchemaObject, error) {
	rows, err := db.Query(
		`SELECT name, sql FROM sqlite_master WHERE type = ? AND sql IS NOT NULL`,
		kind.sqliteMasterType(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s objects: %w", kind, err)
	}
	defer rows.Close()

	result := make(map[string]SchemaObject)
	for rows.Next() {
		var name, createSQL string
		if err := rows.Scan(&name, &createSQL); err != nil {
			return nil, fmt.Errorf("scanning %s object: %w", kind, err)
		}
		lower := strings.ToLower(name)
		if isReservedName(lower) {
			continue
		}
		result[lower] = SchemaObject{Name: name, Kind: kind, SQL: createSQL}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s objects: %w", kind, err)
	}
	return result, nil
}

// columns returns a table's columns in declaration order via
// PRAGMA table_info.
func columns(db *sql.DB, table string) ([]ColumnInfo, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("reading table_info(%s): %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var cid int
		var name, declType string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning table_info(%s): %w", table, err)
		}
		ci := ColumnInfo{
			Name:           name,
			DeclaredType:   declType,
			NotNull:        notNull != 0,
			PrimaryKeyRank: pk,
		}
		if dflt.Valid {
			v := dflt.String
			ci.DefaultValue = &v
		}
		cols = append(cols, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating table_info(%s): %w", table, err)
	}
	return cols, nil
}

// foreignKeys returns a table's foreign keys via PRAGMA foreign_key_list,
// grouping rows that share the same "id" into one multi-column ForeignKey.
func foreignKeys(db *sql.DB, table string) ([]ForeignKey, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA foreign_key_list(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("reading foreign_key_list(%s): %w", table, err)
	}
	defer rows.Close()

	type fkRow struct {
		id                  int
		refTable, from, to  string
		onUpdate, onDelete  string
	}
	var raw []fkRow
	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("scanning foreign_key_list(%s): %w", table, err)
		}
		raw = append(raw, fkRow{id: id, refTable: refTable, from: from, to: to, onUpdate: onUpdate, onDelete: onDelete})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating foreign_key_list(%s): %w", table, err)
	}

	byID := make(map[int]*ForeignKey)
	var order []int
	for _, r := range raw {
		fk, ok := byID[r.id]
		if !ok {
			fk = &ForeignKey{ReferencedTable: r.refTable, OnDelete: r.onDelete, OnUpdate: r.onUpdate}
			byID[r.id] = fk
			order = append(order, r.id)
		}
		fk.Columns = append(fk.Columns, ColumnPair{From: r.from, To: r.to})
	}

	result := make([]ForeignKey, 0, len(order))
	for _, id := range order {
		result = append(result, *byID[id])
	}
	return result, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
