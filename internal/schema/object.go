// Package schema implements the declarative SQLite schema migration planner
// and applier: given a target schema expressed as SQL DDL and the current
// state of a live database, it computes a minimal, ordered sequence of SQL
// statements that transforms one into the other while preserving
// preservable row data.
package schema

import "regexp"

// Kind is the closed set of DDL object types the planner reasons about.
type Kind int

const (
	Table Kind = iota
	Index
	Trigger
	View
)

func (k Kind) String() string {
	switch k {
	case Table:
		return "TABLE"
	case Index:
		return "INDEX"
	case Trigger:
		return "TRIGGER"
	case View:
		return "VIEW"
	default:
		return "UNKNOWN"
	}
}

// sqliteMasterType is the value stored in sqlite_master.type for each kind.
func (k Kind) sqliteMasterType() string {
	switch k {
	case Table:
		return "table"
	case Index:
		return "index"
	case Trigger:
		return "trigger"
	case View:
		return "view"
	default:
		return ""
	}
}

// kindTraits holds the per-kind behavior that would otherwise be runtime
// polymorphism: the regex used to recover the owning table from a CREATE
// statement, and whether the object must always be explicitly dropped even
// when its owning table is being recreated (see planner.go's view exception).
type kindTraits struct {
	ownerRegexp        *regexp.Regexp
	alwaysExplicitDrop bool
	dropKeyword        string
}

var traits = map[Kind]kindTraits{
	Table: {},
	Index: {
		ownerRegexp: regexp.MustCompile(`(?i)INDEX\s+(?:IF\s+NOT\s+EXISTS\s+)?[^\s(]+\s+ON\s+([^\s(]+)`),
		dropKeyword: "INDEX",
	},
	Trigger: {
		ownerRegexp: regexp.MustCompile(`(?i)\bON\s+([^\s(]+)`),
		dropKeyword: "TRIGGER",
	},
	View: {
		ownerRegexp:        regexp.MustCompile(`(?i)\bFROM\s+([^\s,;()]+)`),
		alwaysExplicitDrop: true,
		dropKeyword:        "VIEW",
	},
}

// OwningTable extracts the name of the table this object is defined over,
// from its literal CREATE text. Returns "" if the kind has no owner concept
// (TABLE) or the regex finds nothing.
func (k Kind) OwningTable(createSQL string) string {
	t, ok := traits[k]
	if !ok || t.ownerRegexp == nil {
		return ""
	}
	m := t.ownerRegexp.FindStringSubmatch(createSQL)
	if len(m) < 2 {
		return ""
	}
	return unquoteIdent(m[1])
}

// AlwaysExplicitDrop reports whether this kind must be explicitly dropped
// even when its owning table is being recreated. True only for VIEW: SQLite
// does not reliably cascade view dependencies through a table rename-swap.
func (k Kind) AlwaysExplicitDrop() bool {
	return traits[k].alwaysExplicitDrop
}

// DropKeyword is the SQL keyword used in "DROP <KEYWORD> <name>".
func (k Kind) DropKeyword() string {
	return traits[k].dropKeyword
}

// SchemaObject is a named DDL object as stored by SQLite in sqlite_master.
type SchemaObject struct {
	// Name is the object's name, case-preserved. Lookups in maps built by
	// the introspector key on the lowercased form.
	Name string
	Kind Kind
	// SQL is the exact CREATE ... text as stored by SQLite.
	SQL string
}

// ColumnInfo mirrors one row of PRAGMA table_info(<table>).
type ColumnInfo struct {
	Name            string
	DeclaredType    string
	NotNull         bool
	DefaultValue    *string
	PrimaryKeyRank  int
}

// ForeignKey mirrors one group of rows from PRAGMA foreign_key_list(<table>)
// sharing the same "id" (a single multi-column FK is one ForeignKey).
type ForeignKey struct {
	ReferencedTable string
	Columns         []ColumnPair
	OnDelete        string
	OnUpdate        string
}

// ColumnPair is a (from, to) column mapping of a foreign key.
type ColumnPair struct {
	From string
	To   string
}

func unquoteIdent(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') ||
			(first == '`' && last == '`') ||
			(first == '[' && last == ']') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
