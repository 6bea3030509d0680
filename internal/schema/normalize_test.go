package schema

import "testing"

func TestNormalizedEqual(t *testing.T) {
	cases := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{
			name:  "whitespace and comment differences ignored",
			a:     "CREATE TABLE t (id INTEGER, name TEXT)",
			b:     "CREATE TABLE t (\n  id INTEGER, -- primary key\n  name TEXT\n)",
			equal: true,
		},
		{
			name:  "quoted identifiers equal to barewords",
			a:     `CREATE TABLE "t" ("id" INTEGER)`,
			b:     `CREATE TABLE t (id INTEGER)`,
			equal: true,
		},
		{
			name:  "space around commas and parens ignored",
			a:     "CREATE TABLE t ( id INTEGER , name TEXT )",
			b:     "CREATE TABLE t(id INTEGER,name TEXT)",
			equal: true,
		},
		{
			name:  "column type difference is significant",
			a:     "CREATE TABLE t (id INTEGER)",
			b:     "CREATE TABLE t (id TEXT)",
			equal: false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := normalizedEqual(c.a, c.b); got != c.equal {
				t.Fatalf("normalizedEqual(%q, %q) = %v, want %v", c.a, c.b, got, c.equal)
			}
		})
	}
}
