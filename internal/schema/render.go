package schema

import "fmt"

// RenderPlan renders a plan's statements for display or for writing a
// migration file. pretty inserts a blank line and a phase comment between
// groups of steps touching different objects; it has no effect on which
// statements are produced by Plan.
func RenderPlan(p *MigrationPlan, pretty bool) []string {
	var out []string
	var lastTarget string
	for _, step := range p.Steps {
		if pretty && step.TargetName != lastTarget {
			if len(out) > 0 {
				out = append(out, "")
			}
			out = append(out, fmt.Sprintf("-- %s %s", step.Kind, step.TargetName))
			lastTarget = step.TargetName
		}
		out = append(out, step.Statements...)
	}
	return out
}

// RenderSQL joins a plan's statements into a single executable script,
// wrapping it in PRAGMA defer_foreign_keys toggles when any step requires
// them: table recreation always needs this, because the rename/create/
// copy/drop sequence holds a transient state where FKs would otherwise fail
// mid-sequence.
func RenderSQL(p *MigrationPlan) string {
	stmts := RenderPlan(p, true)
	var sb []byte
	write := func(s string) { sb = append(sb, s+"\n"...) }

	if p.AnyDeferredFK {
		write("PRAGMA defer_foreign_keys = ON;")
	}
	for _, s := range stmts {
		if len(s) == 0 {
			continue
		}
		if s[0] == '-' {
			write(s)
			continue
		}
		write(s + ";")
	}
	if p.AnyDeferredFK {
		write("PRAGMA defer_foreign_keys = OFF;")
	}
	return string(sb)
}
