package schema

import (
	"regexp"
	"strings"
)

var (
	lineCommentRe    = regexp.MustCompile(`--[^\n]*`)
	whitespaceRunRe  = regexp.MustCompile(`\s+`)
	spaceBeforeParen = regexp.MustCompile(`\s+([(),])`)
	spaceAfterParen  = regexp.MustCompile(`([(),])\s+`)
	quotedIdentRe    = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"`)
)

// normalize collapses a DDL statement into a canonical form used only for
// equality comparison between two CREATE ... texts produced by the same
// SQLite version. The result is never executed.
//
// Steps, applied in order: strip -- line comments, collapse whitespace runs
// to a single space, remove spaces adjacent to ( ) , , unquote bareword
// identifiers, trim.
func normalize(sql string) string {
	s := lineCommentRe.ReplaceAllString(sql, "")
	s = whitespaceRunRe.ReplaceAllString(s, " ")
	s = spaceBeforeParen.ReplaceAllString(s, "$1")
	s = spaceAfterParen.ReplaceAllString(s, "$1")
	s = quotedIdentRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// normalizedEqual reports whether two CREATE texts are equal after
// normalization.
func normalizedEqual(a, b string) bool {
	return normalize(a) == normalize(b)
}
