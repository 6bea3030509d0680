package schema

import "strings"

// splitStatements splits a SQL file's contents into individual statements
// using an explicit character-stream state machine, not regexes, since a
// naive semicolon split breaks on quoted strings, dollar-quoted blocks, and
// BEGIN/END trigger bodies. It understands:
//   - single/double/backtick-quoted strings
//   - $tag$ ... $tag$ dollar-quoted blocks
//   - -- line comments and /* */ block comments
//   - BEGIN ... END and CASE ... END compound blocks (stack-tracked)
//
// Semicolons are statement separators everywhere else. Each produced
// statement is trimmed; empty statements are discarded.
func splitStatements(src string) ([]string, error) {
	var (
		stmts []string
		cur   strings.Builder
		depth int // BEGIN/CASE ... END nesting
		i     int
		n     = len(src)
		// hasCode records whether cur holds anything besides comments,
		// whitespace and separators; comment-only chunks are discarded.
		hasCode bool
	)

	flush := func() {
		s := strings.TrimSpace(cur.String())
		if s != "" && hasCode {
			stmts = append(stmts, s)
		}
		cur.Reset()
		hasCode = false
	}

	isWordByte := func(b byte) bool {
		return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
	}

	// peekWord returns the uppercased keyword starting at i, and its length,
	// if i begins a word boundary (not part of a longer identifier).
	peekWord := func(pos int) (string, int) {
		if pos > 0 && isWordByte(src[pos-1]) {
			return "", 0
		}
		j := pos
		for j < n && isWordByte(src[j]) {
			j++
		}
		if j == pos {
			return "", 0
		}
		return strings.ToUpper(src[pos:j]), j - pos
	}

	for i < n {
		c := src[i]

		switch {
		case c == '-' && i+1 < n && src[i+1] == '-':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				cur.WriteString(src[i:])
				i = n
			} else {
				cur.WriteString(src[i : i+end+1])
				i += end + 1
			}
			continue

		case c == '/' && i+1 < n && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				cur.WriteString(src[i:])
				i = n
			} else {
				cur.WriteString(src[i : i+2+end+2])
				i += 2 + end + 2
			}
			continue

		case c == '\'' || c == '"' || c == '`':
			quote := c
			j := i + 1
			for j < n {
				if src[j] == quote {
					if j+1 < n && src[j+1] == quote {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			cur.WriteString(src[i:j])
			hasCode = true
			i = j
			continue

		case c == '$':
			// $tag$ ... $tag$ dollar-quoted block; tag is [A-Za-z0-9_]*.
			j := i + 1
			for j < n && (isWordByte(src[j])) {
				j++
			}
			if j < n && src[j] == '$' {
				tag := src[i : j+1] // includes both $ delimiters: "$tag$"
				closeIdx := strings.Index(src[j+1:], tag)
				if closeIdx < 0 {
					return nil, wrap(ErrStatementSplit, "unterminated dollar-quoted block %q", tag)
				}
				end := j + 1 + closeIdx + len(tag)
				cur.WriteString(src[i:end])
				hasCode = true
				i = end
				continue
			}
			cur.WriteByte(c)
			hasCode = true
			i++
			continue

		case c == ';' && depth == 0:
			cur.WriteByte(c)
			flush()
			i++
			continue

		default:
			if word, l := peekWord(i); word != "" {
				switch word {
				case "BEGIN":
					// BEGIN TRANSACTION / BEGIN; / BEGIN DEFERRED|IMMEDIATE|
					// EXCLUSIVE is transaction control, not a compound-block
					// opener (no matching END ever follows it); only a bare
					// BEGIN heading straight into a trigger/procedure body
					// increases nesting depth.
					if !startsTransaction(src, i+l) {
						depth++
					}
				case "CASE":
					depth++
				case "END":
					if depth > 0 {
						depth--
					}
				}
				cur.WriteString(src[i : i+l])
				hasCode = true
				i += l
				continue
			}
			cur.WriteByte(c)
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				hasCode = true
			}
			i++
		}
	}
	flush()

	if depth > 0 {
		return nil, wrap(ErrStatementSplit, "unterminated BEGIN/CASE block (%d unclosed)", depth)
	}

	return stripTransactionWrapper(stmts)
}

// stripTransactionWrapper removes a single leading BEGIN TRANSACTION; and
// trailing COMMIT; if present, since the target engine wraps the whole
// batch in its own transaction. A second BEGIN/COMMIT surviving the strip
// means the file has more than one wrapped transaction, which we refuse to
// guess how to merge.
func stripTransactionWrapper(stmts []string) ([]string, error) {
	stripped := stmts
	if len(stripped) > 0 && isBeginTransaction(stripped[0]) {
		stripped = stripped[1:]
	}
	if len(stripped) > 0 && isCommit(stripped[len(stripped)-1]) {
		stripped = stripped[:len(stripped)-1]
	}
	for _, s := range stripped {
		if isBeginTransaction(s) || isCommit(s) {
			return nil, wrap(ErrStatementSplit, "transaction control statement remains after strip: %q", s)
		}
	}
	return stripped, nil
}

// startsTransaction reports whether the BEGIN keyword ending at pos in src
// is transaction control rather than a compound-block opener: either
// nothing but whitespace before the next semicolon, or the next word is
// TRANSACTION, DEFERRED, IMMEDIATE, or EXCLUSIVE.
func startsTransaction(src string, pos int) bool {
	n := len(src)
	j := pos
	for j < n && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
		j++
	}
	if j >= n || src[j] == ';' {
		return true
	}
	k := j
	for k < n && isIdentByte(src[k]) {
		k++
	}
	switch strings.ToUpper(src[j:k]) {
	case "TRANSACTION", "DEFERRED", "IMMEDIATE", "EXCLUSIVE":
		return true
	}
	return false
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func isBeginTransaction(s string) bool {
	u := strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";")))
	return u == "BEGIN TRANSACTION" || u == "BEGIN"
}

func isCommit(s string) bool {
	u := strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";")))
	return u == "COMMIT"
}
