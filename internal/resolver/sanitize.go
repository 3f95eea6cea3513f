package resolver

import (
	"fmt"
	"regexp"
	"strings"
)

// statementStarts are the keywords that open a statement on a fresh line.
var statementStarts = []string{
	"SELECT", "WITH", "INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE", "EXPLAIN",
}

// continuations are the keywords that may open a line inside a statement.
var continuations = []string{
	"FROM", "WHERE", "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "ON", "AND", "OR", "NOT",
	"GROUP", "ORDER", "HAVING", "LIMIT", "OFFSET", "UNION", "INTERSECT", "EXCEPT", "AS", "CASE",
	"WHEN", "THEN", "ELSE", "END", "SET", "VALUES", "RETURNING", "DISTINCT", "IN", "IS", "LIKE",
	"BETWEEN", "EXISTS", "ASC", "DESC",
}

var (
	// cteHead matches the opening of a common table expression, which tells
	// "WITH recent AS (" apart from a sentence that starts with "With".
	cteHead = regexp.MustCompile(`(?i)^WITH\s+(RECURSIVE\s+)?[A-Za-z_][A-Za-z0-9_]*\s*(\([^)]*\)\s*)?AS\s*(\(|$)`)

	// shapeWords are clause words that only appear on a statement line.
	shapeWords = regexp.MustCompile(`(?i)\b(FROM|INTO|SET|VALUES|TABLE|WHERE|JOIN)\b`)
)

// Sanitize reduces a raw oracle completion to a single statement:
// code fences are stripped, comment and prose lines dropped, the first
// SELECT of several statements kept (else the first statement), and the
// trailing terminator removed. It returns ErrTranslation when nothing
// usable remains.
func Sanitize(raw string) (string, error) {
	lines := sqlLines(stripFences(raw))
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: no SQL in completion", ErrTranslation)
	}

	stmt := pickStatement(strings.Join(lines, "\n"))
	stmt = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(stmt), ";"))
	if stmt == "" {
		return "", fmt.Errorf("%w: empty statement", ErrTranslation)
	}
	return stmt, nil
}

func stripFences(raw string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func sqlLines(lines []string) []string {
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) || isProse(trimmed) {
			continue
		}
		kept = append(kept, line)
	}

	var out []string
	inStatement := false
	prev := ""
	for i, line := range kept {
		trimmed := strings.TrimSpace(line)

		switch {
		case opensStatement(trimmed, following(kept, i)):
		case inStatement && continuesStatement(line, trimmed, prev):
		default:
			// Prose, possibly with a statement embedded after a lead-in.
			idx := strings.Index(strings.ToUpper(trimmed), "SELECT ")
			if idx <= 0 || !hasSQLShape(trimmed[idx:]) {
				inStatement = false
				continue
			}
			trimmed = trimmed[idx:]
		}

		out = append(out, trimmed)
		prev = trimmed
		inStatement = !strings.HasSuffix(trimmed, ";")
	}
	return out
}

func following(lines []string, i int) string {
	if i+1 < len(lines) {
		return lines[i+1]
	}
	return ""
}

// opensStatement reports whether trimmed starts a statement. A longer
// keyword line without any clause shape only counts when the next line
// carries the statement on.
func opensStatement(trimmed, next string) bool {
	if !startsWithAny(trimmed, statementStarts) {
		return false
	}
	if hasKeyword(trimmed, "WITH") {
		return strings.EqualFold(trimmed, "WITH") || cteHead.MatchString(trimmed)
	}
	if len(strings.Fields(trimmed)) <= 2 || hasSQLShape(trimmed) {
		return true
	}
	return next != "" && continuesStatement(next, strings.TrimSpace(next), trimmed)
}

func hasSQLShape(s string) bool {
	return strings.ContainsAny(s, "*(),=;<>+") || shapeWords.MatchString(s)
}

// isProse reports lines that end like a sentence or a lead-in.
func isProse(trimmed string) bool {
	last := trimmed[len(trimmed)-1]
	switch last {
	case ':', '?', '!':
		return true
	case '.':
		if len(trimmed) < 2 {
			return true
		}
		c := trimmed[len(trimmed)-2]
		return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
	}
	return false
}

func pickStatement(text string) string {
	var statements []string
	for _, part := range splitStatements(text) {
		if part = strings.TrimSpace(part); part != "" {
			statements = append(statements, part)
		}
	}
	if len(statements) == 0 {
		return ""
	}
	for _, s := range statements {
		if hasKeyword(s, "SELECT") {
			return s
		}
	}
	return statements[0]
}

// splitStatements splits on terminators outside quoted literals and
// identifiers. A doubled quote toggles twice and so stays inside.
func splitStatements(text string) []string {
	var (
		parts []string
		quote byte
		start int
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}

func continuesStatement(line, trimmed, prev string) bool {
	if line != strings.TrimLeft(line, " \t") {
		return true
	}
	if strings.HasSuffix(prev, ",") || strings.HasSuffix(prev, "(") {
		return true
	}
	if strings.HasPrefix(trimmed, ")") || strings.HasPrefix(trimmed, ",") {
		return true
	}
	return startsWithAny(trimmed, continuations)
}

func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "--") ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "/*")
}

func startsWithAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if hasKeyword(s, kw) {
			return true
		}
	}
	return false
}

// hasKeyword reports whether s starts with kw as a whole word, ignoring case.
func hasKeyword(s, kw string) bool {
	if len(s) < len(kw) || !strings.EqualFold(s[:len(kw)], kw) {
		return false
	}
	if len(s) == len(kw) {
		return true
	}
	next := s[len(kw)]
	return !(next == '_' || next >= '0' && next <= '9' || next >= 'a' && next <= 'z' || next >= 'A' && next <= 'Z')
}
