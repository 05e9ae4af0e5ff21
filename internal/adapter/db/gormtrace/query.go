package gormtrace

import (
	"regexp"
	"strings"
)

var (
	stringLiteralRegex  = regexp.MustCompile(`'(?:[^'\\]|\\.|'')*'`)
	numericLiteralRegex = regexp.MustCompile(`\b\d+\.?\d*\b`)
	hexLiteralRegex     = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
)

// spanName returns the SQL operation of query, or "SQL" when there is none.
func spanName(query string) string {
	if op := extractOperation(query); op != "" {
		return op
	}
	return "SQL"
}

// extractOperation returns the first keyword of query in upper case.
func extractOperation(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	if i := strings.IndexAny(query, " \t\n\r"); i != -1 {
		query = query[:i]
	}
	return strings.ToUpper(query)
}

// SanitizeQuery replaces string, numeric and hex literals with placeholders.
// Positional parameters such as $1 are left alone.
//
//	SanitizeQuery("SELECT * FROM users WHERE email = 'a@b.c' LIMIT 1")
//	// "SELECT * FROM users WHERE email = '?' LIMIT ?"
func SanitizeQuery(query string) string {
	query = stringLiteralRegex.ReplaceAllString(query, "'?'")
	query = hexLiteralRegex.ReplaceAllString(query, "?")

	locs := numericLiteralRegex.FindAllStringIndex(query, -1)
	if len(locs) == 0 {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	last := 0
	for _, loc := range locs {
		if loc[0] > 0 && query[loc[0]-1] == '$' {
			continue
		}
		b.WriteString(query[last:loc[0]])
		b.WriteByte('?')
		last = loc[1]
	}
	b.WriteString(query[last:])
	return b.String()
}
