package executor

import (
	"fmt"
	"regexp"
	"strings"
)

// allowedPrefixes are the statement keywords a query may start with. The
// check runs before any database round trip.
var allowedPrefixes = []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN"}

// forbiddenKeywords are rejected anywhere in the statement, as whole words.
// This is a textual heuristic: it blocks obvious mutations cheaply, while the
// session-level read-only directive provides the hard guarantee.
var forbiddenKeywords = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "TRUNCATE",
	"ALTER", "CREATE", "GRANT", "REVOKE",
}

var (
	lineCommentRe  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	forbiddenRe    = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)
)

// stripComments removes line and block comments so hidden keywords cannot
// ride inside them.
func stripComments(query string) string {
	query = lineCommentRe.ReplaceAllString(query, "")
	query = blockCommentRe.ReplaceAllString(query, "")
	return query
}

// ValidateQuery rejects queries that are empty, do not start with a read
// keyword, or contain a mutating keyword anywhere in the statement.
func ValidateQuery(query string) error {
	stripped := strings.TrimSpace(stripComments(query))
	if stripped == "" {
		return fmt.Errorf("query is empty")
	}

	// Compare the whole first word, not a prefix: "SELECTIVELY ..." is not a
	// SELECT.
	first := strings.Fields(strings.ToUpper(stripped))[0]
	allowed := false
	for _, prefix := range allowedPrefixes {
		if first == prefix {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("only read queries are allowed (%s)",
			strings.Join(allowedPrefixes, ", "))
	}

	if match := forbiddenRe.FindString(stripped); match != "" {
		return fmt.Errorf("forbidden keyword %q in query", strings.ToUpper(match))
	}
	return nil
}

var limitRe = regexp.MustCompile(`(?i)\bLIMIT\b`)

// applyLimit appends a LIMIT clause unless the query already carries one.
// Trailing semicolons are stripped so the clause lands inside the statement.
func applyLimit(query string, limit int) (string, bool) {
	if limit <= 0 || limitRe.MatchString(query) {
		return query, false
	}
	trimmed := strings.TrimRight(strings.TrimSpace(query), ";")
	return fmt.Sprintf("%s LIMIT %d", trimmed, limit), true
}
