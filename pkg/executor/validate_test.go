package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuery_Allowed(t *testing.T) {
	queries := []string{
		"SELECT * FROM users",
		"select id from users",
		"  WITH t AS (SELECT 1) SELECT * FROM t",
		"SHOW TABLES",
		"DESCRIBE users",
		"EXPLAIN SELECT * FROM users",
	}
	for _, q := range queries {
		assert.NoError(t, ValidateQuery(q), q)
	}
}

func TestValidateQuery_RejectedPrefix(t *testing.T) {
	queries := []string{
		"VACUUM users",
		"SET search_path TO app",
		"BEGIN",
		"COMMIT",
	}
	for _, q := range queries {
		assert.Error(t, ValidateQuery(q), q)
	}
}

func TestValidateQuery_PrefixIsWholeWord(t *testing.T) {
	// A keyword must match the entire first word; sharing a prefix with one
	// is not enough.
	queries := []string{
		"SELECTION FROM x",
		"SELECTIVELY purge things",
		"SHOWCASE tables",
		"WITHDRAW funds",
		"EXPLAINED SELECT 1",
	}
	for _, q := range queries {
		err := ValidateQuery(q)
		require.Error(t, err, q)
		assert.Contains(t, err.Error(), "only read queries are allowed", q)
	}
}

func TestValidateQuery_ForbiddenKeywords(t *testing.T) {
	queries := []string{
		"SELECT 1; DROP TABLE users",
		"SELECT * FROM users; DELETE FROM users",
		"WITH t AS (SELECT 1) INSERT INTO users SELECT * FROM t",
		"SELECT 1; update users set x = 1",
		"SELECT 1; TRUNCATE users",
		"SELECT 1; ALTER TABLE users ADD c int",
		"SELECT 1; CREATE TABLE t (x int)",
		"SELECT 1; GRANT ALL ON users TO evil",
		"SELECT 1; REVOKE ALL ON users FROM app",
	}
	for _, q := range queries {
		assert.Error(t, ValidateQuery(q), q)
	}
}

func TestValidateQuery_WordBoundary(t *testing.T) {
	// Keywords embedded in identifiers must not trip the deny-list.
	queries := []string{
		"SELECT updated_at FROM users",
		"SELECT created_by, dropout_rate FROM metrics",
		"SELECT * FROM grants_received",
	}
	for _, q := range queries {
		assert.NoError(t, ValidateQuery(q), q)
	}
}

func TestValidateQuery_CommentsStripped(t *testing.T) {
	// A mutation hidden behind comments is still caught.
	assert.Error(t, ValidateQuery("SELECT 1 -- harmless\n; DROP TABLE users"))
	assert.Error(t, ValidateQuery("/* x */ DELETE FROM users"))

	// Comment-only input is empty.
	assert.Error(t, ValidateQuery("-- nothing here"))
	assert.Error(t, ValidateQuery("/* nothing */"))
	assert.Error(t, ValidateQuery("   "))

	// Keywords inside comments do not poison a valid query.
	assert.NoError(t, ValidateQuery("SELECT 1 -- not a DROP\n"))
}

func TestApplyLimit(t *testing.T) {
	q, applied := applyLimit("SELECT * FROM users", 100)
	assert.True(t, applied)
	assert.Equal(t, "SELECT * FROM users LIMIT 100", q)

	// Trailing semicolon is stripped before appending.
	q, applied = applyLimit("SELECT * FROM users;", 50)
	assert.True(t, applied)
	assert.Equal(t, "SELECT * FROM users LIMIT 50", q)

	// An existing LIMIT wins, regardless of case.
	q, applied = applyLimit("SELECT * FROM users limit 5", 100)
	assert.False(t, applied)
	assert.Equal(t, "SELECT * FROM users limit 5", q)

	// Disabled cap leaves the query alone.
	q, applied = applyLimit("SELECT * FROM users", -1)
	assert.False(t, applied)
	assert.Equal(t, "SELECT * FROM users", q)
}

func TestApplyLimit_IdentifierNotMistakenForLimit(t *testing.T) {
	q, applied := applyLimit("SELECT rate_limits FROM plans", 10)
	require.True(t, applied)
	assert.Equal(t, "SELECT rate_limits FROM plans LIMIT 10", q)
}
