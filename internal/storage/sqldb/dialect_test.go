package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	assert.Equal(t, "sqlite", dialect.DriverName())
	assert.Equal(t, "SELECT * FROM pools WHERE id = ?", dialect.RewriteQuery("SELECT * FROM pools WHERE id = ?"))
	assert.Nil(t, dialect.TxOptions(false))
	assert.False(t, dialect.IsRetryable(errors.New("boom")))
}

func TestDialectPostgres(t *testing.T) {
	dialect := NewPostgresDialect()

	assert.Equal(t, "postgres", dialect.DriverName())
	assert.Equal(t,
		"INSERT INTO token_allowances (owner, spender, amount) VALUES ($1, $2, $3)",
		dialect.RewriteQuery("INSERT INTO token_allowances (owner, spender, amount) VALUES (?, ?, ?)"))

	opts := dialect.TxOptions(true)
	assert.Equal(t, sql.LevelSerializable, opts.Isolation)
	assert.True(t, opts.ReadOnly)
}

func TestPostgresRetriesSerializationFailures(t *testing.T) {
	dialect := NewPostgresDialect()

	serialization := &pq.Error{Code: "40001"}
	assert.True(t, dialect.IsRetryable(serialization))
	assert.True(t, dialect.IsRetryable(fmt.Errorf("commit: %w", serialization)))
	assert.False(t, dialect.IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, dialect.IsRetryable(errors.New("boom")))
}

func TestSchemaStatementsAreIdempotent(t *testing.T) {
	for _, d := range []Dialect{NewSQLiteDialect(), NewPostgresDialect()} {
		for _, stmt := range d.SchemaStatements() {
			assert.Contains(t, stmt, "IF NOT EXISTS")
		}
	}
}
