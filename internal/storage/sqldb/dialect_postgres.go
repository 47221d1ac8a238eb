package sqldb

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

// serializationFailure is the SQLSTATE Postgres returns when a serializable
// transaction must be retried
const serializationFailure = "40001"

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	// PostgreSQL uses $1, $2, etc. instead of ?
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (d *PostgresDialect) SchemaStatements() []string {
	return []string{
		createPlayers,
		createPools,
		`CREATE TABLE IF NOT EXISTS player_pools (
			pos BIGSERIAL PRIMARY KEY,
			player TEXT NOT NULL,
			pool_id BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS player_pools_player ON player_pools (player, pos)`,
		createNonces,
		createNoncesIndex,
		createBalances,
		createAllowances,
	}
}

func (d *PostgresDialect) TxOptions(readOnly bool) *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: readOnly}
}

func (d *PostgresDialect) IsRetryable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == serializationFailure
}
