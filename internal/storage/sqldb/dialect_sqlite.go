package sqldb

import (
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteDialect implements Dialect for SQLite using the pure Go modernc driver
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite"
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	// A single connection serialises writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		return err
	}
	return nil
}

func (d *SQLiteDialect) SchemaStatements() []string {
	return []string{
		createPlayers,
		createPools,
		`CREATE TABLE IF NOT EXISTS player_pools (
			pos INTEGER PRIMARY KEY AUTOINCREMENT,
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

func (d *SQLiteDialect) TxOptions(readOnly bool) *sql.TxOptions {
	// SQLite transactions are always serializable
	return nil
}

func (d *SQLiteDialect) IsRetryable(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
