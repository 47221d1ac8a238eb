package sqldb

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect defines the database-specific parts of the SQL backend
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// SchemaStatements returns the CREATE statements for every table, idempotent
	SchemaStatements() []string

	// TxOptions returns the options used to begin a transaction
	TxOptions(readOnly bool) *sql.TxOptions

	// IsRetryable reports whether err is a serialization failure worth retrying
	IsRetryable(err error) bool
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// Tables shared by both dialects. Unsigned 64-bit quantities are stored as
// decimal TEXT since neither database has an unsigned BIGINT.
const (
	createPlayers = `
		CREATE TABLE IF NOT EXISTS players (
			address TEXT PRIMARY KEY,
			seq BIGINT NOT NULL,
			record TEXT NOT NULL
		)`
	createPools = `
		CREATE TABLE IF NOT EXISTS pools (
			id BIGINT PRIMARY KEY,
			address TEXT NOT NULL UNIQUE,
			record TEXT NOT NULL
		)`
	createNonces = `
		CREATE TABLE IF NOT EXISTS used_nonces (
			nonce TEXT PRIMARY KEY,
			player TEXT NOT NULL,
			claimed_at BIGINT NOT NULL,
			consumed_at BIGINT NOT NULL
		)`
	createNoncesIndex = `
		CREATE INDEX IF NOT EXISTS used_nonces_claimed_at ON used_nonces (claimed_at)`
	createBalances = `
		CREATE TABLE IF NOT EXISTS token_balances (
			owner TEXT PRIMARY KEY,
			amount TEXT NOT NULL
		)`
	createAllowances = `
		CREATE TABLE IF NOT EXISTS token_allowances (
			owner TEXT NOT NULL,
			spender TEXT NOT NULL,
			amount TEXT NOT NULL,
			PRIMARY KEY (owner, spender)
		)`
)
