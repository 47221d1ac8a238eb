package sqldb

import "time"

// Config holds SQL connection settings
type Config struct {
	// Driver selects the dialect: "sqlite" or "postgres"
	Driver string

	// Path is the SQLite database file, or ":memory:"
	Path string

	// URL is the PostgreSQL connection URL
	URL string

	// MaxTxRetries bounds how often a transaction is re-run after a
	// serialization failure before ErrConflict is returned
	MaxTxRetries int

	// RetryBackoff is the first pause between retries, doubling up to
	// MaxRetryBackoff
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// DefaultConfig returns sensible defaults for SQL configuration
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite",
		Path:            "reflexpool.db",
		MaxTxRetries:    8,
		RetryBackoff:    5 * time.Millisecond,
		MaxRetryBackoff: 200 * time.Millisecond,
	}
}
