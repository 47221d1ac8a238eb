package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// MaxTxRetries bounds how often a transaction is re-run after losing an
	// optimistic WATCH race before ErrConflict is returned
	MaxTxRetries int

	// RetryBackoff is the first pause between retries. It doubles per attempt
	// up to MaxRetryBackoff, with jitter. Zero retries immediately.
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:             "redis://localhost:6379",
		PoolSize:        10,
		MinIdleConns:    2,
		MaxTxRetries:    16,
		RetryBackoff:    2 * time.Millisecond,
		MaxRetryBackoff: 100 * time.Millisecond,
	}
}
