// Package config loads server settings from the environment. A .env file in the
// working directory is read first when present; real environment variables win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcoot/reflexpool/internal/api"
	"github.com/mcoot/reflexpool/internal/factory"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/services/auth"
	"github.com/mcoot/reflexpool/internal/services/pool"
	"github.com/mcoot/reflexpool/internal/services/verifier"
	redisstorage "github.com/mcoot/reflexpool/internal/storage/redis"
	"github.com/mcoot/reflexpool/internal/storage/sqldb"
	"github.com/mcoot/reflexpool/internal/token"
)

// Config holds everything the server binary needs
type Config struct {
	Server   api.ServerConfig
	LogLevel slog.Level

	StorageType string
	Redis       redisstorage.Config
	SQL         sqldb.Config

	Auth     auth.Config
	Verifier verifier.Config
	Pool     pool.Config
	Token    token.Config

	// FaucetAmount is how much the dev faucet mints per request, 0 disables it
	FaucetAmount model.Amount
}

// Load reads configuration from .env and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	env := reader{lookup: lookup}

	cfg := &Config{
		Server:      api.DefaultServerConfig(),
		LogLevel:    slog.LevelInfo,
		StorageType: env.string("STORAGE_TYPE", factory.StorageTypeMemory),
		Redis:       redisstorage.DefaultConfig(),
		SQL:         sqldb.DefaultConfig(),
		Auth:        auth.DefaultConfig(),
		Verifier:    verifier.DefaultConfig(),
		Pool:        pool.DefaultConfig(),
		Token:       token.DefaultConfig(),
	}

	cfg.Server.Host = env.string("HOST", cfg.Server.Host)
	cfg.Server.Port = env.int("PORT", cfg.Server.Port)
	if lvl, ok := lookup("LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			env.fail("LOG_LEVEL", err)
		}
	}

	cfg.Redis.URL = env.string("REDIS_URL", cfg.Redis.URL)
	switch cfg.StorageType {
	case factory.StorageTypeSQLite:
		cfg.SQL.Driver = "sqlite"
		cfg.SQL.Path = env.string("SQLITE_PATH", cfg.SQL.Path)
	case factory.StorageTypePostgres:
		cfg.SQL.Driver = "postgres"
		cfg.SQL.URL = env.string("DATABASE_URL", "")
		if cfg.SQL.URL == "" {
			env.fail("DATABASE_URL", errors.New("required when STORAGE_TYPE=postgres"))
		}
	}

	if secret := env.string("JWT_SECRET", ""); secret != "" {
		cfg.Auth.Secret = []byte(secret)
	}
	cfg.Auth.SessionDuration = env.duration("SESSION_DURATION", cfg.Auth.SessionDuration)
	admins := env.addresses("ADMIN_ADDRESSES")
	cfg.Auth.AdminAddresses = admins
	cfg.Pool.AdminAddresses = admins
	cfg.Pool.CloseGracePeriod = env.duration("CLOSE_GRACE_PERIOD", cfg.Pool.CloseGracePeriod)

	cfg.Verifier.FreshnessWindow = env.duration("FRESHNESS_WINDOW", cfg.Verifier.FreshnessWindow)
	cfg.Verifier.MaxClockSkew = env.duration("MAX_CLOCK_SKEW", cfg.Verifier.MaxClockSkew)
	cfg.Verifier.NonceRetention = env.duration("NONCE_RETENTION", cfg.Verifier.NonceRetention)

	if env.bool("FAUCET_ENABLED", false) {
		amount, err := token.ParseAmount(env.string("FAUCET_AMOUNT", "100"), cfg.Token.Decimals)
		if err != nil {
			env.fail("FAUCET_AMOUNT", err)
		}
		cfg.FaucetAmount = amount
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Factory converts the loaded settings into application wiring
func (c *Config) Factory(logger *slog.Logger) factory.Config {
	fc := factory.Config{
		Logger:         logger,
		StorageType:    c.StorageType,
		AuthConfig:     c.Auth,
		VerifierConfig: c.Verifier,
		PoolConfig:     c.Pool,
		TokenConfig:    c.Token,
	}
	switch c.StorageType {
	case factory.StorageTypeRedis:
		redisCfg := c.Redis
		fc.RedisConfig = &redisCfg
	case factory.StorageTypeSQLite, factory.StorageTypePostgres:
		sqlCfg := c.SQL
		fc.SQLConfig = &sqlCfg
	}
	return fc
}

// reader collects parse errors so every bad variable is reported at once
type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) fail(key string, err error) {
	r.errs = append(r.errs, fmt.Errorf("config: %s: %w", key, err))
}

func (r *reader) string(key, def string) string {
	if v, ok := r.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *reader) bool(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

// addresses parses a comma separated address list
func (r *reader) addresses(key string) []model.Address {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	var out []model.Address
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, err := model.ParseAddress(part)
		if err != nil {
			r.fail(key, err)
			continue
		}
		out = append(out, addr)
	}
	return out
}
