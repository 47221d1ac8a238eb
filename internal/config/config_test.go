package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/reflexpool/internal/factory"
	"github.com/mcoot/reflexpool/internal/model"
)

func lookupFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, factory.StorageTypeMemory, cfg.StorageType)
	assert.Equal(t, 300*time.Second, cfg.Verifier.FreshnessWindow)
	assert.Equal(t, 24*time.Hour, cfg.Pool.CloseGracePeriod)
	assert.Empty(t, cfg.Auth.Secret)
	assert.Zero(t, cfg.FaucetAmount)

	fc := cfg.Factory(nil)
	assert.Nil(t, fc.RedisConfig)
	assert.Nil(t, fc.SQLConfig)
}

func TestFromLookup_Overrides(t *testing.T) {
	admin := "0x00000000000000000000000000000000000000aa"
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"PORT":             "9090",
		"LOG_LEVEL":        "debug",
		"STORAGE_TYPE":     "sqlite",
		"SQLITE_PATH":      "/tmp/reflex.db",
		"JWT_SECRET":       "s3cret",
		"ADMIN_ADDRESSES":  admin + ", 0x00000000000000000000000000000000000000bb",
		"FRESHNESS_WINDOW": "2m",
		"FAUCET_ENABLED":   "true",
		"FAUCET_AMOUNT":    "2.5",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.SQL.Driver)
	assert.Equal(t, "/tmp/reflex.db", cfg.SQL.Path)
	assert.Equal(t, []byte("s3cret"), cfg.Auth.Secret)
	require.Len(t, cfg.Auth.AdminAddresses, 2)
	assert.Equal(t, model.MustParseAddress(admin), cfg.Auth.AdminAddresses[0])
	assert.Equal(t, cfg.Auth.AdminAddresses, cfg.Pool.AdminAddresses)
	assert.Equal(t, 2*time.Minute, cfg.Verifier.FreshnessWindow)
	assert.Equal(t, model.Amount(2_500_000), cfg.FaucetAmount)

	fc := cfg.Factory(nil)
	require.NotNil(t, fc.SQLConfig)
	assert.Equal(t, "/tmp/reflex.db", fc.SQLConfig.Path)
}

func TestFromLookup_ReportsEveryBadValue(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"PORT":            "eighty",
		"ADMIN_ADDRESSES": "not-an-address",
		"STORAGE_TYPE":    "postgres",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "ADMIN_ADDRESSES")
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
