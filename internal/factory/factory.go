package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/reflexpool/internal/dependencies/clock"
	"github.com/mcoot/reflexpool/internal/dependencies/random"
	"github.com/mcoot/reflexpool/internal/events"
	"github.com/mcoot/reflexpool/internal/services/auth"
	"github.com/mcoot/reflexpool/internal/services/pool"
	"github.com/mcoot/reflexpool/internal/services/poolfactory"
	"github.com/mcoot/reflexpool/internal/services/scenario"
	"github.com/mcoot/reflexpool/internal/services/stats"
	"github.com/mcoot/reflexpool/internal/services/verifier"
	"github.com/mcoot/reflexpool/internal/storage"
	"github.com/mcoot/reflexpool/internal/storage/memory"
	redisstorage "github.com/mcoot/reflexpool/internal/storage/redis"
	"github.com/mcoot/reflexpool/internal/storage/sqldb"
	"github.com/mcoot/reflexpool/internal/token"
	"github.com/mcoot/reflexpool/internal/web/sse"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Token           *token.Ledger
	StatsService    *stats.Service
	VerifierService *verifier.Service
	PoolFactory     *poolfactory.Service
	PoolService     *pool.Service
	ScenarioService *scenario.Service
	AuthService     *auth.Service

	// Event delivery
	Publisher   events.Publisher
	HubManager  *sse.HubManager
	Broadcaster *sse.Broadcaster
}

// Config holds configuration for the application factory. Zero-valued service
// configs fall back to each package's DefaultConfig.
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig is required if StorageType is "redis"
	RedisConfig *redisstorage.Config
	// SQLConfig is required if StorageType is "sqlite" or "postgres"
	SQLConfig *sqldb.Config

	AuthConfig     auth.Config
	VerifierConfig verifier.Config
	PoolConfig     pool.Config
	FactoryConfig  poolfactory.Config
	TokenConfig    token.Config
	ScenarioConfig scenario.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	app, err := newWithDependencies(store, clock.New(), random.New(), cfg, nil, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func openStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeSQLite, StorageTypePostgres:
		if cfg.SQLConfig == nil {
			return nil, fmt.Errorf("SQLConfig required when StorageType is %s", storageType)
		}
		sqlCfg := *cfg.SQLConfig
		sqlCfg.Driver = storageType
		return sqldb.Open(context.Background(), sqlCfg)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be memory, redis, sqlite or postgres", storageType)
	}
}

// withDefaults fills zero-valued service configs
func withDefaults(cfg Config) Config {
	if cfg.AuthConfig.SessionDuration == 0 {
		def := auth.DefaultConfig()
		def.Secret = cfg.AuthConfig.Secret
		def.AdminAddresses = cfg.AuthConfig.AdminAddresses
		cfg.AuthConfig = def
	}
	if cfg.VerifierConfig.FreshnessWindow == 0 {
		cfg.VerifierConfig = verifier.DefaultConfig()
	}
	if cfg.PoolConfig.CloseGracePeriod == 0 {
		cfg.PoolConfig.CloseGracePeriod = pool.DefaultConfig().CloseGracePeriod
	}
	if cfg.PoolConfig.AdminAddresses == nil {
		cfg.PoolConfig.AdminAddresses = cfg.AuthConfig.AdminAddresses
	}
	if cfg.TokenConfig.Symbol == "" {
		cfg.TokenConfig = token.DefaultConfig()
	}
	if cfg.FactoryConfig.Address.IsZero() {
		cfg.FactoryConfig = poolfactory.DefaultConfig()
	}
	cfg.FactoryConfig.TokenAddress = cfg.TokenConfig.Address
	if cfg.ScenarioConfig.MaxDelay == 0 {
		cfg.ScenarioConfig = scenario.DefaultConfig()
	}
	return cfg
}

// newWithDependencies creates an App with the given dependencies (useful for testing).
// extra publishers receive every event after the log and SSE publishers.
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	extra []events.Publisher,
	logger *slog.Logger,
) (*App, error) {
	cfg = withDefaults(cfg)

	hubManager := sse.NewHubManager(logger)
	broadcaster := sse.NewBroadcaster(hubManager, logger)
	publisher := append(events.Multi{events.NewLogPublisher(logger), broadcaster}, extra...)

	ledger := token.NewLedger(store, cfg.TokenConfig, logger)
	statsService := stats.New(store, clk, publisher, logger)
	verifierService, err := verifier.New(store, clk, publisher, cfg.VerifierConfig, logger)
	if err != nil {
		return nil, err
	}
	poolFactory := poolfactory.New(store, clk, publisher, cfg.FactoryConfig, logger)
	poolService := pool.New(store, ledger, verifierService, clk, publisher, cfg.PoolConfig, logger)
	scenarioService := scenario.New(rnd, cfg.ScenarioConfig)
	authService := auth.New(clk, rnd, cfg.AuthConfig, logger)

	broadcaster.UseRenderer(sse.NewRenderer(poolService, statsService, sse.RendererConfig{
		TokenDecimals: ledger.Decimals(),
		TokenSymbol:   ledger.Symbol(),
	}))

	return &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		Token:           ledger,
		StatsService:    statsService,
		VerifierService: verifierService,
		PoolFactory:     poolFactory,
		PoolService:     poolService,
		ScenarioService: scenarioService,
		AuthService:     authService,
		Publisher:       publisher,
		HubManager:      hubManager,
		Broadcaster:     broadcaster,
	}, nil
}

// Close stops the SSE hubs and releases storage
func (a *App) Close() error {
	a.HubManager.Close()
	return a.Storage.Close()
}
