package poolfactory

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/reflexpool/internal/dependencies/clock"
	"github.com/mcoot/reflexpool/internal/ethcrypto"
	"github.com/mcoot/reflexpool/internal/events"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
)

// Config holds the addresses every new pool is bound to
type Config struct {
	// Address is the factory's own address, the seed for pool escrow addresses
	Address model.Address
	// TokenAddress is the payment token pools take entry fees in
	TokenAddress model.Address
	// StatsAddress is the player stats registry pools report to
	StatsAddress model.Address
}

// DefaultConfig returns the default factory configuration
func DefaultConfig() Config {
	return Config{
		Address:      model.MustParseAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3"),
		TokenAddress: model.MustParseAddress("0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"),
		StatsAddress: model.MustParseAddress("0xe7f1725e7734ce288f8367e1bb143e90bb3f0512"),
	}
}

// Service creates pools and answers directory queries over them
type Service struct {
	storage   storage.Storage
	clock     clock.Clock
	publisher events.Publisher
	cfg       Config
	logger    *slog.Logger
}

// New creates a new factory Service
func New(storage storage.Storage, clock clock.Clock, publisher events.Publisher, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		storage:   storage,
		clock:     clock,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "pool_factory")),
	}
}

// Address returns the factory's address
func (s *Service) Address() model.Address {
	return s.cfg.Address
}

// DerivePoolAddress computes the escrow address of pool id:
// the last 20 bytes of keccak256(factory ‖ uint256(id))
func DerivePoolAddress(factory model.Address, id model.PoolID) model.Address {
	return model.AddressFromBytes(ethcrypto.Keccak256(factory[:], ethcrypto.Uint256(uint64(id))))
}

// CreatePool opens a new pool with the next id
func (s *Service) CreatePool(ctx context.Context, creator model.Address, entryFee model.Amount, duration time.Duration) (*model.Pool, error) {
	if creator.IsZero() {
		return nil, model.ErrInvalidAddress
	}
	if entryFee == 0 {
		return nil, model.ErrInvalidEntryFee
	}
	if duration < model.MinPoolDuration {
		return nil, model.ErrDurationTooShort
	}
	if duration > model.MaxPoolDuration {
		return nil, model.ErrDurationTooLong
	}

	var pool *model.Pool
	err := s.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		count, err := tx.PoolCount(ctx)
		if err != nil {
			return err
		}
		id := model.PoolID(count)

		pool = &model.Pool{
			ID:           id,
			Address:      DerivePoolAddress(s.cfg.Address, id),
			Creator:      creator,
			EntryFee:     entryFee,
			Duration:     duration,
			TokenAddress: s.cfg.TokenAddress,
			StatsAddress: s.cfg.StatsAddress,
			Participants: []model.Participant{},
			CreatedAt:    s.clock.Now(),
			WinningTime:  model.UnsetReactionTime,
		}
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}
		return tx.AddPlayerPool(ctx, creator, id)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pool created",
		slog.String("pool_id", pool.ID.String()),
		slog.String("pool_address", pool.Address.String()),
		slog.String("creator", creator.String()),
		slog.Uint64("entry_fee", uint64(entryFee)),
		slog.Duration("duration", duration),
	)
	s.publisher.Publish(ctx, model.PoolEvent(model.EventPoolCreated, pool.CreatedAt, pool.ID, creator,
		model.PoolCreatedPayload{
			PoolAddress: pool.Address,
			Creator:     creator,
			EntryFee:    entryFee,
			Duration:    duration,
		}))
	return pool, nil
}

// GetActivePools returns up to limit pools that have not closed, newest first.
// It scans every pool, so cost grows with the total number ever created.
func (s *Service) GetActivePools(ctx context.Context, limit int) ([]*model.Pool, error) {
	if limit <= 0 {
		return nil, model.ErrInvalidLimit
	}

	var pools []*model.Pool
	err := s.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		pools, err = tx.ListPools(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	active := make([]*model.Pool, 0, min(limit, len(pools)))
	for i := len(pools) - 1; i >= 0 && len(active) < limit; i-- {
		if !pools[i].Closed {
			active = append(active, pools[i])
		}
	}
	return active, nil
}

// GetPlayerPools returns the ids of pools the player created or joined, in the
// order they were first associated, without duplicates
func (s *Service) GetPlayerPools(ctx context.Context, player model.Address) ([]model.PoolID, error) {
	var ids []model.PoolID
	err := s.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		ids, err = tx.GetPlayerPools(ctx, player)
		return err
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[model.PoolID]bool, len(ids))
	unique := make([]model.PoolID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique, nil
}

// PoolCount returns the number of pools ever created
func (s *Service) PoolCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		count, err = tx.PoolCount(ctx)
		return err
	})
	return count, err
}

// GetPool returns pool id
func (s *Service) GetPool(ctx context.Context, id model.PoolID) (*model.Pool, error) {
	var pool *model.Pool
	err := s.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		pool, err = tx.GetPool(ctx, id)
		return err
	})
	return pool, err
}

// PoolAt returns the address of the pool at position index in creation order
func (s *Service) PoolAt(ctx context.Context, index uint64) (model.Address, error) {
	pool, err := s.GetPool(ctx, model.PoolID(index))
	if err != nil {
		return model.ZeroAddress, err
	}
	return pool.Address, nil
}

// FindByAddress looks a pool up by its escrow address
func (s *Service) FindByAddress(ctx context.Context, addr model.Address) (*model.Pool, error) {
	var found *model.Pool
	err := s.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		pools, err := tx.ListPools(ctx)
		if err != nil {
			return err
		}
		for _, p := range pools {
			if p.Address == addr {
				found = p
				return nil
			}
		}
		return model.ErrPoolNotFound
	})
	return found, err
}
