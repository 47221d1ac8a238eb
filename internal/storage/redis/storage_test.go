package redis

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
	"github.com/mcoot/reflexpool/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini *miniredis.Miniredis
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStorage = func() storage.Storage {
		s.mini = miniredis.RunT(s.T())
		client := redis.NewClient(&redis.Options{
			Addr: s.mini.Addr(),
		})
		return NewWithClient(client, DefaultConfig())
	}
	suite.Run(t, s)
}

var owner = model.MustParseAddress("0x00000000000000000000000000000000000000cc")

func (s *StorageSuite) TestConflictingWriteIsRetried() {
	attempts := 0
	err := s.Store.Update(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		attempts++
		bal, err := tx.GetBalance(ctx, owner)
		if err != nil {
			return err
		}
		if attempts == 1 {
			// Another writer commits between our read and our EXEC
			s.mini.Incr(versionKey(), 1)
		}
		return tx.SetBalance(ctx, owner, bal+5)
	})
	s.Require().NoError(err)
	s.Equal(2, attempts)

	got, err := s.mini.Get(balanceKey(owner))
	s.Require().NoError(err)
	s.Equal("5", got)
}

func (s *StorageSuite) TestConflictAfterRetriesExhausted() {
	cfg := DefaultConfig()
	cfg.MaxTxRetries = 3
	store := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), cfg)
	defer func() { _ = store.Close() }()

	attempts := 0
	err := store.Update(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		attempts++
		if _, err := tx.GetBalance(ctx, owner); err != nil {
			return err
		}
		s.mini.Incr(versionKey(), 1)
		return tx.SetBalance(ctx, owner, 1)
	})
	s.ErrorIs(err, storage.ErrConflict)
	s.Equal(3, attempts)
	s.False(s.mini.Exists(balanceKey(owner)))
}

func (s *StorageSuite) TestCommitBumpsVersion() {
	err := s.Store.Update(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.SetBalance(ctx, owner, 1)
	})
	s.Require().NoError(err)

	version, err := s.mini.Get(versionKey())
	s.Require().NoError(err)
	s.Equal("1", version)
}

func (s *StorageSuite) TestConcurrentPoolCreationAllCommit() {
	const writers = 20

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Store.Update(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
				count, err := tx.PoolCount(ctx)
				if err != nil {
					return err
				}
				id := model.PoolID(count)
				if err := tx.SavePool(ctx, &model.Pool{
					ID:           id,
					Creator:      owner,
					EntryFee:     1,
					Participants: []model.Participant{},
					WinningTime:  model.UnsetReactionTime,
				}); err != nil {
					return err
				}
				return tx.AddPlayerPool(ctx, owner, id)
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		s.NoError(err, "writer %d", i)
	}

	var pools []*model.Pool
	var ids []model.PoolID
	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if pools, err = tx.ListPools(ctx); err != nil {
			return err
		}
		ids, err = tx.GetPlayerPools(ctx, owner)
		return err
	})
	s.Require().NoError(err)
	s.Require().Len(pools, writers)
	for i, p := range pools {
		s.Equal(model.PoolID(i), p.ID)
	}
	s.Len(ids, writers)
}
