// Package storagetest holds the behaviour every storage backend must share.
// Backend packages embed Suite and provide NewStorage.
package storagetest

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
)

var (
	alice = model.MustParseAddress("0xa11ce00000000000000000000000000000000001")
	bob   = model.MustParseAddress("0xb0b0000000000000000000000000000000000002")
)

// Suite is a testify suite run against a concrete backend
type Suite struct {
	suite.Suite

	// NewStorage returns a fresh, empty store for each test
	NewStorage func() storage.Storage

	Store storage.Storage
	Ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.Store = s.NewStorage()
	s.Ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) TearDownTest() {
	if s.Store != nil {
		_ = s.Store.Close()
	}
}

func (s *Suite) update(fn storage.TxFunc) {
	s.Require().NoError(s.Store.Update(s.Ctx, fn))
}

func (s *Suite) newPool(id model.PoolID) *model.Pool {
	return &model.Pool{
		ID:        id,
		Address:   model.AddressFromBytes([]byte{0xee, byte(id)}),
		Creator:   alice,
		EntryFee:  10_000_000,
		Duration:  time.Hour,
		CreatedAt: s.now,
	}
}

// Player tests

func (s *Suite) TestSaveAndGetPlayer() {
	rec := model.NewPlayerRecord(alice, 0, s.now)
	rec.BestReactionTime = 250
	rec.TotalGames = 3
	rec.HighestBadge = model.BadgeGold
	rec.LastPlayed = s.now

	s.update(func(ctx context.Context, tx storage.Tx) error {
		return tx.SavePlayer(ctx, rec)
	})

	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetPlayer(ctx, alice)
		s.Require().NoError(err)
		s.Equal(alice, got.Player)
		s.Equal(model.ReactionTime(250), got.BestReactionTime)
		s.Equal(uint64(3), got.TotalGames)
		s.Equal(model.BadgeGold, got.HighestBadge)
		s.True(s.now.Equal(got.LastPlayed))
		return nil
	})
	s.Require().NoError(err)
}

func (s *Suite) TestUnsetReactionTimeRoundTrips() {
	s.update(func(ctx context.Context, tx storage.Tx) error {
		return tx.SavePlayer(ctx, model.NewPlayerRecord(alice, 0, s.now))
	})

	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetPlayer(ctx, alice)
		s.Require().NoError(err)
		s.Equal(model.UnsetReactionTime, got.BestReactionTime)
		return nil
	})
	s.Require().NoError(err)
}

func (s *Suite) TestGetPlayerNotFound() {
	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.GetPlayer(ctx, alice)
		return err
	})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestListPlayersInRegistrationOrder() {
	s.update(func(ctx context.Context, tx storage.Tx) error {
		s.Require().NoError(tx.SavePlayer(ctx, model.NewPlayerRecord(bob, 0, s.now)))
		return tx.SavePlayer(ctx, model.NewPlayerRecord(alice, 1, s.now))
	})
	// Updating an existing player must not re-append it
	s.update(func(ctx context.Context, tx storage.Tx) error {
		rec, err := tx.GetPlayer(ctx, bob)
		s.Require().NoError(err)
		rec.TotalGames = 9
		return tx.SavePlayer(ctx, rec)
	})

	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		count, err := tx.PlayerCount(ctx)
		s.Require().NoError(err)
		s.Equal(uint64(2), count)

		players, err := tx.ListPlayers(ctx)
		s.Require().NoError(err)
		s.Require().Len(players, 2)
		s.Equal(bob, players[0].Player)
		s.Equal(uint64(9), players[0].TotalGames)
		s.Equal(alice, players[1].Player)
		return nil
	})
	s.Require().NoError(err)
}

// Pool tests

func (s *Suite) TestSaveAndGetPool() {
	pool := s.newPool(0)
	pool.Participants = []model.Participant{
		{Player: alice, ReactionTime: model.UnsetReactionTime, JoinedAt: s.now},
		{Player: bob, ReactionTime: 200, HasSubmitted: true, SubmittedAt: s.now.Add(time.Minute), JoinedAt: s.now},
	}
	pool.TotalPrize = 20_000_000
	pool.Started = true
	pool.StartedAt = s.now

	s.update(func(ctx context.Context, tx storage.Tx) error {
		return tx.SavePool(ctx, pool)
	})

	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetPool(ctx, 0)
		s.Require().NoError(err)
		s.Equal(pool.Address, got.Address)
		s.Equal(pool.Creator, got.Creator)
		s.Equal(pool.EntryFee, got.EntryFee)
		s.Equal(pool.Duration, got.Duration)
		s.Equal(pool.TotalPrize, got.TotalPrize)
		s.True(got.Started)
		s.False(got.Closed)
		s.Require().Len(got.Participants, 2)
		s.Equal(alice, got.Participants[0].Player)
		s.False(got.Participants[0].HasSubmitted)
		s.Equal(bob, got.Participants[1].Player)
		s.Equal(model.ReactionTime(200), got.Participants[1].ReactionTime)
		s.True(got.Participants[1].HasSubmitted)
		return nil
	})
	s.Require().NoError(err)
}

func (s *Suite) TestGetPoolNotFound() {
	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.GetPool(ctx, 42)
		return err
	})
	s.ErrorIs(err, model.ErrPoolNotFound)
}

func (s *Suite) TestPoolCountAndList() {
	s.update(func(ctx context.Context, tx storage.Tx) error {
		for id := model.PoolID(0); id < 3; id++ {
			if err := tx.SavePool(ctx, s.newPool(id)); err != nil {
				return err
			}
		}
		return nil
	})

	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		count, err := tx.PoolCount(ctx)
		s.Require().NoError(err)
		s.Equal(uint64(3), count)

		pools, err := tx.ListPools(ctx)
		s.Require().NoError(err)
		s.Require().Len(pools, 3)
		for i, p := range pools {
			s.Equal(model.PoolID(i), p.ID)
		}
		return nil
	})
	s.Require().NoError(err)
}

func (s *Suite) TestPlayerPoolsKeepInsertionOrder() {
	s.update(func(ctx context.Context, tx storage.Tx) error {
		s.Require().NoError(tx.AddPlayerPool(ctx, alice, 2))
		s.Require().NoError(tx.AddPlayerPool(ctx, alice, 0))
		return nil
	})
	s.update(func(ctx context.Context, tx storage.Tx) error {
		return tx.AddPlayerPool(ctx, alice, 5)
	})

	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		ids, err := tx.GetPlayerPools(ctx, alice)
		s.Require().NoError(err)
		s.Equal([]model.PoolID{2, 0, 5}, ids)

		ids, err = tx.GetPlayerPools(ctx, bob)
		s.Require().NoError(err)
		s.Empty(ids)
		return nil
	})
	s.Require().NoError(err)
}

// Nonce tests

func (s *Suite) TestNonceLifecycle() {
	var n1, n2 model.Nonce
	n1[0], n2[0] = 1, 2

	s.update(func(ctx context.Context, tx storage.Tx) error {
		s.Require().NoError(tx.MarkNonceUsed(ctx, model.UsedNonce{Nonce: n1, Player: alice, ClaimedAt: s.now.Add(-time.Hour), ConsumedAt: s.now}))
		return tx.MarkNonceUsed(ctx, model.UsedNonce{Nonce: n2, Player: bob, ClaimedAt: s.now, ConsumedAt: s.now})
	})

	var removed int
	s.update(func(ctx context.Context, tx storage.Tx) error {
		used, err := tx.IsNonceUsed(ctx, n1)
		s.Require().NoError(err)
		s.True(used)

		removed, err = tx.PruneNonces(ctx, s.now.Add(-time.Minute))
		return err
	})
	s.Equal(1, removed)

	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		used, err := tx.IsNonceUsed(ctx, n1)
		s.Require().NoError(err)
		s.False(used)

		used, err = tx.IsNonceUsed(ctx, n2)
		s.Require().NoError(err)
		s.True(used)
		return nil
	})
	s.Require().NoError(err)
}

// Token ledger tests

func (s *Suite) TestBalancesAndAllowances() {
	s.update(func(ctx context.Context, tx storage.Tx) error {
		s.Require().NoError(tx.SetBalance(ctx, alice, 1_000))
		return tx.SetAllowance(ctx, alice, bob, 300)
	})

	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		bal, err := tx.GetBalance(ctx, alice)
		s.Require().NoError(err)
		s.Equal(model.Amount(1_000), bal)

		bal, err = tx.GetBalance(ctx, bob)
		s.Require().NoError(err)
		s.Zero(bal)

		allowance, err := tx.GetAllowance(ctx, alice, bob)
		s.Require().NoError(err)
		s.Equal(model.Amount(300), allowance)

		allowance, err = tx.GetAllowance(ctx, bob, alice)
		s.Require().NoError(err)
		s.Zero(allowance)
		return nil
	})
	s.Require().NoError(err)
}

// Transaction semantics

func (s *Suite) TestUpdateRollsBackOnError() {
	boom := errors.New("boom")
	err := s.Store.Update(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		s.Require().NoError(tx.SavePlayer(ctx, model.NewPlayerRecord(alice, 0, s.now)))
		s.Require().NoError(tx.SavePool(ctx, s.newPool(0)))
		s.Require().NoError(tx.SetBalance(ctx, alice, 50))
		s.Require().NoError(tx.AddPlayerPool(ctx, alice, 0))
		return boom
	})
	s.ErrorIs(err, boom)

	err = s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.GetPlayer(ctx, alice)
		s.ErrorIs(err, model.ErrPlayerNotFound)

		count, err := tx.PoolCount(ctx)
		s.Require().NoError(err)
		s.Zero(count)

		bal, err := tx.GetBalance(ctx, alice)
		s.Require().NoError(err)
		s.Zero(bal)

		ids, err := tx.GetPlayerPools(ctx, alice)
		s.Require().NoError(err)
		s.Empty(ids)
		return nil
	})
	s.Require().NoError(err)
}

func (s *Suite) TestReadsSeeOwnWrites() {
	s.update(func(ctx context.Context, tx storage.Tx) error {
		s.Require().NoError(tx.SavePlayer(ctx, model.NewPlayerRecord(alice, 0, s.now)))
		s.Require().NoError(tx.SavePool(ctx, s.newPool(0)))
		s.Require().NoError(tx.SetBalance(ctx, bob, 7))

		_, err := tx.GetPlayer(ctx, alice)
		s.Require().NoError(err)

		count, err := tx.PoolCount(ctx)
		s.Require().NoError(err)
		s.Equal(uint64(1), count)

		bal, err := tx.GetBalance(ctx, bob)
		s.Require().NoError(err)
		s.Equal(model.Amount(7), bal)
		return nil
	})
}

func (s *Suite) TestNestedUpdateJoinsOuterTransaction() {
	boom := errors.New("boom")
	err := s.Store.Update(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		err := s.Store.Update(ctx, func(ctx context.Context, inner storage.Tx) error {
			return inner.SetBalance(ctx, alice, 99)
		})
		s.Require().NoError(err)

		bal, err := tx.GetBalance(ctx, alice)
		s.Require().NoError(err)
		s.Equal(model.Amount(99), bal)
		return boom
	})
	s.ErrorIs(err, boom)

	err = s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		bal, err := tx.GetBalance(ctx, alice)
		s.Require().NoError(err)
		s.Zero(bal)
		return nil
	})
	s.Require().NoError(err)
}

func (s *Suite) TestViewRejectsWrites() {
	err := s.Store.View(s.Ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.SetBalance(ctx, alice, 1)
	})
	s.ErrorIs(err, storage.ErrReadOnly)
}
