package pool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/reflexpool/internal/dependencies/clock"
	"github.com/mcoot/reflexpool/internal/events"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
	"github.com/mcoot/reflexpool/internal/token"
)

// ClaimVerifier checks a signed reaction claim and consumes its nonce within the
// transaction carried by ctx. The returned event is published after commit.
type ClaimVerifier interface {
	Consume(ctx context.Context, claim model.ReactionClaim) (model.Event, error)
}

// Config holds pool settings
type Config struct {
	// AdminAddresses may start and close any pool
	AdminAddresses []model.Address
	// CloseGracePeriod is how long after a pool's end only the creator and
	// admins may close it. After that anyone can.
	CloseGracePeriod time.Duration
}

// DefaultConfig returns the default pool configuration
func DefaultConfig() Config {
	return Config{
		CloseGracePeriod: 24 * time.Hour,
	}
}

// Service runs the lifecycle of individual pools: join, start, submit, close, refund
type Service struct {
	storage   storage.Storage
	token     token.Token
	verifier  ClaimVerifier
	clock     clock.Clock
	publisher events.Publisher
	cfg       Config
	admins    map[model.Address]bool
	logger    *slog.Logger
}

// New creates a new pool Service. verifier is required; every submission is checked.
func New(
	storage storage.Storage,
	token token.Token,
	verifier ClaimVerifier,
	clock clock.Clock,
	publisher events.Publisher,
	cfg Config,
	logger *slog.Logger,
) *Service {
	admins := make(map[model.Address]bool, len(cfg.AdminAddresses))
	for _, a := range cfg.AdminAddresses {
		admins[a] = true
	}
	return &Service{
		storage:   storage,
		token:     token,
		verifier:  verifier,
		clock:     clock,
		publisher: publisher,
		cfg:       cfg,
		admins:    admins,
		logger:    logger.With(slog.String("component", "pool")),
	}
}

// mutation changes a loaded pool inside the transaction and returns the events to
// publish once it commits
type mutation func(ctx context.Context, pool *model.Pool, now time.Time) ([]model.Event, error)

// mutate loads pool id, applies fn and saves the result in one transaction
func (s *Service) mutate(ctx context.Context, id model.PoolID, fn mutation) (*model.Pool, error) {
	var result *model.Pool
	var emitted []model.Event
	err := s.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		pool, err := tx.GetPool(ctx, id)
		if err != nil {
			return err
		}
		emitted, err = fn(ctx, pool, s.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}
		result = pool
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, emitted...)
	return result, nil
}

// IsAdmin reports whether addr is in the configured admin set
func (s *Service) IsAdmin(addr model.Address) bool {
	return s.admins[addr]
}

func (s *Service) canManage(pool *model.Pool, caller model.Address) bool {
	return caller == pool.Creator || s.admins[caller]
}

// Join pays the entry fee from player into the pool's escrow and adds them as a participant.
// The player must have approved the pool address to spend the fee.
func (s *Service) Join(ctx context.Context, id model.PoolID, player model.Address) (*model.Pool, error) {
	if player.IsZero() {
		return nil, model.ErrInvalidAddress
	}

	pool, err := s.mutate(ctx, id, func(ctx context.Context, pool *model.Pool, now time.Time) ([]model.Event, error) {
		if pool.Status() != model.PoolStatusOpen {
			return nil, model.ErrPoolNotOpen
		}
		if pool.Participant(player) != nil {
			return nil, model.ErrAlreadyJoined
		}

		if err := s.token.TransferFrom(ctx, pool.Address, player, pool.Address, pool.EntryFee); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrTransferFailed, err)
		}

		pool.Participants = append(pool.Participants, model.Participant{
			Player:       player,
			ReactionTime: model.UnsetReactionTime,
			JoinedAt:     now,
		})
		pool.TotalPrize += pool.EntryFee

		if err := s.indexPlayer(ctx, pool.ID, player); err != nil {
			return nil, err
		}

		return []model.Event{model.PoolEvent(model.EventParticipantJoined, now, pool.ID, player,
			model.ParticipantJoinedPayload{
				ParticipantCount: len(pool.Participants),
				TotalPrize:       pool.TotalPrize,
			})}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("participant joined",
		slog.String("pool_id", id.String()),
		slog.String("player", player.String()),
		slog.Int("participant_count", len(pool.Participants)),
	)
	return pool, nil
}

// indexPlayer records the pool under the player unless it is already listed
func (s *Service) indexPlayer(ctx context.Context, id model.PoolID, player model.Address) error {
	return s.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		ids, err := tx.GetPlayerPools(ctx, player)
		if err != nil {
			return err
		}
		for _, existing := range ids {
			if existing == id {
				return nil
			}
		}
		return tx.AddPlayerPool(ctx, player, id)
	})
}

// Start moves an open pool to active so participants can submit
func (s *Service) Start(ctx context.Context, id model.PoolID, caller model.Address) (*model.Pool, error) {
	pool, err := s.mutate(ctx, id, func(ctx context.Context, pool *model.Pool, now time.Time) ([]model.Event, error) {
		if pool.Status() != model.PoolStatusOpen {
			return nil, model.ErrPoolNotOpen
		}
		if !s.canManage(pool, caller) {
			return nil, model.ErrNotAuthorized
		}
		if len(pool.Participants) == 0 {
			return nil, model.ErrNoParticipants
		}

		pool.Started = true
		pool.StartedAt = now
		return []model.Event{model.PoolEvent(model.EventPoolStarted, now, pool.ID, caller, nil)}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pool started",
		slog.String("pool_id", id.String()),
		slog.String("caller", caller.String()),
	)
	return pool, nil
}

// Submit records a participant's verified reaction time. Each participant
// submits at most once.
func (s *Service) Submit(ctx context.Context, id model.PoolID, caller model.Address, claim model.ReactionClaim) (*model.Pool, error) {
	pool, err := s.mutate(ctx, id, func(ctx context.Context, pool *model.Pool, now time.Time) ([]model.Event, error) {
		if pool.Status() != model.PoolStatusActive {
			return nil, model.ErrPoolNotActive
		}
		if claim.Player != caller {
			return nil, model.ErrClaimMismatch
		}
		participant := pool.Participant(caller)
		if participant == nil {
			return nil, model.ErrNotParticipant
		}
		if participant.HasSubmitted {
			return nil, model.ErrAlreadySubmitted
		}
		if claim.ReactionTime == 0 || !claim.ReactionTime.IsSet() {
			return nil, model.ErrInvalidReactionTime
		}

		verified, err := s.verifier.Consume(ctx, claim)
		if err != nil {
			return nil, err
		}

		participant.ReactionTime = claim.ReactionTime
		participant.HasSubmitted = true
		participant.SubmittedAt = now

		return []model.Event{
			verified,
			model.PoolEvent(model.EventReactionSubmitted, now, pool.ID, caller,
				model.ReactionSubmittedPayload{ReactionTime: claim.ReactionTime}),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reaction submitted",
		slog.String("pool_id", id.String()),
		slog.String("player", caller.String()),
		slog.Uint64("reaction_ms", uint64(claim.ReactionTime)),
	)
	return pool, nil
}

// Close settles an active pool once its duration has elapsed. The fastest
// submission wins the whole prize; if nobody submitted, participants reclaim
// their fees with ClaimRefund.
func (s *Service) Close(ctx context.Context, id model.PoolID, caller model.Address) (*model.Pool, error) {
	pool, err := s.mutate(ctx, id, func(ctx context.Context, pool *model.Pool, now time.Time) ([]model.Event, error) {
		if pool.Status() != model.PoolStatusActive {
			return nil, model.ErrPoolNotActive
		}
		if now.Before(pool.EndsAt()) {
			return nil, model.ErrTooEarly
		}
		if !s.canManage(pool, caller) && now.Before(pool.EndsAt().Add(s.cfg.CloseGracePeriod)) {
			return nil, model.ErrNotAuthorized
		}

		pool.Closed = true
		pool.ClosedAt = now

		winner := SelectWinner(pool.Participants)
		if winner == nil {
			pool.Outcome = model.OutcomeNoSubmissions
			pool.WinningTime = model.UnsetReactionTime
		} else {
			if err := s.token.Transfer(ctx, pool.Address, winner.Player, pool.TotalPrize); err != nil {
				return nil, fmt.Errorf("%w: %w", model.ErrTransferFailed, err)
			}
			pool.Outcome = model.OutcomeWinner
			pool.Winner = winner.Player
			pool.WinningTime = winner.ReactionTime
		}

		return []model.Event{model.PoolEvent(model.EventPoolClosed, now, pool.ID, caller,
			model.PoolClosedPayload{
				Outcome:     pool.Outcome,
				Winner:      pool.Winner,
				WinningTime: pool.WinningTime,
				Prize:       pool.TotalPrize,
			})}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pool closed",
		slog.String("pool_id", id.String()),
		slog.String("outcome", string(pool.Outcome)),
		slog.String("winner", pool.Winner.String()),
		slog.Uint64("prize", uint64(pool.TotalPrize)),
	)
	return pool, nil
}

// SelectWinner returns the participant with the smallest submitted time. Ties go
// to the earlier submission, then to the earlier joiner. It returns nil when
// nobody submitted.
func SelectWinner(participants []model.Participant) *model.Participant {
	var best *model.Participant
	for i := range participants {
		p := &participants[i]
		if !p.HasSubmitted {
			continue
		}
		if best == nil ||
			p.ReactionTime < best.ReactionTime ||
			(p.ReactionTime == best.ReactionTime && p.SubmittedAt.Before(best.SubmittedAt)) {
			best = p
		}
	}
	return best
}

// ClaimRefund returns a participant's entry fee from a pool that closed without submissions
func (s *Service) ClaimRefund(ctx context.Context, id model.PoolID, player model.Address) (model.Amount, error) {
	var refunded model.Amount
	_, err := s.mutate(ctx, id, func(ctx context.Context, pool *model.Pool, now time.Time) ([]model.Event, error) {
		if !pool.Closed {
			return nil, model.ErrPoolNotClosed
		}
		if pool.Outcome != model.OutcomeNoSubmissions {
			return nil, model.ErrNothingToRefund
		}
		participant := pool.Participant(player)
		if participant == nil {
			return nil, model.ErrNotParticipant
		}
		if participant.Refunded {
			return nil, model.ErrAlreadyRefunded
		}

		if err := s.token.Transfer(ctx, pool.Address, player, pool.EntryFee); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrTransferFailed, err)
		}
		participant.Refunded = true
		pool.TotalPrize -= pool.EntryFee
		refunded = pool.EntryFee

		return []model.Event{model.PoolEvent(model.EventRefundClaimed, now, pool.ID, player,
			model.RefundClaimedPayload{Amount: pool.EntryFee})}, nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("refund claimed",
		slog.String("pool_id", id.String()),
		slog.String("player", player.String()),
		slog.Uint64("amount", uint64(refunded)),
	)
	return refunded, nil
}

// GetPool returns a full snapshot of a pool
func (s *Service) GetPool(ctx context.Context, id model.PoolID) (*model.Pool, error) {
	var pool *model.Pool
	err := s.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		pool, err = tx.GetPool(ctx, id)
		return err
	})
	return pool, err
}

// GetPoolStatus returns the pool's status fields read together
func (s *Service) GetPoolStatus(ctx context.Context, id model.PoolID) (model.PoolStatusView, error) {
	pool, err := s.GetPool(ctx, id)
	if err != nil {
		return model.PoolStatusView{}, err
	}
	return pool.StatusView(), nil
}

// GetParticipants returns the participants in join order
func (s *Service) GetParticipants(ctx context.Context, id model.PoolID) ([]model.Participant, error) {
	pool, err := s.GetPool(ctx, id)
	if err != nil {
		return nil, err
	}
	return pool.Participants, nil
}

// EntryFee returns the fixed fee to join a pool
func (s *Service) EntryFee(ctx context.Context, id model.PoolID) (model.Amount, error) {
	pool, err := s.GetPool(ctx, id)
	if err != nil {
		return 0, err
	}
	return pool.EntryFee, nil
}
