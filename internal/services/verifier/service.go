package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/reflexpool/internal/dependencies/clock"
	"github.com/mcoot/reflexpool/internal/ethcrypto"
	"github.com/mcoot/reflexpool/internal/events"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
)

// Config holds verifier settings
type Config struct {
	// FreshnessWindow is how old a claim timestamp may be
	FreshnessWindow time.Duration
	// MaxClockSkew is how far in the future a claim timestamp may be
	MaxClockSkew time.Duration
	// NonceRetention enables PruneNonces when positive. It must be at least
	// FreshnessWindow so that a pruned nonce can only belong to a stale claim.
	NonceRetention time.Duration
}

// DefaultConfig returns the default verifier configuration
func DefaultConfig() Config {
	return Config{
		FreshnessWindow: 300 * time.Second,
		MaxClockSkew:    30 * time.Second,
		NonceRetention:  0,
	}
}

// Service checks signed reaction claims and consumes their nonces
type Service struct {
	storage   storage.Storage
	clock     clock.Clock
	publisher events.Publisher
	cfg       Config
	logger    *slog.Logger
}

// New creates a new verifier Service
func New(storage storage.Storage, clock clock.Clock, publisher events.Publisher, cfg Config, logger *slog.Logger) (*Service, error) {
	if cfg.NonceRetention > 0 && cfg.NonceRetention < cfg.FreshnessWindow {
		return nil, fmt.Errorf("verifier: nonce retention %s is shorter than freshness window %s",
			cfg.NonceRetention, cfg.FreshnessWindow)
	}
	return &Service{
		storage:   storage,
		clock:     clock,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "verifier")),
	}, nil
}

// VerifyReaction checks a claim and consumes its nonce
func (s *Service) VerifyReaction(ctx context.Context, claim model.ReactionClaim) error {
	event, err := s.Consume(ctx, claim)
	if err != nil {
		return err
	}
	s.logger.Info("reaction verified",
		slog.String("player", claim.Player.String()),
		slog.Uint64("reaction_ms", uint64(claim.ReactionTime)),
	)
	s.publisher.Publish(ctx, event)
	return nil
}

// Consume verifies claim and marks its nonce used inside the transaction carried
// by ctx (or a new one). The returned event must be published by the caller once
// the enclosing transaction commits.
//
// Checks run in order: signature, age, future skew, nonce.
func (s *Service) Consume(ctx context.Context, claim model.ReactionClaim) (model.Event, error) {
	signer, err := ethcrypto.Recover(ClaimDigest(claim), claim.Signature)
	if err != nil {
		s.reject(claim, err)
		return model.Event{}, err
	}
	if signer != claim.Player {
		err := fmt.Errorf("%w: signed by %s", model.ErrInvalidSignature, signer)
		s.reject(claim, err)
		return model.Event{}, err
	}

	now := s.clock.Now()
	if now.Sub(claim.Timestamp) > s.cfg.FreshnessWindow {
		s.reject(claim, model.ErrStaleSubmission)
		return model.Event{}, model.ErrStaleSubmission
	}
	if claim.Timestamp.Sub(now) > s.cfg.MaxClockSkew {
		s.reject(claim, model.ErrFutureSubmission)
		return model.Event{}, model.ErrFutureSubmission
	}

	err = s.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		used, err := tx.IsNonceUsed(ctx, claim.Nonce)
		if err != nil {
			return err
		}
		if used {
			return model.ErrNonceReplay
		}
		return tx.MarkNonceUsed(ctx, model.UsedNonce{
			Nonce:      claim.Nonce,
			Player:     claim.Player,
			ClaimedAt:  claim.Timestamp,
			ConsumedAt: now,
		})
	})
	if err != nil {
		s.reject(claim, err)
		return model.Event{}, err
	}

	return model.PlayerEvent(model.EventReactionVerified, now, claim.Player, model.ReactionVerifiedPayload{
		ReactionTime: claim.ReactionTime,
		Timestamp:    claim.Timestamp,
		Nonce:        claim.Nonce,
	}), nil
}

// IsNonceUsed reports whether a nonce has been consumed
func (s *Service) IsNonceUsed(ctx context.Context, nonce model.Nonce) (bool, error) {
	var used bool
	err := s.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		used, err = tx.IsNonceUsed(ctx, nonce)
		return err
	})
	return used, err
}

// PruneNonces forgets nonces whose claims are older than the retention period.
// It does nothing when retention is disabled.
func (s *Service) PruneNonces(ctx context.Context) (int, error) {
	if s.cfg.NonceRetention <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now().Add(-s.cfg.NonceRetention)

	var removed int
	err := s.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		removed, err = tx.PruneNonces(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("nonces pruned",
			slog.Int("removed", removed),
			slog.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

func (s *Service) reject(claim model.ReactionClaim, err error) {
	s.logger.Warn("reaction claim rejected",
		slog.String("player", claim.Player.String()),
		slog.String("nonce", claim.Nonce.String()),
		slog.String("error", err.Error()),
	)
}
