package stats

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/mcoot/reflexpool/internal/dependencies/clock"
	"github.com/mcoot/reflexpool/internal/events"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage"
)

// Service is the player statistics registry
type Service struct {
	storage   storage.Storage
	clock     clock.Clock
	publisher events.Publisher
	logger    *slog.Logger
}

// New creates a new stats Service
func New(storage storage.Storage, clock clock.Clock, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		storage:   storage,
		clock:     clock,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "stats")),
	}
}

// RegisterPlayer creates a zeroed record for player. Registering twice is a
// no-op; created reports whether this call made the record.
func (s *Service) RegisterPlayer(ctx context.Context, player model.Address) (rec *model.PlayerRecord, created bool, err error) {
	if player.IsZero() {
		return nil, false, model.ErrInvalidAddress
	}

	var emitted []model.Event
	err = s.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		emitted = nil
		var err error
		rec, created, err = s.ensureRegistered(ctx, tx, player)
		if err != nil {
			return err
		}
		if created {
			emitted = append(emitted, model.PlayerEvent(model.EventPlayerRegistered, rec.RegisteredAt, player, nil))
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("player registered",
			slog.String("player", player.String()),
			slog.Uint64("seq", rec.Seq),
		)
	}
	s.publisher.Publish(ctx, emitted...)
	return rec, created, nil
}

// RecordReaction records one free-play result, registering the player first if needed
func (s *Service) RecordReaction(ctx context.Context, player model.Address, reactionTime model.ReactionTime, isWin bool) (*model.PlayerRecord, error) {
	if player.IsZero() {
		return nil, model.ErrInvalidAddress
	}
	if reactionTime == 0 || !reactionTime.IsSet() {
		return nil, model.ErrInvalidReactionTime
	}

	var rec *model.PlayerRecord
	var emitted []model.Event
	err := s.storage.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		emitted = nil
		current, created, err := s.ensureRegistered(ctx, tx, player)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if created {
			emitted = append(emitted, model.PlayerEvent(model.EventPlayerRegistered, now, player, nil))
		}

		badge := model.BadgeFor(reactionTime)
		current.TotalGames++
		if isWin {
			current.TotalWins++
		}
		if reactionTime < current.BestReactionTime {
			current.BestReactionTime = reactionTime
		}
		previous := current.HighestBadge
		if badge > current.HighestBadge {
			current.HighestBadge = badge
		}
		current.LastPlayed = now

		if err := tx.SavePlayer(ctx, current); err != nil {
			return err
		}

		emitted = append(emitted, model.PlayerEvent(model.EventReactionRecorded, now, player,
			model.ReactionRecordedPayload{ReactionTime: reactionTime, Badge: badge, IsWin: isWin}))
		if current.HighestBadge > previous {
			emitted = append(emitted, model.PlayerEvent(model.EventBadgeEarned, now, player,
				model.BadgeEarnedPayload{Badge: current.HighestBadge}))
		}
		rec = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reaction recorded",
		slog.String("player", player.String()),
		slog.Uint64("reaction_ms", uint64(reactionTime)),
		slog.Bool("win", isWin),
		slog.String("highest_badge", rec.HighestBadge.String()),
	)
	s.publisher.Publish(ctx, emitted...)
	return rec, nil
}

// GetPlayerData returns the player's record. Unknown players get a zero record
// with an unset best time and a zero RegisteredAt.
func (s *Service) GetPlayerData(ctx context.Context, player model.Address) (*model.PlayerRecord, error) {
	var rec *model.PlayerRecord
	err := s.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		rec, err = tx.GetPlayer(ctx, player)
		if errors.Is(err, model.ErrPlayerNotFound) {
			rec = &model.PlayerRecord{Player: player, BestReactionTime: model.UnsetReactionTime}
			return nil
		}
		return err
	})
	return rec, err
}

// GetTopPlayers returns up to limit records ordered by best time, fastest first.
// Players without a time sort last; ties keep registration order.
func (s *Service) GetTopPlayers(ctx context.Context, limit int) ([]*model.PlayerRecord, error) {
	if limit <= 0 {
		return nil, model.ErrInvalidLimit
	}

	var players []*model.PlayerRecord
	err := s.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		players, err = tx.ListPlayers(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(players, func(i, j int) bool {
		if players[i].BestReactionTime != players[j].BestReactionTime {
			return players[i].BestReactionTime < players[j].BestReactionTime
		}
		return players[i].Seq < players[j].Seq
	})
	if limit > len(players) {
		limit = len(players)
	}
	return players[:limit], nil
}

// TotalPlayers returns the number of registered players
func (s *Service) TotalPlayers(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.storage.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		count, err = tx.PlayerCount(ctx)
		return err
	})
	return count, err
}

func (s *Service) ensureRegistered(ctx context.Context, tx storage.Tx, player model.Address) (*model.PlayerRecord, bool, error) {
	rec, err := tx.GetPlayer(ctx, player)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, false, err
	}

	seq, err := tx.PlayerCount(ctx)
	if err != nil {
		return nil, false, err
	}
	rec = model.NewPlayerRecord(player, seq, s.clock.Now())
	if err := tx.SavePlayer(ctx, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}
