package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/reflexpool/internal/dependencies/mocks"
	"github.com/mcoot/reflexpool/internal/events"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/storage/memory"
	"github.com/mcoot/reflexpool/internal/testutil"
)

var (
	alice = model.MustParseAddress("0xa11ce00000000000000000000000000000000001")
	bob   = model.MustParseAddress("0xb0b0000000000000000000000000000000000002")
	carol = model.MustParseAddress("0xca00000000000000000000000000000000000003")
)

type ServiceSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	recorder *events.Recorder
	service  *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.recorder = events.NewRecorder()
	s.service = New(s.storage, s.clock, s.recorder, testutil.NopLogger())
	s.ctx = context.Background()
}

// RegisterPlayer tests

func (s *ServiceSuite) TestRegisterPlayerCreatesZeroedRecord() {
	rec, created, err := s.service.RegisterPlayer(s.ctx, alice)
	s.Require().NoError(err)

	s.True(created)
	s.Equal(alice, rec.Player)
	s.Equal(model.UnsetReactionTime, rec.BestReactionTime)
	s.Zero(rec.TotalGames)
	s.Zero(rec.TotalWins)
	s.Equal(model.BadgeNone, rec.HighestBadge)
	s.Equal(s.clock.Now(), rec.RegisteredAt)
}

func (s *ServiceSuite) TestRegisterPlayerIsIdempotent() {
	_, _, err := s.service.RegisterPlayer(s.ctx, alice)
	s.Require().NoError(err)
	_, err = s.service.RecordReaction(s.ctx, alice, 400, false)
	s.Require().NoError(err)

	rec, created, err := s.service.RegisterPlayer(s.ctx, alice)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(uint64(1), rec.TotalGames)

	s.Len(s.recorder.OfType(model.EventPlayerRegistered), 1)
	total, err := s.service.TotalPlayers(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), total)
}

func (s *ServiceSuite) TestRegisterZeroAddressFails() {
	_, _, err := s.service.RegisterPlayer(s.ctx, model.ZeroAddress)
	s.ErrorIs(err, model.ErrInvalidAddress)
}

// RecordReaction tests

func (s *ServiceSuite) TestRecordReactionAutoRegisters() {
	rec, err := s.service.RecordReaction(s.ctx, alice, 250, false)
	s.Require().NoError(err)

	s.Equal(uint64(1), rec.TotalGames)
	s.Equal(model.ReactionTime(250), rec.BestReactionTime)
	s.Equal(model.BadgeGold, rec.HighestBadge)
	s.Equal(s.clock.Now(), rec.LastPlayed)

	s.Equal([]model.EventType{
		model.EventPlayerRegistered,
		model.EventReactionRecorded,
		model.EventBadgeEarned,
	}, s.recorder.Types())
}

func (s *ServiceSuite) TestRecordReactionRejectsZeroTime() {
	_, err := s.service.RecordReaction(s.ctx, alice, 0, false)
	s.ErrorIs(err, model.ErrInvalidReactionTime)

	total, err := s.service.TotalPlayers(s.ctx)
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(s.recorder.Events())
}

func (s *ServiceSuite) TestBestTimeIsMinimumOfAllSubmissions() {
	for _, t := range []model.ReactionTime{500, 300, 200, 800} {
		_, err := s.service.RecordReaction(s.ctx, alice, t, false)
		s.Require().NoError(err)
	}

	rec, err := s.service.GetPlayerData(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(model.ReactionTime(200), rec.BestReactionTime)
	s.Equal(uint64(4), rec.TotalGames)
}

func (s *ServiceSuite) TestHighestBadgeNeverLowers() {
	_, err := s.service.RecordReaction(s.ctx, alice, 250, false)
	s.Require().NoError(err)

	rec, err := s.service.RecordReaction(s.ctx, alice, 950, false)
	s.Require().NoError(err)
	s.Equal(model.BadgeGold, rec.HighestBadge)

	recorded := s.recorder.OfType(model.EventReactionRecorded)
	s.Require().Len(recorded, 2)
	// The per-reaction badge reflects the time just submitted
	s.Equal(model.BadgeNone, recorded[1].Payload.(model.ReactionRecordedPayload).Badge)
	s.Len(s.recorder.OfType(model.EventBadgeEarned), 1)
}

func (s *ServiceSuite) TestBadgeEarnedOnlyWhenBadgeRises() {
	times := []model.ReactionTime{700, 650, 450, 500, 100}
	for _, t := range times {
		_, err := s.service.RecordReaction(s.ctx, alice, t, false)
		s.Require().NoError(err)
	}

	earned := s.recorder.OfType(model.EventBadgeEarned)
	s.Require().Len(earned, 3)
	s.Equal(model.BadgeBronze, earned[0].Payload.(model.BadgeEarnedPayload).Badge)
	s.Equal(model.BadgeSilver, earned[1].Payload.(model.BadgeEarnedPayload).Badge)
	s.Equal(model.BadgeGold, earned[2].Payload.(model.BadgeEarnedPayload).Badge)
}

func (s *ServiceSuite) TestBadgeFromTimeNotRunningBest() {
	_, err := s.service.RecordReaction(s.ctx, alice, 950, false)
	s.Require().NoError(err)
	rec, err := s.service.RecordReaction(s.ctx, alice, 650, false)
	s.Require().NoError(err)

	s.Equal(model.BadgeBronze, rec.HighestBadge)
}

func (s *ServiceSuite) TestWinsCounted() {
	_, err := s.service.RecordReaction(s.ctx, alice, 400, true)
	s.Require().NoError(err)
	rec, err := s.service.RecordReaction(s.ctx, alice, 400, false)
	s.Require().NoError(err)

	s.Equal(uint64(2), rec.TotalGames)
	s.Equal(uint64(1), rec.TotalWins)
}

func (s *ServiceSuite) TestLastPlayedTracksClock() {
	_, err := s.service.RecordReaction(s.ctx, alice, 400, false)
	s.Require().NoError(err)

	s.clock.Advance(time.Hour)
	rec, err := s.service.RecordReaction(s.ctx, alice, 400, false)
	s.Require().NoError(err)
	s.Equal(s.clock.Now(), rec.LastPlayed)
}

// GetPlayerData tests

func (s *ServiceSuite) TestGetPlayerDataUnknownReturnsZeroRecord() {
	rec, err := s.service.GetPlayerData(s.ctx, bob)
	s.Require().NoError(err)

	s.Equal(bob, rec.Player)
	s.Equal(model.UnsetReactionTime, rec.BestReactionTime)
	s.True(rec.RegisteredAt.IsZero())
}

// GetTopPlayers tests

func (s *ServiceSuite) TestTopPlayersOrdering() {
	_, err := s.service.RecordReaction(s.ctx, alice, 500, false)
	s.Require().NoError(err)
	_, err = s.service.RecordReaction(s.ctx, bob, 200, false)
	s.Require().NoError(err)

	top, err := s.service.GetTopPlayers(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal(bob, top[0].Player)
	s.Equal(model.ReactionTime(200), top[0].BestReactionTime)
	s.Equal(alice, top[1].Player)
	s.Equal(model.ReactionTime(500), top[1].BestReactionTime)
}

func (s *ServiceSuite) TestTopPlayersUnsetLastAndTiesByRegistration() {
	_, _, err := s.service.RegisterPlayer(s.ctx, carol)
	s.Require().NoError(err)
	_, err = s.service.RecordReaction(s.ctx, bob, 300, false)
	s.Require().NoError(err)
	_, err = s.service.RecordReaction(s.ctx, alice, 300, false)
	s.Require().NoError(err)

	top, err := s.service.GetTopPlayers(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(top, 3)
	s.Equal(bob, top[0].Player)
	s.Equal(alice, top[1].Player)
	s.Equal(carol, top[2].Player)
}

func (s *ServiceSuite) TestTopPlayersLimit() {
	for _, p := range []model.Address{alice, bob, carol} {
		_, err := s.service.RecordReaction(s.ctx, p, 400, false)
		s.Require().NoError(err)
	}

	top, err := s.service.GetTopPlayers(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(top, 2)

	_, err = s.service.GetTopPlayers(s.ctx, 0)
	s.ErrorIs(err, model.ErrInvalidLimit)
}
