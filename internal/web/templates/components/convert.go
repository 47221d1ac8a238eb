package components

import (
	"time"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/token"
)

// LeaderboardRows ranks records in the order given, starting at 1
func LeaderboardRows(records []*model.PlayerRecord) []LeaderboardRow {
	rows := make([]LeaderboardRow, len(records))
	for i, r := range records {
		rows[i] = LeaderboardRow{
			Rank:       i + 1,
			Player:     r.Player.String(),
			Best:       model.FormatReactionTime(r.BestReactionTime),
			Badge:      r.HighestBadge.String(),
			BadgeEmoji: r.HighestBadge.Emoji(),
			Games:      r.TotalGames,
			Wins:       r.TotalWins,
		}
	}
	return rows
}

// PoolSummaryFromModel formats a pool with amounts in whole token units
func PoolSummaryFromModel(p *model.Pool, decimals uint8, symbol string) PoolSummary {
	view := p.StatusView()
	s := PoolSummary{
		ID:           view.ID.String(),
		Address:      view.Address.String(),
		Status:       string(view.Status),
		Participants: view.ParticipantCount,
		Submitted:    view.SubmittedCount,
		EntryFee:     token.FormatAmount(view.EntryFee, decimals) + " " + symbol,
		Prize:        token.FormatAmount(view.TotalPrize, decimals) + " " + symbol,
		EndsAt:       view.EndsAt.UTC().Format(time.RFC3339),
		Outcome:      string(view.Outcome),
	}
	if p.HasWinner() {
		s.Winner = view.Winner.String()
		s.WinningTime = model.FormatReactionTime(view.WinningTime)
	}
	return s
}

// ParticipantRows formats participants in join order
func ParticipantRows(participants []model.Participant) []ParticipantRow {
	rows := make([]ParticipantRow, len(participants))
	for i, p := range participants {
		rows[i] = ParticipantRow{
			Player:    p.Player.String(),
			Reaction:  model.FormatReactionTime(p.ReactionTime),
			Submitted: p.HasSubmitted,
			Refunded:  p.Refunded,
		}
	}
	return rows
}
