package response

import (
	"time"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/services/auth"
	"github.com/mcoot/reflexpool/internal/services/scenario"
	"github.com/mcoot/reflexpool/internal/token"
)

// TokenInfo describes the payment token amounts are denominated in
type TokenInfo struct {
	Address  model.Address `json:"address"`
	Symbol   string        `json:"symbol"`
	Decimals uint8         `json:"decimals"`
}

// Amount is a token amount in base units with its display form
type Amount struct {
	Units     string `json:"units"`
	Formatted string `json:"formatted"`
	Symbol    string `json:"symbol"`
}

// AmountFrom renders an amount of the given token
func AmountFrom(a model.Amount, t TokenInfo) Amount {
	return Amount{
		Units:     token.FormatAmount(a, 0),
		Formatted: token.FormatAmount(a, t.Decimals),
		Symbol:    t.Symbol,
	}
}

// Challenge is the response for a login challenge
type Challenge struct {
	Address   model.Address `json:"address"`
	Message   string        `json:"message"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// ChallengeFrom converts an auth.Challenge
func ChallengeFrom(c *auth.Challenge) Challenge {
	return Challenge{
		Address:   c.Address,
		Message:   c.Message,
		ExpiresAt: c.ExpiresAt,
	}
}

// Session is the response for authentication endpoints
type Session struct {
	Address      model.Address `json:"address"`
	IsAdmin      bool          `json:"is_admin"`
	SessionToken string        `json:"session_token,omitempty"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// SessionFrom converts an auth.Session. The token is only included on login.
func SessionFrom(s *auth.Session, withToken bool) Session {
	out := Session{
		Address:   s.Address,
		IsAdmin:   s.IsAdmin,
		ExpiresAt: s.ExpiresAt,
	}
	if withToken {
		out.SessionToken = s.Token
	}
	return out
}

// Badge is a badge tier
type Badge struct {
	Level uint8  `json:"level"`
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}

// BadgeFrom converts a model.Badge
func BadgeFrom(b model.Badge) Badge {
	return Badge{Level: uint8(b), Name: b.String(), Emoji: b.Emoji()}
}

// Player represents a player's lifetime statistics
type Player struct {
	Address          model.Address       `json:"address"`
	Registered       bool                `json:"registered"`
	BestReactionTime *model.ReactionTime `json:"best_reaction_time"`
	BestFormatted    string              `json:"best_formatted"`
	TotalGames       uint64              `json:"total_games"`
	TotalWins        uint64              `json:"total_wins"`
	HighestBadge     Badge               `json:"highest_badge"`
	LastPlayed       *time.Time          `json:"last_played"`
}

// PlayerFromModel converts a model.PlayerRecord. A nil record, or one that was
// never registered, is reported as unregistered.
func PlayerFromModel(addr model.Address, r *model.PlayerRecord) Player {
	if r == nil {
		return Player{
			Address:       addr,
			BestFormatted: model.FormatReactionTime(model.UnsetReactionTime),
			HighestBadge:  BadgeFrom(model.BadgeNone),
		}
	}

	p := Player{
		Address:       r.Player,
		Registered:    !r.RegisteredAt.IsZero(),
		BestFormatted: model.FormatReactionTime(r.BestReactionTime),
		TotalGames:    r.TotalGames,
		TotalWins:     r.TotalWins,
		HighestBadge:  BadgeFrom(r.HighestBadge),
	}
	if r.BestReactionTime.IsSet() {
		best := r.BestReactionTime
		p.BestReactionTime = &best
	}
	if !r.LastPlayed.IsZero() {
		last := r.LastPlayed
		p.LastPlayed = &last
	}
	return p
}

// RegisterResponse is the response for registering a player
type RegisterResponse struct {
	Player  Player `json:"player"`
	Created bool   `json:"created"`
}

// TopPlayersResponse is the leaderboard
type TopPlayersResponse struct {
	Players []Player `json:"players"`
}

// CountResponse carries a single count
type CountResponse struct {
	Count uint64 `json:"count"`
}

// BadgePreview is the badge a reaction time would earn
type BadgePreview struct {
	ReactionTime model.ReactionTime `json:"reaction_time"`
	Formatted    string             `json:"formatted"`
	Badge        Badge              `json:"badge"`
}

// VerifyResponse is the response for a verified claim
type VerifyResponse struct {
	Verified bool          `json:"verified"`
	Player   model.Address `json:"player"`
	Nonce    model.Nonce   `json:"nonce"`
}

// NonceResponse reports whether a nonce has been consumed
type NonceResponse struct {
	Nonce model.Nonce `json:"nonce"`
	Used  bool        `json:"used"`
}

// Pool represents a pool's status
type Pool struct {
	ID               model.PoolID        `json:"id"`
	Address          model.Address       `json:"address"`
	Creator          model.Address       `json:"creator"`
	Status           model.PoolStatus    `json:"status"`
	EntryFee         Amount              `json:"entry_fee"`
	TotalPrize       Amount              `json:"total_prize"`
	ParticipantCount int                 `json:"participant_count"`
	SubmittedCount   int                 `json:"submitted_count"`
	Outcome          model.PoolOutcome   `json:"outcome,omitempty"`
	Winner           *model.Address      `json:"winner,omitempty"`
	WinningTime      *model.ReactionTime `json:"winning_time,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	EndsAt           time.Time           `json:"ends_at"`
}

// PoolFromView converts a model.PoolStatusView
func PoolFromView(v model.PoolStatusView, t TokenInfo) Pool {
	p := Pool{
		ID:               v.ID,
		Address:          v.Address,
		Creator:          v.Creator,
		Status:           v.Status,
		EntryFee:         AmountFrom(v.EntryFee, t),
		TotalPrize:       AmountFrom(v.TotalPrize, t),
		ParticipantCount: v.ParticipantCount,
		SubmittedCount:   v.SubmittedCount,
		Outcome:          v.Outcome,
		CreatedAt:        v.CreatedAt,
		EndsAt:           v.EndsAt,
	}
	if v.Outcome == model.OutcomeWinner {
		winner, winningTime := v.Winner, v.WinningTime
		p.Winner = &winner
		p.WinningTime = &winningTime
	}
	return p
}

// PoolsResponse lists pools
type PoolsResponse struct {
	Pools []Pool `json:"pools"`
	Total uint64 `json:"total"`
}

// PlayerPoolsResponse lists the pools a player has joined
type PlayerPoolsResponse struct {
	Player model.Address  `json:"player"`
	Pools  []model.PoolID `json:"pools"`
}

// Participant represents a pool participant
type Participant struct {
	Player       model.Address       `json:"player"`
	HasSubmitted bool                `json:"has_submitted"`
	ReactionTime *model.ReactionTime `json:"reaction_time,omitempty"`
	SubmittedAt  *time.Time          `json:"submitted_at,omitempty"`
	JoinedAt     time.Time           `json:"joined_at"`
	Refunded     bool                `json:"refunded,omitempty"`
}

// ParticipantFromModel converts a model.Participant
func ParticipantFromModel(p model.Participant) Participant {
	out := Participant{
		Player:       p.Player,
		HasSubmitted: p.HasSubmitted,
		JoinedAt:     p.JoinedAt,
		Refunded:     p.Refunded,
	}
	if p.HasSubmitted {
		rt, at := p.ReactionTime, p.SubmittedAt
		out.ReactionTime = &rt
		out.SubmittedAt = &at
	}
	return out
}

// ParticipantsResponse lists a pool's participants
type ParticipantsResponse struct {
	PoolID       model.PoolID  `json:"pool_id"`
	Participants []Participant `json:"participants"`
}

// RefundResponse is the response for a claimed refund
type RefundResponse struct {
	PoolID model.PoolID `json:"pool_id"`
	Amount Amount       `json:"amount"`
}

// BalanceResponse is an account balance
type BalanceResponse struct {
	Address model.Address `json:"address"`
	Balance Amount        `json:"balance"`
}

// AllowanceResponse is the allowance an owner has granted a spender
type AllowanceResponse struct {
	Owner     model.Address `json:"owner"`
	Spender   model.Address `json:"spender"`
	Allowance Amount        `json:"allowance"`
}

// Option is a scenario answer. Correctness is not revealed.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Scenario is a disaster prompt
type Scenario struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Options     []Option `json:"options"`
}

// ScenarioFrom converts a scenario.Scenario
func ScenarioFrom(sc scenario.Scenario) Scenario {
	opts := make([]Option, len(sc.Options))
	for i, o := range sc.Options {
		opts[i] = Option{ID: o.ID, Text: o.Text}
	}
	return Scenario{
		ID:          sc.ID,
		Name:        sc.Name,
		Description: sc.Description,
		Icon:        sc.Icon,
		Options:     opts,
	}
}

// ScenariosResponse is the scenario catalogue
type ScenariosResponse struct {
	Scenarios []Scenario `json:"scenarios"`
}

// RoundResponse is a scenario with the delay to wait before showing it
type RoundResponse struct {
	Scenario Scenario `json:"scenario"`
	DelayMS  int64    `json:"delay_ms"`
}

// AnswerResponse reports whether an answer was correct
type AnswerResponse struct {
	ScenarioID string `json:"scenario_id"`
	OptionID   string `json:"option_id"`
	Correct    bool   `json:"correct"`
}
