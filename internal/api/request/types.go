package request

import (
	"github.com/mcoot/reflexpool/internal/model"
)

// ChallengeRequest is the request body for starting a wallet login
type ChallengeRequest struct {
	Address model.Address `json:"address"`
}

// LoginRequest is the request body for completing a wallet login
type LoginRequest struct {
	Address   model.Address `json:"address"`
	Signature string        `json:"signature"`
}

// RecordReactionRequest is the request body for recording a free-play reaction
type RecordReactionRequest struct {
	ReactionTime model.ReactionTime `json:"reaction_time"`
	IsWin        bool               `json:"is_win"`
}

// ReactionClaim is a signed reaction claim. Timestamp is unix seconds.
type ReactionClaim struct {
	Player       model.Address      `json:"player"`
	ReactionTime model.ReactionTime `json:"reaction_time"`
	Timestamp    int64              `json:"timestamp"`
	Nonce        model.Nonce        `json:"nonce"`
	Signature    string             `json:"signature"`
}

// CreatePoolRequest is the request body for creating a pool. EntryFee is in
// base units and Duration in seconds.
type CreatePoolRequest struct {
	EntryFee string `json:"entry_fee"`
	Duration int64  `json:"duration"`
}

// ApproveRequest is the request body for approving a spender. Either Spender
// or PoolID names the spender.
type ApproveRequest struct {
	Spender *model.Address `json:"spender,omitempty"`
	PoolID  *model.PoolID  `json:"pool_id,omitempty"`
	Amount  string         `json:"amount"`
}

// AnswerRequest is the request body for answering a scenario
type AnswerRequest struct {
	OptionID string `json:"option_id"`
}
