package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Player stats events
	EventPlayerRegistered EventType = "player_registered"
	EventReactionRecorded EventType = "reaction_recorded"
	EventBadgeEarned      EventType = "badge_earned"

	// Verifier events
	EventReactionVerified EventType = "reaction_verified"

	// Pool events
	EventPoolCreated       EventType = "pool_created"
	EventParticipantJoined EventType = "participant_joined"
	EventPoolStarted       EventType = "pool_started"
	EventReactionSubmitted EventType = "reaction_submitted"
	EventPoolClosed        EventType = "pool_closed"
	EventRefundClaimed     EventType = "refund_claimed"
)

// Event is the base structure for all events
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PoolID    *PoolID   `json:"pool_id,omitempty"` // nil for events not tied to a pool
	Player    Address   `json:"player"`            // the player who triggered or is affected, zero if none
	Payload   any       `json:"payload,omitempty"` // Type-specific data
}

// PoolEvent builds an event scoped to a pool
func PoolEvent(t EventType, at time.Time, id PoolID, player Address, payload any) Event {
	return Event{Type: t, Timestamp: at, PoolID: &id, Player: player, Payload: payload}
}

// PlayerEvent builds an event scoped to a player only
func PlayerEvent(t EventType, at time.Time, player Address, payload any) Event {
	return Event{Type: t, Timestamp: at, Player: player, Payload: payload}
}

// ReactionRecordedPayload contains data for reaction recorded events
type ReactionRecordedPayload struct {
	ReactionTime ReactionTime `json:"reaction_time"`
	Badge        Badge        `json:"badge"`
	IsWin        bool         `json:"is_win"`
}

// BadgeEarnedPayload contains data for badge earned events
type BadgeEarnedPayload struct {
	Badge Badge `json:"badge"`
}

// ReactionVerifiedPayload contains data for reaction verified events
type ReactionVerifiedPayload struct {
	ReactionTime ReactionTime `json:"reaction_time"`
	Timestamp    time.Time    `json:"timestamp"`
	Nonce        Nonce        `json:"nonce"`
}

// PoolCreatedPayload contains data for pool created events
type PoolCreatedPayload struct {
	PoolAddress Address       `json:"pool_address"`
	Creator     Address       `json:"creator"`
	EntryFee    Amount        `json:"entry_fee"`
	Duration    time.Duration `json:"duration"`
}

// ParticipantJoinedPayload contains data for participant joined events
type ParticipantJoinedPayload struct {
	ParticipantCount int    `json:"participant_count"`
	TotalPrize       Amount `json:"total_prize"`
}

// ReactionSubmittedPayload contains data for reaction submitted events
type ReactionSubmittedPayload struct {
	ReactionTime ReactionTime `json:"reaction_time"`
}

// PoolClosedPayload contains data for pool closed events
type PoolClosedPayload struct {
	Outcome     PoolOutcome  `json:"outcome"`
	Winner      Address      `json:"winner"`
	WinningTime ReactionTime `json:"winning_time"`
	Prize       Amount       `json:"prize"`
}

// RefundClaimedPayload contains data for refund claimed events
type RefundClaimedPayload struct {
	Amount Amount `json:"amount"`
}
