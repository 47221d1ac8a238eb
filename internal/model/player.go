package model

import (
	"fmt"
	"math"
	"time"
)

// ReactionTime is a reaction time in milliseconds
type ReactionTime uint64

// UnsetReactionTime marks a player who has never recorded a reaction
const UnsetReactionTime ReactionTime = math.MaxUint64

// IsSet reports whether t holds a recorded time
func (t ReactionTime) IsSet() bool {
	return t != UnsetReactionTime
}

// FormatReactionTime renders times under a second as "412ms" and longer ones as "1.27s"
func FormatReactionTime(t ReactionTime) string {
	if !t.IsSet() {
		return "-"
	}
	if t < 1000 {
		return fmt.Sprintf("%dms", uint64(t))
	}
	return fmt.Sprintf("%.2fs", float64(t)/1000)
}

// Badge is a reward tier earned by reaction speed. Higher is better.
type Badge uint8

const (
	BadgeNone   Badge = 0
	BadgeBronze Badge = 1
	BadgeSilver Badge = 2
	BadgeGold   Badge = 3
)

// Badge thresholds, inclusive lower / exclusive upper bound
const (
	GoldThreshold   ReactionTime = 300
	SilverThreshold ReactionTime = 600
	BronzeThreshold ReactionTime = 900
)

// BadgeFor classifies a single reaction time. Every badge shown or stored anywhere
// in the system must come from this function.
func BadgeFor(t ReactionTime) Badge {
	switch {
	case t < GoldThreshold:
		return BadgeGold
	case t < SilverThreshold:
		return BadgeSilver
	case t < BronzeThreshold:
		return BadgeBronze
	default:
		return BadgeNone
	}
}

func (b Badge) String() string {
	switch b {
	case BadgeGold:
		return "Gold"
	case BadgeSilver:
		return "Silver"
	case BadgeBronze:
		return "Bronze"
	default:
		return "None"
	}
}

// Emoji returns the medal for a badge, or "" for BadgeNone
func (b Badge) Emoji() string {
	switch b {
	case BadgeGold:
		return "🥇"
	case BadgeSilver:
		return "🥈"
	case BadgeBronze:
		return "🥉"
	default:
		return ""
	}
}

// PlayerRecord holds the lifetime statistics of one address
type PlayerRecord struct {
	Player           Address
	BestReactionTime ReactionTime
	TotalGames       uint64
	TotalWins        uint64
	HighestBadge     Badge
	LastPlayed       time.Time

	// Seq is the registration order, starting at 0
	Seq          uint64
	RegisteredAt time.Time
}

// NewPlayerRecord returns a zeroed record with an unset best time
func NewPlayerRecord(player Address, seq uint64, now time.Time) *PlayerRecord {
	return &PlayerRecord{
		Player:           player,
		BestReactionTime: UnsetReactionTime,
		HighestBadge:     BadgeNone,
		Seq:              seq,
		RegisteredAt:     now,
	}
}

// Clone returns a copy safe to mutate
func (r *PlayerRecord) Clone() *PlayerRecord {
	c := *r
	return &c
}
