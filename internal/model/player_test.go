package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBadgeForBoundaries(t *testing.T) {
	tests := []struct {
		time     ReactionTime
		expected Badge
	}{
		{0, BadgeGold},
		{1, BadgeGold},
		{299, BadgeGold},
		{300, BadgeSilver},
		{599, BadgeSilver},
		{600, BadgeBronze},
		{899, BadgeBronze},
		{900, BadgeNone},
		{5000, BadgeNone},
		{UnsetReactionTime, BadgeNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BadgeFor(tt.time), "time %d", tt.time)
	}
}

func TestBadgeForIsMonotonicNonIncreasing(t *testing.T) {
	prev := BadgeFor(0)
	for ms := ReactionTime(1); ms <= 1200; ms++ {
		b := BadgeFor(ms)
		assert.LessOrEqual(t, b, prev, "badge rose at %dms", ms)
		prev = b
	}
}

func TestBadgeNamesAndEmoji(t *testing.T) {
	assert.Equal(t, "Gold", BadgeGold.String())
	assert.Equal(t, "Silver", BadgeSilver.String())
	assert.Equal(t, "Bronze", BadgeBronze.String())
	assert.Equal(t, "None", BadgeNone.String())

	assert.Equal(t, "🥇", BadgeGold.Emoji())
	assert.Empty(t, BadgeNone.Emoji())
}

func TestFormatReactionTime(t *testing.T) {
	assert.Equal(t, "412ms", FormatReactionTime(412))
	assert.Equal(t, "999ms", FormatReactionTime(999))
	assert.Equal(t, "1.00s", FormatReactionTime(1000))
	assert.Equal(t, "1.27s", FormatReactionTime(1270))
	assert.Equal(t, "-", FormatReactionTime(UnsetReactionTime))
}

func TestNewPlayerRecordIsUnset(t *testing.T) {
	r := NewPlayerRecord(MustParseAddress("0x1111111111111111111111111111111111111111"), 0, time.Time{})
	assert.False(t, r.BestReactionTime.IsSet())
	assert.Equal(t, BadgeNone, r.HighestBadge)
	assert.Zero(t, r.TotalGames)
}
