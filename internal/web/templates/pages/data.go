package pages

import "github.com/mcoot/reflexpool/internal/web/templates/components"

// HomeData is everything the board's front page shows
type HomeData struct {
	TotalPlayers uint64
	PoolCount    uint64
	Leaderboard  []components.LeaderboardRow
	ActivePools  []components.PoolSummary
}

// PoolData is a single pool's page
type PoolData struct {
	Pool         components.PoolSummary
	Participants []components.ParticipantRow
}
