package components

// LeaderboardRow is one ranked player
type LeaderboardRow struct {
	Rank       int
	Player     string
	Best       string
	Badge      string
	BadgeEmoji string
	Games      uint64
	Wins       uint64
}

// BadgeLabel is the badge cell text, emoji first
func (r LeaderboardRow) BadgeLabel() string {
	return r.BadgeEmoji + " " + r.Badge
}

// PoolSummary is the board's view of a pool
type PoolSummary struct {
	ID           string
	Address      string
	Status       string
	Participants int
	Submitted    int
	EntryFee     string
	Prize        string
	EndsAt       string
	Outcome      string
	Winner       string
	WinningTime  string
}

// ParticipantRow is one pool participant
type ParticipantRow struct {
	Player    string
	Reaction  string
	Submitted bool
	Refunded  bool
}

// PoolCardID is the element id of a pool's card, the target of live updates
func PoolCardID(id string) string {
	return "pool-" + id
}
