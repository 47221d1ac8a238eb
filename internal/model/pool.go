package model

import (
	"math"
	"strconv"
	"time"
)

// Amount is a count of payment token base units
type Amount uint64

// PoolID identifies a pool. IDs are assigned from 0 upwards.
type PoolID uint64

func (id PoolID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParsePoolID parses a decimal pool id
func ParsePoolID(s string) (PoolID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrPoolNotFound
	}
	return PoolID(v), nil
}

// MinPoolDuration is the shortest duration a pool can be created with
const MinPoolDuration = 60 * time.Second

// MaxPoolDuration is the longest whole number of seconds a time.Duration holds
const MaxPoolDuration = math.MaxInt64 / time.Second * time.Second

// PoolDurationFromSeconds converts a requested duration, rejecting values that
// would overflow a time.Duration
func PoolDurationFromSeconds(seconds int64) (time.Duration, error) {
	switch {
	case seconds < 0:
		return 0, ErrDurationTooShort
	case seconds > int64(MaxPoolDuration/time.Second):
		return 0, ErrDurationTooLong
	}
	return time.Duration(seconds) * time.Second, nil
}

// PoolStatus is the lifecycle state of a pool
type PoolStatus string

const (
	PoolStatusOpen   PoolStatus = "open"
	PoolStatusActive PoolStatus = "active"
	PoolStatusClosed PoolStatus = "closed"
)

// PoolOutcome records how a closed pool was settled
type PoolOutcome string

const (
	OutcomeNone          PoolOutcome = ""
	OutcomeWinner        PoolOutcome = "winner"
	OutcomeNoSubmissions PoolOutcome = "no_submissions"
)

// Participant is a player who has joined a pool
type Participant struct {
	Player       Address
	ReactionTime ReactionTime
	HasSubmitted bool
	SubmittedAt  time.Time
	JoinedAt     time.Time
	Refunded     bool
}

// Pool is a single prize pool with a fixed entry fee and duration
type Pool struct {
	ID       PoolID
	Address  Address // escrow account holding the entry fees
	Creator  Address
	EntryFee Amount
	Duration time.Duration

	TokenAddress Address
	StatsAddress Address

	Participants []Participant
	TotalPrize   Amount

	CreatedAt time.Time
	Started   bool
	StartedAt time.Time
	Closed    bool
	ClosedAt  time.Time

	Outcome     PoolOutcome
	Winner      Address
	WinningTime ReactionTime
}

// Status derives the lifecycle state from the started/closed flags
func (p *Pool) Status() PoolStatus {
	switch {
	case p.Closed:
		return PoolStatusClosed
	case p.Started:
		return PoolStatusActive
	default:
		return PoolStatusOpen
	}
}

// EndsAt is the earliest time the pool may be closed
func (p *Pool) EndsAt() time.Time {
	return p.CreatedAt.Add(p.Duration)
}

// Participant returns the participant entry for a player, or nil
func (p *Pool) Participant(player Address) *Participant {
	for i := range p.Participants {
		if p.Participants[i].Player == player {
			return &p.Participants[i]
		}
	}
	return nil
}

// HasWinner reports whether the pool closed with a winner
func (p *Pool) HasWinner() bool {
	return p.Closed && p.Outcome == OutcomeWinner
}

// Clone returns a deep copy safe to mutate
func (p *Pool) Clone() *Pool {
	c := *p
	c.Participants = make([]Participant, len(p.Participants))
	copy(c.Participants, p.Participants)
	return &c
}

// PoolStatusView is the consistent read model of a pool's admin fields
type PoolStatusView struct {
	ID               PoolID
	Address          Address
	Creator          Address
	Status           PoolStatus
	ParticipantCount int
	SubmittedCount   int
	EntryFee         Amount
	TotalPrize       Amount
	Started          bool
	Closed           bool
	Outcome          PoolOutcome
	Winner           Address
	WinningTime      ReactionTime
	CreatedAt        time.Time
	EndsAt           time.Time
}

// StatusView snapshots the pool's status fields
func (p *Pool) StatusView() PoolStatusView {
	submitted := 0
	for _, part := range p.Participants {
		if part.HasSubmitted {
			submitted++
		}
	}
	return PoolStatusView{
		ID:               p.ID,
		Address:          p.Address,
		Creator:          p.Creator,
		Status:           p.Status(),
		ParticipantCount: len(p.Participants),
		SubmittedCount:   submitted,
		EntryFee:         p.EntryFee,
		TotalPrize:       p.TotalPrize,
		Started:          p.Started,
		Closed:           p.Closed,
		Outcome:          p.Outcome,
		Winner:           p.Winner,
		WinningTime:      p.WinningTime,
		CreatedAt:        p.CreatedAt,
		EndsAt:           p.EndsAt(),
	}
}

// ReactionClaim is a signed statement by a player of a reaction time
type ReactionClaim struct {
	Player       Address
	ReactionTime ReactionTime
	Timestamp    time.Time // whole seconds are signed
	Nonce        Nonce
	Signature    []byte
}

// UsedNonce records a consumed nonce
type UsedNonce struct {
	Nonce      Nonce
	Player     Address
	ClaimedAt  time.Time // timestamp carried by the claim
	ConsumedAt time.Time
}
