package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
	now    func() time.Time
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW, now: time.Now}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printf("Status: %s\n", v.Status)
	case response.Session:
		o.printSession(v)
	case response.Player:
		o.printPlayer(v)
	case response.RegisterResponse:
		if v.Created {
			o.printf("Registered %s\n", v.Player.Address)
		} else {
			o.printf("%s was already registered\n", v.Player.Address)
		}
	case response.TopPlayersResponse:
		o.printTopPlayers(v)
	case response.PlayerPoolsResponse:
		o.printf("Pools for %s: %v\n", v.Player, v.Pools)
	case response.Pool:
		o.printPool(v)
	case response.PoolsResponse:
		o.printPools(v)
	case response.ParticipantsResponse:
		o.printParticipants(v)
	case response.RefundResponse:
		o.printf("Refunded %s %s from pool %d\n", v.Amount.Formatted, v.Amount.Symbol, v.PoolID)
	case response.BalanceResponse:
		o.printf("%s: %s %s\n", v.Address, v.Balance.Formatted, v.Balance.Symbol)
	case response.AllowanceResponse:
		o.printf("Approved %s to spend %s %s\n", v.Spender, v.Allowance.Formatted, v.Allowance.Symbol)
	case response.ScenariosResponse:
		for _, sc := range v.Scenarios {
			o.printf("%s %s (%s): %s\n", sc.Icon, sc.Name, sc.ID, sc.Description)
		}
	case SignedClaim:
		o.printClaim(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printSession(s response.Session) {
	o.printf("Address: %s\n", s.Address)
	if s.IsAdmin {
		o.printf("Admin: yes\n")
	}
	o.printf("Session expires %s\n", humanize.RelTime(s.ExpiresAt, o.now(), "ago", "from now"))
}

func (o *Output) printPlayer(p response.Player) {
	o.printf("Player: %s\n", p.Address)
	if !p.Registered {
		o.printf("Not registered\n")
		return
	}
	o.printf("Best: %s\n", p.BestFormatted)
	o.printf("Games: %s, wins: %s\n", humanize.Comma(int64(p.TotalGames)), humanize.Comma(int64(p.TotalWins)))
	o.printf("Badge: %s\n", badgeLabel(p.HighestBadge))
	if p.LastPlayed != nil {
		o.printf("Last played: %s\n", humanize.RelTime(*p.LastPlayed, o.now(), "ago", "from now"))
	}
}

func (o *Output) printTopPlayers(t response.TopPlayersResponse) {
	if len(t.Players) == 0 {
		o.printf("No players yet\n")
		return
	}
	for i, p := range t.Players {
		o.printf("%3s  %-8s %-10s %s\n", humanize.Ordinal(i+1), p.BestFormatted, badgeLabel(p.HighestBadge), p.Address)
	}
}

func (o *Output) printPool(p response.Pool) {
	o.printf("Pool %d (%s)\n", p.ID, p.Status)
	o.printf("Escrow: %s\n", p.Address)
	o.printf("Creator: %s\n", p.Creator)
	o.printf("Entry fee: %s %s\n", p.EntryFee.Formatted, p.EntryFee.Symbol)
	o.printf("Prize: %s %s\n", p.TotalPrize.Formatted, p.TotalPrize.Symbol)
	o.printf("Participants: %d (%d submitted)\n", p.ParticipantCount, p.SubmittedCount)

	switch {
	case p.Winner != nil && p.WinningTime != nil:
		o.printf("Winner: %s in %s\n", *p.Winner, model.FormatReactionTime(*p.WinningTime))
	case p.Outcome == model.OutcomeNoSubmissions:
		o.printf("Closed without submissions; entry fees are refundable\n")
	case p.Status != model.PoolStatusClosed:
		o.printf("Closes %s\n", humanize.RelTime(p.EndsAt, o.now(), "ago", "from now"))
	}
}

func (o *Output) printPools(list response.PoolsResponse) {
	if len(list.Pools) == 0 {
		o.printf("No pools\n")
		return
	}
	for _, p := range list.Pools {
		o.printf("#%-4d %-7s %s %s, %d players, prize %s\n",
			p.ID, p.Status, p.EntryFee.Formatted, p.EntryFee.Symbol, p.ParticipantCount, p.TotalPrize.Formatted)
	}
	o.printf("%s pools in total\n", humanize.Comma(int64(list.Total)))
}

func (o *Output) printParticipants(list response.ParticipantsResponse) {
	o.printf("Pool %d participants (%d):\n", list.PoolID, len(list.Participants))
	for _, p := range list.Participants {
		status := "waiting"
		if p.ReactionTime != nil {
			status = model.FormatReactionTime(*p.ReactionTime)
		}
		if p.Refunded {
			status += ", refunded"
		}
		o.printf("  - %s %s\n", p.Player, status)
	}
}

func (o *Output) printClaim(c SignedClaim) {
	o.printf("Player: %s\n", c.Player)
	o.printf("Reaction time: %s\n", model.FormatReactionTime(c.ReactionTime))
	o.printf("Timestamp: %d\n", c.Timestamp)
	o.printf("Nonce: %s\n", c.Nonce)
	o.printf("Signature: %s\n", c.Signature)
}

func badgeLabel(b response.Badge) string {
	if b.Emoji == "" {
		return b.Name
	}
	return b.Emoji + " " + b.Name
}
