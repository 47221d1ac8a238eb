package sse

import (
	"bytes"
	"context"

	"github.com/a-h/templ"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/web/templates/components"
)

// LeaderboardEvent is the SSE event name carrying a re-rendered leaderboard
const LeaderboardEvent = "leaderboard-update"

// PoolReader loads pools for rendering
type PoolReader interface {
	GetPool(ctx context.Context, id model.PoolID) (*model.Pool, error)
}

// LeaderboardReader loads the ranked players for rendering
type LeaderboardReader interface {
	GetTopPlayers(ctx context.Context, limit int) ([]*model.PlayerRecord, error)
}

// RendererConfig controls how fragments are formatted
type RendererConfig struct {
	LeaderboardSize int
	TokenDecimals   uint8
	TokenSymbol     string
}

// Renderer converts domain events into board HTML fragments
type Renderer struct {
	pools   PoolReader
	players LeaderboardReader
	cfg     RendererConfig
}

// NewRenderer creates a new Renderer
func NewRenderer(pools PoolReader, players LeaderboardReader, cfg RendererConfig) *Renderer {
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = 10
	}
	return &Renderer{pools: pools, players: players, cfg: cfg}
}

// EventData is one named SSE fragment
type EventData struct {
	EventName string
	HTML      string
}

// RenderEvent returns the fragments to push for e. Events that change nothing on
// the board yield none.
func (r *Renderer) RenderEvent(ctx context.Context, e model.Event) ([]EventData, error) {
	switch e.Type {
	case model.EventPoolCreated, model.EventParticipantJoined, model.EventPoolStarted,
		model.EventReactionSubmitted, model.EventPoolClosed, model.EventRefundClaimed:
		if e.PoolID == nil {
			return nil, nil
		}
		html, err := r.RenderPoolCard(ctx, *e.PoolID)
		if err != nil {
			return nil, err
		}
		return []EventData{{EventName: components.PoolCardID(e.PoolID.String()), HTML: html}}, nil

	case model.EventPlayerRegistered, model.EventReactionRecorded:
		html, err := r.RenderLeaderboard(ctx)
		if err != nil {
			return nil, err
		}
		return []EventData{{EventName: LeaderboardEvent, HTML: html}}, nil
	}
	return nil, nil
}

// RenderPoolCard renders the current card for pool id
func (r *Renderer) RenderPoolCard(ctx context.Context, id model.PoolID) (string, error) {
	pool, err := r.pools.GetPool(ctx, id)
	if err != nil {
		return "", err
	}
	return render(ctx, components.PoolCard(components.PoolSummaryFromModel(pool, r.cfg.TokenDecimals, r.cfg.TokenSymbol)))
}

// RenderLeaderboard renders the current leaderboard
func (r *Renderer) RenderLeaderboard(ctx context.Context) (string, error) {
	records, err := r.players.GetTopPlayers(ctx, r.cfg.LeaderboardSize)
	if err != nil {
		return "", err
	}
	return render(ctx, components.Leaderboard(components.LeaderboardRows(records)))
}

func render(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
