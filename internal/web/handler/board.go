package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gorilla/mux"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/web/sse"
	"github.com/mcoot/reflexpool/internal/web/templates/components"
	"github.com/mcoot/reflexpool/internal/web/templates/pages"
)

// Default sizes for the front page
const (
	leaderboardSize = 10
	activePoolLimit = 20
)

// PlayerDirectory is the read side of the stats registry
type PlayerDirectory interface {
	GetTopPlayers(ctx context.Context, limit int) ([]*model.PlayerRecord, error)
	TotalPlayers(ctx context.Context) (uint64, error)
}

// PoolDirectory is the read side of the pool factory
type PoolDirectory interface {
	GetActivePools(ctx context.Context, limit int) ([]*model.Pool, error)
	PoolCount(ctx context.Context) (uint64, error)
	GetPool(ctx context.Context, id model.PoolID) (*model.Pool, error)
}

// TokenInfo describes how amounts are displayed
type TokenInfo interface {
	Symbol() string
	Decimals() uint8
}

// BoardHandler serves the read-only leaderboard and pool pages
type BoardHandler struct {
	players    PlayerDirectory
	pools      PoolDirectory
	token      TokenInfo
	hubManager *sse.HubManager
	logger     *slog.Logger
}

// NewBoardHandler creates a new BoardHandler
func NewBoardHandler(players PlayerDirectory, pools PoolDirectory, token TokenInfo, hubManager *sse.HubManager, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{
		players:    players,
		pools:      pools,
		token:      token,
		hubManager: hubManager,
		logger:     logger,
	}
}

// Home renders the leaderboard and the active pools
func (h *BoardHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.players.TotalPlayers(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	count, err := h.pools.PoolCount(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	top, err := h.players.GetTopPlayers(ctx, leaderboardSize)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	active, err := h.pools.GetActivePools(ctx, activePoolLimit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	summaries := make([]components.PoolSummary, len(active))
	for i, p := range active {
		summaries[i] = components.PoolSummaryFromModel(p, h.token.Decimals(), h.token.Symbol())
	}

	render(w, r, http.StatusOK, pages.Home(pages.HomeData{
		TotalPlayers: total,
		PoolCount:    count,
		Leaderboard:  components.LeaderboardRows(top),
		ActivePools:  summaries,
	}))
}

// Pool renders a single pool and its participants
func (h *BoardHandler) Pool(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParsePoolID(mux.Vars(r)["id"])
	if err != nil {
		h.NotFound(w, r)
		return
	}

	p, err := h.pools.GetPool(r.Context(), id)
	if errors.Is(err, model.ErrPoolNotFound) {
		h.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	render(w, r, http.StatusOK, pages.Pool(pages.PoolData{
		Pool:         components.PoolSummaryFromModel(p, h.token.Decimals(), h.token.Symbol()),
		Participants: components.ParticipantRows(p.Participants),
	}))
}

// Events streams board fragments as they change
func (h *BoardHandler) Events(w http.ResponseWriter, r *http.Request) {
	hub := h.hubManager.GetOrCreateHub(sse.TopicBoard)
	sse.ServeSSE(w, r, hub, r.RemoteAddr)
}

// NotFound renders the 404 page
func (h *BoardHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusNotFound, pages.Error("Not found", "There is nothing at this address."))
}

// Panic renders the error page after a recovered panic
func (h *BoardHandler) Panic(w http.ResponseWriter, r *http.Request, _ any) {
	render(w, r, http.StatusInternalServerError, pages.Error("Something went wrong", "Please try again later."))
}

func (h *BoardHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("board page failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	render(w, r, http.StatusInternalServerError, pages.Error("Something went wrong", "The board could not be loaded. Please try again later."))
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = c.Render(r.Context(), w)
}
