package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/reflexpool/internal/api/middleware"
	"github.com/mcoot/reflexpool/internal/api/request"
	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/services/poolfactory"
	"github.com/mcoot/reflexpool/internal/services/stats"
)

const defaultTopPlayers = 10

// PlayerHandler handles player statistics endpoints
type PlayerHandler struct {
	statsService *stats.Service
	poolFactory  *poolfactory.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(statsService *stats.Service, poolFactory *poolfactory.Service) *PlayerHandler {
	return &PlayerHandler{
		statsService: statsService,
		poolFactory:  poolFactory,
	}
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetCaller(r.Context())

	rec, created, err := h.statsService.RegisterPlayer(r.Context(), caller)
	if err != nil {
		WriteError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(w, status, response.RegisterResponse{
		Player:  response.PlayerFromModel(caller, rec),
		Created: created,
	})
}

// RecordReaction handles POST /api/v1/players/reactions
func (h *PlayerHandler) RecordReaction(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetCaller(r.Context())

	var req request.RecordReactionRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	rec, err := h.statsService.RecordReaction(r.Context(), caller, req.ReactionTime, req.IsWin)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(caller, rec))
}

// Top handles GET /api/v1/players/top
func (h *PlayerHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, defaultTopPlayers)
	if err != nil {
		WriteError(w, err)
		return
	}

	records, err := h.statsService.GetTopPlayers(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	players := make([]response.Player, len(records))
	for i, rec := range records {
		players[i] = response.PlayerFromModel(rec.Player, rec)
	}
	response.JSON(w, http.StatusOK, response.TopPlayersResponse{Players: players})
}

// Count handles GET /api/v1/players/count
func (h *PlayerHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.statsService.TotalPlayers(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.CountResponse{Count: count})
}

// Get handles GET /api/v1/players/{address}. Unknown players are returned as
// an unregistered zero record, not a 404.
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	rec, err := h.statsService.GetPlayerData(r.Context(), addr)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(addr, rec))
}

// Pools handles GET /api/v1/players/{address}/pools
func (h *PlayerHandler) Pools(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	ids, err := h.poolFactory.GetPlayerPools(r.Context(), addr)
	if err != nil {
		WriteError(w, err)
		return
	}
	if ids == nil {
		ids = []model.PoolID{}
	}

	response.JSON(w, http.StatusOK, response.PlayerPoolsResponse{Player: addr, Pools: ids})
}

// BadgePreview handles GET /api/v1/badges/preview?time=
// Zero is accepted here even though a submission of zero is not.
func (h *PlayerHandler) BadgePreview(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("time")
	if raw == "" {
		WriteError(w, NewInvalidRequestError("time is required"))
		return
	}
	ms, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		WriteError(w, model.ErrInvalidReactionTime)
		return
	}

	t := model.ReactionTime(ms)
	response.JSON(w, http.StatusOK, response.BadgePreview{
		ReactionTime: t,
		Formatted:    model.FormatReactionTime(t),
		Badge:        response.BadgeFrom(model.BadgeFor(t)),
	})
}
