package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/reflexpool/internal/api/middleware"
	"github.com/mcoot/reflexpool/internal/api/request"
	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/services/pool"
	"github.com/mcoot/reflexpool/internal/services/poolfactory"
	"github.com/mcoot/reflexpool/internal/token"
)

const defaultPoolListLimit = 50

// PoolHandler handles pool lifecycle endpoints
type PoolHandler struct {
	factory     *poolfactory.Service
	poolService *pool.Service
	token       response.TokenInfo
}

// NewPoolHandler creates a new pool handler
func NewPoolHandler(factory *poolfactory.Service, poolService *pool.Service, token response.TokenInfo) *PoolHandler {
	return &PoolHandler{
		factory:     factory,
		poolService: poolService,
		token:       token,
	}
}

// Create handles POST /api/v1/pools
func (h *PoolHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetCaller(r.Context())

	var req request.CreatePoolRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.EntryFee == "" {
		WriteError(w, NewInvalidRequestError("entry_fee is required"))
		return
	}

	fee, err := token.ParseAmount(req.EntryFee, 0)
	if err != nil {
		WriteError(w, err)
		return
	}

	duration, err := model.PoolDurationFromSeconds(req.Duration)
	if err != nil {
		WriteError(w, err)
		return
	}

	p, err := h.factory.CreatePool(r.Context(), caller, fee, duration)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PoolFromView(p.StatusView(), h.token))
}

// List handles GET /api/v1/pools. With active=true only open and running pools
// are listed. Pools come newest first.
func (h *PoolHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, defaultPoolListLimit)
	if err != nil {
		WriteError(w, err)
		return
	}

	total, err := h.factory.PoolCount(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	var pools []*model.Pool
	if r.URL.Query().Get("active") == "true" {
		pools, err = h.factory.GetActivePools(r.Context(), limit)
	} else {
		pools, err = h.latest(r, total, limit)
	}
	if err != nil {
		WriteError(w, err)
		return
	}

	out := make([]response.Pool, len(pools))
	for i, p := range pools {
		out[i] = response.PoolFromView(p.StatusView(), h.token)
	}
	response.JSON(w, http.StatusOK, response.PoolsResponse{Pools: out, Total: total})
}

func (h *PoolHandler) latest(r *http.Request, total uint64, limit int) ([]*model.Pool, error) {
	var pools []*model.Pool
	for id := total; id > 0 && len(pools) < limit; id-- {
		p, err := h.factory.GetPool(r.Context(), model.PoolID(id-1))
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, nil
}

// Get handles GET /api/v1/pools/{id}
func (h *PoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := poolIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	view, err := h.poolService.GetPoolStatus(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PoolFromView(view, h.token))
}

// Participants handles GET /api/v1/pools/{id}/participants
func (h *PoolHandler) Participants(w http.ResponseWriter, r *http.Request) {
	id, err := poolIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	participants, err := h.poolService.GetParticipants(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	out := make([]response.Participant, len(participants))
	for i, p := range participants {
		out[i] = response.ParticipantFromModel(p)
	}
	response.JSON(w, http.StatusOK, response.ParticipantsResponse{PoolID: id, Participants: out})
}

// Join handles POST /api/v1/pools/{id}/join
func (h *PoolHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.poolService.Join)
}

// Start handles POST /api/v1/pools/{id}/start
func (h *PoolHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.poolService.Start)
}

// Close handles POST /api/v1/pools/{id}/close
func (h *PoolHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.poolService.Close)
}

// Submit handles POST /api/v1/pools/{id}/submit
func (h *PoolHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req request.ReactionClaim
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	claim, err := claimFromRequest(req)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.transition(w, r, func(ctx context.Context, id model.PoolID, caller model.Address) (*model.Pool, error) {
		return h.poolService.Submit(ctx, id, caller, claim)
	})
}

// Refund handles POST /api/v1/pools/{id}/refund
func (h *PoolHandler) Refund(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetCaller(r.Context())
	id, err := poolIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	amount, err := h.poolService.ClaimRefund(r.Context(), id, caller)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RefundResponse{
		PoolID: id,
		Amount: response.AmountFrom(amount, h.token),
	})
}

type poolAction func(ctx context.Context, id model.PoolID, caller model.Address) (*model.Pool, error)

// transition runs a caller-driven pool action and returns the new status
func (h *PoolHandler) transition(w http.ResponseWriter, r *http.Request, action poolAction) {
	caller := middleware.MustGetCaller(r.Context())
	id, err := poolIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	p, err := action(r.Context(), id, caller)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PoolFromView(p.StatusView(), h.token))
}
