package handler

import (
	"net/http"

	"github.com/mcoot/reflexpool/internal/api/apierr"
	"github.com/mcoot/reflexpool/internal/api/middleware"
	"github.com/mcoot/reflexpool/internal/api/request"
	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/services/poolfactory"
	"github.com/mcoot/reflexpool/internal/token"
)

// TokenHandler handles payment token endpoints
type TokenHandler struct {
	ledger       *token.Ledger
	factory      *poolfactory.Service
	faucetAmount model.Amount
}

// NewTokenHandler creates a new token handler. The faucet is disabled when
// faucetAmount is zero.
func NewTokenHandler(ledger *token.Ledger, factory *poolfactory.Service, faucetAmount model.Amount) *TokenHandler {
	return &TokenHandler{
		ledger:       ledger,
		factory:      factory,
		faucetAmount: faucetAmount,
	}
}

// Info returns the token description used for amounts in responses
func (h *TokenHandler) Info() response.TokenInfo {
	return response.TokenInfo{
		Address:  h.ledger.Address(),
		Symbol:   h.ledger.Symbol(),
		Decimals: h.ledger.Decimals(),
	}
}

// Get handles GET /api/v1/token
func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.Info())
}

// Balance handles GET /api/v1/token/balance/{address}
func (h *TokenHandler) Balance(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	balance, err := h.ledger.BalanceOf(r.Context(), addr)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.BalanceResponse{
		Address: addr,
		Balance: response.AmountFrom(balance, h.Info()),
	})
}

// Approve handles POST /api/v1/token/approve. The spender is either an
// address or the escrow of a pool.
func (h *TokenHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetCaller(r.Context())

	var req request.ApproveRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	var spender model.Address
	switch {
	case req.Spender != nil && req.PoolID != nil:
		WriteError(w, NewInvalidRequestError("only one of spender and pool_id may be set"))
		return
	case req.Spender != nil:
		spender = *req.Spender
	case req.PoolID != nil:
		p, err := h.factory.GetPool(r.Context(), *req.PoolID)
		if err != nil {
			WriteError(w, err)
			return
		}
		spender = p.Address
	default:
		WriteError(w, NewInvalidRequestError("spender or pool_id is required"))
		return
	}

	amount, err := token.ParseAmount(req.Amount, 0)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.ledger.Approve(r.Context(), caller, spender, amount); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AllowanceResponse{
		Owner:     caller,
		Spender:   spender,
		Allowance: response.AmountFrom(amount, h.Info()),
	})
}

// Faucet handles POST /api/v1/token/faucet, minting test funds to the caller
func (h *TokenHandler) Faucet(w http.ResponseWriter, r *http.Request) {
	if h.faucetAmount == 0 {
		WriteError(w, apierr.NewNotFoundError("faucet is disabled"))
		return
	}
	caller := middleware.MustGetCaller(r.Context())

	if err := h.ledger.Mint(r.Context(), caller, h.faucetAmount); err != nil {
		WriteError(w, err)
		return
	}

	balance, err := h.ledger.BalanceOf(r.Context(), caller)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.BalanceResponse{
		Address: caller,
		Balance: response.AmountFrom(balance, h.Info()),
	})
}
