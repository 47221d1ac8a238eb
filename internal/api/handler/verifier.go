package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/reflexpool/internal/api/request"
	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/ethcrypto"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/services/verifier"
)

// VerifierHandler handles signed reaction claim endpoints
type VerifierHandler struct {
	verifierService *verifier.Service
}

// NewVerifierHandler creates a new verifier handler
func NewVerifierHandler(verifierService *verifier.Service) *VerifierHandler {
	return &VerifierHandler{
		verifierService: verifierService,
	}
}

// Verify handles POST /api/v1/verifier/verify. A verified claim's nonce is
// consumed, so the same claim cannot be submitted to a pool afterwards.
func (h *VerifierHandler) Verify(w http.ResponseWriter, r *http.Request) {
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

	if err := h.verifierService.VerifyReaction(r.Context(), claim); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.VerifyResponse{
		Verified: true,
		Player:   claim.Player,
		Nonce:    claim.Nonce,
	})
}

// Nonce handles GET /api/v1/verifier/nonces/{nonce}
func (h *VerifierHandler) Nonce(w http.ResponseWriter, r *http.Request) {
	nonce, err := model.ParseNonce(mux.Vars(r)["nonce"])
	if err != nil {
		WriteError(w, err)
		return
	}

	used, err := h.verifierService.IsNonceUsed(r.Context(), nonce)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.NonceResponse{Nonce: nonce, Used: used})
}

// claimFromRequest validates the wire form of a claim
func claimFromRequest(req request.ReactionClaim) (model.ReactionClaim, error) {
	if req.Player.IsZero() {
		return model.ReactionClaim{}, NewInvalidRequestError("player is required")
	}
	if req.Timestamp <= 0 {
		return model.ReactionClaim{}, NewInvalidRequestError("timestamp is required")
	}
	sig, err := ethcrypto.DecodeSignature(req.Signature)
	if err != nil {
		return model.ReactionClaim{}, err
	}
	return model.ReactionClaim{
		Player:       req.Player,
		ReactionTime: req.ReactionTime,
		Timestamp:    time.Unix(req.Timestamp, 0).UTC(),
		Nonce:        req.Nonce,
		Signature:    sig,
	}, nil
}
