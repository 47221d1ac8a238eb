package handler

import (
	"net/http"

	"github.com/mcoot/reflexpool/internal/api/middleware"
	"github.com/mcoot/reflexpool/internal/api/request"
	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/ethcrypto"
	"github.com/mcoot/reflexpool/internal/services/auth"
)

// AuthHandler handles wallet login endpoints
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Challenge handles POST /api/v1/auth/challenge
func (h *AuthHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	var req request.ChallengeRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Address.IsZero() {
		WriteError(w, NewInvalidRequestError("address is required"))
		return
	}

	challenge, err := h.authService.Challenge(r.Context(), req.Address)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ChallengeFrom(challenge))
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Address.IsZero() {
		WriteError(w, NewInvalidRequestError("address is required"))
		return
	}
	if req.Signature == "" {
		WriteError(w, NewInvalidRequestError("signature is required"))
		return
	}

	sig, err := ethcrypto.DecodeSignature(req.Signature)
	if err != nil {
		WriteError(w, auth.ErrInvalidCredentials)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Address, sig)
	if err != nil {
		WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	response.JSON(w, http.StatusOK, response.SessionFrom(session, true))
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	response.JSON(w, http.StatusOK, response.SessionFrom(session, false))
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.InvalidateSession(middleware.ExtractToken(r))
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	response.NoContent(w)
}
