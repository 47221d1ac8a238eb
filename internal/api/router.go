package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/reflexpool/internal/api/handler"
	"github.com/mcoot/reflexpool/internal/api/middleware"
	sharedmw "github.com/mcoot/reflexpool/internal/middleware"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/services/auth"
	"github.com/mcoot/reflexpool/internal/services/pool"
	"github.com/mcoot/reflexpool/internal/services/poolfactory"
	"github.com/mcoot/reflexpool/internal/services/scenario"
	"github.com/mcoot/reflexpool/internal/services/stats"
	"github.com/mcoot/reflexpool/internal/services/verifier"
	"github.com/mcoot/reflexpool/internal/token"
	"github.com/mcoot/reflexpool/internal/web/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	StatsService    *stats.Service
	VerifierService *verifier.Service
	PoolFactory     *poolfactory.Service
	PoolService     *pool.Service
	ScenarioService *scenario.Service
	Token           *token.Ledger
	HubManager      *sse.HubManager
	// FaucetAmount is minted per faucet call; zero disables the faucet
	FaucetAmount model.Amount
}

// address matches a 0x-prefixed 20 byte hex address
const address = "{address:0x[0-9a-fA-F]{40}}"

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	playerHandler := handler.NewPlayerHandler(cfg.StatsService, cfg.PoolFactory)
	verifierHandler := handler.NewVerifierHandler(cfg.VerifierService)
	tokenHandler := handler.NewTokenHandler(cfg.Token, cfg.PoolFactory, cfg.FaucetAmount)
	poolHandler := handler.NewPoolHandler(cfg.PoolFactory, cfg.PoolService, tokenHandler.Info())
	scenarioHandler := handler.NewScenarioHandler(cfg.ScenarioService)
	eventsHandler := handler.NewEventsHandler(cfg.HubManager)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(sharedmw.RequestID)
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(sharedmw.Logging(cfg.Logger))

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Wallet login
	api.HandleFunc("/auth/challenge", authHandler.Challenge).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.Handle("/auth/me", authMiddleware(http.HandlerFunc(authHandler.Me))).Methods(http.MethodGet)
	api.Handle("/auth/logout", authMiddleware(http.HandlerFunc(authHandler.Logout))).Methods(http.MethodPost)

	// Player statistics. Reads are public, writes act on the caller's record.
	api.Handle("/players/register", authMiddleware(http.HandlerFunc(playerHandler.Register))).Methods(http.MethodPost)
	api.Handle("/players/reactions", authMiddleware(http.HandlerFunc(playerHandler.RecordReaction))).Methods(http.MethodPost)
	api.HandleFunc("/players/top", playerHandler.Top).Methods(http.MethodGet)
	api.HandleFunc("/players/count", playerHandler.Count).Methods(http.MethodGet)
	api.HandleFunc("/players/"+address, playerHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/players/"+address+"/pools", playerHandler.Pools).Methods(http.MethodGet)
	api.HandleFunc("/players/"+address+"/events", eventsHandler.Player).Methods(http.MethodGet)
	api.HandleFunc("/badges/preview", playerHandler.BadgePreview).Methods(http.MethodGet)

	// Signed claims
	api.HandleFunc("/verifier/verify", verifierHandler.Verify).Methods(http.MethodPost)
	api.HandleFunc("/verifier/nonces/{nonce}", verifierHandler.Nonce).Methods(http.MethodGet)

	// Pools
	api.HandleFunc("/pools", poolHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/pools/{id:[0-9]+}", poolHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/pools/{id:[0-9]+}/participants", poolHandler.Participants).Methods(http.MethodGet)
	api.HandleFunc("/pools/{id:[0-9]+}/events", eventsHandler.Pool).Methods(http.MethodGet)

	pools := api.PathPrefix("/pools").Subrouter()
	pools.Use(authMiddleware)
	pools.HandleFunc("", poolHandler.Create).Methods(http.MethodPost)
	pools.HandleFunc("/{id:[0-9]+}/join", poolHandler.Join).Methods(http.MethodPost)
	pools.HandleFunc("/{id:[0-9]+}/start", poolHandler.Start).Methods(http.MethodPost)
	pools.HandleFunc("/{id:[0-9]+}/submit", poolHandler.Submit).Methods(http.MethodPost)
	pools.HandleFunc("/{id:[0-9]+}/close", poolHandler.Close).Methods(http.MethodPost)
	pools.HandleFunc("/{id:[0-9]+}/refund", poolHandler.Refund).Methods(http.MethodPost)

	// Payment token
	api.HandleFunc("/token", tokenHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/token/balance/"+address, tokenHandler.Balance).Methods(http.MethodGet)
	api.Handle("/token/approve", authMiddleware(http.HandlerFunc(tokenHandler.Approve))).Methods(http.MethodPost)
	api.Handle("/token/faucet", authMiddleware(http.HandlerFunc(tokenHandler.Faucet))).Methods(http.MethodPost)

	// Scenario catalogue
	api.HandleFunc("/scenarios", scenarioHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/random", scenarioHandler.Random).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/{id}/answer", scenarioHandler.Answer).Methods(http.MethodPost)

	// Event stream
	api.HandleFunc("/events", eventsHandler.All).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
