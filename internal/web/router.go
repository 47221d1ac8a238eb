package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/reflexpool/internal/middleware"
	"github.com/mcoot/reflexpool/internal/web/handler"
	"github.com/mcoot/reflexpool/internal/web/sse"
)

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger     *slog.Logger
	Players    handler.PlayerDirectory
	Pools      handler.PoolDirectory
	Token      handler.TokenInfo
	HubManager *sse.HubManager
}

// NewRouter creates a new web router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create SSE hub manager if not provided
	hubManager := cfg.HubManager
	if hubManager == nil {
		hubManager = sse.NewHubManager(cfg.Logger)
	}

	board := handler.NewBoardHandler(cfg.Players, cfg.Pools, cfg.Token, hubManager, cfg.Logger)

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger, board.Panic))
	r.Use(middleware.Logging(cfg.Logger))

	r.HandleFunc("/", board.Home).Methods(http.MethodGet)
	r.HandleFunc("/pools/{id:[0-9]+}", board.Pool).Methods(http.MethodGet)
	r.HandleFunc("/board/events", board.Events).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(board.NotFound)

	return r
}
