package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-worldstate/internal/config"
	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/engine"
	"github.com/npezzotti/go-worldstate/internal/server"
)

// WorldApp is the HTTP surface of the world: account endpoints, read-only
// views of rooms and players, and the websocket upgrade that carries
// every other operation.
type WorldApp struct {
	log            *log.Logger
	engine         *engine.Engine
	store          database.Store
	mux            *http.Server
	ws             *server.WorldServer
	signingKey     []byte
	allowedOrigins []string
}

func NewWorldApp(mux *http.ServeMux, logger *log.Logger, ws *server.WorldServer, e *engine.Engine, store database.Store, cfg *config.Config) *WorldApp {
	s := &WorldApp{
		log:            logger,
		engine:         e,
		store:          store,
		ws:             ws,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("GET /api/account", s.authMiddleware(s.account))
	mux.HandleFunc("GET /api/rooms", s.listRooms)
	mux.HandleFunc("GET /api/rooms/{id}/sessions", s.authMiddleware(s.roomSessions))
	mux.HandleFunc("GET /api/players", s.onlinePlayers)
	mux.HandleFunc("GET /api/players/count", s.playerCount)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *WorldApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *WorldApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
