package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-worldstate/internal/engine"
	"github.com/npezzotti/go-worldstate/internal/server"
	"github.com/npezzotti/go-worldstate/internal/types"
	"github.com/teris-io/shortid"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type PlayersResponse struct {
	Count   int            `json:"count"`
	Players []types.Player `json:"players"`
}

func (s *WorldApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *WorldApp) writeEngineError(w http.ResponseWriter, err error) {
	errResp := NewEngineError(err)
	if errResp.StatusCode == http.StatusInternalServerError {
		s.log.Printf("internal error: %v", err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *WorldApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewServiceUnavailableError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *WorldApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	id, err := s.engine.Register(r.Context(), engine.Call{}, engine.RegisterParams{
		LoginId:     req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	account, err := s.engine.Account(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, account)
}

func (s *WorldApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	id, err := s.engine.Authenticate(r.Context(), engine.Call{}, engine.LoginParams{
		LoginId:  lr.Email,
		Password: lr.Password,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	account, err := s.engine.Account(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	token, err := s.createJwtForSession(account.Id, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, account)
}

func (s *WorldApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *WorldApp) account(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	account, err := s.engine.Account(r.Context(), userId)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, account)
}

func (s *WorldApp) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.engine.ListRooms(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *WorldApp) roomSessions(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sessions, err := s.engine.RoomSessionsFor(r.Context(), userId, roomId)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, sessions)
}

func (s *WorldApp) onlinePlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.engine.OnlinePlayers(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, PlayersResponse{Count: len(players), Players: players})
}

func (s *WorldApp) playerCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.engine.PlayerCount(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.PlayerCount{Count: n})
}

// serveWs upgrades the request into a world connection. A valid token
// cookie binds the connection to its account up front; without one the
// client authenticates over the socket.
func (s *WorldApp) serveWs(w http.ResponseWriter, r *http.Request) {
	var userId int
	if _, err := r.Cookie(tokenCookieKey); !errors.Is(err, http.ErrNoCookie) {
		id, err := s.tokenUserId(r)
		if err != nil {
			s.log.Printf("failed to extract user id from token: %v", err)
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		userId = id
	}

	credential, err := shortid.Generate()
	if err != nil {
		s.log.Print("generate credential:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(credential, conn, s.ws, s.log)
	if !s.ws.Register(client) {
		conn.Close()
		return
	}
	s.engine.OnConnect(engine.Call{Credential: credential})

	if userId != 0 {
		if err := client.Bind(r.Context(), userId); err != nil {
			s.log.Printf("bind %s to account %d: %v", credential, userId, err)
		}
	}

	go client.Write()
	go client.Read()
}
