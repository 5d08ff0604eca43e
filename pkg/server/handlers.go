package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// apiResponse is the uniform HTTP envelope.
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: data})
}

// writeErr maps a taxonomy error onto its HTTP status. Internal failures
// are logged in full but reach the client as a generic message.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Errorf("Internal error on request: %v", err)
		msg = "internal server error"
	}
	writeJSON(w, status, apiResponse{Success: false, Error: msg})
}

// bearerToken extracts the session token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", ErrInvalidArg)
	}
	return nil
}

// Router builds the full HTTP surface: the versioned request API plus the
// websocket endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ping", s.handlePing)
		r.Post("/check-name", s.handleCheckName)
		r.Post("/join-server", s.handleJoinServer)
		r.Post("/leave-server", s.handleLeaveServer)
		r.Get("/session", s.handleSession)

		r.Get("/rooms", s.handleListRooms)
		r.Post("/rooms", s.handleCreateRoom)
		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Post("/join", s.handleJoinRoom)
			r.Post("/leave", s.handleLeaveRoom)
			r.Post("/ready", s.handleSetReady)
			r.Post("/team", s.handleChangeTeam)
			r.Post("/start", s.handleStartGame)
		})

		r.Route("/games/{gameID}", func(r chi.Router) {
			r.Post("/turn", s.handleTurn)
			r.Post("/discard", s.handleDiscardDead)
			r.Post("/rematch-vote", s.handleRematchVote)
			r.Post("/rematch-cancel", s.handleRematchCancel)
		})
	})

	r.Get("/ws", s.fanout.HandleWS)
	return r
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeOK(w, s.Ping())
}

func (s *Server) handleCheckName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	available, reason := s.CheckName(req.Name)
	writeOK(w, map[string]interface{}{
		"available": available,
		"reason":    reason,
	})
}

func (s *Server) handleJoinServer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	sessionID, playerID, err := s.JoinServer(req.Name)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, map[string]string{
		"sessionId": sessionID,
		"playerId":  playerID,
	})
}

func (s *Server) handleLeaveServer(w http.ResponseWriter, r *http.Request) {
	if err := s.LeaveServer(bearerToken(r)); err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	status, err := s.Status(bearerToken(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, status)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.ListRooms(bearerToken(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, rooms)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Mode      string `json:"mode"`
		BoardType string `json:"boardType"`
		Password  string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	info, err := s.CreateRoom(bearerToken(r), req.Name, req.Mode, req.BoardType, req.Password)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, info)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			s.writeErr(w, err)
			return
		}
	}
	info, err := s.JoinRoom(bearerToken(r), chi.URLParam(r, "roomID"), req.Password)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, info)
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.LeaveRoom(bearerToken(r), chi.URLParam(r, "roomID")); err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleSetReady(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ready bool `json:"ready"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if err := s.SetReady(bearerToken(r), chi.URLParam(r, "roomID"), req.Ready); err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleChangeTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Team int `json:"team"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if err := s.ChangeTeam(bearerToken(r), chi.URLParam(r, "roomID"), req.Team); err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	result, err := s.StartGame(bearerToken(r), chi.URLParam(r, "roomID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, result)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardIndex int `json:"cardIndex"`
		Row       int `json:"row"`
		Col       int `json:"col"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if err := s.Turn(bearerToken(r), chi.URLParam(r, "gameID"), req.CardIndex, req.Row, req.Col); err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleDiscardDead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardIndex int `json:"cardIndex"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if err := s.DiscardDead(bearerToken(r), chi.URLParam(r, "gameID"), req.CardIndex); err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleRematchVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vote bool `json:"vote"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	state, err := s.RematchVote(bearerToken(r), chi.URLParam(r, "gameID"), req.Vote)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, map[string]interface{}{"rematchState": state})
}

func (s *Server) handleRematchCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.CancelRematch(bearerToken(r), chi.URLParam(r, "gameID")); err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, nil)
}
