package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// reservedNames can never be claimed as display names.
var reservedNames = map[string]bool{
	"admin":  true,
	"test":   true,
	"server": true,
	"system": true,
	"bot":    true,
	"ai":     true,
}

const (
	minNameLen = 2
	maxNameLen = 16
)

// validateName trims and validates a display name without touching the
// registry. Length bounds count runes, not bytes.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return "", fmt.Errorf("%w: name must be %d-%d characters", ErrInvalidArg, minNameLen, maxNameLen)
	}
	if reservedNames[strings.ToLower(name)] {
		return "", fmt.Errorf("%w: %q", ErrNameReserved, name)
	}
	return name, nil
}

// newSessionToken draws 128 bits from crypto/rand, hex encoded.
func newSessionToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(buf)
}

// JoinServer validates and reserves a display name, creates a session and
// returns its token and player id.
func (s *Server) JoinServer(name string) (sessionID, playerID string, err error) {
	name, err = validateName(name)
	if err != nil {
		return "", "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.NameAvailable(name) {
		return "", "", fmt.Errorf("%w: %q", ErrNameTaken, name)
	}

	now := time.Now()
	sess := &Session{
		ID:           newSessionToken(),
		PlayerID:     uuid.NewString(),
		DisplayName:  name,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.store.AddSession(sess); err != nil {
		return "", "", err
	}

	s.log.Infof("Player %s joined as %q", sess.PlayerID, name)
	return sess.ID, sess.PlayerID, nil
}

// CheckName runs the join-server validation without mutating anything.
func (s *Server) CheckName(name string) (bool, string) {
	name, err := validateName(name)
	if err != nil {
		return false, err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.NameAvailable(name) {
		return false, "name is already taken"
	}
	return true, ""
}

// LeaveServer destroys a session, leaving its room first when it is in one.
func (s *Server) LeaveServer(token string) error {
	var out outbox

	s.mu.Lock()
	sess, err := s.authLocked(token)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if sess.CurrentRoomID != "" {
		if room, ok := s.store.Room(sess.CurrentRoomID); ok {
			s.leaveRoomLocked(&out, room, sess.PlayerID, "leave")
		}
	}
	s.store.DeleteSession(sess)
	s.log.Infof("Player %s (%s) left the server", sess.PlayerID, sess.DisplayName)
	s.mu.Unlock()

	out.flush(s.events)
	return nil
}

// authLocked resolves a session token and refreshes its activity. Caller
// holds the server lock.
func (s *Server) authLocked(token string) (*Session, error) {
	sess, ok := s.store.SessionByToken(token)
	if !ok {
		return nil, ErrUnauthorized
	}
	sess.LastActivity = time.Now()
	return sess, nil
}

// SessionStatus is the reconnection snapshot returned by the session-status
// request.
type SessionStatus struct {
	PlayerID      string         `json:"playerId"`
	DisplayName   string         `json:"displayName"`
	CurrentRoomID string         `json:"currentRoomId,omitempty"`
	CurrentGameID string         `json:"currentGameId,omitempty"`
	Room          *RoomInfo      `json:"room,omitempty"`
	GameState     *GameStateInfo `json:"gameState,omitempty"`
}

// Status reports where a session currently stands, with a full game
// snapshot when it has an active game.
func (s *Server) Status(token string) (*SessionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.authLocked(token)
	if err != nil {
		return nil, err
	}

	status := &SessionStatus{
		PlayerID:      sess.PlayerID,
		DisplayName:   sess.DisplayName,
		CurrentRoomID: sess.CurrentRoomID,
		CurrentGameID: sess.CurrentGameID,
	}
	if room, ok := s.store.Room(sess.CurrentRoomID); ok {
		status.Room = room.Info()
	}
	if game, ok := s.store.Game(sess.CurrentGameID); ok {
		status.GameState = gameStateFor(game, sess.PlayerID)
	}
	return status, nil
}
