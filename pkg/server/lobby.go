package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vctt94/sequence-server/pkg/sequence"
)

// broadcastRoom queues an event for every human member of a room.
func broadcastRoom(out *outbox, room *Room, typ EventType, data interface{}) {
	for _, p := range room.Players {
		if !p.IsAI {
			out.send(p.PlayerID, typ, data)
		}
	}
}

// CreateRoom opens a new lobby with the caller as sole, ready host.
func (s *Server) CreateRoom(token, name, mode, boardType, password string) (*RoomInfo, error) {
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 30 {
		return nil, fmt.Errorf("%w: room name must be 3-30 characters", ErrInvalidArg)
	}
	roomMode, ok := ParseRoomMode(mode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidArg, mode)
	}
	bt, err := sequence.ParseBoardType(boardType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArg, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.authLocked(token)
	if err != nil {
		return nil, err
	}
	if sess.CurrentRoomID != "" {
		return nil, fmt.Errorf("%w: already in a room", ErrConflict)
	}

	room := &Room{
		ID:         uuid.NewString(),
		Name:       name,
		Mode:       roomMode,
		BoardType:  bt,
		Password:   password,
		Status:     RoomWaiting,
		HostID:     sess.PlayerID,
		MaxPlayers: roomMode.MaxPlayers(),
		CreatedAt:  time.Now(),
	}
	room.Players = append(room.Players, &RoomPlayer{
		PlayerID:    sess.PlayerID,
		DisplayName: sess.DisplayName,
		IsHost:      true,
		IsReady:     true,
		Team:        1,
		JoinedAt:    time.Now(),
	})
	s.store.AddRoom(room)
	sess.CurrentRoomID = room.ID

	s.log.Infof("Room %s (%q) created by %s", room.ID, room.Name, sess.DisplayName)
	return room.Info(), nil
}

// JoinRoom seats the caller in a waiting room, balancing teams.
func (s *Server) JoinRoom(token, roomID, password string) (*RoomInfo, error) {
	var out outbox

	s.mu.Lock()
	info, err := s.joinRoomLocked(&out, token, roomID, password)
	s.mu.Unlock()

	out.flush(s.events)
	return info, err
}

func (s *Server) joinRoomLocked(out *outbox, token, roomID, password string) (*RoomInfo, error) {
	sess, err := s.authLocked(token)
	if err != nil {
		return nil, err
	}
	if sess.CurrentRoomID != "" {
		return nil, fmt.Errorf("%w: already in a room", ErrConflict)
	}

	room, ok := s.store.Room(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	if room.Status != RoomWaiting {
		return nil, fmt.Errorf("%w: room is not accepting players", ErrConflict)
	}
	if len(room.Players) >= room.MaxPlayers {
		return nil, fmt.Errorf("%w: room is full", ErrConflict)
	}
	if room.Password != "" && room.Password != password {
		return nil, fmt.Errorf("%w: wrong password", ErrConflict)
	}

	// join the smaller team, team 1 on a tie
	team := 1
	if room.TeamCount(2) < room.TeamCount(1) {
		team = 2
	}
	room.Players = append(room.Players, &RoomPlayer{
		PlayerID:    sess.PlayerID,
		DisplayName: sess.DisplayName,
		Team:        team,
		JoinedAt:    time.Now(),
	})
	sess.CurrentRoomID = room.ID

	broadcastRoom(out, room, EventPlayerJoined, PlayerJoinedPayload{
		PlayerID:    sess.PlayerID,
		DisplayName: sess.DisplayName,
	})
	broadcastRoom(out, room, EventRoomUpdated, RoomUpdatedPayload{Room: room.Info()})

	s.log.Debugf("Player %s joined room %s on team %d", sess.DisplayName, room.ID, team)
	return room.Info(), nil
}

// LeaveRoom removes the caller from a room they are a member of.
func (s *Server) LeaveRoom(token, roomID string) error {
	var out outbox

	s.mu.Lock()
	err := func() error {
		sess, err := s.authLocked(token)
		if err != nil {
			return err
		}
		room, ok := s.store.Room(roomID)
		if !ok || room.Player(sess.PlayerID) == nil {
			return fmt.Errorf("%w: not in room %s", ErrNotFound, roomID)
		}
		s.leaveRoomLocked(&out, room, sess.PlayerID, "leave")
		return nil
	}()
	s.mu.Unlock()

	out.flush(s.events)
	return err
}

// leaveRoomLocked removes a player from a room, transfers the host to the
// earliest-joined remaining human, and deletes the room once no humans are
// left. Caller holds the server lock.
func (s *Server) leaveRoomLocked(out *outbox, room *Room, playerID, reason string) {
	var leaving *RoomPlayer
	kept := room.Players[:0]
	for _, p := range room.Players {
		if p.PlayerID == playerID {
			leaving = p
			continue
		}
		kept = append(kept, p)
	}
	if leaving == nil {
		return
	}
	room.Players = kept

	if sess, ok := s.store.SessionByPlayer(playerID); ok {
		sess.CurrentRoomID = ""
	}

	if room.HumanCount() == 0 {
		s.store.DeleteRoom(room.ID)
		s.log.Infof("Room %s deleted (no human players left)", room.ID)
		return
	}

	newHostID := ""
	if leaving.IsHost {
		var next *RoomPlayer
		for _, p := range room.Players {
			if p.IsAI {
				continue
			}
			if next == nil || p.JoinedAt.Before(next.JoinedAt) {
				next = p
			}
		}
		if next != nil {
			next.IsHost = true
			next.IsReady = true
			room.HostID = next.PlayerID
			newHostID = next.PlayerID
			s.log.Infof("Room %s host transferred to %s", room.ID, next.DisplayName)
		}
	}

	broadcastRoom(out, room, EventPlayerLeft, PlayerLeftPayload{
		PlayerID:  playerID,
		Reason:    reason,
		NewHostID: newHostID,
	})
	broadcastRoom(out, room, EventRoomUpdated, RoomUpdatedPayload{Room: room.Info()})
}

// SetReady flips the caller's ready flag. The host is always ready.
func (s *Server) SetReady(token, roomID string, ready bool) error {
	var out outbox

	s.mu.Lock()
	err := func() error {
		sess, err := s.authLocked(token)
		if err != nil {
			return err
		}
		room, ok := s.store.Room(roomID)
		if !ok {
			return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
		}
		player := room.Player(sess.PlayerID)
		if player == nil {
			return fmt.Errorf("%w: not in room %s", ErrNotFound, roomID)
		}
		if player.IsHost && !ready {
			return fmt.Errorf("%w: host is always ready", ErrConflict)
		}
		player.IsReady = ready
		broadcastRoom(&out, room, EventRoomUpdated, RoomUpdatedPayload{Room: room.Info()})
		return nil
	}()
	s.mu.Unlock()

	out.flush(s.events)
	return err
}

// ChangeTeam moves the caller onto the requested team in a 2v2 room.
func (s *Server) ChangeTeam(token, roomID string, team int) error {
	var out outbox

	s.mu.Lock()
	err := func() error {
		sess, err := s.authLocked(token)
		if err != nil {
			return err
		}
		room, ok := s.store.Room(roomID)
		if !ok {
			return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
		}
		player := room.Player(sess.PlayerID)
		if player == nil {
			return fmt.Errorf("%w: not in room %s", ErrNotFound, roomID)
		}
		if room.Mode != Mode2v2 {
			return fmt.Errorf("%w: team changes only apply to 2v2 rooms", ErrConflict)
		}
		if team != 1 && team != 2 {
			return fmt.Errorf("%w: team must be 1 or 2", ErrInvalidArg)
		}
		if player.Team != team && room.TeamCount(team) >= 2 {
			return fmt.Errorf("%w: team %d is full", ErrConflict, team)
		}
		player.Team = team
		broadcastRoom(&out, room, EventRoomUpdated, RoomUpdatedPayload{Room: room.Info()})
		return nil
	}()
	s.mu.Unlock()

	out.flush(s.events)
	return err
}

// ListRooms projects every non-finished room into a lobby summary.
func (s *Server) ListRooms(token string) ([]LobbySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authLocked(token); err != nil {
		return nil, err
	}

	summaries := make([]LobbySummary, 0)
	for _, room := range s.store.Rooms() {
		if room.Status == RoomFinished {
			continue
		}
		hostName := ""
		if host := room.Player(room.HostID); host != nil {
			hostName = host.DisplayName
		}
		summaries = append(summaries, LobbySummary{
			ID:          room.ID,
			Name:        room.Name,
			Mode:        room.Mode,
			BoardType:   room.BoardType,
			HasPassword: room.Password != "",
			Status:      room.Status,
			Players:     len(room.Players),
			MaxPlayers:  room.MaxPlayers,
			HostName:    hostName,
		})
	}
	return summaries, nil
}
