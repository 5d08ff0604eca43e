package server

import (
	"strings"
	"time"

	"github.com/vctt94/sequence-server/pkg/sequence"
)

// Session authenticates and names one player for the lifetime of their
// connection. The token (ID) is opaque and carries all the entropy.
type Session struct {
	ID            string
	PlayerID      string
	DisplayName   string
	CreatedAt     time.Time
	LastActivity  time.Time
	CurrentRoomID string
	CurrentGameID string
}

// RoomStatus is the room lifecycle state.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// RoomMode selects the player count: 1v1 seats 2, 2v2 seats 4.
type RoomMode string

const (
	Mode1v1 RoomMode = "1v1"
	Mode2v2 RoomMode = "2v2"
)

// ParseRoomMode validates a client-supplied mode string.
func ParseRoomMode(s string) (RoomMode, bool) {
	switch m := RoomMode(s); m {
	case Mode1v1, Mode2v2:
		return m, true
	}
	return "", false
}

// MaxPlayers returns the seat count for a mode.
func (m RoomMode) MaxPlayers() int {
	if m == Mode2v2 {
		return 4
	}
	return 2
}

// RoomPlayer is one lobby member. AI members carry a generated player id
// and no session.
type RoomPlayer struct {
	PlayerID    string
	DisplayName string
	IsHost      bool
	IsReady     bool
	IsAI        bool
	Team        int
	JoinedAt    time.Time
}

// Room is a lobby that collects players until the host starts a game.
type Room struct {
	ID         string
	Name       string
	Mode       RoomMode
	BoardType  sequence.BoardType
	Password   string
	Status     RoomStatus
	HostID     string
	Players    []*RoomPlayer
	MaxPlayers int
	CreatedAt  time.Time
	GameID     string
}

// Player finds a member by player id.
func (r *Room) Player(playerID string) *RoomPlayer {
	for _, p := range r.Players {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

// TeamCount counts members on a team.
func (r *Room) TeamCount(team int) int {
	n := 0
	for _, p := range r.Players {
		if p.Team == team {
			n++
		}
	}
	return n
}

// HumanCount counts non-AI members.
func (r *Room) HumanCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.IsAI {
			n++
		}
	}
	return n
}

// RoomInfo is the sanitized room projection sent to clients. The raw
// password never travels.
type RoomInfo struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Mode        RoomMode           `json:"mode"`
	BoardType   sequence.BoardType `json:"boardType"`
	HasPassword bool               `json:"hasPassword"`
	Status      RoomStatus         `json:"status"`
	Players     []RoomPlayerInfo   `json:"players"`
	MaxPlayers  int                `json:"maxPlayers"`
	HostID      string             `json:"hostId"`
}

type RoomPlayerInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsHost  bool   `json:"isHost"`
	IsReady bool   `json:"isReady"`
	IsAI    bool   `json:"isAI"`
	Team    int    `json:"team"`
}

// Info builds the sanitized projection of the room.
func (r *Room) Info() *RoomInfo {
	info := &RoomInfo{
		ID:          r.ID,
		Name:        r.Name,
		Mode:        r.Mode,
		BoardType:   r.BoardType,
		HasPassword: r.Password != "",
		Status:      r.Status,
		Players:     make([]RoomPlayerInfo, 0, len(r.Players)),
		MaxPlayers:  r.MaxPlayers,
		HostID:      r.HostID,
	}
	for _, p := range r.Players {
		info.Players = append(info.Players, RoomPlayerInfo{
			ID:      p.PlayerID,
			Name:    p.DisplayName,
			IsHost:  p.IsHost,
			IsReady: p.IsReady,
			IsAI:    p.IsAI,
			Team:    p.Team,
		})
	}
	return info
}

// LobbySummary is one row of the lobby listing.
type LobbySummary struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Mode        RoomMode           `json:"mode"`
	BoardType   sequence.BoardType `json:"boardType"`
	HasPassword bool               `json:"hasPassword"`
	Status      RoomStatus         `json:"status"`
	Players     int                `json:"players"`
	MaxPlayers  int                `json:"maxPlayers"`
	HostName    string             `json:"hostName"`
}

// RematchState tracks one post-game vote.
type RematchState struct {
	GameID        string          `json:"gameId"`
	Active        bool            `json:"active"`
	Votes         map[string]bool `json:"votes"`
	Deadline      time.Time       `json:"deadline"`
	RequiredVotes int             `json:"requiredVotes"`
}

// YesVotes counts affirmative votes.
func (rs *RematchState) YesVotes() int {
	n := 0
	for _, v := range rs.Votes {
		if v {
			n++
		}
	}
	return n
}

// Store is the in-memory registry owning every session, room, game and
// rematch record. It is not internally synchronized: every method assumes
// the caller holds the server lock.
type Store struct {
	sessions  map[string]*Session       // sessionID -> session
	byPlayer  map[string]*Session       // playerID -> session
	names     map[string]struct{}       // lower(displayName) -> reserved
	rooms     map[string]*Room          // roomID -> room
	games     map[string]*sequence.Game // gameID -> game
	rematches map[string]*RematchState  // gameID -> rematch state
}

// NewStore creates an empty registry.
func NewStore() *Store {
	return &Store{
		sessions:  make(map[string]*Session),
		byPlayer:  make(map[string]*Session),
		names:     make(map[string]struct{}),
		rooms:     make(map[string]*Room),
		games:     make(map[string]*sequence.Game),
		rematches: make(map[string]*RematchState),
	}
}

// SessionByToken looks a session up by its opaque token.
func (st *Store) SessionByToken(token string) (*Session, bool) {
	s, ok := st.sessions[token]
	return s, ok
}

// SessionByPlayer looks a session up by player id.
func (st *Store) SessionByPlayer(playerID string) (*Session, bool) {
	s, ok := st.byPlayer[playerID]
	return s, ok
}

// NameAvailable reports whether a display name is free. Case-insensitive.
func (st *Store) NameAvailable(name string) bool {
	_, taken := st.names[strings.ToLower(name)]
	return !taken
}

// AddSession registers a session and atomically reserves its name.
func (st *Store) AddSession(s *Session) error {
	key := strings.ToLower(s.DisplayName)
	if _, taken := st.names[key]; taken {
		return ErrNameTaken
	}
	st.names[key] = struct{}{}
	st.sessions[s.ID] = s
	st.byPlayer[s.PlayerID] = s
	return nil
}

// DeleteSession removes a session and releases its name.
func (st *Store) DeleteSession(s *Session) {
	delete(st.sessions, s.ID)
	delete(st.byPlayer, s.PlayerID)
	delete(st.names, strings.ToLower(s.DisplayName))
}

// AddRoom registers a room.
func (st *Store) AddRoom(r *Room) {
	st.rooms[r.ID] = r
}

// Room looks a room up by id.
func (st *Store) Room(id string) (*Room, bool) {
	r, ok := st.rooms[id]
	return r, ok
}

// DeleteRoom drops a room.
func (st *Store) DeleteRoom(id string) {
	delete(st.rooms, id)
}

// Rooms returns every registered room in unspecified order.
func (st *Store) Rooms() []*Room {
	out := make([]*Room, 0, len(st.rooms))
	for _, r := range st.rooms {
		out = append(out, r)
	}
	return out
}

// AddGame registers a game.
func (st *Store) AddGame(g *sequence.Game) {
	st.games[g.ID] = g
}

// Game looks a game up by id.
func (st *Store) Game(id string) (*sequence.Game, bool) {
	g, ok := st.games[id]
	return g, ok
}

// DeleteGame drops a game and any rematch state attached to it.
func (st *Store) DeleteGame(id string) {
	delete(st.games, id)
	delete(st.rematches, id)
}

// Games returns every registered game in unspecified order.
func (st *Store) Games() []*sequence.Game {
	out := make([]*sequence.Game, 0, len(st.games))
	for _, g := range st.games {
		out = append(out, g)
	}
	return out
}

// Rematch looks up the rematch state for a game.
func (st *Store) Rematch(gameID string) (*RematchState, bool) {
	rs, ok := st.rematches[gameID]
	return rs, ok
}

// SetRematch records the rematch state for a game.
func (st *Store) SetRematch(rs *RematchState) {
	st.rematches[rs.GameID] = rs
}

// DeleteRematch drops the rematch state for a game.
func (st *Store) DeleteRematch(gameID string) {
	delete(st.rematches, gameID)
}

// Rematches returns every rematch state in unspecified order.
func (st *Store) Rematches() []*RematchState {
	out := make([]*RematchState, 0, len(st.rematches))
	for _, rs := range st.rematches {
		out = append(out, rs)
	}
	return out
}

// ExpiredSessions lists sessions whose last activity is older than ttl.
func (st *Store) ExpiredSessions(now time.Time, ttl time.Duration) []*Session {
	var out []*Session
	for _, s := range st.sessions {
		if now.Sub(s.LastActivity) > ttl {
			out = append(out, s)
		}
	}
	return out
}

// EmptyRooms lists rooms with zero players.
func (st *Store) EmptyRooms() []*Room {
	var out []*Room
	for _, r := range st.rooms {
		if len(r.Players) == 0 {
			out = append(out, r)
		}
	}
	return out
}

// InactiveGames lists games idle past the threshold whose human players
// all fail the connected predicate.
func (st *Store) InactiveGames(now time.Time, threshold time.Duration, connected func(playerID string) bool) []*sequence.Game {
	var out []*sequence.Game
	for _, g := range st.games {
		if now.Sub(g.LastActivityAt) <= threshold {
			continue
		}
		anyConnected := false
		for _, p := range g.Players {
			if !p.IsAI && connected(p.PlayerID) {
				anyConnected = true
				break
			}
		}
		if !anyConnected {
			out = append(out, g)
		}
	}
	return out
}
