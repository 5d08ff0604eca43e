package server

import (
	"time"

	"github.com/vctt94/sequence-server/pkg/sequence"
)

// EventType tags an outbound duplex-channel event.
type EventType string

const (
	EventConnected        EventType = "connected"
	EventRoomUpdated      EventType = "room_updated"
	EventPlayerJoined     EventType = "player_joined"
	EventPlayerLeft       EventType = "player_left"
	EventGameStarted      EventType = "game_started"
	EventTurnMade         EventType = "turn_made"
	EventGameFinished     EventType = "game_finished"
	EventRematchVote      EventType = "rematch_vote"
	EventRematchStarted   EventType = "rematch_started"
	EventRematchCancelled EventType = "rematch_cancelled"
	EventError            EventType = "error"
	EventPong             EventType = "pong"
)

// Event is the wire envelope for every outbound channel message.
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// newEvent stamps an event with the current time in unix milliseconds.
func newEvent(typ EventType, data interface{}) Event {
	return Event{Type: typ, Data: data, Timestamp: time.Now().UnixMilli()}
}

// EventSender delivers an event to a single player. The websocket fan-out
// implements it; tests substitute a recording sink.
type EventSender interface {
	Send(playerID string, ev Event)
}

// outbox collects deliveries while the server lock is held so that channel
// writes happen only after the lock is released.
type outbox struct {
	deliveries []delivery
}

type delivery struct {
	playerID string
	ev       Event
}

func (o *outbox) send(playerID string, typ EventType, data interface{}) {
	o.deliveries = append(o.deliveries, delivery{playerID: playerID, ev: newEvent(typ, data)})
}

func (o *outbox) flush(sender EventSender) {
	for _, d := range o.deliveries {
		sender.Send(d.playerID, d.ev)
	}
	o.deliveries = nil
}

// Event payloads.

type ConnectedPayload struct {
	PlayerID string `json:"playerId"`
}

type PlayerJoinedPayload struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

// PlayerLeftPayload reports a departure; Reason is one of "leave",
// "disconnect" or "kick". NewHostID is set when the host changed.
type PlayerLeftPayload struct {
	PlayerID  string `json:"playerId"`
	Reason    string `json:"reason"`
	NewHostID string `json:"newHostId,omitempty"`
}

type RoomUpdatedPayload struct {
	Room *RoomInfo `json:"room"`
}

// GameStartedPayload is delivered individually: Hand holds only the
// recipient's cards.
type GameStartedPayload struct {
	GameID        string             `json:"gameId"`
	RoomID        string             `json:"roomId"`
	DeckSeed      uint32             `json:"deckSeed"`
	BoardType     sequence.BoardType `json:"boardType"`
	Players       []*GamePlayerInfo  `json:"players"`
	Teams         []sequence.Team    `json:"teams"`
	FirstPlayerID string             `json:"firstPlayerId"`
	Hand          []sequence.Card    `json:"hand"`
}

// GamePlayerInfo is the public roster entry: no hand.
type GamePlayerInfo struct {
	PlayerID    string             `json:"playerId"`
	DisplayName string             `json:"displayName"`
	TeamColor   sequence.TeamColor `json:"teamColor"`
	IsAI        bool               `json:"isAI"`
}

// TurnMadePayload lets clients replay the move onto their local board.
// Dead-card discards carry row and col of -1, CardDead true and no chip.
type TurnMadePayload struct {
	PlayerID     string              `json:"playerId"`
	CardPlayed   string              `json:"cardPlayed"`
	Row          int                 `json:"row"`
	Col          int                 `json:"col"`
	ChipPlaced   *sequence.Chip      `json:"chipPlaced"`
	CardDead     bool                `json:"cardDead,omitempty"`
	NewSequences []sequence.Sequence `json:"newSequences"`
	NextPlayerID string              `json:"nextPlayerId"`
}

type GameFinishedPayload struct {
	WinnerID         string              `json:"winnerId"`
	WinnerName       string              `json:"winnerName"`
	WinningTeamColor sequence.TeamColor  `json:"winningTeamColor"`
	FinalSequences   []sequence.Sequence `json:"finalSequences"`
}

type RematchVotePayload struct {
	GameID        string `json:"gameId"`
	PlayerID      string `json:"playerId"`
	Vote          bool   `json:"vote"`
	YesVotes      int    `json:"yesVotes"`
	RequiredVotes int    `json:"requiredVotes"`
	Deadline      int64  `json:"deadline"`
}

type RematchStartedPayload struct {
	NewGameID string `json:"newGameId"`
}

// RematchCancelledPayload carries "player_declined" or "timeout".
type RematchCancelledPayload struct {
	GameID string `json:"gameId"`
	Reason string `json:"reason"`
}

type PongPayload struct{}

// ErrorPayload is reserved for asynchronous failures pushed over the
// channel; request-path errors travel on the request itself.
type ErrorPayload struct {
	Message string `json:"message"`
}
