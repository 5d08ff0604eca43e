package sequence

import (
	"errors"
	"fmt"
	"time"
)

// SequencesToWin is how many recorded sequences a team needs.
const SequencesToWin = 2

// Status is the game lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Game-rule errors. The server maps these onto its error taxonomy.
var (
	ErrGameNotActive    = errors.New("game is not active")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidCardIndex = errors.New("card index out of range")
	ErrInvalidCell      = errors.New("cell out of bounds")
	ErrIllegalMove      = errors.New("card cannot be played on that cell")
	ErrNoLegalMove      = errors.New("no legal move available")
)

// GamePlayer is one seat in a game. Hands are private and never travel in
// shared payloads.
type GamePlayer struct {
	PlayerID    string    `json:"playerId"`
	DisplayName string    `json:"displayName"`
	TeamColor   TeamColor `json:"teamColor"`
	IsAI        bool      `json:"isAI"`
	Hand        []Card    `json:"-"`
}

// Team groups player ids under a chip color.
type Team struct {
	Color     TeamColor `json:"color"`
	PlayerIDs []string  `json:"playerIds"`
}

// Turn is one entry of the game's turn history. Dead-card discards record
// row and col as -1.
type Turn struct {
	PlayerID   string    `json:"playerId"`
	CardIndex  int       `json:"cardIndex"`
	Row        int       `json:"row"`
	Col        int       `json:"col"`
	CardPlayed Card      `json:"cardPlayed"`
	Timestamp  time.Time `json:"timestamp"`
}

// Seat describes one player slot when constructing a game. Team is 1 or 2.
type Seat struct {
	PlayerID    string
	DisplayName string
	Team        int
	IsAI        bool
}

// Game holds the complete authoritative state of one match. It is a plain
// state machine: all methods assume the caller serializes access.
type Game struct {
	ID                  string
	RoomID              string
	DeckSeed            uint32
	BoardType           BoardType
	Status              Status
	Players             []*GamePlayer
	Teams               []Team
	Board               *Board
	Sequences           []Sequence
	CurrentTurnPlayerID string
	DeckCursor          int
	ShuffledDeck        []Card
	TurnHistory         []Turn
	WinnerID            string
	CreatedAt           time.Time
	LastActivityAt      time.Time
	FinishedAt          time.Time
}

// TeamColorFor maps a room team number onto a chip color: team 1 plays
// green, team 2 plays blue. Red belongs to a client-only local mode.
func TeamColorFor(team int) TeamColor {
	if team == 2 {
		return TeamBlue
	}
	return TeamGreen
}

// OpponentColor returns the other playing color.
func OpponentColor(color TeamColor) TeamColor {
	if color == TeamGreen {
		return TeamBlue
	}
	return TeamGreen
}

// New builds a game from seats in seat order: shuffles the deck from the
// seed, deals HandSize cards per player from cursor 0, and hands the first
// seat the opening turn.
func New(id, roomID string, bt BoardType, seed uint32, seats []Seat) (*Game, error) {
	if len(seats) < 2 {
		return nil, fmt.Errorf("need at least 2 seats, have %d", len(seats))
	}

	board, err := NewBoard(bt)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	g := &Game{
		ID:             id,
		RoomID:         roomID,
		DeckSeed:       seed,
		BoardType:      bt,
		Status:         StatusActive,
		Board:          board,
		ShuffledDeck:   Shuffle(seed),
		CreatedAt:      now,
		LastActivityAt: now,
	}

	teamIDs := map[int][]string{}
	for _, seat := range seats {
		g.Players = append(g.Players, &GamePlayer{
			PlayerID:    seat.PlayerID,
			DisplayName: seat.DisplayName,
			TeamColor:   TeamColorFor(seat.Team),
			IsAI:        seat.IsAI,
		})
		teamIDs[seat.Team] = append(teamIDs[seat.Team], seat.PlayerID)
	}
	for _, team := range []int{1, 2} {
		if ids := teamIDs[team]; len(ids) > 0 {
			g.Teams = append(g.Teams, Team{Color: TeamColorFor(team), PlayerIDs: ids})
		}
	}

	// deal in seat order from cursor 0
	per := HandSize(len(seats))
	for i := 0; i < per; i++ {
		for _, p := range g.Players {
			p.Hand = append(p.Hand, g.ShuffledDeck[g.DeckCursor])
			g.DeckCursor++
		}
	}

	g.CurrentTurnPlayerID = g.Players[0].PlayerID
	return g, nil
}

// PlayerByID finds a seat by player id.
func (g *Game) PlayerByID(playerID string) *GamePlayer {
	for _, p := range g.Players {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

// seatIndex returns the seat position of a player id, or -1.
func (g *Game) seatIndex(playerID string) int {
	for i, p := range g.Players {
		if p.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// TurnsBy counts how many turns a player has taken, the AI's personal turn
// counter.
func (g *Game) TurnsBy(playerID string) int {
	n := 0
	for _, t := range g.TurnHistory {
		if t.PlayerID == playerID {
			n++
		}
	}
	return n
}

// TeamSequences returns the recorded sequences for one color.
func (g *Game) TeamSequences(color TeamColor) []Sequence {
	var out []Sequence
	for _, s := range g.Sequences {
		if s.TeamColor == color {
			out = append(out, s)
		}
	}
	return out
}

// TurnResult describes the effect of one executed turn.
type TurnResult struct {
	CardPlayed   Card
	ChipPlaced   *Chip
	CardDead     bool
	CardDrawn    *Card
	NewSequences []Sequence
	NextPlayerID string
	Finished     bool
	WinnerID     string
}

// ApplyTurn validates and executes a placement or removal turn for the
// calling player. On any validation error the game is left untouched.
func (g *Game) ApplyTurn(playerID string, cardIndex, row, col int) (*TurnResult, error) {
	if g.Status != StatusActive {
		return nil, ErrGameNotActive
	}
	if g.CurrentTurnPlayerID != playerID {
		return nil, ErrNotYourTurn
	}

	player := g.PlayerByID(playerID)
	if player == nil {
		return nil, ErrNotYourTurn
	}
	if cardIndex < 0 || cardIndex >= len(player.Hand) {
		return nil, ErrInvalidCardIndex
	}
	card := player.Hand[cardIndex]

	cell := g.Board.At(row, col)
	if cell == nil {
		return nil, ErrInvalidCell
	}

	oppColor := OpponentColor(player.TeamColor)
	switch {
	case card.IsTwoEyedJack():
		if cell.Corner || cell.Chip != nil {
			return nil, ErrIllegalMove
		}
	case card.IsOneEyedJack():
		if cell.Chip == nil || cell.Chip.Color != oppColor || cell.Chip.PartOfSequence {
			return nil, ErrIllegalMove
		}
	default:
		if cell.Corner || cell.Chip != nil || cell.Card == nil || *cell.Card != card {
			return nil, ErrIllegalMove
		}
	}

	result := &TurnResult{CardPlayed: card}

	if card.IsOneEyedJack() {
		cell.Chip = nil
	} else {
		cell.Chip = &Chip{Color: player.TeamColor}
		result.NewSequences = DetectNew(g.Board, player.TeamColor, g.Sequences)
		g.Sequences = append(g.Sequences, result.NewSequences...)
		// report the chip's state after detection may have locked it
		chip := *cell.Chip
		result.ChipPlaced = &chip

		if len(g.TeamSequences(player.TeamColor)) >= SequencesToWin {
			g.Status = StatusFinished
			g.WinnerID = playerID
			g.FinishedAt = time.Now()
			result.Finished = true
			result.WinnerID = playerID
		}
	}

	g.finishTurn(player, cardIndex, row, col, card, result)
	return result, nil
}

// DiscardDead discards a dead card: a non-Jack whose every board cell is
// already occupied. The player draws a replacement and the turn passes.
func (g *Game) DiscardDead(playerID string, cardIndex int) (*TurnResult, error) {
	if g.Status != StatusActive {
		return nil, ErrGameNotActive
	}
	if g.CurrentTurnPlayerID != playerID {
		return nil, ErrNotYourTurn
	}

	player := g.PlayerByID(playerID)
	if player == nil {
		return nil, ErrNotYourTurn
	}
	if cardIndex < 0 || cardIndex >= len(player.Hand) {
		return nil, ErrInvalidCardIndex
	}
	card := player.Hand[cardIndex]
	if card.IsJack() || !g.isDead(card) {
		return nil, ErrIllegalMove
	}

	result := &TurnResult{CardPlayed: card, CardDead: true}
	g.finishTurn(player, cardIndex, -1, -1, card, result)
	return result, nil
}

// isDead reports whether both board cells of a card hold chips.
func (g *Game) isDead(card Card) bool {
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			cell := g.Board.At(r, c)
			if cell.Card != nil && *cell.Card == card && cell.Chip == nil {
				return false
			}
		}
	}
	return true
}

// finishTurn applies the shared tail of every turn: discard, draw, record
// history, rotate the turn and refresh activity.
func (g *Game) finishTurn(player *GamePlayer, cardIndex, row, col int, card Card, result *TurnResult) {
	player.Hand = append(player.Hand[:cardIndex], player.Hand[cardIndex+1:]...)
	if g.DeckCursor < len(g.ShuffledDeck) {
		drawn := g.ShuffledDeck[g.DeckCursor]
		g.DeckCursor++
		player.Hand = append(player.Hand, drawn)
		result.CardDrawn = &drawn
	}

	g.TurnHistory = append(g.TurnHistory, Turn{
		PlayerID:   player.PlayerID,
		CardIndex:  cardIndex,
		Row:        row,
		Col:        col,
		CardPlayed: card,
		Timestamp:  time.Now(),
	})

	if g.Status == StatusActive {
		seat := g.seatIndex(player.PlayerID)
		next := g.Players[(seat+1)%len(g.Players)]
		g.CurrentTurnPlayerID = next.PlayerID
		result.NextPlayerID = next.PlayerID
	}
	g.LastActivityAt = time.Now()
}
