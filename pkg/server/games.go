package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vctt94/sequence-server/pkg/sequence"
)

// broadcastGame queues an event for every human player of a game.
func broadcastGame(out *outbox, g *sequence.Game, typ EventType, data interface{}) {
	for _, p := range g.Players {
		if !p.IsAI {
			out.send(p.PlayerID, typ, data)
		}
	}
}

// mapGameErr translates rule errors from the game state machine into the
// server taxonomy.
func mapGameErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sequence.ErrGameNotActive),
		errors.Is(err, sequence.ErrNotYourTurn):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, sequence.ErrInvalidCardIndex),
		errors.Is(err, sequence.ErrInvalidCell):
		return fmt.Errorf("%w: %v", ErrInvalidArg, err)
	case errors.Is(err, sequence.ErrIllegalMove):
		return fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return fmt.Errorf("%w: %v", ErrInternal, err)
}

// StartGameResult is the start-game response body.
type StartGameResult struct {
	GameID   string `json:"gameId"`
	AIFilled bool   `json:"missingPlayersFilledWithAI"`
	AICount  int    `json:"aiCount"`
}

// StartGame fills the room's empty seats with AI players and launches the
// game. Only the host of a waiting room may start.
func (s *Server) StartGame(token, roomID string) (*StartGameResult, error) {
	var out outbox
	var result *StartGameResult

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
		if room.HostID != sess.PlayerID {
			return fmt.Errorf("%w: only the host can start the game", ErrForbidden)
		}
		if room.Status != RoomWaiting {
			return fmt.Errorf("%w: room is not waiting", ErrConflict)
		}
		if room.HumanCount() == 0 {
			return fmt.Errorf("%w: room has no human players", ErrConflict)
		}

		// top up with AI, each joining the smaller team
		aiCount := 0
		for len(room.Players) < room.MaxPlayers {
			aiCount++
			team := 1
			if room.TeamCount(2) < room.TeamCount(1) {
				team = 2
			}
			room.Players = append(room.Players, &RoomPlayer{
				PlayerID:    uuid.NewString(),
				DisplayName: fmt.Sprintf("Bot %d", aiCount),
				IsReady:     true,
				IsAI:        true,
				Team:        team,
				JoinedAt:    time.Now(),
			})
		}

		g, err := s.startGameLocked(&out, room)
		if err != nil {
			return err
		}
		result = &StartGameResult{GameID: g.ID, AIFilled: aiCount > 0, AICount: aiCount}
		return nil
	}()
	s.mu.Unlock()

	out.flush(s.events)
	return result, err
}

// startGameLocked builds a fresh game from the room's current seats, links
// it, delivers per-recipient game_started events and schedules the first AI
// turn when one opens. Caller holds the server lock.
func (s *Server) startGameLocked(out *outbox, room *Room) (*sequence.Game, error) {
	seats := make([]sequence.Seat, 0, len(room.Players))
	for _, p := range room.Players {
		seats = append(seats, sequence.Seat{
			PlayerID:    p.PlayerID,
			DisplayName: p.DisplayName,
			Team:        p.Team,
			IsAI:        p.IsAI,
		})
	}

	seed := sequence.GenerateSeed()
	g, err := sequence.New(uuid.NewString(), room.ID, room.BoardType, seed, seats)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.store.AddGame(g)
	room.GameID = g.ID
	room.Status = RoomPlaying

	roster := make([]*GamePlayerInfo, 0, len(g.Players))
	for _, p := range g.Players {
		roster = append(roster, &GamePlayerInfo{
			PlayerID:    p.PlayerID,
			DisplayName: p.DisplayName,
			TeamColor:   p.TeamColor,
			IsAI:        p.IsAI,
		})
	}

	for _, p := range g.Players {
		if p.IsAI {
			continue
		}
		if sess, ok := s.store.SessionByPlayer(p.PlayerID); ok {
			sess.CurrentGameID = g.ID
		}
		out.send(p.PlayerID, EventGameStarted, GameStartedPayload{
			GameID:        g.ID,
			RoomID:        room.ID,
			DeckSeed:      g.DeckSeed,
			BoardType:     g.BoardType,
			Players:       roster,
			Teams:         g.Teams,
			FirstPlayerID: g.CurrentTurnPlayerID,
			Hand:          p.Hand,
		})
	}

	s.log.Infof("Game %s started in room %s (seed %d, %d players)",
		g.ID, room.ID, seed, len(g.Players))
	s.saveGameSnapshotAsync(g.ID, "game started")

	if first := g.PlayerByID(g.CurrentTurnPlayerID); first != nil && first.IsAI {
		s.scheduleAITurn(g.ID, first.PlayerID)
	}
	return g, nil
}

// Turn validates and executes one placement or removal move.
func (s *Server) Turn(token, gameID string, cardIndex, row, col int) error {
	var out outbox

	s.mu.Lock()
	err := func() error {
		sess, err := s.authLocked(token)
		if err != nil {
			return err
		}
		g, ok := s.store.Game(gameID)
		if !ok {
			return fmt.Errorf("%w: game %s", ErrNotFound, gameID)
		}
		res, err := g.ApplyTurn(sess.PlayerID, cardIndex, row, col)
		if err != nil {
			return mapGameErr(err)
		}
		s.turnEventsLocked(&out, g, sess.PlayerID, row, col, res)
		return nil
	}()
	s.mu.Unlock()

	out.flush(s.events)
	return err
}

// DiscardDead exchanges a dead card (both of its board cells occupied) for
// a fresh draw, passing the turn.
func (s *Server) DiscardDead(token, gameID string, cardIndex int) error {
	var out outbox

	s.mu.Lock()
	err := func() error {
		sess, err := s.authLocked(token)
		if err != nil {
			return err
		}
		g, ok := s.store.Game(gameID)
		if !ok {
			return fmt.Errorf("%w: game %s", ErrNotFound, gameID)
		}
		res, err := g.DiscardDead(sess.PlayerID, cardIndex)
		if err != nil {
			return mapGameErr(err)
		}
		s.turnEventsLocked(&out, g, sess.PlayerID, -1, -1, res)
		return nil
	}()
	s.mu.Unlock()

	out.flush(s.events)
	return err
}

// turnEventsLocked broadcasts the effects of an executed turn and keeps the
// AI moving. Caller holds the server lock.
func (s *Server) turnEventsLocked(out *outbox, g *sequence.Game, playerID string, row, col int, res *sequence.TurnResult) {
	// clients expect an array even on sequence-less turns
	newSeqs := res.NewSequences
	if newSeqs == nil {
		newSeqs = []sequence.Sequence{}
	}
	broadcastGame(out, g, EventTurnMade, TurnMadePayload{
		PlayerID:     playerID,
		CardPlayed:   res.CardPlayed.String(),
		Row:          row,
		Col:          col,
		ChipPlaced:   res.ChipPlaced,
		CardDead:     res.CardDead,
		NewSequences: newSeqs,
		NextPlayerID: res.NextPlayerID,
	})

	if res.Finished {
		winner := g.PlayerByID(res.WinnerID)
		payload := GameFinishedPayload{
			WinnerID:       res.WinnerID,
			FinalSequences: g.Sequences,
		}
		if winner != nil {
			payload.WinnerName = winner.DisplayName
			payload.WinningTeamColor = winner.TeamColor
		}
		broadcastGame(out, g, EventGameFinished, payload)
		s.log.Infof("Game %s finished, winner %s", g.ID, res.WinnerID)
	}

	s.saveGameSnapshotAsync(g.ID, "turn made")

	if g.Status == sequence.StatusActive {
		if next := g.PlayerByID(g.CurrentTurnPlayerID); next != nil && next.IsAI {
			s.scheduleAITurn(g.ID, next.PlayerID)
		}
	}
}

// scheduleAITurn arms a one-shot timer that plays an AI move after a small
// randomized delay. The callback re-checks the game under the lock, so a
// timer outliving its game is a no-op. Caller holds the server lock.
func (s *Server) scheduleAITurn(gameID, playerID string) {
	delay := s.cfg.AIDelayMin.Duration
	if band := s.cfg.AIDelayMax.Duration - s.cfg.AIDelayMin.Duration; band > 0 {
		delay += time.Duration(s.rng.Int63n(int64(band)))
	}
	time.AfterFunc(delay, func() {
		s.playAITurn(gameID, playerID)
	})
}

// playAITurn executes one AI move through the same turn path as humans.
func (s *Server) playAITurn(gameID, playerID string) {
	var out outbox

	s.mu.Lock()
	func() {
		if s.closed {
			return
		}
		g, ok := s.store.Game(gameID)
		if !ok || g.Status != sequence.StatusActive || g.CurrentTurnPlayerID != playerID {
			return
		}
		ai := g.PlayerByID(playerID)
		if ai == nil || !ai.IsAI {
			return
		}

		oppColor := sequence.OpponentColor(ai.TeamColor)
		move, ok := sequence.SelectMove(sequence.Medium, ai.Hand, g.Board,
			ai.TeamColor, oppColor, g.TurnsBy(playerID), s.rng)
		if ok {
			res, err := g.ApplyTurn(playerID, move.CardIndex, move.Row, move.Col)
			if err != nil {
				s.log.Errorf("AI move rejected in game %s: %v", gameID, err)
				return
			}
			s.turnEventsLocked(&out, g, playerID, move.Row, move.Col, res)
			return
		}

		// No legal placement should be impossible with a double deck and
		// Jacks always playable. Fall back to discarding a dead card.
		s.log.Errorf("AI found no legal move in game %s, attempting dead-card discard", gameID)
		for i, card := range ai.Hand {
			if card.IsJack() {
				continue
			}
			res, err := g.DiscardDead(playerID, i)
			if err == nil {
				s.turnEventsLocked(&out, g, playerID, -1, -1, res)
				return
			}
		}
		s.log.Errorf("AI in game %s is stuck with no move and no dead card", gameID)
	}()
	s.mu.Unlock()

	out.flush(s.events)
}

// RematchVote records a post-game vote; when every human has voted yes a
// fresh game starts from the same room.
func (s *Server) RematchVote(token, gameID string, vote bool) (*RematchState, error) {
	var out outbox
	var state *RematchState

	s.mu.Lock()
	err := func() error {
		sess, err := s.authLocked(token)
		if err != nil {
			return err
		}
		g, ok := s.store.Game(gameID)
		if !ok {
			return fmt.Errorf("%w: game %s", ErrNotFound, gameID)
		}
		if g.Status != sequence.StatusFinished {
			return fmt.Errorf("%w: game is not finished", ErrConflict)
		}
		player := g.PlayerByID(sess.PlayerID)
		if player == nil || player.IsAI {
			return fmt.Errorf("%w: not a player of game %s", ErrForbidden, gameID)
		}

		rs, ok := s.store.Rematch(gameID)
		if !ok {
			humans := 0
			for _, p := range g.Players {
				if !p.IsAI {
					humans++
				}
			}
			rs = &RematchState{
				GameID:        gameID,
				Active:        true,
				Votes:         make(map[string]bool),
				Deadline:      time.Now().Add(s.cfg.RematchWindow.Duration),
				RequiredVotes: humans,
			}
			s.store.SetRematch(rs)
		}
		rs.Votes[sess.PlayerID] = vote
		state = rs

		broadcastGame(&out, g, EventRematchVote, RematchVotePayload{
			GameID:        gameID,
			PlayerID:      sess.PlayerID,
			Vote:          vote,
			YesVotes:      rs.YesVotes(),
			RequiredVotes: rs.RequiredVotes,
			Deadline:      rs.Deadline.UnixMilli(),
		})

		if rs.YesVotes() >= rs.RequiredVotes {
			return s.startRematchLocked(&out, g)
		}
		return nil
	}()
	s.mu.Unlock()

	out.flush(s.events)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// startRematchLocked replaces a finished game with a fresh one for the same
// room and seats. Caller holds the server lock.
func (s *Server) startRematchLocked(out *outbox, old *sequence.Game) error {
	room, ok := s.store.Room(old.RoomID)
	if !ok {
		return fmt.Errorf("%w: room %s is gone", ErrNotFound, old.RoomID)
	}

	s.store.DeleteRematch(old.ID)
	s.store.DeleteGame(old.ID)

	broadcastGame(out, old, EventRematchStarted, RematchStartedPayload{})

	g, err := s.startGameLocked(out, room)
	if err != nil {
		return err
	}

	// the rematch_started delivery above is queued before game_started but
	// needs the new id; patch it in place
	for i := range out.deliveries {
		if out.deliveries[i].ev.Type == EventRematchStarted {
			out.deliveries[i].ev.Data = RematchStartedPayload{NewGameID: g.ID}
		}
	}

	s.log.Infof("Rematch of game %s started as %s", old.ID, g.ID)
	return nil
}

// CancelRematch declines a rematch: the vote is torn down and the room goes
// back to waiting without its AI members.
func (s *Server) CancelRematch(token, gameID string) error {
	var out outbox

	s.mu.Lock()
	err := func() error {
		sess, err := s.authLocked(token)
		if err != nil {
			return err
		}
		g, ok := s.store.Game(gameID)
		if !ok {
			return fmt.Errorf("%w: game %s", ErrNotFound, gameID)
		}
		if g.Status != sequence.StatusFinished {
			return fmt.Errorf("%w: game is not finished", ErrConflict)
		}
		if g.PlayerByID(sess.PlayerID) == nil {
			return fmt.Errorf("%w: not a player of game %s", ErrForbidden, gameID)
		}

		broadcastGame(&out, g, EventRematchCancelled, RematchCancelledPayload{
			GameID: gameID,
			Reason: "player_declined",
		})
		s.teardownRematchLocked(g)
		sess.CurrentGameID = ""
		return nil
	}()
	s.mu.Unlock()

	out.flush(s.events)
	return err
}

// teardownRematchLocked clears the rematch state of a finished game and
// returns its room to the waiting state, dropping AI members. Caller holds
// the server lock.
func (s *Server) teardownRematchLocked(g *sequence.Game) {
	s.store.DeleteRematch(g.ID)

	room, ok := s.store.Room(g.RoomID)
	if !ok {
		return
	}
	kept := room.Players[:0]
	for _, p := range room.Players {
		if !p.IsAI {
			kept = append(kept, p)
		}
	}
	room.Players = kept
	room.Status = RoomWaiting
	room.GameID = ""
}

// sweepRematchDeadlines cancels every rematch vote whose deadline passed
// without enough yes votes.
func (s *Server) sweepRematchDeadlines(now time.Time) {
	var out outbox

	s.mu.Lock()
	for _, rs := range s.store.Rematches() {
		if now.Before(rs.Deadline) || rs.YesVotes() >= rs.RequiredVotes {
			continue
		}
		g, ok := s.store.Game(rs.GameID)
		if !ok {
			s.store.DeleteRematch(rs.GameID)
			continue
		}
		broadcastGame(&out, g, EventRematchCancelled, RematchCancelledPayload{
			GameID: rs.GameID,
			Reason: "timeout",
		})
		s.teardownRematchLocked(g)
		s.log.Debugf("Rematch vote for game %s timed out", rs.GameID)
	}
	s.mu.Unlock()

	out.flush(s.events)
}

// GameStateInfo is the full per-recipient game snapshot used for
// reconnection. Hand holds only the recipient's cards.
type GameStateInfo struct {
	GameID              string              `json:"gameId"`
	RoomID              string              `json:"roomId"`
	BoardType           sequence.BoardType  `json:"boardType"`
	DeckSeed            uint32              `json:"deckSeed"`
	DeckCursor          int                 `json:"deckCursor"`
	Status              sequence.Status     `json:"status"`
	Board               *sequence.Board     `json:"board"`
	Sequences           []sequence.Sequence `json:"sequences"`
	CurrentTurnPlayerID string              `json:"currentTurnPlayerId"`
	Players             []*GamePlayerInfo   `json:"players"`
	Teams               []sequence.Team     `json:"teams"`
	TurnCount           int                 `json:"turnCount"`
	WinnerID            string              `json:"winnerId,omitempty"`
	Hand                []sequence.Card     `json:"hand"`
}

// gameStateFor projects a game into the snapshot a single player may see.
func gameStateFor(g *sequence.Game, playerID string) *GameStateInfo {
	info := &GameStateInfo{
		GameID:              g.ID,
		RoomID:              g.RoomID,
		BoardType:           g.BoardType,
		DeckSeed:            g.DeckSeed,
		DeckCursor:          g.DeckCursor,
		Status:              g.Status,
		Board:               g.Board,
		Sequences:           g.Sequences,
		CurrentTurnPlayerID: g.CurrentTurnPlayerID,
		Teams:               g.Teams,
		TurnCount:           len(g.TurnHistory),
		WinnerID:            g.WinnerID,
	}
	for _, p := range g.Players {
		info.Players = append(info.Players, &GamePlayerInfo{
			PlayerID:    p.PlayerID,
			DisplayName: p.DisplayName,
			TeamColor:   p.TeamColor,
			IsAI:        p.IsAI,
		})
		if p.PlayerID == playerID {
			info.Hand = p.Hand
		}
	}
	return info
}
