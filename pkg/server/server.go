package server

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/vctt94/bisonbotkit/logging"
	"github.com/vctt94/sequence-server/internal/db"
)

// Version is reported by the ping probe.
const Version = "0.1.0"

// Server is the authoritative game server: it owns the registry, the
// websocket fan-out and every background timer. One coarse mutex guards
// all registry state; channel writes always happen outside it.
type Server struct {
	log        slog.Logger
	logBackend *logging.LogBackend
	cfg        *Config

	mu     sync.Mutex
	store  *Store
	rng    *rand.Rand
	closed bool

	fanout *Fanout
	events EventSender

	// optional write-only sqlite snapshot sink
	snapshots *db.SnapshotStore

	// per-game snapshot save serialization, drained on Stop
	saveMu      sync.Mutex
	saveMutexes map[string]*sync.Mutex
	saveWg      sync.WaitGroup

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewServer wires a server from its configuration. snapshots may be nil
// to disable the sink.
func NewServer(cfg *Config, logBackend *logging.LogBackend, snapshots *db.SnapshotStore) *Server {
	s := &Server{
		log:         logBackend.Logger("SRVR"),
		logBackend:  logBackend,
		cfg:         cfg,
		store:       NewStore(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		snapshots:   snapshots,
		saveMutexes: make(map[string]*sync.Mutex),
		quit:        make(chan struct{}),
	}
	s.fanout = NewFanout(s, logBackend.Logger("FANO"))
	s.events = s.fanout
	return s
}

// Start launches the background maintenance loops.
func (s *Server) Start() {
	s.wg.Add(3)
	go s.gcLoop()
	go s.heartbeatLoop()
	go s.rematchLoop()
	s.log.Infof("Server %q started (version %s)", s.cfg.ServerName, Version)
}

// Stop tears the server down: loops first, then channels, then any
// in-flight snapshot saves.
func (s *Server) Stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	close(s.quit)
	s.wg.Wait()
	s.fanout.CloseAll()
	s.saveWg.Wait()
	if s.snapshots != nil {
		if err := s.snapshots.Close(); err != nil {
			s.log.Errorf("Failed to close snapshot store: %v", err)
		}
	}
	s.log.Infof("Server stopped")
}

func (s *Server) gcLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.GCInterval.Duration)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.collectGarbage(time.Now())
		case <-s.quit:
			return
		}
	}
}

func (s *Server) heartbeatLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.HeartbeatInterval.Duration)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.fanout.sweepHeartbeats()
		case <-s.quit:
			return
		}
	}
}

func (s *Server) rematchLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepRematchDeadlines(time.Now())
		case <-s.quit:
			return
		}
	}
}

// collectGarbage reclaims stale sessions, empty rooms and games whose
// humans have all vanished.
func (s *Server) collectGarbage(now time.Time) {
	var out outbox

	s.mu.Lock()

	for _, sess := range s.store.ExpiredSessions(now, s.cfg.SessionTTL.Duration) {
		if room, ok := s.store.Room(sess.CurrentRoomID); ok {
			s.leaveRoomLocked(&out, room, sess.PlayerID, "disconnect")
		}
		s.store.DeleteSession(sess)
		s.log.Infof("Session of %s expired after inactivity", sess.DisplayName)
	}

	for _, room := range s.store.EmptyRooms() {
		s.store.DeleteRoom(room.ID)
		s.log.Debugf("Empty room %s collected", room.ID)
	}

	for _, g := range s.store.InactiveGames(now, s.cfg.GameInactivity.Duration, s.fanout.Connected) {
		for _, p := range g.Players {
			if p.IsAI {
				continue
			}
			if sess, ok := s.store.SessionByPlayer(p.PlayerID); ok {
				sess.CurrentGameID = ""
			}
		}
		if room, ok := s.store.Room(g.RoomID); ok {
			if room.HumanCount() == 0 {
				s.store.DeleteRoom(room.ID)
			} else {
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
		}
		s.store.DeleteGame(g.ID)
		s.deleteGameSnapshotAsync(g.ID)
		s.log.Infof("Inactive game %s collected", g.ID)
	}

	s.mu.Unlock()

	out.flush(s.events)
}

// saveGameSnapshotAsync persists a game summary to the sqlite sink without
// blocking the caller. The record is built under the server lock (which
// the caller already holds); only the write happens in the goroutine, with
// saves for the same game serialized by a per-game mutex.
func (s *Server) saveGameSnapshotAsync(gameID, reason string) {
	if s.snapshots == nil {
		return
	}
	g, ok := s.store.Game(gameID)
	if !ok {
		return
	}

	state, err := json.Marshal(gameStateFor(g, ""))
	if err != nil {
		s.log.Errorf("Failed to serialize game %s for snapshot: %v", gameID, err)
		return
	}
	rec := &db.GameRecord{
		ID:         g.ID,
		RoomID:     g.RoomID,
		BoardType:  string(g.BoardType),
		Status:     string(g.Status),
		WinnerID:   g.WinnerID,
		DeckSeed:   int64(g.DeckSeed),
		DeckCursor: g.DeckCursor,
		TurnCount:  len(g.TurnHistory),
		StateJSON:  string(state),
	}

	s.saveMu.Lock()
	saveMutex, exists := s.saveMutexes[gameID]
	if !exists {
		saveMutex = &sync.Mutex{}
		s.saveMutexes[gameID] = saveMutex
	}
	s.saveMu.Unlock()

	s.saveWg.Add(1)
	go func() {
		defer s.saveWg.Done()
		saveMutex.Lock()
		defer saveMutex.Unlock()

		if err := s.snapshots.SaveGame(rec); err != nil {
			s.log.Errorf("Failed to save snapshot for game %s (%s): %v", gameID, reason, err)
		} else {
			s.log.Debugf("Saved snapshot for game %s (trigger: %s)", gameID, reason)
		}
	}()
}

// deleteGameSnapshotAsync drops a collected game from the sink.
func (s *Server) deleteGameSnapshotAsync(gameID string) {
	if s.snapshots == nil {
		return
	}

	s.saveMu.Lock()
	delete(s.saveMutexes, gameID)
	s.saveMu.Unlock()

	s.saveWg.Add(1)
	go func() {
		defer s.saveWg.Done()
		if err := s.snapshots.DeleteGame(gameID); err != nil {
			s.log.Errorf("Failed to delete snapshot for game %s: %v", gameID, err)
		}
	}()
}

// PingResponse is the health probe body.
type PingResponse struct {
	OK         bool   `json:"ok"`
	ServerName string `json:"serverName"`
	Version    string `json:"version"`
	Timestamp  int64  `json:"timestamp"`
}

// Ping reports liveness and identity.
func (s *Server) Ping() PingResponse {
	return PingResponse{
		OK:         true,
		ServerName: s.cfg.ServerName,
		Version:    Version,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// SetEventSender swaps the delivery sink; tests substitute a recorder.
func (s *Server) SetEventSender(sender EventSender) {
	s.events = sender
}

// Fanout exposes the websocket fan-out for HTTP wiring.
func (s *Server) Fanout() *Fanout {
	return s.fanout
}
