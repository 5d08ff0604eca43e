package server

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/bisonbotkit/logging"
)

// recordingSender captures every delivered event per player so tests can
// assert on the outbound stream without a websocket.
type recordingSender struct {
	mu     sync.Mutex
	events map[string][]Event
}

func newRecordingSender() *recordingSender {
	return &recordingSender{events: make(map[string][]Event)}
}

func (r *recordingSender) Send(playerID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[playerID] = append(r.events[playerID], ev)
}

func (r *recordingSender) eventsFor(playerID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events[playerID]...)
}

func (r *recordingSender) lastOfType(playerID string, typ EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evs := r.events[playerID]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == typ {
			return evs[i], true
		}
	}
	return Event{}, false
}

func (r *recordingSender) countOfType(playerID string, typ EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events[playerID] {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// createTestLogBackend creates a LogBackend for testing.
func createTestLogBackend() *logging.LogBackend {
	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:        "",
		DebugLevel:     "error",
		MaxLogFiles:    1,
		MaxBufferLines: 100,
	})
	if err != nil {
		return &logging.LogBackend{}
	}
	return logBackend
}

// newTestServer builds a server with a recording event sink and AI timers
// pushed far enough out that they never fire during a test.
func newTestServer(t *testing.T) (*Server, *recordingSender) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.AIDelayMin = duration{time.Hour}
	cfg.AIDelayMax = duration{time.Hour}

	logBackend := createTestLogBackend()
	t.Cleanup(func() { logBackend.Close() })

	srv := NewServer(cfg, logBackend, nil)
	rec := newRecordingSender()
	srv.SetEventSender(rec)
	return srv, rec
}

// joinPlayer registers a player and returns their session token and id.
func joinPlayer(t *testing.T, srv *Server, name string) (token, playerID string) {
	t.Helper()
	token, playerID, err := srv.JoinServer(name)
	require.NoError(t, err)
	return token, playerID
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := srv.Ping()
	assert.True(t, resp.OK)
	assert.Equal(t, "sequence-server", resp.ServerName)
	assert.Equal(t, Version, resp.Version)
	assert.NotZero(t, resp.Timestamp)
}

func TestCollectGarbageExpiredSessions(t *testing.T) {
	srv, rec := newTestServer(t)

	tokenA, playerA := joinPlayer(t, srv, "ada")
	_, _ = joinPlayer(t, srv, "bob")

	_, err := srv.CreateRoom(tokenA, "ada's room", "1v1", "classic", "")
	require.NoError(t, err)

	// push ada's session past the TTL, leave bob fresh
	srv.mu.Lock()
	sess, ok := srv.store.SessionByPlayer(playerA)
	require.True(t, ok)
	sess.LastActivity = time.Now().Add(-25 * time.Hour)
	srv.mu.Unlock()

	srv.collectGarbage(time.Now())

	srv.mu.Lock()
	_, adaAlive := srv.store.SessionByPlayer(playerA)
	nameFree := srv.store.NameAvailable("ada")
	roomCount := len(srv.store.Rooms())
	srv.mu.Unlock()

	assert.False(t, adaAlive)
	assert.True(t, nameFree, "expired session should release its name")
	assert.Zero(t, roomCount, "room should die with its only human")
	assert.Empty(t, rec.eventsFor(playerA))
}

func TestCollectGarbageInactiveGame(t *testing.T) {
	srv, _ := newTestServer(t)

	token, playerID := joinPlayer(t, srv, "ada")
	room, err := srv.CreateRoom(token, "solo room", "1v1", "classic", "")
	require.NoError(t, err)
	result, err := srv.StartGame(token, room.ID)
	require.NoError(t, err)

	// no websocket attached, so the human counts as disconnected
	srv.mu.Lock()
	g, ok := srv.store.Game(result.GameID)
	require.True(t, ok)
	g.LastActivityAt = time.Now().Add(-10 * time.Minute)
	srv.mu.Unlock()

	srv.collectGarbage(time.Now())

	srv.mu.Lock()
	_, gameAlive := srv.store.Game(result.GameID)
	r, roomAlive := srv.store.Room(room.ID)
	sess, _ := srv.store.SessionByPlayer(playerID)
	srv.mu.Unlock()

	assert.False(t, gameAlive)
	require.True(t, roomAlive, "room with a human keeps existing")
	assert.Equal(t, RoomWaiting, r.Status)
	assert.Equal(t, 1, len(r.Players), "AI seats are dropped")
	assert.Empty(t, r.GameID)
	assert.Empty(t, sess.CurrentGameID)
}

func TestCollectGarbageKeepsActiveGame(t *testing.T) {
	srv, _ := newTestServer(t)

	tokenA, _ := joinPlayer(t, srv, "ada")
	tokenB, _ := joinPlayer(t, srv, "bob")
	room, err := srv.CreateRoom(tokenA, "busy room", "1v1", "classic", "")
	require.NoError(t, err)
	_, err = srv.JoinRoom(tokenB, room.ID, "")
	require.NoError(t, err)
	result, err := srv.StartGame(tokenA, room.ID)
	require.NoError(t, err)

	srv.collectGarbage(time.Now())

	srv.mu.Lock()
	_, gameAlive := srv.store.Game(result.GameID)
	srv.mu.Unlock()
	assert.True(t, gameAlive, "recently active game must survive GC")
}

func TestStopDrainsCleanly(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.Start()

	token, _ := joinPlayer(t, srv, "ada")
	room, err := srv.CreateRoom(token, "short lived", "1v1", "classic", "")
	require.NoError(t, err)
	_, err = srv.StartGame(token, room.ID)
	require.NoError(t, err)

	// no snapshot store configured; Stop must still drain cleanly
	srv.Stop()

	srv.mu.Lock()
	closed := srv.closed
	srv.mu.Unlock()
	assert.True(t, closed)
}

func TestAITurnAfterStopIsNoOp(t *testing.T) {
	srv, rec := newTestServer(t)

	token, playerID := joinPlayer(t, srv, "ada")
	room, err := srv.CreateRoom(token, "bot room", "1v1", "classic", "")
	require.NoError(t, err)
	result, err := srv.StartGame(token, room.ID)
	require.NoError(t, err)

	srv.mu.Lock()
	g, _ := srv.store.Game(result.GameID)
	var aiID string
	for _, p := range g.Players {
		if p.IsAI {
			aiID = p.PlayerID
		}
	}
	srv.closed = true
	srv.mu.Unlock()

	before := rec.countOfType(playerID, EventTurnMade)
	srv.playAITurn(result.GameID, aiID)
	assert.Equal(t, before, rec.countOfType(playerID, EventTurnMade))
}
