package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	token, _ := joinPlayer(t, srv, "ada")

	t.Run("BadName", func(t *testing.T) {
		_, err := srv.CreateRoom(token, "ab", "1v1", "classic", "")
		assert.ErrorIs(t, err, ErrInvalidArg)
	})

	t.Run("BadMode", func(t *testing.T) {
		_, err := srv.CreateRoom(token, "good name", "3v3", "classic", "")
		assert.ErrorIs(t, err, ErrInvalidArg)
	})

	t.Run("BadBoardType", func(t *testing.T) {
		_, err := srv.CreateRoom(token, "good name", "1v1", "hexagonal", "")
		assert.ErrorIs(t, err, ErrInvalidArg)
	})

	t.Run("AlreadyInRoom", func(t *testing.T) {
		_, err := srv.CreateRoom(token, "first room", "1v1", "classic", "")
		require.NoError(t, err)
		_, err = srv.CreateRoom(token, "second room", "1v1", "classic", "")
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestCreateRoomSeatsHost(t *testing.T) {
	srv, _ := newTestServer(t)
	token, playerID := joinPlayer(t, srv, "ada")

	info, err := srv.CreateRoom(token, "ada's room", "2v2", "alternative", "secret")
	require.NoError(t, err)

	assert.Equal(t, playerID, info.HostID)
	assert.True(t, info.HasPassword)
	assert.Equal(t, 4, info.MaxPlayers)
	require.Len(t, info.Players, 1)
	assert.True(t, info.Players[0].IsHost)
	assert.True(t, info.Players[0].IsReady, "host is ready from the start")
	assert.Equal(t, 1, info.Players[0].Team)
}

func TestJoinRoomBalancesTeams(t *testing.T) {
	srv, rec := newTestServer(t)

	tokenA, playerA := joinPlayer(t, srv, "ada")
	tokenB, playerB := joinPlayer(t, srv, "bob")
	tokenC, _ := joinPlayer(t, srv, "cyd")
	tokenD, _ := joinPlayer(t, srv, "dan")

	room, err := srv.CreateRoom(tokenA, "team room", "2v2", "classic", "")
	require.NoError(t, err)

	infoB, err := srv.JoinRoom(tokenB, room.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, infoB.Players[1].Team, "second player fills the smaller team")

	infoC, err := srv.JoinRoom(tokenC, room.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, infoC.Players[2].Team, "tie goes to team 1")

	infoD, err := srv.JoinRoom(tokenD, room.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, infoD.Players[3].Team)

	// earlier members heard about each arrival
	assert.Equal(t, 3, rec.countOfType(playerA, EventPlayerJoined))
	assert.Equal(t, 2, rec.countOfType(playerB, EventPlayerJoined))
	ev, ok := rec.lastOfType(playerA, EventRoomUpdated)
	require.True(t, ok)
	assert.Len(t, ev.Data.(RoomUpdatedPayload).Room.Players, 4)
}

func TestJoinRoomChecks(t *testing.T) {
	srv, _ := newTestServer(t)

	tokenA, _ := joinPlayer(t, srv, "ada")
	tokenB, _ := joinPlayer(t, srv, "bob")
	tokenC, _ := joinPlayer(t, srv, "cyd")

	room, err := srv.CreateRoom(tokenA, "guarded room", "1v1", "classic", "hunter2")
	require.NoError(t, err)

	t.Run("UnknownRoom", func(t *testing.T) {
		_, err := srv.JoinRoom(tokenB, "no-such-room", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := srv.JoinRoom(tokenB, room.ID, "wrong")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Full", func(t *testing.T) {
		_, err := srv.JoinRoom(tokenB, room.ID, "hunter2")
		require.NoError(t, err)
		_, err = srv.JoinRoom(tokenC, room.ID, "hunter2")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("NotWaiting", func(t *testing.T) {
		_, err := srv.StartGame(tokenA, room.ID)
		require.NoError(t, err)
		require.NoError(t, srv.LeaveRoom(tokenB, room.ID))
		_, err = srv.JoinRoom(tokenC, room.ID, "hunter2")
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestLeaveRoomTransfersHost(t *testing.T) {
	srv, rec := newTestServer(t)

	tokenA, _ := joinPlayer(t, srv, "ada")
	tokenB, playerB := joinPlayer(t, srv, "bob")
	tokenC, playerC := joinPlayer(t, srv, "cyd")

	room, err := srv.CreateRoom(tokenA, "host room", "2v2", "classic", "")
	require.NoError(t, err)
	_, err = srv.JoinRoom(tokenB, room.ID, "")
	require.NoError(t, err)
	_, err = srv.JoinRoom(tokenC, room.ID, "")
	require.NoError(t, err)

	require.NoError(t, srv.LeaveRoom(tokenA, room.ID))

	srv.mu.Lock()
	r, ok := srv.store.Room(room.ID)
	srv.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, playerB, r.HostID, "host passes to the earliest joined member")
	assert.True(t, r.Player(playerB).IsReady, "the new host is always ready")

	ev, ok := rec.lastOfType(playerC, EventPlayerLeft)
	require.True(t, ok)
	assert.Equal(t, playerB, ev.Data.(PlayerLeftPayload).NewHostID)
}

func TestLeaveRoomDeletesWhenEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	token, _ := joinPlayer(t, srv, "ada")
	room, err := srv.CreateRoom(token, "lonely room", "1v1", "classic", "")
	require.NoError(t, err)

	require.NoError(t, srv.LeaveRoom(token, room.ID))

	srv.mu.Lock()
	_, ok := srv.store.Room(room.ID)
	srv.mu.Unlock()
	assert.False(t, ok)

	// leaving again reports not found
	err = srv.LeaveRoom(token, room.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetReady(t *testing.T) {
	srv, rec := newTestServer(t)

	tokenA, playerA := joinPlayer(t, srv, "ada")
	tokenB, playerB := joinPlayer(t, srv, "bob")

	room, err := srv.CreateRoom(tokenA, "ready room", "1v1", "classic", "")
	require.NoError(t, err)
	_, err = srv.JoinRoom(tokenB, room.ID, "")
	require.NoError(t, err)

	require.NoError(t, srv.SetReady(tokenB, room.ID, true))
	ev, ok := rec.lastOfType(playerA, EventRoomUpdated)
	require.True(t, ok)
	updated := ev.Data.(RoomUpdatedPayload).Room
	for _, p := range updated.Players {
		if p.ID == playerB {
			assert.True(t, p.IsReady)
		}
	}

	// the host can never unready
	err = srv.SetReady(tokenA, room.ID, false)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestChangeTeam(t *testing.T) {
	srv, _ := newTestServer(t)

	tokenA, _ := joinPlayer(t, srv, "ada")
	tokenB, playerB := joinPlayer(t, srv, "bob")
	tokenC, playerC := joinPlayer(t, srv, "cyd")

	t.Run("Not2v2", func(t *testing.T) {
		room, err := srv.CreateRoom(tokenA, "duel room", "1v1", "classic", "")
		require.NoError(t, err)
		err = srv.ChangeTeam(tokenA, room.ID, 2)
		assert.ErrorIs(t, err, ErrConflict)
		require.NoError(t, srv.LeaveRoom(tokenA, room.ID))
	})

	room, err := srv.CreateRoom(tokenA, "team room", "2v2", "classic", "")
	require.NoError(t, err)
	_, err = srv.JoinRoom(tokenB, room.ID, "")
	require.NoError(t, err)
	_, err = srv.JoinRoom(tokenC, room.ID, "")
	require.NoError(t, err)
	// seating: ada+cyd on team 1, bob alone on team 2

	t.Run("BadTeam", func(t *testing.T) {
		err := srv.ChangeTeam(tokenB, room.ID, 3)
		assert.ErrorIs(t, err, ErrInvalidArg)
	})

	t.Run("TargetFull", func(t *testing.T) {
		err := srv.ChangeTeam(tokenB, room.ID, 1)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Swap", func(t *testing.T) {
		require.NoError(t, srv.ChangeTeam(tokenC, room.ID, 2))
		err := srv.ChangeTeam(tokenB, room.ID, 1)
		require.NoError(t, err)

		srv.mu.Lock()
		r, _ := srv.store.Room(room.ID)
		srv.mu.Unlock()
		assert.Equal(t, 1, r.Player(playerB).Team)
		assert.Equal(t, 2, r.Player(playerC).Team)
		assert.Equal(t, 1, r.TeamCount(2))
	})
}

func TestListRooms(t *testing.T) {
	srv, _ := newTestServer(t)

	tokenA, _ := joinPlayer(t, srv, "ada")
	tokenB, _ := joinPlayer(t, srv, "bob")

	_, err := srv.CreateRoom(tokenA, "open room", "1v1", "classic", "")
	require.NoError(t, err)
	_, err = srv.CreateRoom(tokenB, "locked room", "2v2", "advanced", "hunter2")
	require.NoError(t, err)

	rooms, err := srv.ListRooms(tokenA)
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	byName := make(map[string]LobbySummary)
	for _, r := range rooms {
		byName[r.Name] = r
	}
	locked := byName["locked room"]
	assert.True(t, locked.HasPassword)
	assert.Equal(t, "bob", locked.HostName)
	assert.Equal(t, 1, locked.Players)
	assert.Equal(t, 4, locked.MaxPlayers)
	assert.False(t, byName["open room"].HasPassword)

	_, err = srv.ListRooms("bogus")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
