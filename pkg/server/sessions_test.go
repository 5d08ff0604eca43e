package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinServerValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("TooShort", func(t *testing.T) {
		_, _, err := srv.JoinServer("a")
		assert.ErrorIs(t, err, ErrInvalidArg)
	})

	t.Run("TooLong", func(t *testing.T) {
		_, _, err := srv.JoinServer("this-name-is-way-too-long")
		assert.ErrorIs(t, err, ErrInvalidArg)
	})

	t.Run("Reserved", func(t *testing.T) {
		_, _, err := srv.JoinServer("admin")
		assert.ErrorIs(t, err, ErrNameReserved)

		_, _, err = srv.JoinServer("Admin")
		assert.ErrorIs(t, err, ErrNameReserved, "reservation is case-insensitive")
	})

	t.Run("Taken", func(t *testing.T) {
		_, _, err := srv.JoinServer("ada")
		require.NoError(t, err)

		_, _, err = srv.JoinServer("ada")
		assert.ErrorIs(t, err, ErrNameTaken)

		_, _, err = srv.JoinServer("ADA")
		assert.ErrorIs(t, err, ErrNameTaken, "names collide case-insensitively")
	})

	t.Run("MultibyteLength", func(t *testing.T) {
		// bounds count runes, not bytes
		_, _, err := srv.JoinServer(strings.Repeat("å", maxNameLen))
		require.NoError(t, err)

		_, _, err = srv.JoinServer(strings.Repeat("ö", maxNameLen+1))
		assert.ErrorIs(t, err, ErrInvalidArg)
	})

	t.Run("TrimsWhitespace", func(t *testing.T) {
		_, _, err := srv.JoinServer("  bob  ")
		require.NoError(t, err)

		_, _, err = srv.JoinServer("bob")
		assert.ErrorIs(t, err, ErrNameTaken)
	})
}

func TestJoinServerIssuesDistinctTokens(t *testing.T) {
	srv, _ := newTestServer(t)

	tokenA, playerA := joinPlayer(t, srv, "ada")
	tokenB, playerB := joinPlayer(t, srv, "bob")

	assert.Len(t, tokenA, 32, "tokens are 128 bits hex encoded")
	assert.NotEqual(t, tokenA, tokenB)
	assert.NotEqual(t, playerA, playerB)
}

func TestCheckName(t *testing.T) {
	srv, _ := newTestServer(t)
	joinPlayer(t, srv, "ada")

	available, _ := srv.CheckName("bob")
	assert.True(t, available)

	available, reason := srv.CheckName("ada")
	assert.False(t, available)
	assert.NotEmpty(t, reason)

	available, reason = srv.CheckName("ai")
	assert.False(t, available)
	assert.NotEmpty(t, reason)

	// checking must not reserve
	available, _ = srv.CheckName("bob")
	assert.True(t, available)
}

func TestLeaveServerReleasesNameAndRoom(t *testing.T) {
	srv, rec := newTestServer(t)

	tokenA, _ := joinPlayer(t, srv, "ada")
	tokenB, playerB := joinPlayer(t, srv, "bob")

	room, err := srv.CreateRoom(tokenA, "ada's room", "1v1", "classic", "")
	require.NoError(t, err)
	_, err = srv.JoinRoom(tokenB, room.ID, "")
	require.NoError(t, err)

	require.NoError(t, srv.LeaveServer(tokenA))

	// name is free again and the token is dead
	available, _ := srv.CheckName("ada")
	assert.True(t, available)
	_, err = srv.Status(tokenA)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// bob saw the departure and inherited the room
	ev, ok := rec.lastOfType(playerB, EventPlayerLeft)
	require.True(t, ok)
	left := ev.Data.(PlayerLeftPayload)
	assert.Equal(t, "leave", left.Reason)
	assert.Equal(t, playerB, left.NewHostID)
}

func TestStatusReflectsRoomAndGame(t *testing.T) {
	srv, _ := newTestServer(t)

	token, playerID := joinPlayer(t, srv, "ada")

	status, err := srv.Status(token)
	require.NoError(t, err)
	assert.Equal(t, playerID, status.PlayerID)
	assert.Equal(t, "ada", status.DisplayName)
	assert.Nil(t, status.Room)
	assert.Nil(t, status.GameState)

	room, err := srv.CreateRoom(token, "ada's room", "1v1", "classic", "")
	require.NoError(t, err)
	result, err := srv.StartGame(token, room.ID)
	require.NoError(t, err)

	status, err = srv.Status(token)
	require.NoError(t, err)
	require.NotNil(t, status.Room)
	assert.Equal(t, room.ID, status.Room.ID)
	require.NotNil(t, status.GameState)
	assert.Equal(t, result.GameID, status.GameState.GameID)
	assert.Len(t, status.GameState.Hand, 7, "a two player game deals seven cards")
}

func TestStatusRejectsUnknownToken(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.Status("deadbeef")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
