package engine

import (
	"testing"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnServerStartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.e.OnServerStart(f.ctx))

	n, err := f.e.PlayerCount(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOnServerStartEvictsStalePlayers(t *testing.T) {
	f := newFixture(t)
	id := f.online("alice@x.com", "alice", "c1")
	f.register("bob@x.com", "bob", "c2")
	roomId := f.room("c1", "Hall")
	f.join("c1", roomId)

	// A restart loses every connection without a disconnect.
	f.advance(minute)
	require.NoError(t, f.e.OnServerStart(f.ctx))

	n, err := f.e.PlayerCount(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.read(func(tx database.Tx) {
		lo, err := tx.GetLoggedOutPlayer(id)
		require.NoError(t, err)
		assert.Zero(t, lo.TotalPlayTime)
		assert.Equal(t, roomId, lo.RoomId)

		open, err := tx.ListOpenSessionHistory(id, roomId)
		require.NoError(t, err)
		assert.Empty(t, open)
	})
	f.checkInvariants()

	f.read(func(tx database.Tx) {
		_, err := tx.GetSession("c1")
		assert.True(t, isNoRows(err))
		_, err = tx.GetSession("c2")
		assert.True(t, isNoRows(err))
	})

	_, err = f.e.EnterWorld(f.ctx, f.call("c1"))
	assertKind(t, KindAuth, err)

	_, err = f.e.Login(f.ctx, f.call("c3"), LoginParams{LoginId: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = f.e.EnterWorld(f.ctx, f.call("c3"))
	require.NoError(t, err)
}

func TestPlayerCountBeforeStart(t *testing.T) {
	f := newFixture(t)
	f.store = database.NewMemStore()
	f.e.store = f.store

	_, err := f.e.PlayerCount(f.ctx)
	assertKind(t, KindState, err)

	f.register("alice@x.com", "alice", "c1")
	_, err = f.e.EnterWorld(f.ctx, f.call("c1"))
	assertKind(t, KindInternal, err)
}
