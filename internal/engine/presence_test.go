package engine

import (
	"testing"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterWorld(t *testing.T) {
	f := newFixture(t)
	id := f.register("alice@x.com", "alice", "c1")

	_, err := f.e.EnterWorld(f.ctx, f.call("nobody"))
	assertKind(t, KindAuth, err)

	p, err := f.e.EnterWorld(f.ctx, f.call("c1"))
	require.NoError(t, err)
	assert.Equal(t, id, p.AccountId)
	assert.Equal(t, DefaultColor, p.Color)
	assert.Equal(t, database.NoRoom, p.RoomId)
	assert.Equal(t, types.Vector3{}, p.Position)
	assert.Equal(t, f.now, p.LastConnectTime)

	_, err = f.e.EnterWorld(f.ctx, f.call("c1"))
	assertKind(t, KindConflict, err)

	n, err := f.e.PlayerCount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.pub.ofKind(EventPlayerOnline), 1)
	f.checkInvariants()
}

func TestDisconnectAccruesPlayTime(t *testing.T) {
	f := newFixture(t)
	id := f.online("alice@x.com", "alice", "c1")
	roomId := f.room("c1", "Hall")
	f.join("c1", roomId)
	require.NoError(t, f.e.UpdatePosition(f.ctx, f.call("c1"), types.Vector3{X: 1, Y: 2, Z: 3}, 90))

	f.advance(5 * minute)
	require.NoError(t, f.e.OnDisconnect(f.ctx, f.call("c1")))

	n, err := f.e.PlayerCount(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.read(func(tx database.Tx) {
		lo, err := tx.GetLoggedOutPlayer(id)
		require.NoError(t, err)
		assert.Equal(t, 5*minute, lo.TotalPlayTime)
		assert.Equal(t, f.now, lo.LastDisconnectTime)
		assert.Equal(t, roomId, lo.RoomId)
		assert.Equal(t, database.Vector3{X: 1, Y: 2, Z: 3}, lo.Position)

		_, err = tx.GetOnlinePlayer(id)
		assert.True(t, isNoRows(err))
		_, err = tx.GetSession("c1")
		assert.True(t, isNoRows(err))

		open, err := tx.ListOpenSessionHistory(id, roomId)
		require.NoError(t, err)
		assert.Empty(t, open)

		cached, err := tx.GetRoomPosition(id, roomId)
		require.NoError(t, err)
		assert.Equal(t, 90.0, cached.Rotation)
	})
	f.checkInvariants()

	t.Run("unknown credential is a no-op", func(t *testing.T) {
		assert.NoError(t, f.e.Disconnect(f.ctx, f.call("c1")))
	})

	t.Run("play time keeps accumulating across sessions", func(t *testing.T) {
		_, err := f.e.Login(f.ctx, f.call("c2"), LoginParams{LoginId: "alice@x.com", Password: "secret1"})
		require.NoError(t, err)
		p, err := f.e.EnterWorld(f.ctx, f.call("c2"))
		require.NoError(t, err)
		assert.Equal(t, 5*minute, p.TotalPlayTime)

		f.advance(3 * minute)
		require.NoError(t, f.e.Disconnect(f.ctx, f.call("c2")))
		f.read(func(tx database.Tx) {
			lo, err := tx.GetLoggedOutPlayer(id)
			require.NoError(t, err)
			assert.Equal(t, 8*minute, lo.TotalPlayTime)
		})
		f.checkInvariants()
	})
}

func TestDisconnectOtherConnectionKeepsPlayer(t *testing.T) {
	f := newFixture(t)
	id := f.online("alice@x.com", "alice", "c1")
	_, err := f.e.Login(f.ctx, f.call("c2"), LoginParams{LoginId: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, f.e.Disconnect(f.ctx, f.call("c2")))

	f.read(func(tx database.Tx) {
		p, err := tx.GetOnlinePlayer(id)
		require.NoError(t, err)
		assert.Equal(t, "c1", p.Credential)
	})
	n, err := f.e.PlayerCount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnterWorldRestoresProfile(t *testing.T) {
	f := newFixture(t)
	f.online("alice@x.com", "alice", "c1")
	color := "#FF0000"
	require.NoError(t, f.e.UpdateProfile(f.ctx, f.call("c1"), ProfileParams{Color: &color}))
	f.advance(2 * minute)
	require.NoError(t, f.e.Disconnect(f.ctx, f.call("c1")))

	_, err := f.e.Login(f.ctx, f.call("c2"), LoginParams{LoginId: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)
	p, err := f.e.EnterWorld(f.ctx, f.call("c2"))
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", p.Color)
	assert.Equal(t, 2*minute, p.TotalPlayTime)
	assert.Equal(t, database.NoRoom, p.RoomId)
	f.checkInvariants()
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	id := f.online("alice@x.com", "alice", "c1")

	tooLong := "#0123456789"
	short := "al"
	assertKind(t, KindValidation, f.e.UpdateProfile(f.ctx, f.call("c1"), ProfileParams{Color: &tooLong}))
	assertKind(t, KindValidation, f.e.UpdateProfile(f.ctx, f.call("c1"), ProfileParams{DisplayName: &short}))

	name := "alicia"
	require.NoError(t, f.e.UpdateProfile(f.ctx, f.call("c1"), ProfileParams{DisplayName: &name}))

	account, err := f.e.Account(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alicia", account.DisplayName)

	players, err := f.e.OnlinePlayers(f.ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "alicia", players[0].DisplayName)
	assert.Equal(t, DefaultColor, players[0].Color)
}

func TestRenameCascade(t *testing.T) {
	f := newFixture(t)
	id := f.online("alice@x.com", "alice", "c1")
	roomId := f.room("c1", "Hall")
	f.join("c1", roomId)

	_, err := f.e.SendChat(f.ctx, f.call("c1"), "old news", false)
	require.NoError(t, err)
	f.advance(25 * 60 * minute)
	_, err = f.e.SendChat(f.ctx, f.call("c1"), "fresh", false)
	require.NoError(t, err)
	_, err = f.e.SendVoice(f.ctx, f.call("c1"), []byte{1, 2, 3})
	require.NoError(t, err)
	_, err = f.e.SendImage(f.ctx, f.call("c1"), ImageParams{BuildingId: "b1", ImageData: []byte{1}, Width: 1, Height: 1})
	require.NoError(t, err)
	_, err = f.e.AcquireBroadcastLock(f.ctx, f.call("c1"), "b1")
	require.NoError(t, err)

	name := "alicia"
	require.NoError(t, f.e.UpdateProfile(f.ctx, f.call("c1"), ProfileParams{DisplayName: &name}))

	f.read(func(tx database.Tx) {
		msgs, err := tx.ListChatMessages(roomId)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "alice", msgs[0].SenderName, "messages outside the window keep their name")
		assert.Equal(t, "alicia", msgs[1].SenderName)

		v, err := tx.GetVoiceClip(id)
		require.NoError(t, err)
		assert.Equal(t, "alicia", v.SenderName)

		img, err := tx.GetImage("b1")
		require.NoError(t, err)
		assert.Equal(t, "alicia", img.SenderName)

		l, err := tx.GetImageLock("b1")
		require.NoError(t, err)
		assert.Equal(t, "alicia", l.HolderName)
	})

	renames := f.pub.ofKind(EventSendersRenamed)
	require.Len(t, renames, 1)
	assert.Equal(t, types.Rename{AccountId: id, DisplayName: "alicia", Since: f.now - 24*60*minute}, renames[0].Payload)
}

func TestUpdatePosition(t *testing.T) {
	f := newFixture(t)
	f.online("alice@x.com", "alice", "c1")

	err := f.e.UpdatePosition(f.ctx, f.call("c1"), types.Vector3{X: 1}, 0)
	assertKind(t, KindState, err)

	roomId := f.room("c1", "Hall")
	f.join("c1", roomId)
	require.NoError(t, f.e.UpdatePosition(f.ctx, f.call("c1"), types.Vector3{X: 4, Y: 5, Z: 6}, 45))

	players, err := f.e.OnlinePlayers(f.ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, types.Vector3{X: 4, Y: 5, Z: 6}, players[0].Position)
	assert.Equal(t, 45.0, players[0].Rotation)

	f.read(func(tx database.Tx) {
		_, err := tx.GetRoomPosition(players[0].AccountId, roomId)
		assert.True(t, isNoRows(err), "position updates do not write the room cache")
	})
}

func TestLoginAsAnotherAccountTakesPlayerOffline(t *testing.T) {
	f := newFixture(t)
	alice := f.online("alice@x.com", "alice", "c1")
	f.register("bob@x.com", "bob", "c2")
	roomId := f.room("c1", "Hall")
	f.join("c1", roomId)

	f.advance(3 * minute)
	_, err := f.e.Login(f.ctx, f.call("c1"), LoginParams{LoginId: "bob@x.com", Password: "secret1"})
	require.NoError(t, err)

	n, err := f.e.PlayerCount(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.read(func(tx database.Tx) {
		_, err := tx.GetOnlinePlayer(alice)
		assert.True(t, isNoRows(err))

		lo, err := tx.GetLoggedOutPlayer(alice)
		require.NoError(t, err)
		assert.Equal(t, 3*minute, lo.TotalPlayTime)
		assert.Equal(t, roomId, lo.RoomId)

		open, err := tx.ListOpenSessionHistory(alice, roomId)
		require.NoError(t, err)
		assert.Empty(t, open)
	})
	f.checkInvariants()

	require.NoError(t, f.e.Disconnect(f.ctx, f.call("c1")))

	_, err = f.e.Login(f.ctx, f.call("c3"), LoginParams{LoginId: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)
	p, err := f.e.EnterWorld(f.ctx, f.call("c3"))
	require.NoError(t, err)
	assert.Equal(t, alice, p.AccountId)

	t.Run("logging in again as the same account keeps the player", func(t *testing.T) {
		_, err := f.e.Login(f.ctx, f.call("c3"), LoginParams{LoginId: "alice@x.com", Password: "secret1"})
		require.NoError(t, err)

		n, err := f.e.PlayerCount(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
