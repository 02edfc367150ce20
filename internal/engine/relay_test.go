package engine

import (
	"strings"
	"testing"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendChat(t *testing.T) {
	f := newFixture(t)
	id := f.online("alice@x.com", "alice", "c1")

	_, err := f.e.SendChat(f.ctx, f.call("c1"), "hello", false)
	assertKind(t, KindState, err)
	_, err = f.e.SendChat(f.ctx, f.call("c1"), "   ", false)
	assertKind(t, KindState, err)

	roomId := f.room("c1", "Hall")
	f.join("c1", roomId)

	tcases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "   \t"},
		{"too long", strings.Repeat("a", maxChatLen+1)},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.e.SendChat(f.ctx, f.call("c1"), tc.text, false)
			assertKind(t, KindValidation, err)
		})
	}

	msg, err := f.e.SendChat(f.ctx, f.call("c1"), "  hello there  ", true)
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Content)
	assert.Equal(t, roomId, msg.RoomId)
	assert.Equal(t, id, msg.SenderId)
	assert.Equal(t, "alice", msg.SenderName)
	assert.True(t, msg.Shout)

	_, err = f.e.SendChat(f.ctx, f.call("c1"), strings.Repeat("é", maxChatLen), false)
	assert.NoError(t, err, "length counts characters, not bytes")

	events := f.pub.ofKind(EventChatMessage)
	require.Len(t, events, 2)
	assert.Equal(t, roomId, events[0].RoomId)
}

func TestSendVoiceOverwrites(t *testing.T) {
	f := newFixture(t)
	id := f.online("alice@x.com", "alice", "c1")

	_, err := f.e.SendVoice(f.ctx, f.call("c1"), []byte{1})
	assertKind(t, KindState, err)
	_, err = f.e.SendVoice(f.ctx, f.call("c1"), nil)
	assertKind(t, KindState, err)

	hall := f.room("c1", "Hall")
	attic := f.room("c1", "Attic")
	f.join("c1", hall)

	_, err = f.e.SendVoice(f.ctx, f.call("c1"), nil)
	assertKind(t, KindValidation, err)
	_, err = f.e.SendVoice(f.ctx, f.call("c1"), make([]byte, maxVoiceBytes+1))
	assertKind(t, KindValidation, err)

	_, err = f.e.SendVoice(f.ctx, f.call("c1"), []byte{1, 2})
	require.NoError(t, err)
	f.join("c1", attic)
	f.advance(minute)
	_, err = f.e.SendVoice(f.ctx, f.call("c1"), []byte{3, 4, 5})
	require.NoError(t, err)

	f.read(func(tx database.Tx) {
		v, err := tx.GetVoiceClip(id)
		require.NoError(t, err)
		assert.Equal(t, []byte{3, 4, 5}, v.AudioData)
		assert.Equal(t, attic, v.RoomId)
		assert.Equal(t, f.now, v.RecordedAt)
	})
}

func TestSendImage(t *testing.T) {
	f := newFixture(t)
	f.online("alice@x.com", "alice", "c1")
	f.online("bob@x.com", "bob", "c2")

	_, err := f.e.SendImage(f.ctx, f.call("c1"), ImageParams{BuildingId: " "})
	assertKind(t, KindState, err)

	hall := f.room("c1", "Hall")
	attic := f.room("c1", "Attic")
	f.join("c1", hall)
	f.join("c2", attic)

	tcases := []struct {
		name   string
		params ImageParams
	}{
		{"blank building", ImageParams{BuildingId: " ", ImageData: []byte{1}, Width: 1, Height: 1}},
		{"building id too long", ImageParams{BuildingId: strings.Repeat("b", maxBuildingIdLen+1), ImageData: []byte{1}, Width: 1, Height: 1}},
		{"empty image", ImageParams{BuildingId: "b1", Width: 1, Height: 1}},
		{"image too large", ImageParams{BuildingId: "b1", ImageData: make([]byte, maxImageBytes+1), Width: 1, Height: 1}},
		{"zero width", ImageParams{BuildingId: "b1", ImageData: []byte{1}, Width: 0, Height: 1}},
		{"height too large", ImageParams{BuildingId: "b1", ImageData: []byte{1}, Width: 1, Height: maxImageDimension + 1}},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.e.SendImage(f.ctx, f.call("c1"), tc.params)
			assertKind(t, KindValidation, err)
		})
	}

	img, err := f.e.SendImage(f.ctx, f.call("c1"), ImageParams{BuildingId: "b1", ImageData: []byte{1}, Width: 640, Height: 480})
	require.NoError(t, err)
	assert.Equal(t, hall, img.RoomId)

	_, err = f.e.SendImage(f.ctx, f.call("c2"), ImageParams{BuildingId: "b1", ImageData: []byte{2}, Width: 1, Height: 1})
	assertKind(t, KindConflict, err)

	img, err = f.e.SendImage(f.ctx, f.call("c1"), ImageParams{BuildingId: "b1", ImageData: []byte{3}, Width: 2, Height: 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, img.ImageData)
}

func TestSaveEntity(t *testing.T) {
	f := newFixture(t)
	alice := f.online("alice@x.com", "alice", "c1")
	bob := f.online("bob@x.com", "bob", "c2")
	hall := f.room("c1", "Hall")

	_, err := f.e.SaveEntity(f.ctx, f.call("c1"), 99, "{}")
	assertKind(t, KindNotFound, err)
	_, err = f.e.SaveEntity(f.ctx, f.call("c1"), hall, "{}")
	assertKind(t, KindState, err)
	_, err = f.e.SaveEntity(f.ctx, f.call("c1"), hall, strings.Repeat("x", maxEntityDataLen+1))
	assertKind(t, KindValidation, err)

	f.join("c1", hall)
	f.join("c2", hall)

	entity, err := f.e.SaveEntity(f.ctx, f.call("c1"), hall, `{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, alice, entity.AccountId)

	f.advance(minute)
	_, err = f.e.SaveEntity(f.ctx, f.call("c2"), hall, `{"b":2}`)
	require.NoError(t, err)

	f.read(func(tx database.Tx) {
		e, err := tx.GetRoomEntity(hall)
		require.NoError(t, err)
		assert.Equal(t, `{"b":2}`, e.Data)
		assert.Equal(t, bob, e.AccountId)
		assert.Equal(t, f.now, e.LastUpdated)
	})
	assert.Len(t, f.pub.ofKind(EventRoomEntity), 2)
}

func TestPlaceAndRemoveEntity(t *testing.T) {
	f := newFixture(t)
	f.online("alice@x.com", "alice", "c1")
	f.online("bob@x.com", "bob", "c2")
	hall := f.room("c1", "Hall")
	f.join("c1", hall)

	_, err := f.e.PlaceEntity(f.ctx, f.call("c1"), PlaceEntityParams{RoomId: hall})
	assertKind(t, KindValidation, err)
	_, err = f.e.PlaceEntity(f.ctx, f.call("c2"), PlaceEntityParams{RoomId: hall, PrefabId: "chair"})
	assertKind(t, KindState, err)

	placed, err := f.e.PlaceEntity(f.ctx, f.call("c1"), PlaceEntityParams{RoomId: hall, PrefabId: "chair"})
	require.NoError(t, err)
	assert.Equal(t, "chair", placed.PrefabId)

	assertKind(t, KindState, f.e.RemoveEntity(f.ctx, f.call("c2"), placed.Id))
	require.NoError(t, f.e.RemoveEntity(f.ctx, f.call("c1"), placed.Id))
	assertKind(t, KindNotFound, f.e.RemoveEntity(f.ctx, f.call("c1"), placed.Id))

	assert.Len(t, f.pub.ofKind(EventEntityPlaced), 1)
	assert.Len(t, f.pub.ofKind(EventEntityRemoved), 1)
}

func TestAcquireBroadcastLock(t *testing.T) {
	f := newFixture(t)
	f.online("alice@x.com", "alice", "c1")
	bob := f.online("bob@x.com", "bob", "c2")
	f.online("carol@x.com", "carol", "c3")
	hall := f.room("c1", "Hall")
	attic := f.room("c1", "Attic")

	_, err := f.e.AcquireBroadcastLock(f.ctx, f.call("c1"), "b1")
	assertKind(t, KindState, err)

	f.join("c1", hall)
	f.join("c2", hall)
	f.join("c3", attic)

	_, err = f.e.AcquireBroadcastLock(f.ctx, f.call("c1"), "b1")
	assertKind(t, KindNotFound, err)

	_, err = f.e.SendImage(f.ctx, f.call("c1"), ImageParams{BuildingId: "b1", ImageData: []byte{1}, Width: 1, Height: 1})
	require.NoError(t, err)

	_, err = f.e.AcquireBroadcastLock(f.ctx, f.call("c3"), "b1")
	assertKind(t, KindNotFound, err)

	_, err = f.e.AcquireBroadcastLock(f.ctx, f.call("c1"), "b1")
	require.NoError(t, err)

	lock, err := f.e.AcquireBroadcastLock(f.ctx, f.call("c2"), "b1")
	require.NoError(t, err, "a later caller takes the lock over")
	assert.Equal(t, bob, lock.HolderId)
	assert.Equal(t, "bob", lock.HolderName)
}

func TestReleaseBroadcastLock(t *testing.T) {
	f := newFixture(t)
	f.online("alice@x.com", "alice", "c1")
	f.online("bob@x.com", "bob", "c2")
	hall := f.room("c1", "Hall")
	f.join("c1", hall)
	f.join("c2", hall)

	assertKind(t, KindNotFound, f.e.ReleaseBroadcastLock(f.ctx, f.call("c1"), "b1"))

	_, err := f.e.SendImage(f.ctx, f.call("c1"), ImageParams{BuildingId: "b1", ImageData: []byte{1}, Width: 1, Height: 1})
	require.NoError(t, err)
	_, err = f.e.AcquireBroadcastLock(f.ctx, f.call("c1"), "b1")
	require.NoError(t, err)

	assertKind(t, KindState, f.e.ReleaseBroadcastLock(f.ctx, f.call("c2"), "b1"))
	require.NoError(t, f.e.ReleaseBroadcastLock(f.ctx, f.call("c1"), "b1"))

	f.read(func(tx database.Tx) {
		_, err := tx.GetImageLock("b1")
		assert.True(t, isNoRows(err))
	})
	released := f.pub.ofKind(EventLockReleased)
	require.Len(t, released, 1)
	assert.Equal(t, hall, released[0].RoomId)
}
