package engine

import (
	"context"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/types"
)

type PlaceEntityParams struct {
	RoomId   int
	PrefabId string
	Position types.Vector3
	Rotation types.Vector3
	Scale    types.Vector3
}

// SaveEntity overwrites the shared state blob of the caller's room. The
// last writer wins.
func (e *Engine) SaveEntity(ctx context.Context, c Call, roomId int, data string) (types.RoomEntity, error) {
	if err := validateEntityData(data); err != nil {
		return types.RoomEntity{}, err
	}

	var entity database.RoomEntity
	err := e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		if err := u.requireInRoom(accountId, roomId); err != nil {
			return err
		}

		entity = database.RoomEntity{
			RoomId:      roomId,
			AccountId:   accountId,
			Data:        data,
			LastUpdated: u.now,
		}
		if err := u.tx.UpsertRoomEntity(entity); err != nil {
			return err
		}

		u.emit(Event{Kind: EventRoomEntity, RoomId: roomId, Payload: roomEntityView(entity)})
		return nil
	})
	if err != nil {
		return types.RoomEntity{}, err
	}
	return roomEntityView(entity), nil
}

// PlaceEntity adds a discrete object to the caller's room.
func (e *Engine) PlaceEntity(ctx context.Context, c Call, p PlaceEntityParams) (types.PlacedEntity, error) {
	if err := validatePrefabId(p.PrefabId); err != nil {
		return types.PlacedEntity{}, err
	}

	var entity database.PlacedEntity
	err := e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		if err := u.requireInRoom(accountId, p.RoomId); err != nil {
			return err
		}

		var err error
		entity, err = u.tx.InsertPlacedEntity(database.PlacedEntity{
			RoomId:    p.RoomId,
			AccountId: accountId,
			PrefabId:  p.PrefabId,
			Position:  dbVec(p.Position),
			Rotation:  dbVec(p.Rotation),
			Scale:     dbVec(p.Scale),
			CreatedAt: u.now,
		})
		if err != nil {
			return err
		}

		u.emit(Event{Kind: EventEntityPlaced, RoomId: p.RoomId, Payload: placedView(entity)})
		return nil
	})
	if err != nil {
		return types.PlacedEntity{}, err
	}
	return placedView(entity), nil
}

// RemoveEntity deletes a placed object. The caller must be in the object's
// room.
func (e *Engine) RemoveEntity(ctx context.Context, c Call, entityId int) error {
	return e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		entity, err := u.tx.GetPlacedEntity(entityId)
		if isNoRows(err) {
			return NotFoundError("entity not found")
		}
		if err != nil {
			return err
		}
		if err := u.requireInRoom(accountId, entity.RoomId); err != nil {
			return err
		}

		if err := u.tx.DeletePlacedEntity(entityId); err != nil {
			return err
		}

		u.emit(Event{Kind: EventEntityRemoved, RoomId: entity.RoomId, Payload: placedView(entity)})
		return nil
	})
}

// requireInRoom fails unless the room exists and the caller is inside it.
func (u *unit) requireInRoom(accountId, roomId int) error {
	if _, err := u.tx.GetRoom(roomId); isNoRows(err) {
		return NotFoundError("room not found")
	} else if err != nil {
		return err
	}

	p, err := u.onlinePlayer(accountId)
	if err != nil {
		return err
	}
	if p.RoomId != roomId {
		return StateError("player is not in this room")
	}
	return nil
}
