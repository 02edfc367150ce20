package engine

import (
	"context"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/types"
)

// AcquireBroadcastLock assigns the broadcast lock of an image in the
// caller's room to the caller.
//
// An existing holder is replaced rather than refused, so this is not mutual
// exclusion. Clients rely on the last caller winning; revisit together with
// them before turning it into a real mutex.
func (e *Engine) AcquireBroadcastLock(ctx context.Context, c Call, buildingId string) (types.ImageLock, error) {
	if err := validateBuildingId(buildingId); err != nil {
		return types.ImageLock{}, err
	}

	var lock database.ImageBroadcastLock
	var previous int
	err := e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		p, err := u.occupiedRoom(accountId, "player must join a room first")
		if err != nil {
			return err
		}

		img, err := u.tx.GetImage(buildingId)
		if isNoRows(err) || (err == nil && img.RoomId != p.RoomId) {
			return NotFoundError("image not found in this room")
		}
		if err != nil {
			return err
		}

		old, err := u.tx.GetImageLock(buildingId)
		switch {
		case err == nil:
			previous = old.HolderId
		case !isNoRows(err):
			return err
		}

		lock = database.ImageBroadcastLock{
			BuildingId: buildingId,
			HolderId:   accountId,
			HolderName: p.DisplayName,
			AcquiredAt: u.now,
		}
		if err := u.tx.UpsertImageLock(lock); err != nil {
			return err
		}

		u.emit(Event{Kind: EventLockChanged, RoomId: p.RoomId, Payload: lockView(lock)})
		return nil
	})
	if err != nil {
		return types.ImageLock{}, err
	}

	if previous != 0 && previous != lock.HolderId {
		e.log.Printf("broadcast lock on %q reassigned from account %d to %d", buildingId, previous, lock.HolderId)
	}
	return lockView(lock), nil
}

// ReleaseBroadcastLock deletes a lock held by the caller.
func (e *Engine) ReleaseBroadcastLock(ctx context.Context, c Call, buildingId string) error {
	if err := validateBuildingId(buildingId); err != nil {
		return err
	}

	return e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		lock, err := u.tx.GetImageLock(buildingId)
		if isNoRows(err) {
			return NotFoundError("lock not found")
		}
		if err != nil {
			return err
		}
		if lock.HolderId != accountId {
			return StateError("lock is held by another player")
		}

		if err := u.tx.DeleteImageLock(buildingId); err != nil {
			return err
		}

		var roomId int
		if img, err := u.tx.GetImage(buildingId); err == nil {
			roomId = img.RoomId
		} else if !isNoRows(err) {
			return err
		}
		u.emit(Event{Kind: EventLockReleased, RoomId: roomId, Payload: lockView(lock)})
		return nil
	})
}
