package engine

import (
	"context"
	"strings"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/stats"
	"github.com/npezzotti/go-worldstate/internal/types"
)

// JoinRoomParams names the room either by id or, when RoomId is zero, by
// name.
type JoinRoomParams struct {
	RoomId   int
	Name     string
	Password string
}

// CreateRoom registers a new room owned by the caller.
func (e *Engine) CreateRoom(ctx context.Context, c Call, name, password string) (types.Room, error) {
	name = strings.TrimSpace(name)
	if err := validateRoomName(name); err != nil {
		return types.Room{}, err
	}
	if err := validateRoomPassword(password); err != nil {
		return types.Room{}, err
	}

	sealed, err := e.roomSecrets.Seal(password)
	if err != nil {
		return types.Room{}, InternalError(err)
	}

	var room database.Room
	err = e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		// Room counts stay small, a scan is fine.
		rooms, err := u.tx.ListRooms()
		if err != nil {
			return err
		}
		for _, r := range rooms {
			if r.Name == name {
				return ConflictError("room name already exists")
			}
		}

		room, err = u.tx.InsertRoom(database.Room{
			Name:      name,
			CreatorId: accountId,
			CreatedAt: u.now,
			Password:  sealed,
		})
		if err != nil {
			return err
		}

		u.emit(Event{Kind: EventRoomCreated, RoomId: room.Id, Payload: roomView(room)})
		u.onCommit(func() { e.stats.Incr(stats.NumRooms) })
		return nil
	})
	if err != nil {
		return types.Room{}, err
	}

	e.log.Printf("room created: %q (id %d) by account %d", room.Name, room.Id, room.CreatorId)
	return roomView(room), nil
}

// JoinRoom moves the caller into a room, restoring the position it had when
// it last left that room. A caller already in a room leaves it first.
func (e *Engine) JoinRoom(ctx context.Context, c Call, p JoinRoomParams) (types.Player, error) {
	var player database.OnlinePlayer
	err := e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		var err error
		player, err = u.onlinePlayer(accountId)
		if err != nil {
			return err
		}

		room, err := u.findRoom(p)
		if err != nil {
			return err
		}
		if !e.roomSecrets.Match(room.Password, p.Password) {
			return AuthError("incorrect room password")
		}

		if player.RoomId != database.NoRoom {
			if err := e.leaveRoom(u, &player); err != nil {
				return err
			}
		}

		player.RoomId = room.Id
		player.Position = database.Vector3{}
		player.Rotation = 0
		cached, err := u.tx.GetRoomPosition(accountId, room.Id)
		switch {
		case err == nil:
			player.Position = cached.Position
			player.Rotation = cached.Rotation
		case !isNoRows(err):
			return err
		}
		player.LastRoomJoinTime = u.now

		if err := u.tx.UpdateOnlinePlayer(player); err != nil {
			return err
		}

		h, err := u.tx.InsertSessionHistory(database.RoomSessionHistory{
			AccountId:  accountId,
			PlayerName: player.DisplayName,
			RoomId:     room.Id,
			EntryTime:  u.now,
		})
		if err != nil {
			return err
		}

		u.emit(Event{Kind: EventPlayerUpdated, RoomId: room.Id, Payload: playerView(player)})
		u.emit(Event{Kind: EventRoomSession, RoomId: room.Id, Audience: room.CreatorId, Payload: sessionView(h)})
		return nil
	})
	if err != nil {
		return types.Player{}, err
	}

	e.log.Printf("player %d joined room %d", player.AccountId, player.RoomId)
	return playerView(player), nil
}

func (u *unit) findRoom(p JoinRoomParams) (database.Room, error) {
	if p.RoomId != 0 {
		r, err := u.tx.GetRoom(p.RoomId)
		if isNoRows(err) {
			return r, NotFoundError("room not found")
		}
		return r, err
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		return database.Room{}, ValidationError("room id or name is required")
	}
	rooms, err := u.tx.ListRooms()
	if err != nil {
		return database.Room{}, err
	}
	for _, r := range rooms {
		if r.Name == name {
			return r, nil
		}
	}
	return database.Room{}, NotFoundError("room not found")
}

// LeaveRoom takes the caller out of its current room.
func (e *Engine) LeaveRoom(ctx context.Context, c Call) error {
	var roomId, accountId int
	err := e.runAuthed(ctx, c, func(u *unit, id int) error {
		p, err := u.occupiedRoom(id, "player is not in a room")
		if err != nil {
			return err
		}

		accountId, roomId = id, p.RoomId
		if err := e.leaveRoom(u, &p); err != nil {
			return err
		}
		u.emit(Event{Kind: EventPlayerUpdated, RoomId: roomId, Payload: playerView(p)})
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Printf("player %d left room %d", accountId, roomId)
	return nil
}

// leaveRoom caches p's position for its room, resets p to no room and
// closes the open history row for the pair. p is written back.
func (e *Engine) leaveRoom(u *unit, p *database.OnlinePlayer) error {
	roomId := p.RoomId
	err := u.tx.UpsertRoomPosition(database.PlayerRoomPosition{
		AccountId:   p.AccountId,
		RoomId:      roomId,
		Position:    p.Position,
		Rotation:    p.Rotation,
		LastUpdated: u.now,
	})
	if err != nil {
		return err
	}

	p.RoomId = database.NoRoom
	p.Position = database.Vector3{}
	p.Rotation = 0
	if err := u.tx.UpdateOnlinePlayer(*p); err != nil {
		return err
	}

	open, err := u.tx.ListOpenSessionHistory(p.AccountId, roomId)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}
	if len(open) > 1 {
		accountId, extra := p.AccountId, len(open)-1
		u.onCommit(func() {
			e.log.Printf("warning: account %d has %d extra open sessions in room %d", accountId, extra, roomId)
		})
	}

	h := open[0]
	h.ExitTime = u.now
	h.Duration = max(u.now-h.EntryTime, 0)
	if err := u.tx.UpdateSessionHistory(h); err != nil {
		return err
	}

	room, err := u.tx.GetRoom(roomId)
	switch {
	case err == nil:
		u.emit(Event{Kind: EventRoomSession, RoomId: roomId, Audience: room.CreatorId, Payload: sessionView(h)})
	case !isNoRows(err):
		return err
	}
	return nil
}

func (e *Engine) ListRooms(ctx context.Context) ([]types.Room, error) {
	var rooms []types.Room
	err := e.run(ctx, e.clock().UnixMicro(), func(u *unit) error {
		rows, err := u.tx.ListRooms()
		if err != nil {
			return err
		}
		rooms = make([]types.Room, 0, len(rows))
		for _, r := range rows {
			rooms = append(rooms, roomView(r))
		}
		return nil
	})
	return rooms, err
}

// RoomSessions returns the room's history rows if the caller created the
// room. Anyone else sees an empty list.
func (e *Engine) RoomSessions(ctx context.Context, c Call, roomId int) ([]types.RoomSession, error) {
	var sessions []types.RoomSession
	err := e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		var err error
		sessions, err = u.roomSessions(accountId, roomId)
		return err
	})
	return sessions, err
}

// RoomSessionsFor is RoomSessions for a viewer whose identity the
// transport already established.
func (e *Engine) RoomSessionsFor(ctx context.Context, viewerId, roomId int) ([]types.RoomSession, error) {
	var sessions []types.RoomSession
	err := e.run(ctx, e.clock().UnixMicro(), func(u *unit) error {
		var err error
		sessions, err = u.roomSessions(viewerId, roomId)
		return err
	})
	return sessions, err
}

func (u *unit) roomSessions(viewerId, roomId int) ([]types.RoomSession, error) {
	room, err := u.tx.GetRoom(roomId)
	if isNoRows(err) {
		return nil, NotFoundError("room not found")
	}
	if err != nil {
		return nil, err
	}

	sessions := []types.RoomSession{}
	if room.CreatorId != viewerId {
		return sessions, nil
	}

	rows, err := u.tx.ListSessionHistory(roomId)
	if err != nil {
		return nil, err
	}
	for _, h := range rows {
		sessions = append(sessions, sessionView(h))
	}
	return sessions, nil
}
