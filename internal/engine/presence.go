package engine

import (
	"context"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/stats"
	"github.com/npezzotti/go-worldstate/internal/types"
)

type ProfileParams struct {
	DisplayName *string
	Color       *string
}

// EnterWorld brings the caller's account online, restoring color and
// accumulated play time from its logged-out record.
func (e *Engine) EnterWorld(ctx context.Context, c Call) (types.Player, error) {
	var player database.OnlinePlayer
	err := e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		if _, err := u.tx.GetOnlinePlayer(accountId); err == nil {
			return ConflictError("player is already online")
		} else if !isNoRows(err) {
			return err
		}

		account, err := u.tx.GetAccountById(accountId)
		if isNoRows(err) {
			return NotFoundError("account not found")
		}
		if err != nil {
			return err
		}

		color := DefaultColor
		var playTime int64
		lo, err := u.tx.GetLoggedOutPlayer(accountId)
		switch {
		case err == nil:
			color = lo.Color
			playTime = lo.TotalPlayTime
			if err := u.tx.DeleteLoggedOutPlayer(accountId); err != nil {
				return err
			}
		case !isNoRows(err):
			return err
		}

		player = database.OnlinePlayer{
			AccountId:       accountId,
			Credential:      c.Credential,
			DisplayName:     account.DisplayName,
			Color:           color,
			RoomId:          database.NoRoom,
			LastConnectTime: u.now,
			TotalPlayTime:   playTime,
		}
		if err := u.tx.InsertOnlinePlayer(player); err != nil {
			return err
		}

		count, err := u.adjustPlayerCount(1)
		if err != nil {
			return err
		}

		u.emit(Event{Kind: EventPlayerOnline, Payload: playerView(player)})
		u.emit(Event{Kind: EventPlayerCount, Payload: types.PlayerCount{Count: count}})
		u.onCommit(func() { e.stats.Incr(stats.NumOnlinePlayers) })
		return nil
	})
	if err != nil {
		return types.Player{}, err
	}

	e.log.Printf("player entered world: %q (id %d)", player.DisplayName, player.AccountId)
	return playerView(player), nil
}

// Disconnect reconciles a closed connection: the player it brought online
// moves to the logged-out relation with its play time accrued, and the
// session is removed. Unknown credentials are a no-op.
func (e *Engine) Disconnect(ctx context.Context, c Call) error {
	var accountId int
	err := e.run(ctx, e.stamp(c), func(u *unit) error {
		s, err := u.tx.GetSession(c.Credential)
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return err
		}

		accountId = s.AccountId
		if err := e.takeOffline(u, c.Credential, s.AccountId); err != nil {
			return err
		}
		return u.tx.DeleteSession(c.Credential)
	})
	if err != nil {
		return err
	}

	if accountId != 0 {
		e.log.Printf("player disconnected: account %d", accountId)
	}
	return nil
}

// takeOffline moves the account's online row, if this credential owns it,
// into the logged-out relation.
func (e *Engine) takeOffline(u *unit, credential string, accountId int) error {
	p, err := u.tx.GetOnlinePlayer(accountId)
	if isNoRows(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if p.Credential != credential {
		return nil
	}

	lastRoom, lastPos, lastRot := p.RoomId, p.Position, p.Rotation
	if p.RoomId != database.NoRoom {
		if err := e.leaveRoom(u, &p); err != nil {
			return err
		}
	}

	elapsed := max(u.now-p.LastConnectTime, 0)

	lo, err := u.tx.GetLoggedOutPlayer(accountId)
	switch {
	case err == nil:
	case isNoRows(err):
		lo = database.LoggedOutPlayer{AccountId: accountId}
	default:
		return err
	}

	lo.TotalPlayTime = p.TotalPlayTime + elapsed
	lo.DisplayName = p.DisplayName
	lo.Color = p.Color
	lo.RoomId = lastRoom
	lo.Position = lastPos
	lo.Rotation = lastRot
	lo.LastDisconnectTime = u.now
	if err := u.tx.UpsertLoggedOutPlayer(lo); err != nil {
		return err
	}

	if err := u.tx.DeleteOnlinePlayer(accountId); err != nil {
		return err
	}

	count, err := u.adjustPlayerCount(-1)
	if err != nil {
		return err
	}

	u.emit(Event{Kind: EventPlayerOffline, Payload: types.Player{AccountId: accountId, DisplayName: p.DisplayName}})
	u.emit(Event{Kind: EventPlayerCount, Payload: types.PlayerCount{Count: count}})
	u.onCommit(func() { e.stats.Decr(stats.NumOnlinePlayers) })
	return nil
}

// UpdateProfile changes the caller's display name and/or color everywhere
// the player is represented. A name change also rewrites the sender name
// on the caller's recent media.
func (e *Engine) UpdateProfile(ctx context.Context, c Call, p ProfileParams) error {
	if p.DisplayName != nil {
		if err := validateDisplayName(*p.DisplayName); err != nil {
			return err
		}
	}
	if p.Color != nil {
		if err := validateColor(*p.Color); err != nil {
			return err
		}
	}

	return e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		account, err := u.tx.GetAccountById(accountId)
		if isNoRows(err) {
			return NotFoundError("account not found")
		}
		if err != nil {
			return err
		}

		renamed := p.DisplayName != nil && *p.DisplayName != account.DisplayName
		if renamed {
			account.DisplayName = *p.DisplayName
			if err := u.tx.UpdateAccount(account); err != nil {
				return err
			}
		}

		player, err := u.tx.GetOnlinePlayer(accountId)
		switch {
		case err == nil:
			player.DisplayName = account.DisplayName
			if p.Color != nil {
				player.Color = *p.Color
			}
			if err := u.tx.UpdateOnlinePlayer(player); err != nil {
				return err
			}
			u.emit(Event{Kind: EventPlayerUpdated, RoomId: player.RoomId, Payload: playerView(player)})
		case !isNoRows(err):
			return err
		}

		lo, err := u.tx.GetLoggedOutPlayer(accountId)
		switch {
		case err == nil:
			lo.DisplayName = account.DisplayName
			if p.Color != nil {
				lo.Color = *p.Color
			}
			if err := u.tx.UpsertLoggedOutPlayer(lo); err != nil {
				return err
			}
		case !isNoRows(err):
			return err
		}

		if renamed {
			return e.renameCascade(u, accountId, account.DisplayName)
		}
		return nil
	})
}

// UpdatePosition overwrites the caller's live position and rotation.
func (e *Engine) UpdatePosition(ctx context.Context, c Call, position types.Vector3, rotation float64) error {
	return e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		p, err := u.occupiedRoom(accountId, "player must join a room first")
		if err != nil {
			return err
		}

		p.Position = dbVec(position)
		p.Rotation = rotation
		if err := u.tx.UpdateOnlinePlayer(p); err != nil {
			return err
		}

		u.emit(Event{Kind: EventPlayerUpdated, RoomId: p.RoomId, Payload: playerView(p)})
		return nil
	})
}

func (e *Engine) PlayerCount(ctx context.Context) (int, error) {
	var n int
	err := e.run(ctx, e.clock().UnixMicro(), func(u *unit) error {
		var err error
		n, err = u.tx.GetPlayerCount()
		if isNoRows(err) {
			return StateError("player count not initialized")
		}
		return err
	})
	return n, err
}

func (e *Engine) OnlinePlayers(ctx context.Context) ([]types.Player, error) {
	var players []types.Player
	err := e.run(ctx, e.clock().UnixMicro(), func(u *unit) error {
		rows, err := u.tx.ListOnlinePlayers()
		if err != nil {
			return err
		}
		players = make([]types.Player, 0, len(rows))
		for _, p := range rows {
			players = append(players, playerView(p))
		}
		return nil
	})
	return players, err
}
