package engine

import (
	"context"

	"github.com/npezzotti/go-worldstate/internal/database"
)

// OnServerStart seeds the player count and takes offline every player left
// online by a previous process, since none of their connections survived.
// Sessions of those connections are dropped with them. It is safe to call
// repeatedly.
func (e *Engine) OnServerStart(ctx context.Context) error {
	var stale, sessions int
	err := e.run(ctx, e.clock().UnixMicro(), func(u *unit) error {
		if err := u.tx.SeedPlayerCount(); err != nil {
			return err
		}

		players, err := u.tx.ListOnlinePlayers()
		if err != nil {
			return err
		}
		for _, p := range players {
			if err := u.evict(p); err != nil {
				return err
			}
		}
		stale = len(players)

		sessions, err = u.tx.DeleteAllSessions()
		if err != nil {
			return err
		}
		return u.tx.SetPlayerCount(0)
	})
	if err != nil {
		return err
	}

	if stale > 0 {
		e.log.Printf("moved %d stale online players offline", stale)
	}
	if sessions > 0 {
		e.log.Printf("dropped %d stale sessions", sessions)
	}
	return nil
}

// evict moves a stale online row to the logged-out relation without
// accruing play time, since the disconnect time is unknown.
func (u *unit) evict(p database.OnlinePlayer) error {
	lo, err := u.tx.GetLoggedOutPlayer(p.AccountId)
	switch {
	case err == nil:
	case isNoRows(err):
		lo = database.LoggedOutPlayer{AccountId: p.AccountId}
	default:
		return err
	}

	if p.RoomId != database.NoRoom {
		open, err := u.tx.ListOpenSessionHistory(p.AccountId, p.RoomId)
		if err != nil {
			return err
		}
		for _, h := range open {
			h.ExitTime = u.now
			h.Duration = max(u.now-h.EntryTime, 0)
			if err := u.tx.UpdateSessionHistory(h); err != nil {
				return err
			}
		}
	}

	lo.TotalPlayTime = p.TotalPlayTime
	lo.DisplayName = p.DisplayName
	lo.Color = p.Color
	lo.RoomId = p.RoomId
	lo.Position = p.Position
	lo.Rotation = p.Rotation
	lo.LastDisconnectTime = u.now
	if err := u.tx.UpsertLoggedOutPlayer(lo); err != nil {
		return err
	}
	return u.tx.DeleteOnlinePlayer(p.AccountId)
}

// OnConnect records a new connection. Entering the world takes an explicit
// authenticated call.
func (e *Engine) OnConnect(c Call) {
	e.log.Printf("connection opened: %s", c.Credential)
}

// OnDisconnect reconciles a closed connection.
func (e *Engine) OnDisconnect(ctx context.Context, c Call) error {
	return e.Disconnect(ctx, c)
}
