// Package engine holds the authoritative state transitions of the world:
// accounts and sessions, online presence, rooms, shared entities, locks and
// the media relay. Every exported operation runs as exactly one unit of work
// against the store, so its writes commit or roll back together.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/stats"
)

const (
	DefaultColor       = "#FFFFFF"
	DefaultRenameSince = 24 * time.Hour
)

// Call carries what the transport knows about an inbound operation: the
// connection credential and the wall-clock time in microseconds since the
// epoch. A zero Timestamp is stamped with the engine clock.
type Call struct {
	Credential string
	Timestamp  int64
}

type Options struct {
	Hash        HashFunction
	RoomSecrets RoomSecrets
	Publisher   Publisher
	// RenameWindow bounds how far back chat messages are rewritten when a
	// player changes display name.
	RenameWindow time.Duration
	Clock        func() time.Time
}

type Engine struct {
	log          *log.Logger
	store        database.Store
	stats        stats.StatsProvider
	hash         HashFunction
	roomSecrets  RoomSecrets
	publisher    Publisher
	renameWindow time.Duration
	clock        func() time.Time
}

func NewEngine(logger *log.Logger, store database.Store, su stats.StatsProvider, opts Options) *Engine {
	e := &Engine{
		log:          logger,
		store:        store,
		stats:        su,
		hash:         opts.Hash,
		roomSecrets:  opts.RoomSecrets,
		publisher:    opts.Publisher,
		renameWindow: opts.RenameWindow,
		clock:        opts.Clock,
	}

	if e.hash == nil {
		e.hash = Argon2Hash
	}
	if e.roomSecrets == nil {
		e.roomSecrets = PlaintextRoomSecrets{}
	}
	if e.publisher == nil {
		e.publisher = nopPublisher{}
	}
	if e.renameWindow <= 0 {
		e.renameWindow = DefaultRenameSince
	}
	if e.clock == nil {
		e.clock = time.Now
	}

	e.stats.RegisterMetric(stats.NumOnlinePlayers)
	e.stats.RegisterMetric(stats.NumRooms)
	e.stats.RegisterMetric(stats.NumChatMessages)

	return e
}

// SetPublisher replaces the event publisher. It must be called before the
// engine serves traffic.
func (e *Engine) SetPublisher(p Publisher) {
	if p == nil {
		p = nopPublisher{}
	}
	e.publisher = p
}

// unit is the state of one running unit of work.
type unit struct {
	tx     database.Tx
	now    int64
	events []Event
	after  []func()
}

func (u *unit) emit(ev Event) {
	u.events = append(u.events, ev)
}

func (u *unit) onCommit(f func()) {
	u.after = append(u.after, f)
}

func (e *Engine) stamp(c Call) int64 {
	if c.Timestamp > 0 {
		return c.Timestamp
	}
	return e.clock().UnixMicro()
}

// run executes fn as one unit of work. Events and commit hooks are only
// released once the store has committed.
func (e *Engine) run(ctx context.Context, now int64, fn func(u *unit) error) error {
	var u *unit
	err := e.store.Tx(ctx, func(tx database.Tx) error {
		u = &unit{tx: tx, now: now}
		return fn(u)
	})
	if err != nil {
		return asEngineError(err)
	}

	if len(u.events) > 0 {
		e.publisher.Publish(u.events...)
	}
	for _, f := range u.after {
		f()
	}
	return nil
}

// runAuthed authenticates the caller and runs fn in the same unit.
func (e *Engine) runAuthed(ctx context.Context, c Call, fn func(u *unit, accountId int) error) error {
	return e.run(ctx, e.stamp(c), func(u *unit) error {
		accountId, err := u.requireAuthenticated(c.Credential)
		if err != nil {
			return err
		}
		return fn(u, accountId)
	})
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// onlinePlayer loads the caller's online row.
func (u *unit) onlinePlayer(accountId int) (database.OnlinePlayer, error) {
	p, err := u.tx.GetOnlinePlayer(accountId)
	if isNoRows(err) {
		return p, StateError("player is not online")
	}
	return p, err
}

// occupiedRoom loads the caller's online row and fails unless the player
// is inside a room.
func (u *unit) occupiedRoom(accountId int, msg string) (database.OnlinePlayer, error) {
	p, err := u.onlinePlayer(accountId)
	if err != nil {
		return p, err
	}
	if p.RoomId == database.NoRoom {
		return p, StateError(msg)
	}
	return p, nil
}

func (u *unit) adjustPlayerCount(delta int) (int, error) {
	n, err := u.tx.GetPlayerCount()
	if isNoRows(err) {
		return 0, InternalError(errors.New("player count not initialized"))
	}
	if err != nil {
		return 0, err
	}

	n += delta
	if err := u.tx.SetPlayerCount(n); err != nil {
		return 0, err
	}
	return n, nil
}
