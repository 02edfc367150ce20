package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/stats"
	"github.com/npezzotti/go-worldstate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minute = int64(time.Minute / time.Microsecond)

func testHash(password string, salt []byte) string {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(events ...Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func (p *recordingPublisher) ofKind(kind EventKind) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, ev := range p.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	e     *Engine
	store *database.MemStore
	pub   *recordingPublisher
	now   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: database.NewMemStore(),
		pub:   &recordingPublisher{},
		now:   1_700_000_000_000_000,
	}
	su := new(stats.MockStatsUpdater).AllowAll()
	f.e = NewEngine(testutil.TestLogger(t), f.store, su, Options{
		Hash:      testHash,
		Publisher: f.pub,
		Clock:     func() time.Time { return time.UnixMicro(f.now) },
	})
	require.NoError(t, f.e.OnServerStart(f.ctx))
	return f
}

func (f *fixture) call(credential string) Call {
	return Call{Credential: credential, Timestamp: f.now}
}

func (f *fixture) advance(d int64) {
	f.now += d
}

// register creates an account and logs it in on credential.
func (f *fixture) register(login, name, credential string) int {
	f.t.Helper()
	id, err := f.e.Register(f.ctx, f.call(credential), RegisterParams{LoginId: login, DisplayName: name, Password: "secret1"})
	require.NoError(f.t, err)
	_, err = f.e.Login(f.ctx, f.call(credential), LoginParams{LoginId: login, Password: "secret1"})
	require.NoError(f.t, err)
	return id
}

// online registers, logs in and enters the world.
func (f *fixture) online(login, name, credential string) int {
	f.t.Helper()
	id := f.register(login, name, credential)
	_, err := f.e.EnterWorld(f.ctx, f.call(credential))
	require.NoError(f.t, err)
	return id
}

func (f *fixture) room(credential, name string) int {
	f.t.Helper()
	r, err := f.e.CreateRoom(f.ctx, f.call(credential), name, "pw123")
	require.NoError(f.t, err)
	return r.Id
}

func (f *fixture) join(credential string, roomId int) {
	f.t.Helper()
	_, err := f.e.JoinRoom(f.ctx, f.call(credential), JoinRoomParams{RoomId: roomId, Password: "pw123"})
	require.NoError(f.t, err)
}

func (f *fixture) read(fn func(tx database.Tx)) {
	f.t.Helper()
	require.NoError(f.t, f.store.Tx(f.ctx, func(tx database.Tx) error {
		fn(tx)
		return nil
	}))
}

// checkInvariants asserts the cross-relation invariants that must hold at
// every unit boundary.
func (f *fixture) checkInvariants() {
	f.t.Helper()
	f.read(func(tx database.Tx) {
		count, err := tx.GetPlayerCount()
		require.NoError(f.t, err)
		online, err := tx.ListOnlinePlayers()
		require.NoError(f.t, err)
		assert.Equal(f.t, len(online), count, "player count must match online players")

		rooms, err := tx.ListRooms()
		require.NoError(f.t, err)
		for _, p := range online {
			_, err := tx.GetLoggedOutPlayer(p.AccountId)
			assert.True(f.t, isNoRows(err), "account %d is both online and logged out", p.AccountId)

			for _, r := range rooms {
				open, err := tx.ListOpenSessionHistory(p.AccountId, r.Id)
				require.NoError(f.t, err)
				assert.LessOrEqual(f.t, len(open), 1, "account %d has several open sessions in room %d", p.AccountId, r.Id)
			}
		}
	})
}

func assertKind(t *testing.T, want Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, KindOf(err), "unexpected error kind for %v", err)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	id, err := f.e.Register(f.ctx, f.call("c1"), RegisterParams{LoginId: "alice@x.com", DisplayName: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = f.e.Register(f.ctx, f.call("c1"), RegisterParams{LoginId: "alice@x.com", DisplayName: "alice2", Password: "secret1"})
	assertKind(t, KindConflict, err)

	account, err := f.e.Account(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", account.DisplayName)
	assert.Zero(t, account.LastLogin)
	assert.Equal(t, f.now, account.CreatedAt)

	f.read(func(tx database.Tx) {
		a, err := tx.GetAccountById(id)
		require.NoError(t, err)
		assert.NotEmpty(t, a.PasswordSalt)
		assert.NotEqual(t, "secret1", a.PasswordDigest)
	})
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	tcases := []struct {
		name   string
		params RegisterParams
	}{
		{"login too short", RegisterParams{LoginId: "a@b", DisplayName: "alice", Password: "secret1"}},
		{"login without separator", RegisterParams{LoginId: "alicexcom", DisplayName: "alice", Password: "secret1"}},
		{"display name too short", RegisterParams{LoginId: "alice@x.com", DisplayName: "al", Password: "secret1"}},
		{"display name blank", RegisterParams{LoginId: "alice@x.com", DisplayName: "     ", Password: "secret1"}},
		{"password too short", RegisterParams{LoginId: "alice@x.com", DisplayName: "alice", Password: "12345"}},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.e.Register(f.ctx, f.call("c1"), tc.params)
			assertKind(t, KindValidation, err)
		})
	}

	_, err := f.e.Account(f.ctx, 1)
	assertKind(t, KindNotFound, err)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	id, err := f.e.Register(f.ctx, f.call("c1"), RegisterParams{LoginId: "alice@x.com", DisplayName: "alice", Password: "secret1"})
	require.NoError(t, err)

	t.Run("wrong password and unknown account look the same", func(t *testing.T) {
		_, wrongPw := f.e.Login(f.ctx, f.call("c1"), LoginParams{LoginId: "alice@x.com", Password: "nope123"})
		assertKind(t, KindAuth, wrongPw)
		_, unknown := f.e.Login(f.ctx, f.call("c1"), LoginParams{LoginId: "bob@x.com", Password: "nope123"})
		assertKind(t, KindAuth, unknown)
		assert.Equal(t, wrongPw.Error(), unknown.Error())

		ok, err := f.e.IsAuthenticated(f.ctx, f.call("c1"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("blank input", func(t *testing.T) {
		_, err := f.e.Login(f.ctx, f.call("c1"), LoginParams{LoginId: " ", Password: "secret1"})
		assertKind(t, KindValidation, err)
	})

	t.Run("success binds the connection", func(t *testing.T) {
		f.advance(minute)
		got, err := f.e.Login(f.ctx, f.call("c1"), LoginParams{LoginId: "alice@x.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, id, got)

		accountId, err := f.e.RequireAuthenticated(f.ctx, f.call("c1"))
		require.NoError(t, err)
		assert.Equal(t, id, accountId)

		account, err := f.e.Account(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, f.now, account.LastLogin)
	})

	t.Run("second login on the same connection updates activity", func(t *testing.T) {
		f.advance(minute)
		_, err := f.e.Login(f.ctx, f.call("c1"), LoginParams{LoginId: "alice@x.com", Password: "secret1"})
		require.NoError(t, err)
		f.read(func(tx database.Tx) {
			s, err := tx.GetSession("c1")
			require.NoError(t, err)
			assert.Equal(t, f.now, s.LastActivity)
			assert.Less(t, s.CreatedAt, s.LastActivity)
		})
	})
}

func TestBindSession(t *testing.T) {
	f := newFixture(t)
	id, err := f.e.Register(f.ctx, f.call("c1"), RegisterParams{LoginId: "alice@x.com", DisplayName: "alice", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, f.e.BindSession(f.ctx, f.call("ws-1"), id))
	ok, err := f.e.IsAuthenticated(f.ctx, f.call("ws-1"))
	require.NoError(t, err)
	assert.True(t, ok)

	assertKind(t, KindAuth, f.e.BindSession(f.ctx, f.call("ws-2"), 99))
	assertKind(t, KindAuth, f.e.BindSession(f.ctx, f.call(""), id))
}

func TestRequireAuthenticated(t *testing.T) {
	f := newFixture(t)

	_, err := f.e.RequireAuthenticated(f.ctx, f.call("nobody"))
	assertKind(t, KindAuth, err)

	f.register("alice@x.com", "alice", "c1")
	f.advance(minute)
	_, err = f.e.RequireAuthenticated(f.ctx, f.call("c1"))
	require.NoError(t, err)
	f.read(func(tx database.Tx) {
		s, err := tx.GetSession("c1")
		require.NoError(t, err)
		assert.Equal(t, f.now, s.LastActivity)
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	t.Run("without a session is a no-op", func(t *testing.T) {
		assert.NoError(t, f.e.Logout(f.ctx, f.call("nobody")))
	})

	t.Run("takes the player offline", func(t *testing.T) {
		f.online("alice@x.com", "alice", "c1")
		require.NoError(t, f.e.Logout(f.ctx, f.call("c1")))

		ok, err := f.e.IsAuthenticated(f.ctx, f.call("c1"))
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := f.e.PlayerCount(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		f.checkInvariants()
	})
}

func TestEventsOnlyAfterCommit(t *testing.T) {
	f := newFixture(t)
	f.online("alice@x.com", "alice", "c1")
	f.pub.reset()

	_, err := f.e.EnterWorld(f.ctx, f.call("c1"))
	assertKind(t, KindConflict, err)
	assert.Empty(t, f.pub.events)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindState, KindOf(StateError("x")))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.Equal(t, "not_found", KindNotFound.String())

	err := InternalError(assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "internal error: "+assert.AnError.Error(), err.Error())
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	id, err := f.e.Register(f.ctx, f.call("c1"), RegisterParams{LoginId: "alice@x.com", DisplayName: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.e.Authenticate(f.ctx, Call{}, LoginParams{LoginId: "alice@x.com", Password: "wrong12"})
	assertKind(t, KindAuth, err)

	f.advance(minute)
	got, err := f.e.Authenticate(f.ctx, Call{}, LoginParams{LoginId: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	account, err := f.e.Account(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.now, account.LastLogin)

	ok, err := f.e.IsAuthenticated(f.ctx, Call{})
	require.NoError(t, err)
	assert.False(t, ok, "no session is bound")
}
