package database

import (
	"cmp"
	"context"
	"database/sql"
	"maps"
	"slices"
	"sync"
)

type positionKey struct {
	accountId int
	roomId    int
}

type memTables struct {
	accounts     map[int]Account
	logins       map[string]int
	sessions     map[string]Session
	online       map[int]OnlinePlayer
	loggedOut    map[int]LoggedOutPlayer
	counters     map[int]int
	rooms        map[int]Room
	positions    map[positionKey]PlayerRoomPosition
	roomEntities map[int]RoomEntity
	placed       map[int]PlacedEntity
	history      map[int]RoomSessionHistory
	chat         map[int]ChatMessage
	voice        map[int]VoiceClip
	images       map[string]Image
	locks        map[string]ImageBroadcastLock
	sequences    map[string]int
}

// MemStore keeps every relation in process memory. Units of work run one
// at a time under a single mutex; a unit writes to private copies of the
// tables it touches, which replace the committed tables only when the
// unit succeeds.
type MemStore struct {
	mu     sync.Mutex
	tables memTables
}

func NewMemStore() *MemStore {
	return &MemStore{
		tables: memTables{
			accounts:     make(map[int]Account),
			logins:       make(map[string]int),
			sessions:     make(map[string]Session),
			online:       make(map[int]OnlinePlayer),
			loggedOut:    make(map[int]LoggedOutPlayer),
			counters:     make(map[int]int),
			rooms:        make(map[int]Room),
			positions:    make(map[positionKey]PlayerRoomPosition),
			roomEntities: make(map[int]RoomEntity),
			placed:       make(map[int]PlacedEntity),
			history:      make(map[int]RoomSessionHistory),
			chat:         make(map[int]ChatMessage),
			voice:        make(map[int]VoiceClip),
			images:       make(map[string]Image),
			locks:        make(map[string]ImageBroadcastLock),
			sequences:    make(map[string]int),
		},
	}
}

func (s *MemStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemStore) Close() error {
	return nil
}

func (s *MemStore) Tx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{t: s.tables, dirty: make(map[string]bool)}
	if err := fn(tx); err != nil {
		return err
	}

	s.tables = tx.t
	return nil
}

type memTx struct {
	t     memTables
	dirty map[string]bool
}

// w returns a writable copy of the named table, cloning it on first write.
func w[K comparable, V any](tx *memTx, name string, m *map[K]V) map[K]V {
	if !tx.dirty[name] {
		*m = maps.Clone(*m)
		tx.dirty[name] = true
	}
	return *m
}

func (tx *memTx) nextId(seq string) int {
	seqs := w(tx, "sequences", &tx.t.sequences)
	seqs[seq]++
	return seqs[seq]
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) int) []V {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, less)
	return out
}

func (tx *memTx) InsertAccount(a Account) (Account, error) {
	if _, ok := tx.t.logins[a.LoginId]; ok {
		return Account{}, ErrDuplicateKey
	}
	a.Id = tx.nextId("accounts")
	w(tx, "accounts", &tx.t.accounts)[a.Id] = a
	w(tx, "logins", &tx.t.logins)[a.LoginId] = a.Id
	return a, nil
}

func (tx *memTx) GetAccountById(id int) (Account, error) {
	a, ok := tx.t.accounts[id]
	if !ok {
		return Account{}, sql.ErrNoRows
	}
	return a, nil
}

func (tx *memTx) GetAccountByLogin(loginId string) (Account, error) {
	id, ok := tx.t.logins[loginId]
	if !ok {
		return Account{}, sql.ErrNoRows
	}
	return tx.GetAccountById(id)
}

func (tx *memTx) UpdateAccount(a Account) error {
	prev, ok := tx.t.accounts[a.Id]
	if !ok {
		return sql.ErrNoRows
	}
	if prev.LoginId != a.LoginId {
		logins := w(tx, "logins", &tx.t.logins)
		delete(logins, prev.LoginId)
		logins[a.LoginId] = a.Id
	}
	w(tx, "accounts", &tx.t.accounts)[a.Id] = a
	return nil
}

func (tx *memTx) GetSession(credential string) (Session, error) {
	s, ok := tx.t.sessions[credential]
	if !ok {
		return Session{}, sql.ErrNoRows
	}
	return s, nil
}

func (tx *memTx) UpsertSession(s Session) error {
	w(tx, "sessions", &tx.t.sessions)[s.Credential] = s
	return nil
}

func (tx *memTx) DeleteSession(credential string) error {
	if _, ok := tx.t.sessions[credential]; !ok {
		return nil
	}
	delete(w(tx, "sessions", &tx.t.sessions), credential)
	return nil
}

func (tx *memTx) DeleteAllSessions() (int, error) {
	n := len(tx.t.sessions)
	if n == 0 {
		return 0, nil
	}
	clear(w(tx, "sessions", &tx.t.sessions))
	return n, nil
}

func (tx *memTx) GetOnlinePlayer(accountId int) (OnlinePlayer, error) {
	p, ok := tx.t.online[accountId]
	if !ok {
		return OnlinePlayer{}, sql.ErrNoRows
	}
	return p, nil
}

func (tx *memTx) ListOnlinePlayers() ([]OnlinePlayer, error) {
	return sortedValues(tx.t.online, func(a, b OnlinePlayer) int {
		return cmp.Compare(a.AccountId, b.AccountId)
	}), nil
}

func (tx *memTx) InsertOnlinePlayer(p OnlinePlayer) error {
	if _, ok := tx.t.online[p.AccountId]; ok {
		return ErrDuplicateKey
	}
	w(tx, "online", &tx.t.online)[p.AccountId] = p
	return nil
}

func (tx *memTx) UpdateOnlinePlayer(p OnlinePlayer) error {
	if _, ok := tx.t.online[p.AccountId]; !ok {
		return sql.ErrNoRows
	}
	w(tx, "online", &tx.t.online)[p.AccountId] = p
	return nil
}

func (tx *memTx) DeleteOnlinePlayer(accountId int) error {
	if _, ok := tx.t.online[accountId]; !ok {
		return nil
	}
	delete(w(tx, "online", &tx.t.online), accountId)
	return nil
}

func (tx *memTx) GetLoggedOutPlayer(accountId int) (LoggedOutPlayer, error) {
	p, ok := tx.t.loggedOut[accountId]
	if !ok {
		return LoggedOutPlayer{}, sql.ErrNoRows
	}
	return p, nil
}

func (tx *memTx) UpsertLoggedOutPlayer(p LoggedOutPlayer) error {
	w(tx, "loggedOut", &tx.t.loggedOut)[p.AccountId] = p
	return nil
}

func (tx *memTx) DeleteLoggedOutPlayer(accountId int) error {
	if _, ok := tx.t.loggedOut[accountId]; !ok {
		return nil
	}
	delete(w(tx, "loggedOut", &tx.t.loggedOut), accountId)
	return nil
}

func (tx *memTx) GetPlayerCount() (int, error) {
	n, ok := tx.t.counters[PlayerCountId]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return n, nil
}

func (tx *memTx) SetPlayerCount(n int) error {
	if _, ok := tx.t.counters[PlayerCountId]; !ok {
		return sql.ErrNoRows
	}
	w(tx, "counters", &tx.t.counters)[PlayerCountId] = n
	return nil
}

func (tx *memTx) SeedPlayerCount() error {
	if _, ok := tx.t.counters[PlayerCountId]; ok {
		return nil
	}
	w(tx, "counters", &tx.t.counters)[PlayerCountId] = 0
	return nil
}

func (tx *memTx) InsertRoom(r Room) (Room, error) {
	r.Id = tx.nextId("rooms")
	w(tx, "rooms", &tx.t.rooms)[r.Id] = r
	return r, nil
}

func (tx *memTx) GetRoom(id int) (Room, error) {
	r, ok := tx.t.rooms[id]
	if !ok {
		return Room{}, sql.ErrNoRows
	}
	return r, nil
}

func (tx *memTx) ListRooms() ([]Room, error) {
	return sortedValues(tx.t.rooms, func(a, b Room) int {
		return cmp.Compare(a.Id, b.Id)
	}), nil
}

func (tx *memTx) GetRoomPosition(accountId, roomId int) (PlayerRoomPosition, error) {
	p, ok := tx.t.positions[positionKey{accountId, roomId}]
	if !ok {
		return PlayerRoomPosition{}, sql.ErrNoRows
	}
	return p, nil
}

func (tx *memTx) UpsertRoomPosition(p PlayerRoomPosition) error {
	w(tx, "positions", &tx.t.positions)[positionKey{p.AccountId, p.RoomId}] = p
	return nil
}

func (tx *memTx) GetRoomEntity(roomId int) (RoomEntity, error) {
	e, ok := tx.t.roomEntities[roomId]
	if !ok {
		return RoomEntity{}, sql.ErrNoRows
	}
	return e, nil
}

func (tx *memTx) UpsertRoomEntity(e RoomEntity) error {
	w(tx, "roomEntities", &tx.t.roomEntities)[e.RoomId] = e
	return nil
}

func (tx *memTx) InsertPlacedEntity(e PlacedEntity) (PlacedEntity, error) {
	e.Id = tx.nextId("placed")
	w(tx, "placed", &tx.t.placed)[e.Id] = e
	return e, nil
}

func (tx *memTx) GetPlacedEntity(id int) (PlacedEntity, error) {
	e, ok := tx.t.placed[id]
	if !ok {
		return PlacedEntity{}, sql.ErrNoRows
	}
	return e, nil
}

func (tx *memTx) DeletePlacedEntity(id int) error {
	if _, ok := tx.t.placed[id]; !ok {
		return nil
	}
	delete(w(tx, "placed", &tx.t.placed), id)
	return nil
}

func (tx *memTx) InsertSessionHistory(h RoomSessionHistory) (RoomSessionHistory, error) {
	h.Id = tx.nextId("history")
	w(tx, "history", &tx.t.history)[h.Id] = h
	return h, nil
}

func (tx *memTx) ListOpenSessionHistory(accountId, roomId int) ([]RoomSessionHistory, error) {
	var open []RoomSessionHistory
	for _, h := range tx.t.history {
		if h.AccountId == accountId && h.RoomId == roomId && h.ExitTime == 0 {
			open = append(open, h)
		}
	}
	slices.SortFunc(open, func(a, b RoomSessionHistory) int { return cmp.Compare(a.Id, b.Id) })
	return open, nil
}

func (tx *memTx) ListSessionHistory(roomId int) ([]RoomSessionHistory, error) {
	var rows []RoomSessionHistory
	for _, h := range tx.t.history {
		if h.RoomId == roomId {
			rows = append(rows, h)
		}
	}
	slices.SortFunc(rows, func(a, b RoomSessionHistory) int { return cmp.Compare(a.Id, b.Id) })
	return rows, nil
}

func (tx *memTx) UpdateSessionHistory(h RoomSessionHistory) error {
	if _, ok := tx.t.history[h.Id]; !ok {
		return sql.ErrNoRows
	}
	w(tx, "history", &tx.t.history)[h.Id] = h
	return nil
}

func (tx *memTx) InsertChatMessage(m ChatMessage) (ChatMessage, error) {
	m.Id = tx.nextId("chat")
	w(tx, "chat", &tx.t.chat)[m.Id] = m
	return m, nil
}

func (tx *memTx) ListChatMessages(roomId int) ([]ChatMessage, error) {
	var msgs []ChatMessage
	for _, m := range tx.t.chat {
		if m.RoomId == roomId {
			msgs = append(msgs, m)
		}
	}
	slices.SortFunc(msgs, func(a, b ChatMessage) int { return cmp.Compare(a.Id, b.Id) })
	return msgs, nil
}

func (tx *memTx) RenameChatSender(senderId int, name string, since int64) (int, error) {
	n := 0
	for id, m := range tx.t.chat {
		if m.SenderId != senderId || m.SentAt < since {
			continue
		}
		m.SenderName = name
		w(tx, "chat", &tx.t.chat)[id] = m
		n++
	}
	return n, nil
}

func (tx *memTx) GetVoiceClip(senderId int) (VoiceClip, error) {
	v, ok := tx.t.voice[senderId]
	if !ok {
		return VoiceClip{}, sql.ErrNoRows
	}
	return v, nil
}

func (tx *memTx) UpsertVoiceClip(v VoiceClip) error {
	w(tx, "voice", &tx.t.voice)[v.SenderId] = v
	return nil
}

func (tx *memTx) RenameVoiceSender(senderId int, name string) (int, error) {
	v, ok := tx.t.voice[senderId]
	if !ok {
		return 0, nil
	}
	v.SenderName = name
	w(tx, "voice", &tx.t.voice)[senderId] = v
	return 1, nil
}

func (tx *memTx) GetImage(buildingId string) (Image, error) {
	img, ok := tx.t.images[buildingId]
	if !ok {
		return Image{}, sql.ErrNoRows
	}
	return img, nil
}

func (tx *memTx) UpsertImage(img Image) error {
	w(tx, "images", &tx.t.images)[img.BuildingId] = img
	return nil
}

func (tx *memTx) RenameImageSender(senderId int, name string) (int, error) {
	n := 0
	for id, img := range tx.t.images {
		if img.SenderId != senderId {
			continue
		}
		img.SenderName = name
		w(tx, "images", &tx.t.images)[id] = img
		n++
	}
	return n, nil
}

func (tx *memTx) GetImageLock(buildingId string) (ImageBroadcastLock, error) {
	l, ok := tx.t.locks[buildingId]
	if !ok {
		return ImageBroadcastLock{}, sql.ErrNoRows
	}
	return l, nil
}

func (tx *memTx) UpsertImageLock(l ImageBroadcastLock) error {
	w(tx, "locks", &tx.t.locks)[l.BuildingId] = l
	return nil
}

func (tx *memTx) DeleteImageLock(buildingId string) error {
	if _, ok := tx.t.locks[buildingId]; !ok {
		return nil
	}
	delete(w(tx, "locks", &tx.t.locks), buildingId)
	return nil
}

func (tx *memTx) RenameLockHolder(holderId int, name string) (int, error) {
	n := 0
	for id, l := range tx.t.locks {
		if l.HolderId != holderId {
			continue
		}
		l.HolderName = name
		w(tx, "locks", &tx.t.locks)[id] = l
		n++
	}
	return n, nil
}
