package database

import "context"

// Store runs units of work against the world relations. Each call to Tx is
// serializable with respect to every other call, and fn's writes are
// discarded if fn returns an error.
type Store interface {
	Ping(ctx context.Context) error
	Tx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx is the set of relation reads and writes available inside one unit.
// Lookups of absent rows return sql.ErrNoRows.
type Tx interface {
	InsertAccount(a Account) (Account, error)
	GetAccountById(id int) (Account, error)
	GetAccountByLogin(loginId string) (Account, error)
	UpdateAccount(a Account) error

	GetSession(credential string) (Session, error)
	UpsertSession(s Session) error
	DeleteSession(credential string) error
	// DeleteAllSessions removes every session and reports how many there
	// were.
	DeleteAllSessions() (int, error)

	GetOnlinePlayer(accountId int) (OnlinePlayer, error)
	ListOnlinePlayers() ([]OnlinePlayer, error)
	InsertOnlinePlayer(p OnlinePlayer) error
	UpdateOnlinePlayer(p OnlinePlayer) error
	DeleteOnlinePlayer(accountId int) error

	GetLoggedOutPlayer(accountId int) (LoggedOutPlayer, error)
	UpsertLoggedOutPlayer(p LoggedOutPlayer) error
	DeleteLoggedOutPlayer(accountId int) error

	// GetPlayerCount returns sql.ErrNoRows until SeedPlayerCount has run.
	GetPlayerCount() (int, error)
	SetPlayerCount(n int) error
	SeedPlayerCount() error

	InsertRoom(r Room) (Room, error)
	GetRoom(id int) (Room, error)
	ListRooms() ([]Room, error)

	GetRoomPosition(accountId, roomId int) (PlayerRoomPosition, error)
	UpsertRoomPosition(p PlayerRoomPosition) error

	GetRoomEntity(roomId int) (RoomEntity, error)
	UpsertRoomEntity(e RoomEntity) error

	InsertPlacedEntity(e PlacedEntity) (PlacedEntity, error)
	GetPlacedEntity(id int) (PlacedEntity, error)
	DeletePlacedEntity(id int) error

	InsertSessionHistory(h RoomSessionHistory) (RoomSessionHistory, error)
	// ListOpenSessionHistory returns rows for the pair with ExitTime == 0,
	// ordered by id.
	ListOpenSessionHistory(accountId, roomId int) ([]RoomSessionHistory, error)
	ListSessionHistory(roomId int) ([]RoomSessionHistory, error)
	UpdateSessionHistory(h RoomSessionHistory) error

	InsertChatMessage(m ChatMessage) (ChatMessage, error)
	ListChatMessages(roomId int) ([]ChatMessage, error)
	RenameChatSender(senderId int, name string, since int64) (int, error)

	GetVoiceClip(senderId int) (VoiceClip, error)
	UpsertVoiceClip(v VoiceClip) error
	RenameVoiceSender(senderId int, name string) (int, error)

	GetImage(buildingId string) (Image, error)
	UpsertImage(img Image) error
	RenameImageSender(senderId int, name string) (int, error)

	GetImageLock(buildingId string) (ImageBroadcastLock, error)
	UpsertImageLock(l ImageBroadcastLock) error
	DeleteImageLock(buildingId string) error
	RenameLockHolder(holderId int, name string) (int, error)
}
