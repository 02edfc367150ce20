package database

// NoRoom is the room id an online player holds while not inside any room.
const NoRoom = -1

// PlayerCountId is the key of the singleton player_count row.
const PlayerCountId = 0

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Account struct {
	Id             int
	LoginId        string
	DisplayName    string
	PasswordDigest string
	PasswordSalt   string
	CreatedAt      int64
	LastLogin      int64
}

type Session struct {
	Credential   string
	AccountId    int
	CreatedAt    int64
	LastActivity int64
}

type OnlinePlayer struct {
	AccountId        int
	Credential       string
	DisplayName      string
	Color            string
	RoomId           int
	LastRoomJoinTime int64
	LastConnectTime  int64
	TotalPlayTime    int64
	Position         Vector3
	Rotation         float64
}

type LoggedOutPlayer struct {
	AccountId          int
	DisplayName        string
	Color              string
	RoomId             int
	Position           Vector3
	Rotation           float64
	LastDisconnectTime int64
	TotalPlayTime      int64
}

type Room struct {
	Id        int
	Name      string
	CreatorId int
	CreatedAt int64
	Password  string
}

type PlayerRoomPosition struct {
	AccountId   int
	RoomId      int
	Position    Vector3
	Rotation    float64
	LastUpdated int64
}

// RoomEntity is the single last-writer-wins state blob of a room.
type RoomEntity struct {
	RoomId      int
	AccountId   int
	Data        string
	LastUpdated int64
}

// PlacedEntity is a discrete object placed inside a room.
type PlacedEntity struct {
	Id        int
	RoomId    int
	AccountId int
	PrefabId  string
	Position  Vector3
	Rotation  Vector3
	Scale     Vector3
	CreatedAt int64
}

type RoomSessionHistory struct {
	Id         int
	AccountId  int
	PlayerName string
	RoomId     int
	EntryTime  int64
	ExitTime   int64
	Duration   int64
}

type ChatMessage struct {
	Id         int
	RoomId     int
	SenderId   int
	SenderName string
	Content    string
	Shout      bool
	SentAt     int64
}

type VoiceClip struct {
	SenderId   int
	SenderName string
	RoomId     int
	AudioData  []byte
	RecordedAt int64
}

type Image struct {
	BuildingId string
	RoomId     int
	SenderId   int
	SenderName string
	Width      int
	Height     int
	ImageData  []byte
	SentAt     int64
}

type ImageBroadcastLock struct {
	BuildingId string
	HolderId   int
	HolderName string
	AcquiredAt int64
}
