package types

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Account struct {
	Id          int    `json:"id"`
	LoginId     string `json:"login_id"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
	LastLogin   int64  `json:"last_login,omitempty"`
}

type Player struct {
	AccountId        int     `json:"account_id"`
	DisplayName      string  `json:"display_name"`
	Color            string  `json:"color"`
	RoomId           int     `json:"room_id"`
	Position         Vector3 `json:"position"`
	Rotation         float64 `json:"rotation"`
	LastRoomJoinTime int64   `json:"last_room_join_time,omitempty"`
	LastConnectTime  int64   `json:"last_connect_time"`
	TotalPlayTime    int64   `json:"total_play_time"`
}

type PlayerCount struct {
	Count int `json:"count"`
}

type Room struct {
	Id        int    `json:"id"`
	Name      string `json:"name"`
	CreatorId int    `json:"creator_id"`
	CreatedAt int64  `json:"created_at"`
}

type RoomEntity struct {
	RoomId      int    `json:"room_id"`
	AccountId   int    `json:"account_id"`
	Data        string `json:"data"`
	LastUpdated int64  `json:"last_updated"`
}

type PlacedEntity struct {
	Id        int     `json:"id"`
	RoomId    int     `json:"room_id"`
	AccountId int     `json:"account_id"`
	PrefabId  string  `json:"prefab_id"`
	Position  Vector3 `json:"position"`
	Rotation  Vector3 `json:"rotation"`
	Scale     Vector3 `json:"scale"`
}

type RoomSession struct {
	Id         int    `json:"id"`
	AccountId  int    `json:"account_id"`
	PlayerName string `json:"player_name"`
	RoomId     int    `json:"room_id"`
	EntryTime  int64  `json:"entry_time"`
	ExitTime   int64  `json:"exit_time"`
	Duration   int64  `json:"duration"`
}

type ChatMessage struct {
	Id         int    `json:"id"`
	RoomId     int    `json:"room_id"`
	SenderId   int    `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	Shout      bool   `json:"shout,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

type VoiceClip struct {
	SenderId   int    `json:"sender_id"`
	SenderName string `json:"sender_name"`
	RoomId     int    `json:"room_id"`
	AudioData  []byte `json:"audio_data"`
	Timestamp  int64  `json:"timestamp"`
}

type Image struct {
	BuildingId string `json:"building_id"`
	RoomId     int    `json:"room_id"`
	SenderId   int    `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	ImageData  []byte `json:"image_data"`
	Timestamp  int64  `json:"timestamp"`
}

type ImageLock struct {
	BuildingId string `json:"building_id"`
	HolderId   int    `json:"holder_id"`
	HolderName string `json:"holder_name"`
	Timestamp  int64  `json:"timestamp"`
}

// Rename announces that denormalized sender names for an account changed.
type Rename struct {
	AccountId   int    `json:"account_id"`
	DisplayName string `json:"display_name"`
	Since       int64  `json:"since"`
}
