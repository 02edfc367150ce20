package engine

type EventKind string

const (
	EventRoomCreated    EventKind = "room_created"
	EventPlayerOnline   EventKind = "player_online"
	EventPlayerUpdated  EventKind = "player_updated"
	EventPlayerOffline  EventKind = "player_offline"
	EventPlayerCount    EventKind = "player_count"
	EventChatMessage    EventKind = "chat_message"
	EventVoiceClip      EventKind = "voice_clip"
	EventImage          EventKind = "image"
	EventLockChanged    EventKind = "lock_changed"
	EventLockReleased   EventKind = "lock_released"
	EventRoomEntity     EventKind = "room_entity"
	EventEntityPlaced   EventKind = "entity_placed"
	EventEntityRemoved  EventKind = "entity_removed"
	EventRoomSession    EventKind = "room_session"
	EventSendersRenamed EventKind = "senders_renamed"
)

// Event describes a committed change to a public relation.
type Event struct {
	Kind   EventKind `json:"kind"`
	RoomId int       `json:"room_id,omitempty"`
	// Audience limits delivery to the connections of one account. Zero
	// means every connection.
	Audience int `json:"-"`
	Payload  any `json:"payload,omitempty"`
}

// Publisher receives the events of a unit after it commits.
type Publisher interface {
	Publish(events ...Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(...Event) {}
