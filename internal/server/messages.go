package server

import (
	"net/http"
	"time"

	"github.com/npezzotti/go-worldstate/internal/engine"
	"github.com/npezzotti/go-worldstate/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage carries exactly one operation.
type ClientMessage struct {
	BaseMessage
	Register       *Register       `json:"register,omitempty"`
	Login          *Login          `json:"login,omitempty"`
	Logout         *Empty          `json:"logout,omitempty"`
	EnterWorld     *Empty          `json:"enter_world,omitempty"`
	UpdateProfile  *UpdateProfile  `json:"update_profile,omitempty"`
	UpdatePosition *UpdatePosition `json:"update_position,omitempty"`
	CreateRoom     *CreateRoom     `json:"create_room,omitempty"`
	JoinRoom       *JoinRoom       `json:"join_room,omitempty"`
	LeaveRoom      *Empty          `json:"leave_room,omitempty"`
	SaveEntity     *SaveEntity     `json:"save_entity,omitempty"`
	PlaceEntity    *PlaceEntity    `json:"place_entity,omitempty"`
	RemoveEntity   *RemoveEntity   `json:"remove_entity,omitempty"`
	LockImage      *ImageRef       `json:"lock_image,omitempty"`
	UnlockImage    *ImageRef       `json:"unlock_image,omitempty"`
	Chat           *Chat           `json:"chat,omitempty"`
	Voice          *Voice          `json:"voice,omitempty"`
	Image          *Image          `json:"image,omitempty"`
	Session        *Empty          `json:"session,omitempty"`
	Account        *Empty          `json:"account,omitempty"`
	ListRooms      *Empty          `json:"list_rooms,omitempty"`
	RoomSessions   *RoomRef        `json:"room_sessions,omitempty"`
	OnlinePlayers  *Empty          `json:"online_players,omitempty"`
	client         *Client         `json:"-"`
}

type Empty struct{}

type Register struct {
	LoginId     string `json:"login_id"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type Login struct {
	LoginId  string `json:"login_id"`
	Password string `json:"password"`
}

type UpdateProfile struct {
	DisplayName *string `json:"display_name,omitempty"`
	Color       *string `json:"color,omitempty"`
}

type UpdatePosition struct {
	Position types.Vector3 `json:"position"`
	Rotation float64       `json:"rotation"`
}

type CreateRoom struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type JoinRoom struct {
	RoomId   int    `json:"room_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

type SaveEntity struct {
	RoomId int    `json:"room_id"`
	Data   string `json:"data"`
}

type PlaceEntity struct {
	RoomId   int           `json:"room_id"`
	PrefabId string        `json:"prefab_id"`
	Position types.Vector3 `json:"position"`
	Rotation types.Vector3 `json:"rotation"`
	Scale    types.Vector3 `json:"scale"`
}

type RemoveEntity struct {
	EntityId int `json:"entity_id"`
}

type ImageRef struct {
	BuildingId string `json:"building_id"`
}

type RoomRef struct {
	RoomId int `json:"room_id"`
}

type Chat struct {
	Content string `json:"content"`
	Shout   bool   `json:"shout,omitempty"`
}

type Voice struct {
	AudioData []byte `json:"audio_data"`
}

type Image struct {
	BuildingId string `json:"building_id"`
	ImageData  []byte `json:"image_data"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

type ServerMessage struct {
	BaseMessage
	Response *Response     `json:"response,omitempty"`
	Event    *engine.Event `json:"event,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

// ErrEngine answers a request that the engine rejected.
func ErrEngine(id int, err error) *ServerMessage {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		return ErrInternalError(id)
	}

	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        err.Error(),
		},
	}
}

func EventMessage(ev engine.Event) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Event: &ev,
	}
}

// StatusCode maps an engine error to the HTTP status reported to clients.
func StatusCode(err error) int {
	switch engine.KindOf(err) {
	case engine.KindValidation:
		return http.StatusBadRequest
	case engine.KindAuth:
		return http.StatusUnauthorized
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindConflict:
		return http.StatusConflict
	case engine.KindState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
