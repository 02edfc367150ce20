package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-worldstate/internal/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8 << 20
	opTimeout      = 10 * time.Second
)

// Client is one live websocket connection. Its credential identifies the
// connection to the engine for as long as it stays open.
type Client struct {
	conn        *websocket.Conn
	worldServer *WorldServer
	engine      *engine.Engine
	log         *log.Logger
	credential  string
	send        chan *ServerMessage
	stop        chan struct{}
	stopOnce    sync.Once
	closeOnce   sync.Once
}

func NewClient(credential string, conn *websocket.Conn, ws *WorldServer, l *log.Logger) *Client {
	return &Client{
		conn:        conn,
		worldServer: ws,
		engine:      ws.engine,
		log:         l,
		credential:  credential,
		send:        make(chan *ServerMessage, 256),
		stop:        make(chan struct{}),
	}
}

// Bind associates the connection with an account already authenticated by
// the transport.
func (c *Client) Bind(ctx context.Context, accountId int) error {
	if err := c.engine.BindSession(ctx, c.call(), accountId); err != nil {
		return err
	}
	c.worldServer.bind(c, accountId)
	return nil
}

func (c *Client) call() engine.Call {
	return engine.Call{Credential: c.credential, Timestamp: time.Now().UnixMicro()}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.sendMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.Timestamp = Now()

		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		c.queueMessage(c.dispatch(ctx, &msg))
		cancel()
	}
}

// dispatch runs the operation carried by msg and builds the response.
func (c *Client) dispatch(ctx context.Context, msg *ClientMessage) *ServerMessage {
	call := engine.Call{Credential: c.credential, Timestamp: msg.Timestamp.UnixMicro()}
	e := c.engine

	var (
		data any
		err  error
	)
	switch {
	case msg.Register != nil:
		var id int
		id, err = e.Register(ctx, call, engine.RegisterParams{
			LoginId:     msg.Register.LoginId,
			DisplayName: msg.Register.DisplayName,
			Password:    msg.Register.Password,
		})
		data = map[string]any{"account_id": id}
	case msg.Login != nil:
		var id int
		id, err = e.Login(ctx, call, engine.LoginParams{LoginId: msg.Login.LoginId, Password: msg.Login.Password})
		if err == nil {
			c.worldServer.bind(c, id)
		}
		data = map[string]any{"account_id": id}
	case msg.Logout != nil:
		err = e.Logout(ctx, call)
		if err == nil {
			c.worldServer.bind(c, 0)
		}
	case msg.EnterWorld != nil:
		data, err = e.EnterWorld(ctx, call)
	case msg.UpdateProfile != nil:
		err = e.UpdateProfile(ctx, call, engine.ProfileParams{
			DisplayName: msg.UpdateProfile.DisplayName,
			Color:       msg.UpdateProfile.Color,
		})
	case msg.UpdatePosition != nil:
		err = e.UpdatePosition(ctx, call, msg.UpdatePosition.Position, msg.UpdatePosition.Rotation)
	case msg.CreateRoom != nil:
		data, err = e.CreateRoom(ctx, call, msg.CreateRoom.Name, msg.CreateRoom.Password)
	case msg.JoinRoom != nil:
		data, err = e.JoinRoom(ctx, call, engine.JoinRoomParams{
			RoomId:   msg.JoinRoom.RoomId,
			Name:     msg.JoinRoom.Name,
			Password: msg.JoinRoom.Password,
		})
	case msg.LeaveRoom != nil:
		err = e.LeaveRoom(ctx, call)
	case msg.SaveEntity != nil:
		data, err = e.SaveEntity(ctx, call, msg.SaveEntity.RoomId, msg.SaveEntity.Data)
	case msg.PlaceEntity != nil:
		data, err = e.PlaceEntity(ctx, call, engine.PlaceEntityParams{
			RoomId:   msg.PlaceEntity.RoomId,
			PrefabId: msg.PlaceEntity.PrefabId,
			Position: msg.PlaceEntity.Position,
			Rotation: msg.PlaceEntity.Rotation,
			Scale:    msg.PlaceEntity.Scale,
		})
	case msg.RemoveEntity != nil:
		err = e.RemoveEntity(ctx, call, msg.RemoveEntity.EntityId)
	case msg.LockImage != nil:
		data, err = e.AcquireBroadcastLock(ctx, call, msg.LockImage.BuildingId)
	case msg.UnlockImage != nil:
		err = e.ReleaseBroadcastLock(ctx, call, msg.UnlockImage.BuildingId)
	case msg.Chat != nil:
		data, err = e.SendChat(ctx, call, msg.Chat.Content, msg.Chat.Shout)
	case msg.Voice != nil:
		data, err = e.SendVoice(ctx, call, msg.Voice.AudioData)
	case msg.Image != nil:
		data, err = e.SendImage(ctx, call, engine.ImageParams{
			BuildingId: msg.Image.BuildingId,
			ImageData:  msg.Image.ImageData,
			Width:      msg.Image.Width,
			Height:     msg.Image.Height,
		})
	case msg.Session != nil:
		var ok bool
		ok, err = e.IsAuthenticated(ctx, call)
		data = map[string]any{"authenticated": ok}
	case msg.Account != nil:
		var id int
		if id, err = e.RequireAuthenticated(ctx, call); err == nil {
			data, err = e.Account(ctx, id)
		}
	case msg.ListRooms != nil:
		data, err = e.ListRooms(ctx)
	case msg.RoomSessions != nil:
		data, err = e.RoomSessions(ctx, call, msg.RoomSessions.RoomId)
	case msg.OnlinePlayers != nil:
		data, err = e.OnlinePlayers(ctx)
	default:
		return ErrInvalidMessage(msg.Id)
	}

	if err != nil {
		if engine.KindOf(err) == engine.KindInternal {
			c.log.Printf("request %d failed: %v", msg.Id, err)
		}
		return ErrEngine(msg.Id, err)
	}
	return NoErrOK(msg.Id, data)
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanup runs once per connection: the engine reconciles the lost
// connection before the hub forgets it.
func (c *Client) cleanup() {
	c.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := c.engine.OnDisconnect(ctx, c.call()); err != nil {
			c.log.Printf("disconnect %s: %v", c.credential, err)
		}

		c.worldServer.deRegister(c)
		c.stopClient()
	})
}
