package engine

import (
	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/types"
)

func vec(v database.Vector3) types.Vector3 {
	return types.Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

func dbVec(v types.Vector3) database.Vector3 {
	return database.Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

func accountView(a database.Account) types.Account {
	return types.Account{
		Id:          a.Id,
		LoginId:     a.LoginId,
		DisplayName: a.DisplayName,
		CreatedAt:   a.CreatedAt,
		LastLogin:   a.LastLogin,
	}
}

func playerView(p database.OnlinePlayer) types.Player {
	return types.Player{
		AccountId:        p.AccountId,
		DisplayName:      p.DisplayName,
		Color:            p.Color,
		RoomId:           p.RoomId,
		Position:         vec(p.Position),
		Rotation:         p.Rotation,
		LastRoomJoinTime: p.LastRoomJoinTime,
		LastConnectTime:  p.LastConnectTime,
		TotalPlayTime:    p.TotalPlayTime,
	}
}

func roomView(r database.Room) types.Room {
	return types.Room{
		Id:        r.Id,
		Name:      r.Name,
		CreatorId: r.CreatorId,
		CreatedAt: r.CreatedAt,
	}
}

func sessionView(h database.RoomSessionHistory) types.RoomSession {
	return types.RoomSession{
		Id:         h.Id,
		AccountId:  h.AccountId,
		PlayerName: h.PlayerName,
		RoomId:     h.RoomId,
		EntryTime:  h.EntryTime,
		ExitTime:   h.ExitTime,
		Duration:   h.Duration,
	}
}

func placedView(e database.PlacedEntity) types.PlacedEntity {
	return types.PlacedEntity{
		Id:        e.Id,
		RoomId:    e.RoomId,
		AccountId: e.AccountId,
		PrefabId:  e.PrefabId,
		Position:  vec(e.Position),
		Rotation:  vec(e.Rotation),
		Scale:     vec(e.Scale),
	}
}

func roomEntityView(e database.RoomEntity) types.RoomEntity {
	return types.RoomEntity{
		RoomId:      e.RoomId,
		AccountId:   e.AccountId,
		Data:        e.Data,
		LastUpdated: e.LastUpdated,
	}
}

func chatView(m database.ChatMessage) types.ChatMessage {
	return types.ChatMessage{
		Id:         m.Id,
		RoomId:     m.RoomId,
		SenderId:   m.SenderId,
		SenderName: m.SenderName,
		Content:    m.Content,
		Shout:      m.Shout,
		Timestamp:  m.SentAt,
	}
}

func voiceView(v database.VoiceClip) types.VoiceClip {
	return types.VoiceClip{
		SenderId:   v.SenderId,
		SenderName: v.SenderName,
		RoomId:     v.RoomId,
		AudioData:  v.AudioData,
		Timestamp:  v.RecordedAt,
	}
}

func imageView(img database.Image) types.Image {
	return types.Image{
		BuildingId: img.BuildingId,
		RoomId:     img.RoomId,
		SenderId:   img.SenderId,
		SenderName: img.SenderName,
		Width:      img.Width,
		Height:     img.Height,
		ImageData:  img.ImageData,
		Timestamp:  img.SentAt,
	}
}

func lockView(l database.ImageBroadcastLock) types.ImageLock {
	return types.ImageLock{
		BuildingId: l.BuildingId,
		HolderId:   l.HolderId,
		HolderName: l.HolderName,
		Timestamp:  l.AcquiredAt,
	}
}
