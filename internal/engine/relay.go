package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/stats"
	"github.com/npezzotti/go-worldstate/internal/types"
)

type ImageParams struct {
	BuildingId string
	ImageData  []byte
	Width      int
	Height     int
}

// SendChat appends a message to the caller's room. The room check comes
// before the text checks.
func (e *Engine) SendChat(ctx context.Context, c Call, text string, shout bool) (types.ChatMessage, error) {
	var msg database.ChatMessage
	err := e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		p, err := u.occupiedRoom(accountId, "player must join a room first")
		if err != nil {
			return err
		}

		text = strings.TrimSpace(text)
		if text == "" {
			return ValidationError("message cannot be empty")
		}
		if utf8.RuneCountInString(text) > maxChatLen {
			return ValidationError(fmt.Sprintf("message must not exceed %d characters", maxChatLen))
		}

		msg, err = u.tx.InsertChatMessage(database.ChatMessage{
			RoomId:     p.RoomId,
			SenderId:   accountId,
			SenderName: p.DisplayName,
			Content:    text,
			Shout:      shout,
			SentAt:     u.now,
		})
		if err != nil {
			return err
		}

		u.emit(Event{Kind: EventChatMessage, RoomId: msg.RoomId, Payload: chatView(msg)})
		u.onCommit(func() { e.stats.Incr(stats.NumChatMessages) })
		return nil
	})
	if err != nil {
		return types.ChatMessage{}, err
	}
	return chatView(msg), nil
}

// SendVoice replaces the caller's voice clip. An account has at most one
// clip, tagged with the room it was last sent to.
func (e *Engine) SendVoice(ctx context.Context, c Call, audio []byte) (types.VoiceClip, error) {
	var clip database.VoiceClip
	err := e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		p, err := u.occupiedRoom(accountId, "player must join a room first")
		if err != nil {
			return err
		}
		if len(audio) == 0 || len(audio) > maxVoiceBytes {
			return ValidationError(fmt.Sprintf("voice clip must be between 1 and %d bytes", maxVoiceBytes))
		}

		clip = database.VoiceClip{
			SenderId:   accountId,
			SenderName: p.DisplayName,
			RoomId:     p.RoomId,
			AudioData:  audio,
			RecordedAt: u.now,
		}
		if err := u.tx.UpsertVoiceClip(clip); err != nil {
			return err
		}

		u.emit(Event{Kind: EventVoiceClip, RoomId: clip.RoomId, Payload: voiceView(clip)})
		return nil
	})
	if err != nil {
		return types.VoiceClip{}, err
	}
	return voiceView(clip), nil
}

// SendImage stores the image shown on a building. A building's image can
// only be replaced from the room it belongs to.
func (e *Engine) SendImage(ctx context.Context, c Call, p ImageParams) (types.Image, error) {
	var img database.Image
	err := e.runAuthed(ctx, c, func(u *unit, accountId int) error {
		player, err := u.occupiedRoom(accountId, "player must join a room first")
		if err != nil {
			return err
		}
		if err := validateBuildingId(p.BuildingId); err != nil {
			return err
		}
		if err := validateImage(p.ImageData, p.Width, p.Height); err != nil {
			return err
		}

		existing, err := u.tx.GetImage(p.BuildingId)
		switch {
		case err == nil:
			if existing.RoomId != player.RoomId {
				return ConflictError("building belongs to another room")
			}
		case !isNoRows(err):
			return err
		}

		img = database.Image{
			BuildingId: p.BuildingId,
			RoomId:     player.RoomId,
			SenderId:   accountId,
			SenderName: player.DisplayName,
			Width:      p.Width,
			Height:     p.Height,
			ImageData:  p.ImageData,
			SentAt:     u.now,
		}
		if err := u.tx.UpsertImage(img); err != nil {
			return err
		}

		u.emit(Event{Kind: EventImage, RoomId: img.RoomId, Payload: imageView(img)})
		return nil
	})
	if err != nil {
		return types.Image{}, err
	}
	return imageView(img), nil
}

// renameCascade rewrites the sender name on the account's chat messages
// inside the rename window, its voice clip, its images and the locks it
// holds.
func (e *Engine) renameCascade(u *unit, accountId int, name string) error {
	since := u.now - e.renameWindow.Microseconds()

	chats, err := u.tx.RenameChatSender(accountId, name, since)
	if err != nil {
		return err
	}
	voices, err := u.tx.RenameVoiceSender(accountId, name)
	if err != nil {
		return err
	}
	images, err := u.tx.RenameImageSender(accountId, name)
	if err != nil {
		return err
	}
	locks, err := u.tx.RenameLockHolder(accountId, name)
	if err != nil {
		return err
	}

	if chats+voices+images+locks > 0 {
		u.emit(Event{Kind: EventSendersRenamed, Payload: types.Rename{AccountId: accountId, DisplayName: name, Since: since}})
	}
	return nil
}
