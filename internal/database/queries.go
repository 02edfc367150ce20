package database

import (
	"database/sql"
)

const (
	accountColumns      = "id, login_id, display_name, password_digest, password_salt, created_at, last_login"
	onlinePlayerColumns = "account_id, credential, display_name, color, room_id, last_room_join_time, " +
		"last_connect_time, total_play_time, pos_x, pos_y, pos_z, rotation"
	loggedOutColumns = "account_id, display_name, color, room_id, pos_x, pos_y, pos_z, rotation, " +
		"last_disconnect_time, total_play_time"
	historyColumns = "id, account_id, player_name, room_id, entry_time, exit_time, duration"
	placedColumns  = "id, room_id, account_id, prefab_id, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, " +
		"scale_x, scale_y, scale_z, created_at"
)

type pgTx struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	err := row.Scan(
		&a.Id,
		&a.LoginId,
		&a.DisplayName,
		&a.PasswordDigest,
		&a.PasswordSalt,
		&a.CreatedAt,
		&a.LastLogin,
	)
	return a, err
}

func scanOnlinePlayer(row rowScanner) (OnlinePlayer, error) {
	var p OnlinePlayer
	err := row.Scan(
		&p.AccountId,
		&p.Credential,
		&p.DisplayName,
		&p.Color,
		&p.RoomId,
		&p.LastRoomJoinTime,
		&p.LastConnectTime,
		&p.TotalPlayTime,
		&p.Position.X,
		&p.Position.Y,
		&p.Position.Z,
		&p.Rotation,
	)
	return p, err
}

func scanHistory(row rowScanner) (RoomSessionHistory, error) {
	var h RoomSessionHistory
	err := row.Scan(
		&h.Id,
		&h.AccountId,
		&h.PlayerName,
		&h.RoomId,
		&h.EntryTime,
		&h.ExitTime,
		&h.Duration,
	)
	return h, err
}

func scanPlaced(row rowScanner) (PlacedEntity, error) {
	var e PlacedEntity
	err := row.Scan(
		&e.Id,
		&e.RoomId,
		&e.AccountId,
		&e.PrefabId,
		&e.Position.X, &e.Position.Y, &e.Position.Z,
		&e.Rotation.X, &e.Rotation.Y, &e.Rotation.Z,
		&e.Scale.X, &e.Scale.Y, &e.Scale.Z,
		&e.CreatedAt,
	)
	return e, err
}

func (t *pgTx) affected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (t *pgTx) InsertAccount(a Account) (Account, error) {
	row := t.tx.QueryRow(
		"INSERT INTO accounts (login_id, display_name, password_digest, password_salt, created_at, last_login) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING "+accountColumns,
		a.LoginId,
		a.DisplayName,
		a.PasswordDigest,
		a.PasswordSalt,
		a.CreatedAt,
		a.LastLogin,
	)

	created, err := scanAccount(row)
	return created, translateErr(err)
}

func (t *pgTx) GetAccountById(id int) (Account, error) {
	return scanAccount(t.tx.QueryRow(
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1 LIMIT 1",
		id,
	))
}

func (t *pgTx) GetAccountByLogin(loginId string) (Account, error) {
	return scanAccount(t.tx.QueryRow(
		"SELECT "+accountColumns+" FROM accounts WHERE login_id = $1 LIMIT 1",
		loginId,
	))
}

func (t *pgTx) UpdateAccount(a Account) error {
	n, err := t.affected(t.tx.Exec(
		"UPDATE accounts SET login_id = $2, display_name = $3, password_digest = $4, "+
			"password_salt = $5, last_login = $6 WHERE id = $1",
		a.Id,
		a.LoginId,
		a.DisplayName,
		a.PasswordDigest,
		a.PasswordSalt,
		a.LastLogin,
	))
	if err != nil {
		return translateErr(err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *pgTx) GetSession(credential string) (Session, error) {
	var s Session
	err := t.tx.QueryRow(
		"SELECT credential, account_id, created_at, last_activity FROM sessions WHERE credential = $1",
		credential,
	).Scan(&s.Credential, &s.AccountId, &s.CreatedAt, &s.LastActivity)
	return s, err
}

func (t *pgTx) UpsertSession(s Session) error {
	_, err := t.tx.Exec(
		"INSERT INTO sessions (credential, account_id, created_at, last_activity) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (credential) DO UPDATE SET account_id = EXCLUDED.account_id, last_activity = EXCLUDED.last_activity",
		s.Credential,
		s.AccountId,
		s.CreatedAt,
		s.LastActivity,
	)
	return err
}

func (t *pgTx) DeleteSession(credential string) error {
	_, err := t.tx.Exec("DELETE FROM sessions WHERE credential = $1", credential)
	return err
}

func (t *pgTx) DeleteAllSessions() (int, error) {
	res, err := t.tx.Exec("DELETE FROM sessions")
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (t *pgTx) GetOnlinePlayer(accountId int) (OnlinePlayer, error) {
	return scanOnlinePlayer(t.tx.QueryRow(
		"SELECT "+onlinePlayerColumns+" FROM online_players WHERE account_id = $1",
		accountId,
	))
}

func (t *pgTx) ListOnlinePlayers() ([]OnlinePlayer, error) {
	rows, err := t.tx.Query("SELECT " + onlinePlayerColumns + " FROM online_players ORDER BY account_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]OnlinePlayer, 0)
	for rows.Next() {
		p, err := scanOnlinePlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (t *pgTx) InsertOnlinePlayer(p OnlinePlayer) error {
	_, err := t.tx.Exec(
		"INSERT INTO online_players ("+onlinePlayerColumns+") "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		p.AccountId,
		p.Credential,
		p.DisplayName,
		p.Color,
		p.RoomId,
		p.LastRoomJoinTime,
		p.LastConnectTime,
		p.TotalPlayTime,
		p.Position.X,
		p.Position.Y,
		p.Position.Z,
		p.Rotation,
	)
	return translateErr(err)
}

func (t *pgTx) UpdateOnlinePlayer(p OnlinePlayer) error {
	n, err := t.affected(t.tx.Exec(
		"UPDATE online_players SET credential = $2, display_name = $3, color = $4, room_id = $5, "+
			"last_room_join_time = $6, last_connect_time = $7, total_play_time = $8, "+
			"pos_x = $9, pos_y = $10, pos_z = $11, rotation = $12 WHERE account_id = $1",
		p.AccountId,
		p.Credential,
		p.DisplayName,
		p.Color,
		p.RoomId,
		p.LastRoomJoinTime,
		p.LastConnectTime,
		p.TotalPlayTime,
		p.Position.X,
		p.Position.Y,
		p.Position.Z,
		p.Rotation,
	))
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *pgTx) DeleteOnlinePlayer(accountId int) error {
	_, err := t.tx.Exec("DELETE FROM online_players WHERE account_id = $1", accountId)
	return err
}

func (t *pgTx) GetLoggedOutPlayer(accountId int) (LoggedOutPlayer, error) {
	var p LoggedOutPlayer
	err := t.tx.QueryRow(
		"SELECT "+loggedOutColumns+" FROM logged_out_players WHERE account_id = $1",
		accountId,
	).Scan(
		&p.AccountId,
		&p.DisplayName,
		&p.Color,
		&p.RoomId,
		&p.Position.X,
		&p.Position.Y,
		&p.Position.Z,
		&p.Rotation,
		&p.LastDisconnectTime,
		&p.TotalPlayTime,
	)
	return p, err
}

func (t *pgTx) UpsertLoggedOutPlayer(p LoggedOutPlayer) error {
	_, err := t.tx.Exec(
		"INSERT INTO logged_out_players ("+loggedOutColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) "+
			"ON CONFLICT (account_id) DO UPDATE SET display_name = EXCLUDED.display_name, color = EXCLUDED.color, "+
			"room_id = EXCLUDED.room_id, pos_x = EXCLUDED.pos_x, pos_y = EXCLUDED.pos_y, pos_z = EXCLUDED.pos_z, "+
			"rotation = EXCLUDED.rotation, last_disconnect_time = EXCLUDED.last_disconnect_time, "+
			"total_play_time = EXCLUDED.total_play_time",
		p.AccountId,
		p.DisplayName,
		p.Color,
		p.RoomId,
		p.Position.X,
		p.Position.Y,
		p.Position.Z,
		p.Rotation,
		p.LastDisconnectTime,
		p.TotalPlayTime,
	)
	return err
}

func (t *pgTx) DeleteLoggedOutPlayer(accountId int) error {
	_, err := t.tx.Exec("DELETE FROM logged_out_players WHERE account_id = $1", accountId)
	return err
}

func (t *pgTx) GetPlayerCount() (int, error) {
	var n int
	err := t.tx.QueryRow("SELECT count FROM player_count WHERE id = $1", PlayerCountId).Scan(&n)
	return n, err
}

func (t *pgTx) SetPlayerCount(n int) error {
	affected, err := t.affected(t.tx.Exec("UPDATE player_count SET count = $2 WHERE id = $1", PlayerCountId, n))
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *pgTx) SeedPlayerCount() error {
	_, err := t.tx.Exec(
		"INSERT INTO player_count (id, count) VALUES ($1, 0) ON CONFLICT (id) DO NOTHING",
		PlayerCountId,
	)
	return err
}

func (t *pgTx) InsertRoom(r Room) (Room, error) {
	var created Room
	err := t.tx.QueryRow(
		"INSERT INTO rooms (name, creator_id, created_at, password) VALUES ($1, $2, $3, $4) "+
			"RETURNING id, name, creator_id, created_at, password",
		r.Name,
		r.CreatorId,
		r.CreatedAt,
		r.Password,
	).Scan(&created.Id, &created.Name, &created.CreatorId, &created.CreatedAt, &created.Password)
	return created, translateErr(err)
}

func (t *pgTx) GetRoom(id int) (Room, error) {
	var r Room
	err := t.tx.QueryRow(
		"SELECT id, name, creator_id, created_at, password FROM rooms WHERE id = $1",
		id,
	).Scan(&r.Id, &r.Name, &r.CreatorId, &r.CreatedAt, &r.Password)
	return r, err
}

func (t *pgTx) ListRooms() ([]Room, error) {
	rows, err := t.tx.Query("SELECT id, name, creator_id, created_at, password FROM rooms ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]Room, 0)
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.Id, &r.Name, &r.CreatorId, &r.CreatedAt, &r.Password); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (t *pgTx) GetRoomPosition(accountId, roomId int) (PlayerRoomPosition, error) {
	var p PlayerRoomPosition
	err := t.tx.QueryRow(
		"SELECT account_id, room_id, pos_x, pos_y, pos_z, rotation, last_updated FROM player_room_positions "+
			"WHERE account_id = $1 AND room_id = $2",
		accountId,
		roomId,
	).Scan(&p.AccountId, &p.RoomId, &p.Position.X, &p.Position.Y, &p.Position.Z, &p.Rotation, &p.LastUpdated)
	return p, err
}

func (t *pgTx) UpsertRoomPosition(p PlayerRoomPosition) error {
	_, err := t.tx.Exec(
		"INSERT INTO player_room_positions (account_id, room_id, pos_x, pos_y, pos_z, rotation, last_updated) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (account_id, room_id) DO UPDATE SET "+
			"pos_x = EXCLUDED.pos_x, pos_y = EXCLUDED.pos_y, pos_z = EXCLUDED.pos_z, "+
			"rotation = EXCLUDED.rotation, last_updated = EXCLUDED.last_updated",
		p.AccountId,
		p.RoomId,
		p.Position.X,
		p.Position.Y,
		p.Position.Z,
		p.Rotation,
		p.LastUpdated,
	)
	return err
}

func (t *pgTx) GetRoomEntity(roomId int) (RoomEntity, error) {
	var e RoomEntity
	err := t.tx.QueryRow(
		"SELECT room_id, account_id, data, last_updated FROM room_entities WHERE room_id = $1",
		roomId,
	).Scan(&e.RoomId, &e.AccountId, &e.Data, &e.LastUpdated)
	return e, err
}

func (t *pgTx) UpsertRoomEntity(e RoomEntity) error {
	_, err := t.tx.Exec(
		"INSERT INTO room_entities (room_id, account_id, data, last_updated) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (room_id) DO UPDATE SET account_id = EXCLUDED.account_id, data = EXCLUDED.data, "+
			"last_updated = EXCLUDED.last_updated",
		e.RoomId,
		e.AccountId,
		e.Data,
		e.LastUpdated,
	)
	return err
}

func (t *pgTx) InsertPlacedEntity(e PlacedEntity) (PlacedEntity, error) {
	return scanPlaced(t.tx.QueryRow(
		"INSERT INTO placed_entities (room_id, account_id, prefab_id, pos_x, pos_y, pos_z, "+
			"rot_x, rot_y, rot_z, scale_x, scale_y, scale_z, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING "+placedColumns,
		e.RoomId,
		e.AccountId,
		e.PrefabId,
		e.Position.X, e.Position.Y, e.Position.Z,
		e.Rotation.X, e.Rotation.Y, e.Rotation.Z,
		e.Scale.X, e.Scale.Y, e.Scale.Z,
		e.CreatedAt,
	))
}

func (t *pgTx) GetPlacedEntity(id int) (PlacedEntity, error) {
	return scanPlaced(t.tx.QueryRow("SELECT "+placedColumns+" FROM placed_entities WHERE id = $1", id))
}

func (t *pgTx) DeletePlacedEntity(id int) error {
	_, err := t.tx.Exec("DELETE FROM placed_entities WHERE id = $1", id)
	return err
}

func (t *pgTx) InsertSessionHistory(h RoomSessionHistory) (RoomSessionHistory, error) {
	return scanHistory(t.tx.QueryRow(
		"INSERT INTO room_session_history (account_id, player_name, room_id, entry_time, exit_time, duration) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING "+historyColumns,
		h.AccountId,
		h.PlayerName,
		h.RoomId,
		h.EntryTime,
		h.ExitTime,
		h.Duration,
	))
}

func (t *pgTx) listHistory(query string, args ...any) ([]RoomSessionHistory, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoomSessionHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (t *pgTx) ListOpenSessionHistory(accountId, roomId int) ([]RoomSessionHistory, error) {
	return t.listHistory(
		"SELECT "+historyColumns+" FROM room_session_history "+
			"WHERE account_id = $1 AND room_id = $2 AND exit_time = 0 ORDER BY id",
		accountId,
		roomId,
	)
}

func (t *pgTx) ListSessionHistory(roomId int) ([]RoomSessionHistory, error) {
	return t.listHistory(
		"SELECT "+historyColumns+" FROM room_session_history WHERE room_id = $1 ORDER BY id",
		roomId,
	)
}

func (t *pgTx) UpdateSessionHistory(h RoomSessionHistory) error {
	n, err := t.affected(t.tx.Exec(
		"UPDATE room_session_history SET player_name = $2, exit_time = $3, duration = $4 WHERE id = $1",
		h.Id,
		h.PlayerName,
		h.ExitTime,
		h.Duration,
	))
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *pgTx) InsertChatMessage(m ChatMessage) (ChatMessage, error) {
	err := t.tx.QueryRow(
		"INSERT INTO chat_messages (room_id, sender_id, sender_name, content, shout, sent_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		m.RoomId,
		m.SenderId,
		m.SenderName,
		m.Content,
		m.Shout,
		m.SentAt,
	).Scan(&m.Id)
	return m, err
}

func (t *pgTx) ListChatMessages(roomId int) ([]ChatMessage, error) {
	rows, err := t.tx.Query(
		"SELECT id, room_id, sender_id, sender_name, content, shout, sent_at FROM chat_messages "+
			"WHERE room_id = $1 ORDER BY id",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.Id, &m.RoomId, &m.SenderId, &m.SenderName, &m.Content, &m.Shout, &m.SentAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (t *pgTx) RenameChatSender(senderId int, name string, since int64) (int, error) {
	return t.affected(t.tx.Exec(
		"UPDATE chat_messages SET sender_name = $2 WHERE sender_id = $1 AND sent_at >= $3",
		senderId,
		name,
		since,
	))
}

func (t *pgTx) GetVoiceClip(senderId int) (VoiceClip, error) {
	var v VoiceClip
	err := t.tx.QueryRow(
		"SELECT sender_id, sender_name, room_id, audio_data, recorded_at FROM voice_clips WHERE sender_id = $1",
		senderId,
	).Scan(&v.SenderId, &v.SenderName, &v.RoomId, &v.AudioData, &v.RecordedAt)
	return v, err
}

func (t *pgTx) UpsertVoiceClip(v VoiceClip) error {
	_, err := t.tx.Exec(
		"INSERT INTO voice_clips (sender_id, sender_name, room_id, audio_data, recorded_at) VALUES ($1, $2, $3, $4, $5) "+
			"ON CONFLICT (sender_id) DO UPDATE SET sender_name = EXCLUDED.sender_name, room_id = EXCLUDED.room_id, "+
			"audio_data = EXCLUDED.audio_data, recorded_at = EXCLUDED.recorded_at",
		v.SenderId,
		v.SenderName,
		v.RoomId,
		v.AudioData,
		v.RecordedAt,
	)
	return err
}

func (t *pgTx) RenameVoiceSender(senderId int, name string) (int, error) {
	return t.affected(t.tx.Exec("UPDATE voice_clips SET sender_name = $2 WHERE sender_id = $1", senderId, name))
}

func (t *pgTx) GetImage(buildingId string) (Image, error) {
	var img Image
	err := t.tx.QueryRow(
		"SELECT building_id, room_id, sender_id, sender_name, width, height, image_data, sent_at FROM images "+
			"WHERE building_id = $1",
		buildingId,
	).Scan(&img.BuildingId, &img.RoomId, &img.SenderId, &img.SenderName, &img.Width, &img.Height, &img.ImageData, &img.SentAt)
	return img, err
}

func (t *pgTx) UpsertImage(img Image) error {
	_, err := t.tx.Exec(
		"INSERT INTO images (building_id, room_id, sender_id, sender_name, width, height, image_data, sent_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (building_id) DO UPDATE SET "+
			"room_id = EXCLUDED.room_id, sender_id = EXCLUDED.sender_id, sender_name = EXCLUDED.sender_name, "+
			"width = EXCLUDED.width, height = EXCLUDED.height, image_data = EXCLUDED.image_data, sent_at = EXCLUDED.sent_at",
		img.BuildingId,
		img.RoomId,
		img.SenderId,
		img.SenderName,
		img.Width,
		img.Height,
		img.ImageData,
		img.SentAt,
	)
	return err
}

func (t *pgTx) RenameImageSender(senderId int, name string) (int, error) {
	return t.affected(t.tx.Exec("UPDATE images SET sender_name = $2 WHERE sender_id = $1", senderId, name))
}

func (t *pgTx) GetImageLock(buildingId string) (ImageBroadcastLock, error) {
	var l ImageBroadcastLock
	err := t.tx.QueryRow(
		"SELECT building_id, holder_id, holder_name, acquired_at FROM image_broadcast_locks WHERE building_id = $1",
		buildingId,
	).Scan(&l.BuildingId, &l.HolderId, &l.HolderName, &l.AcquiredAt)
	return l, err
}

func (t *pgTx) UpsertImageLock(l ImageBroadcastLock) error {
	_, err := t.tx.Exec(
		"INSERT INTO image_broadcast_locks (building_id, holder_id, holder_name, acquired_at) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (building_id) DO UPDATE SET holder_id = EXCLUDED.holder_id, "+
			"holder_name = EXCLUDED.holder_name, acquired_at = EXCLUDED.acquired_at",
		l.BuildingId,
		l.HolderId,
		l.HolderName,
		l.AcquiredAt,
	)
	return err
}

func (t *pgTx) DeleteImageLock(buildingId string) error {
	_, err := t.tx.Exec("DELETE FROM image_broadcast_locks WHERE building_id = $1", buildingId)
	return err
}

func (t *pgTx) RenameLockHolder(holderId int, name string) (int, error) {
	return t.affected(t.tx.Exec(
		"UPDATE image_broadcast_locks SET holder_name = $2 WHERE holder_id = $1",
		holderId,
		name,
	))
}
