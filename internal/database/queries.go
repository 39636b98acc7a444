package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (db *PgChatRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	res := db.conn.QueryRowContext(
		ctx,
		"INSERT INTO users (name, username, password_hash, salt, admin, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, name, username, admin, created_at",
		params.Name,
		params.Username,
		params.PasswordHash,
		params.Salt,
		params.Admin,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Name,
		&u.Username,
		&u.Admin,
		&u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return User{}, ErrDuplicate
	}

	return u, err
}

func (db *PgChatRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := db.conn.QueryRowContext(
		ctx,
		"SELECT id, name, username, password_hash, salt, admin, created_at FROM users "+
			"WHERE username = $1 LIMIT 1",
		username,
	)

	return scanUser(row)
}

func (db *PgChatRepository) GetUserById(ctx context.Context, id int) (User, error) {
	row := db.conn.QueryRowContext(
		ctx,
		"SELECT id, name, username, password_hash, salt, admin, created_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Name,
		&u.Username,
		&u.PasswordHash,
		&u.Salt,
		&u.Admin,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}

	return u, err
}

func (db *PgChatRepository) UpsertRoom(ctx context.Context, params CreateRoomParams) (Room, bool, error) {
	var room Room
	err := db.conn.QueryRowContext(
		ctx,
		"INSERT INTO rooms (room_id, room_name, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (room_id) DO NOTHING RETURNING room_id, room_name, created_at",
		params.RoomId,
		params.RoomName,
		time.Now().UTC(),
	).Scan(&room.RoomId, &room.RoomName, &room.CreatedAt)
	if err == nil {
		return room, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Room{}, false, err
	}

	// the row already existed, the first writer's name wins
	room, err = db.GetRoom(ctx, params.RoomId)
	return room, false, err
}

func (db *PgChatRepository) GetRoom(ctx context.Context, roomId string) (Room, error) {
	var room Room
	err := db.conn.QueryRowContext(
		ctx,
		"SELECT room_id, room_name, created_at FROM rooms WHERE room_id = $1 LIMIT 1",
		roomId,
	).Scan(&room.RoomId, &room.RoomName, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, ErrNotFound
	}

	return room, err
}

func (db *PgChatRepository) AddConnection(ctx context.Context, entry ConnectionEntry) error {
	target := sql.NullString{String: entry.TargetUsername, Valid: entry.TargetUsername != ""}

	res, err := db.conn.ExecContext(
		ctx,
		"INSERT INTO user_connections (username, connection_id, connection_name, connection_username, is_room, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING",
		entry.Username,
		entry.ConnectionId,
		entry.ConnectionName,
		target,
		entry.IsRoom,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}

	return nil
}

func (db *PgChatRepository) ListConnections(ctx context.Context, username string) ([]ConnectionEntry, error) {
	rows, err := db.conn.QueryContext(
		ctx,
		"SELECT username, connection_id, connection_name, connection_username, is_room, created_at "+
			"FROM user_connections WHERE username = $1 ORDER BY id",
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]ConnectionEntry, 0)
	for rows.Next() {
		var (
			entry  ConnectionEntry
			target sql.NullString
		)
		if err := rows.Scan(
			&entry.Username,
			&entry.ConnectionId,
			&entry.ConnectionName,
			&target,
			&entry.IsRoom,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		entry.TargetUsername = target.String
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entries, nil
}

func (db *PgChatRepository) AppendMessage(ctx context.Context, roomId, roomName string, msg Message) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO room_messages (room_id, room_name, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (room_id) DO NOTHING",
		roomId,
		roomName,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO messages (room_id, message, sent_by, sent_by_name, sent_at) "+
			"VALUES ($1, $2, $3, $4, $5)",
		roomId,
		msg.Text,
		msg.SentBy,
		msg.SentByName,
		msg.SentAt,
	)
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

func (db *PgChatRepository) GetRoomMessages(ctx context.Context, roomId string) (RoomMessages, error) {
	var rm RoomMessages
	err := db.conn.QueryRowContext(
		ctx,
		"SELECT room_id, room_name, created_at FROM room_messages WHERE room_id = $1 LIMIT 1",
		roomId,
	).Scan(&rm.RoomId, &rm.RoomName, &rm.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RoomMessages{}, ErrNotFound
	}
	if err != nil {
		return RoomMessages{}, err
	}

	rows, err := db.conn.QueryContext(
		ctx,
		"SELECT message, sent_by, sent_by_name, sent_at FROM messages "+
			"WHERE room_id = $1 ORDER BY sent_at, id",
		roomId,
	)
	if err != nil {
		return RoomMessages{}, err
	}
	defer rows.Close()

	rm.Messages = make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Text, &msg.SentBy, &msg.SentByName, &msg.SentAt); err != nil {
			return RoomMessages{}, fmt.Errorf("scan row: %w", err)
		}

		rm.Messages = append(rm.Messages, msg)
	}

	if err := rows.Err(); err != nil {
		return RoomMessages{}, fmt.Errorf("rows error: %w", err)
	}

	return rm, nil
}
