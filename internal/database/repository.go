package database

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserStore interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserById(ctx context.Context, id int) (User, error)
}

type RoomStore interface {
	// UpsertRoom inserts the room unless a room with the same id exists and
	// returns the stored row. created reports whether this call inserted it.
	UpsertRoom(ctx context.Context, params CreateRoomParams) (room Room, created bool, err error)
	GetRoom(ctx context.Context, roomId string) (Room, error)
}

type ConnectionStore interface {
	// AddConnection appends the entry to the owner's list. It returns
	// ErrDuplicate when the list already holds the connection id, or the
	// target username for private entries.
	AddConnection(ctx context.Context, entry ConnectionEntry) error
	ListConnections(ctx context.Context, username string) ([]ConnectionEntry, error)
}

type Ledger interface {
	AppendMessage(ctx context.Context, roomId, roomName string, msg Message) error
	// GetRoomMessages returns ErrNotFound when nothing was ever appended
	// for roomId.
	GetRoomMessages(ctx context.Context, roomId string) (RoomMessages, error)
}

type ChatRepository interface {
	UserStore
	RoomStore
	ConnectionStore
	Ledger
	Ping() error
}
