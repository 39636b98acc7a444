package database

import "time"

type User struct {
	Id           int
	Name         string
	Username     string
	PasswordHash string
	Salt         string
	Admin        bool
	CreatedAt    time.Time
}

type Room struct {
	RoomId    string
	RoomName  string
	CreatedAt time.Time
}

// ConnectionEntry is one row of a user's connection list. TargetUsername
// is empty for room entries.
type ConnectionEntry struct {
	Username       string
	ConnectionId   string
	ConnectionName string
	TargetUsername string
	IsRoom         bool
	CreatedAt      time.Time
}

type Message struct {
	Text       string    `bson:"message"`
	SentBy     string    `bson:"sentBy"`
	SentByName string    `bson:"sentByName"`
	SentAt     time.Time `bson:"sentAt"`
}

// RoomMessages is the ledger aggregate of a single room id.
type RoomMessages struct {
	RoomId    string    `bson:"roomid"`
	RoomName  string    `bson:"roomname"`
	CreatedAt time.Time `bson:"createdAt"`
	Messages  []Message `bson:"messages"`
}

type CreateUserParams struct {
	Name         string
	Username     string
	PasswordHash string
	Salt         string
	Admin        bool
}

type CreateRoomParams struct {
	RoomId   string
	RoomName string
}
