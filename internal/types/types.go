package types

import (
	"time"

	"github.com/npezzotti/roomchat/internal/database"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Response is the body of every JSON reply. Failures are reported here,
// never through the HTTP status.
type Response struct {
	Status      string       `json:"status"`
	Msg         string       `json:"msg"`
	Messages    []Message    `json:"messages,omitempty"`
	Connections []Connection `json:"connections,omitempty"`
}

type User struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type Connection struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	IsRoom   bool   `json:"isroom"`
}

type Message struct {
	Message    string    `json:"message"`
	SentBy     string    `json:"sentBy"`
	SentByName string    `json:"sentByName"`
	SentAt     time.Time `json:"sentAt"`
}

func NewConnections(entries []database.ConnectionEntry) []Connection {
	out := make([]Connection, len(entries))
	for i, e := range entries {
		out[i] = Connection{
			Id:       e.ConnectionId,
			Name:     e.ConnectionName,
			Username: e.TargetUsername,
			IsRoom:   e.IsRoom,
		}
	}
	return out
}

func NewMessages(messages []database.Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = Message{
			Message:    m.Text,
			SentBy:     m.SentBy,
			SentByName: m.SentByName,
			SentAt:     m.SentAt,
		}
	}
	return out
}
