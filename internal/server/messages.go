package server

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	EventSetUser      = "setUser"
	EventJoin         = "join"
	EventJoined       = "joined"
	EventMessage      = "message"
	EventOnlineStatus = "online-status"
	EventError        = "error"
)

var (
	ErrIdentityMismatch   = errors.New("username does not match session")
	ErrNotIdentified      = errors.New("socket not identified")
	ErrNotJoined          = errors.New("socket has not joined this chat")
	ErrInvalidMessage     = errors.New("invalid message format")
	ErrUnknownEvent       = errors.New("unknown event")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInternal           = errors.New("internal server error")
)

// ClientMessage is a frame received from a socket.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerMessage is a frame sent to a socket. Group and SkipClient only
// steer routing and are never serialized.
type ServerMessage struct {
	Event      string  `json:"event"`
	Data       any     `json:"data"`
	Group      string  `json:"-"`
	SkipClient *Client `json:"-"`
}

type ChatMessage struct {
	Message   string    `json:"message"`
	User      string    `json:"user"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	IsRoom    bool      `json:"isroom"`
	TimeStamp time.Time `json:"timeStamp"`
}

type OnlineStatus struct {
	Username string `json:"username"`
	IsActive bool   `json:"isActive"`
}

type Joined struct {
	Rooms []string `json:"rooms"`
}

type ErrorData struct {
	Msg string `json:"msg"`
}

func NewChatMessage(msg ChatMessage, sender *Client) *ServerMessage {
	return &ServerMessage{
		Event:      EventMessage,
		Data:       msg,
		Group:      msg.Room,
		SkipClient: sender,
	}
}

func NewOnlineStatus(username string, active bool, skip *Client) *ServerMessage {
	return &ServerMessage{
		Event: EventOnlineStatus,
		Data: OnlineStatus{
			Username: username,
			IsActive: active,
		},
		SkipClient: skip,
	}
}

func NewJoined(rooms ...string) *ServerMessage {
	if rooms == nil {
		rooms = make([]string, 0)
	}

	return &ServerMessage{
		Event: EventJoined,
		Data:  Joined{Rooms: rooms},
	}
}

func NewError(err error) *ServerMessage {
	return &ServerMessage{
		Event: EventError,
		Data:  ErrorData{Msg: err.Error()},
	}
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
