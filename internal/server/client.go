package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/roomchat/internal/chat"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8192
	storageTimeout = 5 * time.Second
)

type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       chat.Identity
	send       chan *ServerMessage
	stop       chan struct{}
	stopOnce   sync.Once

	// owned by the Read goroutine
	identified bool
	// owned by the ChatServer Run loop
	groups map[string]struct{}
}

func NewClient(user chat.Identity, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		id:         uuid.NewString(),
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		send:       make(chan *ServerMessage, 256),
		stop:       make(chan struct{}),
		groups:     make(map[string]struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
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
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
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
			c.queueMessage(NewError(ErrInvalidMessage))
			continue
		}

		if err := c.handleMessage(&msg); err != nil {
			c.queueMessage(NewError(err))
		}
	}
}

func (c *Client) handleMessage(msg *ClientMessage) error {
	switch msg.Event {
	case EventSetUser:
		return c.setUser(msg.Data)
	case EventJoin:
		return c.join(msg.Data)
	case EventMessage:
		return c.publish(msg.Data)
	case EventOnlineStatus:
		return c.onlineStatus(msg.Data)
	default:
		return ErrUnknownEvent
	}
}

// setUser identifies the socket and joins it to every chat in the user's
// connection list.
func (c *Client) setUser(data json.RawMessage) error {
	var username string
	if err := json.Unmarshal(data, &username); err != nil {
		return ErrInvalidMessage
	}
	if username != c.user.Username {
		return ErrIdentityMismatch
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	entries, err := c.chatServer.svc.ListConnections(ctx, username)
	if err != nil {
		c.log.Printf("list connections for %q: %v", username, err)
		return ErrInternal
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ConnectionId
	}

	c.identified = true
	c.submit(&request{join: &joinReq{identify: true, groups: ids}})
	return nil
}

func (c *Client) join(data json.RawMessage) error {
	if !c.identified {
		return ErrNotIdentified
	}

	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return ErrInvalidMessage
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidMessage
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	err := c.chatServer.svc.Authorize(ctx, c.user.Username, id)
	if errors.Is(err, chat.ErrNotMember) {
		return err
	}
	if err != nil {
		c.log.Printf("authorize %q for %q: %v", c.user.Username, id, err)
		return ErrInternal
	}

	c.submit(&request{join: &joinReq{groups: []string{id}}})
	return nil
}

func (c *Client) publish(data json.RawMessage) error {
	if !c.identified {
		return ErrNotIdentified
	}

	var in struct {
		Message string `json:"message"`
		Room    string `json:"room"`
		IsRoom  bool   `json:"isroom"`
	}
	if err := json.Unmarshal(data, &in); err != nil || in.Room == "" {
		return ErrInvalidMessage
	}
	if strings.TrimSpace(in.Message) == "" {
		return chat.ErrEmptyMessage
	}

	c.submit(&request{publish: NewChatMessage(ChatMessage{
		Message:   in.Message,
		User:      c.user.Name,
		Username:  c.user.Username,
		Room:      in.Room,
		IsRoom:    in.IsRoom,
		TimeStamp: Now(),
	}, c)})
	return nil
}

func (c *Client) onlineStatus(data json.RawMessage) error {
	if !c.identified {
		return ErrNotIdentified
	}

	var status OnlineStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return ErrInvalidMessage
	}

	c.submit(&request{broadcast: NewOnlineStatus(c.user.Username, status.IsActive, c)})
	return nil
}

func (c *Client) submit(req *request) {
	req.client = c

	select {
	case c.chatServer.requestChan <- req:
	default:
		c.log.Printf("request channel full, dropping request from %s", c.id)
		c.queueMessage(NewError(ErrServiceUnavailable))
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("send channel full for %s, dropping %q", c.id, msg.Event)
		return false
	}

	return true
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
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.chatServer.deRegisterClient(c)
	c.stopClient()
}
