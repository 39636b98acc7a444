package server

import (
	"context"
	"log"

	"github.com/npezzotti/roomchat/internal/database"
	"github.com/npezzotti/roomchat/internal/stats"
)

// ChatService is the part of the chat core the live channel depends on.
type ChatService interface {
	ListConnections(ctx context.Context, username string) ([]database.ConnectionEntry, error)
	Authorize(ctx context.Context, username, targetId string) error
}

// request is sent by a client's read goroutine to the Run loop. Exactly
// one of join, publish or broadcast is set. All of them travel on the same
// channel so a client's requests are handled in the order it sent them.
type request struct {
	client    *Client
	join      *joinReq
	publish   *ServerMessage
	broadcast *ServerMessage
}

type joinReq struct {
	identify bool
	groups   []string
}

type stopReq struct {
	done chan struct{}
}

// ChatServer routes frames between sockets. Run owns clients, users and
// groups; nothing else touches them.
type ChatServer struct {
	log   *log.Logger
	svc   ChatService
	stats stats.StatsProvider

	clients map[*Client]struct{}
	// identified sockets per username
	users map[string]map[*Client]struct{}
	// connection id -> joined sockets
	groups map[string]map[*Client]struct{}

	registerChan   chan *Client
	deRegisterChan chan *Client
	requestChan    chan *request
	stop           chan stopReq
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, svc ChatService, su stats.StatsProvider) *ChatServer {
	su.RegisterMetric(stats.NumActiveClients)
	su.RegisterMetric(stats.NumActiveGroups)
	su.RegisterMetric(stats.NumMessagesRelayed)

	return &ChatServer{
		log:            logger,
		svc:            svc,
		stats:          su,
		clients:        make(map[*Client]struct{}),
		users:          make(map[string]map[*Client]struct{}),
		groups:         make(map[string]map[*Client]struct{}),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		requestChan:    make(chan *request, 256),
		stop:           make(chan stopReq),
		done:           make(chan struct{}),
	}
}

func (cs *ChatServer) Run() {
	defer close(cs.done)

	for {
		select {
		case c := <-cs.registerChan:
			cs.addClient(c)
		case c := <-cs.deRegisterChan:
			cs.removeClient(c)
		case req := <-cs.requestChan:
			cs.handleRequest(req)
		case req := <-cs.stop:
			cs.log.Printf("closing %d client(s)", len(cs.clients))
			for c := range cs.clients {
				c.stopClient()
			}
			close(req.done)
			return
		}
	}
}

// RegisterClient adds c to the server. It returns once the Run loop has
// recorded the client, so requests c sends afterwards are never dropped.
func (cs *ChatServer) RegisterClient(c *Client) {
	select {
	case cs.registerChan <- c:
	case <-cs.done:
		c.stopClient()
	}
}

func (cs *ChatServer) deRegisterClient(c *Client) {
	select {
	case cs.deRegisterChan <- c:
	case <-cs.done:
	}
}

func (cs *ChatServer) handleRequest(req *request) {
	if _, ok := cs.clients[req.client]; !ok {
		// the client disconnected before the request was handled
		return
	}

	switch {
	case req.join != nil:
		cs.handleJoin(req.client, req.join)
	case req.publish != nil:
		cs.handlePublish(req.client, req.publish)
	case req.broadcast != nil:
		cs.handleBroadcast(req.broadcast)
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.log.Printf("adding connection %s from %q", c.id, c.user.Username)
	cs.clients[c] = struct{}{}
	cs.stats.Incr(stats.NumActiveClients)
}

func (cs *ChatServer) removeClient(c *Client) {
	if _, ok := cs.clients[c]; !ok {
		return
	}

	cs.log.Printf("removing connection %s from %q", c.id, c.user.Username)
	delete(cs.clients, c)
	cs.stats.Decr(stats.NumActiveClients)

	for id := range c.groups {
		cs.removeFromGroup(c, id)
	}

	if sockets, ok := cs.users[c.user.Username]; ok {
		if _, identified := sockets[c]; identified {
			delete(sockets, c)
			if len(sockets) == 0 {
				delete(cs.users, c.user.Username)
				cs.handleBroadcast(NewOnlineStatus(c.user.Username, false, c))
			}
		}
	}

	c.stopClient()
}

func (cs *ChatServer) handleJoin(c *Client, req *joinReq) {
	if req.identify {
		if cs.users[c.user.Username] == nil {
			cs.users[c.user.Username] = make(map[*Client]struct{})
		}
		cs.users[c.user.Username][c] = struct{}{}
	}

	for _, id := range req.groups {
		cs.addToGroup(c, id)
	}

	c.queueMessage(NewJoined(req.groups...))
}

func (cs *ChatServer) addToGroup(c *Client, id string) {
	members, ok := cs.groups[id]
	if !ok {
		members = make(map[*Client]struct{})
		cs.groups[id] = members
		cs.stats.Incr(stats.NumActiveGroups)
	}

	members[c] = struct{}{}
	c.groups[id] = struct{}{}
}

func (cs *ChatServer) removeFromGroup(c *Client, id string) {
	delete(c.groups, id)

	members, ok := cs.groups[id]
	if !ok {
		return
	}

	delete(members, c)
	if len(members) == 0 {
		delete(cs.groups, id)
		cs.stats.Decr(stats.NumActiveGroups)
	}
}

// handlePublish relays msg to every other socket in its group. The sender
// must have joined the group.
func (cs *ChatServer) handlePublish(sender *Client, msg *ServerMessage) {
	members := cs.groups[msg.Group]
	if _, ok := members[sender]; !ok {
		sender.queueMessage(NewError(ErrNotJoined))
		return
	}

	for c := range members {
		if c == msg.SkipClient {
			continue
		}

		c.queueMessage(msg)
	}

	cs.stats.Incr(stats.NumMessagesRelayed)
}

// handleBroadcast sends msg to every identified socket except SkipClient.
func (cs *ChatServer) handleBroadcast(msg *ServerMessage) {
	for _, sockets := range cs.users {
		for c := range sockets {
			if c == msg.SkipClient {
				continue
			}

			c.queueMessage(msg)
		}
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")

	req := stopReq{done: make(chan struct{})}
	select {
	case cs.stop <- req:
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
