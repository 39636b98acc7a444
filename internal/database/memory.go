package database

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRepository is a ChatRepository held in process memory. A single
// mutex serializes every aggregate, which gives the same read-modify-write
// guarantees the Postgres and Mongo stores provide per row/document.
type MemoryRepository struct {
	mu          sync.Mutex
	nextUserId  int
	users       map[string]User
	rooms       map[string]Room
	connections map[string][]ConnectionEntry
	ledger      map[string]*RoomMessages
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:       make(map[string]User),
		rooms:       make(map[string]Room),
		connections: make(map[string][]ConnectionEntry),
		ledger:      make(map[string]*RoomMessages),
	}
}

func (m *MemoryRepository) Ping() error {
	return nil
}

func (m *MemoryRepository) CreateUser(_ context.Context, params CreateUserParams) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[params.Username]; ok {
		return User{}, ErrDuplicate
	}

	m.nextUserId++
	u := User{
		Id:           m.nextUserId,
		Name:         params.Name,
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		Salt:         params.Salt,
		Admin:        params.Admin,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[u.Username] = u

	return u, nil
}

func (m *MemoryRepository) GetUserByUsername(_ context.Context, username string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryRepository) GetUserById(_ context.Context, id int) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Id == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryRepository) UpsertRoom(_ context.Context, params CreateRoomParams) (Room, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[params.RoomId]; ok {
		return room, false, nil
	}

	room := Room{
		RoomId:    params.RoomId,
		RoomName:  params.RoomName,
		CreatedAt: time.Now().UTC(),
	}
	m.rooms[room.RoomId] = room

	return room, true, nil
}

func (m *MemoryRepository) GetRoom(_ context.Context, roomId string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomId]
	if !ok {
		return Room{}, ErrNotFound
	}
	return room, nil
}

func (m *MemoryRepository) AddConnection(_ context.Context, entry ConnectionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.connections[entry.Username]
	for _, e := range list {
		if e.ConnectionId == entry.ConnectionId {
			return ErrDuplicate
		}
		if entry.TargetUsername != "" && e.TargetUsername == entry.TargetUsername {
			return ErrDuplicate
		}
	}

	entry.CreatedAt = time.Now().UTC()
	m.connections[entry.Username] = append(list, entry)

	return nil
}

func (m *MemoryRepository) ListConnections(_ context.Context, username string) ([]ConnectionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append(make([]ConnectionEntry, 0, len(m.connections[username])), m.connections[username]...), nil
}

func (m *MemoryRepository) AppendMessage(_ context.Context, roomId, roomName string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.ledger[roomId]
	if !ok {
		rm = &RoomMessages{
			RoomId:    roomId,
			RoomName:  roomName,
			CreatedAt: time.Now().UTC(),
		}
		m.ledger[roomId] = rm
	}
	rm.Messages = append(rm.Messages, msg)

	return nil
}

func (m *MemoryRepository) GetRoomMessages(_ context.Context, roomId string) (RoomMessages, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.ledger[roomId]
	if !ok {
		return RoomMessages{}, ErrNotFound
	}

	out := *rm
	out.Messages = slices.Clone(rm.Messages)
	if out.Messages == nil {
		out.Messages = make([]Message, 0)
	}
	return out, nil
}
