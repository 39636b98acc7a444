package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetUserById(ctx context.Context, id int) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) UpsertRoom(ctx context.Context, params CreateRoomParams) (Room, bool, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Room), args.Bool(1), args.Error(2)
}
func (m *MockChatRepository) GetRoom(ctx context.Context, roomId string) (Room, error) {
	args := m.Called(ctx, roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) AddConnection(ctx context.Context, entry ConnectionEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
func (m *MockChatRepository) ListConnections(ctx context.Context, username string) ([]ConnectionEntry, error) {
	args := m.Called(ctx, username)
	if entries, ok := args.Get(0).([]ConnectionEntry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) AppendMessage(ctx context.Context, roomId, roomName string, msg Message) error {
	args := m.Called(ctx, roomId, roomName, msg)
	return args.Error(0)
}
func (m *MockChatRepository) GetRoomMessages(ctx context.Context, roomId string) (RoomMessages, error) {
	args := m.Called(ctx, roomId)
	return args.Get(0).(RoomMessages), args.Error(1)
}
