package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/npezzotti/roomchat/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAppendMessage_ReadBack(t *testing.T) {
	svc := newTestService(t, database.NewMemoryRepository())
	ctx := context.Background()

	sent, err := svc.AppendMessage(ctx, AppendParams{
		TargetId:       "general",
		TargetName:     "General",
		Text:           "hello",
		SenderUsername: "alice",
		SenderName:     "Alice",
	})
	require.NoError(t, err)
	assert.False(t, sent.SentAt.IsZero(), "expected server assigned timestamp")

	messages, err := svc.ReadMessages(ctx, "general")
	require.NoError(t, err)
	require.NotEmpty(t, messages)
	assert.Equal(t, sent, messages[len(messages)-1], "expected last message to be the appended one")
}

func TestAppendMessage_Ordering(t *testing.T) {
	svc := newTestService(t, database.NewMemoryRepository())
	ctx := context.Background()

	const n = 25
	for i := range n {
		_, err := svc.AppendMessage(ctx, AppendParams{
			TargetId:       "general",
			Text:           fmt.Sprintf("message %d", i),
			SenderUsername: "alice",
			SenderName:     "Alice",
		})
		require.NoError(t, err)
	}

	messages, err := svc.ReadMessages(ctx, "general")
	require.NoError(t, err)
	require.Len(t, messages, n)
	for i := 1; i < n; i++ {
		assert.False(t, messages[i].SentAt.Before(messages[i-1].SentAt), "expected non-decreasing sent-at at %d", i)
	}
}

func TestReadMessages_SortsBySentAtThenInsertion(t *testing.T) {
	svc := newTestService(t, database.NewMemoryRepository())
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base.Add(time.Second), base, base.Add(time.Second), base}
	for i, ts := range times {
		svc.now = func() time.Time { return ts }
		_, err := svc.AppendMessage(ctx, AppendParams{TargetId: "general", Text: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	messages, err := svc.ReadMessages(ctx, "general")
	require.NoError(t, err)

	var texts []string
	for _, m := range messages {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"m1", "m3", "m0", "m2"}, texts)
}

func TestAppendMessage_CreatesRoomOnce(t *testing.T) {
	repo := database.NewMemoryRepository()
	svc := newTestService(t, repo)
	ctx := context.Background()

	id := PrivateConnectionId("alice", "bob")
	_, err := svc.AppendMessage(ctx, AppendParams{TargetId: id, TargetName: "alice & bob", Text: "hi"})
	require.NoError(t, err)
	_, err = svc.AppendMessage(ctx, AppendParams{TargetId: id, TargetName: "bob & alice", Text: "hey"})
	require.NoError(t, err)

	room, err := repo.GetRoom(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice & bob", room.RoomName, "expected first caller to win the name")

	rm, err := repo.GetRoomMessages(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice & bob", rm.RoomName)
	assert.Len(t, rm.Messages, 2)
}

func TestAppendMessage_DefaultsNameToId(t *testing.T) {
	repo := database.NewMemoryRepository()
	svc := newTestService(t, repo)

	_, err := svc.AppendMessage(context.Background(), AppendParams{TargetId: "lobby", Text: "hi"})
	require.NoError(t, err)

	room, err := repo.GetRoom(context.Background(), "lobby")
	require.NoError(t, err)
	assert.Equal(t, "lobby", room.RoomName)
}

func TestAppendMessage_Invalid(t *testing.T) {
	tcases := []struct {
		name   string
		params AppendParams
		err    error
	}{
		{name: "empty text", params: AppendParams{TargetId: "general", Text: "  "}, err: ErrEmptyMessage},
		{name: "missing target", params: AppendParams{Text: "hello"}, err: ErrInvalidRoomId},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo := database.NewMemoryRepository()
			svc := newTestService(t, repo)

			_, err := svc.AppendMessage(context.Background(), tc.params)
			assert.ErrorIs(t, err, tc.err)

			_, err = repo.GetRoomMessages(context.Background(), "general")
			assert.ErrorIs(t, err, database.ErrNotFound, "expected nothing to be stored")
		})
	}
}

func TestAppendMessage_StorageError(t *testing.T) {
	repo := &database.MockChatRepository{}
	defer repo.AssertExpectations(t)

	room := database.Room{RoomId: "general", RoomName: "General"}
	repo.On("UpsertRoom", mock.Anything, database.CreateRoomParams{RoomId: "general", RoomName: "General"}).
		Return(room, false, nil).Once()
	repo.On("AppendMessage", mock.Anything, "general", "General", mock.AnythingOfType("database.Message")).
		Return(errors.New("disk full")).Once()

	_, err := newTestService(t, repo).AppendMessage(context.Background(), AppendParams{
		TargetId:   "general",
		TargetName: "General",
		Text:       "hello",
	})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestAppendMessage_SeparateLedger(t *testing.T) {
	repo := database.NewMemoryRepository()
	ledger := database.NewMemoryRepository()
	svc := NewService(newTestService(t, repo).log, repo, ledger)
	ctx := context.Background()

	_, err := svc.AppendMessage(ctx, AppendParams{TargetId: "general", Text: "hello"})
	require.NoError(t, err)

	_, err = repo.GetRoom(ctx, "general")
	assert.NoError(t, err, "expected room to be registered in the repository")
	_, err = repo.GetRoomMessages(ctx, "general")
	assert.ErrorIs(t, err, database.ErrNotFound, "expected messages not to be in the repository")
	_, err = ledger.GetRoomMessages(ctx, "general")
	assert.NoError(t, err, "expected messages in the ledger")
}

func TestReadMessages_Unknown(t *testing.T) {
	svc := newTestService(t, database.NewMemoryRepository())

	messages, err := svc.ReadMessages(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoMessages)
	assert.Empty(t, messages)
}

func TestReadMessages_StorageError(t *testing.T) {
	repo := &database.MockChatRepository{}
	defer repo.AssertExpectations(t)
	repo.On("GetRoomMessages", mock.Anything, "general").Return(database.RoomMessages{}, errors.New("timeout")).Once()

	_, err := newTestService(t, repo).ReadMessages(context.Background(), "general")
	assert.ErrorIs(t, err, ErrPersistence)
}
