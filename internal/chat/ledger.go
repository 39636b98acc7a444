package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/npezzotti/roomchat/internal/database"
)

type AppendParams struct {
	TargetId       string
	TargetName     string
	Text           string
	SenderUsername string
	SenderName     string
}

// AppendMessage stores one message under TargetId, creating the room and
// its ledger on first use. The first name recorded for a room wins.
func (s *Service) AppendMessage(ctx context.Context, params AppendParams) (database.Message, error) {
	targetId := strings.TrimSpace(params.TargetId)
	if targetId == "" {
		return database.Message{}, ErrInvalidRoomId
	}
	if strings.TrimSpace(params.Text) == "" {
		return database.Message{}, ErrEmptyMessage
	}

	targetName := strings.TrimSpace(params.TargetName)
	if targetName == "" {
		targetName = targetId
	}

	room, _, err := s.rooms.UpsertRoom(ctx, database.CreateRoomParams{
		RoomId:   targetId,
		RoomName: targetName,
	})
	if err != nil {
		return database.Message{}, fmt.Errorf("%w: upsert room: %w", ErrPersistence, err)
	}

	msg := database.Message{
		Text:       params.Text,
		SentBy:     params.SenderUsername,
		SentByName: params.SenderName,
		SentAt:     s.now(),
	}

	if err := s.ledger.AppendMessage(ctx, room.RoomId, room.RoomName, msg); err != nil {
		return database.Message{}, fmt.Errorf("%w: append message: %w", ErrPersistence, err)
	}

	return msg, nil
}

// ReadMessages returns the history of targetId, oldest first. It returns
// ErrNoMessages when nothing was ever stored for targetId.
func (s *Service) ReadMessages(ctx context.Context, targetId string) ([]database.Message, error) {
	rm, err := s.ledger.GetRoomMessages(ctx, targetId)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNoMessages
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get messages: %w", ErrPersistence, err)
	}

	messages := rm.Messages
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})

	return messages, nil
}
