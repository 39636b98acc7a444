package chat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/npezzotti/roomchat/internal/database"
)

const privateIdPrefix = "dm-"

type LinkState int

const (
	LinkNone LinkState = iota
	LinkOneSided
	LinkComplete
)

func (ls LinkState) String() string {
	return [...]string{
		"none",
		"one-sided",
		"complete",
	}[ls]
}

// PrivateConnection is the outcome of AddPrivateConnection. Current is the
// entry written to the caller's list, Other the mirrored entry.
type PrivateConnection struct {
	ConnectionId string
	Current      database.ConnectionEntry
	Other        database.ConnectionEntry
	State        LinkState
}

// PrivateConnectionId derives the id shared by both sides of a private
// thread. It does not depend on argument order.
func PrivateConnectionId(a, b string) string {
	if b < a {
		a, b = b, a
	}

	sum := sha256.Sum256([]byte(a + "\x00" + b))
	return privateIdPrefix + hex.EncodeToString(sum[:])[:20]
}

// AddPrivateConnection links current and otherUsername in two phases:
// current's list first, then the mirror in other's list. When only the
// first phase succeeds the result is LinkOneSided and the error wraps
// ErrPartialConnection; calling again restores the missing mirror.
func (s *Service) AddPrivateConnection(ctx context.Context, current Identity, otherUsername string) (PrivateConnection, error) {
	otherUsername = strings.TrimSpace(otherUsername)
	if current.Username == otherUsername {
		return PrivateConnection{}, ErrSelfConnection
	}

	other, err := s.users.GetUserByUsername(ctx, otherUsername)
	if errors.Is(err, database.ErrNotFound) {
		return PrivateConnection{}, ErrNotFound
	}
	if err != nil {
		return PrivateConnection{}, fmt.Errorf("%w: get user: %w", ErrPersistence, err)
	}

	currentName := current.Name
	if currentName == "" {
		currentName = current.Username
	}

	id := PrivateConnectionId(current.Username, other.Username)
	pc := PrivateConnection{
		ConnectionId: id,
		Current: database.ConnectionEntry{
			Username:       current.Username,
			ConnectionId:   id,
			ConnectionName: other.Name,
			TargetUsername: other.Username,
		},
		Other: database.ConnectionEntry{
			Username:       other.Username,
			ConnectionId:   id,
			ConnectionName: currentName,
			TargetUsername: current.Username,
		},
	}

	err = s.conns.AddConnection(ctx, pc.Current)
	if errors.Is(err, database.ErrDuplicate) {
		pc.State = s.restoreMirror(ctx, pc.Other)
		return pc, ErrDuplicateConnection
	}
	if err != nil {
		return PrivateConnection{}, fmt.Errorf("%w: add connection: %w", ErrPersistence, err)
	}

	pc.State = LinkOneSided
	err = s.conns.AddConnection(ctx, pc.Other)
	if err != nil && !errors.Is(err, database.ErrDuplicate) {
		s.log.Printf("connection %q added for %q but not for %q: %v", id, current.Username, other.Username, err)
		return pc, fmt.Errorf("%w: %w", ErrPartialConnection, err)
	}

	pc.State = LinkComplete
	return pc, nil
}

func (s *Service) restoreMirror(ctx context.Context, mirror database.ConnectionEntry) LinkState {
	err := s.conns.AddConnection(ctx, mirror)
	switch {
	case err == nil:
		s.log.Printf("restored missing connection %q in list of %q", mirror.ConnectionId, mirror.Username)
		return LinkComplete
	case errors.Is(err, database.ErrDuplicate):
		return LinkComplete
	default:
		s.log.Printf("restore connection %q for %q: %v", mirror.ConnectionId, mirror.Username, err)
		return LinkOneSided
	}
}

// AddRoomConnection creates the room if needed and appends it to the
// user's list. An empty roomId gets a generated one.
func (s *Service) AddRoomConnection(ctx context.Context, username, roomId, roomName string) (database.ConnectionEntry, error) {
	roomId = strings.TrimSpace(roomId)
	roomName = strings.TrimSpace(roomName)
	if roomName == "" {
		return database.ConnectionEntry{}, ErrInvalidRoomName
	}

	if roomId == "" {
		sid, err := s.newId()
		if err != nil {
			return database.ConnectionEntry{}, fmt.Errorf("generate room id: %w", err)
		}
		roomId = sid
	}

	if strings.HasPrefix(roomId, privateIdPrefix) {
		return database.ConnectionEntry{}, ErrInvalidRoomId
	}

	room, created, err := s.rooms.UpsertRoom(ctx, database.CreateRoomParams{
		RoomId:   roomId,
		RoomName: roomName,
	})
	if err != nil {
		return database.ConnectionEntry{}, fmt.Errorf("%w: upsert room: %w", ErrPersistence, err)
	}
	if created {
		s.log.Printf("created room %q (%s)", room.RoomId, room.RoomName)
	}

	entry := database.ConnectionEntry{
		Username:       username,
		ConnectionId:   room.RoomId,
		ConnectionName: room.RoomName,
		IsRoom:         true,
	}

	err = s.conns.AddConnection(ctx, entry)
	if errors.Is(err, database.ErrDuplicate) {
		return database.ConnectionEntry{}, ErrDuplicateInList
	}
	if err != nil {
		return database.ConnectionEntry{}, fmt.Errorf("%w: add connection: %w", ErrPersistence, err)
	}

	return entry, nil
}

// ListConnections returns the user's list in insertion order. A user
// without a list gets an empty slice.
func (s *Service) ListConnections(ctx context.Context, username string) ([]database.ConnectionEntry, error) {
	entries, err := s.conns.ListConnections(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: list connections: %w", ErrPersistence, err)
	}

	if entries == nil {
		entries = make([]database.ConnectionEntry, 0)
	}
	return entries, nil
}

// Authorize returns ErrNotMember unless targetId is in the user's list.
func (s *Service) Authorize(ctx context.Context, username, targetId string) error {
	entries, err := s.ListConnections(ctx, username)
	if err != nil {
		return err
	}

	if !slices.ContainsFunc(entries, func(e database.ConnectionEntry) bool {
		return e.ConnectionId == targetId
	}) {
		return ErrNotMember
	}

	return nil
}
