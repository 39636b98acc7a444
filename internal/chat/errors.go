package chat

import "errors"

var (
	ErrAuthFailure         = errors.New("invalid username or password")
	ErrInvalidCredentials  = errors.New("username and password are required")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrNotFound            = errors.New("user not found")
	ErrSelfConnection      = errors.New("cannot add self as connection")
	ErrDuplicateConnection = errors.New("connection already exists")
	ErrDuplicateInList     = errors.New("room already exists in connection list")
	ErrPartialConnection   = errors.New("connection only added to one side")
	ErrInvalidRoomId       = errors.New("invalid room id")
	ErrInvalidRoomName     = errors.New("room name is required")
	ErrNotMember           = errors.New("not a member of this chat")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrNoMessages          = errors.New("no messages found")
	ErrPersistence         = errors.New("storage failure")
)
