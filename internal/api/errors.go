package api

import (
	"errors"
	"fmt"

	"github.com/npezzotti/roomchat/internal/chat"
	"github.com/npezzotti/roomchat/internal/types"
)

const (
	msgInternalError    = "internal server error"
	msgNotAuthenticated = "not authenticated"
	msgInvalidRoute     = "invalid route"
	msgBadRequest       = "invalid request body"
)

// knownErrors are reported to the client verbatim.
var knownErrors = []error{
	chat.ErrAuthFailure,
	chat.ErrInvalidCredentials,
	chat.ErrUsernameTaken,
	chat.ErrSelfConnection,
	chat.ErrDuplicateConnection,
	chat.ErrDuplicateInList,
	chat.ErrPartialConnection,
	chat.ErrInvalidRoomId,
	chat.ErrInvalidRoomName,
	chat.ErrNotMember,
	chat.ErrEmptyMessage,
	chat.ErrNoMessages,
}

// ApiError is a failed JSON reply. It is sent with HTTP 200 and
// status "fail" like every other reply.
type ApiError struct {
	Message string `json:"msg"`
	Err     error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func (e *ApiError) Response() types.Response {
	return types.Response{
		Status: types.StatusFail,
		Msg:    e.Message,
	}
}

// Internal reports whether the error is hidden from the client.
func (e *ApiError) Internal() bool {
	return e.Message == msgInternalError
}

func NewApiError(err error) *ApiError {
	if errors.Is(err, chat.ErrNotFound) {
		return &ApiError{Message: "other user not found", Err: err}
	}

	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return &ApiError{Message: known.Error(), Err: err}
		}
	}

	return NewInternalServerError(err)
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		Message: msgInternalError,
		Err:     err,
	}
}

func NewUnauthorizedError() *ApiError {
	return &ApiError{Message: msgNotAuthenticated}
}

func NewBadRequestError(err error) *ApiError {
	return &ApiError{Message: msgBadRequest, Err: err}
}

func NewInvalidRouteError() *ApiError {
	return &ApiError{Message: msgInvalidRoute}
}
