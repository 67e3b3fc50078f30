package game

import (
	"errors"
	"fmt"
)

// Code is a machine-readable game error code.
type Code string

const (
	CodeInvalidDifficulty  Code = "INVALID_DIFFICULTY"
	CodeInvalidTheme       Code = "INVALID_THEME"
	CodeSessionNotFound    Code = "SESSION_NOT_FOUND"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeSessionComplete    Code = "SESSION_COMPLETE"
	CodeInvalidIndex       Code = "INVALID_INDEX"
	CodeCardUnavailable    Code = "CARD_UNAVAILABLE"
	CodePowerUpUnavailable Code = "POWER_UP_UNAVAILABLE"
)

// Error is a validation failure returned by the game core. Errors compare
// equal under errors.Is when their codes match, so the sentinels below can
// be used regardless of the message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrInvalidDifficulty  = &Error{Code: CodeInvalidDifficulty, Message: "invalid difficulty"}
	ErrInvalidTheme       = &Error{Code: CodeInvalidTheme, Message: "invalid theme"}
	ErrSessionNotFound    = &Error{Code: CodeSessionNotFound, Message: "session not found"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "session belongs to another user"}
	ErrSessionComplete    = &Error{Code: CodeSessionComplete, Message: "session already complete"}
	ErrInvalidIndex       = &Error{Code: CodeInvalidIndex, Message: "card index out of range"}
	ErrCardUnavailable    = &Error{Code: CodeCardUnavailable, Message: "card already flipped or matched"}
	ErrPowerUpUnavailable = &Error{Code: CodePowerUpUnavailable, Message: "power-up not available"}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code of a game error anywhere in err's chain.
func CodeOf(err error) (Code, bool) {
	var gameErr *Error
	if errors.As(err, &gameErr) {
		return gameErr.Code, true
	}
	return "", false
}
