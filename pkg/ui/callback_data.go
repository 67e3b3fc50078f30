package ui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/smith3v/memory-pairs/pkg/game"
)

const (
	CallbackPrefix     = "m:"
	MaxCallbackDataLen = 64
)

// Kind selects what a board button does.
type Kind string

const (
	KindFlip    Kind = "f"
	KindPowerUp Kind = "p"
	KindNewGame Kind = "n"
	KindNoop    Kind = "x"
)

type Action struct {
	Kind       Kind
	SessionID  string
	Index      int
	PowerUp    game.PowerUp
	Difficulty game.Difficulty
	Theme      string
}

var (
	errInvalidPrefix       = errors.New("invalid callback prefix")
	errInvalidAction       = errors.New("invalid callback action")
	errInvalidSession      = errors.New("invalid callback session")
	errInvalidValue        = errors.New("invalid callback value")
	errCallbackDataTooLong = errors.New("callback data too long")
)

// BuildFlipCallback encodes a flip as m:f:<session>:<index>.
func BuildFlipCallback(sessionID string, index int) (string, error) {
	if !validSessionID(sessionID) {
		return "", errInvalidSession
	}
	if index < 0 {
		return "", errInvalidValue
	}
	return validateCallbackData(CallbackPrefix + string(KindFlip) + ":" + sessionID + ":" + strconv.Itoa(index))
}

// BuildPowerUpCallback encodes a power-up use as m:p:<session>:<power_up>.
func BuildPowerUpCallback(sessionID string, powerUp game.PowerUp) (string, error) {
	if !validSessionID(sessionID) {
		return "", errInvalidSession
	}
	if _, ok := game.ParsePowerUp(string(powerUp)); !ok {
		return "", errInvalidValue
	}
	return validateCallbackData(CallbackPrefix + string(KindPowerUp) + ":" + sessionID + ":" + string(powerUp))
}

// BuildNewGameCallback encodes a "play again" button as m:n:<difficulty>:<theme>.
func BuildNewGameCallback(difficulty game.Difficulty, theme string) (string, error) {
	if difficulty.Pairs() == 0 || theme == "" || strings.Contains(theme, ":") {
		return "", errInvalidValue
	}
	return validateCallbackData(CallbackPrefix + string(KindNewGame) + ":" + string(difficulty) + ":" + theme)
}

// BuildNoopCallback is attached to buttons that only display a card.
func BuildNoopCallback() (string, error) {
	return validateCallbackData(CallbackPrefix + string(KindNoop))
}

func ParseCallbackData(data string) (Action, error) {
	if data == "" {
		return Action{}, errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return Action{}, errCallbackDataTooLong
	}
	if !strings.HasPrefix(data, CallbackPrefix) {
		return Action{}, errInvalidPrefix
	}

	parts := strings.Split(data, ":")
	switch Kind(parts[1]) {
	case KindNoop:
		if len(parts) != 2 {
			return Action{}, errInvalidAction
		}
		return Action{Kind: KindNoop}, nil
	case KindFlip:
		if len(parts) != 4 || !validSessionID(parts[2]) {
			return Action{}, errInvalidSession
		}
		if !isASCIIUnsignedInt(parts[3]) {
			return Action{}, errInvalidValue
		}
		index, err := strconv.Atoi(parts[3])
		if err != nil {
			return Action{}, errInvalidValue
		}
		return Action{Kind: KindFlip, SessionID: parts[2], Index: index}, nil
	case KindPowerUp:
		if len(parts) != 4 || !validSessionID(parts[2]) {
			return Action{}, errInvalidSession
		}
		powerUp, ok := game.ParsePowerUp(parts[3])
		if !ok {
			return Action{}, errInvalidValue
		}
		return Action{Kind: KindPowerUp, SessionID: parts[2], PowerUp: powerUp}, nil
	case KindNewGame:
		if len(parts) != 4 {
			return Action{}, errInvalidAction
		}
		difficulty, err := game.ParseDifficulty(parts[2])
		if err != nil || parts[3] == "" {
			return Action{}, errInvalidValue
		}
		return Action{Kind: KindNewGame, Difficulty: difficulty, Theme: parts[3]}, nil
	default:
		return Action{}, errInvalidAction
	}
}

func validateCallbackData(data string) (string, error) {
	if len(data) > MaxCallbackDataLen {
		return "", errCallbackDataTooLong
	}
	return data, nil
}

func validSessionID(id string) bool {
	return id != "" && !strings.ContainsAny(id, ": ")
}

func isASCIIUnsignedInt(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
