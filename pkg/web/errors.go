package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/smith3v/memory-pairs/pkg/auth"
	"github.com/smith3v/memory-pairs/pkg/db"
	"github.com/smith3v/memory-pairs/pkg/game"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"github.com/smith3v/memory-pairs/pkg/validation"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errBadRequest   = errors.New("malformed request body")
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

var gameStatus = map[game.Code]int{
	game.CodeInvalidDifficulty:  http.StatusBadRequest,
	game.CodeInvalidTheme:       http.StatusBadRequest,
	game.CodeInvalidIndex:       http.StatusBadRequest,
	game.CodeSessionNotFound:    http.StatusNotFound,
	game.CodeUnauthorized:       http.StatusForbidden,
	game.CodeSessionComplete:    http.StatusConflict,
	game.CodeCardUnavailable:    http.StatusConflict,
	game.CodePowerUpUnavailable: http.StatusConflict,
}

// describeError maps err to a status code and the client-facing detail.
// Unknown errors are logged and reported as a bare 500.
func describeError(err error) (int, errorDetail) {
	var verr *validation.Error
	var gerr *game.Error
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorDetail{Code: "VALIDATION_FAILED", Message: verr.Error(), Fields: verr.Fields}
	case errors.As(err, &gerr):
		if status, ok := gameStatus[gerr.Code]; ok {
			return status, errorDetail{Code: string(gerr.Code), Message: gerr.Message}
		}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorDetail{Code: "BAD_REQUEST", Message: err.Error()}
	case errors.Is(err, db.ErrUsernameTaken):
		return http.StatusConflict, errorDetail{Code: "USERNAME_TAKEN", Message: err.Error()}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorDetail{Code: "INVALID_CREDENTIALS", Message: err.Error()}
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, errMissingToken):
		return http.StatusUnauthorized, errorDetail{Code: "UNAUTHENTICATED", Message: err.Error()}
	}
	logger.Error("request failed", "error", err)
	return http.StatusInternalServerError, errorDetail{Code: "INTERNAL", Message: "internal server error"}
}

func writeError(w http.ResponseWriter, err error) {
	status, detail := describeError(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="memory-pairs"`)
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

// decodeJSON reads a single JSON object from the request body and
// validates it.
func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return validation.Struct(v)
}
