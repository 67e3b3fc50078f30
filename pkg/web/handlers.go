package web

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/smith3v/memory-pairs/pkg/auth"
	"github.com/smith3v/memory-pairs/pkg/game"
)

const dailyGameID = "daily"

type accountResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type newGameRequest struct {
	Difficulty string `json:"difficulty" validate:"required"`
	Theme      string `json:"theme" validate:"required"`
}

type flipRequest struct {
	Index *int `json:"index" validate:"required"`
}

type difficultyInfo struct {
	ID    game.Difficulty `json:"id"`
	Pairs int             `json:"pairs"`
}

type themeInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Symbols int    `json:"symbols"`
}

type catalogResponse struct {
	Difficulties []difficultyInfo   `json:"difficulties"`
	Themes       []themeInfo        `json:"themes"`
	PowerUps     []game.PowerUp     `json:"power_ups"`
	Achievements []game.Achievement `json:"achievements"`
}

func (s *Server) register() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var creds auth.Credentials
		if err := decodeJSON(r, w, &creds); err != nil {
			writeError(w, err)
			return
		}
		user, err := s.auth.Register(r.Context(), creds)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, accountResponse{ID: user.ID, Username: user.Username})
	}
}

func (s *Server) login() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var creds auth.Credentials
		if err := decodeJSON(r, w, &creds); err != nil {
			writeError(w, err)
			return
		}
		token, err := s.auth.Login(r.Context(), creds)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, token)
	}
}

func (s *Server) catalog() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		resp := catalogResponse{
			PowerUps:     game.PowerUps(),
			Achievements: game.Achievements(),
		}
		for _, d := range game.Difficulties() {
			resp.Difficulties = append(resp.Difficulties, difficultyInfo{ID: d, Pairs: d.Pairs()})
		}
		for _, t := range game.Themes() {
			resp.Themes = append(resp.Themes, themeInfo{ID: t.ID, Name: t.Name, Symbols: len(t.Symbols)})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) newGame() authedHandle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID int64) {
		var req newGameRequest
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(w, err)
			return
		}
		view, err := s.games.NewGame(r.Context(), userID, req.Difficulty, req.Theme)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

// gameAction serves POST /api/games/:id. The router cannot hold a static
// "daily" segment next to the :id wildcard, so the daily challenge is
// dispatched here.
func (s *Server) gameAction() authedHandle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID int64) {
		if p.ByName("id") != dailyGameID {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: errorDetail{Code: "METHOD_NOT_ALLOWED", Message: "use /flip or /powerups on a game"}})
			return
		}
		view, err := s.games.NewDailyGame(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func (s *Server) gameState() authedHandle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID int64) {
		view, err := s.games.State(r.Context(), userID, p.ByName("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) abandonGame() authedHandle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID int64) {
		if err := s.games.Abandon(r.Context(), userID, p.ByName("id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) flip() authedHandle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID int64) {
		var req flipRequest
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(w, err)
			return
		}
		outcome, err := s.games.Flip(r.Context(), userID, p.ByName("id"), *req.Index)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

func (s *Server) usePowerUp() authedHandle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID int64) {
		effect, err := s.games.UsePowerUp(r.Context(), userID, p.ByName("id"), p.ByName("powerup"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, effect)
	}
}

func (s *Server) stats() authedHandle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID int64) {
		stats, err := s.games.Stats(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) resetStats() authedHandle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID int64) {
		if err := s.games.ResetProgress(r.Context(), userID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) achievements() authedHandle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID int64) {
		list, err := s.games.Achievements(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
