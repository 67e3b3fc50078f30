package web

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"github.com/smith3v/memory-pairs/pkg/game"
)

const qrSize = 320

type dailyInfo struct {
	Date       string          `json:"date"`
	Seed       int64           `json:"seed"`
	Difficulty game.Difficulty `json:"difficulty"`
	Pairs      int             `json:"pairs"`
	Theme      themeInfo       `json:"theme"`
	URL        string          `json:"url"`
}

func (s *Server) daily(r *http.Request) dailyInfo {
	now := s.now().UTC()
	seed := game.DailySeed(now)
	theme := game.DailyTheme(seed)
	date := now.Format("2006-01-02")
	return dailyInfo{
		Date:       date,
		Seed:       seed,
		Difficulty: game.DailyDifficulty,
		Pairs:      game.DailyDifficulty.Pairs(),
		Theme:      themeInfo{ID: theme.ID, Name: theme.Name, Symbols: len(theme.Symbols)},
		URL:        s.baseURL(r) + "/daily?date=" + date,
	}
}

// baseURL prefers the configured public URL and otherwise derives one from
// the request.
func (s *Server) baseURL(r *http.Request) string {
	if public := strings.TrimSuffix(s.cfg.PublicURL, "/"); public != "" {
		return public + s.cfg.Prefix
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + s.cfg.Prefix
}

func (s *Server) serveDailyInfo() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, s.daily(r))
	}
}

// serveDailyQR renders a PNG QR code pointing at today's challenge.
func (s *Server) serveDailyQR() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		png, err := qrcode.Encode(s.daily(r).URL, qrcode.Medium, qrSize)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(png)
	}
}
