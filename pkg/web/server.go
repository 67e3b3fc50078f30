// Package web serves the JSON API, the websocket play channel and the
// operational endpoints.
package web

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/smith3v/memory-pairs/pkg/auth"
	"github.com/smith3v/memory-pairs/pkg/config"
	"github.com/smith3v/memory-pairs/pkg/game"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"github.com/smith3v/memory-pairs/pkg/metrics"
)

const (
	timeout         = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 16
)

type Server struct {
	cfg     config.ServerConfig
	games   *game.Service
	auth    *auth.Service
	metrics *metrics.Metrics
	version string
	now     func() time.Time
	router  *httprouter.Router
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

func NewServer(cfg config.ServerConfig, games *game.Service, accounts *auth.Service, opts ...Option) *Server {
	cfg.Prefix = strings.TrimSuffix(cfg.Prefix, "/")
	s := &Server{
		cfg:     cfg,
		games:   games,
		auth:    accounts,
		version: "dev",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *httprouter.Router {
	mux := httprouter.New()
	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		logger.Error("panic serving request", "method", r.Method, "path", r.URL.Path, "panic", v)
		writeError(w, errors.New("panic"))
	}
	mux.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Code: "NOT_FOUND", Message: "no such route"}})
	})

	p := s.cfg.Prefix
	s.handle(mux, http.MethodGet, p+"/healthz", s.serveHealthCheck())
	s.handle(mux, http.MethodGet, p+"/version", s.serveVersion())
	if s.metrics != nil {
		s.handle(mux, http.MethodGet, p+"/metrics", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			s.metrics.Handler().ServeHTTP(w, r)
		})
	}
	s.handle(mux, http.MethodGet, p+"/daily", s.serveDailyInfo())
	s.handle(mux, http.MethodGet, p+"/daily/qr", s.serveDailyQR())

	s.handle(mux, http.MethodPost, p+"/api/register", s.register())
	s.handle(mux, http.MethodPost, p+"/api/login", s.login())
	s.handle(mux, http.MethodGet, p+"/api/catalog", s.catalog())

	s.handle(mux, http.MethodPost, p+"/api/games", s.authed(s.newGame()))
	s.handle(mux, http.MethodPost, p+"/api/games/:id", s.authed(s.gameAction()))
	s.handle(mux, http.MethodGet, p+"/api/games/:id", s.authed(s.gameState()))
	s.handle(mux, http.MethodDelete, p+"/api/games/:id", s.authed(s.abandonGame()))
	s.handle(mux, http.MethodPost, p+"/api/games/:id/flip", s.authed(s.flip()))
	s.handle(mux, http.MethodPost, p+"/api/games/:id/powerups/:powerup", s.authed(s.usePowerUp()))
	s.handle(mux, http.MethodGet, p+"/api/games/:id/ws", s.authedQuery(s.serveWS()))

	s.handle(mux, http.MethodGet, p+"/api/stats", s.authed(s.stats()))
	s.handle(mux, http.MethodPost, p+"/api/stats/reset", s.authed(s.resetStats()))
	s.handle(mux, http.MethodGet, p+"/api/achievements", s.authed(s.achievements()))
	return mux
}

// Run listens until ctx is cancelled, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Bind, strconv.Itoa(s.cfg.Port)),
		Handler:           s.router,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "prefix", s.cfg.Prefix, "version", s.version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func securityHeaders(w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")
}

func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" && net.ParseIP(ip) != nil {
		host = ip
	}
	return host
}

func (s *Server) serveHealthCheck() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	}
}

func (s *Server) serveVersion() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "memory-pairs v"+s.version+"\n")
	}
}
