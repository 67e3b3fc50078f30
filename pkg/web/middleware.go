package web

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/smith3v/memory-pairs/pkg/auth"
	"github.com/smith3v/memory-pairs/pkg/logger"
)

// authedHandle is a handler that runs once the bearer token has been verified.
type authedHandle func(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID int64)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(r.ResponseWriter).Hijack()
	if err == nil {
		r.status = http.StatusSwitchingProtocols
	}
	return conn, rw, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// handle registers h under the route pattern, recording request metrics
// labelled by the pattern rather than the concrete path.
func (s *Server) handle(mux *httprouter.Router, method, route string, h httprouter.Handle) {
	mux.Handle(method, route, func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w}
		securityHeaders(rec)
		h(rec, r, p)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := s.now().Sub(start)
		s.metrics.ObserveHTTP(route, method, status, elapsed)
		if logger.Enabled(logger.DEBUG) {
			logger.Debug("served request",
				"method", method,
				"route", route,
				"status", status,
				"remote", realIP(r),
				"elapsed", elapsed.Round(time.Microsecond),
			)
		}
	})
}

func (s *Server) authed(h authedHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, errMissingToken)
			return
		}
		s.verified(w, r, p, token, h)
	}
}

// authedQuery also accepts the token as a ?token= query parameter, since
// browsers cannot set headers on websocket handshakes.
func (s *Server) authedQuery(h authedHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeError(w, errMissingToken)
			return
		}
		s.verified(w, r, p, token, h)
	}
}

func (s *Server) verified(w http.ResponseWriter, r *http.Request, p httprouter.Params, token string, h authedHandle) {
	userID, err := s.auth.Verify(token)
	if err != nil {
		writeError(w, err)
		return
	}
	h(w, r, p, userID)
}
