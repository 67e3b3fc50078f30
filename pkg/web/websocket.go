package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/smith3v/memory-pairs/pkg/logger"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Sockets authenticate with a bearer token, not cookies.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage is a play command sent over the socket.
type clientMessage struct {
	Type    string `json:"type"`
	Index   *int   `json:"index,omitempty"`
	PowerUp string `json:"power_up,omitempty"`
}

// serverMessage answers one client message. Data carries the same payload
// the matching HTTP endpoint returns.
type serverMessage struct {
	Type  string       `json:"type"`
	Data  any          `json:"data,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan serverMessage
	// done is closed when writePump exits.
	done chan struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan serverMessage, 8),
		done: make(chan struct{}),
	}
}

// deliver queues msg for writePump and reports false once writePump is gone.
func (c *wsClient) deliver(msg serverMessage) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (s *Server) serveWS() authedHandle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID int64) {
		sessionID := p.ByName("id")
		view, err := s.games.State(r.Context(), userID, sessionID)
		if err != nil {
			writeError(w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
			return
		}
		logger.Debug("websocket connected", "user_id", userID, "session_id", sessionID)

		client := newWSClient(conn)
		client.send <- serverMessage{Type: "state", Data: view}

		go client.writePump()
		client.readPump(r.Context(), func(ctx context.Context, msg clientMessage) serverMessage {
			return s.dispatch(ctx, userID, sessionID, msg)
		})
		logger.Debug("websocket closed", "user_id", userID, "session_id", sessionID)
	}
}

func (s *Server) dispatch(ctx context.Context, userID int64, sessionID string, msg clientMessage) serverMessage {
	var (
		data any
		err  error
	)
	switch msg.Type {
	case "flip":
		if msg.Index == nil {
			return errorMessage(msg.Type, errBadRequest)
		}
		data, err = s.games.Flip(ctx, userID, sessionID, *msg.Index)
	case "power_up":
		data, err = s.games.UsePowerUp(ctx, userID, sessionID, msg.PowerUp)
	case "state":
		data, err = s.games.State(ctx, userID, sessionID)
	default:
		return errorMessage("error", errBadRequest)
	}
	if err != nil {
		return errorMessage(msg.Type, err)
	}
	return serverMessage{Type: msg.Type, Data: data}
}

func errorMessage(kind string, err error) serverMessage {
	_, detail := describeError(err)
	return serverMessage{Type: kind, Error: &detail}
}

func (c *wsClient) readPump(ctx context.Context, handle func(context.Context, clientMessage) serverMessage) {
	defer close(c.send)

	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if !c.deliver(handle(ctx, msg)) {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
