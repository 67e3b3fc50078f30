package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smith3v/memory-pairs/pkg/game"
)

type wsReply struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error *errorDetail    `json:"error"`
}

func (f *apiFixture) dial(t *testing.T, sessionID, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/games/" + sessionID + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return websocket.DefaultDialer.Dial(url, nil)
}

func readReply(t *testing.T, conn *websocket.Conn) wsReply {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply wsReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("failed to read reply: %v", err)
	}
	return reply
}

func TestWebsocketPlay(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signUp(t, "socket")
	view := f.startGame(t, token, "easy", "sports")
	pair := f.pairs(t, view.ID)[0]

	conn, _, err := f.dial(t, view.ID, token)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	hello := readReply(t, conn)
	if hello.Type != "state" {
		t.Fatalf("expected initial state, got %q", hello.Type)
	}
	var state game.View
	if err := json.Unmarshal(hello.Data, &state); err != nil || state.ID != view.ID {
		t.Fatalf("unexpected initial state %s (%v)", hello.Data, err)
	}

	var outcome game.FlipOutcome
	for _, index := range pair {
		if err := conn.WriteJSON(clientMessage{Type: "flip", Index: &index}); err != nil {
			t.Fatalf("failed to send flip: %v", err)
		}
		reply := readReply(t, conn)
		if reply.Type != "flip" || reply.Error != nil {
			t.Fatalf("unexpected flip reply %+v", reply)
		}
		if err := json.Unmarshal(reply.Data, &outcome); err != nil {
			t.Fatalf("failed to decode flip outcome: %v", err)
		}
	}
	if outcome.Result.Kind != game.FlipMatched || outcome.Result.PairsFound != 1 {
		t.Fatalf("expected a match, got %+v", outcome.Result)
	}

	bad := 99
	if err := conn.WriteJSON(clientMessage{Type: "flip", Index: &bad}); err != nil {
		t.Fatalf("failed to send flip: %v", err)
	}
	if reply := readReply(t, conn); reply.Error == nil || reply.Error.Code != string(game.CodeInvalidIndex) {
		t.Fatalf("expected invalid index error, got %+v", reply)
	}

	if err := conn.WriteJSON(clientMessage{Type: "power_up", PowerUp: "peek"}); err != nil {
		t.Fatalf("failed to send power-up: %v", err)
	}
	if reply := readReply(t, conn); reply.Type != "power_up" || reply.Error == nil || reply.Error.Code != string(game.CodePowerUpUnavailable) {
		t.Fatalf("expected power-up error, got %+v", reply)
	}

	if err := conn.WriteJSON(clientMessage{Type: "dance"}); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
	if reply := readReply(t, conn); reply.Type != "error" || reply.Error == nil || reply.Error.Code != "BAD_REQUEST" {
		t.Fatalf("expected bad request, got %+v", reply)
	}
}

func TestWebsocketRejectsBeforeUpgrade(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.signUp(t, "owner")
	other := f.signUp(t, "intruder")
	view := f.startGame(t, owner, "easy", "space")

	tests := []struct {
		name   string
		token  string
		id     string
		status int
	}{
		{name: "no token", token: "", id: view.ID, status: http.StatusUnauthorized},
		{name: "foreign session", token: other, id: view.ID, status: http.StatusForbidden},
		{name: "unknown session", token: owner, id: "missing", status: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conn, resp, err := f.dial(t, tc.id, tc.token)
			if err == nil {
				conn.Close()
				t.Fatalf("expected dial to fail")
			}
			if resp == nil || resp.StatusCode != tc.status {
				t.Fatalf("expected status %d, got %+v", tc.status, resp)
			}
		})
	}
}

func TestWebsocketDeliverStopsAfterWriterExits(t *testing.T) {
	client := newWSClient(nil)
	for i := 0; i < cap(client.send); i++ {
		if !client.deliver(serverMessage{Type: "state"}) {
			t.Fatalf("deliver %d failed with room in the buffer", i)
		}
	}
	close(client.done)

	returned := make(chan bool, 1)
	go func() {
		returned <- client.deliver(serverMessage{Type: "flip"})
	}()
	select {
	case ok := <-returned:
		if ok {
			t.Fatalf("deliver should report the writer is gone")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("deliver blocked on a full buffer after the writer exited")
	}
}
