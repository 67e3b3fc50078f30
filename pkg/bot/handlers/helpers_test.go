package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/memory-pairs/pkg/db"
	"github.com/smith3v/memory-pairs/pkg/game"
	"github.com/smith3v/memory-pairs/pkg/internal/testutil"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"github.com/smith3v/memory-pairs/pkg/ui"
)

type recordedRequest struct {
	path        string
	method      string
	contentType string
	body        []byte
}

type mockClient struct {
	mu       sync.Mutex
	requests []recordedRequest
	response string
}

func newMockClient() *mockClient {
	return &mockClient{
		response: `{"ok":true,"result":{"message_id":42}}`,
	}
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}
	m.mu.Lock()
	m.requests = append(m.requests, recordedRequest{
		path:        req.URL.Path,
		method:      req.Method,
		contentType: req.Header.Get("Content-Type"),
		body:        body,
	})
	m.mu.Unlock()

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(m.response)),
		Header:     make(http.Header),
	}
	return resp, nil
}

// last returns the most recent call to the Bot API method, e.g. "sendMessage".
func (m *mockClient) last(t *testing.T, apiMethod string) recordedRequest {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.requests) - 1; i >= 0; i-- {
		if strings.HasSuffix(m.requests[i].path, "/"+apiMethod) {
			return m.requests[i]
		}
	}
	t.Fatalf("no %s request recorded", apiMethod)
	return recordedRequest{}
}

func (m *mockClient) count(apiMethod string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, req := range m.requests {
		if strings.HasSuffix(req.path, "/"+apiMethod) {
			n++
		}
	}
	return n
}

func (m *mockClient) lastMessageText(t *testing.T) string {
	t.Helper()
	return multipartField(t, m.last(t, "sendMessage"), "text")
}

func (m *mockClient) lastKeyboard(t *testing.T, apiMethod string) models.InlineKeyboardMarkup {
	t.Helper()
	var keyboard models.InlineKeyboardMarkup
	raw := multipartField(t, m.last(t, apiMethod), "reply_markup")
	if err := json.Unmarshal([]byte(raw), &keyboard); err != nil {
		t.Fatalf("failed to decode reply markup %q: %v", raw, err)
	}
	return keyboard
}

func multipartField(t *testing.T, req recordedRequest, fieldName string) string {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(req.contentType)
	if err != nil {
		t.Fatalf("failed to parse media type: %v", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("unexpected media type: %s", mediaType)
	}

	reader := multipart.NewReader(bytes.NewReader(req.body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == fieldName {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read multipart field: %v", err)
			}
			return string(data)
		}
	}
	t.Fatalf("field %q not found in %s request", fieldName, req.path)
	return ""
}

func newTestTelegramBot(t *testing.T, client *mockClient) *telegram.Bot {
	t.Helper()
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}

func newTestUpdate(text string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{
				ID: userID,
			},
			Chat: models.Chat{
				ID:   userID,
				Type: models.ChatTypePrivate,
			},
			Text: text,
		},
	}
}

func newTestCallbackUpdate(data string, userID, chatID int64, messageID int) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "callback-1",
			From: models.User{ID: userID},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID: messageID,
					Chat: models.Chat{
						ID:   chatID,
						Type: models.ChatTypePrivate,
					},
				},
			},
		},
	}
}

type botFixture struct {
	handlers *Handlers
	store    *game.MemoryStore
	repo     *db.Repository
	client   *mockClient
	bot      *telegram.Bot
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	logger.SetLogLevel(logger.ERROR)
	gdb := testutil.SetupTestDB(t)
	repo := db.NewRepository(gdb)
	store := game.NewMemoryStore(time.Hour, time.Now)
	games := game.NewService(store, repo, game.WithRand(func() *rand.Rand { return game.SeededRand(5) }))
	client := newMockClient()
	return &botFixture{
		handlers: New(games, repo),
		store:    store,
		repo:     repo,
		client:   client,
		bot:      newTestTelegramBot(t, client),
	}
}

// boardSession extracts the session id from the last board keyboard sent
// with apiMethod.
func (f *botFixture) boardSession(t *testing.T, apiMethod string) string {
	t.Helper()
	keyboard := f.client.lastKeyboard(t, apiMethod)
	for _, row := range keyboard.InlineKeyboard {
		for _, button := range row {
			action, err := ui.ParseCallbackData(button.CallbackData)
			if err == nil && action.SessionID != "" {
				return action.SessionID
			}
		}
	}
	t.Fatalf("no flip button on board %+v", keyboard)
	return ""
}

func (f *botFixture) cards(t *testing.T, sessionID string) []string {
	t.Helper()
	session, err := f.store.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	return session.Cards
}
