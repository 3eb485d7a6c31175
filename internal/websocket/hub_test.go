package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/adapters"
	"github.com/satriahrh/chatwidget/internal/auth"
	"github.com/satriahrh/chatwidget/usecase"
)

type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (g *fakeGenerator) Model() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, maxNewTokens int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reply, g.err
}

type testEnv struct {
	hub          *Hub
	conversation *usecase.ConversationService
	sessions     *adapters.MemorySessionRepository
	signer       *auth.Signer
	server       *httptest.Server
}

func setupTestHub(t testing.TB, generator *fakeGenerator) *testEnv {
	logger := zap.NewNop() // No-op logger for tests

	sessions := adapters.NewMemorySessionRepository(4)
	chat := usecase.NewChatService(generator, usecase.ChatServiceConfig{MaxNewTokens: 32, Timeout: time.Second}, logger)
	conversation := usecase.NewConversationService(sessions, chat, logger)
	signer := auth.NewSigner("test-secret", time.Hour)
	hub := NewHub(conversation, signer, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c, logger)
	})
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &testEnv{
		hub:          hub,
		conversation: conversation,
		sessions:     sessions,
		signer:       signer,
		server:       server,
	}
}

func (env *testEnv) dial(t testing.TB, query string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t testing.TB, conn *websocket.Conn) map[string]interface{} {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_NewHub(t *testing.T) {
	hub := NewHub(nil, nil, zap.NewNop())

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map not initialized")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels not initialized")
	}
	if hub.ClientCount() != 0 {
		t.Error("New hub should have no clients")
	}
}

func TestHub_ChatTurn(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{reply: "Hi from the bot"})
	conn := env.dial(t, "")

	started := readJSON(t, conn)
	assert.Equal(t, string(MessageTypeSessionStarted), started["type"])
	sessionID, _ := started["session_id"].(string)
	require.NotEmpty(t, sessionID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "chat_message", "message_id": "m-1", "text": "Hello"}))

	resp := readJSON(t, conn)
	assert.Equal(t, string(MessageTypeChatResponse), resp["type"])
	assert.Equal(t, "Hi from the bot", resp["text"])
	assert.Equal(t, "m-1", resp["reply_to"])
	assert.EqualValues(t, 2, resp["history_len"])
	assert.Equal(t, []string{sessionID}, env.hub.ActiveSessions())
}

func TestHub_EmptyMessageIsIgnored(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{reply: "ok"})
	conn := env.dial(t, "")
	readJSON(t, conn) // session_started

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "chat_message", "text": "   "}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "chat_message", "text": "Hello"}))

	resp := readJSON(t, conn)
	assert.Equal(t, string(MessageTypeChatResponse), resp["type"])
	assert.EqualValues(t, 2, resp["history_len"], "the empty message must not add a turn")
}

func TestHub_ExternalServiceError(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{err: errors.New("model offline")})
	conn := env.dial(t, "")
	started := readJSON(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "chat_message", "message_id": "m-9", "text": "Hello"}))

	resp := readJSON(t, conn)
	assert.Equal(t, string(MessageTypeError), resp["type"])
	assert.Equal(t, ErrorCodeExternalService, resp["error_code"])
	assert.Equal(t, "m-9", resp["reply_to"])

	turns, err := env.conversation.History(context.Background(), started["session_id"].(string))
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestHub_PingAndClear(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{reply: "ok"})
	conn := env.dial(t, "")
	readJSON(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping", "data": "hb"}))
	pong := readJSON(t, conn)
	assert.Equal(t, string(MessageTypePong), pong["type"])
	assert.Equal(t, "hb", pong["data"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "chat_message", "text": "Hello"}))
	readJSON(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "clear"}))
	cleared := readJSON(t, conn)
	assert.Equal(t, string(MessageTypeCleared), cleared["type"])

	turns, err := env.conversation.History(context.Background(), cleared["session_id"].(string))
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func (env *testEnv) backdate(t testing.TB, sessionID string, age time.Duration) {
	session, err := env.sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	session.Lock()
	session.LastActiveAt = time.Now().Add(-age)
	session.Unlock()
}

func TestHub_PingKeepsConnectedSessionAlive(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{reply: "Still here"})
	conn := env.dial(t, "")
	sessionID := readJSON(t, conn)["session_id"].(string)

	env.backdate(t, sessionID, time.Hour)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, string(MessageTypePong), readJSON(t, conn)["type"])

	expired, err := env.sessions.ExpireIdle(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "chat_message", "text": "Hello"}))
	resp := readJSON(t, conn)
	assert.Equal(t, string(MessageTypeChatResponse), resp["type"])
	assert.Equal(t, "Still here", resp["text"])
}

func TestHub_ProtocolPongKeepsSessionAlive(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{reply: "ok"})
	conn := env.dial(t, "")
	sessionID := readJSON(t, conn)["session_id"].(string)

	env.backdate(t, sessionID, time.Hour)

	require.NoError(t, conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second)))
	// frames are read in order, so the pong is handled before this reply
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))
	assert.Equal(t, string(MessageTypeError), readJSON(t, conn)["type"])

	expired, err := env.sessions.ExpireIdle(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}

func TestHub_PingReportsLostSession(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{reply: "ok"})
	conn := env.dial(t, "")
	sessionID := readJSON(t, conn)["session_id"].(string)

	require.NoError(t, env.sessions.Delete(context.Background(), sessionID))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping", "message_id": "p-1"}))
	resp := readJSON(t, conn)
	assert.Equal(t, string(MessageTypeError), resp["type"])
	assert.Equal(t, ErrorCodeSessionNotFound, resp["error_code"])
	assert.Equal(t, "p-1", resp["reply_to"])
}

func TestHub_InvalidMessage(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{reply: "ok"})
	conn := env.dial(t, "")
	readJSON(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`)))
	resp := readJSON(t, conn)
	assert.Equal(t, string(MessageTypeError), resp["type"])
	assert.Equal(t, ErrorCodeInvalidMessage, resp["error_code"])
}

func TestHub_DisconnectDiscardsOwnedSession(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{reply: "ok"})
	conn := env.dial(t, "")
	readJSON(t, conn)
	require.Equal(t, 1, env.sessions.Count())

	conn.Close()

	require.Eventually(t, func() bool {
		return env.sessions.Count() == 0 && env.hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_TokenAttachesExistingSession(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{reply: "ok"})
	ctx := context.Background()

	session, err := env.conversation.StartSession(ctx)
	require.NoError(t, err)
	_, err = env.conversation.Send(ctx, session.ID, "Hello")
	require.NoError(t, err)

	token, _, err := env.signer.Issue(session.ID)
	require.NoError(t, err)

	conn := env.dial(t, "?token="+token)
	started := readJSON(t, conn)
	assert.Equal(t, session.ID, started["session_id"])
	assert.EqualValues(t, 2, started["history_len"])

	conn.Close()
	require.Eventually(t, func() bool { return env.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	_, err = env.conversation.History(ctx, session.ID)
	assert.NoError(t, err, "sessions opened over HTTP outlive the socket")
}

func TestHub_InvalidTokenRejected(t *testing.T) {
	env := setupTestHub(t, &fakeGenerator{reply: "ok"})

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionCleanupService(t *testing.T) {
	sessions := adapters.NewMemorySessionRepository(2)
	ctx := context.Background()

	stale, err := sessions.Create(ctx)
	require.NoError(t, err)
	stale.LastActiveAt = time.Now().Add(-time.Hour)
	_, err = sessions.Create(ctx)
	require.NoError(t, err)

	cleanup := NewSessionCleanupService(sessions, time.Minute, 10*time.Millisecond, zap.NewNop())
	cleanup.Start()
	defer cleanup.Stop()

	require.Eventually(t, func() bool { return sessions.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cleanup.Stop()
	cleanup.Stop() // idempotent
}
