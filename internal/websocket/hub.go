package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/domain"
	"github.com/satriahrh/chatwidget/internal/auth"
	"github.com/satriahrh/chatwidget/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16 * 1024

	// Pending chat messages per client before new ones are refused.
	inboxSize = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of connected widgets. Each client is bound to
// exactly one session.
type Hub struct {
	// Registered clients, keyed by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed once Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	conversation *usecase.ConversationService
	signer       *auth.Signer
	validator    *MessageValidator

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(conversation *usecase.ConversationService, signer *auth.Signer, logger *zap.Logger) *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
		conversation: conversation,
		signer:       signer,
		validator:    NewMessageValidator(),
		logger:       logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.sessionID]; ok && current == client {
				delete(h.clients, client.sessionID)
			}
			h.mu.Unlock()
			client.closeSend()
			h.release(client)
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.closeSend()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// release ends the session when the connection created it. Sessions opened
// through the HTTP API outlive the socket and expire on their own.
func (h *Hub) release(client *Client) {
	if !client.ownsSession {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.conversation.EndSession(ctx, client.sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		h.logger.Error("Failed to end session",
			zap.String("sessionID", client.sessionID),
			zap.Error(err))
	}
}

// ClientCount returns the number of connected widgets
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ActiveSessions returns the session IDs of connected widgets
func (h *Hub) ActiveSessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	// Chat messages waiting for their turn, handled one at a time.
	inbox chan interface{}

	sessionID   string
	ownsSession bool

	// Canceled when the connection goes away, aborting an in-flight turn.
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// HandleWebSocket upgrades the request and binds the connection to a session.
// A token (Authorization header or "token" query parameter) attaches an
// existing session; without one a fresh session is created for the
// connection and discarded when it closes.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	ctx := c.Request().Context()

	token := auth.BearerToken(c.Request().Header.Get("Authorization"))
	if token == "" {
		token = c.QueryParam("token")
	}

	var (
		sessionID   string
		ownsSession bool
		historyLen  int
	)
	if token != "" {
		claims, err := hub.signer.Validate(token)
		if err != nil {
			logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		turns, err := hub.conversation.History(ctx, claims.SessionID)
		if err != nil {
			logger.Warn("WebSocket connection rejected: unknown session",
				zap.String("sessionID", claims.SessionID),
				zap.Error(err))
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		sessionID = claims.SessionID
		historyLen = len(turns)
	} else {
		session, err := hub.conversation.StartSession(ctx)
		if err != nil {
			logger.Error("Failed to start session", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to start session")
		}
		sessionID = session.ID
		ownsSession = true
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		if ownsSession {
			_ = hub.conversation.EndSession(context.Background(), sessionID)
		}
		return err
	}

	clientCtx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		inbox:       make(chan interface{}, inboxSize),
		sessionID:   sessionID,
		ownsSession: ownsSession,
		ctx:         clientCtx,
		cancel:      cancel,
		logger:      logger.With(zap.String("sessionID", sessionID)),
	}

	select {
	case client.hub.register <- client:
	case <-hub.done:
		cancel()
		conn.Close()
		if ownsSession {
			_ = hub.conversation.EndSession(context.Background(), sessionID)
		}
		return nil
	}
	client.enqueue(CreateSessionStartedMessage(sessionID, historyLen))

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.turnLoop()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the turn loop.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		close(c.inbox)
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			c.closeSend()
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.keepAlive()
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
		// Any frame from the peer proves it is alive.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unsupported message type", zap.Int("type", messageType))
			c.enqueue(CreateErrorMessage(ErrorCodeInvalidMessage, "only text frames are supported", ""))
			continue
		}

		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage answers cheap messages inline and queues turns
func (c *Client) processMessage(message []byte) {
	msg, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Invalid message", zap.Error(err))
		c.enqueue(CreateErrorMessage(ErrorCodeInvalidMessage, err.Error(), ""))
		return
	}

	switch m := msg.(type) {
	case *PingMessage:
		if !c.keepAlive() {
			c.enqueue(CreateErrorMessage(ErrorCodeSessionNotFound, "Your session has expired. Please reload.", m.MessageID))
			return
		}
		c.enqueue(CreatePongMessage(m.Data))
	default:
		select {
		case c.inbox <- msg:
		default:
			c.logger.Warn("Inbox full, dropping message")
			c.enqueue(CreateErrorMessage(ErrorCodeInvalidMessage, "too many pending messages", ""))
		}
	}
}

// keepAlive keeps the session from idle expiry while the connection lives.
// It reports false once the session is gone.
func (c *Client) keepAlive() bool {
	err := c.hub.conversation.KeepAlive(c.ctx, c.sessionID)
	if err == nil {
		return true
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		c.logger.Error("Failed to refresh session", zap.Error(err))
		return true
	}
	return false
}

// turnLoop handles queued messages one at a time, so turns of a session
// never interleave.
func (c *Client) turnLoop() {
	for msg := range c.inbox {
		switch m := msg.(type) {
		case *ChatMessage:
			c.handleChat(m)
		case *ClearMessage:
			c.handleClear()
		}
	}
}

func (c *Client) handleChat(msg *ChatMessage) {
	reply, err := c.hub.conversation.Send(c.ctx, c.sessionID, msg.Text)
	switch {
	case err == nil:
		c.enqueue(CreateChatResponseMessage(c.sessionID, msg.MessageID, reply.Reply, reply.HistoryLen))

	case usecase.IsRejected(err):
		// Empty input is a no-op.
		c.logger.Debug("Ignoring empty chat message")

	case domain.IsExternalServiceError(err):
		if c.ctx.Err() != nil {
			return
		}
		c.enqueue(CreateErrorMessage(ErrorCodeExternalService, "The model could not produce a reply. Please try again.", msg.MessageID))

	case errors.Is(err, domain.ErrSessionNotFound):
		c.enqueue(CreateErrorMessage(ErrorCodeSessionNotFound, "Your session has expired. Please reload.", msg.MessageID))

	default:
		c.logger.Error("Failed to handle chat message", zap.Error(err))
		c.enqueue(CreateErrorMessage(ErrorCodeInternal, "Something went wrong.", msg.MessageID))
	}
}

func (c *Client) handleClear() {
	if err := c.hub.conversation.Clear(c.ctx, c.sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.enqueue(CreateErrorMessage(ErrorCodeSessionNotFound, "Your session has expired. Please reload.", ""))
			return
		}
		c.logger.Error("Failed to clear session", zap.Error(err))
		c.enqueue(CreateErrorMessage(ErrorCodeInternal, "Something went wrong.", ""))
		return
	}
	c.enqueue(CreateClearedMessage(c.sessionID))
}

// enqueue marshals v and queues it for the write pump. Messages to a closed
// or hopelessly backed-up client are dropped.
func (c *Client) enqueue(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.logger.Warn("Send buffer full, dropping message")
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
