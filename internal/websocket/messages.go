package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	// client -> server
	MessageTypeChatMessage MessageType = "chat_message"
	MessageTypeClear       MessageType = "clear"
	MessageTypePing        MessageType = "ping"

	// server -> client
	MessageTypeSessionStarted MessageType = "session_started"
	MessageTypeChatResponse   MessageType = "chat_response"
	MessageTypeCleared        MessageType = "cleared"
	MessageTypePong           MessageType = "pong"
	MessageTypeError          MessageType = "error"
)

// Error codes reported to the widget
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeExternalService = "external_service_error"
	ErrorCodeSessionNotFound = "session_not_found"
	ErrorCodeInternal        = "internal_error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
}

// ChatMessage carries one user utterance from the widget
type ChatMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ClearMessage asks the server to empty the session history
type ClearMessage struct {
	BaseMessage
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// SessionStartedMessage tells the widget which session it is bound to
type SessionStartedMessage struct {
	BaseMessage
	SessionID  string `json:"session_id"`
	HistoryLen int    `json:"history_len"`
}

// ChatResponseMessage carries the bot's reply
type ChatResponseMessage struct {
	BaseMessage
	SessionID  string `json:"session_id"`
	ReplyTo    string `json:"reply_to,omitempty"`
	Text       string `json:"text"`
	HistoryLen int    `json:"history_len"`
}

// ClearedMessage confirms that the history was emptied
type ClearedMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses an incoming frame into its typed message. Empty chat
// text is not a validation error; the turn handler ignores it.
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	// First parse as base message to get type
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeChatMessage:
		var msg ChatMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid chat message: %w", err)
		}
		return &msg, nil

	case MessageTypeClear:
		return &ClearMessage{BaseMessage: base}, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: uuid.New().String(),
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, replyTo string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
		ReplyTo:     replyTo,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: newBase(MessageTypePong),
		Data:        data,
	}
}

// CreateSessionStartedMessage announces the bound session
func CreateSessionStartedMessage(sessionID string, historyLen int) *SessionStartedMessage {
	return &SessionStartedMessage{
		BaseMessage: newBase(MessageTypeSessionStarted),
		SessionID:   sessionID,
		HistoryLen:  historyLen,
	}
}

// CreateChatResponseMessage wraps a bot reply
func CreateChatResponseMessage(sessionID, replyTo, text string, historyLen int) *ChatResponseMessage {
	return &ChatResponseMessage{
		BaseMessage: newBase(MessageTypeChatResponse),
		SessionID:   sessionID,
		ReplyTo:     replyTo,
		Text:        text,
		HistoryLen:  historyLen,
	}
}

// CreateClearedMessage confirms a cleared history
func CreateClearedMessage(sessionID string) *ClearedMessage {
	return &ClearedMessage{
		BaseMessage: newBase(MessageTypeCleared),
		SessionID:   sessionID,
	}
}
