package api

import (
	"time"

	"github.com/satriahrh/chatwidget/domain/entities"
)

// SessionResponse is returned when a session is opened over HTTP
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HistoryResponse lists the turns of a session, oldest first
type HistoryResponse struct {
	SessionID string          `json:"session_id"`
	Turns     []entities.Turn `json:"turns"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WidgetConfig is what the chat page shows around the conversation
type WidgetConfig struct {
	Title       string
	Description string
	Examples    []string
	HistorySize int
}
