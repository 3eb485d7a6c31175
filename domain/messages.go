package domain

import "time"

// ChatRequest carries one user utterance from the widget
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatReply is what the widget displays after a completed turn
type ChatReply struct {
	SessionID  string    `json:"session_id"`
	Reply      string    `json:"reply"`
	HistoryLen int       `json:"history_len"`
	Timestamp  time.Time `json:"timestamp"`
}
