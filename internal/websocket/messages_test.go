package websocket

import (
	"encoding/json"
	"testing"
)

func TestMessageValidator_ValidateChatMessage(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name     string
		message  string
		wantErr  bool
		wantText string
	}{
		{
			name:     "valid chat message",
			message:  `{"type": "chat_message", "message_id": "m-1", "text": "Hello!"}`,
			wantText: "Hello!",
		},
		{
			name:     "empty text is accepted",
			message:  `{"type": "chat_message", "text": ""}`,
			wantText: "",
		},
		{
			name:    "text of the wrong type",
			message: `{"type": "chat_message", "text": 42}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			chat, ok := msg.(*ChatMessage)
			if !ok {
				t.Fatalf("Expected *ChatMessage, got %T", msg)
			}
			if chat.Text != tt.wantText {
				t.Errorf("Expected text %q, got %q", tt.wantText, chat.Text)
			}
		})
	}
}

func TestMessageValidator_ValidatePingAndClear(t *testing.T) {
	validator := NewMessageValidator()

	msg, err := validator.ValidateMessage([]byte(`{"type": "ping", "data": "abc"}`))
	if err != nil {
		t.Fatalf("Ping should be valid, got: %v", err)
	}
	if ping, ok := msg.(*PingMessage); !ok || ping.Data != "abc" {
		t.Errorf("Expected ping with data abc, got %#v", msg)
	}

	msg, err = validator.ValidateMessage([]byte(`{"type": "clear"}`))
	if err != nil {
		t.Fatalf("Clear should be valid, got: %v", err)
	}
	if _, ok := msg.(*ClearMessage); !ok {
		t.Errorf("Expected *ClearMessage, got %T", msg)
	}
}

func TestMessageValidator_Rejects(t *testing.T) {
	validator := NewMessageValidator()

	for name, message := range map[string]string{
		"invalid json":     `{"type": `,
		"missing type":     `{"text": "hi"}`,
		"unsupported type": `{"type": "audio_chunk"}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := validator.ValidateMessage([]byte(message)); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestCreateErrorMessage(t *testing.T) {
	msg := CreateErrorMessage(ErrorCodeExternalService, "model unavailable", "m-1")

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if decoded["type"] != string(MessageTypeError) {
		t.Errorf("Expected type error, got %v", decoded["type"])
	}
	if decoded["error_code"] != ErrorCodeExternalService {
		t.Errorf("Expected error_code %s, got %v", ErrorCodeExternalService, decoded["error_code"])
	}
	if decoded["reply_to"] != "m-1" {
		t.Errorf("Expected reply_to m-1, got %v", decoded["reply_to"])
	}
	if decoded["message_id"] == "" || decoded["timestamp"] == "" {
		t.Error("Expected message_id and timestamp to be set")
	}
}

func TestCreateChatResponseMessage(t *testing.T) {
	msg := CreateChatResponseMessage("s-1", "m-1", "Hi!", 2)

	if msg.Type != MessageTypeChatResponse {
		t.Errorf("Expected type %s, got %s", MessageTypeChatResponse, msg.Type)
	}
	if msg.SessionID != "s-1" || msg.Text != "Hi!" || msg.HistoryLen != 2 {
		t.Errorf("Unexpected message: %#v", msg)
	}
}
