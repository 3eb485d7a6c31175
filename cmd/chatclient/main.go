// Command chatclient talks to a running chatwidget server from the terminal.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type frame struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	HistoryLen int    `json:"history_len,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Message    string `json:"message,omitempty"`
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	token := flag.String("token", "", "session token from POST /api/v1/sessions (optional)")
	flag.Parse()

	wsURL := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	if *token != "" {
		q := wsURL.Query()
		q.Set("token", *token)
		wsURL.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("WebSocket connection failed with status %d: %v", resp.StatusCode, err)
		}
		log.Fatalf("WebSocket connection failed: %v", err)
	}
	defer conn.Close()

	replies := make(chan frame)
	go func() {
		defer close(replies)
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			replies <- f
		}
	}()

	started, ok := <-replies
	if !ok || started.Type != "session_started" {
		log.Fatalf("Unexpected greeting: %+v", started)
	}
	fmt.Printf("Connected, session %s. Type a message, /clear to forget, Ctrl-D to quit.\n", started.SessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		out := frame{Type: "chat_message", Text: line}
		if line == "/clear" {
			out = frame{Type: "clear"}
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Fatalf("Failed to send: %v", err)
		}

		select {
		case f, ok := <-replies:
			if !ok {
				log.Fatal("Connection closed by server")
			}
			switch f.Type {
			case "chat_response":
				fmt.Printf("Bot: %s\n", f.Text)
			case "cleared":
				fmt.Println("(history cleared)")
			case "error":
				fmt.Printf("Error [%s]: %s\n", f.ErrorCode, f.Message)
			default:
				raw, _ := json.Marshal(f)
				fmt.Printf("%s\n", raw)
			}
		case <-time.After(2 * time.Minute):
			log.Fatal("Timed out waiting for a reply")
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
