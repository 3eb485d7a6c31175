package entities

import "strings"

// History is a fixed-capacity, insertion-ordered record of the most recent
// turns of a conversation. When full, appending evicts the oldest turn.
//
// A History is owned by a single session and is not safe for concurrent use
// on its own; Session serializes access to it.
type History struct {
	turns []Turn // ring storage, len == capacity
	start int    // index of the oldest turn
	size  int
}

// NewHistory creates an empty history holding at most capacity turns.
// A non-positive capacity is treated as 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		turns: make([]Turn, capacity),
	}
}

// Append adds turn at the end, evicting the oldest turn when the buffer is full
func (h *History) Append(turn Turn) {
	capacity := len(h.turns)
	if h.size < capacity {
		h.turns[(h.start+h.size)%capacity] = turn
		h.size++
		return
	}

	// Full: overwrite the oldest slot and advance the start.
	h.turns[h.start] = turn
	h.start = (h.start + 1) % capacity
}

// Turns returns a copy of the buffered turns, oldest first
func (h *History) Turns() []Turn {
	out := make([]Turn, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.turns[(h.start+i)%len(h.turns)]
	}
	return out
}

// Len returns the number of buffered turns
func (h *History) Len() int {
	return h.size
}

// Cap returns the maximum number of turns the buffer retains
func (h *History) Cap() int {
	return len(h.turns)
}

// Reset discards every buffered turn
func (h *History) Reset() {
	for i := range h.turns {
		h.turns[i] = Turn{}
	}
	h.start = 0
	h.size = 0
}

// Render formats the buffered turns as speaker-labelled lines, oldest first,
// for inclusion in a prompt.
func (h *History) Render() string {
	var b strings.Builder
	for i, turn := range h.Turns() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(turn.Speaker.Label())
		b.WriteString(": ")
		b.WriteString(turn.Text)
	}
	return b.String()
}
