package entities

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(turns []Turn) []string {
	out := make([]string, len(turns))
	for i, turn := range turns {
		out[i] = turn.Text
	}
	return out
}

func TestHistory_EvictsOldestFirst(t *testing.T) {
	h := NewHistory(4)
	for _, text := range []string{"A", "B", "C", "D", "E"} {
		h.Append(UserTurn(text))
	}

	assert.Equal(t, []string{"B", "C", "D", "E"}, texts(h.Turns()))
	assert.Equal(t, 4, h.Len())
}

func TestHistory_NeverExceedsCapacity(t *testing.T) {
	for _, capacity := range []int{1, 2, 3, 7, 10} {
		t.Run(fmt.Sprintf("cap=%d", capacity), func(t *testing.T) {
			h := NewHistory(capacity)
			for i := 0; i < capacity*3+1; i++ {
				h.Append(NewTurn(SpeakerUser, fmt.Sprint(i)))
				require.LessOrEqual(t, h.Len(), h.Cap())
			}
			assert.Equal(t, capacity, h.Len())
		})
	}
}

func TestHistory_FIFOAfterOverflow(t *testing.T) {
	const n = 5
	h := NewHistory(n)
	var appended []string
	for i := 0; i <= n; i++ {
		text := fmt.Sprintf("turn-%d", i)
		appended = append(appended, text)
		h.Append(UserTurn(text))
	}

	got := texts(h.Turns())
	assert.NotContains(t, got, appended[0])
	assert.Equal(t, appended[1:], got)
}

func TestHistory_NonPositiveCapacity(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, 1, h.Cap())

	h.Append(UserTurn("first"))
	h.Append(UserTurn("second"))
	assert.Equal(t, []string{"second"}, texts(h.Turns()))
}

func TestHistory_Render(t *testing.T) {
	h := NewHistory(4)
	assert.Equal(t, "", h.Render())

	h.Append(UserTurn("Hello!"))
	h.Append(BotTurn("Hi, how can I help?"))
	h.Append(UserTurn("Tell me a joke."))

	expected := "User: Hello!\nBot: Hi, how can I help?\nUser: Tell me a joke."
	assert.Equal(t, expected, h.Render())
}

func TestHistory_RenderAfterEviction(t *testing.T) {
	h := NewHistory(2)
	h.Append(UserTurn("one"))
	h.Append(BotTurn("two"))
	h.Append(UserTurn("three"))

	assert.Equal(t, "Bot: two\nUser: three", h.Render())
}

func TestHistory_TurnsReturnsCopy(t *testing.T) {
	h := NewHistory(2)
	h.Append(UserTurn("original"))

	turns := h.Turns()
	turns[0].Text = "mutated"

	assert.Equal(t, "original", h.Turns()[0].Text)
}

func TestHistory_Reset(t *testing.T) {
	h := NewHistory(3)
	h.Append(UserTurn("a"))
	h.Append(BotTurn("b"))

	h.Reset()
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 3, h.Cap())

	h.Append(UserTurn("c"))
	assert.Equal(t, []string{"c"}, texts(h.Turns()))
}

func TestSpeaker(t *testing.T) {
	assert.Equal(t, "User", SpeakerUser.Label())
	assert.Equal(t, "Bot", SpeakerBot.Label())
}
