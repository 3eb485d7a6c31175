package entities

import "time"

// Speaker identifies who produced a turn
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

// Label returns the prefix used when the turn is rendered into a prompt
func (s Speaker) Label() string {
	switch s {
	case SpeakerUser:
		return "User"
	case SpeakerBot:
		return "Bot"
	default:
		return string(s)
	}
}

// Turn is a single utterance by either the user or the bot.
// Turns are values; the history buffer only ever hands out copies.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time
func NewTurn(speaker Speaker, text string) Turn {
	return Turn{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// UserTurn is shorthand for NewTurn(SpeakerUser, text)
func UserTurn(text string) Turn {
	return NewTurn(SpeakerUser, text)
}

// BotTurn is shorthand for NewTurn(SpeakerBot, text)
func BotTurn(text string) Turn {
	return NewTurn(SpeakerBot, text)
}
